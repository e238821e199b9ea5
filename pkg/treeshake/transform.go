// Package treeshake removes event-handler properties from intrinsic JSX
// factory calls.
//
// Compiled JSX such as
//
//	import { jsx as _jsx } from "react/jsx-runtime";
//	_jsx("button", { type: "submit", onClick: () => save() });
//
// is rewritten to
//
//	import { jsx as _jsx } from "react/jsx-runtime";
//	_jsx("button", { type: "submit" });
//
// Only calls through a named import of a factory (jsx, jsxs, jsxDEV by
// default) whose first argument is a string literal are touched. Component
// calls, spreads, computed keys and accessors are kept.
package treeshake

import (
	"fmt"
	"log/slog"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/treeshake/pkg/config"
	"github.com/gnana997/treeshake/pkg/parser"
	"github.com/gnana997/treeshake/pkg/util"
)

// Removal describes one deleted property.
type Removal struct {
	Tag    string    `json:"tag"`
	Key    string    `json:"key"`
	Kind   EntryKind `json:"-"`
	Line   int       `json:"line"`
	Column int       `json:"column"`
}

// Alias describes a local binding recognized as a factory.
type Alias struct {
	Imported string `json:"imported"`
	Local    string `json:"local"`
	Line     int    `json:"line"`
}

// Result is the outcome of one pass over a module.
type Result struct {
	// Output is the rewritten source. It never aliases the input.
	Output  []byte
	Changed bool
	Removed []Removal
	Aliases []Alias
	// HasSyntaxErrors is set when the tree contained ERROR nodes; the pass
	// still ran over the well-formed parts.
	HasSyntaxErrors bool
}

// Transformer runs the pass with a fixed set of patterns. It holds no
// per-module state and is safe for concurrent use.
type Transformer struct {
	patterns *config.Patterns
	logger   *slog.Logger
}

// NewTransformer creates a Transformer. A nil patterns uses the defaults and
// a nil logger discards output.
func NewTransformer(patterns *config.Patterns, logger *slog.Logger) *Transformer {
	if patterns == nil {
		patterns = config.Default()
	}
	if logger == nil {
		logger = util.DiscardLogger()
	}
	return &Transformer{patterns: patterns, logger: logger}
}

// Patterns returns the compiled patterns the Transformer uses.
func (t *Transformer) Patterns() *config.Patterns {
	return t.patterns
}

// Transform runs the pass over a tree parsed from source. Alias state starts
// empty for every call.
func (t *Transformer) Transform(tree *ts.Tree, source []byte) *Result {
	result := &Result{}
	root := tree.RootNode()
	result.HasSyntaxErrors = root.HasError()

	v := newVisitor(source, t.patterns, t.logger, result)
	v.visit(root)

	result.Output = applyEdits(source, v.edits)
	result.Changed = len(v.edits) > 0

	if result.Changed {
		t.logger.Debug("transformed module",
			"aliases", v.aliases.len(),
			"removed", len(result.Removed))
	}

	return result
}

// TransformSource parses source and runs the pass over it.
func (t *Transformer) TransformSource(pm *parser.ParserManager, source []byte, lang parser.Language, isTSX bool) (*Result, error) {
	tree, err := pm.Parse(source, lang, isTSX)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source: %w", err)
	}
	defer tree.Close()

	return t.Transform(tree, source), nil
}

// TransformFile parses source with the grammar chosen by path's extension and
// runs the pass over it.
func (t *Transformer) TransformFile(pm *parser.ParserManager, path string, source []byte) (*Result, error) {
	tree, err := pm.ParseFile(source, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	defer tree.Close()

	return t.Transform(tree, source), nil
}
