package treeshake

import (
	"log/slog"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/treeshake/pkg/config"
	"github.com/gnana997/treeshake/pkg/scope"
)

// visitor performs one pre-order walk over a tree. Imports are seen in
// source order, so a factory call that precedes the import of its callee is
// not recognized.
type visitor struct {
	source   []byte
	patterns *config.Patterns
	aliases  *aliasSet
	scopes   *scope.Resolver
	logger   *slog.Logger

	// removed holds the ids of entries scheduled for deletion; their
	// subtrees are not walked.
	removed map[uintptr]struct{}
	edits   []edit
	result  *Result
}

func newVisitor(source []byte, patterns *config.Patterns, logger *slog.Logger, result *Result) *visitor {
	return &visitor{
		source:   source,
		patterns: patterns,
		aliases:  newAliasSet(patterns),
		scopes:   scope.NewResolver(),
		logger:   logger,
		removed:  make(map[uintptr]struct{}),
		result:   result,
	}
}

func (v *visitor) visit(node *ts.Node) {
	if _, skip := v.removed[node.Id()]; skip {
		return
	}

	entered := v.scopes.Enter(node, v.source)

	switch node.Kind() {
	case "import_statement":
		v.visitImport(node)
	case "call_expression":
		v.visitCall(node)
	}

	for i := uint(0); i < node.NamedChildCount(); i++ {
		v.visit(node.NamedChild(i))
	}

	if entered {
		v.scopes.Leave()
	}
}

// visitImport records named imports of factory names, including renamed ones
// like `import { jsx as _jsx } from "react/jsx-runtime"`. The module source
// is not checked. Default, namespace and type-only imports never create an
// alias.
func (v *visitor) visitImport(stmt *ts.Node) {
	if isTypeOnly(stmt) {
		return
	}

	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		clause := stmt.NamedChild(i)
		if clause.Kind() != "import_clause" {
			continue
		}
		for j := uint(0); j < clause.NamedChildCount(); j++ {
			named := clause.NamedChild(j)
			if named.Kind() != "named_imports" {
				continue
			}
			for k := uint(0); k < named.NamedChildCount(); k++ {
				spec := named.NamedChild(k)
				if spec.Kind() == "import_specifier" && !isTypeOnly(spec) {
					v.visitSpecifier(spec)
				}
			}
		}
	}
}

func (v *visitor) visitSpecifier(spec *ts.Node) {
	name := spec.ChildByFieldName("name")
	local := scope.SpecifierLocal(spec)
	if name == nil || local == nil {
		return
	}

	localName := local.Utf8Text(v.source)
	imported := name.Utf8Text(v.source)
	checked := imported
	if name.Kind() == "string" {
		// import { "jsx" as j } is decided by the local name alone.
		imported = stringContent(name, v.source)
		checked = localName
	}

	if !v.aliases.recordImport(checked, v.scopes.Resolve(localName)) {
		return
	}

	pos := spec.StartPosition()
	v.result.Aliases = append(v.result.Aliases, Alias{
		Imported: imported,
		Local:    localName,
		Line:     int(pos.Row) + 1,
	})
	v.logger.Debug("recorded factory alias",
		"imported", imported,
		"local", localName,
		"line", pos.Row+1)
}

// visitCall strips matching properties from an intrinsic factory call. Kept
// properties, including nested factory calls, are still walked afterwards.
func (v *visitor) visitCall(call *ts.Node) {
	match, ok := v.matchFactoryCall(call)
	if !ok {
		return
	}

	entries, edits := v.filterProperties(match.props)
	if len(entries) == 0 {
		return
	}

	v.edits = append(v.edits, edits...)
	for _, entry := range entries {
		v.removed[entry.Node.Id()] = struct{}{}

		pos := entry.Node.StartPosition()
		v.result.Removed = append(v.result.Removed, Removal{
			Tag:    match.tag,
			Key:    entry.Key,
			Kind:   entry.Kind,
			Line:   int(pos.Row) + 1,
			Column: int(pos.Column) + 1,
		})
		v.logger.Debug("removed property",
			"factory", match.callee,
			"tag", match.tag,
			"key", entry.Key,
			"line", pos.Row+1)
	}
}

// isTypeOnly reports whether an import statement or specifier carries a
// `type` or `typeof` modifier (TypeScript).
func isTypeOnly(node *ts.Node) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.IsNamed() {
			continue
		}
		switch child.Kind() {
		case "type", "typeof":
			return true
		}
	}
	return false
}
