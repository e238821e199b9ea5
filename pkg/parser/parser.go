package parser

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	ts "github.com/tree-sitter/go-tree-sitter"
)

// ParserManager parses JavaScript, TypeScript and TSX sources with pooled
// tree-sitter parsers. A grammar's pool is built the first time a source of
// that grammar is parsed.
//
// ParserManager is safe for concurrent use. Callers close the trees they
// get back, and Close the manager once all parsing is done:
//
//	pm := NewParserManager(logger)
//	defer pm.Close()
//
//	tree, err := pm.Parse([]byte(`jsx("div", {})`), LanguageJavaScript, false)
//	if err != nil {
//	    return err
//	}
//	defer tree.Close()
type ParserManager struct {
	mu     sync.Mutex
	pools  map[grammar]*parserPool
	parses atomic.Int64
	logger *slog.Logger
}

// NewParserManager creates a ParserManager. A nil logger uses slog.Default().
func NewParserManager(logger *slog.Logger) *ParserManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParserManager{
		pools:  make(map[grammar]*parserPool),
		logger: logger,
	}
}

// Parse parses source with the grammar for lang. isTSX picks the TSX
// grammar for TypeScript and is ignored for JavaScript.
//
// A tree with syntax errors is still returned; its ERROR nodes are ordinary
// nodes to the rewrite.
func (pm *ParserManager) Parse(source []byte, lang Language, isTSX bool) (*ts.Tree, error) {
	if lang == LanguageUnknown {
		return nil, fmt.Errorf("cannot parse unknown language")
	}
	pm.parses.Add(1)

	g := grammarFor(lang, isTSX)
	pool, err := pm.pool(g)
	if err != nil {
		return nil, err
	}

	tree, err := pool.parse(source)
	if err != nil {
		return nil, err
	}
	if tree.RootNode().HasError() {
		pm.logger.Debug("parse tree contains errors", "grammar", g.String())
	}
	return tree, nil
}

// ParseFile parses source with the grammar its file extension selects.
func (pm *ParserManager) ParseFile(source []byte, filePath string) (*ts.Tree, error) {
	lang := DetectLanguage(filePath)
	if lang == LanguageUnknown {
		return nil, fmt.Errorf("unsupported file extension: %s", filePath)
	}
	return pm.Parse(source, lang, IsTSXFile(filePath))
}

func (pm *ParserManager) pool(g grammar) (*parserPool, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if p, ok := pm.pools[g]; ok {
		return p, nil
	}
	p, err := newParserPool(g, getDefaultPoolSize(), pm.logger)
	if err != nil {
		return nil, err
	}
	pm.pools[g] = p
	pm.logger.Debug("parser pool ready", "grammar", g.String(), "size", cap(p.idle))
	return p, nil
}

// Close frees every idle parser. The manager can be reused afterwards; new
// pools are built on demand.
func (pm *ParserManager) Close() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	closed := 0
	for _, p := range pm.pools {
		closed += p.drain()
	}
	pm.pools = make(map[grammar]*parserPool)

	pm.logger.Debug("parser manager closed",
		"parses", pm.parses.Load(),
		"parsers_closed", closed)
	return nil
}

// ParserStats reports parser usage.
type ParserStats struct {
	ParsersCreated int // across all grammars
	ParsesCalled   int
	Grammars       int // pools built so far
}

// GetStats returns parser usage statistics.
func (pm *ParserManager) GetStats() ParserStats {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	stats := ParserStats{
		ParsesCalled: int(pm.parses.Load()),
		Grammars:     len(pm.pools),
	}
	for _, p := range pm.pools {
		stats.ParsersCreated += int(p.created.Load())
	}
	return stats
}
