package parser

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	ts "github.com/tree-sitter/go-tree-sitter"
	ts_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	ts_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// grammar names one of the three grammars a source file can be parsed with.
type grammar struct {
	lang Language
	tsx  bool
}

// grammarFor normalizes the TSX flag, which only distinguishes TypeScript
// grammars. The JavaScript grammar accepts JSX either way.
func grammarFor(lang Language, isTSX bool) grammar {
	return grammar{lang: lang, tsx: lang == LanguageTypeScript && isTSX}
}

func (g grammar) String() string {
	if g.tsx {
		return "tsx"
	}
	return g.lang.String()
}

func (g grammar) language() (*ts.Language, error) {
	switch {
	case g.lang == LanguageJavaScript:
		return ts.NewLanguage(ts_javascript.Language()), nil
	case g.lang == LanguageTypeScript && g.tsx:
		return ts.NewLanguage(ts_typescript.LanguageTSX()), nil
	case g.lang == LanguageTypeScript:
		return ts.NewLanguage(ts_typescript.LanguageTypescript()), nil
	}
	return nil, fmt.Errorf("unsupported language: %s", g.lang)
}

// parserPool lends out parsers for a single grammar.
//
// slots holds one token per parser that may still be created, so at most
// size parsers ever exist. Once the tokens are spent, acquire waits on idle.
type parserPool struct {
	grammar  grammar
	language *ts.Language
	idle     chan *ts.Parser
	slots    chan struct{}
	created  atomic.Int64
	logger   *slog.Logger
}

func newParserPool(g grammar, size int, logger *slog.Logger) (*parserPool, error) {
	language, err := g.language()
	if err != nil {
		return nil, err
	}
	if size < 1 {
		size = 1
	}

	p := &parserPool{
		grammar:  g,
		language: language,
		idle:     make(chan *ts.Parser, size),
		slots:    make(chan struct{}, size),
		logger:   logger,
	}
	for range size {
		p.slots <- struct{}{}
	}
	return p, nil
}

// parse runs source through a pooled parser. The caller owns the tree.
func (p *parserPool) parse(source []byte) (*ts.Tree, error) {
	parser, err := p.acquire()
	if err != nil {
		return nil, err
	}
	defer p.release(parser)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("%s parser returned no tree", p.grammar)
	}
	return tree, nil
}

// acquire prefers an idle parser, then a fresh one while slots remain, and
// otherwise blocks until another goroutine releases.
func (p *parserPool) acquire() (*ts.Parser, error) {
	select {
	case parser := <-p.idle:
		return parser, nil
	default:
	}

	select {
	case parser := <-p.idle:
		return parser, nil
	case <-p.slots:
		parser, err := p.newParser()
		if err != nil {
			p.slots <- struct{}{}
			return nil, err
		}
		return parser, nil
	}
}

func (p *parserPool) newParser() (*ts.Parser, error) {
	parser := ts.NewParser()
	if parser == nil {
		return nil, fmt.Errorf("failed to create %s parser", p.grammar)
	}
	if err := parser.SetLanguage(p.language); err != nil {
		parser.Close()
		return nil, fmt.Errorf("failed to load %s grammar: %w", p.grammar, err)
	}

	n := p.created.Add(1)
	p.logger.Debug("parser created", "grammar", p.grammar.String(), "parsers", n)
	return parser, nil
}

func (p *parserPool) release(parser *ts.Parser) {
	select {
	case p.idle <- parser:
	default:
		// Only reachable if a parser is released twice.
		parser.Close()
		p.logger.Warn("dropping surplus parser", "grammar", p.grammar.String())
	}
}

// drain closes every idle parser and returns how many it closed. Parsers
// still lent out are not tracked, so drain must run after parsing stops.
func (p *parserPool) drain() int {
	n := 0
	for {
		select {
		case parser := <-p.idle:
			parser.Close()
			n++
		default:
			return n
		}
	}
}
