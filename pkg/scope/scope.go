// Package scope derives binding identities from a tree-sitter JavaScript or
// TypeScript syntax tree.
//
// tree-sitter produces a concrete syntax tree without scope information, so a
// Resolver tracks the lexical scopes entered during a depth-first walk. Each
// scope declares its hoisted names when it is entered, which makes a reference
// resolve to the same Binding wherever it occurs in that scope, and keeps two
// locals with the same spelling in different scopes apart.
//
// Usage:
//
//	r := scope.NewResolver()
//	var walk func(n *ts.Node)
//	walk = func(n *ts.Node) {
//	    entered := r.Enter(n, source)
//	    defer func() { if entered { r.Leave() } }()
//	    // ... r.Resolve("name") ...
//	}
package scope

import (
	ts "github.com/tree-sitter/go-tree-sitter"
)

// Global is the scope id of names that no enclosing scope declares.
const Global = 0

// Binding identifies a declared local: the scope that declares it and its name.
// Two references with equal Bindings denote the same variable.
type Binding struct {
	Scope int
	Name  string
}

// IsGlobal reports whether the binding is unresolved.
func (b Binding) IsGlobal() bool {
	return b.Scope == Global
}

// Kind classifies scope-introducing nodes.
type Kind int

const (
	// KindNone marks nodes that do not introduce a scope.
	KindNone Kind = iota
	// KindProgram is the module scope.
	KindProgram
	// KindFunction covers functions, arrows and methods: parameters and vars.
	KindFunction
	// KindBlock covers blocks and loop heads: let, const, class and
	// block-level function declarations.
	KindBlock
	// KindCatch is a catch clause binding its parameter.
	KindCatch
	// KindClass is a named class expression binding its own name.
	KindClass
)

// String returns the kind name, used in debug logs.
func (k Kind) String() string {
	switch k {
	case KindProgram:
		return "program"
	case KindFunction:
		return "function"
	case KindBlock:
		return "block"
	case KindCatch:
		return "catch"
	case KindClass:
		return "class"
	default:
		return "none"
	}
}

// KindOf returns the scope kind a node of the given kind introduces.
func KindOf(node *ts.Node) Kind {
	switch node.Kind() {
	case "program":
		return KindProgram
	case "function_declaration", "function_expression", "function",
		"generator_function_declaration", "generator_function",
		"arrow_function", "method_definition", "class_static_block":
		return KindFunction
	case "statement_block", "switch_body", "for_statement", "for_in_statement":
		return KindBlock
	case "catch_clause":
		return KindCatch
	case "class":
		if node.ChildByFieldName("name") != nil {
			return KindClass
		}
	}
	return KindNone
}

type frame struct {
	id    int
	names map[string]struct{}
}

// Resolver tracks the scope chain of a single walk. It is not safe for
// concurrent use; create one per tree.
type Resolver struct {
	stack  []*frame
	nextID int
}

// NewResolver creates a resolver with no open scopes.
func NewResolver() *Resolver {
	return &Resolver{nextID: Global + 1}
}

// Enter opens a scope if node introduces one, declaring its hoisted names.
// It reports whether a scope was opened; callers must call Leave exactly once
// for every true result.
func (r *Resolver) Enter(node *ts.Node, source []byte) bool {
	if KindOf(node) == KindNone {
		return false
	}

	f := &frame{
		id:    r.nextID,
		names: make(map[string]struct{}),
	}
	r.nextID++

	for _, name := range Declarations(node, source) {
		f.names[name] = struct{}{}
	}

	r.stack = append(r.stack, f)
	return true
}

// Leave closes the innermost scope.
func (r *Resolver) Leave() {
	if len(r.stack) == 0 {
		return
	}
	r.stack = r.stack[:len(r.stack)-1]
}

// Depth returns the number of open scopes.
func (r *Resolver) Depth() int {
	return len(r.stack)
}

// Resolve returns the binding name refers to from the innermost open scope.
// Names declared nowhere resolve to the Global scope.
func (r *Resolver) Resolve(name string) Binding {
	for i := len(r.stack) - 1; i >= 0; i-- {
		if _, ok := r.stack[i].names[name]; ok {
			return Binding{Scope: r.stack[i].id, Name: name}
		}
	}
	return Binding{Scope: Global, Name: name}
}
