package treeshake

import (
	ts "github.com/tree-sitter/go-tree-sitter"
)

// factoryCall is a call recognized as creating an intrinsic element.
type factoryCall struct {
	callee string
	tag    string
	props  *ts.Node
}

// matchFactoryCall reports whether call invokes a factory alias with a string
// literal tag, e.g. `_jsx("div", {...})`, and returns its properties argument.
//
// Only a bare identifier callee qualifies: member calls, parenthesized or
// sequence callees (`(0, _jsx)(...)`) and optional calls are left alone, as
// are component calls whose tag is an identifier.
func (v *visitor) matchFactoryCall(call *ts.Node) (factoryCall, bool) {
	if call.ChildByFieldName("optional_chain") != nil {
		return factoryCall{}, false
	}

	callee := call.ChildByFieldName("function")
	if callee == nil || callee.Kind() != "identifier" {
		return factoryCall{}, false
	}

	name := callee.Utf8Text(v.source)
	if !v.aliases.isFactory(v.scopes.Resolve(name)) {
		return factoryCall{}, false
	}

	// Tagged templates carry a template_string instead of arguments.
	args := call.ChildByFieldName("arguments")
	if args == nil || args.Kind() != "arguments" {
		return factoryCall{}, false
	}

	list := argumentList(args)
	if len(list) < 2 || list[0].Kind() != "string" {
		return factoryCall{}, false
	}

	return factoryCall{
		callee: name,
		tag:    stringContent(list[0], v.source),
		props:  list[1],
	}, true
}

// argumentList returns the argument expressions of an arguments node,
// skipping comments.
func argumentList(args *ts.Node) []*ts.Node {
	list := make([]*ts.Node, 0, args.NamedChildCount())
	for i := uint(0); i < args.NamedChildCount(); i++ {
		arg := args.NamedChild(i)
		if arg.Kind() == "comment" {
			continue
		}
		list = append(list, arg)
	}
	return list
}

// stringContent gets the text inside a string node (without quotes).
func stringContent(node *ts.Node, source []byte) string {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child.Kind() == "string_fragment" && node.NamedChildCount() == 1 {
			return child.Utf8Text(source)
		}
	}
	// Empty strings and strings with escapes: strip the quotes.
	text := node.Utf8Text(source)
	if len(text) >= 2 {
		return text[1 : len(text)-1]
	}
	return text
}
