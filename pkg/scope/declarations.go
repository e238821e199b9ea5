package scope

import (
	ts "github.com/tree-sitter/go-tree-sitter"
)

// Declarations returns the names a scope-introducing node declares, including
// names hoisted into it from nested statements (var, function declarations,
// imports). It returns nil for nodes that do not introduce a scope.
func Declarations(node *ts.Node, source []byte) []string {
	var names []string

	switch KindOf(node) {
	case KindProgram:
		for i := uint(0); i < node.NamedChildCount(); i++ {
			stmt := node.NamedChild(i)
			if stmt.Kind() == "import_statement" {
				names = append(names, ImportedLocals(stmt, source)...)
				continue
			}
			names = append(names, lexicalNames(stmt, source)...)
		}
		names = append(names, varNames(node, source)...)

	case KindFunction:
		switch node.Kind() {
		case "function_expression", "function", "generator_function":
			// A named function expression binds its own name inside itself.
			if name := node.ChildByFieldName("name"); name != nil {
				names = append(names, name.Utf8Text(source))
			}
		}
		if param := node.ChildByFieldName("parameter"); param != nil {
			names = append(names, patternNames(param, source)...)
		}
		if params := node.ChildByFieldName("parameters"); params != nil {
			for i := uint(0); i < params.NamedChildCount(); i++ {
				names = append(names, patternNames(params.NamedChild(i), source)...)
			}
		}
		if body := node.ChildByFieldName("body"); body != nil {
			names = append(names, varNames(body, source)...)
		}

	case KindBlock:
		switch node.Kind() {
		case "for_statement":
			if init := node.ChildByFieldName("initializer"); init != nil && init.Kind() == "lexical_declaration" {
				names = append(names, declaratorNames(init, source)...)
			}
		case "for_in_statement":
			if kind := node.ChildByFieldName("kind"); kind != nil && kind.Kind() != "var" {
				if left := node.ChildByFieldName("left"); left != nil {
					names = append(names, patternNames(left, source)...)
				}
			}
		case "switch_body":
			for i := uint(0); i < node.NamedChildCount(); i++ {
				clause := node.NamedChild(i)
				for j := uint(0); j < clause.NamedChildCount(); j++ {
					names = append(names, lexicalNames(clause.NamedChild(j), source)...)
				}
			}
		default:
			for i := uint(0); i < node.NamedChildCount(); i++ {
				names = append(names, lexicalNames(node.NamedChild(i), source)...)
			}
		}

	case KindCatch:
		if param := node.ChildByFieldName("parameter"); param != nil {
			names = append(names, patternNames(param, source)...)
		}

	case KindClass:
		if name := node.ChildByFieldName("name"); name != nil {
			names = append(names, name.Utf8Text(source))
		}
	}

	return names
}

// ImportedLocals returns every local name an import statement introduces:
// default, namespace and named specifiers.
func ImportedLocals(stmt *ts.Node, source []byte) []string {
	var names []string
	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		clause := stmt.NamedChild(i)
		if clause.Kind() != "import_clause" {
			continue
		}
		for j := uint(0); j < clause.NamedChildCount(); j++ {
			part := clause.NamedChild(j)
			switch part.Kind() {
			case "identifier":
				names = append(names, part.Utf8Text(source))
			case "namespace_import":
				for k := uint(0); k < part.NamedChildCount(); k++ {
					if id := part.NamedChild(k); id.Kind() == "identifier" {
						names = append(names, id.Utf8Text(source))
					}
				}
			case "named_imports":
				for k := uint(0); k < part.NamedChildCount(); k++ {
					spec := part.NamedChild(k)
					if spec.Kind() != "import_specifier" {
						continue
					}
					if local := SpecifierLocal(spec); local != nil {
						names = append(names, local.Utf8Text(source))
					}
				}
			}
		}
	}
	return names
}

// SpecifierLocal returns the node naming the local binding of an
// import_specifier: the alias when present, otherwise the imported name.
func SpecifierLocal(spec *ts.Node) *ts.Node {
	if alias := spec.ChildByFieldName("alias"); alias != nil {
		return alias
	}
	return spec.ChildByFieldName("name")
}

// lexicalNames returns the block-scoped names a statement declares.
func lexicalNames(stmt *ts.Node, source []byte) []string {
	switch stmt.Kind() {
	case "lexical_declaration":
		return declaratorNames(stmt, source)
	case "class_declaration", "abstract_class_declaration",
		"function_declaration", "generator_function_declaration",
		"enum_declaration":
		if name := stmt.ChildByFieldName("name"); name != nil {
			return []string{name.Utf8Text(source)}
		}
	case "export_statement":
		if decl := stmt.ChildByFieldName("declaration"); decl != nil {
			return lexicalNames(decl, source)
		}
	}
	return nil
}

// varNames collects var declarations below node without crossing into
// nested functions, which hoist their own.
func varNames(node *ts.Node, source []byte) []string {
	var names []string
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		switch child.Kind() {
		case "variable_declaration":
			names = append(names, declaratorNames(child, source)...)
		case "for_in_statement":
			if kind := child.ChildByFieldName("kind"); kind != nil && kind.Kind() == "var" {
				if left := child.ChildByFieldName("left"); left != nil {
					names = append(names, patternNames(left, source)...)
				}
			}
		}
		if KindOf(child) == KindFunction {
			continue
		}
		names = append(names, varNames(child, source)...)
	}
	return names
}

// declaratorNames returns the names bound by the variable_declarators of a
// var, let or const declaration.
func declaratorNames(decl *ts.Node, source []byte) []string {
	var names []string
	for i := uint(0); i < decl.NamedChildCount(); i++ {
		d := decl.NamedChild(i)
		if d.Kind() != "variable_declarator" {
			continue
		}
		if name := d.ChildByFieldName("name"); name != nil {
			names = append(names, patternNames(name, source)...)
		}
	}
	return names
}

// patternNames returns the identifiers bound by a binding pattern.
func patternNames(p *ts.Node, source []byte) []string {
	switch p.Kind() {
	case "identifier", "shorthand_property_identifier_pattern":
		return []string{p.Utf8Text(source)}

	case "pair_pattern":
		if value := p.ChildByFieldName("value"); value != nil {
			return patternNames(value, source)
		}

	case "assignment_pattern", "object_assignment_pattern":
		if left := p.ChildByFieldName("left"); left != nil {
			return patternNames(left, source)
		}

	case "required_parameter", "optional_parameter":
		if pattern := p.ChildByFieldName("pattern"); pattern != nil {
			return patternNames(pattern, source)
		}

	case "object_pattern", "array_pattern", "rest_pattern":
		var names []string
		for i := uint(0); i < p.NamedChildCount(); i++ {
			names = append(names, patternNames(p.NamedChild(i), source)...)
		}
		return names
	}
	return nil
}
