package treeshake

import (
	ts "github.com/tree-sitter/go-tree-sitter"
)

// EntryKind classifies an object literal entry by how its key can be read.
type EntryKind int

const (
	// EntryOther covers spreads, computed, string and numeric keys, getters
	// and setters. Its key is not static and it is never removed.
	EntryOther EntryKind = iota
	// EntryShorthand is `{ onClick }`.
	EntryShorthand
	// EntryKeyValue is `{ onClick: handler }`.
	EntryKeyValue
	// EntryMethod is `{ onClick() {} }`, including async and generator methods.
	EntryMethod
)

// String returns the kind name used in reports.
func (k EntryKind) String() string {
	switch k {
	case EntryShorthand:
		return "shorthand"
	case EntryKeyValue:
		return "key-value"
	case EntryMethod:
		return "method"
	default:
		return "other"
	}
}

// Entry is one member of an object literal.
type Entry struct {
	Kind EntryKind
	// Key is the identifier key; empty for EntryOther.
	Key  string
	Node *ts.Node
}

// classifyEntry reads the static key of an object member, if it has one.
func classifyEntry(node *ts.Node, source []byte) Entry {
	entry := Entry{Kind: EntryOther, Node: node}

	switch node.Kind() {
	case "shorthand_property_identifier":
		entry.Kind = EntryShorthand
		entry.Key = node.Utf8Text(source)

	case "pair":
		if key := node.ChildByFieldName("key"); key != nil && key.Kind() == "property_identifier" {
			entry.Kind = EntryKeyValue
			entry.Key = key.Utf8Text(source)
		}

	case "method_definition":
		if isAccessor(node) {
			break
		}
		if name := node.ChildByFieldName("name"); name != nil && name.Kind() == "property_identifier" {
			entry.Kind = EntryMethod
			entry.Key = name.Utf8Text(source)
		}
	}

	return entry
}

// isAccessor reports whether a method_definition is a getter or setter.
func isAccessor(method *ts.Node) bool {
	for i := uint(0); i < method.ChildCount(); i++ {
		child := method.Child(i)
		if child.IsNamed() {
			continue
		}
		switch child.Kind() {
		case "get", "set":
			return true
		}
	}
	return false
}

// objectEntries returns the members of an object literal in source order.
func objectEntries(obj *ts.Node, source []byte) []Entry {
	entries := make([]Entry, 0, obj.NamedChildCount())
	for i := uint(0); i < obj.NamedChildCount(); i++ {
		child := obj.NamedChild(i)
		if child.Kind() == "comment" {
			continue
		}
		entries = append(entries, classifyEntry(child, source))
	}
	return entries
}

// filterProperties selects the entries of the properties argument whose key
// matches a removal pattern and returns them with the deletions that drop
// them. Anything but an object literal is left alone.
func (v *visitor) filterProperties(props *ts.Node) ([]Entry, []edit) {
	if props.Kind() != "object" {
		return nil, nil
	}

	entries := objectEntries(props, v.source)
	remove := make([]bool, len(entries))
	var removed []Entry

	for i, entry := range entries {
		if entry.Kind == EntryOther {
			continue
		}
		if v.patterns.ShouldRemove(entry.Key) {
			remove[i] = true
			removed = append(removed, entry)
		}
	}

	if len(removed) == 0 {
		return nil, nil
	}

	return removed, deletionEdits(v.source, props, entries, remove)
}

// deletionEdits computes byte ranges that delete the flagged entries while
// keeping the survivors, their order and their separators intact.
//
// An entry followed by a survivor is deleted with its comma and any comment
// ending its line; a line left empty goes too. Removed entries after the last
// survivor are deleted from the end of that survivor, taking the comma before
// them. A comment ending a survivor's line stays with the survivor. When
// nothing survives the braces are emptied.
func deletionEdits(source []byte, obj *ts.Node, entries []Entry, remove []bool) []edit {
	lastKept := -1
	for i := range entries {
		if !remove[i] {
			lastKept = i
		}
	}

	if lastKept == -1 {
		open, closing := braces(obj)
		if open == nil {
			return nil
		}
		return []edit{{start: open.EndByte(), end: closing.StartByte()}}
	}

	var edits []edit
	floor := obj.StartByte()
	for i := 0; i < lastKept; i++ {
		if !remove[i] {
			continue
		}
		e := entryDeletion(source, obj, entries[i].Node, floor)
		edits = append(edits, e)
		floor = e.end
	}

	if lastKept < len(entries)-1 {
		edits = append(edits, tailDeletion(source, obj, entries[lastKept].Node, entries[len(entries)-1].Node))
	}

	return edits
}

// entryDeletion covers a removed entry that a survivor follows. The range
// never starts before floor.
func entryDeletion(source []byte, obj, node *ts.Node, floor uint) edit {
	start, end := node.StartByte(), node.EndByte()
	if comma := commaAfter(obj, node); comma != nil {
		end = lineCommentEnd(source, obj, comma)
	}
	end = skipBlanks(source, end)

	next, atEOL := lineEnd(source, end)
	if !atEOL {
		return edit{start: start, end: end}
	}
	if ls, ok := lineStart(source, start); ok && ls >= floor {
		return edit{start: ls, end: next}
	}
	for start > floor && isBlank(source[start-1]) {
		start--
	}
	return edit{start: start, end: end}
}

// tailDeletion covers the removed entries after the last survivor kept.
func tailDeletion(source []byte, obj, kept, last *ts.Node) edit {
	start := kept.EndByte()
	if comma := commaAfter(obj, kept); comma != nil {
		if end := lineCommentEnd(source, obj, comma); end != comma.EndByte() {
			start = end
		}
	}

	tok := last
	if comma := commaAfter(obj, last); comma != nil {
		tok = comma
	}
	return edit{start: start, end: lineCommentEnd(source, obj, tok)}
}

// braces returns the opening and closing brace tokens of an object literal.
func braces(obj *ts.Node) (*ts.Node, *ts.Node) {
	count := obj.ChildCount()
	if count < 2 {
		return nil, nil
	}
	open, closing := obj.Child(0), obj.Child(count-1)
	if open.Kind() != "{" || closing.Kind() != "}" {
		return nil, nil
	}
	return open, closing
}

// commaAfter returns the comma token separating node from what follows it.
func commaAfter(obj *ts.Node, node *ts.Node) *ts.Node {
	for i := uint(0); i < obj.ChildCount(); i++ {
		child := obj.Child(i)
		if child.Kind() == "," && child.StartByte() >= node.EndByte() {
			return child
		}
	}
	return nil
}

// lineCommentEnd returns the end of the comments that follow tok on its row
// when they are the last thing on the line, otherwise the end of tok.
func lineCommentEnd(source []byte, obj, tok *ts.Node) uint {
	end := tok.EndByte()
	row := tok.EndPosition().Row

	var last *ts.Node
	for i := uint(0); i < obj.ChildCount(); i++ {
		child := obj.Child(i)
		if child.StartByte() < end {
			continue
		}
		if child.Kind() != "comment" || child.StartPosition().Row != row {
			break
		}
		last = child
		end = child.EndByte()
	}

	if last == nil {
		return tok.EndByte()
	}
	if _, ok := lineEnd(source, skipBlanks(source, end)); !ok {
		return tok.EndByte()
	}
	return end
}

func isBlank(b byte) bool {
	return b == ' ' || b == '\t'
}

func skipBlanks(source []byte, pos uint) uint {
	for pos < uint(len(source)) && isBlank(source[pos]) {
		pos++
	}
	return pos
}

// lineEnd reports whether pos sits on a line break and returns the offset
// just past it.
func lineEnd(source []byte, pos uint) (uint, bool) {
	switch {
	case pos < uint(len(source)) && source[pos] == '\n':
		return pos + 1, true
	case pos+1 < uint(len(source)) && source[pos] == '\r' && source[pos+1] == '\n':
		return pos + 2, true
	}
	return pos, false
}

// lineStart reports whether only blanks precede pos on its line and returns
// the offset of the line start.
func lineStart(source []byte, pos uint) (uint, bool) {
	for pos > 0 && isBlank(source[pos-1]) {
		pos--
	}
	if pos == 0 || source[pos-1] == '\n' {
		return pos, true
	}
	return pos, false
}
