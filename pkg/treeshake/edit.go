package treeshake

import (
	"bytes"
	"cmp"
	"slices"
)

// edit replaces source[start:end] with text.
type edit struct {
	start uint
	end   uint
	text  string
}

// applyEdits returns a copy of source with the edits applied. Edits must not
// overlap; they may arrive in any order.
func applyEdits(source []byte, edits []edit) []byte {
	if len(edits) == 0 {
		return bytes.Clone(source)
	}

	sorted := slices.Clone(edits)
	slices.SortFunc(sorted, func(a, b edit) int {
		return cmp.Compare(a.start, b.start)
	})

	var out bytes.Buffer
	out.Grow(len(source))

	cursor := uint(0)
	for _, e := range sorted {
		if e.start < cursor {
			// Overlap; the outer edit already covers this range.
			continue
		}
		out.Write(source[cursor:e.start])
		out.WriteString(e.text)
		cursor = e.end
	}
	out.Write(source[cursor:])

	return out.Bytes()
}
