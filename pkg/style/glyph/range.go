package glyph

import (
	"fmt"
	"sort"
)

// RangeSize is the number of code points per glyph request.
const RangeSize = 256

// Range is a block of RangeSize code points, Start through End inclusive.
type Range struct {
	Start rune
	End   rune
}

// RangeFor returns the range containing r.
func RangeFor(r rune) Range {
	start := r / RangeSize * RangeSize
	return Range{Start: start, End: start + RangeSize - 1}
}

// RangesFor returns the sorted ranges needed to render text.
func RangesFor(text string) []Range {
	seen := make(map[Range]bool)
	var out []Range
	for _, r := range text {
		rg := RangeFor(r)
		if !seen[rg] {
			seen[rg] = true
			out = append(out, rg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// String formats the range as it appears in glyph URLs, e.g. "0-255".
func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}
