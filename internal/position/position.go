// Package position maps between offsets in a text buffer and the
// line/character positions used on the wire. Characters are counted in
// UTF-16 code units, lines are separated by '\n'.
//
// OffsetAt and PositionAt work in UTF-16 code units, the same unit as the
// wire, so they are exact inverses. The Byte variants work in UTF-8 byte
// offsets for slicing the Go string and for regexp match spans.
package position

import (
	"sort"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Index holds the line-start tables for one immutable text.
type Index struct {
	text       string
	lineStarts []int // bytes
	unitStarts []int // UTF-16 code units
	units      int
}

// New builds the line-start tables for text.
func New(text string) *Index {
	starts := make([]int, 1, 64)
	unitStarts := make([]int, 1, 64)
	units := 0
	for i, r := range text {
		units += utf16Len(r)
		if r == '\n' {
			starts = append(starts, i+1)
			unitStarts = append(unitStarts, units)
		}
	}
	return &Index{text: text, lineStarts: starts, unitStarts: unitStarts, units: units}
}

func (ix *Index) Text() string { return ix.text }

// Len is the length of the text in UTF-16 code units.
func (ix *Index) Len() int { return ix.units }

// LineCount is the number of lines, counting a trailing empty line after a final '\n'.
func (ix *Index) LineCount() int { return len(ix.lineStarts) }

// lineEnd returns the byte offset of the '\n' terminating line, or len(text) for the last line.
func (ix *Index) lineEnd(line int) int {
	if line+1 < len(ix.lineStarts) {
		return ix.lineStarts[line+1] - 1
	}
	return len(ix.text)
}

func (ix *Index) unitLineEnd(line int) int {
	if line+1 < len(ix.unitStarts) {
		return ix.unitStarts[line+1] - 1
	}
	return ix.units
}

// OffsetAt converts pos to an offset in UTF-16 code units. A line past the
// end clamps to Len; a character past the end of its line clamps to the
// line end.
func (ix *Index) OffsetAt(pos protocol.Position) int {
	line := int(pos.Line)
	if line >= len(ix.unitStarts) {
		return ix.units
	}
	return min(ix.unitStarts[line]+int(pos.Character), ix.unitLineEnd(line))
}

// PositionAt converts an offset in UTF-16 code units to a position.
// Offsets outside [0, Len] are clamped.
func (ix *Index) PositionAt(offset int) protocol.Position {
	offset = max(0, min(offset, ix.units))
	line := sort.Search(len(ix.unitStarts), func(i int) bool {
		return ix.unitStarts[i] > offset
	}) - 1
	return protocol.Position{
		Line:      protocol.UInteger(line),
		Character: protocol.UInteger(offset - ix.unitStarts[line]),
	}
}

// ByteOffset converts pos to a byte offset. It clamps like OffsetAt, and
// a character inside a surrogate pair resolves to the start of its rune.
func (ix *Index) ByteOffset(pos protocol.Position) int {
	line := int(pos.Line)
	if line >= len(ix.lineStarts) {
		return len(ix.text)
	}
	start, end := ix.lineStarts[line], ix.lineEnd(line)
	want := int(pos.Character)

	units := 0
	offset := start
	for offset < end {
		r, size := utf8.DecodeRuneInString(ix.text[offset:end])
		n := utf16Len(r)
		if units+n > want {
			break
		}
		units += n
		offset += size
	}
	return offset
}

// BytePosition converts a byte offset to a position. Offsets outside
// [0, len(text)] are clamped; an offset inside a multi-byte rune snaps
// back to the start of that rune.
func (ix *Index) BytePosition(offset int) protocol.Position {
	offset = max(0, min(offset, len(ix.text)))
	for offset > 0 && offset < len(ix.text) && !utf8.RuneStart(ix.text[offset]) {
		offset--
	}

	// first line whose start is beyond offset, minus one
	line := sort.Search(len(ix.lineStarts), func(i int) bool {
		return ix.lineStarts[i] > offset
	}) - 1

	return protocol.Position{
		Line:      protocol.UInteger(line),
		Character: protocol.UInteger(UTF16Len(ix.text[ix.lineStarts[line]:offset])),
	}
}

// Range converts the byte span [start, end) to a range.
func (ix *Index) Range(start, end int) protocol.Range {
	return protocol.Range{Start: ix.BytePosition(start), End: ix.BytePosition(end)}
}

// OffsetAt is a one-shot form of Index.OffsetAt.
func OffsetAt(text string, pos protocol.Position) int {
	return New(text).OffsetAt(pos)
}

// PositionAt is a one-shot form of Index.PositionAt.
func PositionAt(text string, offset int) protocol.Position {
	return New(text).PositionAt(offset)
}

// Splice replaces the text covered by r with newText.
func Splice(text string, r protocol.Range, newText string) string {
	ix := New(text)
	start, end := ix.ByteOffset(r.Start), ix.ByteOffset(r.End)
	if end < start {
		start, end = end, start
	}
	return text[:start] + newText + text[end:]
}

// UTF16Len counts the UTF-16 code units needed to encode s.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16Len(r)
	}
	return n
}

func utf16Len(r rune) int {
	if r > 0xFFFF {
		return 2
	}
	return 1
}
