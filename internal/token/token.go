// Package token finds identifier tokens in source text by pattern. There is
// no parser here: the real grammar lives in the external checker, so every
// lookup degrades to "not found" rather than guessing.
package token

import (
	"regexp"
	"sort"
	"strings"

	"mplxls/internal/position"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

var (
	identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	wholeIdentifier   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	openCallPattern   = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*\(([^()]*)$`)
)

// Token is an identifier together with its location in the buffer.
type Token struct {
	Word  string
	Start int // byte offset, inclusive
	End   int // byte offset, exclusive
	Range protocol.Range
}

// Span is a byte range [Start, End) in a text.
type Span struct {
	Start int
	End   int
}

// Call describes the innermost unclosed call at a cursor.
type Call struct {
	Name string
	// ArgIndex is the number of commas between the open paren and the cursor.
	ArgIndex int
}

// IsIdentifier reports whether s is a valid identifier.
func IsIdentifier(s string) bool {
	return wholeIdentifier.MatchString(s)
}

// WordAt returns the first identifier whose span contains the position,
// treating both ends as inside so a cursor touching a token resolves to it.
func WordAt(ix *position.Index, pos protocol.Position) (Token, bool) {
	offset := ix.ByteOffset(pos)
	text := ix.Text()
	for _, m := range identifierPattern.FindAllStringIndex(text, -1) {
		if m[0] > offset {
			break
		}
		if offset <= m[1] {
			return Token{
				Word:  text[m[0]:m[1]],
				Start: m[0],
				End:   m[1],
				Range: ix.Range(m[0], m[1]),
			}, true
		}
	}
	return Token{}, false
}

// TokenBefore returns the name of the call whose argument list is open at offset.
func TokenBefore(text string, offset int) (string, bool) {
	call, ok := CallBefore(text, offset)
	return call.Name, ok
}

// CallBefore matches the longest suffix of text[:offset] of the form
// `name ( args` where args holds no parentheses.
func CallBefore(text string, offset int) (Call, bool) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}
	m := openCallPattern.FindStringSubmatch(text[:offset])
	if m == nil {
		return Call{}, false
	}
	return Call{Name: m[1], ArgIndex: strings.Count(m[2], ",")}, true
}

func wordPattern(word string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
}

// Occurrences returns every whole-word match of word in text, in order.
// A word that is not an identifier has no occurrences.
func Occurrences(text, word string) []Span {
	if !IsIdentifier(word) {
		return nil
	}
	matches := wordPattern(word).FindAllStringIndex(text, -1)
	spans := make([]Span, 0, len(matches))
	for _, m := range matches {
		spans = append(spans, Span{Start: m[0], End: m[1]})
	}
	return spans
}

func declarationPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`\bfn\s+(` + regexp.QuoteMeta(name) + `)\b`)
}

// FindDeclaration locates the name of the first `fn <name>` declaration.
func FindDeclaration(text, name string) (Span, bool) {
	if !IsIdentifier(name) {
		return Span{}, false
	}
	m := declarationPattern(name).FindStringSubmatchIndex(text)
	if m == nil {
		return Span{}, false
	}
	return Span{Start: m[2], End: m[3]}, true
}

// Declarations returns the name spans of every `fn <name>` declaration.
func Declarations(text, name string) []Span {
	if !IsIdentifier(name) {
		return nil
	}
	var spans []Span
	for _, m := range declarationPattern(name).FindAllStringSubmatchIndex(text, -1) {
		spans = append(spans, Span{Start: m[2], End: m[3]})
	}
	return spans
}

// Words returns the distinct identifiers in text, sorted.
func Words(text string) []string {
	seen := make(map[string]struct{})
	for _, w := range identifierPattern.FindAllString(text, -1) {
		seen[w] = struct{}{}
	}
	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}
