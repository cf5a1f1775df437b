package token_test

import (
	"testing"

	"mplxls/internal/position"
	"mplxls/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func rng(sl, sc, el, ec uint32) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: sl, Character: sc},
		End:   protocol.Position{Line: el, Character: ec},
	}
}

func TestWordAt(t *testing.T) {
	text := "fn add(a, b)\n  return a + b_2"
	ix := position.New(text)

	tests := []struct {
		name     string
		pos      protocol.Position
		wantWord string
		want     protocol.Range
		found    bool
	}{
		{"inside", protocol.Position{Line: 0, Character: 4}, "add", rng(0, 3, 0, 6), true},
		{"touching start", protocol.Position{Line: 0, Character: 3}, "add", rng(0, 3, 0, 6), true},
		{"touching end", protocol.Position{Line: 0, Character: 6}, "add", rng(0, 3, 0, 6), true},
		{"first match wins between tokens", protocol.Position{Line: 0, Character: 2}, "fn", rng(0, 0, 0, 2), true},
		{"digits inside", protocol.Position{Line: 1, Character: 14}, "b_2", rng(1, 13, 1, 16), true},
		{"whitespace", protocol.Position{Line: 1, Character: 0}, "", protocol.Range{}, false},
		{"punctuation", protocol.Position{Line: 0, Character: 9}, "", protocol.Range{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, ok := token.WordAt(ix, tt.pos)
			require.Equal(t, tt.found, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantWord, tok.Word)
			assert.Equal(t, tt.want, tok.Range)
		})
	}
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, token.IsIdentifier("total"))
	assert.True(t, token.IsIdentifier("_x9"))
	assert.False(t, token.IsIdentifier("1bad"))
	assert.False(t, token.IsIdentifier(""))
	assert.False(t, token.IsIdentifier("a-b"))
	assert.False(t, token.IsIdentifier("a b"))
}

func TestCallBefore(t *testing.T) {
	tests := []struct {
		name   string
		before string
		want   token.Call
		found  bool
	}{
		{"open paren", "let x = add(", token.Call{Name: "add"}, true},
		{"second argument", "add(1, ", token.Call{Name: "add", ArgIndex: 1}, true},
		{"space before paren", "max (a, b, ", token.Call{Name: "max", ArgIndex: 2}, true},
		{"innermost call", "outer(1, inner(2", token.Call{Name: "inner"}, true},
		{"closed call", "add(1, 2)", token.Call{}, false},
		{"no call", "let x = 1", token.Call{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, ok := token.CallBefore(tt.before+"rest)", len(tt.before))
			require.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, call)
		})
	}

	name, ok := token.TokenBefore("print(", 6)
	require.True(t, ok)
	assert.Equal(t, "print", name)
}

func TestOccurrencesWholeWord(t *testing.T) {
	text := "count = count + counter + recount; count"
	spans := token.Occurrences(text, "count")
	require.Len(t, spans, 3)
	for _, s := range spans {
		assert.Equal(t, "count", text[s.Start:s.End])
	}
	assert.Nil(t, token.Occurrences(text, "a.b"))
}

func TestFindDeclaration(t *testing.T) {
	text := "add(1)\nfn   add(a, b)\nfn adder()"
	span, ok := token.FindDeclaration(text, "add")
	require.True(t, ok)
	assert.Equal(t, "add", text[span.Start:span.End])
	assert.Equal(t, 12, span.Start)

	_, ok = token.FindDeclaration(text, "sub")
	assert.False(t, ok)

	assert.Len(t, token.Declarations(text, "adder"), 1)
}

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"a", "add", "b", "fn"}, token.Words("fn add(a, b) add a"))
}
