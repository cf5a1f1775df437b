package checker_test

import (
	"testing"

	"mplxls/internal/checker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func at(line, char uint32) protocol.Position {
	return protocol.Position{Line: line, Character: char}
}

func TestParseDiagnostics(t *testing.T) {
	tests := []struct {
		name     string
		stdout   string
		stderr   string
		messages []string
		ranges   []protocol.Range
	}{
		{
			name:     "stderr fallback with location",
			stdout:   "not json",
			stderr:   "[line 3:5] unexpected token\n",
			messages: []string{"[line 3:5] unexpected token"},
			ranges:   []protocol.Range{{Start: at(2, 4), End: at(2, 5)}},
		},
		{
			name:     "structured entry",
			stdout:   `{"diagnostics":[{"message":"unknown symbol","line":10,"col":2}]}`,
			messages: []string{"unknown symbol"},
			ranges:   []protocol.Range{{Start: at(9, 1), End: at(9, 2)}},
		},
		{
			name:     "legacy string entries",
			stdout:   `{"diagnostics":["[line 1:1] bad start", "no location"]}`,
			messages: []string{"[line 1:1] bad start", "no location"},
			ranges: []protocol.Range{
				{Start: at(0, 0), End: at(0, 1)},
				{Start: at(0, 0), End: at(0, 1)},
			},
		},
		{
			name:     "structured defaults",
			stdout:   `{"diagnostics":[{"line":0,"col":"7"}, {"message":"neg","line":-4,"col":-1}]}`,
			messages: []string{"error", "neg"},
			ranges: []protocol.Range{
				{Start: at(0, 6), End: at(0, 7)},
				{Start: at(0, 0), End: at(0, 1)},
			},
		},
		{
			name:     "json wins over stderr",
			stdout:   `{"diagnostics":[]}`,
			stderr:   "warning: ignored",
			messages: nil,
		},
		{
			name:     "no diagnostics key",
			stdout:   `{"ok":true}`,
			messages: nil,
		},
		{
			name:     "json array is an empty reply",
			stdout:   "[]",
			stderr:   "[line 2:2] ignored",
			messages: nil,
		},
		{
			name:     "json number is an empty reply",
			stdout:   " 123\n",
			stderr:   "ignored",
			messages: nil,
		},
		{
			name:     "json null falls back to stderr",
			stdout:   "null",
			stderr:   "[line 2:3] from stderr",
			messages: []string{"[line 2:3] from stderr"},
			ranges:   []protocol.Range{{Start: at(1, 2), End: at(1, 3)}},
		},
		{
			name:     "diagnostics that are not a list fall back to stderr",
			stdout:   `{"diagnostics":5}`,
			stderr:   "broken",
			messages: []string{"broken"},
			ranges:   []protocol.Range{{Start: at(0, 0), End: at(0, 1)}},
		},
		{
			name:     "null diagnostics",
			stdout:   `{"diagnostics":null}`,
			stderr:   "ignored",
			messages: nil,
		},
		{
			name:     "nothing at all",
			messages: nil,
		},
		{
			name:     "stderr without location",
			stderr:   "  segmentation fault  ",
			messages: []string{"segmentation fault"},
			ranges:   []protocol.Range{{Start: at(0, 0), End: at(0, 1)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checker.ParseDiagnostics([]byte(tt.stdout), []byte(tt.stderr), "mplx")
			require.NotNil(t, got)
			require.Len(t, got, len(tt.messages))
			for i, d := range got {
				assert.Equal(t, tt.messages[i], d.Message)
				assert.Equal(t, tt.ranges[i], d.Range)
				require.NotNil(t, d.Severity)
				assert.Equal(t, protocol.DiagnosticSeverityError, *d.Severity)
				require.NotNil(t, d.Source)
				assert.Equal(t, "mplx", *d.Source)
			}
		})
	}
}

func TestParseSymbols(t *testing.T) {
	functions, err := checker.ParseSymbols([]byte(`{"functions":[{"name":"add","arity":2},{"name":"main","arity":"x"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []checker.Function{{Name: "add", Arity: 2}, {Name: "main", Arity: 0}}, functions)

	_, err = checker.ParseSymbols([]byte("garbage"))
	assert.ErrorIs(t, err, checker.ErrNoOutput)

	functions, err = checker.ParseSymbols([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, functions)
}

func TestRenderFunctions(t *testing.T) {
	functions := []checker.Function{{Name: "main"}, {Name: "add", Arity: 2}, {Name: "neg", Arity: 1}}

	assert.Equal(t, "**Functions**\n- `main()`\n- `add(…, …)`\n- `neg(…)`", checker.RenderFunctions(functions, ""))
	assert.Equal(t, "**Functions**\n- **`add(…, …)`**\n- `main()`\n- `neg(…)`", checker.RenderFunctions(functions, "add"))
	assert.Equal(t, "**Functions**\n", checker.RenderFunctions(nil, "add"))
}

func TestRenderFunctionsBoundsHugeArity(t *testing.T) {
	functions, err := checker.ParseSymbols([]byte(`{"functions":[{"name":"f","arity":2147483647},{"name":"g","arity":7}]}`))
	require.NoError(t, err)
	require.Len(t, functions, 2)
	assert.Equal(t, 2147483647, functions[0].Arity)

	assert.Equal(t,
		"**Functions**\n- `f(…, …, …, …, … +2147483642)`\n- `g(…, …, …, …, … +2)`",
		checker.RenderFunctions(functions, ""),
	)
}
