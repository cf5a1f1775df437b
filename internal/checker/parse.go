package checker

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

var legacyLocation = regexp.MustCompile(`^\[line\s+(\d+):(\d+)\]`)

// Function is one entry of a symbol listing.
type Function struct {
	Name  string
	Arity int
}

type structuredEntry struct {
	Message json.RawMessage `json:"message"`
	Line    json.RawMessage `json:"line"`
	Col     json.RawMessage `json:"col"`
}

type symbolsReply struct {
	Functions []struct {
		Name  json.RawMessage `json:"name"`
		Arity json.RawMessage `json:"arity"`
	} `json:"functions"`
}

// ParseDiagnostics turns one checker run into diagnostics. Any JSON value
// on stdout other than null is a reply: an object contributes its
// "diagnostics" array and any other value contributes nothing. Otherwise,
// or when "diagnostics" is not an array, the trimmed stderr becomes a
// single diagnostic. Anything else yields an empty set.
func ParseDiagnostics(stdout, stderr []byte, source string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	if entries, ok := replyEntries(stdout); ok {
		for _, raw := range entries {
			diagnostics = append(diagnostics, parseEntry(raw, source))
		}
		return diagnostics
	}

	if message := strings.TrimSpace(string(stderr)); message != "" {
		diagnostics = append(diagnostics, newDiagnostic(message, legacyRange(message), source))
	}
	return diagnostics
}

// replyEntries extracts the diagnostics array from a JSON reply. It
// reports false when stdout is not a usable reply.
func replyEntries(stdout []byte) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(stdout)
	if !json.Valid(trimmed) || string(trimmed) == "null" {
		return nil, false
	}
	if !isObject(trimmed) {
		return nil, true
	}

	var reply map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &reply); err != nil {
		return nil, false
	}
	raw, ok := reply["diagnostics"]
	if !ok || string(raw) == "null" {
		return nil, true
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func parseEntry(raw json.RawMessage, source string) protocol.Diagnostic {
	var message string
	if err := json.Unmarshal(raw, &message); err == nil {
		return newDiagnostic(message, legacyRange(message), source)
	}

	var entry structuredEntry
	_ = json.Unmarshal(raw, &entry)

	message = "error"
	if len(entry.Message) > 0 && string(entry.Message) != "null" {
		if err := json.Unmarshal(entry.Message, &message); err != nil {
			message = string(entry.Message)
		}
	}
	return newDiagnostic(message, pointRange(oneBased(entry.Line), oneBased(entry.Col)), source)
}

func newDiagnostic(message string, r protocol.Range, source string) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	return protocol.Diagnostic{
		Range:    r,
		Severity: &severity,
		Source:   &source,
		Message:  message,
	}
}

// legacyRange reads a leading "[line L:C]" location, defaulting to the first character.
func legacyRange(message string) protocol.Range {
	m := legacyLocation.FindStringSubmatch(message)
	if m == nil {
		return pointRange(1, 1)
	}
	line, _ := strconv.Atoi(m[1])
	col, _ := strconv.Atoi(m[2])
	return pointRange(line, col)
}

// pointRange covers the single character at a 1-based line and column.
func pointRange(line, col int) protocol.Range {
	l := max(0, line-1)
	c := max(0, col-1)
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(l), Character: protocol.UInteger(c)},
		End:   protocol.Position{Line: protocol.UInteger(l), Character: protocol.UInteger(c + 1)},
	}
}

// oneBased reads a line or column number, treating missing, zero or
// non-numeric values as 1.
func oneBased(raw json.RawMessage) int {
	if n := number(raw); n != 0 {
		return n
	}
	return 1
}

// number reads a JSON number or numeric string, 0 when there is none.
func number(raw json.RawMessage) int {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	var f float64
	switch value := v.(type) {
	case float64:
		f = value
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0
		}
		f = parsed
	case bool:
		if value {
			f = 1
		}
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(f)
}

func isObject(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// ParseSymbols reads a `{"functions": [...]}` listing.
func ParseSymbols(stdout []byte) ([]Function, error) {
	if !isObject(stdout) {
		return nil, ErrNoOutput
	}
	var reply symbolsReply
	if err := json.Unmarshal(stdout, &reply); err != nil {
		return nil, err
	}

	functions := make([]Function, 0, len(reply.Functions))
	for _, f := range reply.Functions {
		var name string
		if err := json.Unmarshal(f.Name, &name); err != nil {
			name = strings.Trim(string(f.Name), `"`)
		}
		functions = append(functions, Function{Name: name, Arity: max(0, number(f.Arity))})
	}
	return functions, nil
}
