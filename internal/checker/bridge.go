package checker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"mplxls/internal/token"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"golang.org/x/sync/singleflight"
)

// ErrNoOutput means a symbol listing produced nothing parseable.
var ErrNoOutput = errors.New("checker produced no usable output")

// PlaceholderParams is the number of parameters offered when a function's
// arity is unknown, and the most ever offered.
const PlaceholderParams = 5

var log = commonlog.GetLogger("mplxls.checker")

// Bridge turns checker runs into diagnostics, hovers and signatures.
type Bridge struct {
	runner Runner
	source string
	group  singleflight.Group
}

// NewBridge creates a Bridge. source tags every diagnostic.
func NewBridge(runner Runner, source string) *Bridge {
	return &Bridge{runner: runner, source: source}
}

// Check runs the checker over text. The diagnostics are always usable, even
// alongside an error: a failed run yields an empty set.
func (b *Bridge) Check(ctx context.Context, text string) ([]protocol.Diagnostic, error) {
	out, err := b.runner.Run(ctx, ModeCheck, text)
	if err != nil {
		return []protocol.Diagnostic{}, err
	}
	return ParseDiagnostics(out.Stdout, out.Stderr, b.source), nil
}

// Symbols lists the functions declared in text. Concurrent calls for the
// same text share one checker run.
func (b *Bridge) Symbols(ctx context.Context, text string) ([]Function, error) {
	sum := sha256.Sum256([]byte(text))
	key := hex.EncodeToString(sum[:])

	v, err, shared := b.group.Do(key, func() (any, error) {
		out, err := b.runner.Run(ctx, ModeSymbols, text)
		if err != nil {
			return nil, err
		}
		return ParseSymbols(out.Stdout)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debugf("shared symbol listing %s", key[:12])
	}
	return v.([]Function), nil
}

// Hover renders the function listing as markdown. A listed function named
// word is moved to the top and emphasised. The hover is nil when no
// listing could be obtained.
func (b *Bridge) Hover(ctx context.Context, text, word string) *protocol.Hover {
	functions, err := b.Symbols(ctx, text)
	if err != nil {
		log.Debugf("no symbol listing for hover: %s", err)
		return nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: RenderFunctions(functions, word),
		},
	}
}

// RenderFunctions renders `**Functions**` followed by one bullet per function.
// At most PlaceholderParams ellipses are drawn; the rest are counted.
func RenderFunctions(functions []Function, highlight string) string {
	lines := make([]string, 0, len(functions))
	top := -1
	for i, f := range functions {
		shown := min(f.Arity, PlaceholderParams)
		args := make([]string, max(0, shown))
		for j := range args {
			args[j] = "…"
		}
		params := strings.Join(args, ", ")
		if f.Arity > shown {
			params += fmt.Sprintf(" +%d", f.Arity-shown)
		}
		sig := fmt.Sprintf("`%s(%s)`", f.Name, params)
		if top < 0 && highlight != "" && f.Name == highlight {
			top = i
			sig = "**" + sig + "**"
		}
		lines = append(lines, "- "+sig)
	}
	if top > 0 {
		first := lines[top]
		copy(lines[1:top+1], lines[:top])
		lines[0] = first
	}
	return "**Functions**\n" + strings.Join(lines, "\n")
}

// SignatureHelp describes the call open at offset. Parameters are generic
// placeholders: the listing's arity when known, PlaceholderParams otherwise.
func (b *Bridge) SignatureHelp(ctx context.Context, text string, offset int) *protocol.SignatureHelp {
	call, ok := token.CallBefore(text, offset)
	if !ok {
		return nil
	}

	arity := PlaceholderParams
	if functions, err := b.Symbols(ctx, text); err == nil {
		for _, f := range functions {
			if f.Name == call.Name {
				arity = min(f.Arity, PlaceholderParams)
				break
			}
		}
	} else {
		log.Debugf("no symbol listing for signature of %s: %s", call.Name, err)
	}

	return Signature(call, arity)
}

// Signature builds the placeholder signature for call.
func Signature(call token.Call, arity int) *protocol.SignatureHelp {
	params := make([]protocol.ParameterInformation, 0, arity)
	for i := 1; i <= arity; i++ {
		params = append(params, protocol.ParameterInformation{Label: fmt.Sprintf("arg%d: i32", i)})
	}

	active := protocol.UInteger(call.ArgIndex)
	if arity > 0 && call.ArgIndex >= arity {
		active = protocol.UInteger(arity - 1)
	}
	var activeSignature protocol.UInteger

	return &protocol.SignatureHelp{
		Signatures: []protocol.SignatureInformation{{
			Label:         call.Name + "(...)",
			Documentation: "Call to " + call.Name,
			Parameters:    params,
		}},
		ActiveSignature: &activeSignature,
		ActiveParameter: &active,
	}
}
