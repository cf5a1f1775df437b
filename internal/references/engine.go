// Package references finds identifier occurrences across open documents
// and workspace files, and builds rename edits from them.
package references

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mplxls/internal/config"
	"mplxls/internal/document"
	"mplxls/internal/index"
	"mplxls/internal/position"
	"mplxls/internal/token"
	"mplxls/internal/workspace"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidName = errors.New("invalid identifier")

var log = commonlog.GetLogger("mplxls.references")

type Options struct {
	Roots       []string
	Scan        workspace.Options
	RenameScope string
	Parallelism int
}

// Engine answers reference queries. It keeps no state between requests:
// every query reads the live buffers and rescans the workspace. The
// optional word index only lets the scan skip files that cannot match.
type Engine struct {
	store *document.Store
	index *index.Index
	opts  Options
}

// NewEngine creates an Engine. ix may be nil.
func NewEngine(store *document.Store, ix *index.Index, opts Options) *Engine {
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	if opts.RenameScope == "" {
		opts.RenameScope = config.RenameScopeOpen
	}
	return &Engine{store: store, index: ix, opts: opts}
}

// occurrence is one whole-word match inside a file.
type occurrence struct {
	uri  string
	rng  protocol.Range
	decl bool
}

// tokenAt resolves the identifier under the cursor of an open document.
func (e *Engine) tokenAt(uri string, pos protocol.Position) (token.Token, bool) {
	buf, ok := e.store.Get(uri)
	if !ok {
		return token.Token{}, false
	}
	return token.WordAt(buf.Index(), pos)
}

// PrepareRename returns the range of the identifier that would be renamed.
func (e *Engine) PrepareRename(uri string, pos protocol.Position) (protocol.Range, bool) {
	tok, ok := e.tokenAt(uri, pos)
	if !ok {
		return protocol.Range{}, false
	}
	return tok.Range, true
}

// Rename replaces every whole-word occurrence of the identifier under the
// cursor with newName. Open documents are always covered; workspace files
// that are not open are covered only with the workspace rename scope. The
// edit is nil when there is no identifier at the cursor, and nothing is
// returned for an invalid newName.
func (e *Engine) Rename(ctx context.Context, uri string, pos protocol.Position, newName string) (*protocol.WorkspaceEdit, error) {
	tok, ok := e.tokenAt(uri, pos)
	if !ok {
		return nil, nil
	}
	if !token.IsIdentifier(newName) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, newName)
	}

	occurrences := e.inOpenDocuments(tok.Word)
	if e.opts.RenameScope == config.RenameScopeWorkspace {
		onDisk, err := e.onDisk(ctx, tok.Word)
		if err != nil {
			return nil, err
		}
		occurrences = append(occurrences, onDisk...)
	}

	changes := make(map[protocol.DocumentUri][]protocol.TextEdit)
	for _, occ := range occurrences {
		changes[occ.uri] = append(changes[occ.uri], protocol.TextEdit{Range: occ.rng, NewText: newName})
	}
	return &protocol.WorkspaceEdit{Changes: changes}, nil
}

// References lists every occurrence of the identifier under the cursor:
// open documents first, then workspace files that are not open. Without
// includeDeclaration the names in `fn <name>` declarations are left out.
func (e *Engine) References(ctx context.Context, uri string, pos protocol.Position, includeDeclaration bool) ([]protocol.Location, error) {
	locations := []protocol.Location{}
	tok, ok := e.tokenAt(uri, pos)
	if !ok {
		return locations, nil
	}

	occurrences := e.inOpenDocuments(tok.Word)
	onDisk, err := e.onDisk(ctx, tok.Word)
	if err != nil {
		return locations, err
	}
	occurrences = append(occurrences, onDisk...)

	for _, occ := range occurrences {
		if occ.decl && !includeDeclaration {
			continue
		}
		locations = append(locations, protocol.Location{URI: occ.uri, Range: occ.rng})
	}
	return locations, nil
}

// Definition finds the first `fn <name>` declaration of the identifier
// under the cursor in the same document.
func (e *Engine) Definition(uri string, pos protocol.Position) (protocol.Location, bool) {
	buf, ok := e.store.Get(uri)
	if !ok {
		return protocol.Location{}, false
	}
	ix := buf.Index()
	tok, ok := token.WordAt(ix, pos)
	if !ok {
		return protocol.Location{}, false
	}
	span, ok := token.FindDeclaration(buf.Text, tok.Word)
	if !ok {
		return protocol.Location{}, false
	}
	return protocol.Location{URI: uri, Range: ix.Range(span.Start, span.End)}, true
}

func (e *Engine) inOpenDocuments(word string) []occurrence {
	var out []occurrence
	for _, buf := range e.store.All() {
		out = append(out, find(buf.URI, buf.Text, word)...)
	}
	return out
}

// find returns the occurrences of word in text, marking declarations.
func find(uri, text, word string) []occurrence {
	spans := token.Occurrences(text, word)
	if len(spans) == 0 {
		return nil
	}
	decls := make(map[int]bool)
	for _, d := range token.Declarations(text, word) {
		decls[d.Start] = true
	}

	ix := position.New(text)
	out := make([]occurrence, 0, len(spans))
	for _, s := range spans {
		out = append(out, occurrence{uri: uri, rng: ix.Range(s.Start, s.End), decl: decls[s.Start]})
	}
	return out
}

// onDisk searches the workspace files that are not open in the editor.
// Files are read independently of the buffers, so a file opened while the
// scan runs may be reported from both views.
func (e *Engine) onDisk(ctx context.Context, word string) ([]occurrence, error) {
	open := make(map[string]bool)
	for _, buf := range e.store.All() {
		open[filepath.Clean(workspace.URIToPath(buf.URI))] = true
	}

	var files []string
	for _, path := range workspace.Scan(e.opts.Roots, e.opts.Scan) {
		if !open[filepath.Clean(path)] {
			files = append(files, path)
		}
	}

	results := make([][]occurrence, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Parallelism)
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = e.searchFile(path, word)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []occurrence
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func (e *Engine) searchFile(path, word string) []occurrence {
	info, err := os.Stat(path)
	if err != nil {
		log.Debugf("skipping %s: %s", path, err)
		return nil
	}
	record := index.RecordFor(path, info)

	if e.index != nil {
		skip, err := e.index.CanSkip(record, word)
		if err != nil {
			log.Warningf("index lookup for %s: %s", path, err)
		} else if skip {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Debugf("skipping %s: %s", path, err)
		return nil
	}
	text := string(data)

	if e.index != nil {
		if err := e.index.Put(record, token.Words(text)); err != nil {
			log.Warningf("indexing %s: %s", path, err)
		}
	}

	return find(workspace.PathToURI(path), text, word)
}
