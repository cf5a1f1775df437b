package document

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"mplxls/internal/position"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var (
	ErrNotOpen      = errors.New("document not open")
	ErrStaleVersion = errors.New("stale document version")
)

var log = commonlog.GetLogger("mplxls.document")

// Buffer is the text and version of one open document.
type Buffer struct {
	URI     string
	Text    string
	Version int32
}

// Index builds the position index for the buffer text.
func (b Buffer) Index() *position.Index {
	return position.New(b.Text)
}

// Store holds the open documents. Every mutation replaces the whole Buffer
// value under the lock, so readers never observe a half-applied change.
type Store struct {
	mu   sync.RWMutex
	docs map[string]Buffer
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{docs: make(map[string]Buffer)}
}

// Open records a newly opened document, replacing any previous buffer for uri.
func (s *Store) Open(uri, text string, version int32) Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := Buffer{URI: uri, Text: text, Version: version}
	s.docs[uri] = buf
	log.Debugf("opened %s at version %d", uri, version)
	return buf
}

// Change replaces the full text of an open document.
func (s *Store) Change(uri, text string, version int32) (Buffer, error) {
	return s.Apply(uri, version, []any{protocol.TextDocumentContentChangeEventWhole{Text: text}})
}

// Apply applies content change events in order and stores the result at
// version. Ranged events are spliced into the current text, whole events
// replace it. A version not newer than the stored one is rejected.
func (s *Store) Apply(uri string, version int32, changes []any) (Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, ok := s.docs[uri]
	if !ok {
		return Buffer{}, fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}
	if version <= buf.Version {
		return buf, fmt.Errorf("%w: %s has %d, got %d", ErrStaleVersion, uri, buf.Version, version)
	}

	text := buf.Text
	for _, change := range changes {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				text = c.Text
			} else {
				text = position.Splice(text, *c.Range, c.Text)
			}
		case protocol.TextDocumentContentChangeEventWhole:
			text = c.Text
		default:
			return buf, fmt.Errorf("unsupported content change %T for %s", change, uri)
		}
	}

	buf = Buffer{URI: uri, Text: text, Version: version}
	s.docs[uri] = buf
	return buf, nil
}

// Save replaces the text with the saved content when the host includes it,
// keeping the version.
func (s *Store) Save(uri string, text *string) (Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, ok := s.docs[uri]
	if !ok {
		return Buffer{}, fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}
	if text != nil {
		buf.Text = *text
		s.docs[uri] = buf
	}
	return buf, nil
}

// Close forgets uri. It reports whether the document was open.
func (s *Store) Close(uri string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.docs[uri]
	delete(s.docs, uri)
	return ok
}

// Get returns the buffer for uri.
func (s *Store) Get(uri string) (Buffer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buf, ok := s.docs[uri]
	return buf, ok
}

// IsOpen reports whether uri is open.
func (s *Store) IsOpen(uri string) bool {
	_, ok := s.Get(uri)
	return ok
}

// All returns a snapshot of every open buffer, sorted by uri.
func (s *Store) All() []Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bufs := make([]Buffer, 0, len(s.docs))
	for _, buf := range s.docs {
		bufs = append(bufs, buf)
	}
	sort.Slice(bufs, func(i, j int) bool { return bufs[i].URI < bufs[j].URI })
	return bufs
}

// Len is the number of open documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
