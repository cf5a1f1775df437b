package server

import (
	"sync"

	"mplxls/internal/checker"
	"mplxls/internal/config"
	"mplxls/internal/diagnostics"
	"mplxls/internal/document"
	"mplxls/internal/index"
	"mplxls/internal/metrics"
	"mplxls/internal/references"
	"mplxls/internal/scheduler"
	"mplxls/internal/workspace"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
)

const Name = "mplxls"

var log = commonlog.GetLogger("mplxls.server")

type Options struct {
	// Config is the base configuration; initialization options overlay it.
	Config  config.Config
	Version string
	Metrics *metrics.Metrics
	// Runner replaces the checker process, mostly for tests.
	Runner checker.Runner
	Debug  bool
}

type Server struct {
	handler *protocol.Handler
	opts    Options

	store *document.Store

	// set up by initialize
	mu        sync.Mutex
	config    config.Config
	roots     []string
	bridge    *checker.Bridge
	scheduler *scheduler.Scheduler
	publisher *diagnostics.Publisher
	engine    *references.Engine
	index     *index.Index
	watcher   *workspace.Watcher
}

// New creates a Server with no session state; initialize sets it up.
func New(opts Options) *Server {
	s := &Server{
		opts:   opts,
		store:  document.NewStore(),
		config: opts.Config,
	}
	s.handler = &protocol.Handler{
		Initialize:                s.initialize,
		Initialized:               s.initialized,
		Shutdown:                  s.shutdown,
		SetTrace:                  s.setTrace,
		TextDocumentDidOpen:       s.textDocumentDidOpen,
		TextDocumentDidChange:     s.textDocumentDidChange,
		TextDocumentDidSave:       s.textDocumentDidSave,
		TextDocumentDidClose:      s.textDocumentDidClose,
		TextDocumentHover:         s.textDocumentHover,
		TextDocumentSignatureHelp: s.textDocumentSignatureHelp,
		TextDocumentDefinition:    s.textDocumentDefinition,
		TextDocumentReferences:    s.textDocumentReferences,
		TextDocumentPrepareRename: s.textDocumentPrepareRename,
		TextDocumentRename:        s.textDocumentRename,
		WorkspaceExecuteCommand:   s.workspaceExecuteCommand,
	}
	return s
}

// Handler dispatches protocol messages, counting each one.
func (s *Server) Handler() glsp.Handler {
	return &countingHandler{Handler: s.handler, metrics: s.opts.Metrics}
}

// NewServer wraps a Server in a glsp transport server.
func NewServer(opts Options) (*server.Server, *Server) {
	s := New(opts)
	return server.NewServer(s.Handler(), Name, opts.Debug), s
}

type countingHandler struct {
	*protocol.Handler
	metrics *metrics.Metrics
}

func (h *countingHandler) Handle(context *glsp.Context) (any, bool, bool, error) {
	h.metrics.ObserveRequest(context.Method)
	return h.Handler.Handle(context)
}

// Close releases what initialize started, for clients that disconnect
// without a shutdown request.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}
