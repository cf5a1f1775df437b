package server

import (
	"context"
	"time"

	"mplxls/internal/checker"
	"mplxls/internal/config"
	"mplxls/internal/diagnostics"
	"mplxls/internal/index"
	"mplxls/internal/references"
	"mplxls/internal/scheduler"
	"mplxls/internal/workspace"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const (
	CommandRecheck = "mplx.recheck"
	CommandReindex = "mplx.reindex"

	pruneInterval = 5 * time.Minute
)

func (s *Server) initialize(
	context *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	cfg, err := config.Load(s.opts.Config, params.InitializationOptions)
	if err != nil {
		return nil, err
	}
	roots := workspaceRoots(params)
	log.Infof("initializing with roots %v, checker %s", roots, cfg.CheckerPath())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduler != nil {
		return nil, ErrAlreadyInitialized
	}

	s.config = cfg
	s.roots = roots

	runner := s.opts.Runner
	if runner == nil {
		runner = &checker.ProcessRunner{
			Path:      cfg.CheckerPath(),
			Extension: cfg.Extension,
			Timeout:   cfg.CheckTimeout.Std(),
			Metrics:   s.opts.Metrics,
		}
	}
	s.bridge = checker.NewBridge(runner, cfg.Language)

	s.scheduler = scheduler.NewScheduler(64)
	s.scheduler.RunScheduler()

	s.publisher = diagnostics.NewPublisher(s.store, s.bridge, s.scheduler, cfg.Debounce.Std(), s.opts.Metrics)
	s.publisher.SetNotify(context.Notify)

	s.index = s.openIndex(cfg, roots)
	if s.index != nil {
		s.scheduler.SchedulePeriodicTask(pruneInterval, pruneTask(s.index))
	}

	scan := workspace.Options{
		MaxDepth:  cfg.MaxDepth,
		Extension: cfg.Extension,
		Exclude:   cfg.ExcludeDirs,
	}
	s.engine = references.NewEngine(s.store, s.index, references.Options{
		Roots:       roots,
		Scan:        scan,
		RenameScope: cfg.RenameScope,
		Parallelism: cfg.Parallelism,
	})

	if cfg.Watch && len(roots) > 0 {
		s.watcher = s.startWatcher(roots, scan)
	}

	syncKind := protocol.TextDocumentSyncKindIncremental

	capabilities := s.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: &protocol.True},
	}
	capabilities.SignatureHelpProvider = &protocol.SignatureHelpOptions{
		TriggerCharacters: []string{"(", ","},
	}
	capabilities.RenameProvider = &protocol.RenameOptions{PrepareProvider: &protocol.True}
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: []string{CommandRecheck, CommandReindex},
	}

	version := s.opts.Version
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    Name,
			Version: &version,
		},
	}, nil
}

func (s *Server) openIndex(cfg config.Config, roots []string) *index.Index {
	if !cfg.IndexEnabled || len(roots) == 0 {
		return nil
	}
	path := cfg.IndexPath
	if path == "" {
		var err error
		if path, err = index.DefaultPath(Name); err != nil {
			log.Warningf("word index disabled: %s", err)
			return nil
		}
	}
	ix, err := index.Open(path)
	if err != nil {
		log.Warningf("word index disabled: %s", err)
		return nil
	}
	return ix
}

func pruneTask(ix *index.Index) scheduler.Task {
	return scheduler.Task{
		Name: "prune index",
		Execute: func(ctx context.Context) error {
			removed, err := ix.Prune()
			if removed > 0 {
				log.Debugf("pruned %d vanished files from the index", removed)
			}
			return err
		},
	}
}

func (s *Server) startWatcher(roots []string, scan workspace.Options) *workspace.Watcher {
	ix := s.index
	w, err := workspace.NewWatcher(roots, scan, func(change workspace.Change) {
		log.Debugf("%s %s", change.Op, change.Path)
		if ix == nil {
			return
		}
		if err := ix.Forget(change.Path); err != nil {
			log.Warningf("evicting %s: %s", change.Path, err)
		}
	})
	if err != nil {
		log.Warningf("file watching disabled: %s", err)
		return nil
	}
	w.Start(context.Background())
	return w
}

func (s *Server) initialized(
	context *glsp.Context,
	params *protocol.InitializedParams,
) error {
	log.Info("client initialized")
	return nil
}

func (s *Server) shutdown(context *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	return nil
}

// stopLocked releases everything initialize started.
func (s *Server) stopLocked() {
	if s.watcher != nil {
		s.watcher.Stop()
		s.watcher = nil
	}
	if s.scheduler != nil {
		s.scheduler.StopScheduler()
		s.scheduler = nil
	}
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			log.Warningf("closing index: %s", err)
		}
		s.index = nil
	}
}

func (s *Server) setTrace(context *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}
