package server

import (
	"errors"

	"mplxls/internal/checker"
	"mplxls/internal/diagnostics"
	"mplxls/internal/index"
	"mplxls/internal/references"
	"mplxls/internal/workspace"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

var (
	ErrNotInitialized     = errors.New("server not initialized")
	ErrAlreadyInitialized = errors.New("server already initialized")
)

// session is the state a request needs, read once under the lock.
type session struct {
	bridge    *checker.Bridge
	publisher *diagnostics.Publisher
	engine    *references.Engine
	index     *index.Index
}

func (s *Server) session() (session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.publisher == nil || s.scheduler == nil {
		return session{}, ErrNotInitialized
	}
	return session{
		bridge:    s.bridge,
		publisher: s.publisher,
		engine:    s.engine,
		index:     s.index,
	}, nil
}

// workspaceRoots prefers workspace folders, then rootUri, then rootPath.
func workspaceRoots(params *protocol.InitializeParams) []string {
	var roots []string
	seen := make(map[string]bool)
	add := func(path string) {
		if path != "" && !seen[path] {
			seen[path] = true
			roots = append(roots, path)
		}
	}

	for _, folder := range params.WorkspaceFolders {
		add(workspace.URIToPath(folder.URI))
	}
	if len(roots) == 0 && params.RootURI != nil {
		add(workspace.URIToPath(*params.RootURI))
	}
	if len(roots) == 0 && params.RootPath != nil {
		add(*params.RootPath)
	}
	return roots
}
