package server

import (
	"context"
	"fmt"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func (s *Server) workspaceExecuteCommand(
	_ *glsp.Context,
	params *protocol.ExecuteCommandParams,
) (any, error) {
	sess, err := s.session()
	if err != nil {
		return nil, err
	}

	switch params.Command {
	case CommandRecheck:
		if len(params.Arguments) == 0 {
			sess.publisher.RecheckAll()
			return nil, nil
		}
		uri, ok := params.Arguments[0].(string)
		if !ok {
			return nil, fmt.Errorf("%s: expected a document uri, got %T", CommandRecheck, params.Arguments[0])
		}
		if !s.store.IsOpen(uri) {
			return nil, fmt.Errorf("%s: %s is not open", CommandRecheck, uri)
		}
		// run now rather than after the debounce
		return nil, sess.publisher.Check(context.Background(), uri)

	case CommandReindex:
		if sess.index == nil {
			log.Info("reindex requested but the word index is disabled")
			return nil, nil
		}
		if err := sess.index.Clear(); err != nil {
			return nil, err
		}
		log.Info("word index cleared")
		return nil, nil
	}

	log.Warningf("unknown command %q", params.Command)
	return nil, nil
}
