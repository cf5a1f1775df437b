package server

import (
	"context"
	"errors"

	"mplxls/internal/references"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func (s *Server) textDocumentDefinition(
	_ *glsp.Context,
	params *protocol.DefinitionParams,
) (any, error) {
	sess, err := s.session()
	if err != nil {
		return nil, err
	}
	location, ok := sess.engine.Definition(params.TextDocument.URI, params.Position)
	if !ok {
		return nil, nil
	}
	return location, nil
}

func (s *Server) textDocumentReferences(
	_ *glsp.Context,
	params *protocol.ReferenceParams,
) ([]protocol.Location, error) {
	sess, err := s.session()
	if err != nil {
		return nil, err
	}
	locations, err := sess.engine.References(
		context.Background(),
		params.TextDocument.URI,
		params.Position,
		params.Context.IncludeDeclaration,
	)
	if err != nil {
		log.Warningf("references in %s: %s", params.TextDocument.URI, err)
	}
	return locations, nil
}

func (s *Server) textDocumentPrepareRename(
	_ *glsp.Context,
	params *protocol.PrepareRenameParams,
) (any, error) {
	sess, err := s.session()
	if err != nil {
		return nil, err
	}
	rng, ok := sess.engine.PrepareRename(params.TextDocument.URI, params.Position)
	if !ok {
		return nil, nil
	}
	return rng, nil
}

func (s *Server) textDocumentRename(
	_ *glsp.Context,
	params *protocol.RenameParams,
) (*protocol.WorkspaceEdit, error) {
	sess, err := s.session()
	if err != nil {
		return nil, err
	}
	edit, err := sess.engine.Rename(context.Background(), params.TextDocument.URI, params.Position, params.NewName)
	if errors.Is(err, references.ErrInvalidName) {
		log.Debugf("rename refused: %s", err)
		return nil, nil
	}
	return edit, err
}
