package server

import (
	"errors"

	"mplxls/internal/document"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func (s *Server) textDocumentDidOpen(
	context *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	sess, err := s.session()
	if err != nil {
		return err
	}
	doc := params.TextDocument
	s.store.Open(doc.URI, doc.Text, doc.Version)
	sess.publisher.Schedule(doc.URI)
	return nil
}

func (s *Server) textDocumentDidChange(
	context *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	sess, err := s.session()
	if err != nil {
		return err
	}
	uri := params.TextDocument.URI
	if _, err := s.store.Apply(uri, params.TextDocument.Version, params.ContentChanges); err != nil {
		if errors.Is(err, document.ErrStaleVersion) {
			log.Debugf("ignoring change: %s", err)
			return nil
		}
		return err
	}
	sess.publisher.Schedule(uri)
	return nil
}

func (s *Server) textDocumentDidSave(
	context *glsp.Context,
	params *protocol.DidSaveTextDocumentParams,
) error {
	sess, err := s.session()
	if err != nil {
		return err
	}
	uri := params.TextDocument.URI
	if _, err := s.store.Save(uri, params.Text); err != nil {
		return err
	}
	sess.publisher.Schedule(uri)
	return nil
}

func (s *Server) textDocumentDidClose(
	context *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	if !s.store.Close(uri) {
		log.Debugf("closing %s, which was not open", uri)
	}
	if sess, err := s.session(); err == nil {
		sess.publisher.Retract(uri)
	}
	return nil
}
