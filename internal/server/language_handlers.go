package server

import (
	"context"

	"mplxls/internal/token"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func (s *Server) textDocumentHover(
	_ *glsp.Context,
	params *protocol.HoverParams,
) (*protocol.Hover, error) {
	sess, err := s.session()
	if err != nil {
		return nil, err
	}
	buf, ok := s.store.Get(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	var word string
	if tok, ok := token.WordAt(buf.Index(), params.Position); ok {
		word = tok.Word
	}
	return sess.bridge.Hover(context.Background(), buf.Text, word), nil
}

func (s *Server) textDocumentSignatureHelp(
	_ *glsp.Context,
	params *protocol.SignatureHelpParams,
) (*protocol.SignatureHelp, error) {
	sess, err := s.session()
	if err != nil {
		return nil, err
	}
	buf, ok := s.store.Get(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	offset := buf.Index().ByteOffset(params.Position)
	return sess.bridge.SignatureHelp(context.Background(), buf.Text, offset), nil
}
