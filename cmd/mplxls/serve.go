package main

import (
	"errors"
	"net"
	"net/http"
	"time"

	"mplxls/internal/config"
	"mplxls/internal/metrics"
	"mplxls/internal/server"

	"github.com/gorilla/websocket"
	"github.com/tliron/commonlog"
	glspserver "github.com/tliron/glsp/server"
)

// session is the language server behind one client connection.
type session struct {
	rpc  *glspserver.Server
	lang *server.Server
}

func (s session) serveStream(conn net.Conn, log commonlog.Logger) {
	defer s.lang.Close()
	s.rpc.ServeStream(conn, log)
}

func (s session) serveWebSocket(conn *websocket.Conn, log commonlog.Logger) {
	defer s.lang.Close()
	s.rpc.ServeWebSocket(conn, log)
}

type sessionFactory func() session

func newSessionFactory(cfg config.Config, m *metrics.Metrics, debug bool) sessionFactory {
	return func() session {
		rpc, lang := server.NewServer(server.Options{
			Config:  cfg,
			Version: Version,
			Metrics: m,
			Debug:   debug,
		})
		return session{rpc: rpc, lang: lang}
	}
}

func run(cfg config.Config, f flags) error {
	m := metrics.New()
	newSession := newSessionFactory(cfg, m, f.verbose > 1)

	if f.metricsAddr != "" {
		go serveMetrics(f.metricsAddr, m)
	}

	switch {
	case f.websocket != "":
		return serveWebSocket(f.websocket, newSession)
	case f.tcp != "":
		listener, err := net.Listen("tcp", f.tcp)
		if err != nil {
			return err
		}
		log.Noticef("listening on tcp %s", listener.Addr())
		return serveTCP(listener, newSession)
	default:
		s := newSession()
		defer s.lang.Close()
		return s.rpc.RunStdio()
	}
}

func serveMetrics(addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	hs := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Noticef("serving metrics on %s/metrics", addr)
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("metrics server: %s", err)
	}
}

// serveTCP gives every accepted connection its own session, so documents
// and diagnostics never leak between clients. It returns when the
// listener fails or is closed.
func serveTCP(listener net.Listener, newSession sessionFactory) error {
	defer listener.Close()

	var connections uint64
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		connections++
		connLog := commonlog.NewKeyValueLogger(log, "id", connections, "remote", conn.RemoteAddr().String())
		go newSession().serveStream(conn, connLog)
	}
}

func webSocketHandler(newSession sessionFactory) http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		// editors connect from arbitrary local origins
		CheckOrigin: func(*http.Request) bool { return true },
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warningf("websocket upgrade from %s: %s", r.RemoteAddr, err)
			return
		}
		defer conn.Close()
		connLog := commonlog.NewKeyValueLogger(log, "remote", r.RemoteAddr)
		newSession().serveWebSocket(conn, connLog)
	})
}

func serveWebSocket(addr string, newSession sessionFactory) error {
	hs := &http.Server{Addr: addr, Handler: webSocketHandler(newSession), ReadHeaderTimeout: 5 * time.Second}
	log.Noticef("listening for websocket clients on %s", addr)
	return hs.ListenAndServe()
}
