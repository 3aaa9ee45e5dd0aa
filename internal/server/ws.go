// Package server exposes the WebSocket gateway: browser clients speak the
// same line protocol over text frames and share the session engine with TCP.
package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// GatewayHandler builds the HTTP handler for the gateway: a health check and
// the /ws upgrade endpoint. Each upgraded connection runs an ordinary session.
func (srv *Server) GatewayHandler() http.Handler {
	policy := newOriginPolicy(srv.cfg.AllowedOrigins, srv.logger)
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     policy.check,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			srv.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
			return
		}

		// The handler goroutine is the connection worker.
		srv.wg.Add(1)
		defer srv.wg.Done()
		srv.runSession(newWSTransport(conn))
	})
	return mux
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "Parley server is running!")
}

func (srv *Server) startGateway() {
	gw := &http.Server{
		Addr:         srv.cfg.GatewayAddr,
		Handler:      srv.GatewayHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	srv.mu.Lock()
	srv.gateway = gw
	srv.mu.Unlock()

	srv.logger.Info().Str("addr", gw.Addr).Msg("WebSocket gateway listening")
	go func() {
		if err := gw.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			srv.logger.Error().Err(err).Msg("Gateway server failed")
		}
	}()
}

// wsTransport frames the line protocol over WebSocket text messages, one
// line per frame.
type wsTransport struct {
	conn *websocket.Conn
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{conn: conn}
}

func (t *wsTransport) ReadLine() (string, error) {
	for {
		messageType, data, err := t.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if messageType != websocket.TextMessage {
			continue
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
}

func (t *wsTransport) WriteLine(line string) error {
	return t.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

func (t *wsTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
