package app

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/websocket"

	"homebase/location-server/internal/model"
)

const (
	maxWSFrameBytes = 16 << 10
	wsWriteTimeout  = 5 * time.Second
)

// wsPeer adapts a WebSocket connection to registry.Channel.
type wsPeer struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed atomic.Bool
}

func newWSPeer(conn *websocket.Conn) *wsPeer {
	return &wsPeer{conn: conn}
}

func (p *wsPeer) Send(msg []byte) error {
	if p.closed.Load() {
		return net.ErrClosed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return websocket.Message.Send(p.conn, string(msg))
}

func (p *wsPeer) Closed() bool {
	return p.closed.Load()
}

func (a *App) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(a.serveWSConn).ServeHTTP(w, r)
}

func (a *App) serveWSConn(conn *websocket.Conn) {
	conn.MaxPayloadBytes = maxWSFrameBytes
	peer := newWSPeer(conn)
	var bound string

	defer func() {
		peer.closed.Store(true)
		a.registry.Unregister(peer)
		_ = conn.Close()
	}()

	for {
		var raw string
		if err := websocket.Message.Receive(conn, &raw); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				a.logger.Debug("websocket receive failed", "error", err)
			}
			return
		}

		var msg model.AuthMessage
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			a.logger.Debug("ignoring malformed websocket frame", "error", err)
			continue
		}

		switch msg.Kind {
		case model.KindAuth:
			userID := strings.TrimSpace(msg.UserID)
			if userID == "" {
				a.logger.Debug("ignoring auth frame without user id")
				continue
			}
			// A connection speaks for one user at a time.
			if bound != "" && bound != userID {
				a.registry.Unregister(peer)
				a.logger.Info("websocket channel rebound", "from", bound, "to", userID)
			}
			a.registry.Register(userID, peer)
			bound = userID
			a.logger.Info("websocket channel registered", "user", userID)
		default:
			a.logger.Debug("ignoring websocket frame", "kind", msg.Kind)
		}
	}
}
