package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/meimodev/activid-web-sub001/internal/wish"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type liveMessage struct {
	Wishes []wishView `json:"wishes"`
}

// handleLive streams the wish list as JSON messages over a websocket, one
// per change.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.resolve(w, r)
	if !ok || !wishesEnabled(w, inv) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := s.feed.Watch(ctx, inv.ID, wish.WatchOptions{
		Dedupe:       dedupeParam(r, inv),
		PollInterval: s.cfg.PollInterval,
	})
	if err != nil {
		s.logger.Warn("live wishes unavailable", "invitation", inv.ID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "wishes are temporarily unavailable")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Debug("websocket upgrade failed", "invitation", inv.ID, "error", err)
		return
	}
	defer conn.Close()

	// Reader: handles pongs and notices the client going away.
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case wishes, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(liveMessage{Wishes: s.views(wishes)}); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
