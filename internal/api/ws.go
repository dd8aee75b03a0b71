package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"activity_mon/internal/activity"
)

const writeWait = 5 * time.Second

// Message is pushed to websocket clients. Error is set instead of the
// payload when the record cannot be read.
type Message struct {
	Type    string                  `json:"type"`
	Summary *activity.Summary       `json:"summary,omitempty"`
	Status  *activity.SessionStatus `json:"status,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("ws upgrade error: %v", err)
		return
	}
	s.logger.Printf("websocket client connected: %s", r.RemoteAddr)

	ctx, cancel := context.WithCancel(s.base)
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.feeds.Add(1)
	go func() {
		defer s.feeds.Done()
		defer func() {
			conn.Close()
			s.logger.Printf("websocket client disconnected: %s", r.RemoteAddr)
		}()
		s.pushLoop(ctx, conn)
	}()
}

// pushLoop sends a snapshot immediately and then on every tick until the
// client goes away.
func (s *Server) pushLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()

	for {
		if err := s.push(ctx, conn); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) push(ctx context.Context, conn *websocket.Conn) error {
	msg := s.snapshot(ctx)
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

func (s *Server) snapshot(ctx context.Context) Message {
	sum, err := s.ctrl.Summary(ctx)
	if err == nil {
		var st activity.SessionStatus
		st, err = s.ctrl.Status(ctx)
		if err == nil {
			return Message{Type: "summary", Summary: &sum, Status: &st}
		}
	}
	if errors.Is(err, activity.ErrNoRecord) {
		return Message{Type: "error", Error: "no activity data"}
	}
	return Message{Type: "error", Error: err.Error()}
}

// checkOrigin accepts same-host and loopback origins, and clients that send
// no Origin at all.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	if parsed.Host == r.Host {
		return true
	}
	switch parsed.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return strings.HasSuffix(parsed.Hostname(), ".localhost")
}
