// Package api exposes the daemon over HTTP: JSON read and control endpoints
// plus a websocket feed that pushes the summary on a fixed cadence.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"activity_mon/internal/activity"
	"activity_mon/internal/daemon"
	"activity_mon/internal/monitor"
)

// TokenHeader is accepted in addition to a bearer token or ?token=.
const TokenHeader = "X-Activity-Mon-Token"

// Controller is the surface the API drives. *daemon.Daemon implements it.
type Controller interface {
	Summary(ctx context.Context) (activity.Summary, error)
	Status(ctx context.Context) (activity.SessionStatus, error)
	Sessions(ctx context.Context, n int) ([]activity.Session, error)

	EnterBreak(ctx context.Context) error
	ExitBreak(ctx context.Context) error
	MarkLoggedOut(ctx context.Context) error
	Cleanup(ctx context.Context) (int, error)

	StartTracking(ctx context.Context) error
	StopTracking(ctx context.Context) error
	PauseTracking(ctx context.Context) error
	ResumeTracking(ctx context.Context) error
	ResetTracking(ctx context.Context) error
	SetThreshold(ctx context.Context, ms int64) error
	TrackingStatus() monitor.Status
}

var _ Controller = (*daemon.Daemon)(nil)

// Options configures a Server.
type Options struct {
	Token        string
	PushInterval time.Duration
	Logger       *log.Logger
}

type Server struct {
	ctrl         Controller
	token        string
	pushInterval time.Duration
	logger       *log.Logger

	// base outlives single requests and ends websocket feeds on Close.
	base  context.Context
	stop  context.CancelFunc
	feeds sync.WaitGroup
}

func NewServer(ctrl Controller, opts Options) *Server {
	if opts.PushInterval <= 0 {
		opts.PushInterval = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	base, stop := context.WithCancel(context.Background())
	return &Server{
		ctrl:         ctrl,
		token:        opts.Token,
		pushInterval: opts.PushInterval,
		logger:       opts.Logger,
		base:         base,
		stop:         stop,
	}
}

// Close ends every websocket feed and waits for them to finish. HTTP
// shutdown does not reach hijacked connections.
func (s *Server) Close() {
	s.stop()
	s.feeds.Wait()
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestLogger(&chimiddleware.DefaultLogFormatter{Logger: s.logger, NoColor: true}))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)

		r.Get("/ws", s.handleWS)

		r.Route("/api/activity", func(r chi.Router) {
			r.Get("/summary", s.handleSummary)
			r.Get("/status", s.handleStatus)
			r.Get("/sessions", s.handleSessions)
			r.Post("/break", s.sessionOp((Controller).EnterBreak))
			r.Post("/resume", s.sessionOp((Controller).ExitBreak))
			r.Post("/logout", s.sessionOp((Controller).MarkLoggedOut))
			r.Post("/cleanup", s.handleCleanup)
		})

		r.Route("/api/tracking", func(r chi.Router) {
			r.Get("/status", s.handleTrackingStatus)
			r.Post("/start", s.trackingOp((Controller).StartTracking))
			r.Post("/stop", s.trackingOp((Controller).StopTracking))
			r.Post("/pause", s.trackingOp((Controller).PauseTracking))
			r.Post("/resume", s.trackingOp((Controller).ResumeTracking))
			r.Post("/reset", s.trackingOp((Controller).ResetTracking))
			r.Put("/threshold", s.handleThreshold)
		})
	})

	return r
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authorize(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorize(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	if r.URL.Query().Get("token") == s.token {
		return true
	}
	if r.Header.Get(TokenHeader) == s.token {
		return true
	}
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.token
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.ctrl.Summary(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.ctrl.Status(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	sessions, err := s.ctrl.Sessions(r.Context(), limit)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// sessionOp runs a record-changing command and answers with the resulting
// session status.
func (s *Server) sessionOp(op func(Controller, context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := op(s.ctrl, r.Context()); err != nil {
			s.writeErr(w, err)
			return
		}
		s.handleStatus(w, r)
	}
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := s.ctrl.Cleanup(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) trackingOp(op func(Controller, context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := op(s.ctrl, r.Context()); err != nil {
			s.writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.ctrl.TrackingStatus())
	}
}

func (s *Server) handleTrackingStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.TrackingStatus())
}

type thresholdRequest struct {
	Threshold *int64 `json:"threshold"`
}

func (s *Server) handleThreshold(w http.ResponseWriter, r *http.Request) {
	var req thresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Threshold == nil {
		writeError(w, http.StatusBadRequest, `body must be {"threshold": <milliseconds>}`)
		return
	}
	if err := s.ctrl.SetThreshold(r.Context(), *req.Threshold); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.TrackingStatus())
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeErr maps domain errors onto status codes.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, activity.ErrNoRecord):
		writeError(w, http.StatusNotFound, "no activity data")
	case errors.Is(err, daemon.ErrNotRunning):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Printf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ListenAndServe serves the API on addr until ctx is done, then shuts down
// gracefully and closes websocket feeds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	defer s.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(s.stop)

	errc := make(chan error, 1)
	go func() {
		s.logger.Printf("listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
