// Package httpapi serves invitations, background photos, QR codes and the
// wish endpoints over HTTP.
//
// Wish endpoints fail independently: a store outage turns them into 503s
// while invitation, photo and QR endpoints keep working.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/meimodev/activid-web-sub001/internal/clock"
	"github.com/meimodev/activid-web-sub001/internal/invitation"
	"github.com/meimodev/activid-web-sub001/internal/photos"
	"github.com/meimodev/activid-web-sub001/internal/wish"
)

// Config holds the HTTP-level settings.
type Config struct {
	// BaseURL is the public URL personalized links are built on.
	BaseURL string

	// CORSOrigins lists allowed browser origins. Empty allows any origin.
	CORSOrigins []string

	// PollInterval is the live list re-read period. Zero disables polling.
	PollInterval time.Duration
}

// Server is the HTTP API.
type Server struct {
	resolver *invitation.Resolver
	wishes   *wish.Service
	feed     *wish.Feed
	photos   photos.Library
	cfg      Config
	logger   *slog.Logger
	clock    clock.Clock
	upgrader websocket.Upgrader
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithClock sets the clock used for relative wish times.
func WithClock(c clock.Clock) Option {
	return func(s *Server) {
		s.clock = c
	}
}

// New creates a Server.
func New(resolver *invitation.Resolver, svc *wish.Service, feed *wish.Feed, lib photos.Library, cfg Config, opts ...Option) *Server {
	s := &Server{
		resolver: resolver,
		wishes:   svc,
		feed:     feed,
		photos:   lib,
		cfg:      cfg,
		logger:   slog.Default(),
		clock:    clock.NewMonotonic(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler returns the routed handler wrapped with CORS and request logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/invitations/{slug}").Subrouter()
	api.HandleFunc("", s.handleInvitation).Methods(http.MethodGet)
	api.HandleFunc("/photos/background", s.handleBackground).Methods(http.MethodGet)
	api.HandleFunc("/qr", s.handleQR).Methods(http.MethodGet)
	api.HandleFunc("/wishes", s.handleListWishes).Methods(http.MethodGet)
	api.HandleFunc("/wishes", s.handleSubmitWish).Methods(http.MethodPost)
	api.HandleFunc("/wishes/mine", s.handleMyWish).Methods(http.MethodGet)
	api.HandleFunc("/wishes/live", s.handleLive).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no such endpoint")
	})

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// resolve looks up the invitation named by the route, writing a 404 when it
// does not exist.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) (*invitation.Invitation, bool) {
	slug := mux.Vars(r)["slug"]
	inv, err := s.resolver.Resolve(slug)
	if err != nil {
		writeError(w, http.StatusNotFound, "INVITATION_NOT_FOUND", "invitation not found")
		return nil, false
	}
	return inv, true
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.CORSOrigins) == 0 {
		return true
	}
	for _, o := range s.cfg.CORSOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
