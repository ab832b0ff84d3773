// Package web serves the game client assets, the health endpoint, and the
// WebSocket upgrade path over one HTTP listener.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/session"
)

// Server is the HTTP frontend. It implements the lifecycle Service
// interface.
type Server struct {
	cfg      config.HTTPConfig
	registry *session.Registry
	logger   *zap.Logger
	http     *http.Server
}

// NewServer creates the HTTP frontend.
//
// Precondition: hub, registry, and logger must be non-nil.
// Postcondition: Returns a Server ready to be started.
func NewServer(cfg config.HTTPConfig, hub http.Handler, registry *session.Registry, logger *zap.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))

	s.http = &http.Server{
		Addr:    cfg.Addr(),
		Handler: s.withCORS(mux),
	}
	return s
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start begins serving and blocks until the server is stopped.
func (s *Server) Start() error {
	s.logger.Info("http server listening",
		zap.String("addr", s.cfg.Addr()),
		zap.String("static_dir", s.cfg.StaticDir),
	)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Players   int    `json:"players"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:    "ok",
		Players:   s.registry.Count(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers",
				"Content-Type, Authorization, X-Requested-With, Accept, Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
