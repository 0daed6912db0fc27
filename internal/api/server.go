// Package api implements the HTTP surface: chat (sync and streaming),
// thread history, the tool-call audit, and operational endpoints.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/unspiral/unspiral/internal/agent"
	"github.com/unspiral/unspiral/internal/buildinfo"
	"github.com/unspiral/unspiral/internal/thread"
)

// userIDHeader carries the authenticated user's ID, set by the gateway
// in front of this service.
const userIDHeader = "X-User-ID"

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, map[string]string{"error": msg}, logger)
}

// SessionStats tracks token usage for the current process.
type SessionStats struct {
	mu                sync.Mutex
	totalInputTokens  int64
	totalOutputTokens int64
	totalTurns        int64
	totalToolCalls    int64
}

func (s *SessionStats) Record(result *agent.TurnResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalInputTokens += int64(result.InputTokens)
	s.totalOutputTokens += int64(result.OutputTokens)
	s.totalTurns++
	s.totalToolCalls += int64(len(result.ToolCalls))
}

// SessionStatsSnapshot is a copy-safe snapshot of session stats.
type SessionStatsSnapshot struct {
	TotalInputTokens  int64 `json:"total_input_tokens"`
	TotalOutputTokens int64 `json:"total_output_tokens"`
	TotalTurns        int64 `json:"total_turns"`
	TotalToolCalls    int64 `json:"total_tool_calls"`
}

func (s *SessionStats) Snapshot() SessionStatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionStatsSnapshot{
		TotalInputTokens:  s.totalInputTokens,
		TotalOutputTokens: s.totalOutputTokens,
		TotalTurns:        s.totalTurns,
		TotalToolCalls:    s.totalToolCalls,
	}
}

// Server is the HTTP API server.
type Server struct {
	listen  string
	loop    *agent.Loop
	threads *thread.Store
	logger  *slog.Logger
	origins []string
	server  *http.Server
	stats   *SessionStats
}

// NewServer creates an API server. origins configures CORS; empty allows
// none.
func NewServer(listen string, loop *agent.Loop, threads *thread.Store, origins []string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		listen:  listen,
		loop:    loop,
		threads: threads,
		logger:  logger,
		origins: origins,
		stats:   &SessionStats{},
	}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", userIDHeader},
	})
	r.Use(c.Handler)

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/chat/stream", s.handleChatStream)
		r.Get("/threads", s.handleListThreads)
		r.Get("/threads/{threadID}", s.handleGetThread)
		r.Get("/tools/calls", s.handleListToolCalls)
		r.Get("/version", s.handleVersion)
		r.Get("/stats", s.handleStats)
	})
	return r
}

// Start runs the server until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.listen)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down http server")
		return s.server.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"status": "ok",
		"uptime": buildinfo.Uptime().Round(time.Second).String(),
	}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, s.stats.Snapshot(), s.logger)
}
