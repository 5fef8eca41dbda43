package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/MikeSquared-Agency/petpal/internal/conversation"
	"github.com/MikeSquared-Agency/petpal/internal/store"
)

type Assistant interface {
	Reply(ctx context.Context, messages []conversation.Message) (string, error)
}

type Splitter interface {
	Split(ctx context.Context, task string) ([]string, error)
}

type TodoStore interface {
	AddTodos(ctx context.Context, ownerID uuid.UUID, sourceTask string, titles []string) ([]store.Todo, error)
	ListTodos(ctx context.Context, ownerID uuid.UUID) ([]store.Todo, error)
	SetTodoDone(ctx context.Context, id uuid.UUID, done bool) error
}

type Options struct {
	Port      int
	APIToken  string
	RateLimit float64
	RateBurst int
	Model     string
}

type Server struct {
	router    *chi.Mux
	port      int
	model     string
	assistant Assistant
	splitter  Splitter
	todos     TodoStore
	logger    *slog.Logger
}

// NewServer wires the routes. todos may be nil; the to-do routes then answer 503.
func NewServer(opts Options, a Assistant, sp Splitter, todos TodoStore, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		port:      opts.Port,
		model:     opts.Model,
		assistant: a,
		splitter:  sp,
		todos:     todos,
		logger:    logger,
	}

	router.Get("/health", s.health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(opts.APIToken))
		r.Get("/petpal/status", s.status)

		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(newLimiter(opts.RateLimit, opts.RateBurst)))
			r.Post("/chat", s.chat)
			r.Post("/tasks/split", s.splitTask)
		})

		r.Get("/todos", s.listTodos)
		r.Patch("/todos/{id}", s.updateTodo)
	})

	return s
}

// newLimiter treats a non-positive limit as unlimited.
func newLimiter(limit float64, burst int) *rate.Limiter {
	if limit <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(limit), burst)
}

func (s *Server) Handler() http.Handler { return s.router }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agent": "petpal",
		"model": s.model,
		"todos": s.todos != nil,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
