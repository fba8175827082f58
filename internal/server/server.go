// Package server lets remote agents drive blackjack environments over HTTP
// and WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/lox/blackjackgym/internal/auth"
	"github.com/lox/blackjackgym/internal/deck"
	"github.com/lox/blackjackgym/internal/env"
	"github.com/lox/blackjackgym/internal/randutil"
)

// Config controls a Server
type Config struct {
	// Env is the template for every environment the server creates. A
	// non-zero seed is split into an independent stream per environment.
	Env         env.Config
	IdleTimeout time.Duration
	Clock       quartz.Clock
	Logger      *log.Logger

	// Auth, when set, guards every /v1 route
	Auth auth.Validator
}

// Server serves the environment API
type Server struct {
	cfg      Config
	registry *Registry
	router   chi.Router
	upgrader websocket.Upgrader
	logger   *log.Logger
	created  atomic.Int64
}

// New builds a server and its routes
func New(cfg Config) *Server {
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	cfg.Env.Shuffler = nil

	s := &Server{
		cfg:    cfg,
		logger: cfg.Logger.WithPrefix("server"),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.registry = NewRegistry(s.newEnv, cfg.Clock, cfg.IdleTimeout, cfg.Logger)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		if s.cfg.Auth != nil {
			r.Use(auth.Middleware(s.cfg.Auth))
		}
		r.Get("/ws", s.handleWebSocket)
		r.Post("/envs", s.handleCreate)
		r.Route("/envs/{id}", func(r chi.Router) {
			r.Post("/reset", s.handleReset)
			r.Post("/step", s.handleStep)
			r.Get("/render", s.handleRender)
			r.Delete("/", s.handleDelete)
		})
	})
	return r
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler { return s.router }

// Registry returns the session registry
func (s *Server) Registry() *Registry { return s.registry }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	reaper := s.registry.StartReaper(ctx)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
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
	if err := reaper.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) newEnv() (*env.Environment, error) {
	cfg := s.cfg.Env
	n := s.created.Add(1)
	if cfg.Seed != 0 {
		cfg.Seed = randutil.Derive(cfg.Seed, int(n))
	}
	return env.New(cfg)
}

type createResponse struct {
	ID                 string `json:"id"`
	PlayerObservations int    `json:"player_observations"`
	DealerObservations int    `json:"dealer_observations"`
	Actions            int    `json:"actions"`
}

type resetResponse struct {
	Observation env.Observation `json:"observation"`
	Info        env.Info        `json:"info"`
}

type stepRequest struct {
	Action *env.Action `json:"action"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": s.registry.Len()})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	id, err := s.registry.Create()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if agent, ok := auth.FromContext(r.Context()); ok && agent != nil {
		s.logger.Info("session created", "id", id, "agent", agent.AgentID)
	}
	writeJSON(w, http.StatusCreated, createResponse{
		ID:                 id,
		PlayerObservations: env.PlayerObservations,
		DealerObservations: env.DealerObservations,
		Actions:            env.NumActions,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var resp resetResponse
	err := s.registry.With(chi.URLParam(r, "id"), func(e *env.Environment) error {
		var err error
		resp.Observation, resp.Info, err = e.Reset()
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Action == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "action is required"})
		return
	}

	var res env.StepResult
	err := s.registry.With(chi.URLParam(r, "id"), func(e *env.Environment) error {
		var err error
		res, err = e.Step(*req.Action)
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	err := s.registry.With(chi.URLParam(r, "id"), func(e *env.Environment) error {
		return e.RenderWithOptions(w, env.RenderOptions{NoColor: true})
	})
	if err != nil {
		s.writeError(w, err)
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.registry.Delete(chi.URLParam(r, "id")) {
		s.writeError(w, ErrSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, env.ErrInvalidAction):
		return http.StatusBadRequest
	case errors.Is(err, env.ErrInvalidState), errors.Is(err, deck.ErrEmptyShoe):
		return http.StatusConflict
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
