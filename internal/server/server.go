// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the workspace over HTTP for the management
// dashboard and the display clients: teams, playlists, uploads, document
// conversion, canteen menus, git sync and the selected display team.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pdiddy/signage-workspace/internal/canteen"
	"github.com/pdiddy/signage-workspace/internal/gitsync"
	"github.com/pdiddy/signage-workspace/internal/history"
	"github.com/pdiddy/signage-workspace/internal/workspace"
	"github.com/pdiddy/signage-workspace/pkg/types"
)

// Converter converts one document folder.
type Converter interface {
	ConvertFolder(ctx context.Context, folderPath, rangeExpr string) types.ConversionOutcome
}

// Git is the sync surface used by the git endpoints.
type Git interface {
	Connect(ctx context.Context) error
	Push(ctx context.Context, message string) (gitsync.PushResult, error)
	Pull(ctx context.Context) (gitsync.PullResult, error)
}

// History lists recorded conversions.
type History interface {
	List(ctx context.Context, q history.Query) ([]history.Run, error)
}

// Canteen refreshes canteen menu images.
type Canteen interface {
	Refresh(ctx context.Context, team string, items []canteen.Item) (canteen.Result, error)
}

// Config configures the HTTP server.
type Config struct {
	Addr            string
	MaxUploadSize   int64
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

func (c *Config) defaults() {
	if c.Addr == "" {
		c.Addr = types.DefaultAddr
	}
	if c.MaxUploadSize <= 0 {
		c.MaxUploadSize = types.DefaultMaxUploadSize
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = types.DefaultShutdownTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Deps are the services behind the API. Workspace is required; a nil
// optional service makes its endpoints answer 503.
type Deps struct {
	Workspace *workspace.Workspace
	Converter Converter
	Git       Git
	History   History
	Canteen   Canteen
}

// Server is the HTTP API.
type Server struct {
	cfg    Config
	deps   Deps
	log    *slog.Logger
	router chi.Router
}

// New builds the router.
func New(cfg Config, deps Deps) *Server {
	cfg.defaults()
	s := &Server{cfg: cfg, deps: deps, log: cfg.Logger}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/teams", func(r chi.Router) {
		r.Get("/", s.handleListTeams)
		r.Post("/", s.handleCreateTeam)
		r.Route("/{name}", func(r chi.Router) {
			r.Delete("/", s.handleDeleteTeam)
			r.Get("/playlist", s.handleGetPlaylist)
			r.Put("/playlist", s.handlePutPlaylist)
			r.Get("/documents", s.handleDocuments)
			r.Post("/upload", s.handleUpload)
			r.Post("/convert", s.handleConvert)
			r.Get("/history", s.handleHistory)
			r.Post("/canteen", s.handleCanteen)
		})
	})

	r.Route("/api/git", func(r chi.Router) {
		r.Get("/connect", s.handleGitConnect)
		r.Post("/connect", s.handleGitConnect)
		r.Post("/push", s.handleGitPush)
		r.Post("/pull", s.handleGitPull)
	})

	r.Route("/api/display", func(r chi.Router) {
		r.Get("/team", s.handleGetDisplayTeam)
		r.Put("/team", s.handlePutDisplayTeam)
		r.Get("/playlist", s.handleDisplayPlaylist)
	})

	r.Get("/workspace/{name}/*", s.handleStatic)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.cfg.Addr, "workspace", s.deps.Workspace.Root())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
