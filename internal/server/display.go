// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"errors"
	"net/http"
	"net/url"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/pdiddy/signage-workspace/internal/gitsync"
	"github.com/pdiddy/signage-workspace/pkg/types"
)

// Git endpoints always answer 200 with {"ok": bool, "error": "..."} so the
// dashboard can show the message inline.
func gitReply(w http.ResponseWriter, err error, extra map[string]any) {
	resp := map[string]any{"ok": err == nil}
	for k, v := range extra {
		resp[k] = v
	}
	if err != nil {
		msg := err.Error()
		switch {
		case errors.Is(err, gitsync.ErrRemoteAhead):
			msg = "the remote has newer changes; pull before pushing"
		case errors.Is(err, gitsync.ErrGitMissing):
			msg = "git is not installed"
		case errors.Is(err, gitsync.ErrTimeout):
			msg = "git timed out: " + msg
		}
		resp["error"] = types.Truncate(msg)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGitConnect(w http.ResponseWriter, r *http.Request) {
	if s.deps.Git == nil {
		gitReply(w, errServiceDisabled, nil)
		return
	}
	gitReply(w, s.deps.Git.Connect(r.Context()), nil)
}

func (s *Server) handleGitPush(w http.ResponseWriter, r *http.Request) {
	if s.deps.Git == nil {
		gitReply(w, errServiceDisabled, nil)
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	// The body is optional.
	_ = decodeJSON(w, r, &req)
	res, err := s.deps.Git.Push(r.Context(), req.Message)
	gitReply(w, err, map[string]any{"committed": res.Committed, "message": res.Message})
}

func (s *Server) handleGitPull(w http.ResponseWriter, r *http.Request) {
	if s.deps.Git == nil {
		gitReply(w, errServiceDisabled, nil)
		return
	}
	res, err := s.deps.Git.Pull(r.Context())
	gitReply(w, err, map[string]any{"changed": res.Changed})
}

func (s *Server) handleGetDisplayTeam(w http.ResponseWriter, _ *http.Request) {
	var team *string
	if t := s.deps.Workspace.SelectedTeam(); t != "" {
		team = &t
	}
	writeJSON(w, http.StatusOK, map[string]any{"team": team})
}

func (s *Server) handlePutDisplayTeam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Team *string `json:"team"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "body must be {\"team\": name or null}")
		return
	}
	team := ""
	if req.Team != nil {
		team = *req.Team
	}
	if err := s.deps.Workspace.SetSelectedTeam(team); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleDisplayPlaylist(w http.ResponseWriter, r *http.Request) {
	team := s.deps.Workspace.SelectedTeam()
	_, pl, err := s.deps.Workspace.DisplayPlaylist(staticBase(r, team))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team": team, "slides": pl.Slides})
}

// staticBase is the absolute URL under which team's files are served.
func staticBase(r *http.Request, team string) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: "/workspace/" + team + "/"}
	return u.String()
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	path, err := s.deps.Workspace.ResolveFile(chi.URLParam(r, "name"), chi.URLParam(r, "*"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	http.ServeFile(w, r, path)
}
