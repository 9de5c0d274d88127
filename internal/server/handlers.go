// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pdiddy/signage-workspace/internal/canteen"
	"github.com/pdiddy/signage-workspace/internal/convert"
	"github.com/pdiddy/signage-workspace/internal/history"
	"github.com/pdiddy/signage-workspace/internal/workspace"
	"github.com/pdiddy/signage-workspace/pkg/types"
)

// multipartMemory is the part of an upload kept in memory before spilling
// to temp files.
const multipartMemory = 32 << 20

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.deps.Workspace.Teams()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	name, err := s.deps.Workspace.CreateTeam(req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "name": name})
}

func (s *Server) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Workspace.DeleteTeam(chi.URLParam(r, "name")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	team := chi.URLParam(r, "name")
	if _, err := s.deps.Workspace.TeamDir(team); err != nil {
		s.fail(w, r, err)
		return
	}
	pl, err := s.deps.Workspace.ReadPlaylist(team)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pl)
}

func (s *Server) handlePutPlaylist(w http.ResponseWriter, r *http.Request) {
	var pl types.Playlist
	if err := decodeJSON(w, r, &pl); err != nil {
		writeError(w, http.StatusBadRequest, "body required")
		return
	}
	if err := s.deps.Workspace.WritePlaylist(chi.URLParam(r, "name"), pl); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	folders, err := s.deps.Workspace.DocumentFolders(chi.URLParam(r, "name"), convert.IsDocument)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	team := chi.URLParam(r, "name")
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart form required")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()
	if hdr.Filename == "" {
		writeError(w, http.StatusBadRequest, "no file selected")
		return
	}
	kind, err := workspace.ParseUploadKind(r.FormValue("kind"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	stored, err := s.deps.Workspace.SaveUpload(team, workspace.Upload{
		Kind:        kind,
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Body:        file,
	}, convert.IsDocument)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := map[string]any{"ok": true, "path": stored.Path, "size": stored.Size}
	if stored.Folder != "" {
		resp["folder"] = stored.Folder
		if s.deps.Converter != nil && r.FormValue("convert") != "false" {
			resp["outcome"] = s.convertFolder(r, team, stored.Folder, r.FormValue("range"))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type convertRequest struct {
	Folder string `json:"folder"`
	Range  string `json:"range"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if s.deps.Converter == nil {
		s.fail(w, r, errServiceDisabled)
		return
	}
	team := chi.URLParam(r, "name")
	var req convertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "body must be {\"folder\", \"range\"}")
		return
	}
	if _, err := s.deps.Workspace.ExistingTeamDir(team); err != nil {
		s.fail(w, r, err)
		return
	}
	out := s.convertFolder(r, team, req.Folder, req.Range)
	writeJSON(w, outcomeStatus(out), out)
}

// convertFolder resolves rel under team and converts it. Invalid paths are
// reported as an invalid_input outcome.
func (s *Server) convertFolder(r *http.Request, team, rel, rangeExpr string) types.ConversionOutcome {
	if strings.TrimSpace(rel) == "" {
		return types.ConversionOutcome{Kind: types.OutcomeInvalidInput, Team: team, Range: rangeExpr, Message: "folder required"}
	}
	dir, err := s.deps.Workspace.ResolveDocumentFolder(team, rel)
	if err != nil {
		return types.ConversionOutcome{
			Kind:    types.OutcomeInvalidInput,
			Team:    team,
			Folder:  rel,
			Range:   rangeExpr,
			Message: types.Truncate(err.Error()),
		}
	}
	out := s.deps.Converter.ConvertFolder(convert.WithTeam(r.Context(), team), dir, rangeExpr)
	out.Folder = rel
	return out
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.fail(w, r, errServiceDisabled)
		return
	}
	q := history.Query{
		Team: chi.URLParam(r, "name"),
		Kind: types.OutcomeKind(r.URL.Query().Get("kind")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		q.Limit = n
	}
	if v := r.URL.Query().Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be a duration such as 24h")
			return
		}
		q.Since = time.Now().Add(-d)
	}
	runs, err := s.deps.History.List(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleCanteen(w http.ResponseWriter, r *http.Request) {
	if s.deps.Canteen == nil {
		s.fail(w, r, errServiceDisabled)
		return
	}
	var req struct {
		Items []canteen.Item `json:"items"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "body must be {\"items\": [{\"url\", \"range\"}]}")
		return
	}
	res, err := s.deps.Canteen.Refresh(r.Context(), chi.URLParam(r, "name"), req.Items)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": res.Count, "dir": res.Dir})
}
