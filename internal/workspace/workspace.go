// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workspace manages the on-disk signage workspace: one directory per
// team holding a playlist.json and documents/, photos/ and videos/ folders.
// All user-supplied names and relative paths are resolved through guards
// that keep them inside the workspace root.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/signage-workspace/pkg/types"
)

const (
	PlaylistFile = "playlist.json"
	DocumentsDir = "documents"
	PhotosDir    = "photos"
	VideosDir    = "videos"

	// defaultTeamName replaces a name that sanitizes to nothing.
	defaultTeamName = "team"
)

// teamSubdirs are created with every team.
var teamSubdirs = []string{DocumentsDir, PhotosDir, VideosDir}

var (
	ErrPathTraversal = errors.New("path escapes the workspace")
	ErrInvalidName   = errors.New("invalid name")
	ErrTeamNotFound  = errors.New("team not found")
	ErrInvalidUpload = errors.New("invalid upload")

	// ErrNotDocumentFolder rejects conversion targets outside documents/.
	ErrNotDocumentFolder = errors.New("not a document folder")
)

// Workspace is a handle on a workspace root directory.
type Workspace struct {
	root     string
	stateDir string
	log      *slog.Logger
}

// New returns a Workspace rooted at cfg.Dir. The directory need not exist yet.
func New(cfg types.WorkspaceConfig, logger *slog.Logger) (*Workspace, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("%w: empty workspace directory", ErrInvalidName)
	}
	root, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace %s: %w", cfg.Dir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	stateDir := cfg.StateDir
	if stateDir == "" {
		stateDir = filepath.Join(filepath.Dir(root), types.DefaultStateDir)
	}
	return &Workspace{root: filepath.Clean(root), stateDir: stateDir, log: logger}, nil
}

// Root returns the absolute workspace directory.
func (w *Workspace) Root() string { return w.root }

// StateDir returns the directory for local state such as the selected team.
func (w *Workspace) StateDir() string { return w.stateDir }

// Teams lists team directory names in ascending order. A missing workspace
// yields no teams.
func (w *Workspace) Teams() ([]string, error) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	teams := []string{}
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			teams = append(teams, e.Name())
		}
	}
	sort.Strings(teams)
	return teams, nil
}

// SanitizeTeamName normalizes name to NFC and keeps only letters, digits,
// spaces, hyphens and underscores. A name with nothing left becomes "team".
func SanitizeTeamName(name string) string {
	var b strings.Builder
	for _, r := range norm.NFC.String(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		return s
	}
	return defaultTeamName
}

// CreateTeam creates a team directory with an empty playlist and the
// standard media folders, returning the sanitized team name. Creating an
// existing team resets nothing but its missing parts.
func (w *Workspace) CreateTeam(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: team name required", ErrInvalidName)
	}
	safe := SanitizeTeamName(name)
	dir, err := w.TeamDir(safe)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating team %s: %w", safe, err)
	}
	for _, sub := range teamSubdirs {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return "", fmt.Errorf("creating %s/%s: %w", safe, sub, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, PlaylistFile)); errors.Is(err, os.ErrNotExist) {
		if err := w.WritePlaylist(safe, types.Playlist{}); err != nil {
			return "", err
		}
	}
	w.log.Info("created team", "team", safe)
	return safe, nil
}

// DeleteTeam removes a team directory and everything in it.
func (w *Workspace) DeleteTeam(name string) error {
	dir, err := w.TeamDir(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrTeamNotFound, name)
		}
		return fmt.Errorf("checking team %s: %w", name, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("deleting team %s: %w", name, err)
	}
	w.log.Info("deleted team", "team", name)
	return nil
}

// TeamDir returns the absolute directory of team. The name must be a single
// path element; it does not have to exist.
func (w *Workspace) TeamDir(team string) (string, error) {
	team = strings.TrimSpace(team)
	if team == "" || team == "." || team == ".." || strings.ContainsAny(team, `/\`) || strings.Contains(team, "..") {
		return "", fmt.Errorf("%w: team %q", ErrInvalidName, team)
	}
	return safeJoin(w.root, team)
}

// ExistingTeamDir is TeamDir for a team that must already exist.
func (w *Workspace) ExistingTeamDir(team string) (string, error) {
	dir, err := w.TeamDir(team)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrTeamNotFound, team)
	}
	return dir, nil
}

// ResolveFolder resolves a folder path relative to a team directory.
// Absolute paths and ".." elements are rejected.
func (w *Workspace) ResolveFolder(team, rel string) (string, error) {
	dir, err := w.ExistingTeamDir(team)
	if err != nil {
		return "", err
	}
	return safeJoin(dir, rel)
}

// ResolveDocumentFolder is ResolveFolder restricted to folders inside the
// team's documents/ directory, the only place page images may be written.
func (w *Workspace) ResolveDocumentFolder(team, rel string) (string, error) {
	dir, err := w.ResolveFolder(team, rel)
	if err != nil {
		return "", err
	}
	teamDir, err := w.TeamDir(team)
	if err != nil {
		return "", err
	}
	docs := filepath.Join(teamDir, DocumentsDir) + string(filepath.Separator)
	if !strings.HasPrefix(dir, docs) {
		return "", fmt.Errorf("%w: %q is not under %s/", ErrNotDocumentFolder, rel, DocumentsDir)
	}
	return dir, nil
}

// ResolveFile resolves a file path relative to a team directory, with the
// same guards as ResolveFolder. Backslashes are treated as separators.
func (w *Workspace) ResolveFile(team, rel string) (string, error) {
	return w.ResolveFolder(team, strings.ReplaceAll(rel, `\`, "/"))
}

// safeJoin joins rel under base, rejecting absolute paths, volume names and
// any ".." element, and verifies the result stays under base.
func safeJoin(base, rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, `\`) || filepath.VolumeName(rel) != "" {
		return "", fmt.Errorf("%w: %q is absolute", ErrPathTraversal, rel)
	}
	for _, part := range strings.FieldsFunc(rel, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return "", fmt.Errorf("%w: %q", ErrPathTraversal, rel)
		}
	}
	base = filepath.Clean(base)
	joined := filepath.Join(base, filepath.FromSlash(rel))
	if joined != base && !strings.HasPrefix(joined, base+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, rel)
	}
	return joined, nil
}

// DocumentFolder summarizes one folder under a team's documents/.
type DocumentFolder struct {
	// Name is the folder path relative to the team directory.
	Name string `json:"name" yaml:"name"`

	// Document is the source document's file name, if any.
	Document string `json:"document,omitempty" yaml:"document,omitempty"`

	// Images is the number of rendered page images present.
	Images int `json:"images" yaml:"images"`
}

// DocumentFolders lists the document folders of team in name order.
// isDocument decides which files count as source documents.
func (w *Workspace) DocumentFolders(team string, isDocument func(string) bool) ([]DocumentFolder, error) {
	dir, err := w.ExistingTeamDir(team)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(dir, DocumentsDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []DocumentFolder{}, nil
		}
		return nil, fmt.Errorf("listing documents of %s: %w", team, err)
	}

	folders := []DocumentFolder{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		f := DocumentFolder{Name: DocumentsDir + "/" + e.Name()}
		files, err := os.ReadDir(filepath.Join(dir, DocumentsDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", f.Name, err)
		}
		for _, file := range files {
			switch {
			case file.IsDir():
			case isDocument(file.Name()) && f.Document == "":
				f.Document = file.Name()
			case isPageImage(file.Name()):
				f.Images++
			}
		}
		folders = append(folders, f)
	}
	return folders, nil
}

// isPageImage matches rendered page names like 001.png.
func isPageImage(name string) bool {
	stem, ok := strings.CutSuffix(name, ".png")
	if !ok || len(stem) < 3 {
		return false
	}
	for _, r := range stem {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
