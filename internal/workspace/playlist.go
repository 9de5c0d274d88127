// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/pdiddy/signage-workspace/pkg/types"
)

// textPolicy strips all markup from free-text slide fields.
var textPolicy = bluemonday.StrictPolicy()

// ReadPlaylist returns the playlist of team. A missing playlist.json, or one
// whose slides are not a list, reads as an empty playlist.
func (w *Workspace) ReadPlaylist(team string) (types.Playlist, error) {
	dir, err := w.TeamDir(team)
	if err != nil {
		return types.Playlist{}, err
	}
	data, err := os.ReadFile(filepath.Join(dir, PlaylistFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.Playlist{Slides: []types.Slide{}}, nil
		}
		return types.Playlist{}, fmt.Errorf("reading playlist of %s: %w", team, err)
	}

	var raw struct {
		Slides json.RawMessage `json:"slides"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return types.Playlist{}, fmt.Errorf("parsing playlist of %s: %w", team, err)
	}
	pl := types.Playlist{Slides: []types.Slide{}}
	if len(raw.Slides) == 0 || raw.Slides[0] != '[' {
		w.log.Warn("playlist slides is not a list", "team", team)
		return pl, nil
	}
	if err := json.Unmarshal(raw.Slides, &pl.Slides); err != nil {
		return types.Playlist{}, fmt.Errorf("parsing slides of %s: %w", team, err)
	}
	return pl, nil
}

// WritePlaylist normalizes pl and writes it as the playlist of team. Slides
// without an ID get "slide-N" (1-based position); titles and subtitles are
// stripped of markup.
func (w *Workspace) WritePlaylist(team string, pl types.Playlist) error {
	dir, err := w.TeamDir(team)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating team %s: %w", team, err)
	}

	pl = NormalizePlaylist(pl)
	data, err := json.MarshalIndent(pl, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding playlist of %s: %w", team, err)
	}
	data = append(data, '\n')
	if err := writeFileAtomic(filepath.Join(dir, PlaylistFile), data); err != nil {
		return fmt.Errorf("writing playlist of %s: %w", team, err)
	}
	w.log.Info("saved playlist", "team", team, "slides", len(pl.Slides))
	return nil
}

// NormalizePlaylist returns a copy of pl with default IDs and sanitized text.
func NormalizePlaylist(pl types.Playlist) types.Playlist {
	out := types.Playlist{Slides: make([]types.Slide, 0, len(pl.Slides))}
	for i, s := range pl.Slides {
		if strings.TrimSpace(s.ID) == "" {
			s.ID = fmt.Sprintf("slide-%d", i+1)
		}
		s.Title = sanitizeText(s.Title)
		s.Subtitle = sanitizeText(s.Subtitle)
		s.Src = strings.TrimSpace(s.Src)
		out.Slides = append(out.Slides, s)
	}
	return out
}

// sanitizeText removes markup. bluemonday escapes what it keeps, so entities
// are decoded back to plain text for storage.
func sanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// ResolveSources returns a copy of pl where relative slide sources are
// rewritten under baseURL, so display clients can fetch them. http(s) URLs
// and sources already under baseURL are left alone.
func ResolveSources(pl types.Playlist, baseURL string) types.Playlist {
	if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	out := types.Playlist{Slides: make([]types.Slide, 0, len(pl.Slides))}
	for _, s := range pl.Slides {
		src := s.Src
		switch {
		case src == "":
		case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		case strings.HasPrefix(src, baseURL):
		default:
			s.Src = baseURL + strings.TrimPrefix(strings.ReplaceAll(src, `\`, "/"), "/")
		}
		out.Slides = append(out.Slides, s)
	}
	return out
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place, so readers never observe a half-written file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".signage-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return writeErr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return closeErr
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
