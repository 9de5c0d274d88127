package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/signage-workspace/pkg/types"
)

func TestWriteConfig(t *testing.T) {
	cfg := types.Config{}
	cfg.Workspace.Dir = "/srv/WORKSPACE"
	cfg.Defaults()

	for _, format := range []string{"yaml", "toml", "json"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeConfig(&buf, cfg, format))
			assert.Contains(t, buf.String(), "/srv/WORKSPACE")
			assert.Contains(t, buf.String(), "pdftoppm")
		})
	}

	var buf bytes.Buffer
	assert.Error(t, writeConfig(&buf, cfg, "ini"))
}

func TestPrintOutcome(t *testing.T) {
	var buf bytes.Buffer
	printOutcome(&buf, types.ConversionOutcome{
		Kind: types.OutcomeSuccess, Folder: "documents/menu", Document: "menu.pptx",
		Count: 3, Engine: "soffice", Duration: 1500 * time.Millisecond,
	})
	assert.Equal(t, "converted: menu (menu.pptx) -> 3 image(s) via soffice in 1.5s\n", buf.String())

	buf.Reset()
	printOutcome(&buf, types.ConversionOutcome{
		Kind: types.OutcomeConverterUnavailable, Folder: "documents/deck",
		Message: "no converter", TriedEngines: []string{"soffice"}, Hint: "install LibreOffice",
	})
	assert.Equal(t, "failed: deck: converter_unavailable: no converter\n  tried: [soffice]\n  hint: install LibreOffice\n", buf.String())
}

func TestReadPlaylistFile(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "pl.json")
	data, err := json.Marshal(types.Playlist{Slides: []types.Slide{{Type: types.SlideImage, Src: "photos/a.jpg"}}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(jsonPath, data, 0o644))

	yamlPath := filepath.Join(dir, "pl.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("slides:\n  - type: video\n    src: videos/b.mp4\n    duration: 12\n"), 0o644))

	pl, err := readPlaylistFile(jsonPath)
	require.NoError(t, err)
	require.Len(t, pl.Slides, 1)
	assert.Equal(t, "photos/a.jpg", pl.Slides[0].Src)

	pl, err = readPlaylistFile(yamlPath)
	require.NoError(t, err)
	require.Len(t, pl.Slides, 1)
	assert.Equal(t, types.SlideVideo, pl.Slides[0].Type)
	assert.Equal(t, 12.0, pl.Slides[0].Duration)

	_, err = readPlaylistFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	log := newLogger(types.LogConfig{Level: "debug", Format: "json"})
	assert.True(t, log.Enabled(t.Context(), slog.LevelDebug))
	log = newLogger(types.LogConfig{Level: "bogus"})
	assert.False(t, log.Enabled(t.Context(), slog.LevelDebug))
}
