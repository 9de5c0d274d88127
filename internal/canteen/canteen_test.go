// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package canteen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/signage-workspace/internal/raster"
)

type fakeTeams struct{ dir string }

func (f fakeTeams) ExistingTeamDir(team string) (string, error) {
	if team != "Lobby" {
		return "", errors.New("team not found")
	}
	return f.dir, nil
}

// fakeRenderer reads the page count from the downloaded body ("pages=N")
// and writes one file per rendered page.
type fakeRenderer struct {
	failOn string
	calls  []string
}

func (f *fakeRenderer) PageCount(pdfPath string) (int, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return 0, err
	}
	s, ok := strings.CutPrefix(string(data), "pages=")
	if !ok {
		return 0, errors.New("not a PDF")
	}
	return strconv.Atoi(s)
}

func (f *fakeRenderer) RenderFrom(_ context.Context, pdfPath string, sel []int, outDir string, first int) (int, error) {
	f.calls = append(f.calls, fmt.Sprintf("%v@%d", sel, first))
	for i, p := range sel {
		content := fmt.Sprintf("%s page %d", filepath.Base(pdfPath), p)
		if err := os.WriteFile(filepath.Join(outDir, raster.OrdinalName(first+i)), []byte(content), 0o644); err != nil {
			return i, err
		}
	}
	return len(sel), nil
}

func menuServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/week.pdf":
			fmt.Fprint(w, "pages=5")
		case "/daily.pdf":
			fmt.Fprint(w, "pages=2")
		case "/broken.pdf":
			fmt.Fprint(w, "<html>")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func menuFiles(t *testing.T, teamDir string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(teamDir, filepath.FromSlash(MenuDir)))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRefreshContinuesOrdinals(t *testing.T) {
	ts := menuServer(t)
	teamDir := t.TempDir()
	render := &fakeRenderer{}
	r := New(Config{Client: ts.Client()}, fakeTeams{dir: teamDir}, render)

	res, err := r.Refresh(context.Background(), "Lobby", []Item{
		{URL: ts.URL + "/week.pdf", Range: "2-3"},
		{URL: "ftp://example.com/menu.pdf"},
		{URL: ts.URL + "/daily.pdf"},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Count)
	assert.Equal(t, MenuDir, res.Dir)
	assert.Equal(t, []string{"[2 3]@1", "[1 2]@3"}, render.calls)
	assert.Equal(t, []string{"001.png", "002.png", "003.png", "004.png"}, menuFiles(t, teamDir))
}

func TestRefreshClearsOldImages(t *testing.T) {
	ts := menuServer(t)
	teamDir := t.TempDir()
	menu := filepath.Join(teamDir, filepath.FromSlash(MenuDir))
	require.NoError(t, os.MkdirAll(filepath.Join(menu, "keep"), 0o755))
	for _, name := range []string{"001.png", "002.png", "003.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(menu, name), []byte("old"), 0o644))
	}
	r := New(Config{Client: ts.Client()}, fakeTeams{dir: teamDir}, &fakeRenderer{})

	res, err := r.Refresh(context.Background(), "Lobby", []Item{{URL: ts.URL + "/daily.pdf", Range: "1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, []string{"001.png", "keep"}, menuFiles(t, teamDir))
}

func TestRefreshErrors(t *testing.T) {
	ts := menuServer(t)

	tests := []struct {
		name    string
		team    string
		items   []Item
		wantErr error
		want    int
	}{
		{
			name:    "no http urls",
			team:    "Lobby",
			items:   []Item{{URL: "file:///etc/passwd"}, {URL: "not a url"}, {URL: ""}},
			wantErr: ErrNoValidURLs,
		},
		{
			name:    "download 404",
			team:    "Lobby",
			items:   []Item{{URL: ts.URL + "/missing.pdf"}},
			wantErr: ErrDownload,
		},
		{
			name:    "stops at first broken pdf",
			team:    "Lobby",
			items:   []Item{{URL: ts.URL + "/daily.pdf"}, {URL: ts.URL + "/broken.pdf"}, {URL: ts.URL + "/week.pdf"}},
			wantErr: ErrPDFConversion,
			want:    2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(Config{Client: ts.Client()}, fakeTeams{dir: t.TempDir()}, &fakeRenderer{})
			res, err := r.Refresh(context.Background(), tt.team, tt.items)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.want, res.Count)
		})
	}
}

func TestRefreshUnknownTeam(t *testing.T) {
	r := New(Config{}, fakeTeams{dir: t.TempDir()}, &fakeRenderer{})
	_, err := r.Refresh(context.Background(), "Ghost", []Item{{URL: "https://example.com/menu.pdf"}})
	assert.Error(t, err)
}

func TestRefreshEmptySelectionWritesNothing(t *testing.T) {
	ts := menuServer(t)
	teamDir := t.TempDir()
	render := &fakeRenderer{}
	r := New(Config{Client: ts.Client()}, fakeTeams{dir: teamDir}, render)

	res, err := r.Refresh(context.Background(), "Lobby", []Item{{URL: ts.URL + "/daily.pdf", Range: "7-9"}})
	require.NoError(t, err)
	assert.Zero(t, res.Count)
	assert.Empty(t, render.calls)
}

func TestParseItem(t *testing.T) {
	assert.Equal(t, Item{URL: "https://x/menu.pdf", Range: "1-2"}, ParseItem("https://x/menu.pdf#1-2"))
	assert.Equal(t, Item{URL: "https://x/menu.pdf"}, ParseItem(" https://x/menu.pdf "))
}
