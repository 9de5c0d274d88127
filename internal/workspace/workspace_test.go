// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/signage-workspace/pkg/types"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	base := t.TempDir()
	w, err := New(types.WorkspaceConfig{
		Dir:      filepath.Join(base, "WORKSPACE"),
		StateDir: filepath.Join(base, ".signage"),
	}, nil)
	require.NoError(t, err)
	return w
}

func isDoc(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".docx", ".pptx":
		return true
	}
	return false
}

func TestTeamsMissingRoot(t *testing.T) {
	w := newTestWorkspace(t)
	teams, err := w.Teams()
	require.NoError(t, err)
	assert.Empty(t, teams)
	assert.NotNil(t, teams)
}

func TestCreateTeam(t *testing.T) {
	w := newTestWorkspace(t)

	name, err := w.CreateTeam("  Marketing <Team>!  ")
	require.NoError(t, err)
	assert.Equal(t, "Marketing Team", name)

	dir := filepath.Join(w.Root(), name)
	for _, sub := range []string{DocumentsDir, PhotosDir, VideosDir} {
		assert.DirExists(t, filepath.Join(dir, sub))
	}
	data, err := os.ReadFile(filepath.Join(dir, PlaylistFile))
	require.NoError(t, err)
	assert.JSONEq(t, `{"slides": []}`, string(data))

	teams, err := w.Teams()
	require.NoError(t, err)
	assert.Equal(t, []string{"Marketing Team"}, teams)
}

func TestCreateTeamKeepsExistingPlaylist(t *testing.T) {
	w := newTestWorkspace(t)
	_, err := w.CreateTeam("Ops")
	require.NoError(t, err)
	require.NoError(t, w.WritePlaylist("Ops", types.Playlist{Slides: []types.Slide{{Type: types.SlideImage, Src: "photos/a.jpg"}}}))

	_, err = w.CreateTeam("Ops")
	require.NoError(t, err)
	pl, err := w.ReadPlaylist("Ops")
	require.NoError(t, err)
	assert.Len(t, pl.Slides, 1)
}

func TestSanitizeTeamName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Sales", "Sales"},
		{"R&D / Lab", "RD  Lab"},
		{"../../etc", "etc"},
		{"!!!", "team"},
		{"Echipă_1", "Echipă_1"},
		// Decomposed input is composed to NFC.
		{"Echipa\u0306", "Echip\u0103"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeTeamName(tt.in), tt.in)
	}
}

func TestCreateTeamRejectsEmpty(t *testing.T) {
	w := newTestWorkspace(t)
	_, err := w.CreateTeam("   ")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestDeleteTeam(t *testing.T) {
	w := newTestWorkspace(t)
	_, err := w.CreateTeam("Kitchen")
	require.NoError(t, err)

	require.NoError(t, w.DeleteTeam("Kitchen"))
	assert.NoDirExists(t, filepath.Join(w.Root(), "Kitchen"))

	assert.ErrorIs(t, w.DeleteTeam("Kitchen"), ErrTeamNotFound)
	assert.ErrorIs(t, w.DeleteTeam("../WORKSPACE"), ErrInvalidName)
}

func TestTeamDir(t *testing.T) {
	w := newTestWorkspace(t)
	for _, bad := range []string{"", " ", ".", "..", "a/b", `a\b`, "..x"} {
		_, err := w.TeamDir(bad)
		assert.ErrorIs(t, err, ErrInvalidName, bad)
	}
	dir, err := w.TeamDir("Lobby")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.Root(), "Lobby"), dir)
}

func TestResolveFolder(t *testing.T) {
	w := newTestWorkspace(t)
	_, err := w.CreateTeam("Lobby")
	require.NoError(t, err)
	teamDir := filepath.Join(w.Root(), "Lobby")

	got, err := w.ResolveFolder("Lobby", "documents/menu_1a2b3c4d")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(teamDir, "documents", "menu_1a2b3c4d"), got)

	got, err = w.ResolveFile("Lobby", `photos\a.jpg`)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(teamDir, "photos", "a.jpg"), got)

	for _, bad := range []string{"../Other", "documents/../../x", "/etc/passwd", `\windows`, "documents/.."} {
		_, err := w.ResolveFolder("Lobby", bad)
		assert.ErrorIs(t, err, ErrPathTraversal, bad)
	}

	_, err = w.ResolveFolder("Nobody", "documents")
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestResolveDocumentFolder(t *testing.T) {
	w := newTestWorkspace(t)
	_, err := w.CreateTeam("Lobby")
	require.NoError(t, err)
	teamDir := filepath.Join(w.Root(), "Lobby")

	got, err := w.ResolveDocumentFolder("Lobby", "documents/menu_1a2b3c4d")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(teamDir, "documents", "menu_1a2b3c4d"), got)

	got, err = w.ResolveDocumentFolder("Lobby", "documents/2026/menu/")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(teamDir, "documents", "2026", "menu"), got)

	tests := []struct {
		rel  string
		want error
	}{
		{rel: ".", want: ErrNotDocumentFolder},
		{rel: "", want: ErrNotDocumentFolder},
		{rel: "photos", want: ErrNotDocumentFolder},
		{rel: "videos/clip", want: ErrNotDocumentFolder},
		{rel: "documents", want: ErrNotDocumentFolder},
		{rel: "documents/.", want: ErrNotDocumentFolder},
		{rel: "documents-old/menu", want: ErrNotDocumentFolder},
		{rel: "documents/../photos", want: ErrPathTraversal},
	}
	for _, tt := range tests {
		_, err := w.ResolveDocumentFolder("Lobby", tt.rel)
		assert.ErrorIs(t, err, tt.want, tt.rel)
	}

	_, err = w.ResolveDocumentFolder("Nobody", "documents/menu")
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestPlaylistRoundTripNormalizes(t *testing.T) {
	w := newTestWorkspace(t)
	_, err := w.CreateTeam("Lobby")
	require.NoError(t, err)

	in := types.Playlist{Slides: []types.Slide{
		{Type: types.SlideImage, Src: " photos/a.jpg ", Duration: 10, Title: "<b>Welcome</b> & hello"},
		{ID: "custom", Type: types.SlideWebURL, Src: "https://example.com", Subtitle: `<script>alert(1)</script>News`},
		{Type: types.SlideDocument, Folder: "documents/menu_1", Range: "1-3"},
	}}
	require.NoError(t, w.WritePlaylist("Lobby", in))

	pl, err := w.ReadPlaylist("Lobby")
	require.NoError(t, err)
	require.Len(t, pl.Slides, 3)
	assert.Equal(t, "slide-1", pl.Slides[0].ID)
	assert.Equal(t, "custom", pl.Slides[1].ID)
	assert.Equal(t, "slide-3", pl.Slides[2].ID)
	assert.Equal(t, "photos/a.jpg", pl.Slides[0].Src)
	assert.Equal(t, "Welcome & hello", pl.Slides[0].Title)
	assert.Equal(t, "News", pl.Slides[1].Subtitle)
	assert.Equal(t, "1-3", pl.Slides[2].Range)

	raw, err := os.ReadFile(filepath.Join(w.Root(), "Lobby", PlaylistFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"slides\"")
}

func TestReadPlaylistTolerant(t *testing.T) {
	w := newTestWorkspace(t)
	_, err := w.CreateTeam("Lobby")
	require.NoError(t, err)
	path := filepath.Join(w.Root(), "Lobby", PlaylistFile)

	require.NoError(t, os.WriteFile(path, []byte(`{"slides": {"not": "a list"}}`), 0o644))
	pl, err := w.ReadPlaylist("Lobby")
	require.NoError(t, err)
	assert.Empty(t, pl.Slides)

	require.NoError(t, os.Remove(path))
	pl, err = w.ReadPlaylist("Lobby")
	require.NoError(t, err)
	assert.Empty(t, pl.Slides)

	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o644))
	_, err = w.ReadPlaylist("Lobby")
	assert.Error(t, err)
}

func TestResolveSources(t *testing.T) {
	pl := types.Playlist{Slides: []types.Slide{
		{Src: "photos/a.jpg"},
		{Src: `videos\b.mp4`},
		{Src: "https://example.com/page"},
		{Src: "/workspace/Lobby/photos/c.jpg"},
		{Src: ""},
	}}
	got := ResolveSources(pl, "/workspace/Lobby")

	var srcs []string
	for _, s := range got.Slides {
		srcs = append(srcs, s.Src)
	}
	assert.Equal(t, []string{
		"/workspace/Lobby/photos/a.jpg",
		"/workspace/Lobby/videos/b.mp4",
		"https://example.com/page",
		"/workspace/Lobby/photos/c.jpg",
		"",
	}, srcs)
	assert.Equal(t, "photos/a.jpg", pl.Slides[0].Src, "input is not modified")
}

func TestSaveUpload(t *testing.T) {
	w := newTestWorkspace(t)
	_, err := w.CreateTeam("Lobby")
	require.NoError(t, err)

	tests := []struct {
		name       string
		up         Upload
		wantPrefix string
		wantSuffix string
		wantFolder bool
		wantErr    bool
	}{
		{
			name:       "image",
			up:         Upload{Kind: UploadImage, Filename: "Team Photo.PNG", ContentType: "image/png"},
			wantPrefix: "photos/Team_Photo_",
			wantSuffix: ".png",
		},
		{
			name:       "image without extension",
			up:         Upload{Kind: UploadImage, Filename: "snapshot", ContentType: "image/jpeg"},
			wantPrefix: "photos/snapshot_",
			wantSuffix: ".jpg",
		},
		{
			name:       "video octet-stream",
			up:         Upload{Kind: UploadVideo, Filename: "clip", ContentType: "application/octet-stream"},
			wantPrefix: "videos/clip_",
			wantSuffix: ".mp4",
		},
		{
			name:       "document gets its own folder",
			up:         Upload{Kind: UploadDocument, Filename: "Meniu Săptămâna.pptx"},
			wantPrefix: "documents/Meniu_Saptamana_",
			wantSuffix: "/Meniu_Saptamana.pptx",
			wantFolder: true,
		},
		{
			name:    "wrong image type",
			up:      Upload{Kind: UploadImage, Filename: "a.png", ContentType: "text/html"},
			wantErr: true,
		},
		{
			name:    "unrecognized document",
			up:      Upload{Kind: UploadDocument, Filename: "notes.txt"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.up.Body = strings.NewReader("payload")
			got, err := w.SaveUpload("Lobby", tt.up, isDoc)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidUpload)
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(got.Path, tt.wantPrefix), got.Path)
			assert.True(t, strings.HasSuffix(got.Path, tt.wantSuffix), got.Path)
			assert.Equal(t, int64(len("payload")), got.Size)
			assert.Equal(t, tt.wantFolder, got.Folder != "")

			data, err := os.ReadFile(filepath.Join(w.Root(), "Lobby", filepath.FromSlash(got.Path)))
			require.NoError(t, err)
			assert.Equal(t, "payload", string(data))
		})
	}
}

func TestSaveUploadsDoNotCollide(t *testing.T) {
	w := newTestWorkspace(t)
	_, err := w.CreateTeam("Lobby")
	require.NoError(t, err)

	a, err := w.SaveUpload("Lobby", Upload{Kind: UploadImage, Filename: "a.png", Body: strings.NewReader("1")}, isDoc)
	require.NoError(t, err)
	b, err := w.SaveUpload("Lobby", Upload{Kind: UploadImage, Filename: "a.png", Body: strings.NewReader("2")}, isDoc)
	require.NoError(t, err)
	assert.NotEqual(t, a.Path, b.Path)
}

func TestSecureFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"My Report.docx", "My_Report.docx"},
		{"../../etc/passwd", "etc_passwd"},
		{`C:\Users\x\deck.pptx`, "C_Users_x_deck.pptx"},
		{"Ștefan   și  Ana.png", "Stefan_si_Ana.png"},
		{".hidden", "hidden"},
		{"???", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SecureFilename(tt.in), tt.in)
	}
}

func TestSelectedTeam(t *testing.T) {
	w := newTestWorkspace(t)
	assert.Empty(t, w.SelectedTeam())

	_, err := w.CreateTeam("Lobby")
	require.NoError(t, err)
	require.NoError(t, w.WritePlaylist("Lobby", types.Playlist{Slides: []types.Slide{{Src: "photos/a.jpg"}}}))

	assert.ErrorIs(t, w.SetSelectedTeam("Ghost"), ErrTeamNotFound)
	require.NoError(t, w.SetSelectedTeam("Lobby"))
	assert.Equal(t, "Lobby", w.SelectedTeam())

	team, pl, err := w.DisplayPlaylist("/workspace/Lobby")
	require.NoError(t, err)
	assert.Equal(t, "Lobby", team)
	assert.Equal(t, "/workspace/Lobby/photos/a.jpg", pl.Slides[0].Src)

	require.NoError(t, w.SetSelectedTeam(""))
	assert.Empty(t, w.SelectedTeam())
	_, _, err = w.DisplayPlaylist("/workspace")
	assert.ErrorIs(t, err, ErrNoTeamSelected)

	raw, err := os.ReadFile(filepath.Join(w.StateDir(), selectedTeamFile))
	require.NoError(t, err)
	var st map[string]any
	require.NoError(t, json.Unmarshal(raw, &st))
	assert.Contains(t, st, "team")
	assert.Nil(t, st["team"])
}

func TestDocumentFolders(t *testing.T) {
	w := newTestWorkspace(t)
	_, err := w.CreateTeam("Lobby")
	require.NoError(t, err)
	docs := filepath.Join(w.Root(), "Lobby", DocumentsDir)
	require.NoError(t, os.MkdirAll(filepath.Join(docs, "menu_1"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(docs, "empty"), 0o755))
	for _, name := range []string{"menu.pdf", "001.png", "002.png", "logo.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(docs, "menu_1", name), []byte("x"), 0o644))
	}

	folders, err := w.DocumentFolders("Lobby", isDoc)
	require.NoError(t, err)
	assert.Equal(t, []DocumentFolder{
		{Name: "documents/empty"},
		{Name: "documents/menu_1", Document: "menu.pdf", Images: 2},
	}, folders)
}
