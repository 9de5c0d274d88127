// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/signage-workspace/internal/canteen"
	"github.com/pdiddy/signage-workspace/internal/convert"
	"github.com/pdiddy/signage-workspace/internal/gitsync"
	"github.com/pdiddy/signage-workspace/internal/history"
	"github.com/pdiddy/signage-workspace/internal/workspace"
	"github.com/pdiddy/signage-workspace/pkg/types"
)

type fakeConverter struct {
	kind  types.OutcomeKind
	calls []string
}

func (f *fakeConverter) ConvertFolder(_ context.Context, folderPath, rangeExpr string) types.ConversionOutcome {
	f.calls = append(f.calls, folderPath+"|"+rangeExpr)
	kind := f.kind
	if kind == "" {
		kind = types.OutcomeSuccess
	}
	out := types.ConversionOutcome{Kind: kind, Folder: folderPath, Range: rangeExpr}
	if kind == types.OutcomeSuccess {
		out.Count = 3
	}
	return out
}

type fakeGit struct {
	pushErr error
	pushed  string
}

func (f *fakeGit) Connect(context.Context) error { return nil }

func (f *fakeGit) Push(_ context.Context, msg string) (gitsync.PushResult, error) {
	f.pushed = msg
	return gitsync.PushResult{Committed: true, Message: msg}, f.pushErr
}

func (f *fakeGit) Pull(context.Context) (gitsync.PullResult, error) {
	return gitsync.PullResult{Changed: true}, nil
}

type fakeHistory struct{ q history.Query }

func (f *fakeHistory) List(_ context.Context, q history.Query) ([]history.Run, error) {
	f.q = q
	return []history.Run{{ID: "r1", Team: q.Team, Kind: types.OutcomeSuccess}}, nil
}

type fakeCanteen struct{ err error }

func (f fakeCanteen) Refresh(_ context.Context, team string, items []canteen.Item) (canteen.Result, error) {
	if f.err != nil {
		return canteen.Result{}, f.err
	}
	return canteen.Result{Count: len(items) * 2, Dir: canteen.MenuDir}, nil
}

type testEnv struct {
	ws   *workspace.Workspace
	conv *fakeConverter
	git  *fakeGit
	hist *fakeHistory
	srv  *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	base := t.TempDir()
	ws, err := workspace.New(types.WorkspaceConfig{
		Dir:      filepath.Join(base, "WORKSPACE"),
		StateDir: filepath.Join(base, ".signage"),
	}, nil)
	require.NoError(t, err)
	_, err = ws.CreateTeam("Kitchen")
	require.NoError(t, err)

	env := &testEnv{ws: ws, conv: &fakeConverter{}, git: &fakeGit{}, hist: &fakeHistory{}}
	s := New(Config{MaxUploadSize: 1 << 20}, Deps{
		Workspace: ws,
		Converter: env.conv,
		Git:       env.git,
		History:   env.hist,
		Canteen:   fakeCanteen{},
	})
	env.srv = httptest.NewServer(s.Handler())
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	require.NoError(t, err)
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var m map[string]any
	json.Unmarshal(raw, &m)
	return resp, m
}

func (e *testEnv) getList(t *testing.T, path string) []any {
	t.Helper()
	resp, err := e.srv.Client().Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	return list
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestTeamsLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/teams", map[string]string{"name": "Front <Desk>!"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Front Desk", body["name"])

	assert.Equal(t, []any{"Front Desk", "Kitchen"}, env.getList(t, "/api/teams"))

	resp, _ = env.do(t, http.MethodPost, "/api/teams", map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, "/api/teams/Front%20Desk", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.do(t, http.MethodDelete, "/api/teams/Ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["error"], "team not found")

	resp, _ = env.do(t, http.MethodDelete, "/api/teams/..", nil)
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}

func TestPlaylistRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	pl := types.Playlist{Slides: []types.Slide{
		{Type: types.SlideImage, Src: "photos/a.jpg", Title: "<b>Hello</b>"},
		{ID: "custom", Type: types.SlideWebURL, Src: "https://example.com"},
	}}
	resp, _ := env.do(t, http.MethodPut, "/api/teams/Kitchen/playlist", pl)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/api/teams/Kitchen/playlist", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	slides := body["slides"].([]any)
	require.Len(t, slides, 2)
	first := slides[0].(map[string]any)
	assert.Equal(t, "slide-1", first["id"])
	assert.Equal(t, "Hello", first["title"])

	resp, _ = env.do(t, http.MethodPut, "/api/teams/Kitchen/playlist", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConvert(t *testing.T) {
	env := newTestEnv(t)
	teamDir, err := env.ws.ExistingTeamDir("Kitchen")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(teamDir, "documents", "menu"), 0o755))

	tests := []struct {
		name       string
		team       string
		req        convertRequest
		kind       types.OutcomeKind
		wantStatus int
		wantKind   types.OutcomeKind
	}{
		{name: "success", team: "Kitchen", req: convertRequest{Folder: "documents/menu", Range: "1-3"}, wantStatus: http.StatusOK, wantKind: types.OutcomeSuccess},
		{name: "categorized failure", team: "Kitchen", req: convertRequest{Folder: "documents/menu"}, kind: types.OutcomeConverterUnavailable, wantStatus: http.StatusUnprocessableEntity, wantKind: types.OutcomeConverterUnavailable},
		{name: "traversal", team: "Kitchen", req: convertRequest{Folder: "../Other"}, wantStatus: http.StatusBadRequest, wantKind: types.OutcomeInvalidInput},
		{name: "missing folder", team: "Kitchen", req: convertRequest{}, wantStatus: http.StatusBadRequest, wantKind: types.OutcomeInvalidInput},
		{name: "team root", team: "Kitchen", req: convertRequest{Folder: "."}, wantStatus: http.StatusBadRequest, wantKind: types.OutcomeInvalidInput},
		{name: "media folder", team: "Kitchen", req: convertRequest{Folder: "photos"}, wantStatus: http.StatusBadRequest, wantKind: types.OutcomeInvalidInput},
		{name: "unknown team", team: "Ghost", req: convertRequest{Folder: "documents/menu"}, wantStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.conv.kind = tt.kind
			resp, body := env.do(t, http.MethodPost, "/api/teams/"+tt.team+"/convert", tt.req)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantKind != "" {
				assert.Equal(t, string(tt.wantKind), body["kind"])
				assert.Equal(t, tt.req.Folder, body["folder"])
			}
		})
	}

	require.Len(t, env.conv.calls, 2, "only folders under documents/ reach the converter")
	assert.Equal(t, filepath.Join(teamDir, "documents", "menu")+"|1-3", env.conv.calls[0])
}

func multipartBody(t *testing.T, fields map[string]string, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)

	post := func(t *testing.T, fields map[string]string, filename, ct string, content []byte) (int, map[string]any) {
		t.Helper()
		body, formType := multipartBody(t, fields, filename, ct, content)
		resp, err := env.srv.Client().Post(env.srv.URL+"/api/teams/Kitchen/upload", formType, body)
		require.NoError(t, err)
		defer resp.Body.Close()
		var m map[string]any
		json.NewDecoder(resp.Body).Decode(&m)
		return resp.StatusCode, m
	}

	t.Run("image", func(t *testing.T) {
		status, body := post(t, map[string]string{"kind": "image"}, "Team Photo.png", "image/png", []byte("png"))
		require.Equal(t, http.StatusOK, status)
		assert.Regexp(t, `^photos/Team_Photo_[0-9a-f]{8}\.png$`, body["path"])
	})

	t.Run("document converts", func(t *testing.T) {
		env.conv.calls = nil
		status, body := post(t, map[string]string{"kind": "document", "range": "2"}, "deck.pptx", "application/octet-stream", []byte("pptx"))
		require.Equal(t, http.StatusOK, status)
		assert.Regexp(t, `^documents/deck_[0-9a-f]{8}$`, body["folder"])
		outcome := body["outcome"].(map[string]any)
		assert.Equal(t, "success", outcome["kind"])
		require.Len(t, env.conv.calls, 1)
		assert.True(t, strings.HasSuffix(env.conv.calls[0], "|2"))
	})

	t.Run("bad image type", func(t *testing.T) {
		status, body := post(t, map[string]string{"kind": "image"}, "x.exe", "application/x-msdownload", []byte("MZ"))
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body["error"], "invalid image type")
	})

	t.Run("bad kind", func(t *testing.T) {
		status, _ := post(t, map[string]string{"kind": "audio"}, "a.mp3", "audio/mpeg", []byte("x"))
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("missing file", func(t *testing.T) {
		status, body := post(t, map[string]string{"kind": "image"}, "", "", nil)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "file required", body["error"])
	})

	t.Run("too large", func(t *testing.T) {
		status, _ := post(t, map[string]string{"kind": "video"}, "big.mp4", "video/mp4", bytes.Repeat([]byte("v"), 2<<20))
		assert.Equal(t, http.StatusRequestEntityTooLarge, status)
	})
}

func TestHistoryEndpoint(t *testing.T) {
	env := newTestEnv(t)
	list := env.getList(t, "/api/teams/Kitchen/history?limit=5&kind=success")
	require.Len(t, list, 1)
	assert.Equal(t, history.Query{Team: "Kitchen", Kind: types.OutcomeSuccess, Limit: 5}, env.hist.q)

	resp, _ := env.do(t, http.MethodGet, "/api/teams/Kitchen/history?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCanteenEndpoint(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodPost, "/api/teams/Kitchen/canteen", map[string]any{
		"items": []canteen.Item{{URL: "https://example.com/menu.pdf", Range: "1"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, canteen.MenuDir, body["dir"])
}

func TestCanteenErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{canteen.ErrNoValidURLs, http.StatusBadRequest},
		{canteen.ErrDownload, http.StatusBadGateway},
		{canteen.ErrPDFConversion, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			ws, err := workspace.New(types.WorkspaceConfig{Dir: t.TempDir()}, nil)
			require.NoError(t, err)
			s := New(Config{}, Deps{Workspace: ws, Canteen: fakeCanteen{err: tt.err}})
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/teams/Kitchen/canteen", strings.NewReader(`{"items":[]}`))
			s.Handler().ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestGitEndpoints(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.do(t, http.MethodGet, "/api/git/connect", nil)
	assert.Equal(t, true, body["ok"])

	_, body = env.do(t, http.MethodPost, "/api/git/push", map[string]string{"message": "Update menu"})
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "Update menu", env.git.pushed)

	env.git.pushErr = gitsync.ErrRemoteAhead
	resp, body := env.do(t, http.MethodPost, "/api/git/push", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["ok"])
	assert.Contains(t, body["error"], "pull before pushing")

	_, body = env.do(t, http.MethodPost, "/api/git/pull", nil)
	assert.Equal(t, true, body["changed"])
}

func TestGitDisabled(t *testing.T) {
	ws, err := workspace.New(types.WorkspaceConfig{Dir: t.TempDir()}, nil)
	require.NoError(t, err)
	s := New(Config{}, Deps{Workspace: ws})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/git/pull", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":false`)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/teams/x/convert", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDisplay(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/display/playlist", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "no team selected", body["error"])

	_, body = env.do(t, http.MethodGet, "/api/display/team", nil)
	assert.Nil(t, body["team"])

	resp, _ = env.do(t, http.MethodPut, "/api/display/team", map[string]string{"team": "Ghost"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPut, "/api/display/team", map[string]string{"team": "Kitchen"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, body = env.do(t, http.MethodGet, "/api/display/team", nil)
	assert.Equal(t, "Kitchen", body["team"])

	require.NoError(t, env.ws.WritePlaylist("Kitchen", types.Playlist{Slides: []types.Slide{
		{Type: types.SlideImage, Src: "photos/a.jpg"},
		{Type: types.SlideWebURL, Src: "https://example.com/"},
	}}))
	_, body = env.do(t, http.MethodGet, "/api/display/playlist", nil)
	slides := body["slides"].([]any)
	require.Len(t, slides, 2)
	assert.Equal(t, env.srv.URL+"/workspace/Kitchen/photos/a.jpg", slides[0].(map[string]any)["src"])
	assert.Equal(t, "https://example.com/", slides[1].(map[string]any)["src"])

	resp, _ = env.do(t, http.MethodPut, "/api/display/team", map[string]any{"team": nil})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, body = env.do(t, http.MethodGet, "/api/display/team", nil)
	assert.Nil(t, body["team"])
}

func TestStaticFiles(t *testing.T) {
	env := newTestEnv(t)
	teamDir, err := env.ws.ExistingTeamDir("Kitchen")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(teamDir, "photos", "a.txt"), []byte("hello"), 0o644))

	resp, err := env.srv.Client().Get(env.srv.URL + "/workspace/Kitchen/photos/a.txt")
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", string(data))

	for _, path := range []string{"/workspace/Kitchen/photos", "/workspace/Kitchen/missing.png", "/workspace/Ghost/a.txt"} {
		resp, err := env.srv.Client().Get(env.srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestDocumentsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	teamDir, err := env.ws.ExistingTeamDir("Kitchen")
	require.NoError(t, err)
	folder := filepath.Join(teamDir, "documents", "menu")
	require.NoError(t, os.MkdirAll(folder, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "menu.pdf"), []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "001.png"), []byte("png"), 0o644))

	list := env.getList(t, "/api/teams/Kitchen/documents")
	require.Len(t, list, 1)
	entry := list[0].(map[string]any)
	assert.Equal(t, "menu.pdf", entry["document"])
	assert.Equal(t, float64(1), entry["images"])
	assert.True(t, convert.IsDocument("menu.pdf"))
}
