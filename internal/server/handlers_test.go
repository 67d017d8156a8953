package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/tapwars/internal/dependencies/mocks"
	"github.com/Tyrowin/tapwars/internal/model"
	"github.com/Tyrowin/tapwars/internal/storage/memory"
	"github.com/Tyrowin/tapwars/internal/testutil"
)

// pngBytes starts with the PNG signature, which is all content sniffing needs.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

type httpEnv struct {
	server *Server
	store  *memory.Storage
	http   *httptest.Server
}

func newHTTPEnv(t *testing.T, mutate func(*Config)) *httpEnv {
	t.Helper()

	cfg := testConfig()
	cfg.IconDir = t.TempDir()
	if mutate != nil {
		mutate(&cfg)
	}

	store := memory.New()
	require.NoError(t, store.SeedShop(context.Background(), model.DefaultCatalog()))

	srv := NewServer(store, cfg, mocks.NewMockClock(testEpoch), testutil.NopLogger())
	srv.Start()
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Hub().Shutdown(time.Second)
	})

	return &httpEnv{server: srv, store: store, http: ts}
}

func parseHTML(t *testing.T, r io.Reader) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(r)
	require.NoError(t, err)
	return doc
}

func TestHealthHandler(t *testing.T) {
	env := newHTTPEnv(t, nil)

	resp := testutil.MakeRequest(t, http.MethodGet, env.http.URL+"/")
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "tapwars server is running!", string(body))
}

func TestPlayPage(t *testing.T) {
	env := newHTTPEnv(t, nil)

	resp := testutil.MakeRequest(t, http.MethodGet, env.http.URL+"/play")
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	doc := parseHTML(t, resp.Body)
	assert.Equal(t, "tapwars", doc.Find("title").Text())
	for _, selector := range []string{
		"#nickname", "#adminToken", "#tapButton", "#shop", "#ranks",
		"#chatLog", "#chatInput", "#iconForm input[type=file]",
	} {
		assert.Equal(t, 1, doc.Find(selector).Length(), "missing %s", selector)
	}
	_, disabled := doc.Find("#tapButton").Attr("disabled")
	assert.True(t, disabled, "tapping is disabled until a name is claimed")
	assert.Equal(t, "32", doc.Find("#nickname").AttrOr("maxlength", ""))
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	env := newHTTPEnv(t, nil)

	resp := testutil.MakeRequest(t, http.MethodGet, env.http.URL+"/nope")
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocketHandlerRejectsPost(t *testing.T) {
	env := newHTTPEnv(t, nil)

	resp := testutil.MakeRequest(t, http.MethodPost, env.http.URL+"/ws")
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWebSocketHandlerRejectsForeignOrigin(t *testing.T) {
	env := newHTTPEnv(t, nil)

	headers := http.Header{}
	headers.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(testutil.WebSocketURL(env.http.URL), headers)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocketHandlerSendsInit(t *testing.T) {
	env := newHTTPEnv(t, nil)

	conn := testutil.ConnectWebSocket(t, testutil.WebSocketURL(env.http.URL))
	msg := testutil.ReceiveMessage(t, conn, 2*time.Second)

	assert.Equal(t, TypeInit, msg["type"])
	assert.Len(t, msg["shop"], len(model.DefaultCatalog()))
}

type uploadResult struct {
	status int
	body   UploadResponse
}

func upload(t *testing.T, env *httpEnv, fields map[string]string, icon []byte) uploadResult {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if icon != nil {
		part, err := mw.CreateFormFile("icon", "icon.bin")
		require.NoError(t, err)
		_, err = part.Write(icon)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(env.http.URL+"/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body UploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return uploadResult{status: resp.StatusCode, body: body}
}

func TestIconUpload(t *testing.T) {
	env := newHTTPEnv(t, nil)

	res := upload(t, env, map[string]string{"nickname": " alice "}, pngBytes)
	require.Equal(t, http.StatusOK, res.status, res.body.Error)
	assert.True(t, res.body.OK)
	assert.True(t, strings.HasPrefix(res.body.Icon, IconPathPrefix))
	assert.True(t, strings.HasSuffix(res.body.Icon, ".png"))

	player, err := env.store.GetPlayer(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, player.Icon)
	assert.Equal(t, res.body.Icon, *player.Icon)

	stored, err := os.ReadFile(filepath.Join(env.server.Config().IconDir, strings.TrimPrefix(res.body.Icon, IconPathPrefix)))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, stored)

	resp := testutil.MakeRequest(t, http.MethodGet, env.http.URL+res.body.Icon)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func TestIconUploadRejections(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(t *testing.T, env *httpEnv)
		fields     map[string]string
		icon       []byte
		wantStatus int
	}{
		{
			name:       "missing nickname",
			fields:     map[string]string{},
			icon:       pngBytes,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing file",
			fields:     map[string]string{"nickname": "alice"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not an image",
			fields:     map[string]string{"nickname": "alice"},
			icon:       []byte("#!/bin/sh\necho hi\n"),
			wantStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:       "too large",
			fields:     map[string]string{"nickname": "alice"},
			icon:       append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{1}, 128)...),
			wantStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name: "banned nickname",
			setup: func(t *testing.T, env *httpEnv) {
				require.NoError(t, env.store.UpsertBan(context.Background(), model.Ban{Nickname: "alice", Reason: "x"}))
			},
			fields:     map[string]string{"nickname": "alice"},
			icon:       pngBytes,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "administrator without token",
			fields:     map[string]string{"nickname": "Admin"},
			icon:       pngBytes,
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newHTTPEnv(t, func(cfg *Config) { cfg.MaxIconSize = 100 })
			if tt.setup != nil {
				tt.setup(t, env)
			}

			res := upload(t, env, tt.fields, tt.icon)
			assert.Equal(t, tt.wantStatus, res.status)
			assert.False(t, res.body.OK)
			assert.NotEmpty(t, res.body.Error)

			entries, err := os.ReadDir(env.server.Config().IconDir)
			if err == nil {
				assert.Empty(t, entries, "rejected uploads leave no files behind")
			}
		})
	}
}

func TestIconUploadForAdministratorWithToken(t *testing.T) {
	env := newHTTPEnv(t, nil)

	res := upload(t, env, map[string]string{"nickname": "ADMIN", "adminToken": testAdminToken}, pngBytes)
	require.Equal(t, http.StatusOK, res.status, res.body.Error)

	player, err := env.store.GetPlayer(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, res.body.Icon, player.IconOrEmpty())
}
