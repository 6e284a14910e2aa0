package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcaster/internal/config"
	"podcaster/internal/feeds"
	"podcaster/internal/logging"
	podmcp "podcaster/internal/mcp"
	"podcaster/internal/producer"
	"podcaster/internal/server"
	"podcaster/internal/testsupport"
)

type harness struct {
	cfg  *config.Config
	svc  *producer.Service
	http *httptest.Server
}

func newHarness(t *testing.T, token string, replies ...string) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Server.Token = token
	ws := testsupport.MustWorkspace(t, cfg)
	svc, err := producer.New(cfg, ws, testsupport.NewStubCompleter(replies...), logging.NewNop())
	require.NoError(t, err)
	srv, err := server.New(cfg, svc, logging.NewNop())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &harness{cfg: cfg, svc: svc, http: ts}
}

func (h *harness) do(t *testing.T, method, path, token string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, h.http.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.http.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

var scriptReplies = []string{
	`"Car Talk", "Call-in show about car mysteries & laughs."`,
	`"Sedan <Mystery>", "Stalls on left turns."`,
	`"script_text": "Welcome back.\n\nOur caller is Dave. THE END."`,
}

func TestRSSNotFoundUntilFeedExists(t *testing.T) {
	h := newHarness(t, "", scriptReplies...)

	resp := h.do(t, http.MethodGet, "/rss", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp = h.do(t, http.MethodPost, "/premise", "", strings.NewReader(`{"request":"a podcast about old cars"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode, readBody(t, resp))

	resp = h.do(t, http.MethodGet, "/rss", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/rss+xml; charset=utf-8", resp.Header.Get("Content-Type"))
	body := readBody(t, resp)
	assert.Contains(t, body, "<title>Car Talk</title>")
	assert.Contains(t, body, "car mysteries &amp; laughs.")
}

func TestMutatingRoutesRequireToken(t *testing.T) {
	h := newHarness(t, "secret", scriptReplies...)

	resp := h.do(t, http.MethodPost, "/premise", "", strings.NewReader(`{"request":"cars"}`))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = h.do(t, http.MethodPost, "/premise", "wrong", strings.NewReader(`{"request":"cars"}`))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = h.do(t, http.MethodPost, "/premise", "secret", strings.NewReader(`{"request":"cars"}`))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/feed", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGenerateRejectsBadBodies(t *testing.T) {
	h := newHarness(t, "")
	resp := h.do(t, http.MethodPost, "/scripts", "", strings.NewReader(`{"request":""}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = h.do(t, http.MethodPost, "/scripts", "", strings.NewReader(`{"prompt":"x"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScriptAudioUploadAndServe(t *testing.T) {
	h := newHarness(t, "", scriptReplies...)

	resp := h.do(t, http.MethodPost, "/scripts", "", strings.NewReader(`{"request":"a podcast about old cars"}`))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created producer.ScriptResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	id := created.Episode.ID

	resp = h.do(t, http.MethodGet, "/audio?id="+id, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	audio := bytes.Repeat([]byte{0x49, 0x44, 0x33, 0x42}, 256)
	resp = h.do(t, http.MethodPost, "/episodes/"+id+"/audio", "", bytes.NewReader(audio))
	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	var marked feeds.EpisodeRecord
	require.NoError(t, json.Unmarshal([]byte(body), &marked))
	assert.True(t, marked.HasAudio)

	resp = h.do(t, http.MethodGet, "/audio?id="+id, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
	assert.Equal(t, string(audio), readBody(t, resp))

	resp = h.do(t, http.MethodGet, "/rss", "", nil)
	assert.Contains(t, readBody(t, resp), `<enclosure url="https://pods.example.com/audio?id=`+id+`" type="audio/mpeg" />`)

	resp = h.do(t, http.MethodGet, "/episodes?with_audio=true", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed struct {
		Episodes []feeds.EpisodeRecord `json:"episodes"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	require.Len(t, listed.Episodes, 1)
	assert.Equal(t, id, listed.Episodes[0].Episode.GUID)
}

func TestAudioRejectsBadIDs(t *testing.T) {
	h := newHarness(t, "")

	resp := h.do(t, http.MethodGet, "/audio?id=../../etc/passwd", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = h.do(t, http.MethodGet, "/audio", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = h.do(t, http.MethodGet, "/audio?id="+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = h.do(t, http.MethodPost, "/episodes/"+uuid.NewString()+"/audio", "", strings.NewReader("x"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEpisodePageRendersMarkdown(t *testing.T) {
	h := newHarness(t, "", scriptReplies...)
	res, err := h.svc.Script(context.Background(), "a podcast about old cars")
	require.NoError(t, err)

	resp := h.do(t, http.MethodGet, "/episodes/"+res.Episode.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	body := readBody(t, resp)
	assert.Contains(t, body, "<title>Sedan &lt;Mystery&gt;</title>")
	assert.Contains(t, body, "<p>Welcome back.</p>")
	assert.Contains(t, body, "<p>Our caller is Dave. THE END.</p>")
	assert.NotContains(t, body, "<audio")

	resp = h.do(t, http.MethodGet, "/episodes/"+res.Episode.ID+"?format=json", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var record feeds.EpisodeRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&record))
	assert.Equal(t, "Sedan <Mystery>", record.Episode.Title)
}

func TestEpisodesRejectsBadFilter(t *testing.T) {
	h := newHarness(t, "")
	resp := h.do(t, http.MethodGet, "/episodes?with_audio=maybe", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, "")
	resp := h.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health struct {
		Ready bool `json:"ready"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.True(t, health.Ready)
}

func TestMCPMountRequiresToken(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Server.Token = "secret"
	svc, err := producer.New(cfg, testsupport.MustWorkspace(t, cfg), testsupport.NewStubCompleter(), logging.NewNop())
	require.NoError(t, err)
	srv, err := server.New(cfg, svc, logging.NewNop(), server.WithMCP(podmcp.New(svc, logging.NewNop(), "test").MCPServer()))
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := ts.Client().Post(ts.URL+"/mcp", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	plain := newHarness(t, "secret")
	resp = plain.do(t, http.MethodPost, "/mcp", "secret", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
