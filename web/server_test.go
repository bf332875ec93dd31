package web_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leadscout/leadscout/errlog"
	"github.com/leadscout/leadscout/models"
	"github.com/leadscout/leadscout/runlog"
	"github.com/leadscout/leadscout/web"
	"github.com/leadscout/leadscout/web/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *fakeEngine) {
	t.Helper()

	engine := newFakeEngine()

	factory := func(_ models.ScrapeConfig, _ *runlog.Manager) (web.Engine, error) {
		return engine, nil
	}

	repo, err := memory.New()
	require.NoError(t, err)

	svc := web.NewService(repo, factory, errlog.New(zap.NewNop()), zap.NewNop())

	srv, err := web.NewServer(web.ServerConfig{Service: svc, Logger: zap.NewNop()})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return ts, engine
}

func startOverHTTP(t *testing.T, ts *httptest.Server, name string) web.Session {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"name":   name,
		"config": validConfig(),
	})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/api/v1/sessions", "application/json", bytes.NewReader(body))
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session web.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))

	return session
}

func getJSON(t *testing.T, ts *httptest.Server, path string, out any) int {
	t.Helper()

	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)

	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}

func post(t *testing.T, ts *httptest.Server, path string) int {
	t.Helper()

	resp, err := http.Post(ts.URL+path, "application/json", nil)
	require.NoError(t, err)

	resp.Body.Close()

	return resp.StatusCode
}

func waitForHTTPStatus(t *testing.T, ts *httptest.Server, id, want string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)

	for time.Now().Before(deadline) {
		var status web.SessionStatus

		if getJSON(t, ts, "/api/v1/sessions/"+id+"/status", &status) == http.StatusOK && status.Status == want {
			return
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("session %s never reached status %s", id, want)
}

func TestServerStartSession(t *testing.T) {
	ts, engine := newTestServer(t)

	session := startOverHTTP(t, ts, "first run")
	assert.NotEmpty(t, session.ID)

	waitForHTTPStatus(t, ts, session.ID, web.StatusWorking)

	engine.Stop()
}

func TestServerStartRejectsBadPayload(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/sessions", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)

	resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServerStartRejectsEmptyConfig(t *testing.T) {
	ts, _ := newTestServer(t)

	body, err := json.Marshal(map[string]any{"name": "bad", "config": models.ScrapeConfig{}})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/api/v1/sessions", "application/json", bytes.NewReader(body))
	require.NoError(t, err)

	resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestServerPauseResumeStop(t *testing.T) {
	ts, engine := newTestServer(t)

	session := startOverHTTP(t, ts, "lifecycle")
	waitForHTTPStatus(t, ts, session.ID, web.StatusWorking)

	assert.Equal(t, http.StatusNoContent, post(t, ts, "/api/v1/sessions/"+session.ID+"/pause"))
	assert.True(t, engine.Paused())
	waitForHTTPStatus(t, ts, session.ID, web.StatusPaused)

	assert.Equal(t, http.StatusNoContent, post(t, ts, "/api/v1/sessions/"+session.ID+"/resume"))
	assert.False(t, engine.Paused())

	assert.Equal(t, http.StatusNoContent, post(t, ts, "/api/v1/sessions/"+session.ID+"/stop"))
	waitForHTTPStatus(t, ts, session.ID, web.StatusStopped)
}

func TestServerPauseUnknownSession(t *testing.T) {
	ts, _ := newTestServer(t)

	assert.Equal(t, http.StatusConflict, post(t, ts, "/api/v1/sessions/missing/pause"))
}

func TestServerStatusUnknownSession(t *testing.T) {
	ts, _ := newTestServer(t)

	code := getJSON(t, ts, "/api/v1/sessions/missing/status", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServerQueueStatus(t *testing.T) {
	ts, engine := newTestServer(t)

	first := startOverHTTP(t, ts, "first")
	waitForHTTPStatus(t, ts, first.ID, web.StatusWorking)

	second := startOverHTTP(t, ts, "second")

	var status web.QueueStatus

	code := getJSON(t, ts, "/api/v1/sessions/"+second.ID+"/queue", &status)
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, 1, status.Position)
	assert.Equal(t, first.ID, status.CurrentlyProcessing)
	assert.GreaterOrEqual(t, status.EtaMinutes, 0.0)

	engine.Stop()
}

func TestServerListSessions(t *testing.T) {
	ts, engine := newTestServer(t)

	startOverHTTP(t, ts, "only one")

	var sessions []web.Session

	code := getJSON(t, ts, "/api/v1/sessions", &sessions)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, sessions, 1)

	engine.Stop()
}

func TestServerResults(t *testing.T) {
	ts, engine := newTestServer(t)
	engine.results = []models.Business{{Name: "Acme Plumbing", Phone: "0441234567", Town: "Knysna"}}

	session := startOverHTTP(t, ts, "results")
	waitForHTTPStatus(t, ts, session.ID, web.StatusWorking)

	engine.Stop()
	waitForHTTPStatus(t, ts, session.ID, web.StatusOK)

	var results []models.Business

	code := getJSON(t, ts, "/api/v1/sessions/"+session.ID+"/results", &results)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, results, 1)
	assert.Equal(t, "Acme Plumbing", results[0].Name)
}
