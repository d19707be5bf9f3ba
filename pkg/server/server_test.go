package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igaudit/internal/testutil"
	"igaudit/pkg/auth"
	"igaudit/pkg/instagram"
	"igaudit/pkg/logger"
	"igaudit/pkg/scan"
	"igaudit/pkg/store"
)

var fixedNow = time.Date(2024, 3, 9, 22, 15, 0, 0, time.UTC)

type fixture struct {
	server *Server
	store  *store.MemoryStore
	engine *scan.Engine
	mock   *testutil.MockInstagram
	log    *logger.TestLogger
}

func newFixture(t *testing.T, creds auth.CredentialSource) *fixture {
	t.Helper()

	mock := testutil.NewMockInstagram(testutil.BuildPages(60, []int{50, 10}, []int{3, 2})...)
	t.Cleanup(mock.Close)

	st := store.NewMemoryStore()
	log := logger.NewTestLogger()
	client := instagram.NewClient(5*time.Second, log, instagram.WithBaseURL(mock.URL()))
	engine := scan.NewEngine(st, client, scan.WithJitter(0), scan.WithLogger(log))
	t.Cleanup(engine.Close)

	s, err := NewServer(Config{
		Engine:      engine,
		Store:       st,
		Credentials: creds,
		Logger:      log,
		Now:         func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	return &fixture{server: s, store: st, engine: engine, mock: mock, log: log}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestNewServerRequiresEngineAndStore(t *testing.T) {
	_, err := NewServer(Config{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["scanning"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStartScanRunsToCompletion(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/commands",
		`{"action":"START_SCAN","config":{"userId":"42","csrfToken":"super-secret","delayMs":0}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var ack scan.Ack
	decodeBody(t, rec, &ack)
	assert.True(t, ack.Started)

	f.engine.Wait()

	var stats scan.Stats
	ok, err := store.GetInto(context.Background(), f.store, store.KeyCurrentStats, &stats)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, scan.StatusCompleted, stats.Status)
	assert.Equal(t, 60, stats.ProcessedCount)
	assert.Equal(t, 5, stats.NonFollowersCount)
	assert.Equal(t, "42", stats.UserID)

	assert.False(t, f.log.Contains("super-secret"), "csrf token must never be logged")
}

func TestStartScanFillsSessionFromCredentials(t *testing.T) {
	creds := auth.NewStaticSource("test", map[string]string{
		auth.CookieUserID:    "42",
		auth.CookieCSRFToken: "tok",
	})
	f := newFixture(t, creds)

	rec := f.do(t, http.MethodPost, "/api/commands", `{"action":"START_SCAN","config":{"delayMs":0}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	f.engine.Wait()

	assert.Equal(t, []string{"tok", "tok"}, f.mock.CSRFTokens())
}

func TestStartScanWithoutSession(t *testing.T) {
	f := newFixture(t, auth.NewStaticSource("empty", nil))

	rec := f.do(t, http.MethodPost, "/api/commands", `{"action":"START_SCAN"}`)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	var ack scan.Ack
	decodeBody(t, rec, &ack)
	assert.Equal(t, "session not found", ack.Error)
	assert.Zero(t, f.mock.RequestCount())
	assert.False(t, f.engine.Scanning())
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "bad json", body: `{"action":`, want: http.StatusBadRequest},
		{name: "unknown action", body: `{"action":"PAUSE"}`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			rec := f.do(t, http.MethodPost, "/api/commands", tt.body)
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestStopWhenIdle(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/commands", `{"action":"STOP_SCAN"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	values, err := f.store.Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestGetState(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.store.Set(context.Background(), map[string]any{
		store.KeyLastError:    "Request failed: 429",
		store.KeyIsDownloaded: false,
	}))

	rec := f.do(t, http.MethodGet, "/api/state?keys=lastError,%20currentStats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var values map[string]json.RawMessage
	decodeBody(t, rec, &values)
	assert.Equal(t, `"Request failed: 429"`, string(values[store.KeyLastError]))
	assert.NotContains(t, values, store.KeyIsDownloaded)

	rec = f.do(t, http.MethodGet, "/api/state", "")
	decodeBody(t, rec, &values)
	assert.Len(t, values, 2)
}

func TestExport(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/export", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, f.store.Set(context.Background(), map[string]any{
		store.KeyCurrentStats:        scan.Stats{UserID: "42", Status: scan.StatusCompleted},
		store.KeyCurrentNonFollowers: []scan.Account{{ID: "1", Username: "alice"}},
	}))

	rec = f.do(t, http.MethodGet, "/api/export?download=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="instatrack_results_2024-03-09.json"`, rec.Header().Get("Content-Disposition"))

	var doc map[string]any
	decodeBody(t, rec, &doc)
	assert.Equal(t, "42", doc["userId"])
	assert.Equal(t, float64(1), doc["count"])

	rec = f.do(t, http.MethodGet, "/api/export", "")
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func TestImport(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/import", `{"users":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid file format")

	body := `{"scanDate":"2024-01-01T00:00:00.000Z","userId":"7","count":99,"users":[{"id":"1","username":"a"},{"id":"2","username":"b"}]}`
	rec = f.do(t, http.MethodPost, "/api/import", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int
	decodeBody(t, rec, &resp)
	assert.Equal(t, 2, resp["count"])

	var stats scan.Stats
	_, err := store.GetInto(context.Background(), f.store, store.KeyCurrentStats, &stats)
	require.NoError(t, err)
	assert.Equal(t, scan.SourceImport, stats.Source)

	var downloaded bool
	_, err = store.GetInto(context.Background(), f.store, store.KeyIsDownloaded, &downloaded)
	require.NoError(t, err)
	assert.True(t, downloaded)
}

func TestRequestLoggingOmitsBody(t *testing.T) {
	f := newFixture(t, nil)

	var buf bytes.Buffer
	buf.WriteString(`{"action":"STOP_SCAN","config":{"csrfToken":"hidden-value"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/commands", &buf)
	f.server.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, f.log.Contains("http_request"))
	assert.False(t, f.log.Contains("hidden-value"))
}

func dialWS(t *testing.T, f *fixture) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(f.server)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestWebSocketSnapshotAndChanges(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, map[string]any{
		store.KeyLastError:    "boom",
		store.KeyIsDownloaded: false,
	}))

	conn := dialWS(t, f)

	ev := readEvent(t, conn)
	assert.Equal(t, EventChange, ev.Type)
	assert.Equal(t, store.KeyIsDownloaded, ev.Key)
	assert.JSONEq(t, `false`, string(ev.NewValue))

	ev = readEvent(t, conn)
	assert.Equal(t, store.KeyLastError, ev.Key)
	assert.JSONEq(t, `"boom"`, string(ev.NewValue))

	require.NoError(t, f.store.Set(ctx, map[string]any{store.KeyIsDownloaded: true}))

	ev = readEvent(t, conn)
	assert.Equal(t, store.KeyIsDownloaded, ev.Key)
	assert.JSONEq(t, `true`, string(ev.NewValue))
}

func TestWebSocketCommands(t *testing.T) {
	f := newFixture(t, nil)
	conn := dialWS(t, f)

	require.NoError(t, conn.WriteJSON(scan.Command{Action: scan.ActionStopScan}))

	ev := readEvent(t, conn)
	assert.Equal(t, EventAck, ev.Type)
	require.NotNil(t, ev.Ack)
	assert.True(t, ev.Ack.Stopped)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "NOPE"}))
	ev = readEvent(t, conn)
	require.NotNil(t, ev.Ack)
	assert.Equal(t, "unknown action", ev.Ack.Error)
}
