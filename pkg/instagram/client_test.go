package instagram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	errs "igaudit/pkg/errors"
	"igaudit/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageBody = `{
  "data": {"user": {"edge_follow": {
    "count": 2,
    "page_info": {"has_next_page": true, "end_cursor": "QVFE"},
    "edges": [
      {"node": {"id": "1", "username": "alice", "full_name": "Alice", "profile_pic_url": "https://cdn/a.jpg", "is_verified": true, "follows_viewer": false}},
      {"node": {"id": "2", "username": "bob", "full_name": "Bob", "profile_pic_url": "https://cdn/b.jpg", "is_verified": false, "follows_viewer": true}}
    ]
  }}},
  "status": "ok"
}`

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *logger.TestLogger) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logger.NewTestLogger()
	return NewClient(5*time.Second, log, WithBaseURL(srv.URL)), log
}

func TestGetFollowURL(t *testing.T) {
	tests := []struct {
		name   string
		cursor string
		want   map[string]interface{}
	}{
		{
			name: "first page",
			want: map[string]interface{}{"id": "42", "include_reel": true, "fetch_mutual": false, "first": float64(50)},
		},
		{
			name:   "with cursor",
			cursor: "QVFE==",
			want:   map[string]interface{}{"id": "42", "include_reel": true, "fetch_mutual": false, "first": float64(50), "after": "QVFE=="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := GetFollowURL("", "42", tt.cursor)

			u, err := url.Parse(raw)
			require.NoError(t, err)
			assert.Equal(t, "www.instagram.com", u.Host)
			assert.Equal(t, GraphQLEndpoint, u.Path)
			assert.Equal(t, FollowQueryHash, u.Query().Get("query_hash"))

			var vars map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(u.Query().Get("variables")), &vars))
			assert.Equal(t, tt.want, vars)
		})
	}
}

func TestGetFollowURLCustomBase(t *testing.T) {
	raw := GetFollowURL("http://127.0.0.1:9999/", "1", "")
	assert.Contains(t, raw, "http://127.0.0.1:9999/graphql/query/?")
}

func TestFetchFollowPageSuccess(t *testing.T) {
	client, log := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-token", r.Header.Get("X-CSRFToken"))
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		assert.Equal(t, "*/*", r.Header.Get("Accept"))
		assert.Empty(t, r.Header.Get("Cookie"))
		w.Write([]byte(pageBody))
	})

	page, err := client.FetchFollowPage(context.Background(), "", "42", "secret-token")
	require.NoError(t, err)

	assert.Equal(t, 2, page.Count)
	assert.True(t, page.PageInfo.HasNextPage)
	assert.Equal(t, "QVFE", page.PageInfo.EndCursor)
	require.Len(t, page.Edges, 2)
	assert.Equal(t, "alice", page.Edges[0].Node.Username)
	assert.True(t, page.Edges[0].Node.IsVerified)
	assert.True(t, page.Edges[1].Node.FollowsViewer)

	assert.False(t, log.Contains("secret-token"), "auth token must never be logged")
}

func TestFetchFollowPageSendsSessionCookie(t *testing.T) {
	var cookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie = r.Header.Get("Cookie")
		w.Write([]byte(pageBody))
	}))
	defer srv.Close()

	client := NewClient(5*time.Second, logger.NewNopLogger(), WithBaseURL(srv.URL), WithSessionID("sess"))
	_, err := client.FetchFollowPage(context.Background(), "", "42", "tok")
	require.NoError(t, err)
	assert.Equal(t, "sessionid=sess; ds_user_id=42; csrftoken=tok", cookie)
}

func TestFetchFollowPageErrors(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantType errs.ErrorType
		wantCode int
	}{
		{
			name:     "rate limited",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) },
			wantType: errs.ErrorTypeRateLimited,
			wantCode: 429,
		},
		{
			name:     "server error",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			wantType: errs.ErrorTypeUpstream,
			wantCode: 500,
		},
		{
			name:     "not json",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html>login</html>")) },
			wantType: errs.ErrorTypeParse,
		},
		{
			name:     "missing edge_follow",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"data":{"user":{}}}`)) },
			wantType: errs.ErrorTypeParse,
		},
		{
			name: "next page without cursor",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"data":{"user":{"edge_follow":{"count":3,"page_info":{"has_next_page":true,"end_cursor":null},"edges":[]}}},"status":"ok"}`))
			},
			wantType: errs.ErrorTypeParse,
		},
		{
			name:     "null user",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"data":{"user":null},"status":"ok"}`)) },
			wantType: errs.ErrorTypeParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestServer(t, tt.handler)

			_, err := client.FetchFollowPage(context.Background(), "", "42", "tok")
			require.Error(t, err)
			assert.Equal(t, tt.wantType, errs.TypeOf(err))

			var e *errs.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.wantCode, e.Code)
		})
	}
}

func TestFetchFollowPageTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(time.Second, logger.NewNopLogger(), WithBaseURL(srv.URL))
	_, err := client.FetchFollowPage(context.Background(), "", "42", "tok")
	assert.True(t, errs.IsType(err, errs.ErrorTypeTransport))
	assert.NotContains(t, err.Error(), "query_hash")
}

func TestFetchFollowPagePreconditions(t *testing.T) {
	var hits int32
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	})

	_, err := client.FetchFollowPage(context.Background(), "", "42", "")
	assert.True(t, errs.IsType(err, errs.ErrorTypePreconditionMissing))

	_, err = client.FetchFollowPage(context.Background(), "", "", "tok")
	assert.True(t, errs.IsType(err, errs.ErrorTypePreconditionMissing))

	assert.Zero(t, atomic.LoadInt32(&hits), "no request should be made without credentials")
}

func TestFetchFollowPageCancelledContext(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(pageBody))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchFollowPage(ctx, "", "42", "tok")
	assert.True(t, errs.IsType(err, errs.ErrorTypeTransport))
}

type countingLimiter struct{ waits int32 }

func (l *countingLimiter) Wait(ctx context.Context) error {
	atomic.AddInt32(&l.waits, 1)
	return nil
}

func TestFetchFollowPageConsultsLimiter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pageBody))
	}))
	defer srv.Close()

	limiter := &countingLimiter{}
	client := NewClient(time.Second, logger.NewNopLogger(), WithBaseURL(srv.URL), WithLimiter(limiter))

	for i := 0; i < 3; i++ {
		_, err := client.FetchFollowPage(context.Background(), "", "42", "tok")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&limiter.waits))
}

func TestFetchFollowPageHonorsPageSize(t *testing.T) {
	var first float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var vars map[string]interface{}
		_ = json.Unmarshal([]byte(r.URL.Query().Get("variables")), &vars)
		first, _ = vars["first"].(float64)
		w.Write([]byte(pageBody))
	}))
	defer srv.Close()

	client := NewClient(time.Second, logger.NewNopLogger(), WithBaseURL(srv.URL), WithPageSize(12))
	_, err := client.FetchFollowPage(context.Background(), "", "42", "tok")
	require.NoError(t, err)
	assert.Equal(t, float64(12), first)
}
