package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"igaudit/pkg/instagram"
)

// MockInstagram serves a scripted follow list on /graphql/query/.
// Page i is returned for cursor "cursor-i" (page 0 for no cursor).
type MockInstagram struct {
	server *httptest.Server

	mu        sync.RWMutex
	pages     []instagram.FollowPage
	failures  map[int]int // page index -> status code
	delay     time.Duration
	csrfSeen  []string
	cursors   []string
	requests  int32
	onRequest func(page int)
}

// NewMockInstagram starts a server that serves pages in order
func NewMockInstagram(pages ...instagram.FollowPage) *MockInstagram {
	m := &MockInstagram{
		pages:    pages,
		failures: make(map[int]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(instagram.GraphQLEndpoint, m.handleFollow)
	m.server = httptest.NewServer(mux)
	return m
}

// URL returns the server base URL
func (m *MockInstagram) URL() string {
	return m.server.URL
}

// Close shuts the server down
func (m *MockInstagram) Close() {
	m.server.Close()
}

// FailPage makes page index respond with status instead of data
func (m *MockInstagram) FailPage(index, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[index] = status
}

// SetDelay slows every response down
func (m *MockInstagram) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// OnRequest registers a hook called with the page index before responding
func (m *MockInstagram) OnRequest(fn func(page int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRequest = fn
}

// RequestCount returns how many follow queries were served
func (m *MockInstagram) RequestCount() int {
	return int(atomic.LoadInt32(&m.requests))
}

// CSRFTokens returns the x-csrftoken header of every request
func (m *MockInstagram) CSRFTokens() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.csrfSeen...)
}

// Cursors returns the after variable of every request ("" for none)
func (m *MockInstagram) Cursors() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.cursors...)
}

func (m *MockInstagram) handleFollow(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requests, 1)

	if r.URL.Query().Get("query_hash") != instagram.FollowQueryHash {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var variables struct {
		ID    string `json:"id"`
		First int    `json:"first"`
		After string `json:"after"`
	}
	if err := json.Unmarshal([]byte(r.URL.Query().Get("variables")), &variables); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	index := 0
	if variables.After != "" {
		if _, err := fmt.Sscanf(variables.After, "cursor-%d", &index); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}

	m.mu.Lock()
	m.csrfSeen = append(m.csrfSeen, r.Header.Get("X-CSRFToken"))
	m.cursors = append(m.cursors, variables.After)
	delay := m.delay
	status, fail := m.failures[index]
	hook := m.onRequest
	m.mu.Unlock()

	if hook != nil {
		hook(index)
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		w.WriteHeader(status)
		return
	}
	if index >= len(m.pages) {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data": map[string]interface{}{
			"user": map[string]interface{}{
				"edge_follow": m.pages[index],
			},
		},
		"status": "ok",
	})
}

// BuildPages builds a follow list split into pages of the given sizes,
// with nonFollowers[i] accounts on page i not following back. Every page
// reports total as its count; all but the last link to the next.
func BuildPages(total int, sizes []int, nonFollowers []int) []instagram.FollowPage {
	pages := make([]instagram.FollowPage, len(sizes))
	n := 0
	for i, size := range sizes {
		edges := make([]instagram.Edge, size)
		for j := 0; j < size; j++ {
			n++
			edges[j] = instagram.Edge{Node: instagram.Node{
				ID:            fmt.Sprintf("%d", n),
				Username:      fmt.Sprintf("user%d", n),
				FullName:      fmt.Sprintf("User %d", n),
				ProfilePicURL: fmt.Sprintf("https://cdn.example/%d.jpg", n),
				IsVerified:    n%7 == 0,
				FollowsViewer: j >= nonFollowers[i],
			}}
		}
		pages[i] = instagram.FollowPage{
			Count: total,
			Edges: edges,
			PageInfo: instagram.PageInfo{
				HasNextPage: i < len(sizes)-1,
				EndCursor:   fmt.Sprintf("cursor-%d", i+1),
			},
		}
	}
	return pages
}
