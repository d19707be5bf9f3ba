package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igaudit/pkg/logger"
	"igaudit/pkg/scan"
	"igaudit/pkg/storage"
	"igaudit/pkg/store"
)

var (
	scanTime = time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC)

	alice = scan.Account{ID: "1", Username: "alice", FullName: "Alice & Co", ProfilePicURL: "https://cdn.example/a.jpg?x=1&y=2", IsVerified: true}
	bob   = scan.Account{ID: "2", Username: "bob", ProfilePicURL: "https://cdn.example/b.jpg"}
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
}

func seed(t *testing.T, st store.Store, stats scan.Stats, users []scan.Account, downloaded bool) {
	t.Helper()
	require.NoError(t, st.Set(context.Background(), map[string]any{
		store.KeyCurrentStats:        stats,
		store.KeyCurrentNonFollowers: users,
		store.KeyIsDownloaded:        downloaded,
	}))
}

func completedStats(n int) scan.Stats {
	return scan.Stats{
		TotalFollowed:     n,
		ProcessedCount:    n,
		NonFollowersCount: n,
		Progress:          100,
		Status:            scan.StatusCompleted,
		Source:            scan.SourceScan,
		UserID:            "42",
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "instatrack_results_2024-03-01.json", FileName(scanTime))

	// late evening west of UTC is already the next day
	local := time.Date(2024, 3, 1, 23, 0, 0, 0, time.FixedZone("PST", -8*3600))
	assert.Equal(t, "instatrack_results_2024-03-02.json", FileName(local))
}

func TestExportGolden(t *testing.T) {
	st := store.NewMemoryStore()
	seed(t, st, completedStats(2), []scan.Account{alice, bob}, false)

	doc, err := Export(context.Background(), st, "", scanTime)
	require.NoError(t, err)

	data, err := Marshal(doc)
	require.NoError(t, err)

	newGoldie(t).Assert(t, "export", data)
}

func TestExportExplicitUserID(t *testing.T) {
	st := store.NewMemoryStore()
	seed(t, st, completedStats(1), []scan.Account{alice}, false)

	doc, err := Export(context.Background(), st, "777", scanTime)
	require.NoError(t, err)
	assert.Equal(t, "777", doc.UserID)
	assert.Equal(t, 1, doc.Count)
}

func TestExportNothing(t *testing.T) {
	st := store.NewMemoryStore()

	_, err := Export(context.Background(), st, "42", scanTime)
	assert.ErrorIs(t, err, ErrNothingToExport)

	seed(t, st, completedStats(0), []scan.Account{}, false)
	_, err = Export(context.Background(), st, "42", scanTime)
	assert.ErrorIs(t, err, ErrNothingToExport)
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	doc := &Document{ScanDate: "2024-03-01T12:30:45.000Z", UserID: "42", Count: 1, Users: []scan.Account{bob}}

	path, err := WriteFile(dir, doc, scanTime)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "instatrack_results_2024-03-01.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"scanDate\""))

	var back Document
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, *doc, back)
}

func TestImport(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(context.Background(), map[string]any{store.KeyLastError: "instagram error: 500"}))

	input := `{"scanDate":"2024-03-01T12:30:45.000Z","userId":"42","count":2,"users":[
		{"id":"1","username":"a","full_name":"A","profile_pic_url":"","is_verified":false,"follows_viewer":false},
		{"id":"2","username":"b","full_name":"B","profile_pic_url":"","is_verified":true,"follows_viewer":false}]}`

	doc, err := Import(context.Background(), st, strings.NewReader(input), scanTime)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Count)

	var stats scan.Stats
	ok, err := store.GetInto(context.Background(), st, store.KeyCurrentStats, &stats)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, scan.StatusCompleted, stats.Status)
	assert.Equal(t, scan.SourceImport, stats.Source)
	assert.Equal(t, 2, stats.TotalFollowed)
	assert.Equal(t, 2, stats.ProcessedCount)
	assert.Equal(t, 2, stats.NonFollowersCount)
	assert.Equal(t, 100, stats.Progress)

	var users []scan.Account
	_, err = store.GetInto(context.Background(), st, store.KeyCurrentNonFollowers, &users)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a", users[0].Username)
	assert.Equal(t, "b", users[1].Username)

	var downloaded bool
	_, err = store.GetInto(context.Background(), st, store.KeyIsDownloaded, &downloaded)
	require.NoError(t, err)
	assert.True(t, downloaded)

	var lastErr string
	ok, err = store.GetInto(context.Background(), st, store.KeyLastError, &lastErr)
	require.NoError(t, err)
	assert.False(t, ok, "lastError should be cleared")
}

func TestImportCountFollowsUsers(t *testing.T) {
	st := store.NewMemoryStore()

	doc, err := Import(context.Background(), st, strings.NewReader(`{"count":99,"users":[{"id":"1","username":"a"}]}`), scanTime)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Count)
}

func TestImportRejectsInvalid(t *testing.T) {
	inputs := map[string]string{
		"not json":      `hello`,
		"missing users": `{"count":2}`,
		"users object":  `{"users":{"id":"1"}}`,
		"users null":    `{"users":null}`,
		"users string":  `{"users":"abc"}`,
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			st := store.NewMemoryStore()
			_, err := Import(context.Background(), st, strings.NewReader(input), scanTime)
			assert.ErrorIs(t, err, ErrInvalidDocument)

			values, err := st.Get(context.Background())
			require.NoError(t, err)
			assert.Empty(t, values, "store must be untouched")
		})
	}
}

func TestImportThenExportRoundTrip(t *testing.T) {
	st := store.NewMemoryStore()
	src := &Document{ScanDate: "2024-03-01T12:30:45.000Z", UserID: "42", Count: 2, Users: []scan.Account{alice, bob}}
	data, err := Marshal(src)
	require.NoError(t, err)

	_, err = Import(context.Background(), st, strings.NewReader(string(data)), scanTime)
	require.NoError(t, err)

	doc, err := Export(context.Background(), st, "", scanTime)
	require.NoError(t, err)
	assert.Equal(t, src, doc)
}

func newAutoExporter(t *testing.T, st store.Store) (*AutoExporter, string) {
	t.Helper()
	dir := t.TempDir()
	manager, err := storage.NewManager(dir)
	require.NoError(t, err)

	a := NewAutoExporter(st, manager, logger.NewTestLogger())
	a.now = func() time.Time { return scanTime }
	a.Start()
	t.Cleanup(a.Stop)
	return a, dir
}

func TestAutoExportOnCompletion(t *testing.T) {
	st := store.NewMemoryStore()
	a, dir := newAutoExporter(t, st)

	running := completedStats(2)
	running.Status = scan.StatusScanning
	seed(t, st, running, []scan.Account{alice}, false)
	assert.Empty(t, a.LastPath(), "nothing is written while scanning")

	seed(t, st, completedStats(2), []scan.Account{alice, bob}, false)

	path := filepath.Join(dir, "instatrack_results_2024-03-01.json")
	assert.Equal(t, path, a.LastPath())
	assert.FileExists(t, path)

	var downloaded bool
	_, err := store.GetInto(context.Background(), st, store.KeyIsDownloaded, &downloaded)
	require.NoError(t, err)
	assert.True(t, downloaded)
}

func TestAutoExportOnlyOnce(t *testing.T) {
	st := store.NewMemoryStore()
	_, dir := newAutoExporter(t, st)

	seed(t, st, completedStats(1), []scan.Account{alice}, false)
	path := filepath.Join(dir, "instatrack_results_2024-03-01.json")
	require.FileExists(t, path)
	require.NoError(t, os.Remove(path))

	// a later stats write for the same completed scan does not re-export
	require.NoError(t, st.Set(context.Background(), map[string]any{store.KeyCurrentStats: completedStats(1)}))
	assert.NoFileExists(t, path)
}

func TestAutoExportSkips(t *testing.T) {
	tests := []struct {
		name  string
		stats scan.Stats
		users []scan.Account
	}{
		{name: "import source", stats: func() scan.Stats { s := completedStats(1); s.Source = scan.SourceImport; return s }(), users: []scan.Account{alice}},
		{name: "no results", stats: completedStats(0), users: []scan.Account{}},
		{name: "stopped", stats: func() scan.Stats { s := completedStats(1); s.Status = scan.StatusIdle; return s }(), users: []scan.Account{alice}},
		{name: "failed", stats: func() scan.Stats { s := completedStats(1); s.Status = scan.StatusError; return s }(), users: []scan.Account{alice}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.NewMemoryStore()
			a, dir := newAutoExporter(t, st)

			seed(t, st, tt.stats, tt.users, false)

			assert.Empty(t, a.LastPath())
			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestAutoExportAfterImportDoesNothing(t *testing.T) {
	st := store.NewMemoryStore()
	a, _ := newAutoExporter(t, st)

	_, err := Import(context.Background(), st, strings.NewReader(`{"users":[{"id":"1","username":"a"}]}`), scanTime)
	require.NoError(t, err)
	assert.Empty(t, a.LastPath())
}

func TestAutoExportStop(t *testing.T) {
	st := store.NewMemoryStore()
	a, _ := newAutoExporter(t, st)
	a.Stop()

	seed(t, st, completedStats(1), []scan.Account{alice}, false)
	assert.Empty(t, a.LastPath())
}
