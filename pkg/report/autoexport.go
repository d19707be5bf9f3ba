package report

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"igaudit/pkg/logger"
	"igaudit/pkg/scan"
	"igaudit/pkg/storage"
	"igaudit/pkg/store"
)

// AutoExporter writes the results file once per completed scan. It watches
// the store for a completed scan-sourced stats write and marks the results
// as downloaded after saving them.
type AutoExporter struct {
	store   store.Store
	manager *storage.Manager
	logger  logger.Logger
	now     func() time.Time

	mu          sync.Mutex
	unsubscribe func()
	lastPath    string
}

// NewAutoExporter creates an exporter writing through manager
func NewAutoExporter(st store.Store, manager *storage.Manager, log logger.Logger) *AutoExporter {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &AutoExporter{
		store:   st,
		manager: manager,
		logger:  log.WithField("component", "autoexport"),
		now:     time.Now,
	}
}

// Start subscribes to the store. Calling it twice has no extra effect.
func (a *AutoExporter) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.unsubscribe == nil {
		a.unsubscribe = a.store.Subscribe(a.onChange)
	}
}

// Stop unsubscribes from the store
func (a *AutoExporter) Stop() {
	a.mu.Lock()
	unsubscribe := a.unsubscribe
	a.unsubscribe = nil
	a.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// LastPath returns the most recently written file, if any
func (a *AutoExporter) LastPath() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastPath
}

func (a *AutoExporter) onChange(c store.Change) {
	if c.Key != store.KeyCurrentStats {
		return
	}

	var stats scan.Stats
	if err := json.Unmarshal(c.NewValue, &stats); err != nil {
		return
	}
	if stats.Status != scan.StatusCompleted || stats.Source != scan.SourceScan {
		return
	}

	if _, err := a.Check(context.Background()); err != nil {
		a.logger.WithError(err).Warn("Auto export failed")
	}
}

// Check exports the current results if they qualify and have not been
// downloaded yet. It returns the written path, or "" when nothing was due.
func (a *AutoExporter) Check(ctx context.Context) (string, error) {
	var stats scan.Stats
	if ok, err := store.GetInto(ctx, a.store, store.KeyCurrentStats, &stats); err != nil || !ok {
		return "", err
	}
	if stats.Status != scan.StatusCompleted || stats.Source != scan.SourceScan {
		return "", nil
	}

	var downloaded bool
	if _, err := store.GetInto(ctx, a.store, store.KeyIsDownloaded, &downloaded); err != nil {
		return "", err
	}
	if downloaded {
		return "", nil
	}

	now := a.now()
	doc, err := Export(ctx, a.store, stats.UserID, now)
	if err == ErrNothingToExport {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	path, err := Save(a.manager, doc, now)
	if err != nil {
		return "", err
	}
	if err := a.store.Set(ctx, map[string]any{store.KeyIsDownloaded: true}); err != nil {
		return path, err
	}

	a.mu.Lock()
	a.lastPath = path
	a.mu.Unlock()

	a.logger.InfoWithFields("Results exported", map[string]interface{}{
		"path":  path,
		"count": doc.Count,
	})
	return path, nil
}
