package scan

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	errs "igaudit/pkg/errors"
	"igaudit/pkg/instagram"
	"igaudit/pkg/logger"
	"igaudit/pkg/pacing"
	"igaudit/pkg/store"
)

// ErrAlreadyScanning is returned by Run while another scan is in progress
var ErrAlreadyScanning = errors.New("scan already in progress")

// Fetcher retrieves one page of the accounts target follows
type Fetcher interface {
	FetchFollowPage(ctx context.Context, cursor, target, authToken string) (*instagram.FollowPage, error)
}

// FetcherFactory builds a Fetcher for one scan, for hosts that need the
// scan's session cookies baked into the client.
type FetcherFactory func(cfg Config) Fetcher

// Notifier is told when a scan completes normally
type Notifier interface {
	NotifyScanComplete(nonFollowers, processed int) error
}

// Engine runs at most one scan at a time and reports through a store.
// It holds no reference to whatever observes the store.
type Engine struct {
	store      store.Store
	fetcher    Fetcher
	newFetcher FetcherFactory
	notifier   Notifier
	logger     logger.Logger
	jitter     time.Duration
	now        func() time.Time
	newID      func() string

	scanning      atomic.Bool
	stopRequested atomic.Bool

	mu     sync.Mutex
	stopCh chan struct{}

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.logger = log
		}
	}
}

// WithNotifier sets the completion notifier
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithJitter sets the upper bound of the random part of each pacing wait
func WithJitter(d time.Duration) Option {
	return func(e *Engine) {
		e.jitter = d
	}
}

// WithFetcherFactory builds a fresh fetcher for every scan
func WithFetcherFactory(f FetcherFactory) Option {
	return func(e *Engine) {
		e.newFetcher = f
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine writing to st. fetcher may be nil when a
// FetcherFactory is supplied.
func NewEngine(st store.Store, fetcher Fetcher, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		store:   st,
		fetcher: fetcher,
		logger:  logger.NewNopLogger(),
		jitter:  pacing.DefaultJitter,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
		baseCtx: ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithField("component", "scan")
	return e
}

// Run executes one scan synchronously and returns its final stats.
// Cancelling ctx is treated like a stop request.
func (e *Engine) Run(ctx context.Context, cfg Config) (Stats, error) {
	if err := cfg.Validate(); err != nil {
		return Stats{}, err
	}
	if !e.scanning.CompareAndSwap(false, true) {
		return Stats{}, ErrAlreadyScanning
	}
	e.resetStop()
	return e.loop(ctx, cfg)
}

// Scanning reports whether a scan loop is active
func (e *Engine) Scanning() bool {
	return e.scanning.Load()
}

// Wait blocks until the background scan, if any, has finished
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close stops any running scan and waits for it to exit
func (e *Engine) Close() {
	e.requestStop()
	e.cancel()
	e.wg.Wait()
}

func (e *Engine) resetStop() {
	e.mu.Lock()
	e.stopCh = make(chan struct{})
	e.mu.Unlock()
	e.stopRequested.Store(false)
}

func (e *Engine) requestStop() {
	e.stopRequested.Store(true)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopCh != nil {
		select {
		case <-e.stopCh:
		default:
			close(e.stopCh)
		}
	}
}

func (e *Engine) stopSignal() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopCh
}

// loop is the scan itself. The caller must have set e.scanning.
func (e *Engine) loop(ctx context.Context, cfg Config) (Stats, error) {
	defer e.scanning.Store(false)

	fetcher := e.fetcher
	if e.newFetcher != nil {
		fetcher = e.newFetcher(cfg)
	}

	state := NewState(e.newID(), cfg.TargetID, e.now())
	log := e.logger.WithField("scan_id", state.Stats.ScanID)
	logger.LogComponentStart(log, "scan", map[string]interface{}{
		"target": cfg.TargetID,
		"delay":  cfg.Delay,
	})

	stats, accounts := state.Snapshot()
	e.persist(ctx, log, map[string]any{
		store.KeyCurrentStats:        stats,
		store.KeyCurrentNonFollowers: accounts,
		store.KeyIsDownloaded:        false,
		store.KeyLastError:           nil,
	})

	pacer := pacing.NewJittered(cfg.Delay, e.jitter)
	stop := e.stopSignal()
	cursor := ""

	for {
		if e.stopped(ctx) {
			return e.finish(ctx, log, state, StatusIdle, "stop requested"), nil
		}

		page, err := fetcher.FetchFollowPage(ctx, cursor, cfg.TargetID, cfg.AuthToken)
		if err != nil {
			if ctx.Err() != nil {
				return e.finish(ctx, log, state, StatusIdle, "context cancelled"), nil
			}
			return e.fail(ctx, log, state, err), err
		}

		state.ApplyPage(page, e.now())
		stats, accounts := state.Snapshot()
		e.persist(ctx, log, map[string]any{
			store.KeyCurrentStats:        stats,
			store.KeyCurrentNonFollowers: accounts,
		})
		logger.LogScanProgress(log, stats.ScanID, stats.ProcessedCount, stats.TotalFollowed, stats.NonFollowersCount)

		if !page.PageInfo.HasNextPage {
			break
		}
		if err := checkCursor(cursor, page.PageInfo.EndCursor); err != nil {
			return e.fail(ctx, log, state, err), err
		}
		if e.stopped(ctx) {
			return e.finish(ctx, log, state, StatusIdle, "stop requested"), nil
		}
		cursor = page.PageInfo.EndCursor

		if err := pacing.Wait(ctx, pacer.NextDelay(), stop); err != nil {
			return e.finish(ctx, log, state, StatusIdle, "context cancelled"), nil
		}
	}

	if e.stopRequested.Load() {
		return e.finish(ctx, log, state, StatusIdle, "stop requested"), nil
	}

	final := e.finish(ctx, log, state, StatusCompleted, "completed")
	if e.notifier != nil {
		go func(n Notifier, nonFollowers, processed int) {
			if err := n.NotifyScanComplete(nonFollowers, processed); err != nil {
				log.WithError(err).Debug("Completion notification failed")
			}
		}(e.notifier, final.NonFollowersCount, final.ProcessedCount)
	}
	return final, nil
}

// checkCursor rejects a next cursor that would not advance the scan: an
// empty one requests the first page again and a repeated one loops.
func checkCursor(current, next string) error {
	if next == "" {
		return errs.New(errs.ErrorTypeParse, "has_next_page without end_cursor")
	}
	if next == current {
		return errs.New(errs.ErrorTypeParse, "end_cursor did not advance")
	}
	return nil
}

func (e *Engine) stopped(ctx context.Context) bool {
	return e.stopRequested.Load() || ctx.Err() != nil
}

func (e *Engine) finish(ctx context.Context, log logger.Logger, state *State, status Status, reason string) Stats {
	state.Finish(status, e.now())
	stats, accounts := state.Snapshot()
	e.persist(context.WithoutCancel(ctx), log, map[string]any{
		store.KeyCurrentStats:        stats,
		store.KeyCurrentNonFollowers: accounts,
	})
	logger.LogComponentStop(log, "scan", reason)
	return stats
}

func (e *Engine) fail(ctx context.Context, log logger.Logger, state *State, err error) Stats {
	message := errs.UserMessage(err)
	log.WithError(err).ErrorWithFields("Scan failed", map[string]interface{}{
		"error_type": string(errs.TypeOf(err)),
		"processed":  state.Stats.ProcessedCount,
	})

	state.Finish(StatusError, e.now())
	stats, accounts := state.Snapshot()
	e.persist(context.WithoutCancel(ctx), log, map[string]any{
		store.KeyCurrentStats:        stats,
		store.KeyCurrentNonFollowers: accounts,
		store.KeyLastError:           message,
	})
	return stats
}

// persist writes values, logging failures instead of aborting the scan.
// Observers are best effort; the loop's own state stays authoritative.
func (e *Engine) persist(ctx context.Context, log logger.Logger, values map[string]any) {
	if err := e.store.Set(ctx, values); err != nil {
		log.WithError(err).Warn("Failed to persist scan state")
	}
}
