package scraper

import (
	"context"
	"fmt"

	"igaudit/pkg/auth"
	"igaudit/pkg/config"
	"igaudit/pkg/instagram"
	"igaudit/pkg/logger"
	"igaudit/pkg/ratelimit"
	"igaudit/pkg/report"
	"igaudit/pkg/scan"
	"igaudit/pkg/storage"
	"igaudit/pkg/store"
)

// Scraper wires a scan engine to its store, credentials and exports
type Scraper struct {
	config      *config.Config
	logger      logger.Logger
	store       store.Store
	ownsStore   bool
	engine      *scan.Engine
	credentials *auth.Chain
	exports     *storage.Manager
	autoExport  *report.AutoExporter
	limiter     ratelimit.Limiter
}

type options struct {
	store    store.Store
	notifier scan.Notifier
	sources  []auth.CredentialSource
}

// Option customizes New
type Option func(*options)

// WithStore uses st instead of opening the configured backend. The caller
// keeps ownership of st.
func WithStore(st store.Store) Option {
	return func(o *options) {
		o.store = st
	}
}

// WithNotifier is told when a scan completes. It is only used when
// notifications are enabled in the configuration.
func WithNotifier(n scan.Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithCredentialSources replaces the configured credential sources
func WithCredentialSources(sources ...auth.CredentialSource) Option {
	return func(o *options) {
		o.sources = sources
	}
}

// New creates a Scraper from cfg
func New(cfg *config.Config, log logger.Logger, opts ...Option) (*Scraper, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	s := &Scraper{
		config:  cfg,
		logger:  log,
		store:   o.store,
		limiter: ratelimit.PerMinute(cfg.Instagram.RequestsPerMinute),
	}

	if s.store == nil {
		st, err := store.Open(cfg.Store, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
		}
		s.store = st
		s.ownsStore = true
	}

	exports, err := storage.NewManager(cfg.Export.Directory)
	if err != nil {
		s.closeStore()
		return nil, fmt.Errorf("failed to open export directory: %w", err)
	}
	s.exports = exports

	sources := o.sources
	if sources == nil {
		sources = CredentialSources(cfg, log)
	}
	s.credentials = auth.NewChain(log, sources...)

	engineOpts := []scan.Option{
		scan.WithLogger(log),
		scan.WithJitter(cfg.Scan.Jitter),
		scan.WithFetcherFactory(s.newFetcher),
	}
	if cfg.Notifications.Enabled && o.notifier != nil {
		engineOpts = append(engineOpts, scan.WithNotifier(o.notifier))
	}
	s.engine = scan.NewEngine(s.store, nil, engineOpts...)

	if cfg.Export.Auto {
		s.autoExport = report.NewAutoExporter(s.store, exports, log)
		s.autoExport.Start()
	}

	return s, nil
}

// newFetcher builds a client carrying the scan's session cookie
func (s *Scraper) newFetcher(cfg scan.Config) scan.Fetcher {
	opts := []instagram.Option{
		instagram.WithBaseURL(s.config.Instagram.BaseURL),
		instagram.WithUserAgent(s.config.Instagram.UserAgent),
		instagram.WithSessionID(cfg.SessionID),
		instagram.WithPageSize(s.config.Scan.PageSize),
	}
	if s.limiter != nil {
		opts = append(opts, instagram.WithLimiter(s.limiter))
	}
	return instagram.NewClient(s.config.Instagram.Timeout, s.logger, opts...)
}

// Store returns the persistence store
func (s *Scraper) Store() store.Store { return s.store }

// Engine returns the scan engine
func (s *Scraper) Engine() *scan.Engine { return s.engine }

// Credentials returns the credential chain
func (s *Scraper) Credentials() *auth.Chain { return s.credentials }

// Exports returns the export directory manager
func (s *Scraper) Exports() *storage.Manager { return s.exports }

// AutoExporter returns the auto-exporter, or nil when disabled
func (s *Scraper) AutoExporter() *report.AutoExporter { return s.autoExport }

// ScanConfig turns a session into the engine's scan configuration
func (s *Scraper) ScanConfig(session *auth.Session) scan.Config {
	return scan.Config{
		TargetID:  session.UserID,
		AuthToken: session.CSRFToken,
		SessionID: session.SessionID,
		Delay:     s.config.Scan.Delay,
	}
}

// Scan detects the session and runs one scan to its end
func (s *Scraper) Scan(ctx context.Context) (scan.Stats, error) {
	session, err := s.credentials.Detect(ctx)
	if err != nil {
		return scan.Stats{}, err
	}

	s.logger.InfoWithFields("Starting scan", map[string]interface{}{
		"user_id": session.UserID,
		"source":  session.Source,
	})
	return s.engine.Run(ctx, s.ScanConfig(session))
}

// Close stops any running scan, the auto-exporter and, when opened by New,
// the store
func (s *Scraper) Close() error {
	s.engine.Close()
	if s.autoExport != nil {
		s.autoExport.Stop()
	}
	return s.closeStore()
}

func (s *Scraper) closeStore() error {
	if !s.ownsStore {
		return nil
	}
	return s.store.Close()
}
