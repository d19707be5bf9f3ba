// Package scraper assembles a ready-to-run scan from configuration.
//
// It owns the pieces every front end needs: the persistence store, the
// scan engine and its Instagram fetcher, the credential chain, the export
// directory and the auto-exporter. Commands and the server build one
// Scraper and close it when done.
//
// Usage:
//
//	s, err := scraper.New(cfg, log)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	stats, err := s.Scan(ctx)
//
// Rate Limiting:
//
// Pacing between pages comes from the scan delay and jitter. When
// instagram.requests_per_minute is set, a token bucket additionally caps
// how often the follow query is sent.
package scraper
