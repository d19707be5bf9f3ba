// Package scan implements the non-follower scan: a single background loop
// that pages through the accounts a user follows, keeps the ones that do
// not follow back, and publishes its progress through a store.Store.
//
// The loop is cooperative. Stop requests and context cancellation are
// honoured between pages and during the pacing wait, never in the middle
// of a request. Every fetch failure ends the scan with status "error"; the
// partial results gathered so far stay in the store.
//
//	engine := scan.NewEngine(st, client, scan.WithLogger(log))
//	ack := engine.Dispatch(scan.Command{
//	    Action: scan.ActionStartScan,
//	    Config: &scan.CommandConfig{UserID: id, CSRFToken: token, DelayMs: 1500},
//	})
package scan
