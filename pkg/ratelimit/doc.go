// Package ratelimit puts a request-rate ceiling in front of the page fetcher.
//
// The scan engine already paces itself between pages; this limiter is an
// extra floor for users who run several scans back to back or share an
// address with other tools. It wraps golang.org/x/time/rate.
//
//	limiter := ratelimit.PerMinute(cfg.Instagram.RequestsPerMinute)
//	if limiter != nil {
//	    if err := limiter.Wait(ctx); err != nil {
//	        return err
//	    }
//	}
package ratelimit
