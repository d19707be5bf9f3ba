// Package instagram fetches pages of the "accounts followed by" list from
// Instagram's web GraphQL endpoint.
//
// The client mimics what a logged-in browser tab sends: the csrftoken cookie
// value travels in the x-csrftoken header, and session cookies, when known,
// travel in the Cookie header. Every failure comes back as a typed
// *errors.Error so the scan engine can turn it into a user-facing message.
//
//	client := instagram.NewClient(30*time.Second, log,
//	    instagram.WithSessionID(session.SessionID))
//
//	page, err := client.FetchFollowPage(ctx, "", userID, csrfToken)
//	if errs.IsType(err, errs.ErrorTypeRateLimited) {
//	    // stop and tell the user to come back later
//	}
package instagram
