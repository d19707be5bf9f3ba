package scan

import "igaudit/pkg/instagram"

// Classify returns the accounts in edges that do not follow the viewer back,
// in input order.
func Classify(edges []instagram.Edge) []Account {
	out := make([]Account, 0)
	for _, e := range edges {
		if e.Node.FollowsViewer {
			continue
		}
		out = append(out, Account{
			ID:            e.Node.ID,
			Username:      e.Node.Username,
			FullName:      e.Node.FullName,
			ProfilePicURL: e.Node.ProfilePicURL,
			IsVerified:    e.Node.IsVerified,
			FollowsViewer: e.Node.FollowsViewer,
		})
	}
	return out
}
