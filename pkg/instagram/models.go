package instagram

// followResponse is the envelope returned by the follow query. Pointers let
// the client tell a missing section apart from an empty one.
type followResponse struct {
	Data *struct {
		User *struct {
			EdgeFollow *FollowPage `json:"edge_follow"`
		} `json:"user"`
	} `json:"data"`
	Status string `json:"status"`
}

// FollowPage is one page of the accounts a user follows
type FollowPage struct {
	Count    int      `json:"count"`
	PageInfo PageInfo `json:"page_info"`
	Edges    []Edge   `json:"edges"`
}

// PageInfo contains pagination information
type PageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor"`
}

// Edge wraps a single followed account
type Edge struct {
	Node Node `json:"node"`
}

// Node is a followed account as the upstream describes it
type Node struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	FullName      string `json:"full_name"`
	ProfilePicURL string `json:"profile_pic_url"`
	IsVerified    bool   `json:"is_verified"`
	FollowsViewer bool   `json:"follows_viewer"`
}
