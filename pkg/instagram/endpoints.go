package instagram

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// GraphQLEndpoint is the path of the persisted-query endpoint
	GraphQLEndpoint = "/graphql/query/"

	// FollowQueryHash identifies the "accounts followed by" query
	FollowQueryHash = "3dec7e2c57367ef3da3d987d89f9dbc8"

	// PageSize is the number of edges requested per page
	PageSize = 50
)

// followVariables is the JSON document sent in the variables parameter.
// Field order is fixed so the encoded URL is stable.
type followVariables struct {
	ID          string `json:"id"`
	IncludeReel bool   `json:"include_reel"`
	FetchMutual bool   `json:"fetch_mutual"`
	First       int    `json:"first"`
	After       string `json:"after,omitempty"`
}

// GetFollowURL constructs the URL for one page of the accounts target follows.
// An empty cursor requests the first page.
func GetFollowURL(baseURL, target, cursor string) string {
	return followURL(baseURL, target, cursor, PageSize)
}

func followURL(baseURL, target, cursor string, first int) string {
	if baseURL == "" {
		baseURL = BaseURL
	}
	if first <= 0 || first > PageSize {
		first = PageSize
	}

	vars, _ := json.Marshal(followVariables{
		ID:          target,
		IncludeReel: true,
		FetchMutual: false,
		First:       first,
		After:       cursor,
	})

	params := url.Values{}
	params.Set("query_hash", FollowQueryHash)
	params.Set("variables", string(vars))

	return fmt.Sprintf("%s%s?%s", strings.TrimSuffix(baseURL, "/"), GraphQLEndpoint, params.Encode())
}

// GetUserProfileURL constructs the public profile URL for a user
func GetUserProfileURL(username string) string {
	if username == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/", BaseURL, username)
}
