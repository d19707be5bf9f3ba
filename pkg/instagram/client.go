package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	errs "igaudit/pkg/errors"
	"igaudit/pkg/logger"
	"igaudit/pkg/ratelimit"
)

// Client fetches follow pages from Instagram
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	sessionID  string
	pageSize   int
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another host (tests, proxies)
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithSessionID sends the sessionid cookie with every request. A browser
// attaches it implicitly; any other host has to supply it.
func WithSessionID(sessionID string) Option {
	return func(c *Client) {
		c.sessionID = sessionID
	}
}

// WithLimiter consults limiter before each request
func WithLimiter(limiter ratelimit.Limiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithPageSize requests n edges per page, capped at PageSize
func WithPageSize(n int) Option {
	return func(c *Client) {
		c.pageSize = n
	}
}

// WithUserAgent overrides the default browser user agent
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.headers["User-Agent"] = ua
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new Instagram client
func NewClient(timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent":       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			"Accept":           "*/*",
			"Accept-Language":  "en-US,en;q=0.9",
			"X-Requested-With": "XMLHttpRequest",
			"Referer":          BaseURL + "/",
			"Sec-Fetch-Dest":   "empty",
			"Sec-Fetch-Mode":   "cors",
			"Sec-Fetch-Site":   "same-origin",
		},
		baseURL:  BaseURL,
		pageSize: PageSize,
		logger:   log.WithField("component", "instagram"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FetchFollowPage retrieves one page of the accounts target follows.
// An empty cursor requests the first page. authToken is the csrftoken
// cookie value and is never logged.
func (c *Client) FetchFollowPage(ctx context.Context, cursor, target, authToken string) (*FollowPage, error) {
	if target == "" || authToken == "" {
		return nil, errs.New(errs.ErrorTypePreconditionMissing, "session not found")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errs.Newf(errs.ErrorTypeTransport, "rate limiter: %v", err)
		}
	}

	url := followURL(c.baseURL, target, cursor, c.pageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Newf(errs.ErrorTypeTransport, "failed to create request: %v", err)
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	req.Header.Set("X-CSRFToken", authToken)
	if c.sessionID != "" {
		req.Header.Set("Cookie", fmt.Sprintf("sessionid=%s; ds_user_id=%s; csrftoken=%s", c.sessionID, target, authToken))
	}

	fields := map[string]interface{}{
		"target":       target,
		"has_cursor":   cursor != "",
		"with_session": c.sessionID != "",
	}
	c.logger.DebugWithFields("fetching follow page", fields)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WarnWithFields("follow page request failed", fields)
		return nil, errs.Newf(errs.ErrorTypeTransport, "%v", unwrapURLError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusTooManyRequests {
			logger.LogRateLimit(c.logger, GraphQLEndpoint, resp.StatusCode)
		} else {
			c.logger.WarnWithFields("unexpected status from follow query", map[string]interface{}{
				"status": resp.StatusCode,
				"target": target,
			})
		}
		return nil, errs.Upstream(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Newf(errs.ErrorTypeTransport, "failed to read response body: %v", err)
	}

	page, err := decodeFollowPage(body)
	if err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse follow page", map[string]interface{}{
			"error":        err.Error(),
			"body_preview": preview,
		})
		return nil, err
	}

	c.logger.DebugWithFields("follow page fetched", map[string]interface{}{
		"edges":         len(page.Edges),
		"count":         page.Count,
		"has_next_page": page.PageInfo.HasNextPage,
		"duration":      time.Since(start),
	})

	return page, nil
}

func decodeFollowPage(body []byte) (*FollowPage, error) {
	var envelope followResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errs.Newf(errs.ErrorTypeParse, "invalid JSON: %v", err)
	}
	if envelope.Data == nil || envelope.Data.User == nil || envelope.Data.User.EdgeFollow == nil {
		return nil, errs.New(errs.ErrorTypeParse, "missing data.user.edge_follow")
	}
	page := envelope.Data.User.EdgeFollow
	if page.PageInfo.HasNextPage && page.PageInfo.EndCursor == "" {
		return nil, errs.New(errs.ErrorTypeParse, "has_next_page without end_cursor")
	}
	return page, nil
}

// unwrapURLError drops the "Get <url>:" prefix net/http adds, which would
// otherwise repeat the whole query string in user-facing messages.
func unwrapURLError(err error) error {
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok && strings.HasPrefix(err.Error(), "Get ") {
		if inner := u.Unwrap(); inner != nil {
			return inner
		}
	}
	return err
}
