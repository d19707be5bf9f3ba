package auth

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// ChromeSource harvests the session cookies from a running Chrome started
// with --remote-debugging-port, where the user is already signed in.
type ChromeSource struct {
	debugURL   string
	getCookies func(ctx context.Context) ([]*network.Cookie, error)
}

// NewChromeSource creates a source talking to the DevTools endpoint at
// debugURL, e.g. http://127.0.0.1:9222
func NewChromeSource(debugURL string) *ChromeSource {
	c := &ChromeSource{debugURL: debugURL}
	c.getCookies = c.remoteCookies
	return c
}

// Name implements CredentialSource
func (c *ChromeSource) Name() string { return "chrome" }

// Cookies implements CredentialSource
func (c *ChromeSource) Cookies(ctx context.Context) (map[string]string, error) {
	all, err := c.getCookies(ctx)
	if err != nil {
		return nil, err
	}

	wanted := map[string]bool{CookieUserID: true, CookieCSRFToken: true, CookieSessionID: true}
	cookies := make(map[string]string)
	for _, cookie := range all {
		if cookie != nil && wanted[cookie.Name] && cookie.Value != "" {
			cookies[cookie.Name] = cookie.Value
		}
	}

	if len(cookies) == 0 {
		return nil, ErrCredentialsNotFound
	}
	return cookies, nil
}

func (c *ChromeSource) remoteCookies(ctx context.Context) ([]*network.Cookie, error) {
	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, c.debugURL, chromedp.NoModifyURL)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	var cookies []*network.Cookie
	err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().WithURLs([]string{Origin}).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("read chrome cookies: %w", err)
	}
	return cookies, nil
}
