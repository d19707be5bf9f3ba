package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCookieExtractionGuide writes step-by-step instructions for copying
// the session cookies out of a browser
func ShowCookieExtractionGuide(w io.Writer) {
	line := strings.Repeat("=", 72)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "INSTAGRAM SESSION COOKIES")
	fmt.Fprintln(w, line)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "igaudit reads your own follow list with the cookies of a signed-in browser.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. Sign in at https://www.instagram.com")
	fmt.Fprintln(w, "2. Open Developer Tools (F12, or Cmd+Option+I on macOS)")
	fmt.Fprintln(w, "3. Application tab (Chrome) or Storage tab (Firefox) > Cookies > https://www.instagram.com")
	fmt.Fprintln(w, "4. Copy these values:")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "   %-11s numeric id of your account (required)\n", CookieUserID)
	fmt.Fprintf(w, "   %-11s 32 character token (required)\n", CookieCSRFToken)
	fmt.Fprintf(w, "   %-11s long value containing %%3A (recommended outside the browser)\n", CookieSessionID)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Alternatively start Chrome with --remote-debugging-port=9222 and add")
	fmt.Fprintln(w, "\"chrome\" to credentials.sources to read them automatically.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "These cookies give full access to your account. Never share them.")
	fmt.Fprintln(w, line)
}

// ShowQuickExtractGuide writes a condensed version for experienced users
func ShowQuickExtractGuide(w io.Writer) {
	fmt.Fprintf(w, "Need %s, %s and optionally %s from instagram.com cookies (type 'help' for details)\n",
		CookieUserID, CookieCSRFToken, CookieSessionID)
}
