package browser

import (
	"fmt"
	"net/http"

	"github.com/go-rod/rod"
)

// PageCookies returns the page's cookies for url as net/http cookies, so an
// HTTP client can join the browser's storefront session.
func PageCookies(page *rod.Page, url string) ([]*http.Cookie, error) {
	cookies, err := page.Cookies([]string{url})
	if err != nil {
		return nil, fmt.Errorf("read page cookies: %w", err)
	}
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	return out, nil
}
