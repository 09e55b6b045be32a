// Package storefront reads the server-rendered storefront pages that the
// cart controller does not own, and holds the shopper's cookie session.
package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vitrine/internal/logging"

	"golang.org/x/net/publicsuffix"
)

const (
	// CartPath is the server-rendered cart page.
	CartPath = "/cart"
	// CheckoutPath is where the shopper is handed off to pay.
	CheckoutPath = "/checkout"

	maxPageBytes = 4 << 20
)

// Session is one shopper's cookie-carrying connection to the storefront.
// The same http.Client should back the cart API client so that cart
// mutations and page reads see the same server-side cart.
type Session struct {
	base   *url.URL
	client *http.Client
}

// NewSession creates a session rooted at baseURL.
func NewSession(baseURL string, timeout time.Duration) (*Session, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("base url must be an absolute http(s) url, got %q", baseURL)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Session{
		base:   u,
		client: &http.Client{Jar: jar, Timeout: timeout},
	}, nil
}

// HTTPClient returns the session's cookie-carrying client.
func (s *Session) HTTPClient() *http.Client {
	return s.client
}

// BaseURL returns the storefront root.
func (s *Session) BaseURL() string {
	return s.base.String()
}

// Resolve returns path resolved against the storefront root.
func (s *Session) Resolve(path string) string {
	return s.base.JoinPath(path).String()
}

// SetCookies adopts cookies for the storefront origin, e.g. a browser's
// session cookie, so API calls act on the same server-side cart.
func (s *Session) SetCookies(cookies []*http.Cookie) {
	s.client.Jar.SetCookies(s.base, cookies)
}

// Cookies returns the cookies the session would send to the storefront.
func (s *Session) Cookies() []*http.Cookie {
	return s.client.Jar.Cookies(s.base)
}

// savedCookie is the on-disk form of a session cookie.
type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SaveCookies writes the session cookies to path so a later process can
// resume the same cart.
func (s *Session) SaveCookies(path string) error {
	cookies := s.Cookies()
	saved := make([]savedCookie, len(cookies))
	for i, c := range cookies {
		saved[i] = savedCookie{Name: c.Name, Value: c.Value}
	}
	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cookies: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cookie directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write cookies: %w", err)
	}
	return nil
}

// LoadCookies restores cookies written by SaveCookies. A missing file is
// not an error.
func (s *Session) LoadCookies(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cookies: %w", err)
	}
	var saved []savedCookie
	if err := json.Unmarshal(data, &saved); err != nil {
		return fmt.Errorf("parse cookies %s: %w", path, err)
	}
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, c := range saved {
		if c.Name == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	s.SetCookies(cookies)
	return nil
}

// CheckoutURL is the absolute checkout address.
func (s *Session) CheckoutURL() string {
	return s.Resolve(CheckoutPath)
}

// FetchSummary loads a page (CartPath when path is empty) and reads the
// counter and totals from its markup.
func (s *Session) FetchSummary(ctx context.Context, path string) (Summary, error) {
	if path == "" {
		path = CartPath
	}
	target := s.Resolve(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		logging.TransportWarn("GET %s failed: %v", target, err)
		return Summary{}, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Summary{}, fmt.Errorf("fetch %s: HTTP %d", path, resp.StatusCode)
	}
	sum, err := ParseSummary(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return Summary{}, fmt.Errorf("parse %s: %w", path, err)
	}
	logging.TransportDebug("GET %s -> count=%d in %s", target, sum.Count, time.Since(start))
	return sum, nil
}
