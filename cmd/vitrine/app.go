package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"vitrine/cmd/vitrine/ui"
	"vitrine/internal/cart"
	"vitrine/internal/config"
	"vitrine/internal/journal"
	"vitrine/internal/logging"
	"vitrine/internal/notify"
	"vitrine/internal/storefront"

	"go.uber.org/zap"
)

// newController builds the process controller. Tests swap in cart.New.
var newController = cart.Init

// app holds the collaborators every command shares.
type app struct {
	cfg     *config.Config
	session *storefront.Session
	client  *cart.Client
	journal *journal.Journal // nil when disabled
}

// openApp connects the cart client and the journal described by c.
func openApp(c *config.Config) (*app, error) {
	session, err := storefront.NewSession(c.Storefront.BaseURL, c.GetRequestTimeout())
	if err != nil {
		return nil, err
	}
	client, err := cart.NewClient(c.Storefront.BaseURL, cart.WithHTTPClient(session.HTTPClient()))
	if err != nil {
		return nil, err
	}
	a := &app{cfg: c, session: session, client: client}

	if path := c.Storefront.CookieFile; path != "" {
		if err := session.LoadCookies(path); err != nil {
			logger.Warn("starting a fresh cart session", zap.String("cookies", path), zap.Error(err))
		}
	}

	if c.Journal.Enabled {
		j, err := journal.Open(c.Journal.Path)
		if err != nil {
			// The controller works without a journal.
			logger.Warn("journal unavailable", zap.String("path", c.Journal.Path), zap.Error(err))
			logging.JournalError("open %s: %v", c.Journal.Path, err)
		} else {
			a.journal = j
		}
	}
	return a, nil
}

// controller returns the controller bound to view.
func (a *app) controller(view cart.View) *cart.Controller {
	opts := []cart.Option{cart.WithNotificationDuration(a.cfg.GetNotificationDuration())}
	if a.journal != nil {
		opts = append(opts, cart.WithRecorder(a.journal))
	}
	return newController(a.client, view, opts...)
}

// Close persists the session cookies and closes the journal.
func (a *app) Close() {
	if path := a.cfg.Storefront.CookieFile; path != "" {
		if err := a.session.SaveCookies(path); err != nil {
			logger.Warn("failed to save cart session", zap.String("cookies", path), zap.Error(err))
		}
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			logger.Warn("failed to close journal", zap.Error(err))
		}
	}
}

func (a *app) styles() ui.Styles {
	return ui.NewStyles(ui.ThemeFor(a.cfg.UI.Theme))
}

// commandContext bounds a one-shot command by --timeout.
func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// textView is the cart.View of one-shot commands. The process exits right
// after the action, so notifications are printed once as they arrive.
type textView struct {
	mu      sync.Mutex
	out     io.Writer
	styles  ui.Styles
	open    bool
	reloads int
}

func newTextView(out io.Writer, styles ui.Styles) *textView {
	return &textView{
		out:    out,
		styles: styles,
	}
}

func (v *textView) SetDrawerOpen(open bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.open = open
}

func (v *textView) SetScrollLocked(bool) {}

func (v *textView) SetCount(int) {}

func (v *textView) Notify(n notify.Notification) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, v.styles.Notification(n))
}

func (v *textView) Reload() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reloads++
}

// Reloaded reports whether the controller asked for a reload.
func (v *textView) Reloaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reloads > 0
}
