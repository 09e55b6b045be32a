package browser

import (
	"time"

	"vitrine/internal/logging"
	"vitrine/internal/notify"

	"github.com/go-rod/rod"
)

// Element ids and classes of the storefront theme.
const (
	drawerID     = "cartDrawer"
	overlayID    = "cartOverlay"
	countClass   = "cart-count"
	openClass    = "open"
	noticeZIndex = 10000
)

// DOMView renders controller state into a storefront page. Errors are logged;
// the page may have navigated away at any time.
type DOMView struct {
	page    *rod.Page
	timeout time.Duration
}

// NewDOMView creates a view over page.
func NewDOMView(page *rod.Page) *DOMView {
	return &DOMView{page: page, timeout: 5 * time.Second}
}

func (v *DOMView) eval(what, js string, args ...interface{}) {
	if _, err := v.page.Timeout(v.timeout).Eval(js, args...); err != nil {
		logging.BrowserWarn("dom %s failed: %v", what, err)
	}
}

// SetDrawerOpen toggles the open class on the drawer and overlay.
func (v *DOMView) SetDrawerOpen(open bool) {
	v.eval("drawer", `(drawer, overlay, cls, open) => {
		for (const id of [drawer, overlay]) {
			const el = document.getElementById(id);
			if (el) el.classList.toggle(cls, open);
		}
	}`, drawerID, overlayID, openClass, open)
}

// SetScrollLocked hides or restores body overflow.
func (v *DOMView) SetScrollLocked(locked bool) {
	v.eval("scroll", `(locked) => { document.body.style.overflow = locked ? 'hidden' : ''; }`, locked)
}

// SetCount writes the header counter.
func (v *DOMView) SetCount(n int) {
	v.eval("count", `(cls, n) => {
		const el = document.querySelector('.' + cls);
		if (el) el.textContent = String(n);
	}`, countClass, n)
}

// Notify injects a fixed-position notification that removes itself.
func (v *DOMView) Notify(n notify.Notification) {
	v.eval("notify", `(message, color, ms, z) => {
		const el = document.createElement('div');
		el.className = 'notification';
		el.textContent = message;
		Object.assign(el.style, {
			position: 'fixed', top: '20px', right: '20px',
			background: color, color: '#fff',
			padding: '16px 24px', borderRadius: '4px',
			boxShadow: '0 4px 12px rgba(0,0,0,0.15)',
			zIndex: String(z),
		});
		document.body.appendChild(el);
		setTimeout(() => el.remove(), ms);
	}`, n.Message, n.Level.Color(), n.Duration.Milliseconds(), noticeZIndex)
}

// Reload reloads the page from the server.
func (v *DOMView) Reload() {
	if err := v.page.Reload(); err != nil {
		logging.BrowserWarn("reload failed: %v", err)
	}
}

// ReadCount returns the counter currently rendered in the page, or -1.
func (v *DOMView) ReadCount() int {
	res, err := v.page.Timeout(v.timeout).Eval(`(cls) => {
		const el = document.querySelector('.' + cls);
		if (!el) return -1;
		const n = parseInt(el.textContent, 10);
		return isNaN(n) ? -1 : n;
	}`, countClass)
	if err != nil {
		logging.BrowserWarn("read count failed: %v", err)
		return -1
	}
	return res.Value.Int()
}
