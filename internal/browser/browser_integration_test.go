//go:build integration

package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"vitrine/internal/browser"
	"vitrine/internal/cart"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/require"
)

const productPage = `<!doctype html>
<html><body>
<a href="#" data-toggle="cart" id="cartToggle">Cart <span class="cart-count">0</span></a>
<div id="cartOverlay"></div>
<aside id="cartDrawer"></aside>
<input id="productQuantity" value="2" max="5">
<select name="option_color"><option value="Black" selected>Black</option></select>
<button id="addToCartBtn" data-product-id="42">Add</button>
</body></html>`

// themePage carries the theme's own handlers for the same triggers, the way
// a storefront's main.js registers them.
const themePage = `<!doctype html>
<html><body>
<a href="#" data-toggle="cart" id="cartToggle">Cart <span class="cart-count">0</span></a>
<div id="cartOverlay"></div>
<aside id="cartDrawer"></aside>
<input id="productQuantity" value="1">
<button id="addToCartBtn" data-product-id="42">Add</button>
<script>
window.themeToggles = 0;
document.getElementById('addToCartBtn').addEventListener('click', () => {
	fetch('/api/cart/add', { method: 'POST', body: JSON.stringify({ product_id: '42', quantity: 1 }) });
});
document.getElementById('cartToggle').addEventListener('click', (e) => {
	e.preventDefault();
	window.themeToggles++;
	document.getElementById('cartDrawer').classList.toggle('open');
});
</script>
</body></html>`

func newStorefront(t *testing.T, adds *int32) *httptest.Server {
	return newStorefrontPage(t, adds, productPage)
}

func newStorefrontPage(t *testing.T, adds *int32, html string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "s-1", Path: "/"})
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, html)
	})
	mux.HandleFunc("/api/cart/add", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(adds, 1)
		fmt.Fprint(w, `{"success":true,"cart":{"items":[{},{}]}}`)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func startSession(t *testing.T, url string) (*browser.SessionManager, *browser.Session) {
	cfg := browser.DefaultConfig()
	cfg.Headless = true
	cfg.NavigationTimeoutMs = 10000

	sm := browser.NewSessionManager(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	t.Cleanup(func() {
		if err := sm.Shutdown(context.Background()); err != nil {
			t.Logf("Shutdown error: %v", err)
		}
	})

	require.NoError(t, sm.Start(ctx), "Failed to start browser")
	session, err := sm.CreateSession(ctx, url)
	require.NoError(t, err, "Failed to create session")
	return sm, session
}

func click(t *testing.T, page *rod.Page, selector string) error {
	t.Helper()
	el, err := page.Timeout(10 * time.Second).Element(selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func TestBind_AddToCart_Integration(t *testing.T) {
	var adds int32
	ts := newStorefront(t, &adds)
	sm, session := startSession(t, ts.URL)

	page, ok := sm.Page(session.ID)
	require.True(t, ok)

	client, err := cart.NewClient(ts.URL)
	require.NoError(t, err)
	view := browser.NewDOMView(page)
	ctrl := cart.New(client, view)

	binding, err := browser.Bind(context.Background(), page, ctrl, view)
	require.NoError(t, err)
	defer binding.Stop()

	require.NoError(t, click(t, page, "#addToCartBtn"))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&adds) == 1 && ctrl.Count() == 2 && ctrl.IsOpen()
	}, 10*time.Second, 100*time.Millisecond)

	require.Eventually(t, func() bool {
		return view.ReadCount() == 2
	}, 5*time.Second, 100*time.Millisecond)

	res, err := page.Eval(`() => document.getElementById('cartDrawer').classList.contains('open') && document.body.style.overflow === 'hidden'`)
	require.NoError(t, err)
	require.True(t, res.Value.Bool())
}

func TestBind_ToggleAndEscape_Integration(t *testing.T) {
	var adds int32
	ts := newStorefront(t, &adds)
	sm, session := startSession(t, ts.URL)

	page, ok := sm.Page(session.ID)
	require.True(t, ok)
	view := browser.NewDOMView(page)
	ctrl := cart.New(nil, view)

	binding, err := browser.Bind(context.Background(), page, ctrl, view)
	require.NoError(t, err)
	defer binding.Stop()

	require.NoError(t, click(t, page, "#cartToggle"))
	require.Eventually(t, ctrl.IsOpen, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, page.Keyboard.Type(input.Escape))
	require.Eventually(t, func() bool { return !ctrl.IsOpen() }, 5*time.Second, 50*time.Millisecond)
	require.Zero(t, atomic.LoadInt32(&adds))
}

func TestBind_ThemeListenersSeeNoHandledClicks_Integration(t *testing.T) {
	var adds int32
	ts := newStorefrontPage(t, &adds, themePage)
	sm, session := startSession(t, ts.URL)

	page, ok := sm.Page(session.ID)
	require.True(t, ok)

	client, err := cart.NewClient(ts.URL)
	require.NoError(t, err)
	view := browser.NewDOMView(page)
	ctrl := cart.New(client, view)

	binding, err := browser.Bind(context.Background(), page, ctrl, view)
	require.NoError(t, err)
	defer binding.Stop()

	require.NoError(t, click(t, page, "#addToCartBtn"))
	require.Eventually(t, func() bool { return ctrl.Count() == 2 }, 10*time.Second, 100*time.Millisecond)

	// Give a second request time to land if the theme's handler ran too.
	time.Sleep(500 * time.Millisecond)
	require.EqualValues(t, 1, atomic.LoadInt32(&adds))

	require.NoError(t, click(t, page, "#cartToggle"))
	require.Eventually(t, func() bool { return !ctrl.IsOpen() }, 5*time.Second, 50*time.Millisecond)

	res, err := page.Eval(`() => window.themeToggles`)
	require.NoError(t, err)
	require.Zero(t, res.Value.Int())
}

func TestPageCookies_Integration(t *testing.T) {
	var adds int32
	ts := newStorefront(t, &adds)
	sm, session := startSession(t, ts.URL)

	page, ok := sm.Page(session.ID)
	require.True(t, ok)

	cookies, err := browser.PageCookies(page, ts.URL)
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	require.Equal(t, "session", cookies[0].Name)
	require.Equal(t, "s-1", cookies[0].Value)
}
