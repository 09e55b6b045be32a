package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"vitrine/cmd/vitrine/ui"
	"vitrine/internal/cart"
	"vitrine/internal/journal"
	"vitrine/internal/notify"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func TestMain(m *testing.M) {
	logger = zap.NewNop()
	// Each command run gets its own controller.
	newController = cart.New
	os.Exit(m.Run())
}

const cartPageHTML = `<html><body>
<span class="cart-count">2</span>
<dd data-cart-discount="100.00">-EGP 100.00</dd>
<dd data-cart-total="900.00">EGP 900.00</dd>
</body></html>`

const cartJSON = `{"items":[{"id":7,"product":{"id":42,"name":"Tote"},"quantity":2,"price":"500.00"}],"subtotal":"1000.00","total":"1000.00"}`

// fakeShop is a storefront answering the cart, search and cart page routes.
type fakeShop struct {
	mu       sync.Mutex
	requests []string
	bodies   []map[string]interface{}
}

func (f *fakeShop) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/cart/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.requests = append(f.requests, r.URL.Path)
		f.bodies = append(f.bodies, body)
		f.mu.Unlock()

		switch {
		case r.URL.Path == "/api/cart/coupon" && body["code"] == "SAVE10":
			fmt.Fprint(w, `{"success":true,"message":"Coupon applied"}`)
		case r.URL.Path == "/api/cart/coupon":
			fmt.Fprint(w, `{"success":false,"message":"Coupon expired"}`)
		case body["product_id"] == "0":
			fmt.Fprint(w, `{"success":false,"message":"Out of stock"}`)
		default:
			fmt.Fprintf(w, `{"success":true,"cart":%s}`, cartJSON)
		}
	})
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"products":[{"id":42,"name":"Tote","price":"500.00","stock":3}]}`)
	})
	mux.HandleFunc("/cart", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, cartPageHTML)
	})
	return mux
}

func (f *fakeShop) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakeShop) lastBody() map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.bodies) == 0 {
		return nil
	}
	return f.bodies[len(f.bodies)-1]
}

type harness struct {
	shop    *fakeShop
	srv     *httptest.Server
	dir     string
	cfgFile string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("VITRINE_BASE_URL", "")
	t.Setenv("VITRINE_JOURNAL", "")
	t.Setenv("VITRINE_CURRENCY", "")

	h := &harness{shop: &fakeShop{}, dir: t.TempDir()}
	h.srv = httptest.NewServer(h.shop.handler())
	t.Cleanup(h.srv.Close)

	doc := map[string]interface{}{
		"storefront": map[string]interface{}{
			"base_url":    h.srv.URL,
			"currency":    "EGP",
			"cart_path":   "/cart",
			"cookie_file": filepath.Join(h.dir, "cookies.json"),
		},
		"journal": map[string]interface{}{
			"enabled": true,
			"path":    filepath.Join(h.dir, "journal.db"),
		},
		"logging": map[string]interface{}{
			"dir": filepath.Join(h.dir, "logs"),
		},
	}
	data, err := yaml.Marshal(doc)
	require.NoError(t, err)
	h.cfgFile = filepath.Join(h.dir, "config.yaml")
	require.NoError(t, os.WriteFile(h.cfgFile, data, 0644))
	return h
}

// resetFlags restores every flag to its default; cobra keeps values between
// Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// run executes the root command with args and returns plain output.
func (h *harness) run(args ...string) (string, error) {
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", h.cfgFile, "--base-url", h.srv.URL}, args...))
	err := rootCmd.Execute()
	return ansi.Strip(out.String()), err
}

// =============================================================================
// OPTIONS
// =============================================================================

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"Color=Black", " Size = M "})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Color": "Black", "Size": "M"}, opts)

	opts, err = parseOptions(nil)
	require.NoError(t, err)
	assert.Nil(t, opts)

	for _, bad := range []string{"Color", "=Black"} {
		_, err := parseOptions([]string{bad})
		assert.Error(t, err, bad)
	}
}

// =============================================================================
// CART COMMANDS
// =============================================================================

func TestAddPrintsCart(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("add", "42", "--qty", "2", "--option", "Color=Black")
	require.NoError(t, err)

	assert.Equal(t, []string{"/api/cart/add"}, h.shop.paths())
	body := h.shop.lastBody()
	assert.Equal(t, "42", body["product_id"])
	assert.EqualValues(t, 2, body["quantity"])
	assert.Equal(t, map[string]interface{}{"Color": "Black"}, body["options"])

	assert.Contains(t, out, cart.MsgAdded)
	assert.Contains(t, out, "Cart 1")
	assert.Contains(t, out, "Tote  x2  EGP 1,000.00")
	assert.Contains(t, out, "Total  EGP 1,000.00")
}

func TestNotificationsPrintOnce(t *testing.T) {
	var out bytes.Buffer
	view := newTextView(&out, ui.NewStyles(ui.ThemeFor("dark")))
	view.Notify(notify.Success(cart.MsgAdded))
	view.Notify(notify.Error("Out of stock"))

	text := ansi.Strip(out.String())
	assert.Equal(t, 1, strings.Count(text, cart.MsgAdded))
	assert.Equal(t, 1, strings.Count(text, "Out of stock"))
	assert.Less(t, strings.Index(text, cart.MsgAdded), strings.Index(text, "Out of stock"))
}

func TestAddFailureShowsServerMessage(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("add", "0", "--qty", "1")
	assert.ErrorIs(t, err, errActionFailed)
	assert.Contains(t, out, "Out of stock")
	assert.NotContains(t, out, "Total")
}

func TestAddRejectsZeroQuantity(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("add", "42", "--qty", "0")
	require.Error(t, err)
	assert.Empty(t, h.shop.paths())
}

func TestUpdateBelowOneIsRefused(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("update", "7", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "use remove")

	_, err = h.run("update", "7", "two")
	require.Error(t, err)
	assert.Empty(t, h.shop.paths())
}

func TestUpdateAndRemove(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("update", "7", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Cart 1")

	_, err = h.run("remove", "7")
	require.NoError(t, err)

	assert.Equal(t, []string{"/api/cart/update", "/api/cart/remove"}, h.shop.paths())
	assert.Equal(t, "7", h.shop.lastBody()["item_id"])
}

func TestCouponPrintsReloadedSummary(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("coupon", "SAVE10")
	require.NoError(t, err)

	assert.Contains(t, out, cart.MsgCouponApplied)
	assert.Contains(t, out, "Cart 2")
	assert.Contains(t, out, "Discount -EGP 100.00")
	assert.Contains(t, out, "Total  EGP 900.00")
}

func TestCouponFailure(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("coupon", "OLD")
	assert.ErrorIs(t, err, errActionFailed)
	assert.Contains(t, out, "Coupon expired")
	assert.NotContains(t, out, "Total")
}

func TestBlankCouponSendsNothing(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("coupon", "   ")
	require.Error(t, err)
	assert.Empty(t, h.shop.paths())
}

// =============================================================================
// SEARCH
// =============================================================================

func TestSearchPrintsResults(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("search", "to", "te")
	require.NoError(t, err)
	assert.Contains(t, out, "Tote")
	assert.Contains(t, out, "EGP 500.00")
}

func TestSearchTooShort(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("search", "t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}

// =============================================================================
// HISTORY
// =============================================================================

func TestHistoryShowsJournal(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("add", "42", "--qty", "1")
	require.NoError(t, err)
	_, err = h.run("coupon", "OLD")
	require.Error(t, err)

	out, err := h.run("history", "--limit", "10")
	require.NoError(t, err)

	assert.Contains(t, out, "ACTION")
	assert.Contains(t, out, "add")
	assert.Contains(t, out, "coupon")
	assert.Contains(t, out, "Coupon expired")
	assert.Contains(t, out, "application: 1")
	assert.Contains(t, out, "ok: 1")
}

func TestHistoryEmpty(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("history", "--limit", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "No cart actions recorded yet.")
}

func TestRenderHistoryRows(t *testing.T) {
	entries := []journal.Entry{
		{ID: 1, Event: cart.Event{Kind: cart.KindRemove, Target: "7", Outcome: cart.OutcomeOK}},
	}
	out := ansi.Strip(renderHistory(entries, lipgloss.NewStyle(), lipgloss.NewStyle()))
	assert.Contains(t, out, "remove")
	assert.Contains(t, out, "7")
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfigInitRefusesOverwrite(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(h.dir, "fresh", "vitrine.yaml")

	out, err := h.run("config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)
	assert.FileExists(t, path)

	_, err = h.run("config", "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = h.run("config", "init", "--config", path, "--force")
	require.NoError(t, err)
}

func TestConfigShowAppliesFlags(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "base_url: "+h.srv.URL)
	assert.True(t, strings.HasPrefix(out, "# "+h.cfgFile))
}
