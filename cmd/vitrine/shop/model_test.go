package shop

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"vitrine/cmd/vitrine/ui"
	"vitrine/internal/cart"
	"vitrine/internal/config"
	"vitrine/internal/notify"
	"vitrine/internal/search"
	"vitrine/internal/storefront"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// FAKES
// =============================================================================

type fakeBackend struct {
	mu      sync.Mutex
	adds    []cart.AddItem
	updates []cart.UpdateItem
	removes []cart.RemoveItem
	coupons []string
	snap    cart.Snapshot
	err     error
}

func (b *fakeBackend) AddItem(_ context.Context, a cart.AddItem) (cart.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.adds = append(b.adds, a)
	return b.snap, b.err
}

func (b *fakeBackend) UpdateItem(_ context.Context, a cart.UpdateItem) (cart.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, a)
	return b.snap, b.err
}

func (b *fakeBackend) RemoveItem(_ context.Context, a cart.RemoveItem) (cart.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removes = append(b.removes, a)
	return b.snap, b.err
}

func (b *fakeBackend) ApplyCoupon(_ context.Context, a cart.ApplyCoupon) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.coupons = append(b.coupons, a.Code)
	if b.err != nil {
		return "", b.err
	}
	return "Coupon applied successfully!", nil
}

type fakeSearcher struct {
	queries []string
}

func (s *fakeSearcher) Input(q string, _ func(search.Result)) {
	s.queries = append(s.queries, q)
}

type fakeStore struct {
	summary storefront.Summary
	fetches int
}

func (s *fakeStore) FetchSummary(context.Context, string) (storefront.Summary, error) {
	s.fetches++
	return s.summary, nil
}

func (s *fakeStore) CheckoutURL() string { return "http://shop.test/checkout" }

// =============================================================================
// HELPERS
// =============================================================================

type harness struct {
	backend  *fakeBackend
	searcher *fakeSearcher
	store    *fakeStore
	ctrl     *cart.Controller
	bridge   *Bridge
}

func newHarness(t *testing.T) (Model, *harness) {
	t.Helper()
	h := &harness{
		backend:  &fakeBackend{},
		searcher: &fakeSearcher{},
		store:    &fakeStore{},
		bridge:   NewBridge(),
	}
	t.Cleanup(h.bridge.Close)
	h.ctrl = cart.New(h.backend, h.bridge, cart.WithNotificationDuration(time.Second))

	m := New(Config{
		StoreName: "Test Shop",
		Currency:  "USD",
		UI:        config.UIConfig{DrawerWidth: 60},
		Styles:    ui.NewStyles(ui.LightTheme()),
	}, h.ctrl, h.bridge, h.searcher, h.store)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 14})
	return next.(Model), h
}

// pump delivers everything the controller posted so far.
func pump(t *testing.T, m Model, h *harness) Model {
	t.Helper()
	msgs := h.bridge.drain()
	if len(msgs) == 0 {
		return m
	}
	next, _ := m.Update(bridgeMsg(msgs))
	return next.(Model)
}

// collect runs cmd and returns the messages it produces, expanding batches.
// Only call it on commands that do not sleep.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// press sends keys and runs any request they start to completion. Other
// commands, such as cursor blinks and notification ticks, are dropped.
func press(t *testing.T, m Model, h *harness, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		next, cmd := m.Update(k)
		started := next.(Model).busy > m.busy
		m = next.(Model)
		if started {
			for _, msg := range collect(cmd) {
				switch msg.(type) {
				case actionDoneMsg, summaryMsg:
					next, _ = m.Update(msg)
					m = next.(Model)
				}
			}
		}
		m = pump(t, m, h)
	}
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "pgdown":
		return tea.KeyMsg{Type: tea.KeyPgDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func itemsJSON(t *testing.T, items ...cart.Item) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, len(items))
	for i, it := range items {
		b, err := json.Marshal(it)
		require.NoError(t, err)
		out[i] = b
	}
	return out
}

func withResults(m Model, products ...cart.Product) Model {
	next, _ := m.Update(bridgeMsg{resultsMsg{
		result:   search.Result{Query: "bag", Products: products},
		rendered: strings.Repeat("line\n", 60),
	}})
	return next.(Model)
}

var bag = cart.Product{
	ID:    "42",
	Name:  "Leather Bag",
	Price: decimal.NewFromInt(100),
	Stock: 3,
	Options: []cart.ProductOption{
		{Name: "Color", Values: []cart.OptionValue{{Name: "Black"}, {Name: "Brown"}}},
	},
}

// =============================================================================
// PRODUCT PANE
// =============================================================================

func TestAddKeySendsSelection(t *testing.T) {
	m, h := newHarness(t)
	h.backend.snap = cart.Snapshot{Items: itemsJSON(t,
		cart.Item{ID: "1", Product: bag, Quantity: 2, Price: decimal.NewFromInt(100)},
		cart.Item{ID: "2", Quantity: 1, Price: decimal.NewFromInt(5)},
	)}
	m = withResults(m, bag)

	m = press(t, m, h, key("+"), key("o"), key("o"), key("o"), key("a"))

	want := []cart.AddItem{{ProductID: "42", Quantity: 2, Options: map[string]string{"Color": "Brown"}}}
	if diff := cmp.Diff(want, h.backend.adds); diff != "" {
		t.Fatalf("add request mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, m.drawerOpen)
	assert.True(t, m.scrollLocked)
	assert.Equal(t, 2, m.count)
	require.Len(t, m.items, 2)
	assert.Equal(t, "Leather Bag", m.items[0].Product.Name)
	require.Len(t, m.notices, 1)
	assert.Equal(t, cart.MsgAdded, m.notices[0].Message)
	assert.Zero(t, m.busy)
}

func TestAddFailureLeavesDrawerClosed(t *testing.T) {
	m, h := newHarness(t)
	h.backend.err = &cart.ApplicationError{Op: "add", Message: "Out of stock"}
	m = withResults(m, bag)

	m = press(t, m, h, key("a"))

	assert.False(t, m.drawerOpen)
	assert.Zero(t, m.count)
	require.Len(t, m.notices, 1)
	assert.Equal(t, notify.LevelError, m.notices[0].Level)
	assert.Equal(t, "Out of stock", m.notices[0].Message)
}

func TestQuantityBounds(t *testing.T) {
	m, h := newHarness(t)
	m = withResults(m, bag)

	m = press(t, m, h, key("-"))
	assert.Equal(t, 1, m.quantity, "quantity never drops below 1")

	m = press(t, m, h, key("+"), key("+"), key("+"), key("+"))
	assert.Equal(t, bag.Stock, m.quantity, "quantity stops at stock")
}

func TestSelectingAnotherProductResetsQuantity(t *testing.T) {
	m, h := newHarness(t)
	other := cart.Product{ID: "7", Name: "Wallet", Price: decimal.NewFromInt(20), Stock: 9}
	m = withResults(m, bag, other)

	m = press(t, m, h, key("+"), key("j"))
	assert.Equal(t, 1, m.selected)
	assert.Equal(t, 1, m.quantity)

	m = press(t, m, h, key("a"))
	require.Len(t, h.backend.adds, 1)
	assert.Equal(t, "7", h.backend.adds[0].ProductID)
	assert.Nil(t, h.backend.adds[0].Options)
}

func TestAddWithoutProductDoesNothing(t *testing.T) {
	m, h := newHarness(t)
	m = press(t, m, h, key("a"))
	assert.Empty(t, h.backend.adds)
}

func TestSearchTypingFeedsSearcher(t *testing.T) {
	m, h := newHarness(t)
	m = press(t, m, h, key("/"), key("b"), key("a"), key("esc"))

	assert.Equal(t, []string{"b", "ba"}, h.searcher.queries)
	assert.Equal(t, focusProducts, m.focus)

	// Keys go back to the product pane after esc.
	m = press(t, m, h, key("c"))
	assert.True(t, m.drawerOpen)
}

func TestSearchErrorKeepsPreviousResults(t *testing.T) {
	m, _ := newHarness(t)
	m = withResults(m, bag)

	next, _ := m.Update(bridgeMsg{resultsMsg{result: search.Result{Query: "zz", Err: assert.AnError}}})
	m = next.(Model)
	assert.Equal(t, "bag", m.query)
	assert.Len(t, m.products, 1)
}

// =============================================================================
// DRAWER
// =============================================================================

func TestToggleAndEscape(t *testing.T) {
	m, h := newHarness(t)

	m = press(t, m, h, key("c"))
	assert.True(t, m.drawerOpen)
	assert.True(t, m.scrollLocked)

	m = press(t, m, h, key("esc"))
	assert.False(t, m.drawerOpen)
	assert.False(t, m.scrollLocked)

	m = press(t, m, h, key("c"), key("c"))
	assert.False(t, m.drawerOpen)
}

func TestClickOutsideDrawerCloses(t *testing.T) {
	m, h := newHarness(t)
	m = press(t, m, h, key("c"))

	inside := tea.MouseMsg{X: m.width - 2, Y: 3, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
	next, _ := m.Update(inside)
	m = pump(t, next.(Model), h)
	assert.True(t, m.drawerOpen, "click inside the drawer keeps it open")

	outside := tea.MouseMsg{X: 1, Y: 3, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
	next, _ = m.Update(outside)
	m = pump(t, next.(Model), h)
	assert.False(t, m.drawerOpen)
}

func TestScrollLockedWhileDrawerOpen(t *testing.T) {
	m, h := newHarness(t)
	m = withResults(m, bag)

	m = press(t, m, h, key("c"), key("pgdown"))
	assert.Zero(t, m.pane.YOffset, "pane must not scroll under the drawer")

	wheel := tea.MouseMsg{X: 1, Y: 5, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown}
	next, _ := m.Update(wheel)
	m = next.(Model)
	assert.Zero(t, m.pane.YOffset)

	m = press(t, m, h, key("esc"), key("pgdown"))
	assert.Positive(t, m.pane.YOffset)
}

func openWithItems(t *testing.T, m Model, h *harness, qty int) Model {
	t.Helper()
	h.backend.snap = cart.Snapshot{Items: itemsJSON(t,
		cart.Item{ID: "7", Product: bag, Quantity: qty, Price: decimal.NewFromInt(100)},
	)}
	m = withResults(m, bag)
	return press(t, m, h, key("a"))
}

func TestDecreaseBelowOneIsNotSent(t *testing.T) {
	m, h := newHarness(t)
	m = openWithItems(t, m, h, 1)
	require.True(t, m.drawerOpen)

	m = press(t, m, h, key("d"))
	assert.Empty(t, h.backend.updates)

	m = press(t, m, h, key("u"))
	assert.Equal(t, []cart.UpdateItem{{ItemID: "7", Quantity: 2}}, h.backend.updates)
	assert.True(t, m.drawerOpen, "update keeps the drawer as it was")
}

func TestQuantityEditLeavesEarlierModelIntact(t *testing.T) {
	m, h := newHarness(t)
	m = openWithItems(t, m, h, 2)
	require.Len(t, m.items, 1)

	next, _ := m.Update(key("u"))
	assert.Equal(t, 3, next.(Model).items[0].Quantity)
	assert.Equal(t, 2, m.items[0].Quantity)
}

func TestUpdateReloadsSummary(t *testing.T) {
	m, h := newHarness(t)
	m = openWithItems(t, m, h, 2)

	next, cmd := m.Update(key("d"))
	m = next.(Model)
	var done actionDoneMsg
	for _, msg := range collect(cmd) {
		if d, ok := msg.(actionDoneMsg); ok {
			done = d
		}
	}
	require.True(t, done.ok)

	before := h.store.fetches
	_, cmd = m.Update(done)
	collect(cmd)
	assert.Equal(t, before+1, h.store.fetches)
}

func TestRemoveNeedsConfirmation(t *testing.T) {
	m, h := newHarness(t)
	m = openWithItems(t, m, h, 1)

	m = press(t, m, h, key("x"), key("n"))
	assert.Empty(t, h.backend.removes)
	assert.Equal(t, focusProducts, m.focus)

	m = press(t, m, h, key("x"))
	assert.Equal(t, focusConfirmRemove, m.focus)
	assert.Contains(t, m.View(), "(y/n)")

	_ = press(t, m, h, key("y"))
	assert.Equal(t, []cart.RemoveItem{{ItemID: "7"}}, h.backend.removes)
}

func TestCouponEntry(t *testing.T) {
	m, h := newHarness(t)
	m = press(t, m, h, key("c"), key("p"))
	require.Equal(t, focusCoupon, m.focus)

	m = press(t, m, h, key("S"), key("A"), key("V"), key("E"), key("1"), key("0"), key("enter"))
	assert.Equal(t, []string{"SAVE10"}, h.backend.coupons)
	require.NotEmpty(t, m.notices)
	assert.Equal(t, cart.MsgCouponApplied, m.notices[0].Message)
}

func TestBlankCouponSendsNothing(t *testing.T) {
	m, h := newHarness(t)
	m = press(t, m, h, key("c"), key("p"), key(" "), key("enter"))
	assert.Empty(t, h.backend.coupons)
	assert.Equal(t, focusProducts, m.focus)
}

func TestCheckoutHandOff(t *testing.T) {
	m, h := newHarness(t)
	m = press(t, m, h, key("c"), key("enter"))
	assert.Equal(t, "http://shop.test/checkout", m.checkout)
	assert.Contains(t, m.View(), "Checkout: http://shop.test/checkout")
}

// =============================================================================
// NOTIFICATIONS AND RELOAD
// =============================================================================

func TestNotificationDismissedByTick(t *testing.T) {
	m, _ := newHarness(t)
	n := notify.Error("Failed to update cart")

	next, cmd := m.Update(bridgeMsg{noticeMsg{n: n}})
	m = next.(Model)
	require.NotNil(t, cmd)
	require.Len(t, m.notices, 1)
	assert.Contains(t, m.View(), "Failed to update cart")

	next, _ = m.Update(dismissMsg{id: n.ID})
	m = next.(Model)
	assert.Empty(t, m.notices)
}

func TestSummarySyncsCounter(t *testing.T) {
	m, h := newHarness(t)
	next, _ := m.Update(summaryMsg{summary: storefront.Summary{Count: 3, HasCount: true}})
	m = pump(t, next.(Model), h)
	assert.Equal(t, 3, m.count)
	assert.Equal(t, 3, h.ctrl.Count())
}

func TestSummaryWithoutCounterKeepsCount(t *testing.T) {
	m, h := newHarness(t)
	h.ctrl.SyncCount(4)
	m = pump(t, m, h)

	next, _ := m.Update(summaryMsg{summary: storefront.Summary{Total: decimal.NewFromInt(10)}})
	m = pump(t, next.(Model), h)
	assert.Equal(t, 4, m.count)
	assert.True(t, m.summary.Total.Equal(decimal.NewFromInt(10)))
}

func TestReloadKeyFetchesSummary(t *testing.T) {
	m, h := newHarness(t)
	_, cmd := m.Update(key("r"))
	msgs := collect(cmd)
	assert.Equal(t, 1, h.store.fetches)

	var found bool
	for _, msg := range msgs {
		if _, ok := msg.(summaryMsg); ok {
			found = true
		}
	}
	assert.True(t, found)
}

// =============================================================================
// RENDERING
// =============================================================================

func TestViewBeforeSize(t *testing.T) {
	m, _ := newHarness(t)
	m.width = 0
	assert.Equal(t, "Loading...", m.View())
}

func TestViewShowsHeaderAndDrawer(t *testing.T) {
	m, h := newHarness(t)
	out := m.View()
	assert.Contains(t, out, "Test Shop")
	assert.Contains(t, out, "Cart 0")

	m = openWithItems(t, m, h, 2)
	out = m.View()
	assert.Contains(t, out, "Your cart (1)")
	assert.Contains(t, out, "Leather Bag")
	assert.Contains(t, out, "$200.00")
}

func TestWindowSizeTinyDoesNotPanic(t *testing.T) {
	m, _ := newHarness(t)
	for _, size := range []tea.WindowSizeMsg{{Width: 0, Height: 0}, {Width: 5, Height: 2}, {Width: 400, Height: 200}} {
		next, _ := m.Update(size)
		_ = next.(Model).View()
	}
}
