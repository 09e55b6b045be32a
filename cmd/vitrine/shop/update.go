package shop

import (
	"context"
	"strings"

	"vitrine/internal/cart"
	"vitrine/internal/logging"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case bridgeMsg:
		cmds := make([]tea.Cmd, 0, len(msg)+1)
		for _, inner := range msg {
			var cmd tea.Cmd
			m, cmd = m.apply(inner)
			cmds = append(cmds, cmd)
		}
		cmds = append(cmds, m.bridge.Wait())
		return m, tea.Batch(cmds...)

	case summaryMsg:
		m = m.done()
		if msg.err != nil {
			logging.UIDebug("cart summary unavailable: %v", msg.err)
			return m, nil
		}
		m.summary = msg.summary
		if msg.summary.HasCount {
			m.ctrl.SyncCount(msg.summary.Count)
		}
		return m, nil

	case actionDoneMsg:
		m = m.done()
		m.refreshItems()
		if msg.ok && (msg.kind == cart.KindUpdate || msg.kind == cart.KindRemove) {
			return m.reload()
		}
		return m, nil

	case dismissMsg:
		for i, n := range m.notices {
			if n.ID == msg.id {
				m.notices = append(m.notices[:i:i], m.notices[i+1:]...)
				break
			}
		}
		return m, nil

	case spinner.TickMsg:
		if m.busy == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// apply folds one controller or search message into the model.
func (m Model) apply(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case drawerMsg:
		m.drawerOpen = msg.open
		if msg.open {
			m.refreshItems()
		} else if m.focus == focusCoupon || m.focus == focusConfirmRemove {
			m.focus = focusProducts
			m.coupon.Blur()
		}
	case scrollMsg:
		m.scrollLocked = msg.locked
	case countMsg:
		m.count = msg.n
	case noticeMsg:
		m.notices = append(m.notices, msg.n)
		return m, dismissAfter(msg.n)
	case reloadMsg:
		return m.reload()
	case resultsMsg:
		if msg.result.Err != nil {
			logging.SearchError("search %q failed: %v", msg.result.Query, msg.result.Err)
			return m, nil
		}
		m.query = msg.result.Query
		m.products = msg.result.Products
		m = m.selectProduct(0)
		m.pane.SetContent(msg.rendered)
		m.pane.GotoTop()
	}
	return m, nil
}

// reload is the terminal page reload: re-read the server-rendered cart.
func (m Model) reload() (Model, tea.Cmd) {
	cmd := m.fetchSummary()
	if cmd == nil {
		return m, nil
	}
	m, tick := m.start()
	return m, tea.Batch(cmd, tick)
}

func (m *Model) refreshItems() {
	snap, ok := m.ctrl.LastSnapshot()
	if !ok {
		return
	}
	items, err := snap.DecodeItems()
	if err != nil {
		logging.UIDebug("cart items partially decoded: %v", err)
	}
	m.items = items
	if m.itemCursor >= len(m.items) {
		m.itemCursor = len(m.items) - 1
	}
	if m.itemCursor < 0 {
		m.itemCursor = 0
	}
}

// start marks one more request in flight and starts the spinner on the first.
func (m Model) start() (Model, tea.Cmd) {
	m.busy++
	if m.busy == 1 {
		return m, m.spinner.Tick
	}
	return m, nil
}

func (m Model) done() Model {
	if m.busy > 0 {
		m.busy--
	}
	return m
}

func (m Model) action(kind cart.Kind, fn func(ctx context.Context) bool) (tea.Model, tea.Cmd) {
	m, tick := m.start()
	return m, tea.Batch(m.runAction(kind, fn), tick)
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.drawerOpen {
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && msg.X < m.width-m.drawerWidth() {
			m.ctrl.Dismiss()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.pane, cmd = m.pane.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	switch m.focus {
	case focusSearch:
		return m.handleSearchKey(msg)
	case focusCoupon:
		return m.handleCouponKey(msg)
	case focusConfirmRemove:
		return m.handleConfirmKey(msg)
	}
	if m.drawerOpen {
		return m.handleDrawerKey(msg)
	}
	return m.handleProductKey(msg)
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyEnter:
		m.focus = focusProducts
		m.search.Blur()
		return m, nil
	}
	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if v := m.search.Value(); v != before {
		m.startSearch(v)
	}
	return m, cmd
}

func (m Model) handleCouponKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.focus = focusProducts
		m.coupon.Blur()
		m.coupon.Reset()
		return m, nil
	case tea.KeyEnter:
		code := m.coupon.Value()
		m.focus = focusProducts
		m.coupon.Blur()
		m.coupon.Reset()
		if strings.TrimSpace(code) == "" {
			return m, nil
		}
		ctrl := m.ctrl
		return m.action(cart.KindCoupon, func(ctx context.Context) bool {
			return ctrl.ApplyCoupon(ctx, code)
		})
	}
	var cmd tea.Cmd
	m.coupon, cmd = m.coupon.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.focus = focusProducts
	item, ok := m.currentItem()
	if !ok || msg.String() != "y" {
		return m, nil
	}
	ctrl, id := m.ctrl, string(item.ID)
	return m.action(cart.KindRemove, func(ctx context.Context) bool {
		return ctrl.RemoveItem(ctx, id)
	})
}

func (m Model) handleDrawerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc":
		m.ctrl.Dismiss()
	case "c":
		m.ctrl.Toggle()
	case "r":
		return m.reload()
	case "up", "k":
		if m.itemCursor > 0 {
			m.itemCursor--
		}
	case "down", "j":
		if m.itemCursor < len(m.items)-1 {
			m.itemCursor++
		}
	case "u":
		return m.changeQuantity(1)
	case "d":
		return m.changeQuantity(-1)
	case "x":
		if _, ok := m.currentItem(); ok {
			m.focus = focusConfirmRemove
		}
	case "p":
		m.focus = focusCoupon
		cmd := m.coupon.Focus()
		return m, cmd
	case "enter":
		if m.store != nil {
			m.checkout = m.store.CheckoutURL()
			logging.UI("checkout hand-off to %s", m.checkout)
		}
	}
	return m, nil
}

// changeQuantity edits the current line. Quantities below 1 are never sent;
// removal goes through x.
func (m Model) changeQuantity(delta int) (tea.Model, tea.Cmd) {
	item, ok := m.currentItem()
	if !ok {
		return m, nil
	}
	qty := item.Quantity + delta
	if qty <= 0 {
		logging.UIDebug("not updating item %s to %d", item.ID, qty)
		return m, nil
	}
	// Earlier Models share the backing array.
	items := append([]cart.Item(nil), m.items...)
	items[m.itemCursor].Quantity = qty
	m.items = items
	ctrl, id := m.ctrl, string(item.ID)
	return m.action(cart.KindUpdate, func(ctx context.Context) bool {
		return ctrl.UpdateItem(ctx, id, qty)
	})
}

func (m Model) currentItem() (cart.Item, bool) {
	if m.itemCursor < 0 || m.itemCursor >= len(m.items) {
		return cart.Item{}, false
	}
	return m.items[m.itemCursor], true
}

func (m Model) handleProductKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "/", "ctrl+k":
		m.focus = focusSearch
		cmd := m.search.Focus()
		return m, cmd
	case "c":
		m.ctrl.Toggle()
	case "r":
		return m.reload()
	case "up", "k":
		if m.selected > 0 {
			m = m.selectProduct(m.selected - 1)
		}
	case "down", "j":
		if m.selected < len(m.products)-1 {
			m = m.selectProduct(m.selected + 1)
		}
	case "-":
		if m.quantity > 1 {
			m.quantity--
		}
	case "+", "=":
		p, ok := m.selectedProduct()
		if ok && (p.Stock <= 0 || m.quantity < p.Stock) {
			m.quantity++
		}
	case "o":
		if p, ok := m.selectedProduct(); ok && len(p.Options) > 0 {
			m.choices = cycleChoice(m.choices, p)
		}
	case "a":
		p, ok := m.selectedProduct()
		if !ok {
			return m, nil
		}
		ctrl, id, qty, opts := m.ctrl, string(p.ID), m.quantity, m.selectedOptions()
		return m.action(cart.KindAdd, func(ctx context.Context) bool {
			return ctrl.AddItem(ctx, id, qty, opts)
		})
	default:
		if m.scrollLocked {
			return m, nil
		}
		var cmd tea.Cmd
		m.pane, cmd = m.pane.Update(msg)
		return m, cmd
	}
	return m, nil
}

// selectProduct moves the highlight and resets quantity and options.
func (m Model) selectProduct(i int) Model {
	m.selected = i
	m.quantity = 1
	m.choices = make(map[int]int)
	return m
}

// cycleChoice advances the first option of the product, carrying into the
// next option when it wraps. choices is keyed by option index.
func cycleChoice(choices map[int]int, p cart.Product) map[int]int {
	next := make(map[int]int, len(choices))
	for k, v := range choices {
		next[k] = v
	}
	for i, o := range p.Options {
		if len(o.Values) == 0 {
			continue
		}
		next[i] = (next[i] + 1) % len(o.Values)
		if next[i] != 0 {
			break
		}
	}
	return next
}

// layout sizes the product pane to the window.
func (m *Model) layout() {
	w := m.width
	if w < 20 {
		w = 20
	}
	h := m.height - chromeLines
	if h < 3 {
		h = 3
	}
	m.pane.Width = w - 4
	m.pane.Height = h
	m.search.Width = w / 2
}
