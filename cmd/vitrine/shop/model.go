// Package shop is the interactive terminal storefront: search, product
// selection and the cart drawer, driven by the cart controller.
package shop

import (
	"context"
	"time"

	"vitrine/cmd/vitrine/ui"
	"vitrine/internal/cart"
	"vitrine/internal/config"
	"vitrine/internal/notify"
	"vitrine/internal/search"
	"vitrine/internal/storefront"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Searcher runs debounced searches; *search.Searcher satisfies it.
type Searcher interface {
	Input(query string, deliver func(search.Result))
}

// Storefront reads server-rendered state; *storefront.Session satisfies it.
type Storefront interface {
	FetchSummary(ctx context.Context, path string) (storefront.Summary, error)
	CheckoutURL() string
}

// Config holds what the model needs beyond its collaborators.
type Config struct {
	StoreName      string
	Currency       string
	CartPath       string
	RequestTimeout time.Duration
	UI             config.UIConfig
	Styles         ui.Styles
}

// focus selects which component receives keys.
type focus int

const (
	focusProducts focus = iota
	focusSearch
	focusCoupon
	focusConfirmRemove
)

// Messages produced by the model's own commands.
type (
	resultsMsg struct {
		result   search.Result
		rendered string
	}
	summaryMsg struct {
		summary storefront.Summary
		err     error
	}
	actionDoneMsg struct {
		kind cart.Kind
		ok   bool
	}
	dismissMsg struct{ id string }
)

// Model is the tea model of the storefront.
type Model struct {
	cfg      Config
	styles   ui.Styles
	ctrl     *cart.Controller
	bridge   *Bridge
	searcher Searcher
	store    Storefront

	search  textinput.Model
	coupon  textinput.Model
	pane    viewport.Model
	spinner spinner.Model

	width  int
	height int
	focus  focus

	// Mirrors of controller state, written only from bridge messages.
	drawerOpen   bool
	scrollLocked bool
	count        int
	notices      []notify.Notification

	query    string
	products []cart.Product
	selected int
	quantity int
	choices  map[int]int

	items      []cart.Item
	itemCursor int
	summary    storefront.Summary
	checkout   string

	busy int
}

// New creates the model. bridge must be the view ctrl was built with.
func New(cfg Config, ctrl *cart.Controller, bridge *Bridge, searcher Searcher, store Storefront) Model {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}

	si := textinput.New()
	si.Placeholder = "Search products..."
	si.Prompt = "/ "
	si.CharLimit = 120

	ci := textinput.New()
	ci.Placeholder = "Coupon code"
	ci.Prompt = "Coupon: "
	ci.CharLimit = 64

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = cfg.Styles.Spinner

	return Model{
		cfg:      cfg,
		styles:   cfg.Styles,
		ctrl:     ctrl,
		bridge:   bridge,
		searcher: searcher,
		store:    store,
		search:   si,
		coupon:   ci,
		pane:     viewport.New(80, 20),
		spinner:  sp,
		count:    ctrl.Count(),
		quantity: 1,
		choices:  make(map[int]int),
	}
}

// Init starts listening to the controller and loads the cart summary.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.bridge.Wait(), m.fetchSummary())
}

// Run starts a full-screen program and blocks until it exits.
func Run(m Model) error {
	defer m.bridge.Close()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

func (m Model) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.cfg.RequestTimeout)
}

func (m Model) fetchSummary() tea.Cmd {
	if m.store == nil {
		return nil
	}
	store, path := m.store, m.cfg.CartPath
	ctx, cancel := m.requestContext()
	return func() tea.Msg {
		defer cancel()
		sum, err := store.FetchSummary(ctx, path)
		return summaryMsg{summary: sum, err: err}
	}
}

// runAction runs a blocking controller call off the update loop.
func (m Model) runAction(kind cart.Kind, fn func(ctx context.Context) bool) tea.Cmd {
	ctx, cancel := m.requestContext()
	return func() tea.Msg {
		defer cancel()
		return actionDoneMsg{kind: kind, ok: fn(ctx)}
	}
}

// startSearch hands the query to the debounced searcher. Results come back
// rendered through the bridge.
func (m Model) startSearch(query string) {
	if m.searcher == nil {
		return
	}
	bridge, currency, width := m.bridge, m.cfg.Currency, m.pane.Width
	m.searcher.Input(query, func(res search.Result) {
		msg := resultsMsg{result: res}
		if res.Err == nil {
			if out, err := search.Render(res.Query, res.Products, currency, width); err == nil {
				msg.rendered = out
			} else {
				msg.rendered = search.RenderMarkdown(res.Query, res.Products, currency)
			}
		}
		bridge.Post(msg)
	})
}

func dismissAfter(n notify.Notification) tea.Cmd {
	d := n.Duration
	if d <= 0 {
		d = notify.DefaultDuration
	}
	id := n.ID
	return tea.Tick(d, func(time.Time) tea.Msg { return dismissMsg{id: id} })
}

// selectedProduct returns the highlighted search result.
func (m Model) selectedProduct() (cart.Product, bool) {
	if m.selected < 0 || m.selected >= len(m.products) {
		return cart.Product{}, false
	}
	return m.products[m.selected], true
}

// selectedOptions maps option name to the chosen value name.
func (m Model) selectedOptions() map[string]string {
	p, ok := m.selectedProduct()
	if !ok || len(p.Options) == 0 {
		return nil
	}
	opts := make(map[string]string, len(p.Options))
	for i, o := range p.Options {
		if len(o.Values) == 0 {
			continue
		}
		opts[o.Name] = o.Values[m.choices[i]%len(o.Values)].Name
	}
	return opts
}

func (m Model) drawerWidth() int {
	return m.cfg.UI.DrawerColumns(m.width)
}
