package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"vitrine/internal/logging"

	"github.com/go-rod/rod"
	"github.com/ysmood/gson"
	"golang.org/x/sync/errgroup"
)

// bindingName is the window function the page listeners call.
const bindingName = "__vitrineCart"

// Controller is the part of cart.Controller the page drives.
type Controller interface {
	Toggle()
	Dismiss()
	AddItem(ctx context.Context, productID string, quantity int, options map[string]string) bool
	UpdateItem(ctx context.Context, itemID string, quantity int) bool
	RemoveItem(ctx context.Context, itemID string) bool
	ApplyCoupon(ctx context.Context, code string) bool
	SyncCount(n int)
}

// Reloader re-renders the page, used after cart-page edits succeed.
type Reloader interface {
	Reload()
}

// command is one message from the page listeners.
type command struct {
	Action    string
	ProductID string
	ItemID    string
	Quantity  int
	Options   map[string]string
	Code      string
}

func parseCommand(req gson.JSON) (command, error) {
	cmd := command{
		Action:    req.Get("action").Str(),
		ProductID: idString(req.Get("product_id")),
		ItemID:    idString(req.Get("item_id")),
		Code:      req.Get("code").Str(),
	}
	if q := req.Get("quantity"); !q.Nil() {
		cmd.Quantity = q.Int()
	}
	if opts := req.Get("options"); !opts.Nil() {
		cmd.Options = make(map[string]string)
		for k, v := range opts.Map() {
			cmd.Options[k] = v.Str()
		}
	}
	switch cmd.Action {
	case "toggle", "close", "add", "update", "remove", "coupon":
		return cmd, nil
	default:
		return cmd, fmt.Errorf("unknown page action %q", cmd.Action)
	}
}

// idString accepts ids sent as strings or numbers.
func idString(j gson.JSON) string {
	if j.Nil() {
		return ""
	}
	if s, ok := j.Val().(string); ok {
		return s
	}
	return strings.Trim(j.JSON("", ""), `"`)
}

// dispatch runs one page command. Quantity edits below 1 are dropped here,
// the caller-side guard the controller relies on.
func dispatch(ctx context.Context, ctrl Controller, reload Reloader, cmd command) {
	switch cmd.Action {
	case "toggle":
		ctrl.Toggle()
	case "close":
		ctrl.Dismiss()
	case "add":
		qty := cmd.Quantity
		if qty == 0 {
			qty = 1
		}
		ctrl.AddItem(ctx, cmd.ProductID, qty, cmd.Options)
	case "update":
		if cmd.Quantity <= 0 {
			logging.BrowserDebug("ignoring update of %s to %d", cmd.ItemID, cmd.Quantity)
			return
		}
		if ctrl.UpdateItem(ctx, cmd.ItemID, cmd.Quantity) && reload != nil {
			reload.Reload()
		}
	case "remove":
		if ctrl.RemoveItem(ctx, cmd.ItemID) && reload != nil {
			reload.Reload()
		}
	case "coupon":
		ctrl.ApplyCoupon(ctx, cmd.Code)
	}
}

// Binding connects a page's listeners to a controller until Stop.
type Binding struct {
	ctx      context.Context
	cancel   context.CancelFunc
	ctrl     Controller
	reload   Reloader
	stopFns  []func() error
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Bind exposes the controller to page and installs the theme listeners, now
// and on every future document load. The page's current counter seeds the
// controller.
func Bind(ctx context.Context, page *rod.Page, ctrl Controller, view *DOMView) (*Binding, error) {
	bctx, cancel := context.WithCancel(ctx)
	b := &Binding{ctx: bctx, cancel: cancel, ctrl: ctrl}
	if view != nil {
		b.reload = view
	}

	stopExpose, err := page.Expose(bindingName, b.handle)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("expose binding: %w", err)
	}
	b.stopFns = append(b.stopFns, stopExpose)

	var (
		removeOnNew func() error
		count       = -1
	)
	g, _ := errgroup.WithContext(bctx)
	g.Go(func() error {
		if _, err := page.Eval(listenersJS, bindingName); err != nil {
			return fmt.Errorf("install listeners: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		remove, err := page.EvalOnNewDocument(fmt.Sprintf("(%s)(%q)", listenersJS, bindingName))
		if err != nil {
			return fmt.Errorf("register listeners: %w", err)
		}
		removeOnNew = remove
		return nil
	})
	if view != nil {
		g.Go(func() error {
			count = view.ReadCount()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if removeOnNew != nil {
			b.stopFns = append(b.stopFns, removeOnNew)
		}
		b.Stop()
		return nil, err
	}
	b.stopFns = append(b.stopFns, removeOnNew)

	if count >= 0 {
		ctrl.SyncCount(count)
	}
	logging.Browser("bound controller to page %s", page.TargetID)
	return b, nil
}

// handle receives page messages. It returns at once so the page is never
// blocked on a network round trip.
func (b *Binding) handle(req gson.JSON) (interface{}, error) {
	cmd, err := parseCommand(req)
	if err != nil {
		logging.BrowserWarn("%v", err)
		return nil, err
	}
	if b.ctx.Err() != nil {
		return nil, b.ctx.Err()
	}
	logging.BrowserDebug("page action %s", cmd.Action)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		dispatch(b.ctx, b.ctrl, b.reload, cmd)
	}()
	return true, nil
}

// Stop removes the binding and waits for in-flight actions.
func (b *Binding) Stop() {
	b.stopOnce.Do(func() {
		b.cancel()
		for _, stop := range b.stopFns {
			if err := stop(); err != nil {
				logging.BrowserDebug("unbind: %v", err)
			}
		}
		b.wg.Wait()
	})
}

// listenersJS mirrors the theme's event wiring. It takes the binding name.
const listenersJS = `(binding) => {
	if (window.__vitrineBound) return true;
	window.__vitrineBound = true;

	const send = (msg) => {
		const fn = window[binding];
		if (typeof fn === 'function') fn(msg).catch((e) => console.error('vitrine:', e));
	};
	// The binding owns every action it handles: the theme's own listeners
	// must not see the event, or each action would run twice.
	const claim = (e) => e.stopImmediatePropagation();
	const itemQty = (id) => document.querySelector('[data-item-id="' + id + '"].qty-input');

	document.addEventListener('click', (e) => {
		const t = e.target;
		if (!t || !t.closest) return;

		if (t.closest('[data-toggle="cart"]')) {
			e.preventDefault();
			claim(e);
			send({ action: 'toggle' });
			return;
		}
		if (t.id === 'cartOverlay') {
			claim(e);
			send({ action: 'close' });
			return;
		}

		const qtyInput = document.getElementById('productQuantity');
		if (t.closest('#decreaseQty') && qtyInput) {
			claim(e);
			const cur = parseInt(qtyInput.value);
			if (cur > 1) qtyInput.value = cur - 1;
			return;
		}
		if (t.closest('#increaseQty') && qtyInput) {
			claim(e);
			const cur = parseInt(qtyInput.value);
			const max = parseInt(qtyInput.max);
			if (isNaN(max) || cur < max) qtyInput.value = cur + 1;
			return;
		}

		const addBtn = t.closest('#addToCartBtn');
		if (addBtn) {
			e.preventDefault();
			claim(e);
			const options = {};
			document.querySelectorAll('[name^="option_"]').forEach((input) => {
				if (input.checked || input.tagName === 'SELECT') options[input.name] = input.value;
			});
			send({
				action: 'add',
				product_id: addBtn.dataset.productId,
				quantity: parseInt((qtyInput && qtyInput.value) || 1),
				options,
			});
			return;
		}

		const dec = t.closest('.qty-decrease');
		if (dec) {
			claim(e);
			const input = itemQty(dec.dataset.itemId);
			const cur = input ? parseInt(input.value) : 0;
			if (cur > 1) {
				input.value = cur - 1;
				send({ action: 'update', item_id: dec.dataset.itemId, quantity: cur - 1 });
			}
			return;
		}
		const inc = t.closest('.qty-increase');
		if (inc) {
			claim(e);
			const input = itemQty(inc.dataset.itemId);
			if (!input) return;
			const cur = parseInt(input.value);
			input.value = cur + 1;
			send({ action: 'update', item_id: inc.dataset.itemId, quantity: cur + 1 });
			return;
		}

		const rm = t.closest('.remove-item');
		if (rm) {
			e.preventDefault();
			claim(e);
			if (confirm('Are you sure you want to remove this item?')) {
				send({ action: 'remove', item_id: rm.dataset.itemId });
			}
			return;
		}

		if (t.closest('#applyCouponBtn')) {
			e.preventDefault();
			claim(e);
			const input = document.getElementById('couponInput');
			const code = input ? input.value : '';
			if (code.trim()) send({ action: 'coupon', code });
			return;
		}
		if (t.closest('#checkoutBtn')) {
			claim(e);
			window.location.href = '/checkout';
			return;
		}

		const thumb = t.closest('.thumbnail-image');
		if (thumb) {
			claim(e);
			const main = document.getElementById('mainProductImage');
			if (main) main.src = thumb.dataset.fullImage;
			document.querySelectorAll('.thumbnail-image').forEach((x) => x.classList.remove('active'));
			thumb.classList.add('active');
			return;
		}
		const tab = t.closest('.tab-btn');
		if (tab) {
			claim(e);
			document.querySelectorAll('.tab-btn').forEach((x) => x.classList.remove('active'));
			document.querySelectorAll('.tab-content').forEach((x) => x.classList.remove('active'));
			tab.classList.add('active');
			const panel = document.getElementById(tab.dataset.tab);
			if (panel) panel.classList.add('active');
		}
	}, true);

	document.addEventListener('change', (e) => {
		const t = e.target;
		if (!t || !t.matches || !t.matches('.qty-input')) return;
		claim(e);
		const q = parseInt(t.value);
		if (q > 0) send({ action: 'update', item_id: t.dataset.itemId, quantity: q });
	}, true);

	document.addEventListener('keydown', (e) => {
		const drawer = document.getElementById('cartDrawer');
		if (e.key === 'Escape' && drawer && drawer.classList.contains('open')) {
			claim(e);
			send({ action: 'close' });
		}
		if ((e.ctrlKey || e.metaKey) && e.key === 'k') {
			e.preventDefault();
			claim(e);
			const s = document.querySelector('.search-input');
			if (s) s.focus();
		}
	}, true);
	return true;
}`
