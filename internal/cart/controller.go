package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vitrine/internal/logging"
	"vitrine/internal/notify"

	"github.com/google/uuid"
)

// Messages shown to the shopper.
const (
	MsgAdded         = "Product added to cart!"
	MsgAddFailed     = "Failed to add to cart"
	MsgUpdateFailed  = "Failed to update cart"
	MsgRemoveFailed  = "Failed to remove item"
	MsgCouponApplied = "Coupon applied successfully!"
	MsgCouponInvalid = "Invalid coupon code"
)

// Controller owns the drawer state and the displayed item count, and turns
// remote cart results into view updates. Safe for concurrent use; overlapping
// mutations are not sequenced, so the last response to arrive sets the count.
type Controller struct {
	backend  Backend
	view     View
	recorder Recorder
	duration time.Duration

	mu       sync.Mutex
	drawer   DrawerState
	count    int
	snapshot *Snapshot
}

// Option configures a Controller.
type Option func(*Controller)

// WithRecorder journals every handled action.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithNotificationDuration overrides how long notifications stay visible.
func WithNotificationDuration(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.duration = d
		}
	}
}

// WithInitialCount seeds the counter from server-rendered state.
func WithInitialCount(n int) Option {
	return func(c *Controller) {
		if n >= 0 {
			c.count = n
		}
	}
}

// New creates a controller. Prefer Init for the process-wide instance.
func New(backend Backend, view View, opts ...Option) *Controller {
	if view == nil {
		view = NopView{}
	}
	c := &Controller{
		backend:  backend,
		view:     view,
		duration: notify.DefaultDuration,
		drawer:   DrawerClosed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// =============================================================================
// DRAWER
// =============================================================================

// Open shows the drawer and suspends page scroll.
func (c *Controller) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setDrawerLocked(DrawerOpen)
}

// Close hides the drawer and restores page scroll.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setDrawerLocked(DrawerClosed)
}

// Toggle flips the drawer.
func (c *Controller) Toggle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drawer == DrawerOpen {
		c.setDrawerLocked(DrawerClosed)
	} else {
		c.setDrawerLocked(DrawerOpen)
	}
}

// Dismiss closes the drawer only if it is open (Escape key, overlay click).
func (c *Controller) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drawer == DrawerOpen {
		c.setDrawerLocked(DrawerClosed)
	}
}

func (c *Controller) setDrawerLocked(s DrawerState) {
	c.drawer = s
	open := s == DrawerOpen
	c.view.SetDrawerOpen(open)
	c.view.SetScrollLocked(open)
}

// IsOpen reports whether the drawer is open.
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drawer == DrawerOpen
}

// State returns the drawer state.
func (c *Controller) State() DrawerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drawer
}

// Count returns the displayed item count.
func (c *Controller) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// LastSnapshot returns the most recent server snapshot, if any.
func (c *Controller) LastSnapshot() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot == nil {
		return Snapshot{}, false
	}
	return *c.snapshot, true
}

// SyncCount sets the counter from state read outside the mutation path,
// such as a reloaded page.
func (c *Controller) SyncCount(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = n
	c.view.SetCount(n)
}

// =============================================================================
// COMMANDS
// =============================================================================

// Handle validates and sends one action. It never touches the view; errors
// are *TransportError, *ApplicationError, or wrap ErrInvalidAction.
// ApplyCoupon yields a zero Snapshot on success.
func (c *Controller) Handle(ctx context.Context, action Action) (Snapshot, error) {
	if action == nil {
		return Snapshot{}, fmt.Errorf("%w: nil action", ErrInvalidAction)
	}

	reqID := RequestIDFrom(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
		ctx = WithRequestID(ctx, reqID)
	}
	log := logging.Get(logging.CategoryCart).WithContext(map[string]interface{}{
		"req":    reqID,
		"action": string(action.Kind()),
		"target": action.Target(),
	})

	start := time.Now()
	var (
		snap Snapshot
		msg  string
		err  error
	)
	if err = action.Validate(); err == nil {
		switch a := action.(type) {
		case AddItem:
			snap, err = c.backend.AddItem(ctx, a)
		case UpdateItem:
			snap, err = c.backend.UpdateItem(ctx, a)
		case RemoveItem:
			snap, err = c.backend.RemoveItem(ctx, a)
		case ApplyCoupon:
			msg, err = c.backend.ApplyCoupon(ctx, a)
		default:
			err = fmt.Errorf("%w: unsupported action %T", ErrInvalidAction, action)
		}
	}
	elapsed := time.Since(start)

	if err != nil {
		log.Error("%s failed after %s: %v", action.Kind(), elapsed, err)
		msg = err.Error()
	} else {
		log.Info("%s ok in %s (%d items)", action.Kind(), elapsed, snap.ItemCount())
	}

	c.record(ctx, Event{
		Time:      start,
		RequestID: reqID,
		Kind:      action.Kind(),
		Target:    action.Target(),
		Outcome:   outcomeOf(err),
		Message:   msg,
		ItemCount: snap.ItemCount(),
		Duration:  elapsed,
	})
	return snap, err
}

func (c *Controller) record(ctx context.Context, e Event) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(ctx, e); err != nil {
		logging.CartError("journal record failed: %v", err)
	}
}

// AddItem adds a product. On success the counter follows the returned cart
// and the drawer opens; on failure one error notification is shown and the
// UI is left as it was.
func (c *Controller) AddItem(ctx context.Context, productID string, quantity int, options map[string]string) bool {
	snap, err := c.Handle(ctx, AddItem{ProductID: productID, Quantity: quantity, Options: options})
	if err != nil {
		c.notify(notify.LevelError, UserMessage(err, MsgAddFailed))
		return false
	}
	c.notify(notify.LevelSuccess, MsgAdded)
	c.apply(snap)
	c.Open()
	return true
}

// UpdateItem changes a line's quantity and refreshes the counter. The drawer
// is not reopened.
func (c *Controller) UpdateItem(ctx context.Context, itemID string, quantity int) bool {
	snap, err := c.Handle(ctx, UpdateItem{ItemID: itemID, Quantity: quantity})
	if err != nil {
		c.notify(notify.LevelError, UserMessage(err, MsgUpdateFailed))
		return false
	}
	c.apply(snap)
	return true
}

// RemoveItem deletes a line and refreshes the counter.
func (c *Controller) RemoveItem(ctx context.Context, itemID string) bool {
	snap, err := c.Handle(ctx, RemoveItem{ItemID: itemID})
	if err != nil {
		c.notify(notify.LevelError, UserMessage(err, MsgRemoveFailed))
		return false
	}
	c.apply(snap)
	return true
}

// ApplyCoupon applies a discount code. A blank code sends nothing. On success
// the page is reloaded once, since discounts change totals this controller
// does not own.
func (c *Controller) ApplyCoupon(ctx context.Context, code string) bool {
	action := ApplyCoupon{Code: code}
	if action.Validate() != nil {
		return false
	}
	if _, err := c.Handle(ctx, action); err != nil {
		c.notify(notify.LevelError, UserMessage(err, MsgCouponInvalid))
		return false
	}
	c.notify(notify.LevelSuccess, MsgCouponApplied)
	c.view.Reload()
	return true
}

func (c *Controller) apply(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := snap
	c.snapshot = &s
	c.count = snap.ItemCount()
	c.view.SetCount(c.count)
}

// SetNotificationDuration changes how long later notifications stay up.
// Non-positive values are ignored.
func (c *Controller) SetNotificationDuration(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.duration = d
	c.mu.Unlock()
}

func (c *Controller) notify(level notify.Level, message string) {
	c.mu.Lock()
	d := c.duration
	c.mu.Unlock()
	c.view.Notify(notify.New(level, message).WithDuration(d))
}
