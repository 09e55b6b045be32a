package cart

import (
	"context"
	"time"

	"vitrine/internal/notify"
)

// View is the UI surface the controller drives. Implementations must not
// call back into the controller synchronously.
type View interface {
	// SetDrawerOpen shows or hides the drawer and its overlay.
	SetDrawerOpen(open bool)
	// SetScrollLocked suspends (true) or restores (false) page scrolling.
	SetScrollLocked(locked bool)
	// SetCount writes the item counter.
	SetCount(n int)
	// Notify shows a transient notification.
	Notify(n notify.Notification)
	// Reload re-renders the whole page from the server.
	Reload()
}

// NopView discards every update.
type NopView struct{}

func (NopView) SetDrawerOpen(bool)         {}
func (NopView) SetScrollLocked(bool)       {}
func (NopView) SetCount(int)               {}
func (NopView) Notify(notify.Notification) {}
func (NopView) Reload()                    {}

// Backend performs the remote cart mutations.
type Backend interface {
	AddItem(ctx context.Context, a AddItem) (Snapshot, error)
	UpdateItem(ctx context.Context, a UpdateItem) (Snapshot, error)
	RemoveItem(ctx context.Context, a RemoveItem) (Snapshot, error)
	ApplyCoupon(ctx context.Context, a ApplyCoupon) (string, error)
}

// Outcome classifies how an action ended.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeTransport   Outcome = "transport"
	OutcomeApplication Outcome = "application"
	OutcomeInvalid     Outcome = "invalid"
)

// Event describes one handled action, for the journal.
type Event struct {
	Time      time.Time
	RequestID string
	Kind      Kind
	Target    string
	Outcome   Outcome
	Message   string
	ItemCount int
	Duration  time.Duration
}

// Recorder persists action events.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}
