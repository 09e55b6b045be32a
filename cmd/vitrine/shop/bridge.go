package shop

import (
	"sync"

	"vitrine/internal/notify"

	tea "github.com/charmbracelet/bubbletea"
)

// Messages posted by the controller through the bridge.
type (
	drawerMsg struct{ open bool }
	scrollMsg struct{ locked bool }
	countMsg  struct{ n int }
	noticeMsg struct{ n notify.Notification }
	reloadMsg struct{}
)

// bridgeMsg carries every message posted since the last delivery, in order.
type bridgeMsg []tea.Msg

// Bridge is the cart.View of the terminal storefront. It queues controller
// updates for the tea program and never blocks the caller, so controller
// actions may run inside tea commands.
type Bridge struct {
	mu        sync.Mutex
	pending   []tea.Msg
	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewBridge creates an empty bridge.
func NewBridge() *Bridge {
	return &Bridge{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post queues msg for the program.
func (b *Bridge) Post(msg tea.Msg) {
	b.mu.Lock()
	b.pending = append(b.pending, msg)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Bridge) SetDrawerOpen(open bool)      { b.Post(drawerMsg{open: open}) }
func (b *Bridge) SetScrollLocked(locked bool)  { b.Post(scrollMsg{locked: locked}) }
func (b *Bridge) SetCount(n int)               { b.Post(countMsg{n: n}) }
func (b *Bridge) Notify(n notify.Notification) { b.Post(noticeMsg{n: n}) }
func (b *Bridge) Reload()                      { b.Post(reloadMsg{}) }

func (b *Bridge) drain() []tea.Msg {
	b.mu.Lock()
	defer b.mu.Unlock()
	msgs := b.pending
	b.pending = nil
	return msgs
}

// Wait returns a command that blocks until something is posted and delivers
// it as one bridgeMsg. It returns nil after Close.
func (b *Bridge) Wait() tea.Cmd {
	return func() tea.Msg {
		for {
			if msgs := b.drain(); len(msgs) > 0 {
				return bridgeMsg(msgs)
			}
			select {
			case <-b.wake:
			case <-b.done:
				return nil
			}
		}
	}
}

// Close releases a pending Wait.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}
