package cart

import (
	"sync"

	"vitrine/internal/logging"
)

var (
	defaultOnce sync.Once
	defaultMu   sync.RWMutex
	defaultCtrl *Controller
)

// Init builds the process-wide controller on first call and returns it.
// Later calls return the same instance and ignore their arguments, so every
// UI element shares one controller and one set of listeners.
func Init(backend Backend, view View, opts ...Option) *Controller {
	created := false
	defaultOnce.Do(func() {
		ctrl := New(backend, view, opts...)
		defaultMu.Lock()
		defaultCtrl = ctrl
		defaultMu.Unlock()
		created = true
	})
	if !created {
		logging.CartDebug("cart.Init called again; reusing existing controller")
	}
	return Default()
}

// Default returns the process-wide controller, or nil before Init.
func Default() *Controller {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultCtrl
}

// resetDefault clears the singleton. Tests only.
func resetDefault() {
	defaultMu.Lock()
	defaultCtrl = nil
	defaultMu.Unlock()
	defaultOnce = sync.Once{}
}
