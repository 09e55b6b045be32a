// Package search implements debounced product search against the storefront
// search endpoint.
package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"vitrine/internal/cart"
	"vitrine/internal/logging"

	"golang.org/x/sync/singleflight"
)

// MinQueryLength is the shortest query, in runes, that is sent.
const MinQueryLength = 2

// ErrQueryTooShort is returned for queries below MinQueryLength.
var ErrQueryTooShort = errors.New("search query too short")

// Backend runs one search request.
type Backend interface {
	Search(ctx context.Context, query string) ([]cart.Product, error)
}

// Result is delivered to Input callbacks.
type Result struct {
	Query    string
	Products []cart.Product
	Err      error
}

// Searcher debounces keystrokes into search requests and collapses identical
// in-flight queries.
type Searcher struct {
	backend   Backend
	debouncer *Debouncer
	timeout   time.Duration
	group     singleflight.Group

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	latest string
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithDelay overrides the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(s *Searcher) { s.debouncer = NewDebouncer(d) }
}

// WithTimeout bounds each debounced request.
func WithTimeout(d time.Duration) Option {
	return func(s *Searcher) { s.timeout = d }
}

// New creates a searcher over backend.
func New(backend Backend, opts ...Option) *Searcher {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Searcher{
		backend:   backend,
		debouncer: NewDebouncer(DefaultDelay),
		timeout:   10 * time.Second,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs one query now. Leading and trailing space is ignored.
func (s *Searcher) Search(ctx context.Context, query string) ([]cart.Product, error) {
	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) < MinQueryLength {
		return nil, ErrQueryTooShort
	}

	v, err, shared := s.group.Do(q, func() (interface{}, error) {
		return s.backend.Search(ctx, q)
	})
	if err != nil {
		logging.SearchError("search %q failed: %v", q, err)
		return nil, err
	}
	if shared {
		logging.SearchDebug("search %q shared an in-flight request", q)
	}
	return v.([]cart.Product), nil
}

// Input records a keystroke-level query change. After the debounce delay the
// latest query is searched and deliver is called from a timer goroutine.
// Short queries cancel any pending search and deliver nothing. Results for a
// query that has since been superseded are dropped.
func (s *Searcher) Input(query string, deliver func(Result)) {
	q := strings.TrimSpace(query)

	s.mu.Lock()
	s.latest = q
	ctx := s.ctx
	s.mu.Unlock()

	if utf8.RuneCountInString(q) < MinQueryLength {
		s.debouncer.Cancel()
		return
	}

	s.debouncer.Debounce(func() {
		if ctx.Err() != nil {
			return
		}
		reqCtx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		products, err := s.Search(reqCtx, q)
		if !s.isLatest(q) || ctx.Err() != nil {
			return
		}
		deliver(Result{Query: q, Products: products, Err: err})
	})
}

func (s *Searcher) isLatest(q string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest == q
}

// Close cancels pending and in-flight debounced searches.
func (s *Searcher) Close() {
	s.debouncer.Cancel()
	s.cancel()
}
