package khoj

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/remiges-tech/khoj/query"
)

// Request is what a Session dispatches for one input: the parsed query and the
// options in force. It tags the Response so stale ones can be recognised.
type Request struct {
	Query   query.SearchQuery
	Options SearchOptions
}

// Response is the outcome of a dispatched Request.
type Response struct {
	// For is the request the lookup answered.
	For     Request
	Records []LineRecord
	Err     error
}

// Subscriber is called with the current query and its results every time the
// results change. It runs with the session locked and must not call back into
// the session.
type Subscriber func(q query.SearchQuery, results []LineRecord)

// SessionOption configures a Session.
type SessionOption func(*Session) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithPoolSize sets the number of lookups that may run at once.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) SessionOption {
	return func(s *Session) error {
		if size < 1 {
			size = 1
		}
		s.poolSize = size
		return nil
	}
}

// WithMinSearchChars sets the shortest query value that is dispatched.
// Default is the Searcher's MinSearchChars, which is also the lowest value
// accepted: a shorter n is raised to it.
func WithMinSearchChars(n int) SessionOption {
	return func(s *Session) error {
		if n < 1 {
			n = 1
		}
		s.minChars = n
		return nil
	}
}

// WithSearchOptions sets the initial options lookups are dispatched with.
// Default is DefaultSearchOptions().
func WithSearchOptions(options SearchOptions) SessionOption {
	return func(s *Session) error {
		s.options = options
		return nil
	}
}

// Session turns a stream of search box edits into lookups and keeps the
// results of the most recently dispatched one. Lookups run asynchronously on a
// worker pool and may complete in any order; a response is applied only if it
// answers the last dispatched request.
type Session struct {
	searcher Searcher
	pool     *ants.Pool
	poolSize int
	logger   *slog.Logger
	minChars int

	mu             sync.Mutex
	options        SearchOptions
	current        query.SearchQuery
	lastDispatched Request
	results        []LineRecord
	cancel         context.CancelFunc
	subscribers    []Subscriber
	closed         bool
}

// NewSession creates a session that dispatches lookups to searcher.
func NewSession(searcher Searcher, opts ...SessionOption) (*Session, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	floor := searcher.MinSearchChars()
	if floor < 1 {
		floor = defaultMinSearchChars
	}

	s := &Session{
		searcher: searcher,
		poolSize: poolSize,
		logger:   slog.Default(),
		minChars: floor,
		options:  DefaultSearchOptions(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	// Values the Searcher would reject are cleared here instead of dispatched.
	if s.minChars < floor {
		s.minChars = floor
	}

	// Submit never blocks input: an overloaded pool is reported and the
	// lookup runs on its own goroutine.
	pool, err := ants.NewPool(s.poolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	s.pool = pool

	return s, nil
}

// Subscribe registers fn to be called whenever the results change.
func (s *Session) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// OnInputChanged parses raw and either clears the results, when the value is
// too short to search, or dispatches a lookup for it.
func (s *Session) OnInputChanged(raw string) {
	q := query.Parse(raw)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.current = q
	task := s.dispatchLocked()
	s.mu.Unlock()

	s.submit(task)
}

// SetOptions changes the options lookups are dispatched with and repeats the
// current search under them.
func (s *Session) SetOptions(options SearchOptions) {
	s.mu.Lock()
	if s.closed || s.options == options {
		s.mu.Unlock()
		return
	}
	s.options = options
	task := s.dispatchLocked()
	s.mu.Unlock()

	s.submit(task)
}

// dispatchLocked cancels any lookup in flight and either clears the results or
// records a new request as the last dispatched one and returns the lookup to
// run for it. The caller holds s.mu.
func (s *Session) dispatchLocked() func() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	if !s.current.Dispatchable(s.minChars) {
		s.lastDispatched = Request{}
		s.results = nil
		s.notifyLocked()
		return nil
	}

	req := Request{Query: s.current, Options: s.options}
	ctx, cancel := context.WithCancel(context.Background())
	s.lastDispatched = req
	s.cancel = cancel

	s.logger.Debug("lookup_dispatched",
		slog.String("query", req.Query.String()),
		slog.String("mode", req.Query.Mode.String()))

	return func() {
		records, err := s.searcher.Search(ctx, req.Query, req.Options)
		s.Receive(Response{For: req, Records: records, Err: err})
	}
}

func (s *Session) submit(task func()) {
	if task == nil {
		return
	}

	err := s.pool.Submit(task)
	switch {
	case err == nil:
	case errors.Is(err, ants.ErrPoolOverload):
		s.logger.Debug("lookup_pool_overloaded")
		go task()
	default:
		s.logger.Warn("lookup_not_submitted", slog.String("error", err.Error()))
	}
}

// Receive applies a lookup response if it answers the last dispatched request
// and carries no error. Stale and failed responses are dropped, except that a
// current request rejected with ErrQueryTooShort clears the results.
func (s *Session) Receive(resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if resp.For != s.lastDispatched {
		s.logger.Debug("stale_response_dropped", slog.String("query", resp.For.Query.String()))
		return
	}
	if errors.Is(resp.Err, ErrQueryTooShort) {
		s.lastDispatched = Request{}
		s.results = nil
		s.notifyLocked()
		return
	}
	if resp.Err != nil {
		if !errors.Is(resp.Err, context.Canceled) {
			s.logger.Warn("lookup_failed",
				slog.String("query", resp.For.Query.String()),
				slog.String("error", resp.Err.Error()))
		}
		return
	}

	s.results = resp.Records
	if s.results == nil {
		s.results = []LineRecord{}
	}
	s.notifyLocked()
}

func (s *Session) notifyLocked() {
	for _, fn := range s.subscribers {
		fn(s.current, s.results)
	}
}

// Current returns the query parsed from the latest input.
func (s *Session) Current() query.SearchQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// MinSearchChars returns the shortest query value the session dispatches.
func (s *Session) MinSearchChars() int {
	return s.minChars
}

// Options returns the options lookups are dispatched with.
func (s *Session) Options() SearchOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options
}

// Results returns the results of the last applied lookup. They are kept while
// a newer lookup is in flight and cleared when the input becomes too short to
// search.
func (s *Session) Results() []LineRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.results)
}

// Close cancels any lookup in flight and stops the session. Later input and
// responses are ignored. It does not close the Searcher.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.pool.Release()
}
