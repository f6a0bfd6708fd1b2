package khoj

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remiges-tech/khoj/query"
)

const waitTimeout = 2 * time.Second

// searchCall is one lookup held by fakeSearcher until the test replies.
type searchCall struct {
	ctx     context.Context
	q       query.SearchQuery
	options SearchOptions
	reply   chan searchReply
}

type searchReply struct {
	records []LineRecord
	err     error
}

// fakeSearcher hands every Search to the test and blocks until it is answered
// or its context is cancelled.
type fakeSearcher struct {
	calls    chan *searchCall
	minChars int
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{calls: make(chan *searchCall, 16)}
}

func (f *fakeSearcher) Index(ctx context.Context, records ...LineRecord) error { return nil }
func (f *fakeSearcher) Delete(ctx context.Context, id string) error             { return nil }
func (f *fakeSearcher) DeleteAll(ctx context.Context) error                     { return nil }
func (f *fakeSearcher) Close() error                                            { return nil }

func (f *fakeSearcher) MinSearchChars() int {
	if f.minChars == 0 {
		return defaultMinSearchChars
	}
	return f.minChars
}

func (f *fakeSearcher) Search(ctx context.Context, q query.SearchQuery, options SearchOptions) ([]LineRecord, error) {
	call := &searchCall{ctx: ctx, q: q, options: options, reply: make(chan searchReply, 1)}
	f.calls <- call

	select {
	case r := <-call.reply:
		return r.records, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeSearcher) next(t *testing.T) *searchCall {
	t.Helper()
	select {
	case call := <-f.calls:
		return call
	case <-time.After(waitTimeout):
		t.Fatal("no lookup dispatched")
		return nil
	}
}

func (f *fakeSearcher) assertIdle(t *testing.T) {
	t.Helper()
	assert.Zero(t, len(f.calls), "unexpected lookup dispatched")
}

type notification struct {
	q       query.SearchQuery
	results []LineRecord
}

// recorder collects subscriber notifications.
type recorder chan notification

func (r recorder) subscriber() Subscriber {
	return func(q query.SearchQuery, results []LineRecord) {
		r <- notification{q: q, results: results}
	}
}

func (r recorder) next(t *testing.T) notification {
	t.Helper()
	select {
	case n := <-r:
		return n
	case <-time.After(waitTimeout):
		t.Fatal("subscriber not notified")
		return notification{}
	}
}

func newTestSession(t *testing.T, opts ...SessionOption) (*Session, *fakeSearcher, recorder) {
	t.Helper()

	searcher := newFakeSearcher()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]SessionOption{WithLogger(logger), WithPoolSize(1)}, opts...)

	s, err := NewSession(searcher, opts...)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	rec := make(recorder, 16)
	s.Subscribe(rec.subscriber())
	return s, searcher, rec
}

func TestNewSessionRequiresSearcher(t *testing.T) {
	s, err := NewSession(nil)
	assert.ErrorIs(t, err, ErrSearcherRequired)
	assert.Nil(t, s)
}

func TestSessionDefaults(t *testing.T) {
	s, err := NewSession(newFakeSearcher())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, DefaultSearchOptions(), s.Options())
	assert.Equal(t, defaultMinSearchChars, s.minChars)
	assert.GreaterOrEqual(t, s.poolSize, 1)
	assert.Empty(t, s.Current().Value)
	assert.Empty(t, s.Results())
}

func TestSessionShortInputClears(t *testing.T) {
	s, searcher, rec := newTestSession(t)

	for _, raw := range []string{"", "j", "#", "#j"} {
		s.OnInputChanged(raw)

		n := rec.next(t)
		assert.Equal(t, query.Parse(raw), n.q)
		assert.Nil(t, n.results)
	}

	searcher.assertIdle(t)
	assert.Nil(t, s.Results())
}

func TestSessionMinSearchChars(t *testing.T) {
	s, searcher, rec := newTestSession(t, WithMinSearchChars(3))

	s.OnInputChanged("js")
	rec.next(t)
	searcher.assertIdle(t)

	s.OnInputChanged("jsq")
	call := searcher.next(t)
	assert.Equal(t, "jsq", call.q.Value)
}

func TestSessionMinSearchCharsFloor(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.minChars = 4

	s, err := NewSession(searcher, WithMinSearchChars(1))
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 4, s.MinSearchChars())

	s, err = NewSession(searcher, WithMinSearchChars(5))
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 5, s.MinSearchChars())
}

func TestSessionFollowsSearcherMinimum(t *testing.T) {
	ctx := context.Background()
	searcher := NewWithProvider(newMockProvider(), Options{
		MinSearchChars: 3,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	defer func() { _ = searcher.Close() }()
	require.NoError(t, searcher.Index(ctx, testLines...))

	for _, opts := range [][]SessionOption{nil, {WithMinSearchChars(1)}} {
		s, err := NewSession(searcher, append([]SessionOption{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)...)
		require.NoError(t, err)

		rec := make(recorder, 16)
		s.Subscribe(rec.subscriber())

		s.OnInputChanged("jsq")
		n := rec.next(t)
		require.Len(t, n.results, 1)
		assert.Equal(t, "1", n.results[0].ID)

		// Shorter than the searcher accepts: cleared without a lookup.
		s.OnInputChanged("js")
		n = rec.next(t)
		assert.Equal(t, "js", n.q.Value)
		assert.Nil(t, n.results)
		assert.Nil(t, s.Results())

		s.Close()
	}
}

func TestSessionQueryTooShortClears(t *testing.T) {
	s, searcher, rec := newTestSession(t)

	s.OnInputChanged("jsq")
	call := searcher.next(t)
	call.reply <- searchReply{records: []LineRecord{{ID: "1"}}}
	rec.next(t)

	s.OnInputChanged("jsqp")
	call = searcher.next(t)
	call.reply <- searchReply{err: ErrQueryTooShort}

	n := rec.next(t)
	assert.Equal(t, "jsqp", n.q.Value)
	assert.Nil(t, n.results)
	assert.Nil(t, s.Results())
}

func TestSessionAppliesResponse(t *testing.T) {
	s, searcher, rec := newTestSession(t)

	s.OnInputChanged("jsq")
	call := searcher.next(t)
	assert.Equal(t, query.FirstLetter, call.q.Mode)
	assert.Equal(t, "jsq", call.q.Value)
	assert.Equal(t, DefaultSearchOptions(), call.options)

	records := []LineRecord{{ID: "1", Gurmukhi: "ijin syivAw; iqin pwieAw mwnu ]"}}
	call.reply <- searchReply{records: records}

	n := rec.next(t)
	assert.Equal(t, "jsq", n.q.Value)
	assert.Equal(t, records, n.results)
	assert.Equal(t, records, s.Results())
}

func TestSessionEmptyResponse(t *testing.T) {
	s, searcher, rec := newTestSession(t)

	s.OnInputChanged("#xyz")
	call := searcher.next(t)
	assert.Equal(t, query.FullWord, call.q.Mode)
	call.reply <- searchReply{}

	n := rec.next(t)
	assert.NotNil(t, n.results)
	assert.Empty(t, n.results)
}

func TestSessionLastQueryWins(t *testing.T) {
	s, searcher, rec := newTestSession(t)

	s.OnInputChanged("js")
	first := searcher.next(t)

	s.OnInputChanged("jsq")
	second := searcher.next(t)

	select {
	case <-first.ctx.Done():
	case <-time.After(waitTimeout):
		t.Fatal("superseded lookup not cancelled")
	}
	assert.NoError(t, second.ctx.Err())

	latest := []LineRecord{{ID: "1"}}
	second.reply <- searchReply{records: latest}
	assert.Equal(t, latest, rec.next(t).results)

	// A late answer to the superseded request is dropped.
	s.Receive(Response{
		For:     Request{Query: query.Parse("js"), Options: DefaultSearchOptions()},
		Records: []LineRecord{{ID: "9"}},
	})
	assert.Equal(t, latest, s.Results())
	assert.Empty(t, rec)
}

func TestSessionOutOfOrderResponses(t *testing.T) {
	s, searcher, rec := newTestSession(t)

	s.OnInputChanged("js")
	searcher.next(t)
	s.OnInputChanged("jsq")
	searcher.next(t)

	current := Request{Query: query.Parse("jsq"), Options: DefaultSearchOptions()}
	stale := Request{Query: query.Parse("js"), Options: DefaultSearchOptions()}

	// The current request answers first; the stale one arrives afterwards.
	s.Receive(Response{For: current, Records: []LineRecord{{ID: "1"}}})
	rec.next(t)
	s.Receive(Response{For: stale, Records: []LineRecord{{ID: "1"}, {ID: "2"}}})

	results := s.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].ID)
	assert.Empty(t, rec)
}

func TestSessionDropsErrors(t *testing.T) {
	s, searcher, rec := newTestSession(t)

	s.OnInputChanged("jsq")
	searcher.next(t)
	current := Request{Query: s.Current(), Options: s.Options()}

	s.Receive(Response{For: current, Records: []LineRecord{{ID: "1"}}})
	rec.next(t)

	s.Receive(Response{For: current, Err: errors.New("backend down")})
	s.Receive(Response{For: current, Err: context.Canceled})

	assert.Len(t, s.Results(), 1)
	assert.Empty(t, rec)
}

func TestSessionClearResetsRequest(t *testing.T) {
	s, searcher, rec := newTestSession(t)

	s.OnInputChanged("jsq")
	call := searcher.next(t)
	call.reply <- searchReply{records: []LineRecord{{ID: "1"}}}
	rec.next(t)

	s.OnInputChanged("j")
	n := rec.next(t)
	assert.Nil(t, n.results)
	assert.Nil(t, s.Results())

	// The cleared request no longer counts as dispatched.
	s.Receive(Response{
		For:     Request{Query: query.Parse("jsq"), Options: DefaultSearchOptions()},
		Records: []LineRecord{{ID: "1"}},
	})
	assert.Nil(t, s.Results())
	assert.Empty(t, rec)
}

func TestSessionSetOptions(t *testing.T) {
	s, searcher, _ := newTestSession(t)

	// Without a dispatchable query nothing is searched.
	s.SetOptions(SearchOptions{Limit: 5})
	searcher.assertIdle(t)
	assert.Equal(t, SearchOptions{Limit: 5}, s.Options())

	s.OnInputChanged("jsq")
	first := searcher.next(t)
	assert.Equal(t, SearchOptions{Limit: 5}, first.options)

	s.SetOptions(SearchOptions{Limit: 5})
	searcher.assertIdle(t)

	s.SetOptions(SearchOptions{Limit: 5, IncludeTranslations: true})
	second := searcher.next(t)
	assert.Equal(t, "jsq", second.q.Value)
	assert.Equal(t, SearchOptions{Limit: 5, IncludeTranslations: true}, second.options)

	select {
	case <-first.ctx.Done():
	case <-time.After(waitTimeout):
		t.Fatal("lookup under previous options not cancelled")
	}

	// An answer computed under the previous options is stale.
	s.Receive(Response{
		For:     Request{Query: query.Parse("jsq"), Options: SearchOptions{Limit: 5}},
		Records: []LineRecord{{ID: "1"}},
	})
	assert.Empty(t, s.Results())
}

func TestSessionClose(t *testing.T) {
	s, searcher, rec := newTestSession(t)

	s.OnInputChanged("jsq")
	call := searcher.next(t)

	s.Close()
	s.Close()

	select {
	case <-call.ctx.Done():
	case <-time.After(waitTimeout):
		t.Fatal("lookup not cancelled by Close")
	}

	s.OnInputChanged("sn")
	s.SetOptions(SearchOptions{Limit: 1})
	s.Receive(Response{For: Request{Query: query.Parse("jsq"), Options: DefaultSearchOptions()}, Records: []LineRecord{{ID: "1"}}})

	searcher.assertIdle(t)
	assert.Empty(t, rec)
	assert.Empty(t, s.Results())
	assert.Equal(t, "jsq", s.Current().Value)
}
