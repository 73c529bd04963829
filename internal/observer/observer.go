// Package observer records the network traffic of one browser session and
// answers questions about the login flow it carries.
package observer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/usestring/authwatch-mcp/internal/cache"
	"github.com/usestring/authwatch-mcp/internal/index"
)

// ErrDetached is returned by blocking operations interrupted by Detach.
var ErrDetached = errors.New("observer detached")

const (
	defaultWaitTimeout   = 30 * time.Second
	defaultBodyCacheSize = 256
	defaultLoginFragment = "/api/login"
	defaultLoginStatus   = 200
)

var (
	defaultSessionCookiePatterns = []string{"session", "sessid", "~sid", "auth", "token"}
	defaultTokenCookiePatterns   = []string{"token", "jwt"}
)

type options struct {
	maxRequests           int
	maxResponses          int
	sessionCookiePatterns []string
	tokenCookiePatterns   []string
	waitTimeout           time.Duration
	bodyCacheSize         int
	loginFragment         string
	loginStatus           int
	now                   func() time.Time
}

// Option configures an Observer.
type Option func(*options)

// WithRetention bounds the request and response logs. The oldest record is
// dropped first. Zero leaves a log unbounded.
func WithRetention(maxRequests, maxResponses int) Option {
	return func(o *options) {
		o.maxRequests = maxRequests
		o.maxResponses = maxResponses
	}
}

// WithSessionCookiePatterns replaces the name patterns that mark a cookie as
// session-relevant. A "~" prefix makes a pattern match only as a delimited
// token.
func WithSessionCookiePatterns(patterns ...string) Option {
	return func(o *options) {
		o.sessionCookiePatterns = patterns
	}
}

// WithTokenCookiePatterns replaces the name substrings used to find the auth
// token cookie.
func WithTokenCookiePatterns(patterns ...string) Option {
	return func(o *options) {
		o.tokenCookiePatterns = patterns
	}
}

// WithWaitTimeout sets the wait bound applied when a context has no deadline.
func WithWaitTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.waitTimeout = d
		}
	}
}

// WithBodyCacheSize sets how many response bodies are kept in memory.
func WithBodyCacheSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bodyCacheSize = n
		}
	}
}

// WithLoginDefaults sets the URL fragment and expected status used by Summary.
func WithLoginDefaults(fragment string, expectedStatus int) Option {
	return func(o *options) {
		if fragment != "" {
			o.loginFragment = fragment
		}
		if expectedStatus > 0 {
			o.loginStatus = expectedStatus
		}
	}
}

// WithClock replaces the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// indexedResponse keeps what a response was indexed and paired with when it
// was recorded. Chrome reuses a request ID across redirect hops, so the
// pairing cannot be recomputed later.
type indexedResponse struct {
	rec        ResponseRecord
	doc        index.Doc
	requestSeq uint32
}

type latencyWaiter struct {
	match Matcher
	ch    chan ResponseRecord
}

// Observer accumulates the requests, responses and page errors of a session.
// It is safe for concurrent use.
type Observer struct {
	id      string
	session Session
	opts    options

	cancel     context.CancelFunc
	detachOnce sync.Once
	detached   chan struct{}

	mu           sync.RWMutex
	seq          uint32
	requests     ring[RequestRecord]
	responses    ring[ResponseRecord]
	requestByID  map[string]RequestRecord
	requestSeqs  map[uint32]RequestRecord
	responseSeqs map[uint32]indexedResponse
	pageErrors   int
	watches      map[*ErrorWatch]struct{}
	waiters      []*latencyWaiter

	index      *index.Index
	bodies     *cache.BodyCache
	bodyFlight singleflight.Group
}

// Attach subscribes to session and returns an Observer recording its traffic.
// Recording stops when Detach is called or ctx is cancelled.
func Attach(ctx context.Context, session Session, opts ...Option) (*Observer, error) {
	cfg := options{
		sessionCookiePatterns: defaultSessionCookiePatterns,
		tokenCookiePatterns:   defaultTokenCookiePatterns,
		waitTimeout:           defaultWaitTimeout,
		bodyCacheSize:         defaultBodyCacheSize,
		loginFragment:         defaultLoginFragment,
		loginStatus:           defaultLoginStatus,
		now:                   time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	bodies, err := cache.NewBodyCache(cfg.bodyCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating body cache: %w", err)
	}

	o := &Observer{
		id:           uuid.NewString(),
		session:      session,
		opts:         cfg,
		detached:     make(chan struct{}),
		requests:     ring[RequestRecord]{limit: cfg.maxRequests},
		responses:    ring[ResponseRecord]{limit: cfg.maxResponses},
		requestByID:  make(map[string]RequestRecord),
		requestSeqs:  make(map[uint32]RequestRecord),
		responseSeqs: make(map[uint32]indexedResponse),
		watches:      make(map[*ErrorWatch]struct{}),
		index:        index.New(),
		bodies:       bodies,
	}

	subCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	if err := session.Subscribe(subCtx, o.handleEvent); err != nil {
		cancel()
		return nil, fmt.Errorf("subscribing to session: %w", err)
	}

	slog.Debug("observer attached", slog.String("observer", o.id))
	return o, nil
}

// Detach stops recording. Logs stay readable. Calling Detach more than once is a no-op.
func (o *Observer) Detach() {
	o.detachOnce.Do(func() {
		o.mu.Lock()
		close(o.detached)
		o.mu.Unlock()
		o.cancel()
		slog.Debug("observer detached", slog.String("observer", o.id))
	})
}

// ID returns the unique identifier of this observer.
func (o *Observer) ID() string {
	return o.id
}

// Session returns the session the observer is attached to.
func (o *Observer) Session() Session {
	return o.session
}

func (o *Observer) handleEvent(ev any) {
	switch e := ev.(type) {
	case RequestEvent:
		o.recordRequest(e)
	case ResponseEvent:
		o.recordResponse(e)
	case ConsoleEvent:
		o.recordPageError(PageError{Kind: ErrorKindConsole, Message: e.Message, Location: e.Location, Stack: e.Stack})
	case PageErrorEvent:
		o.recordPageError(PageError{Kind: ErrorKindException, Message: e.Message, Location: e.Location, Stack: e.Stack})
	}
}

// isDetached must be called with o.mu held.
func (o *Observer) isDetached() bool {
	select {
	case <-o.detached:
		return true
	default:
		return false
	}
}

func (o *Observer) recordRequest(e RequestEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.isDetached() {
		return
	}

	o.seq++
	rec := RequestRecord{
		Seq:          o.seq,
		RequestID:    e.RequestID,
		URL:          e.URL,
		Method:       e.Method,
		Headers:      e.Headers,
		Body:         e.Body,
		ResourceType: e.ResourceType,
		ObservedAt:   o.opts.now(),
	}
	if old, evicted := o.requests.push(rec); evicted {
		delete(o.requestSeqs, old.Seq)
		if cur, ok := o.requestByID[old.RequestID]; ok && cur.Seq == old.Seq {
			delete(o.requestByID, old.RequestID)
		}
	}
	o.requestSeqs[rec.Seq] = rec
	if rec.RequestID != "" {
		o.requestByID[rec.RequestID] = rec
	}
}

func (o *Observer) recordResponse(e ResponseEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.isDetached() {
		return
	}

	o.seq++
	rec := ResponseRecord{
		Seq:          o.seq,
		RequestID:    e.RequestID,
		URL:          e.URL,
		StatusCode:   e.StatusCode,
		StatusText:   e.StatusText,
		Headers:      e.Headers,
		MimeType:     e.MimeType,
		ResourceType: e.ResourceType,
		ObservedAt:   o.opts.now(),
	}
	if old, evicted := o.responses.push(rec); evicted {
		if entry, ok := o.responseSeqs[old.Seq]; ok {
			o.index.Remove(entry.doc)
			delete(o.responseSeqs, old.Seq)
		}
	}
	entry := indexedResponse{rec: rec, doc: index.Doc{Seq: rec.Seq, Status: rec.StatusCode}}
	if u, err := url.Parse(rec.URL); err == nil {
		entry.doc.Host = u.Host
	}
	if req, ok := o.requestByID[rec.RequestID]; ok {
		entry.doc.Method = req.Method
		entry.requestSeq = req.Seq
	}
	o.responseSeqs[rec.Seq] = entry
	o.index.Add(entry.doc)

	remaining := o.waiters[:0]
	for _, w := range o.waiters {
		if w.match.Match(rec.URL, rec.Headers) {
			w.ch <- rec
			continue
		}
		remaining = append(remaining, w)
	}
	o.waiters = remaining
}

func (o *Observer) recordPageError(pe PageError) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.isDetached() {
		return
	}

	pe.ObservedAt = o.opts.now()
	o.pageErrors++
	for w := range o.watches {
		w.add(pe)
	}
}

// Requests returns the request log, oldest first.
func (o *Observer) Requests() []RequestRecord {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.requests.snapshot()
}

// Responses returns the response log, oldest first.
func (o *Observer) Responses() []ResponseRecord {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.responses.snapshot()
}

// Request returns the request record with the given sequence number.
func (o *Observer) Request(seq uint32) (RequestRecord, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for i := 0; i < o.requests.len(); i++ {
		if rec := o.requests.at(i); rec.Seq == seq {
			return rec, true
		}
	}
	return RequestRecord{}, false
}

// Response returns the response record with the given sequence number.
func (o *Observer) Response(seq uint32) (ResponseRecord, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	entry, ok := o.responseSeqs[seq]
	return entry.rec, ok
}

// Clear empties both logs, the response index and the body cache. Sequence
// numbers keep increasing after Clear.
func (o *Observer) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.requests.reset()
	o.responses.reset()
	o.requestByID = make(map[string]RequestRecord)
	o.requestSeqs = make(map[uint32]RequestRecord)
	o.responseSeqs = make(map[uint32]indexedResponse)
	o.pageErrors = 0
	terms := o.index.Terms()
	o.index.Reset()
	o.bodies.Purge()

	slog.Debug("observer logs cleared",
		slog.String("observer", o.id),
		slog.Int("index_terms", terms),
	)
}

// FindLoginExchange returns the first request matching m, in log order.
func (o *Observer) FindLoginExchange(m Matcher) (RequestRecord, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for i := 0; i < o.requests.len(); i++ {
		if rec := o.requests.at(i); m.Match(rec.URL, rec.Headers) {
			return rec, true
		}
	}
	slog.Warn("login request not found", slog.String("observer", o.id), slog.Int("requests", o.requests.len()))
	return RequestRecord{}, false
}

// FindLoginResponse returns the first response matching m, in log order. A
// status other than expectedStatus is logged but does not affect the result.
func (o *Observer) FindLoginResponse(m Matcher, expectedStatus int) (ResponseRecord, bool) {
	rec, ok := o.firstResponse(m)
	if !ok {
		slog.Warn("login response not found", slog.String("observer", o.id))
		return ResponseRecord{}, false
	}
	if expectedStatus > 0 && rec.StatusCode != expectedStatus {
		slog.Warn("login response status mismatch",
			slog.String("url", rec.URL),
			slog.Int("status", rec.StatusCode),
			slog.Int("expected", expectedStatus),
		)
	}
	return rec, true
}

func (o *Observer) firstResponse(m Matcher) (ResponseRecord, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for i := 0; i < o.responses.len(); i++ {
		if rec := o.responses.at(i); m.Match(rec.URL, rec.Headers) {
			return rec, true
		}
	}
	return ResponseRecord{}, false
}

// ResponseBody returns the body of the response to requestID. Bodies are
// cached and concurrent fetches for the same request share one session call.
func (o *Observer) ResponseBody(ctx context.Context, requestID string) ([]byte, error) {
	if body, ok := o.bodies.Get(requestID); ok {
		return body, nil
	}

	v, err, _ := o.bodyFlight.Do(requestID, func() (any, error) {
		body, err := o.session.ResponseBody(ctx, requestID)
		if err != nil {
			return nil, err
		}
		o.bodies.Put(requestID, body)
		return body, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching response body %s: %w", requestID, err)
	}
	return v.([]byte), nil
}
