// Package replay feeds the observer from traffic captured by a powhttp proxy.
package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/usestring/authwatch-mcp/internal/observer"
)

// ErrUnknownEntry is returned for a body request naming an entry never polled.
var ErrUnknownEntry = errors.New("unknown entry")

const defaultFetchWorkers = 8

// Options configures a replay Session.
type Options struct {
	SessionID       string
	RefreshInterval time.Duration
	RefreshTimeout  time.Duration
	FetchWorkers    int
}

// Session replays a powhttp capture session as browser events. Each poll
// emits a request and a response event for every entry not seen before.
type Session struct {
	client *Client
	opts   Options

	pollFlight singleflight.Group

	mu       sync.RWMutex
	handlers map[int]func(ev any)
	nextSub  int
	seen     map[string]bool
	order    []string
	entries  map[string]*Entry
}

var _ observer.Session = (*Session)(nil)

// New creates a replay session reading from c.
func New(c *Client, opts Options) *Session {
	if opts.SessionID == "" {
		opts.SessionID = "active"
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = time.Second
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 15 * time.Second
	}
	if opts.FetchWorkers <= 0 {
		opts.FetchWorkers = defaultFetchWorkers
	}
	return &Session{
		client:   c,
		opts:     opts,
		handlers: make(map[int]func(ev any)),
		seen:     make(map[string]bool),
		entries:  make(map[string]*Entry),
	}
}

// Subscribe registers handler until ctx is cancelled.
func (s *Session) Subscribe(ctx context.Context, handler func(ev any)) error {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.handlers[id] = handler
	s.mu.Unlock()

	context.AfterFunc(ctx, func() {
		s.mu.Lock()
		delete(s.handlers, id)
		s.mu.Unlock()
	})
	return nil
}

// Run polls until ctx is cancelled. Poll failures are logged and retried on
// the next tick.
func (s *Session) Run(ctx context.Context) error {
	slog.Info("starting powhttp replay",
		slog.String("session_id", s.opts.SessionID),
		slog.Duration("interval", s.opts.RefreshInterval),
	)

	ticker := time.NewTicker(s.opts.RefreshInterval)
	defer ticker.Stop()

	for {
		if _, err := s.Poll(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("powhttp poll failed",
				slog.String("session_id", s.opts.SessionID),
				slog.String("error", err.Error()),
			)
		}

		select {
		case <-ctx.Done():
			slog.Info("stopping powhttp replay")
			return nil
		case <-ticker.C:
		}
	}
}

// Poll fetches entries added since the last poll and emits their events in
// capture order. Concurrent calls share one poll. It returns the number of
// new entries.
func (s *Session) Poll(ctx context.Context) (int, error) {
	v, err, _ := s.pollFlight.Do("poll", func() (any, error) {
		pctx, cancel := context.WithTimeout(ctx, s.opts.RefreshTimeout)
		defer cancel()
		return s.doPoll(pctx)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (s *Session) doPoll(ctx context.Context) (int, error) {
	start := time.Now()

	cs, err := s.client.GetSession(ctx, s.opts.SessionID)
	if err != nil {
		return 0, fmt.Errorf("fetching session: %w", err)
	}

	s.mu.RLock()
	var fresh []string
	for _, id := range cs.EntryIDs {
		if !s.seen[id] {
			fresh = append(fresh, id)
		}
	}
	s.mu.RUnlock()

	if len(fresh) == 0 {
		return 0, nil
	}

	entries, err := s.fetchEntries(ctx, fresh)
	if err != nil {
		return 0, fmt.Errorf("fetching entries: %w", err)
	}

	emitted := 0
	for _, e := range entries {
		// Skip failed fetches and in-flight exchanges; they are retried next poll.
		if e == nil || e.Response == nil {
			continue
		}
		s.mu.Lock()
		s.seen[e.ID] = true
		s.order = append(s.order, e.ID)
		s.entries[e.ID] = e
		s.mu.Unlock()

		s.emit(requestEvent(e))
		s.emit(responseEvent(e))
		emitted++
	}

	slog.Debug("powhttp poll completed",
		slog.String("session_id", s.opts.SessionID),
		slog.Int("new_entries", emitted),
		slog.Int("total_entries", len(cs.EntryIDs)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return emitted, nil
}

// fetchEntries fetches entries concurrently, preserving the order of ids.
// A failed fetch leaves a nil slot.
func (s *Session) fetchEntries(ctx context.Context, ids []string) ([]*Entry, error) {
	entries := make([]*Entry, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FetchWorkers)

	for i, id := range ids {
		g.Go(func() error {
			e, err := s.client.GetEntry(gctx, s.opts.SessionID, id)
			if err != nil {
				slog.Debug("failed to fetch entry",
					slog.String("entry_id", id),
					slog.String("error", err.Error()),
				)
				return nil
			}
			entries[i] = e
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, ctx.Err()
}

func (s *Session) emit(ev any) {
	s.mu.RLock()
	handlers := make([]func(any), 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Cookies replays the Set-Cookie headers of the polled responses in capture
// order. A later cookie with the same name, domain and path replaces an
// earlier one; expired cookies are removed.
func (s *Session) Cookies(_ context.Context) ([]observer.Cookie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type key struct{ name, domain, path string }
	jar := make(map[key]observer.Cookie)
	var order []key

	now := time.Now()
	for _, id := range s.order {
		e := s.entries[id]
		host := ""
		if u, err := url.Parse(e.URL); err == nil {
			host = u.Hostname()
		}
		for _, line := range e.Response.Headers.Values("Set-Cookie") {
			hc, err := http.ParseSetCookie(line)
			if err != nil {
				continue
			}
			c := convertCookie(hc, host)
			k := key{c.Name, c.Domain, c.Path}
			if hc.MaxAge < 0 || (!hc.Expires.IsZero() && hc.Expires.Before(now)) {
				delete(jar, k)
				continue
			}
			if _, exists := jar[k]; !exists {
				order = append(order, k)
			}
			jar[k] = c
		}
	}

	cookies := make([]observer.Cookie, 0, len(jar))
	for _, k := range order {
		if c, ok := jar[k]; ok {
			cookies = append(cookies, c)
		}
	}
	return cookies, nil
}

// DocumentHTML returns the body of the most recent HTML response.
func (s *Session) DocumentHTML(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.order) - 1; i >= 0; i-- {
		e := s.entries[s.order[i]]
		if !strings.Contains(e.Response.Headers.Get("Content-Type"), "text/html") {
			continue
		}
		body, err := decodeBody(e.Response.Body)
		if err != nil {
			return "", fmt.Errorf("decoding document body: %w", err)
		}
		return string(body), nil
	}
	return "", nil
}

// ResponseBody returns the decoded response body of a polled entry. The
// request ID of replayed events is the powhttp entry ID.
func (s *Session) ResponseBody(ctx context.Context, requestID string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.entries[requestID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntry, requestID)
	}

	if e.Response.Body == nil {
		// Bodies may be omitted from a first capture; ask again.
		fresh, err := s.client.GetEntry(ctx, s.opts.SessionID, requestID)
		if err != nil {
			return nil, err
		}
		if fresh.Response != nil {
			e = fresh
		}
	}

	body, err := decodeBody(e.Response.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding body of entry %s: %w", requestID, err)
	}
	return body, nil
}

func convertCookie(hc *http.Cookie, host string) observer.Cookie {
	domain := hc.Domain
	if domain == "" {
		domain = host
	}
	path := hc.Path
	if path == "" {
		path = "/"
	}
	c := observer.Cookie{
		Name:     hc.Name,
		Value:    hc.Value,
		Domain:   domain,
		Path:     path,
		Expires:  hc.Expires,
		Secure:   hc.Secure,
		HTTPOnly: hc.HttpOnly,
	}
	switch hc.SameSite {
	case http.SameSiteStrictMode:
		c.SameSite = "Strict"
	case http.SameSiteLaxMode:
		c.SameSite = "Lax"
	case http.SameSiteNoneMode:
		c.SameSite = "None"
	}
	return c
}
