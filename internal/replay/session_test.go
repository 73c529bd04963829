package replay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/authwatch-mcp/internal/observer"
)

func ptr[T any](v T) *T { return &v }

func b64(s string) *string {
	return ptr(base64.StdEncoding.EncodeToString([]byte(s)))
}

// fakePowHTTP serves one capture session whose entries the test controls.
type fakePowHTTP struct {
	mu      sync.Mutex
	ids     []string
	entries map[string]Entry
	hits    map[string]int
}

func newFakePowHTTP() *fakePowHTTP {
	return &fakePowHTTP{entries: make(map[string]Entry), hits: make(map[string]int)}
}

func (f *fakePowHTTP) add(e Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, e.ID)
	f.entries[e.ID] = e
}

func (f *fakePowHTTP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.hits[r.URL.Path]++
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] == "sessions" && parts[1] == "s1":
		_ = json.NewEncoder(w).Encode(CaptureSession{ID: "s1", Name: "login", EntryIDs: f.ids})
	case len(parts) == 4 && parts[0] == "sessions" && parts[2] == "entries":
		e, ok := f.entries[parts[3]]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"entry not found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(e)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"session not found"}`))
	}
}

func loginEntries() []Entry {
	return []Entry{
		{
			ID:      "e1",
			URL:     "https://app.example.com/",
			Request: EntryRequest{Method: ptr("GET")},
			Response: &EntryResponse{
				StatusCode: ptr(200),
				StatusText: ptr("OK"),
				Headers: Headers{
					{"Content-Type", "text/html; charset=utf-8"},
					{"X-Frame-Options", "DENY"},
				},
				Body: b64(`<html><head><meta http-equiv="Content-Security-Policy" content="default-src 'self'"></head></html>`),
			},
		},
		{
			ID:  "e2",
			URL: "https://app.example.com/api/login",
			Request: EntryRequest{
				Method:  ptr("POST"),
				Headers: Headers{{"Content-Type", "application/json"}},
				Body:    b64(`{"username":"a","password":"b"}`),
			},
			Response: &EntryResponse{
				StatusCode: ptr(200),
				Headers: Headers{
					{"Content-Type", "application/json"},
					{"Set-Cookie", "sid=abc; Path=/; HttpOnly; Secure; SameSite=Strict"},
					{"Set-Cookie", "theme=dark"},
					{"Set-Cookie", "old_session=x; Max-Age=0"},
				},
				Body: b64(`{"token":"t","user":{"id":1}}`),
			},
		},
	}
}

func newTestSession(t *testing.T, f *fakePowHTTP) *Session {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	c := NewClient(WithBaseURL(srv.URL+"/"), WithHTTPClient(srv.Client()))
	return New(c, Options{SessionID: "s1", RefreshInterval: 10 * time.Millisecond})
}

type recorder struct {
	mu     sync.Mutex
	events []any
}

func (r *recorder) handle(ev any) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.events...)
}

func TestPoll_EmitsNewEntriesInOrder(t *testing.T) {
	f := newFakePowHTTP()
	for _, e := range loginEntries() {
		f.add(e)
	}
	s := newTestSession(t, f)

	var rec recorder
	require.NoError(t, s.Subscribe(context.Background(), rec.handle))

	n, err := s.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	events := rec.snapshot()
	require.Len(t, events, 4)

	req, ok := events[2].(observer.RequestEvent)
	require.True(t, ok)
	assert.Equal(t, "e2", req.RequestID)
	assert.Equal(t, "POST", req.Method)
	require.NotNil(t, req.Body)
	assert.JSONEq(t, `{"username":"a","password":"b"}`, *req.Body)

	doc, ok := events[1].(observer.ResponseEvent)
	require.True(t, ok)
	assert.Equal(t, observer.ResourceDocument, doc.ResourceType)
	assert.Equal(t, "text/html", doc.MimeType)
	assert.Equal(t, "DENY", doc.Headers["X-Frame-Options"])

	// Nothing new on the next poll.
	n, err = s.Poll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, rec.snapshot(), 4)

	f.add(Entry{ID: "e3", URL: "https://app.example.com/api/me", Response: &EntryResponse{StatusCode: ptr(401)}})
	n, err = s.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	last := rec.snapshot()[5].(observer.ResponseEvent)
	assert.Equal(t, 401, last.StatusCode)
}

func TestPoll_SkipsInFlightEntries(t *testing.T) {
	f := newFakePowHTTP()
	f.add(Entry{ID: "e1", URL: "https://a/slow"})
	s := newTestSession(t, f)

	n, err := s.Poll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	f.mu.Lock()
	f.entries["e1"] = Entry{ID: "e1", URL: "https://a/slow", Response: &EntryResponse{StatusCode: ptr(200)}}
	f.mu.Unlock()

	n, err = s.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPoll_SessionError(t *testing.T) {
	f := newFakePowHTTP()
	srv := httptest.NewServer(f)
	defer srv.Close()
	s := New(NewClient(WithBaseURL(srv.URL)), Options{SessionID: "missing"})

	_, err := s.Poll(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "session not found", apiErr.Message)
}

func TestSubscribe_StopsOnCancel(t *testing.T) {
	f := newFakePowHTTP()
	s := newTestSession(t, f)

	var rec recorder
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Subscribe(ctx, rec.handle))
	cancel()

	require.Eventually(t, func() bool {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return len(s.handlers) == 0
	}, time.Second, time.Millisecond)

	f.add(loginEntries()[0])
	_, err := s.Poll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rec.snapshot())
}

func TestCookies_FromSetCookie(t *testing.T) {
	f := newFakePowHTTP()
	for _, e := range loginEntries() {
		f.add(e)
	}
	f.add(Entry{
		ID:  "e3",
		URL: "https://app.example.com/api/refresh",
		Response: &EntryResponse{StatusCode: ptr(200), Headers: Headers{
			{"Set-Cookie", "sid=def; Path=/; HttpOnly; Secure; SameSite=Strict"},
			{"Set-Cookie", "theme=; Max-Age=-1"},
		}},
	})
	s := newTestSession(t, f)
	_, err := s.Poll(context.Background())
	require.NoError(t, err)

	cookies, err := s.Cookies(context.Background())
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, observer.Cookie{
		Name:     "sid",
		Value:    "def",
		Domain:   "app.example.com",
		Path:     "/",
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Strict",
	}, cookies[0])
}

func TestDocumentHTMLAndBody(t *testing.T) {
	f := newFakePowHTTP()
	for _, e := range loginEntries() {
		f.add(e)
	}
	s := newTestSession(t, f)
	_, err := s.Poll(context.Background())
	require.NoError(t, err)

	html, err := s.DocumentHTML(context.Background())
	require.NoError(t, err)
	assert.Contains(t, html, "Content-Security-Policy")

	body, err := s.ResponseBody(context.Background(), "e2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"t","user":{"id":1}}`, string(body))

	_, err = s.ResponseBody(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownEntry)
}

func TestRun_DrivesObserver(t *testing.T) {
	f := newFakePowHTTP()
	for _, e := range loginEntries() {
		f.add(e)
	}
	s := newTestSession(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o, err := observer.Attach(ctx, s)
	require.NoError(t, err)
	defer o.Detach()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(o.Responses()) == 2
	}, 2*time.Second, 5*time.Millisecond)

	rec, ok := o.FindLoginExchange(observer.LoginRequestMatcher("/api/login"))
	require.True(t, ok)
	assert.Equal(t, "POST", rec.Method)

	report, err := o.SecurityHeaderReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, observer.SourceHeader, report["X-Frame-Options"].Source)
	assert.Equal(t, observer.SourceMeta, report["Content-Security-Policy"].Source)

	shape := o.ValidateJSONShape(ctx, observer.PathEquals("/api/login"), map[string]string{"token": "string", "user": "object"}, observer.ShapeOptions{CheckTypes: true})
	assert.True(t, shape.Valid, shape.Error)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
