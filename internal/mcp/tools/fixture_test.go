package tools

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/usestring/authwatch-mcp/internal/config"
	"github.com/usestring/authwatch-mcp/internal/observer"
	"github.com/usestring/authwatch-mcp/internal/redact"
)

// stubSession is an in-memory observer.Session.
type stubSession struct {
	mu      sync.Mutex
	handler func(ev any)
	cookies []observer.Cookie
	html    string
	bodies  map[string][]byte
}

func (s *stubSession) Subscribe(_ context.Context, handler func(ev any)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
	return nil
}

func (s *stubSession) emit(events ...any) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	for _, ev := range events {
		h(ev)
	}
}

func (s *stubSession) Cookies(context.Context) ([]observer.Cookie, error) {
	return s.cookies, nil
}

func (s *stubSession) DocumentHTML(context.Context) (string, error) {
	return s.html, nil
}

func (s *stubSession) ResponseBody(_ context.Context, requestID string) ([]byte, error) {
	if b, ok := s.bodies[requestID]; ok {
		return b, nil
	}
	return nil, errors.New("no body")
}

// stubNavigator emits a response for the URL it is asked to open.
type stubNavigator struct {
	session *stubSession
	err     error
	visited []string
}

func (n *stubNavigator) Navigate(_ context.Context, url string) error {
	if n.err != nil {
		return n.err
	}
	n.visited = append(n.visited, url)
	n.session.emit(
		observer.RequestEvent{RequestID: "nav", URL: url, Method: "GET", ResourceType: observer.ResourceDocument},
		observer.ResponseEvent{RequestID: "nav", URL: url, StatusCode: 200, ResourceType: observer.ResourceDocument},
	)
	return nil
}

type stubRefresher struct {
	calls int
	err   error
}

func (r *stubRefresher) Poll(context.Context) (int, error) {
	r.calls++
	return 0, r.err
}

func testConfig() *config.Config {
	return &config.Config{
		LoginURLFragment:     "/api/login",
		LoginExpectedStatus:  200,
		LatencyBudget:        3 * time.Second,
		NavigationTimeout:    2 * time.Second,
		ResourceMaxBodyBytes: 1024,
	}
}

func newTestDeps(t *testing.T) (*Deps, *stubSession) {
	t.Helper()
	s := &stubSession{bodies: make(map[string][]byte)}
	o, err := observer.Attach(context.Background(), s)
	require.NoError(t, err)
	t.Cleanup(o.Detach)

	w := o.WatchErrors()
	t.Cleanup(w.Close)

	return &Deps{
		Observer: o,
		Errors:   w,
		Masker:   redact.New("hunter2"),
		Config:   testConfig(),
	}, s
}

// loginFlow emits a typical page load followed by a login exchange.
func loginFlow(s *stubSession) {
	body := `{"username":"alice","password":"hunter2"}`
	s.emit(
		observer.RequestEvent{RequestID: "1", URL: "https://app.test/login", Method: "GET", ResourceType: observer.ResourceDocument},
		observer.ResponseEvent{RequestID: "1", URL: "https://app.test/login", StatusCode: 200, ResourceType: observer.ResourceDocument,
			Headers: map[string]string{"X-Frame-Options": "DENY", "X-Content-Type-Options": "nosniff"}},
		observer.RequestEvent{RequestID: "2", URL: "https://app.test/api/login", Method: "POST", Body: &body,
			Headers: map[string]string{"Content-Type": "application/json", "Authorization": "Bearer abc.def"}},
		observer.ResponseEvent{RequestID: "2", URL: "https://app.test/api/login", StatusCode: 200, MimeType: "application/json"},
		observer.RequestEvent{RequestID: "3", URL: "https://cdn.test/app.js", Method: "GET"},
		observer.ResponseEvent{RequestID: "3", URL: "https://cdn.test/app.js", StatusCode: 404},
	)
	s.bodies["2"] = []byte(`{"token":"x","user":{"id":1,"name":"alice"},"expires_in":3600}`)
}
