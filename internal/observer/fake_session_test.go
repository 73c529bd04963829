package observer

import (
	"context"
	"errors"
	"sync"
)

// fakeSession is an in-memory Session driven by the test.
type fakeSession struct {
	mu        sync.Mutex
	handler   func(ev any)
	cookies   []Cookie
	cookieErr error
	html      string
	htmlErr   error
	bodies    map[string][]byte
	bodyCalls int
}

func newFakeSession() *fakeSession {
	return &fakeSession{bodies: make(map[string][]byte)}
}

func (f *fakeSession) Subscribe(_ context.Context, handler func(ev any)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	return nil
}

// emit delivers events even after the subscription context is cancelled,
// like a session whose listener is still draining.
func (f *fakeSession) emit(events ...any) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	for _, ev := range events {
		h(ev)
	}
}

func (f *fakeSession) Cookies(context.Context) ([]Cookie, error) {
	return f.cookies, f.cookieErr
}

func (f *fakeSession) DocumentHTML(context.Context) (string, error) {
	return f.html, f.htmlErr
}

func (f *fakeSession) ResponseBody(_ context.Context, requestID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodyCalls++
	body, ok := f.bodies[requestID]
	if !ok {
		return nil, errors.New("no resource with given identifier found")
	}
	return body, nil
}

func request(id, url string) RequestEvent {
	return RequestEvent{RequestID: id, URL: url, Method: "GET"}
}

func response(id, url string, status int) ResponseEvent {
	return ResponseEvent{RequestID: id, URL: url, StatusCode: status}
}
