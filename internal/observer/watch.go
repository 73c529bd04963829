package observer

import (
	"sync"
	"time"
)

// Page error kinds.
const (
	ErrorKindConsole   = "console"
	ErrorKindException = "exception"
)

// PageError is a console error or uncaught exception raised by the page.
type PageError struct {
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	Location   string    `json:"location,omitempty"`
	Stack      string    `json:"stack,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// ErrorWatch collects page errors raised after it was opened.
type ErrorWatch struct {
	o *Observer

	mu     sync.Mutex
	errors []PageError
}

// WatchErrors starts collecting console errors and uncaught exceptions.
// Errors raised before the call are not seen.
func (o *Observer) WatchErrors() *ErrorWatch {
	w := &ErrorWatch{o: o}
	o.mu.Lock()
	o.watches[w] = struct{}{}
	o.mu.Unlock()
	return w
}

func (w *ErrorWatch) add(pe PageError) {
	w.mu.Lock()
	w.errors = append(w.errors, pe)
	w.mu.Unlock()
}

// Errors returns the collected errors in the order they were raised.
func (w *ErrorWatch) Errors() []PageError {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]PageError, len(w.errors))
	copy(out, w.errors)
	return out
}

// Reset drops the collected errors and keeps watching.
func (w *ErrorWatch) Reset() {
	w.mu.Lock()
	w.errors = nil
	w.mu.Unlock()
}

// Close stops collection. Errors collected so far stay readable.
func (w *ErrorWatch) Close() {
	w.o.mu.Lock()
	delete(w.o.watches, w)
	w.o.mu.Unlock()
}
