// Package browser feeds the observer from a Chrome tab over the DevTools protocol.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"golang.org/x/sync/singleflight"

	"github.com/usestring/authwatch-mcp/internal/observer"
)

// Options configures how Chrome is reached.
type Options struct {
	// RemoteURL is the DevTools websocket URL of a running Chrome. Empty launches a local one.
	RemoteURL string
	ExecPath  string
	Headless  bool
	// Timeout bounds each DevTools action and navigation.
	Timeout time.Duration
}

// Session is one Chrome tab with the Network and Runtime domains enabled.
type Session struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration

	cookieFlight singleflight.Group
}

var _ observer.Session = (*Session)(nil)

// Launch starts or connects to Chrome and opens a tab. The tab lives until
// Close is called or ctx is cancelled.
func Launch(ctx context.Context, opts Options) (*Session, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		if opts.ExecPath != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, allocOpts...)
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			slog.Debug(fmt.Sprintf(format, args...), slog.String("component", "chromedp"))
		}),
	)

	s := &Session{
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		timeout: opts.Timeout,
	}

	// The first Run starts the browser; it must use the tab context itself so
	// that no action deadline tears the browser down.
	if err := chromedp.Run(tabCtx, network.Enable(), runtime.Enable()); err != nil {
		s.Close()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}

	slog.Info("chrome session started",
		slog.Bool("remote", opts.RemoteURL != ""),
		slog.Bool("headless", opts.Headless),
	)
	return s, nil
}

// Close shuts the tab and, for a local Chrome, the browser.
func (s *Session) Close() {
	s.cancel()
}

// actionContext derives a context bound to the tab, ended by ctx or the
// action timeout, whichever comes first.
func (s *Session) actionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	actx, cancel := context.WithTimeout(s.ctx, s.timeout)
	stop := context.AfterFunc(ctx, cancel)
	return actx, func() {
		stop()
		cancel()
	}
}

// Subscribe translates DevTools events for the tab until ctx is cancelled.
func (s *Session) Subscribe(ctx context.Context, handler func(ev any)) error {
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("chrome session closed: %w", err)
	}

	lctx, cancel := context.WithCancel(s.ctx)
	context.AfterFunc(ctx, cancel)

	chromedp.ListenTarget(lctx, func(ev any) {
		for _, out := range translateEvent(ev) {
			handler(out)
		}
	})
	return nil
}

// Cookies returns every cookie in the browser's jar, whatever its domain.
func (s *Session) Cookies(ctx context.Context) ([]observer.Cookie, error) {
	v, err, _ := s.cookieFlight.Do("cookies", func() (any, error) {
		actx, cancel := s.actionContext(ctx)
		defer cancel()

		var cookies []*network.Cookie
		err := chromedp.Run(actx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = storage.GetCookies().Do(ctx)
			return err
		}))
		if err != nil {
			return nil, err
		}
		return convertCookies(cookies), nil
	})
	if err != nil {
		return nil, fmt.Errorf("getting cookies: %w", err)
	}
	return v.([]observer.Cookie), nil
}

// DocumentHTML returns the outer HTML of the current document.
func (s *Session) DocumentHTML(ctx context.Context) (string, error) {
	actx, cancel := s.actionContext(ctx)
	defer cancel()

	var html string
	if err := chromedp.Run(actx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}
	return html, nil
}

// ResponseBody returns the body of a response still held by the browser.
func (s *Session) ResponseBody(ctx context.Context, requestID string) ([]byte, error) {
	actx, cancel := s.actionContext(ctx)
	defer cancel()

	var body []byte
	err := chromedp.Run(actx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		body, err = network.GetResponseBody(network.RequestID(requestID)).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("getting response body: %w", err)
	}
	return body, nil
}

// Navigate loads url in the tab and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	actx, cancel := s.actionContext(ctx)
	defer cancel()

	start := time.Now()
	if err := chromedp.Run(actx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	slog.Debug("navigation completed",
		slog.String("url", url),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}
