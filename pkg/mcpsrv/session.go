package mcpsrv

import (
	"context"
	"fmt"
	"net/http"

	"github.com/usestring/authwatch-mcp/internal/browser"
	"github.com/usestring/authwatch-mcp/internal/config"
	"github.com/usestring/authwatch-mcp/internal/observer"
	"github.com/usestring/authwatch-mcp/internal/replay"
)

// runner is a session that needs its own loop, such as the replay poller.
type runner interface {
	Run(ctx context.Context) error
}

// openSession opens the session named by cfg.SessionSource. The returned
// close function releases it.
func openSession(ctx context.Context, cfg *config.Config, httpClient *http.Client) (observer.Session, func(), error) {
	switch cfg.SessionSource {
	case config.SourceChrome:
		s, err := browser.Launch(ctx, browser.Options{
			RemoteURL: cfg.ChromeRemoteURL,
			ExecPath:  cfg.ChromeExecPath,
			Headless:  cfg.ChromeHeadless,
			Timeout:   cfg.NavigationTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case config.SourcePowHTTP:
		if httpClient == nil {
			httpClient = &http.Client{Timeout: cfg.HTTPClientTimeout}
		}
		c := replay.NewClient(
			replay.WithBaseURL(cfg.PowHTTPBaseURL),
			replay.WithHTTPClient(httpClient),
		)
		s := replay.New(c, replay.Options{
			SessionID:       cfg.PowHTTPSessionID,
			RefreshInterval: cfg.RefreshInterval,
			RefreshTimeout:  cfg.RefreshTimeout,
		})
		return s, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown SESSION_SOURCE %q (want %q or %q)",
			cfg.SessionSource, config.SourceChrome, config.SourcePowHTTP)
	}
}

// observerOptions maps configuration onto observer options.
func observerOptions(cfg *config.Config) []observer.Option {
	opts := []observer.Option{
		observer.WithRetention(cfg.MaxRequestRecords, cfg.MaxResponseRecords),
		observer.WithBodyCacheSize(cfg.BodyCacheMaxItems),
		observer.WithLoginDefaults(cfg.LoginURLFragment, cfg.LoginExpectedStatus),
		observer.WithWaitTimeout(cfg.NavigationTimeout),
	}
	if len(cfg.SessionCookiePatterns) > 0 {
		opts = append(opts, observer.WithSessionCookiePatterns(cfg.SessionCookiePatterns...))
	}
	if len(cfg.TokenCookiePatterns) > 0 {
		opts = append(opts, observer.WithTokenCookiePatterns(cfg.TokenCookiePatterns...))
	}
	return opts
}
