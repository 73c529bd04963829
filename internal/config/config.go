// Package config provides configuration loading from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Session sources
const (
	SourceChrome  = "chrome"
	SourcePowHTTP = "powhttp"
)

// Observer defaults
const (
	DefaultLoginURLFragment    = "/api/login"
	DefaultLoginExpectedStatus = 200
	DefaultLatencyBudgetMs     = 3000
	DefaultNavigationTimeoutMs = 30000
	DefaultBodyCacheMaxItems   = 256
)

// Config holds all configuration for the MCP server.
type Config struct {
	SessionSource string // SESSION_SOURCE, "chrome" or "powhttp", default "chrome"

	// Chrome session
	ChromeRemoteURL   string        // CHROME_REMOTE_URL, DevTools websocket URL; empty launches a local Chrome
	ChromeExecPath    string        // CHROME_EXEC_PATH, default "" (chromedp lookup)
	ChromeHeadless    bool          // CHROME_HEADLESS, default true
	StartURL          string        // START_URL, page opened after attach, default ""
	NavigationTimeout time.Duration // NAVIGATION_TIMEOUT_MS, default 30000ms

	// powhttp replay session
	PowHTTPBaseURL    string        // POWHTTP_BASE_URL, default "http://localhost:7777"
	PowHTTPSessionID  string        // POWHTTP_SESSION_ID, default "active"
	HTTPClientTimeout time.Duration // HTTP_CLIENT_TIMEOUT_MS, default 10000ms
	RefreshInterval   time.Duration // REFRESH_INTERVAL_MS, default 1000ms
	RefreshTimeout    time.Duration // REFRESH_TIMEOUT_MS, default 15000ms

	// Observer
	LoginURLFragment      string        // LOGIN_URL_FRAGMENT, default "/api/login"
	LoginExpectedStatus   int           // LOGIN_EXPECTED_STATUS, default 200
	LatencyBudget         time.Duration // LATENCY_BUDGET_MS, default 3000ms
	MaxRequestRecords     int           // MAX_REQUEST_RECORDS, default 0 (unbounded)
	MaxResponseRecords    int           // MAX_RESPONSE_RECORDS, default 0 (unbounded)
	BodyCacheMaxItems     int           // BODY_CACHE_MAX_ITEMS, default 256
	ResourceMaxBodyBytes  int           // RESOURCE_MAX_BODY_BYTES, default 65536 (64KB)
	SessionCookiePatterns []string      // SESSION_COOKIE_PATTERNS, comma-separated, default session,sessid,~sid,auth,token
	TokenCookiePatterns   []string      // TOKEN_COOKIE_PATTERNS, comma-separated, default token,jwt

	// Masking
	RedactValues []string // REDACT_VALUES, comma-separated literal secrets masked in logs and tool output

	// Logging configuration
	LogLevel      string // LOG_LEVEL, default "info"
	LogFile       string // LOG_FILE, default "" (stderr only)
	LogMaxSizeMB  int    // LOG_MAX_SIZE_MB, default 10
	LogMaxBackups int    // LOG_MAX_BACKUPS, default 5
	LogMaxAgeDays int    // LOG_MAX_AGE_DAYS, default 28
	LogCompress   bool   // LOG_COMPRESS, default true
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		SessionSource: strings.ToLower(getEnvString("SESSION_SOURCE", SourceChrome)),

		ChromeRemoteURL:   getEnvString("CHROME_REMOTE_URL", ""),
		ChromeExecPath:    getEnvString("CHROME_EXEC_PATH", ""),
		ChromeHeadless:    getEnvBool("CHROME_HEADLESS", true),
		StartURL:          getEnvString("START_URL", ""),
		NavigationTimeout: getEnvDurationMs("NAVIGATION_TIMEOUT_MS", DefaultNavigationTimeoutMs),

		PowHTTPBaseURL:    getEnvString("POWHTTP_BASE_URL", "http://localhost:7777"),
		PowHTTPSessionID:  getEnvString("POWHTTP_SESSION_ID", "active"),
		HTTPClientTimeout: getEnvDurationMs("HTTP_CLIENT_TIMEOUT_MS", 10000),
		RefreshInterval:   getEnvDurationMs("REFRESH_INTERVAL_MS", 1000),
		RefreshTimeout:    getEnvDurationMs("REFRESH_TIMEOUT_MS", 15000),

		LoginURLFragment:      getEnvString("LOGIN_URL_FRAGMENT", DefaultLoginURLFragment),
		LoginExpectedStatus:   getEnvInt("LOGIN_EXPECTED_STATUS", DefaultLoginExpectedStatus),
		LatencyBudget:         getEnvDurationMs("LATENCY_BUDGET_MS", DefaultLatencyBudgetMs),
		MaxRequestRecords:     getEnvInt("MAX_REQUEST_RECORDS", 0),
		MaxResponseRecords:    getEnvInt("MAX_RESPONSE_RECORDS", 0),
		BodyCacheMaxItems:     getEnvInt("BODY_CACHE_MAX_ITEMS", DefaultBodyCacheMaxItems),
		ResourceMaxBodyBytes:  getEnvInt("RESOURCE_MAX_BODY_BYTES", 65536),
		SessionCookiePatterns: getEnvList("SESSION_COOKIE_PATTERNS"),
		TokenCookiePatterns:   getEnvList("TOKEN_COOKIE_PATTERNS"),

		RedactValues: getEnvList("REDACT_VALUES"),

		LogLevel:      getEnvString("LOG_LEVEL", "info"),
		LogFile:       getEnvString("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationMs(key string, defaultMs int) time.Duration {
	ms := getEnvInt(key, defaultMs)
	return time.Duration(ms) * time.Millisecond
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
