package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/authwatch-mcp/internal/observer"
	"github.com/usestring/authwatch-mcp/internal/redact"
	"github.com/usestring/authwatch-mcp/internal/replay"
)

var bg = context.Background()

func TestToolSummary(t *testing.T) {
	d, s := newTestDeps(t)
	refresher := &stubRefresher{}
	d.Refresher = refresher
	loginFlow(s)
	s.cookies = []observer.Cookie{{Name: "session_id", Secure: true, HTTPOnly: true}, {Name: "theme"}}

	_, out, err := ToolSummary(d)(bg, nil, SummaryInput{})
	require.NoError(t, err)

	assert.Equal(t, 1, refresher.calls)
	assert.Equal(t, d.Observer.ID(), out.ObserverID)
	assert.Equal(t, 3, out.Requests)
	assert.Equal(t, 3, out.Responses)
	assert.Equal(t, 1, out.FailedResponses)
	require.NotNil(t, out.LoginRequest)
	require.NotNil(t, out.SessionCookies)
	assert.Equal(t, 1, out.SessionCookies.SessionRelevantCount)
	assert.Len(t, out.SecurityHeaders, len(observer.SecurityHeaders))
	assert.NotEmpty(t, out.GeneratedAt)
}

func TestToolFindLogin_DefaultMatchesFirstLoginURL(t *testing.T) {
	d, s := newTestDeps(t)
	loginFlow(s)

	_, out, err := ToolFindLogin(d)(bg, nil, FindLoginInput{})
	require.NoError(t, err)

	// The page URL contains "login" too, so it wins by log order.
	require.NotNil(t, out.Request)
	assert.Equal(t, "https://app.test/login", out.Request.URL)
	assert.Equal(t, 200, out.ExpectedStatus)
}

func TestToolFindLogin_PathMatch(t *testing.T) {
	d, s := newTestDeps(t)
	loginFlow(s)

	_, out, err := ToolFindLogin(d)(bg, nil, FindLoginInput{
		Match:          &MatchInput{Path: "/api/login"},
		ExpectedStatus: 201,
		IncludeHeaders: true,
		IncludeBody:    true,
	})
	require.NoError(t, err)

	require.NotNil(t, out.Request)
	assert.Equal(t, "POST", out.Request.Method)
	assert.Equal(t, redact.Mask, out.Request.Headers["Authorization"])
	assert.NotContains(t, out.Request.Body, "hunter2")
	assert.NotContains(t, out.Request.Body, "alice")

	require.NotNil(t, out.Response)
	assert.False(t, out.StatusMatches)
	assert.Contains(t, out.Hint, "expected 201")
}

func TestToolFindLogin_NothingRecorded(t *testing.T) {
	d, _ := newTestDeps(t)

	_, out, err := ToolFindLogin(d)(bg, nil, FindLoginInput{})
	require.NoError(t, err)
	assert.Nil(t, out.Request)
	assert.Nil(t, out.Response)
	assert.Contains(t, out.Hint, "No login traffic")
}

func TestToolFindLogin_InvalidPattern(t *testing.T) {
	d, _ := newTestDeps(t)

	_, _, err := ToolFindLogin(d)(bg, nil, FindLoginInput{Match: &MatchInput{URLPattern: "("}})
	var coded *CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, ErrCodeInvalidInput, coded.Code)
}

func TestMatchInput(t *testing.T) {
	var nilInput *MatchInput
	m, err := nilInput.Matcher()
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = (&MatchInput{}).Matcher()
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = (&MatchInput{URLContains: "api", HeaderName: "X-Flow", HeaderValue: "login"}).Matcher()
	require.NoError(t, err)
	assert.True(t, m.Match("https://a/api", map[string]string{"x-flow": "login"}))
	assert.False(t, m.Match("https://a/api", nil))

	_, err = (&MatchInput{HeaderValue: "x"}).Matcher()
	assert.Error(t, err)
}

func TestToolSecurityHeaders(t *testing.T) {
	d, s := newTestDeps(t)
	loginFlow(s)
	s.html = `<html><head><meta http-equiv="Content-Security-Policy" content="default-src 'self'"></head></html>`

	_, out, err := ToolSecurityHeaders(d)(bg, nil, SecurityHeadersInput{})
	require.NoError(t, err)

	assert.Equal(t, 3, out.Present)
	assert.Equal(t, 3, out.Compliant)
	assert.Equal(t, []string{"X-XSS-Protection", "Strict-Transport-Security"}, out.Missing)
	assert.Equal(t, observer.SourceMeta, out.Headers["Content-Security-Policy"].Source)
	assert.Empty(t, out.Warning)
}

func TestToolSessionCookies(t *testing.T) {
	d, s := newTestDeps(t)
	s.cookies = []observer.Cookie{
		{Name: "SESSIONID", Value: "secret", Secure: true, HTTPOnly: true},
		{Name: "auth_token", Value: "secret", Secure: true},
		{Name: "locale"},
	}

	_, out, err := ToolSessionCookies(d)(bg, nil, SessionCookiesInput{})
	require.NoError(t, err)
	assert.Equal(t, 3, out.TotalCount)
	assert.Equal(t, 2, out.SessionRelevantCount)
	assert.Equal(t, []string{"auth_token"}, out.Insecure)
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return tok
}

func TestToolDecodeToken(t *testing.T) {
	d, s := newTestDeps(t)
	exp := time.Now().Add(time.Hour)
	raw := signedToken(t, jwt.MapClaims{
		"sub":      "42",
		"password": "hunter2",
		"iat":      time.Now().Unix(),
		"exp":      exp.Unix(),
	})
	s.cookies = []observer.Cookie{{Name: "access_token", Value: raw}}

	t.Run("cookie", func(t *testing.T) {
		_, out, err := ToolDecodeToken(d)(bg, nil, DecodeTokenInput{})
		require.NoError(t, err)
		assert.True(t, out.Valid)
		assert.Equal(t, TokenSourceCookie, out.Source)
		assert.Equal(t, "access_token", out.Cookie)
		assert.Equal(t, "42", out.Payload["sub"])
		assert.Equal(t, redact.Mask, out.Payload["password"])
		assert.False(t, out.Expired)
		assert.NotEmpty(t, out.ExpiresAt)
		assert.NotEmpty(t, out.ExpiresIn)
	})

	t.Run("raw expired", func(t *testing.T) {
		old := signedToken(t, jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()})
		_, out, err := ToolDecodeToken(d)(bg, nil, DecodeTokenInput{Source: TokenSourceRaw, Token: old})
		require.NoError(t, err)
		assert.True(t, out.Valid)
		assert.True(t, out.Expired)
		assert.Empty(t, out.ExpiresIn)
	})

	t.Run("raw requires token", func(t *testing.T) {
		_, _, err := ToolDecodeToken(d)(bg, nil, DecodeTokenInput{Source: TokenSourceRaw})
		assert.Error(t, err)
	})

	t.Run("unknown source", func(t *testing.T) {
		_, _, err := ToolDecodeToken(d)(bg, nil, DecodeTokenInput{Source: "header"})
		assert.Error(t, err)
	})

	t.Run("bearer missing", func(t *testing.T) {
		_, out, err := ToolDecodeToken(d)(bg, nil, DecodeTokenInput{Source: TokenSourceBearer})
		require.NoError(t, err)
		assert.False(t, out.Valid)
		assert.NotEmpty(t, out.Error)
	})
}

func TestToolMeasureLatency_NavigateTrigger(t *testing.T) {
	d, s := newTestDeps(t)
	nav := &stubNavigator{session: s}
	d.Navigator = nav

	_, out, err := ToolMeasureLatency(d)(bg, nil, MeasureLatencyInput{
		Match:       &MatchInput{URLContains: "/dashboard"},
		MaxTimeMs:   1000,
		NavigateURL: "https://app.test/dashboard",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.test/dashboard"}, nav.visited)
	assert.Equal(t, "https://app.test/dashboard", out.URL)
	assert.True(t, out.WithinLimit)
	assert.Equal(t, int64(1000), out.MaxTimeMs)
}

func TestToolMeasureLatency_Timeout(t *testing.T) {
	d, _ := newTestDeps(t)

	_, _, err := ToolMeasureLatency(d)(bg, nil, MeasureLatencyInput{TimeoutMs: 30})
	var coded *CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, ErrCodeTimeout, coded.Code)
}

func TestToolMeasureLatency_NavigateNeedsBrowser(t *testing.T) {
	d, _ := newTestDeps(t)

	_, _, err := ToolMeasureLatency(d)(bg, nil, MeasureLatencyInput{NavigateURL: "https://app.test/"})
	var coded *CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, ErrCodeInvalidInput, coded.Code)
}

func TestToolNavigate(t *testing.T) {
	d, s := newTestDeps(t)

	_, _, err := ToolNavigate(d)(bg, nil, NavigateInput{URL: "https://app.test/"})
	assert.Error(t, err, "replay sessions cannot navigate")

	d.Navigator = &stubNavigator{session: s}
	_, _, err = ToolNavigate(d)(bg, nil, NavigateInput{URL: "javascript:alert(1)"})
	assert.Error(t, err)

	_, out, err := ToolNavigate(d)(bg, nil, NavigateInput{URL: "https://app.test/"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Requests)
	assert.Equal(t, 1, out.Responses)

	d.Navigator = &stubNavigator{session: s, err: context.DeadlineExceeded}
	_, _, err = ToolNavigate(d)(bg, nil, NavigateInput{URL: "https://app.test/"})
	var coded *CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, ErrCodeTimeout, coded.Code)
}

func TestToolValidateShape(t *testing.T) {
	d, s := newTestDeps(t)
	loginFlow(s)
	match := &MatchInput{Path: "/api/login"}

	t.Run("keys", func(t *testing.T) {
		_, out, err := ToolValidateShape(d)(bg, nil, ValidateShapeInput{
			Match:    match,
			Expected: map[string]string{"token": "string", "user": "object", "refresh": "string"},
		})
		require.NoError(t, err)
		assert.False(t, out.Valid)
		assert.Equal(t, []string{"refresh"}, out.Missing)
		assert.Equal(t, []string{"expires_in"}, out.Extra)
	})

	t.Run("select and types", func(t *testing.T) {
		_, out, err := ToolValidateShape(d)(bg, nil, ValidateShapeInput{
			Match:      match,
			Expected:   map[string]string{"id": "string", "name": "string"},
			Select:     ".user",
			CheckTypes: true,
		})
		require.NoError(t, err)
		assert.False(t, out.Valid)
		assert.Empty(t, out.Missing)
		assert.NotEmpty(t, out.TypeErrors)
	})

	t.Run("bad select", func(t *testing.T) {
		_, _, err := ToolValidateShape(d)(bg, nil, ValidateShapeInput{
			Expected: map[string]string{"a": "string"},
			Select:   ".[",
		})
		assert.Error(t, err)
	})

	t.Run("bad type", func(t *testing.T) {
		_, _, err := ToolValidateShape(d)(bg, nil, ValidateShapeInput{
			Expected:   map[string]string{"a": "uuid"},
			CheckTypes: true,
		})
		assert.Error(t, err)
	})

	t.Run("expected required", func(t *testing.T) {
		_, _, err := ToolValidateShape(d)(bg, nil, ValidateShapeInput{})
		assert.Error(t, err)
	})
}

func TestToolListExchanges(t *testing.T) {
	d, s := newTestDeps(t)
	loginFlow(s)

	_, out, err := ToolListExchanges(d)(bg, nil, ListExchangesInput{FailedOnly: true})
	require.NoError(t, err)
	require.Len(t, out.Exchanges, 1)
	assert.Equal(t, 404, out.Exchanges[0].Response.StatusCode)
	require.NotNil(t, out.Exchanges[0].Request)
	assert.Equal(t, "GET", out.Exchanges[0].Request.Method)

	_, out, err = ToolListExchanges(d)(bg, nil, ListExchangesInput{Host: "app.test", Method: "post"})
	require.NoError(t, err)
	require.Len(t, out.Exchanges, 1)
	assert.Equal(t, "https://app.test/api/login", out.Exchanges[0].Response.URL)

	_, out, err = ToolListExchanges(d)(bg, nil, ListExchangesInput{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Total)
	assert.True(t, out.Truncated)
	require.Len(t, out.Exchanges, 2)
	assert.Equal(t, "https://cdn.test/app.js", out.Exchanges[1].Response.URL)

	_, _, err = ToolListExchanges(d)(bg, nil, ListExchangesInput{StatusMin: 500, StatusMax: 400})
	assert.Error(t, err)
}

func TestToolPageErrorsAndClear(t *testing.T) {
	d, s := newTestDeps(t)
	loginFlow(s)
	s.emit(
		observer.ConsoleEvent{Message: "login failed for hunter2"},
		observer.PageErrorEvent{Message: "TypeError: x is undefined", Location: "app.js:1:2"},
	)

	_, out, err := ToolPageErrors(d)(bg, nil, PageErrorsInput{Kind: observer.ErrorKindException})
	require.NoError(t, err)
	require.Equal(t, 1, out.Total)
	assert.Equal(t, "app.js:1:2", out.Errors[0].Location)

	_, out, err = ToolPageErrors(d)(bg, nil, PageErrorsInput{})
	require.NoError(t, err)
	require.Equal(t, 2, out.Total)
	assert.NotContains(t, out.Errors[0].Message, "hunter2")

	_, _, err = ToolPageErrors(d)(bg, nil, PageErrorsInput{Kind: "warning"})
	assert.Error(t, err)

	_, cleared, err := ToolClear(d)(bg, nil, ClearInput{})
	require.NoError(t, err)
	assert.Equal(t, 3, cleared.ClearedRequests)
	assert.Equal(t, 3, cleared.ClearedResponses)
	assert.Empty(t, d.Observer.Requests())

	_, out, err = ToolPageErrors(d)(bg, nil, PageErrorsInput{})
	require.NoError(t, err)
	assert.Zero(t, out.Total)
}

func TestWrapSessionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"detached", fmt.Errorf("wait: %w", observer.ErrDetached), ErrCodeDetached},
		{"not found", &replay.APIError{StatusCode: http.StatusNotFound, Message: "entry not found"}, ErrCodeNotFound},
		{"api error", &replay.APIError{StatusCode: http.StatusBadGateway, Message: "bad gateway"}, ErrCodeSessionError},
		{"deadline", fmt.Errorf("navigate: %w", context.DeadlineExceeded), ErrCodeTimeout},
		{"other", errors.New("websocket closed"), ErrCodeSessionError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var coded *CodedError
			require.ErrorAs(t, WrapSessionError(tt.err), &coded)
			assert.Equal(t, tt.code, coded.Code)
		})
	}

	assert.NoError(t, WrapSessionError(nil))
	orig := ErrInvalidInput("x")
	assert.Same(t, orig, WrapSessionError(orig))
}

func TestMaskBody(t *testing.T) {
	m := redact.New()

	assert.Equal(t, `{"password":"`+redact.Mask+`"}`, MaskBody([]byte(`{"password":"p"}`), m, 0))
	assert.Equal(t, "[binary content, 2 bytes]", MaskBody([]byte{0xff, 0xfe}, m, 0))

	long := MaskBody([]byte(strings.Repeat("a", 100)), m, 10)
	assert.True(t, strings.HasPrefix(long, strings.Repeat("a", 10)+"..."))
	assert.Contains(t, long, "100 bytes total")
}
