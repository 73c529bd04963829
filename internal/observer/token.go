package observer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is the unverified content of an auth token.
type TokenInfo struct {
	Valid     bool           `json:"valid"`
	Cookie    string         `json:"cookie,omitempty"`
	Header    map[string]any `json:"header,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	IssuedAt  *time.Time     `json:"issued_at,omitempty"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	Expired   bool           `json:"expired"`
	Error     string         `json:"error,omitempty"`
}

var tokenParser = jwt.NewParser(jwt.WithPaddingAllowed())

var stdToURLAlphabet = strings.NewReplacer("+", "-", "/", "_")

// toURLEncoding rewrites standard base64 header and payload segments into
// the URL alphabet jwt expects. The signature is never decoded.
func toURLEncoding(raw string) string {
	parts := strings.SplitN(raw, ".", 3)
	if len(parts) < 3 {
		return raw
	}
	parts[0] = stdToURLAlphabet.Replace(parts[0])
	parts[1] = stdToURLAlphabet.Replace(parts[1])
	return strings.Join(parts, ".")
}

// DecodeToken decodes the header and payload of a JWT without verifying its
// signature. Segments may use the standard or the URL base64 alphabet, with
// or without padding. iat and exp are read as epoch seconds.
func DecodeToken(raw string, now time.Time) TokenInfo {
	claims := jwt.MapClaims{}
	tok, _, err := tokenParser.ParseUnverified(toURLEncoding(raw), claims)
	// An unknown or missing alg only matters for verification.
	if err != nil && !errors.Is(err, jwt.ErrTokenUnverifiable) {
		return TokenInfo{Error: err.Error()}
	}

	info := TokenInfo{
		Valid:   true,
		Header:  tok.Header,
		Payload: map[string]any(claims),
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		t := iat.Time
		info.IssuedAt = &t
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		info.ExpiresAt = &t
		info.Expired = t.Before(now)
	}
	return info
}

// DecodeAuthToken decodes the first cookie whose name matches a token pattern.
func (o *Observer) DecodeAuthToken(ctx context.Context) TokenInfo {
	cookies, err := o.session.Cookies(ctx)
	if err != nil {
		return TokenInfo{Error: "reading cookies: " + err.Error()}
	}

	for _, c := range cookies {
		if !nameMatches(c.Name, o.opts.tokenCookiePatterns) {
			continue
		}
		info := DecodeToken(c.Value, o.opts.now())
		info.Cookie = c.Name
		if !info.Valid {
			slog.Warn("auth token cookie could not be decoded",
				slog.String("cookie", c.Name),
				slog.String("error", info.Error),
			)
		}
		return info
	}

	slog.Warn("no auth token cookie found", slog.Int("cookies", len(cookies)))
	return TokenInfo{Error: "no token cookie found"}
}

// DecodeBearerToken decodes the bearer token of the most recent request
// carrying an Authorization: Bearer header.
func (o *Observer) DecodeBearerToken() TokenInfo {
	o.mu.RLock()
	var raw string
	for i := o.requests.len() - 1; i >= 0 && raw == ""; i-- {
		v, ok := o.requests.at(i).Header("Authorization")
		if !ok {
			continue
		}
		scheme, token, found := strings.Cut(strings.TrimSpace(v), " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			raw = strings.TrimSpace(token)
		}
	}
	o.mu.RUnlock()

	if raw == "" {
		slog.Warn("no bearer token found in request log")
		return TokenInfo{Error: "no bearer token found"}
	}
	return DecodeToken(raw, o.opts.now())
}
