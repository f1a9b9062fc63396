// Package middleware wraps outgoing HTTP requests with credential handling:
// bearer attachment, a single token refresh on 401 followed by one retry,
// and forced logout when refresh is impossible.
package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Route the navigation layer is sent to when the session dies.
const LoginRoute = "/auth/login"

const (
	authPathPrefix       = "/auth/"
	idempotencyKeyHeader = "Idempotency-Key"
)

// TokenSource provides cached credentials and accepts updates from the
// refresh flow.
type TokenSource interface {
	AccessToken() string
	RefreshToken() string
	StoreAccessToken(ctx context.Context, access string) error
	Clear(ctx context.Context) error
}

// Refresher trades a refresh token for a new access token. Implemented by
// the gateway on an unauthenticated client.
type Refresher interface {
	RefreshToken(ctx context.Context, refresh string) (string, error)
}

// Navigator is notified when the user must be sent back to login.
type Navigator interface {
	Navigate(route string)
}

// request lifecycle states. Exactly zero or one retries happen per request,
// triggered solely by a 401; a second 401 after the retry is returned as-is.
type authState int

const (
	stateNoToken authState = iota
	stateAttached
	stateRefreshing
	stateRetried
	stateFailed
)

// AuthTransport is an http.RoundTripper implementing the client side of the
// token lifecycle. Requests into the auth namespace pass through untouched.
type AuthTransport struct {
	base      http.RoundTripper
	tokens    TokenSource
	refresher Refresher
	nav       Navigator
	logger    *slog.Logger
}

// NewAuthTransport builds the transport. A nil base falls back to
// http.DefaultTransport.
func NewAuthTransport(base http.RoundTripper, tokens TokenSource, refresher Refresher, nav Navigator, logger *slog.Logger) *AuthTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &AuthTransport{base: base, tokens: tokens, refresher: refresher, nav: nav, logger: logger}
}

func isUnsafe(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// clone copies req with a replayable body so the request can be dispatched
// a second time after a token refresh.
func clone(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return out, nil
	}
	if req.GetBody == nil {
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(raw)), nil
		}
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	out.Body = body
	out.GetBody = req.GetBody
	return out, nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// RoundTrip implements http.RoundTripper per the state machine above.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if strings.Contains(req.URL.Path, authPathPrefix) {
		return t.base.RoundTrip(req)
	}

	ctx := req.Context()

	attempt, err := clone(req)
	if err != nil {
		return nil, err
	}

	// The idempotency key survives the refresh retry so the server can
	// deduplicate the redispatched request.
	if isUnsafe(req.Method) && attempt.Header.Get(idempotencyKeyHeader) == "" {
		attempt.Header.Set(idempotencyKeyHeader, uuid.NewString())
	}

	state := stateNoToken
	if access := t.tokens.AccessToken(); access != "" {
		attempt.Header.Set("Authorization", "Bearer "+access)
		state = stateAttached
	}

	resp, err := t.base.RoundTrip(attempt)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	refresh := t.tokens.RefreshToken()
	if refresh == "" {
		// No way to recover: kill the session and hand the original 401 back.
		state = stateFailed
		t.forceLogout(ctx, state)
		return resp, nil
	}

	state = stateRefreshing
	access, refreshErr := t.refresher.RefreshToken(ctx, refresh)
	if refreshErr != nil {
		state = stateFailed
		drain(resp)
		t.forceLogout(ctx, state)
		return nil, refreshErr
	}

	if err := t.tokens.StoreAccessToken(ctx, access); err != nil {
		t.logger.Warn("persist refreshed access token", "error", err)
	}

	drain(resp)
	state = stateRetried
	retry, err := clone(attempt)
	if err != nil {
		return nil, err
	}
	retry.Header.Set("Authorization", "Bearer "+access)

	// One redispatch only: whatever comes back, including another 401, is
	// the final answer.
	t.logger.Debug("retrying request after token refresh",
		"method", retry.Method, "path", retry.URL.Path, "state", int(state))
	return t.base.RoundTrip(retry)
}

func (t *AuthTransport) forceLogout(ctx context.Context, state authState) {
	if err := t.tokens.Clear(ctx); err != nil {
		t.logger.Warn("clear session after auth failure", "error", err)
	}
	t.logger.Info("session expired, redirecting to login", "state", int(state))
	t.nav.Navigate(LoginRoute)
}
