package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/swift-wallet/swiftwallet-go/internal/logging"
)

type fakeTokens struct {
	mu      sync.Mutex
	access  string
	refresh string
	stored  []string
	cleared int
}

func (f *fakeTokens) AccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access
}

func (f *fakeTokens) RefreshToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refresh
}

func (f *fakeTokens) StoreAccessToken(_ context.Context, access string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = access
	f.stored = append(f.stored, access)
	return nil
}

func (f *fakeTokens) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = ""
	f.refresh = ""
	f.cleared++
	return nil
}

type fakeRefresher struct {
	mu     sync.Mutex
	calls  int
	access string
	err    error
}

func (f *fakeRefresher) RefreshToken(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.access, f.err
}

type fakeNavigator struct {
	mu     sync.Mutex
	routes []string
}

func (f *fakeNavigator) Navigate(route string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes = append(f.routes, route)
}

func startServer(t *testing.T, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "http://" + ln.Addr().String()
}

func TestRefreshThenRetryOnce(t *testing.T) {
	var mu sync.Mutex
	var bearers []string
	var idemKeys []string

	app := fiber.New()
	app.Post("/wallet/transactions/send/", func(c *fiber.Ctx) error {
		mu.Lock()
		// c.Get returns a string aliasing fasthttp's connection buffer, which
		// is reused by the retry request; copy before recording.
		bearers = append(bearers, strings.Clone(c.Get(fiber.HeaderAuthorization)))
		idemKeys = append(idemKeys, strings.Clone(c.Get("Idempotency-Key")))
		attempt := len(bearers)
		mu.Unlock()
		if attempt == 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"status": "error", "message": "token expired"})
		}
		return c.JSON(fiber.Map{"status": "success", "message": "ok", "data": fiber.Map{}})
	})
	base := startServer(t, app)

	tokens := &fakeTokens{access: "stale", refresh: "refresh-1"}
	refresher := &fakeRefresher{access: "fresh"}
	nav := &fakeNavigator{}
	client := &http.Client{
		Transport: NewAuthTransport(nil, tokens, refresher, nav, logging.Discard()),
		Timeout:   5 * time.Second,
	}

	req, err := http.NewRequest(http.MethodPost, base+"/wallet/transactions/send/", strings.NewReader(`{"amount":"20.00"}`))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after retry, got %d", resp.StatusCode)
	}
	if refresher.calls != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", refresher.calls)
	}
	if len(bearers) != 2 {
		t.Fatalf("expected exactly two dispatches, got %d", len(bearers))
	}
	if bearers[0] != "Bearer stale" || bearers[1] != "Bearer fresh" {
		t.Fatalf("unexpected bearer sequence: %v", bearers)
	}
	if idemKeys[0] == "" || idemKeys[0] != idemKeys[1] {
		t.Fatalf("expected the idempotency key to survive the retry: %v", idemKeys)
	}
	if len(tokens.stored) != 1 || tokens.stored[0] != "fresh" {
		t.Fatalf("expected refreshed token persisted once, got %v", tokens.stored)
	}
	if len(nav.routes) != 0 {
		t.Fatalf("expected no navigation, got %v", nav.routes)
	}
}

func TestSecondUnauthorizedIsReturnedWithoutSecondRefresh(t *testing.T) {
	app := fiber.New()
	var calls int
	var mu sync.Mutex
	app.Get("/wallet/wallet/balance/", func(c *fiber.Ctx) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"status": "error", "message": "nope"})
	})
	base := startServer(t, app)

	tokens := &fakeTokens{access: "stale", refresh: "refresh-1"}
	refresher := &fakeRefresher{access: "fresh"}
	nav := &fakeNavigator{}
	client := &http.Client{
		Transport: NewAuthTransport(nil, tokens, refresher, nav, logging.Discard()),
		Timeout:   5 * time.Second,
	}

	resp, err := client.Get(base + "/wallet/wallet/balance/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected final 401, got %d", resp.StatusCode)
	}
	if refresher.calls != 1 {
		t.Fatalf("expected one refresh attempt, got %d", refresher.calls)
	}
	if calls != 2 {
		t.Fatalf("expected two dispatches total, got %d", calls)
	}
}

func TestRefreshFailureClearsSessionAndNavigatesOnce(t *testing.T) {
	app := fiber.New()
	app.Get("/wallet/wallet/balance/", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"status": "error", "message": "expired"})
	})
	base := startServer(t, app)

	refreshErr := errors.New("refresh token revoked")
	tokens := &fakeTokens{access: "stale", refresh: "refresh-1"}
	refresher := &fakeRefresher{err: refreshErr}
	nav := &fakeNavigator{}
	client := &http.Client{
		Transport: NewAuthTransport(nil, tokens, refresher, nav, logging.Discard()),
		Timeout:   5 * time.Second,
	}

	_, err := client.Get(base + "/wallet/wallet/balance/")
	if err == nil {
		t.Fatal("expected the refresh error to propagate")
	}
	if !errors.Is(err, refreshErr) {
		t.Fatalf("expected refresh error, got %v", err)
	}
	if tokens.cleared != 1 {
		t.Fatalf("expected session cleared once, got %d", tokens.cleared)
	}
	if len(nav.routes) != 1 || nav.routes[0] != LoginRoute {
		t.Fatalf("expected one navigation to login, got %v", nav.routes)
	}
}

func TestNoRefreshTokenReturnsOriginalUnauthorized(t *testing.T) {
	app := fiber.New()
	app.Get("/wallet/wallet/balance/", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"status": "error", "message": "expired"})
	})
	base := startServer(t, app)

	tokens := &fakeTokens{access: "stale"}
	refresher := &fakeRefresher{access: "unused"}
	nav := &fakeNavigator{}
	client := &http.Client{
		Transport: NewAuthTransport(nil, tokens, refresher, nav, logging.Discard()),
		Timeout:   5 * time.Second,
	}

	resp, err := client.Get(base + "/wallet/wallet/balance/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected original 401, got %d", resp.StatusCode)
	}
	if refresher.calls != 0 {
		t.Fatalf("expected no refresh attempt, got %d", refresher.calls)
	}
	if tokens.cleared != 1 || len(nav.routes) != 1 {
		t.Fatalf("expected one clear and one navigation, got %d/%v", tokens.cleared, nav.routes)
	}
}

func TestAuthNamespaceBypassesCredentials(t *testing.T) {
	var gotAuthz string
	app := fiber.New()
	app.Post("/auth/login/", func(c *fiber.Ctx) error {
		gotAuthz = c.Get(fiber.HeaderAuthorization)
		return c.JSON(fiber.Map{"status": "success", "message": "ok", "data": fiber.Map{}})
	})
	base := startServer(t, app)

	tokens := &fakeTokens{access: "cached-token"}
	client := &http.Client{
		Transport: NewAuthTransport(nil, tokens, &fakeRefresher{}, &fakeNavigator{}, logging.Discard()),
		Timeout:   5 * time.Second,
	}

	resp, err := client.Post(base+"/auth/login/", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()

	if gotAuthz != "" {
		t.Fatalf("expected no Authorization header on auth namespace, got %q", gotAuthz)
	}
}

func TestSuccessPassesThroughUnchanged(t *testing.T) {
	app := fiber.New()
	app.Get("/wallet/dashboard/", func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) != "Bearer good" {
			return c.SendStatus(fiber.StatusForbidden)
		}
		return c.JSON(fiber.Map{"status": "success", "message": "ok", "data": fiber.Map{}})
	})
	base := startServer(t, app)

	tokens := &fakeTokens{access: "good", refresh: "r"}
	refresher := &fakeRefresher{}
	client := &http.Client{
		Transport: NewAuthTransport(nil, tokens, refresher, &fakeNavigator{}, logging.Discard()),
		Timeout:   5 * time.Second,
	}

	resp, err := client.Get(base + "/wallet/dashboard/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if refresher.calls != 0 {
		t.Fatalf("expected no refresh, got %d", refresher.calls)
	}
}
