package gateway

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/swift-wallet/swiftwallet-go/internal/api"
	"github.com/swift-wallet/swiftwallet-go/internal/logging"
)

// startFakeAPI serves a fiber app on a loopback listener and returns its base URL.
func startFakeAPI(t *testing.T, app *fiber.App) string {
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

func newTestGateway(t *testing.T, app *fiber.App) *Gateway {
	t.Helper()
	base := startFakeAPI(t, app)
	return New(base, &http.Client{Timeout: 5 * time.Second}, logging.Discard())
}

func TestBalanceDecodesEnvelope(t *testing.T) {
	app := fiber.New()
	app.Get("/wallet/wallet/balance/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Wallet balance retrieved",
			"data": fiber.Map{
				"account_number": "1234567890",
				"balance":        "100.00",
				"currency":       "USD",
				"is_active":      true,
			},
		})
	})
	gw := newTestGateway(t, app)

	wallet, err := gw.Balance(context.Background())
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if wallet.Balance != "100.00" || wallet.AccountNumber != "1234567890" {
		t.Fatalf("unexpected wallet: %+v", wallet)
	}
	if !wallet.IsActive {
		t.Fatal("expected active wallet")
	}
}

func TestTransactionHistorySendsFiltersAndDecodesPage(t *testing.T) {
	var gotQuery map[string]string
	app := fiber.New()
	app.Get("/wallet/transactions/history/", func(c *fiber.Ctx) error {
		gotQuery = map[string]string{
			"type":      c.Query("type"),
			"status":    c.Query("status"),
			"page":      c.Query("page"),
			"page_size": c.Query("page_size"),
		}
		next := "http://example.test/wallet/transactions/history/?page=3"
		return c.JSON(fiber.Map{
			"count":    41,
			"next":     next,
			"previous": nil,
			"results": []fiber.Map{
				{"reference": "TX-1", "transaction_type": "debit", "amount": "5.00", "status": "completed", "created_at": "2026-03-01T09:00:00Z"},
			},
		})
	})
	gw := newTestGateway(t, app)

	page, err := gw.TransactionHistory(context.Background(), api.HistoryFilters{
		Type:     api.TransactionDebit,
		Status:   api.StatusCompleted,
		Page:     2,
		PageSize: 20,
	})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if gotQuery["type"] != "debit" || gotQuery["status"] != "completed" || gotQuery["page"] != "2" || gotQuery["page_size"] != "20" {
		t.Fatalf("unexpected query: %v", gotQuery)
	}
	if page.Count != 41 || page.Next == nil || page.Previous != nil {
		t.Fatalf("unexpected page envelope: %+v", page)
	}
	if len(page.Results) != 1 || page.Results[0].Reference != "TX-1" {
		t.Fatalf("unexpected results: %+v", page.Results)
	}
}

func TestRemoteErrorCarriesStatusAndMessage(t *testing.T) {
	app := fiber.New()
	app.Post("/wallet/transactions/send/", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Insufficient balance",
		})
	})
	gw := newTestGateway(t, app)

	_, err := gw.SendMoney(context.Background(), api.SendMoneyRequest{
		RecipientPhone: "+1000",
		Amount:         "999.00",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := api.ErrorMessage(err, "fallback"); got != "Insufficient balance" {
		t.Fatalf("expected server message, got %q", got)
	}
}

func TestRemoteErrorFallsBackToGenericMessage(t *testing.T) {
	app := fiber.New()
	app.Get("/wallet/wallet/balance/", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusInternalServerError).SendString("not json")
	})
	gw := newTestGateway(t, app)

	_, err := gw.Balance(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if got := api.ErrorMessage(err, "Failed to load wallet"); got != "Failed to load wallet" {
		t.Fatalf("expected fallback message, got %q", got)
	}
}

func TestRefreshTokenDecodesBareAccessObject(t *testing.T) {
	app := fiber.New()
	app.Post("/auth/refresh/", func(c *fiber.Ctx) error {
		var body map[string]string
		if err := c.BodyParser(&body); err != nil {
			return err
		}
		if body["refresh"] != "refresh-1" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"status": "error", "message": "invalid refresh"})
		}
		return c.JSON(fiber.Map{"access": "access-2"})
	})
	gw := newTestGateway(t, app)

	access, err := gw.RefreshToken(context.Background(), "refresh-1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if access != "access-2" {
		t.Fatalf("expected access-2, got %q", access)
	}
}

func TestLoginReturnsUserAndTokens(t *testing.T) {
	app := fiber.New()
	app.Post("/auth/login/", func(c *fiber.Ctx) error {
		var req api.LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return err
		}
		if req.DeviceID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "device_id required"})
		}
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Login successful",
			"data": fiber.Map{
				"user":   fiber.Map{"id": 7, "phone_number": req.PhoneNumber, "full_name": "Ada Bello", "is_verified": true},
				"tokens": fiber.Map{"access": "a1", "refresh": "r1"},
			},
		})
	})
	gw := newTestGateway(t, app)

	payload, err := gw.Login(context.Background(), api.LoginRequest{
		PhoneNumber: "+1234567890",
		Password:    "secret",
		DeviceID:    "device_abc",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if payload.User.ID != 7 || payload.Tokens.Access != "a1" || payload.Tokens.Refresh != "r1" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestAddBeneficiaryOmitsEmptyNickname(t *testing.T) {
	var gotBody map[string]string
	app := fiber.New()
	app.Post("/wallet/beneficiaries/add/", func(c *fiber.Ctx) error {
		if err := c.BodyParser(&gotBody); err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Beneficiary added",
			"data":    fiber.Map{"id": 1, "phone_number": gotBody["phone_number"]},
		})
	})
	gw := newTestGateway(t, app)

	b, err := gw.AddBeneficiary(context.Background(), "+2000", "")
	if err != nil {
		t.Fatalf("add beneficiary: %v", err)
	}
	if b.PhoneNumber != "+2000" {
		t.Fatalf("unexpected beneficiary: %+v", b)
	}
	if _, present := gotBody["nickname"]; present {
		t.Fatal("expected nickname to be omitted")
	}
}
