// Package gateway is the typed single-attempt transport to the SwiftWallet
// API. Retries on authorization failures belong to the middleware package;
// every method here maps one remote operation to one HTTP exchange.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/swift-wallet/swiftwallet-go/internal/api"
)

// Gateway issues typed requests against one API base URL.
type Gateway struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// New builds a gateway. The client's transport decides credential handling;
// a plain client yields an unauthenticated gateway suitable for refresh calls.
func New(baseURL string, client *http.Client, logger *slog.Logger) *Gateway {
	return &Gateway{baseURL: strings.TrimRight(baseURL, "/"), client: client, logger: logger}
}

func (g *Gateway) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) ([]byte, error) {
	u := g.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		remote := &api.RemoteError{Status: resp.StatusCode}
		var failure struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &failure); err == nil {
			remote.Message = failure.Message
		}
		g.logger.Debug("remote call failed", "method", method, "path", path, "status", resp.StatusCode)
		return nil, remote
	}
	return raw, nil
}

func decode[T any](raw []byte) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode response: %w", err)
	}
	return v, nil
}

// getJSON performs a GET and decodes the whole response body into T.
func getJSON[T any](ctx context.Context, g *Gateway, path string, query url.Values) (T, error) {
	raw, err := g.do(ctx, http.MethodGet, path, query, nil, "")
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](raw)
}

// postJSON performs a POST/PUT with a JSON body and decodes the response.
func postJSON[T any](ctx context.Context, g *Gateway, method, path string, body any) (T, error) {
	var zero T
	payload, err := json.Marshal(body)
	if err != nil {
		return zero, err
	}
	raw, err := g.do(ctx, method, path, nil, bytes.NewReader(payload), "application/json")
	if err != nil {
		return zero, err
	}
	return decode[T](raw)
}

// envelope ops return the data section of the standard wrapper.

// Login authenticates with phone number and password.
func (g *Gateway) Login(ctx context.Context, req api.LoginRequest) (api.AuthPayload, error) {
	env, err := postJSON[api.Envelope[api.AuthPayload]](ctx, g, http.MethodPost, "/auth/login/", req)
	return env.Data, err
}

// RequestSignupOTP asks the API to send a signup OTP; the server message is
// returned for display.
func (g *Gateway) RequestSignupOTP(ctx context.Context, req api.SignupOTPRequest) (string, error) {
	env, err := postJSON[api.Envelope[json.RawMessage]](ctx, g, http.MethodPost, "/auth/signup/request-otp/", req)
	return env.Message, err
}

// VerifySignupOTP completes signup and returns the new identity and tokens.
func (g *Gateway) VerifySignupOTP(ctx context.Context, req api.SignupVerifyRequest) (api.AuthPayload, error) {
	env, err := postJSON[api.Envelope[api.AuthPayload]](ctx, g, http.MethodPost, "/auth/signup/verify-otp/", req)
	return env.Data, err
}

// RefreshToken trades a refresh token for a new access token. The refresh
// endpoint answers a bare {access} object rather than the standard envelope.
func (g *Gateway) RefreshToken(ctx context.Context, refresh string) (string, error) {
	body := map[string]string{"refresh": refresh}
	resp, err := postJSON[struct {
		Access string `json:"access"`
	}](ctx, g, http.MethodPost, "/auth/refresh/", body)
	return resp.Access, err
}

// Balance fetches the wallet snapshot.
func (g *Gateway) Balance(ctx context.Context) (api.WalletAccount, error) {
	env, err := getJSON[api.Envelope[api.WalletAccount]](ctx, g, "/wallet/wallet/balance/", nil)
	return env.Data, err
}

// SendMoney transfers funds to another wallet.
func (g *Gateway) SendMoney(ctx context.Context, req api.SendMoneyRequest) (api.TransactionRecord, error) {
	env, err := postJSON[api.Envelope[api.TransactionRecord]](ctx, g, http.MethodPost, "/wallet/transactions/send/", req)
	return env.Data, err
}

// AddMoney funds the wallet from an external payment method.
func (g *Gateway) AddMoney(ctx context.Context, req api.AddMoneyRequest) (api.TransactionRecord, error) {
	env, err := postJSON[api.Envelope[api.TransactionRecord]](ctx, g, http.MethodPost, "/wallet/transactions/add-money/", req)
	return env.Data, err
}

// PayBill pays a bill from the wallet.
func (g *Gateway) PayBill(ctx context.Context, req api.BillPaymentRequest) (api.TransactionRecord, error) {
	env, err := postJSON[api.Envelope[api.TransactionRecord]](ctx, g, http.MethodPost, "/wallet/transactions/bill-payment/", req)
	return env.Data, err
}

// TransactionHistory fetches one history page. The page envelope is returned
// as-is; next/previous are opaque continuation markers.
func (g *Gateway) TransactionHistory(ctx context.Context, filters api.HistoryFilters) (api.Page[api.TransactionRecord], error) {
	query := url.Values{}
	if filters.Type != "" {
		query.Set("type", filters.Type)
	}
	if filters.Status != "" {
		query.Set("status", filters.Status)
	}
	if filters.StartDate != "" {
		query.Set("start_date", filters.StartDate)
	}
	if filters.EndDate != "" {
		query.Set("end_date", filters.EndDate)
	}
	if filters.Page > 0 {
		query.Set("page", strconv.Itoa(filters.Page))
	}
	if filters.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(filters.PageSize))
	}
	return getJSON[api.Page[api.TransactionRecord]](ctx, g, "/wallet/transactions/history/", query)
}

// TransactionDetail fetches one transaction by reference.
func (g *Gateway) TransactionDetail(ctx context.Context, reference string) (api.TransactionRecord, error) {
	env, err := getJSON[api.Envelope[api.TransactionRecord]](ctx, g, "/wallet/transactions/"+url.PathEscape(reference)+"/", nil)
	return env.Data, err
}

// SetTransactionPIN sets the transaction PIN.
func (g *Gateway) SetTransactionPIN(ctx context.Context, pin, confirmPIN string) (string, error) {
	body := map[string]string{"pin": pin, "confirm_pin": confirmPIN}
	env, err := postJSON[api.Envelope[json.RawMessage]](ctx, g, http.MethodPost, "/wallet/security/pin/set/", body)
	return env.Message, err
}

// Beneficiaries lists saved recipients, optionally only favorites.
func (g *Gateway) Beneficiaries(ctx context.Context, favoritesOnly bool) ([]api.Beneficiary, error) {
	var query url.Values
	if favoritesOnly {
		query = url.Values{"favorites": {"true"}}
	}
	env, err := getJSON[api.Envelope[[]api.Beneficiary]](ctx, g, "/wallet/beneficiaries/", query)
	return env.Data, err
}

// AddBeneficiary saves a new recipient.
func (g *Gateway) AddBeneficiary(ctx context.Context, phoneNumber, nickname string) (api.Beneficiary, error) {
	body := map[string]string{"phone_number": phoneNumber}
	if nickname != "" {
		body["nickname"] = nickname
	}
	env, err := postJSON[api.Envelope[api.Beneficiary]](ctx, g, http.MethodPost, "/wallet/beneficiaries/add/", body)
	return env.Data, err
}

// Analytics fetches the spending report for a day window.
func (g *Gateway) Analytics(ctx context.Context, days int) (api.Analytics, error) {
	query := url.Values{"days": {strconv.Itoa(days)}}
	env, err := getJSON[api.Envelope[api.Analytics]](ctx, g, "/wallet/analytics/", query)
	return env.Data, err
}

// Dashboard fetches the dashboard summary; the shape is server-owned.
func (g *Gateway) Dashboard(ctx context.Context) (json.RawMessage, error) {
	env, err := getJSON[api.Envelope[json.RawMessage]](ctx, g, "/wallet/dashboard/", nil)
	return env.Data, err
}

// Chat sends a support chat message.
func (g *Gateway) Chat(ctx context.Context, message, sessionID string) (api.ChatReply, error) {
	body := map[string]string{"message": message}
	if sessionID != "" {
		body["session_id"] = sessionID
	}
	env, err := postJSON[api.Envelope[api.ChatReply]](ctx, g, http.MethodPost, "/wallet/support/chat/", body)
	return env.Data, err
}

// ChatHistory lists past support chat messages.
func (g *Gateway) ChatHistory(ctx context.Context) ([]api.ChatMessage, error) {
	env, err := getJSON[api.Envelope[[]api.ChatMessage]](ctx, g, "/wallet/support/history/", nil)
	return env.Data, err
}

// Profile fetches the authenticated user profile.
func (g *Gateway) Profile(ctx context.Context) (api.User, error) {
	env, err := getJSON[api.Envelope[api.User]](ctx, g, "/user/profile/", nil)
	return env.Data, err
}

// UpdateProfile applies profile changes and returns the updated identity.
func (g *Gateway) UpdateProfile(ctx context.Context, update api.ProfileUpdate) (api.User, error) {
	env, err := postJSON[api.Envelope[api.User]](ctx, g, http.MethodPut, "/user/profile/", update)
	return env.Data, err
}

// UploadProfilePicture uploads a new display picture and returns its URL.
func (g *Gateway) UploadProfilePicture(ctx context.Context, filename string, picture io.Reader) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("display_picture", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, picture); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	raw, err := g.do(ctx, http.MethodPost, "/user/profile/picture/", nil, &buf, writer.FormDataContentType())
	if err != nil {
		return "", err
	}
	env, err := decode[api.Envelope[struct {
		DisplayPicture string `json:"display_picture"`
	}]](raw)
	return env.Data.DisplayPicture, err
}
