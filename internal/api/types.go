package api

import "encoding/json"

// Envelope is the standard SwiftWallet API response wrapper.
type Envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// Page is the paginated response wrapper. Next and Previous are opaque
// continuation markers, present only when more pages exist in that direction.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// User is the authenticated account identity.
type User struct {
	ID             int    `json:"id"`
	PhoneNumber    string `json:"phone_number"`
	AccountNumber  string `json:"account_number"`
	FullName       string `json:"full_name"`
	Email          string `json:"email,omitempty"`
	IsVerified     bool   `json:"is_verified"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// Tokens carries the JWT pair issued at login/signup.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AuthPayload is the data section of a successful login or signup response.
type AuthPayload struct {
	User   User   `json:"user"`
	Tokens Tokens `json:"tokens"`
}

// WalletAccount is the wallet snapshot. Balance is a decimal string.
type WalletAccount struct {
	ID            int    `json:"id"`
	UserPhone     string `json:"user_phone"`
	UserName      string `json:"user_name"`
	AccountNumber string `json:"account_number"`
	Balance       string `json:"balance"`
	Currency      string `json:"currency"`
	IsActive      bool   `json:"is_active"`
	IsFrozen      bool   `json:"is_frozen"`
}

// Transaction types and statuses as the API reports them.
const (
	TransactionCredit = "credit"
	TransactionDebit  = "debit"

	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// TransactionRecord is a single wallet transaction, identified by Reference.
type TransactionRecord struct {
	Reference       string `json:"reference"`
	TransactionType string `json:"transaction_type"`
	Amount          string `json:"amount"`
	RecipientPhone  string `json:"recipient_phone,omitempty"`
	SenderPhone     string `json:"sender_phone,omitempty"`
	Narration       string `json:"narration,omitempty"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

// LoginRequest authenticates with phone number and password.
type LoginRequest struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
	DeviceID    string `json:"device_id"`
	DeviceName  string `json:"device_name,omitempty"`
}

// SignupOTPRequest asks the API to send a signup OTP.
type SignupOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// SignupVerifyRequest completes signup with the received OTP.
type SignupVerifyRequest struct {
	PhoneNumber string `json:"phone_number"`
	OTPCode     string `json:"otp_code"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	Email       string `json:"email,omitempty"`
	DeviceID    string `json:"device_id"`
	DeviceName  string `json:"device_name,omitempty"`
}

// SendMoneyRequest transfers funds to another wallet by phone number.
type SendMoneyRequest struct {
	RecipientPhone string `json:"recipient_phone"`
	Amount         string `json:"amount"`
	Narration      string `json:"narration,omitempty"`
	TransactionPIN string `json:"transaction_pin"`
}

// AddMoneyRequest funds the wallet from an external method.
type AddMoneyRequest struct {
	Amount        string `json:"amount"`
	PaymentMethod string `json:"payment_method"`
	Description   string `json:"description,omitempty"`
}

// BillPaymentRequest pays a bill (airtime, data, electricity, cable_tv).
type BillPaymentRequest struct {
	BillType       string `json:"bill_type"`
	Amount         string `json:"amount"`
	PhoneNumber    string `json:"phone_number"`
	TransactionPIN string `json:"transaction_pin"`
}

// Beneficiary is a saved transfer recipient.
type Beneficiary struct {
	ID          int    `json:"id"`
	PhoneNumber string `json:"phone_number"`
	Nickname    string `json:"nickname,omitempty"`
	IsFavorite  bool   `json:"is_favorite"`
	CreatedAt   string `json:"created_at"`
}

// HistoryFilters narrows a transaction history query. Zero values are omitted.
type HistoryFilters struct {
	Type      string
	Status    string
	StartDate string
	EndDate   string
	Page      int
	PageSize  int
}

// AnalyticsSummary aggregates a spending window.
type AnalyticsSummary struct {
	TotalCredits      string `json:"total_credits"`
	TotalDebits       string `json:"total_debits"`
	TotalTransactions int    `json:"total_transactions"`
	CurrentBalance    string `json:"current_balance"`
}

// Analytics is the spending report for a day window. The daily series shape
// is owned by the server and passed through opaque.
type Analytics struct {
	Period    string            `json:"period"`
	DailyData []json.RawMessage `json:"daily_data"`
	Summary   AnalyticsSummary  `json:"summary"`
}

// ChatMessage is one entry in the support chat history.
type ChatMessage struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
	Response  string `json:"response,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// ChatReply is the assistant reply to a support chat message.
type ChatReply struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
}

// ProfileUpdate carries mutable profile fields; nil fields are left unchanged.
type ProfileUpdate struct {
	FullName *string `json:"full_name,omitempty"`
	Email    *string `json:"email,omitempty"`
}
