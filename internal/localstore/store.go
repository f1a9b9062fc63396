// Package localstore is the device-local persistent cache behind the wallet
// client: five logical tables (session, wallet snapshot, transactions,
// beneficiaries, generic TTL cache), each independently clearable and all
// emptied together on logout.
package localstore

import (
	"context"
	"errors"
	"time"

	"github.com/swift-wallet/swiftwallet-go/internal/api"
)

// ErrNotFound is returned when the requested entity is absent. Expired cache
// entries are reported the same way as missing ones.
var ErrNotFound = errors.New("localstore: not found")

// Session is the locally cached proof of authentication: minimal user
// identity plus the token pair. At most one session exists per store; token
// strings may be sealed at rest by the caller.
type Session struct {
	UserID         int    `json:"user_id"`
	PhoneNumber    string `json:"phone_number"`
	AccountNumber  string `json:"account_number"`
	FullName       string `json:"full_name"`
	Email          string `json:"email,omitempty"`
	IsVerified     bool   `json:"is_verified"`
	ProfilePicture string `json:"profile_picture,omitempty"`
	AccessToken    string `json:"access_token"`
	RefreshToken   string `json:"refresh_token"`
}

// User converts the session back into the API identity shape.
func (s Session) User() api.User {
	return api.User{
		ID:             s.UserID,
		PhoneNumber:    s.PhoneNumber,
		AccountNumber:  s.AccountNumber,
		FullName:       s.FullName,
		Email:          s.Email,
		IsVerified:     s.IsVerified,
		ProfilePicture: s.ProfilePicture,
	}
}

// Store is the persistent local cache contract. All operations are safe for
// concurrent use; any I/O failure is recoverable from the caller's point of
// view (the store may be treated as cold).
type Store interface {
	// Session table: singleton, wholesale replace.
	SaveSession(ctx context.Context, session Session) error
	Session(ctx context.Context) (Session, error)
	DeleteSession(ctx context.Context) error

	// Wallet table: singleton, wholesale replace.
	SaveWallet(ctx context.Context, wallet api.WalletAccount) error
	Wallet(ctx context.Context) (api.WalletAccount, error)

	// Transactions table. ReplaceTransactions clears then bulk-inserts so a
	// reader only ever observes the fully-old or fully-new set.
	ReplaceTransactions(ctx context.Context, records []api.TransactionRecord) error
	SaveTransaction(ctx context.Context, record api.TransactionRecord) error
	Transactions(ctx context.Context, limit int) ([]api.TransactionRecord, error)
	TransactionByReference(ctx context.Context, reference string) (api.TransactionRecord, error)

	// Beneficiaries table: SaveBeneficiary upserts by server id.
	SaveBeneficiary(ctx context.Context, beneficiary api.Beneficiary) error
	Beneficiaries(ctx context.Context) ([]api.Beneficiary, error)
	FavoriteBeneficiaries(ctx context.Context) ([]api.Beneficiary, error)

	// Generic TTL cache table, keyed by caller-chosen strings. PutCache is an
	// idempotent upsert; Cache deletes an expired row as a side effect of the
	// read that discovers it; PurgeExpiredCache sweeps all expired rows.
	PutCache(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Cache(ctx context.Context, key string) ([]byte, error)
	PurgeExpiredCache(ctx context.Context) error

	// ClearAll empties every table. Used on logout.
	ClearAll(ctx context.Context) error

	Close() error
}
