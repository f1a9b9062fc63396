// Package wallet is the reactive wallet container: it orchestrates remote
// calls, mirrors successful results into the local store, and falls back to
// stale local data when the network is gone.
package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/swift-wallet/swiftwallet-go/internal/api"
	"github.com/swift-wallet/swiftwallet-go/internal/cache"
	"github.com/swift-wallet/swiftwallet-go/internal/localstore"
	"github.com/swift-wallet/swiftwallet-go/internal/state"
)

const (
	defaultPageSize = 20
	defaultCacheTTL = time.Hour

	// How much history the offline fallback shows, pagination aside.
	cachedHistoryLimit = 50
)

// State is the observable wallet snapshot.
type State struct {
	Wallet             *api.WalletAccount
	Transactions       []api.TransactionRecord
	Beneficiaries      []api.Beneficiary
	IsLoading          bool
	TransactionLoading bool
	Error              string
	CurrentPage        int
	HasMore            bool
}

func initialState() State {
	return State{CurrentPage: 1, HasMore: true}
}

// Balance returns the displayable balance, "0.00" when no wallet is loaded.
func (s State) Balance() string {
	if s.Wallet == nil {
		return "0.00"
	}
	return s.Wallet.Balance
}

// Gateway is the subset of remote operations the wallet store drives.
type Gateway interface {
	Balance(ctx context.Context) (api.WalletAccount, error)
	SendMoney(ctx context.Context, req api.SendMoneyRequest) (api.TransactionRecord, error)
	AddMoney(ctx context.Context, req api.AddMoneyRequest) (api.TransactionRecord, error)
	PayBill(ctx context.Context, req api.BillPaymentRequest) (api.TransactionRecord, error)
	TransactionHistory(ctx context.Context, filters api.HistoryFilters) (api.Page[api.TransactionRecord], error)
	TransactionDetail(ctx context.Context, reference string) (api.TransactionRecord, error)
	Beneficiaries(ctx context.Context, favoritesOnly bool) ([]api.Beneficiary, error)
	AddBeneficiary(ctx context.Context, phoneNumber, nickname string) (api.Beneficiary, error)
	Analytics(ctx context.Context, days int) (api.Analytics, error)
	Dashboard(ctx context.Context) (json.RawMessage, error)
	Chat(ctx context.Context, message, sessionID string) (api.ChatReply, error)
	ChatHistory(ctx context.Context) ([]api.ChatMessage, error)
}

// Options tune the store; zero values take defaults.
type Options struct {
	PageSize int
	CacheTTL time.Duration
}

// Store is the reactive wallet container. State patches are serialized, but
// whole operations are not mutually excluded: two in-flight calls to the
// same method interleave their completions, and the state reflects whichever
// resolves last.
type Store struct {
	state    *state.Container[State]
	gw       Gateway
	db       localstore.Store
	cache    cache.Cache
	logger   *slog.Logger
	pageSize int
	cacheTTL time.Duration
}

// NewStore wires the wallet store.
func NewStore(gw Gateway, db localstore.Store, responseCache cache.Cache, logger *slog.Logger, opts Options) *Store {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	return &Store{
		state:    state.New(initialState()),
		gw:       gw,
		db:       db,
		cache:    responseCache,
		logger:   logger,
		pageSize: opts.PageSize,
		cacheTTL: opts.CacheTTL,
	}
}

// Snapshot returns the current wallet state.
func (s *Store) Snapshot() State { return s.state.Get() }

// Subscribe observes wallet state changes.
func (s *Store) Subscribe() (<-chan State, func()) { return s.state.Subscribe() }

// Reset returns the store to its initial state. Called on logout.
func (s *Store) Reset() {
	s.state.Patch(func(st *State) {
		*st = initialState()
	})
}

func (s *Store) persistWallet(ctx context.Context, wallet api.WalletAccount) {
	if err := s.db.SaveWallet(ctx, wallet); err != nil {
		s.logger.Warn("cache wallet", "error", err)
	}
}

func (s *Store) persistTransactions(ctx context.Context, records []api.TransactionRecord) {
	if err := s.db.ReplaceTransactions(ctx, records); err != nil {
		s.logger.Warn("cache transactions", "error", err)
	}
}

// LoadBalance fetches the wallet snapshot, replacing the local copy on
// success. On failure the last cached wallet is served instead and the error
// is suppressed; the error only surfaces when the cache is cold too.
func (s *Store) LoadBalance(ctx context.Context) error {
	s.state.Patch(func(st *State) {
		st.IsLoading = true
		st.Error = ""
	})

	wallet, err := s.gw.Balance(ctx)
	if err == nil {
		s.state.Patch(func(st *State) {
			st.Wallet = &wallet
			st.IsLoading = false
		})
		s.persistWallet(ctx, wallet)
		return nil
	}

	cached, cacheErr := s.db.Wallet(ctx)
	if cacheErr == nil {
		s.logger.Debug("serving stale wallet", "error", err)
		s.state.Patch(func(st *State) {
			st.Wallet = &cached
			st.IsLoading = false
		})
		return nil
	}

	message := api.ErrorMessage(err, "Failed to load wallet")
	s.state.Patch(func(st *State) {
		st.IsLoading = false
		st.Error = message
	})
	return err
}

// LoadTransactions fetches one history page. reset replaces the in-memory
// list; otherwise the page is appended. The full resulting list is persisted
// wholesale either way. On failure the local list is served, pagination
// ignored.
func (s *Store) LoadTransactions(ctx context.Context, page int, reset bool) error {
	if page <= 0 {
		page = 1
	}
	s.state.Patch(func(st *State) {
		st.TransactionLoading = true
		st.Error = ""
	})

	result, err := s.gw.TransactionHistory(ctx, api.HistoryFilters{Page: page, PageSize: s.pageSize})
	if err == nil {
		var list []api.TransactionRecord
		s.state.Patch(func(st *State) {
			if reset {
				list = append([]api.TransactionRecord(nil), result.Results...)
			} else {
				list = append(append([]api.TransactionRecord(nil), st.Transactions...), result.Results...)
			}
			st.Transactions = list
			st.TransactionLoading = false
			st.CurrentPage = page
			st.HasMore = result.Next != nil
		})
		s.persistTransactions(ctx, list)
		return nil
	}

	cached, cacheErr := s.db.Transactions(ctx, cachedHistoryLimit)
	if cacheErr == nil && len(cached) > 0 {
		s.logger.Debug("serving stale transactions", "error", err)
		s.state.Patch(func(st *State) {
			st.Transactions = cached
			st.TransactionLoading = false
		})
		return nil
	}

	message := api.ErrorMessage(err, "Failed to load transactions")
	s.state.Patch(func(st *State) {
		st.TransactionLoading = false
		st.Error = message
	})
	return err
}

// refreshAfterTransaction reloads the balance and the first history page,
// strictly in that order, so the snapshot reflects the completed transfer
// before the operation returns.
func (s *Store) refreshAfterTransaction(ctx context.Context) {
	wallet, err := s.gw.Balance(ctx)
	if err != nil {
		s.logger.Warn("reload balance after transaction", "error", err)
	} else {
		s.state.Patch(func(st *State) {
			st.Wallet = &wallet
		})
		s.persistWallet(ctx, wallet)
	}

	result, err := s.gw.TransactionHistory(ctx, api.HistoryFilters{Page: 1, PageSize: s.pageSize})
	if err != nil {
		s.logger.Warn("reload history after transaction", "error", err)
		return
	}
	list := append([]api.TransactionRecord(nil), result.Results...)
	s.state.Patch(func(st *State) {
		st.Transactions = list
		st.CurrentPage = 1
		st.HasMore = result.Next != nil
	})
	s.persistTransactions(ctx, list)
}

func (s *Store) submit(ctx context.Context, fallbackMessage string, call func() (api.TransactionRecord, error)) (api.TransactionRecord, error) {
	s.state.Patch(func(st *State) {
		st.TransactionLoading = true
		st.Error = ""
	})

	record, err := call()
	if err != nil {
		message := api.ErrorMessage(err, fallbackMessage)
		s.state.Patch(func(st *State) {
			st.TransactionLoading = false
			st.Error = message
		})
		return api.TransactionRecord{}, err
	}

	s.state.Patch(func(st *State) {
		st.TransactionLoading = false
	})
	s.refreshAfterTransaction(ctx)
	return record, nil
}

// SendMoney submits a transfer; on success the balance and first history
// page are reloaded before returning. On failure state is left untouched
// apart from the error message.
func (s *Store) SendMoney(ctx context.Context, req api.SendMoneyRequest) (api.TransactionRecord, error) {
	return s.submit(ctx, "Failed to send money", func() (api.TransactionRecord, error) {
		return s.gw.SendMoney(ctx, req)
	})
}

// AddMoney funds the wallet, with the same reload semantics as SendMoney.
func (s *Store) AddMoney(ctx context.Context, req api.AddMoneyRequest) (api.TransactionRecord, error) {
	return s.submit(ctx, "Failed to add money", func() (api.TransactionRecord, error) {
		return s.gw.AddMoney(ctx, req)
	})
}

// PayBill pays a bill, with the same reload semantics as SendMoney.
func (s *Store) PayBill(ctx context.Context, req api.BillPaymentRequest) (api.TransactionRecord, error) {
	return s.submit(ctx, "Failed to pay bill", func() (api.TransactionRecord, error) {
		return s.gw.PayBill(ctx, req)
	})
}

// LoadBeneficiaries fetches saved recipients, upserting each one locally.
// On failure whatever the local store holds is served.
func (s *Store) LoadBeneficiaries(ctx context.Context) error {
	list, err := s.gw.Beneficiaries(ctx, false)
	if err == nil {
		s.state.Patch(func(st *State) {
			st.Beneficiaries = list
		})
		for _, b := range list {
			if err := s.db.SaveBeneficiary(ctx, b); err != nil {
				s.logger.Warn("cache beneficiary", "error", err)
			}
		}
		return nil
	}

	cached, cacheErr := s.db.Beneficiaries(ctx)
	if cacheErr != nil {
		s.logger.Warn("read cached beneficiaries", "error", cacheErr)
		return err
	}
	s.state.Patch(func(st *State) {
		st.Beneficiaries = cached
	})
	return nil
}

// FavoriteBeneficiaries lists only favorites, with a local fallback.
func (s *Store) FavoriteBeneficiaries(ctx context.Context) ([]api.Beneficiary, error) {
	list, err := s.gw.Beneficiaries(ctx, true)
	if err == nil {
		return list, nil
	}
	cached, cacheErr := s.db.FavoriteBeneficiaries(ctx)
	if cacheErr != nil || len(cached) == 0 {
		return nil, err
	}
	return cached, nil
}

// AddBeneficiary saves a recipient remotely and appends it locally.
func (s *Store) AddBeneficiary(ctx context.Context, phoneNumber, nickname string) (api.Beneficiary, error) {
	beneficiary, err := s.gw.AddBeneficiary(ctx, phoneNumber, nickname)
	if err != nil {
		return api.Beneficiary{}, err
	}
	s.state.Patch(func(st *State) {
		st.Beneficiaries = append(st.Beneficiaries, beneficiary)
	})
	if err := s.db.SaveBeneficiary(ctx, beneficiary); err != nil {
		s.logger.Warn("cache beneficiary", "error", err)
	}
	return beneficiary, nil
}

// TransactionDetail fetches one transaction, freshening the local copy on
// success and falling back to it on failure.
func (s *Store) TransactionDetail(ctx context.Context, reference string) (api.TransactionRecord, error) {
	record, err := s.gw.TransactionDetail(ctx, reference)
	if err == nil {
		if err := s.db.SaveTransaction(ctx, record); err != nil {
			s.logger.Warn("cache transaction", "error", err)
		}
		return record, nil
	}
	cached, cacheErr := s.db.TransactionByReference(ctx, reference)
	if cacheErr != nil {
		return api.TransactionRecord{}, err
	}
	return cached, nil
}

// Analytics returns the spending report for a day window, cached under a
// per-window key for the configured TTL.
func (s *Store) Analytics(ctx context.Context, days int) (api.Analytics, error) {
	key := fmt.Sprintf("analytics:%d", days)
	if raw, err := s.cache.Get(ctx, key); err == nil {
		var cached api.Analytics
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		s.logger.Warn("decode cached analytics", "key", key)
	}

	analytics, err := s.gw.Analytics(ctx, days)
	if err != nil {
		return api.Analytics{}, err
	}
	if raw, err := json.Marshal(analytics); err == nil {
		if err := s.cache.Put(ctx, key, raw, s.cacheTTL); err != nil {
			s.logger.Warn("cache analytics", "error", err)
		}
	}
	return analytics, nil
}

// Dashboard returns the dashboard summary, cached for the configured TTL.
func (s *Store) Dashboard(ctx context.Context) (json.RawMessage, error) {
	const key = "dashboard"
	if raw, err := s.cache.Get(ctx, key); err == nil {
		return json.RawMessage(raw), nil
	}

	summary, err := s.gw.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Put(ctx, key, summary, s.cacheTTL); err != nil {
		s.logger.Warn("cache dashboard", "error", err)
	}
	return summary, nil
}

// Chat relays a support message.
func (s *Store) Chat(ctx context.Context, message, sessionID string) (api.ChatReply, error) {
	return s.gw.Chat(ctx, message, sessionID)
}

// ChatHistory lists past support messages.
func (s *Store) ChatHistory(ctx context.Context) ([]api.ChatMessage, error) {
	return s.gw.ChatHistory(ctx)
}

// PurgeExpiredCache sweeps expired response-cache entries.
func (s *Store) PurgeExpiredCache(ctx context.Context) error {
	return s.cache.PurgeExpired(ctx)
}

// ClearError drops the visible error message.
func (s *Store) ClearError() {
	s.state.Patch(func(st *State) {
		st.Error = ""
	})
}
