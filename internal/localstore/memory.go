package localstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/swift-wallet/swiftwallet-go/internal/api"
)

type memoryStore struct {
	mu            sync.RWMutex
	session       *Session
	wallet        *api.WalletAccount
	transactions  []api.TransactionRecord
	beneficiaries []api.Beneficiary
	cache         map[string]cacheRow
	now           func() time.Time
}

// NewMemory constructs an in-memory Store for tests.
func NewMemory() Store {
	return &memoryStore{cache: make(map[string]cacheRow), now: time.Now}
}

func (m *memoryStore) SaveSession(_ context.Context, session Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = &session
	return nil
}

func (m *memoryStore) Session(_ context.Context) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return Session{}, ErrNotFound
	}
	return *m.session, nil
}

func (m *memoryStore) DeleteSession(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

func (m *memoryStore) SaveWallet(_ context.Context, wallet api.WalletAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wallet = &wallet
	return nil
}

func (m *memoryStore) Wallet(_ context.Context) (api.WalletAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.wallet == nil {
		return api.WalletAccount{}, ErrNotFound
	}
	return *m.wallet, nil
}

func sortByCreatedAtDesc(records []api.TransactionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt > records[j].CreatedAt
	})
}

func (m *memoryStore) ReplaceTransactions(_ context.Context, records []api.TransactionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = append([]api.TransactionRecord(nil), records...)
	sortByCreatedAtDesc(m.transactions)
	return nil
}

func (m *memoryStore) SaveTransaction(_ context.Context, record api.TransactionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	replaced := false
	for i, existing := range m.transactions {
		if existing.Reference == record.Reference {
			m.transactions[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		m.transactions = append(m.transactions, record)
	}
	sortByCreatedAtDesc(m.transactions)
	return nil
}

func (m *memoryStore) Transactions(_ context.Context, limit int) ([]api.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := append([]api.TransactionRecord(nil), m.transactions...)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (m *memoryStore) TransactionByReference(_ context.Context, reference string) (api.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, record := range m.transactions {
		if record.Reference == reference {
			return record, nil
		}
	}
	return api.TransactionRecord{}, ErrNotFound
}

func (m *memoryStore) SaveBeneficiary(_ context.Context, beneficiary api.Beneficiary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.beneficiaries {
		if existing.ID == beneficiary.ID {
			m.beneficiaries[i] = beneficiary
			return nil
		}
	}
	m.beneficiaries = append(m.beneficiaries, beneficiary)
	return nil
}

func (m *memoryStore) Beneficiaries(_ context.Context) ([]api.Beneficiary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]api.Beneficiary(nil), m.beneficiaries...), nil
}

func (m *memoryStore) FavoriteBeneficiaries(_ context.Context) ([]api.Beneficiary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var favorites []api.Beneficiary
	for _, b := range m.beneficiaries {
		if b.IsFavorite {
			favorites = append(favorites, b)
		}
	}
	return favorites, nil
}

func (m *memoryStore) PutCache(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.cache[key] = cacheRow{Payload: payload, CreatedAt: now, ExpiresAt: now.Add(ttl)}
	return nil
}

func (m *memoryStore) Cache(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.cache[key]
	if !ok {
		return nil, ErrNotFound
	}
	if m.now().After(row.ExpiresAt) {
		delete(m.cache, key)
		return nil, ErrNotFound
	}
	return row.Payload, nil
}

func (m *memoryStore) PurgeExpiredCache(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for key, row := range m.cache {
		if now.After(row.ExpiresAt) {
			delete(m.cache, key)
		}
	}
	return nil
}

func (m *memoryStore) ClearAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	m.wallet = nil
	m.transactions = nil
	m.beneficiaries = nil
	m.cache = make(map[string]cacheRow)
	return nil
}

func (m *memoryStore) Close() error { return nil }
