package localstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/swift-wallet/swiftwallet-go/internal/api"
)

// Key space prefixes. One database, one byte prefix per logical table.
const (
	prefixSession     = 'S'
	prefixWallet      = 'W'
	prefixTransaction = 'T'
	prefixBeneficiary = 'B'
	prefixCache       = 'C'
)

var (
	sessionKey = []byte{prefixSession}
	walletKey  = []byte{prefixWallet}
)

// LevelDB is the default embedded implementation of Store, backed by a
// single goleveldb database on disk. Batched writes make wholesale replaces
// observable only as fully-old or fully-new.
type LevelDB struct {
	db  *leveldb.DB
	now func() time.Time
}

// OpenLevelDB opens (creating if needed) the store database at path.
func OpenLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	return &LevelDB{db: db, now: time.Now}, nil
}

// Close releases the underlying database.
func (s *LevelDB) Close() error {
	return s.db.Close()
}

func (s *LevelDB) putJSON(key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Put(key, raw, nil)
}

func (s *LevelDB) getJSON(key []byte, v any) error {
	raw, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// SaveSession replaces the singleton session row.
func (s *LevelDB) SaveSession(_ context.Context, session Session) error {
	return s.putJSON(sessionKey, session)
}

// Session reads the cached session, ErrNotFound when logged out.
func (s *LevelDB) Session(_ context.Context) (Session, error) {
	var session Session
	err := s.getJSON(sessionKey, &session)
	return session, err
}

// DeleteSession removes the session row.
func (s *LevelDB) DeleteSession(_ context.Context) error {
	return s.db.Delete(sessionKey, nil)
}

// SaveWallet replaces the singleton wallet snapshot wholesale.
func (s *LevelDB) SaveWallet(_ context.Context, wallet api.WalletAccount) error {
	return s.putJSON(walletKey, wallet)
}

// Wallet reads the last cached wallet snapshot.
func (s *LevelDB) Wallet(_ context.Context) (api.WalletAccount, error) {
	var wallet api.WalletAccount
	err := s.getJSON(walletKey, &wallet)
	return wallet, err
}

// transactionKey sorts newest-first: the created-at timestamp is inverted so
// an ascending prefix iteration yields descending chronological order. The
// reference suffix keeps keys unique when timestamps collide.
func (s *LevelDB) transactionKey(record api.TransactionRecord, index int) []byte {
	ts, err := time.Parse(time.RFC3339, record.CreatedAt)
	if err != nil {
		// Unparseable timestamps keep their arrival order behind a fixed epoch.
		ts = time.Unix(0, int64(index))
	}
	key := make([]byte, 0, 1+8+1+len(record.Reference))
	key = append(key, prefixTransaction)
	key = binary.BigEndian.AppendUint64(key, ^uint64(ts.UnixNano()))
	key = append(key, '|')
	key = append(key, record.Reference...)
	return key
}

// ReplaceTransactions clears the table and bulk-inserts records in a single
// batch write.
func (s *LevelDB) ReplaceTransactions(_ context.Context, records []api.TransactionRecord) error {
	batch := new(leveldb.Batch)
	iter := s.db.NewIterator(util.BytesPrefix([]byte{prefixTransaction}), nil)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}
	for i, record := range records {
		raw, err := json.Marshal(record)
		if err != nil {
			return err
		}
		batch.Put(s.transactionKey(record, i), raw)
	}
	return s.db.Write(batch, nil)
}

// SaveTransaction upserts one record by reference. The key embeds the
// created-at timestamp, so a record whose timestamp moved (pending to
// completed) lands under a new key; any old row for the reference is removed
// in the same batch.
func (s *LevelDB) SaveTransaction(_ context.Context, record api.TransactionRecord) error {
	batch := new(leveldb.Batch)
	iter := s.db.NewIterator(util.BytesPrefix([]byte{prefixTransaction}), nil)
	for iter.Next() {
		// The reference is the key suffix past prefix, timestamp and separator.
		key := iter.Key()
		if len(key) > 10 && string(key[10:]) == record.Reference {
			batch.Delete(append([]byte(nil), key...))
		}
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	batch.Put(s.transactionKey(record, 0), raw)
	return s.db.Write(batch, nil)
}

// Transactions returns up to limit records ordered by created-at descending.
// A non-positive limit returns everything.
func (s *LevelDB) Transactions(_ context.Context, limit int) ([]api.TransactionRecord, error) {
	var records []api.TransactionRecord
	iter := s.db.NewIterator(util.BytesPrefix([]byte{prefixTransaction}), nil)
	for iter.Next() {
		var record api.TransactionRecord
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			iter.Release()
			return nil, err
		}
		records = append(records, record)
		if limit > 0 && len(records) >= limit {
			break
		}
	}
	iter.Release()
	return records, iter.Error()
}

// TransactionByReference scans for the record with the given reference.
func (s *LevelDB) TransactionByReference(_ context.Context, reference string) (api.TransactionRecord, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte{prefixTransaction}), nil)
	defer iter.Release()
	for iter.Next() {
		var record api.TransactionRecord
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			return api.TransactionRecord{}, err
		}
		if record.Reference == reference {
			return record, nil
		}
	}
	if err := iter.Error(); err != nil {
		return api.TransactionRecord{}, err
	}
	return api.TransactionRecord{}, ErrNotFound
}

// SaveBeneficiary upserts a beneficiary by server id, so re-syncing the
// remote list never duplicates rows.
func (s *LevelDB) SaveBeneficiary(_ context.Context, beneficiary api.Beneficiary) error {
	key := make([]byte, 0, 1+8)
	key = append(key, prefixBeneficiary)
	key = binary.BigEndian.AppendUint64(key, uint64(beneficiary.ID))
	return s.putJSON(key, beneficiary)
}

func (s *LevelDB) beneficiaries(filter func(api.Beneficiary) bool) ([]api.Beneficiary, error) {
	var list []api.Beneficiary
	iter := s.db.NewIterator(util.BytesPrefix([]byte{prefixBeneficiary}), nil)
	defer iter.Release()
	for iter.Next() {
		var b api.Beneficiary
		if err := json.Unmarshal(iter.Value(), &b); err != nil {
			return nil, err
		}
		if filter == nil || filter(b) {
			list = append(list, b)
		}
	}
	return list, iter.Error()
}

// Beneficiaries lists every saved beneficiary.
func (s *LevelDB) Beneficiaries(_ context.Context) ([]api.Beneficiary, error) {
	return s.beneficiaries(nil)
}

// FavoriteBeneficiaries lists only entries flagged as favorites.
func (s *LevelDB) FavoriteBeneficiaries(_ context.Context) ([]api.Beneficiary, error) {
	return s.beneficiaries(func(b api.Beneficiary) bool { return b.IsFavorite })
}

type cacheRow struct {
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func cacheKey(key string) []byte {
	return append([]byte{prefixCache}, key...)
}

// PutCache upserts the entry for key; any previous payload is overwritten.
func (s *LevelDB) PutCache(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	now := s.now()
	return s.putJSON(cacheKey(key), cacheRow{
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	})
}

// Cache returns the payload for key, or ErrNotFound when the entry is absent
// or expired. An expired row is deleted by the read that discovers it.
func (s *LevelDB) Cache(_ context.Context, key string) ([]byte, error) {
	var row cacheRow
	if err := s.getJSON(cacheKey(key), &row); err != nil {
		return nil, err
	}
	if s.now().After(row.ExpiresAt) {
		if err := s.db.Delete(cacheKey(key), nil); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return row.Payload, nil
}

// PurgeExpiredCache deletes every expired cache row in one batch.
func (s *LevelDB) PurgeExpiredCache(_ context.Context) error {
	now := s.now()
	batch := new(leveldb.Batch)
	iter := s.db.NewIterator(util.BytesPrefix([]byte{prefixCache}), nil)
	for iter.Next() {
		var row cacheRow
		if err := json.Unmarshal(iter.Value(), &row); err != nil {
			iter.Release()
			return err
		}
		if now.After(row.ExpiresAt) {
			batch.Delete(append([]byte(nil), iter.Key()...))
		}
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}
	return s.db.Write(batch, nil)
}

// ClearAll deletes every row in every table in one batch.
func (s *LevelDB) ClearAll(_ context.Context) error {
	batch := new(leveldb.Batch)
	iter := s.db.NewIterator(nil, nil)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}
	return s.db.Write(batch, nil)
}
