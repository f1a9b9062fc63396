package localstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swift-wallet/swiftwallet-go/internal/api"
)

// PostgresStore implements Store on PostgreSQL for hosted deployments of the
// client (server-side agents sharing one cache). The contract is identical to
// the embedded store; the singleton tables are enforced with a fixed row id.
type PostgresStore struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// OpenPostgres connects to url, verifies the connection and ensures the
// schema exists.
func OpenPostgres(ctx context.Context, url string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

// EnsureSchema creates the cache tables when they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS sessions (
            id INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
            payload JSONB NOT NULL
        );
        CREATE TABLE IF NOT EXISTS wallet_snapshot (
            id INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
            payload JSONB NOT NULL
        );
        CREATE TABLE IF NOT EXISTS transactions (
            reference TEXT PRIMARY KEY,
            created_at TIMESTAMPTZ NOT NULL,
            payload JSONB NOT NULL
        );
        CREATE TABLE IF NOT EXISTS beneficiaries (
            id BIGINT PRIMARY KEY,
            is_favorite BOOLEAN NOT NULL,
            payload JSONB NOT NULL
        );
        CREATE TABLE IF NOT EXISTS cached_data (
            key TEXT PRIMARY KEY,
            payload BYTEA NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            expires_at TIMESTAMPTZ NOT NULL
        )`)
	return err
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

// SaveSession replaces the singleton session row.
func (s *PostgresStore) SaveSession(ctx context.Context, session Session) error {
	_, err := s.db.Exec(ctx, `INSERT INTO sessions (id, payload) VALUES (1, $1)
        ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload`, session)
	return err
}

// Session reads the cached session.
func (s *PostgresStore) Session(ctx context.Context) (Session, error) {
	var session Session
	err := s.db.QueryRow(ctx, `SELECT payload FROM sessions WHERE id = 1`).Scan(&session)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	return session, err
}

// DeleteSession removes the session row.
func (s *PostgresStore) DeleteSession(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DELETE FROM sessions`)
	return err
}

// SaveWallet replaces the singleton wallet snapshot.
func (s *PostgresStore) SaveWallet(ctx context.Context, wallet api.WalletAccount) error {
	_, err := s.db.Exec(ctx, `INSERT INTO wallet_snapshot (id, payload) VALUES (1, $1)
        ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload`, wallet)
	return err
}

// Wallet reads the last cached wallet snapshot.
func (s *PostgresStore) Wallet(ctx context.Context) (api.WalletAccount, error) {
	var wallet api.WalletAccount
	err := s.db.QueryRow(ctx, `SELECT payload FROM wallet_snapshot WHERE id = 1`).Scan(&wallet)
	if errors.Is(err, pgx.ErrNoRows) {
		return api.WalletAccount{}, ErrNotFound
	}
	return wallet, err
}

func transactionCreatedAt(record api.TransactionRecord) time.Time {
	ts, err := time.Parse(time.RFC3339, record.CreatedAt)
	if err != nil {
		return time.Unix(0, 0)
	}
	return ts
}

// ReplaceTransactions clears then bulk-inserts inside one transaction so
// concurrent readers see the old set or the new set, never a mix.
func (s *PostgresStore) ReplaceTransactions(ctx context.Context, records []api.TransactionRecord) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM transactions`); err != nil {
		return err
	}
	for _, record := range records {
		if _, err := tx.Exec(ctx, `INSERT INTO transactions (reference, created_at, payload)
            VALUES ($1, $2, $3) ON CONFLICT (reference) DO UPDATE SET payload = EXCLUDED.payload`,
			record.Reference, transactionCreatedAt(record), record); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// SaveTransaction upserts one record by reference.
func (s *PostgresStore) SaveTransaction(ctx context.Context, record api.TransactionRecord) error {
	_, err := s.db.Exec(ctx, `INSERT INTO transactions (reference, created_at, payload)
        VALUES ($1, $2, $3) ON CONFLICT (reference) DO UPDATE SET created_at = EXCLUDED.created_at, payload = EXCLUDED.payload`,
		record.Reference, transactionCreatedAt(record), record)
	return err
}

// Transactions lists records newest-first, up to limit when positive.
func (s *PostgresStore) Transactions(ctx context.Context, limit int) ([]api.TransactionRecord, error) {
	query := `SELECT payload FROM transactions ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []api.TransactionRecord
	for rows.Next() {
		var record api.TransactionRecord
		if err := rows.Scan(&record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// TransactionByReference fetches one record by its external identity.
func (s *PostgresStore) TransactionByReference(ctx context.Context, reference string) (api.TransactionRecord, error) {
	var record api.TransactionRecord
	err := s.db.QueryRow(ctx, `SELECT payload FROM transactions WHERE reference = $1`, reference).Scan(&record)
	if errors.Is(err, pgx.ErrNoRows) {
		return api.TransactionRecord{}, ErrNotFound
	}
	return record, err
}

// SaveBeneficiary upserts a beneficiary by server id, so re-syncing the
// remote list never duplicates rows.
func (s *PostgresStore) SaveBeneficiary(ctx context.Context, beneficiary api.Beneficiary) error {
	_, err := s.db.Exec(ctx, `INSERT INTO beneficiaries (id, is_favorite, payload) VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET is_favorite = EXCLUDED.is_favorite, payload = EXCLUDED.payload`,
		beneficiary.ID, beneficiary.IsFavorite, beneficiary)
	return err
}

func (s *PostgresStore) listBeneficiaries(ctx context.Context, query string, args ...any) ([]api.Beneficiary, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []api.Beneficiary
	for rows.Next() {
		var b api.Beneficiary
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// Beneficiaries lists every saved beneficiary in insertion order.
func (s *PostgresStore) Beneficiaries(ctx context.Context) ([]api.Beneficiary, error) {
	return s.listBeneficiaries(ctx, `SELECT payload FROM beneficiaries ORDER BY id`)
}

// FavoriteBeneficiaries lists only favorites.
func (s *PostgresStore) FavoriteBeneficiaries(ctx context.Context) ([]api.Beneficiary, error) {
	return s.listBeneficiaries(ctx, `SELECT payload FROM beneficiaries WHERE is_favorite ORDER BY id`)
}

// PutCache upserts the entry for key with a fresh expiry.
func (s *PostgresStore) PutCache(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	now := s.now()
	_, err := s.db.Exec(ctx, `INSERT INTO cached_data (key, payload, created_at, expires_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload,
            created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at`,
		key, payload, now, now.Add(ttl))
	return err
}

// Cache reads the payload for key; an expired row is deleted and reported as
// ErrNotFound.
func (s *PostgresStore) Cache(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	var expiresAt time.Time
	err := s.db.QueryRow(ctx, `SELECT payload, expires_at FROM cached_data WHERE key = $1`, key).
		Scan(&payload, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.now().After(expiresAt) {
		if _, err := s.db.Exec(ctx, `DELETE FROM cached_data WHERE key = $1`, key); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return payload, nil
}

// PurgeExpiredCache sweeps every expired row.
func (s *PostgresStore) PurgeExpiredCache(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DELETE FROM cached_data WHERE expires_at < $1`, s.now())
	return err
}

// ClearAll empties all five tables.
func (s *PostgresStore) ClearAll(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `TRUNCATE sessions, wallet_snapshot, transactions, beneficiaries, cached_data`)
	return err
}
