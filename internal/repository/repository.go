// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveSnapshot upserts the snapshot for a wallet. The address is the
// primary key; a fresh fetch replaces whatever was stored before.
func (r *SQLRepository) SaveSnapshot(ctx context.Context, snap *domain.WalletSnapshot) error {
	if snap == nil || snap.Address == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidInput)
	}

	nativeTxs, err := json.Marshal(snap.NativeTxs)
	if err != nil {
		return fmt.Errorf("failed to encode native transactions: %w", err)
	}
	tokenTxs, err := json.Marshal(snap.TokenTxs)
	if err != nil {
		return fmt.Errorf("failed to encode token transfers: %w", err)
	}

	query := `
		INSERT INTO wallet_snapshots (
			address, native_txs, token_txs, balance_wei, fetched_at
		) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (address) DO UPDATE SET
			native_txs = excluded.native_txs,
			token_txs = excluded.token_txs,
			balance_wei = excluded.balance_wei,
			fetched_at = excluded.fetched_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		strings.ToLower(snap.Address),
		string(nativeTxs), string(tokenTxs),
		snap.BalanceWei, snap.FetchedAt.UTC(),
	)
	return err
}

// GetSnapshot retrieves the stored snapshot for an address.
// Returns nil, nil when no snapshot exists.
func (r *SQLRepository) GetSnapshot(ctx context.Context, address string) (*domain.WalletSnapshot, error) {
	if address == "" {
		return nil, fmt.Errorf("%w: address is required", ErrInvalidInput)
	}

	query := `
		SELECT address, native_txs, token_txs, balance_wei, fetched_at
		FROM wallet_snapshots
		WHERE address = ?
	`

	var snap domain.WalletSnapshot
	var nativeTxs, tokenTxs string

	err := r.db.QueryRowContext(ctx, r.rebind(query), strings.ToLower(address)).Scan(
		&snap.Address, &nativeTxs, &tokenTxs,
		&snap.BalanceWei, &snap.FetchedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(nativeTxs), &snap.NativeTxs); err != nil {
		return nil, fmt.Errorf("failed to decode native transactions: %w", err)
	}
	if err := json.Unmarshal([]byte(tokenTxs), &snap.TokenTxs); err != nil {
		return nil, fmt.Errorf("failed to decode token transfers: %w", err)
	}

	return &snap, nil
}

// DeleteSnapshot removes the stored snapshot for an address.
func (r *SQLRepository) DeleteSnapshot(ctx context.Context, address string) error {
	if address == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidInput)
	}

	query := `DELETE FROM wallet_snapshots WHERE address = ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), strings.ToLower(address))
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// PruneSnapshots deletes snapshots fetched before the cutoff and returns
// the number of rows removed.
func (r *SQLRepository) PruneSnapshots(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM wallet_snapshots WHERE fetched_at < ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), before.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
