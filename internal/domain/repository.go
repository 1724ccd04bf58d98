// Package domain defines the core interfaces and types for Harrier.
package domain

import (
	"context"
	"time"
)

// Repository persists wallet snapshots so repeated scorings of the same
// address survive restarts without hitting the chain provider again.
// Scoring results themselves are not persisted.
type Repository interface {
	// SaveSnapshot upserts the latest snapshot for a wallet.
	SaveSnapshot(ctx context.Context, snap *WalletSnapshot) error

	// GetSnapshot returns the stored snapshot for an address.
	// Returns nil, nil when no snapshot exists.
	GetSnapshot(ctx context.Context, address string) (*WalletSnapshot, error)

	// DeleteSnapshot removes the stored snapshot for an address.
	DeleteSnapshot(ctx context.Context, address string) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `json:"driver" yaml:"driver"`

	// SQLite specific
	SQLitePath string `json:"sqlitePath" yaml:"sqlitePath"`

	// PostgreSQL specific
	PostgresHost     string `json:"postgresHost" yaml:"postgresHost"`
	PostgresPort     int    `json:"postgresPort" yaml:"postgresPort"`
	PostgresUser     string `json:"postgresUser" yaml:"postgresUser"`
	PostgresPassword string `json:"postgresPassword" yaml:"postgresPassword"`
	PostgresDB       string `json:"postgresDb" yaml:"postgresDb"`
	PostgresSSLMode  string `json:"postgresSslMode" yaml:"postgresSslMode"`

	// Connection pool settings
	MaxOpenConns    int           `json:"maxOpenConns" yaml:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns" yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" yaml:"connMaxLifetime"`
}
