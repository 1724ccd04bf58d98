package repository

// Schema definitions for the Harrier database.
// Compatible with both SQLite and PostgreSQL.

// schemaWalletSnapshots stores one row per wallet address with the
// fetched transaction history encoded as JSON. The address is stored
// lowercased so lookups are case-insensitive.
const schemaWalletSnapshots = `
CREATE TABLE IF NOT EXISTS wallet_snapshots (
    address TEXT PRIMARY KEY,
    native_txs TEXT NOT NULL,
    token_txs TEXT NOT NULL,
    balance_wei TEXT NOT NULL,
    fetched_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_wallet_snapshots_fetched ON wallet_snapshots(fetched_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaWalletSnapshots,
	}
}
