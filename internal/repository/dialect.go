package repository

import (
	stderrors "errors"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"warp-ledger/internal/config"
)

// dialect captures what differs between the SQLite and Postgres backends.
type dialect struct {
	name string
	// schema statements are idempotent on their own.
	schema []string
	// migrations are additive changes applied to databases created by older versions.
	// A failure that means "already applied" is ignored.
	migrations []string
	// lockSuffix is appended to row reads that precede a write. SQLite relies on BEGIN IMMEDIATE instead.
	lockSuffix string
	// accountsLock blocks account inserts and other holders of the same lock until commit.
	// Empty on SQLite, where every write transaction already holds the database lock.
	accountsLock string
}

var sqliteDialect = dialect{
	name: config.DriverSQLite,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			user_id TEXT PRIMARY KEY,
			balance INTEGER NOT NULL CHECK (balance >= 0),
			created_at TIMESTAMP NOT NULL,
			last_daily_claim_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			tx_id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			amount INTEGER NOT NULL,
			reason TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_tx
			ON transactions(user_id, tx_id)`,
	},
	migrations: []string{
		`ALTER TABLE accounts ADD COLUMN last_daily_claim_at TIMESTAMP`,
	},
}

var postgresDialect = dialect{
	name: config.DriverPostgres,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			user_id TEXT PRIMARY KEY,
			balance BIGINT NOT NULL CHECK (balance >= 0),
			created_at TIMESTAMPTZ NOT NULL,
			last_daily_claim_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			tx_id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			amount BIGINT NOT NULL,
			reason TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_tx
			ON transactions(user_id, tx_id)`,
	},
	migrations: []string{
		`ALTER TABLE accounts ADD COLUMN last_daily_claim_at TIMESTAMPTZ`,
	},
	lockSuffix:   " FOR UPDATE",
	accountsLock: `LOCK TABLE accounts IN SHARE ROW EXCLUSIVE MODE`,
}

func dialectFor(driver string) dialect {
	if driver == config.DriverPostgres {
		return postgresDialect
	}
	return sqliteDialect
}

// isAlreadyExists reports whether a DDL failure only says the object is already there.
func isAlreadyExists(err error) bool {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		switch pqErr.Code {
		case "42701", // duplicate_column
			"42P07", // duplicate_table
			"42710", // duplicate_object
			"23505": // unique_violation on the catalog when two sessions create the same table
			return true
		}
		return false
	}

	var liteErr sqlite3.Error
	if stderrors.As(err, &liteErr) {
		msg := strings.ToLower(liteErr.Error())
		return strings.Contains(msg, "duplicate column name") || strings.Contains(msg, "already exists")
	}

	return false
}
