package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"warp-ledger/internal/config"
	"warp-ledger/internal/domain"
	"warp-ledger/internal/errors"
)

// Store provides a unified interface for all repository operations with transaction support
type Store struct {
	db       DB
	executor SQLExecutor
	dialect  dialect
	logger   *slog.Logger
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.DBDriver, cfg.GetDBConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.DBDriver == config.DriverPostgres {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	} else {
		// WAL lets readers run alongside the single writer; writers queue on the busy timeout.
		db.SetMaxOpenConns(8)
		db.SetMaxIdleConns(8)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// NewStore creates a new Store instance
func NewStore(db DB, driver string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:       db,
		executor: db,
		dialect:  dialectFor(driver),
		logger:   logger,
	}
}

// Account returns an AccountRepository using the current executor
func (s *Store) Account() domain.AccountRepository {
	return NewAccountRepository(s.executor, s.dialect, s.logger)
}

// Transaction returns a TransactionRepository using the current executor
func (s *Store) Transaction() domain.TransactionRepository {
	return NewTransactionRepository(s.executor, s.logger)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Initialize creates the schema if absent and applies additive migrations.
// It is safe to run repeatedly, concurrently, and against databases created by older versions.
func (s *Store) Initialize(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if err := s.execDDL(ctx, stmt); err != nil && !isAlreadyExists(err) {
			s.logger.Error("Failed to create schema", "driver", s.dialect.name, "error", err)
			return errors.Internal("failed to create schema", err)
		}
	}

	for _, stmt := range s.dialect.migrations {
		if err := s.execDDL(ctx, stmt); err != nil {
			if isAlreadyExists(err) {
				continue
			}
			s.logger.Error("Failed to apply migration", "driver", s.dialect.name, "error", err)
			return errors.Internal("failed to apply migration", err)
		}
		s.logger.Info("Applied migration", "driver", s.dialect.name, "statement", stmt)
	}

	return nil
}

// execDDL runs one schema statement in its own transaction. On SQLite that takes the write lock up
// front, so concurrent initializers wait on the busy timeout instead of failing on a stale snapshot.
func (s *Store) execDDL(ctx context.Context, stmt string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// LockAccounts serializes work that reads the whole accounts table and then writes based on what it saw.
// It must run inside WithTransaction; the lock is released at commit or rollback.
func (s *Store) LockAccounts(ctx context.Context) error {
	if _, inTx := s.executor.(*sql.Tx); !inTx {
		return errors.NewAppError(errors.InternalError, "accounts lock requires a transaction")
	}
	if s.dialect.accountsLock == "" {
		return nil
	}
	if _, err := s.executor.ExecContext(ctx, s.dialect.accountsLock); err != nil {
		s.logger.Error("Failed to lock accounts", "error", err)
		return errors.Internal("failed to lock accounts", err)
	}
	return nil
}

// WithTransaction executes fn inside an exclusive write transaction. The transaction commits when fn
// returns nil and rolls back when fn returns an error or panics.
func (s *Store) WithTransaction(ctx context.Context, fn func(*Store) error) error {
	if _, inTx := s.executor.(*sql.Tx); inTx {
		return errors.NewAppError(errors.InternalError, "nested transactions are not supported")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("Failed to begin transaction", "error", err)
		return errors.Internal("failed to begin transaction", err)
	}

	txStore := &Store{
		db:       s.db,
		executor: tx,
		dialect:  s.dialect,
		logger:   s.logger,
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			s.logger.Error("Failed to roll back transaction", "error", rbErr)
		}
	}()

	if err := fn(txStore); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transaction", "error", err)
		return errors.Internal("failed to commit transaction", err)
	}
	committed = true
	return nil
}
