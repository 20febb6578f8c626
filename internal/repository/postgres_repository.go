package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "checkout_journal_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// RecordCreated stores a new transaction and marks any still-open transaction
// of the same checkout as orphaned.
func (r *Repository) RecordCreated(ctx context.Context, e *Entry) error {
	cartIDs := e.CartIDs
	if cartIDs == nil {
		cartIDs = []string{}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE checkout_transactions SET state = $1, updated_at = NOW()
		 WHERE checkout_id = $2 AND transaction_id <> $3 AND state IN ($4, $5)`,
		StateOrphaned, e.CheckoutID, e.TransactionID, StateCreated, StateProofAttached)
	if err != nil {
		return fmt.Errorf("orphan previous transactions: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO checkout_transactions
		     (transaction_id, checkout_id, user_id, payment_method_id, cart_ids, state, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		 ON CONFLICT (transaction_id) DO UPDATE SET state = EXCLUDED.state, updated_at = NOW()`,
		e.TransactionID, e.CheckoutID, e.UserID, e.PaymentMethodID, pq.Array(cartIDs), StateCreated)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	return tx.Commit()
}

func (r *Repository) MarkProofAttached(ctx context.Context, transactionID, proofURL string) error {
	return r.updateState(ctx,
		`UPDATE checkout_transactions SET state = $1, proof_url = $2, updated_at = NOW() WHERE transaction_id = $3`,
		StateProofAttached, proofURL, transactionID)
}

func (r *Repository) MarkConfirmed(ctx context.Context, transactionID string) error {
	return r.updateState(ctx,
		`UPDATE checkout_transactions SET state = $1, updated_at = NOW() WHERE transaction_id = $2`,
		StateConfirmed, transactionID)
}

// MarkAbandoned closes every open transaction of the checkout.
func (r *Repository) MarkAbandoned(ctx context.Context, checkoutID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE checkout_transactions SET state = $1, updated_at = NOW()
		 WHERE checkout_id = $2 AND state IN ($3, $4)`,
		StateAbandoned, checkoutID, StateCreated, StateProofAttached)
	if err != nil {
		return fmt.Errorf("mark abandoned: %w", err)
	}
	return nil
}

// AbandonStale marks open transactions untouched since before as abandoned.
func (r *Repository) AbandonStale(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE checkout_transactions SET state = $1, updated_at = NOW()
		 WHERE state IN ($2, $3) AND updated_at < $4`,
		StateAbandoned, StateCreated, StateProofAttached, before)
	if err != nil {
		return 0, fmt.Errorf("abandon stale: %w", err)
	}
	return res.RowsAffected()
}

func (r *Repository) Get(ctx context.Context, transactionID string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, selectEntry+` WHERE transaction_id = $1`, transactionID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query entry: %w", err)
	}
	return e, nil
}

func (r *Repository) ListByCheckout(ctx context.Context, checkoutID string) ([]*Entry, error) {
	rows, err := r.db.QueryContext(ctx, selectEntry+` WHERE checkout_id = $1 ORDER BY created_at, transaction_id`, checkoutID)
	if err != nil {
		return nil, fmt.Errorf("query entries by checkout: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *Repository) Close() error {
	return r.db.Close()
}

const selectEntry = `SELECT transaction_id, checkout_id, user_id, payment_method_id, cart_ids, state, proof_url, created_at, updated_at
	FROM checkout_transactions`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var e Entry
	err := s.Scan(
		&e.TransactionID,
		&e.CheckoutID,
		&e.UserID,
		&e.PaymentMethodID,
		pq.Array(&e.CartIDs),
		&e.State,
		&e.ProofURL,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repository) updateState(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrEntryNotFound
	}
	return nil
}

var _ JournalRepository = (*Repository)(nil)
