package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/registration-demo/registration/internal/platform/db"
)

// Repository defines persistence operations for accounts.
type Repository interface {
	Get(ctx context.Context, email string) (*Account, error)
	Insert(ctx context.Context, account Account) error
	UpdateActivationKey(ctx context.Context, email, key string, now time.Time) error
	Activate(ctx context.Context, email string) error
}

// PGRepository implements Repository using PostgreSQL. Statements run on the
// request transaction when one is bound to the context.
type PGRepository struct {
	pool db.Querier
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool db.Querier) *PGRepository {
	return &PGRepository{pool: pool}
}

// Get fetches an account by email and locks its row for the rest of the
// transaction.
func (r *PGRepository) Get(ctx context.Context, email string) (*Account, error) {
	const query = `
		SELECT id, email, password, status, activation_key, registred_date
		FROM account
		WHERE email = $1
		FOR UPDATE
	`
	var (
		account Account
		status  string
		key     *string
	)
	err := db.Conn(ctx, r.pool).QueryRow(ctx, query, email).Scan(
		&account.ID, &account.Email, &account.PasswordHash, &status, &key, &account.RegisteredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("accounts: get: %w", err)
	}
	account.Status = Status(status)
	if key != nil {
		account.ActivationKey = *key
	}
	return &account, nil
}

// Insert creates an account. The statement runs inside a savepoint so that a
// unique violation leaves the surrounding transaction usable.
func (r *PGRepository) Insert(ctx context.Context, account Account) error {
	const query = `
		INSERT INTO account (id, email, password, status, activation_key, registred_date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	sp, err := db.Conn(ctx, r.pool).Begin(ctx)
	if err != nil {
		return fmt.Errorf("accounts: insert savepoint: %w", err)
	}
	defer func() {
		_ = sp.Rollback(context.WithoutCancel(ctx))
	}()

	_, err = sp.Exec(ctx, query,
		account.ID, account.Email, account.PasswordHash, string(account.Status),
		account.ActivationKey, account.RegisteredAt.UTC(),
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrAccountExists
		}
		return fmt.Errorf("accounts: insert: %w", err)
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("accounts: insert release: %w", err)
	}
	return nil
}

// UpdateActivationKey replaces the activation key and restarts the window.
func (r *PGRepository) UpdateActivationKey(ctx context.Context, email, key string, now time.Time) error {
	const query = `UPDATE account SET activation_key = $1, registred_date = $2 WHERE email = $3`
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, query, key, now.UTC(), email)
	if err != nil {
		return fmt.Errorf("accounts: update activation key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// Activate marks the account active and clears its activation key.
func (r *PGRepository) Activate(ctx context.Context, email string) error {
	const query = `UPDATE account SET status = $1, activation_key = NULL WHERE email = $2`
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, query, string(StatusActive), email)
	if err != nil {
		return fmt.Errorf("accounts: activate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
