package checks

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-books/meridian/internal/ledger/shared"
)

// Repository encapsulates DB operations for the check register.
type Repository interface {
	Insert(ctx context.Context, c Check) (Check, error)
	Get(ctx context.Context, id int64) (Check, error)
	ListByBankAccount(ctx context.Context, bankAccountID int64) ([]Check, error)
	ListOutstanding(ctx context.Context, bankAccountID int64) ([]Check, error)
	// UpdateStatus flips issued->to atomically; a stale status yields
	// shared.ErrInvalidStateTransition.
	UpdateStatus(ctx context.Context, id int64, to CheckStatus) (Check, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const checkColumns = `id, bank_account_id, check_number, payee, amount, status, issued_date, cleared_date, journal_entry_id, created_at, updated_at`

func scanCheck(row pgx.Row) (Check, error) {
	var c Check
	var amount int64
	err := row.Scan(&c.ID, &c.BankAccountID, &c.CheckNumber, &c.Payee, &amount, &c.Status,
		&c.IssuedDate, &c.ClearedDate, &c.JournalEntryID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Check{}, shared.ErrNotFound
		}
		return Check{}, err
	}
	c.Amount = shared.Money(amount)
	return c, nil
}

func (r *repository) Insert(ctx context.Context, c Check) (Check, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO checks (bank_account_id, check_number, payee, amount, status, issued_date, journal_entry_id)
VALUES ($1,$2,$3,$4,'ISSUED',$5,$6) RETURNING `+checkColumns,
		c.BankAccountID, c.CheckNumber, c.Payee, int64(c.Amount), c.IssuedDate, c.JournalEntryID)
	inserted, err := scanCheck(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return Check{}, shared.ErrDuplicateCode
			case "23503":
				return Check{}, shared.ErrNotFound
			}
		}
		return Check{}, err
	}
	return inserted, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Check, error) {
	return scanCheck(r.db.QueryRow(ctx, `SELECT `+checkColumns+` FROM checks WHERE id=$1`, id))
}

func (r *repository) ListByBankAccount(ctx context.Context, bankAccountID int64) ([]Check, error) {
	return r.list(ctx, `SELECT `+checkColumns+` FROM checks WHERE bank_account_id=$1 ORDER BY issued_date, id`, bankAccountID)
}

func (r *repository) ListOutstanding(ctx context.Context, bankAccountID int64) ([]Check, error) {
	return r.list(ctx, `SELECT `+checkColumns+` FROM checks WHERE bank_account_id=$1 AND status='ISSUED' ORDER BY issued_date, id`, bankAccountID)
}

func (r *repository) list(ctx context.Context, query string, args ...any) ([]Check, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Check
	for rows.Next() {
		var c Check
		var amount int64
		if err := rows.Scan(&c.ID, &c.BankAccountID, &c.CheckNumber, &c.Payee, &amount, &c.Status,
			&c.IssuedDate, &c.ClearedDate, &c.JournalEntryID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Amount = shared.Money(amount)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, to CheckStatus) (Check, error) {
	row := r.db.QueryRow(ctx, `UPDATE checks
SET status=$2, cleared_date=CASE WHEN $2='CLEARED' THEN NOW() ELSE cleared_date END, updated_at=NOW()
WHERE id=$1 AND status='ISSUED' RETURNING `+checkColumns, id, to)
	updated, err := scanCheck(row)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Either the check does not exist or it already left ISSUED.
			if _, getErr := r.Get(ctx, id); getErr == nil {
				return Check{}, shared.ErrInvalidStateTransition
			}
			return Check{}, shared.ErrNotFound
		}
		return Check{}, err
	}
	return updated, nil
}
