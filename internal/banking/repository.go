package banking

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-books/meridian/internal/ledger/shared"
)

// Repository encapsulates DB operations for bank accounts and transactions.
type Repository interface {
	InsertAccount(ctx context.Context, a BankAccount) (BankAccount, error)
	GetAccount(ctx context.Context, id int64) (BankAccount, error)
	ListAccounts(ctx context.Context) ([]BankAccount, error)
	InsertTransactions(ctx context.Context, txs []BankTransaction) ([]BankTransaction, error)
	ListTransactions(ctx context.Context, bankAccountID int64, onlyUnreconciled bool) ([]BankTransaction, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, name, bank_name, masked_number, currency, gl_account_id, created_at, updated_at`

func (r *repository) InsertAccount(ctx context.Context, a BankAccount) (BankAccount, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO bank_accounts (name, bank_name, masked_number, currency, gl_account_id)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at, updated_at`,
		a.Name, a.BankName, a.MaskedNumber, a.Currency, a.GLAccountID)
	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return BankAccount{}, shared.ErrNotFound
		}
		return BankAccount{}, err
	}
	return a, nil
}

func (r *repository) GetAccount(ctx context.Context, id int64) (BankAccount, error) {
	var a BankAccount
	err := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM bank_accounts WHERE id=$1`, id).
		Scan(&a.ID, &a.Name, &a.BankName, &a.MaskedNumber, &a.Currency, &a.GLAccountID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BankAccount{}, shared.ErrNotFound
		}
		return BankAccount{}, err
	}
	return a, nil
}

func (r *repository) ListAccounts(ctx context.Context) ([]BankAccount, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM bank_accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BankAccount
	for rows.Next() {
		var a BankAccount
		if err := rows.Scan(&a.ID, &a.Name, &a.BankName, &a.MaskedNumber, &a.Currency, &a.GLAccountID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) InsertTransactions(ctx context.Context, txs []BankTransaction) ([]BankTransaction, error) {
	out := make([]BankTransaction, 0, len(txs))
	for _, t := range txs {
		row := r.db.QueryRow(ctx, `INSERT INTO bank_transactions (bank_account_id, tx_date, description, amount, direction)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at`,
			t.BankAccountID, t.Date, t.Description, int64(t.Amount), t.Direction)
		if err := row.Scan(&t.ID, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *repository) ListTransactions(ctx context.Context, bankAccountID int64, onlyUnreconciled bool) ([]BankTransaction, error) {
	query := `SELECT id, bank_account_id, tx_date, description, amount, direction, reconciled, matched_journal_line_id, created_at
FROM bank_transactions WHERE bank_account_id=$1`
	if onlyUnreconciled {
		query += ` AND reconciled = FALSE`
	}
	query += ` ORDER BY tx_date, id`
	rows, err := r.db.Query(ctx, query, bankAccountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BankTransaction
	for rows.Next() {
		var t BankTransaction
		var amount int64
		if err := rows.Scan(&t.ID, &t.BankAccountID, &t.Date, &t.Description, &amount, &t.Direction, &t.Reconciled, &t.MatchedJournalLineID, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Amount = shared.Money(amount)
		out = append(out, t)
	}
	return out, rows.Err()
}
