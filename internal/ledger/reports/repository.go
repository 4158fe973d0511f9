package reports

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-books/meridian/internal/ledger/accounts"
	"github.com/meridian-books/meridian/internal/ledger/shared"
)

// Repository aggregates posted journal lines for the read-only reports.
// Posted-effect statuses are POSTED and REVERSED: a reversed original still
// counts and its reversal entry nets it out.
type Repository interface {
	ActivityAsOf(ctx context.Context, asOf time.Time) ([]AccountActivity, error)
	ActivityInRange(ctx context.Context, start, end time.Time) ([]AccountActivity, error)
	GetAccount(ctx context.Context, id int64) (accounts.Account, error)
	OpeningNet(ctx context.Context, accountID int64, before time.Time) (debit, credit shared.Money, err error)
	AccountLines(ctx context.Context, accountID int64, start, end time.Time) ([]LedgerLine, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const activityQuery = `SELECT a.id, a.code, a.name, a.type, COALESCE(SUM(l.debit),0), COALESCE(SUM(l.credit),0)
FROM accounts a
JOIN journal_lines l ON l.account_id = a.id
JOIN journal_entries e ON e.id = l.entry_id
WHERE e.status IN ('POSTED','REVERSED') AND `

const activityTail = `
GROUP BY a.id, a.code, a.name, a.type
ORDER BY a.code`

func (r *repository) ActivityAsOf(ctx context.Context, asOf time.Time) ([]AccountActivity, error) {
	return r.activity(ctx, activityQuery+`e.entry_date <= $1`+activityTail, asOf)
}

func (r *repository) ActivityInRange(ctx context.Context, start, end time.Time) ([]AccountActivity, error) {
	return r.activity(ctx, activityQuery+`e.entry_date BETWEEN $1 AND $2`+activityTail, start, end)
}

func (r *repository) activity(ctx context.Context, query string, args ...any) ([]AccountActivity, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountActivity
	for rows.Next() {
		var act AccountActivity
		var debit, credit int64
		if err := rows.Scan(&act.AccountID, &act.Code, &act.Name, &act.Type, &debit, &credit); err != nil {
			return nil, err
		}
		act.Debit = shared.Money(debit)
		act.Credit = shared.Money(credit)
		out = append(out, act)
	}
	return out, rows.Err()
}

func (r *repository) GetAccount(ctx context.Context, id int64) (accounts.Account, error) {
	var a accounts.Account
	err := r.db.QueryRow(ctx, `SELECT id, code, name, type, parent_id, is_active, created_at, updated_at
FROM accounts WHERE id=$1`, id).
		Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accounts.Account{}, shared.ErrNotFound
		}
		return accounts.Account{}, err
	}
	return a, nil
}

func (r *repository) OpeningNet(ctx context.Context, accountID int64, before time.Time) (shared.Money, shared.Money, error) {
	var debit, credit int64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(l.debit),0), COALESCE(SUM(l.credit),0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
WHERE l.account_id=$1 AND e.status IN ('POSTED','REVERSED') AND e.entry_date < $2`, accountID, before).
		Scan(&debit, &credit)
	if err != nil {
		return 0, 0, err
	}
	return shared.Money(debit), shared.Money(credit), nil
}

func (r *repository) AccountLines(ctx context.Context, accountID int64, start, end time.Time) ([]LedgerLine, error) {
	rows, err := r.db.Query(ctx, `SELECT l.id, e.id, e.entry_date, e.memo, l.description, l.debit, l.credit
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
WHERE l.account_id=$1 AND e.status IN ('POSTED','REVERSED') AND e.entry_date BETWEEN $2 AND $3
ORDER BY e.entry_date, e.id, l.id`, accountID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerLine
	for rows.Next() {
		var line LedgerLine
		var date time.Time
		var debit, credit int64
		if err := rows.Scan(&line.LineID, &line.EntryID, &date, &line.Memo, &line.Description, &debit, &credit); err != nil {
			return nil, err
		}
		line.EntryDate = date.Format("2006-01-02")
		line.Debit = shared.Money(debit)
		line.Credit = shared.Money(credit)
		out = append(out, line)
	}
	return out, rows.Err()
}
