package journals

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-books/meridian/internal/ledger/accounts"
	"github.com/meridian-books/meridian/internal/ledger/periods"
	"github.com/meridian-books/meridian/internal/ledger/shared"
	"github.com/meridian-books/meridian/internal/platform/db"
)

// Repository encapsulates DB operations for journal entries.
type Repository interface {
	List(ctx context.Context, limit, offset int) ([]JournalEntry, error)
	Count(ctx context.Context) (int, error)
	Get(ctx context.Context, id int64) (JournalEntry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a posting transaction.
type TxRepository interface {
	InsertEntry(ctx context.Context, e JournalEntry) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []JournalLine) error
	GetEntryForUpdate(ctx context.Context, id int64) (JournalEntry, error)
	// UpdateStatus flips from->to atomically; a stale from-status yields
	// shared.ErrInvalidStateTransition so a post can never double-apply.
	UpdateStatus(ctx context.Context, id int64, from, to EntryStatus) error
	MarkReversed(ctx context.Context, originalID, reversalID int64) error
	// GetAccounts loads accounts without locking, for draft validation.
	GetAccounts(ctx context.Context, ids []int64) (map[int64]accounts.Account, error)
	// LockAccounts takes FOR UPDATE row locks in ascending id order so two
	// postings over overlapping account sets serialize without deadlock.
	LockAccounts(ctx context.Context, ids []int64) (map[int64]accounts.Account, error)
	ApplyBalanceDeltas(ctx context.Context, deltas map[int64]shared.Money) error
	GetPeriodForUpdate(ctx context.Context, periodID int64) (periods.Period, error)
	FindOpenPeriodAfter(ctx context.Context, date time.Time) (periods.Period, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, period_id, entry_date, memo, status, created_by, approved_by, posted_at, reversal_of, reversed_by, idempotency_key, created_at, updated_at`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.PeriodID, &e.EntryDate, &e.Memo, &e.Status, &e.CreatedBy, &e.ApprovedBy,
		&e.PostedAt, &e.ReversalOf, &e.ReversedBy, &e.IdempotencyKey, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrNotFound
		}
		return JournalEntry{}, err
	}
	return e, nil
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]JournalEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries ORDER BY id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.PeriodID, &e.EntryDate, &e.Memo, &e.Status, &e.CreatedBy, &e.ApprovedBy,
			&e.PostedAt, &e.ReversalOf, &e.ReversedBy, &e.IdempotencyKey, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries`).Scan(&total)
	return total, err
}

func (r *repository) Get(ctx context.Context, id int64) (JournalEntry, error) {
	entry, err := scanEntry(r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, id))
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines, err = loadLines(ctx, r.db, id)
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadLines(ctx context.Context, q queryer, entryID int64) ([]JournalLine, error) {
	rows, err := q.Query(ctx, `SELECT id, entry_id, account_id, debit, credit, description, reference
FROM journal_lines WHERE entry_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		var line JournalLine
		var debit, credit int64
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &debit, &credit, &line.Description, &line.Reference); err != nil {
			return nil, err
		}
		line.Debit = shared.Money(debit)
		line.Credit = shared.Money(credit)
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertEntry(ctx context.Context, e JournalEntry) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (period_id, entry_date, memo, status, created_by, posted_at, reversal_of, idempotency_key)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at, updated_at`,
		e.PeriodID, e.EntryDate, e.Memo, e.Status, nullInt(e.CreatedBy), e.PostedAt, e.ReversalOf, e.IdempotencyKey)
	if err := row.Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return JournalEntry{}, err
	}
	return e, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []JournalLine) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (entry_id, account_id, debit, credit, description, reference)
VALUES ($1,$2,$3,$4,$5,$6)`, entryID, line.AccountID, int64(line.Debit), int64(line.Credit), line.Description, line.Reference); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetEntryForUpdate(ctx context.Context, id int64) (JournalEntry, error) {
	entry, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines, err = loadLines(ctx, r.tx, id)
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) UpdateStatus(ctx context.Context, id int64, from, to EntryStatus) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries
SET status=$3, posted_at=CASE WHEN $3='POSTED' THEN NOW() ELSE posted_at END, updated_at=NOW()
WHERE id=$1 AND status=$2`, id, from, to)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrInvalidStateTransition
	}
	return nil
}

func (r *txRepository) MarkReversed(ctx context.Context, originalID, reversalID int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries
SET status='REVERSED', reversed_by=$2, updated_at=NOW()
WHERE id=$1 AND status='POSTED'`, originalID, reversalID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrInvalidStateTransition
	}
	return nil
}

const accountColumns = `id, code, name, type, parent_id, is_active, created_at, updated_at`

func (r *txRepository) GetAccounts(ctx context.Context, ids []int64) (map[int64]accounts.Account, error) {
	return r.fetchAccounts(ctx, ids, `SELECT `+accountColumns+` FROM accounts WHERE id = ANY($1)`)
}

func (r *txRepository) LockAccounts(ctx context.Context, ids []int64) (map[int64]accounts.Account, error) {
	return r.fetchAccounts(ctx, ids, `SELECT `+accountColumns+` FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`)
}

func (r *txRepository) fetchAccounts(ctx context.Context, ids []int64, query string) (map[int64]accounts.Account, error) {
	rows, err := r.tx.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]accounts.Account, len(ids))
	for rows.Next() {
		var a accounts.Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) != len(ids) {
		return nil, shared.ErrNotFound
	}
	return out, nil
}

func (r *txRepository) ApplyBalanceDeltas(ctx context.Context, deltas map[int64]shared.Money) error {
	for accountID, delta := range deltas {
		if _, err := r.tx.Exec(ctx, `INSERT INTO account_balances (account_id, balance, updated_at)
VALUES ($1,$2,NOW())
ON CONFLICT (account_id) DO UPDATE SET balance = account_balances.balance + EXCLUDED.balance, updated_at = NOW()`,
			accountID, int64(delta)); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetPeriodForUpdate(ctx context.Context, periodID int64) (periods.Period, error) {
	var p periods.Period
	err := r.tx.QueryRow(ctx, `SELECT id, name, start_date, end_date, type, status, closed_at, closed_by, created_at, updated_at
FROM periods WHERE id=$1 FOR UPDATE`, periodID).
		Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Type, &p.Status, &p.ClosedAt, &p.ClosedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return periods.Period{}, shared.ErrNotFound
		}
		return periods.Period{}, err
	}
	return p, nil
}

func (r *txRepository) FindOpenPeriodAfter(ctx context.Context, date time.Time) (periods.Period, error) {
	var p periods.Period
	err := r.tx.QueryRow(ctx, `SELECT id, name, start_date, end_date, type, status, closed_at, closed_by, created_at, updated_at
FROM periods WHERE status='OPEN' AND start_date >= $1 ORDER BY start_date ASC LIMIT 1`, date).
		Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Type, &p.Status, &p.ClosedAt, &p.ClosedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return periods.Period{}, shared.ErrNoOpenPeriod
		}
		return periods.Period{}, err
	}
	return p, nil
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}
