package recon

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-books/meridian/internal/ledger/shared"
)

// Repository encapsulates DB operations for reconciliations. Book-side reads
// only consider posted entries.
type Repository interface {
	Insert(ctx context.Context, r Reconciliation) (Reconciliation, error)
	Get(ctx context.Context, id int64) (Reconciliation, error)
	List(ctx context.Context, bankAccountID int64) ([]Reconciliation, error)
	// BookBalance sums posted debit-minus-credit on the GL account up to the
	// date, matching how the bank account's asset balance reads.
	BookBalance(ctx context.Context, glAccountID int64, asOf time.Time) (shared.Money, error)
	UnmatchedLedgerLines(ctx context.Context, glAccountID int64, from, to time.Time) ([]MatchCandidate, error)
	OutstandingChecks(ctx context.Context, bankAccountID int64) ([]MatchCandidate, error)
	SetReconciled(ctx context.Context, bankAccountID int64, txID int64, reconciled bool, journalLineID *int64) error
	AddAdjustment(ctx context.Context, a Adjustment) (Adjustment, error)
	ListAdjustments(ctx context.Context, reconciliationID int64) ([]Adjustment, error)
	// UpdateStatus flips in_progress->to atomically; anything else yields
	// shared.ErrInvalidStateTransition.
	UpdateStatus(ctx context.Context, id int64, to Status) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const reconColumns = `id, bank_account_id, statement_date, statement_balance, book_balance, status, completed_at, created_at, updated_at`

func scanRecon(row pgx.Row) (Reconciliation, error) {
	var r Reconciliation
	var statement, book int64
	err := row.Scan(&r.ID, &r.BankAccountID, &r.StatementDate, &statement, &book, &r.Status, &r.CompletedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Reconciliation{}, shared.ErrNotFound
		}
		return Reconciliation{}, err
	}
	r.StatementBalance = shared.Money(statement)
	r.BookBalance = shared.Money(book)
	return r, nil
}

func (r *repository) Insert(ctx context.Context, rec Reconciliation) (Reconciliation, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO reconciliations (bank_account_id, statement_date, statement_balance, book_balance, status)
VALUES ($1,$2,$3,$4,'IN_PROGRESS') RETURNING `+reconColumns,
		rec.BankAccountID, rec.StatementDate, int64(rec.StatementBalance), int64(rec.BookBalance))
	return scanRecon(row)
}

func (r *repository) Get(ctx context.Context, id int64) (Reconciliation, error) {
	return scanRecon(r.db.QueryRow(ctx, `SELECT `+reconColumns+` FROM reconciliations WHERE id=$1`, id))
}

func (r *repository) List(ctx context.Context, bankAccountID int64) ([]Reconciliation, error) {
	rows, err := r.db.Query(ctx, `SELECT `+reconColumns+` FROM reconciliations WHERE bank_account_id=$1 ORDER BY statement_date DESC, id DESC`, bankAccountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Reconciliation
	for rows.Next() {
		var rec Reconciliation
		var statement, book int64
		if err := rows.Scan(&rec.ID, &rec.BankAccountID, &rec.StatementDate, &statement, &book, &rec.Status, &rec.CompletedAt, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.StatementBalance = shared.Money(statement)
		rec.BookBalance = shared.Money(book)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *repository) BookBalance(ctx context.Context, glAccountID int64, asOf time.Time) (shared.Money, error) {
	var net int64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(l.debit - l.credit),0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
WHERE l.account_id=$1 AND e.status IN ('POSTED','REVERSED') AND e.entry_date <= $2`, glAccountID, asOf).Scan(&net)
	if err != nil {
		return 0, err
	}
	return shared.Money(net), nil
}

func (r *repository) UnmatchedLedgerLines(ctx context.Context, glAccountID int64, from, to time.Time) ([]MatchCandidate, error) {
	rows, err := r.db.Query(ctx, `SELECT l.id, e.entry_date, ABS(l.debit - l.credit), l.description
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
WHERE l.account_id=$1 AND e.status IN ('POSTED','REVERSED')
  AND e.entry_date BETWEEN $2 AND $3
  AND NOT EXISTS (SELECT 1 FROM bank_transactions t WHERE t.matched_journal_line_id = l.id AND t.reconciled)
ORDER BY e.entry_date, l.id`, glAccountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MatchCandidate
	for rows.Next() {
		var cand MatchCandidate
		var amount int64
		if err := rows.Scan(&cand.ID, &cand.Date, &amount, &cand.Description); err != nil {
			return nil, err
		}
		cand.Type = CandidateLedgerLine
		cand.Amount = shared.Money(amount)
		lineID := cand.ID
		cand.JournalLineID = &lineID
		out = append(out, cand)
	}
	return out, rows.Err()
}

func (r *repository) OutstandingChecks(ctx context.Context, bankAccountID int64) ([]MatchCandidate, error) {
	rows, err := r.db.Query(ctx, `SELECT id, issued_date, amount, payee
FROM checks WHERE bank_account_id=$1 AND status='ISSUED' ORDER BY issued_date, id`, bankAccountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MatchCandidate
	for rows.Next() {
		var cand MatchCandidate
		var amount int64
		if err := rows.Scan(&cand.ID, &cand.Date, &amount, &cand.Description); err != nil {
			return nil, err
		}
		cand.Type = CandidateCheck
		cand.Amount = shared.Money(amount)
		out = append(out, cand)
	}
	return out, rows.Err()
}

func (r *repository) SetReconciled(ctx context.Context, bankAccountID, txID int64, reconciled bool, journalLineID *int64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE bank_transactions
SET reconciled=$3, matched_journal_line_id=$4
WHERE id=$2 AND bank_account_id=$1 AND reconciled <> $3`, bankAccountID, txID, reconciled, journalLineID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) AddAdjustment(ctx context.Context, a Adjustment) (Adjustment, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO reconciliation_adjustments (reconciliation_id, kind, description, amount)
VALUES ($1,$2,$3,$4) RETURNING id, created_at`, a.ReconciliationID, a.Kind, a.Description, int64(a.Amount))
	if err := row.Scan(&a.ID, &a.CreatedAt); err != nil {
		return Adjustment{}, err
	}
	return a, nil
}

func (r *repository) ListAdjustments(ctx context.Context, reconciliationID int64) ([]Adjustment, error) {
	rows, err := r.db.Query(ctx, `SELECT id, reconciliation_id, kind, description, amount, created_at
FROM reconciliation_adjustments WHERE reconciliation_id=$1 ORDER BY id`, reconciliationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Adjustment
	for rows.Next() {
		var a Adjustment
		var amount int64
		if err := rows.Scan(&a.ID, &a.ReconciliationID, &a.Kind, &a.Description, &amount, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Amount = shared.Money(amount)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, to Status) error {
	cmd, err := r.db.Exec(ctx, `UPDATE reconciliations
SET status=$2, completed_at=CASE WHEN $2='COMPLETED' THEN NOW() ELSE completed_at END, updated_at=NOW()
WHERE id=$1 AND status='IN_PROGRESS'`, id, to)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrInvalidStateTransition
	}
	return nil
}
