package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-books/meridian/internal/ledger/accounts"
	"github.com/meridian-books/meridian/internal/ledger/shared"
	"github.com/meridian-books/meridian/internal/platform/db"
)

// AccountNet is the posted debit-minus-credit net of one account in a range.
type AccountNet struct {
	AccountID int64
	Code      string
	Type      accounts.AccountType
	Net       shared.Money
}

// ClosingLine is one leg of the year-end closing entry.
type ClosingLine struct {
	AccountID int64
	Debit     shared.Money
	Credit    shared.Money
}

// Repository encapsulates DB operations for accounting periods.
type Repository interface {
	Insert(ctx context.Context, p Period) (Period, error)
	Get(ctx context.Context, id int64) (Period, error)
	List(ctx context.Context) ([]Period, error)
	FindOpenByDate(ctx context.Context, date time.Time) (Period, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations needed inside the close transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Period, error)
	CountUnposted(ctx context.Context, start, end time.Time) (int64, error)
	TemporaryNets(ctx context.Context, start, end time.Time) ([]AccountNet, error)
	GetAccountByCode(ctx context.Context, code string) (accounts.Account, error)
	InsertClosingEntry(ctx context.Context, periodID int64, date time.Time, memo string, actorID int64, lines []ClosingLine) (int64, error)
	ApplyBalanceDeltas(ctx context.Context, deltas map[int64]shared.Money) error
	MarkClosed(ctx context.Context, id, actorID int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const periodColumns = `id, name, start_date, end_date, type, status, closed_at, closed_by, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Type, &p.Status, &p.ClosedAt, &p.ClosedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrNotFound
		}
		return Period{}, err
	}
	return p, nil
}

func (r *repository) Insert(ctx context.Context, p Period) (Period, error) {
	var conflict bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM periods WHERE start_date <= $2 AND end_date >= $1)`,
		p.StartDate, p.EndDate).Scan(&conflict)
	if err != nil {
		return Period{}, err
	}
	if conflict {
		return Period{}, shared.ErrOverlappingPeriod
	}
	row := r.db.QueryRow(ctx, `INSERT INTO periods (name, start_date, end_date, type, status)
VALUES ($1,$2,$3,$4,'OPEN') RETURNING `+periodColumns, p.Name, p.StartDate, p.EndDate, p.Type)
	period, err := scanPeriod(row)
	if err != nil {
		return Period{}, mapInsertError(err)
	}
	return period, nil
}

// mapInsertError translates the periods_no_overlap exclusion violation into
// the domain error. The constraint catches creates that race past the
// EXISTS pre-check in Insert.
func mapInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
		return shared.ErrOverlappingPeriod
	}
	return err
}

func (r *repository) Get(ctx context.Context, id int64) (Period, error) {
	return scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM periods WHERE id=$1`, id))
}

func (r *repository) List(ctx context.Context) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT `+periodColumns+` FROM periods ORDER BY start_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var periods []Period
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Type, &p.Status, &p.ClosedAt, &p.ClosedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// FindOpenByDate returns the open period covering the supplied date.
func (r *repository) FindOpenByDate(ctx context.Context, date time.Time) (Period, error) {
	p, err := scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+`
FROM periods WHERE status='OPEN' AND $1 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, date))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Period{}, shared.ErrNoOpenPeriod
		}
		return Period{}, err
	}
	return p, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (Period, error) {
	return scanPeriod(r.tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM periods WHERE id=$1 FOR UPDATE`, id))
}

func (r *txRepository) CountUnposted(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries
WHERE entry_date BETWEEN $1 AND $2 AND status IN ('DRAFT','PENDING_APPROVAL','APPROVED')`, start, end).Scan(&count)
	return count, err
}

func (r *txRepository) TemporaryNets(ctx context.Context, start, end time.Time) ([]AccountNet, error) {
	rows, err := r.tx.Query(ctx, `SELECT a.id, a.code, a.type, COALESCE(SUM(l.debit - l.credit),0)
FROM accounts a
JOIN journal_lines l ON l.account_id = a.id
JOIN journal_entries e ON e.id = l.entry_id
WHERE a.type IN ('REVENUE','EXPENSE') AND e.status IN ('POSTED','REVERSED') AND e.entry_date BETWEEN $1 AND $2
GROUP BY a.id, a.code, a.type
ORDER BY a.code`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var nets []AccountNet
	for rows.Next() {
		var n AccountNet
		var net int64
		if err := rows.Scan(&n.AccountID, &n.Code, &n.Type, &net); err != nil {
			return nil, err
		}
		n.Net = shared.Money(net)
		nets = append(nets, n)
	}
	return nets, rows.Err()
}

func (r *txRepository) GetAccountByCode(ctx context.Context, code string) (accounts.Account, error) {
	var a accounts.Account
	err := r.tx.QueryRow(ctx, `SELECT id, code, name, type, parent_id, is_active, created_at, updated_at
FROM accounts WHERE code=$1`, code).
		Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accounts.Account{}, shared.ErrNotFound
		}
		return accounts.Account{}, err
	}
	return a, nil
}

// InsertClosingEntry writes the year-end entry directly as POSTED. It runs
// inside the close transaction while the period row is locked, so no other
// posting can interleave.
func (r *txRepository) InsertClosingEntry(ctx context.Context, periodID int64, date time.Time, memo string, actorID int64, lines []ClosingLine) (int64, error) {
	var entryID int64
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (period_id, entry_date, memo, created_by, status, posted_at)
VALUES ($1,$2,$3,$4,'POSTED',NOW()) RETURNING id`, periodID, date, memo, nullInt(actorID)).Scan(&entryID)
	if err != nil {
		return 0, err
	}
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (entry_id, account_id, debit, credit, description)
VALUES ($1,$2,$3,$4,$5)`, entryID, line.AccountID, int64(line.Debit), int64(line.Credit), memo); err != nil {
			return 0, err
		}
	}
	return entryID, nil
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

func (r *txRepository) MarkClosed(ctx context.Context, id, actorID int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE periods SET status='CLOSED', closed_at=NOW(), closed_by=$2, updated_at=NOW()
WHERE id=$1 AND status='OPEN'`, id, nullInt(actorID))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrInvalidStateTransition
	}
	return nil
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}
