package recon

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-books/meridian/internal/banking"
	"github.com/meridian-books/meridian/internal/ledger/shared"
	internalShared "github.com/meridian-books/meridian/internal/shared"
)

// BankPort exposes the banking reads the engine needs.
type BankPort interface {
	GetAccount(ctx context.Context, id int64) (banking.BankAccount, error)
	ListTransactions(ctx context.Context, bankAccountID int64, onlyUnreconciled bool) ([]banking.BankTransaction, error)
}

// AuditPort records reconciliation lifecycle events.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Config carries matching knobs.
type Config struct {
	// MatchWindowDays bounds the date distance for auto-suggested matches.
	MatchWindowDays int
}

type Service struct {
	repo       Repository
	banks      BankPort
	audit      AuditPort
	windowDays int
	now        func() time.Time
}

func NewService(repo Repository, banks BankPort, audit AuditPort, cfg Config) *Service {
	window := cfg.MatchWindowDays
	if window <= 0 {
		window = 5
	}
	return &Service{repo: repo, banks: banks, audit: audit, windowDays: window, now: time.Now}
}

// Create opens a reconciliation, snapshotting the linked GL account's book
// balance as of the statement date.
func (s *Service) Create(ctx context.Context, bankAccountID int64, statementDate time.Time, statementBalance shared.Money) (Reconciliation, error) {
	if statementDate.IsZero() {
		return Reconciliation{}, fmt.Errorf("%w: statement date required", shared.ErrValidation)
	}
	account, err := s.banks.GetAccount(ctx, bankAccountID)
	if err != nil {
		return Reconciliation{}, err
	}
	book, err := s.repo.BookBalance(ctx, account.GLAccountID, statementDate)
	if err != nil {
		return Reconciliation{}, err
	}
	rec, err := s.repo.Insert(ctx, Reconciliation{
		BankAccountID:    bankAccountID,
		StatementDate:    statementDate,
		StatementBalance: statementBalance,
		BookBalance:      book,
	})
	if err != nil {
		return Reconciliation{}, err
	}
	s.record(ctx, 0, "recon.create", rec.ID, map[string]any{
		"bank_account_id":   bankAccountID,
		"statement_balance": statementBalance.String(),
		"book_balance":      book.String(),
	})
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Reconciliation, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, bankAccountID int64) ([]Reconciliation, error) {
	return s.repo.List(ctx, bankAccountID)
}

func (s *Service) Adjustments(ctx context.Context, id int64) ([]Adjustment, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListAdjustments(ctx, id)
}

// Suggest pairs unreconciled bank transactions against unmatched ledger
// lines and outstanding checks. Suggestions are advisory; the operator
// confirms them through Match.
func (s *Service) Suggest(ctx context.Context, id int64) ([]Suggestion, error) {
	rec, account, err := s.inProgress(ctx, id)
	if err != nil {
		return nil, err
	}
	txs, err := s.banks.ListTransactions(ctx, rec.BankAccountID, true)
	if err != nil {
		return nil, err
	}
	window := time.Duration(s.windowDays) * 24 * time.Hour
	from := rec.StatementDate.AddDate(0, -3, 0).Add(-window)
	lines, err := s.repo.UnmatchedLedgerLines(ctx, account.GLAccountID, from, rec.StatementDate.Add(window))
	if err != nil {
		return nil, err
	}
	checks, err := s.repo.OutstandingChecks(ctx, rec.BankAccountID)
	if err != nil {
		return nil, err
	}
	return SuggestMatches(txs, append(lines, checks...), s.windowDays), nil
}

// MatchPair confirms one bank transaction against an optional journal line.
type MatchPair struct {
	TransactionID int64
	JournalLineID *int64
}

// Match marks the listed bank transactions reconciled.
func (s *Service) Match(ctx context.Context, id int64, pairs []MatchPair) error {
	rec, _, err := s.inProgress(ctx, id)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return fmt.Errorf("%w: no transactions supplied", shared.ErrValidation)
	}
	for _, pair := range pairs {
		if err := s.repo.SetReconciled(ctx, rec.BankAccountID, pair.TransactionID, true, pair.JournalLineID); err != nil {
			return fmt.Errorf("transaction %d: %w", pair.TransactionID, err)
		}
	}
	s.record(ctx, 0, "recon.match", id, map[string]any{"count": len(pairs)})
	return nil
}

// Unmatch reverts reconciliation marks on the listed transactions. Only an
// in-progress reconciliation may be corrected.
func (s *Service) Unmatch(ctx context.Context, id int64, txIDs []int64) error {
	rec, _, err := s.inProgress(ctx, id)
	if err != nil {
		return err
	}
	if len(txIDs) == 0 {
		return fmt.Errorf("%w: no transactions supplied", shared.ErrValidation)
	}
	for _, txID := range txIDs {
		if err := s.repo.SetReconciled(ctx, rec.BankAccountID, txID, false, nil); err != nil {
			return fmt.Errorf("transaction %d: %w", txID, err)
		}
	}
	s.record(ctx, 0, "recon.unmatch", id, map[string]any{"count": len(txIDs)})
	return nil
}

// AddAdjustment records an outstanding item against the reconciliation.
func (s *Service) AddAdjustment(ctx context.Context, id int64, kind AdjustmentKind, description string, amount shared.Money) (Adjustment, error) {
	if _, _, err := s.inProgress(ctx, id); err != nil {
		return Adjustment{}, err
	}
	if !kind.Valid() {
		return Adjustment{}, fmt.Errorf("%w: unknown adjustment kind %q", shared.ErrValidation, kind)
	}
	if amount == 0 {
		return Adjustment{}, fmt.Errorf("%w: amount required", shared.ErrValidation)
	}
	if amount < 0 && kind != KindOther {
		return Adjustment{}, fmt.Errorf("%w: %s amount must be positive", shared.ErrValidation, kind)
	}
	return s.repo.AddAdjustment(ctx, Adjustment{
		ReconciliationID: id,
		Kind:             kind,
		Description:      description,
		Amount:           amount,
	})
}

// Complete proves the statement: book balance plus signed outstanding
// adjustments must equal the statement balance exactly. On mismatch the
// reconciliation stays in progress and the discrepancy is reported.
func (s *Service) Complete(ctx context.Context, id int64) (Reconciliation, error) {
	rec, _, err := s.inProgress(ctx, id)
	if err != nil {
		return Reconciliation{}, err
	}
	adjustments, err := s.repo.ListAdjustments(ctx, id)
	if err != nil {
		return Reconciliation{}, err
	}
	adjusted := rec.BookBalance
	for _, a := range adjustments {
		adjusted += a.SignedAmount()
	}
	if adjusted != rec.StatementBalance {
		discrepancy := rec.StatementBalance - adjusted
		return Reconciliation{}, fmt.Errorf("%w: discrepancy %s", shared.ErrReconciliationMismatch, discrepancy)
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusCompleted); err != nil {
		return Reconciliation{}, err
	}
	rec.Status = StatusCompleted
	now := s.now()
	rec.CompletedAt = &now
	s.record(ctx, 0, "recon.complete", id, map[string]any{
		"statement_balance": rec.StatementBalance.String(),
	})
	return rec, nil
}

// Abandon drops an in-progress reconciliation. Matched transactions keep
// their marks until explicitly un-matched.
func (s *Service) Abandon(ctx context.Context, id int64) (Reconciliation, error) {
	rec, _, err := s.inProgress(ctx, id)
	if err != nil {
		return Reconciliation{}, err
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusAbandoned); err != nil {
		return Reconciliation{}, err
	}
	rec.Status = StatusAbandoned
	s.record(ctx, 0, "recon.abandon", id, nil)
	return rec, nil
}

func (s *Service) inProgress(ctx context.Context, id int64) (Reconciliation, banking.BankAccount, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return Reconciliation{}, banking.BankAccount{}, err
	}
	if rec.Status != StatusInProgress {
		return Reconciliation{}, banking.BankAccount{}, shared.ErrInvalidStateTransition
	}
	account, err := s.banks.GetAccount(ctx, rec.BankAccountID)
	if err != nil {
		return Reconciliation{}, banking.BankAccount{}, err
	}
	return rec, account, nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, reconID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "reconciliation",
		EntityID: fmt.Sprintf("%d", reconID),
		Meta:     meta,
		At:       s.now(),
	})
}
