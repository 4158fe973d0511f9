package checks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/meridian-books/meridian/internal/ledger/shared"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// IssueInput carries fields for writing a new check.
type IssueInput struct {
	BankAccountID  int64
	CheckNumber    string
	Payee          string
	Amount         shared.Money
	IssuedDate     time.Time
	JournalEntryID *int64
}

func (in IssueInput) validate() error {
	if in.BankAccountID <= 0 {
		return fmt.Errorf("%w: bank account required", shared.ErrValidation)
	}
	if strings.TrimSpace(in.CheckNumber) == "" {
		return fmt.Errorf("%w: check number required", shared.ErrValidation)
	}
	if strings.TrimSpace(in.Payee) == "" {
		return fmt.Errorf("%w: payee required", shared.ErrValidation)
	}
	if in.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", shared.ErrValidation)
	}
	return nil
}

// Issue records a new check in ISSUED status.
func (s *Service) Issue(ctx context.Context, in IssueInput) (Check, error) {
	if err := in.validate(); err != nil {
		return Check{}, err
	}
	issued := in.IssuedDate
	if issued.IsZero() {
		issued = s.now()
	}
	return s.repo.Insert(ctx, Check{
		BankAccountID:  in.BankAccountID,
		CheckNumber:    strings.TrimSpace(in.CheckNumber),
		Payee:          strings.TrimSpace(in.Payee),
		Amount:         in.Amount,
		IssuedDate:     issued,
		JournalEntryID: in.JournalEntryID,
	})
}

func (s *Service) Get(ctx context.Context, id int64) (Check, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByBankAccount(ctx context.Context, bankAccountID int64) ([]Check, error) {
	return s.repo.ListByBankAccount(ctx, bankAccountID)
}

// Transition moves an issued check to a terminal state. Cleared, voided, and
// stopped checks cannot change again.
func (s *Service) Transition(ctx context.Context, id int64, to CheckStatus) (Check, error) {
	if !to.Valid() || to == StatusIssued {
		return Check{}, fmt.Errorf("%w: cannot transition to %q", shared.ErrValidation, to)
	}
	return s.repo.UpdateStatus(ctx, id, to)
}
