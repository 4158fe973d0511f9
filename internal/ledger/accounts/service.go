package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/meridian-books/meridian/internal/ledger/shared"
	internalShared "github.com/meridian-books/meridian/internal/shared"
)

// AuditPort records administrative changes to the chart of accounts.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

type Service struct {
	repo  Repository
	audit AuditPort
}

func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateInput groups fields for a new account.
type CreateInput struct {
	Code     string
	Name     string
	Type     AccountType
	ParentID *int64
	ActorID  int64
}

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return fmt.Errorf("%w: code required", shared.ErrValidation)
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name required", shared.ErrValidation)
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown account type %q", shared.ErrValidation, in.Type)
	}
	return nil
}

// Create registers a new account. The parent, when given, must carry the
// same top-level type so hierarchy rollups stay meaningful.
func (s *Service) Create(ctx context.Context, in CreateInput) (Account, error) {
	if err := in.validate(); err != nil {
		return Account{}, err
	}
	if in.ParentID != nil {
		parent, err := s.repo.Get(ctx, *in.ParentID)
		if err != nil {
			return Account{}, fmt.Errorf("load parent: %w", err)
		}
		if parent.Type != in.Type {
			return Account{}, shared.ErrInvalidParent
		}
	}
	account, err := s.repo.Insert(ctx, Account{
		Code:     strings.TrimSpace(in.Code),
		Name:     strings.TrimSpace(in.Name),
		Type:     in.Type,
		ParentID: in.ParentID,
	})
	if err != nil {
		return Account{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalShared.AuditLog{
			ActorID:  in.ActorID,
			Action:   "account.create",
			Entity:   "account",
			EntityID: fmt.Sprintf("%d", account.ID),
			Meta:     map[string]any{"code": account.Code, "type": string(account.Type)},
			At:       time.Now(),
		})
	}
	return account, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

// Deactivate disables an account for new lines. Accounts are never deleted;
// historical reports keep showing inactive accounts.
func (s *Service) Deactivate(ctx context.Context, id, actorID int64) error {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !account.IsActive {
		return nil
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalShared.AuditLog{
			ActorID:  actorID,
			Action:   "account.deactivate",
			Entity:   "account",
			EntityID: fmt.Sprintf("%d", id),
			At:       time.Now(),
		})
	}
	return nil
}

// Balance sums posted lines up to asOf, signed per the normal balance side.
func (s *Service) Balance(ctx context.Context, id int64, asOf time.Time) (shared.Money, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	debit, credit, err := s.repo.PostedTotals(ctx, id, asOf)
	if err != nil {
		return 0, err
	}
	if account.NormalSide() == NormalSideDebit {
		return debit - credit, nil
	}
	return credit - debit, nil
}
