package banking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/meridian-books/meridian/internal/ledger/accounts"
	"github.com/meridian-books/meridian/internal/ledger/shared"
)

// AccountResolver looks up general ledger accounts for linkage checks.
type AccountResolver interface {
	Get(ctx context.Context, id int64) (accounts.Account, error)
}

type Service struct {
	repo     Repository
	accounts AccountResolver
}

func NewService(repo Repository, resolver AccountResolver) *Service {
	return &Service{repo: repo, accounts: resolver}
}

// CreateAccountInput carries fields for registering a bank account. The raw
// account number is masked before storage.
type CreateAccountInput struct {
	Name          string
	BankName      string
	AccountNumber string
	Currency      string
	GLAccountID   int64
}

func (in CreateAccountInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name required", shared.ErrValidation)
	}
	if strings.TrimSpace(in.AccountNumber) == "" {
		return fmt.Errorf("%w: account number required", shared.ErrValidation)
	}
	if len(in.Currency) != 3 {
		return fmt.Errorf("%w: currency must be a 3-letter code", shared.ErrValidation)
	}
	if in.GLAccountID <= 0 {
		return fmt.Errorf("%w: gl account required", shared.ErrValidation)
	}
	return nil
}

// CreateAccount registers a bank account linked to an active asset GL
// account.
func (s *Service) CreateAccount(ctx context.Context, in CreateAccountInput) (BankAccount, error) {
	if err := in.validate(); err != nil {
		return BankAccount{}, err
	}
	gl, err := s.accounts.Get(ctx, in.GLAccountID)
	if err != nil {
		return BankAccount{}, err
	}
	if !gl.IsActive {
		return BankAccount{}, fmt.Errorf("%w: gl account %s", shared.ErrAccountInactive, gl.Code)
	}
	if gl.Type != accounts.AccountTypeAsset {
		return BankAccount{}, fmt.Errorf("%w: gl account %s is not an asset account", shared.ErrValidation, gl.Code)
	}
	return s.repo.InsertAccount(ctx, BankAccount{
		Name:         strings.TrimSpace(in.Name),
		BankName:     strings.TrimSpace(in.BankName),
		MaskedNumber: MaskNumber(in.AccountNumber),
		Currency:     strings.ToUpper(in.Currency),
		GLAccountID:  in.GLAccountID,
	})
}

func (s *Service) GetAccount(ctx context.Context, id int64) (BankAccount, error) {
	return s.repo.GetAccount(ctx, id)
}

func (s *Service) ListAccounts(ctx context.Context) ([]BankAccount, error) {
	return s.repo.ListAccounts(ctx)
}

// TransactionInput is one imported statement line.
type TransactionInput struct {
	Date        time.Time
	Description string
	Amount      shared.Money
	Direction   Direction
}

// ImportTransactions records statement lines against a bank account.
func (s *Service) ImportTransactions(ctx context.Context, bankAccountID int64, inputs []TransactionInput) ([]BankTransaction, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no transactions supplied", shared.ErrValidation)
	}
	if _, err := s.repo.GetAccount(ctx, bankAccountID); err != nil {
		return nil, err
	}
	txs := make([]BankTransaction, 0, len(inputs))
	for idx, in := range inputs {
		if in.Date.IsZero() {
			return nil, fmt.Errorf("%w: transaction %d missing date", shared.ErrValidation, idx)
		}
		if in.Amount <= 0 {
			return nil, fmt.Errorf("%w: transaction %d amount must be positive", shared.ErrValidation, idx)
		}
		if !in.Direction.Valid() {
			return nil, fmt.Errorf("%w: transaction %d unknown direction %q", shared.ErrValidation, idx, in.Direction)
		}
		txs = append(txs, BankTransaction{
			BankAccountID: bankAccountID,
			Date:          in.Date,
			Description:   in.Description,
			Amount:        in.Amount,
			Direction:     in.Direction,
		})
	}
	return s.repo.InsertTransactions(ctx, txs)
}

func (s *Service) ListTransactions(ctx context.Context, bankAccountID int64, onlyUnreconciled bool) ([]BankTransaction, error) {
	return s.repo.ListTransactions(ctx, bankAccountID, onlyUnreconciled)
}

// MaskNumber keeps only the last four digits of an account number.
func MaskNumber(number string) string {
	trimmed := strings.TrimSpace(number)
	if len(trimmed) <= 4 {
		return trimmed
	}
	return strings.Repeat("*", len(trimmed)-4) + trimmed[len(trimmed)-4:]
}
