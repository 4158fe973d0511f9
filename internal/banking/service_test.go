package banking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-books/meridian/internal/ledger/accounts"
	"github.com/meridian-books/meridian/internal/ledger/shared"
)

type fakeRepo struct {
	nextID   int64
	accounts map[int64]BankAccount
	txs      []BankTransaction
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{nextID: 1, accounts: make(map[int64]BankAccount)}
}

func (r *fakeRepo) InsertAccount(ctx context.Context, a BankAccount) (BankAccount, error) {
	a.ID = r.nextID
	r.nextID++
	r.accounts[a.ID] = a
	return a, nil
}

func (r *fakeRepo) GetAccount(ctx context.Context, id int64) (BankAccount, error) {
	a, ok := r.accounts[id]
	if !ok {
		return BankAccount{}, shared.ErrNotFound
	}
	return a, nil
}

func (r *fakeRepo) ListAccounts(ctx context.Context) ([]BankAccount, error) {
	out := make([]BankAccount, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (r *fakeRepo) InsertTransactions(ctx context.Context, txs []BankTransaction) ([]BankTransaction, error) {
	out := make([]BankTransaction, 0, len(txs))
	for _, t := range txs {
		t.ID = r.nextID
		r.nextID++
		r.txs = append(r.txs, t)
		out = append(out, t)
	}
	return out, nil
}

func (r *fakeRepo) ListTransactions(ctx context.Context, bankAccountID int64, onlyUnreconciled bool) ([]BankTransaction, error) {
	var out []BankTransaction
	for _, t := range r.txs {
		if t.BankAccountID != bankAccountID {
			continue
		}
		if onlyUnreconciled && t.Reconciled {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

type fakeResolver struct {
	accounts map[int64]accounts.Account
}

func (f *fakeResolver) Get(ctx context.Context, id int64) (accounts.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return accounts.Account{}, shared.ErrNotFound
	}
	return a, nil
}

func newTestService() (*Service, *fakeRepo) {
	repo := newFakeRepo()
	resolver := &fakeResolver{accounts: map[int64]accounts.Account{
		10: {ID: 10, Code: "1010", Name: "Operating Bank", Type: accounts.AccountTypeAsset, IsActive: true},
		11: {ID: 11, Code: "1011", Name: "Dormant Bank", Type: accounts.AccountTypeAsset, IsActive: false},
		40: {ID: 40, Code: "4000", Name: "Sales", Type: accounts.AccountTypeRevenue, IsActive: true},
	}}
	return NewService(repo, resolver), repo
}

func validInput() CreateAccountInput {
	return CreateAccountInput{
		Name:          "Operating",
		BankName:      "First National",
		AccountNumber: "1234567890",
		Currency:      "usd",
		GLAccountID:   10,
	}
}

func TestCreateAccountMasksNumber(t *testing.T) {
	svc, _ := newTestService()

	account, err := svc.CreateAccount(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "******7890", account.MaskedNumber)
	assert.Equal(t, "USD", account.Currency)
}

func TestCreateAccountRequiresActiveAssetGL(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	in := validInput()
	in.GLAccountID = 11
	_, err := svc.CreateAccount(ctx, in)
	assert.ErrorIs(t, err, shared.ErrAccountInactive)

	in.GLAccountID = 40
	_, err = svc.CreateAccount(ctx, in)
	assert.ErrorIs(t, err, shared.ErrValidation)

	in.GLAccountID = 99
	_, err = svc.CreateAccount(ctx, in)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestImportTransactionsValidates(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.ImportTransactions(ctx, account.ID, nil)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.ImportTransactions(ctx, account.ID, []TransactionInput{
		{Date: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), Amount: -100, Direction: DirectionCredit},
	})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.ImportTransactions(ctx, 999, []TransactionInput{
		{Date: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), Amount: 100, Direction: DirectionCredit},
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestImportAndListUnreconciled(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, validInput())
	require.NoError(t, err)

	txs, err := svc.ImportTransactions(ctx, account.ID, []TransactionInput{
		{Date: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), Description: "deposit", Amount: 50000, Direction: DirectionCredit},
		{Date: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), Description: "check 101", Amount: 5000, Direction: DirectionDebit},
	})
	require.NoError(t, err)
	require.Len(t, txs, 2)

	repo.txs[0].Reconciled = true

	unreconciled, err := svc.ListTransactions(ctx, account.ID, true)
	require.NoError(t, err)
	require.Len(t, unreconciled, 1)
	assert.Equal(t, "check 101", unreconciled[0].Description)
}

func TestMaskNumberShortInput(t *testing.T) {
	assert.Equal(t, "123", MaskNumber("123"))
	assert.Equal(t, "****5678", MaskNumber("12345678"))
}
