package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-books/meridian/internal/ledger/shared"
)

type fakeRepo struct {
	accounts map[int64]Account
	byCode   map[string]int64
	totals   map[int64][2]shared.Money
	nextID   int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		accounts: make(map[int64]Account),
		byCode:   make(map[string]int64),
		totals:   make(map[int64][2]shared.Money),
		nextID:   1,
	}
}

func (f *fakeRepo) Insert(_ context.Context, a Account) (Account, error) {
	if _, exists := f.byCode[a.Code]; exists {
		return Account{}, shared.ErrDuplicateCode
	}
	a.ID = f.nextID
	a.IsActive = true
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	f.nextID++
	f.accounts[a.ID] = a
	f.byCode[a.Code] = a.ID
	return a, nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return Account{}, shared.ErrNotFound
	}
	return a, nil
}

func (f *fakeRepo) GetByCode(_ context.Context, code string) (Account, error) {
	id, ok := f.byCode[code]
	if !ok {
		return Account{}, shared.ErrNotFound
	}
	return f.accounts[id], nil
}

func (f *fakeRepo) List(_ context.Context) ([]Account, error) {
	out := make([]Account, 0, len(f.accounts))
	for _, a := range f.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeRepo) SetActive(_ context.Context, id int64, active bool) error {
	a, ok := f.accounts[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.IsActive = active
	f.accounts[id] = a
	return nil
}

func (f *fakeRepo) PostedTotals(_ context.Context, id int64, _ time.Time) (shared.Money, shared.Money, error) {
	t := f.totals[id]
	return t[0], t[1], nil
}

func TestCreateAccount(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	cash, err := svc.Create(context.Background(), CreateInput{Code: "1000", Name: "Cash", Type: AccountTypeAsset})
	require.NoError(t, err)
	assert.Equal(t, NormalSideDebit, cash.NormalSide())
	assert.True(t, cash.IsActive)

	_, err = svc.Create(context.Background(), CreateInput{Code: "1000", Name: "Cash Again", Type: AccountTypeAsset})
	assert.ErrorIs(t, err, shared.ErrDuplicateCode)

	_, err = svc.Create(context.Background(), CreateInput{Code: "1001", Name: "Petty Cash", Type: AccountTypeExpense, ParentID: &cash.ID})
	assert.ErrorIs(t, err, shared.ErrInvalidParent)

	sub, err := svc.Create(context.Background(), CreateInput{Code: "1002", Name: "Petty Cash", Type: AccountTypeAsset, ParentID: &cash.ID})
	require.NoError(t, err)
	assert.Equal(t, cash.ID, *sub.ParentID)
}

func TestCreateAccountRejectsBadInput(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	_, err := svc.Create(context.Background(), CreateInput{Code: " ", Name: "x", Type: AccountTypeAsset})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), CreateInput{Code: "1", Name: "x", Type: AccountType("WEIRD")})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeactivate(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	acc, err := svc.Create(context.Background(), CreateInput{Code: "4000", Name: "Sales", Type: AccountTypeRevenue})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), acc.ID, 1))
	got, err := svc.Get(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	// repeat is a no-op
	require.NoError(t, svc.Deactivate(context.Background(), acc.ID, 1))

	assert.ErrorIs(t, svc.Deactivate(context.Background(), 999, 1), shared.ErrNotFound)
}

func TestBalanceSignsByNormalSide(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	cash, err := svc.Create(context.Background(), CreateInput{Code: "1000", Name: "Cash", Type: AccountTypeAsset})
	require.NoError(t, err)
	sales, err := svc.Create(context.Background(), CreateInput{Code: "4000", Name: "Sales", Type: AccountTypeRevenue})
	require.NoError(t, err)

	repo.totals[cash.ID] = [2]shared.Money{80000, 30000}
	repo.totals[sales.ID] = [2]shared.Money{0, 50000}

	cashBal, err := svc.Balance(context.Background(), cash.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, shared.Money(50000), cashBal)

	salesBal, err := svc.Balance(context.Background(), sales.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, shared.Money(50000), salesBal)
}
