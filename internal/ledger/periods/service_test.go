package periods

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
	nextID         int64
	periods        map[int64]*Period
	unposted       int64
	nets           []AccountNet
	accountsByCode map[string]accounts.Account
	closingLines   []ClosingLine
	balances       map[int64]shared.Money
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		nextID:         1,
		periods:        make(map[int64]*Period),
		accountsByCode: make(map[string]accounts.Account),
		balances:       make(map[int64]shared.Money),
	}
}

func (r *fakeRepo) Insert(ctx context.Context, p Period) (Period, error) {
	for _, existing := range r.periods {
		if !p.StartDate.After(existing.EndDate) && !p.EndDate.Before(existing.StartDate) {
			return Period{}, shared.ErrOverlappingPeriod
		}
	}
	p.ID = r.nextID
	r.nextID++
	p.Status = PeriodStatusOpen
	stored := p
	r.periods[p.ID] = &stored
	return p, nil
}

func (r *fakeRepo) Get(ctx context.Context, id int64) (Period, error) {
	p, ok := r.periods[id]
	if !ok {
		return Period{}, shared.ErrNotFound
	}
	return *p, nil
}

func (r *fakeRepo) List(ctx context.Context) ([]Period, error) {
	out := make([]Period, 0, len(r.periods))
	for _, p := range r.periods {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeRepo) FindOpenByDate(ctx context.Context, date time.Time) (Period, error) {
	for _, p := range r.periods {
		if p.Status == PeriodStatusOpen && p.Contains(date) {
			return *p, nil
		}
	}
	return Period{}, shared.ErrNoOpenPeriod
}

func (r *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &fakeTx{repo: r})
}

type fakeTx struct {
	repo *fakeRepo
}

func (t *fakeTx) GetForUpdate(ctx context.Context, id int64) (Period, error) {
	return t.repo.Get(ctx, id)
}

func (t *fakeTx) CountUnposted(ctx context.Context, start, end time.Time) (int64, error) {
	return t.repo.unposted, nil
}

func (t *fakeTx) TemporaryNets(ctx context.Context, start, end time.Time) ([]AccountNet, error) {
	return t.repo.nets, nil
}

func (t *fakeTx) GetAccountByCode(ctx context.Context, code string) (accounts.Account, error) {
	a, ok := t.repo.accountsByCode[code]
	if !ok {
		return accounts.Account{}, shared.ErrNotFound
	}
	return a, nil
}

func (t *fakeTx) InsertClosingEntry(ctx context.Context, periodID int64, date time.Time, memo string, actorID int64, lines []ClosingLine) (int64, error) {
	t.repo.closingLines = append([]ClosingLine(nil), lines...)
	return 999, nil
}

func (t *fakeTx) ApplyBalanceDeltas(ctx context.Context, deltas map[int64]shared.Money) error {
	for id, delta := range deltas {
		t.repo.balances[id] += delta
	}
	return nil
}

func (t *fakeTx) MarkClosed(ctx context.Context, id, actorID int64) error {
	p, ok := t.repo.periods[id]
	if !ok || p.Status != PeriodStatusOpen {
		return shared.ErrInvalidStateTransition
	}
	p.Status = PeriodStatusClosed
	return nil
}

func monthly(repo *fakeRepo, t *testing.T) Period {
	t.Helper()
	p, err := repo.Insert(context.Background(), Period{
		Name:      "2025-01",
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		Type:      PeriodTypeMonthly,
	})
	require.NoError(t, err)
	return p
}

func TestCreateRejectsOverlap(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil, Config{})
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{
		Name:      "2025-01",
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		Type:      PeriodTypeMonthly,
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{
		Name:      "overlap",
		StartDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC),
		Type:      PeriodTypeMonthly,
	})
	assert.ErrorIs(t, err, shared.ErrOverlappingPeriod)
}

func TestCreateValidatesInput(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil, Config{})
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{
		Name:      "backwards",
		StartDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Type:      PeriodTypeMonthly,
	})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, CreateInput{
		Name:      "bad type",
		StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		Type:      PeriodType("WEEKLY"),
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCloseBlockedByUnpostedEntries(t *testing.T) {
	repo := newFakeRepo()
	repo.unposted = 3
	p := monthly(repo, t)
	svc := NewService(repo, nil, nil, Config{})

	_, err := svc.Close(context.Background(), p.ID, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrPeriodNotClosable)
	assert.Contains(t, err.Error(), "3 entries pending")
}

func TestCloseMonthlyPeriod(t *testing.T) {
	repo := newFakeRepo()
	p := monthly(repo, t)
	svc := NewService(repo, nil, nil, Config{})

	closed, err := svc.Close(context.Background(), p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusClosed, closed.Status)
	assert.Nil(t, repo.closingLines, "monthly close books no closing entry")
}

func TestCloseAlreadyClosedRejected(t *testing.T) {
	repo := newFakeRepo()
	p := monthly(repo, t)
	svc := NewService(repo, nil, nil, Config{})
	ctx := context.Background()

	_, err := svc.Close(ctx, p.ID, 1)
	require.NoError(t, err)

	_, err = svc.Close(ctx, p.ID, 1)
	assert.ErrorIs(t, err, shared.ErrInvalidStateTransition)
}

func TestCloseYearlyBooksClosingEntry(t *testing.T) {
	repo := newFakeRepo()
	year, err := repo.Insert(context.Background(), Period{
		Name:      "FY2025",
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		Type:      PeriodTypeYearly,
	})
	require.NoError(t, err)
	// Revenue carries a credit net (-120000), expense a debit net (+45000):
	// net income is 75000.
	repo.nets = []AccountNet{
		{AccountID: 40, Code: "4000", Type: accounts.AccountTypeRevenue, Net: -120000},
		{AccountID: 50, Code: "5000", Type: accounts.AccountTypeExpense, Net: 45000},
	}
	repo.accountsByCode["3900"] = accounts.Account{ID: 39, Code: "3900", Type: accounts.AccountTypeEquity, IsActive: true}
	svc := NewService(repo, nil, nil, Config{})

	closed, err := svc.Close(context.Background(), year.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusClosed, closed.Status)

	require.Len(t, repo.closingLines, 3)
	assert.Equal(t, ClosingLine{AccountID: 40, Debit: 120000}, repo.closingLines[0])
	assert.Equal(t, ClosingLine{AccountID: 50, Credit: 45000}, repo.closingLines[1])
	assert.Equal(t, ClosingLine{AccountID: 39, Credit: 75000}, repo.closingLines[2])

	// Temporary accounts end at zero, equity absorbs the profit.
	assert.Equal(t, shared.Money(120000), repo.balances[40])
	assert.Equal(t, shared.Money(-45000), repo.balances[50])
	assert.Equal(t, shared.Money(-75000), repo.balances[39])
}

func TestCloseYearlyRequiresEquityRetainedEarnings(t *testing.T) {
	repo := newFakeRepo()
	year, err := repo.Insert(context.Background(), Period{
		Name:      "FY2025",
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		Type:      PeriodTypeYearly,
	})
	require.NoError(t, err)
	repo.nets = []AccountNet{{AccountID: 40, Code: "4000", Type: accounts.AccountTypeRevenue, Net: -100}}
	repo.accountsByCode["3900"] = accounts.Account{ID: 39, Code: "3900", Type: accounts.AccountTypeRevenue}
	svc := NewService(repo, nil, nil, Config{})

	_, err = svc.Close(context.Background(), year.ID, 1)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestBuildClosingLinesZeroActivity(t *testing.T) {
	assert.Nil(t, BuildClosingLines(nil, 39))
	assert.Nil(t, BuildClosingLines([]AccountNet{{AccountID: 40, Net: 0}}, 39))
}

func TestBuildClosingLinesNetLoss(t *testing.T) {
	lines := BuildClosingLines([]AccountNet{
		{AccountID: 40, Net: -30000},
		{AccountID: 50, Net: 50000},
	}, 39)
	require.Len(t, lines, 3)
	assert.Equal(t, ClosingLine{AccountID: 39, Debit: 20000}, lines[2])

	var debit, credit shared.Money
	for _, line := range lines {
		debit += line.Debit
		credit += line.Credit
	}
	assert.Equal(t, debit, credit, "closing entry balances")
}

type fakeLocker struct {
	held map[int64]bool
}

func (l *fakeLocker) Acquire(ctx context.Context, periodID int64) (func(), error) {
	if l.held[periodID] {
		return nil, shared.ErrInvalidStateTransition
	}
	l.held[periodID] = true
	return func() { delete(l.held, periodID) }, nil
}

func TestCloseReleasesLock(t *testing.T) {
	repo := newFakeRepo()
	p := monthly(repo, t)
	locker := &fakeLocker{held: map[int64]bool{}}
	svc := NewService(repo, nil, locker, Config{})

	_, err := svc.Close(context.Background(), p.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, locker.held)
}
