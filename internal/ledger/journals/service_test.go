package journals

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-books/meridian/internal/ledger/accounts"
	"github.com/meridian-books/meridian/internal/ledger/periods"
	"github.com/meridian-books/meridian/internal/ledger/shared"
	_ "github.com/meridian-books/meridian/internal/testing/guard"
)

type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	entries  map[int64]*JournalEntry
	accounts map[int64]accounts.Account
	periods  map[int64]periods.Period
	balances map[int64]shared.Money
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:   1,
		entries:  make(map[int64]*JournalEntry),
		accounts: make(map[int64]accounts.Account),
		periods:  make(map[int64]periods.Period),
		balances: make(map[int64]shared.Money),
	}
}

func (s *fakeStore) List(ctx context.Context, limit, offset int) ([]JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	out := make([]JournalEntry, 0, limit)
	for i, id := range ids {
		if i < offset {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, *s.entries[id])
	}
	return out, nil
}

func (s *fakeStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

func (s *fakeStore) Get(ctx context.Context, id int64) (JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return JournalEntry{}, shared.ErrNotFound
	}
	return *e, nil
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx, &fakeTx{store: s})
}

func (s *fakeStore) FindOpenByDate(ctx context.Context, date time.Time) (periods.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.periods {
		if p.Status == periods.PeriodStatusOpen && p.Contains(date) {
			return p, nil
		}
	}
	return periods.Period{}, shared.ErrNoOpenPeriod
}

type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) InsertEntry(ctx context.Context, e JournalEntry) (JournalEntry, error) {
	e.ID = t.store.nextID
	t.store.nextID++
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	stored := e
	t.store.entries[e.ID] = &stored
	return e, nil
}

func (t *fakeTx) InsertLines(ctx context.Context, entryID int64, lines []JournalLine) error {
	e := t.store.entries[entryID]
	e.Lines = append([]JournalLine(nil), lines...)
	return nil
}

func (t *fakeTx) GetEntryForUpdate(ctx context.Context, id int64) (JournalEntry, error) {
	e, ok := t.store.entries[id]
	if !ok {
		return JournalEntry{}, shared.ErrNotFound
	}
	return *e, nil
}

func (t *fakeTx) UpdateStatus(ctx context.Context, id int64, from, to EntryStatus) error {
	e, ok := t.store.entries[id]
	if !ok || e.Status != from {
		return shared.ErrInvalidStateTransition
	}
	e.Status = to
	if to == StatusPosted {
		now := time.Now()
		e.PostedAt = &now
	}
	return nil
}

func (t *fakeTx) MarkReversed(ctx context.Context, originalID, reversalID int64) error {
	e, ok := t.store.entries[originalID]
	if !ok || e.Status != StatusPosted {
		return shared.ErrInvalidStateTransition
	}
	e.Status = StatusReversed
	e.ReversedBy = &reversalID
	return nil
}

func (t *fakeTx) GetAccounts(ctx context.Context, ids []int64) (map[int64]accounts.Account, error) {
	out := make(map[int64]accounts.Account, len(ids))
	for _, id := range ids {
		a, ok := t.store.accounts[id]
		if !ok {
			return nil, shared.ErrNotFound
		}
		out[id] = a
	}
	return out, nil
}

func (t *fakeTx) LockAccounts(ctx context.Context, ids []int64) (map[int64]accounts.Account, error) {
	return t.GetAccounts(ctx, ids)
}

func (t *fakeTx) ApplyBalanceDeltas(ctx context.Context, deltas map[int64]shared.Money) error {
	for id, delta := range deltas {
		t.store.balances[id] += delta
	}
	return nil
}

func (t *fakeTx) GetPeriodForUpdate(ctx context.Context, periodID int64) (periods.Period, error) {
	p, ok := t.store.periods[periodID]
	if !ok {
		return periods.Period{}, shared.ErrNotFound
	}
	return p, nil
}

func (t *fakeTx) FindOpenPeriodAfter(ctx context.Context, date time.Time) (periods.Period, error) {
	var best *periods.Period
	for id := range t.store.periods {
		p := t.store.periods[id]
		if p.Status != periods.PeriodStatusOpen || p.StartDate.Before(date) {
			continue
		}
		if best == nil || p.StartDate.Before(best.StartDate) {
			best = &p
		}
	}
	if best == nil {
		return periods.Period{}, shared.ErrNoOpenPeriod
	}
	return *best, nil
}

func seedStore() *fakeStore {
	store := newFakeStore()
	store.periods[1] = periods.Period{
		ID:        1,
		Name:      "2025-01",
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		Type:      periods.PeriodTypeMonthly,
		Status:    periods.PeriodStatusOpen,
	}
	store.accounts[10] = accounts.Account{ID: 10, Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset, IsActive: true}
	store.accounts[40] = accounts.Account{ID: 40, Code: "4000", Name: "Revenue", Type: accounts.AccountTypeRevenue, IsActive: true}
	store.accounts[50] = accounts.Account{ID: 50, Code: "5000", Name: "Rent Expense", Type: accounts.AccountTypeExpense, IsActive: true}
	return store
}

func newTestService(store *fakeStore, policy ApprovalPolicy) *Service {
	svc := NewService(store, store, nil, nil, policy)
	svc.WithNow(func() time.Time { return time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC) })
	return svc
}

func jan(day int) time.Time {
	return time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC)
}

func salesInput(amount shared.Money) CreateInput {
	return CreateInput{
		EntryDate: jan(15),
		Memo:      "Cash sale",
		ActorID:   7,
		Lines: []LineInput{
			{AccountID: 10, Debit: amount, Description: "cash in"},
			{AccountID: 40, Credit: amount, Description: "sale"},
		},
	}
}

func TestCreateAndPostBalancedEntry(t *testing.T) {
	store := seedStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	entry, err := svc.Create(ctx, salesInput(50000))
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, entry.Status)
	assert.Equal(t, int64(1), entry.PeriodID)

	posted, err := svc.Post(ctx, entry.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, posted.Status)
	assert.Equal(t, shared.Money(50000), store.balances[10])
	assert.Equal(t, shared.Money(-50000), store.balances[40])
}

func TestCreateUnbalancedEntryRejected(t *testing.T) {
	svc := newTestService(seedStore(), nil)

	in := CreateInput{
		EntryDate: jan(15),
		ActorID:   7,
		Lines: []LineInput{
			{AccountID: 10, Debit: 50000},
			{AccountID: 40, Credit: 49999},
		},
	}
	_, err := svc.Create(context.Background(), in)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrUnbalancedEntry)
	assert.Contains(t, err.Error(), "500.00")
	assert.Contains(t, err.Error(), "499.99")
}

func TestCreateRequiresTwoLines(t *testing.T) {
	svc := newTestService(seedStore(), nil)

	in := CreateInput{
		EntryDate: jan(15),
		ActorID:   7,
		Lines:     []LineInput{{AccountID: 10, Debit: 100}},
	}
	_, err := svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, shared.ErrTooFewLines)
}

func TestCreateRejectsInactiveAccount(t *testing.T) {
	store := seedStore()
	acct := store.accounts[40]
	acct.IsActive = false
	store.accounts[40] = acct
	svc := newTestService(store, nil)

	_, err := svc.Create(context.Background(), salesInput(1000))
	assert.ErrorIs(t, err, shared.ErrAccountInactive)
}

func TestCreateOutsideOpenPeriod(t *testing.T) {
	store := seedStore()
	svc := newTestService(store, nil)

	in := salesInput(1000)
	in.EntryDate = time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, shared.ErrNoOpenPeriod)
}

func TestPostTwiceRejected(t *testing.T) {
	store := seedStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	entry, err := svc.Create(ctx, salesInput(50000))
	require.NoError(t, err)
	_, err = svc.Post(ctx, entry.ID, 7)
	require.NoError(t, err)

	_, err = svc.Post(ctx, entry.ID, 7)
	assert.ErrorIs(t, err, shared.ErrInvalidStateTransition)
	assert.Equal(t, shared.Money(50000), store.balances[10], "balance applied once")
}

func TestPostIntoClosedPeriodRejected(t *testing.T) {
	store := seedStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	entry, err := svc.Create(ctx, salesInput(50000))
	require.NoError(t, err)

	p := store.periods[1]
	p.Status = periods.PeriodStatusClosed
	store.periods[1] = p

	_, err = svc.Post(ctx, entry.ID, 7)
	assert.ErrorIs(t, err, shared.ErrPeriodClosed)
}

func TestApprovalFlow(t *testing.T) {
	store := seedStore()
	policy := ThresholdPolicy{Threshold: 10000, ApproverRoles: []string{"controller"}}
	svc := newTestService(store, policy)
	ctx := context.Background()

	entry, err := svc.Create(ctx, salesInput(50000))
	require.NoError(t, err)

	// Above threshold, direct post is blocked.
	_, err = svc.Post(ctx, entry.ID, 7)
	assert.ErrorIs(t, err, shared.ErrApprovalRequired)

	submitted, err := svc.Submit(ctx, entry.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingApproval, submitted.Status)

	_, err = svc.Approve(ctx, entry.ID, "clerk", 8)
	assert.ErrorIs(t, err, shared.ErrApprovalForbidden)

	approved, err := svc.Approve(ctx, entry.ID, "controller", 8)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)

	posted, err := svc.Post(ctx, entry.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, posted.Status)
}

func TestApproveRequiresPendingStatus(t *testing.T) {
	store := seedStore()
	policy := ThresholdPolicy{Threshold: 10000, ApproverRoles: []string{"controller"}}
	svc := newTestService(store, policy)
	ctx := context.Background()

	entry, err := svc.Create(ctx, salesInput(50000))
	require.NoError(t, err)

	_, err = svc.Approve(ctx, entry.ID, "controller", 8)
	assert.ErrorIs(t, err, shared.ErrNotApprovable)
}

func TestPostBelowThresholdSkipsApproval(t *testing.T) {
	store := seedStore()
	policy := ThresholdPolicy{Threshold: 10000, ApproverRoles: []string{"controller"}}
	svc := newTestService(store, policy)
	ctx := context.Background()

	entry, err := svc.Create(ctx, salesInput(5000))
	require.NoError(t, err)
	posted, err := svc.Post(ctx, entry.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, posted.Status)
}

func TestReverseNetsBalancesToZero(t *testing.T) {
	store := seedStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	entry, err := svc.Create(ctx, salesInput(50000))
	require.NoError(t, err)
	_, err = svc.Post(ctx, entry.ID, 7)
	require.NoError(t, err)

	reversal, err := svc.Reverse(ctx, ReverseInput{EntryID: entry.ID, ActorID: 7, Reason: "duplicate billing"})
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, reversal.Status)
	require.NotNil(t, reversal.ReversalOf)
	assert.Equal(t, entry.ID, *reversal.ReversalOf)
	assert.Equal(t, entry.EntryDate, reversal.EntryDate)
	assert.Contains(t, reversal.Memo, "duplicate billing")

	original, err := svc.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReversed, original.Status)
	require.NotNil(t, original.ReversedBy)
	assert.Equal(t, reversal.ID, *original.ReversedBy)

	assert.Equal(t, shared.Money(0), store.balances[10])
	assert.Equal(t, shared.Money(0), store.balances[40])
}

func TestReverseClosedPeriodLandsInNextOpen(t *testing.T) {
	store := seedStore()
	store.periods[2] = periods.Period{
		ID:        2,
		Name:      "2025-02",
		StartDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		Type:      periods.PeriodTypeMonthly,
		Status:    periods.PeriodStatusOpen,
	}
	svc := newTestService(store, nil)
	ctx := context.Background()

	entry, err := svc.Create(ctx, salesInput(50000))
	require.NoError(t, err)
	_, err = svc.Post(ctx, entry.ID, 7)
	require.NoError(t, err)

	p := store.periods[1]
	p.Status = periods.PeriodStatusClosed
	store.periods[1] = p

	reversal, err := svc.Reverse(ctx, ReverseInput{EntryID: entry.ID, ActorID: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(2), reversal.PeriodID)
	assert.Equal(t, store.periods[2].StartDate, reversal.EntryDate)
}

func TestReverseDraftRejected(t *testing.T) {
	store := seedStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	entry, err := svc.Create(ctx, salesInput(50000))
	require.NoError(t, err)

	_, err = svc.Reverse(ctx, ReverseInput{EntryID: entry.ID, ActorID: 7})
	assert.ErrorIs(t, err, shared.ErrInvalidStateTransition)
}

func TestBulkPostPartialFailure(t *testing.T) {
	store := seedStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, salesInput(10000))
	require.NoError(t, err)
	second, err := svc.Create(ctx, salesInput(20000))
	require.NoError(t, err)
	third, err := svc.Create(ctx, salesInput(30000))
	require.NoError(t, err)

	// Third already posted, so the bulk attempt on it fails.
	_, err = svc.Post(ctx, third.ID, 7)
	require.NoError(t, err)

	result := svc.BulkPost(ctx, []int64{first.ID, second.ID, third.ID}, 7)
	assert.Equal(t, 2, result.Posted)
	assert.Equal(t, 1, result.Errors)
	require.Len(t, result.Results, 3)
	assert.True(t, result.Results[0].Posted)
	assert.True(t, result.Results[1].Posted)
	assert.False(t, result.Results[2].Posted)
	assert.NotEmpty(t, result.Results[2].Error)

	assert.Equal(t, shared.Money(60000), store.balances[10])
}

type fakeIdempotency struct {
	seen map[string]bool
}

func (f *fakeIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if f.seen[key] {
		return shared.ErrIdempotencyConflict
	}
	f.seen[key] = true
	return nil
}

func TestCreateIdempotencyConflict(t *testing.T) {
	store := seedStore()
	svc := NewService(store, store, nil, &fakeIdempotency{seen: map[string]bool{}}, nil)
	ctx := context.Background()

	in := salesInput(1000)
	key := uuid.New()
	in.IdempotencyKey = &key

	_, err := svc.Create(ctx, in)
	require.NoError(t, err)

	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, shared.ErrIdempotencyConflict)
}
