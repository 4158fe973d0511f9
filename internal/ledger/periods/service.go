package periods

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/meridian-books/meridian/internal/ledger/accounts"
	"github.com/meridian-books/meridian/internal/ledger/shared"
	internalShared "github.com/meridian-books/meridian/internal/shared"
)

// AuditPort records period lifecycle changes.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// CloseLocker serializes period close against concurrent closes of the same
// period. Posting is additionally fenced by the FOR UPDATE row lock.
type CloseLocker interface {
	Acquire(ctx context.Context, periodID int64) (release func(), err error)
}

// CloseNotifier announces a completed close, typically by queueing mail.
// Notification failures never roll back the close.
type CloseNotifier interface {
	NotifyPeriodClosed(ctx context.Context, period Period) error
}

type Service struct {
	repo                 Repository
	audit                AuditPort
	locker               CloseLocker
	notifier             CloseNotifier
	retainedEarningsCode string
	now                  func() time.Time
}

// Config carries close behavior knobs.
type Config struct {
	// RetainedEarningsCode names the equity account receiving the year-end
	// revenue/expense rollover.
	RetainedEarningsCode string
}

func NewService(repo Repository, audit AuditPort, locker CloseLocker, cfg Config) *Service {
	code := cfg.RetainedEarningsCode
	if code == "" {
		code = "3900"
	}
	return &Service{repo: repo, audit: audit, locker: locker, retainedEarningsCode: code, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) WithCloseNotifier(n CloseNotifier) {
	s.notifier = n
}

// CreateInput groups fields for a new period.
type CreateInput struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Type      PeriodType
	ActorID   int64
}

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name required", shared.ErrValidation)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return fmt.Errorf("%w: start and end date required", shared.ErrValidation)
	}
	if in.EndDate.Before(in.StartDate) {
		return fmt.Errorf("%w: end date before start date", shared.ErrValidation)
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown period type %q", shared.ErrValidation, in.Type)
	}
	return nil
}

// Create registers a new open period. Ranges must not intersect existing
// periods.
func (s *Service) Create(ctx context.Context, in CreateInput) (Period, error) {
	if err := in.validate(); err != nil {
		return Period{}, err
	}
	period, err := s.repo.Insert(ctx, Period{
		Name:      strings.TrimSpace(in.Name),
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Type:      in.Type,
	})
	if err != nil {
		return Period{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalShared.AuditLog{
			ActorID:  in.ActorID,
			Action:   "period.create",
			Entity:   "period",
			EntityID: fmt.Sprintf("%d", period.ID),
			Meta:     map[string]any{"name": period.Name, "type": string(period.Type)},
			At:       s.now(),
		})
	}
	return period, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Period, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Period, error) {
	return s.repo.List(ctx)
}

// Current returns the open period containing now.
func (s *Service) Current(ctx context.Context) (Period, error) {
	return s.repo.FindOpenByDate(ctx, s.now())
}

// FindOpenByDate returns the open period covering the supplied date. Journal
// posting uses this to resolve an entry's period.
func (s *Service) FindOpenByDate(ctx context.Context, date time.Time) (Period, error) {
	return s.repo.FindOpenByDate(ctx, date)
}

// Close locks the period for further postings. Every entry dated in the
// range must already be posted or reversed. Yearly periods additionally roll
// revenue and expense balances into retained earnings through a regular
// balanced closing entry, inside the same transaction that flips the status.
func (s *Service) Close(ctx context.Context, periodID, actorID int64) (Period, error) {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, periodID)
		if err != nil {
			return Period{}, err
		}
		defer release()
	}
	var closed Period
	var closingEntryID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.GetForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		if period.Status != PeriodStatusOpen {
			return shared.ErrInvalidStateTransition
		}
		unposted, err := tx.CountUnposted(ctx, period.StartDate, period.EndDate)
		if err != nil {
			return err
		}
		if unposted > 0 {
			return fmt.Errorf("%w: %d entries pending", shared.ErrPeriodNotClosable, unposted)
		}
		if period.Type == PeriodTypeYearly {
			closingEntryID, err = s.postClosingEntry(ctx, tx, period, actorID)
			if err != nil {
				return err
			}
		}
		if err := tx.MarkClosed(ctx, periodID, actorID); err != nil {
			return err
		}
		closed = period
		closed.Status = PeriodStatusClosed
		return nil
	})
	if err != nil {
		return Period{}, err
	}
	if s.audit != nil {
		meta := map[string]any{"name": closed.Name}
		if closingEntryID != 0 {
			meta["closing_entry_id"] = closingEntryID
		}
		_ = s.audit.Record(ctx, internalShared.AuditLog{
			ActorID:  actorID,
			Action:   "period.close",
			Entity:   "period",
			EntityID: fmt.Sprintf("%d", periodID),
			Meta:     meta,
			At:       s.now(),
		})
	}
	if s.notifier != nil {
		_ = s.notifier.NotifyPeriodClosed(ctx, closed)
	}
	return closed, nil
}

func (s *Service) postClosingEntry(ctx context.Context, tx TxRepository, period Period, actorID int64) (int64, error) {
	nets, err := tx.TemporaryNets(ctx, period.StartDate, period.EndDate)
	if err != nil {
		return 0, err
	}
	retained, err := tx.GetAccountByCode(ctx, s.retainedEarningsCode)
	if err != nil {
		return 0, fmt.Errorf("retained earnings account %q: %w", s.retainedEarningsCode, err)
	}
	if retained.Type != accounts.AccountTypeEquity {
		return 0, fmt.Errorf("%w: retained earnings account %q is not equity", shared.ErrValidation, s.retainedEarningsCode)
	}
	lines := BuildClosingLines(nets, retained.ID)
	if len(lines) == 0 {
		return 0, nil
	}
	memo := fmt.Sprintf("Year-end close %s", period.Name)
	entryID, err := tx.InsertClosingEntry(ctx, period.ID, period.EndDate, memo, actorID, lines)
	if err != nil {
		return 0, err
	}
	deltas := make(map[int64]shared.Money, len(lines))
	for _, line := range lines {
		deltas[line.AccountID] += line.Debit - line.Credit
	}
	if err := tx.ApplyBalanceDeltas(ctx, deltas); err != nil {
		return 0, err
	}
	return entryID, nil
}

// BuildClosingLines produces the balanced entry that zeroes each temporary
// account and books the residual net income into the retained earnings
// account. A zero net overall yields no lines.
func BuildClosingLines(nets []AccountNet, retainedEarningsID int64) []ClosingLine {
	var lines []ClosingLine
	var sum shared.Money
	for _, n := range nets {
		switch {
		case n.Net > 0:
			lines = append(lines, ClosingLine{AccountID: n.AccountID, Credit: n.Net})
		case n.Net < 0:
			lines = append(lines, ClosingLine{AccountID: n.AccountID, Debit: -n.Net})
		}
		sum += n.Net
	}
	if len(lines) == 0 {
		return nil
	}
	// Net income (revenue minus expense) is -sum; a profit credits equity.
	switch {
	case sum < 0:
		lines = append(lines, ClosingLine{AccountID: retainedEarningsID, Credit: -sum})
	case sum > 0:
		lines = append(lines, ClosingLine{AccountID: retainedEarningsID, Debit: sum})
	}
	return lines
}
