package journals

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-books/meridian/internal/ledger/periods"
	"github.com/meridian-books/meridian/internal/ledger/shared"
	internalShared "github.com/meridian-books/meridian/internal/shared"
)

// AuditPort records entry lifecycle events.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// IdempotencyPort rejects replayed create requests.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
}

// PeriodResolver maps an entry date onto its open period.
type PeriodResolver interface {
	FindOpenByDate(ctx context.Context, date time.Time) (periods.Period, error)
}

// PostingRecorder counts posting actions for monitoring.
type PostingRecorder interface {
	RecordPosting(action string, err error)
}

// Service implements the journal entry engine.
type Service struct {
	repo        Repository
	periods     PeriodResolver
	audit       AuditPort
	idempotency IdempotencyPort
	policy      ApprovalPolicy
	metrics     PostingRecorder
	bulkWorkers int
	now         func() time.Time
}

func NewService(repo Repository, periodResolver PeriodResolver, audit AuditPort, idempotency IdempotencyPort, policy ApprovalPolicy) *Service {
	return &Service{
		repo:        repo,
		periods:     periodResolver,
		audit:       audit,
		idempotency: idempotency,
		policy:      policy,
		bulkWorkers: 4,
		now:         time.Now,
	}
}

func (s *Service) WithMetrics(m PostingRecorder) {
	s.metrics = m
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// List returns a page of entries plus pagination metadata.
func (s *Service) List(ctx context.Context, page, perPage int) ([]JournalEntry, internalShared.Pagination, error) {
	if perPage > 200 {
		perPage = 200
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, internalShared.Pagination{}, err
	}
	p := internalShared.NewPagination(page, perPage, total)
	entries, err := s.repo.List(ctx, p.PerPage, (p.Page-1)*p.PerPage)
	if err != nil {
		return nil, internalShared.Pagination{}, err
	}
	return entries, p, nil
}

func (s *Service) Get(ctx context.Context, id int64) (JournalEntry, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and stores a draft entry. The entry date must fall into
// an open period; all referenced accounts must be active.
func (s *Service) Create(ctx context.Context, in CreateInput) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	if in.IdempotencyKey != nil && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, in.IdempotencyKey.String(), "journals"); err != nil {
			return JournalEntry{}, err
		}
	}
	period, err := s.periods.FindOpenByDate(ctx, in.EntryDate)
	if err != nil {
		return JournalEntry{}, err
	}
	draft := JournalEntry{
		PeriodID:       period.ID,
		EntryDate:      in.EntryDate,
		Memo:           in.Memo,
		Status:         StatusDraft,
		CreatedBy:      in.ActorID,
		IdempotencyKey: in.IdempotencyKey,
		Lines:          toLines(in.Lines),
	}
	var entry JournalEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		accts, err := tx.GetAccounts(ctx, draft.AccountIDs())
		if err != nil {
			return err
		}
		for _, a := range accts {
			if !a.IsActive {
				return fmt.Errorf("%w: account %s", shared.ErrAccountInactive, a.Code)
			}
		}
		inserted, err := tx.InsertEntry(ctx, draft)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, draft.Lines); err != nil {
			return err
		}
		inserted.Lines = draft.Lines
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, in.ActorID, "journal.create", entry.ID, map[string]any{
		"debit_total": entry.DebitTotal().String(),
		"lines":       len(entry.Lines),
	})
	return entry, nil
}

// Submit moves a draft into the approval queue.
func (s *Service) Submit(ctx context.Context, entryID, actorID int64) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return shared.ErrInvalidStateTransition
		}
		if err := tx.UpdateStatus(ctx, entryID, StatusDraft, StatusPendingApproval); err != nil {
			return err
		}
		entry = current
		entry.Status = StatusPendingApproval
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, actorID, "journal.submit", entryID, nil)
	return entry, nil
}

// Approve transitions pending_approval to approved when the caller role is
// allowed by the configured policy.
func (s *Service) Approve(ctx context.Context, entryID int64, approverRole string, actorID int64) (JournalEntry, error) {
	if s.policy != nil && !s.policy.CanApprove(approverRole) {
		return JournalEntry{}, shared.ErrApprovalForbidden
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status != StatusPendingApproval {
			return shared.ErrNotApprovable
		}
		if err := tx.UpdateStatus(ctx, entryID, StatusPendingApproval, StatusApproved); err != nil {
			return err
		}
		entry = current
		entry.Status = StatusApproved
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, actorID, "journal.approve", entryID, map[string]any{"role": approverRole})
	return entry, nil
}

// Post applies the entry's balance deltas and flips it to posted, all in one
// transaction. This is the only operation that mutates account balances.
func (s *Service) Post(ctx context.Context, entryID, actorID int64) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		switch current.Status {
		case StatusDraft:
			if s.policy != nil && s.policy.RequiresApproval(current) {
				return shared.ErrApprovalRequired
			}
		case StatusApproved:
		default:
			return shared.ErrInvalidStateTransition
		}
		if err := s.checkPostable(ctx, tx, current); err != nil {
			return err
		}
		accountIDs := current.AccountIDs()
		sort.Slice(accountIDs, func(i, j int) bool { return accountIDs[i] < accountIDs[j] })
		accts, err := tx.LockAccounts(ctx, accountIDs)
		if err != nil {
			return err
		}
		for _, a := range accts {
			if !a.IsActive {
				return fmt.Errorf("%w: account %s", shared.ErrAccountInactive, a.Code)
			}
		}
		if err := tx.ApplyBalanceDeltas(ctx, current.BalanceDeltas()); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, entryID, current.Status, StatusPosted); err != nil {
			return err
		}
		entry = current
		entry.Status = StatusPosted
		return nil
	})
	if s.metrics != nil {
		s.metrics.RecordPosting("post", err)
	}
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, actorID, "journal.post", entryID, map[string]any{
		"debit_total": entry.DebitTotal().String(),
	})
	return entry, nil
}

func (s *Service) checkPostable(ctx context.Context, tx TxRepository, entry JournalEntry) error {
	period, err := tx.GetPeriodForUpdate(ctx, entry.PeriodID)
	if err != nil {
		return err
	}
	if period.Status != periods.PeriodStatusOpen {
		return shared.ErrPeriodClosed
	}
	if !period.Contains(entry.EntryDate) {
		return shared.ErrDateOutOfRange
	}
	return nil
}

// Reverse creates and immediately posts an offsetting entry linked to the
// original, then marks the original reversed. When the original period has
// closed, the reversal lands in the next open period at its start date.
func (s *Service) Reverse(ctx context.Context, in ReverseInput) (JournalEntry, error) {
	var reversal JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetEntryForUpdate(ctx, in.EntryID)
		if err != nil {
			return err
		}
		if original.Status != StatusPosted {
			return shared.ErrInvalidStateTransition
		}
		period, err := tx.GetPeriodForUpdate(ctx, original.PeriodID)
		if err != nil {
			return err
		}
		targetPeriod := period
		targetDate := original.EntryDate
		if period.Status != periods.PeriodStatusOpen {
			next, err := tx.FindOpenPeriodAfter(ctx, period.EndDate.AddDate(0, 0, 1))
			if err != nil {
				return err
			}
			targetPeriod = next
			targetDate = next.StartDate
		}
		now := s.now()
		candidate := JournalEntry{
			PeriodID:   targetPeriod.ID,
			EntryDate:  targetDate,
			Memo:       reversalMemo(in.Reason, original.ID),
			Status:     StatusPosted,
			CreatedBy:  in.ActorID,
			PostedAt:   &now,
			ReversalOf: &original.ID,
			Lines:      swapLines(original.Lines),
		}
		accountIDs := candidate.AccountIDs()
		sort.Slice(accountIDs, func(i, j int) bool { return accountIDs[i] < accountIDs[j] })
		// Deactivated accounts do not block a reversal: it only negates
		// history already on the books.
		if _, err := tx.LockAccounts(ctx, accountIDs); err != nil {
			return err
		}
		inserted, err := tx.InsertEntry(ctx, candidate)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, candidate.Lines); err != nil {
			return err
		}
		if err := tx.ApplyBalanceDeltas(ctx, candidate.BalanceDeltas()); err != nil {
			return err
		}
		if err := tx.MarkReversed(ctx, original.ID, inserted.ID); err != nil {
			return err
		}
		inserted.Lines = candidate.Lines
		reversal = inserted
		return nil
	})
	if s.metrics != nil {
		s.metrics.RecordPosting("reverse", err)
	}
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, in.ActorID, "journal.reverse", in.EntryID, map[string]any{
		"reversal_id": reversal.ID,
		"reason":      in.Reason,
	})
	return reversal, nil
}

// BulkPost posts entries with bounded concurrency. Overlapping account sets
// serialize on row locks inside each posting transaction; a failed entry
// neither blocks nor rolls back the others.
func (s *Service) BulkPost(ctx context.Context, entryIDs []int64, actorID int64) BulkPostResult {
	results := make([]EntryResult, len(entryIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.bulkWorkers)
	for idx, id := range entryIDs {
		g.Go(func() error {
			_, err := s.Post(gctx, id, actorID)
			res := EntryResult{EntryID: id, Posted: err == nil}
			if err != nil {
				res.Error = err.Error()
			}
			results[idx] = res
			return nil
		})
	}
	_ = g.Wait()
	out := BulkPostResult{Results: results}
	for _, res := range results {
		if res.Posted {
			out.Posted++
		} else {
			out.Errors++
		}
	}
	return out
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entryID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entryID),
		Meta:     meta,
		At:       s.now(),
	})
}

func toLines(inputs []LineInput) []JournalLine {
	out := make([]JournalLine, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, JournalLine{
			AccountID:   in.AccountID,
			Debit:       in.Debit,
			Credit:      in.Credit,
			Description: in.Description,
			Reference:   in.Reference,
		})
	}
	return out
}

func swapLines(lines []JournalLine) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, JournalLine{
			AccountID:   line.AccountID,
			Debit:       line.Credit,
			Credit:      line.Debit,
			Description: line.Description,
			Reference:   line.Reference,
		})
	}
	return out
}

func reversalMemo(reason string, originalID int64) string {
	if reason != "" {
		return fmt.Sprintf("Reversal of entry %d: %s", originalID, reason)
	}
	return fmt.Sprintf("Reversal of entry %d", originalID)
}
