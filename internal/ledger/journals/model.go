package journals

import (
	"time"

	"github.com/google/uuid"

	"github.com/meridian-books/meridian/internal/ledger/shared"
)

// EntryStatus enumerates the journal entry lifecycle.
// draft -> pending_approval -> approved -> posted -> reversed, with
// posted and reversed terminal for content changes.
type EntryStatus string

const (
	StatusDraft           EntryStatus = "DRAFT"
	StatusPendingApproval EntryStatus = "PENDING_APPROVAL"
	StatusApproved        EntryStatus = "APPROVED"
	StatusPosted          EntryStatus = "POSTED"
	StatusReversed        EntryStatus = "REVERSED"
)

// JournalEntry captures a balanced multi-line transaction.
type JournalEntry struct {
	ID             int64
	PeriodID       int64
	EntryDate      time.Time
	Memo           string
	Status         EntryStatus
	CreatedBy      int64
	ApprovedBy     *int64
	PostedAt       *time.Time
	ReversalOf     *int64
	ReversedBy     *int64
	IdempotencyKey *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Lines          []JournalLine
}

// JournalLine stores a debit or credit amount for one account. Exactly one
// side is non-zero.
type JournalLine struct {
	ID          int64
	EntryID     int64
	AccountID   int64
	Debit       shared.Money
	Credit      shared.Money
	Description string
	Reference   *string
}

// DebitTotal sums the debit side of all lines.
func (e JournalEntry) DebitTotal() shared.Money {
	var total shared.Money
	for _, line := range e.Lines {
		total += line.Debit
	}
	return total
}

// CreditTotal sums the credit side of all lines.
func (e JournalEntry) CreditTotal() shared.Money {
	var total shared.Money
	for _, line := range e.Lines {
		total += line.Credit
	}
	return total
}

// AccountIDs returns the distinct accounts touched by the entry.
func (e JournalEntry) AccountIDs() []int64 {
	seen := make(map[int64]struct{}, len(e.Lines))
	ids := make([]int64, 0, len(e.Lines))
	for _, line := range e.Lines {
		if _, ok := seen[line.AccountID]; ok {
			continue
		}
		seen[line.AccountID] = struct{}{}
		ids = append(ids, line.AccountID)
	}
	return ids
}

// BalanceDeltas computes the per-account debit-minus-credit effect of
// posting the entry. The account_balances cache stores debit-positive nets.
func (e JournalEntry) BalanceDeltas() map[int64]shared.Money {
	deltas := make(map[int64]shared.Money, len(e.Lines))
	for _, line := range e.Lines {
		deltas[line.AccountID] += line.Debit - line.Credit
	}
	return deltas
}
