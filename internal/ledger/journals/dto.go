package journals

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-books/meridian/internal/ledger/shared"
)

// LineInput describes one journal line on create.
type LineInput struct {
	AccountID   int64
	Debit       shared.Money
	Credit      shared.Money
	Description string
	Reference   *string
}

// CreateInput groups fields required to create a draft entry.
type CreateInput struct {
	EntryDate      time.Time
	Memo           string
	ActorID        int64
	IdempotencyKey *uuid.UUID
	Lines          []LineInput
}

// Validate enforces the entry shape invariants: at least two lines, each
// with exactly one positive side, and debits equal to credits in minor
// units.
func (in CreateInput) Validate() error {
	if in.EntryDate.IsZero() {
		return fmt.Errorf("%w: entry date required", shared.ErrValidation)
	}
	if len(in.Lines) < 2 {
		return shared.ErrTooFewLines
	}
	var debit, credit shared.Money
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("%w: line %d missing account", shared.ErrValidation, idx)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return fmt.Errorf("%w: line %d negative amount", shared.ErrValidation, idx)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return fmt.Errorf("%w: line %d cannot be both debit and credit", shared.ErrValidation, idx)
		}
		if line.Debit == 0 && line.Credit == 0 {
			return fmt.Errorf("%w: line %d has no amount", shared.ErrValidation, idx)
		}
		debit += line.Debit
		credit += line.Credit
	}
	if debit != credit {
		return fmt.Errorf("%w: debit %s vs credit %s", shared.ErrUnbalancedEntry, debit, credit)
	}
	return nil
}

// ReverseInput wraps parameters for reversal.
type ReverseInput struct {
	EntryID int64
	ActorID int64
	Reason  string
}

// EntryResult reports the outcome of one entry inside a bulk post.
type EntryResult struct {
	EntryID int64  `json:"entry_id"`
	Posted  bool   `json:"posted"`
	Error   string `json:"error,omitempty"`
}

// BulkPostResult aggregates per-entry outcomes. Failures never roll back
// entries already committed.
type BulkPostResult struct {
	Posted  int           `json:"posted"`
	Errors  int           `json:"errors"`
	Results []EntryResult `json:"per_entry_result"`
}
