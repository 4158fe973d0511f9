package recon

import (
	"time"

	"github.com/meridian-books/meridian/internal/ledger/shared"
)

// Status enumerates the reconciliation lifecycle. In-progress reconciliations
// may be abandoned with no side effects beyond marks already applied to
// matched transactions, which remain un-matchable.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusAbandoned  Status = "ABANDONED"
)

// Reconciliation proves a bank statement against the books. BookBalance is a
// snapshot of the linked GL account as of the statement date, taken at
// creation.
type Reconciliation struct {
	ID               int64
	BankAccountID    int64
	StatementDate    time.Time
	StatementBalance shared.Money
	BookBalance      shared.Money
	Status           Status
	CompletedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AdjustmentKind classifies an outstanding item.
type AdjustmentKind string

const (
	// KindOutstandingCheck is a check written but not yet cleared by the
	// bank. The bank still shows the money, so it adds to the book side.
	KindOutstandingCheck AdjustmentKind = "OUTSTANDING_CHECK"
	// KindDepositInTransit is a deposit booked but not yet credited by the
	// bank, so it subtracts from the book side.
	KindDepositInTransit AdjustmentKind = "DEPOSIT_IN_TRANSIT"
	// KindOther carries a pre-signed amount such as a bank fee correction.
	KindOther AdjustmentKind = "OTHER"
)

// Valid reports whether the kind is known.
func (k AdjustmentKind) Valid() bool {
	switch k {
	case KindOutstandingCheck, KindDepositInTransit, KindOther:
		return true
	}
	return false
}

// Adjustment is one outstanding item attached to a reconciliation.
type Adjustment struct {
	ID               int64
	ReconciliationID int64
	Kind             AdjustmentKind
	Description      string
	Amount           shared.Money
	CreatedAt        time.Time
}

// SignedAmount applies the kind's sign convention:
// statement = book + outstanding checks - deposits in transit.
func (a Adjustment) SignedAmount() shared.Money {
	switch a.Kind {
	case KindOutstandingCheck:
		return a.Amount
	case KindDepositInTransit:
		return -a.Amount
	default:
		return a.Amount
	}
}

// CandidateType distinguishes what a bank transaction can match against.
type CandidateType string

const (
	CandidateLedgerLine CandidateType = "LEDGER_LINE"
	CandidateCheck      CandidateType = "CHECK"
)

// MatchCandidate is one unreconciled book-side item: a posted journal line on
// the linked GL account, or an outstanding check.
type MatchCandidate struct {
	Type          CandidateType
	ID            int64
	JournalLineID *int64
	Date          time.Time
	Amount        shared.Money
	Description   string
}

// Suggestion pairs a bank transaction with its best book-side candidate.
type Suggestion struct {
	TransactionID   int64         `json:"transaction_id"`
	TransactionDate string        `json:"transaction_date"`
	Amount          shared.Money  `json:"amount"`
	CandidateType   CandidateType `json:"candidate_type"`
	CandidateID     int64         `json:"candidate_id"`
	JournalLineID   *int64        `json:"journal_line_id,omitempty"`
	CandidateDate   string        `json:"candidate_date"`
	DaysApart       int           `json:"days_apart"`
}
