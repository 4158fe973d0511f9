package checks

import (
	"time"

	"github.com/meridian-books/meridian/internal/ledger/shared"
)

// CheckStatus enumerates the check lifecycle. Issued is the only non-terminal
// state.
type CheckStatus string

const (
	StatusIssued  CheckStatus = "ISSUED"
	StatusCleared CheckStatus = "CLEARED"
	StatusVoided  CheckStatus = "VOIDED"
	StatusStopped CheckStatus = "STOPPED"
)

// Valid reports whether the status is known.
func (s CheckStatus) Valid() bool {
	switch s {
	case StatusIssued, StatusCleared, StatusVoided, StatusStopped:
		return true
	}
	return false
}

// Check is one register entry. Only issued checks count as outstanding for
// reconciliation.
type Check struct {
	ID             int64
	BankAccountID  int64
	CheckNumber    string
	Payee          string
	Amount         shared.Money
	Status         CheckStatus
	IssuedDate     time.Time
	ClearedDate    *time.Time
	JournalEntryID *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
