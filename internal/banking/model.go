package banking

import (
	"time"

	"github.com/meridian-books/meridian/internal/ledger/shared"
)

// Direction marks which way money moved from the bank's point of view.
type Direction string

const (
	DirectionDebit  Direction = "DEBIT"
	DirectionCredit Direction = "CREDIT"
)

// Valid reports whether the direction is known.
func (d Direction) Valid() bool {
	return d == DirectionDebit || d == DirectionCredit
}

// BankAccount links an external bank account to its general ledger account.
// Only the masked tail of the account number is ever stored.
type BankAccount struct {
	ID           int64
	Name         string
	BankName     string
	MaskedNumber string
	Currency     string
	GLAccountID  int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BankTransaction is one statement line imported from the bank. Reconciled
// transactions carry the journal line they were matched against.
type BankTransaction struct {
	ID                   int64
	BankAccountID        int64
	Date                 time.Time
	Description          string
	Amount               shared.Money
	Direction            Direction
	Reconciled           bool
	MatchedJournalLineID *int64
	CreatedAt            time.Time
}
