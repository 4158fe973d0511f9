package reports

import (
	"github.com/meridian-books/meridian/internal/ledger/accounts"
	"github.com/meridian-books/meridian/internal/ledger/shared"
)

// AccountActivity models an account with debit and credit sides aggregated
// from posted journal lines. Reversed originals still count; their reversal
// entries net them out.
type AccountActivity struct {
	AccountID int64
	Code      string
	Name      string
	Type      accounts.AccountType
	Debit     shared.Money
	Credit    shared.Money
}

// Net computes debit minus credit.
func (a AccountActivity) Net() shared.Money {
	return a.Debit - a.Credit
}

// SignedBalance returns the balance signed per the account's normal side.
func (a AccountActivity) SignedBalance() shared.Money {
	if accounts.NormalSideFor(a.Type) == accounts.NormalSideDebit {
		return a.Debit - a.Credit
	}
	return a.Credit - a.Debit
}

// GroupKey returns the key used for grouping trial balance rows: the
// leading class digit of the account code, so 1000, 1100 and 10.10 all
// land under class "1".
func (a AccountActivity) GroupKey() string {
	if a.Code == "" {
		return a.Code
	}
	return a.Code[:1]
}

// LedgerLine is one posted journal line feeding the general ledger report.
type LedgerLine struct {
	LineID      int64
	EntryID     int64
	EntryDate   string
	Memo        string
	Description string
	Debit       shared.Money
	Credit      shared.Money
}
