package reports

import (
	"github.com/meridian-books/meridian/internal/ledger/accounts"
	"github.com/meridian-books/meridian/internal/ledger/shared"
)

// GeneralLedgerLine is one posted line with the running balance after it.
type GeneralLedgerLine struct {
	EntryID     int64        `json:"entry_id"`
	EntryDate   string       `json:"entry_date"`
	Memo        string       `json:"memo,omitempty"`
	Description string       `json:"description,omitempty"`
	Debit       shared.Money `json:"debit"`
	Credit      shared.Money `json:"credit"`
	Running     shared.Money `json:"running_balance"`
}

// GeneralLedger is the account detail report: opening balance, every posted
// line in the range in entry-date order, and the closing balance.
type GeneralLedger struct {
	AccountID int64               `json:"account_id"`
	Code      string              `json:"code"`
	Name      string              `json:"name"`
	Start     string              `json:"start"`
	End       string              `json:"end"`
	Opening   shared.Money        `json:"opening_balance"`
	Lines     []GeneralLedgerLine `json:"lines"`
	Closing   shared.Money        `json:"closing_balance"`
}

// BuildGeneralLedger threads a running balance through the account's lines.
// Opening and running balances are signed per the account's normal side.
func BuildGeneralLedger(account accounts.Account, opening shared.Money, lines []LedgerLine) GeneralLedger {
	gl := GeneralLedger{
		AccountID: account.ID,
		Code:      account.Code,
		Name:      account.Name,
		Opening:   opening,
	}
	running := opening
	debitNormal := account.NormalSide() == accounts.NormalSideDebit
	for _, line := range lines {
		if debitNormal {
			running += line.Debit - line.Credit
		} else {
			running += line.Credit - line.Debit
		}
		gl.Lines = append(gl.Lines, GeneralLedgerLine{
			EntryID:     line.EntryID,
			EntryDate:   line.EntryDate,
			Memo:        line.Memo,
			Description: line.Description,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Running:     running,
		})
	}
	gl.Closing = running
	return gl
}
