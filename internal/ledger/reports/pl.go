package reports

import (
	"sort"

	"github.com/meridian-books/meridian/internal/ledger/accounts"
	"github.com/meridian-books/meridian/internal/ledger/shared"
)

// IncomeStatementAccount represents a revenue or expense account summary.
type IncomeStatementAccount struct {
	Code   string       `json:"code"`
	Name   string       `json:"name"`
	Amount shared.Money `json:"amount"`
}

// IncomeStatementSection groups accounts by nature.
type IncomeStatementSection struct {
	Label    string                   `json:"label"`
	Accounts []IncomeStatementAccount `json:"accounts"`
	Total    shared.Money             `json:"total"`
}

// IncomeStatement contains the structured output for the report.
type IncomeStatement struct {
	Start     string                 `json:"start"`
	End       string                 `json:"end"`
	Revenue   IncomeStatementSection `json:"revenue"`
	Expense   IncomeStatementSection `json:"expense"`
	NetIncome shared.Money           `json:"net_income"`
}

// BuildIncomeStatement aggregates range activity into revenue and expense
// sections. Revenue amounts are credit-positive, expenses debit-positive.
func BuildIncomeStatement(activity []AccountActivity) IncomeStatement {
	revenue := IncomeStatementSection{Label: "Revenue"}
	expense := IncomeStatementSection{Label: "Expense"}

	for _, acc := range activity {
		switch acc.Type {
		case accounts.AccountTypeRevenue:
			row := IncomeStatementAccount{Code: acc.Code, Name: acc.Name, Amount: acc.Credit - acc.Debit}
			revenue.Accounts = append(revenue.Accounts, row)
			revenue.Total += row.Amount
		case accounts.AccountTypeExpense:
			row := IncomeStatementAccount{Code: acc.Code, Name: acc.Name, Amount: acc.Debit - acc.Credit}
			expense.Accounts = append(expense.Accounts, row)
			expense.Total += row.Amount
		}
	}

	sort.Slice(revenue.Accounts, func(i, j int) bool { return revenue.Accounts[i].Code < revenue.Accounts[j].Code })
	sort.Slice(expense.Accounts, func(i, j int) bool { return expense.Accounts[i].Code < expense.Accounts[j].Code })

	return IncomeStatement{
		Revenue:   revenue,
		Expense:   expense,
		NetIncome: revenue.Total - expense.Total,
	}
}
