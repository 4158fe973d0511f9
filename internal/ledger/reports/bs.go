package reports

import (
	"sort"

	"github.com/meridian-books/meridian/internal/ledger/accounts"
	"github.com/meridian-books/meridian/internal/ledger/shared"
)

// BalanceSheetAccount summarises an account for assets, liabilities, or
// equity, signed per its normal side.
type BalanceSheetAccount struct {
	Code    string       `json:"code"`
	Name    string       `json:"name"`
	Balance shared.Money `json:"balance"`
}

// BalanceSheetSection contains the accounts and total for a classification.
type BalanceSheetSection struct {
	Label    string                `json:"label"`
	Accounts []BalanceSheetAccount `json:"accounts"`
	Total    shared.Money          `json:"total"`
}

// BalanceSheet is the structured response for the balance sheet report.
type BalanceSheet struct {
	AsOf                      string              `json:"as_of"`
	Assets                    BalanceSheetSection `json:"assets"`
	Liabilities               BalanceSheetSection `json:"liabilities"`
	Equity                    BalanceSheetSection `json:"equity"`
	TotalLiabilitiesAndEquity shared.Money        `json:"total_liabilities_and_equity"`
}

// Balanced reports whether assets equal liabilities plus equity.
func (bs BalanceSheet) Balanced() bool {
	return bs.Assets.Total == bs.TotalLiabilitiesAndEquity
}

// BuildBalanceSheet aggregates activity into asset, liability, and equity
// sections. Revenue and expense activity not yet rolled into retained
// earnings is folded into equity as a current-period earnings row, which
// keeps the statement balanced mid-year.
func BuildBalanceSheet(activity []AccountActivity) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets"}
	liabilities := BalanceSheetSection{Label: "Liabilities"}
	equity := BalanceSheetSection{Label: "Equity"}
	var netIncome shared.Money

	for _, acc := range activity {
		row := BalanceSheetAccount{Code: acc.Code, Name: acc.Name, Balance: acc.SignedBalance()}
		switch acc.Type {
		case accounts.AccountTypeAsset:
			assets.Accounts = append(assets.Accounts, row)
			assets.Total += row.Balance
		case accounts.AccountTypeLiability:
			liabilities.Accounts = append(liabilities.Accounts, row)
			liabilities.Total += row.Balance
		case accounts.AccountTypeEquity:
			equity.Accounts = append(equity.Accounts, row)
			equity.Total += row.Balance
		case accounts.AccountTypeRevenue:
			netIncome += acc.Credit - acc.Debit
		case accounts.AccountTypeExpense:
			netIncome -= acc.Debit - acc.Credit
		}
	}

	sort.Slice(assets.Accounts, func(i, j int) bool { return assets.Accounts[i].Code < assets.Accounts[j].Code })
	sort.Slice(liabilities.Accounts, func(i, j int) bool { return liabilities.Accounts[i].Code < liabilities.Accounts[j].Code })
	sort.Slice(equity.Accounts, func(i, j int) bool { return equity.Accounts[i].Code < equity.Accounts[j].Code })

	if netIncome != 0 {
		equity.Accounts = append(equity.Accounts, BalanceSheetAccount{Name: "Current Period Earnings", Balance: netIncome})
		equity.Total += netIncome
	}

	return BalanceSheet{
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		TotalLiabilitiesAndEquity: liabilities.Total + equity.Total,
	}
}
