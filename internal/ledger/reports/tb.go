package reports

import (
	"sort"

	"github.com/meridian-books/meridian/internal/ledger/shared"
)

// TrialBalanceAccount represents a row inside a trial balance group. An
// account appears on the side of its net: a positive debit-minus-credit net
// fills the Debit column, a negative one the Credit column.
type TrialBalanceAccount struct {
	Code   string       `json:"code"`
	Name   string       `json:"name"`
	Debit  shared.Money `json:"debit"`
	Credit shared.Money `json:"credit"`
}

// TrialBalanceGroup aggregates accounts for presentation.
type TrialBalanceGroup struct {
	Key      string                `json:"key"`
	Accounts []TrialBalanceAccount `json:"accounts"`
	Debit    shared.Money          `json:"debit"`
	Credit   shared.Money          `json:"credit"`
}

// TrialBalance is the final structure rendered to clients.
type TrialBalance struct {
	AsOf        string              `json:"as_of"`
	Groups      []TrialBalanceGroup `json:"groups"`
	TotalDebit  shared.Money        `json:"total_debit"`
	TotalCredit shared.Money        `json:"total_credit"`
}

// Balanced reports whether debit and credit totals agree.
func (tb TrialBalance) Balanced() bool {
	return tb.TotalDebit == tb.TotalCredit
}

// BuildTrialBalance converts account activity into grouped trial balance
// data. Accounts with no posted activity net to zero and are skipped.
func BuildTrialBalance(activity []AccountActivity) TrialBalance {
	groups := make(map[string]*TrialBalanceGroup)
	keys := make([]string, 0)
	for _, acc := range activity {
		net := acc.Net()
		if net == 0 {
			continue
		}
		key := acc.GroupKey()
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key}
			groups[key] = grp
			keys = append(keys, key)
		}
		row := TrialBalanceAccount{Code: acc.Code, Name: acc.Name}
		if net > 0 {
			row.Debit = net
		} else {
			row.Credit = -net
		}
		grp.Accounts = append(grp.Accounts, row)
		grp.Debit += row.Debit
		grp.Credit += row.Credit
	}

	sort.Strings(keys)
	result := TrialBalance{}
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Accounts, func(i, j int) bool {
			return grp.Accounts[i].Code < grp.Accounts[j].Code
		})
		result.Groups = append(result.Groups, *grp)
		result.TotalDebit += grp.Debit
		result.TotalCredit += grp.Credit
	}
	return result
}
