package reports

import (
	"testing"

	"github.com/meridian-books/meridian/internal/ledger/accounts"
	"github.com/meridian-books/meridian/internal/ledger/shared"
)

func TestBuildTrialBalance(t *testing.T) {
	activity := []AccountActivity{
		{AccountID: 1, Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset, Debit: 120000, Credit: 20000},
		{AccountID: 2, Code: "1100", Name: "Receivables", Type: accounts.AccountTypeAsset, Debit: 30000, Credit: 0},
		{AccountID: 3, Code: "4000", Name: "Sales", Type: accounts.AccountTypeRevenue, Debit: 0, Credit: 130000},
		{AccountID: 4, Code: "4100", Name: "Dormant", Type: accounts.AccountTypeRevenue, Debit: 0, Credit: 0},
	}

	tb := BuildTrialBalance(activity)
	if len(tb.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(tb.Groups))
	}
	if tb.TotalDebit != 130000 {
		t.Fatalf("unexpected total debit: %v", tb.TotalDebit)
	}
	if tb.TotalCredit != 130000 {
		t.Fatalf("unexpected total credit: %v", tb.TotalCredit)
	}
	if !tb.Balanced() {
		t.Fatal("expected balanced trial balance")
	}
	// Zero-net account is skipped entirely.
	for _, grp := range tb.Groups {
		for _, row := range grp.Accounts {
			if row.Code == "4100" {
				t.Fatal("dormant account should not appear")
			}
		}
	}
}

func TestBuildTrialBalanceGroupsByClass(t *testing.T) {
	activity := []AccountActivity{
		{Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset, Debit: 10000, Credit: 0},
		{Code: "10.10", Name: "Operating Bank", Type: accounts.AccountTypeAsset, Debit: 5000, Credit: 0},
		{Code: "1100", Name: "Receivables", Type: accounts.AccountTypeAsset, Debit: 2000, Credit: 0},
		{Code: "4000", Name: "Sales", Type: accounts.AccountTypeRevenue, Debit: 0, Credit: 17000},
	}

	tb := BuildTrialBalance(activity)
	if len(tb.Groups) != 2 {
		t.Fatalf("expected class groups 1 and 4, got %d groups", len(tb.Groups))
	}
	if tb.Groups[0].Key != "1" || tb.Groups[1].Key != "4" {
		t.Fatalf("unexpected group keys: %q %q", tb.Groups[0].Key, tb.Groups[1].Key)
	}
	// Dotted sub-accounts share the class group with plain four-digit codes.
	if len(tb.Groups[0].Accounts) != 3 {
		t.Fatalf("expected 3 asset-class rows, got %d", len(tb.Groups[0].Accounts))
	}
}

func TestBuildTrialBalanceNetSides(t *testing.T) {
	activity := []AccountActivity{
		{Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset, Debit: 50000, Credit: 80000},
	}
	tb := BuildTrialBalance(activity)
	row := tb.Groups[0].Accounts[0]
	if row.Debit != 0 || row.Credit != 30000 {
		t.Fatalf("credit-net asset should land in credit column, got debit=%v credit=%v", row.Debit, row.Credit)
	}
}

func TestBuildIncomeStatement(t *testing.T) {
	activity := []AccountActivity{
		{Code: "4000", Name: "Sales", Type: accounts.AccountTypeRevenue, Debit: 0, Credit: 120000},
		{Code: "5000", Name: "COGS", Type: accounts.AccountTypeExpense, Debit: 30000, Credit: 0},
		{Code: "5100", Name: "Marketing", Type: accounts.AccountTypeExpense, Debit: 20000, Credit: 0},
		{Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset, Debit: 70000, Credit: 0},
	}

	pl := BuildIncomeStatement(activity)
	if pl.Revenue.Total != 120000 {
		t.Fatalf("expected revenue total 120000 got %v", pl.Revenue.Total)
	}
	if pl.Expense.Total != 50000 {
		t.Fatalf("expected expense total 50000 got %v", pl.Expense.Total)
	}
	if pl.NetIncome != 70000 {
		t.Fatalf("expected net income 70000 got %v", pl.NetIncome)
	}
	if len(pl.Revenue.Accounts) != 1 || len(pl.Expense.Accounts) != 2 {
		t.Fatalf("balance sheet accounts leaked into income statement")
	}
}

func TestBuildBalanceSheetFoldsNetIncome(t *testing.T) {
	activity := []AccountActivity{
		{Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset, Debit: 150000, Credit: 30000},
		{Code: "2000", Name: "Payables", Type: accounts.AccountTypeLiability, Debit: 0, Credit: 40000},
		{Code: "3000", Name: "Share Capital", Type: accounts.AccountTypeEquity, Debit: 0, Credit: 10000},
		{Code: "4000", Name: "Sales", Type: accounts.AccountTypeRevenue, Debit: 0, Credit: 100000},
		{Code: "5000", Name: "Rent", Type: accounts.AccountTypeExpense, Debit: 30000, Credit: 0},
	}

	bs := BuildBalanceSheet(activity)
	if bs.Assets.Total != 120000 {
		t.Fatalf("expected assets 120000 got %v", bs.Assets.Total)
	}
	if bs.Liabilities.Total != 40000 {
		t.Fatalf("expected liabilities 40000 got %v", bs.Liabilities.Total)
	}
	// Equity = 10000 capital + 70000 current period earnings.
	if bs.Equity.Total != 80000 {
		t.Fatalf("expected equity 80000 got %v", bs.Equity.Total)
	}
	if !bs.Balanced() {
		t.Fatalf("expected balanced sheet: assets %v vs L+E %v", bs.Assets.Total, bs.TotalLiabilitiesAndEquity)
	}
	last := bs.Equity.Accounts[len(bs.Equity.Accounts)-1]
	if last.Name != "Current Period Earnings" || last.Balance != 70000 {
		t.Fatalf("unexpected earnings row: %+v", last)
	}
}

func TestBuildGeneralLedgerRunningBalance(t *testing.T) {
	cash := accounts.Account{ID: 1, Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset}
	lines := []LedgerLine{
		{EntryID: 10, EntryDate: "2025-01-05", Debit: 50000},
		{EntryID: 11, EntryDate: "2025-01-10", Credit: 20000},
		{EntryID: 12, EntryDate: "2025-01-15", Debit: 5000},
	}

	gl := BuildGeneralLedger(cash, shared.Money(10000), lines)
	if gl.Opening != 10000 {
		t.Fatalf("unexpected opening: %v", gl.Opening)
	}
	want := []shared.Money{60000, 40000, 45000}
	for i, line := range gl.Lines {
		if line.Running != want[i] {
			t.Fatalf("line %d running balance: want %v got %v", i, want[i], line.Running)
		}
	}
	if gl.Closing != 45000 {
		t.Fatalf("unexpected closing: %v", gl.Closing)
	}
}

func TestBuildGeneralLedgerCreditNormal(t *testing.T) {
	sales := accounts.Account{ID: 2, Code: "4000", Name: "Sales", Type: accounts.AccountTypeRevenue}
	lines := []LedgerLine{
		{EntryID: 10, EntryDate: "2025-01-05", Credit: 30000},
		{EntryID: 11, EntryDate: "2025-01-10", Debit: 5000},
	}

	gl := BuildGeneralLedger(sales, 0, lines)
	if gl.Lines[0].Running != 30000 {
		t.Fatalf("credit increases a revenue account, got %v", gl.Lines[0].Running)
	}
	if gl.Closing != 25000 {
		t.Fatalf("unexpected closing: %v", gl.Closing)
	}
}
