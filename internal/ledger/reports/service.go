package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridian-books/meridian/internal/ledger/accounts"
)

// Service renders financial reports from posted history. Results are never
// persisted; redis caching with a short TTL absorbs repeated reads.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
}

func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

const dateFormat = "2006-01-02"

// TrialBalance renders every account's net on its debit or credit side as of
// a date. Totals must agree; a mismatch means posting atomicity was broken
// and is surfaced as an error rather than a report.
func (s *Service) TrialBalance(ctx context.Context, asOf time.Time) (TrialBalance, error) {
	key := fmt.Sprintf("reports:tb:%s", asOf.Format(dateFormat))
	var cached TrialBalance
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}
	activity, err := s.repo.ActivityAsOf(ctx, asOf)
	if err != nil {
		return TrialBalance{}, err
	}
	tb := BuildTrialBalance(activity)
	tb.AsOf = asOf.Format(dateFormat)
	if !tb.Balanced() {
		s.logger.Error("trial balance out of balance",
			slog.String("as_of", tb.AsOf),
			slog.String("total_debit", tb.TotalDebit.String()),
			slog.String("total_credit", tb.TotalCredit.String()))
		return TrialBalance{}, fmt.Errorf("trial balance out of balance: debit %s vs credit %s", tb.TotalDebit, tb.TotalCredit)
	}
	s.cache.Set(ctx, key, tb)
	return tb, nil
}

// BalanceSheet renders assets against liabilities plus equity as of a date.
func (s *Service) BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	key := fmt.Sprintf("reports:bs:%s", asOf.Format(dateFormat))
	var cached BalanceSheet
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}
	activity, err := s.repo.ActivityAsOf(ctx, asOf)
	if err != nil {
		return BalanceSheet{}, err
	}
	bs := BuildBalanceSheet(activity)
	bs.AsOf = asOf.Format(dateFormat)
	if !bs.Balanced() {
		s.logger.Error("balance sheet out of balance",
			slog.String("as_of", bs.AsOf),
			slog.String("assets", bs.Assets.Total.String()),
			slog.String("liabilities_and_equity", bs.TotalLiabilitiesAndEquity.String()))
		return BalanceSheet{}, fmt.Errorf("balance sheet out of balance: assets %s vs liabilities+equity %s",
			bs.Assets.Total, bs.TotalLiabilitiesAndEquity)
	}
	s.cache.Set(ctx, key, bs)
	return bs, nil
}

// IncomeStatement renders revenue and expense activity for a date range.
func (s *Service) IncomeStatement(ctx context.Context, start, end time.Time) (IncomeStatement, error) {
	key := fmt.Sprintf("reports:pl:%s:%s", start.Format(dateFormat), end.Format(dateFormat))
	var cached IncomeStatement
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}
	activity, err := s.repo.ActivityInRange(ctx, start, end)
	if err != nil {
		return IncomeStatement{}, err
	}
	pl := BuildIncomeStatement(activity)
	pl.Start = start.Format(dateFormat)
	pl.End = end.Format(dateFormat)
	s.cache.Set(ctx, key, pl)
	return pl, nil
}

// GeneralLedger renders one account's posted lines with a running balance.
func (s *Service) GeneralLedger(ctx context.Context, accountID int64, start, end time.Time) (GeneralLedger, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return GeneralLedger{}, err
	}
	debit, credit, err := s.repo.OpeningNet(ctx, accountID, start)
	if err != nil {
		return GeneralLedger{}, err
	}
	opening := debit - credit
	if account.NormalSide() == accounts.NormalSideCredit {
		opening = credit - debit
	}
	lines, err := s.repo.AccountLines(ctx, accountID, start, end)
	if err != nil {
		return GeneralLedger{}, err
	}
	gl := BuildGeneralLedger(account, opening, lines)
	gl.Start = start.Format(dateFormat)
	gl.End = end.Format(dateFormat)
	return gl, nil
}

// VerifyIntegrity rebuilds the trial balance and fails when totals diverge.
// The background integrity job runs this on a schedule.
func (s *Service) VerifyIntegrity(ctx context.Context, asOf time.Time) error {
	activity, err := s.repo.ActivityAsOf(ctx, asOf)
	if err != nil {
		return err
	}
	tb := BuildTrialBalance(activity)
	if !tb.Balanced() {
		return fmt.Errorf("ledger integrity violation: debit %s vs credit %s", tb.TotalDebit, tb.TotalCredit)
	}
	return nil
}
