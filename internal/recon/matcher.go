package recon

import (
	"sort"
	"time"

	"github.com/meridian-books/meridian/internal/banking"
)

// SuggestMatches pairs unreconciled bank transactions with book-side
// candidates of equal amount dated within the window. Ties break by nearest
// date, then lowest candidate id. Each candidate is consumed at most once;
// transactions are processed in date order so earlier statement lines get
// first pick. Unmatched transactions are the outstanding items.
func SuggestMatches(txs []banking.BankTransaction, candidates []MatchCandidate, windowDays int) []Suggestion {
	if windowDays <= 0 {
		windowDays = 5
	}
	ordered := append([]banking.BankTransaction(nil), txs...)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].ID < ordered[j].ID
	})

	used := make(map[int]bool, len(candidates))
	var suggestions []Suggestion
	for _, tx := range ordered {
		if tx.Reconciled {
			continue
		}
		best := -1
		bestDays := 0
		for idx, cand := range candidates {
			if used[idx] || cand.Amount != tx.Amount {
				continue
			}
			days := daysApart(tx.Date, cand.Date)
			if days > windowDays {
				continue
			}
			if best == -1 || days < bestDays ||
				(days == bestDays && cand.ID < candidates[best].ID) {
				best = idx
				bestDays = days
			}
		}
		if best == -1 {
			continue
		}
		used[best] = true
		cand := candidates[best]
		suggestions = append(suggestions, Suggestion{
			TransactionID:   tx.ID,
			TransactionDate: tx.Date.Format("2006-01-02"),
			Amount:          tx.Amount,
			CandidateType:   cand.Type,
			CandidateID:     cand.ID,
			JournalLineID:   cand.JournalLineID,
			CandidateDate:   cand.Date.Format("2006-01-02"),
			DaysApart:       bestDays,
		})
	}
	return suggestions
}

// daysApart counts whole calendar days between two dates. Inputs are
// truncated to midnight UTC first so a stray time-of-day component can
// never shrink the distance below a full day.
func daysApart(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return int(diff / (24 * time.Hour))
}
