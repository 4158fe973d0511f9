package journals

import "github.com/meridian-books/meridian/internal/ledger/shared"

// ApprovalPolicy decides when an entry must travel through approval before
// posting and which caller roles may approve. The surrounding business
// configuration owns the concrete policy; the ledger core stays agnostic.
type ApprovalPolicy interface {
	RequiresApproval(e JournalEntry) bool
	CanApprove(role string) bool
}

// ThresholdPolicy requires approval for entries whose debit total exceeds a
// configured amount. A non-positive threshold disables the requirement
// entirely while still gating who may approve.
type ThresholdPolicy struct {
	Threshold     shared.Money
	ApproverRoles []string
}

func (p ThresholdPolicy) RequiresApproval(e JournalEntry) bool {
	return p.Threshold > 0 && e.DebitTotal() > p.Threshold
}

func (p ThresholdPolicy) CanApprove(role string) bool {
	for _, allowed := range p.ApproverRoles {
		if role == allowed {
			return true
		}
	}
	return false
}
