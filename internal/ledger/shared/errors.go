package shared

import "errors"

var (
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("ledger: validation failed")
	// ErrUnbalancedEntry indicates debit != credit.
	ErrUnbalancedEntry = errors.New("ledger: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("ledger: journal requires at least two lines")
	// ErrInvalidStateTransition indicates an illegal lifecycle move.
	ErrInvalidStateTransition = errors.New("ledger: invalid status transition")
	// ErrPeriodClosed indicates posting into a closed period.
	ErrPeriodClosed = errors.New("ledger: period is closed")
	// ErrNoOpenPeriod indicates no open period covers the entry date.
	ErrNoOpenPeriod = errors.New("ledger: no open period for date")
	// ErrOverlappingPeriod indicates the requested range intersects an existing period.
	ErrOverlappingPeriod = errors.New("ledger: period overlaps existing range")
	// ErrPeriodNotClosable indicates unposted entries remain in the range.
	ErrPeriodNotClosable = errors.New("ledger: period has unposted entries")
	// ErrReconciliationMismatch indicates book + outstanding != statement.
	ErrReconciliationMismatch = errors.New("ledger: reconciliation does not balance")
	// ErrAccountInactive indicates a line references a deactivated account.
	ErrAccountInactive = errors.New("ledger: account is inactive")
	// ErrDuplicateCode indicates the account code already exists.
	ErrDuplicateCode = errors.New("ledger: account code already exists")
	// ErrInvalidParent indicates parent and child account types differ.
	ErrInvalidParent = errors.New("ledger: parent account type mismatch")
	// ErrNotFound indicates a missing record.
	ErrNotFound = errors.New("ledger: not found")
	// ErrNotApprovable indicates the entry is not pending approval.
	ErrNotApprovable = errors.New("ledger: entry is not pending approval")
	// ErrApprovalRequired indicates the entry must be approved before posting.
	ErrApprovalRequired = errors.New("ledger: entry requires approval before posting")
	// ErrApprovalForbidden indicates the caller role cannot approve.
	ErrApprovalForbidden = errors.New("ledger: role cannot approve entries")
	// ErrIdempotencyConflict indicates the request key was already processed.
	ErrIdempotencyConflict = errors.New("ledger: request already processed")
	// ErrDateOutOfRange indicates the entry date falls outside its period.
	ErrDateOutOfRange = errors.New("ledger: date outside period")
)
