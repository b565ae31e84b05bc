package loan

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	// GetMany is a single multi-get; missing ids are skipped.
	GetMany(ctx context.Context, loanIDs []string) ([]Loan, error)
	// ListByBorrower returns up to limit loans strictly after the cursor
	// (nil = first page), newest first.
	ListByBorrower(ctx context.Context, borrowerID string, after *Cursor, limit int) ([]Loan, error)

	// ApplyFunding writes total_funded/status only if the row is still at
	// expectedVersion, returning ErrStaleVersion otherwise.
	ApplyFunding(ctx context.Context, loanID string, expectedVersion int64, totalFunded decimal.Decimal, status Status) error
	// ReserveInvites records the running sum of invited contributions under
	// the same version check, so two batches read at one version cannot both
	// land.
	ReserveInvites(ctx context.Context, loanID string, expectedVersion int64, invitedTotal decimal.Decimal) error
	// SetStatus is a versioned status transition.
	SetStatus(ctx context.Context, loanID string, expectedVersion int64, status Status) error
}
