package participant

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Repository interface {
	// CreateIfAbsent inserts p unless a row with the same key exists.
	CreateIfAbsent(ctx context.Context, p *Participant) (bool, error)
	Get(ctx context.Context, loanID string, id Identity) (*Participant, error)
	ListByLoan(ctx context.Context, loanID string) ([]Participant, error)
	ListByLoans(ctx context.Context, loanIDs []string) ([]Participant, error)
	ListByIdentity(ctx context.Context, id Identity) ([]Participant, error)
	Delete(ctx context.Context, loanID string, id Identity) error

	// Claim moves a PENDING row at expectedVersion to ACCEPTED with the saga
	// cursor at claimed, initialising total_paid/remaining_balance if unset.
	Claim(ctx context.Context, loanID string, id Identity, expectedVersion int64, at time.Time) error
	Decline(ctx context.Context, loanID string, id Identity, expectedVersion int64, at time.Time) error
	SetAcceptStep(ctx context.Context, loanID string, id Identity, step AcceptStep) error
	ApplyRepayment(ctx context.Context, loanID string, id Identity, expectedVersion int64, totalPaid, remaining decimal.Decimal) error

	// ListStalled returns ACCEPTED rows whose saga cursor is not completed and
	// that were last touched before the given time.
	ListStalled(ctx context.Context, before time.Time, limit int) ([]Participant, error)
	// ListClaimableSentinels returns PendingInvite rows whose email now
	// belongs to an account, oldest first.
	ListClaimableSentinels(ctx context.Context, limit int) ([]Participant, error)
}
