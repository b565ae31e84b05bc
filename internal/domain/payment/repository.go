package payment

import "context"

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByPaymentID(ctx context.Context, paymentID string) (*Payment, error)
	ListByLoan(ctx context.Context, loanID string) ([]Payment, error)
	// Resolve moves a PENDING payment to r.Status; ErrAlreadyResolved if it
	// is no longer PENDING.
	Resolve(ctx context.Context, paymentID string, r Resolution) error
}
