package paymentmock

import (
	"context"

	domain "multilend/internal/domain/payment"
)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset reads report domain.ErrNotFound; unset writes succeed.
type Repo struct {
	CreateFn         func(ctx context.Context, p *domain.Payment) error
	GetByPaymentIDFn func(ctx context.Context, paymentID string) (*domain.Payment, error)
	ListByLoanFn     func(ctx context.Context, loanID string) ([]domain.Payment, error)
	ResolveFn        func(ctx context.Context, paymentID string, r domain.Resolution) error
}

var _ domain.Repository = (*Repo)(nil)

func (m *Repo) Create(ctx context.Context, p *domain.Payment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, p)
	}
	return nil
}

func (m *Repo) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if m.GetByPaymentIDFn != nil {
		return m.GetByPaymentIDFn(ctx, paymentID)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) ListByLoan(ctx context.Context, loanID string) ([]domain.Payment, error) {
	if m.ListByLoanFn != nil {
		return m.ListByLoanFn(ctx, loanID)
	}
	return nil, nil
}

func (m *Repo) Resolve(ctx context.Context, paymentID string, r domain.Resolution) error {
	if m.ResolveFn != nil {
		return m.ResolveFn(ctx, paymentID, r)
	}
	return nil
}
