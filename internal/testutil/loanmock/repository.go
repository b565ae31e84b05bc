package loanmock

import (
	"context"

	domain "multilend/internal/domain/loan"

	"github.com/shopspring/decimal"
)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset reads report domain.ErrNotFound; unset writes succeed.
type Repo struct {
	CreateFn         func(ctx context.Context, l *domain.Loan) error
	GetByLoanIDFn    func(ctx context.Context, loanID string) (*domain.Loan, error)
	GetManyFn        func(ctx context.Context, loanIDs []string) ([]domain.Loan, error)
	ListByBorrowerFn func(ctx context.Context, borrowerID string, after *domain.Cursor, limit int) ([]domain.Loan, error)
	ApplyFundingFn   func(ctx context.Context, loanID string, expectedVersion int64, totalFunded decimal.Decimal, status domain.Status) error
	ReserveInvitesFn func(ctx context.Context, loanID string, expectedVersion int64, invitedTotal decimal.Decimal) error
	SetStatusFn      func(ctx context.Context, loanID string, expectedVersion int64, status domain.Status) error
}

var _ domain.Repository = (*Repo)(nil)

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(ctx, loanID)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) GetMany(ctx context.Context, loanIDs []string) ([]domain.Loan, error) {
	if m.GetManyFn != nil {
		return m.GetManyFn(ctx, loanIDs)
	}
	return nil, nil
}

func (m *Repo) ListByBorrower(ctx context.Context, borrowerID string, after *domain.Cursor, limit int) ([]domain.Loan, error) {
	if m.ListByBorrowerFn != nil {
		return m.ListByBorrowerFn(ctx, borrowerID, after, limit)
	}
	return nil, nil
}

func (m *Repo) ApplyFunding(ctx context.Context, loanID string, expectedVersion int64, totalFunded decimal.Decimal, status domain.Status) error {
	if m.ApplyFundingFn != nil {
		return m.ApplyFundingFn(ctx, loanID, expectedVersion, totalFunded, status)
	}
	return nil
}

func (m *Repo) ReserveInvites(ctx context.Context, loanID string, expectedVersion int64, invitedTotal decimal.Decimal) error {
	if m.ReserveInvitesFn != nil {
		return m.ReserveInvitesFn(ctx, loanID, expectedVersion, invitedTotal)
	}
	return nil
}

func (m *Repo) SetStatus(ctx context.Context, loanID string, expectedVersion int64, status domain.Status) error {
	if m.SetStatusFn != nil {
		return m.SetStatusFn(ctx, loanID, expectedVersion, status)
	}
	return nil
}
