package loanmock

import (
	"context"
	"errors"
	"testing"

	domain "multilend/internal/domain/loan"

	"github.com/shopspring/decimal"
)

func TestRepo_Create(t *testing.T) {
	ctx := context.Background()
	l := &domain.Loan{LoanID: "LN-1"}

	called := false
	wantErr := errors.New("boom")
	m := &Repo{
		CreateFn: func(gotCtx context.Context, got *domain.Loan) error {
			called = true
			if got != l {
				t.Fatalf("Create arg mismatch")
			}
			return wantErr
		},
	}
	if err := m.Create(ctx, l); !errors.Is(err, wantErr) {
		t.Fatalf("Create: want %v, got %v", wantErr, err)
	}
	if !called {
		t.Fatalf("CreateFn not called")
	}

	// Default (nil func) → no-op, nil error
	m = &Repo{}
	if err := m.Create(ctx, l); err != nil {
		t.Fatalf("Create default: want nil, got %v", err)
	}
}

func TestRepo_GetByLoanID(t *testing.T) {
	ctx := context.Background()
	want := &domain.Loan{LoanID: "LN-2"}
	m := &Repo{GetByLoanIDFn: func(_ context.Context, id string) (*domain.Loan, error) {
		if id != "LN-2" {
			t.Fatalf("id = %s", id)
		}
		return want, nil
	}}
	if got, err := m.GetByLoanID(ctx, "LN-2"); err != nil || got != want {
		t.Fatalf("GetByLoanID = %v, %v", got, err)
	}

	m = &Repo{}
	if _, err := m.GetByLoanID(ctx, "LN-2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByLoanID default: want ErrNotFound, got %v", err)
	}
}

func TestRepo_ApplyFunding(t *testing.T) {
	var gotVersion int64
	m := &Repo{ApplyFundingFn: func(_ context.Context, _ string, v int64, _ decimal.Decimal, _ domain.Status) error {
		gotVersion = v
		return domain.ErrStaleVersion
	}}
	err := m.ApplyFunding(context.Background(), "LN-3", 7, decimal.NewFromInt(100), domain.StatusActive)
	if !errors.Is(err, domain.ErrStaleVersion) || gotVersion != 7 {
		t.Fatalf("ApplyFunding = %v (version %d)", err, gotVersion)
	}
	if err := (&Repo{}).SetStatus(context.Background(), "LN-3", 1, domain.StatusFailed); err != nil {
		t.Fatalf("SetStatus default: %v", err)
	}
}

func TestRepo_ReserveInvites(t *testing.T) {
	var got decimal.Decimal
	m := &Repo{ReserveInvitesFn: func(_ context.Context, _ string, _ int64, total decimal.Decimal) error {
		got = total
		return domain.ErrStaleVersion
	}}
	if err := m.ReserveInvites(context.Background(), "LN-4", 2, decimal.NewFromInt(600)); !errors.Is(err, domain.ErrStaleVersion) || !got.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("ReserveInvites = %v (total %s)", err, got)
	}
	if err := (&Repo{}).ReserveInvites(context.Background(), "LN-4", 2, decimal.Zero); err != nil {
		t.Fatalf("ReserveInvites default: %v", err)
	}
}
