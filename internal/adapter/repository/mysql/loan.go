package mysql

import (
	"context"
	"errors"
	"time"

	loanDomain "multilend/internal/domain/loan"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return storeErr("loans: create", r.db.WithContext(ctx).Create(l).Error)
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	err := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, loanDomain.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("loans: get", err)
	}
	return &out, nil
}

func (r *LoanRepository) GetMany(ctx context.Context, loanIDs []string) ([]loanDomain.Loan, error) {
	if len(loanIDs) == 0 {
		return nil, nil
	}
	var out []loanDomain.Loan
	err := r.db.WithContext(ctx).Where("loan_id IN ?", loanIDs).Find(&out).Error
	return out, storeErr("loans: get many", err)
}

func (r *LoanRepository) ListByBorrower(ctx context.Context, borrowerID string, after *loanDomain.Cursor, limit int) ([]loanDomain.Loan, error) {
	q := r.db.WithContext(ctx).Where("borrower_id = ?", borrowerID)
	if after != nil {
		q = q.Where("created_at < ? OR (created_at = ? AND loan_id < ?)", after.CreatedAt, after.CreatedAt, after.LoanID)
	}
	var out []loanDomain.Loan
	err := q.Order("created_at DESC, loan_id DESC").Limit(limit).Find(&out).Error
	return out, storeErr("loans: list by borrower", err)
}

func (r *LoanRepository) ApplyFunding(ctx context.Context, loanID string, expectedVersion int64, totalFunded decimal.Decimal, status loanDomain.Status) error {
	return r.casUpdate(ctx, "loans: apply funding", loanID, expectedVersion, map[string]any{
		"total_funded": totalFunded,
		"status":       status,
	})
}

func (r *LoanRepository) ReserveInvites(ctx context.Context, loanID string, expectedVersion int64, invitedTotal decimal.Decimal) error {
	return r.casUpdate(ctx, "loans: reserve invites", loanID, expectedVersion, map[string]any{"invited_total": invitedTotal})
}

func (r *LoanRepository) SetStatus(ctx context.Context, loanID string, expectedVersion int64, status loanDomain.Status) error {
	return r.casUpdate(ctx, "loans: set status", loanID, expectedVersion, map[string]any{"status": status})
}

// casUpdate applies values only while the row is still at expectedVersion and
// bumps the version. Zero affected rows means either a missing loan or a
// concurrent writer.
func (r *LoanRepository) casUpdate(ctx context.Context, op, loanID string, expectedVersion int64, values map[string]any) error {
	values["version"] = gorm.Expr("version + 1")
	values["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&loanDomain.Loan{}).
		Where("loan_id = ? AND version = ?", loanID, expectedVersion).
		Updates(values)
	if res.Error != nil {
		return storeErr(op, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	if _, err := r.GetByLoanID(ctx, loanID); err != nil {
		return err
	}
	return loanDomain.ErrStaleVersion
}
