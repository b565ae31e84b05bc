package mysql

import (
	"context"
	"errors"

	"multilend/internal/domain/payment"

	"gorm.io/gorm"
)

type PaymentRepository struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) *PaymentRepository { return &PaymentRepository{db: db} }

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	return storeErr("payments: create", r.db.WithContext(ctx).Create(p).Error)
}

func (r *PaymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*payment.Payment, error) {
	var out payment.Payment
	err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, payment.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("payments: get", err)
	}
	return &out, nil
}

func (r *PaymentRepository) ListByLoan(ctx context.Context, loanID string) ([]payment.Payment, error) {
	var out []payment.Payment
	err := r.db.WithContext(ctx).Where("loan_id = ?", loanID).Order("created_at DESC, id DESC").Find(&out).Error
	return out, storeErr("payments: list by loan", err)
}

func (r *PaymentRepository) Resolve(ctx context.Context, paymentID string, res payment.Resolution) error {
	at := res.At.UTC()
	values := map[string]any{
		"status":      res.Status,
		"resolved_at": at,
		"updated_at":  at,
	}
	if res.ApprovalNotes != "" {
		values["approval_notes"] = res.ApprovalNotes
	}
	if res.RejectionReason != "" {
		values["rejection_reason"] = res.RejectionReason
	}
	q := r.db.WithContext(ctx).Model(&payment.Payment{}).
		Where("payment_id = ? AND status = ?", paymentID, payment.StatusPending).
		Updates(values)
	if q.Error != nil {
		return storeErr("payments: resolve", q.Error)
	}
	if q.RowsAffected == 1 {
		return nil
	}
	if _, err := r.GetByPaymentID(ctx, paymentID); err != nil {
		return err
	}
	return payment.ErrAlreadyResolved
}
