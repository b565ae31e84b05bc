package payment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("payment not found")
	ErrAlreadyResolved = errors.New("payment already resolved")
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Payment is a borrower-reported repayment awaiting the lender's decision.
type Payment struct {
	ID              uint64          `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	PaymentID       string          `gorm:"column:payment_id;size:36;not null;uniqueIndex:ux_payments_payment_id" json:"payment_id"`
	LoanID          string          `gorm:"column:loan_id;size:36;not null;index:idx_payments_loan_created,priority:1" json:"loan_id"`
	BorrowerID      string          `gorm:"column:borrower_id;size:64;not null" json:"borrower_id"`
	LenderID        string          `gorm:"column:lender_id;size:64;not null;index" json:"lender_id"`
	Amount          decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	PaymentDate     time.Time       `gorm:"column:payment_date;not null" json:"payment_date"`
	Status          Status          `gorm:"column:status;size:16;not null" json:"status"`
	ReceiptKey      string          `gorm:"column:receipt_key;size:512" json:"receipt_key,omitempty"`
	Notes           string          `gorm:"column:notes;type:text" json:"notes,omitempty"`
	ApprovalNotes   string          `gorm:"column:approval_notes;type:text" json:"approval_notes,omitempty"`
	RejectionReason string          `gorm:"column:rejection_reason;type:text" json:"rejection_reason,omitempty"`
	ResolvedAt      *time.Time      `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime;index:idx_payments_loan_created,priority:2" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// Resolution is the lender's decision on a PENDING payment.
type Resolution struct {
	Status          Status
	ApprovalNotes   string
	RejectionReason string
	At              time.Time
}
