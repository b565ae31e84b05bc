package loan

import (
	"errors"
	"time"

	"multilend/internal/domain/amortization"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("loan not found")
	ErrStaleVersion = errors.New("loan: stale version")
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

type Loan struct {
	ID               uint64                 `gorm:"primaryKey;column:id" json:"-"`
	LoanID           string                 `gorm:"column:loan_id;size:36;not null;uniqueIndex:ux_loans_loan_id" json:"loan_id"`
	BorrowerID       string                 `gorm:"column:borrower_id;size:64;not null;index:idx_loans_borrower_created,priority:1" json:"borrower_id"`
	LoanName         string                 `gorm:"column:loan_name;size:255;not null" json:"loan_name"`
	Amount           decimal.Decimal        `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	InterestRate     decimal.Decimal        `gorm:"column:interest_rate;type:decimal(6,3);not null" json:"interest_rate"` // annual %, e.g. 8.5
	StartDate        time.Time              `gorm:"column:start_date;not null" json:"start_date"`
	PaymentFrequency amortization.Frequency `gorm:"column:payment_frequency;size:16;not null" json:"payment_frequency"`
	TermLength       int                    `gorm:"column:term_length;not null" json:"term_length"`
	MaturityDate     time.Time              `gorm:"column:maturity_date;not null" json:"maturity_date"`
	TotalPayments    int                    `gorm:"column:total_payments;not null" json:"total_payments"`
	Purpose          string                 `gorm:"column:purpose;size:100;not null" json:"purpose"`
	Description      string                 `gorm:"column:description;type:text;not null" json:"description"`
	Status           Status                 `gorm:"column:status;size:16;not null;index" json:"status"`
	TotalFunded      decimal.Decimal        `gorm:"column:total_funded;type:decimal(18,2);not null" json:"total_funded"`
	InvitedTotal     decimal.Decimal        `gorm:"column:invited_total;type:decimal(18,2);not null;default:0" json:"-"`
	Version          int64                  `gorm:"column:version;not null" json:"-"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime;index:idx_loans_borrower_created,priority:2" json:"created_at"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }

// AnnualRate is the interest rate as a fraction.
func (l Loan) AnnualRate() decimal.Decimal { return amortization.PercentToRate(l.InterestRate) }

func (l Loan) Terms() (amortization.Terms, error) {
	return amortization.LoanTerms(l.StartDate, l.PaymentFrequency, l.TermLength)
}

func (l Loan) Remaining() decimal.Decimal { return l.Amount.Sub(l.TotalFunded) }

// FundingStatus is the status the loan moves to once totalFunded is recorded.
// Only a PENDING loan can flip, and only to ACTIVE.
func (l Loan) FundingStatus(totalFunded decimal.Decimal) Status {
	if l.Status == StatusPending && totalFunded.GreaterThanOrEqual(l.Amount) {
		return StatusActive
	}
	return l.Status
}

// Cursor is the keyset position for borrower listings
// (created_at DESC, loan_id DESC).
type Cursor struct {
	CreatedAt time.Time
	LoanID    string
}
