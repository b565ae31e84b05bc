package participant

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("participant not found")
	ErrStaleVersion = errors.New("participant: stale version")
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusDeclined Status = "DECLINED"
)

// AcceptStep is the persisted cursor of the accept saga.
type AcceptStep string

const (
	StepNone      AcceptStep = "none"
	StepClaimed   AcceptStep = "claimed"
	StepFunded    AcceptStep = "funded"
	StepCompleted AcceptStep = "completed"
)

type Participant struct {
	LoanID             string              `gorm:"column:loan_id;primaryKey;size:36"`
	LenderKind         Kind                `gorm:"column:lender_kind;primaryKey;size:16;index:idx_participants_lender,priority:1"`
	LenderRef          string              `gorm:"column:lender_ref;primaryKey;size:255;index:idx_participants_lender,priority:2"`
	ContributionAmount decimal.Decimal     `gorm:"column:contribution_amount;type:decimal(18,2);not null"`
	Status             Status              `gorm:"column:status;size:16;not null"`
	InvitedAt          time.Time           `gorm:"column:invited_at;not null"`
	RespondedAt        *time.Time          `gorm:"column:responded_at"`
	TotalPaid          decimal.NullDecimal `gorm:"column:total_paid;type:decimal(18,2)"`
	RemainingBalance   decimal.NullDecimal `gorm:"column:remaining_balance;type:decimal(18,2)"`
	AcceptStep         AcceptStep          `gorm:"column:accept_step;size:16;not null;index:idx_participants_step,priority:1"`
	Version            int64               `gorm:"column:version;not null"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime;index:idx_participants_step,priority:2"`
}

func (Participant) TableName() string { return "loan_participants" }

func New(loanID string, id Identity, contribution decimal.Decimal, invitedAt time.Time) *Participant {
	p := &Participant{
		LoanID:             loanID,
		ContributionAmount: contribution,
		Status:             StatusPending,
		InvitedAt:          invitedAt.UTC(),
		AcceptStep:         StepNone,
	}
	p.SetIdentity(id)
	return p
}

// Identity decodes the persisted variant. Rows are only ever written through
// SetIdentity, so an unknown kind is a programming error.
func (p Participant) Identity() Identity {
	id, err := Decode(p.LenderKind, p.LenderRef)
	if err != nil {
		panic(err)
	}
	return id
}

func (p *Participant) SetIdentity(id Identity) {
	p.LenderKind, p.LenderRef = Encode(id)
}

func (p Participant) IsSentinel() bool { return p.LenderKind == KindPending }

// Paid returns total_paid, treating an unset value as zero.
func (p Participant) Paid() decimal.Decimal {
	if p.TotalPaid.Valid {
		return p.TotalPaid.Decimal
	}
	return decimal.Zero
}

// Remaining returns remaining_balance, defaulting to the unpaid contribution.
func (p Participant) Remaining() decimal.Decimal {
	if p.RemainingBalance.Valid {
		return p.RemainingBalance.Decimal
	}
	return p.ContributionAmount.Sub(p.Paid())
}

// SumContributions totals contributions across every status.
func SumContributions(ps []Participant) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range ps {
		sum = sum.Add(p.ContributionAmount)
	}
	return sum
}

// SumAccepted totals contributions of ACCEPTED rows.
func SumAccepted(ps []Participant) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range ps {
		if p.Status == StatusAccepted {
			sum = sum.Add(p.ContributionAmount)
		}
	}
	return sum
}
