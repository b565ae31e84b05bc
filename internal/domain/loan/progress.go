package loan

import (
	"multilend/internal/domain/participant"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FundingProgress is visible to every party of a loan.
type FundingProgress struct {
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TotalFunded     decimal.Decimal `json:"total_funded"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Percentage      decimal.Decimal `json:"percentage"`
	IsFullyFunded   bool            `json:"is_fully_funded"`
}

func (l Loan) Progress() FundingProgress {
	pct := decimal.Zero
	if l.Amount.IsPositive() {
		pct = l.TotalFunded.Div(l.Amount).Mul(hundred).Round(2)
	}
	return FundingProgress{
		TotalAmount:     l.Amount,
		TotalFunded:     l.TotalFunded,
		RemainingAmount: l.Remaining(),
		Percentage:      pct,
		IsFullyFunded:   l.TotalFunded.GreaterThanOrEqual(l.Amount),
	}
}

// InviteSummary is the borrower-only breakdown of invited contributions.
// Declined rows still count toward TotalInvited.
type InviteSummary struct {
	TotalInvited  decimal.Decimal `json:"total_invited"`
	Uninvited     decimal.Decimal `json:"uninvited_amount"`
	Participants  int             `json:"total_participants"`
	Accepted      int             `json:"accepted_participants"`
	Pending       int             `json:"pending_participants"`
	Declined      int             `json:"declined_participants"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
}

func (l Loan) Invites(ps []participant.Participant) InviteSummary {
	s := InviteSummary{TotalInvited: participant.SumContributions(ps), PendingAmount: decimal.Zero, Participants: len(ps)}
	for _, p := range ps {
		switch p.Status {
		case participant.StatusAccepted:
			s.Accepted++
		case participant.StatusPending:
			s.Pending++
			s.PendingAmount = s.PendingAmount.Add(p.ContributionAmount)
		case participant.StatusDeclined:
			s.Declined++
		}
	}
	s.Uninvited = l.Amount.Sub(s.TotalInvited)
	return s
}
