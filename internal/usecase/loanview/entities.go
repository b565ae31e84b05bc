package loanview

import (
	"multilend/internal/domain/amortization"
	"multilend/internal/domain/loan"
	"multilend/internal/usecase/aggregate"
	loanuc "multilend/internal/usecase/loan"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleBorrower Role = "borrower"
	RoleLender   Role = "lender"
)

const (
	lenderDisclaimer   = "These calculations are estimates for informational purposes only. Your actual returns, payment schedule and terms are set by your signed agreement with the borrower."
	borrowerDisclaimer = "Estimates for informational purposes only. Your lenders will provide final payment amounts and terms."
)

// LoanDetails is the role-projected view of one loan. Participants is empty
// for a lender; UserParticipation is nil for the borrower.
type LoanDetails struct {
	loanuc.LoanDTO
	BorrowerName           string                  `json:"borrower_name"`
	Role                   Role                    `json:"role"`
	FundingProgress        loan.FundingProgress    `json:"funding_progress"`
	Invites                *loan.InviteSummary     `json:"invites,omitempty"`
	UserParticipation      *UserParticipation      `json:"user_participation"`
	BorrowerPaymentDetails *BorrowerPaymentDetails `json:"borrower_payment_details"`
	Participants           []aggregate.Entry       `json:"participants"`
}

// UserParticipation is the requesting lender's own share and projection.
type UserParticipation struct {
	aggregate.Entry
	amortization.Payments
	Schedule   []amortization.Installment `json:"amortization_schedule"`
	Disclaimer string                     `json:"disclaimer"`
}

type LenderPayment struct {
	LenderID           string          `json:"lender_id"`
	LenderName         string          `json:"lender_name"`
	LenderEmail        string          `json:"lender_email"`
	ContributionAmount decimal.Decimal `json:"contribution_amount"`
	PaymentAmount      decimal.Decimal `json:"payment_amount"`
	Status             string          `json:"status"`
	ACH                *aggregate.ACH  `json:"ach_details,omitempty"`
}

type BorrowerPaymentDetails struct {
	TotalPaymentAmount decimal.Decimal        `json:"total_payment_amount"`
	TotalInterest      decimal.Decimal        `json:"total_interest"`
	TotalRepayment     decimal.Decimal        `json:"total_repayment"`
	PaymentFrequency   amortization.Frequency `json:"payment_frequency"`
	TotalPayments      int                    `json:"total_payments"`
	PaymentDates       []string               `json:"payment_dates"`
	LenderPayments     []LenderPayment        `json:"lender_payments"`
	Disclaimer         string                 `json:"disclaimer"`
}
