package portfolio

import (
	"time"

	"multilend/internal/domain/loan"
	"multilend/internal/domain/participant"
	loanuc "multilend/internal/usecase/loan"

	"github.com/shopspring/decimal"
)

// Investment is one loan a lender put money into.
type Investment struct {
	LoanID   string          `json:"loan_id"`
	LoanName string          `json:"loan_name"`
	Amount   decimal.Decimal `json:"amount"`
	APR      decimal.Decimal `json:"apr"`
	Status   loan.Status     `json:"status"`
}

type LenderStats struct {
	InvestmentCount   int             `json:"investment_count"`
	TotalInvested     decimal.Decimal `json:"total_invested"`
	AverageInvestment decimal.Decimal `json:"average_investment"`
	AverageAPR        decimal.Decimal `json:"average_apr"`
}

// PastLender is a lender who accepted at least one of the borrower's loans.
type PastLender struct {
	LenderID       string      `json:"lender_id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Stats          LenderStats `json:"stats"`
	LastInvestment *Investment `json:"last_investment"`
}

type LenderSearch struct {
	Lenders    []PastLender `json:"lenders"`
	TotalCount int          `json:"total_count"`
}

// PortfolioItem is one participation of the requesting lender.
type PortfolioItem struct {
	LoanID                string               `json:"loan_id"`
	LoanName              string               `json:"loan_name"`
	BorrowerName          string               `json:"borrower_name"`
	LoanAmount            decimal.Decimal      `json:"loan_amount"`
	ContributionAmount    decimal.Decimal      `json:"contribution_amount"`
	InterestRate          decimal.Decimal      `json:"interest_rate"`
	MaturityTerms         loanuc.MaturityTerms `json:"maturity_terms"`
	Purpose               string               `json:"purpose"`
	Description           string               `json:"description"`
	LoanStatus            loan.Status          `json:"loan_status"`
	ParticipationStatus   participant.Status   `json:"participation_status"`
	InvitedAt             time.Time            `json:"invited_at"`
	RespondedAt           *time.Time           `json:"responded_at,omitempty"`
	TotalFunded           decimal.Decimal      `json:"total_funded"`
	FundingPercentage     decimal.Decimal      `json:"funding_percentage"`
	TotalPaid             decimal.Decimal      `json:"total_paid"`
	RemainingBalance      decimal.Decimal      `json:"remaining_balance"`
	ExpectedAnnualReturn  decimal.Decimal      `json:"expected_annual_return"`
	ExpectedMonthlyReturn decimal.Decimal      `json:"expected_monthly_return"`
	CreatedAt             time.Time            `json:"created_at"`
}

type PortfolioSummary struct {
	TotalInvested        decimal.Decimal `json:"total_invested"`
	TotalExpectedReturns decimal.Decimal `json:"total_expected_returns"`
	TotalReceived        decimal.Decimal `json:"total_received"`
	PendingInvitations   int             `json:"pending_invitations"`
	ActiveInvestments    int             `json:"active_investments"`
}

type Portfolio struct {
	Items      []PortfolioItem  `json:"portfolio"`
	TotalCount int              `json:"total_count"`
	Summary    PortfolioSummary `json:"summary"`
}

type BorrowerDashboard struct {
	ActiveLoans         int             `json:"active_loans"`
	TotalBorrowed       decimal.Decimal `json:"total_borrowed"`
	PendingRequests     int             `json:"pending_requests"`
	AverageInterestRate decimal.Decimal `json:"average_interest_rate"`
}

type LenderDashboard struct {
	PendingInvitations int             `json:"pending_invitations"`
	ActiveInvestments  int             `json:"active_investments"`
	TotalLent          decimal.Decimal `json:"total_lent"`
	ExpectedReturns    decimal.Decimal `json:"expected_returns"`
}

// Dashboard always carries the borrower section. Lender is nil for someone
// who was never invited and is not marked as a lender.
type Dashboard struct {
	Borrower *BorrowerDashboard `json:"borrower"`
	Lender   *LenderDashboard   `json:"lender,omitempty"`
}
