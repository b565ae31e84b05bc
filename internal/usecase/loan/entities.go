package loan

import (
	"time"

	"multilend/internal/domain/amortization"
	"multilend/internal/domain/loan"
	"multilend/internal/usecase/aggregate"

	"github.com/shopspring/decimal"
)

type LenderInput struct {
	Email              string          `json:"email"`
	ContributionAmount decimal.Decimal `json:"contribution_amount"`
}

type CreateLoanInput struct {
	LoanName         string                 `json:"loan_name"`
	Amount           decimal.Decimal        `json:"amount"`
	InterestRate     decimal.Decimal        `json:"interest_rate"`
	StartDate        string                 `json:"start_date"`
	PaymentFrequency amortization.Frequency `json:"payment_frequency"`
	TermLength       int                    `json:"term_length"`
	Purpose          string                 `json:"purpose"`
	Description      string                 `json:"description"`
	Lenders          []LenderInput          `json:"lenders"`
}

type ACHInput struct {
	BankName            string `json:"bank_name"`
	AccountType         string `json:"account_type"`
	RoutingNumber       string `json:"routing_number"`
	AccountNumber       string `json:"account_number"`
	SpecialInstructions string `json:"special_instructions"`
}

type MaturityTerms struct {
	StartDate        string                 `json:"start_date"`
	PaymentFrequency amortization.Frequency `json:"payment_frequency"`
	TermLength       int                    `json:"term_length"`
	MaturityDate     string                 `json:"maturity_date"`
	TotalPayments    int                    `json:"total_payments"`
}

type LoanDTO struct {
	LoanID        string          `json:"loan_id"`
	LoanName      string          `json:"loan_name"`
	BorrowerID    string          `json:"borrower_id"`
	Amount        decimal.Decimal `json:"amount"`
	InterestRate  decimal.Decimal `json:"interest_rate"`
	MaturityTerms MaturityTerms   `json:"maturity_terms"`
	Purpose       string          `json:"purpose"`
	Description   string          `json:"description"`
	Status        loan.Status     `json:"status"`
	TotalFunded   decimal.Decimal `json:"total_funded"`
	CreatedAt     time.Time       `json:"created_at"`
}

func ToDTO(l loan.Loan) LoanDTO {
	return LoanDTO{
		LoanID:       l.LoanID,
		LoanName:     l.LoanName,
		BorrowerID:   l.BorrowerID,
		Amount:       l.Amount,
		InterestRate: l.InterestRate,
		MaturityTerms: MaturityTerms{
			StartDate:        l.StartDate.Format(amortization.DateLayout),
			PaymentFrequency: l.PaymentFrequency,
			TermLength:       l.TermLength,
			MaturityDate:     l.MaturityDate.Format(amortization.DateLayout),
			TotalPayments:    l.TotalPayments,
		},
		Purpose:     l.Purpose,
		Description: l.Description,
		Status:      l.Status,
		TotalFunded: l.TotalFunded,
		CreatedAt:   l.CreatedAt,
	}
}

type CreateLoanOutput struct {
	LoanDTO
	InvitationsCreated  int `json:"invitations_created"`
	ParticipantsCreated int `json:"participants_created"`
}

type AddLendersOutput struct {
	LoanID              string          `json:"loan_id"`
	LendersAdded        int             `json:"lenders_added"`
	InvitationsCreated  int             `json:"invitations_created"`
	ParticipantsCreated int             `json:"participants_created"`
	TotalInvited        decimal.Decimal `json:"total_invited"`
	Remaining           decimal.Decimal `json:"remaining"`
	IsFullyInvited      bool            `json:"is_fully_invited"`
	Error               string          `json:"error,omitempty"`
}

type AcceptOutput struct {
	LoanID             string          `json:"loan_id"`
	Status             string          `json:"status"`
	LoanStatus         loan.Status     `json:"loan_status"`
	ContributionAmount decimal.Decimal `json:"contribution_amount"`
	AcceptedAt         time.Time       `json:"accepted_at"`
}

type DeclineOutput struct {
	LoanID     string    `json:"loan_id"`
	Status     string    `json:"status"`
	DeclinedAt time.Time `json:"declined_at"`
}

// LoanSummary is one row of a borrower's portfolio.
type LoanSummary struct {
	LoanDTO
	Term                 string               `json:"term"`
	ParticipantCount     int                  `json:"participant_count"`
	AcceptedParticipants int                  `json:"accepted_participants"`
	FundingProgress      loan.FundingProgress `json:"funding_progress"`
	Invites              loan.InviteSummary   `json:"invites"`
	Participants         []aggregate.Entry    `json:"participants"`
}

type LoanPage struct {
	Loans     []LoanSummary `json:"loans"`
	Count     int           `json:"count"`
	NextToken string        `json:"next_token,omitempty"`
}

// PendingInvitation is what a lender sees of a loan they have not answered.
type PendingInvitation struct {
	LoanID             string          `json:"loan_id"`
	LoanName           string          `json:"loan_name"`
	LoanAmount         decimal.Decimal `json:"loan_amount"`
	LoanPurpose        string          `json:"loan_purpose"`
	LoanDescription    string          `json:"loan_description"`
	InterestRate       decimal.Decimal `json:"interest_rate"`
	MaturityTerms      MaturityTerms   `json:"maturity_terms"`
	BorrowerName       string          `json:"borrower_name"`
	ContributionAmount decimal.Decimal `json:"contribution_amount"`
	InvitedAt          time.Time       `json:"invited_at"`
	Status             string          `json:"status"`
	LoanStatus         loan.Status     `json:"loan_status"`
	TotalFunded        decimal.Decimal `json:"total_funded"`
	FundingPercentage  decimal.Decimal `json:"funding_percentage"`
}
