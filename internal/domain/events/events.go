package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Routing keys on the ledger exchange.
const (
	LenderInvited    = "lender.invited"
	LoanActivated    = "loan.activated"
	LoanFailed       = "loan.failed"
	PaymentSubmitted = "payment.submitted"
	PaymentApproved  = "payment.approved"
	PaymentRejected  = "payment.rejected"

	// consumed from the auth service
	AccountRegistered = "account.registered"
	AccountLoggedIn   = "account.logged_in"
)

// Publisher emits ledger events. Publishing is best effort; callers log and
// carry on when it fails.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type LenderInvitedEvent struct {
	LoanID       string          `json:"loan_id"`
	BorrowerID   string          `json:"borrower_id"`
	Email        string          `json:"email"`
	Registered   bool            `json:"registered"`
	Contribution decimal.Decimal `json:"contribution_amount"`
	InvitedAt    time.Time       `json:"invited_at"`
}

type LoanStatusEvent struct {
	LoanID      string          `json:"loan_id"`
	BorrowerID  string          `json:"borrower_id"`
	Status      string          `json:"status"`
	TotalFunded decimal.Decimal `json:"total_funded"`
	At          time.Time       `json:"at"`
}

type PaymentEvent struct {
	PaymentID  string          `json:"payment_id"`
	LoanID     string          `json:"loan_id"`
	BorrowerID string          `json:"borrower_id"`
	LenderID   string          `json:"lender_id"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	At         time.Time       `json:"at"`
}

// AccountEvent is published by the auth service on registration and login.
type AccountEvent struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, string, any) error { return nil }
