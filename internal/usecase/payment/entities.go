package payment

import "github.com/shopspring/decimal"

type SubmitInput struct {
	LoanID      string          `json:"loan_id"`
	LenderID    string          `json:"lender_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"`
	Notes       string          `json:"notes"`
	ReceiptKey  string          `json:"receipt_key"`
}
