package http

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDecimalRules(t *testing.T) {
	type P struct {
		Amount decimal.Decimal `json:"amount" validate:"dpos,dec2"`
	}
	cv := NewValidator()

	for _, s := range []string{"0.01", "1", "2500.5", "99999.99"} {
		if err := cv.Validate(P{Amount: decimal.RequireFromString(s)}); err != nil {
			t.Fatalf("expected %s valid, got %v", s, err)
		}
	}

	cases := []struct {
		in   string
		want string
	}{
		{"0", "must be a positive amount"},
		{"-10", "must be a positive amount"},
		{"10.001", "must have at most 2 decimal places"},
		{"0.125", "must have at most 2 decimal places"},
	}
	for _, tc := range cases {
		err := cv.Validate(P{Amount: decimal.RequireFromString(tc.in)})
		if err == nil {
			t.Fatalf("expected error for %s", tc.in)
		}
		if fe := ToFieldErrors(err); !containsFieldMsg(fe, "amount", tc.want) {
			t.Fatalf("%s: expected %q on amount, got %+v", tc.in, tc.want, fe)
		}
	}
}

func TestFieldNamesFollowJSONTags(t *testing.T) {
	cv := NewValidator()
	err := cv.Validate(createLoanReq{
		Amount:           decimal.NewFromInt(1000),
		InterestRate:     decimal.NewFromFloat(5.5),
		StartDate:        "01/06/2030",
		PaymentFrequency: "Daily",
		TermLength:       12,
		Purpose:          "Home",
		Description:      "Kitchen",
		Lenders: []lenderReq{
			{Email: "not-an-email", ContributionAmount: decimal.NewFromInt(500)},
		},
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	fe := ToFieldErrors(err)
	for _, want := range []struct{ field, msg string }{
		{"loan_name", "is required"},
		{"start_date", "YYYY-MM-DD"},
		{"payment_frequency", "must be one of"},
		{"lenders[0].email", "valid email"},
	} {
		if !containsFieldMsg(fe, want.field, want.msg) {
			t.Fatalf("expected %q on %s, got %+v", want.msg, want.field, fe)
		}
	}
}

func TestAcceptRules(t *testing.T) {
	cv := NewValidator()
	ok := acceptReq{BankName: "First Bank", AccountType: "checking", RoutingNumber: "021000021", AccountNumber: "12345678"}
	if err := cv.Validate(ok); err != nil {
		t.Fatalf("expected valid ACH body, got %v", err)
	}

	bad := ok
	bad.RoutingNumber = "02100002"
	bad.AccountNumber = "12ab"
	bad.AccountType = "brokerage"
	fe := ToFieldErrors(cv.Validate(bad))
	if !containsFieldMsg(fe, "routing_number", "exactly 9") ||
		!containsFieldMsg(fe, "account_number", "digits only") ||
		!containsFieldMsg(fe, "account_type", "checking savings") {
		t.Fatalf("unexpected field errors: %+v", fe)
	}
}

func TestAddLendersBounds(t *testing.T) {
	cv := NewValidator()
	if fe := ToFieldErrors(cv.Validate(addLendersReq{})); !containsFieldMsg(fe, "lenders", "is required") {
		t.Fatalf("empty lenders: %+v", fe)
	}
	many := make([]lenderReq, 21)
	for i := range many {
		many[i] = lenderReq{Email: "a@x.io", ContributionAmount: decimal.NewFromInt(1)}
	}
	if fe := ToFieldErrors(cv.Validate(addLendersReq{Lenders: many})); !containsFieldMsg(fe, "lenders", "at most 20") {
		t.Fatalf("21 lenders: %+v", fe)
	}
}

func TestToFieldErrors_NonValidationError(t *testing.T) {
	fe := ToFieldErrors(errors.New("boom"))
	if len(fe) != 1 || fe[0].Field != "_" || fe[0].Message != "boom" {
		t.Fatalf("unexpected: %+v", fe)
	}
}
