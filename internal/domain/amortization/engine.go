package amortization

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DateLayout = "2006-01-02"

	// internal precision for rate arithmetic before rounding to cents
	precision = 28
)

var (
	ErrInvalidFrequency = errors.New("amortization: invalid payment frequency")
	ErrInvalidInput     = errors.New("amortization: invalid input")

	hundred = decimal.NewFromInt(100)
)

// Terms are the loan-level values shared by every lender.
type Terms struct {
	MaturityDate  time.Time   `json:"maturity_date"`
	TotalPayments int         `json:"total_payments"`
	Schedule      []time.Time `json:"payment_schedule"`
}

// ScheduleDates renders the payment dates as ISO dates.
func (t Terms) ScheduleDates() []string {
	out := make([]string, len(t.Schedule))
	for i, d := range t.Schedule {
		out[i] = d.Format(DateLayout)
	}
	return out
}

// Payments is one lender's level-payment projection.
type Payments struct {
	PaymentAmount  decimal.Decimal `json:"payment_amount"`
	TotalInterest  decimal.Decimal `json:"total_interest"`
	TotalRepayment decimal.Decimal `json:"total_repayment"`
}

type Installment struct {
	Number              int             `json:"payment_number"`
	PaymentDate         string          `json:"payment_date,omitempty"`
	PaymentAmount       decimal.Decimal `json:"payment_amount"`
	Interest            decimal.Decimal `json:"interest"`
	Principal           decimal.Decimal `json:"principal"`
	Balance             decimal.Decimal `json:"balance"`
	CumulativeInterest  decimal.Decimal `json:"cumulative_interest"`
	CumulativePrincipal decimal.Decimal `json:"cumulative_principal"`
}

// TotalPayments returns round-half-even(payments_per_year * term_months / 12).
func TotalPayments(f Frequency, termMonths int) (int, error) {
	ppy := f.PaymentsPerYear()
	if ppy == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFrequency, f)
	}
	return int(math.RoundToEven(float64(ppy*termMonths) / 12)), nil
}

// LoanTerms derives maturity date, payment count and payment dates.
func LoanTerms(start time.Time, f Frequency, termMonths int) (Terms, error) {
	n, err := TotalPayments(f, termMonths)
	if err != nil {
		return Terms{}, err
	}
	if termMonths < 1 || n < 1 {
		return Terms{}, fmt.Errorf("%w: term of %d months yields no %s payments", ErrInvalidInput, termMonths, strings.ToLower(string(f)))
	}
	start = dateOnly(start)
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = f.nthDate(start, i)
	}
	return Terms{
		MaturityDate:  addMonths(start, termMonths),
		TotalPayments: n,
		Schedule:      dates,
	}, nil
}

// LenderPayments computes the level periodic payment for a contribution.
// annualRate is a fraction (0.085 for 8.5%).
func LenderPayments(contribution, annualRate decimal.Decimal, totalPayments int, f Frequency) (Payments, error) {
	switch {
	case !contribution.IsPositive():
		return Payments{}, fmt.Errorf("%w: contribution amount must be positive", ErrInvalidInput)
	case !annualRate.IsPositive():
		return Payments{}, fmt.Errorf("%w: interest rate must be positive", ErrInvalidInput)
	case totalPayments <= 0:
		return Payments{}, fmt.Errorf("%w: total payments must be positive", ErrInvalidInput)
	}
	r, err := periodicRate(annualRate, f)
	if err != nil {
		return Payments{}, err
	}
	payment := levelPayment(contribution, r, totalPayments).Round(2)
	repayment := payment.Mul(decimal.NewFromInt(int64(totalPayments)))
	return Payments{
		PaymentAmount:  payment,
		TotalInterest:  repayment.Sub(contribution).Round(2),
		TotalRepayment: repayment.Round(2),
	}, nil
}

// Schedule breaks a lender's payments into interest and principal per
// installment. The final installment pays off the remaining balance exactly.
// dates may be shorter than totalPayments; missing dates are left blank.
func Schedule(contribution, payment, annualRate decimal.Decimal, f Frequency, totalPayments int, dates []time.Time) ([]Installment, error) {
	if totalPayments <= 0 {
		return nil, fmt.Errorf("%w: total payments must be positive", ErrInvalidInput)
	}
	r, err := periodicRate(annualRate, f)
	if err != nil {
		return nil, err
	}

	out := make([]Installment, 0, totalPayments)
	balance := contribution
	var cumInterest, cumPrincipal decimal.Decimal
	for n := 1; n <= totalPayments; n++ {
		interest := balance.Mul(r)
		principal := payment.Sub(interest)
		actual := payment
		if n == totalPayments {
			principal = balance
			actual = balance.Add(interest)
		}
		balance = balance.Sub(principal)
		if balance.IsNegative() {
			balance = decimal.Zero
		}
		cumInterest = cumInterest.Add(interest)
		cumPrincipal = cumPrincipal.Add(principal)

		in := Installment{
			Number:              n,
			PaymentAmount:       actual.Round(2),
			Interest:            interest.Round(2),
			Principal:           principal.Round(2),
			Balance:             balance.Round(2),
			CumulativeInterest:  cumInterest.Round(2),
			CumulativePrincipal: cumPrincipal.Round(2),
		}
		if n <= len(dates) {
			in.PaymentDate = dates[n-1].Format(DateLayout)
		}
		out = append(out, in)
	}
	return out, nil
}

// BorrowerTotal sums lender projections. It is recomputed on every read.
func BorrowerTotal(lenders []Payments) Payments {
	var total Payments
	for _, p := range lenders {
		total.PaymentAmount = total.PaymentAmount.Add(p.PaymentAmount)
		total.TotalRepayment = total.TotalRepayment.Add(p.TotalRepayment)
		total.TotalInterest = total.TotalInterest.Add(p.TotalInterest)
	}
	total.PaymentAmount = total.PaymentAmount.Round(2)
	total.TotalRepayment = total.TotalRepayment.Round(2)
	total.TotalInterest = total.TotalInterest.Round(2)
	return total
}

// ValidateTerms returns human-readable problems with the maturity terms;
// an empty slice means the terms are acceptable. today is compared by date.
func ValidateTerms(startDate string, f Frequency, termMonths int, today time.Time) []string {
	var problems []string
	start, err := time.Parse(DateLayout, startDate)
	if err != nil {
		problems = append(problems, "Invalid start date format")
	} else if start.Before(dateOnly(today)) {
		problems = append(problems, "Start date cannot be in the past")
	}

	if !f.Valid() {
		problems = append(problems, fmt.Sprintf("Invalid payment frequency: %s", f))
	}
	if termMonths < 1 || termMonths > 60 {
		problems = append(problems, "Term length must be between 1 and 60 months")
	}
	if f.Valid() {
		n, _ := TotalPayments(f, termMonths)
		if n > maxPayments[f] {
			problems = append(problems, fmt.Sprintf("Too many %s payments for term length", strings.ToLower(string(f))))
		}
		if termMonths >= 1 && n < 1 {
			problems = append(problems, fmt.Sprintf("Term length too short for %s payments", strings.ToLower(string(f))))
		}
	}
	return problems
}

// PercentToRate converts a stored annual percentage (8.5) into a fraction.
func PercentToRate(pct decimal.Decimal) decimal.Decimal {
	return pct.DivRound(hundred, precision)
}

func periodicRate(annualRate decimal.Decimal, f Frequency) (decimal.Decimal, error) {
	ppy := f.PaymentsPerYear()
	if ppy == 0 {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidFrequency, f)
	}
	return annualRate.DivRound(decimal.NewFromInt(int64(ppy)), precision), nil
}

// levelPayment is P*r*(1+r)^n / ((1+r)^n - 1), or P/n when r is zero.
func levelPayment(principal, r decimal.Decimal, n int) decimal.Decimal {
	count := decimal.NewFromInt(int64(n))
	if r.IsZero() {
		return principal.DivRound(count, precision)
	}
	growth := powInt(decimal.NewFromInt(1).Add(r), n)
	num := principal.Mul(r).Mul(growth)
	return num.DivRound(growth.Sub(decimal.NewFromInt(1)), precision)
}

// powInt raises base to a non-negative integer power by squaring, keeping
// intermediate results at a fixed precision so digits do not grow unbounded.
func powInt(base decimal.Decimal, n int) decimal.Decimal {
	result := decimal.NewFromInt(1)
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Round(precision)
		}
		base = base.Mul(base).Round(precision)
		n >>= 1
	}
	return result
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
