package loanview

import (
	"context"
	"errors"
	"log/slog"

	"multilend/internal/apperr"
	"multilend/internal/domain/account"
	"multilend/internal/domain/amortization"
	"multilend/internal/domain/loan"
	"multilend/internal/domain/participant"
	"multilend/internal/usecase/aggregate"
	loanuc "multilend/internal/usecase/loan"
)

// Projector serves loan details filtered by the requester's role. A lender
// never receives another lender's identity or amount.
type Projector struct {
	loans        loan.Repository
	participants participant.Repository
	agg          *aggregate.Aggregator
	log          *slog.Logger
}

func NewProjector(loans loan.Repository, participants participant.Repository, agg *aggregate.Aggregator, log *slog.Logger) *Projector {
	return &Projector{loans: loans, participants: participants, agg: agg, log: log}
}

func (p *Projector) GetLoanDetails(ctx context.Context, req account.Requester, loanID string) (*LoanDetails, error) {
	l, err := p.loans.GetByLoanID(ctx, loanID)
	if errors.Is(err, loan.ErrNotFound) {
		return nil, apperr.NotFound("Loan not found")
	}
	if err != nil {
		return nil, err
	}
	ps, err := p.participants.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	isBorrower := l.BorrowerID == req.AccountID
	own, isLender := ownRow(ps, req)
	if !isBorrower && !isLender {
		return nil, apperr.Forbidden("Access denied to this loan")
	}

	borrowers, err := p.agg.Accounts(ctx, []string{l.BorrowerID})
	if err != nil {
		return nil, err
	}
	out := &LoanDetails{
		LoanDTO:         loanuc.ToDTO(*l),
		BorrowerName:    aggregate.Unknown,
		FundingProgress: l.Progress(),
		Participants:    []aggregate.Entry{},
	}
	if b, ok := borrowers[l.BorrowerID]; ok {
		out.BorrowerName = b.Name
	}

	if isBorrower {
		err = p.borrowerView(ctx, l, ps, out)
	} else {
		err = p.lenderView(ctx, l, own, out)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Projector) borrowerView(ctx context.Context, l *loan.Loan, ps []participant.Participant, out *LoanDetails) error {
	entries, err := p.agg.Resolve(ctx, ps, true)
	if err != nil {
		return err
	}
	rows := make([]participant.Participant, len(entries))
	for i, e := range entries {
		rows[i] = e.Participant
	}
	invites := l.Invites(rows)
	out.Role = RoleBorrower
	out.Invites = &invites
	out.Participants = entries

	terms, err := l.Terms()
	if err != nil {
		p.log.Warn("loan terms unavailable", "loan_id", l.LoanID, "error", err)
	}
	details := &BorrowerPaymentDetails{
		PaymentFrequency: l.PaymentFrequency,
		TotalPayments:    l.TotalPayments,
		PaymentDates:     terms.ScheduleDates(),
		LenderPayments:   []LenderPayment{},
		Disclaimer:       borrowerDisclaimer,
	}
	var projections []amortization.Payments
	for _, e := range entries {
		if e.Participant.IsSentinel() || e.Status == participant.StatusDeclined {
			continue
		}
		proj := p.project(l, e.Participant)
		projections = append(projections, proj)
		details.LenderPayments = append(details.LenderPayments, LenderPayment{
			LenderID:           e.LenderID,
			LenderName:         e.LenderName,
			LenderEmail:        e.LenderEmail,
			ContributionAmount: e.ContributionAmount,
			PaymentAmount:      proj.PaymentAmount,
			Status:             string(e.Status),
			ACH:                e.ACH,
		})
	}
	total := amortization.BorrowerTotal(projections)
	details.TotalPaymentAmount = total.PaymentAmount
	details.TotalInterest = total.TotalInterest
	details.TotalRepayment = total.TotalRepayment
	out.BorrowerPaymentDetails = details
	return nil
}

func (p *Projector) lenderView(ctx context.Context, l *loan.Loan, own participant.Participant, out *LoanDetails) error {
	entries, err := p.agg.Resolve(ctx, []participant.Participant{own}, false)
	if err != nil {
		return err
	}
	if len(entries) != 1 {
		return apperr.Unexpected(errors.New("loanview: own participation did not resolve"))
	}
	proj := p.project(l, own)
	up := &UserParticipation{Entry: entries[0], Payments: proj, Disclaimer: lenderDisclaimer}
	if proj.PaymentAmount.IsPositive() {
		terms, _ := l.Terms()
		up.Schedule, err = amortization.Schedule(own.ContributionAmount, proj.PaymentAmount, l.AnnualRate(), l.PaymentFrequency, l.TotalPayments, terms.Schedule)
		if err != nil {
			p.log.Warn("amortization schedule unavailable", "loan_id", l.LoanID, "error", err)
		}
	}
	out.Role = RoleLender
	out.UserParticipation = up
	return nil
}

// project falls back to a zero projection so a bad stored term never hides
// the rest of the loan.
func (p *Projector) project(l *loan.Loan, row participant.Participant) amortization.Payments {
	proj, err := amortization.LenderPayments(row.ContributionAmount, l.AnnualRate(), l.TotalPayments, l.PaymentFrequency)
	if err != nil {
		p.log.Warn("lender projection unavailable", "loan_id", l.LoanID, "error", err)
		return amortization.Payments{}
	}
	return proj
}

// ownRow finds the requester's participation, preferring the Registered row
// over a sentinel for the same person.
func ownRow(ps []participant.Participant, req account.Requester) (participant.Participant, bool) {
	var found *participant.Participant
	for i := range ps {
		id := ps[i].Identity()
		if !participant.Matches(id, req.AccountID, req.Email) {
			continue
		}
		if _, reg := id.(participant.Registered); reg {
			return ps[i], true
		}
		if found == nil {
			found = &ps[i]
		}
	}
	if found == nil {
		return participant.Participant{}, false
	}
	return *found, true
}
