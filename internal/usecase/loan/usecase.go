package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"multilend/internal/apperr"
	"multilend/internal/domain/account"
	"multilend/internal/domain/ach"
	"multilend/internal/domain/amortization"
	"multilend/internal/domain/events"
	"multilend/internal/domain/loan"
	"multilend/internal/domain/participant"
	"multilend/internal/usecase/aggregate"
	"multilend/internal/usecase/identity"
	"multilend/pkg/id"

	"github.com/shopspring/decimal"
)

const (
	MaxLenders = 20

	fundingRetries = 3
)

var (
	minAmount = decimal.NewFromInt(1000)
	maxAmount = decimal.NewFromInt(1_000_000)
	minRate   = decimal.RequireFromString("0.01")
	maxRate   = decimal.NewFromInt(50)
)

// Identity is the part of identity resolution the ledger drives.
type Identity interface {
	InviteAll(ctx context.Context, loanID, borrowerID string, invitees []identity.Invitee, now time.Time) identity.InviteResult
	Activate(ctx context.Context, email, accountID string, now time.Time) identity.ActivationResult
}

// Usecase is the funding ledger: loan creation, invitations and the
// accept/decline lifecycle of each participant.
type Usecase struct {
	loans        loan.Repository
	participants participant.Repository
	ach          ach.Repository
	identity     Identity
	agg          *aggregate.Aggregator
	pub          events.Publisher
	log          *slog.Logger
	now          func() time.Time
}

func NewUsecase(loans loan.Repository, participants participant.Repository, achRepo ach.Repository, ident Identity, agg *aggregate.Aggregator, pub events.Publisher, log *slog.Logger) *Usecase {
	if pub == nil {
		pub = events.Discard{}
	}
	return &Usecase{
		loans:        loans,
		participants: participants,
		ach:          achRepo,
		identity:     ident,
		agg:          agg,
		pub:          pub,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateLoan persists a PENDING loan and invites its lenders. When any
// invitation fails the loan is kept but marked FAILED, and the returned
// error carries its id.
func (u *Usecase) CreateLoan(ctx context.Context, req account.Requester, in CreateLoanInput) (*CreateLoanOutput, error) {
	now := u.now()
	if problems := validateCreate(req, in, now); len(problems) > 0 {
		return nil, apperr.Validation(strings.Join(problems, "; "))
	}

	start, _ := time.Parse(amortization.DateLayout, in.StartDate)
	terms, err := amortization.LoanTerms(start, in.PaymentFrequency, in.TermLength)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	l := &loan.Loan{
		LoanID:           id.NewID(),
		BorrowerID:       req.AccountID,
		LoanName:         strings.TrimSpace(in.LoanName),
		Amount:           in.Amount,
		InterestRate:     in.InterestRate,
		StartDate:        start,
		PaymentFrequency: in.PaymentFrequency,
		TermLength:       in.TermLength,
		MaturityDate:     terms.MaturityDate,
		TotalPayments:    terms.TotalPayments,
		Purpose:          strings.TrimSpace(in.Purpose),
		Description:      strings.TrimSpace(in.Description),
		Status:           loan.StatusPending,
		TotalFunded:      decimal.Zero,
		InvitedTotal:     sumLenders(in.Lenders),
		CreatedAt:        now,
	}
	if err := u.loans.Create(ctx, l); err != nil {
		return nil, err
	}
	u.log.Info("loan created", "loan_id", l.LoanID, "borrower_id", l.BorrowerID, "amount", l.Amount.String())

	res := u.identity.InviteAll(ctx, l.LoanID, l.BorrowerID, invitees(in.Lenders), now)
	if res.Err != nil {
		return nil, u.failLoan(ctx, l, res)
	}

	return &CreateLoanOutput{
		LoanDTO:             ToDTO(*l),
		InvitationsCreated:  res.InvitationsCreated,
		ParticipantsCreated: res.ParticipantsCreated,
	}, nil
}

func (u *Usecase) failLoan(ctx context.Context, l *loan.Loan, res identity.InviteResult) error {
	if err := u.loans.SetStatus(ctx, l.LoanID, l.Version, loan.StatusFailed); err != nil {
		u.log.Error("could not mark loan failed", "loan_id", l.LoanID, "error", err)
	} else {
		u.publish(ctx, events.LoanFailed, events.LoanStatusEvent{
			LoanID: l.LoanID, BorrowerID: l.BorrowerID, Status: string(loan.StatusFailed), TotalFunded: l.TotalFunded, At: u.now(),
		})
	}
	kind := apperr.KindUnexpected
	if apperr.IsTransient(res.Err) {
		kind = apperr.KindOf(res.Err)
	}
	return &apperr.Error{
		Kind:    kind,
		Message: fmt.Sprintf("loan %s was created but %s; it has been marked FAILED", l.LoanID, res.Error),
		LoanID:  l.LoanID,
		Err:     res.Err,
	}
}

// AddLenders invites more lenders to a PENDING loan owned by the caller.
// Nothing is written unless the whole batch is acceptable.
func (u *Usecase) AddLenders(ctx context.Context, req account.Requester, loanID string, lenders []LenderInput) (*AddLendersOutput, error) {
	l, err := u.ownedLoan(ctx, req, loanID, "Only the loan creator can add lenders")
	if err != nil {
		return nil, err
	}
	if l.Status != loan.StatusPending {
		return nil, apperr.Conflict(fmt.Sprintf("Cannot add lenders to %s loan. Only PENDING loans can be modified.", l.Status))
	}
	if len(lenders) == 0 {
		return nil, apperr.Validation("No lenders provided")
	}
	if problems := validateLenders(req, lenders, l.Amount); len(problems) > 0 {
		return nil, apperr.Validation(strings.Join(problems, "; "))
	}

	batch := sumLenders(lenders)
	var total decimal.Decimal
	for attempt := 1; ; attempt++ {
		if total, err = u.reserveInvites(ctx, l, lenders, batch); err == nil {
			break
		}
		if !errors.Is(err, loan.ErrStaleVersion) {
			break
		}
		if attempt == fundingRetries {
			return nil, apperr.Conflict("Loan changed while lenders were being added; retry")
		}
		if l, err = u.loans.GetByLoanID(ctx, loanID); err != nil {
			break
		}
		if l.Status != loan.StatusPending {
			return nil, apperr.Conflict(fmt.Sprintf("Cannot add lenders to %s loan. Only PENDING loans can be modified.", l.Status))
		}
	}
	if errors.Is(err, loan.ErrNotFound) {
		return nil, apperr.NotFound("Loan not found")
	}
	if err != nil {
		return nil, err
	}

	res := u.identity.InviteAll(ctx, loanID, l.BorrowerID, invitees(lenders), u.now())
	return &AddLendersOutput{
		LoanID:              loanID,
		LendersAdded:        len(lenders),
		InvitationsCreated:  res.InvitationsCreated,
		ParticipantsCreated: res.ParticipantsCreated,
		TotalInvited:        total,
		Remaining:           l.Amount.Sub(total),
		IsFullyInvited:      total.GreaterThanOrEqual(l.Amount),
		Error:               res.Error,
	}, nil
}

// reserveInvites checks the batch against the loan and moves the loan's
// invited total to include it, at the version l was read at. Rows of a
// partially failed batch stay counted in invited_total.
func (u *Usecase) reserveInvites(ctx context.Context, l *loan.Loan, lenders []LenderInput, batch decimal.Decimal) (decimal.Decimal, error) {
	existing, err := u.participants.ListByLoan(ctx, l.LoanID)
	if err != nil {
		return decimal.Zero, err
	}
	invited, err := u.invitedEmails(ctx, existing)
	if err != nil {
		return decimal.Zero, err
	}
	for _, in := range lenders {
		if email := participant.NormalizeEmail(in.Email); invited[email] {
			return decimal.Zero, apperr.Validation(fmt.Sprintf("Lender %s is already invited to this loan", email))
		}
	}

	current := decimal.Max(l.InvitedTotal, participant.SumContributions(existing))
	total := current.Add(batch)
	if total.GreaterThan(l.Amount) {
		return decimal.Zero, apperr.Validation(fmt.Sprintf(
			"Total invitations (%s) would exceed loan amount (%s). Current invited: %s, Remaining available: %s",
			total.StringFixed(2), l.Amount.StringFixed(2), current.StringFixed(2), l.Amount.Sub(current).StringFixed(2)))
	}
	if err := u.loans.ReserveInvites(ctx, l.LoanID, l.Version, total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// invitedEmails returns the normalized email of every participant on the
// loan, under either identity variant.
func (u *Usecase) invitedEmails(ctx context.Context, ps []participant.Participant) (map[string]bool, error) {
	var ids []string
	out := map[string]bool{}
	for _, p := range ps {
		switch v := p.Identity().(type) {
		case participant.PendingInvite:
			out[v.Email] = true
		case participant.Registered:
			ids = append(ids, v.AccountID)
		}
	}
	accounts, err := u.agg.Accounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, acc := range accounts {
		out[participant.NormalizeEmail(acc.Email)] = true
	}
	return out, nil
}

func (u *Usecase) ownedLoan(ctx context.Context, req account.Requester, loanID, forbidden string) (*loan.Loan, error) {
	l, err := u.loans.GetByLoanID(ctx, loanID)
	if errors.Is(err, loan.ErrNotFound) {
		return nil, apperr.NotFound("Loan not found")
	}
	if err != nil {
		return nil, err
	}
	if l.BorrowerID != req.AccountID {
		return nil, apperr.Forbidden(forbidden)
	}
	return l, nil
}

func (u *Usecase) publish(ctx context.Context, key string, payload any) {
	if err := u.pub.Publish(ctx, key, payload); err != nil {
		u.log.Warn("event publish failed", "routing_key", key, "error", err)
	}
}

func validateCreate(req account.Requester, in CreateLoanInput, now time.Time) []string {
	var problems []string
	if name := strings.TrimSpace(in.LoanName); name == "" || len(name) > 255 {
		problems = append(problems, "Loan name must be between 1 and 255 characters")
	}
	if in.Amount.LessThan(minAmount) || in.Amount.GreaterThan(maxAmount) {
		problems = append(problems, "Amount must be between 1000 and 1000000")
	}
	if in.InterestRate.LessThan(minRate) || in.InterestRate.GreaterThan(maxRate) {
		problems = append(problems, "Interest rate must be between 0.01 and 50 percent")
	}
	problems = append(problems, amortization.ValidateTerms(in.StartDate, in.PaymentFrequency, in.TermLength, now)...)
	if p := strings.TrimSpace(in.Purpose); p == "" || len(p) > 100 {
		problems = append(problems, "Purpose must be between 1 and 100 characters")
	}
	if d := strings.TrimSpace(in.Description); len(d) < 10 || len(d) > 1000 {
		problems = append(problems, "Description must be between 10 and 1000 characters")
	}
	return append(problems, validateLenders(req, in.Lenders, in.Amount)...)
}

// validateLenders checks a batch on its own: size, amounts, self-invites,
// duplicates within the batch and the batch total against the loan amount.
func validateLenders(req account.Requester, lenders []LenderInput, amount decimal.Decimal) []string {
	var problems []string
	if len(lenders) > MaxLenders {
		problems = append(problems, fmt.Sprintf("At most %d lenders can be invited at once", MaxLenders))
	}
	self := participant.NormalizeEmail(req.Email)
	seen := map[string]bool{}
	for _, in := range lenders {
		email := participant.NormalizeEmail(in.Email)
		switch {
		case email == "" || !strings.Contains(email, "@"):
			problems = append(problems, fmt.Sprintf("Invalid lender email: %q", in.Email))
			continue
		case self != "" && email == self:
			problems = append(problems, "You cannot invite yourself as a lender to your own loan")
		case seen[email]:
			problems = append(problems, fmt.Sprintf("Duplicate lender email: %s", email))
		}
		seen[email] = true
		if !in.ContributionAmount.IsPositive() {
			problems = append(problems, fmt.Sprintf("Contribution for %s must be positive", email))
		}
	}
	if total := sumLenders(lenders); total.GreaterThan(amount) {
		problems = append(problems, fmt.Sprintf("Total contributions (%s) exceed loan amount (%s)", total.StringFixed(2), amount.StringFixed(2)))
	}
	return problems
}

func sumLenders(lenders []LenderInput) decimal.Decimal {
	sum := decimal.Zero
	for _, in := range lenders {
		sum = sum.Add(in.ContributionAmount)
	}
	return sum
}

func invitees(lenders []LenderInput) []identity.Invitee {
	out := make([]identity.Invitee, len(lenders))
	for i, in := range lenders {
		out[i] = identity.Invitee{Email: in.Email, Contribution: in.ContributionAmount}
	}
	return out
}
