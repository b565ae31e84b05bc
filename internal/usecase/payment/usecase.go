package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"multilend/internal/apperr"
	"multilend/internal/domain/account"
	"multilend/internal/domain/amortization"
	"multilend/internal/domain/events"
	"multilend/internal/domain/loan"
	"multilend/internal/domain/participant"
	"multilend/internal/domain/payment"
	"multilend/pkg/id"

	"github.com/shopspring/decimal"
)

const ledgerRetries = 3

// Usecase records borrower repayments and the lender's decision on each.
type Usecase struct {
	loans        loan.Repository
	participants participant.Repository
	payments     payment.Repository
	pub          events.Publisher
	log          *slog.Logger
	now          func() time.Time
}

func NewUsecase(loans loan.Repository, participants participant.Repository, payments payment.Repository, pub events.Publisher, log *slog.Logger) *Usecase {
	if pub == nil {
		pub = events.Discard{}
	}
	return &Usecase{
		loans:        loans,
		participants: participants,
		payments:     payments,
		pub:          pub,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Submit records a PENDING payment from the borrower to one accepted lender,
// capped at that lender's remaining balance.
func (u *Usecase) Submit(ctx context.Context, req account.Requester, in SubmitInput) (*payment.Payment, error) {
	if in.LoanID == "" || in.LenderID == "" || in.PaymentDate == "" {
		return nil, apperr.Validation("Missing required fields")
	}
	if !in.Amount.IsPositive() {
		return nil, apperr.Validation("Amount must be greater than 0")
	}
	paidOn, err := time.Parse(amortization.DateLayout, in.PaymentDate)
	if err != nil {
		return nil, apperr.Validation("payment_date must be YYYY-MM-DD")
	}

	l, err := u.getLoan(ctx, in.LoanID)
	if err != nil {
		return nil, err
	}
	if l.BorrowerID != req.AccountID {
		return nil, apperr.Forbidden("Only the borrower can submit payments")
	}
	p, err := u.participants.Get(ctx, in.LoanID, participant.Registered{AccountID: in.LenderID})
	if errors.Is(err, participant.ErrNotFound) {
		return nil, apperr.NotFound("Lender not found for this loan")
	}
	if err != nil {
		return nil, err
	}
	if p.Status != participant.StatusAccepted {
		return nil, apperr.Validation("Lender must have accepted the loan")
	}
	if remaining := p.Remaining(); in.Amount.GreaterThan(remaining) {
		return nil, apperr.Validation(fmt.Sprintf("Payment amount %s exceeds remaining balance %s", in.Amount.StringFixed(2), remaining.StringFixed(2)))
	}

	pay := &payment.Payment{
		PaymentID:   id.NewID(),
		LoanID:      in.LoanID,
		BorrowerID:  req.AccountID,
		LenderID:    in.LenderID,
		Amount:      in.Amount,
		PaymentDate: paidOn,
		Status:      payment.StatusPending,
		ReceiptKey:  strings.TrimSpace(in.ReceiptKey),
		Notes:       strings.TrimSpace(in.Notes),
		CreatedAt:   u.now(),
	}
	if err := u.payments.Create(ctx, pay); err != nil {
		return nil, err
	}
	u.log.Info("payment submitted", "payment_id", pay.PaymentID, "loan_id", pay.LoanID, "lender_id", pay.LenderID)
	u.publish(ctx, events.PaymentSubmitted, pay)
	return pay, nil
}

// Approve moves the payment to APPROVED and then brings the lender's
// total_paid and remaining_balance in line with their approved payments.
// A loan whose accepted balances are all repaid becomes COMPLETED.
func (u *Usecase) Approve(ctx context.Context, req account.Requester, paymentID, notes string) (*payment.Payment, error) {
	pay, err := u.pendingForLender(ctx, req, paymentID, "approve")
	if err != nil {
		return nil, err
	}
	p, err := u.participants.Get(ctx, pay.LoanID, participant.Registered{AccountID: pay.LenderID})
	if errors.Is(err, participant.ErrNotFound) {
		return nil, apperr.NotFound("Lender not found for this loan")
	}
	if err != nil {
		return nil, err
	}
	if pay.Amount.GreaterThan(p.Remaining()) {
		return nil, apperr.Conflict(fmt.Sprintf("Payment amount %s exceeds remaining balance %s", pay.Amount.StringFixed(2), p.Remaining().StringFixed(2)))
	}

	if err := u.resolve(ctx, pay, payment.Resolution{Status: payment.StatusApproved, ApprovalNotes: strings.TrimSpace(notes), At: u.now()}); err != nil {
		return nil, err
	}
	if err := u.syncRepayments(ctx, pay.LoanID, pay.LenderID); err != nil {
		u.log.Error("payment approved but ledger not updated", "payment_id", pay.PaymentID, "loan_id", pay.LoanID, "error", err)
		return nil, err
	}
	u.completeIfRepaid(ctx, pay.LoanID)
	u.publish(ctx, events.PaymentApproved, pay)
	return pay, nil
}

// Reject is audit only: the ledger is not touched.
func (u *Usecase) Reject(ctx context.Context, req account.Requester, paymentID, reason string) (*payment.Payment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("Rejection reason is required")
	}
	pay, err := u.pendingForLender(ctx, req, paymentID, "reject")
	if err != nil {
		return nil, err
	}
	if err := u.resolve(ctx, pay, payment.Resolution{Status: payment.StatusRejected, RejectionReason: reason, At: u.now()}); err != nil {
		return nil, err
	}
	u.publish(ctx, events.PaymentRejected, pay)
	return pay, nil
}

func (u *Usecase) Get(ctx context.Context, req account.Requester, paymentID string) (*payment.Payment, error) {
	pay, err := u.getPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if req.AccountID != pay.BorrowerID && req.AccountID != pay.LenderID {
		return nil, apperr.Forbidden("Not authorized to view this payment")
	}
	return pay, nil
}

// ListByLoan returns every payment to the borrower and only their own to a
// lender, newest first.
func (u *Usecase) ListByLoan(ctx context.Context, req account.Requester, loanID string) ([]payment.Payment, error) {
	l, err := u.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	isBorrower := l.BorrowerID == req.AccountID
	if !isBorrower {
		_, err := u.participants.Get(ctx, loanID, participant.Registered{AccountID: req.AccountID})
		if errors.Is(err, participant.ErrNotFound) {
			return nil, apperr.Forbidden("Not authorized to view payments for this loan")
		}
		if err != nil {
			return nil, err
		}
	}

	all, err := u.payments.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	out := make([]payment.Payment, 0, len(all))
	for _, p := range all {
		if isBorrower || p.LenderID == req.AccountID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (u *Usecase) pendingForLender(ctx context.Context, req account.Requester, paymentID, verb string) (*payment.Payment, error) {
	pay, err := u.getPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if pay.LenderID != req.AccountID {
		return nil, apperr.Forbidden(fmt.Sprintf("Only the lender can %s this payment", verb))
	}
	if pay.Status != payment.StatusPending {
		return nil, apperr.Conflict(fmt.Sprintf("Payment status is %s, cannot %s", pay.Status, verb))
	}
	return pay, nil
}

func (u *Usecase) resolve(ctx context.Context, pay *payment.Payment, r payment.Resolution) error {
	err := u.payments.Resolve(ctx, pay.PaymentID, r)
	if errors.Is(err, payment.ErrAlreadyResolved) {
		return apperr.Conflict("Payment was resolved concurrently")
	}
	if err != nil {
		return err
	}
	at := r.At
	pay.Status, pay.ApprovalNotes, pay.RejectionReason, pay.ResolvedAt = r.Status, r.ApprovalNotes, r.RejectionReason, &at
	return nil
}

// syncRepayments sets total_paid to the lender's approved payments on the
// loan, never lowering it, under a version CAS.
func (u *Usecase) syncRepayments(ctx context.Context, loanID, lenderID string) error {
	reg := participant.Registered{AccountID: lenderID}
	for attempt := 0; attempt < ledgerRetries; attempt++ {
		p, err := u.participants.Get(ctx, loanID, reg)
		if err != nil {
			return err
		}
		pays, err := u.payments.ListByLoan(ctx, loanID)
		if err != nil {
			return err
		}
		approved := decimal.Zero
		for _, pay := range pays {
			if pay.LenderID == lenderID && pay.Status == payment.StatusApproved {
				approved = approved.Add(pay.Amount)
			}
		}
		paid := decimal.Max(p.Paid(), approved)
		remaining := decimal.Max(p.ContributionAmount.Sub(paid), decimal.Zero)
		if p.TotalPaid.Valid && p.RemainingBalance.Valid && paid.Equal(p.TotalPaid.Decimal) && remaining.Equal(p.RemainingBalance.Decimal) {
			return nil
		}
		err = u.participants.ApplyRepayment(ctx, loanID, reg, p.Version, paid, remaining)
		if errors.Is(err, participant.ErrStaleVersion) {
			continue
		}
		return err
	}
	return apperr.Wrap(apperr.KindConflict, "lender balance is contended; retry", participant.ErrStaleVersion)
}

func (u *Usecase) completeIfRepaid(ctx context.Context, loanID string) {
	l, err := u.loans.GetByLoanID(ctx, loanID)
	if err != nil || l.Status != loan.StatusActive {
		return
	}
	ps, err := u.participants.ListByLoan(ctx, loanID)
	if err != nil {
		u.log.Warn("completion check skipped", "loan_id", loanID, "error", err)
		return
	}
	accepted := 0
	for _, p := range ps {
		if p.Status != participant.StatusAccepted {
			continue
		}
		accepted++
		if p.Remaining().IsPositive() {
			return
		}
	}
	if accepted == 0 {
		return
	}
	if err := u.loans.SetStatus(ctx, loanID, l.Version, loan.StatusCompleted); err != nil {
		u.log.Warn("loan completion not recorded", "loan_id", loanID, "error", err)
		return
	}
	u.log.Info("loan repaid", "loan_id", loanID)
}

func (u *Usecase) getLoan(ctx context.Context, loanID string) (*loan.Loan, error) {
	l, err := u.loans.GetByLoanID(ctx, loanID)
	if errors.Is(err, loan.ErrNotFound) {
		return nil, apperr.NotFound("Loan not found")
	}
	return l, err
}

func (u *Usecase) getPayment(ctx context.Context, paymentID string) (*payment.Payment, error) {
	pay, err := u.payments.GetByPaymentID(ctx, paymentID)
	if errors.Is(err, payment.ErrNotFound) {
		return nil, apperr.NotFound("Payment not found")
	}
	return pay, err
}

func (u *Usecase) publish(ctx context.Context, key string, pay *payment.Payment) {
	ev := events.PaymentEvent{
		PaymentID:  pay.PaymentID,
		LoanID:     pay.LoanID,
		BorrowerID: pay.BorrowerID,
		LenderID:   pay.LenderID,
		Amount:     pay.Amount,
		Status:     string(pay.Status),
		At:         u.now(),
	}
	if err := u.pub.Publish(ctx, key, ev); err != nil {
		u.log.Warn("event publish failed", "routing_key", key, "error", err)
	}
}
