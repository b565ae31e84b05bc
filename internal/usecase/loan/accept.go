package loan

import (
	"context"
	"errors"
	"strings"

	"multilend/internal/apperr"
	"multilend/internal/domain/account"
	"multilend/internal/domain/ach"
	"multilend/internal/domain/events"
	"multilend/internal/domain/loan"
	"multilend/internal/domain/participant"

	"github.com/shopspring/decimal"
)

// Accept commits the caller's contribution to a loan. The steps are single
// row writes, advanced through the participant's saga cursor:
//
//	ACH upsert -> claim (PENDING->ACCEPTED, step claimed)
//	           -> funding sync on the loan (step funded)
//	           -> events (step completed)
//
// The claim is conditional on the version that was read, so two concurrent
// accepts of one invitation cannot both succeed. A run that stops after the
// claim is finished by the reconciler or by the caller retrying.
func (u *Usecase) Accept(ctx context.Context, req account.Requester, loanID string, in ACHInput) (*AcceptOutput, error) {
	details := ach.Details{
		AccountID:           req.AccountID,
		LoanID:              loanID,
		BankName:            strings.TrimSpace(in.BankName),
		AccountType:         ach.AccountType(strings.ToLower(strings.TrimSpace(in.AccountType))),
		RoutingNumber:       strings.TrimSpace(in.RoutingNumber),
		AccountNumber:       strings.TrimSpace(in.AccountNumber),
		SpecialInstructions: strings.TrimSpace(in.SpecialInstructions),
	}
	if problems := details.Validate(); len(problems) > 0 {
		return nil, apperr.Validation(strings.Join(problems, "; "))
	}

	p, err := u.resolveParticipant(ctx, req, loanID)
	if err != nil {
		return nil, err
	}
	resume := p.Status == participant.StatusAccepted && p.AcceptStep != participant.StepCompleted
	if p.Status != participant.StatusPending && !resume {
		return nil, apperr.Validation("Loan invitation already processed")
	}

	l, err := u.loans.GetByLoanID(ctx, loanID)
	if errors.Is(err, loan.ErrNotFound) {
		return nil, apperr.NotFound("Loan not found")
	}
	if err != nil {
		return nil, err
	}
	if !resume && l.Status != loan.StatusPending {
		return nil, apperr.Validation("Loan is no longer accepting new lenders")
	}

	// invisible to readers until the participant is ACCEPTED
	if err := u.ach.Upsert(ctx, &details); err != nil {
		return nil, err
	}

	now := u.now()
	acceptedAt := now
	if resume {
		if p.RespondedAt != nil {
			acceptedAt = *p.RespondedAt
		}
	} else {
		err := u.participants.Claim(ctx, loanID, p.Identity(), p.Version, now)
		switch {
		case errors.Is(err, participant.ErrStaleVersion):
			return nil, apperr.Conflict("Loan invitation was answered concurrently")
		case errors.Is(err, participant.ErrNotFound):
			return nil, apperr.NotFound("Loan invitation not found")
		case err != nil:
			return nil, err
		}
	}

	updated, err := u.finishAccept(ctx, *p)
	if err != nil {
		u.log.Error("accept left incomplete", "loan_id", loanID, "account_id", req.AccountID, "error", err)
		return nil, withLoanID(err, loanID)
	}

	u.log.Info("loan accepted", "loan_id", loanID, "account_id", req.AccountID, "loan_status", updated.Status)
	return &AcceptOutput{
		LoanID:             loanID,
		Status:             string(participant.StatusAccepted),
		LoanStatus:         updated.Status,
		ContributionAmount: p.ContributionAmount,
		AcceptedAt:         acceptedAt,
	}, nil
}

// ResumeAccept drives a claimed participant's saga to completion. The
// reconciler calls it for rows stuck behind the claim.
func (u *Usecase) ResumeAccept(ctx context.Context, p participant.Participant) (*loan.Loan, error) {
	if p.Status != participant.StatusAccepted {
		return nil, apperr.Validation("participant is not accepted")
	}
	return u.finishAccept(ctx, p)
}

func (u *Usecase) finishAccept(ctx context.Context, p participant.Participant) (*loan.Loan, error) {
	l, activated, err := u.SyncFunding(ctx, p.LoanID)
	if err != nil {
		return nil, err
	}
	if err := u.participants.SetAcceptStep(ctx, p.LoanID, p.Identity(), participant.StepFunded); err != nil {
		return nil, err
	}
	if activated {
		u.publish(ctx, events.LoanActivated, events.LoanStatusEvent{
			LoanID: l.LoanID, BorrowerID: l.BorrowerID, Status: string(l.Status), TotalFunded: l.TotalFunded, At: u.now(),
		})
	}
	if err := u.participants.SetAcceptStep(ctx, p.LoanID, p.Identity(), participant.StepCompleted); err != nil {
		return nil, err
	}
	return l, nil
}

// SyncFunding sets the loan's total_funded to the sum of its ACCEPTED
// contributions and flips it to ACTIVE once fully funded. The write is a
// version CAS retried a bounded number of times; the total never decreases.
// The bool reports whether this call performed the PENDING->ACTIVE flip.
func (u *Usecase) SyncFunding(ctx context.Context, loanID string) (*loan.Loan, bool, error) {
	for attempt := 0; attempt < fundingRetries; attempt++ {
		l, err := u.loans.GetByLoanID(ctx, loanID)
		if errors.Is(err, loan.ErrNotFound) {
			return nil, false, apperr.NotFound("Loan not found")
		}
		if err != nil {
			return nil, false, err
		}
		ps, err := u.participants.ListByLoan(ctx, loanID)
		if err != nil {
			return nil, false, err
		}

		total := decimal.Max(l.TotalFunded, participant.SumAccepted(ps))
		status := l.FundingStatus(total)
		if total.Equal(l.TotalFunded) && status == l.Status {
			return l, false, nil
		}

		err = u.loans.ApplyFunding(ctx, loanID, l.Version, total, status)
		if errors.Is(err, loan.ErrStaleVersion) {
			u.log.Debug("funding write lost a race; retrying", "loan_id", loanID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, false, err
		}
		activated := l.Status == loan.StatusPending && status == loan.StatusActive
		l.TotalFunded, l.Status, l.Version = total, status, l.Version+1
		return l, activated, nil
	}
	return nil, false, apperr.Wrap(apperr.KindConflict, "loan funding is contended; the acceptance is recorded and will be reconciled", loan.ErrStaleVersion)
}

// Decline is terminal. The declined contribution keeps counting toward the
// loan's invited total.
func (u *Usecase) Decline(ctx context.Context, req account.Requester, loanID string) (*DeclineOutput, error) {
	p, err := u.resolveParticipant(ctx, req, loanID)
	if err != nil {
		return nil, err
	}
	if p.Status != participant.StatusPending {
		return nil, apperr.Validation("Loan invitation already processed")
	}

	now := u.now()
	err = u.participants.Decline(ctx, loanID, p.Identity(), p.Version, now)
	switch {
	case errors.Is(err, participant.ErrStaleVersion):
		return nil, apperr.Conflict("Loan invitation was answered concurrently")
	case errors.Is(err, participant.ErrNotFound):
		return nil, apperr.NotFound("Loan invitation not found")
	case err != nil:
		return nil, err
	}
	u.log.Info("loan declined", "loan_id", loanID, "account_id", req.AccountID)
	return &DeclineOutput{LoanID: loanID, Status: string(participant.StatusDeclined), DeclinedAt: now}, nil
}

// resolveParticipant finds the caller's row on a loan. A sentinel that is
// still keyed by the caller's email is migrated inline first.
func (u *Usecase) resolveParticipant(ctx context.Context, req account.Requester, loanID string) (*participant.Participant, error) {
	notFound := apperr.NotFound("Loan invitation not found")
	reg := participant.Registered{AccountID: req.AccountID}

	p, err := u.participants.Get(ctx, loanID, reg)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, participant.ErrNotFound) {
		return nil, err
	}
	if req.Email == "" {
		return nil, notFound
	}
	if _, err := u.participants.Get(ctx, loanID, participant.PendingInvite{Email: req.Email}); err != nil {
		if errors.Is(err, participant.ErrNotFound) {
			return nil, notFound
		}
		return nil, err
	}

	if res := u.identity.Activate(ctx, req.Email, req.AccountID, u.now()); res.IsDegraded() {
		u.log.Warn("inline identity activation degraded", "loan_id", loanID, "reason", res.Reason)
	}
	p, err = u.participants.Get(ctx, loanID, reg)
	if errors.Is(err, participant.ErrNotFound) {
		return nil, notFound
	}
	return p, err
}

func withLoanID(err error, loanID string) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		cp := *ae
		cp.LoanID = loanID
		return &cp
	}
	return &apperr.Error{Kind: apperr.KindUnexpected, Message: "internal error", LoanID: loanID, Err: err}
}
