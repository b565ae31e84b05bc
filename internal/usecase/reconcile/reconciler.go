package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"multilend/internal/domain/account"
	"multilend/internal/domain/loan"
	"multilend/internal/domain/participant"
	"multilend/internal/usecase/identity"
)

const defaultBatch = 100

// Sagas finishes accept sequences that stopped after the claim.
type Sagas interface {
	ResumeAccept(ctx context.Context, p participant.Participant) (*loan.Loan, error)
}

type Activator interface {
	Activate(ctx context.Context, email, accountID string, now time.Time) identity.ActivationResult
}

// Report summarises one reconcile pass.
type Report struct {
	SagasResumed         int `json:"sagas_resumed"`
	SagasFailed          int `json:"sagas_failed"`
	ParticipantsMigrated int `json:"participants_migrated"`
	ActivationsDegraded  int `json:"activations_degraded"`
}

// Reconciler repairs what a crashed or throttled request left half done:
// accept sagas stuck behind their claim, and sentinel rows whose invitee has
// since registered without the account event reaching us.
type Reconciler struct {
	participants participant.Repository
	accounts     account.Repository
	sagas        Sagas
	identity     Activator
	grace        time.Duration
	batch        int
	log          *slog.Logger
	now          func() time.Time
}

func New(participants participant.Repository, accounts account.Repository, sagas Sagas, ident Activator, grace time.Duration, log *slog.Logger) *Reconciler {
	return &Reconciler{
		participants: participants,
		accounts:     accounts,
		sagas:        sagas,
		identity:     ident,
		grace:        grace,
		batch:        defaultBatch,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Run does one pass of both repairs. A failure in one does not stop the other.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	var rep Report
	var errs []error

	resumed, failed, err := r.ResumeAcceptSagas(ctx)
	rep.SagasResumed, rep.SagasFailed = resumed, failed
	if err != nil {
		errs = append(errs, err)
	}
	migrated, degraded, err := r.SweepSentinels(ctx)
	rep.ParticipantsMigrated, rep.ActivationsDegraded = migrated, degraded
	if err != nil {
		errs = append(errs, err)
	}

	if rep != (Report{}) {
		r.log.Info("reconcile pass", "sagas_resumed", rep.SagasResumed, "sagas_failed", rep.SagasFailed,
			"participants_migrated", rep.ParticipantsMigrated, "activations_degraded", rep.ActivationsDegraded)
	}
	return rep, errors.Join(errs...)
}

// ResumeAcceptSagas resumes ACCEPTED rows whose saga cursor has not reached
// completed and that have been idle longer than the grace period, so a
// request still in flight is left alone.
func (r *Reconciler) ResumeAcceptSagas(ctx context.Context) (resumed, failed int, err error) {
	stalled, err := r.participants.ListStalled(ctx, r.now().Add(-r.grace), r.batch)
	if err != nil {
		return 0, 0, fmt.Errorf("reconcile: list stalled: %w", err)
	}
	for _, p := range stalled {
		if ctx.Err() != nil {
			return resumed, failed, ctx.Err()
		}
		if _, err := r.sagas.ResumeAccept(ctx, p); err != nil {
			failed++
			r.log.Warn("accept saga resume failed", "loan_id", p.LoanID, "lender", p.Identity().String(), "step", p.AcceptStep, "error", err)
			continue
		}
		resumed++
	}
	return resumed, failed, nil
}

// SweepSentinels activates sentinel rows whose email now has an account.
func (r *Reconciler) SweepSentinels(ctx context.Context) (migrated, degraded int, err error) {
	sentinels, err := r.participants.ListClaimableSentinels(ctx, r.batch)
	if err != nil {
		return 0, 0, fmt.Errorf("reconcile: list sentinels: %w", err)
	}
	var emails []string
	seen := map[string]bool{}
	for _, s := range sentinels {
		if !seen[s.LenderRef] {
			seen[s.LenderRef] = true
			emails = append(emails, s.LenderRef)
		}
	}
	if len(emails) == 0 {
		return 0, 0, nil
	}
	accounts, err := r.accounts.GetByEmails(ctx, emails)
	if err != nil {
		return 0, 0, fmt.Errorf("reconcile: accounts by email: %w", err)
	}
	for _, acc := range accounts {
		res := r.identity.Activate(ctx, acc.Email, acc.AccountID, r.now())
		migrated += res.ParticipantsMigrated
		if res.IsDegraded() {
			degraded++
		}
	}
	return migrated, degraded, nil
}
