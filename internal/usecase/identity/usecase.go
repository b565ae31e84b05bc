package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"multilend/internal/domain/account"
	"multilend/internal/domain/events"
	"multilend/internal/domain/invitation"
	"multilend/internal/domain/outcome"
	"multilend/internal/domain/participant"
	"multilend/pkg/id"
)

// Usecase resolves lender identities: invitations for unknown emails become
// sentinel participants that are rewritten to real accounts on activation.
type Usecase struct {
	accounts     account.Repository
	participants participant.Repository
	invitations  invitation.Repository
	pub          events.Publisher
	log          *slog.Logger
}

func NewUsecase(accounts account.Repository, participants participant.Repository, invitations invitation.Repository, pub events.Publisher, log *slog.Logger) *Usecase {
	if pub == nil {
		pub = events.Discard{}
	}
	return &Usecase{accounts: accounts, participants: participants, invitations: invitations, pub: pub, log: log}
}

// Invite records one invitee on a loan. A known email gets a Registered
// participant directly; an unknown email gets an Invitation plus a
// PendingInvite participant. Both writes are skipped when already present.
func (u *Usecase) Invite(ctx context.Context, loanID, borrowerID string, in Invitee, now time.Time) (invitations, participants int, err error) {
	email := participant.NormalizeEmail(in.Email)
	now = now.UTC()

	acct, err := u.accounts.GetByEmail(ctx, email)
	switch {
	case err == nil:
		created, err := u.participants.CreateIfAbsent(ctx, participant.New(loanID, participant.Registered{AccountID: acct.AccountID}, in.Contribution, now))
		if err != nil {
			return 0, 0, fmt.Errorf("identity: invite %s: %w", email, err)
		}
		if created {
			participants++
		}
		if !acct.IsLender {
			if err := u.accounts.MarkActiveLender(ctx, acct.AccountID); err != nil {
				u.log.Warn("could not flag account as lender", "account_id", acct.AccountID, "error", err)
			}
		}
	case errors.Is(err, account.ErrNotFound):
		created, err := u.invitations.CreateIfAbsent(ctx, &invitation.Invitation{
			InvitationID: id.NewID(),
			LoanID:       loanID,
			InviterID:    borrowerID,
			InviteeEmail: email,
			Status:       invitation.StatusPending,
			CreatedAt:    now,
		})
		if err != nil {
			return 0, 0, fmt.Errorf("identity: invitation for %s: %w", email, err)
		}
		if created {
			invitations++
		}
		created, err = u.participants.CreateIfAbsent(ctx, participant.New(loanID, participant.PendingInvite{Email: email}, in.Contribution, now))
		if err != nil {
			return invitations, 0, fmt.Errorf("identity: sentinel for %s: %w", email, err)
		}
		if created {
			participants++
		}
	default:
		return 0, 0, fmt.Errorf("identity: lookup %s: %w", email, err)
	}

	if participants > 0 {
		u.publish(ctx, events.LenderInvited, events.LenderInvitedEvent{
			LoanID:       loanID,
			BorrowerID:   borrowerID,
			Email:        email,
			Registered:   acct != nil,
			Contribution: in.Contribution,
			InvitedAt:    now,
		})
	}
	return invitations, participants, nil
}

// InviteAll processes every invitee independently; a failure is collected and
// the batch carries on.
func (u *Usecase) InviteAll(ctx context.Context, loanID, borrowerID string, invitees []Invitee, now time.Time) InviteResult {
	var res InviteResult
	var errs []error
	for _, in := range invitees {
		inv, part, err := u.Invite(ctx, loanID, borrowerID, in, now)
		res.InvitationsCreated += inv
		res.ParticipantsCreated += part
		if err != nil {
			u.log.Error("invite failed", "loan_id", loanID, "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		res.Err = errors.Join(errs...)
		res.Error = fmt.Sprintf("%d of %d invitations failed", len(errs), len(invitees))
	}
	return res
}

// Activate migrates every sentinel for email onto accountID. It is called
// from the auth boundary and never fails it: problems are reported through
// the outcome. The Registered row is written before the sentinel is deleted,
// so readers may briefly see both rows but never neither. Safe to repeat.
func (u *Usecase) Activate(ctx context.Context, email, accountID string, now time.Time) ActivationResult {
	email = participant.NormalizeEmail(email)
	res := ActivationResult{Outcome: outcome.Committed()}
	if email == "" || accountID == "" {
		res.Outcome = outcome.Degraded("missing email or account id")
		return res
	}
	var problems []error

	invs, err := u.invitations.ListPendingByEmail(ctx, email)
	if err != nil {
		problems = append(problems, fmt.Errorf("list invitations: %w", err))
	}
	for _, inv := range invs {
		changed, err := u.invitations.MarkActivated(ctx, inv.InvitationID, now)
		if err != nil {
			problems = append(problems, fmt.Errorf("activate invitation %s: %w", inv.InvitationID, err))
			continue
		}
		if changed {
			res.InvitationsActivated++
		}
	}

	sentinels, err := u.participants.ListByIdentity(ctx, participant.PendingInvite{Email: email})
	if err != nil {
		problems = append(problems, fmt.Errorf("list sentinels: %w", err))
	}
	for _, s := range sentinels {
		if err := u.migrate(ctx, s, accountID); err != nil {
			problems = append(problems, err)
			continue
		}
		res.ParticipantsMigrated++
	}

	if res.ParticipantsMigrated > 0 || res.InvitationsActivated > 0 {
		if err := u.accounts.MarkActiveLender(ctx, accountID); err != nil && !errors.Is(err, account.ErrNotFound) {
			problems = append(problems, fmt.Errorf("flag lender: %w", err))
		}
	}

	if len(problems) > 0 {
		err := errors.Join(problems...)
		u.log.Warn("identity activation degraded", "email", email, "account_id", accountID, "error", err)
		res.Outcome = outcome.Degraded(err.Error())
	}
	return res
}

func (u *Usecase) migrate(ctx context.Context, s participant.Participant, accountID string) error {
	reg := s
	reg.SetIdentity(participant.Registered{AccountID: accountID})
	reg.Version = 0
	if _, err := u.participants.CreateIfAbsent(ctx, &reg); err != nil {
		return fmt.Errorf("write registered row for loan %s: %w", s.LoanID, err)
	}
	if err := u.participants.Delete(ctx, s.LoanID, s.Identity()); err != nil {
		return fmt.Errorf("delete sentinel for loan %s: %w", s.LoanID, err)
	}
	return nil
}

func (u *Usecase) publish(ctx context.Context, key string, payload any) {
	if err := u.pub.Publish(ctx, key, payload); err != nil {
		u.log.Warn("event publish failed", "routing_key", key, "error", err)
	}
}
