package mysql

import (
	"multilend/internal/domain/account"
	"multilend/internal/domain/ach"
	"multilend/internal/domain/invitation"
	"multilend/internal/domain/loan"
	"multilend/internal/domain/participant"
	"multilend/internal/domain/payment"

	"gorm.io/gorm"
)

// Repos bundles every gorm-backed repository over one connection pool.
// Writes are single-row and conditional; nothing here opens a transaction.
type Repos struct {
	Loans        loan.Repository
	Participants participant.Repository
	Invitations  invitation.Repository
	Accounts     account.Repository
	ACH          ach.Repository
	Payments     payment.Repository
}

func NewRepos(db *gorm.DB) Repos {
	return Repos{
		Loans:        NewLoanRepository(db),
		Participants: NewParticipantRepository(db),
		Invitations:  NewInvitationRepository(db),
		Accounts:     NewAccountRepository(db),
		ACH:          NewACHRepository(db),
		Payments:     NewPaymentRepository(db),
	}
}
