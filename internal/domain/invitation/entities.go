package invitation

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("invitation not found")

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActivated Status = "ACTIVATED"
)

type Invitation struct {
	InvitationID string     `gorm:"column:invitation_id;primaryKey;size:36"`
	LoanID       string     `gorm:"column:loan_id;size:36;not null;uniqueIndex:ux_invitations_loan_email,priority:1"`
	InviterID    string     `gorm:"column:inviter_id;size:64;not null"`
	InviteeEmail string     `gorm:"column:invitee_email;size:255;not null;uniqueIndex:ux_invitations_loan_email,priority:2;index:idx_invitations_email_status,priority:1"`
	Status       Status     `gorm:"column:status;size:16;not null;index:idx_invitations_email_status,priority:2"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	ActivatedAt  *time.Time `gorm:"column:activated_at"`
}

func (Invitation) TableName() string { return "invitations" }

type Repository interface {
	// CreateIfAbsent is keyed on (loan_id, invitee_email).
	CreateIfAbsent(ctx context.Context, inv *Invitation) (bool, error)
	ListPendingByEmail(ctx context.Context, email string) ([]Invitation, error)
	// MarkActivated only transitions PENDING rows; it reports whether a row changed.
	MarkActivated(ctx context.Context, invitationID string, at time.Time) (bool, error)
}
