package identity

import (
	"multilend/internal/domain/outcome"

	"github.com/shopspring/decimal"
)

type Invitee struct {
	Email        string
	Contribution decimal.Decimal
}

// InviteResult reports per-batch counts. Err is set when at least one
// invitee failed; earlier invitees stay committed.
type InviteResult struct {
	InvitationsCreated  int    `json:"invitations_created"`
	ParticipantsCreated int    `json:"participants_created"`
	Error               string `json:"error,omitempty"`
	Err                 error  `json:"-"`
}

type ActivationResult struct {
	outcome.Outcome
	InvitationsActivated int `json:"invitations_activated"`
	ParticipantsMigrated int `json:"participants_migrated"`
}
