package mysql

import (
	"context"
	"time"

	"multilend/internal/domain/invitation"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvitationRepository struct{ db *gorm.DB }

func NewInvitationRepository(db *gorm.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

func (r *InvitationRepository) CreateIfAbsent(ctx context.Context, inv *invitation.Invitation) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(inv)
	if res.Error != nil {
		return false, storeErr("invitations: create", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *InvitationRepository) ListPendingByEmail(ctx context.Context, email string) ([]invitation.Invitation, error) {
	var out []invitation.Invitation
	err := r.db.WithContext(ctx).
		Where("invitee_email = ? AND status = ?", email, invitation.StatusPending).
		Order("created_at ASC").
		Find(&out).Error
	return out, storeErr("invitations: list pending", err)
}

func (r *InvitationRepository) MarkActivated(ctx context.Context, invitationID string, at time.Time) (bool, error) {
	at = at.UTC()
	res := r.db.WithContext(ctx).Model(&invitation.Invitation{}).
		Where("invitation_id = ? AND status = ?", invitationID, invitation.StatusPending).
		Updates(map[string]any{"status": invitation.StatusActivated, "activated_at": at})
	if res.Error != nil {
		return false, storeErr("invitations: activate", res.Error)
	}
	return res.RowsAffected == 1, nil
}
