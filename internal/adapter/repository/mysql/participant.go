package mysql

import (
	"context"
	"errors"
	"time"

	"multilend/internal/domain/account"
	"multilend/internal/domain/participant"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ParticipantRepository struct{ db *gorm.DB }

func NewParticipantRepository(db *gorm.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

func (r *ParticipantRepository) keyed(ctx context.Context, loanID string, id participant.Identity) *gorm.DB {
	kind, ref := participant.Encode(id)
	return r.db.WithContext(ctx).Model(&participant.Participant{}).
		Where("loan_id = ? AND lender_kind = ? AND lender_ref = ?", loanID, kind, ref)
}

func (r *ParticipantRepository) CreateIfAbsent(ctx context.Context, p *participant.Participant) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(p)
	if res.Error != nil {
		return false, storeErr("participants: create", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *ParticipantRepository) Get(ctx context.Context, loanID string, id participant.Identity) (*participant.Participant, error) {
	var out participant.Participant
	err := r.keyed(ctx, loanID, id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, participant.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("participants: get", err)
	}
	return &out, nil
}

func (r *ParticipantRepository) ListByLoan(ctx context.Context, loanID string) ([]participant.Participant, error) {
	var out []participant.Participant
	err := r.db.WithContext(ctx).Where("loan_id = ?", loanID).Order("invited_at ASC, lender_ref ASC").Find(&out).Error
	return out, storeErr("participants: list by loan", err)
}

func (r *ParticipantRepository) ListByLoans(ctx context.Context, loanIDs []string) ([]participant.Participant, error) {
	if len(loanIDs) == 0 {
		return nil, nil
	}
	var out []participant.Participant
	err := r.db.WithContext(ctx).Where("loan_id IN ?", loanIDs).Order("invited_at ASC, lender_ref ASC").Find(&out).Error
	return out, storeErr("participants: list by loans", err)
}

func (r *ParticipantRepository) ListByIdentity(ctx context.Context, id participant.Identity) ([]participant.Participant, error) {
	kind, ref := participant.Encode(id)
	var out []participant.Participant
	err := r.db.WithContext(ctx).
		Where("lender_kind = ? AND lender_ref = ?", kind, ref).
		Order("invited_at DESC").
		Find(&out).Error
	return out, storeErr("participants: list by identity", err)
}

func (r *ParticipantRepository) Delete(ctx context.Context, loanID string, id participant.Identity) error {
	kind, ref := participant.Encode(id)
	err := r.db.WithContext(ctx).
		Where("loan_id = ? AND lender_kind = ? AND lender_ref = ?", loanID, kind, ref).
		Delete(&participant.Participant{}).Error
	return storeErr("participants: delete", err)
}

func (r *ParticipantRepository) Claim(ctx context.Context, loanID string, id participant.Identity, expectedVersion int64, at time.Time) error {
	return r.transition(ctx, "participants: claim", loanID, id, expectedVersion, map[string]any{
		"status":            participant.StatusAccepted,
		"accept_step":       participant.StepClaimed,
		"responded_at":      at.UTC(),
		"total_paid":        gorm.Expr("COALESCE(total_paid, 0)"),
		"remaining_balance": gorm.Expr("COALESCE(remaining_balance, contribution_amount)"),
	})
}

func (r *ParticipantRepository) Decline(ctx context.Context, loanID string, id participant.Identity, expectedVersion int64, at time.Time) error {
	return r.transition(ctx, "participants: decline", loanID, id, expectedVersion, map[string]any{
		"status":       participant.StatusDeclined,
		"responded_at": at.UTC(),
	})
}

// transition only applies to PENDING rows at expectedVersion.
func (r *ParticipantRepository) transition(ctx context.Context, op, loanID string, id participant.Identity, expectedVersion int64, values map[string]any) error {
	values["version"] = gorm.Expr("version + 1")
	values["updated_at"] = time.Now().UTC()
	res := r.keyed(ctx, loanID, id).
		Where("status = ? AND version = ?", participant.StatusPending, expectedVersion).
		Updates(values)
	return r.checkCAS(ctx, op, loanID, id, res)
}

func (r *ParticipantRepository) SetAcceptStep(ctx context.Context, loanID string, id participant.Identity, step participant.AcceptStep) error {
	res := r.keyed(ctx, loanID, id).
		Where("status = ?", participant.StatusAccepted).
		Updates(map[string]any{"accept_step": step, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return storeErr("participants: set accept step", res.Error)
	}
	if res.RowsAffected == 0 {
		return participant.ErrNotFound
	}
	return nil
}

func (r *ParticipantRepository) ApplyRepayment(ctx context.Context, loanID string, id participant.Identity, expectedVersion int64, totalPaid, remaining decimal.Decimal) error {
	res := r.keyed(ctx, loanID, id).
		Where("version = ?", expectedVersion).
		Updates(map[string]any{
			"total_paid":        totalPaid,
			"remaining_balance": remaining,
			"version":           gorm.Expr("version + 1"),
			"updated_at":        time.Now().UTC(),
		})
	return r.checkCAS(ctx, "participants: apply repayment", loanID, id, res)
}

func (r *ParticipantRepository) checkCAS(ctx context.Context, op, loanID string, id participant.Identity, res *gorm.DB) error {
	if res.Error != nil {
		return storeErr(op, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	if _, err := r.Get(ctx, loanID, id); err != nil {
		return err
	}
	return participant.ErrStaleVersion
}

func (r *ParticipantRepository) ListStalled(ctx context.Context, before time.Time, limit int) ([]participant.Participant, error) {
	var out []participant.Participant
	err := r.db.WithContext(ctx).
		Where("status = ? AND accept_step <> ? AND updated_at < ?", participant.StatusAccepted, participant.StepCompleted, before.UTC()).
		Order("updated_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, storeErr("participants: list stalled", err)
}

func (r *ParticipantRepository) ListClaimableSentinels(ctx context.Context, limit int) ([]participant.Participant, error) {
	var out []participant.Participant
	registered := r.db.Model(&account.Account{}).Select("email")
	err := r.db.WithContext(ctx).
		Where("lender_kind = ? AND lender_ref IN (?)", participant.KindPending, registered).
		Order("invited_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, storeErr("participants: list claimable sentinels", err)
}
