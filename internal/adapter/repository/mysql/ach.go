package mysql

import (
	"context"

	"multilend/internal/domain/ach"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ACHRepository struct{ db *gorm.DB }

func NewACHRepository(db *gorm.DB) *ACHRepository { return &ACHRepository{db: db} }

func (r *ACHRepository) Upsert(ctx context.Context, d *ach.Details) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "loan_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"bank_name", "account_type", "routing_number", "account_number", "special_instructions", "updated_at",
		}),
	}).Create(d).Error
	return storeErr("ach: upsert", err)
}

// GetMany selects by the distinct loan and account ids of keys in one query
// and drops cross-product rows that were not asked for.
func (r *ACHRepository) GetMany(ctx context.Context, keys []ach.Key) ([]ach.Details, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	want := make(map[ach.Key]struct{}, len(keys))
	var loanIDs, accountIDs []string
	seenLoan, seenAcct := map[string]bool{}, map[string]bool{}
	for _, k := range keys {
		want[k] = struct{}{}
		if !seenLoan[k.LoanID] {
			seenLoan[k.LoanID] = true
			loanIDs = append(loanIDs, k.LoanID)
		}
		if !seenAcct[k.AccountID] {
			seenAcct[k.AccountID] = true
			accountIDs = append(accountIDs, k.AccountID)
		}
	}

	var rows []ach.Details
	err := r.db.WithContext(ctx).
		Where("loan_id IN ? AND account_id IN ?", loanIDs, accountIDs).
		Find(&rows).Error
	if err != nil {
		return nil, storeErr("ach: get many", err)
	}
	out := rows[:0]
	for _, d := range rows {
		if _, ok := want[d.Key()]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}
