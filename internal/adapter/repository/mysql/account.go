package mysql

import (
	"context"
	"errors"

	"multilend/internal/domain/account"

	"gorm.io/gorm"
)

type AccountRepository struct{ db *gorm.DB }

func NewAccountRepository(db *gorm.DB) *AccountRepository { return &AccountRepository{db: db} }

func (r *AccountRepository) first(ctx context.Context, op, query string, arg any) (*account.Account, error) {
	var out account.Account
	err := r.db.WithContext(ctx).Where(query, arg).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, account.ErrNotFound
	}
	if err != nil {
		return nil, storeErr(op, err)
	}
	return &out, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, accountID string) (*account.Account, error) {
	return r.first(ctx, "accounts: get", "account_id = ?", accountID)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	return r.first(ctx, "accounts: get by email", "email = ?", email)
}

func (r *AccountRepository) GetByIDs(ctx context.Context, accountIDs []string) ([]account.Account, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	var out []account.Account
	err := r.db.WithContext(ctx).Where("account_id IN ?", accountIDs).Find(&out).Error
	return out, storeErr("accounts: get many", err)
}

func (r *AccountRepository) GetByEmails(ctx context.Context, emails []string) ([]account.Account, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	var out []account.Account
	err := r.db.WithContext(ctx).Where("email IN ?", emails).Find(&out).Error
	return out, storeErr("accounts: get many by email", err)
}

func (r *AccountRepository) MarkActiveLender(ctx context.Context, accountID string) error {
	res := r.db.WithContext(ctx).Model(&account.Account{}).
		Where("account_id = ?", accountID).
		Updates(map[string]any{"is_lender": true, "user_type": account.UserTypeActiveLender})
	if res.Error != nil {
		return storeErr("accounts: mark lender", res.Error)
	}
	if res.RowsAffected == 0 {
		return account.ErrNotFound
	}
	return nil
}
