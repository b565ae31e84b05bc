package account

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("account not found")

type UserType string

const (
	UserTypeBorrowerOnly UserType = "BORROWER_ONLY"
	UserTypeActiveLender UserType = "ACTIVE_LENDER"
)

// Account is the ledger's read view of a user owned by the auth service.
type Account struct {
	AccountID string    `gorm:"column:account_id;primaryKey;size:64"`
	Email     string    `gorm:"column:email;size:255;not null;uniqueIndex:ux_accounts_email"`
	Name      string    `gorm:"column:name;size:255;not null"`
	IsLender  bool      `gorm:"column:is_lender;not null"`
	UserType  UserType  `gorm:"column:user_type;size:32;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Account) TableName() string { return "accounts" }

// Requester is the authenticated caller of a request.
type Requester struct {
	AccountID string
	Email     string
}

type Repository interface {
	GetByID(ctx context.Context, accountID string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	// GetByIDs and GetByEmails are single multi-gets; missing rows are skipped.
	GetByIDs(ctx context.Context, accountIDs []string) ([]Account, error)
	GetByEmails(ctx context.Context, emails []string) ([]Account, error)
	MarkActiveLender(ctx context.Context, accountID string) error
}
