package db

import (
	"fmt"

	"multilend/internal/domain/account"
	"multilend/internal/domain/ach"
	"multilend/internal/domain/invitation"
	"multilend/internal/domain/loan"
	"multilend/internal/domain/participant"
	"multilend/internal/domain/payment"

	"gorm.io/gorm"
)

// Models lists every table owned by the ledger.
func Models() []any {
	return []any{
		&account.Account{},
		&loan.Loan{},
		&participant.Participant{},
		&invitation.Invitation{},
		&ach.Details{},
		&payment.Payment{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return nil
}
