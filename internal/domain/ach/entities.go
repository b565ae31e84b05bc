package ach

import (
	"context"
	"regexp"
	"strings"
	"time"
)

type AccountType string

const (
	Checking AccountType = "checking"
	Savings  AccountType = "savings"
)

var (
	reRouting = regexp.MustCompile(`^[0-9]{9}$`)
	reAccount = regexp.MustCompile(`^[0-9]{4,20}$`)
)

// Details are the bank coordinates a lender attaches when accepting a loan.
type Details struct {
	AccountID           string      `gorm:"column:account_id;primaryKey;size:64"`
	LoanID              string      `gorm:"column:loan_id;primaryKey;size:36;index"`
	BankName            string      `gorm:"column:bank_name;size:255;not null"`
	AccountType         AccountType `gorm:"column:account_type;size:16;not null"`
	RoutingNumber       string      `gorm:"column:routing_number;size:9;not null"`
	AccountNumber       string      `gorm:"column:account_number;size:20;not null"`
	SpecialInstructions string      `gorm:"column:special_instructions;type:text"`
	CreatedAt           time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

func (Details) TableName() string { return "ach_details" }

type Key struct {
	AccountID string
	LoanID    string
}

func (d Details) Key() Key { return Key{AccountID: d.AccountID, LoanID: d.LoanID} }

// Validate returns the problems with user-entered details, empty when valid.
func (d Details) Validate() []string {
	var problems []string
	if strings.TrimSpace(d.BankName) == "" {
		problems = append(problems, "bank_name is required")
	}
	if d.AccountType != Checking && d.AccountType != Savings {
		problems = append(problems, "account_type must be checking or savings")
	}
	if !reRouting.MatchString(d.RoutingNumber) {
		problems = append(problems, "routing_number must be exactly 9 digits")
	}
	if !reAccount.MatchString(d.AccountNumber) {
		problems = append(problems, "account_number must be 4-20 digits")
	}
	return problems
}

type Repository interface {
	Upsert(ctx context.Context, d *Details) error
	// GetMany is a single multi-get over the given keys; missing keys are skipped.
	GetMany(ctx context.Context, keys []Key) ([]Details, error)
}
