package aggregate

import (
	"context"
	"fmt"
	"time"

	"multilend/internal/domain/account"
	"multilend/internal/domain/ach"
	"multilend/internal/domain/participant"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const Unknown = "Unknown"

type ACH struct {
	BankName            string          `json:"bank_name"`
	AccountType         ach.AccountType `json:"account_type"`
	RoutingNumber       string          `json:"routing_number"`
	AccountNumber       string          `json:"account_number"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
}

// Entry is a participant row joined with its lender and, on request, the
// lender's ACH details.
type Entry struct {
	Participant participant.Participant `json:"-"`

	LenderID           string             `json:"lender_id"`
	LenderName         string             `json:"lender_name"`
	LenderEmail        string             `json:"lender_email"`
	ContributionAmount decimal.Decimal    `json:"contribution_amount"`
	Status             participant.Status `json:"status"`
	InvitedAt          time.Time          `json:"invited_at"`
	RespondedAt        *time.Time         `json:"responded_at,omitempty"`
	TotalPaid          *decimal.Decimal   `json:"total_paid,omitempty"`
	RemainingBalance   *decimal.Decimal   `json:"remaining_balance,omitempty"`
	ACH                *ACH               `json:"ach_details,omitempty"`
}

// Aggregator resolves lender identities and ACH details for a set of
// participants with one multi-get per entity type.
type Aggregator struct {
	accounts account.Repository
	ach      ach.Repository
}

func New(accounts account.Repository, achRepo ach.Repository) *Aggregator {
	return &Aggregator{accounts: accounts, ach: achRepo}
}

// Accounts multi-gets accounts by id. Missing ids are absent from the map.
func (a *Aggregator) Accounts(ctx context.Context, ids []string) (map[string]account.Account, error) {
	out := make(map[string]account.Account, len(ids))
	ids = distinct(ids)
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := a.accounts.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("aggregate: accounts: %w", err)
	}
	for _, acc := range rows {
		out[acc.AccountID] = acc
	}
	return out, nil
}

// Resolve enriches ps. With withACH set, ACCEPTED registered lenders carry
// their ACH details for the loan. Duplicate rows for one lender on one loan
// are collapsed first (see Dedupe).
func (a *Aggregator) Resolve(ctx context.Context, ps []participant.Participant, withACH bool) ([]Entry, error) {
	var ids []string
	var keys []ach.Key
	for _, p := range ps {
		if p.IsSentinel() {
			continue
		}
		ids = append(ids, p.LenderRef)
		if withACH && p.Status == participant.StatusAccepted {
			keys = append(keys, ach.Key{AccountID: p.LenderRef, LoanID: p.LoanID})
		}
	}

	var accounts map[string]account.Account
	details := map[ach.Key]ach.Details{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = a.Accounts(gctx, ids)
		return err
	})
	if len(keys) > 0 {
		g.Go(func() error {
			rows, err := a.ach.GetMany(gctx, keys)
			if err != nil {
				return fmt.Errorf("aggregate: ach details: %w", err)
			}
			for _, d := range rows {
				details[d.Key()] = d
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ps = Dedupe(ps, accounts)
	out := make([]Entry, 0, len(ps))
	for _, p := range ps {
		e := entry(p, accounts)
		if d, ok := details[ach.Key{AccountID: p.LenderRef, LoanID: p.LoanID}]; ok && !p.IsSentinel() {
			e.ACH = &ACH{
				BankName:            d.BankName,
				AccountType:         d.AccountType,
				RoutingNumber:       d.RoutingNumber,
				AccountNumber:       d.AccountNumber,
				SpecialInstructions: d.SpecialInstructions,
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// Dedupe drops repeated rows for the same (loan, identity) and any sentinel
// whose email already belongs to a Registered row on the same loan. That
// pair is the window of an identity migration; the Registered row wins.
func Dedupe(ps []participant.Participant, accounts map[string]account.Account) []participant.Participant {
	type key struct {
		loanID string
		kind   participant.Kind
		ref    string
	}
	registered := map[key]bool{}
	for _, p := range ps {
		if acc, ok := accounts[p.LenderRef]; ok && !p.IsSentinel() {
			registered[key{p.LoanID, participant.KindPending, participant.NormalizeEmail(acc.Email)}] = true
		}
	}
	seen := map[key]bool{}
	out := make([]participant.Participant, 0, len(ps))
	for _, p := range ps {
		k := key{p.LoanID, p.LenderKind, p.LenderRef}
		if seen[k] || (p.IsSentinel() && registered[k]) {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return out
}

// DisplayID is the lender id shown to the borrower: the account id, or
// "pending:<email>" for a sentinel.
func DisplayID(id participant.Identity) string {
	switch v := id.(type) {
	case participant.Registered:
		return v.AccountID
	case participant.PendingInvite:
		return v.String()
	}
	return ""
}

func entry(p participant.Participant, accounts map[string]account.Account) Entry {
	e := Entry{
		Participant:        p,
		LenderID:           DisplayID(p.Identity()),
		ContributionAmount: p.ContributionAmount,
		Status:             p.Status,
		InvitedAt:          p.InvitedAt,
		RespondedAt:        p.RespondedAt,
	}
	switch id := p.Identity().(type) {
	case participant.PendingInvite:
		e.LenderName = "Pending: " + id.Email
		e.LenderEmail = id.Email
	case participant.Registered:
		e.LenderName, e.LenderEmail = Unknown, Unknown
		if acc, ok := accounts[id.AccountID]; ok {
			e.LenderName, e.LenderEmail = acc.Name, acc.Email
		}
	}
	if p.Status == participant.StatusAccepted {
		paid, remaining := p.Paid(), p.Remaining()
		e.TotalPaid, e.RemainingBalance = &paid, &remaining
	}
	return e
}

func distinct(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
