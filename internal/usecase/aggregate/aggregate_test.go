package aggregate

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"multilend/internal/domain/account"
	"multilend/internal/domain/ach"
	"multilend/internal/domain/participant"

	"github.com/shopspring/decimal"
)

type countingAccounts struct {
	mu    sync.Mutex
	rows  map[string]account.Account
	calls int
}

func (c *countingAccounts) hit() { c.mu.Lock(); c.calls++; c.mu.Unlock() }

func (c *countingAccounts) GetByID(_ context.Context, id string) (*account.Account, error) {
	c.hit()
	if a, ok := c.rows[id]; ok {
		return &a, nil
	}
	return nil, account.ErrNotFound
}

func (c *countingAccounts) GetByEmail(context.Context, string) (*account.Account, error) {
	return nil, account.ErrNotFound
}

func (c *countingAccounts) GetByIDs(_ context.Context, ids []string) ([]account.Account, error) {
	c.hit()
	var out []account.Account
	for _, id := range ids {
		if a, ok := c.rows[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (c *countingAccounts) GetByEmails(context.Context, []string) ([]account.Account, error) {
	return nil, nil
}

func (c *countingAccounts) MarkActiveLender(context.Context, string) error { return nil }

type countingACH struct {
	mu    sync.Mutex
	rows  map[ach.Key]ach.Details
	calls int
	err   error
}

func (c *countingACH) Upsert(context.Context, *ach.Details) error { return nil }

func (c *countingACH) GetMany(_ context.Context, keys []ach.Key) ([]ach.Details, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	var out []ach.Details
	for _, k := range keys {
		if d, ok := c.rows[k]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

var t0 = time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)

func row(loanID string, id participant.Identity, amount int64, status participant.Status) participant.Participant {
	p := participant.New(loanID, id, decimal.NewFromInt(amount), t0)
	p.Status = status
	return *p
}

func fixture() (*countingAccounts, *countingACH, []participant.Participant) {
	accs := &countingAccounts{rows: map[string]account.Account{
		"acc-a": {AccountID: "acc-a", Email: "a@x.io", Name: "Ann"},
		"acc-b": {AccountID: "acc-b", Email: "b@x.io", Name: "Bob"},
	}}
	achs := &countingACH{rows: map[ach.Key]ach.Details{
		{AccountID: "acc-a", LoanID: "L1"}: {AccountID: "acc-a", LoanID: "L1", BankName: "Chase", AccountType: ach.Checking, RoutingNumber: "021000021", AccountNumber: "1234"},
		{AccountID: "acc-a", LoanID: "L2"}: {AccountID: "acc-a", LoanID: "L2", BankName: "Ally", AccountType: ach.Savings, RoutingNumber: "021000021", AccountNumber: "5678"},
	}}
	ps := []participant.Participant{
		row("L1", participant.Registered{AccountID: "acc-a"}, 5000, participant.StatusAccepted),
		row("L1", participant.Registered{AccountID: "acc-b"}, 3000, participant.StatusPending),
		row("L1", participant.PendingInvite{Email: "c@x.io"}, 2000, participant.StatusPending),
		row("L2", participant.Registered{AccountID: "acc-a"}, 1000, participant.StatusAccepted),
		row("L2", participant.Registered{AccountID: "acc-gone"}, 1000, participant.StatusAccepted),
	}
	return accs, achs, ps
}

// naive resolves one row at a time.
func naive(ctx context.Context, accs account.Repository, achs ach.Repository, ps []participant.Participant) []Entry {
	accounts := map[string]account.Account{}
	for _, p := range ps {
		if p.IsSentinel() {
			continue
		}
		if a, err := accs.GetByID(ctx, p.LenderRef); err == nil {
			accounts[a.AccountID] = *a
		}
	}
	var out []Entry
	for _, p := range Dedupe(ps, accounts) {
		e := entry(p, accounts)
		if !p.IsSentinel() && p.Status == participant.StatusAccepted {
			rows, _ := achs.GetMany(ctx, []ach.Key{{AccountID: p.LenderRef, LoanID: p.LoanID}})
			if len(rows) == 1 {
				d := rows[0]
				e.ACH = &ACH{BankName: d.BankName, AccountType: d.AccountType, RoutingNumber: d.RoutingNumber, AccountNumber: d.AccountNumber, SpecialInstructions: d.SpecialInstructions}
			}
		}
		out = append(out, e)
	}
	return out
}

func TestResolve_MatchesPerRowLookup(t *testing.T) {
	ctx := context.Background()
	accs, achs, ps := fixture()

	want := naive(ctx, accs, achs, ps)
	naiveCalls := accs.calls + achs.calls
	accs.calls, achs.calls = 0, 0

	got, err := New(accs, achs).Resolve(ctx, ps, true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("batched output differs from per-row lookup\n got: %+v\nwant: %+v", got, want)
	}
	if accs.calls != 1 || achs.calls != 1 {
		t.Fatalf("calls: accounts=%d ach=%d, want 1 each", accs.calls, achs.calls)
	}
	if naiveCalls <= 2 {
		t.Fatalf("naive path made only %d calls; fixture too small", naiveCalls)
	}
}

func TestResolve_Fallbacks(t *testing.T) {
	accs, achs, ps := fixture()
	got, err := New(accs, achs).Resolve(context.Background(), ps, true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	byID := map[string]Entry{}
	for _, e := range got {
		byID[e.Participant.LoanID+"/"+e.LenderID] = e
	}

	if e := byID["L1/pending:c@x.io"]; e.LenderName != "Pending: c@x.io" || e.LenderEmail != "c@x.io" {
		t.Fatalf("sentinel entry = %+v", e)
	}
	if e := byID["L2/acc-gone"]; e.LenderName != Unknown || e.LenderEmail != Unknown || e.ACH != nil {
		t.Fatalf("missing account entry = %+v", e)
	}
	if e := byID["L1/acc-b"]; e.ACH != nil || e.TotalPaid != nil {
		t.Fatalf("pending lender must not carry ach or balances: %+v", e)
	}
	if e := byID["L2/acc-a"]; e.ACH == nil || e.ACH.BankName != "Ally" {
		t.Fatalf("ach must be per loan: %+v", e.ACH)
	}
}

func TestResolve_WithoutACHSkipsThatCall(t *testing.T) {
	accs, achs, ps := fixture()
	got, err := New(accs, achs).Resolve(context.Background(), ps, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if achs.calls != 0 {
		t.Fatalf("ach calls = %d", achs.calls)
	}
	for _, e := range got {
		if e.ACH != nil {
			t.Fatalf("unexpected ach on %+v", e)
		}
	}
}

func TestResolve_PropagatesErrors(t *testing.T) {
	accs, achs, ps := fixture()
	achs.err = errors.New("down")
	if _, err := New(accs, achs).Resolve(context.Background(), ps, true); err == nil {
		t.Fatalf("want error")
	}
}

func TestDedupe_RegisteredWins(t *testing.T) {
	accounts := map[string]account.Account{"acc-c": {AccountID: "acc-c", Email: "C@x.io"}}
	sentinel := row("L1", participant.PendingInvite{Email: "c@x.io"}, 2000, participant.StatusPending)
	reg := row("L1", participant.Registered{AccountID: "acc-c"}, 2000, participant.StatusPending)
	other := row("L2", participant.PendingInvite{Email: "c@x.io"}, 100, participant.StatusPending)

	out := Dedupe([]participant.Participant{sentinel, reg, reg, other}, accounts)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(out), out)
	}
	if out[0].IsSentinel() || out[1].LoanID != "L2" {
		t.Fatalf("unexpected rows %+v", out)
	}
}
