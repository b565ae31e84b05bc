package portfolio

import (
	"context"
	"log/slog"
	"testing"
	"time"

	mysqlrepo "multilend/internal/adapter/repository/mysql"
	"multilend/internal/domain/account"
	"multilend/internal/domain/amortization"
	"multilend/internal/domain/loan"
	"multilend/internal/domain/participant"
	"multilend/internal/testutil/testdb"
	"multilend/internal/usecase/aggregate"

	"github.com/shopspring/decimal"
)

var (
	borrower = account.Requester{AccountID: "acc-bo", Email: "bo@x.io"}
	zed      = account.Requester{AccountID: "acc-zed", Email: "zed@x.io"}
	alice    = account.Requester{AccountID: "acc-alice", Email: "alice@x.io"}
	bob      = account.Requester{AccountID: "acc-bob", Email: "bob@x.io"}
	// carol was invited by email and has not signed up
	carol = account.Requester{AccountID: "acc-carol", Email: "Carol@x.io"}
	dan   = account.Requester{AccountID: "acc-dan", Email: "dan@x.io"}

	day0 = time.Date(2030, 3, 1, 9, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// newUsecase seeds three loans of borrower (L1 and L2 ACTIVE, L3 PENDING)
// and one ACTIVE loan of zed.
//
//	L1 10000 @ 8.5   alice 6000 ACCEPTED, bob 4000 ACCEPTED
//	L2  6000 @ 10    alice 6000 ACCEPTED, 1000 repaid
//	L3  5000 @ 12    bob 2000 PENDING, carol 1000 sentinel, alice 2000 DECLINED
//	L9  4000 @ 5     bob 4000 ACCEPTED (zed's loan)
func newUsecase(t *testing.T) *Usecase {
	t.Helper()
	db := testdb.Open(t)
	repos := mysqlrepo.NewRepos(db)
	seed := func(v any) {
		t.Helper()
		if err := db.Create(v).Error; err != nil {
			t.Fatalf("seed %T: %v", v, err)
		}
	}
	seed(&account.Account{AccountID: borrower.AccountID, Email: borrower.Email, Name: "Bo Rower", UserType: account.UserTypeBorrowerOnly})
	seed(&account.Account{AccountID: zed.AccountID, Email: zed.Email, Name: "Zed", UserType: account.UserTypeBorrowerOnly})
	seed(&account.Account{AccountID: alice.AccountID, Email: alice.Email, Name: "Alice Archer", IsLender: true, UserType: account.UserTypeActiveLender})
	seed(&account.Account{AccountID: bob.AccountID, Email: bob.Email, Name: "Bob Baker", IsLender: true, UserType: account.UserTypeActiveLender})
	seed(&account.Account{AccountID: dan.AccountID, Email: dan.Email, Name: "Dan", IsLender: true, UserType: account.UserTypeActiveLender})

	mkLoan := func(id, borrowerID, amount, rate string, status loan.Status, created time.Time) {
		start := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
		funded := decimal.Zero
		if status == loan.StatusActive {
			funded = dec(amount)
		}
		seed(&loan.Loan{
			LoanID: id, BorrowerID: borrowerID, LoanName: "Loan " + id,
			Amount: dec(amount), InterestRate: dec(rate),
			StartDate: start, PaymentFrequency: amortization.Monthly, TermLength: 12,
			MaturityDate: start.AddDate(1, 0, 0), TotalPayments: 12,
			Purpose: "Business", Description: "Working capital",
			Status: status, TotalFunded: funded, CreatedAt: created,
		})
	}
	mkLoan("L1", borrower.AccountID, "10000", "8.5", loan.StatusActive, day0)
	mkLoan("L2", borrower.AccountID, "6000", "10", loan.StatusActive, day0.AddDate(0, 0, 2))
	mkLoan("L3", borrower.AccountID, "5000", "12", loan.StatusPending, day0.AddDate(0, 0, 4))
	mkLoan("L9", zed.AccountID, "4000", "5", loan.StatusActive, day0)

	row := func(loanID string, id participant.Identity, amount string, status participant.Status, invited time.Time, paid string) {
		p := participant.New(loanID, id, dec(amount), invited)
		p.Status = status
		if status != participant.StatusPending {
			responded := invited.Add(24 * time.Hour)
			p.RespondedAt = &responded
		}
		if status == participant.StatusAccepted {
			p.AcceptStep = participant.StepCompleted
			p.TotalPaid = decimal.NewNullDecimal(dec(paid))
			p.RemainingBalance = decimal.NewNullDecimal(dec(amount).Sub(dec(paid)))
		}
		seed(p)
	}
	reg := func(r account.Requester) participant.Identity { return participant.Registered{AccountID: r.AccountID} }
	row("L1", reg(alice), "6000", participant.StatusAccepted, day0, "0")
	row("L1", reg(bob), "4000", participant.StatusAccepted, day0, "0")
	row("L2", reg(alice), "6000", participant.StatusAccepted, day0.AddDate(0, 0, 2), "1000")
	row("L3", reg(bob), "2000", participant.StatusPending, day0.AddDate(0, 0, 4), "")
	row("L3", participant.PendingInvite{Email: "carol@x.io"}, "1000", participant.StatusPending, day0.AddDate(0, 0, 4), "")
	row("L3", reg(alice), "2000", participant.StatusDeclined, day0.AddDate(0, 0, 4), "")
	row("L9", reg(bob), "4000", participant.StatusAccepted, day0, "0")

	return NewUsecase(repos.Loans, repos.Participants, aggregate.New(repos.Accounts, repos.ACH), slog.New(slog.DiscardHandler))
}

func TestSearchLenders_GroupsAcceptedLendersOfOwnLoans(t *testing.T) {
	uc := newUsecase(t)
	ctx := context.Background()

	res, err := uc.SearchLenders(ctx, borrower, "")
	if err != nil {
		t.Fatalf("SearchLenders: %v", err)
	}
	if res.TotalCount != 2 || len(res.Lenders) != 2 {
		t.Fatalf("lenders = %+v", res.Lenders)
	}
	a, b := res.Lenders[0], res.Lenders[1]
	if a.LenderID != alice.AccountID || b.LenderID != bob.AccountID {
		t.Fatalf("order = %s, %s; want alice then bob", a.LenderID, b.LenderID)
	}
	if a.Stats.InvestmentCount != 2 || !a.Stats.TotalInvested.Equal(dec("12000")) ||
		!a.Stats.AverageInvestment.Equal(dec("6000")) || !a.Stats.AverageAPR.Equal(dec("9.25")) {
		t.Fatalf("alice stats = %+v", a.Stats)
	}
	if a.LastInvestment == nil || a.LastInvestment.LoanID != "L2" || a.LastInvestment.Status != loan.StatusActive {
		t.Fatalf("alice last investment = %+v", a.LastInvestment)
	}
	// bob's loan with zed and his pending L3 invite do not count
	if b.Stats.InvestmentCount != 1 || !b.Stats.TotalInvested.Equal(dec("4000")) || b.Name != "Bob Baker" {
		t.Fatalf("bob = %+v", b)
	}
}

func TestSearchLenders_Query(t *testing.T) {
	uc := newUsecase(t)
	ctx := context.Background()

	cases := []struct {
		query string
		want  []string
	}{
		{"  BAKER ", []string{bob.AccountID}},
		{"alice@", []string{alice.AccountID}},
		{"x.io", []string{alice.AccountID, bob.AccountID}},
		{"nobody", nil},
	}
	for _, tc := range cases {
		res, err := uc.SearchLenders(ctx, borrower, tc.query)
		if err != nil {
			t.Fatalf("%q: %v", tc.query, err)
		}
		var got []string
		for _, l := range res.Lenders {
			got = append(got, l.LenderID)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("%q: got %v, want %v", tc.query, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%q: got %v, want %v", tc.query, got, tc.want)
			}
		}
	}
}

func TestSearchLenders_ScopedToCaller(t *testing.T) {
	uc := newUsecase(t)
	ctx := context.Background()

	res, err := uc.SearchLenders(ctx, zed, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalCount != 1 || res.Lenders[0].LenderID != bob.AccountID || !res.Lenders[0].Stats.TotalInvested.Equal(dec("4000")) {
		t.Fatalf("zed's lenders = %+v", res.Lenders)
	}

	res, err = uc.SearchLenders(ctx, dan, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalCount != 0 || res.Lenders == nil {
		t.Fatalf("no loans should give an empty list, got %+v", res)
	}
}

func TestLenderPortfolio(t *testing.T) {
	uc := newUsecase(t)
	ctx := context.Background()

	res, err := uc.LenderPortfolio(ctx, alice)
	if err != nil {
		t.Fatalf("LenderPortfolio: %v", err)
	}
	if res.TotalCount != 3 {
		t.Fatalf("items = %d, want 3", res.TotalCount)
	}
	var order []string
	for _, it := range res.Items {
		order = append(order, it.LoanID)
	}
	if order[0] != "L3" || order[1] != "L2" || order[2] != "L1" {
		t.Fatalf("order = %v, want newest invitation first", order)
	}
	l2 := res.Items[1]
	if l2.BorrowerName != "Bo Rower" || l2.ParticipationStatus != participant.StatusAccepted ||
		!l2.ExpectedAnnualReturn.Equal(dec("600")) || !l2.ExpectedMonthlyReturn.Equal(dec("50")) ||
		!l2.TotalPaid.Equal(dec("1000")) || !l2.RemainingBalance.Equal(dec("5000")) ||
		!l2.FundingPercentage.Equal(dec("100")) || l2.MaturityTerms.StartDate != "2030-06-01" {
		t.Fatalf("L2 item = %+v", l2)
	}
	if res.Items[0].ParticipationStatus != participant.StatusDeclined {
		t.Fatalf("L3 status = %s", res.Items[0].ParticipationStatus)
	}

	s := res.Summary
	if !s.TotalInvested.Equal(dec("12000")) || !s.TotalExpectedReturns.Equal(dec("1110")) ||
		!s.TotalReceived.Equal(dec("1000")) || s.ActiveInvestments != 2 || s.PendingInvitations != 0 {
		t.Fatalf("summary = %+v", s)
	}
}

func TestLenderPortfolio_IncludesSentinelInvites(t *testing.T) {
	uc := newUsecase(t)

	res, err := uc.LenderPortfolio(context.Background(), carol)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalCount != 1 || res.Items[0].LoanID != "L3" || res.Summary.PendingInvitations != 1 {
		t.Fatalf("carol's portfolio = %+v", res)
	}
	if !res.Summary.TotalInvested.IsZero() {
		t.Fatalf("pending invite counted as invested: %s", res.Summary.TotalInvested)
	}

	empty, err := uc.LenderPortfolio(context.Background(), dan)
	if err != nil || empty.TotalCount != 0 || empty.Items == nil {
		t.Fatalf("empty portfolio = %+v, %v", empty, err)
	}
}

func TestDashboard(t *testing.T) {
	uc := newUsecase(t)
	ctx := context.Background()

	d, err := uc.Dashboard(ctx, borrower)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	b := d.Borrower
	if b.ActiveLoans != 2 || b.PendingRequests != 1 || !b.TotalBorrowed.Equal(dec("16000")) || !b.AverageInterestRate.Equal(dec("9.25")) {
		t.Fatalf("borrower section = %+v", b)
	}
	if d.Lender != nil {
		t.Fatalf("borrower who was never invited got a lender section: %+v", d.Lender)
	}

	d, err = uc.Dashboard(ctx, bob)
	if err != nil {
		t.Fatal(err)
	}
	if d.Borrower.ActiveLoans != 0 || !d.Borrower.AverageInterestRate.IsZero() {
		t.Fatalf("bob borrower section = %+v", d.Borrower)
	}
	l := d.Lender
	if l == nil || l.PendingInvitations != 1 || l.ActiveInvestments != 2 || !l.TotalLent.Equal(dec("8000")) || !l.ExpectedReturns.Equal(dec("540")) {
		t.Fatalf("bob lender section = %+v", l)
	}

	// marked as a lender but never invited: an all-zero section
	d, err = uc.Dashboard(ctx, dan)
	if err != nil {
		t.Fatal(err)
	}
	if d.Lender == nil || d.Lender.ActiveInvestments != 0 || !d.Lender.TotalLent.IsZero() {
		t.Fatalf("dan lender section = %+v", d.Lender)
	}
}
