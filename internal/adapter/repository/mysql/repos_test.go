package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"multilend/internal/domain/account"
	"multilend/internal/domain/ach"
	"multilend/internal/domain/invitation"
	"multilend/internal/domain/payment"
	"multilend/internal/testutil/testdb"
	"multilend/pkg/id"

	"github.com/shopspring/decimal"
)

func TestInvitation_CreateIfAbsentAndActivate(t *testing.T) {
	repo := NewRepos(testdb.Open(t)).Invitations
	ctx := context.Background()

	inv := &invitation.Invitation{InvitationID: id.NewID(), LoanID: "L1", InviterID: "b1", InviteeEmail: "x@y.io", Status: invitation.StatusPending}
	if ok, err := repo.CreateIfAbsent(ctx, inv); err != nil || !ok {
		t.Fatalf("create = (%v,%v)", ok, err)
	}
	again := &invitation.Invitation{InvitationID: id.NewID(), LoanID: "L1", InviterID: "b1", InviteeEmail: "x@y.io", Status: invitation.StatusPending}
	if ok, err := repo.CreateIfAbsent(ctx, again); err != nil || ok {
		t.Fatalf("duplicate (loan,email) create = (%v,%v), want (false,nil)", ok, err)
	}

	pending, err := repo.ListPendingByEmail(ctx, "x@y.io")
	if err != nil || len(pending) != 1 {
		t.Fatalf("ListPendingByEmail = %v, %v", pending, err)
	}
	if ok, err := repo.MarkActivated(ctx, inv.InvitationID, time.Now()); err != nil || !ok {
		t.Fatalf("MarkActivated = (%v,%v)", ok, err)
	}
	if ok, _ := repo.MarkActivated(ctx, inv.InvitationID, time.Now()); ok {
		t.Fatal("second MarkActivated changed a row")
	}
	if pending, _ := repo.ListPendingByEmail(ctx, "x@y.io"); len(pending) != 0 {
		t.Fatalf("activated invitation still pending: %v", pending)
	}
}

func seedAccount(t *testing.T, repos Repos, accountID, email string) {
	t.Helper()
	db := repos.Accounts.(*AccountRepository).db
	acct := &account.Account{AccountID: accountID, Email: email, Name: "User " + accountID, UserType: account.UserTypeBorrowerOnly}
	if err := db.Create(acct).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
}

func TestAccount_LookupsAndLenderFlag(t *testing.T) {
	repos := NewRepos(testdb.Open(t))
	ctx := context.Background()
	seedAccount(t, repos, "a1", "a1@x.io")
	seedAccount(t, repos, "a2", "a2@x.io")

	if _, err := repos.Accounts.GetByEmail(ctx, "nobody@x.io"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("GetByEmail missing err = %v", err)
	}
	many, err := repos.Accounts.GetByIDs(ctx, []string{"a1", "a2", "a3"})
	if err != nil || len(many) != 2 {
		t.Fatalf("GetByIDs = %v, %v", many, err)
	}
	byEmail, err := repos.Accounts.GetByEmails(ctx, []string{"a2@x.io"})
	if err != nil || len(byEmail) != 1 || byEmail[0].AccountID != "a2" {
		t.Fatalf("GetByEmails = %v, %v", byEmail, err)
	}

	if err := repos.Accounts.MarkActiveLender(ctx, "a1"); err != nil {
		t.Fatalf("MarkActiveLender: %v", err)
	}
	got, _ := repos.Accounts.GetByID(ctx, "a1")
	if !got.IsLender || got.UserType != account.UserTypeActiveLender {
		t.Fatalf("lender flag not set: %+v", got)
	}
	if err := repos.Accounts.MarkActiveLender(ctx, "ghost"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("MarkActiveLender missing err = %v", err)
	}
}

func TestACH_UpsertAndGetMany(t *testing.T) {
	repo := NewACHRepository(testdb.Open(t))
	ctx := context.Background()
	d := &ach.Details{AccountID: "a1", LoanID: "L1", BankName: "Chase", AccountType: ach.Checking, RoutingNumber: "021000021", AccountNumber: "1234"}
	if err := repo.Upsert(ctx, d); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	d2 := &ach.Details{AccountID: "a1", LoanID: "L1", BankName: "Wells", AccountType: ach.Savings, RoutingNumber: "121000248", AccountNumber: "98765"}
	if err := repo.Upsert(ctx, d2); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	other := &ach.Details{AccountID: "a2", LoanID: "L2", BankName: "Citi", AccountType: ach.Checking, RoutingNumber: "021000089", AccountNumber: "5555"}
	if err := repo.Upsert(ctx, other); err != nil {
		t.Fatal(err)
	}

	// (a1,L2) and (a2,L1) fall in the IN x IN cross product but were not asked for
	got, err := repo.GetMany(ctx, []ach.Key{{AccountID: "a1", LoanID: "L1"}, {AccountID: "a2", LoanID: "L2"}, {AccountID: "a1", LoanID: "L9"}})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetMany returned %d rows, want 2", len(got))
	}
	for _, r := range got {
		if r.AccountID == "a1" && r.BankName != "Wells" {
			t.Fatalf("upsert did not overwrite: %+v", r)
		}
	}
}

func TestPayment_ResolveOnce(t *testing.T) {
	repo := NewPaymentRepository(testdb.Open(t))
	ctx := context.Background()
	p := &payment.Payment{
		PaymentID: id.NewID(), LoanID: "L1", BorrowerID: "b1", LenderID: "a1",
		Amount: decimal.RequireFromString("250.50"), PaymentDate: time.Now().UTC(), Status: payment.StatusPending,
	}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Resolve(ctx, p.PaymentID, payment.Resolution{Status: payment.StatusApproved, ApprovalNotes: "ok", At: time.Now()}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	err := repo.Resolve(ctx, p.PaymentID, payment.Resolution{Status: payment.StatusRejected, RejectionReason: "late", At: time.Now()})
	if !errors.Is(err, payment.ErrAlreadyResolved) {
		t.Fatalf("second Resolve err = %v", err)
	}
	if err := repo.Resolve(ctx, id.NewID(), payment.Resolution{Status: payment.StatusApproved, At: time.Now()}); !errors.Is(err, payment.ErrNotFound) {
		t.Fatalf("Resolve missing err = %v", err)
	}

	got, _ := repo.GetByPaymentID(ctx, p.PaymentID)
	if got.Status != payment.StatusApproved || got.ApprovalNotes != "ok" || got.ResolvedAt == nil {
		t.Fatalf("after resolve: %+v", got)
	}
	list, err := repo.ListByLoan(ctx, "L1")
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByLoan = %v, %v", list, err)
	}
}
