package loan

import (
	"testing"

	"multilend/internal/domain/participant"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestProgress(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		funded    string
		wantPct   string
		wantLeft  string
		wantFully bool
	}{
		{"unfunded", "10000", "0", "0", "10000", false},
		{"partial", "12000", "8250", "68.75", "3750", false},
		{"thirds round to cents", "3000", "1000", "33.33", "2000", false},
		{"fully funded", "10000", "10000", "100", "0", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Loan{Amount: d(tt.amount), TotalFunded: d(tt.funded)}.Progress()
			if !got.Percentage.Equal(d(tt.wantPct)) || !got.RemainingAmount.Equal(d(tt.wantLeft)) || got.IsFullyFunded != tt.wantFully {
				t.Fatalf("progress = %+v", got)
			}
		})
	}
}

func TestInvites_DeclinedStillCounts(t *testing.T) {
	l := Loan{Amount: d("10000")}
	mk := func(amount string, s participant.Status) participant.Participant {
		p := participant.New("L1", participant.PendingInvite{Email: amount + "@x.io"}, d(amount), l.CreatedAt)
		p.Status = s
		return *p
	}
	got := l.Invites([]participant.Participant{
		mk("5000", participant.StatusAccepted),
		mk("2000", participant.StatusPending),
		mk("1500", participant.StatusDeclined),
	})
	if !got.TotalInvited.Equal(d("8500")) || !got.Uninvited.Equal(d("1500")) {
		t.Fatalf("totals = %+v", got)
	}
	if got.Accepted != 1 || got.Pending != 1 || got.Declined != 1 || got.Participants != 3 {
		t.Fatalf("counts = %+v", got)
	}
	if !got.PendingAmount.Equal(d("2000")) {
		t.Fatalf("pending amount = %s", got.PendingAmount)
	}
}

func TestFundingStatus_OnlyPendingFlips(t *testing.T) {
	pending := Loan{Amount: d("100"), Status: StatusPending}
	if pending.FundingStatus(d("99.99")) != StatusPending || pending.FundingStatus(d("100")) != StatusActive {
		t.Fatal("pending loan did not flip at full funding")
	}
	failed := Loan{Amount: d("100"), Status: StatusFailed}
	if failed.FundingStatus(d("100")) != StatusFailed {
		t.Fatal("failed loan must not flip to ACTIVE")
	}
}
