package ach

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	ok := Details{BankName: "Chase", AccountType: Checking, RoutingNumber: "021000021", AccountNumber: "1234567890"}
	if p := ok.Validate(); len(p) != 0 {
		t.Fatalf("valid details reported %v", p)
	}
	bad := Details{AccountType: "brokerage", RoutingNumber: "12345", AccountNumber: "12a"}
	p := bad.Validate()
	if len(p) != 4 {
		t.Fatalf("problems = %v, want 4", p)
	}
	joined := strings.Join(p, ";")
	for _, want := range []string{"bank_name", "account_type", "routing_number", "account_number"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %s problem in %v", want, p)
		}
	}
}
