package apperr

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"typed", NotFound("loan not found"), KindNotFound},
		{"wrapped", fmt.Errorf("loan: get: %w", Conflict("stale")), KindConflict},
		{"untyped", errors.New("boom"), KindUnexpected},
		{"throttled", Throttled(errors.New("1040"), 5*time.Second), KindThrottled},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("%s: KindOf = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestIs_MatchesOnKind(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Forbidden("not yours"))
	if !errors.Is(err, ErrForbidden) {
		t.Fatal("errors.Is(err, ErrForbidden) = false")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("errors.Is(err, ErrNotFound) = true")
	}
}

func TestRetryAfterAndLoanID(t *testing.T) {
	err := fmt.Errorf("x: %w", Unavailable(errors.New("deadlock"), 10*time.Second))
	if got := RetryAfterOf(err); got != 10*time.Second {
		t.Fatalf("RetryAfterOf = %v", got)
	}
	if !IsTransient(err) {
		t.Fatal("Unavailable should be transient")
	}
	e := &Error{Kind: KindUnexpected, Message: "invite failed", LoanID: "L1"}
	if LoanIDOf(fmt.Errorf("w: %w", e)) != "L1" {
		t.Fatal("LoanIDOf lost the loan id")
	}
	if MessageOf(errors.New("raw detail")) != "internal error" {
		t.Fatal("untyped errors must not leak their message")
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("driver: bad connection")
	err := Wrap(KindUnavailable, "store unavailable", cause)
	if !errors.Is(err, cause) {
		t.Fatal("cause lost in Wrap")
	}
}
