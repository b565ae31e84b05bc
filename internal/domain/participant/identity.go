package participant

import (
	"fmt"
	"strings"
)

// Kind tags the persisted identity variant.
type Kind string

const (
	KindRegistered Kind = "registered"
	KindPending    Kind = "pending"
)

// Identity is either Registered or PendingInvite. The set is closed; use a
// type switch over both variants.
type Identity interface {
	isIdentity()
	String() string
}

// Registered is a lender with an account.
type Registered struct{ AccountID string }

// PendingInvite is the placeholder for an invited email that has no account yet.
type PendingInvite struct{ Email string }

func (Registered) isIdentity()    {}
func (PendingInvite) isIdentity() {}

func (r Registered) String() string    { return "registered:" + r.AccountID }
func (p PendingInvite) String() string { return "pending:" + p.Email }

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Encode maps an identity onto its (kind, ref) columns.
func Encode(id Identity) (Kind, string) {
	switch v := id.(type) {
	case Registered:
		return KindRegistered, v.AccountID
	case PendingInvite:
		return KindPending, NormalizeEmail(v.Email)
	}
	panic(fmt.Sprintf("participant: unknown identity %T", id))
}

func Decode(kind Kind, ref string) (Identity, error) {
	switch kind {
	case KindRegistered:
		return Registered{AccountID: ref}, nil
	case KindPending:
		return PendingInvite{Email: ref}, nil
	}
	return nil, fmt.Errorf("participant: unknown identity kind %q", kind)
}

// Matches reports whether id denotes the requester, either by account id or,
// for sentinels, by email.
func Matches(id Identity, accountID, email string) bool {
	switch v := id.(type) {
	case Registered:
		return accountID != "" && v.AccountID == accountID
	case PendingInvite:
		return email != "" && v.Email == NormalizeEmail(email)
	}
	return false
}
