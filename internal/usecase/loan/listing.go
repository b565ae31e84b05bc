package loan

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"multilend/internal/apperr"
	"multilend/internal/domain/account"
	"multilend/internal/domain/loan"
	"multilend/internal/domain/participant"
	"multilend/internal/usecase/aggregate"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type pageToken struct {
	CreatedAt time.Time `json:"c"`
	LoanID    string    `json:"l"`
}

func encodeToken(c loan.Cursor) string {
	raw, _ := json.Marshal(pageToken{CreatedAt: c.CreatedAt.UTC(), LoanID: c.LoanID})
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeToken(s string) (*loan.Cursor, error) {
	invalid := apperr.New(apperr.KindInvalidPaginationToken, "next_token is invalid; restart from the first page")
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, invalid
	}
	var t pageToken
	if err := json.Unmarshal(raw, &t); err != nil || t.LoanID == "" || t.CreatedAt.IsZero() {
		return nil, invalid
	}
	return &loan.Cursor{CreatedAt: t.CreatedAt, LoanID: t.LoanID}, nil
}

// ListMyLoans pages through the caller's loans, newest first. limit 0 means
// the default page size.
func (u *Usecase) ListMyLoans(ctx context.Context, req account.Requester, limit int, nextToken string) (*LoanPage, error) {
	if limit == 0 {
		limit = DefaultPageSize
	}
	if limit < 1 || limit > MaxPageSize {
		return nil, apperr.Validation(fmt.Sprintf("limit must be between 1 and %d", MaxPageSize))
	}
	var after *loan.Cursor
	if nextToken != "" {
		c, err := decodeToken(nextToken)
		if err != nil {
			return nil, err
		}
		after = c
	}

	loans, err := u.loans.ListByBorrower(ctx, req.AccountID, after, limit+1)
	if err != nil {
		return nil, err
	}
	page := &LoanPage{Loans: []LoanSummary{}}
	if len(loans) > limit {
		loans = loans[:limit]
		last := loans[limit-1]
		page.NextToken = encodeToken(loan.Cursor{CreatedAt: last.CreatedAt, LoanID: last.LoanID})
	}
	if len(loans) == 0 {
		return page, nil
	}

	ids := make([]string, len(loans))
	for i, l := range loans {
		ids[i] = l.LoanID
	}
	ps, err := u.participants.ListByLoans(ctx, ids)
	if err != nil {
		return nil, err
	}
	entries, err := u.agg.Resolve(ctx, ps, false)
	if err != nil {
		return nil, err
	}
	byLoan := map[string][]aggregate.Entry{}
	for _, e := range entries {
		byLoan[e.Participant.LoanID] = append(byLoan[e.Participant.LoanID], e)
	}

	for _, l := range loans {
		rows := byLoan[l.LoanID]
		ps := make([]participant.Participant, len(rows))
		for i, e := range rows {
			ps[i] = e.Participant
		}
		s := LoanSummary{
			LoanDTO:          ToDTO(l),
			Term:             fmt.Sprintf("%s for %d months", l.PaymentFrequency, l.TermLength),
			FundingProgress:  l.Progress(),
			Invites:          l.Invites(ps),
			ParticipantCount: len(rows),
			Participants:     rows,
		}
		if s.Participants == nil {
			s.Participants = []aggregate.Entry{}
		}
		s.AcceptedParticipants = s.Invites.Accepted
		page.Loans = append(page.Loans, s)
	}
	page.Count = len(page.Loans)
	return page, nil
}

// PendingInvitations lists loans waiting for the caller's answer, under
// their account id or a sentinel for their email, newest first.
func (u *Usecase) PendingInvitations(ctx context.Context, req account.Requester) ([]PendingInvitation, error) {
	var registered, sentinels []participant.Participant
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		registered, err = u.participants.ListByIdentity(gctx, participant.Registered{AccountID: req.AccountID})
		return err
	})
	if req.Email != "" {
		g.Go(func() error {
			var err error
			sentinels, err = u.participants.ListByIdentity(gctx, participant.PendingInvite{Email: req.Email})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var pending []participant.Participant
	for _, p := range append(registered, sentinels...) {
		if seen[p.LoanID] {
			continue
		}
		seen[p.LoanID] = true
		if p.Status == participant.StatusPending {
			pending = append(pending, p)
		}
	}
	out := []PendingInvitation{}
	if len(pending) == 0 {
		return out, nil
	}

	loanIDs := make([]string, len(pending))
	for i, p := range pending {
		loanIDs[i] = p.LoanID
	}
	loans, err := u.loans.GetMany(ctx, loanIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]loan.Loan, len(loans))
	borrowerIDs := make([]string, 0, len(loans))
	for _, l := range loans {
		byID[l.LoanID] = l
		borrowerIDs = append(borrowerIDs, l.BorrowerID)
	}
	borrowers, err := u.agg.Accounts(ctx, borrowerIDs)
	if err != nil {
		return nil, err
	}

	for _, p := range pending {
		l, ok := byID[p.LoanID]
		if !ok {
			u.log.Warn("invitation points at a missing loan", "loan_id", p.LoanID)
			continue
		}
		name := aggregate.Unknown
		if b, ok := borrowers[l.BorrowerID]; ok {
			name = b.Name
		}
		dto := ToDTO(l)
		out = append(out, PendingInvitation{
			LoanID:             l.LoanID,
			LoanName:           l.LoanName,
			LoanAmount:         l.Amount,
			LoanPurpose:        l.Purpose,
			LoanDescription:    l.Description,
			InterestRate:       l.InterestRate,
			MaturityTerms:      dto.MaturityTerms,
			BorrowerName:       name,
			ContributionAmount: p.ContributionAmount,
			InvitedAt:          p.InvitedAt,
			Status:             string(p.Status),
			LoanStatus:         l.Status,
			TotalFunded:        l.TotalFunded,
			FundingPercentage:  l.Progress().Percentage,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].InvitedAt.After(out[j].InvitedAt) })
	return out, nil
}
