package portfolio

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"multilend/internal/domain/account"
	"multilend/internal/domain/loan"
	"multilend/internal/domain/participant"
	"multilend/internal/usecase/aggregate"
	loanuc "multilend/internal/usecase/loan"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const pageSize = 100

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// Usecase serves the read views that span many loans: a borrower's past
// lenders, a lender's portfolio and the dashboard counters.
type Usecase struct {
	loans        loan.Repository
	participants participant.Repository
	agg          *aggregate.Aggregator
	log          *slog.Logger
}

func NewUsecase(loans loan.Repository, participants participant.Repository, agg *aggregate.Aggregator, log *slog.Logger) *Usecase {
	return &Usecase{loans: loans, participants: participants, agg: agg, log: log}
}

// SearchLenders lists the lenders who accepted any of the caller's loans,
// with per-lender totals, largest total first. A non-empty query keeps the
// lenders whose name or email contains it, ignoring case.
func (u *Usecase) SearchLenders(ctx context.Context, req account.Requester, query string) (*LenderSearch, error) {
	out := &LenderSearch{Lenders: []PastLender{}}
	loans, err := u.borrowerLoans(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if len(loans) == 0 {
		return out, nil
	}
	byID := make(map[string]loan.Loan, len(loans))
	ids := make([]string, len(loans))
	for i, l := range loans {
		byID[l.LoanID] = l
		ids[i] = l.LoanID
	}
	ps, err := u.participants.ListByLoans(ctx, ids)
	if err != nil {
		return nil, err
	}

	type tally struct {
		count  int
		total  decimal.Decimal
		aprSum decimal.Decimal
		last   *Investment
		lastAt time.Time
	}
	tallies := map[string]*tally{}
	var order []string
	for _, p := range ps {
		if p.Status != participant.StatusAccepted || p.IsSentinel() {
			continue
		}
		l, ok := byID[p.LoanID]
		if !ok {
			continue
		}
		t, ok := tallies[p.LenderRef]
		if !ok {
			t = &tally{total: decimal.Zero, aprSum: decimal.Zero}
			tallies[p.LenderRef] = t
			order = append(order, p.LenderRef)
		}
		t.count++
		t.total = t.total.Add(p.ContributionAmount)
		t.aprSum = t.aprSum.Add(l.InterestRate)
		at := p.InvitedAt
		if p.RespondedAt != nil {
			at = *p.RespondedAt
		}
		if t.last == nil || at.After(t.lastAt) {
			t.last = &Investment{LoanID: l.LoanID, LoanName: l.LoanName, Amount: p.ContributionAmount, APR: l.InterestRate, Status: l.Status}
			t.lastAt = at
		}
	}
	if len(order) == 0 {
		return out, nil
	}

	accounts, err := u.agg.Accounts(ctx, order)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	for _, lenderID := range order {
		acc, ok := accounts[lenderID]
		if !ok {
			u.log.Warn("accepted lender has no account", "lender_id", lenderID)
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(acc.Name), q) && !strings.Contains(strings.ToLower(acc.Email), q) {
			continue
		}
		t := tallies[lenderID]
		n := decimal.NewFromInt(int64(t.count))
		out.Lenders = append(out.Lenders, PastLender{
			LenderID: lenderID,
			Name:     acc.Name,
			Email:    acc.Email,
			Stats: LenderStats{
				InvestmentCount:   t.count,
				TotalInvested:     t.total,
				AverageInvestment: t.total.Div(n).Round(2),
				AverageAPR:        t.aprSum.Div(n).Round(3),
			},
			LastInvestment: t.last,
		})
	}
	sort.SliceStable(out.Lenders, func(i, j int) bool {
		return out.Lenders[i].Stats.TotalInvested.GreaterThan(out.Lenders[j].Stats.TotalInvested)
	})
	out.TotalCount = len(out.Lenders)
	return out, nil
}

// LenderPortfolio lists every participation of the caller in any status,
// newest invitation first.
func (u *Usecase) LenderPortfolio(ctx context.Context, req account.Requester) (*Portfolio, error) {
	out := &Portfolio{
		Items: []PortfolioItem{},
		Summary: PortfolioSummary{
			TotalInvested:        decimal.Zero,
			TotalExpectedReturns: decimal.Zero,
			TotalReceived:        decimal.Zero,
		},
	}
	ps, err := u.participations(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(ps) == 0 {
		return out, nil
	}
	byID, err := u.loansOf(ctx, ps)
	if err != nil {
		return nil, err
	}
	borrowerIDs := make([]string, 0, len(byID))
	for _, l := range byID {
		borrowerIDs = append(borrowerIDs, l.BorrowerID)
	}
	borrowers, err := u.agg.Accounts(ctx, borrowerIDs)
	if err != nil {
		return nil, err
	}

	s := &out.Summary
	for _, p := range ps {
		l, ok := byID[p.LoanID]
		if !ok {
			u.log.Warn("participation points at a missing loan", "loan_id", p.LoanID)
			continue
		}
		name := aggregate.Unknown
		if b, ok := borrowers[l.BorrowerID]; ok {
			name = b.Name
		}
		annual := expectedReturn(p, l)
		dto := loanuc.ToDTO(l)
		out.Items = append(out.Items, PortfolioItem{
			LoanID:                l.LoanID,
			LoanName:              l.LoanName,
			BorrowerName:          name,
			LoanAmount:            l.Amount,
			ContributionAmount:    p.ContributionAmount,
			InterestRate:          l.InterestRate,
			MaturityTerms:         dto.MaturityTerms,
			Purpose:               l.Purpose,
			Description:           l.Description,
			LoanStatus:            l.Status,
			ParticipationStatus:   p.Status,
			InvitedAt:             p.InvitedAt,
			RespondedAt:           p.RespondedAt,
			TotalFunded:           l.TotalFunded,
			FundingPercentage:     l.Progress().Percentage,
			TotalPaid:             p.Paid(),
			RemainingBalance:      p.Remaining(),
			ExpectedAnnualReturn:  annual,
			ExpectedMonthlyReturn: annual.Div(twelve).Round(2),
			CreatedAt:             l.CreatedAt,
		})
		switch p.Status {
		case participant.StatusAccepted:
			s.TotalInvested = s.TotalInvested.Add(p.ContributionAmount)
			s.TotalExpectedReturns = s.TotalExpectedReturns.Add(annual)
			s.TotalReceived = s.TotalReceived.Add(p.Paid())
			if l.Status == loan.StatusActive {
				s.ActiveInvestments++
			}
		case participant.StatusPending:
			s.PendingInvitations++
		}
	}
	sort.SliceStable(out.Items, func(i, j int) bool { return out.Items[i].InvitedAt.After(out.Items[j].InvitedAt) })
	out.TotalCount = len(out.Items)
	return out, nil
}

// Dashboard returns the caller's borrower counters and, when they have been
// invited or are marked as a lender, their lender counters.
func (u *Usecase) Dashboard(ctx context.Context, req account.Requester) (*Dashboard, error) {
	var (
		loans []loan.Loan
		ps    []participant.Participant
		self  map[string]account.Account
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		loans, err = u.borrowerLoans(gctx, req.AccountID)
		return err
	})
	g.Go(func() error {
		var err error
		ps, err = u.participations(gctx, req)
		return err
	})
	g.Go(func() error {
		var err error
		self, err = u.agg.Accounts(gctx, []string{req.AccountID})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Dashboard{Borrower: borrowerDashboard(loans)}
	if acc, ok := self[req.AccountID]; len(ps) > 0 || (ok && acc.IsLender) {
		lender, err := u.lenderDashboard(ctx, ps)
		if err != nil {
			return nil, err
		}
		out.Lender = lender
	}
	return out, nil
}

func borrowerDashboard(loans []loan.Loan) *BorrowerDashboard {
	d := &BorrowerDashboard{TotalBorrowed: decimal.Zero, AverageInterestRate: decimal.Zero}
	rateSum := decimal.Zero
	for _, l := range loans {
		switch l.Status {
		case loan.StatusActive:
			d.ActiveLoans++
			d.TotalBorrowed = d.TotalBorrowed.Add(l.Amount)
			rateSum = rateSum.Add(l.InterestRate)
		case loan.StatusPending:
			d.PendingRequests++
		}
	}
	if d.ActiveLoans > 0 {
		d.AverageInterestRate = rateSum.Div(decimal.NewFromInt(int64(d.ActiveLoans))).Round(3)
	}
	return d
}

func (u *Usecase) lenderDashboard(ctx context.Context, ps []participant.Participant) (*LenderDashboard, error) {
	d := &LenderDashboard{TotalLent: decimal.Zero, ExpectedReturns: decimal.Zero}
	var accepted []participant.Participant
	for _, p := range ps {
		switch p.Status {
		case participant.StatusPending:
			d.PendingInvitations++
		case participant.StatusAccepted:
			d.ActiveInvestments++
			d.TotalLent = d.TotalLent.Add(p.ContributionAmount)
			accepted = append(accepted, p)
		}
	}
	if len(accepted) == 0 {
		return d, nil
	}
	byID, err := u.loansOf(ctx, accepted)
	if err != nil {
		return nil, err
	}
	for _, p := range accepted {
		if l, ok := byID[p.LoanID]; ok && l.Status == loan.StatusActive {
			d.ExpectedReturns = d.ExpectedReturns.Add(expectedReturn(p, l))
		}
	}
	return d, nil
}

// expectedReturn is one year of simple interest on the contribution.
func expectedReturn(p participant.Participant, l loan.Loan) decimal.Decimal {
	return p.ContributionAmount.Mul(l.InterestRate).Div(hundred).Round(2)
}

// borrowerLoans walks every page of the borrower's loans.
func (u *Usecase) borrowerLoans(ctx context.Context, borrowerID string) ([]loan.Loan, error) {
	var out []loan.Loan
	var after *loan.Cursor
	for {
		page, err := u.loans.ListByBorrower(ctx, borrowerID, after, pageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < pageSize {
			return out, nil
		}
		last := page[len(page)-1]
		after = &loan.Cursor{CreatedAt: last.CreatedAt, LoanID: last.LoanID}
	}
}

// participations returns the caller's rows under their account id and under
// a sentinel for their email, one per loan. The registered row wins.
func (u *Usecase) participations(ctx context.Context, req account.Requester) ([]participant.Participant, error) {
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
	out := make([]participant.Participant, 0, len(registered)+len(sentinels))
	for _, p := range append(registered, sentinels...) {
		if seen[p.LoanID] {
			continue
		}
		seen[p.LoanID] = true
		out = append(out, p)
	}
	return out, nil
}

func (u *Usecase) loansOf(ctx context.Context, ps []participant.Participant) (map[string]loan.Loan, error) {
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.LoanID
	}
	loans, err := u.loans.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]loan.Loan, len(loans))
	for _, l := range loans {
		out[l.LoanID] = l
	}
	return out, nil
}
