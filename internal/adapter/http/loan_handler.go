package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"multilend/internal/adapter/middleware"
	"multilend/internal/apperr"
	"multilend/internal/domain/amortization"
	"multilend/internal/usecase/loan"
	"multilend/internal/usecase/loanview"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

var errNoRequester = apperr.New(apperr.KindUnauthorized, "missing requester")

type LoanHandler struct {
	uc   *loan.Usecase
	view *loanview.Projector
	log  *slog.Logger
}

func NewLoanHandler(uc *loan.Usecase, view *loanview.Projector, log *slog.Logger) *LoanHandler {
	return &LoanHandler{uc: uc, view: view, log: log}
}

type lenderReq struct {
	Email              string          `json:"email"               validate:"required,email"`
	ContributionAmount decimal.Decimal `json:"contribution_amount" validate:"dpos,dec2"`
}

type createLoanReq struct {
	LoanName         string          `json:"loan_name"         validate:"required,max=255"`
	Amount           decimal.Decimal `json:"amount"            validate:"dpos,dec2"`
	InterestRate     decimal.Decimal `json:"interest_rate"     validate:"dpos"`
	StartDate        string          `json:"start_date"        validate:"required,datetime=2006-01-02"`
	PaymentFrequency string          `json:"payment_frequency" validate:"required,oneof=Weekly Bi-Weekly Monthly Quarterly Annually"`
	TermLength       int             `json:"term_length"       validate:"required,gte=1,lte=60"`
	Purpose          string          `json:"purpose"           validate:"required,max=100"`
	Description      string          `json:"description"       validate:"required,max=1000"`
	Lenders          []lenderReq     `json:"lenders"           validate:"max=20,dive"`
}

type addLendersReq struct {
	Lenders []lenderReq `json:"lenders" validate:"required,min=1,max=20,dive"`
}

func toLenderInputs(in []lenderReq) []loan.LenderInput {
	out := make([]loan.LenderInput, len(in))
	for i, l := range in {
		out[i] = loan.LenderInput{Email: l.Email, ContributionAmount: l.ContributionAmount}
	}
	return out
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	req, ok := middleware.RequesterFrom(c)
	if !ok {
		return errNoRequester
	}
	var body createLoanReq
	if err := c.Bind(&body); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&body); err != nil {
		return validationFailed(c, err)
	}
	out, err := h.uc.CreateLoan(c.Request().Context(), req, loan.CreateLoanInput{
		LoanName:         body.LoanName,
		Amount:           body.Amount,
		InterestRate:     body.InterestRate,
		StartDate:        body.StartDate,
		PaymentFrequency: amortization.Frequency(body.PaymentFrequency),
		TermLength:       body.TermLength,
		Purpose:          body.Purpose,
		Description:      body.Description,
		Lenders:          toLenderInputs(body.Lenders),
	})
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *LoanHandler) ListMyLoans(c echo.Context) error {
	req, ok := middleware.RequesterFrom(c)
	if !ok {
		return errNoRequester
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return respondErr(c, h.log, apperr.Validation("limit must be a positive integer"))
		}
		limit = n
	}
	page, err := h.uc.ListMyLoans(c.Request().Context(), req, limit, c.QueryParam("next_token"))
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *LoanHandler) GetLoanDetails(c echo.Context) error {
	req, ok := middleware.RequesterFrom(c)
	if !ok {
		return errNoRequester
	}
	loanID, err := pathID(c, "loan_id")
	if err != nil {
		return respondErr(c, h.log, err)
	}
	out, err := h.view.GetLoanDetails(c.Request().Context(), req, loanID)
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *LoanHandler) AddLenders(c echo.Context) error {
	req, ok := middleware.RequesterFrom(c)
	if !ok {
		return errNoRequester
	}
	loanID, err := pathID(c, "loan_id")
	if err != nil {
		return respondErr(c, h.log, err)
	}
	var body addLendersReq
	if err := c.Bind(&body); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&body); err != nil {
		return validationFailed(c, err)
	}
	out, err := h.uc.AddLenders(c.Request().Context(), req, loanID, toLenderInputs(body.Lenders))
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}
