package http

import (
	"log/slog"
	"net/http"

	"multilend/internal/adapter/middleware"
	"multilend/internal/domain/payment"
	paymentuc "multilend/internal/usecase/payment"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type PaymentHandler struct {
	uc  *paymentuc.Usecase
	log *slog.Logger
}

func NewPaymentHandler(uc *paymentuc.Usecase, log *slog.Logger) *PaymentHandler {
	return &PaymentHandler{uc: uc, log: log}
}

type submitPaymentReq struct {
	LoanID      string          `json:"loan_id"      validate:"required"`
	LenderID    string          `json:"lender_id"    validate:"required"`
	Amount      decimal.Decimal `json:"amount"       validate:"dpos,dec2"`
	PaymentDate string          `json:"payment_date" validate:"required,datetime=2006-01-02"`
	Notes       string          `json:"notes"        validate:"max=1000"`
	ReceiptKey  string          `json:"receipt_key"  validate:"max=512"`
}

type approveReq struct {
	ApprovalNotes string `json:"approval_notes" validate:"max=1000"`
}

type rejectReq struct {
	RejectionReason string `json:"rejection_reason" validate:"required,max=1000"`
}

type paymentResp struct {
	Payment *payment.Payment `json:"payment"`
	Message string           `json:"message"`
}

func (h *PaymentHandler) Submit(c echo.Context) error {
	req, ok := middleware.RequesterFrom(c)
	if !ok {
		return errNoRequester
	}
	var body submitPaymentReq
	if err := c.Bind(&body); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&body); err != nil {
		return validationFailed(c, err)
	}
	p, err := h.uc.Submit(c.Request().Context(), req, paymentuc.SubmitInput{
		LoanID:      body.LoanID,
		LenderID:    body.LenderID,
		Amount:      body.Amount,
		PaymentDate: body.PaymentDate,
		Notes:       body.Notes,
		ReceiptKey:  body.ReceiptKey,
	})
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, paymentResp{Payment: p, Message: "Payment submitted successfully"})
}

func (h *PaymentHandler) Get(c echo.Context) error {
	req, ok := middleware.RequesterFrom(c)
	if !ok {
		return errNoRequester
	}
	paymentID, err := pathID(c, "payment_id")
	if err != nil {
		return respondErr(c, h.log, err)
	}
	p, err := h.uc.Get(c.Request().Context(), req, paymentID)
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PaymentHandler) ListByLoan(c echo.Context) error {
	req, ok := middleware.RequesterFrom(c)
	if !ok {
		return errNoRequester
	}
	loanID, err := pathID(c, "loan_id")
	if err != nil {
		return respondErr(c, h.log, err)
	}
	list, err := h.uc.ListByLoan(c.Request().Context(), req, loanID)
	if err != nil {
		return respondErr(c, h.log, err)
	}
	if list == nil {
		list = []payment.Payment{}
	}
	return c.JSON(http.StatusOK, map[string]any{"payments": list})
}

func (h *PaymentHandler) Approve(c echo.Context) error {
	req, ok := middleware.RequesterFrom(c)
	if !ok {
		return errNoRequester
	}
	paymentID, err := pathID(c, "payment_id")
	if err != nil {
		return respondErr(c, h.log, err)
	}
	var body approveReq
	if err := c.Bind(&body); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&body); err != nil {
		return validationFailed(c, err)
	}
	p, err := h.uc.Approve(c.Request().Context(), req, paymentID, body.ApprovalNotes)
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(http.StatusOK, paymentResp{Payment: p, Message: "Payment approved successfully"})
}

func (h *PaymentHandler) Reject(c echo.Context) error {
	req, ok := middleware.RequesterFrom(c)
	if !ok {
		return errNoRequester
	}
	paymentID, err := pathID(c, "payment_id")
	if err != nil {
		return respondErr(c, h.log, err)
	}
	var body rejectReq
	if err := c.Bind(&body); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&body); err != nil {
		return validationFailed(c, err)
	}
	p, err := h.uc.Reject(c.Request().Context(), req, paymentID, body.RejectionReason)
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(http.StatusOK, paymentResp{Payment: p, Message: "Payment rejected"})
}
