package http

import (
	"log/slog"
	"net/http"

	"multilend/internal/adapter/middleware"
	"multilend/internal/usecase/loan"

	"github.com/labstack/echo/v4"
)

type LenderHandler struct {
	uc  *loan.Usecase
	log *slog.Logger
}

func NewLenderHandler(uc *loan.Usecase, log *slog.Logger) *LenderHandler {
	return &LenderHandler{uc: uc, log: log}
}

type acceptReq struct {
	BankName            string `json:"bank_name"            validate:"required,max=100"`
	AccountType         string `json:"account_type"         validate:"required,oneof=checking savings"`
	RoutingNumber       string `json:"routing_number"       validate:"required,len=9,numeric"`
	AccountNumber       string `json:"account_number"       validate:"required,numeric,min=4,max=20"`
	SpecialInstructions string `json:"special_instructions" validate:"max=500"`
}

type pendingResp struct {
	Invitations []loan.PendingInvitation `json:"invitations"`
	TotalCount  int                      `json:"total_count"`
}

func (h *LenderHandler) Pending(c echo.Context) error {
	req, ok := middleware.RequesterFrom(c)
	if !ok {
		return errNoRequester
	}
	list, err := h.uc.PendingInvitations(c.Request().Context(), req)
	if err != nil {
		return respondErr(c, h.log, err)
	}
	if list == nil {
		list = []loan.PendingInvitation{}
	}
	return c.JSON(http.StatusOK, pendingResp{Invitations: list, TotalCount: len(list)})
}

func (h *LenderHandler) Accept(c echo.Context) error {
	req, ok := middleware.RequesterFrom(c)
	if !ok {
		return errNoRequester
	}
	loanID, err := pathID(c, "loan_id")
	if err != nil {
		return respondErr(c, h.log, err)
	}
	var body acceptReq
	if err := c.Bind(&body); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&body); err != nil {
		return validationFailed(c, err)
	}
	out, err := h.uc.Accept(c.Request().Context(), req, loanID, loan.ACHInput{
		BankName:            body.BankName,
		AccountType:         body.AccountType,
		RoutingNumber:       body.RoutingNumber,
		AccountNumber:       body.AccountNumber,
		SpecialInstructions: body.SpecialInstructions,
	})
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *LenderHandler) Decline(c echo.Context) error {
	req, ok := middleware.RequesterFrom(c)
	if !ok {
		return errNoRequester
	}
	loanID, err := pathID(c, "loan_id")
	if err != nil {
		return respondErr(c, h.log, err)
	}
	out, err := h.uc.Decline(c.Request().Context(), req, loanID)
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}
