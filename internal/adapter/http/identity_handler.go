package http

import (
	"log/slog"
	"net/http"
	"time"

	"multilend/internal/adapter/middleware"
	"multilend/internal/usecase/identity"

	"github.com/labstack/echo/v4"
)

type IdentityHandler struct {
	uc  *identity.Usecase
	log *slog.Logger
	now func() time.Time
}

func NewIdentityHandler(uc *identity.Usecase, log *slog.Logger) *IdentityHandler {
	return &IdentityHandler{uc: uc, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Activate migrates the caller's invitations and sentinel participations to
// their account. The identity comes from the token, never from the body.
// Activation is best effort and the hook always answers 202.
func (h *IdentityHandler) Activate(c echo.Context) error {
	req, ok := middleware.RequesterFrom(c)
	if !ok {
		return errNoRequester
	}
	res := h.uc.Activate(c.Request().Context(), req.Email, req.AccountID, h.now())
	if res.IsDegraded() {
		h.log.Warn("activation degraded", "account_id", req.AccountID, "reason", res.Reason)
	}
	return c.JSON(http.StatusAccepted, res)
}
