package http

import (
	"log/slog"
	"net/http"

	"multilend/internal/adapter/middleware"
	"multilend/internal/usecase/portfolio"

	"github.com/labstack/echo/v4"
)

type PortfolioHandler struct {
	uc  *portfolio.Usecase
	log *slog.Logger
}

func NewPortfolioHandler(uc *portfolio.Usecase, log *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{uc: uc, log: log}
}

// SearchLenders lists the caller's past lenders, filtered by ?q=.
func (h *PortfolioHandler) SearchLenders(c echo.Context) error {
	req, ok := middleware.RequesterFrom(c)
	if !ok {
		return errNoRequester
	}
	out, err := h.uc.SearchLenders(c.Request().Context(), req, c.QueryParam("q"))
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PortfolioHandler) LenderPortfolio(c echo.Context) error {
	req, ok := middleware.RequesterFrom(c)
	if !ok {
		return errNoRequester
	}
	out, err := h.uc.LenderPortfolio(c.Request().Context(), req)
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PortfolioHandler) Dashboard(c echo.Context) error {
	req, ok := middleware.RequesterFrom(c)
	if !ok {
		return errNoRequester
	}
	out, err := h.uc.Dashboard(c.Request().Context(), req)
	if err != nil {
		return respondErr(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}
