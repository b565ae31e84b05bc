package http

import (
	"log/slog"

	"multilend/internal/adapter/middleware"
	"multilend/internal/usecase/idempotency"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Health    *Handler
	Loans     *LoanHandler
	Lenders   *LenderHandler
	Payments  *PaymentHandler
	Identity  *IdentityHandler
	Portfolio *PortfolioHandler
}

// Register installs the validator, the error handler and every route.
// Everything except /health requires a bearer token.
func Register(e *echo.Echo, h Handlers, guard *idempotency.Guard, jwtSecret []byte, log *slog.Logger) {
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler(log)

	e.GET("/health", h.Health.Health)

	api := e.Group("", middleware.Auth(jwtSecret))
	idem := middleware.Idempotency(guard, log)

	api.POST("/loans", h.Loans.CreateLoan, idem)
	api.GET("/loans/my-loans", h.Loans.ListMyLoans)
	api.GET("/loans/:loan_id", h.Loans.GetLoanDetails)
	api.POST("/loans/:loan_id/lenders", h.Loans.AddLenders, idem)

	api.GET("/lender/pending", h.Lenders.Pending)
	api.PUT("/lender/accept/:loan_id", h.Lenders.Accept, idem)
	api.PUT("/lender/decline/:loan_id", h.Lenders.Decline)
	api.GET("/lenders/search", h.Portfolio.SearchLenders)

	api.GET("/user/dashboard", h.Portfolio.Dashboard)
	api.GET("/user/lender-portfolio", h.Portfolio.LenderPortfolio)

	api.POST("/payments", h.Payments.Submit, idem)
	api.GET("/payments/loan/:loan_id", h.Payments.ListByLoan)
	api.GET("/payments/:payment_id", h.Payments.Get)
	api.PUT("/payments/:payment_id/approve", h.Payments.Approve)
	api.PUT("/payments/:payment_id/reject", h.Payments.Reject)

	api.POST("/internal/identity/activate", h.Identity.Activate)
}
