package http

import (
	"multilend/internal/apperr"
	"multilend/pkg/id"

	"github.com/labstack/echo/v4"
)

// pathID reads a record id from the route. Loan and payment ids are always
// canonical UUIDs, so anything else is reported as a missing record without
// touching the store.
func pathID(c echo.Context, name string) (string, error) {
	v := c.Param(name)
	if id.Valid(v) {
		return v, nil
	}
	if name == "payment_id" {
		return "", apperr.NotFound("Payment not found")
	}
	return "", apperr.NotFound("Loan not found")
}
