package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"multilend/internal/apperr"

	"github.com/labstack/echo/v4"
)

// Reusable error payload
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string       `json:"error"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
	LoanID  string       `json:"loan_id,omitempty"`
}

func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation, apperr.KindInvalidIdempotencyToken, apperr.KindInvalidPaginationToken:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindThrottled:
		return http.StatusTooManyRequests
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// ErrorHandler renders every error that reaches echo, from handlers and
// middleware alike, as an ErrorResponse.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := http.StatusText(he.Code)
			if s, ok := he.Message.(string); ok {
				msg = s
			}
			_ = c.JSON(he.Code, ErrorResponse{Error: http.StatusText(he.Code), Message: msg})
			return
		}
		_ = respondErr(c, log, err)
	}
}

func respondErr(c echo.Context, log *slog.Logger, err error) error {
	kind := apperr.KindOf(err)
	code := statusFor(kind)
	resp := ErrorResponse{Error: string(kind), Message: apperr.MessageOf(err), LoanID: apperr.LoanIDOf(err)}

	if kind == apperr.KindUnexpected {
		log.Error("unexpected error", "method", c.Request().Method, "path", c.Request().URL.Path, "error", err)
		if resp.LoanID == "" {
			resp.Message = "internal error"
		}
	}
	if ra := apperr.RetryAfterOf(err); ra > 0 {
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(ra.Seconds())))
	}
	return c.JSON(code, resp)
}

func validationFailed(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   string(apperr.KindValidation),
		Message: "validation failed",
		Details: ToFieldErrors(err),
	})
}

func invalidBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: string(apperr.KindValidation), Message: "invalid body"})
}
