package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"

	"multilend/internal/usecase/idempotency"

	"github.com/labstack/echo/v4"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

type respRecorder struct {
	w    http.ResponseWriter
	buf  *bytes.Buffer
	code int
}

func (r *respRecorder) Header() http.Header { return r.w.Header() }
func (r *respRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.w.Write(b)
}
func (r *respRecorder) WriteHeader(statusCode int) { r.code = statusCode; r.w.WriteHeader(statusCode) }

// Idempotency replays the stored response of a request carrying an
// Idempotency-Key already seen for the same method, path and requester.
// Requests without the header pass straight through.
func Idempotency(g *idempotency.Guard, log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := strings.TrimSpace(c.Request().Header.Get(HeaderIdempotencyKey))
			if key == "" {
				return next(c)
			}
			req := c.Request()
			requester, _ := RequesterFrom(c)
			scope := req.Method + " " + req.URL.Path + " " + requester.AccountID

			ran := false
			resp, out, err := g.SubmitScoped(req.Context(), scope, key, func(ctx context.Context) (idempotency.Response, error) {
				ran = true
				rec := &respRecorder{w: c.Response().Writer, buf: &bytes.Buffer{}, code: http.StatusOK}
				c.Response().Writer = rec
				if err := next(c); err != nil {
					c.Error(err)
				}
				return idempotency.Response{Status: rec.code, Body: rec.buf.Bytes()}, nil
			})
			if err != nil {
				return err
			}
			if out.IsDegraded() {
				log.Warn("idempotency degraded", "path", req.URL.Path, "reason", out.Reason)
			}
			if ran {
				return nil
			}
			c.Response().Header().Set(HeaderReplayed, "true")
			return c.Blob(resp.Status, echo.MIMEApplicationJSONCharsetUTF8, resp.Body)
		}
	}
}
