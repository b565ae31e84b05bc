package middleware

import (
	"errors"
	"strings"
	"time"

	"multilend/internal/apperr"
	"multilend/internal/domain/account"
	"multilend/internal/domain/participant"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const requesterKey = "requester"

// Claims are issued by the auth service. Subject is the account id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func GenerateToken(secret []byte, req account.Requester, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: req.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.AccountID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func ParseToken(secret []byte, raw string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Auth turns a Bearer token into the request's Requester.
func Auth(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(h, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return apperr.New(apperr.KindUnauthorized, "missing bearer token")
			}
			claims, err := ParseToken(secret, strings.TrimSpace(raw))
			if err != nil {
				return apperr.Wrap(apperr.KindUnauthorized, "invalid or expired token", err)
			}
			c.Set(requesterKey, account.Requester{
				AccountID: claims.Subject,
				Email:     participant.NormalizeEmail(claims.Email),
			})
			return next(c)
		}
	}
}

func RequesterFrom(c echo.Context) (account.Requester, bool) {
	r, ok := c.Get(requesterKey).(account.Requester)
	return r, ok
}

// WithRequester is for handlers exercised without the Auth middleware.
func WithRequester(c echo.Context, r account.Requester) { c.Set(requesterKey, r) }
