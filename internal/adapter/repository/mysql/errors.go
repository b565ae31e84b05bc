package mysql

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"multilend/internal/apperr"

	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

const (
	throttleRetryAfter    = 5 * time.Second
	unavailableRetryAfter = 10 * time.Second
)

// storeErr maps driver failures onto apperr kinds so the HTTP layer can hand
// a retry hint back to clients. op prefixes the message, e.g. "loans: create".
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("%s: %w", op, err)

	var me *mysqldrv.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case 1040, 1203: // too many connections, max_user_connections
			return apperr.Throttled(wrapped, throttleRetryAfter)
		case 1205, 1213: // lock wait timeout, deadlock
			return apperr.Unavailable(wrapped, unavailableRetryAfter)
		case 1062:
			return apperr.Wrap(apperr.KindConflict, "record already exists", wrapped)
		}
	}
	switch {
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, mysqldrv.ErrInvalidConn):
		return apperr.Unavailable(wrapped, unavailableRetryAfter)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Wrap(apperr.KindConflict, "record already exists", wrapped)
	}
	return wrapped
}
