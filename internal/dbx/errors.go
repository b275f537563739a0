package dbx

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// IsTransient reports whether err is a deadline, cancellation or connection
// failure, i.e. something a retry may fix.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsUniqueViolation reports whether err is a PostgreSQL unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// WrapStoreError annotates err with op. Transient failures additionally wrap
// common.ErrStoreTransient so callers can tell them apart from rejections.
func WrapStoreError(op string, err error) error {
	if IsTransient(err) {
		return fmt.Errorf("%s: %w: %w", op, common.ErrStoreTransient, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
