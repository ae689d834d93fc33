package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	apperrors "webcrud/internal/errors"
)

// MySQL server error numbers the store translates.
const (
	mysqlDuplicateEntry  = 1062
	mysqlBadNull         = 1048
	mysqlNoDefault       = 1364
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
	mysqlDataTooLong     = 1406
	mysqlCheckConstraint = 3819
)

// translate maps driver and gorm errors onto the application taxonomy.
// op names the failing operation and is kept in the wrapped message.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, apperrors.ErrUserNotFound)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", op, apperrors.ErrDuplicateUser)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return fmt.Errorf("%s: %w", op, apperrors.ErrDuplicateUser)
		case mysqlBadNull, mysqlNoDefault, mysqlRowIsReferenced, mysqlNoReferencedRow, mysqlDataTooLong, mysqlCheckConstraint:
			return fmt.Errorf("%s: %w: %s", op, apperrors.ErrConstraintViolation, myErr.Message)
		}
	}

	if isConnectionError(err) {
		return fmt.Errorf("%s: %w: %v", op, apperrors.ErrInfrastructure, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
