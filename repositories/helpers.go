package repositories

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ErrTransient marks storage failures worth retrying by the caller.
var ErrTransient = errors.New("transient storage failure")

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError // Возвращаем переданную ошибку "не найдено"
	}
	return nil
}

// isTransient reports connection loss, serialization failures and deadlocks.
func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		switch {
		case strings.HasPrefix(code, "08"): // connection_exception
			return true
		case code == "40001", code == "40P01": // serialization_failure, deadlock_detected
			return true
		case code == "57P01", code == "57P03": // admin_shutdown, cannot_connect_now
			return true
		}
	}
	return false
}

// wrapDBError adds the operation context and tags retryable failures.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return fmt.Errorf("%w: %s: %v", ErrTransient, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
