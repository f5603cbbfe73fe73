package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// SQLExecutor позволяет репозиториям работать как с *sql.DB, так и с *sql.Tx,
// когда транзакцией управляет сервисный слой.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Категории ошибок БД, на которые опирается сервисный слой.
var (
	ErrDuplicateKey        = errors.New("duplicate key violation")
	ErrForeignKeyViolation = errors.New("foreign key violation")
	ErrCheckViolation      = errors.New("check constraint violation")
	ErrFunctionNotFound    = errors.New("database function not found")
	ErrPermissionDenied    = errors.New("permission denied by database")
)

// classifyPQError сводит коды ошибок Postgres к общим категориям.
// Репозитории сначала проверяют имена constraint для доменных ошибок,
// затем падают обратно на эту классификацию.
func classifyPQError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "23505":
		return fmt.Errorf("%w: %s", ErrDuplicateKey, pqErr.Constraint)
	case "23503":
		return fmt.Errorf("%w: %s", ErrForeignKeyViolation, pqErr.Constraint)
	case "23514":
		return fmt.Errorf("%w: %s", ErrCheckViolation, pqErr.Constraint)
	case "42883":
		return fmt.Errorf("%w: %s", ErrFunctionNotFound, pqErr.Message)
	case "42501":
		return fmt.Errorf("%w: %s", ErrPermissionDenied, pqErr.Message)
	}
	return err
}

func pqConstraint(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

func checkRowsAffected(result sql.Result) (int64, error) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return rowsAffected, nil
}
