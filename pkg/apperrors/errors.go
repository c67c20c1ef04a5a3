// Package apperrors defines the error taxonomy shared across the
// catalog and query services.
package apperrors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrConnection indicates the target database could not be reached
	// or a connection pool could not be established.
	ErrConnection = errors.New("database connection failed")

	// ErrValidation indicates a query was rejected by the read-only gate
	// before reaching the database.
	ErrValidation = errors.New("query failed validation")

	// ErrIntrospection indicates a catalog query failed. Per-table
	// introspection failures are absorbed locally; this surfaces only
	// when the whole scan cannot proceed.
	ErrIntrospection = errors.New("schema introspection failed")

	// ErrExecution indicates a validated query failed at the database.
	ErrExecution = errors.New("query execution failed")

	// ErrUnsupportedDialect indicates the connection string scheme does
	// not match any registered database family.
	ErrUnsupportedDialect = errors.New("unsupported database dialect")
)

// ExecutionReason is a coarse classification of an execution failure,
// derived from common driver error shapes for caller-facing diagnostics.
type ExecutionReason string

const (
	ReasonColumnNotFound ExecutionReason = "column_not_found"
	ReasonTableNotFound  ExecutionReason = "table_not_found"
	ReasonSyntaxError    ExecutionReason = "syntax_error"
	ReasonOther          ExecutionReason = "other"
)

// ClassifyExecution pattern-matches a driver error against known shapes.
// PostgreSQL and MySQL errors carry structured codes; SQL Server and
// SQLite are matched on message text. Anything unrecognized is
// ReasonOther, never an error.
func ClassifyExecution(err error) ExecutionReason {
	if err == nil {
		return ReasonOther
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42703": // undefined_column
			return ReasonColumnNotFound
		case "42P01": // undefined_table
			return ReasonTableNotFound
		case "42601": // syntax_error
			return ReasonSyntaxError
		}
		return ReasonOther
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1054: // ER_BAD_FIELD_ERROR
			return ReasonColumnNotFound
		case 1146: // ER_NO_SUCH_TABLE
			return ReasonTableNotFound
		case 1064: // ER_PARSE_ERROR
			return ReasonSyntaxError
		}
		return ReasonOther
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such column"),
		strings.Contains(msg, "unknown column"),
		strings.Contains(msg, "invalid column name"):
		return ReasonColumnNotFound
	case strings.Contains(msg, "no such table"),
		strings.Contains(msg, "invalid object name"),
		strings.Contains(msg, "does not exist"):
		return ReasonTableNotFound
	case strings.Contains(msg, "syntax error"),
		strings.Contains(msg, "incorrect syntax"):
		return ReasonSyntaxError
	}
	return ReasonOther
}

// WrapExecution wraps a driver error as an ErrExecution carrying its
// classified reason in the message.
func WrapExecution(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w (%s): %v", ErrExecution, ClassifyExecution(err), err)
}

// WrapConnection wraps a dial/pool error as an ErrConnection.
func WrapConnection(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrConnection, err)
}
