package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassifyExecution(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason ExecutionReason
	}{
		{
			name:   "postgres undefined column",
			err:    &pgconn.PgError{Code: "42703", Message: `column "cgpa" does not exist`},
			reason: ReasonColumnNotFound,
		},
		{
			name:   "postgres undefined table",
			err:    &pgconn.PgError{Code: "42P01", Message: `relation "students" does not exist`},
			reason: ReasonTableNotFound,
		},
		{
			name:   "postgres syntax error",
			err:    &pgconn.PgError{Code: "42601", Message: `syntax error at or near "FORM"`},
			reason: ReasonSyntaxError,
		},
		{
			name:   "postgres permission denied falls back to other",
			err:    &pgconn.PgError{Code: "42501", Message: "permission denied"},
			reason: ReasonOther,
		},
		{
			name:   "mysql unknown column",
			err:    &mysql.MySQLError{Number: 1054, Message: "Unknown column 'cgpa' in 'field list'"},
			reason: ReasonColumnNotFound,
		},
		{
			name:   "mysql missing table",
			err:    &mysql.MySQLError{Number: 1146, Message: "Table 'db.students' doesn't exist"},
			reason: ReasonTableNotFound,
		},
		{
			name:   "mysql parse error",
			err:    &mysql.MySQLError{Number: 1064, Message: "You have an error in your SQL syntax"},
			reason: ReasonSyntaxError,
		},
		{
			name:   "sqlite no such table",
			err:    errors.New("SQL logic error: no such table: students (1)"),
			reason: ReasonTableNotFound,
		},
		{
			name:   "sqlite no such column",
			err:    errors.New("SQL logic error: no such column: cgpa (1)"),
			reason: ReasonColumnNotFound,
		},
		{
			name:   "sql server invalid object name",
			err:    errors.New("mssql: Invalid object name 'students'."),
			reason: ReasonTableNotFound,
		},
		{
			name:   "sql server incorrect syntax",
			err:    errors.New("mssql: Incorrect syntax near the keyword 'FROM'."),
			reason: ReasonSyntaxError,
		},
		{
			name:   "wrapped driver error still classified",
			err:    fmt.Errorf("run query: %w", &pgconn.PgError{Code: "42703"}),
			reason: ReasonColumnNotFound,
		},
		{
			name:   "unrecognized error",
			err:    errors.New("connection reset by peer"),
			reason: ReasonOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.reason, ClassifyExecution(tt.err))
		})
	}
}

func TestWrapExecution(t *testing.T) {
	err := WrapExecution(&mysql.MySQLError{Number: 1054, Message: "Unknown column 'x'"})
	assert.ErrorIs(t, err, ErrExecution)
	assert.Contains(t, err.Error(), string(ReasonColumnNotFound))

	assert.NoError(t, WrapExecution(nil))
}

func TestWrapConnection(t *testing.T) {
	err := WrapConnection(errors.New("dial tcp: connection refused"))
	assert.ErrorIs(t, err, ErrConnection)
	assert.NoError(t, WrapConnection(nil))
}
