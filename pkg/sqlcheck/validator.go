// Package sqlcheck validates that queries submitted for execution are
// read-only SELECT statements before they ever reach a database.
package sqlcheck

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrEmptyQuery indicates the query was empty or whitespace-only.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrNotSelect indicates the query does not begin with SELECT.
	ErrNotSelect = errors.New("only SELECT queries are allowed")

	// ErrForbiddenKeyword indicates the query contains a write or DDL keyword.
	ErrForbiddenKeyword = errors.New("query contains a forbidden keyword")

	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")
)

// forbiddenKeywords matches write and DDL keywords as whole words only, so
// identifiers like deleted_at or created_by pass. Matching is case-insensitive.
var forbiddenKeywords = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|TRUNCATE|EXECUTE|EXEC|CALL)\b`)

var selectPrefix = regexp.MustCompile(`(?i)^\s*SELECT\b`)

// CheckResult contains the normalized SQL and the outcome of validation.
type CheckResult struct {
	NormalizedSQL string
	Error         error
	Keyword       string // the forbidden keyword found, if any
}

// Validate determines whether a query is safe to run against a live database.
//
// The validation order is:
//  1. Reject empty or whitespace-only queries
//  2. Strip a trailing semicolon and reject multi-statement input
//  3. Require the statement to begin with SELECT
//  4. Reject any whole-word occurrence of a write or DDL keyword
//
// The keyword scan is deliberately lexical: a query selecting a column
// literally named "call" or "exec" is rejected. That trade-off keeps the
// gate simple and errs on the side of refusing to run a query.
func Validate(query string) CheckResult {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return CheckResult{Error: ErrEmptyQuery}
	}

	normalized := stripTrailingSemicolon(trimmed)
	if hasSemicolonOutsideStrings(normalized) {
		return CheckResult{Error: ErrMultipleStatements}
	}

	if !selectPrefix.MatchString(normalized) {
		return CheckResult{Error: ErrNotSelect}
	}

	if m := forbiddenKeywords.FindString(normalized); m != "" {
		return CheckResult{
			Error:   fmt.Errorf("%w: %s", ErrForbiddenKeyword, strings.ToUpper(m)),
			Keyword: strings.ToUpper(m),
		}
	}

	return CheckResult{NormalizedSQL: normalized}
}

// IsSafe reports whether a query passes validation, with a human-readable
// reason when it does not.
func IsSafe(query string) (bool, string) {
	result := Validate(query)
	if result.Error != nil {
		return false, result.Error.Error()
	}
	return true, ""
}
