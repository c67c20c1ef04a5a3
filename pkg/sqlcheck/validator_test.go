package sqlcheck

import (
	"errors"
	"testing"
)

func TestValidate_ValidQueries(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple select without semicolon",
			input:    "SELECT 1",
			expected: "SELECT 1",
		},
		{
			name:     "simple select with trailing semicolon",
			input:    "SELECT 1;",
			expected: "SELECT 1",
		},
		{
			name:     "lowercase select",
			input:    "select * from users",
			expected: "select * from users",
		},
		{
			name:     "leading whitespace before select",
			input:    "   SELECT * FROM users",
			expected: "SELECT * FROM users",
		},
		{
			name:     "column named deleted_at passes whole-word check",
			input:    "SELECT deleted_at FROM users WHERE deleted_at IS NULL",
			expected: "SELECT deleted_at FROM users WHERE deleted_at IS NULL",
		},
		{
			name:     "column named update_count passes",
			input:    "SELECT update_count FROM stats",
			expected: "SELECT update_count FROM stats",
		},
		{
			name:     "table named created_items passes",
			input:    "SELECT * FROM created_items",
			expected: "SELECT * FROM created_items",
		},
		{
			name:     "aggregate query",
			input:    "SELECT AVG(cgpa) FROM students;",
			expected: "SELECT AVG(cgpa) FROM students",
		},
		{
			name:     "semicolon inside single quoted string",
			input:    "SELECT * FROM users WHERE name = 'test;test'",
			expected: "SELECT * FROM users WHERE name = 'test;test'",
		},
		{
			name:     "SQL standard escaped single quote",
			input:    "SELECT * FROM users WHERE name = 'O''Brien'",
			expected: "SELECT * FROM users WHERE name = 'O''Brien'",
		},
		{
			name:     "multiline select",
			input:    "SELECT id,\n  name\nFROM users\nWHERE id = 1;",
			expected: "SELECT id,\n  name\nFROM users\nWHERE id = 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.input)
			if result.Error != nil {
				t.Fatalf("expected no error, got %v", result.Error)
			}
			if result.NormalizedSQL != tt.expected {
				t.Errorf("NormalizedSQL = %q, want %q", result.NormalizedSQL, tt.expected)
			}
		})
	}
}

func TestValidate_RejectedQueries(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:    "empty query",
			input:   "",
			wantErr: ErrEmptyQuery,
		},
		{
			name:    "whitespace only",
			input:   "   \t\n  ",
			wantErr: ErrEmptyQuery,
		},
		{
			name:    "insert statement",
			input:   "INSERT INTO users (name) VALUES ('x')",
			wantErr: ErrNotSelect,
		},
		{
			name:    "update statement",
			input:   "UPDATE users SET name = 'x'",
			wantErr: ErrNotSelect,
		},
		{
			name:    "drop statement",
			input:   "DROP TABLE users",
			wantErr: ErrNotSelect,
		},
		{
			name:    "select with embedded delete keyword",
			input:   "SELECT * FROM users; DELETE FROM users",
			wantErr: ErrMultipleStatements,
		},
		{
			name:    "select wrapping a drop",
			input:   "SELECT * FROM (DROP TABLE users)",
			wantErr: ErrForbiddenKeyword,
		},
		{
			name:    "lowercase truncate inside select",
			input:   "SELECT 1 WHERE truncate = 1",
			wantErr: ErrForbiddenKeyword,
		},
		{
			name:    "exec as whole word",
			input:   "SELECT exec FROM jobs",
			wantErr: ErrForbiddenKeyword,
		},
		{
			name:    "call as whole word",
			input:   "SELECT call FROM phone_log",
			wantErr: ErrForbiddenKeyword,
		},
		{
			name:    "multiple statements",
			input:   "SELECT 1; SELECT 2",
			wantErr: ErrMultipleStatements,
		},
		{
			name:    "with clause not accepted",
			input:   "WITH t AS (SELECT 1) SELECT * FROM t",
			wantErr: ErrNotSelect,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.input)
			if result.Error == nil {
				t.Fatalf("expected error %v, got nil (normalized: %q)", tt.wantErr, result.NormalizedSQL)
			}
			if !errors.Is(result.Error, tt.wantErr) {
				t.Errorf("error = %v, want %v", result.Error, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsKeyword(t *testing.T) {
	result := Validate("SELECT * FROM t WHERE drop = 1")
	if result.Keyword != "DROP" {
		t.Errorf("Keyword = %q, want DROP", result.Keyword)
	}
}

func TestIsSafe(t *testing.T) {
	safe, reason := IsSafe("SELECT * FROM users")
	if !safe {
		t.Errorf("expected safe, got reason %q", reason)
	}

	safe, reason = IsSafe("DROP TABLE users")
	if safe {
		t.Error("expected unsafe for DROP TABLE")
	}
	if reason == "" {
		t.Error("expected non-empty reason for rejected query")
	}
}
