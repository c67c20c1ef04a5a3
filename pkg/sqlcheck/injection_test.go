package sqlcheck

import (
	"testing"
)

func TestExtractStringLiterals(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "no literals",
			input:    "SELECT id FROM users",
			expected: nil,
		},
		{
			name:     "single literal",
			input:    "SELECT * FROM users WHERE name = 'alice'",
			expected: []string{"alice"},
		},
		{
			name:     "multiple literals",
			input:    "SELECT * FROM t WHERE a = 'x' AND b = 'y'",
			expected: []string{"x", "y"},
		},
		{
			name:     "doubled quote collapses",
			input:    "SELECT * FROM users WHERE name = 'O''Brien'",
			expected: []string{"O'Brien"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractStringLiterals(tt.input)
			if len(got) != len(tt.expected) {
				t.Fatalf("got %d literals %v, want %d", len(got), got, len(tt.expected))
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("literal[%d] = %q, want %q", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestCheckValue(t *testing.T) {
	if finding := CheckValue("12345"); finding != nil {
		t.Errorf("expected clean value, got finding %+v", finding)
	}

	finding := CheckValue("' OR 1=1 --")
	if finding == nil {
		t.Fatal("expected injection finding for tautology payload")
	}
	if !finding.IsSQLi {
		t.Error("expected IsSQLi=true")
	}
	if finding.Fingerprint == "" {
		t.Error("expected non-empty fingerprint")
	}
}

func TestScanLiterals(t *testing.T) {
	findings := ScanLiterals("SELECT * FROM users WHERE name = 'alice'")
	if len(findings) != 0 {
		t.Errorf("expected no findings for benign query, got %v", findings)
	}

	findings = ScanLiterals("SELECT * FROM users WHERE name = '1'' OR ''1''=''1'")
	if len(findings) == 0 {
		t.Error("expected a finding for injection-shaped literal")
	}
}
