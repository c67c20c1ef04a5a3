package sqlcheck

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionFinding describes a string literal inside a query that libinjection
// flagged as a SQL injection pattern.
type InjectionFinding struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Literal     string // The literal content that was flagged
}

// ScanLiterals runs libinjection over the contents of every single-quoted
// string literal in the query. The keyword gate in Validate is the hard
// barrier; this scan is advisory and feeds logging, since a flagged literal
// inside an otherwise valid SELECT may still be legitimate data.
func ScanLiterals(query string) []*InjectionFinding {
	var findings []*InjectionFinding
	for _, literal := range extractStringLiterals(query) {
		if finding := CheckValue(literal); finding != nil {
			findings = append(findings, finding)
		}
	}
	return findings
}

// CheckValue runs libinjection against a single value. Returns nil when no
// injection pattern is detected.
func CheckValue(value string) *InjectionFinding {
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionFinding{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
		Literal:     value,
	}
}

// extractStringLiterals returns the contents of every single-quoted string
// literal, with SQL standard doubled quotes ('') collapsed to a single quote.
func extractStringLiterals(query string) []string {
	var literals []string
	var current []rune
	inString := false

	runes := []rune(query)
	for i := 0; i < len(runes); i++ {
		char := runes[i]
		if !inString {
			if char == '\'' {
				inString = true
				current = current[:0]
			}
			continue
		}

		if char == '\'' {
			// Doubled quote is an escaped quote inside the literal.
			if i+1 < len(runes) && runes[i+1] == '\'' {
				current = append(current, '\'')
				i++
				continue
			}
			literals = append(literals, string(current))
			inString = false
			continue
		}
		current = append(current, char)
	}

	return literals
}
