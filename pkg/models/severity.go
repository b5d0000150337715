package models

import (
	"fmt"
	"strings"
)

// Severity is one of the fixed perceived-severity levels, loosely following
// the ITU-T X.736 model. Lower rank means more severe.
type Severity string

const (
	SeverityCritical      Severity = "critical"
	SeverityMajor         Severity = "major"
	SeverityMinor         Severity = "minor"
	SeverityWarning       Severity = "warning"
	SeverityIndeterminate Severity = "indeterminate"
	SeverityCleared       Severity = "cleared"
	SeverityNormal        Severity = "normal"
	SeverityInformational Severity = "informational"
	SeverityDebug         Severity = "debug"
	SeveritySecurity      Severity = "security"
	SeverityUnknown       Severity = "unknown"
)

// severityRanks is the fixed rank table. Ties are allowed: indeterminate,
// cleared and normal all share rank 5.
var severityRanks = map[Severity]int{
	SeverityCritical:      1,
	SeverityMajor:         2,
	SeverityMinor:         3,
	SeverityWarning:       4,
	SeverityIndeterminate: 5,
	SeverityCleared:       5,
	SeverityNormal:        5,
	SeverityInformational: 6,
	SeverityDebug:         7,
	SeveritySecurity:      8,
	SeverityUnknown:       9,
}

// TrendIndication is the qualitative direction of a severity change.
type TrendIndication string

const (
	TrendNoChange   TrendIndication = "noChange"
	TrendMoreSevere TrendIndication = "moreSevere"
	TrendLessSevere TrendIndication = "lessSevere"
)

// Rank returns the numeric rank of a severity. Unlisted values rank as
// unknown; validation happens at the ingestion boundary, not here.
func (s Severity) Rank() int {
	if r, ok := severityRanks[s]; ok {
		return r
	}
	return severityRanks[SeverityUnknown]
}

// IsValidSeverity reports whether s is the canonical form of a severity.
func IsValidSeverity(s string) bool {
	_, ok := severityRanks[Severity(s)]
	return ok
}

// ParseSeverity folds s to the canonical lowercase form, rejecting values
// outside the fixed vocabulary.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(s))
	if _, ok := severityRanks[sev]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
	}
	return sev, nil
}

// Trend compares the previous and current severity ranks. A lower rank is
// more severe, so dropping in rank means the alert escalated.
func Trend(previous, current Severity) TrendIndication {
	switch {
	case current.Rank() < previous.Rank():
		return TrendMoreSevere
	case current.Rank() > previous.Rank():
		return TrendLessSevere
	default:
		return TrendNoChange
	}
}
