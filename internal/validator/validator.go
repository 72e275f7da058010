// Package validator checks normalized sheet records for problems the
// normalizer cannot fix on its own, so reviewers see what to look at first.
package validator

import "ormd/internal/smv"

// Severity classifies how bad a failed rule is.
type Severity string

const (
	// SeverityError means the record should not be accepted as-is.
	SeverityError Severity = "error"
	// SeverityWarning means the value is suspicious but may be correct.
	SeverityWarning Severity = "warning"
)

// Result is the outcome of one rule against one field.
type Result struct {
	Passed      bool   `json:"passed"`
	FieldPath   string `json:"field_path"`
	ActualValue string `json:"actual_value"`
	Message     string `json:"message"`
}

// Validator is the interface for a single built-in validation rule.
type Validator interface {
	Validate(rec *smv.Record) []Result
	RuleKey() string
	RuleName() string
	Severity() Severity
}
