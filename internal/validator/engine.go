package validator

import "ormd/internal/smv"

// Status is the aggregate outcome of a validation run.
type Status string

const (
	StatusValid   Status = "valid"
	StatusWarning Status = "warning"
	StatusInvalid Status = "invalid"
)

// ResultItem is one rule outcome in a report.
type ResultItem struct {
	RuleKey     string   `json:"rule_key"`
	RuleName    string   `json:"rule_name"`
	Severity    Severity `json:"severity"`
	Passed      bool     `json:"passed"`
	FieldPath   string   `json:"field_path"`
	ActualValue string   `json:"actual_value"`
	Message     string   `json:"message"`
}

// Summary holds aggregate counts of validation results.
type Summary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// Report is the full outcome of validating one record.
type Report struct {
	Status  Status       `json:"status"`
	Summary Summary      `json:"summary"`
	Results []ResultItem `json:"results"`
}

// Engine runs registered rules against normalized records.
type Engine struct {
	registry *Registry
}

// NewEngine creates a validation engine over a registry.
func NewEngine(registry *Registry) *Engine {
	return &Engine{registry: registry}
}

// Validate runs every registered rule against the record.
func (e *Engine) Validate(rec *smv.Record) *Report {
	report := &Report{Status: StatusValid}

	for _, v := range e.registry.All() {
		for _, res := range v.Validate(rec) {
			report.Summary.Total++
			item := ResultItem{
				RuleKey:     v.RuleKey(),
				RuleName:    v.RuleName(),
				Severity:    v.Severity(),
				Passed:      res.Passed,
				FieldPath:   res.FieldPath,
				ActualValue: res.ActualValue,
				Message:     res.Message,
			}
			report.Results = append(report.Results, item)

			if res.Passed {
				report.Summary.Passed++
				continue
			}
			if v.Severity() == SeverityError {
				report.Summary.Errors++
				report.Status = StatusInvalid
			} else {
				report.Summary.Warnings++
				if report.Status == StatusValid {
					report.Status = StatusWarning
				}
			}
		}
	}

	return report
}
