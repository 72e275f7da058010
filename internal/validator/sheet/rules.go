// Package sheet holds the built-in validation rules for normalized
// registry-sheet records.
package sheet

import (
	"fmt"
	"regexp"
	"time"

	"ormd/internal/smv"
	"ormd/internal/validator"
)

var (
	dniPattern   = regexp.MustCompile(`^\d{11}$`)
	lmPattern    = regexp.MustCompile(`^\d{10}$`)
	orPattern    = regexp.MustCompile(`^\d{3}[A-Z]$`)
	clasePattern = regexp.MustCompile(`^\d{4}$`)
	datePattern  = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
)

// DefaultRegistry returns a registry with every built-in sheet rule.
func DefaultRegistry() *validator.Registry {
	r := validator.NewRegistry()
	r.Register(&identityRule{})
	r.Register(formatRule("dni_format", "DNI format", "dni", dniPattern,
		func(rec *smv.Record) *string { return rec.DNI }))
	r.Register(formatRule("lm_format", "LM format", "lm", lmPattern,
		func(rec *smv.Record) *string { return rec.LM }))
	r.Register(formatRule("or_format", "OR format", "or", orPattern,
		func(rec *smv.Record) *string { return rec.OR }))
	r.Register(formatRule("clase_format", "Clase format", "clase", clasePattern,
		func(rec *smv.Record) *string { return rec.Clase }))
	r.Register(&dateRule{})
	r.Register(&serviceConsistencyRule{})
	return r
}

// identityRule requires at least one identity number on the record.
type identityRule struct{}

func (r *identityRule) RuleKey() string              { return "identity_present" }
func (r *identityRule) RuleName() string             { return "Identity number present" }
func (r *identityRule) Severity() validator.Severity { return validator.SeverityError }

func (r *identityRule) Validate(rec *smv.Record) []validator.Result {
	passed := rec.DNI != nil || rec.LM != nil
	msg := "record has an identity number"
	if !passed {
		msg = "record has neither a DNI nor an LM number"
	}
	return []validator.Result{{Passed: passed, FieldPath: "dni", Message: msg}}
}

// fieldFormatRule checks an optional field against a pattern. Nil fields pass;
// the normalizer already nulled anything it could not repair.
type fieldFormatRule struct {
	ruleKey   string
	ruleName  string
	fieldPath string
	pattern   *regexp.Regexp
	extract   func(*smv.Record) *string
}

func formatRule(key, name, fieldPath string, pattern *regexp.Regexp, extract func(*smv.Record) *string) *fieldFormatRule {
	return &fieldFormatRule{
		ruleKey:   key,
		ruleName:  name,
		fieldPath: fieldPath,
		pattern:   pattern,
		extract:   extract,
	}
}

func (r *fieldFormatRule) RuleKey() string              { return r.ruleKey }
func (r *fieldFormatRule) RuleName() string             { return r.ruleName }
func (r *fieldFormatRule) Severity() validator.Severity { return validator.SeverityWarning }

func (r *fieldFormatRule) Validate(rec *smv.Record) []validator.Result {
	val := r.extract(rec)
	if val == nil {
		return []validator.Result{{
			Passed:    true,
			FieldPath: r.fieldPath,
			Message:   fmt.Sprintf("%s: field is empty, skipping format check", r.ruleName),
		}}
	}

	passed := r.pattern.MatchString(*val)
	msg := fmt.Sprintf("%s: %s matches expected format", r.ruleName, r.fieldPath)
	if !passed {
		msg = fmt.Sprintf("%s: %s does not match expected format", r.ruleName, r.fieldPath)
	}
	return []validator.Result{{
		Passed:      passed,
		FieldPath:   r.fieldPath,
		ActualValue: *val,
		Message:     msg,
	}}
}

// dateRule checks every date field for a real DD/MM/YYYY calendar date.
type dateRule struct{}

func (r *dateRule) RuleKey() string              { return "date_format" }
func (r *dateRule) RuleName() string             { return "Date format" }
func (r *dateRule) Severity() validator.Severity { return validator.SeverityWarning }

func (r *dateRule) Validate(rec *smv.Record) []validator.Result {
	fields := []struct {
		path  string
		value *string
	}{
		{"fecha_nacimiento", rec.FechaNacimiento},
		{"fecha_alta", rec.FechaAlta},
		{"fecha_baja", rec.FechaBaja},
	}

	results := make([]validator.Result, 0, len(fields))
	for _, f := range fields {
		if f.value == nil {
			results = append(results, validator.Result{
				Passed:    true,
				FieldPath: f.path,
				Message:   "Date format: field is empty, skipping date check",
			})
			continue
		}
		_, err := parseDate(*f.value)
		passed := err == nil
		msg := fmt.Sprintf("Date format: %s is a valid date", f.path)
		if !passed {
			msg = fmt.Sprintf("Date format: %s is not a valid DD/MM/YYYY date", f.path)
		}
		results = append(results, validator.Result{
			Passed:      passed,
			FieldPath:   f.path,
			ActualValue: *f.value,
			Message:     msg,
		})
	}
	return results
}

// serviceConsistencyRule cross-checks the service flag against the service
// fields and the alta/baja date order.
type serviceConsistencyRule struct{}

func (r *serviceConsistencyRule) RuleKey() string              { return "service_consistency" }
func (r *serviceConsistencyRule) RuleName() string             { return "Service consistency" }
func (r *serviceConsistencyRule) Severity() validator.Severity { return validator.SeverityWarning }

func (r *serviceConsistencyRule) Validate(rec *smv.Record) []validator.Result {
	var results []validator.Result

	hasServiceData := rec.GranUnidad != nil || rec.UnidadAlta != nil || rec.UnidadBaja != nil ||
		rec.FechaAlta != nil || rec.FechaBaja != nil || rec.Grado != nil || rec.MotivoBaja != nil

	if rec.ServedService() {
		results = append(results, validator.Result{
			Passed:    true,
			FieldPath: "presto_servicio",
			Message:   "Service consistency: record claims completed service",
		})
	} else {
		passed := !hasServiceData
		msg := "Service consistency: no service data, as expected"
		if !passed {
			msg = "Service consistency: presto_servicio is NO but service fields are filled"
		}
		results = append(results, validator.Result{
			Passed:      passed,
			FieldPath:   "presto_servicio",
			ActualValue: rec.PrestoServicio,
			Message:     msg,
		})
	}

	if rec.FechaAlta != nil && rec.FechaBaja != nil {
		alta, errA := parseDate(*rec.FechaAlta)
		baja, errB := parseDate(*rec.FechaBaja)
		if errA == nil && errB == nil {
			passed := !baja.Before(alta)
			msg := "Service consistency: fecha_baja is not before fecha_alta"
			if !passed {
				msg = "Service consistency: fecha_baja is before fecha_alta"
			}
			results = append(results, validator.Result{
				Passed:      passed,
				FieldPath:   "fecha_baja",
				ActualValue: *rec.FechaBaja,
				Message:     msg,
			})
		}
	}

	return results
}

func parseDate(value string) (time.Time, error) {
	if !datePattern.MatchString(value) {
		return time.Time{}, fmt.Errorf("not a DD/MM/YYYY date: %s", value)
	}
	return time.Parse("02/01/2006", value)
}
