package smv

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Target widths for the fixed-width identity numbers. Downstream storage
// assumes an 11-wide DNI even though the national document carries 8 digits;
// the width is pinned by a regression test.
const (
	DNIWidth = 11
	LMWidth  = 10
)

// ClaseWidth is the number of digits kept for the enlistment class code.
const ClaseWidth = 4

// Spanish month abbreviations as they appear on registry sheets.
var months = map[string]string{
	"ENE": "01", "FEB": "02", "MAR": "03", "ABR": "04", "MAY": "05", "JUN": "06",
	"JUL": "07", "AGO": "08", "SET": "09", "SEPT": "09", "SEP": "09", "OCT": "10",
	"NOV": "11", "DIC": "12", "DEC": "12",
}

var (
	nonDigitRE    = regexp.MustCompile(`\D`)
	whitespaceRE  = regexp.MustCompile(`\s+`)
	nonAlnumRE    = regexp.MustCompile(`[^A-Z0-9]`)
	orExactRE     = regexp.MustCompile(`^\d{3}[A-Z]$`)
	orSixLeadRE   = regexp.MustCompile(`^6\d{2}[A-Z]$`)
	orLetterRE    = regexp.MustCompile(`[A-Z]`)
	orDigitRE     = regexp.MustCompile(`\d`)
	dateRE        = regexp.MustCompile(`^\s*(\d{1,2})[ /](\d{1,2})[ /](\d{2,4})\s*$`)
	monthAbbrevRE = regexp.MustCompile(`(\d{1,2})[/ ]([A-Z]{3,4})[/ ](\d{4})`)
)

// Normalize converts a loosely typed payload (whatever the model returned,
// already coerced to an object) into the canonical record. It is pure and
// total: a field that cannot be repaired degrades to null instead of failing
// the whole record.
func Normalize(in map[string]any) *Record {
	d := applyAliases(in)

	r := &Record{PrestoServicio: "NO"}

	r.DNI = normalizeDigits(stringField(d, "dni"), DNIWidth)
	r.LM = normalizeDigits(stringField(d, "lm"), LMWidth)
	r.OR = NormalizeOR(stringField(d, "or"))
	r.Clase = NormalizeClase(stringField(d, "clase"))
	r.Libro = normalizeCompact(stringField(d, "libro"))
	r.Folio = normalizeCompact(stringField(d, "folio"))
	r.Apellidos = normalizeName(stringField(d, "apellidos"))
	r.Nombres = normalizeName(stringField(d, "nombres"))
	r.FechaNacimiento = NormalizeDate(stringField(d, "fecha_nacimiento"))
	r.PrestoServicio = ParseServiceFlagStrict(stringField(d, "presto_servicio"))

	r.GranUnidad = passthrough(stringField(d, "gran_unidad"))
	r.UnidadAlta = passthrough(stringField(d, "unidad_alta"))
	r.UnidadBaja = passthrough(stringField(d, "unidad_baja"))
	r.FechaAlta = passthrough(stringField(d, "fecha_alta"))
	r.FechaBaja = passthrough(stringField(d, "fecha_baja"))
	r.Grado = passthrough(stringField(d, "grado"))
	r.MotivoBaja = passthrough(stringField(d, "motivo_baja"))

	return r
}

// applyAliases remaps known synonym keys onto canonical ones without
// overwriting a canonical key that already holds a value.
func applyAliases(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	for alias, canonical := range Aliases {
		v, ok := out[alias]
		if !ok {
			continue
		}
		if cur, exists := out[canonical]; !exists || stringValue(cur) == "" {
			out[canonical] = v
		}
	}
	return out
}

// stringField reads a key from the payload as a string. Models occasionally
// return numbers where strings are expected; both are accepted.
func stringField(d map[string]any, key string) string {
	v, ok := d[key]
	if !ok {
		return ""
	}
	return stringValue(v)
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", t)
	}
}

// normalizeDigits strips non-digits, zero-pads on the left to width, then
// keeps the first width digits. Padding is prefix-only: a short value always
// survives as the suffix of the result. No digits at all means null.
func normalizeDigits(raw string, width int) *string {
	digits := nonDigitRE.ReplaceAllString(raw, "")
	if digits == "" {
		return nil
	}
	for len(digits) < width {
		digits = "0" + digits
	}
	out := digits[:width]
	return &out
}

// NormalizeOR repairs the three-digits-plus-letter reference code.
// Handwritten sheets confuse 4 with A in the letter cell and 6 with 0 in the
// first digit cell.
func NormalizeOR(raw string) *string {
	s := strings.ToUpper(whitespaceRE.ReplaceAllString(raw, ""))
	if s == "" {
		return nil
	}
	if strings.HasSuffix(s, "4") {
		s = s[:len(s)-1] + "A"
	}
	s = nonAlnumRE.ReplaceAllString(s, "")
	if orSixLeadRE.MatchString(s) {
		s = "0" + s[1:]
	}
	if orExactRE.MatchString(s) {
		return &s
	}
	// Best-effort reconstruction: first three digits plus the last letter.
	digits := orDigitRE.FindAllString(s, -1)
	letters := orLetterRE.FindAllString(s, -1)
	if len(digits) >= 3 && len(letters) >= 1 {
		out := strings.Join(digits[:3], "") + letters[len(letters)-1]
		return &out
	}
	return nil
}

// NormalizeClase keeps the last four digits of the enlistment class exactly
// as written on the sheet. The class is never derived from the birth date,
// even when that would be plausible.
func NormalizeClase(raw string) *string {
	digits := nonDigitRE.ReplaceAllString(raw, "")
	if len(digits) < ClaseWidth {
		return nil
	}
	out := digits[len(digits)-ClaseWidth:]
	return &out
}

// normalizeCompact removes whitespace but otherwise leaves the value alone,
// preserving leading zeros in book and folio numbers.
func normalizeCompact(raw string) *string {
	s := whitespaceRE.ReplaceAllString(raw, "")
	if s == "" {
		return nil
	}
	return &s
}

// NormalizeDate parses a sheet date into DD/MM/YYYY. Dot and dash separators
// become slashes, month abbreviations are mapped through the fixed table, and
// two-digit years are expanded into the 1900s.
func NormalizeDate(raw string) *string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, ".", "/")
	s = strings.ReplaceAll(s, "-", "/")
	s = monthAbbrevRE.ReplaceAllStringFunc(s, func(match string) string {
		groups := monthAbbrevRE.FindStringSubmatch(match)
		num, ok := months[groups[2]]
		if !ok {
			return match
		}
		return groups[1] + "/" + num + "/" + groups[3]
	})

	m := dateRE.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year := m[3]
	if len(year) == 2 {
		year = "19" + year
	}
	if day < 1 || day > 31 || month < 1 || month > 12 || len(year) != 4 {
		return nil
	}
	out := fmt.Sprintf("%02d/%02d/%s", day, month, year)
	return &out
}

// normalizeName collapses whitespace runs, trims, and uppercases.
func normalizeName(raw string) *string {
	s := strings.ToUpper(strings.TrimSpace(whitespaceRE.ReplaceAllString(raw, " ")))
	if s == "" {
		return nil
	}
	return &s
}

// passthrough trims a service field without applying repair rules.
func passthrough(raw string) *string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	return &s
}

// ParseServiceFlagStrict is the normalizer's service-flag rule: "SI" on an
// exact case-insensitive match, "NO" otherwise. Accented "SÍ" does not count
// here, unlike ParseBooleanSiNoLenient used by the registry CRUD layer.
func ParseServiceFlagStrict(raw string) string {
	if strings.ToUpper(strings.TrimSpace(raw)) == "SI" {
		return "SI"
	}
	return "NO"
}

// ParseBooleanSiNoLenient is the registry CRUD layer's boolean rule, which
// additionally accepts accented and abbreviated affirmatives.
func ParseBooleanSiNoLenient(raw string) bool {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SI", "SÍ", "S", "SI.":
		return true
	default:
		return false
	}
}
