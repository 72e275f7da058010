// Package export renders the digitized registry as CSV and XLSX downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"ormd/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the header row, in sheet order.
var columns = []string{
	"DNI",
	"LM",
	"OR",
	"CLASE",
	"LIBRO",
	"FOLIO",
	"APELLIDOS",
	"NOMBRES",
	"FECHA NACIMIENTO",
	"PRESTO SERVICIO",
	"GRAN UNIDAD",
	"UNIDAD ALTA",
	"UNIDAD BAJA",
	"FECHA ALTA",
	"FECHA BAJA",
	"GRADO",
	"MOTIVO BAJA",
	"ACTUALIZADO",
}

// Row pairs a citizen with their service record. Service may be nil when no
// service data has been captured yet.
type Row struct {
	Citizen domain.Citizen
	Service *domain.ServiceRecord
}

// Writer wraps csv.Writer for exporting registry rows as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteRows converts a batch of registry rows to CSV and writes them.
func (w *Writer) WriteRows(rows []Row) error {
	for i := range rows {
		if err := w.csv.Write(rowToStrings(&rows[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func rowToStrings(r *Row) []string {
	out := make([]string, len(columns))
	c := &r.Citizen
	out[0] = deref(c.DNI)
	out[1] = deref(c.LM)
	out[2] = deref(c.OR)
	out[3] = deref(c.Clase)
	out[4] = deref(c.Libro)
	out[5] = deref(c.Folio)
	out[6] = deref(c.Apellidos)
	out[7] = deref(c.Nombres)
	out[8] = deref(c.FechaNacimiento)
	out[9] = "NO"
	out[17] = c.UpdatedAt.Format(time.RFC3339)

	if r.Service == nil {
		return out
	}
	out[9] = r.Service.PrestoServicio
	out[10] = deref(r.Service.GranUnidad)
	out[11] = deref(r.Service.UnidadAlta)
	out[12] = deref(r.Service.UnidadBaja)
	out[13] = deref(r.Service.FechaAlta)
	out[14] = deref(r.Service.FechaBaja)
	out[15] = deref(r.Service.Grado)
	out[16] = deref(r.Service.MotivoBaja)
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for the Content-Disposition
// header. Format: {sanitized_name}_{YYYY-MM-DD}.{ext}
func BuildFilename(name, ext string) string {
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(name), time.Now().Format("2006-01-02"), ext)
}
