// Package smv defines the canonical SMV registry-sheet record and the
// normalization rules that turn a noisy extracted payload into it.
package smv

import "encoding/json"

// Record is the canonical extracted record for one registry sheet.
// Every field is always present in the JSON form; absent or unparseable
// values are null, except PrestoServicio which is always "SI" or "NO".
// The service fields (GranUnidad through MotivoBaja) only carry meaning
// when PrestoServicio is "SI".
type Record struct {
	DNI             *string `json:"dni"`
	LM              *string `json:"lm"`
	OR              *string `json:"or"`
	Clase           *string `json:"clase"`
	Libro           *string `json:"libro"`
	Folio           *string `json:"folio"`
	Apellidos       *string `json:"apellidos"`
	Nombres         *string `json:"nombres"`
	FechaNacimiento *string `json:"fecha_nacimiento"`
	PrestoServicio  string  `json:"presto_servicio"`
	GranUnidad      *string `json:"gran_unidad"`
	UnidadAlta      *string `json:"unidad_alta"`
	UnidadBaja      *string `json:"unidad_baja"`
	FechaAlta       *string `json:"fecha_alta"`
	FechaBaja       *string `json:"fecha_baja"`
	Grado           *string `json:"grado"`
	MotivoBaja      *string `json:"motivo_baja"`
}

// FieldKeys lists the canonical keys in sheet order.
var FieldKeys = []string{
	"dni", "lm", "or", "clase", "libro", "folio",
	"apellidos", "nombres", "fecha_nacimiento", "presto_servicio",
	"gran_unidad", "unidad_alta", "unidad_baja",
	"fecha_alta", "fecha_baja", "grado", "motivo_baja",
}

// Aliases maps key synonyms the model is known to emit onto canonical keys.
// An alias never overwrites a canonical key that is already populated.
var Aliases = map[string]string{
	"dni_o_lm":        "lm",
	"libreta_militar": "lm",
}

// ServedService reports whether the record claims completed military service.
func (r *Record) ServedService() bool {
	return r.PrestoServicio == "SI"
}

// JSON marshals the record. The canonical record always marshals cleanly.
func (r *Record) JSON() json.RawMessage {
	b, _ := json.Marshal(r)
	return b
}

// FromJSON decodes a previously stored canonical record.
func FromJSON(raw json.RawMessage) (*Record, error) {
	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	if r.PrestoServicio != "SI" {
		r.PrestoServicio = "NO"
	}
	return &r, nil
}
