package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Citizen is one person in the digitized registry, keyed by identity numbers
// read off the sheet.
type Citizen struct {
	ID              uuid.UUID `db:"id" json:"id"`
	DNI             *string   `db:"dni" json:"dni"`
	LM              *string   `db:"lm" json:"lm"`
	OR              *string   `db:"or_code" json:"or"`
	Clase           *string   `db:"clase" json:"clase"`
	Libro           *string   `db:"libro" json:"libro"`
	Folio           *string   `db:"folio" json:"folio"`
	Apellidos       *string   `db:"apellidos" json:"apellidos"`
	Nombres         *string   `db:"nombres" json:"nombres"`
	FechaNacimiento *string   `db:"fecha_nacimiento" json:"fecha_nacimiento"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// ServiceRecord holds a citizen's military-service data. One row per citizen;
// saving a review replaces it.
type ServiceRecord struct {
	ID             uuid.UUID `db:"id" json:"id"`
	CitizenID      uuid.UUID `db:"citizen_id" json:"citizen_id"`
	PrestoServicio string    `db:"presto_servicio" json:"presto_servicio"`
	GranUnidad     *string   `db:"gran_unidad" json:"gran_unidad"`
	UnidadAlta     *string   `db:"unidad_alta" json:"unidad_alta"`
	UnidadBaja     *string   `db:"unidad_baja" json:"unidad_baja"`
	FechaAlta      *string   `db:"fecha_alta" json:"fecha_alta"`
	FechaBaja      *string   `db:"fecha_baja" json:"fecha_baja"`
	Grado          *string   `db:"grado" json:"grado"`
	MotivoBaja     *string   `db:"motivo_baja" json:"motivo_baja"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ScanDocument is one uploaded sheet scan with its extraction lifecycle.
// ExtractedData holds the canonical record straight from the model pipeline;
// CorrectedData holds the operator-reviewed version once validated.
type ScanDocument struct {
	ID               uuid.UUID        `db:"id" json:"id"`
	CitizenID        *uuid.UUID       `db:"citizen_id" json:"citizen_id"`
	FileName         string           `db:"file_name" json:"file_name"`
	OriginalName     string           `db:"original_name" json:"original_name"`
	FileType         FileType         `db:"file_type" json:"file_type"`
	FileSize         int64            `db:"file_size" json:"file_size"`
	S3Bucket         string           `db:"s3_bucket" json:"s3_bucket"`
	S3Key            string           `db:"s3_key" json:"s3_key"`
	ContentType      string           `db:"content_type" json:"content_type"`
	ExtractionStatus ExtractionStatus `db:"extraction_status" json:"extraction_status"`
	ExtractionError  *string          `db:"extraction_error" json:"extraction_error"`
	ExtractedData    json.RawMessage  `db:"extracted_data" json:"extracted_data"`
	CorrectedData    json.RawMessage  `db:"corrected_data" json:"corrected_data"`
	ModelUsed        string           `db:"model_used" json:"model_used"`
	ExtractedAt      *time.Time       `db:"extracted_at" json:"extracted_at"`
	ReviewStatus     ReviewStatus     `db:"review_status" json:"review_status"`
	ReviewedAt       *time.Time       `db:"reviewed_at" json:"reviewed_at"`
	ReviewerNotes    string           `db:"reviewer_notes" json:"reviewer_notes"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}
