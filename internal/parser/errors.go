// Package parser holds the document-parser port helpers shared by the model
// backends: the tagged extraction error, response coercion, and the SMV
// sheet prompt.
package parser

import (
	"errors"
	"fmt"
)

// ErrorKind tags an extraction failure with the category the review UI shows
// to operators. The tags are Spanish because they travel to the frontend.
type ErrorKind string

const (
	KindAutenticacion ErrorKind = "autenticacion"
	KindSinConexion   ErrorKind = "sin_conexion"
	KindPermisos      ErrorKind = "permisos"
	KindProcesamiento ErrorKind = "procesamiento"
)

// ExtractionError is a model-call failure carried as a value through the
// pipeline. It never crosses the extraction layer as a panic; callers store
// it on the document and move on.
type ExtractionError struct {
	Kind    ErrorKind `json:"error"`
	Mensaje string    `json:"mensaje"`
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Mensaje)
}

// NewAuthError reports a missing or unreadable credential file.
func NewAuthError(msg string) *ExtractionError {
	return &ExtractionError{Kind: KindAutenticacion, Mensaje: msg}
}

// NewConnectionError reports that the model endpoint could not be reached.
func NewConnectionError() *ExtractionError {
	return &ExtractionError{
		Kind:    KindSinConexion,
		Mensaje: "No se puede conectar a Vertex AI. Revisa tu conexión a internet.",
	}
}

// NewPermissionError reports rejected Google Cloud credentials.
func NewPermissionError() *ExtractionError {
	return &ExtractionError{
		Kind:    KindPermisos,
		Mensaje: "Credenciales de Google Cloud inválidas o expiradas.",
	}
}

// NewProcessingError wraps any other failure, keeping the cause text.
func NewProcessingError(cause error) *ExtractionError {
	return &ExtractionError{
		Kind:    KindProcesamiento,
		Mensaje: fmt.Sprintf("Error en el procesamiento: %v", cause),
	}
}

// AsExtractionError unwraps err into an ExtractionError, or converts it into
// a processing error when it carries no tag.
func AsExtractionError(err error) *ExtractionError {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee
	}
	return NewProcessingError(err)
}
