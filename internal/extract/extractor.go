// Package extract runs the full sheet pipeline: preprocessing, the model
// call, response coercion, and field normalization.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ormd/internal/parser"
	"ormd/internal/port"
	"ormd/internal/preprocess"
	"ormd/internal/smv"
)

// Result is the outcome of one extraction: either a canonical record or a
// tagged error, never both.
type Result struct {
	Record    *smv.Record
	Err       *parser.ExtractionError
	ModelUsed string
}

// Failed reports whether the extraction produced a tagged error.
func (r Result) Failed() bool { return r.Err != nil }

// Extractor ties the preprocessor and the model parser together. It is safe
// for concurrent use.
type Extractor struct {
	pre    *preprocess.Preprocessor
	parser port.DocumentParser
}

// New creates an Extractor.
func New(pre *preprocess.Preprocessor, p port.DocumentParser) *Extractor {
	return &Extractor{pre: pre, parser: p}
}

// Extract processes the file at path. Images are preprocessed first; PDFs go
// to the model as-is. Failures before the model call (missing file,
// undecodable image) come back as plain errors; everything after comes back
// tagged inside the Result.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	contentType, ok := contentTypeForPath(path)
	if !ok {
		return Result{Err: parser.NewProcessingError(fmt.Errorf("unsupported file extension: %s", filepath.Ext(path)))}, nil
	}

	if contentType == "application/pdf" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Result{}, fmt.Errorf("reading pdf: %w", err)
		}
		return e.run(ctx, data, contentType), nil
	}

	processed, cleanup, err := e.pre.Process(path)
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	data, err := os.ReadFile(processed)
	if err != nil {
		return Result{}, fmt.Errorf("reading processed image: %w", err)
	}
	return e.run(ctx, data, "image/png"), nil
}

// ExtractBytes processes in-memory file data, as stored scans come back from
// object storage. Image data is staged to a temp file for preprocessing.
func (e *Extractor) ExtractBytes(ctx context.Context, data []byte, contentType string) (Result, error) {
	if contentType == "application/pdf" {
		return e.run(ctx, data, contentType), nil
	}

	ext, ok := extensionForContentType(contentType)
	if !ok {
		return Result{Err: parser.NewProcessingError(fmt.Errorf("unsupported content type: %s", contentType))}, nil
	}

	staged, err := os.CreateTemp(e.pre.TempDir, "ormd-scan-*"+ext)
	if err != nil {
		return Result{}, fmt.Errorf("staging scan: %w", err)
	}
	defer func() { _ = os.Remove(staged.Name()) }()

	if _, err := staged.Write(data); err != nil {
		_ = staged.Close()
		return Result{}, fmt.Errorf("staging scan: %w", err)
	}
	if err := staged.Close(); err != nil {
		return Result{}, fmt.Errorf("staging scan: %w", err)
	}

	return e.Extract(ctx, staged.Name())
}

// run performs the model call and post-processing. Every failure in here is
// an extraction outcome, not a Go error.
func (e *Extractor) run(ctx context.Context, data []byte, contentType string) Result {
	out, err := e.parser.Parse(ctx, port.ParseInput{
		FileBytes:   data,
		ContentType: contentType,
	})
	if err != nil {
		return Result{Err: parser.AsExtractionError(err)}
	}

	obj, err := parser.CoerceToObject(out.RawText)
	if err != nil {
		return Result{Err: parser.NewProcessingError(err), ModelUsed: out.ModelUsed}
	}

	return Result{Record: smv.Normalize(obj), ModelUsed: out.ModelUsed}
}

func contentTypeForPath(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg", true
	case ".png":
		return "image/png", true
	case ".pdf":
		return "application/pdf", true
	default:
		return "", false
	}
}

func extensionForContentType(contentType string) (string, bool) {
	switch contentType {
	case "image/jpeg":
		return ".jpg", true
	case "image/png":
		return ".png", true
	case "application/pdf":
		return ".pdf", true
	default:
		return "", false
	}
}
