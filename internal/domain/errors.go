package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed        = errors.New("file upload to storage failed")
	ErrNotExtracted        = errors.New("document has no extraction result yet")
	ErrAlreadyProcessing   = errors.New("document extraction is already in progress")
	ErrMissingIdentity     = errors.New("record carries neither dni nor lm")
)
