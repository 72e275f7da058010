package port

import (
	"context"
)

// ParseInput carries the data needed for sheet extraction.
type ParseInput struct {
	FileBytes   []byte
	ContentType string
}

// ParseOutput contains the raw result from a vision model call. The text is
// coerced and normalized by the extraction layer, not here.
type ParseOutput struct {
	RawText    string
	ModelUsed  string
	PromptUsed string
}

// DocumentParser abstracts vision-model sheet extraction.
type DocumentParser interface {
	Parse(ctx context.Context, input ParseInput) (*ParseOutput, error)
}
