package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"study-backend/internal/gateway"
	"study-backend/internal/shared/telemetry"
)

// Extractor implements gateway.Extractor with local PDF, DOCX and plain-text parsers.
// Files it cannot read yield a failure result rather than an error.
type Extractor struct {
	Fetcher gateway.Fetcher
}

func NewExtractor(fetcher gateway.Fetcher) *Extractor {
	return &Extractor{Fetcher: fetcher}
}

// ExtractData reads the file and places its text in the schema's first string property.
func (e *Extractor) ExtractData(ctx context.Context, fileURL string, schema *gateway.Schema) (gateway.ExtractResult, error) {
	field, ok := schema.FirstStringProperty()
	if !ok {
		return gateway.ExtractResult{Status: gateway.ExtractFailure, Details: "schema has no string property"}, nil
	}
	if e.Fetcher == nil {
		return gateway.ExtractResult{}, errors.New("extractor has no fetcher")
	}

	blob, err := e.Fetcher.Fetch(ctx, fileURL)
	if err != nil {
		return gateway.ExtractResult{}, fmt.Errorf("fetch %s: %w", fileURL, err)
	}

	text, err := safeExtract(ctx, blob)
	if err != nil {
		telemetry.Warn("extract.failed", map[string]any{
			"file":         blob.Name,
			"content_type": blob.ContentType,
			"error":        err,
		})
		return gateway.ExtractResult{Status: gateway.ExtractFailure, Details: err.Error()}, nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return gateway.ExtractResult{Status: gateway.ExtractFailure, Details: "no text found"}, nil
	}
	return gateway.ExtractResult{
		Status: gateway.ExtractSuccess,
		Output: map[string]any{field: text},
	}, nil
}

// safeExtract guards against parser panics on malformed input.
func safeExtract(ctx context.Context, blob gateway.Blob) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("parser panic: %v", rec)
		}
	}()
	return ExtractTextFromBytes(ctx, blob.Data, blob.ContentType, blob.Name)
}

var _ gateway.Extractor = (*Extractor)(nil)
