// Package ingestion turns one uploaded file into a Document in a terminal status.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"study-backend/internal/documents"
	"study-backend/internal/gateway"
	"study-backend/internal/shared/metrics"
	"study-backend/internal/shared/telemetry"
)

var (
	// ErrUploadFailed means no Document was created.
	ErrUploadFailed = errors.New("upload failed")
	// ErrIngestFailed means a Document was created and then marked failed.
	ErrIngestFailed = errors.New("ingestion failed")
)

const (
	fieldExtractedText = "extracted_text"
	fieldText          = "text"

	fallbackPrompt = "Extract all readable text from the attached file. " +
		"Preserve the reading order and paragraph breaks. " +
		"Return only the document's text in the `text` field, with no commentary. " +
		"If the file contains no readable text, return an empty string."
)

// Method records which extraction step produced the document text.
type Method string

const (
	MethodPrimary  Method = "primary"
	MethodFallback Method = "fallback"
	MethodNone     Method = "none"
)

// DocumentStore is the slice of documents.Repo the pipeline writes through.
type DocumentStore interface {
	Create(ctx context.Context, doc documents.Document) (documents.Document, error)
	Finalize(ctx context.Context, ownerID, id, text string, status documents.Status) (documents.Document, error)
}

// Result is the outcome of one ingestion.
type Result struct {
	Document documents.Document
	Method   Method
}

// Transition renders the status change for logs, e.g. "processing->completed".
func (r Result) Transition() string {
	if r.Document.Status == "" {
		return ""
	}
	return string(documents.StatusProcessing) + "->" + string(r.Document.Status)
}

// Pipeline runs upload, record creation, extraction with one fallback, and finalization.
type Pipeline struct {
	Gateway gateway.Gateway
	Docs    DocumentStore
}

// NewPipeline constructs a Pipeline.
func NewPipeline(gw gateway.Gateway, docs DocumentStore) *Pipeline {
	return &Pipeline{Gateway: gw, Docs: docs}
}

func primarySchema() *gateway.Schema {
	return gateway.Object(map[string]*gateway.Schema{
		fieldExtractedText: gateway.String("Full text content of the document"),
	})
}

func fallbackSchema() *gateway.Schema {
	return gateway.Object(map[string]*gateway.Schema{
		fieldText: gateway.String("All text extracted from the file"),
	})
}

// Ingest runs the pipeline with the file name as the document title.
func (p *Pipeline) Ingest(ctx context.Context, ownerID string, file gateway.File) (Result, error) {
	return p.IngestAs(ctx, ownerID, file, "")
}

// IngestAs runs the pipeline. An empty title defaults to the file name.
//
// Request cancellation is ignored: once started, the gateway calls and the
// final store write always run to completion. When an error occurs after the
// document exists, the returned Result still carries that document, finalized
// as failed when the store allowed it.
func (p *Pipeline) IngestAs(ctx context.Context, ownerID string, file gateway.File, title string) (res Result, err error) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	upload, err := p.Gateway.UploadFile(ctx, file)
	if err == nil && strings.TrimSpace(upload.FileURL) == "" {
		err = errors.New("gateway returned an empty file url")
	}
	if err != nil {
		metrics.IncIngestFailed()
		telemetry.Error("ingest.upload_failed", map[string]any{
			"owner_id":  ownerID,
			"file_name": file.Name,
			"error":     err,
		})
		return Result{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	if title = strings.TrimSpace(title); title == "" {
		title = file.Name
	}
	doc, err := p.Docs.Create(ctx, documents.Document{
		OwnerID:         ownerID,
		Title:           title,
		OriginalFileURL: upload.FileURL,
		FileType:        documents.FileTypeFromMIME(file.ContentType),
		Status:          documents.StatusProcessing,
	})
	if err != nil {
		metrics.IncIngestFailed()
		return Result{}, fmt.Errorf("%w: create document: %w", ErrIngestFailed, err)
	}
	metrics.IncIngestStarted()
	res = Result{Document: doc, Method: MethodNone}

	// The document gets at most one Finalize call, including the failure path.
	finalizeAttempted := false
	defer func() {
		if r := recover(); r != nil {
			telemetry.Error("panic", map[string]any{"document_id": doc.ID, "panic": fmt.Sprint(r)})
			err = fmt.Errorf("%w: panic: %v", ErrIngestFailed, r)
		}
		if err != nil && !finalizeAttempted {
			p.markFailed(ctx, &res, err)
		}
		metrics.ObserveIngestDurationMs(telemetry.SinceMs(start))
	}()

	text, method, err := p.extract(ctx, upload.FileURL)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrIngestFailed, err)
	}

	finalizeAttempted = true
	final, err := p.Docs.Finalize(ctx, ownerID, doc.ID, text, documents.StatusForText(text))
	if err != nil {
		metrics.IncIngestFailed()
		telemetry.Error("ingest.finalize_failed", map[string]any{
			"document_id": doc.ID,
			"owner_id":    ownerID,
			"error":       err,
		})
		return res, fmt.Errorf("%w: finalize: %w", ErrIngestFailed, err)
	}
	res = Result{Document: final, Method: method}

	if final.Status == documents.StatusCompleted {
		metrics.IncIngestCompleted()
	} else {
		metrics.IncIngestFailed()
	}
	telemetry.Info("ingest.status", map[string]any{
		"document_id":       final.ID,
		"owner_id":          ownerID,
		"file_type":         final.FileType,
		"method":            method,
		"text_chars":        len([]rune(text)),
		"status_transition": res.Transition(),
		"duration_ms":       telemetry.SinceMs(start),
	})
	return res, nil
}

// extract tries structured extraction, then exactly one LLM fallback when it yields no text.
func (p *Pipeline) extract(ctx context.Context, fileURL string) (string, Method, error) {
	primary, err := p.Gateway.ExtractData(ctx, fileURL, primarySchema())
	if err != nil {
		return "", MethodNone, fmt.Errorf("extract: %w", err)
	}
	if primary.Succeeded() {
		if text := gateway.StringField(primary.Output, fieldExtractedText); gateway.HasText(text) {
			return text, MethodPrimary, nil
		}
	}

	metrics.IncIngestFallback()
	out, err := p.Gateway.Invoke(ctx, gateway.InvokeRequest{
		Prompt:         fallbackPrompt,
		FileURLs:       []string{fileURL},
		ResponseSchema: fallbackSchema(),
	})
	if err != nil {
		return "", MethodNone, fmt.Errorf("fallback extract: %w", err)
	}
	if text := gateway.StringField(out, fieldText); gateway.HasText(text) {
		return text, MethodFallback, nil
	}
	return "", MethodNone, nil
}

func (p *Pipeline) markFailed(ctx context.Context, res *Result, cause error) {
	doc := res.Document
	metrics.IncIngestFailed()
	final, err := p.Docs.Finalize(ctx, doc.OwnerID, doc.ID, "", documents.StatusFailed)
	if err != nil {
		telemetry.Error("ingest.finalize_failed", map[string]any{
			"document_id": doc.ID,
			"cause":       cause,
			"error":       err,
		})
		return
	}
	res.Document = final
	res.Method = MethodNone
	telemetry.Error("ingest.status", map[string]any{
		"document_id":       doc.ID,
		"owner_id":          doc.OwnerID,
		"status_transition": res.Transition(),
		"error":             cause,
	})
}
