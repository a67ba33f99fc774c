// Package gateway defines the integration surface the study pipelines depend on:
// file upload, structured extraction from a stored file, and schema-constrained
// LLM invocation.
package gateway

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrNotConfigured is returned by gateways without a backing provider.
var ErrNotConfigured = errors.New("integration gateway not configured")

// File is an uploaded payload awaiting storage.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadResult carries the durable, fetchable URL of a stored file.
type UploadResult struct {
	FileURL string
}

// ExtractStatus reports whether an extraction produced output.
type ExtractStatus string

const (
	ExtractSuccess ExtractStatus = "success"
	ExtractFailure ExtractStatus = "failure"
)

// ExtractResult is the outcome of ExtractData. Output follows the request schema.
type ExtractResult struct {
	Status  ExtractStatus
	Output  map[string]any
	Details string
}

// Succeeded reports whether the extraction reported success.
func (r ExtractResult) Succeeded() bool {
	return r.Status == ExtractSuccess
}

// InvokeRequest is a prompt with optional file attachments and an output schema.
type InvokeRequest struct {
	Prompt         string
	FileURLs       []string
	ResponseSchema *Schema
}

// Uploader stores files and returns their URL.
type Uploader interface {
	UploadFile(ctx context.Context, file File) (UploadResult, error)
}

// Extractor pulls structured data out of a stored file.
type Extractor interface {
	ExtractData(ctx context.Context, fileURL string, schema *Schema) (ExtractResult, error)
}

// Invoker runs a prompt against the language model.
type Invoker interface {
	Invoke(ctx context.Context, req InvokeRequest) (map[string]any, error)
}

// Gateway is the full integration surface.
type Gateway interface {
	Uploader
	Extractor
	Invoker
}

// Composite assembles a Gateway from independent parts.
type Composite struct {
	Uploader
	Extractor
	Invoker
}

var _ Gateway = Composite{}

// Placeholder fails every call with ErrNotConfigured.
type Placeholder struct{}

func (Placeholder) UploadFile(context.Context, File) (UploadResult, error) {
	return UploadResult{}, ErrNotConfigured
}

func (Placeholder) ExtractData(context.Context, string, *Schema) (ExtractResult, error) {
	return ExtractResult{}, ErrNotConfigured
}

func (Placeholder) Invoke(context.Context, InvokeRequest) (map[string]any, error) {
	return nil, ErrNotConfigured
}

var _ Gateway = Placeholder{}

// StringField returns output[key] verbatim when it is a string.
func StringField(output map[string]any, key string) string {
	s, _ := output[key].(string)
	return s
}

// HasText reports whether s has any non-whitespace content.
func HasText(s string) bool {
	return strings.TrimSpace(s) != ""
}

// Blob is the downloaded content behind a file URL.
type Blob struct {
	Name        string
	ContentType string
	Data        []byte
}

// Fetcher resolves a file URL produced by an Uploader to its bytes.
type Fetcher interface {
	Fetch(ctx context.Context, fileURL string) (Blob, error)
}
