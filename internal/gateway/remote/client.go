// Package remote talks to a hosted integrations service exposing
// upload, extract and invoke endpoints.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"study-backend/internal/gateway"
	"study-backend/internal/shared/telemetry"
)

const (
	pathUpload  = "/integrations/upload"
	pathExtract = "/integrations/extract"
	pathInvoke  = "/integrations/invoke"

	defaultTimeout  = 120 * time.Second
	maxErrorBodyLen = 512
)

// Options configures the remote gateway. TokenURL selects the client
// credentials flow; otherwise APIKey is sent as a static bearer token.
type Options struct {
	BaseURL      string
	APIKey       string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	MaxRetries   uint64
	HTTPClient   *http.Client
}

// Client implements gateway.Gateway over HTTP.
type Client struct {
	baseURL    string
	http       *http.Client
	maxRetries uint64
}

// statusError is returned for non-2xx responses.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("integrations returned %d: %s", e.Status, e.Body)
}

func New(ctx context.Context, opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("GATEWAY_BASE_URL is required for the remote gateway")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	// oauth2 picks up the base transport from the context.
	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}

	var httpClient *http.Client
	switch {
	case strings.TrimSpace(opts.TokenURL) != "":
		cc := clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
		}
		httpClient = cc.Client(ctx)
	case strings.TrimSpace(opts.APIKey) != "":
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: opts.APIKey,
			TokenType:   "Bearer",
		}))
	case opts.HTTPClient != nil:
		copied := *opts.HTTPClient
		httpClient = &copied
	default:
		httpClient = &http.Client{}
	}
	httpClient.Timeout = timeout

	return &Client{baseURL: base, http: httpClient, maxRetries: opts.MaxRetries}, nil
}

type uploadResponse struct {
	FileURL string `json:"file_url"`
}

// UploadFile posts the file as multipart form data.
func (c *Client) UploadFile(ctx context.Context, file gateway.File) (gateway.UploadResult, error) {
	if file.Body == nil {
		return gateway.UploadResult{}, errors.New("file body is required")
	}
	data, err := io.ReadAll(file.Body)
	if err != nil {
		return gateway.UploadResult{}, fmt.Errorf("read upload: %w", err)
	}

	var out uploadResponse
	err = c.do(ctx, pathUpload, func() (*http.Request, error) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
		contentType := file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := mw.CreatePart(header)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(data); err != nil {
			return nil, err
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathUpload, &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req, nil
	}, &out)
	if err != nil {
		return gateway.UploadResult{}, err
	}
	if strings.TrimSpace(out.FileURL) == "" {
		return gateway.UploadResult{}, errors.New("integrations upload returned no file_url")
	}
	return gateway.UploadResult{FileURL: out.FileURL}, nil
}

type extractRequest struct {
	FileURL    string         `json:"file_url"`
	JSONSchema map[string]any `json:"json_schema,omitempty"`
}

type extractResponse struct {
	Status  string         `json:"status"`
	Output  map[string]any `json:"output"`
	Details string         `json:"details"`
}

// ExtractData asks the service to pull schema-shaped data from a stored file.
func (c *Client) ExtractData(ctx context.Context, fileURL string, schema *gateway.Schema) (gateway.ExtractResult, error) {
	var out extractResponse
	if err := c.postJSON(ctx, pathExtract, extractRequest{FileURL: fileURL, JSONSchema: schema.Map()}, &out); err != nil {
		return gateway.ExtractResult{}, err
	}
	status := gateway.ExtractFailure
	if strings.EqualFold(out.Status, string(gateway.ExtractSuccess)) {
		status = gateway.ExtractSuccess
	}
	return gateway.ExtractResult{Status: status, Output: out.Output, Details: out.Details}, nil
}

type invokeRequest struct {
	Prompt             string         `json:"prompt"`
	FileURLs           []string       `json:"file_urls,omitempty"`
	ResponseJSONSchema map[string]any `json:"response_json_schema,omitempty"`
}

// Invoke runs a prompt on the hosted model and decodes the reply.
func (c *Client) Invoke(ctx context.Context, req gateway.InvokeRequest) (map[string]any, error) {
	var raw json.RawMessage
	body := invokeRequest{Prompt: req.Prompt, FileURLs: req.FileURLs, ResponseJSONSchema: req.ResponseSchema.Map()}
	if err := c.postJSON(ctx, pathInvoke, body, &raw); err != nil {
		return nil, err
	}
	return gateway.DecodeObject(string(raw), req.ResponseSchema)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, path, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, out)
}

// do retries transport failures and 5xx/429 responses with exponential backoff.
func (c *Client) do(ctx context.Context, path string, build func() (*http.Request, error), out any) error {
	start := time.Now()
	attempts := 0
	op := func() error {
		attempts++
		req, err := build()
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			serr := &statusError{Status: resp.StatusCode, Body: truncate(string(data), maxErrorBodyLen)}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return serr
			}
			return backoff.Permanent(serr)
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode %s response: %w", path, err))
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx))

	fields := map[string]any{
		"path":        path,
		"attempts":    attempts,
		"duration_ms": telemetry.SinceMs(start),
	}
	if err != nil {
		fields["error"] = err
		telemetry.Warn("gateway.remote_failed", fields)
		return fmt.Errorf("integrations %s: %w", path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ gateway.Gateway = (*Client)(nil)
