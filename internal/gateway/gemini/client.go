package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"study-backend/internal/gateway"
	"study-backend/internal/shared/telemetry"
)

const (
	defaultModel   = "gemini-1.5-flash-latest"
	defaultTimeout = 120 * time.Second
)

// Client implements gateway.Invoker on the Gemini API.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	fetcher gateway.Fetcher
}

// NewClient creates a Gemini invoker. Close releases the underlying connection.
func NewClient(ctx context.Context, apiKey, model string, timeout time.Duration, fetcher gateway.Fetcher) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{client: client, model: model, timeout: timeout, fetcher: fetcher}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Invoke sends the prompt with inline attachments and decodes the JSON reply.
func (c *Client) Invoke(ctx context.Context, req gateway.InvokeRequest) (map[string]any, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("prompt is required")
	}

	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"
	if req.ResponseSchema != nil {
		model.ResponseSchema = toGenaiSchema(req.ResponseSchema)
	}

	parts := []genai.Part{genai.Text(req.Prompt)}
	for _, fileURL := range req.FileURLs {
		if c.fetcher == nil {
			return nil, errors.New("gemini: no fetcher configured for attachments")
		}
		blob, err := c.fetcher.Fetch(ctx, fileURL)
		if err != nil {
			return nil, fmt.Errorf("fetch attachment: %w", err)
		}
		parts = append(parts, genai.Blob{
			MIMEType: strings.TrimSpace(strings.Split(blob.ContentType, ";")[0]),
			Data:     blob.Data,
		})
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := model.GenerateContent(callCtx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	telemetry.Info("llm.invoke", map[string]any{
		"provider":    "gemini",
		"model":       c.model,
		"attachments": len(req.FileURLs),
		"duration_ms": telemetry.SinceMs(start),
	})

	return gateway.DecodeObject(responseText(resp), req.ResponseSchema)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		// First candidate with content wins.
		if sb.Len() > 0 {
			break
		}
	}
	return sb.String()
}

func toGenaiSchema(s *gateway.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{Description: s.Description}
	switch s.Type {
	case "object":
		out.Type = genai.TypeObject
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
		out.Required = append([]string(nil), s.Required...)
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	default:
		out.Type = genai.TypeString
		if len(s.Enum) > 0 {
			out.Format = "enum"
			out.Enum = append([]string(nil), s.Enum...)
		}
	}
	return out
}

var _ gateway.Invoker = (*Client)(nil)
