package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"study-backend/internal/gateway"
	"study-backend/internal/shared/telemetry"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 120 * time.Second
	schemaName     = "study_response"
)

// Config configures the OpenAI invoker.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
}

// Client implements gateway.Invoker using OpenAI Chat Completions with
// JSON-schema constrained output.
type Client struct {
	client  openai.Client
	model   string
	timeout time.Duration
	fetcher gateway.Fetcher
}

// NewClient constructs a new OpenAI invoker. Attachments are resolved through fetcher.
func NewClient(cfg Config, fetcher gateway.Fetcher) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: timeout,
		fetcher: fetcher,
	}, nil
}

// Invoke sends the prompt and attachments and returns the decoded JSON object.
func (c *Client) Invoke(ctx context.Context, req gateway.InvokeRequest) (map[string]any, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("prompt is required")
	}

	parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(req.Prompt)}
	for _, fileURL := range req.FileURLs {
		part, err := c.attachment(ctx, fileURL)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(parts),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(0),
	}
	if req.ResponseSchema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Schema: req.ResponseSchema.Map(),
					Strict: openai.Bool(true),
				},
			},
		}
	} else {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{Type: "json_object"},
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(callCtx, params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("openai request timeout: %w", err)
		}
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai response missing choices")
	}

	telemetry.Info("llm.invoke", map[string]any{
		"provider":          "openai",
		"model":             c.model,
		"attachments":       len(req.FileURLs),
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"duration_ms":       telemetry.SinceMs(start),
	})

	return gateway.DecodeObject(resp.Choices[0].Message.Content, req.ResponseSchema)
}

func (c *Client) attachment(ctx context.Context, fileURL string) (openai.ChatCompletionContentPartUnionParam, error) {
	if c.fetcher == nil {
		return openai.ChatCompletionContentPartUnionParam{}, errors.New("openai: no fetcher configured for attachments")
	}
	blob, err := c.fetcher.Fetch(ctx, fileURL)
	if err != nil {
		return openai.ChatCompletionContentPartUnionParam{}, fmt.Errorf("fetch attachment: %w", err)
	}

	contentType := strings.ToLower(strings.TrimSpace(strings.Split(blob.ContentType, ";")[0]))
	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(blob.Data)
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}), nil
	case contentType == "application/pdf":
		return openai.FileContentPart(openai.ChatCompletionContentPartFileFileParam{
			FileData: openai.String(dataURL),
			Filename: openai.String(blob.Name),
		}), nil
	case strings.HasPrefix(contentType, "text/"):
		return openai.TextContentPart(string(blob.Data)), nil
	default:
		return openai.ChatCompletionContentPartUnionParam{}, fmt.Errorf("openai: unsupported attachment type %q", contentType)
	}
}

var _ gateway.Invoker = (*Client)(nil)
