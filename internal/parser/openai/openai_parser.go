package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"parcelscope/internal/config"
	"parcelscope/internal/parser"
	"parcelscope/internal/port"
)

const providerName = "openai"

// Parser implements port.DocumentParser using the OpenAI Chat Completions API.
type Parser struct {
	client      *goopenai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewParser creates an OpenAI-based document parser from a provider config.
func NewParser(cfg *config.ParserProviderConfig) *Parser {
	return newParser(cfg, cfg.BaseURL)
}

// NewParserWithEndpoint creates a parser pointing at a custom API base URL (for testing).
func NewParserWithEndpoint(cfg *config.ParserProviderConfig, baseURL string) *Parser {
	return newParser(cfg, baseURL)
}

func newParser(cfg *config.ParserProviderConfig, baseURL string) *Parser {
	model := cfg.DefaultModel
	if model == "" {
		model = "gpt-4o"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4000
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Parser{
		client:      goopenai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}
}

// isReasoningModel reports whether model only accepts max_completion_tokens
// and the default temperature.
func isReasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

func (p *Parser) Analyze(ctx context.Context, req port.AnalysisRequest) (*port.ModelResponse, error) {
	model := p.model
	if req.Params.Model != "" {
		model = req.Params.Model
	}

	msg, err := buildMessage(req)
	if err != nil {
		return nil, err
	}

	chatReq := goopenai.ChatCompletionRequest{
		Model:    model,
		Messages: []goopenai.ChatCompletionMessage{msg},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	maxTokens := p.maxTokens
	if req.Params.MaxTokens > 0 {
		maxTokens = req.Params.MaxTokens
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(model) {
		chatReq.MaxCompletionTokens = maxTokens
	} else {
		chatReq.MaxTokens = maxTokens
		chatReq.Temperature = p.temperature
		if req.Params.Temperature > 0 {
			chatReq.Temperature = req.Params.Temperature
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices: %w", parser.ErrEmptyResponse)
	}
	choice := resp.Choices[0]
	if choice.FinishReason == goopenai.FinishReasonLength {
		return nil, fmt.Errorf("openai: output truncated (finish_reason: length)")
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return nil, fmt.Errorf("openai: %w", parser.ErrEmptyResponse)
	}

	used := resp.Model
	if used == "" {
		used = model
	}
	return &port.ModelResponse{Raw: choice.Message.Content, ModelUsed: used}, nil
}

func buildMessage(req port.AnalysisRequest) (goopenai.ChatCompletionMessage, error) {
	switch req.Payload.Kind {
	case port.PayloadImage:
		dataURI := fmt.Sprintf("data:%s;base64,%s", req.Payload.MediaType, base64.StdEncoding.EncodeToString(req.Payload.Data))
		return goopenai.ChatCompletionMessage{
			Role: goopenai.ChatMessageRoleUser,
			MultiContent: []goopenai.ChatMessagePart{
				{Type: goopenai.ChatMessagePartTypeText, Text: req.Prompt},
				{
					Type: goopenai.ChatMessagePartTypeImageURL,
					ImageURL: &goopenai.ChatMessageImageURL{
						URL:    dataURI,
						Detail: goopenai.ImageURLDetailHigh,
					},
				},
			},
		}, nil
	case port.PayloadPDF:
		if req.Payload.Text == "" {
			return goopenai.ChatCompletionMessage{}, fmt.Errorf("openai: pdf has no extractable text layer")
		}
		return goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: parser.UserText(req)}, nil
	case port.PayloadText:
		return goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: parser.UserText(req)}, nil
	default:
		return goopenai.ChatCompletionMessage{}, fmt.Errorf("openai: unsupported payload kind %q", req.Payload.Kind)
	}
}

// classifyError maps go-openai errors onto parser.StatusError and
// parser.RateLimitError. Transport errors are returned unchanged.
func classifyError(err error) error {
	status := 0
	msg := err.Error()

	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status, msg = apiErr.HTTPStatusCode, apiErr.Message
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return fmt.Errorf("calling openai API: %w", err)
	}

	stErr := parser.NewStatusError(providerName, status, msg)
	if status == http.StatusTooManyRequests {
		return parser.NewRateLimitError(providerName, stErr, 0)
	}
	return stErr
}
