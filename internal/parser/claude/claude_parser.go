package claude

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"parcelscope/internal/config"
	"parcelscope/internal/parser"
	"parcelscope/internal/port"
)

const (
	apiURL       = "https://api.anthropic.com/v1/messages"
	apiVersion   = "2023-06-01"
	providerName = "claude"
)

// Parser implements port.DocumentParser using the Anthropic Messages API.
type Parser struct {
	apiKey      string
	model       string
	endpoint    string
	temperature float32
	maxTokens   int
	client      *http.Client
}

// NewParser creates a Claude-based document parser from a provider config.
func NewParser(cfg *config.ParserProviderConfig) *Parser {
	endpoint := apiURL
	if cfg.BaseURL != "" {
		endpoint = strings.TrimRight(cfg.BaseURL, "/") + "/v1/messages"
	}
	return newParser(cfg, endpoint)
}

// NewParserWithEndpoint creates a parser pointing at a custom API endpoint (for testing).
func NewParserWithEndpoint(cfg *config.ParserProviderConfig, endpoint string) *Parser {
	return newParser(cfg, endpoint)
}

func newParser(cfg *config.ParserProviderConfig, endpoint string) *Parser {
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4000
	}
	return &Parser{
		apiKey:      cfg.APIKey,
		model:       model,
		endpoint:    endpoint,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		client:      &http.Client{Timeout: timeout},
	}
}

func (p *Parser) Analyze(ctx context.Context, in port.AnalysisRequest) (*port.ModelResponse, error) {
	contentBlocks, err := buildContentBlocks(in)
	if err != nil {
		return nil, fmt.Errorf("building content blocks: %w", err)
	}

	model := p.model
	if in.Params.Model != "" {
		model = in.Params.Model
	}
	maxTokens := p.maxTokens
	if in.Params.MaxTokens > 0 {
		maxTokens = in.Params.MaxTokens
	}
	temperature := p.temperature
	if in.Params.Temperature > 0 {
		temperature = in.Params.Temperature
	}

	reqBody := map[string]interface{}{
		"model":       model,
		"max_tokens":  maxTokens,
		"temperature": temperature,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": contentBlocks,
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling anthropic API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		stErr := parser.NewStatusError(providerName, resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := parser.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, parser.NewRateLimitError(providerName, stErr, retryAfter)
		}
		return nil, stErr
	}

	return parseResponse(respBody, model)
}

func buildContentBlocks(in port.AnalysisRequest) ([]map[string]interface{}, error) {
	var blocks []map[string]interface{}

	switch in.Payload.Kind {
	case port.PayloadPDF:
		blocks = append(blocks, map[string]interface{}{
			"type": "document",
			"source": map[string]interface{}{
				"type":       "base64",
				"media_type": "application/pdf",
				"data":       base64.StdEncoding.EncodeToString(in.Payload.Data),
			},
		})
	case port.PayloadImage:
		blocks = append(blocks, map[string]interface{}{
			"type": "image",
			"source": map[string]interface{}{
				"type":       "base64",
				"media_type": in.Payload.MediaType,
				"data":       base64.StdEncoding.EncodeToString(in.Payload.Data),
			},
		})
	case port.PayloadText:
		// the document text is already part of the prompt
	default:
		return nil, fmt.Errorf("unsupported payload kind: %q", in.Payload.Kind)
	}

	blocks = append(blocks, map[string]interface{}{
		"type": "text",
		"text": in.Prompt,
	})

	return blocks, nil
}

// apiResponse models the Anthropic Messages API response.
type apiResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func parseResponse(body []byte, model string) (*port.ModelResponse, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w (raw: %s)", err, parser.Truncate(string(body), 500))
	}

	if resp.StopReason == "max_tokens" {
		return nil, fmt.Errorf("output truncated (stop_reason: max_tokens): response exceeded output token limit")
	}

	var text strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, fmt.Errorf("anthropic: %w", parser.ErrEmptyResponse)
	}

	used := resp.Model
	if used == "" {
		used = model
	}
	return &port.ModelResponse{Raw: text.String(), ModelUsed: used}, nil
}
