package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"parcelscope/internal/config"
	"parcelscope/internal/parser"
	"parcelscope/internal/port"
)

const providerName = "gemini"

// Parser implements port.DocumentParser using Google's Gemini API.
type Parser struct {
	apiKey      string
	model       string
	endpoint    string
	temperature float32
	maxTokens   int
	timeout     time.Duration
}

// NewParser creates a Gemini-based document parser.
func NewParser(cfg *config.ParserProviderConfig) *Parser {
	return newParser(cfg, cfg.BaseURL)
}

// NewParserWithEndpoint creates a parser pointing at a custom API endpoint (for testing).
func NewParserWithEndpoint(cfg *config.ParserProviderConfig, endpoint string) *Parser {
	return newParser(cfg, endpoint)
}

func newParser(cfg *config.ParserProviderConfig, endpoint string) *Parser {
	model := cfg.DefaultModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Parser{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		endpoint:    endpoint,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     timeout,
	}
}

func (p *Parser) Analyze(ctx context.Context, req port.AnalysisRequest) (*port.ModelResponse, error) {
	if p.apiKey == "" {
		return nil, errors.New("gemini: api key is empty")
	}
	parts, err := buildParts(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	opts := []option.ClientOption{option.WithAPIKey(p.apiKey)}
	if p.endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.endpoint))
	}
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	defer func() { _ = cl.Close() }()

	model := p.model
	if req.Params.Model != "" {
		model = req.Params.Model
	}
	m := cl.GenerativeModel(model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(p.temperatureFor(req)),
		ResponseMIMEType: "application/json",
	}
	if maxTokens := p.maxTokensFor(req); maxTokens > 0 {
		m.GenerationConfig.MaxOutputTokens = ptrInt32(int32(maxTokens))
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, classifyError(err)
	}
	txt := firstText(resp)
	if strings.TrimSpace(txt) == "" {
		return nil, fmt.Errorf("gemini: %w", parser.ErrEmptyResponse)
	}
	return &port.ModelResponse{Raw: txt, ModelUsed: model}, nil
}

func (p *Parser) temperatureFor(req port.AnalysisRequest) float32 {
	if req.Params.Temperature > 0 {
		return req.Params.Temperature
	}
	return p.temperature
}

func (p *Parser) maxTokensFor(req port.AnalysisRequest) int {
	if req.Params.MaxTokens > 0 {
		return req.Params.MaxTokens
	}
	return p.maxTokens
}

func buildParts(req port.AnalysisRequest) ([]genai.Part, error) {
	parts := []genai.Part{genai.Text(req.Prompt)}
	switch req.Payload.Kind {
	case port.PayloadImage, port.PayloadPDF:
		parts = append(parts, &genai.Blob{MIMEType: req.Payload.MediaType, Data: req.Payload.Data})
	case port.PayloadText:
	default:
		return nil, fmt.Errorf("gemini: unsupported payload kind %q", req.Payload.Kind)
	}
	return parts, nil
}

// classifyError maps Google API errors onto parser.StatusError and
// parser.RateLimitError. Transport errors are returned unchanged.
func classifyError(err error) error {
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) {
		return fmt.Errorf("calling gemini API: %w", err)
	}
	msg := gErr.Message
	if msg == "" {
		msg = gErr.Body
	}
	stErr := parser.NewStatusError(providerName, gErr.Code, msg)
	if gErr.Code == http.StatusTooManyRequests {
		retryAfter := parser.ParseRetryAfterHeader(gErr.Header.Get("Retry-After"))
		return parser.NewRateLimitError(providerName, stErr, retryAfter)
	}
	return stErr
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }

func ptrInt32(v int32) *int32 { return &v }
