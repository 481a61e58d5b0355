package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"learnpath/internal/config"
	"learnpath/internal/observability"
	contextutils "learnpath/internal/utils"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

// GenAIServiceInterface defines the generative backend operations
type GenAIServiceInterface interface {
	Configured() bool
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error)
}

// GenAIService talks to an OpenAI-compatible chat completion endpoint. An
// unconfigured backend is a normal deployment state; callers get a
// model-unavailable error and are expected to degrade.
type GenAIService struct {
	cfg        *config.GenAIConfig
	httpClient *http.Client
	logger     *observability.Logger
}

// NewGenAIServiceWithLogger creates a new generative backend adapter
func NewGenAIServiceWithLogger(cfg *config.GenAIConfig, logger *observability.Logger) *GenAIService {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = config.GenAIRequestTimeout
	}
	return &GenAIService{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// Configured reports whether a backend endpoint is set.
func (s *GenAIService) Configured() bool {
	return s.cfg.URL != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateText sends the prompt to the configured backend and returns the
// raw completion text.
func (s *GenAIService) GenerateText(ctx context.Context, prompt string) (result0 string, err error) {
	ctx, span := observability.TraceGenAIFunction(ctx, "generate_text",
		attribute.Int("prompt.length", len(prompt)),
		attribute.String("genai.model", s.cfg.Model),
	)
	defer observability.FinishSpan(span, &err)

	if !s.Configured() {
		return "", contextutils.WrapError(contextutils.ErrModelUnavailable, "generative backend is not configured")
	}

	reqBody := chatCompletionRequest{
		Model:     s.cfg.Model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: s.cfg.MaxTokens,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to marshal completion request: %w", err)
	}

	url := strings.TrimRight(s.cfg.URL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrAIRequestFailed, "completion request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrAIRequestFailed, "failed to read completion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.Warn(ctx, "Generative backend returned an error", map[string]interface{}{
			"status": resp.StatusCode,
		})
		return "", contextutils.WrapError(contextutils.ErrAIRequestFailed,
			fmt.Sprintf("generative backend returned status %d", resp.StatusCode))
	}

	var completion chatCompletionResponse
	if err = json.Unmarshal(body, &completion); err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrAIResponseInvalid, "failed to parse completion response: %w", err)
	}
	if completion.Error != nil {
		return "", contextutils.WrapError(contextutils.ErrAIRequestFailed, completion.Error.Message)
	}
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return "", contextutils.WrapError(contextutils.ErrAIResponseInvalid, "completion response has no content")
	}

	content := completion.Choices[0].Message.Content
	span.SetAttributes(attribute.Int("completion.length", len(content)))
	return content, nil
}

// GenerateJSON asks the backend for a completion and extracts a JSON object
// from it. The whole response is tried first; models that wrap JSON in prose
// or code fences fall back to the first balanced object in the text.
func (s *GenAIService) GenerateJSON(ctx context.Context, prompt string) (result0 json.RawMessage, err error) {
	ctx, span := observability.TraceGenAIFunction(ctx, "generate_json")
	defer observability.FinishSpan(span, &err)

	text, err := s.GenerateText(ctx, prompt)
	if err != nil {
		return nil, err
	}

	obj, err := ExtractJSONObject(text)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("call.result", "parsed"))
	return obj, nil
}

// ExtractJSONObject parses text as a JSON object, or failing that, extracts
// the first balanced {...} span that parses. Brace counting is string-aware
// so braces inside values do not break the scan.
func ExtractJSONObject(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) && strings.HasPrefix(trimmed, "{") {
		return json.RawMessage(trimmed), nil
	}

	start := strings.IndexByte(trimmed, '{')
	for start >= 0 {
		if span := balancedSpan(trimmed[start:]); span > 0 {
			candidate := trimmed[start : start+span]
			if json.Valid([]byte(candidate)) {
				return json.RawMessage(candidate), nil
			}
		}
		next := strings.IndexByte(trimmed[start+1:], '{')
		if next < 0 {
			break
		}
		start += 1 + next
	}

	return nil, contextutils.WrapError(contextutils.ErrAIResponseInvalid, "no JSON object found in completion")
}

// balancedSpan returns the length of the balanced brace span starting at
// text[0] (which must be '{'), or 0 if it never closes.
func balancedSpan(text string) int {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return 0
}
