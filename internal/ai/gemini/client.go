package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/triagekit/resume-triage/internal/ai"
	"github.com/triagekit/resume-triage/internal/utils"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel      = "gemini-2.5-flash"
	defaultMaxRetries = 3
	defaultTimeout    = 2 * time.Minute
)

// wait is stubbed in tests to avoid real backoff delays.
var wait = utils.WaitFor

// contentCaller is the slice of genai.Models the generator uses.
// Kept as an interface so tests can inject failure sequences.
type contentCaller interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator wraps the Google GenAI client with structured output and a
// retry-with-backoff policy for transient API failures.
type Generator struct {
	models     contentCaller
	model      string
	maxRetries int
	timeout    time.Duration
	logger     *zap.Logger
}

// NewGenerator creates a Generator backed by the Gemini API.
func NewGenerator(ctx context.Context, apiKey, model string, maxRetries int, timeout time.Duration, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	if timeout <= 0 {
		timeout = defaultTimeout
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		models:     client.Models,
		model:      model,
		maxRetries: maxRetries,
		timeout:    timeout,
		logger:     logger,
	}, nil
}

// GenerateDecision sends the prompt to Gemini requesting a response that
// conforms to the decision schema and returns the raw JSON text.
//
// Transient API failures are retried up to maxRetries attempts with an
// exponential delay of 2^attempt seconds. Exhausted retries and
// authentication failures are returned as *ai.FatalError; everything
// else is an ordinary error the caller may recover from.
func (g *Generator) GenerateDecision(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   decisionSchema(),
	}

	var lastErr error
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		callCtx := ctx
		cancel := func() {}
		if g.timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		}

		resp, err := g.models.GenerateContent(callCtx, g.model, genai.Text(prompt), config)
		cancel()
		if err == nil {
			return collectText(resp)
		}

		if isAuthError(err) {
			return "", &ai.FatalError{Reason: "gemini authentication failed", Err: err}
		}

		if !isTransient(err) {
			return "", fmt.Errorf("generate content: %w", err)
		}

		lastErr = err
		if attempt+1 >= g.maxRetries {
			break
		}

		delay := time.Duration(1<<uint(attempt)) * time.Second
		g.logger.Warn("transient gemini failure, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", g.maxRetries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := wait(ctx, delay); err != nil {
			return "", fmt.Errorf("waiting for retry: %w", err)
		}
	}

	return "", &ai.FatalError{
		Reason: fmt.Sprintf("gemini still failing after %d attempts", g.maxRetries),
		Err:    lastErr,
	}
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// decisionSchema mirrors the strict response shape the prompt asks for.
func decisionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"match_score":     {Type: genai.TypeNumber},
			"thought_process": {Type: genai.TypeString},
			"command": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"action": {
						Type: genai.TypeString,
						Enum: []string{"MOVE_FILE", "SKIP"},
					},
					"destination_folder": {
						Type: genai.TypeString,
						Enum: []string{"Interview_Candidates", "Rejected_Candidates"},
					},
				},
				Required: []string{"action", "destination_folder"},
			},
		},
		Required: []string{"match_score", "thought_process", "command"},
	}
}

func collectText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini api returned no response")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

func isTransient(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
			return true
		}
		return false
	}

	// A deadline on the per-call context counts as transient as long as
	// the parent context is still alive.
	return errors.Is(err, context.DeadlineExceeded)
}

func isAuthError(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden
}
