package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/triagekit/resume-triage/internal/ai"
	"github.com/triagekit/resume-triage/internal/logger"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

//go:embed prompt.md
var promptTemplate string

//go:embed decision_schema.json
var decisionSchemaJSON string

const (
	defaultThreshold    = 70
	defaultMaxLogLength = 200
)

// decisionGenerator is implemented by *Generator.
type decisionGenerator interface {
	GenerateDecision(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Planner turns one resume into a triage decision via Gemini.
type Planner struct {
	generator decisionGenerator
	threshold float64
	maxLogLen int
	logger    *zap.Logger
}

// NewPlanner creates a Planner. threshold is the interview cutoff the
// model is instructed to apply (defaults to 70 when not positive).
func NewPlanner(generator decisionGenerator, threshold float64, maxLogLength int, log *zap.Logger) *Planner {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Planner{
		generator: generator,
		threshold: threshold,
		maxLogLen: maxLogLength,
		logger:    log,
	}
}

// Plan builds the prompt, calls the model and parses the structured
// response. The result is never an exception surface: fatal remote
// failures produce an OutcomeFatal result, everything else recoverable
// degrades to a fallback SKIP decision so the batch can continue.
func (p *Planner) Plan(ctx context.Context, resumeText, jobDescription, filename string) *ai.PlanResult {
	prompt := buildPrompt(resumeText, jobDescription, filename, p.threshold)

	p.logger.Debug("gemini plan request",
		zap.String("file", filename),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, p.maxLogLen)),
	)

	raw, err := p.generator.GenerateDecision(ctx, prompt)
	if err != nil {
		var fatal *ai.FatalError
		if errors.As(err, &fatal) {
			return &ai.PlanResult{Outcome: ai.OutcomeFatal, Err: fatal}
		}

		p.logger.Warn("model call failed, substituting skip decision",
			zap.String("file", filename),
			zap.Error(err),
		)
		return &ai.PlanResult{
			Outcome:  ai.OutcomeRecovered,
			Decision: ai.FallbackDecision(fmt.Sprintf("model call failed: %v", err)),
			Err:      err,
		}
	}

	p.logger.Debug("gemini plan response",
		zap.String("file", filename),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, p.maxLogLen)),
	)

	decision, err := parseDecision(raw)
	if err != nil {
		p.logger.Warn("unusable model response, substituting skip decision",
			zap.String("file", filename),
			zap.Error(err),
		)
		return &ai.PlanResult{
			Outcome:  ai.OutcomeRecovered,
			Decision: ai.FallbackDecision(fmt.Sprintf("unusable model response: %v", err)),
			Err:      err,
		}
	}

	return &ai.PlanResult{Outcome: ai.OutcomeSuccess, Decision: decision}
}

func buildPrompt(resumeText, jobDescription, filename string, threshold float64) string {
	prompt := strings.ReplaceAll(promptTemplate, "{{JOB_DESCRIPTION}}", jobDescription)
	prompt = strings.ReplaceAll(prompt, "{{RESUME_TEXT}}", resumeText)
	prompt = strings.ReplaceAll(prompt, "{{FILENAME}}", filename)
	prompt = strings.ReplaceAll(prompt, "{{THRESHOLD}}", strings.TrimSuffix(fmt.Sprintf("%.2f", threshold), ".00"))
	return prompt
}

// parseDecision validates the raw model output against the strict
// decision schema and unmarshals it.
func parseDecision(raw string) (*ai.Decision, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return nil, errors.New("empty response")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(decisionSchemaJSON),
		gojsonschema.NewStringLoader(cleaned),
	)
	if err != nil {
		return nil, fmt.Errorf("validate decision json: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, fmt.Errorf("decision does not match schema: %s", strings.Join(details, "; "))
	}

	var decision ai.Decision
	if err := json.Unmarshal([]byte(cleaned), &decision); err != nil {
		return nil, fmt.Errorf("unmarshal decision: %w", err)
	}

	return &decision, nil
}

// extractJSON strips markdown fences some models wrap around JSON.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
