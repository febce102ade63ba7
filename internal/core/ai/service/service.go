package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"meal-prep-planner/internal/core/ai/openrouter"
	"meal-prep-planner/internal/infrastructure/config"
	"meal-prep-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// Backend is the raw completion API the service drives. Satisfied by
// *openrouter.Client; tests substitute fakes.
type Backend interface {
	Complete(ctx context.Context, model string, messages []openrouter.Message) (string, error)
	CompleteStream(ctx context.Context, model string, messages []openrouter.Message, fn func(chunk string) error) error
}

// Service fronts the generative backend and applies the model fallback
// policy shared by every generative call: if the configured model is
// reported unavailable, retry once with the fallback model.
type Service struct {
	config  *config.Config
	backend Backend
}

// NewService creates the AI service around an already-constructed backend.
func NewService(cfg *config.Config, backend Backend) *Service {
	return &Service{
		config:  cfg,
		backend: backend,
	}
}

// ProcessRequest sends one prompt and returns the full completion.
func (s *Service) ProcessRequest(ctx context.Context, prompt string) (string, error) {
	messages := []openrouter.Message{{Role: "user", Content: prompt}}

	content, err := s.backend.Complete(ctx, s.config.OpenRouter.Model, messages)
	if err == nil {
		return content, nil
	}
	if model, ok := s.fallbackFor(err); ok {
		common.LogWarn("Primary model unavailable, retrying with fallback",
			zap.String("model", s.config.OpenRouter.Model),
			zap.String("fallback", model),
		)
		return s.backend.Complete(ctx, model, messages)
	}
	return "", err
}

// ProcessStream sends one prompt with streaming enabled, forwarding every
// fragment to fn as it arrives. The model fallback only applies when the
// primary model was rejected before any fragment was delivered, so the
// caller never sees duplicated output.
func (s *Service) ProcessStream(ctx context.Context, prompt string, fn func(chunk string) error) error {
	messages := []openrouter.Message{{Role: "user", Content: prompt}}

	delivered := false
	wrapped := func(chunk string) error {
		delivered = true
		return fn(chunk)
	}

	err := s.backend.CompleteStream(ctx, s.config.OpenRouter.Model, messages, wrapped)
	if err == nil {
		return nil
	}
	if model, ok := s.fallbackFor(err); ok && !delivered {
		common.LogWarn("Primary model unavailable, retrying stream with fallback",
			zap.String("model", s.config.OpenRouter.Model),
			zap.String("fallback", model),
		)
		return s.backend.CompleteStream(ctx, model, messages, fn)
	}
	return err
}

func (s *Service) fallbackFor(err error) (string, bool) {
	var unavailable *openrouter.ModelUnavailableError
	if !errors.As(err, &unavailable) {
		return "", false
	}
	fallback := s.config.OpenRouter.FallbackModel
	if fallback == "" || fallback == s.config.OpenRouter.Model {
		return "", false
	}
	return fallback, true
}

// ExtractionStatus says what happened to a structured-extraction attempt,
// so callers can tell "enrichment failed" apart from "never attempted".
type ExtractionStatus string

const (
	ExtractionApplied ExtractionStatus = "applied"
	ExtractionFailed  ExtractionStatus = "failed"
)

// ExtractionResult is the outcome of one structured-extraction request.
// On failure the zero-valued fields are returned along with the cause;
// callers degrade to their own minimal record instead of propagating it.
type ExtractionResult struct {
	Status       ExtractionStatus
	Title        string
	Ingredients  []string
	Instructions []string
	Err          error
}

type extractedRecipe struct {
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
}

const extractSystemPrompt = `You are a recipe extraction assistant. Given raw text from a recipe page or a user's pasted notes, extract the recipe. Respond with a single JSON object and nothing else, in this exact shape:
{"title": "...", "ingredients": ["..."], "instructions": ["..."]}
Each ingredient is one line including its quantity and unit. Each instruction is one step. Use empty arrays when nothing can be found. Do not invent content that is not in the text.`

// ExtractRecipe asks the model to pull {title, ingredients, instructions}
// out of raw text.
func (s *Service) ExtractRecipe(ctx context.Context, text string) ExtractionResult {
	prompt := fmt.Sprintf("%s\n\nText:\n%s", extractSystemPrompt, text)

	content, err := s.ProcessRequest(ctx, prompt)
	if err != nil {
		return ExtractionResult{Status: ExtractionFailed, Err: err}
	}

	var parsed extractedRecipe
	if err := common.ParseJSON(common.ExtractJSONObject(content), &parsed); err != nil {
		return ExtractionResult{Status: ExtractionFailed, Err: fmt.Errorf("failed to parse extraction response: %w", err)}
	}

	return ExtractionResult{
		Status:       ExtractionApplied,
		Title:        strings.TrimSpace(parsed.Title),
		Ingredients:  filterNonEmpty(parsed.Ingredients),
		Instructions: filterNonEmpty(parsed.Instructions),
	}
}

func filterNonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
