package extract

import (
	"context"
	"fmt"
	"strings"

	aiservice "meal-prep-planner/internal/core/ai/service"
	"meal-prep-planner/internal/infrastructure/config"
	"meal-prep-planner/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	// Text sources shorter than this are assumed not recipe-shaped and
	// never trigger a generative call.
	minTextLength = 50

	// Prompt and snapshot budgets.
	maxTextPromptChars     = 3000
	maxFallbackPromptChars = 5000
	minFallbackPromptChars = 100
	maxRawContentChars     = 2000
)

// RecipeExtractor is the structured-extraction capability the extractor
// needs from the AI layer.
type RecipeExtractor interface {
	ExtractRecipe(ctx context.Context, text string) aiservice.ExtractionResult
}

// Service converts one raw recipe source into a normalized ParsedRecipe.
type Service struct {
	config *config.Config
	ai     RecipeExtractor
	client *resty.Client
}

// NewService creates the extractor. The AI service is injected so the
// generative fallback shares the process-wide client and fallback policy.
func NewService(cfg *config.Config, ai RecipeExtractor) *Service {
	client := resty.New().
		SetTimeout(cfg.Extract.FetchTimeout).
		SetHeader("User-Agent", "Mozilla/5.0 (compatible; meal-prep-planner/1.0)")

	return &Service{
		config: cfg,
		ai:     ai,
		client: client,
	}
}

// Extract normalizes one recipe source. It fails only when the source is
// fundamentally unreachable or unreadable; thin or messy content degrades
// to a minimal record instead.
func (s *Service) Extract(ctx context.Context, src common.RecipeSource) (*common.ParsedRecipe, error) {
	switch src.Kind {
	case common.SourceKindURL:
		return s.extractURL(ctx, src.Content)
	case common.SourceKindText:
		return s.extractText(ctx, src.Content)
	default:
		return nil, common.NewInvalidInput(fmt.Sprintf("unknown recipe source kind %q", src.Kind))
	}
}

// extractText handles pasted free text. Inputs below the length threshold
// return a minimal record without a generative call; longer inputs go
// through structured extraction, degrading to the minimal record on any
// failure. This path never returns an error for non-empty input.
func (s *Service) extractText(ctx context.Context, content string) (*common.ParsedRecipe, error) {
	if content == "" {
		return nil, common.NewInvalidInput("text recipe content must be a non-empty string")
	}

	minimal := &common.ParsedRecipe{
		Title:        common.DefaultTextTitle,
		Source:       common.ManualSourceLabel,
		Ingredients:  []string{},
		Instructions: []string{},
		RawContent:   content,
	}

	if len(strings.TrimSpace(content)) < minTextLength {
		common.LogDebug("Text source below extraction threshold, returning minimal record",
			zap.Int("length", len(strings.TrimSpace(content))),
		)
		return minimal, nil
	}

	result := s.ai.ExtractRecipe(ctx, common.TruncateString(content, maxTextPromptChars))
	if result.Status != aiservice.ExtractionApplied {
		common.LogWarn("Text extraction degraded to minimal record",
			zap.Error(result.Err),
		)
		return minimal, nil
	}

	title := result.Title
	if title == "" {
		title = common.DefaultTextTitle
	}

	return &common.ParsedRecipe{
		Title:        title,
		Source:       common.ManualSourceLabel,
		Ingredients:  common.Truncate(result.Ingredients, common.MaxListEntries),
		Instructions: common.Truncate(result.Instructions, common.MaxListEntries),
		RawContent:   content,
	}, nil
}
