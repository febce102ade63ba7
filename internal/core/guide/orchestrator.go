package guide

import (
	"context"

	"meal-prep-planner/internal/infrastructure/config"
	"meal-prep-planner/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Generator is the generative capability the orchestrator drives.
type Generator interface {
	ProcessRequest(ctx context.Context, prompt string) (string, error)
	ProcessStream(ctx context.Context, prompt string, fn func(chunk string) error) error
}

// Extractor normalizes one recipe source.
type Extractor interface {
	Extract(ctx context.Context, src common.RecipeSource) (*common.ParsedRecipe, error)
}

// Consolidator builds the deduplicated shopping list.
type Consolidator interface {
	Consolidate(ctx context.Context, recipes []common.ParsedRecipe) []common.ConsolidatedIngredient
}

// Saver persists a finished guide. Failures are non-fatal by contract.
type Saver interface {
	Save(guideText string, recipes []common.ParsedRecipe) (string, error)
}

// Emitter receives the session events in order: Metadata once, Chunk zero
// or more times, then exactly one of Done or Error.
type Emitter interface {
	Metadata(recipes []common.RecipeMetadata) error
	Chunk(chunk string) error
	Done(savedFilename string) error
	Error(message string) error
}

// CombineResult is the non-streaming response payload. Recipes carries
// the same subset the metadata stream event does.
type CombineResult struct {
	MealPrepGuide string                  `json:"mealPrepGuide"`
	Recipes       []common.RecipeMetadata `json:"recipes"`
	SavedFilename string                  `json:"savedFilename,omitempty"`
}

// Orchestrator coordinates one combine request: parallel extraction, the
// streamed combine pass, the trigger-once consolidation race, and
// best-effort persistence.
type Orchestrator struct {
	config       *config.Config
	ai           Generator
	extractor    Extractor
	consolidator Consolidator
	store        Saver
}

// NewOrchestrator wires the orchestrator. store may be nil when guide
// persistence is disabled.
func NewOrchestrator(cfg *config.Config, ai Generator, extractor Extractor, consolidator Consolidator, store Saver) *Orchestrator {
	return &Orchestrator{
		config:       cfg,
		ai:           ai,
		extractor:    extractor,
		consolidator: consolidator,
		store:        store,
	}
}

// parseAll runs the extractor over every source concurrently and joins
// all-or-nothing: one failure aborts the whole batch before anything is
// emitted.
func (o *Orchestrator) parseAll(ctx context.Context, sources []common.RecipeSource) ([]common.ParsedRecipe, error) {
	recipes := make([]common.ParsedRecipe, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			parsed, err := o.extractor.Extract(gctx, src)
			if err != nil {
				return err
			}
			recipes[i] = *parsed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return recipes, nil
}

// fireConsolidation consumes the session's trigger guard and, if it won,
// kicks off consolidation detached from the request: the stream must
// never wait on it and a client disconnect must not cancel it.
func (o *Orchestrator) fireConsolidation(ctx context.Context, session *Session, origin string) {
	if !session.trigger.TryFire() {
		return
	}

	recipes := session.Recipes()
	common.LogInfo("Consolidation triggered",
		zap.String("session_id", session.ID),
		zap.String("origin", origin),
		zap.Int("recipes", len(recipes)),
	)

	detached := context.WithoutCancel(ctx)
	go func() {
		list := o.consolidator.Consolidate(detached, recipes)
		common.LogInfo("Consolidation finished",
			zap.String("session_id", session.ID),
			zap.Int("ingredients", len(list)),
		)
	}()
}

func anyIngredients(recipes []common.ParsedRecipe) bool {
	for _, recipe := range recipes {
		if len(recipe.Ingredients) > 0 {
			return true
		}
	}
	return false
}

// Stream runs the full session against an emitter. A non-nil return
// means parsing failed and nothing was emitted, so the caller can still
// answer with a structured error response. Failures after the metadata
// event are delivered as a terminal error event instead.
func (o *Orchestrator) Stream(ctx context.Context, sources []common.RecipeSource, emitter Emitter) error {
	session := NewSession()

	recipes, err := o.parseAll(ctx, sources)
	if err != nil {
		common.LogError("Recipe parsing failed",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return err
	}
	session.SetRecipes(recipes)

	metadata := make([]common.RecipeMetadata, len(recipes))
	for i := range recipes {
		metadata[i] = recipes[i].Metadata()
	}
	if err := emitter.Metadata(metadata); err != nil {
		return nil
	}

	// First trigger point: parsing produced usable ingredient lists, so
	// consolidation can start while the guide is still generating.
	if anyIngredients(recipes) {
		o.fireConsolidation(ctx, session, "metadata")
	}

	prompt := buildCombinePrompt(recipes)
	streamErr := o.ai.ProcessStream(ctx, prompt, func(chunk string) error {
		session.Append(chunk)
		return emitter.Chunk(chunk)
	})
	if streamErr != nil {
		if ctx.Err() != nil {
			// Client went away; there is no stream left to write to.
			common.LogWarn("Session cancelled mid-stream",
				zap.String("session_id", session.ID),
			)
			return nil
		}
		common.LogError("Guide generation failed",
			zap.String("session_id", session.ID),
			zap.Error(streamErr),
		)
		_ = emitter.Error(common.NewAIServiceError(streamErr).Message)
		return nil
	}

	// Second trigger point: no-op when the metadata-time trigger already
	// fired.
	o.fireConsolidation(ctx, session, "completion")

	filename := o.saveGuide(session)
	_ = emitter.Done(filename)

	common.LogInfo("Session completed",
		zap.String("session_id", session.ID),
		zap.Int("guide_length", len(session.GuideText())),
	)
	return nil
}

// Combine is the non-streaming fallback: same parsing, one synchronous
// generation, the same trigger-once consolidation rule.
func (o *Orchestrator) Combine(ctx context.Context, sources []common.RecipeSource) (*CombineResult, error) {
	session := NewSession()

	recipes, err := o.parseAll(ctx, sources)
	if err != nil {
		common.LogError("Recipe parsing failed",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return nil, err
	}
	session.SetRecipes(recipes)

	if anyIngredients(recipes) {
		o.fireConsolidation(ctx, session, "metadata")
	}

	guideText, err := o.ai.ProcessRequest(ctx, buildCombinePrompt(recipes))
	if err != nil {
		common.LogError("Guide generation failed",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return nil, common.NewAIServiceError(err)
	}
	session.Append(guideText)

	o.fireConsolidation(ctx, session, "completion")

	filename := o.saveGuide(session)

	metadata := make([]common.RecipeMetadata, len(recipes))
	for i := range recipes {
		metadata[i] = recipes[i].Metadata()
	}

	return &CombineResult{
		MealPrepGuide: guideText,
		Recipes:       metadata,
		SavedFilename: filename,
	}, nil
}

// Consolidate exposes the consolidator for the dedicated endpoint.
func (o *Orchestrator) Consolidate(ctx context.Context, recipes []common.ParsedRecipe) []common.ConsolidatedIngredient {
	return o.consolidator.Consolidate(ctx, recipes)
}

// saveGuide persists the finished guide text. Persistence failures are
// logged and swallowed; they never change the session outcome.
func (o *Orchestrator) saveGuide(session *Session) string {
	if o.store == nil || !o.config.Guides.Enabled {
		return ""
	}
	filename, err := o.store.Save(session.GuideText(), session.Recipes())
	if err != nil {
		common.LogWarn("Failed to save guide",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return ""
	}
	common.LogInfo("Guide saved",
		zap.String("session_id", session.ID),
		zap.String("filename", filename),
	)
	return filename
}
