package consolidate

import (
	"context"
	"sort"
	"strings"

	"meal-prep-planner/internal/infrastructure/config"
	"meal-prep-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// priorityKeywords orders the shopping list by store-aisle affinity:
// a lower index sorts earlier, the first keyword found in the ingredient
// text wins, no match sorts last. Precedence order matters.
var priorityKeywords = []string{
	"oil", "butter", "garlic", "onion", "salt", "pepper", "sugar", "flour",
	"egg", "milk", "cream", "cheese", "tomato", "chicken", "beef", "pasta",
	"rice", "beans", "lemon", "vinegar", "broth", "potato", "carrot",
	"celery", "spinach", "mushroom", "bacon", "sausage", "fish", "shrimp",
	"pork",
}

// unknownRecipeLabel attributes reordered lines that cannot be matched
// back to any input ingredient.
const unknownRecipeLabel = "Unknown Recipe"

// record is one deduplicated ingredient during consolidation.
type record struct {
	ingredient string
	recipes    []string
	seenRecipe map[string]bool
	firstIndex int
	priority   int
}

// TextGenerator is the single-shot completion capability used for the
// optional generative grouping pass.
type TextGenerator interface {
	ProcessRequest(ctx context.Context, prompt string) (string, error)
}

// Service produces one deduplicated, similarity-ordered shopping list
// from a set of parsed recipes. Consolidate never fails: every internal
// error degrades to the deterministic keyword sort.
type Service struct {
	config *config.Config
	ai     TextGenerator
}

// NewService creates the consolidator. ai may be nil when generative
// grouping is disabled.
func NewService(cfg *config.Config, ai TextGenerator) *Service {
	return &Service{
		config: cfg,
		ai:     ai,
	}
}

// Consolidate deduplicates every recipe's ingredients by exact text and
// orders them, via the generative grouping pass when enabled and usable,
// otherwise by (keyword priority, first appearance).
func (s *Service) Consolidate(ctx context.Context, recipes []common.ParsedRecipe) []common.ConsolidatedIngredient {
	records := buildRecords(recipes)
	if len(records) == 0 {
		return []common.ConsolidatedIngredient{}
	}

	if s.config.Consolidate.AIGrouping && s.ai != nil {
		if grouped, ok := s.reorderWithAI(ctx, records); ok {
			return grouped
		}
		common.LogWarn("Generative grouping unusable, falling back to keyword sort",
			zap.Int("ingredients", len(records)),
		)
	}

	return deterministicOrder(records)
}

// buildRecords flattens and deduplicates by exact ingredient text,
// preserving source order. A recipe title contributes to a given
// ingredient at most once.
func buildRecords(recipes []common.ParsedRecipe) []*record {
	var records []*record
	index := map[string]*record{}

	position := 0
	for _, recipe := range recipes {
		for _, ingredient := range recipe.Ingredients {
			rec, exists := index[ingredient]
			if !exists {
				rec = &record{
					ingredient: ingredient,
					seenRecipe: map[string]bool{},
					firstIndex: position,
					priority:   keywordPriority(ingredient),
				}
				index[ingredient] = rec
				records = append(records, rec)
			}
			if !rec.seenRecipe[recipe.Title] {
				rec.seenRecipe[recipe.Title] = true
				rec.recipes = append(rec.recipes, recipe.Title)
			}
			position++
		}
	}

	return records
}

// keywordPriority returns the index of the first matching keyword, or
// len(priorityKeywords) when nothing matches.
func keywordPriority(ingredient string) int {
	lower := strings.ToLower(ingredient)
	for i, keyword := range priorityKeywords {
		if strings.Contains(lower, keyword) {
			return i
		}
	}
	return len(priorityKeywords)
}

// deterministicOrder sorts by (priority, first appearance). The sort is
// stable so equal inputs always produce byte-identical output.
func deterministicOrder(records []*record) []common.ConsolidatedIngredient {
	sorted := make([]*record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].priority != sorted[j].priority {
			return sorted[i].priority < sorted[j].priority
		}
		return sorted[i].firstIndex < sorted[j].firstIndex
	})

	out := make([]common.ConsolidatedIngredient, len(sorted))
	for i, rec := range sorted {
		out[i] = common.ConsolidatedIngredient{
			Ingredient: rec.ingredient,
			Recipes:    rec.recipes,
		}
	}
	return out
}
