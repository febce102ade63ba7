package consolidate

import (
	"context"
	"fmt"
	"strings"

	"meal-prep-planner/internal/pkg/common"

	"go.uber.org/zap"
)

const reorderPromptHeader = `You will receive a shopping list, one ingredient per line prefixed with "- ".
Reorder the lines so that similar items sit next to each other (produce together, dairy together, and so on).
Ignore leading quantities and units when judging similarity.
Rules:
- Return plain text, one ingredient per line, no bullets, no numbering, no commentary.
- Every line must be reproduced verbatim. Do not add, remove, merge or reword any line. Only the order may change.

List:
`

// reorderWithAI asks the model to reorder the unique ingredient lines for
// adjacency and matches the response back onto the records. Returns
// ok=false when the attempt is unusable for any reason; a partial or
// corrupted ordering is never returned.
func (s *Service) reorderWithAI(ctx context.Context, records []*record) ([]common.ConsolidatedIngredient, bool) {
	var sb strings.Builder
	sb.WriteString(reorderPromptHeader)
	for _, rec := range records {
		sb.WriteString(fmt.Sprintf("- %s\n", rec.ingredient))
	}

	content, err := s.ai.ProcessRequest(ctx, sb.String())
	if err != nil {
		common.LogWarn("Generative grouping call failed", zap.Error(err))
		return nil, false
	}

	byExact := make(map[string]*record, len(records))
	byNormalized := make(map[string]*record, len(records))
	for _, rec := range records {
		byExact[rec.ingredient] = rec
		byNormalized[normalizeLine(rec.ingredient)] = rec
	}

	used := map[*record]bool{}
	var out []common.ConsolidatedIngredient

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimPrefix(line, "* ")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		rec, ok := byExact[line]
		if !ok {
			rec, ok = byNormalized[normalizeLine(line)]
		}
		if ok {
			if used[rec] {
				continue
			}
			used[rec] = true
			out = append(out, common.ConsolidatedIngredient{
				Ingredient: rec.ingredient,
				Recipes:    rec.recipes,
			})
			continue
		}

		// The model invented a line; keep it rather than lose whatever
		// it was trying to say, attributed to no known recipe.
		out = append(out, common.ConsolidatedIngredient{
			Ingredient: line,
			Recipes:    []string{unknownRecipeLabel},
		})
	}

	if len(out) == 0 {
		return nil, false
	}

	// Lines the model dropped are appended in deterministic order so no
	// ingredient ever disappears from the shopping list.
	if len(used) < len(records) {
		var rest []*record
		for _, rec := range records {
			if !used[rec] {
				rest = append(rest, rec)
			}
		}
		out = append(out, deterministicOrder(rest)...)
	}

	return out, true
}

// normalizeLine lowercases and collapses internal whitespace for the
// lenient match-back pass.
func normalizeLine(line string) string {
	return strings.Join(strings.Fields(strings.ToLower(line)), " ")
}
