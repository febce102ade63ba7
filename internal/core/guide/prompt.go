package guide

import (
	"fmt"
	"strings"

	"meal-prep-planner/internal/pkg/common"
)

// maxRawContextChars bounds how much raw page text each recipe may append
// to the combine prompt.
const maxRawContextChars = 2000

const combinePromptHeader = `You are a meal-prep planning assistant. The user wants to cook all of the recipes below during one meal-prep session. Write a single coordinated meal-prep guide that:
- sequences the work across all recipes so shared steps (chopping, preheating, marinating) are batched,
- calls out which recipe each step belongs to,
- flags steps that can run in parallel (for example while something simmers or bakes),
- ends with storage and reheating notes per dish.
Write plain, well-structured text with headings. Do not return JSON.

`

// buildCombinePrompt renders every parsed recipe into the combine prompt:
// title, source, bulleted ingredients, numbered instructions, and a
// bounded slice of raw content as extra context for thin scrapes.
func buildCombinePrompt(recipes []common.ParsedRecipe) string {
	var sb strings.Builder
	sb.WriteString(combinePromptHeader)

	for i, recipe := range recipes {
		sb.WriteString(fmt.Sprintf("Recipe %d: %s\n", i+1, recipe.Title))
		sb.WriteString(fmt.Sprintf("Source: %s\n", recipe.Source))
		if len(recipe.Ingredients) > 0 {
			sb.WriteString("Ingredients:\n")
			sb.WriteString(common.FormatBulleted(recipe.Ingredients))
		}
		if len(recipe.Instructions) > 0 {
			sb.WriteString("Instructions:\n")
			sb.WriteString(common.FormatNumbered(recipe.Instructions))
		}
		if raw := strings.TrimSpace(recipe.RawContent); raw != "" {
			sb.WriteString("Additional context from the original source:\n")
			sb.WriteString(common.TruncateString(raw, maxRawContextChars))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
