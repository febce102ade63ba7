package common

import (
	"fmt"
	"strings"
)

// SourceKind distinguishes how a submitted recipe should be read.
type SourceKind string

const (
	SourceKindURL  SourceKind = "url"
	SourceKindText SourceKind = "text"
)

// ManualSourceLabel marks recipes that came in as pasted text rather than a URL.
const ManualSourceLabel = "manual input"

// DefaultURLTitle is used when no title can be recovered from a page.
const DefaultURLTitle = "Untitled Recipe"

// DefaultTextTitle is used for pasted-text recipes without a recoverable title.
const DefaultTextTitle = "Manual Recipe"

// MaxListEntries caps the ingredient and instruction lists of a parsed recipe.
const MaxListEntries = 50

// RecipeSource is one user-submitted recipe, either a URL or free text.
type RecipeSource struct {
	Kind    SourceKind `json:"kind" binding:"required"`
	Content string     `json:"content" binding:"required"`
}

// ParsedRecipe is the normalized form every source is reduced to.
// Ingredients and Instructions may be empty but are never nil; each entry
// is a single free-text line, quantities and units included. RawContent
// keeps a truncated snapshot of the original text so downstream generative
// stages always have something to work with.
type ParsedRecipe struct {
	Title        string   `json:"title"`
	Source       string   `json:"source"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	RawContent   string   `json:"rawContent"`
}

// RecipeMetadata is the subset of a parsed recipe sent in the metadata
// stream event. Instructions and raw content are withheld there.
type RecipeMetadata struct {
	Title       string   `json:"title"`
	Source      string   `json:"source"`
	Ingredients []string `json:"ingredients"`
}

// Metadata returns the stream-event view of the recipe.
func (r *ParsedRecipe) Metadata() RecipeMetadata {
	return RecipeMetadata{
		Title:       r.Title,
		Source:      r.Source,
		Ingredients: r.Ingredients,
	}
}

// ConsolidatedIngredient is one deduplicated shopping-list entry together
// with the titles of the recipes that asked for it.
type ConsolidatedIngredient struct {
	Ingredient string   `json:"ingredient"`
	Recipes    []string `json:"recipes"`
}

// Truncate returns at most n entries of list, never nil.
func Truncate(list []string, n int) []string {
	if list == nil {
		return []string{}
	}
	if len(list) > n {
		return list[:n]
	}
	return list
}

// TruncateString returns at most n bytes of s.
func TruncateString(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// FormatBulleted renders lines as a "- " bulleted block.
func FormatBulleted(lines []string) string {
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(fmt.Sprintf("- %s\n", line))
	}
	return sb.String()
}

// FormatNumbered renders lines as a "1. " numbered block.
func FormatNumbered(lines []string) string {
	var sb strings.Builder
	for i, line := range lines {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, line))
	}
	return sb.String()
}
