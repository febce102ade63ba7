package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selector groups for the scraping heuristics. Recipe sites rarely agree
// on markup, so matching is by class-name substring plus the schema.org
// annotations, tried in order until one strategy yields anything.
const (
	ingredientSelector  = `[class*="ingredient"], [itemprop="recipeIngredient"], [itemprop="ingredients"]`
	instructionSelector = `[class*="instruction"], [class*="step"], [class*="direction"], [itemprop="recipeInstructions"]`
)

// titleStrategy returns a page title or "".
type titleStrategy func(doc *goquery.Document) string

// listStrategy returns a cleaned list of lines, empty when it found nothing.
type listStrategy func(doc *goquery.Document) []string

// titleStrategies is the ordered chain for recipe titles: first heading,
// then the common recipe-title / recipe-name class markers.
var titleStrategies = []titleStrategy{
	func(doc *goquery.Document) string {
		return strings.TrimSpace(doc.Find("h1").First().Text())
	},
	func(doc *goquery.Document) string {
		return strings.TrimSpace(doc.Find(`[class*="recipe-title"]`).First().Text())
	},
	func(doc *goquery.Document) string {
		return strings.TrimSpace(doc.Find(`[class*="recipe-name"]`).First().Text())
	},
}

// ingredientStrategies is the ordered fallback chain for ingredient lines.
var ingredientStrategies = []listStrategy{
	ingredientsFromTopLevelMarkers,
	ingredientsFromLeafMarkers,
	ingredientsFromContainerListItems,
}

// instructionStrategies is the ordered fallback chain for instruction steps.
var instructionStrategies = []listStrategy{
	instructionsFromMarkers,
	instructionsFromParagraphs,
}

func firstNonEmptyTitle(doc *goquery.Document, fallback string) string {
	for _, strategy := range titleStrategies {
		if title := strategy(doc); title != "" {
			return title
		}
	}
	return fallback
}

func firstNonEmptyList(doc *goquery.Document, strategies []listStrategy) []string {
	for _, strategy := range strategies {
		if lines := strategy(doc); len(lines) > 0 {
			return lines
		}
	}
	return nil
}

// ingredientsFromTopLevelMarkers collects marker matches that have no
// marker ancestor, so nested containers are not counted twice.
func ingredientsFromTopLevelMarkers(doc *goquery.Document) []string {
	var lines []string
	seen := map[string]bool{}
	doc.Find(ingredientSelector).Each(func(i int, s *goquery.Selection) {
		if s.ParentsFiltered(ingredientSelector).Length() > 0 {
			return
		}
		appendCleaned(&lines, seen, s.Text())
	})
	return lines
}

// ingredientsFromLeafMarkers collects marker matches that contain no
// nested marker matches, so a container's full text is never taken as
// one giant ingredient.
func ingredientsFromLeafMarkers(doc *goquery.Document) []string {
	var lines []string
	seen := map[string]bool{}
	doc.Find(ingredientSelector).Each(func(i int, s *goquery.Selection) {
		if s.Find(ingredientSelector).Length() > 0 {
			return
		}
		appendCleaned(&lines, seen, s.Text())
	})
	return lines
}

// ingredientsFromContainerListItems walks list items inside an
// ingredient-marked container, skipping nested list items, anything in an
// instruction container, and items that fail the ingredient heuristics.
func ingredientsFromContainerListItems(doc *goquery.Document) []string {
	var lines []string
	seen := map[string]bool{}
	doc.Find(ingredientSelector).Find("li").Each(func(i int, s *goquery.Selection) {
		if s.ParentsFiltered("li").Length() > 0 {
			return
		}
		if s.ParentsFiltered(instructionSelector).Length() > 0 {
			return
		}
		text := cleanItemText(s.Text())
		if !looksLikeIngredient(text) {
			return
		}
		if seen[text] {
			return
		}
		seen[text] = true
		lines = append(lines, text)
	})
	return lines
}

func instructionsFromMarkers(doc *goquery.Document) []string {
	var lines []string
	seen := map[string]bool{}
	doc.Find(instructionSelector).Each(func(i int, s *goquery.Selection) {
		if s.ParentsFiltered(instructionSelector).Length() > 0 {
			return
		}
		// A container of steps contributes each list item, a single
		// step element contributes its own text.
		items := s.Find("li")
		if items.Length() > 0 {
			items.Each(func(j int, item *goquery.Selection) {
				appendCleaned(&lines, seen, item.Text())
			})
			return
		}
		appendCleaned(&lines, seen, s.Text())
	})
	return lines
}

// instructionsFromParagraphs is the last resort: mid-length paragraphs.
// Short snippets are navigation noise, very long blocks are usually
// unrelated article text.
func instructionsFromParagraphs(doc *goquery.Document) []string {
	var lines []string
	seen := map[string]bool{}
	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		text := cleanItemText(s.Text())
		if len(text) <= 50 || len(text) >= 500 {
			return
		}
		if seen[text] {
			return
		}
		seen[text] = true
		lines = append(lines, text)
	})
	return lines
}

var (
	whitespaceRe   = regexp.MustCompile(`\s+`)
	bulletRe       = regexp.MustCompile(`^[\s\p{Zs}]*[•▢◦▪‣*–—-]+[\s\p{Zs}]*`)
	numberedStepRe = regexp.MustCompile(`^\d+\.\s+[A-Z]`)
	urlRe          = regexp.MustCompile(`^(https?://|www\.)`)
)

var navigationWords = []string{
	"sign up", "log in", "subscribe", "newsletter", "privacy policy",
	"terms of use", "advertise", "jump to recipe", "print recipe",
	"pin recipe", "share", "comments", "related recipes",
}

// cleanItemText strips list-bullet glyphs and collapses whitespace.
func cleanItemText(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	text = bulletRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

func appendCleaned(lines *[]string, seen map[string]bool, raw string) {
	text := cleanItemText(raw)
	if text == "" || seen[text] {
		return
	}
	seen[text] = true
	*lines = append(*lines, text)
}

// looksLikeIngredient rejects list items that are clearly navigation or
// instruction text rather than an ingredient line.
func looksLikeIngredient(text string) bool {
	if len(text) <= 3 || len(text) >= 200 {
		return false
	}
	lower := strings.ToLower(text)
	for _, word := range navigationWords {
		if strings.Contains(lower, word) {
			return false
		}
	}
	if strings.HasPrefix(lower, "step") || strings.HasPrefix(lower, "preheat") {
		return false
	}
	if urlRe.MatchString(lower) {
		return false
	}
	if numberedStepRe.MatchString(text) {
		return false
	}
	return true
}
