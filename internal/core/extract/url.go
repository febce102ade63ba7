package extract

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	aiservice "meal-prep-planner/internal/core/ai/service"
	"meal-prep-planner/internal/pkg/common"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// extractURL scrapes one recipe page. Fetch failures are hard errors;
// everything after the fetch degrades layer by layer.
func (s *Service) extractURL(ctx context.Context, pageURL string) (*common.ParsedRecipe, error) {
	body, err := s.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, common.NewSourceUnreachable(pageURL, err)
	}

	// Scripts and styles only pollute the text heuristics.
	doc.Find("script,noscript,style").Each(func(i int, sel *goquery.Selection) {
		sel.Remove()
	})

	title := firstNonEmptyTitle(doc, common.DefaultURLTitle)
	ingredients := firstNonEmptyList(doc, ingredientStrategies)
	instructions := firstNonEmptyList(doc, instructionStrategies)
	bodyText := pageBodyText(body, doc, pageURL)

	// Generative fallback: only when scraping left a gap, and only when
	// there is enough text to be worth a model call. A failure here never
	// fails the extraction.
	if len(ingredients) == 0 || len(instructions) == 0 {
		fallbackText := common.TruncateString(bodyText, maxFallbackPromptChars)
		if len(fallbackText) > minFallbackPromptChars {
			result := s.ai.ExtractRecipe(ctx, fallbackText)
			switch result.Status {
			case aiservice.ExtractionApplied:
				if title == common.DefaultURLTitle && result.Title != "" {
					title = result.Title
				}
				if len(ingredients) == 0 && len(result.Ingredients) > 0 {
					ingredients = result.Ingredients
				}
				if len(instructions) == 0 && len(result.Instructions) > 0 {
					instructions = result.Instructions
				}
			default:
				common.LogWarn("Generative page extraction failed, keeping scraped fields",
					zap.String("url", pageURL),
					zap.Error(result.Err),
				)
			}
		}
	}

	return &common.ParsedRecipe{
		Title:        title,
		Source:       pageURL,
		Ingredients:  common.Truncate(ingredients, common.MaxListEntries),
		Instructions: common.Truncate(instructions, common.MaxListEntries),
		RawContent:   common.TruncateString(bodyText, maxRawContentChars),
	}, nil
}

// fetchPage downloads the page and decodes it to UTF-8.
func (s *Service) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Get(pageURL)
	if err != nil {
		return nil, common.NewSourceUnreachable(pageURL, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, common.NewSourceUnreachable(pageURL,
			&fetchStatusError{status: resp.StatusCode(), summary: resp.Status()})
	}

	data := resp.Body()
	if int64(len(data)) > s.config.Extract.MaxBodyBytes {
		data = data[:s.config.Extract.MaxBodyBytes]
	}

	enc, _, _ := charset.DetermineEncoding(data, resp.Header().Get("Content-Type"))
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		// Pages lying about their charset still usually parse as-is.
		return data, nil
	}
	return decoded, nil
}

type fetchStatusError struct {
	status  int
	summary string
}

func (e *fetchStatusError) Error() string {
	return "unexpected response status " + e.summary
}

// pageBodyText extracts readable body text, preferring the readability
// article extraction and falling back to the raw document text.
func pageBodyText(body []byte, doc *goquery.Document, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err == nil {
		article, rerr := readability.FromReader(bytes.NewReader(body), parsed)
		if rerr == nil {
			if text := strings.TrimSpace(article.TextContent); text != "" {
				return whitespaceRe.ReplaceAllString(text, " ")
			}
		}
	}

	text := strings.TrimSpace(doc.Find("body").Text())
	return whitespaceRe.ReplaceAllString(text, " ")
}
