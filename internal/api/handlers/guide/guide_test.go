package guide

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"meal-prep-planner/internal/core/consolidate"
	guideService "meal-prep-planner/internal/core/guide"
	"meal-prep-planner/internal/infrastructure/config"
	"meal-prep-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	chunks   []string
	response string
	err      error
}

func (f *fakeGenerator) ProcessRequest(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

func (f *fakeGenerator) ProcessStream(ctx context.Context, prompt string, fn func(chunk string) error) error {
	if f.err != nil {
		return f.err
	}
	for _, chunk := range f.chunks {
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return nil
}

type fakeExtractor struct {
	err error
}

func (f *fakeExtractor) Extract(ctx context.Context, src common.RecipeSource) (*common.ParsedRecipe, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &common.ParsedRecipe{
		Title:       "Fried Rice",
		Source:      common.ManualSourceLabel,
		Ingredients: []string{"2 cups rice", "1 egg"},
	}, nil
}

func setupTestRouter(gen *fakeGenerator, ext *fakeExtractor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}

	orch := guideService.NewOrchestrator(cfg, gen, ext, consolidate.NewService(cfg, nil), nil)
	handler := NewHandler(orch)

	router := gin.New()
	router.POST("/api/v1/guide/stream", handler.HandleStream)
	router.POST("/api/v1/guide", handler.HandleCombine)
	router.POST("/api/v1/ingredients/consolidate", handler.HandleConsolidate)
	return router
}

func post(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleStreamEmitsSSEEvents(t *testing.T) {
	router := setupTestRouter(&fakeGenerator{chunks: []string{"Day 1: ", "cook."}}, &fakeExtractor{})

	w := post(router, "/api/v1/guide/stream", `{"recipes":[{"kind":"text","content":"my recipe"}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "event: metadata")
	assert.Contains(t, body, `"Fried Rice"`)
	assert.Contains(t, body, "event: chunk")
	assert.Contains(t, body, `"Day 1: "`)
	assert.Contains(t, body, "event: done")
	assert.NotContains(t, body, "event: error")

	// Metadata must precede the first chunk, and done must come last.
	assert.Less(t, strings.Index(body, "event: metadata"), strings.Index(body, "event: chunk"))
	assert.Less(t, strings.Index(body, "event: chunk"), strings.Index(body, "event: done"))
}

func TestHandleStreamGenerationFailureIsTerminalEvent(t *testing.T) {
	router := setupTestRouter(&fakeGenerator{err: errors.New("model exploded")}, &fakeExtractor{})

	w := post(router, "/api/v1/guide/stream", `{"recipes":[{"kind":"text","content":"my recipe"}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "event: metadata")
	assert.Contains(t, body, "event: error")
	assert.NotContains(t, body, "event: done")
}

func TestHandleStreamParseFailureIsJSONError(t *testing.T) {
	ext := &fakeExtractor{err: common.NewSourceUnreachable("http://dead.example", errors.New("refused"))}
	router := setupTestRouter(&fakeGenerator{}, ext)

	w := post(router, "/api/v1/guide/stream", `{"recipes":[{"kind":"url","content":"http://dead.example"}]}`)

	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Contains(t, w.Body.String(), common.ErrCodeSourceUnreachable)
}

func TestHandleStreamValidation(t *testing.T) {
	router := setupTestRouter(&fakeGenerator{}, &fakeExtractor{})

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"recipes":`},
		{"missing recipes", `{}`},
		{"empty recipes", `{"recipes":[]}`},
		{"unknown kind", `{"recipes":[{"kind":"pdf","content":"x"}]}`},
		{"blank content", `{"recipes":[{"kind":"text","content":"   "}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := post(router, "/api/v1/guide/stream", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), common.ErrCodeInvalidInput)
		})
	}
}

func TestHandleCombine(t *testing.T) {
	router := setupTestRouter(&fakeGenerator{response: "Full guide."}, &fakeExtractor{})

	w := post(router, "/api/v1/guide", `{"recipes":[{"kind":"text","content":"my recipe"}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"mealPrepGuide":"Full guide."`)
	assert.Contains(t, body, `"Fried Rice"`)
	assert.NotContains(t, body, "savedFilename", "persistence disabled leaves the field out")
}

func TestHandleCombineGenerationFailure(t *testing.T) {
	router := setupTestRouter(&fakeGenerator{err: errors.New("model exploded")}, &fakeExtractor{})

	w := post(router, "/api/v1/guide", `{"recipes":[{"kind":"text","content":"my recipe"}]}`)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), common.ErrCodeAIServiceError)
}

func TestHandleConsolidate(t *testing.T) {
	router := setupTestRouter(&fakeGenerator{}, &fakeExtractor{})

	w := post(router, "/api/v1/ingredients/consolidate", `{
		"recipes": [
			{"title": "Stir Fry", "ingredients": ["2 tbsp olive oil", "1 tsp salt"]},
			{"title": "Salad", "ingredients": ["1 tsp salt"]}
		]
	}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "consolidatedIngredients")
	assert.Contains(t, body, `"1 tsp salt"`)
	// One entry for the duplicated salt, credited to both recipes.
	assert.Equal(t, 1, strings.Count(body, `"1 tsp salt"`))
	assert.Contains(t, body, `"Stir Fry"`)
	assert.Contains(t, body, `"Salad"`)
}

func TestHandleConsolidateValidation(t *testing.T) {
	router := setupTestRouter(&fakeGenerator{}, &fakeExtractor{})

	w := post(router, "/api/v1/ingredients/consolidate", `{"recipes":[]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), common.ErrCodeInvalidInput)
}
