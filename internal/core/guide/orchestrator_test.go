package guide

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"meal-prep-planner/internal/infrastructure/config"
	"meal-prep-planner/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	chunks    []string
	streamErr error
	response  string
	reqErr    error
}

func (f *fakeGenerator) ProcessRequest(ctx context.Context, prompt string) (string, error) {
	return f.response, f.reqErr
}

func (f *fakeGenerator) ProcessStream(ctx context.Context, prompt string, fn func(chunk string) error) error {
	for _, chunk := range f.chunks {
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return f.streamErr
}

type fakeParser struct {
	err error
}

func (f *fakeParser) Extract(ctx context.Context, src common.RecipeSource) (*common.ParsedRecipe, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &common.ParsedRecipe{
		Title:       "Recipe from " + src.Content,
		Source:      src.Content,
		Ingredients: []string{"1 cup rice"},
	}, nil
}

type countingConsolidator struct {
	calls int64
}

func (c *countingConsolidator) Consolidate(ctx context.Context, recipes []common.ParsedRecipe) []common.ConsolidatedIngredient {
	atomic.AddInt64(&c.calls, 1)
	return nil
}

func (c *countingConsolidator) count() int64 {
	return atomic.LoadInt64(&c.calls)
}

type fakeSaver struct {
	filename string
	err      error
	saved    string
}

func (f *fakeSaver) Save(guideText string, recipes []common.ParsedRecipe) (string, error) {
	f.saved = guideText
	return f.filename, f.err
}

// recordingEmitter logs every event in arrival order.
type recordingEmitter struct {
	mu     sync.Mutex
	events []string
}

func (e *recordingEmitter) record(event string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *recordingEmitter) Metadata(recipes []common.RecipeMetadata) error {
	e.record(fmt.Sprintf("metadata:%d", len(recipes)))
	return nil
}

func (e *recordingEmitter) Chunk(chunk string) error {
	e.record("chunk:" + chunk)
	return nil
}

func (e *recordingEmitter) Done(savedFilename string) error {
	e.record("done:" + savedFilename)
	return nil
}

func (e *recordingEmitter) Error(message string) error {
	e.record("error:" + message)
	return nil
}

func (e *recordingEmitter) recorded() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.events...)
}

func guideTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Guides.Enabled = true
	return cfg
}

func waitForConsolidation(t *testing.T, c *countingConsolidator) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.count() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestStreamEventOrder(t *testing.T) {
	gen := &fakeGenerator{chunks: []string{"Day 1. ", "Day 2."}}
	cons := &countingConsolidator{}
	saver := &fakeSaver{filename: "guide.txt"}
	orch := NewOrchestrator(guideTestConfig(), gen, &fakeParser{}, cons, saver)
	emitter := &recordingEmitter{}

	err := orch.Stream(context.Background(), []common.RecipeSource{
		{Kind: common.SourceKindText, Content: "a"},
		{Kind: common.SourceKindText, Content: "b"},
	}, emitter)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"metadata:2",
		"chunk:Day 1. ",
		"chunk:Day 2.",
		"done:guide.txt",
	}, emitter.recorded())
	assert.Equal(t, "Day 1. Day 2.", saver.saved)
	waitForConsolidation(t, cons)
}

func TestStreamConsolidatesExactlyOnce(t *testing.T) {
	gen := &fakeGenerator{chunks: []string{"text"}}
	cons := &countingConsolidator{}
	orch := NewOrchestrator(guideTestConfig(), gen, &fakeParser{}, cons, nil)
	emitter := &recordingEmitter{}

	err := orch.Stream(context.Background(), []common.RecipeSource{
		{Kind: common.SourceKindText, Content: "a"},
	}, emitter)

	require.NoError(t, err)
	// Both trigger points run on this path; the guard collapses them to one.
	waitForConsolidation(t, cons)
	assert.Equal(t, int64(1), cons.count())
}

func TestStreamParseFailureEmitsNothing(t *testing.T) {
	parseErr := common.NewSourceUnreachable("http://dead.example", errors.New("refused"))
	orch := NewOrchestrator(guideTestConfig(), &fakeGenerator{}, &fakeParser{err: parseErr}, &countingConsolidator{}, nil)
	emitter := &recordingEmitter{}

	err := orch.Stream(context.Background(), []common.RecipeSource{
		{Kind: common.SourceKindURL, Content: "http://dead.example"},
	}, emitter)

	require.Error(t, err)
	assert.Equal(t, common.ErrCodeSourceUnreachable, common.CodeOf(err))
	assert.Empty(t, emitter.recorded())
}

func TestStreamGenerationFailureBecomesErrorEvent(t *testing.T) {
	gen := &fakeGenerator{streamErr: errors.New("model exploded")}
	cons := &countingConsolidator{}
	orch := NewOrchestrator(guideTestConfig(), gen, &fakeParser{}, cons, nil)
	emitter := &recordingEmitter{}

	err := orch.Stream(context.Background(), []common.RecipeSource{
		{Kind: common.SourceKindText, Content: "a"},
	}, emitter)

	// The stream already carried the metadata event, so the failure is
	// terminal on the stream, not an error return.
	require.NoError(t, err)
	events := emitter.recorded()
	require.Len(t, events, 2)
	assert.Equal(t, "metadata:1", events[0])
	assert.Contains(t, events[1], "error:")
	waitForConsolidation(t, cons)
}

func TestStreamSaveFailureStillCompletes(t *testing.T) {
	gen := &fakeGenerator{chunks: []string{"guide"}}
	saver := &fakeSaver{err: errors.New("disk full")}
	orch := NewOrchestrator(guideTestConfig(), gen, &fakeParser{}, &countingConsolidator{}, saver)
	emitter := &recordingEmitter{}

	err := orch.Stream(context.Background(), []common.RecipeSource{
		{Kind: common.SourceKindText, Content: "a"},
	}, emitter)

	require.NoError(t, err)
	events := emitter.recorded()
	assert.Equal(t, "done:", events[len(events)-1])
}

func TestStreamPersistenceDisabled(t *testing.T) {
	gen := &fakeGenerator{chunks: []string{"guide"}}
	cfg := &config.Config{} // Guides.Enabled stays false
	saver := &fakeSaver{filename: "should-not-appear.txt"}
	orch := NewOrchestrator(cfg, gen, &fakeParser{}, &countingConsolidator{}, saver)
	emitter := &recordingEmitter{}

	err := orch.Stream(context.Background(), []common.RecipeSource{
		{Kind: common.SourceKindText, Content: "a"},
	}, emitter)

	require.NoError(t, err)
	events := emitter.recorded()
	assert.Equal(t, "done:", events[len(events)-1])
	assert.Empty(t, saver.saved)
}

func TestCombineReturnsGuideAndMetadata(t *testing.T) {
	gen := &fakeGenerator{response: "Full meal prep guide."}
	cons := &countingConsolidator{}
	saver := &fakeSaver{filename: "guide.txt"}
	orch := NewOrchestrator(guideTestConfig(), gen, &fakeParser{}, cons, saver)

	result, err := orch.Combine(context.Background(), []common.RecipeSource{
		{Kind: common.SourceKindText, Content: "a"},
		{Kind: common.SourceKindText, Content: "b"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Full meal prep guide.", result.MealPrepGuide)
	assert.Equal(t, "guide.txt", result.SavedFilename)
	require.Len(t, result.Recipes, 2)
	assert.Equal(t, "Recipe from a", result.Recipes[0].Title)
	assert.Equal(t, []string{"1 cup rice"}, result.Recipes[0].Ingredients)
	waitForConsolidation(t, cons)
}

func TestCombineGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{reqErr: errors.New("model exploded")}
	orch := NewOrchestrator(guideTestConfig(), gen, &fakeParser{}, &countingConsolidator{}, nil)

	_, err := orch.Combine(context.Background(), []common.RecipeSource{
		{Kind: common.SourceKindText, Content: "a"},
	})

	require.Error(t, err)
	assert.Equal(t, common.ErrCodeAIServiceError, common.CodeOf(err))
}

func TestCombineParseFailure(t *testing.T) {
	parseErr := common.NewInvalidInput("bad source")
	orch := NewOrchestrator(guideTestConfig(), &fakeGenerator{}, &fakeParser{err: parseErr}, &countingConsolidator{}, nil)

	_, err := orch.Combine(context.Background(), []common.RecipeSource{
		{Kind: common.SourceKindText, Content: ""},
	})

	require.Error(t, err)
	assert.Equal(t, common.ErrCodeInvalidInput, common.CodeOf(err))
}
