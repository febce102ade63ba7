package guide

import (
	"strings"
	"sync"

	"meal-prep-planner/internal/pkg/common"

	"github.com/google/uuid"
)

// TriggerGuard is a check-and-set-once cell. Two call sites race to kick
// off ingredient consolidation (right after metadata, and after the
// stream completes); whichever calls TryFire first wins and the other
// becomes a no-op. The check and the set happen under one lock so the
// guard cannot double-fire.
type TriggerGuard struct {
	mu    sync.Mutex
	fired bool
}

// TryFire returns true exactly once.
func (g *TriggerGuard) TryFire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fired {
		return false
	}
	g.fired = true
	return true
}

// Fired reports whether the guard has been consumed.
func (g *TriggerGuard) Fired() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fired
}

// Session is the orchestration-scoped state for one combine request. It
// lives exactly as long as the request and is never shared across
// requests.
type Session struct {
	ID string

	mu      sync.Mutex
	guide   strings.Builder
	recipes []common.ParsedRecipe

	trigger TriggerGuard
}

// NewSession creates a session with a fresh ID.
func NewSession() *Session {
	return &Session{
		ID: uuid.New().String(),
	}
}

// SetRecipes stores the parsed recipes. Called once when parsing finishes.
func (s *Session) SetRecipes(recipes []common.ParsedRecipe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipes = recipes
}

// Recipes returns the parsed recipes of this session.
func (s *Session) Recipes() []common.ParsedRecipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recipes
}

// Append adds one streamed chunk to the accumulated guide text.
func (s *Session) Append(chunk string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guide.WriteString(chunk)
}

// GuideText returns the guide text accumulated so far.
func (s *Session) GuideText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guide.String()
}
