package guide

import (
	"sync"
	"sync/atomic"
	"testing"

	"meal-prep-planner/internal/pkg/common"

	"github.com/stretchr/testify/assert"
)

func TestTriggerGuardFiresOnce(t *testing.T) {
	var guard TriggerGuard

	assert.False(t, guard.Fired())
	assert.True(t, guard.TryFire())
	assert.False(t, guard.TryFire())
	assert.True(t, guard.Fired())
}

func TestTriggerGuardConcurrentRace(t *testing.T) {
	var guard TriggerGuard
	var wins int64
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if guard.TryFire() {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins)
	assert.True(t, guard.Fired())
}

func TestSessionAccumulatesGuideText(t *testing.T) {
	session := NewSession()

	assert.NotEmpty(t, session.ID)
	assert.Empty(t, session.GuideText())

	session.Append("Day 1: ")
	session.Append("cook the grains.")
	assert.Equal(t, "Day 1: cook the grains.", session.GuideText())
}

func TestSessionRecipes(t *testing.T) {
	session := NewSession()
	recipes := []common.ParsedRecipe{
		{Title: "Lentil Soup", Source: "manual input"},
	}

	session.SetRecipes(recipes)
	assert.Equal(t, recipes, session.Recipes())
}

func TestSessionIDsAreUnique(t *testing.T) {
	assert.NotEqual(t, NewSession().ID, NewSession().ID)
}
