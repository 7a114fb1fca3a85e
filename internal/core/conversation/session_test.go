package conversation

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-assistant/internal/infrastructure/config"
	"recipe-assistant/internal/pkg/common"
)

func TestSessionsExpire(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	m := NewSessions(config.SessionConfig{TTL: 10 * time.Minute, MaxSessions: 5})
	m.now = func() time.Time { return now }

	s := m.Create()
	now = now.Add(5 * time.Minute)
	_, ok := m.Get(s.ID)
	require.True(t, ok)

	// Get 會延長有效期
	now = now.Add(8 * time.Minute)
	_, ok = m.Get(s.ID)
	require.True(t, ok)

	now = now.Add(11 * time.Minute)
	_, ok = m.Get(s.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestSessionsEvictLeastRecentlyUsed(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	m := NewSessions(config.SessionConfig{TTL: time.Hour, MaxSessions: 2})
	m.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}

	a := m.Create()
	b := m.Create()
	_, ok := m.Get(a.ID)
	require.True(t, ok)

	c := m.Create()
	assert.Equal(t, 2, m.Len())
	_, ok = m.Get(b.ID)
	assert.False(t, ok)
	_, ok = m.Get(a.ID)
	assert.True(t, ok)
	_, ok = m.Get(c.ID)
	assert.True(t, ok)
}

func TestSessionsCleanupAndEnd(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	m := NewSessions(config.SessionConfig{TTL: time.Minute, MaxSessions: 10})
	m.now = func() time.Time { return now }

	old := m.Create()
	now = now.Add(30 * time.Second)
	fresh := m.Create()
	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, m.Cleanup())
	_, ok := m.Get(old.ID)
	assert.False(t, ok)

	assert.True(t, m.End(fresh.ID))
	assert.False(t, m.End(fresh.ID))
	assert.Equal(t, 0, m.Len())
}

func TestSessionsRunStopsWithContext(t *testing.T) {
	m := NewSessions(config.SessionConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestTurnsInOneSessionAreSerialized(t *testing.T) {
	f := newFixture(t, "", nil, nil)
	first := f.assistant.Handle(context.Background(), "", "help")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.assistant.Handle(context.Background(), first.SessionID, "show me my recent recipes")
		}()
	}
	wg.Wait()

	state, ok := f.assistant.State(first.SessionID)
	require.True(t, ok)
	assert.Equal(t, 11, state.Turns)
}

func TestRenderRecipe(t *testing.T) {
	r := common.Recipe{
		Title:    "Pancakes",
		Servings: 2,
		Ingredients: []common.Ingredient{
			{Name: "flour", Amount: common.FloatPtr(1.5), Unit: "cup"},
			{Name: "salt", Notes: "to taste"},
		},
		Instructions: []string{"Mix.", "Fry."},
		Nutrition:    &common.NutritionInfo{Calories: common.FloatPtr(310), Protein: "8g"},
	}
	text := RenderRecipe(&r)
	lines := strings.Split(text, "\n")
	assert.Equal(t, "Pancakes", lines[0])
	assert.Contains(t, text, "Serves 2")
	assert.Contains(t, text, "- 1 1/2 cups flour")
	assert.Contains(t, text, "1. Mix.\n2. Fry.")
	assert.Contains(t, text, "- Calories: 310")
	assert.Contains(t, text, "- Protein: 8g")
}
