package spatial

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
)

func plan(id string) domain.DeploymentPlan {
	return domain.DeploymentPlan{ID: id, Sites: []domain.CandidateSite{{ID: id + "-site"}}}
}

func TestPlanCache_BasicGetPut(t *testing.T) {
	c := NewPlanCache(3, time.Minute, clockwork.NewFakeClock())

	c.Put("a", plan("A"))
	c.Put("b", plan("B"))

	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", got.ID)

	_, ok = c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestPlanCache_Eviction(t *testing.T) {
	c := NewPlanCache(2, time.Minute, clockwork.NewFakeClock())

	c.Put("a", plan("A"))
	c.Put("b", plan("B"))
	c.Put("c", plan("C")) // evicts "a"

	_, ok := c.Get("a")
	assert.False(t, ok, "a should have been evicted")

	got, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", got.ID)

	got, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", got.ID)
}

func TestPlanCache_AccessPromotesEntry(t *testing.T) {
	c := NewPlanCache(2, time.Minute, clockwork.NewFakeClock())

	c.Put("a", plan("A"))
	c.Put("b", plan("B"))
	c.Get("a")
	c.Put("c", plan("C"))

	_, ok := c.Get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.Get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestPlanCache_UpdateExisting(t *testing.T) {
	c := NewPlanCache(2, time.Minute, clockwork.NewFakeClock())

	c.Put("a", plan("A1"))
	c.Put("a", plan("A2"))

	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", got.ID)
	assert.Equal(t, 1, c.Len())
}

func TestPlanCache_Expiry(t *testing.T) {
	clk := clockwork.NewFakeClock()
	c := NewPlanCache(2, time.Minute, clk)

	c.Put("a", plan("A"))
	clk.Advance(59 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	clk.Advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry expires exactly at its TTL")
	assert.Zero(t, c.Len())
}

func TestPlanCache_ReturnsCopies(t *testing.T) {
	c := NewPlanCache(2, time.Minute, clockwork.NewFakeClock())
	c.Put("a", plan("A"))

	got, _ := c.Get("a")
	got.Sites[0].ID = "mutated"

	again, _ := c.Get("a")
	assert.Equal(t, "A-site", again.Sites[0].ID)
}

func TestPlanCache_Disabled(t *testing.T) {
	for _, c := range []*PlanCache{NewPlanCache(0, time.Minute, nil), NewPlanCache(4, 0, nil)} {
		assert.Nil(t, c)
		c.Put("a", plan("A"))
		_, ok := c.Get("a")
		assert.False(t, ok)
		assert.Zero(t, c.Len())
	}
}

func TestCacheKey(t *testing.T) {
	base := Request{Region: equatorial, InterventionType: "DAC", Budget: 10}

	withCovers := base
	withCovers.Constraints.AllowedLandCovers = []string{"b", "a"}
	reordered := base
	reordered.Constraints.AllowedLandCovers = []string{"a", "b"}
	withBudget := base
	withBudget.Budget = 11

	assert.Equal(t, cacheKey(withCovers, 0.5), cacheKey(reordered, 0.5))
	assert.NotEqual(t, cacheKey(base, 0.5), cacheKey(withBudget, 0.5))
	assert.NotEqual(t, cacheKey(base, 0.5), cacheKey(base, 0.25))
}
