package spatial

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-intervention-planner/internal/catalog"
	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
)

var equatorial = domain.Region{LatMin: 0, LatMax: 10, LonMin: 10, LonMax: 20}

func ptr(v float64) *float64 { return &v }

func TestOptimize_BudgetInvariant(t *testing.T) {
	o := NewOptimizer(nil, 0, nil)

	for _, budget := range []float64{0, 39_999, 40_000, 100_000, 1_234_567, 1e9} {
		for _, typ := range []string{"biochar", "DAC", "afforestation", "enhanced_weathering"} {
			plan, err := o.Optimize(context.Background(), Request{
				Region:           domain.Region{LatMin: -5, LatMax: 35, LonMin: 0, LonMax: 20},
				InterventionType: typ,
				Budget:           budget,
			})
			require.NoError(t, err)

			sum := 0.0
			for _, s := range plan.Sites {
				sum += s.EstimatedCost
			}
			assert.LessOrEqual(t, sum, budget, "%s at budget %v", typ, budget)
			assert.InDelta(t, sum, plan.TotalCost, 1e-6)
			assert.InDelta(t, budget-sum, plan.RemainingBudget, 1e-6)
		}
	}
}

func TestOptimize_ZeroBudget(t *testing.T) {
	plan, err := NewOptimizer(nil, 0, nil).Optimize(context.Background(), Request{
		Region: equatorial, InterventionType: "biochar", Budget: 0,
	})
	require.NoError(t, err)

	assert.Empty(t, plan.Sites)
	assert.NotNil(t, plan.Sites)
	assert.True(t, plan.Infeasible)
	assert.Equal(t, 441, plan.CandidateCount)
	assert.Zero(t, plan.TotalCost)
	assert.Zero(t, plan.CoverageAreaKm2)
	assert.Zero(t, plan.SpatialEfficiency)
}

func TestGenerate_ScoreIsZoneTimesElevation(t *testing.T) {
	iv, ok := catalog.Default().Lookup("biochar")
	require.True(t, ok)

	sites, err := NewOptimizer(nil, 0, nil).generate(context.Background(), equatorial, 0.5, iv.Site)
	require.NoError(t, err)
	require.Len(t, sites, 441, "lowland tropics should all clear the suitability floor")

	for _, s := range sites {
		want := iv.Site.ZoneSuitabilityFor(s.ClimateZone) * elevationFactor(s.Elevation)
		assert.InDelta(t, want, s.SuitabilityScore, 1e-12, s.ID)
		assert.Greater(t, s.SuitabilityScore, minSuitability, s.ID)
		if s.ClimateZone == ZoneTropical && s.Elevation < 1000 {
			assert.InDelta(t, iv.Site.ZoneSuitabilityFor(ZoneTropical), s.SuitabilityScore, 1e-12, s.ID)
		}
	}
}

func TestOptimize_SelectsMostEfficientFirst(t *testing.T) {
	plan, err := NewOptimizer(nil, 0, nil).Optimize(context.Background(), Request{
		Region: domain.Region{LatMin: 5, LatMax: 15, LonMin: 0, LonMax: 2}, InterventionType: "biochar", Budget: 100_000,
	})
	require.NoError(t, err)

	require.Len(t, plan.Sites, 2)
	for _, s := range plan.Sites {
		assert.Equal(t, ZoneTropical, s.ClimateZone)
		assert.InDelta(t, 40_000, s.EstimatedCost, 1e-9)
		assert.InDelta(t, 120, s.EstimatedImpact, 1e-9)
		assert.Greater(t, s.SuitabilityScore, 0.5)
	}
	assert.InDelta(t, 80_000, plan.TotalCost, 1e-9)
	assert.InDelta(t, 20_000, plan.RemainingBudget, 1e-9)
	assert.InDelta(t, 200, plan.CoverageAreaKm2, 1e-9)
	assert.InDelta(t, 240.0/200, plan.SpatialEfficiency, 1e-9)
	assert.InDelta(t, HaversineKm(plan.Sites[0].Geo, plan.Sites[1].Geo), plan.AverageDistanceKm, 1e-9)
	assert.False(t, plan.Infeasible)
}

func TestSelectSites_SkipsUnaffordable(t *testing.T) {
	sites := []domain.CandidateSite{
		{ID: "c", EstimatedCost: 10, Efficiency: 1},
		{ID: "a", EstimatedCost: 100, Efficiency: 3},
		{ID: "b", EstimatedCost: 50, Efficiency: 2},
		{ID: "d", EstimatedCost: 10, Efficiency: 1},
	}

	got := selectSites(sites, 70)

	ids := make([]string, len(got))
	for i, s := range got {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"b", "c", "d"}, ids)
}

func TestOptimize_Constraints(t *testing.T) {
	o := NewOptimizer(nil, 0, nil)
	base := Request{Region: equatorial, InterventionType: "biochar", Budget: 1e9}

	unconstrained, err := o.Optimize(context.Background(), base)
	require.NoError(t, err)

	t.Run("max elevation", func(t *testing.T) {
		req := base
		req.Constraints.MaxElevation = ptr(100)
		plan, err := o.Optimize(context.Background(), req)
		require.NoError(t, err)

		assert.Less(t, plan.ConstrainedCount, unconstrained.ConstrainedCount)
		for _, s := range plan.Sites {
			assert.LessOrEqual(t, s.Elevation, 100.0)
		}
	})

	t.Run("land cover excludes everything", func(t *testing.T) {
		req := base
		req.Constraints.AllowedLandCovers = []string{"tundra"}
		plan, err := o.Optimize(context.Background(), req)
		require.NoError(t, err)

		assert.Zero(t, plan.ConstrainedCount)
		assert.Empty(t, plan.Sites)
		assert.False(t, plan.Infeasible, "no candidates is not a budget problem")
	})

	t.Run("min distance from existing deployments", func(t *testing.T) {
		req := base
		existing := domain.Geo{Lat: 5, Lon: 15}
		req.Constraints.MinDistanceKm = ptr(200)
		req.Constraints.ExistingDeployments = []domain.Geo{existing}
		plan, err := o.Optimize(context.Background(), req)
		require.NoError(t, err)

		assert.Less(t, plan.ConstrainedCount, unconstrained.ConstrainedCount)
		require.NotEmpty(t, plan.Sites)
		for _, s := range plan.Sites {
			assert.GreaterOrEqual(t, HaversineKm(s.Geo, existing), 200.0)
		}
	})
}

func TestOptimize_Errors(t *testing.T) {
	o := NewOptimizer(nil, 0, nil)

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"unknown type", Request{Region: equatorial, InterventionType: "cloud_seeding", Budget: 1}, domain.ErrUnknownCategory},
		{"inverted bounds", Request{Region: domain.Region{LatMin: 10, LatMax: 0, LonMax: 1}, InterventionType: "DAC"}, domain.ErrInvalidRegion},
		{"off the globe", Request{Region: domain.Region{LatMin: 80, LatMax: 95, LonMax: 1}, InterventionType: "DAC"}, domain.ErrInvalidRegion},
		{"grid too large", Request{Region: domain.Region{LatMin: -90, LatMax: 90, LonMin: -180, LonMax: 180}, InterventionType: "DAC", GridSpacing: 0.1}, domain.ErrInvalidRegion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Optimize(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOptimize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewOptimizer(nil, 0, nil).Optimize(ctx, Request{Region: equatorial, InterventionType: "DAC", Budget: 1})
	require.ErrorIs(t, err, context.Canceled)
}

func TestOptimize_Cache(t *testing.T) {
	clk := clockwork.NewFakeClock()
	o := NewOptimizer(nil, 0, NewPlanCache(4, time.Minute, clk))
	req := Request{Region: equatorial, InterventionType: "afforestation", Budget: 500_000}

	first, err := o.Optimize(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := o.Optimize(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Sites, second.Sites)

	clk.Advance(2 * time.Minute)
	third, err := o.Optimize(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, third.CacheHit)
}

func TestOptimize_Deterministic(t *testing.T) {
	req := Request{Region: domain.Region{LatMin: 20, LatMax: 45, LonMin: -110, LonMax: -90}, InterventionType: "DAC", Budget: 3_000_000}

	a, err := NewOptimizer(nil, 0, nil).Optimize(context.Background(), req)
	require.NoError(t, err)
	b, err := NewOptimizer(nil, 0, nil).Optimize(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEmpty(t, a.ID)
}
