package suitability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
	"github.com/couchcryptid/climate-intervention-planner/internal/features"
	"github.com/couchcryptid/climate-intervention-planner/internal/ml"
)

func trainedBundle(t *testing.T) *ml.Bundle {
	t.Helper()
	opts := ml.DefaultTrainOptions()
	opts.Trees = 25
	opts.Boosters = []ml.BoosterParams{{Name: "deep", Estimators: 20, MaxDepth: 3, LearningRate: 0.1, Seed: 1}}
	b, err := ml.Train(context.Background(), features.NewCodec(nil), ml.SyntheticSamples(7, 300), opts)
	require.NoError(t, err)
	return b
}

func observation(co2, biomass, anomaly float64) domain.ClimateObservation {
	obs := domain.NewObservation(10, 20)
	obs.CO2Concentration = co2
	obs.BiomassDensity = biomass
	obs.TemperatureAnomaly = anomaly
	return obs
}

func TestRuleScore(t *testing.T) {
	tests := []struct {
		name     string
		obs      domain.ClimateObservation
		want     float64
		wantTier domain.Tier
	}{
		{name: "scenario high", obs: observation(440, 85, 2.2), want: 0.92, wantTier: domain.TierHigh},
		{name: "scenario low", obs: observation(408, 15, 0.2), want: 0.064 + 0.075 + 0.02, wantTier: domain.TierLow},
		{name: "medium boundary", obs: observation(425, 40, 0), want: 0.4, wantTier: domain.TierMedium},
		{name: "below baseline clips to zero", obs: observation(350, 0, -1), want: 0, wantTier: domain.TierLow},
		{name: "saturated", obs: observation(1000, 500, 10), want: 1, wantTier: domain.TierHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := RuleScore(tt.obs)
			assert.InDelta(t, tt.want, score, 1e-9)
			tier, _ := RuleTier(score)
			assert.Equal(t, tt.wantTier, tier)
		})
	}
}

func TestAssess_RuleMode(t *testing.T) {
	a := NewAssessor(nil, nil, nil)

	tests := []struct {
		name           string
		obs            domain.ClimateObservation
		wantTier       domain.Tier
		wantConfidence float64
	}{
		{name: "scenario 1", obs: observation(440, 85, 2.2), wantTier: domain.TierHigh, wantConfidence: 0.9},
		{name: "scenario 2", obs: observation(408, 15, 0.2), wantTier: domain.TierLow, wantConfidence: 0.6},
		{name: "medium", obs: observation(420, 45, 1.0), wantTier: domain.TierMedium, wantConfidence: 0.7},
		{name: "all defaults", obs: domain.NewObservation(0, 0), wantTier: domain.TierLow, wantConfidence: 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Assess(tt.obs)
			require.NoError(t, err)

			assert.Equal(t, tt.wantTier, got.Tier)
			assert.InDelta(t, tt.wantConfidence, got.Confidence, 1e-12)
			assert.Equal(t, domain.MethodRuleBased, got.Method)
			assert.True(t, got.FallbackUsed)
			assert.InDelta(t, tt.obs.CO2Concentration, got.Factors.CO2Level, 1e-12)
		})
	}
}

func TestAssess_TrainedScenarios(t *testing.T) {
	a := NewAssessor(nil, trainedBundle(t), nil)

	high := observation(440, 85, 2.2)
	high.ClimateZone = "tropical"
	high.VegetationType = "tropical_forest"
	high.InterventionType = "biochar"

	low := observation(408, 15, 0.2)
	low.ClimateZone = "desert"
	low.VegetationType = "desert"
	low.InterventionType = "DAC"

	got, err := a.Assess(high)
	require.NoError(t, err)
	assert.Equal(t, domain.TierHigh, got.Tier)
	assert.Equal(t, domain.MethodRandomForest, got.Method)
	assert.False(t, got.FallbackUsed)
	assert.Greater(t, got.Confidence, 0.5)
	assert.LessOrEqual(t, got.Confidence, 1.0)

	got, err = a.Assess(low)
	require.NoError(t, err)
	assert.Equal(t, domain.TierLow, got.Tier)
}

func TestAssess_Monotone(t *testing.T) {
	modes := []struct {
		name     string
		assessor *Assessor
	}{
		{"rule", NewAssessor(nil, nil, nil)},
		{"forest", NewAssessor(nil, trainedBundle(t), nil)},
	}
	drivers := []struct {
		name string
		set  func(o *domain.ClimateObservation, step float64)
	}{
		{"co2", func(o *domain.ClimateObservation, s float64) { o.CO2Concentration = 370 + s*100 }},
		{"biomass", func(o *domain.ClimateObservation, s float64) { o.BiomassDensity = s * 110 }},
		{"anomaly", func(o *domain.ClimateObservation, s float64) { o.TemperatureAnomaly = -1 + s*4 }},
	}

	base := observation(418, 45, 1.1)
	base.ClimateZone = "temperate"
	base.VegetationType = "grassland"

	for _, mode := range modes {
		for _, d := range drivers {
			t.Run(mode.name+"/"+d.name, func(t *testing.T) {
				prev := -1
				for step := 0.0; step <= 1.0; step += 0.02 {
					obs := base
					d.set(&obs, step)
					got, err := mode.assessor.Assess(obs)
					require.NoError(t, err)
					assert.GreaterOrEqual(t, got.Tier.Rank(), prev, "tier fell at step %.2f", step)
					prev = got.Tier.Rank()
				}
			})
		}
	}
}

func TestAssess_DegradesToRule(t *testing.T) {
	var gotModel string
	var gotErr error
	a := NewAssessor(nil, &ml.Bundle{}, func(model string, err error) {
		gotModel, gotErr = model, err
	})

	got, err := a.Assess(observation(440, 85, 2.2))
	require.NoError(t, err)

	assert.Equal(t, domain.TierHigh, got.Tier)
	assert.InDelta(t, 0.8, got.Confidence, 1e-12)
	assert.True(t, got.FallbackUsed)
	assert.Equal(t, domain.MethodRuleBased, got.Method)
	assert.Equal(t, "suitability_forest", gotModel)
	assert.True(t, errors.Is(gotErr, ml.ErrIncompatibleBundle))
}

func TestAssess_BrokenForestDegrades(t *testing.T) {
	broken := *trainedBundle(t)
	broken.Forest.Trees = append([]ml.Tree{{}}, broken.Forest.Trees[1:]...)

	var gotErr error
	a := NewAssessor(nil, &broken, func(_ string, err error) { gotErr = err })

	var got domain.SuitabilityAssessment
	require.NotPanics(t, func() {
		var err error
		got, err = a.Assess(observation(440, 85, 2.2))
		assert.NoError(t, err)
	})
	assert.True(t, got.FallbackUsed)
	assert.Equal(t, domain.TierHigh, got.Tier)
	assert.ErrorIs(t, gotErr, ml.ErrMalformedInput)
}

func TestAssess_Errors(t *testing.T) {
	a := NewAssessor(nil, nil, nil)

	bad := observation(420, 10, 0.5)
	bad.VegetationType = "kelp"
	_, err := a.Assess(bad)
	require.ErrorIs(t, err, domain.ErrUnknownCategory)

	_, err = a.Assess(domain.NewObservation(95, 0))
	require.ErrorIs(t, err, domain.ErrInvalidObservation)
}
