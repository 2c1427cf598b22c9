package ml

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
	"github.com/couchcryptid/climate-intervention-planner/internal/features"
)

func smallOptions() TrainOptions {
	opts := DefaultTrainOptions()
	opts.Trees = 25
	opts.Boosters = []BoosterParams{
		{Name: "deep", Estimators: 40, MaxDepth: 4, LearningRate: 0.1, Seed: 1},
		{Name: "shallow", Estimators: 40, MaxDepth: 3, LearningRate: 0.1, Subsample: 0.8, Seed: 2},
	}
	return opts
}

func trainSmall(t *testing.T) *Bundle {
	t.Helper()
	b, err := Train(context.Background(), features.NewCodec(nil), SyntheticSamples(11, 300), smallOptions())
	require.NoError(t, err)
	return b
}

func TestSyntheticSamples(t *testing.T) {
	a := SyntheticSamples(5, 30)
	b := SyntheticSamples(5, 30)
	require.Len(t, a, 30)
	assert.Equal(t, a, b, "same seed yields the same samples")

	counts := map[domain.Tier]int{}
	codec := features.NewCodec(nil)
	for _, s := range a {
		counts[s.Suitability]++
		require.NoError(t, s.Observation.Validate())
		_, err := codec.Encode(s.Observation)
		require.NoError(t, err)
	}
	assert.Equal(t, map[domain.Tier]int{domain.TierHigh: 10, domain.TierMedium: 10, domain.TierLow: 10}, counts)
}

func TestTrain_Report(t *testing.T) {
	b := trainSmall(t)

	require.NoError(t, b.Validate(features.DefaultTable().Version()))
	assert.Equal(t, 240, b.Report.TrainSamples)
	assert.Equal(t, 60, b.Report.TestSamples)
	assert.GreaterOrEqual(t, b.Report.SuitabilityAccuracy, 0.85)
	assert.Less(t, b.Report.CO2MSE, 1.0)
	assert.Less(t, b.Report.RankingMSE, 0.05)
	assert.InDelta(t, 0.35, b.Cooling(), 0.03)
	assert.Len(t, b.Boosters, 2)
	assert.Len(t, b.Forest.Trees, 25)
}

func TestTrain_MonotoneTiers(t *testing.T) {
	b := trainSmall(t)
	codec := features.NewCodec(nil)

	base := SyntheticSamples(99, 3)[1].Observation
	drivers := []struct {
		name string
		set  func(o *domain.ClimateObservation, step float64)
	}{
		{"co2", func(o *domain.ClimateObservation, s float64) { o.CO2Concentration = 380 + s*90 }},
		{"biomass", func(o *domain.ClimateObservation, s float64) { o.BiomassDensity = s * 100 }},
		{"anomaly", func(o *domain.ClimateObservation, s float64) { o.TemperatureAnomaly = -1 + s*4 }},
	}

	for _, d := range drivers {
		t.Run(d.name, func(t *testing.T) {
			prev := -1
			for step := 0.0; step <= 1.0; step += 0.02 {
				obs := base
				d.set(&obs, step)
				v, err := codec.Encode(obs)
				require.NoError(t, err)
				vote, err := b.ClassifySuitability(v)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, vote.Class, prev, "tier fell at step %.2f", step)
				prev = vote.Class
			}
		})
	}
}

func TestTrain_Deterministic(t *testing.T) {
	samples := SyntheticSamples(3, 120)
	codec := features.NewCodec(nil)

	a, err := Train(context.Background(), codec, samples, smallOptions())
	require.NoError(t, err)
	b, err := Train(context.Background(), codec, samples, smallOptions())
	require.NoError(t, err)

	assert.Equal(t, a.Forest, b.Forest)
	assert.Equal(t, a.Boosters, b.Boosters)
	assert.Equal(t, a.Lasso, b.Lasso)
	assert.Equal(t, a.Report, b.Report)
}

func TestTrain_Errors(t *testing.T) {
	codec := features.NewCodec(nil)

	_, err := Train(context.Background(), codec, SyntheticSamples(1, 5), smallOptions())
	require.ErrorIs(t, err, ErrNoSamples)

	samples := SyntheticSamples(1, 20)
	samples[4].Observation.VegetationType = "kelp"
	_, err = Train(context.Background(), codec, samples, smallOptions())
	require.ErrorIs(t, err, domain.ErrUnknownCategory)

	samples = SyntheticSamples(1, 20)
	samples[0].Suitability = "extreme"
	_, err = Train(context.Background(), codec, samples, smallOptions())
	require.Error(t, err)
}

func TestFitCooling(t *testing.T) {
	tests := []struct {
		name    string
		anomaly []float64
		temp    []float64
		want    float64
	}{
		{"in range", []float64{1, 2}, []float64{-0.35, -0.7}, 0.35},
		{"clamped high", []float64{1, 2}, []float64{-1, -2}, MaxCoolingCoefficient},
		{"clamped low", []float64{1, 2}, []float64{0.1, 0.2}, MinCoolingCoefficient},
		{"no anomaly signal", []float64{0, 0}, []float64{-1, -1}, FallbackCoolingCoefficient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, fitCooling(tt.anomaly, tt.temp), 1e-12)
		})
	}
}

func TestBundle_TrainedSince(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	domain.SetClock(clk)
	t.Cleanup(func() { domain.SetClock(nil) })

	b := &Bundle{TrainedAt: domain.Now()}
	clk.Advance(36 * time.Hour)

	assert.Equal(t, 36*time.Hour, b.TrainedSince())
}
