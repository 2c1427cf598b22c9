package ml

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
	"github.com/couchcryptid/climate-intervention-planner/internal/features"
)

// Sample is one labelled training observation.
type Sample struct {
	Observation       domain.ClimateObservation `json:"observation"`
	CO2Reduction      float64                   `json:"co2_reduction_actual"`
	TemperatureChange float64                   `json:"temperature_change_actual"`
	Suitability       domain.Tier               `json:"suitability_actual"`
	ImpactScore       float64                   `json:"impact_score_actual"`
}

// TrainOptions configures Train. Zero values take the defaults from
// DefaultTrainOptions.
type TrainOptions struct {
	Seed         uint64
	TestFraction float64

	LassoAlpha   float64
	LassoMaxIter int
	RidgeAlpha   float64

	Trees         int
	TreeMaxDepth  int
	TreeMinLeaf   int
	MonotoneTiers bool

	Boosters []BoosterParams
}

// DefaultTrainOptions mirrors the production model configuration: 100 trees of
// depth 10 with monotone tier constraints and two boosters.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Seed:          42,
		TestFraction:  0.2,
		LassoAlpha:    0.1,
		LassoMaxIter:  1000,
		RidgeAlpha:    1.0,
		Trees:         100,
		TreeMaxDepth:  10,
		TreeMinLeaf:   1,
		MonotoneTiers: true,
		Boosters: []BoosterParams{
			{Name: "deep", Estimators: 100, MaxDepth: 6, LearningRate: 0.1, Seed: 1},
			{Name: "shallow", Estimators: 100, MaxDepth: 4, LearningRate: 0.05, Subsample: 0.8, Seed: 2},
		},
	}
}

func (o TrainOptions) withDefaults() TrainOptions {
	d := DefaultTrainOptions()
	if o.TestFraction <= 0 || o.TestFraction >= 1 {
		o.TestFraction = d.TestFraction
	}
	if o.LassoAlpha <= 0 {
		o.LassoAlpha = d.LassoAlpha
	}
	if o.LassoMaxIter <= 0 {
		o.LassoMaxIter = d.LassoMaxIter
	}
	if o.RidgeAlpha <= 0 {
		o.RidgeAlpha = d.RidgeAlpha
	}
	if o.Trees <= 0 {
		o.Trees = d.Trees
	}
	if o.TreeMaxDepth <= 0 {
		o.TreeMaxDepth = d.TreeMaxDepth
	}
	if o.TreeMinLeaf <= 0 {
		o.TreeMinLeaf = d.TreeMinLeaf
	}
	if len(o.Boosters) == 0 {
		o.Boosters = d.Boosters
	}
	return o
}

// Report summarizes held-out model quality.
type Report struct {
	TrainSamples        int     `json:"train_samples"`
	TestSamples         int     `json:"test_samples"`
	CO2MSE              float64 `json:"co2_mse"`
	SuitabilityAccuracy float64 `json:"suitability_accuracy"`
	RankingMSE          float64 `json:"ranking_mse"`
}

type encoded struct {
	raw    [][]float64
	co2    []float64
	temp   []float64
	anom   []float64
	tier   []int
	impact []float64
}

func encodeSamples(codec *features.Codec, samples []Sample) (encoded, error) {
	var e encoded
	for i, s := range samples {
		v, err := codec.Encode(s.Observation)
		if err != nil {
			return encoded{}, fmt.Errorf("sample %d: %w", i, err)
		}
		rank := s.Suitability.Rank()
		if rank < 0 {
			return encoded{}, fmt.Errorf("sample %d: unknown suitability %q", i, s.Suitability)
		}
		e.raw = append(e.raw, v.Slice())
		e.co2 = append(e.co2, s.CO2Reduction)
		e.temp = append(e.temp, s.TemperatureChange)
		e.anom = append(e.anom, s.Observation.TemperatureAnomaly)
		e.tier = append(e.tier, rank)
		e.impact = append(e.impact, s.ImpactScore)
	}
	return e, nil
}

// Train fits a new Bundle. Samples are shuffled with the option seed and split
// into train and held-out sets; the report is computed on the held-out set.
func Train(ctx context.Context, codec *features.Codec, samples []Sample, opts TrainOptions) (*Bundle, error) {
	opts = opts.withDefaults()
	if len(samples) < 10 {
		return nil, fmt.Errorf("%w: need at least 10 samples, got %d", ErrNoSamples, len(samples))
	}
	for i, s := range samples {
		if s.Suitability.Rank() < 0 {
			return nil, fmt.Errorf("sample %d: unknown suitability %q", i, s.Suitability)
		}
	}

	shuffled := append([]Sample(nil), samples...)
	rng := rand.New(rand.NewPCG(opts.Seed, 0))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	cut := len(shuffled) - max(1, int(math.Round(opts.TestFraction*float64(len(shuffled)))))
	train, test := shuffled[:cut], shuffled[cut:]

	data, err := encodeSamples(codec, train)
	if err != nil {
		return nil, err
	}

	b := &Bundle{
		Format:          BundleFormat,
		EncodingVersion: codec.Table().Version(),
		FeatureNames:    append([]string(nil), features.Names[:]...),
		TrainedAt:       domain.Now(),
	}
	b.Scaler = FitScaler(data.raw)
	scaled := b.Scaler.TransformAll(data.raw)
	b.CoolingCoefficient = fitCooling(data.anom, data.temp)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lasso, err := FitLasso(scaled, data.co2, opts.LassoAlpha, opts.LassoMaxIter, 1e-6)
		if err != nil {
			return fmt.Errorf("fit lasso: %w", err)
		}
		ridge, err := FitRidge(scaled, data.co2, opts.RidgeAlpha)
		if err != nil {
			return fmt.Errorf("fit ridge: %w", err)
		}
		b.Lasso, b.Ridge = lasso, ridge
		return nil
	})
	g.Go(func() error {
		forest, err := FitForest(gctx, data.raw, data.tier, 3, ForestParams{
			Trees: opts.Trees,
			Seed:  opts.Seed,
			Tree:  tierTreeParams(opts),
		})
		if err != nil {
			return fmt.Errorf("fit forest: %w", err)
		}
		b.Forest = forest
		return nil
	})
	b.Boosters = make([]Booster, len(opts.Boosters))
	for i, params := range opts.Boosters {
		g.Go(func() error {
			booster, err := FitBooster(gctx, data.raw, data.impact, params)
			if err != nil {
				return fmt.Errorf("fit booster %s: %w", params.Name, err)
			}
			b.Boosters[i] = booster
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report, err := Evaluate(b, codec, test)
	if err != nil {
		return nil, err
	}
	report.TrainSamples = len(train)
	b.Report = report
	return b, nil
}

func tierTreeParams(opts TrainOptions) TreeParams {
	params := TreeParams{MaxDepth: opts.TreeMaxDepth, MinSamplesLeaf: opts.TreeMinLeaf}
	if !opts.MonotoneTiers {
		return params
	}
	params.Monotone = make([]bool, features.Width)
	for _, f := range features.MonotoneIncreasing {
		params.Monotone[f] = true
	}
	params.Excluded = make([]bool, features.Width)
	for _, f := range features.NonMonotone {
		params.Excluded[f] = true
	}
	return params
}

// fitCooling fits temp ≈ −c·anomaly by least squares through the origin.
func fitCooling(anomaly, temp []float64) float64 {
	num, den := 0.0, 0.0
	for i := range anomaly {
		num += anomaly[i] * temp[i]
		den += anomaly[i] * anomaly[i]
	}
	if den == 0 {
		return FallbackCoolingCoefficient
	}
	return math.Min(MaxCoolingCoefficient, math.Max(MinCoolingCoefficient, -num/den))
}

// Evaluate scores a bundle against labelled samples.
func Evaluate(b *Bundle, codec *features.Codec, samples []Sample) (Report, error) {
	r := Report{TestSamples: len(samples)}
	if len(samples) == 0 {
		return r, nil
	}
	var co2Err, rankErr float64
	correct := 0
	for i, s := range samples {
		v, err := codec.Encode(s.Observation)
		if err != nil {
			return Report{}, fmt.Errorf("sample %d: %w", i, err)
		}
		co2, err := b.PredictCO2(v)
		if err != nil {
			return Report{}, fmt.Errorf("sample %d: %w", i, err)
		}
		vote, err := b.ClassifySuitability(v)
		if err != nil {
			return Report{}, fmt.Errorf("sample %d: %w", i, err)
		}
		score, err := b.ScoreIntervention(v)
		if err != nil {
			return Report{}, fmt.Errorf("sample %d: %w", i, err)
		}
		co2Err += (co2 - s.CO2Reduction) * (co2 - s.CO2Reduction)
		rankErr += (score - s.ImpactScore) * (score - s.ImpactScore)
		if domain.TierFromRank(vote.Class) == s.Suitability {
			correct++
		}
	}
	n := float64(len(samples))
	r.CO2MSE = co2Err / n
	r.RankingMSE = rankErr / n
	r.SuitabilityAccuracy = float64(correct) / n
	return r, nil
}

// TrainedSince reports how long ago the bundle was trained, per the domain clock.
func (b *Bundle) TrainedSince() time.Duration {
	return domain.Now().Sub(b.TrainedAt)
}
