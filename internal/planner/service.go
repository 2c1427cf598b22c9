// Package planner is the entry point to the decision-support stages. A Service
// holds the read-only tables, the current model bundle and the shared optimizer
// cache, and runs each stage against a consistent snapshot of them.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/climate-intervention-planner/internal/catalog"
	"github.com/couchcryptid/climate-intervention-planner/internal/config"
	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
	"github.com/couchcryptid/climate-intervention-planner/internal/features"
	"github.com/couchcryptid/climate-intervention-planner/internal/impact"
	"github.com/couchcryptid/climate-intervention-planner/internal/ml"
	"github.com/couchcryptid/climate-intervention-planner/internal/observability"
	"github.com/couchcryptid/climate-intervention-planner/internal/simulation"
	"github.com/couchcryptid/climate-intervention-planner/internal/spatial"
	"github.com/couchcryptid/climate-intervention-planner/internal/suitability"
)

// Operation names used for metrics labels.
const (
	opAssess    = "assess_suitability"
	opPredict   = "predict_impact"
	opRank      = "rank_interventions"
	opOptimize  = "optimize_deployment"
	opSimulate  = "simulate_impact"
	opForecast  = "regional_forecast"
	opCompare   = "compare_interventions"
	opPlanSim   = "forecast_plan"
	opRecommend = "recommend"
)

// Options configures a Service. Zero values select the embedded tables, the
// rule-based path, the default grid spacing, no plan cache and random noise.
type Options struct {
	Codec       *features.Codec
	Catalog     *catalog.Catalog
	Bundle      *ml.Bundle
	GridSpacing float64
	PlanCache   *spatial.PlanCache
	Noise       simulation.Noise
	RankTypes   []string
}

// Service runs the planner stages.
type Service struct {
	codec     *features.Codec
	catalog   *catalog.Catalog
	bundle    atomic.Pointer[ml.Bundle]
	optimizer *spatial.Optimizer
	simulator *simulation.Simulator
	rankTypes []string
	cached    bool
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Service. A non-nil opts.Bundle must match the codec's encoding table.
func New(opts Options, logger *slog.Logger, metrics *observability.Metrics) (*Service, error) {
	if opts.Codec == nil {
		opts.Codec = features.NewCodec(nil)
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	s := &Service{
		codec:     opts.Codec,
		catalog:   opts.Catalog,
		optimizer: spatial.NewOptimizer(opts.Catalog, opts.GridSpacing, opts.PlanCache),
		simulator: simulation.NewSimulator(opts.Catalog, opts.Noise),
		rankTypes: opts.RankTypes,
		cached:    opts.PlanCache != nil,
		logger:    logger,
		metrics:   metrics,
	}
	if opts.Bundle != nil {
		if err := s.SwapBundle(opts.Bundle); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewFromConfig builds a Service from the environment configuration, loading any
// overridden tables and the trained bundle from disk.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*Service, error) {
	table := features.DefaultTable()
	if cfg.EncodingTablePath != "" {
		t, err := features.LoadTable(cfg.EncodingTablePath)
		if err != nil {
			return nil, fmt.Errorf("load encoding table: %w", err)
		}
		table = t
	}
	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		c, err := catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		cat = c
	}
	var bundle *ml.Bundle
	if cfg.ModelPath != "" {
		b, err := ml.LoadBundleFile(cfg.ModelPath, table.Version())
		if err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}
		bundle = b
	} else {
		logger.Info("no model configured, using rule-based assessment")
	}
	var noise simulation.Noise
	if cfg.SimulationSeed != 0 {
		noise = simulation.NewGaussianNoise(cfg.SimulationSeed)
	}

	return New(Options{
		Codec:       features.NewCodec(table),
		Catalog:     cat,
		Bundle:      bundle,
		GridSpacing: cfg.GridSpacingDeg,
		PlanCache:   spatial.NewPlanCache(cfg.OptimizerCacheSize, cfg.OptimizerCacheTTL, clockwork.NewRealClock()),
		Noise:       noise,
		RankTypes:   cfg.RankTypes,
	}, logger, metrics)
}

// SwapBundle atomically installs a new model bundle. Stages already running
// finish against the bundle they started with. A nil bundle reverts to the
// rule-based path.
func (s *Service) SwapBundle(b *ml.Bundle) error {
	if b == nil {
		s.bundle.Store(nil)
		s.metrics.ModelLoaded.Set(0)
		s.logger.Info("model bundle removed, using rule-based assessment")
		return nil
	}
	if err := b.Validate(s.codec.Table().Version()); err != nil {
		return err
	}
	s.bundle.Store(b)
	s.metrics.ModelLoaded.Set(1)
	s.logger.Info("model bundle installed",
		"trained_at", b.TrainedAt,
		"age", b.TrainedSince().Round(time.Second),
		"trees", len(b.Forest.Trees),
		"suitability_accuracy", b.Report.SuitabilityAccuracy,
	)
	return nil
}

// Bundle returns the installed bundle, nil when running rule-based.
func (s *Service) Bundle() *ml.Bundle { return s.bundle.Load() }

// Codec returns the feature codec.
func (s *Service) Codec() *features.Codec { return s.codec }

// Catalog returns the intervention catalog.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

func (s *Service) onFallback(model string, err error) {
	s.logger.Warn("model prediction failed, using rule-based fallback", "model", model, "error", err)
	s.metrics.Fallbacks.WithLabelValues(model).Inc()
}

func (s *Service) observe(op string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.metrics.Operations.WithLabelValues(op, outcome).Inc()
	s.metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// AssessSuitability classifies a site into a suitability tier.
func (s *Service) AssessSuitability(obs domain.ClimateObservation) (a domain.SuitabilityAssessment, err error) {
	defer func(start time.Time) { s.observe(opAssess, start, err) }(time.Now())
	a, err = suitability.NewAssessor(s.codec, s.bundle.Load(), s.onFallback).Assess(obs)
	if err == nil {
		s.metrics.SuitabilityTiers.WithLabelValues(string(a.Tier)).Inc()
	}
	return a, err
}

// PredictImpact estimates the CO2 reduction and cooling of the observation's
// intervention type.
func (s *Service) PredictImpact(obs domain.ClimateObservation) (p domain.ImpactPrediction, err error) {
	defer func(start time.Time) { s.observe(opPredict, start, err) }(time.Now())
	return impact.NewEstimator(s.codec, s.bundle.Load(), s.onFallback).PredictImpact(obs)
}

// RankInterventions orders candidate types for a site. An empty types list
// ranks the configured defaults.
func (s *Service) RankInterventions(obs domain.ClimateObservation, types []string) (r domain.InterventionRanking, err error) {
	defer func(start time.Time) { s.observe(opRank, start, err) }(time.Now())
	return impact.NewRanker(s.codec, s.catalog, s.bundle.Load(), s.rankTypes, s.onFallback).Rank(obs, types)
}

// OptimizeDeployment selects sites within a region under a budget.
func (s *Service) OptimizeDeployment(ctx context.Context, req spatial.Request) (plan domain.DeploymentPlan, err error) {
	defer func(start time.Time) { s.observe(opOptimize, start, err) }(time.Now())
	plan, err = s.optimizer.Optimize(ctx, req)
	if err != nil {
		return plan, err
	}
	if s.cached {
		result := "miss"
		if plan.CacheHit {
			result = "hit"
		}
		s.metrics.PlanCache.WithLabelValues(result).Inc()
	}
	if plan.Infeasible {
		s.logger.Info("deployment infeasible within budget",
			"intervention_type", req.InterventionType,
			"budget", req.Budget,
			"constrained_sites", plan.ConstrainedCount,
		)
	}
	return plan, nil
}

// SimulateImpact projects an intervention month by month.
func (s *Service) SimulateImpact(req simulation.Request) (ts domain.ImpactTimeSeries, err error) {
	defer func(start time.Time) { s.observe(opSimulate, start, err) }(time.Now())
	ts, err = s.simulator.Simulate(req)
	if err == nil && ts.FallbackUsed {
		s.logger.Warn("unknown intervention type, simulating with fallback effectiveness",
			"intervention_type", req.InterventionType,
			"effective_type", ts.EffectiveType,
		)
	}
	return ts, err
}

// RegionalForecast projects the baseline climate at a site without intervention.
func (s *Service) RegionalForecast(site domain.Geo, months int) (f domain.RegionalForecast, err error) {
	defer func(start time.Time) { s.observe(opForecast, start, err) }(time.Now())
	return s.simulator.Forecast(site, months)
}

// CompareInterventions simulates several interventions at one site.
func (s *Service) CompareInterventions(site domain.Geo, options []simulation.Option) (out []domain.ComparisonEntry, err error) {
	defer func(start time.Time) { s.observe(opCompare, start, err) }(time.Now())
	return s.simulator.Compare(site, options)
}

// ForecastPlan simulates the plan's intervention at every selected site with
// the given per-site scale and duration.
func (s *Service) ForecastPlan(plan domain.DeploymentPlan, scale float64, months int) (out []domain.ImpactTimeSeries, err error) {
	defer func(start time.Time) { s.observe(opPlanSim, start, err) }(time.Now())
	out = make([]domain.ImpactTimeSeries, 0, len(plan.Sites))
	for _, site := range plan.Sites {
		ts, err := s.simulator.Simulate(simulation.Request{
			Site:             site.Geo,
			InterventionType: plan.InterventionType,
			ScaleAmount:      scale,
			DurationMonths:   months,
		})
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", site.ID, err)
		}
		out = append(out, ts)
	}
	return out, nil
}

// Recommend runs assessment, impact prediction and ranking for one observation.
func (s *Service) Recommend(obs domain.ClimateObservation) (rec domain.Recommendation, err error) {
	defer func(start time.Time) { s.observe(opRecommend, start, err) }(time.Now())

	bundle := s.bundle.Load()
	assessment, err := suitability.NewAssessor(s.codec, bundle, s.onFallback).Assess(obs)
	if err != nil {
		return domain.Recommendation{}, fmt.Errorf("assess: %w", err)
	}
	prediction, err := impact.NewEstimator(s.codec, bundle, s.onFallback).PredictImpact(obs)
	if err != nil {
		return domain.Recommendation{}, fmt.Errorf("predict impact: %w", err)
	}
	ranking, err := impact.NewRanker(s.codec, s.catalog, bundle, s.rankTypes, s.onFallback).Rank(obs, nil)
	if err != nil {
		return domain.Recommendation{}, fmt.Errorf("rank: %w", err)
	}
	s.metrics.SuitabilityTiers.WithLabelValues(string(assessment.Tier)).Inc()

	return domain.Recommendation{
		ID:          domain.RecommendationID(obs),
		Geo:         obs.Geo,
		ObservedAt:  obs.ObservedAt,
		Suitability: assessment,
		Impact:      prediction,
		Ranking:     ranking,
		ProcessedAt: domain.Now(),
	}, nil
}

// ModelStatus describes the model serving predictions.
type ModelStatus struct {
	Loaded              bool       `json:"loaded"`
	Method              string     `json:"method"`
	TrainedAt           *time.Time `json:"trained_at,omitempty"`
	EncodingVersion     int        `json:"encoding_version"`
	SuitabilityAccuracy float64    `json:"suitability_accuracy,omitempty"`
	CO2MSE              float64    `json:"co2_mse,omitempty"`
}

// ModelStatus reports whether a trained bundle is installed and how it scored
// on its held-out split.
func (s *Service) ModelStatus() ModelStatus {
	st := ModelStatus{Method: domain.MethodRuleBased, EncodingVersion: s.codec.Table().Version()}
	if b := s.bundle.Load(); b != nil {
		trainedAt := b.TrainedAt
		st.Loaded = true
		st.Method = domain.MethodRandomForest
		st.TrainedAt = &trainedAt
		st.SuitabilityAccuracy = b.Report.SuitabilityAccuracy
		st.CO2MSE = b.Report.CO2MSE
	}
	return st
}
