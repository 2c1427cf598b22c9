package domain

import "time"

// Tier is an ordinal suitability class.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Rank maps a tier onto its ordinal position (low=0, medium=1, high=2).
// Unrecognized tiers rank below low.
func (t Tier) Rank() int {
	switch t {
	case TierLow:
		return 0
	case TierMedium:
		return 1
	case TierHigh:
		return 2
	default:
		return -1
	}
}

// TierFromRank is the inverse of Tier.Rank, clamping out-of-range values.
func TierFromRank(r int) Tier {
	switch {
	case r <= 0:
		return TierLow
	case r == 1:
		return TierMedium
	default:
		return TierHigh
	}
}

// Assessment methods.
const (
	MethodRandomForest = "random_forest"
	MethodRuleBased    = "rule_based"
	MethodRegression   = "lasso_ridge"
	MethodBoosting     = "gradient_boosting"
)

// AssessmentFactors echoes the drivers the assessment was based on.
type AssessmentFactors struct {
	CO2Level           float64 `json:"co2_level"`
	BiomassDensity     float64 `json:"biomass_density"`
	TemperatureAnomaly float64 `json:"temperature_anomaly"`
	VegetationType     string  `json:"vegetation_type"`
	RuleScore          float64 `json:"rule_score"`
}

// SuitabilityAssessment is the tiered readiness of one site.
type SuitabilityAssessment struct {
	Tier         Tier              `json:"suitability_class"`
	Confidence   float64           `json:"confidence"`
	Factors      AssessmentFactors `json:"assessment_factors"`
	Method       string            `json:"method"`
	FallbackUsed bool              `json:"fallback_used"`
}

// ImpactPrediction is the predicted magnitude of an intervention at one site.
type ImpactPrediction struct {
	CO2ReductionPPM          float64 `json:"co2_reduction_ppm"`
	TemperatureChangeCelsius float64 `json:"temperature_change_celsius"`
	InterventionScore        float64 `json:"intervention_score"`
	ModelConfidence          float64 `json:"model_confidence"`
	Method                   string  `json:"method"`
	FallbackUsed             bool    `json:"fallback_used"`
}

// Deployment priorities derived from impact score.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// PriorityFor maps an impact score to a deployment priority.
func PriorityFor(impactScore float64) string {
	switch {
	case impactScore > 0.8:
		return PriorityHigh
	case impactScore > 0.6:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// RecommendedScale is the suggested deployment size for one intervention type.
type RecommendedScale struct {
	Amount        float64 `json:"amount"`
	Unit          string  `json:"unit"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// RankingEntry is one intervention type's position in a ranking.
type RankingEntry struct {
	InterventionType string           `json:"intervention_type"`
	ImpactScore      float64          `json:"impact_score"`
	CostEfficiency   float64          `json:"cost_efficiency"`
	RecommendedScale RecommendedScale `json:"recommended_scale"`
	Priority         string           `json:"deployment_priority"`
}

// InterventionRanking lists candidate types by descending impact score.
type InterventionRanking struct {
	Entries         []RankingEntry `json:"rankings"`
	ModelConfidence float64        `json:"model_confidence"`
	Method          string         `json:"method"`
	FallbackUsed    bool           `json:"fallback_used"`
}

// Top returns the best-ranked entry, if any.
func (r InterventionRanking) Top() (RankingEntry, bool) {
	if len(r.Entries) == 0 {
		return RankingEntry{}, false
	}
	return r.Entries[0], true
}

// Region is a lat/lon bounding box.
type Region struct {
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
	LonMin float64 `json:"lon_min"`
	LonMax float64 `json:"lon_max"`
}

// Constraints are the hard filters applied to candidate sites. Nil pointers and
// empty lists mean "unconstrained".
type Constraints struct {
	MinDistanceKm       *float64 `json:"min_distance_km,omitempty"`
	MaxElevation        *float64 `json:"max_elevation,omitempty"`
	AllowedLandCovers   []string `json:"allowed_land_covers,omitempty"`
	ExistingDeployments []Geo    `json:"existing_deployments,omitempty"`
}

// CandidateSite is a grid point evaluated for deployment.
type CandidateSite struct {
	ID               string  `json:"id"`
	Geo              Geo     `json:"geo"`
	ClimateZone      string  `json:"climate_zone"`
	GeographicRegion string  `json:"geographic_region"`
	Elevation        float64 `json:"elevation"`
	LandCover        string  `json:"land_cover"`
	SuitabilityScore float64 `json:"suitability_score"`
	EstimatedCost    float64 `json:"estimated_cost"`
	EstimatedImpact  float64 `json:"estimated_impact"`
	Efficiency       float64 `json:"efficiency"`
}

// DeploymentPlan is the budget-constrained selection of candidate sites.
type DeploymentPlan struct {
	ID                string          `json:"id"`
	InterventionType  string          `json:"intervention_type"`
	Region            Region          `json:"target_region"`
	Budget            float64         `json:"budget"`
	Sites             []CandidateSite `json:"sites"`
	CandidateCount    int             `json:"candidate_sites"`
	ConstrainedCount  int             `json:"constrained_sites"`
	TotalCost         float64         `json:"total_cost"`
	RemainingBudget   float64         `json:"remaining_budget"`
	TotalImpact       float64         `json:"total_impact"`
	CoverageAreaKm2   float64         `json:"coverage_area_km2"`
	AverageDistanceKm float64         `json:"average_distance_km"`
	SpatialEfficiency float64         `json:"spatial_efficiency"`
	Infeasible        bool            `json:"infeasible"`
	CacheHit          bool            `json:"cache_hit"`
}

// MonthlyImpact is one month of a simulated intervention.
type MonthlyImpact struct {
	Month                    int     `json:"month"`
	CO2ReductionPPM          float64 `json:"co2_reduction_ppm"`
	TemperatureChangeCelsius float64 `json:"temperature_change_celsius"`
	CumulativeCO2Reduction   float64 `json:"cumulative_co2_reduction"`
	CumulativeTempCooling    float64 `json:"cumulative_temp_cooling"`
	Confidence               float64 `json:"confidence"`
}

// RegionalEffects are the coarse spatial reach of a simulated intervention.
type RegionalEffects struct {
	LocalImpactRadiusKm       float64 `json:"local_impact_radius_km"`
	DownwindEffectsKm         float64 `json:"downwind_effects_km"`
	OceanInfluence            bool    `json:"ocean_influence"`
	UrbanHeatIslandModeration bool    `json:"urban_heat_island_moderation"`
}

// SimulationSummary is derived once from a completed time series.
type SimulationSummary struct {
	TotalCO2ReductionPPM       float64         `json:"total_co2_reduction_ppm"`
	MaxTemperatureCoolingC     float64         `json:"max_temperature_cooling_celsius"`
	AverageMonthlyCO2Reduction float64         `json:"average_monthly_co2_reduction_ppm"`
	EffectivenessScore         float64         `json:"effectiveness_score"`
	CostEfficiency             float64         `json:"cost_efficiency"`
	AverageConfidence          float64         `json:"average_confidence"`
	RegionalMultiplier         float64         `json:"regional_multiplier"`
	RegionalEffects            RegionalEffects `json:"regional_effects"`
}

// ImpactTimeSeries is the monthly projection of one intervention at one site.
type ImpactTimeSeries struct {
	ID               string            `json:"id"`
	InterventionType string            `json:"intervention_type"`
	EffectiveType    string            `json:"effective_type"`
	Site             Geo               `json:"location"`
	ScaleAmount      float64           `json:"scale_amount"`
	DurationMonths   int               `json:"duration_months"`
	Months           []MonthlyImpact   `json:"monthly_progress"`
	Summary          SimulationSummary `json:"summary"`
	FallbackUsed     bool              `json:"fallback_used"`
}

// ForecastMonth is one month of a baseline (no-intervention) regional forecast.
type ForecastMonth struct {
	Month              int     `json:"month"`
	TemperatureCelsius float64 `json:"temperature_celsius"`
	CO2PPM             float64 `json:"co2_concentration_ppm"`
	TemperatureAnomaly float64 `json:"temperature_anomaly"`
	Confidence         float64 `json:"confidence"`
}

// RegionalForecast is the baseline climate projection for a site.
type RegionalForecast struct {
	Site                        Geo             `json:"location"`
	Months                      []ForecastMonth `json:"monthly_forecast"`
	WarmingTrendCelsiusPerMonth float64         `json:"temperature_trend_celsius_per_month"`
	CO2TrendPPMPerMonth         float64         `json:"co2_trend_ppm_per_month"`
	WarmingRateCelsiusPerDecade float64         `json:"warming_rate_celsius_per_decade"`
	GeneratedAt                 time.Time       `json:"generated_at"`
}

// ComparisonEntry summarizes one intervention in a side-by-side comparison.
type ComparisonEntry struct {
	InterventionType      string  `json:"intervention_type"`
	ScaleAmount           float64 `json:"scale_amount"`
	TotalCO2Reduction     float64 `json:"total_co2_reduction"`
	MaxTemperatureCooling float64 `json:"max_temperature_cooling"`
	EffectivenessScore    float64 `json:"effectiveness_score"`
	CostEfficiency        float64 `json:"cost_efficiency"`
	ModelConfidence       float64 `json:"model_confidence"`
	FallbackUsed          bool    `json:"fallback_used"`
}
