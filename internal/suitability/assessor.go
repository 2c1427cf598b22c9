// Package suitability classifies a site's readiness for intervention into an
// ordinal low/medium/high tier.
package suitability

import (
	"math"

	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
	"github.com/couchcryptid/climate-intervention-planner/internal/features"
	"github.com/couchcryptid/climate-intervention-planner/internal/ml"
)

// Rule thresholds and the confidence reported for each rule tier.
const (
	HighThreshold   = 0.7
	MediumThreshold = 0.4

	highConfidence   = 0.9
	mediumConfidence = 0.7
	lowConfidence    = 0.6

	// degradedPenalty is subtracted from the rule confidence when a fitted
	// model failed and the rule answered instead.
	degradedPenalty = 0.1
)

// Assessor assigns suitability tiers. With a nil bundle it uses the weighted
// rule; otherwise it uses the bundle's forest and degrades to the rule when the
// forest cannot answer.
type Assessor struct {
	codec      *features.Codec
	bundle     *ml.Bundle
	onFallback ml.FallbackFunc
}

// NewAssessor creates an Assessor. bundle and onFallback may be nil.
func NewAssessor(codec *features.Codec, bundle *ml.Bundle, onFallback ml.FallbackFunc) *Assessor {
	if codec == nil {
		codec = features.NewCodec(nil)
	}
	return &Assessor{codec: codec, bundle: bundle, onFallback: onFallback}
}

// Assess classifies one observation. Invalid observations and categorical
// values outside the encoding table are errors in both modes.
func (a *Assessor) Assess(obs domain.ClimateObservation) (domain.SuitabilityAssessment, error) {
	if err := obs.Validate(); err != nil {
		return domain.SuitabilityAssessment{}, err
	}
	v, err := a.codec.Encode(obs)
	if err != nil {
		return domain.SuitabilityAssessment{}, err
	}

	score := RuleScore(obs)
	factors := domain.AssessmentFactors{
		CO2Level:           obs.CO2Concentration,
		BiomassDensity:     obs.BiomassDensity,
		TemperatureAnomaly: obs.TemperatureAnomaly,
		VegetationType:     obs.VegetationType,
		RuleScore:          score,
	}

	if a.bundle == nil {
		return ruleAssessment(score, factors, 0), nil
	}

	vote, err := a.bundle.ClassifySuitability(v)
	if err != nil {
		if a.onFallback != nil {
			a.onFallback("suitability_forest", err)
		}
		return ruleAssessment(score, factors, degradedPenalty), nil
	}
	return domain.SuitabilityAssessment{
		Tier:       domain.TierFromRank(vote.Class),
		Confidence: vote.Share,
		Factors:    factors,
		Method:     domain.MethodRandomForest,
	}, nil
}

// RuleScore is the weighted, clipped combination of the three drivers:
// 0.4·CO2 excess over 400 ppm (saturating at 50), 0.4·biomass (saturating at
// 80) and 0.2·temperature anomaly (saturating at 2).
func RuleScore(obs domain.ClimateObservation) float64 {
	co2 := clip(obs.CO2Concentration-400, 0, 50) / 50
	biomass := clip(obs.BiomassDensity, 0, 80) / 80
	anomaly := clip(obs.TemperatureAnomaly, 0, 2) / 2
	return 0.4*co2 + 0.4*biomass + 0.2*anomaly
}

// RuleTier maps a rule score onto a tier and its fixed confidence.
func RuleTier(score float64) (domain.Tier, float64) {
	switch {
	case score >= HighThreshold:
		return domain.TierHigh, highConfidence
	case score >= MediumThreshold:
		return domain.TierMedium, mediumConfidence
	default:
		return domain.TierLow, lowConfidence
	}
}

func ruleAssessment(score float64, factors domain.AssessmentFactors, penalty float64) domain.SuitabilityAssessment {
	tier, confidence := RuleTier(score)
	return domain.SuitabilityAssessment{
		Tier:         tier,
		Confidence:   math.Max(0, confidence-penalty),
		Factors:      factors,
		Method:       domain.MethodRuleBased,
		FallbackUsed: true,
	}
}

func clip(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
