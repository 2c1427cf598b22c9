// Package impact predicts the magnitude of an intervention at a site and ranks
// candidate intervention types against each other.
package impact

import (
	"math"

	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
	"github.com/couchcryptid/climate-intervention-planner/internal/features"
	"github.com/couchcryptid/climate-intervention-planner/internal/ml"
)

const (
	trainedImpactConfidence = 0.85
	ruleImpactConfidence    = 0.6
	degradedPenalty         = 0.1
)

// Estimator predicts CO2 reduction and temperature change for one observation.
type Estimator struct {
	codec      *features.Codec
	bundle     *ml.Bundle
	onFallback ml.FallbackFunc
}

// NewEstimator creates an Estimator. A nil bundle selects the rule path.
func NewEstimator(codec *features.Codec, bundle *ml.Bundle, onFallback ml.FallbackFunc) *Estimator {
	if codec == nil {
		codec = features.NewCodec(nil)
	}
	return &Estimator{codec: codec, bundle: bundle, onFallback: onFallback}
}

// PredictImpact returns the predicted CO2 reduction (ppm), the temperature
// change (°C, negative for cooling) and a combined intervention score in [0, 1].
func (e *Estimator) PredictImpact(obs domain.ClimateObservation) (domain.ImpactPrediction, error) {
	if err := obs.Validate(); err != nil {
		return domain.ImpactPrediction{}, err
	}
	v, err := e.codec.Encode(obs)
	if err != nil {
		return domain.ImpactPrediction{}, err
	}

	p := domain.ImpactPrediction{
		Method:          domain.MethodRuleBased,
		ModelConfidence: ruleImpactConfidence,
		FallbackUsed:    true,
	}
	p.CO2ReductionPPM = RuleCO2Reduction(obs)
	if e.bundle != nil {
		co2, err := e.bundle.PredictCO2(v)
		if err != nil {
			if e.onFallback != nil {
				e.onFallback("co2_regression", err)
			}
			p.ModelConfidence -= degradedPenalty
		} else {
			p.CO2ReductionPPM = math.Max(0, co2)
			p.Method = domain.MethodRegression
			p.ModelConfidence = trainedImpactConfidence
			p.FallbackUsed = false
		}
	}

	p.TemperatureChangeCelsius = -obs.TemperatureAnomaly * e.bundle.Cooling()
	p.InterventionScore = interventionScore(p.CO2ReductionPPM, p.TemperatureChangeCelsius, obs.BiomassDensity)
	return p, nil
}

// RuleCO2Reduction is the untrained estimate: a tenth of the excess over 400 ppm.
func RuleCO2Reduction(obs domain.ClimateObservation) float64 {
	return math.Max(0, (obs.CO2Concentration-400)*0.1)
}

func interventionScore(co2, tempChange, biomass float64) float64 {
	return (math.Min(1, co2/10) + math.Min(1, math.Abs(tempChange)/2) + math.Min(1, biomass/50)) / 3
}
