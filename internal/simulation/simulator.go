// Package simulation projects the monthly effect of an intervention at a site
// and the baseline climate it acts against. It is an explainable proxy, not a
// physical climate model.
package simulation

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/google/uuid"

	"github.com/couchcryptid/climate-intervention-planner/internal/catalog"
	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
)

const (
	// MaxDurationMonths bounds a single simulation or forecast.
	MaxDurationMonths = 120

	// Monthly perturbation: N(0, 0.1) clipped to ±0.3.
	noiseStdDev = 0.1
	noiseBound  = 0.3

	minConfidence           = 0.7
	confidenceDecayPerMonth = 0.02

	// Defaults applied by Compare to options that leave them unset.
	DefaultCompareScale    = 100.0
	DefaultCompareDuration = 12
)

var simulationNamespace = uuid.MustParse("b3a8d0c2-6c1f-5e7d-8f43-2a9e1d7c5b60")

// Request describes one simulation.
type Request struct {
	Site             domain.Geo `json:"location"`
	InterventionType string     `json:"intervention_type"`
	ScaleAmount      float64    `json:"scale_amount"`
	DurationMonths   int        `json:"duration_months"`
}

// Simulator produces impact time series and baseline forecasts.
type Simulator struct {
	catalog *catalog.Catalog
	noise   Noise
}

// NewSimulator creates a Simulator. A nil catalog uses the embedded one; nil
// noise draws from a randomly seeded GaussianNoise.
func NewSimulator(cat *catalog.Catalog, noise Noise) *Simulator {
	if cat == nil {
		cat = catalog.Default()
	}
	if noise == nil {
		noise = NewGaussianNoise(rand.Uint64())
	}
	return &Simulator{catalog: cat, noise: noise}
}

// Simulate projects req month by month. Unknown intervention types use the
// catalog's fallback effectiveness table and are flagged FallbackUsed.
func (s *Simulator) Simulate(req Request) (domain.ImpactTimeSeries, error) {
	if err := validate(req.Site, req.DurationMonths); err != nil {
		return domain.ImpactTimeSeries{}, err
	}
	if math.IsNaN(req.ScaleAmount) || math.IsInf(req.ScaleAmount, 0) || req.ScaleAmount <= 0 {
		return domain.ImpactTimeSeries{}, fmt.Errorf("%w: scale amount %v must be positive", domain.ErrInvalidSimulation, req.ScaleAmount)
	}

	iv, effective, fallback := s.catalog.LookupOrFallback(req.InterventionType)
	multiplier := RegionalMultiplier(req.Site.Lat, req.Site.Lon)
	baseCO2 := req.ScaleAmount * iv.Effectiveness.CO2ReductionFactor * multiplier
	baseCooling := req.ScaleAmount * iv.Effectiveness.TempCoolingFactor * 0.01 * multiplier

	ts := domain.ImpactTimeSeries{
		ID:               seriesID(req),
		InterventionType: req.InterventionType,
		EffectiveType:    effective,
		Site:             req.Site,
		ScaleAmount:      req.ScaleAmount,
		DurationMonths:   req.DurationMonths,
		Months:           make([]domain.MonthlyImpact, req.DurationMonths),
		FallbackUsed:     fallback,
	}

	var cumCO2, cumCooling float64
	for m := 0; m < req.DurationMonths; m++ {
		seasonal := 1 + 0.2*math.Sin(2*math.Pi*float64(m)/12)
		ramp := 1 - math.Exp(-float64(m)/6)
		perturb := 1 + clamp(s.noise.Normal(noiseStdDev), -noiseBound, noiseBound)

		co2 := baseCO2 * seasonal * ramp * perturb
		cooling := math.Abs(baseCooling * seasonal * ramp * perturb)
		cumCO2 += co2
		cumCooling += cooling

		ts.Months[m] = domain.MonthlyImpact{
			Month:                    m + 1,
			CO2ReductionPPM:          co2,
			TemperatureChangeCelsius: coolingToChange(cooling),
			CumulativeCO2Reduction:   cumCO2,
			CumulativeTempCooling:    cumCooling,
			Confidence:               math.Max(minConfidence, 1-confidenceDecayPerMonth*float64(m)),
		}
	}
	ts.Summary = summarize(ts, multiplier)
	return ts, nil
}

// summarize derives the summary from a completed series.
func summarize(ts domain.ImpactTimeSeries, multiplier float64) domain.SimulationSummary {
	var total, maxCooling, confidence float64
	for _, m := range ts.Months {
		total += m.CO2ReductionPPM
		maxCooling = math.Max(maxCooling, math.Abs(m.TemperatureChangeCelsius))
		confidence += m.Confidence
	}
	n := float64(len(ts.Months))
	return domain.SimulationSummary{
		TotalCO2ReductionPPM:       total,
		MaxTemperatureCoolingC:     maxCooling,
		AverageMonthlyCO2Reduction: total / n,
		EffectivenessScore:         math.Min(1, total/(ts.ScaleAmount*0.5)),
		CostEfficiency:             total / math.Max(1, ts.ScaleAmount*0.1),
		AverageConfidence:          confidence / n,
		RegionalMultiplier:         multiplier,
		RegionalEffects: domain.RegionalEffects{
			LocalImpactRadiusKm:       50,
			DownwindEffectsKm:         200,
			OceanInfluence:            ts.Site.Lat < 30,
			UrbanHeatIslandModeration: math.Abs(ts.Site.Lat) < 45,
		},
	}
}

// Option is one intervention in a comparison. Zero scale and duration take
// DefaultCompareScale and DefaultCompareDuration.
type Option struct {
	InterventionType string  `json:"type"`
	ScaleAmount      float64 `json:"scale"`
	DurationMonths   int     `json:"duration_months"`
}

// Compare simulates every option at the same site and orders the results by
// descending effectiveness, ties by type name.
func (s *Simulator) Compare(site domain.Geo, options []Option) ([]domain.ComparisonEntry, error) {
	out := make([]domain.ComparisonEntry, 0, len(options))
	for _, opt := range options {
		if opt.ScaleAmount == 0 {
			opt.ScaleAmount = DefaultCompareScale
		}
		if opt.DurationMonths == 0 {
			opt.DurationMonths = DefaultCompareDuration
		}
		ts, err := s.Simulate(Request{
			Site:             site,
			InterventionType: opt.InterventionType,
			ScaleAmount:      opt.ScaleAmount,
			DurationMonths:   opt.DurationMonths,
		})
		if err != nil {
			return nil, fmt.Errorf("compare %s: %w", opt.InterventionType, err)
		}
		out = append(out, domain.ComparisonEntry{
			InterventionType:      opt.InterventionType,
			ScaleAmount:           opt.ScaleAmount,
			TotalCO2Reduction:     ts.Summary.TotalCO2ReductionPPM,
			MaxTemperatureCooling: ts.Summary.MaxTemperatureCoolingC,
			EffectivenessScore:    ts.Summary.EffectivenessScore,
			CostEfficiency:        ts.Summary.CostEfficiency,
			ModelConfidence:       ts.Summary.AverageConfidence,
			FallbackUsed:          ts.FallbackUsed,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EffectivenessScore != out[j].EffectivenessScore {
			return out[i].EffectivenessScore > out[j].EffectivenessScore
		}
		return out[i].InterventionType < out[j].InterventionType
	})
	return out, nil
}

func validate(site domain.Geo, months int) error {
	if math.IsNaN(site.Lat) || site.Lat < -90 || site.Lat > 90 || math.IsNaN(site.Lon) || site.Lon < -180 || site.Lon > 180 {
		return fmt.Errorf("%w: site %+v out of range", domain.ErrInvalidSimulation, site)
	}
	if months < 1 || months > MaxDurationMonths {
		return fmt.Errorf("%w: duration %d outside [1, %d] months", domain.ErrInvalidSimulation, months, MaxDurationMonths)
	}
	return nil
}

func seriesID(req Request) string {
	key := fmt.Sprintf("%s|%g,%g|%g|%d", req.InterventionType, req.Site.Lat, req.Site.Lon, req.ScaleAmount, req.DurationMonths)
	return uuid.NewSHA1(simulationNamespace, []byte(key)).String()
}

// coolingToChange reports a cooling magnitude as a non-positive temperature change.
func coolingToChange(cooling float64) float64 {
	if cooling == 0 {
		return 0
	}
	return -cooling
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
