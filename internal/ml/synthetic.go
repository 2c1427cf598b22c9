package ml

import (
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
)

type band struct {
	tier        domain.Tier
	co2         [2]float64
	biomass     [2]float64
	anomaly     [2]float64
	score       [2]float64
	zones       []string
	vegetations []string
}

var bands = [...]band{
	{
		tier: domain.TierHigh, co2: [2]float64{430, 460}, biomass: [2]float64{65, 100},
		anomaly: [2]float64{1.3, 3.0}, score: [2]float64{0.8, 1.0},
		zones:       []string{"tropical", "temperate", "boreal"},
		vegetations: []string{"tropical_forest", "temperate_forest", "mixed_forest"},
	},
	{
		tier: domain.TierMedium, co2: [2]float64{410, 425}, biomass: [2]float64{35, 60},
		anomaly: [2]float64{0.8, 1.4}, score: [2]float64{0.5, 0.7},
		zones:       []string{"temperate", "mediterranean", "boreal"},
		vegetations: []string{"grassland", "temperate_forest", "boreal_forest"},
	},
	{
		tier: domain.TierLow, co2: [2]float64{380, 415}, biomass: [2]float64{5, 35},
		anomaly: [2]float64{0.1, 2.5}, score: [2]float64{0.1, 0.4},
		zones:       []string{"desert", "arctic", "mediterranean"},
		vegetations: []string{"desert", "tundra", "grassland"},
	},
}

var syntheticTypes = []string{"biochar", "DAC", "afforestation", "enhanced_weathering"}

// syntheticEpoch anchors generated observation dates.
var syntheticEpoch = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

// SyntheticSamples generates n labelled samples in three well-separated
// suitability bands, cycling high, medium, low. The same seed always yields the
// same samples.
func SyntheticSamples(seed uint64, n int) []Sample {
	rng := rand.New(rand.NewPCG(seed, 0x5eed))
	between := func(r [2]float64) float64 { return r[0] + rng.Float64()*(r[1]-r[0]) }
	pick := func(xs []string) string { return xs[rng.IntN(len(xs))] }

	out := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		b := bands[i%len(bands)]
		obs := domain.NewObservation(between([2]float64{-60, 70}), between([2]float64{-180, 180}))
		obs.CO2Concentration = between(b.co2)
		obs.BiomassDensity = between(b.biomass)
		obs.TemperatureAnomaly = between(b.anomaly)
		obs.Temperature = domain.DefaultTemperature + rng.NormFloat64()*8
		obs.Humidity = between([2]float64{20, 90})
		obs.Pressure = domain.DefaultPressure + rng.NormFloat64()*5
		obs.WindSpeed = between([2]float64{0, 15})
		obs.Precipitation = between([2]float64{0, 200})
		obs.CarbonStoragePotential = obs.BiomassDensity * between([2]float64{0.4, 0.6})
		obs.CostPerTonne = between([2]float64{50, 300})
		obs.ClimateZone = pick(b.zones)
		obs.VegetationType = pick(b.vegetations)
		obs.InterventionType = pick(syntheticTypes)
		obs.ObservedAt = syntheticEpoch.AddDate(0, 0, rng.IntN(365))

		out = append(out, Sample{
			Observation:       obs,
			CO2Reduction:      0.1*(obs.CO2Concentration-400) + 0.02*obs.BiomassDensity + rng.NormFloat64()*0.2,
			TemperatureChange: -0.35*obs.TemperatureAnomaly + rng.NormFloat64()*0.05,
			Suitability:       b.tier,
			ImpactScore:       between(b.score),
		})
	}
	return out
}
