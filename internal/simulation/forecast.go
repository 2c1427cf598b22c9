package simulation

import (
	"math"

	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
)

// Baseline trends applied by Forecast.
const (
	WarmingTrendPerMonth = 0.02 // °C
	CO2TrendPerMonth     = 0.2  // ppm

	baselineCO2 = 415.0
)

// Forecast projects the no-intervention climate at site for the given number
// of months: a latitude-dependent base temperature with a warming trend and a
// ±5 °C seasonal swing, and CO2 rising from 415 ppm.
func (s *Simulator) Forecast(site domain.Geo, months int) (domain.RegionalForecast, error) {
	if err := validate(site, months); err != nil {
		return domain.RegionalForecast{}, err
	}
	baseTemp := 15 - 0.6*math.Abs(site.Lat)

	f := domain.RegionalForecast{
		Site:                        site,
		Months:                      make([]domain.ForecastMonth, months),
		WarmingTrendCelsiusPerMonth: WarmingTrendPerMonth,
		CO2TrendPPMPerMonth:         CO2TrendPerMonth,
		WarmingRateCelsiusPerDecade: WarmingTrendPerMonth * 12 * 10,
		GeneratedAt:                 domain.Now(),
	}
	for m := 0; m < months; m++ {
		month := float64(m)
		temp := baseTemp + WarmingTrendPerMonth*month + 5*math.Sin(2*math.Pi*month/12) + s.noise.Normal(1)
		co2 := baselineCO2 + CO2TrendPerMonth*month + s.noise.Normal(2)
		f.Months[m] = domain.ForecastMonth{
			Month:              m + 1,
			TemperatureCelsius: temp,
			CO2PPM:             co2,
			TemperatureAnomaly: temp - baseTemp,
			Confidence:         math.Max(0.8, 1-0.05*month),
		}
	}
	return f, nil
}
