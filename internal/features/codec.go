// Package features converts climate observations into the fixed-length numeric
// vectors consumed by the suitability and impact models.
package features

import (
	"math"

	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
)

// Width is the number of features in a Vector.
const Width = 29

// Feature indices, in vector order.
const (
	Latitude = iota
	Longitude
	AbsLatitude

	Temperature
	TemperatureAnomaly
	CO2Concentration
	Humidity
	Pressure
	WindSpeed
	Precipitation
	AerosolOpticalDepth
	SolarIrradiance
	Albedo

	BiomassDensity
	CarbonStoragePotential

	TemperatureTrend
	CO2Trend
	PrecipitationTrend

	CO2Excess
	BiomassAnomaly
	CO2ExcessBiomass
	HumidityBiomass

	Month
	Day
	SeasonSin
	SeasonCos

	InterventionTypeCode
	VegetationTypeCode
	ClimateZoneCode
)

// Names labels each vector position.
var Names = [Width]string{
	"latitude", "longitude", "abs_latitude",
	"temperature", "temperature_anomaly", "co2_concentration", "humidity", "pressure",
	"wind_speed", "precipitation", "aerosol_optical_depth", "solar_irradiance", "albedo",
	"biomass_density", "carbon_storage_potential",
	"temperature_trend", "co2_trend", "precipitation_trend",
	"co2_excess", "biomass_x_anomaly", "co2_excess_x_biomass", "humidity_x_biomass",
	"month", "day", "season_sin", "season_cos",
	"intervention_type_code", "vegetation_type_code", "climate_zone_code",
}

// MonotoneIncreasing lists the features that never decrease when CO2, biomass
// or temperature anomaly increase with everything else held fixed. Humidity and
// biomass are non-negative for valid observations, so the products qualify.
var MonotoneIncreasing = []int{
	TemperatureAnomaly, CO2Concentration, BiomassDensity,
	CO2Excess, CO2ExcessBiomass, HumidityBiomass,
}

// NonMonotone lists derived features whose direction depends on the sign of
// another input: biomass×anomaly falls with biomass when the anomaly is negative.
var NonMonotone = []int{BiomassAnomaly}

// co2Baseline is the level above which CO2 counts as excess, in ppm.
const co2Baseline = 400.0

// Vector is a fixed-order feature vector.
type Vector [Width]float64

// Slice returns a copy of the vector as a slice.
func (v Vector) Slice() []float64 {
	out := make([]float64, Width)
	copy(out, v[:])
	return out
}

// Codec encodes observations against a fixed encoding table.
type Codec struct {
	table *EncodingTable
}

// NewCodec creates a Codec. A nil table uses the embedded enumeration.
func NewCodec(table *EncodingTable) *Codec {
	if table == nil {
		table = DefaultTable()
	}
	return &Codec{table: table}
}

// Table returns the encoding table the codec was built with.
func (c *Codec) Table() *EncodingTable { return c.table }

// Encode converts an observation into a Vector. It is pure: the seasonal
// features come from obs.ObservedAt, never from the wall clock. Empty
// categoricals take their neutral default; values outside the enumeration fail
// with domain.ErrUnknownCategory.
func (c *Codec) Encode(obs domain.ClimateObservation) (Vector, error) {
	var v Vector

	interventionCode, err := c.table.Code(FieldInterventionType, orDefault(obs.InterventionType, domain.DefaultInterventionType))
	if err != nil {
		return v, err
	}
	vegetationCode, err := c.table.Code(FieldVegetationType, orDefault(obs.VegetationType, domain.DefaultVegetationType))
	if err != nil {
		return v, err
	}
	zoneCode, err := c.table.Code(FieldClimateZone, orDefault(obs.ClimateZone, domain.DefaultClimateZone))
	if err != nil {
		return v, err
	}

	v[Latitude] = obs.Geo.Lat
	v[Longitude] = obs.Geo.Lon
	v[AbsLatitude] = math.Abs(obs.Geo.Lat)

	v[Temperature] = obs.Temperature
	v[TemperatureAnomaly] = obs.TemperatureAnomaly
	v[CO2Concentration] = obs.CO2Concentration
	v[Humidity] = obs.Humidity
	v[Pressure] = obs.Pressure
	v[WindSpeed] = obs.WindSpeed
	v[Precipitation] = obs.Precipitation
	v[AerosolOpticalDepth] = obs.AerosolOpticalDepth
	v[SolarIrradiance] = obs.SolarIrradiance
	v[Albedo] = obs.Albedo

	v[BiomassDensity] = obs.BiomassDensity
	v[CarbonStoragePotential] = obs.CarbonStoragePotential

	v[TemperatureTrend] = obs.TemperatureTrend
	v[CO2Trend] = obs.CO2Trend
	v[PrecipitationTrend] = obs.PrecipitationTrend

	excess := math.Max(0, obs.CO2Concentration-co2Baseline)
	v[CO2Excess] = excess
	v[BiomassAnomaly] = obs.BiomassDensity * obs.TemperatureAnomaly
	v[CO2ExcessBiomass] = excess * obs.BiomassDensity
	v[HumidityBiomass] = obs.Humidity * obs.BiomassDensity / 100

	at := obs.ObservedAt.UTC()
	yday := float64(at.YearDay())
	v[Month] = float64(at.Month())
	v[Day] = float64(at.Day())
	v[SeasonSin] = math.Sin(2 * math.Pi * yday / 365)
	v[SeasonCos] = math.Cos(2 * math.Pi * yday / 365)

	v[InterventionTypeCode] = float64(interventionCode)
	v[VegetationTypeCode] = float64(vegetationCode)
	v[ClimateZoneCode] = float64(zoneCode)

	return v, nil
}

// EncodeAll encodes a batch of observations, stopping at the first failure.
func (c *Codec) EncodeAll(obs []domain.ClimateObservation) ([]Vector, error) {
	out := make([]Vector, len(obs))
	for i := range obs {
		v, err := c.Encode(obs[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
