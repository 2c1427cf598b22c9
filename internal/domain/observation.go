package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Neutral defaults applied to any observation field the source leaves unset.
const (
	DefaultTemperature          = 15.0
	DefaultTemperatureAnomaly   = 0.0
	DefaultCO2Concentration     = 415.0
	DefaultMethaneConcentration = 1900.0
	DefaultHumidity             = 50.0
	DefaultPressure             = 1013.0
	DefaultWindSpeed            = 5.0
	DefaultPrecipitation        = 0.0
	DefaultAerosolOpticalDepth  = 0.1
	DefaultSolarIrradiance      = 1000.0
	DefaultAlbedo               = 0.3
	DefaultBiomassDensity       = 0.0
	DefaultCarbonStorage        = 0.0
	DefaultCostPerTonne         = 100.0

	DefaultInterventionType = "unknown"
	DefaultVegetationType   = "unknown"
	DefaultClimateZone      = "temperate"
)

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ClimateObservation is a fully-populated climate record for one site and time.
// Construct it with NewObservation or ObservationRecord.Observation so that unset
// fields carry the documented neutral defaults instead of Go zero values.
type ClimateObservation struct {
	Geo Geo `json:"geo"`

	Temperature          float64 `json:"temperature"`
	TemperatureAnomaly   float64 `json:"temperature_anomaly"`
	CO2Concentration     float64 `json:"co2_concentration"`
	MethaneConcentration float64 `json:"methane_concentration"`
	Humidity             float64 `json:"humidity"`
	Pressure             float64 `json:"pressure"`
	WindSpeed            float64 `json:"wind_speed"`
	Precipitation        float64 `json:"precipitation"`
	AerosolOpticalDepth  float64 `json:"aerosol_optical_depth"`
	SolarIrradiance      float64 `json:"solar_irradiance"`
	Albedo               float64 `json:"albedo"`

	BiomassDensity         float64 `json:"biomass_density"`
	CarbonStoragePotential float64 `json:"carbon_storage_potential"`

	TemperatureTrend   float64 `json:"temperature_trend"`
	CO2Trend           float64 `json:"co2_trend"`
	PrecipitationTrend float64 `json:"precipitation_trend"`

	CostPerTonne float64 `json:"cost_per_tonne"`

	InterventionType string `json:"intervention_type,omitempty"`
	VegetationType   string `json:"vegetation_type,omitempty"`
	ClimateZone      string `json:"climate_zone,omitempty"`

	ObservedAt time.Time `json:"observed_at"`
}

// NewObservation returns an observation at the given coordinates with every other
// field set to its neutral default. ObservedAt is left zero; callers stamp it.
func NewObservation(lat, lon float64) ClimateObservation {
	return ClimateObservation{
		Geo:                    Geo{Lat: lat, Lon: lon},
		Temperature:            DefaultTemperature,
		TemperatureAnomaly:     DefaultTemperatureAnomaly,
		CO2Concentration:       DefaultCO2Concentration,
		MethaneConcentration:   DefaultMethaneConcentration,
		Humidity:               DefaultHumidity,
		Pressure:               DefaultPressure,
		WindSpeed:              DefaultWindSpeed,
		Precipitation:          DefaultPrecipitation,
		AerosolOpticalDepth:    DefaultAerosolOpticalDepth,
		SolarIrradiance:        DefaultSolarIrradiance,
		Albedo:                 DefaultAlbedo,
		BiomassDensity:         DefaultBiomassDensity,
		CarbonStoragePotential: DefaultCarbonStorage,
		CostPerTonne:           DefaultCostPerTonne,
	}
}

// Validate reports ErrInvalidObservation when coordinates are out of range or any
// numeric field is non-finite. Humidity must lie in [0, 100] and biomass density
// must be non-negative because the interaction features assume both.
func (o ClimateObservation) Validate() error {
	if !finite(o.Geo.Lat) || o.Geo.Lat < -90 || o.Geo.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidObservation, o.Geo.Lat)
	}
	if !finite(o.Geo.Lon) || o.Geo.Lon < -180 || o.Geo.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidObservation, o.Geo.Lon)
	}
	for _, f := range o.numericFields() {
		if !finite(f.value) {
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidObservation, f.name)
		}
	}
	if o.Humidity < 0 || o.Humidity > 100 {
		return fmt.Errorf("%w: humidity %v outside [0, 100]", ErrInvalidObservation, o.Humidity)
	}
	if o.BiomassDensity < 0 {
		return fmt.Errorf("%w: biomass density %v is negative", ErrInvalidObservation, o.BiomassDensity)
	}
	return nil
}

// WithInterventionType returns a copy of the observation with the categorical
// intervention type replaced.
func (o ClimateObservation) WithInterventionType(t string) ClimateObservation {
	o.InterventionType = t
	return o
}

type namedValue struct {
	name  string
	value float64
}

func (o ClimateObservation) numericFields() []namedValue {
	return []namedValue{
		{"temperature", o.Temperature},
		{"temperature_anomaly", o.TemperatureAnomaly},
		{"co2_concentration", o.CO2Concentration},
		{"methane_concentration", o.MethaneConcentration},
		{"humidity", o.Humidity},
		{"pressure", o.Pressure},
		{"wind_speed", o.WindSpeed},
		{"precipitation", o.Precipitation},
		{"aerosol_optical_depth", o.AerosolOpticalDepth},
		{"solar_irradiance", o.SolarIrradiance},
		{"albedo", o.Albedo},
		{"biomass_density", o.BiomassDensity},
		{"carbon_storage_potential", o.CarbonStoragePotential},
		{"temperature_trend", o.TemperatureTrend},
		{"co2_trend", o.CO2Trend},
		{"precipitation_trend", o.PrecipitationTrend},
		{"cost_per_tonne", o.CostPerTonne},
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ObservationRecord is the wire form of an observation as delivered by upstream
// collectors. Every numeric field is optional; absent fields resolve to the
// neutral defaults in Observation.
type ObservationRecord struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	Temperature          *float64 `json:"temperature"`
	TemperatureAnomaly   *float64 `json:"temperature_anomaly"`
	CO2Concentration     *float64 `json:"co2_concentration"`
	MethaneConcentration *float64 `json:"methane_concentration"`
	Humidity             *float64 `json:"humidity"`
	Pressure             *float64 `json:"pressure"`
	WindSpeed            *float64 `json:"wind_speed"`
	Precipitation        *float64 `json:"precipitation"`
	AerosolOpticalDepth  *float64 `json:"aerosol_optical_depth"`
	SolarIrradiance      *float64 `json:"solar_irradiance"`
	Albedo               *float64 `json:"albedo"`

	BiomassDensity         *float64 `json:"biomass_density"`
	CarbonStoragePotential *float64 `json:"carbon_storage_potential"`

	TemperatureTrend   *float64 `json:"temperature_trend"`
	CO2Trend           *float64 `json:"co2_trend"`
	PrecipitationTrend *float64 `json:"precipitation_trend"`

	CostPerTonne *float64 `json:"cost_per_tonne"`

	InterventionType string `json:"intervention_type,omitempty"`
	VegetationType   string `json:"vegetation_type,omitempty"`
	ClimateZone      string `json:"climate_zone,omitempty"`

	ObservedAt *time.Time `json:"observed_at,omitempty"`
}

// HasLocation reports whether both coordinates were supplied.
func (r ObservationRecord) HasLocation() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Observation resolves the record into a ClimateObservation, substituting the
// neutral default for every absent field. Missing coordinates resolve to 0,0.
func (r ObservationRecord) Observation() ClimateObservation {
	obs := NewObservation(orDefault(r.Latitude, 0), orDefault(r.Longitude, 0))

	obs.Temperature = orDefault(r.Temperature, DefaultTemperature)
	obs.TemperatureAnomaly = orDefault(r.TemperatureAnomaly, DefaultTemperatureAnomaly)
	obs.CO2Concentration = orDefault(r.CO2Concentration, DefaultCO2Concentration)
	obs.MethaneConcentration = orDefault(r.MethaneConcentration, DefaultMethaneConcentration)
	obs.Humidity = orDefault(r.Humidity, DefaultHumidity)
	obs.Pressure = orDefault(r.Pressure, DefaultPressure)
	obs.WindSpeed = orDefault(r.WindSpeed, DefaultWindSpeed)
	obs.Precipitation = orDefault(r.Precipitation, DefaultPrecipitation)
	obs.AerosolOpticalDepth = orDefault(r.AerosolOpticalDepth, DefaultAerosolOpticalDepth)
	obs.SolarIrradiance = orDefault(r.SolarIrradiance, DefaultSolarIrradiance)
	obs.Albedo = orDefault(r.Albedo, DefaultAlbedo)
	obs.BiomassDensity = orDefault(r.BiomassDensity, DefaultBiomassDensity)
	obs.CarbonStoragePotential = orDefault(r.CarbonStoragePotential, DefaultCarbonStorage)
	obs.TemperatureTrend = orDefault(r.TemperatureTrend, 0)
	obs.CO2Trend = orDefault(r.CO2Trend, 0)
	obs.PrecipitationTrend = orDefault(r.PrecipitationTrend, 0)
	obs.CostPerTonne = orDefault(r.CostPerTonne, DefaultCostPerTonne)

	obs.InterventionType = r.InterventionType
	obs.VegetationType = r.VegetationType
	obs.ClimateZone = r.ClimateZone
	if r.ObservedAt != nil {
		obs.ObservedAt = r.ObservedAt.UTC()
	}
	return obs
}

// Record returns the wire form of o with every field set.
func (o ClimateObservation) Record() ObservationRecord {
	ptr := func(v float64) *float64 { return &v }
	rec := ObservationRecord{
		Latitude:               ptr(o.Geo.Lat),
		Longitude:              ptr(o.Geo.Lon),
		Temperature:            ptr(o.Temperature),
		TemperatureAnomaly:     ptr(o.TemperatureAnomaly),
		CO2Concentration:       ptr(o.CO2Concentration),
		MethaneConcentration:   ptr(o.MethaneConcentration),
		Humidity:               ptr(o.Humidity),
		Pressure:               ptr(o.Pressure),
		WindSpeed:              ptr(o.WindSpeed),
		Precipitation:          ptr(o.Precipitation),
		AerosolOpticalDepth:    ptr(o.AerosolOpticalDepth),
		SolarIrradiance:        ptr(o.SolarIrradiance),
		Albedo:                 ptr(o.Albedo),
		BiomassDensity:         ptr(o.BiomassDensity),
		CarbonStoragePotential: ptr(o.CarbonStoragePotential),
		TemperatureTrend:       ptr(o.TemperatureTrend),
		CO2Trend:               ptr(o.CO2Trend),
		PrecipitationTrend:     ptr(o.PrecipitationTrend),
		CostPerTonne:           ptr(o.CostPerTonne),
		InterventionType:       o.InterventionType,
		VegetationType:         o.VegetationType,
		ClimateZone:            o.ClimateZone,
	}
	if !o.ObservedAt.IsZero() {
		t := o.ObservedAt
		rec.ObservedAt = &t
	}
	return rec
}

// ParseObservation decodes an observation record from JSON. Records without both
// coordinates are rejected with ErrInvalidObservation; every other field is optional.
// A record without a timestamp is stamped with the package clock.
func ParseObservation(data []byte) (ClimateObservation, error) {
	var rec ObservationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return ClimateObservation{}, fmt.Errorf("parse observation: %w", err)
	}
	if !rec.HasLocation() {
		return ClimateObservation{}, fmt.Errorf("%w: latitude and longitude are required", ErrInvalidObservation)
	}

	obs := rec.Observation()
	if obs.ObservedAt.IsZero() {
		obs.ObservedAt = clock.Now().UTC()
	}
	if err := obs.Validate(); err != nil {
		return ClimateObservation{}, err
	}
	return obs, nil
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
