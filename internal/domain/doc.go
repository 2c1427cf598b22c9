// Package domain models climate observations and the decision-support results
// derived from them.
//
// # Observations
//
// Observations arrive from upstream collectors as flat JSON with every numeric
// field optional. Only latitude and longitude are required. Absent fields never
// propagate into the models as zero or null; they resolve to a neutral constant:
//
//	temperature              15 °C
//	temperature_anomaly      0 °C
//	co2_concentration        415 ppm
//	methane_concentration    1900 ppb
//	humidity                 50 %
//	pressure                 1013 hPa
//	wind_speed               5 m/s
//	precipitation            0 mm
//	aerosol_optical_depth    0.1
//	solar_irradiance         1000 W/m²
//	albedo                   0.3
//	biomass_density          0 t/ha
//	carbon_storage_potential 0
//	*_trend                  0
//	cost_per_tonne           100
//
// Categorical fields default to intervention_type "unknown", vegetation_type
// "unknown" and climate_zone "temperate". Their values must belong to the fixed
// encoding enumeration; anything else fails with [ErrUnknownCategory].
//
// # Timestamps
//
// ObservedAt drives the seasonal features. Records without one are stamped
// from the package clock when parsed, see [SetClock].
//
// # Results
//
// Suitability tiers are ordered low < medium < high ([Tier.Rank]). Rankings
// are sorted by descending impact score with ties broken by ascending type name.
// Deployment plans never spend more than their budget; a budget that cannot
// afford any candidate yields an empty plan flagged Infeasible rather than an
// error. Results computed without a fitted model, or after a model failure,
// carry FallbackUsed.
//
// # ID Generation
//
// Recommendation IDs are truncated SHA-256 hashes of location and observation
// time so that replays of the same observation produce the same key.
package domain
