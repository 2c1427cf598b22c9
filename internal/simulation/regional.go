package simulation

import "math"

// Major urban and industrial centres that boost effectiveness within 5°.
var urbanCentres = [...][2]float64{
	{40.7, -74},   // New York
	{34.0, -118},  // Los Angeles
	{51.5, -0.1},  // London
	{35.7, 139.7}, // Tokyo
	{39.9, 116.4}, // Beijing
}

const urbanRadiusDeg = 5.0

// RegionalMultiplier scales base effectiveness by latitude band, longitude band
// and proximity to an urban centre.
func RegionalMultiplier(lat, lon float64) float64 {
	m := 1.0
	switch absLat := math.Abs(lat); {
	case absLat < 10:
		m *= 1.2
	case absLat < 30:
		m *= 1.1
	case absLat > 60:
		m *= 0.8
	}
	switch absLon := math.Abs(lon); {
	case absLon < 60:
	case absLon < 120:
		m *= 1.1
	default:
		m *= 0.9
	}
	for _, c := range urbanCentres {
		if math.Hypot(lat-c[0], lon-c[1]) < urbanRadiusDeg {
			m *= 1.3
			break
		}
	}
	return m
}
