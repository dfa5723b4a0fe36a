package gps

import (
	"math"

	"smartjogger/internal/stats"
)

// EarthRadiusKm is the sphere radius used for every distance in the tracker.
const EarthRadiusKm = 6371

// Haversine returns the great-circle distance between a and b in kilometers.
func Haversine(a, b Sample) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat + math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*sinLon*sinLon
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Distance sums the haversine distance of every consecutive pair, in km.
func Distance(samples []Sample) float64 {
	var dist float64
	for i := 1; i < len(samples); i++ {
		dist += Haversine(samples[i-1], samples[i])
	}
	return dist
}

// Elapsed returns the seconds between the first and the last sample.
func Elapsed(samples []Sample) float64 {
	if len(samples) < 2 {
		return 0
	}
	return float64(millisBetween(samples[0], samples[len(samples)-1])) / 1000
}

// AverageSpeed returns Distance over Elapsed in km/h, or 0 when no time has
// passed.
func AverageSpeed(samples []Sample) float64 {
	elapsed := Elapsed(samples)
	if elapsed <= 0 {
		return 0
	}
	return Distance(samples) / (elapsed / 3600)
}

// CurrentSpeed returns the speed over the last pair of samples in km/h.
func CurrentSpeed(samples []Sample) float64 {
	if len(samples) < 2 {
		return 0
	}
	prev := samples[len(samples)-2]
	last := samples[len(samples)-1]
	hours := float64(millisBetween(prev, last)) / 3600 / 1000
	if hours <= 0 {
		return 0
	}
	return Haversine(prev, last) / hours
}

// Compute recomputes every statistic from the full sample sequence.
func Compute(samples []Sample) stats.Summary {
	return stats.Summary{
		Samples:         len(samples),
		DistanceKm:      Distance(samples),
		ElapsedSeconds:  Elapsed(samples),
		AvgSpeedKmh:     AverageSpeed(samples),
		CurrentSpeedKmh: CurrentSpeed(samples),
	}
}

func millisBetween(from, to Sample) int64 {
	return to.Time.UnixMilli() - from.Time.UnixMilli()
}
