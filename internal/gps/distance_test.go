package gps

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

func TestHaversine_SymmetricAndZeroOnSelf(t *testing.T) {
	points := []Sample{
		{Lat: 52.0, Lon: 4.0},
		{Lat: 52.0009, Lon: 4.0},
		{Lat: -33.8688, Lon: 151.2093},
		{Lat: 40.7128, Lon: -74.006},
		{Lat: 0, Lon: 179.9999},
		{Lat: 0, Lon: -179.9999},
	}

	for _, a := range points {
		assert.Equal(t, 0.0, Haversine(a, a))
		for _, b := range points {
			assert.Equal(t, Haversine(a, b), Haversine(b, a), "haversine(%v, %v)", a, b)
		}
	}
}

func TestHaversine_KnownDistance(t *testing.T) {
	// Amsterdam Centraal to Rotterdam Centraal, roughly 57 km.
	d := Haversine(Sample{Lat: 52.3791, Lon: 4.9003}, Sample{Lat: 51.9244, Lon: 4.4695})
	if d < 56 || d > 59 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func TestHaversine_MatchesReferenceFormula(t *testing.T) {
	a := Sample{Lat: 52.0, Lon: 4.0}
	b := Sample{Lat: 52.0009, Lon: 4.0}

	dLat := (b.Lat - a.Lat) * math.Pi / 180
	h := math.Pow(math.Sin(dLat/2), 2)
	want := 6371 * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	assert.InDelta(t, want, Haversine(a, b), 1e-15)
	assert.InDelta(t, 0.1000754, Haversine(a, b), 1e-6)
}

func TestDistance_SumsConsecutivePairs(t *testing.T) {
	samples := []Sample{
		{Lat: 52.0, Lon: 4.0, Time: base},
		{Lat: 52.001, Lon: 4.0, Time: base.Add(10 * time.Second)},
		{Lat: 52.0, Lon: 4.0, Time: base.Add(20 * time.Second)},
		{Lat: 52.0, Lon: 4.002, Time: base.Add(30 * time.Second)},
	}

	var want float64
	for i := 1; i < len(samples); i++ {
		want += Haversine(samples[i-1], samples[i])
	}

	assert.Equal(t, want, Distance(samples))
	// An out-and-back leg must count both ways.
	assert.Greater(t, Distance(samples), Haversine(samples[0], samples[len(samples)-1]))
}

func TestDistance_Degenerate(t *testing.T) {
	assert.Equal(t, 0.0, Distance(nil))
	assert.Equal(t, 0.0, Distance([]Sample{{Lat: 1, Lon: 1, Time: base}}))
	assert.Equal(t, 0.0, Elapsed([]Sample{{Lat: 1, Lon: 1, Time: base}}))
	assert.Equal(t, 0.0, AverageSpeed(nil))
	assert.Equal(t, 0.0, CurrentSpeed([]Sample{{Lat: 1, Lon: 1, Time: base}}))
}

func TestAverageSpeed_ZeroElapsed(t *testing.T) {
	samples := []Sample{
		{Lat: 52.0, Lon: 4.0, Time: base},
		{Lat: 52.1, Lon: 4.1, Time: base},
	}
	require.Greater(t, Distance(samples), 0.0)
	assert.Equal(t, 0.0, AverageSpeed(samples))
	assert.Equal(t, 0.0, CurrentSpeed(samples))
}

func TestCompute_SingleIntervalScenario(t *testing.T) {
	samples := []Sample{
		{Lat: 52.0000, Lon: 4.0000, Time: base},
		{Lat: 52.0009, Lon: 4.0000, Time: base.Add(60 * time.Second)},
	}

	got := Compute(samples)
	dist := Haversine(samples[0], samples[1])

	assert.Equal(t, 2, got.Samples)
	assert.Equal(t, dist, got.DistanceKm)
	assert.InDelta(t, 0.1, got.DistanceKm, 0.01)
	assert.Equal(t, 60.0, got.ElapsedSeconds)
	assert.Equal(t, dist/(60.0/3600), got.AvgSpeedKmh)
	assert.InDelta(t, got.AvgSpeedKmh, got.CurrentSpeedKmh, 1e-9)
}

func TestCurrentSpeed_UsesLastPairOnly(t *testing.T) {
	samples := []Sample{
		{Lat: 52.0, Lon: 4.0, Time: base},
		{Lat: 52.01, Lon: 4.0, Time: base.Add(time.Minute)},
		{Lat: 52.0101, Lon: 4.0, Time: base.Add(2 * time.Minute)},
	}

	want := Haversine(samples[1], samples[2]) / (60.0 / 3600)
	assert.InDelta(t, want, CurrentSpeed(samples), 1e-9)
	assert.Less(t, CurrentSpeed(samples), AverageSpeed(samples))
}
