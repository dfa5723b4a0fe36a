package stats

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Summary holds the motion statistics derived from a sample sequence.
type Summary struct {
	Samples         int     `json:"samples"`
	DistanceKm      float64 `json:"distance_km"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
	AvgSpeedKmh     float64 `json:"avg_speed_kmh"`
	CurrentSpeedKmh float64 `json:"current_speed_kmh"`
}

// RunStats is the stored summary of a finished recording.
type RunStats struct {
	RunID           string    `json:"run_id"`
	Summary         Summary   `json:"summary"`
	GapCount        int       `json:"gap_count"`
	GapTotalSeconds int       `json:"gap_total_seconds"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Format renders the statistics block shown next to the map.
func Format(s Summary) string {
	minutes := int(math.Floor(s.ElapsedSeconds / 60))
	seconds := int(math.Floor(math.Mod(s.ElapsedSeconds, 60)))

	lines := []string{
		fmt.Sprintf("Distance: %.2f km", s.DistanceKm),
		fmt.Sprintf("Time: %dm %ds", minutes, seconds),
		fmt.Sprintf("Avg Speed: %.2f km/h", s.AvgSpeedKmh),
		fmt.Sprintf("Current Speed: %.2f km/h", s.CurrentSpeedKmh),
	}
	return strings.Join(lines, "\n")
}
