package gps

import "time"

// Gap is a stretch of a recorded run with no samples for at least the stop
// threshold. Each gap corresponds to one stop alert during the live run.
type Gap struct {
	Lat      float64
	Lon      float64
	Start    time.Time
	Duration time.Duration
}

// DetectGaps finds every interval of at least threshold between consecutive
// samples. When end is set, the silence between the last sample and end is
// considered as well.
func DetectGaps(samples []Sample, end time.Time, threshold time.Duration) []Gap {
	if len(samples) == 0 || threshold <= 0 {
		return nil
	}

	var gaps []Gap
	for i := 1; i < len(samples); i++ {
		prev := samples[i-1]
		if d := samples[i].Time.Sub(prev.Time); d >= threshold {
			gaps = append(gaps, Gap{Lat: prev.Lat, Lon: prev.Lon, Start: prev.Time, Duration: d})
		}
	}

	last := samples[len(samples)-1]
	if !end.IsZero() {
		if d := end.Sub(last.Time); d >= threshold {
			gaps = append(gaps, Gap{Lat: last.Lat, Lon: last.Lon, Start: last.Time, Duration: d})
		}
	}

	return gaps
}
