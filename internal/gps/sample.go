package gps

import "time"

// Sample is one accepted position fix.
type Sample struct {
	Lat  float64
	Lon  float64
	Time time.Time
}

// Track is the append-only sample store of a session. Samples keep the order
// they were appended in; callers are expected to append in non-decreasing
// time order.
type Track struct {
	samples []Sample
}

func (t *Track) Append(s Sample) {
	t.samples = append(t.samples, s)
}

// Samples returns the stored samples. The returned slice has its capacity
// clipped so appending to it never writes into the track.
func (t *Track) Samples() []Sample {
	return t.samples[:len(t.samples):len(t.samples)]
}

func (t *Track) Len() int {
	return len(t.samples)
}

func (t *Track) Last() (Sample, bool) {
	if len(t.samples) == 0 {
		return Sample{}, false
	}
	return t.samples[len(t.samples)-1], true
}

func (t *Track) Reset() {
	t.samples = nil
}
