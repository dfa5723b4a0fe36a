// Package netinfo reports the quality of the device's network link.
package netinfo

import (
	"context"
	"fmt"
	"time"
)

// PoorDownlinkMbps is the downlink below which a link counts as poor.
const PoorDownlinkMbps = 0.5

// Info is one connectivity reading. DownlinkMbps is nil when the source
// could not measure throughput.
type Info struct {
	EffectiveType string        `json:"effective_type"`
	DownlinkMbps  *float64      `json:"downlink_mbps,omitempty"`
	RTT           time.Duration `json:"rtt,omitempty"`
}

// Poor reports whether the downlink is missing, zero or below
// PoorDownlinkMbps.
func (i Info) Poor() bool {
	return i.DownlinkMbps == nil || *i.DownlinkMbps < PoorDownlinkMbps
}

// Status renders the network status line for a reading.
func (i Info) Status() string {
	s := fmt.Sprintf("Network: %s", i.EffectiveType)
	if i.Poor() {
		s += " (Poor connection)"
	}
	return s
}

// UnknownStatus is shown when no connectivity source is available.
const UnknownStatus = "Network: Unknown"

// Mbps is a convenience for building readings.
func Mbps(v float64) *float64 { return &v }

// Source provides connectivity readings. Current returns false when no
// reading is available yet. Subscribe calls fn on every change until ctx is
// done.
type Source interface {
	Current() (Info, bool)
	Subscribe(ctx context.Context, fn func(Info))
}

// Classify maps a measured round trip time and downlink to the effective
// connection types used by the NetInfo API. A zero rtt or a nil downlink is
// ignored for that dimension.
func Classify(rtt time.Duration, downlinkMbps *float64) string {
	switch {
	case rtt >= 2000*time.Millisecond || below(downlinkMbps, 0.05):
		return "slow-2g"
	case rtt >= 1400*time.Millisecond || below(downlinkMbps, 0.07):
		return "2g"
	case rtt >= 270*time.Millisecond || below(downlinkMbps, 0.7):
		return "3g"
	default:
		return "4g"
	}
}

func below(v *float64, limit float64) bool {
	return v != nil && *v <= limit
}
