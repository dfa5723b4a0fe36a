package netinfo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Probe measures the link by downloading URL every Interval and timing it.
type Probe struct {
	URL      string
	Interval time.Duration
	Client   *http.Client

	mu      sync.Mutex
	current Info
	known   bool
}

func (p *Probe) Current() (Info, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.known
}

// Subscribe measures immediately and then on every tick, calling fn when the
// reading changes.
func (p *Probe) Subscribe(ctx context.Context, fn func(Info)) {
	interval := p.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		for {
			info, err := p.Measure(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("network probe failed", "url", p.URL, "error", err)
			}
			if p.store(info) {
				fn(info)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
		}
	}()
}

// Measure performs one probe. A failed probe yields a reading without a
// downlink so that it counts as poor.
func (p *Probe) Measure(ctx context.Context) (Info, error) {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return Info{EffectiveType: "none"}, fmt.Errorf("build request: %w", err)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return Info{EffectiveType: "none"}, fmt.Errorf("probe: %w", err)
	}
	defer resp.Body.Close()
	rtt := time.Since(start)

	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return Info{EffectiveType: "none"}, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Info{EffectiveType: "none"}, fmt.Errorf("probe status %d", resp.StatusCode)
	}
	total := time.Since(start)

	var downlink *float64
	if n > 0 && total > 0 {
		downlink = Mbps(float64(n) * 8 / 1e6 / total.Seconds())
	}
	return Info{
		EffectiveType: Classify(rtt, downlink),
		DownlinkMbps:  downlink,
		RTT:           rtt,
	}, nil
}

func (p *Probe) store(info Info) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	changed := !p.known || !sameReading(p.current, info)
	p.current = info
	p.known = true
	return changed
}

func sameReading(a, b Info) bool {
	if a.EffectiveType != b.EffectiveType || a.Poor() != b.Poor() {
		return false
	}
	return true
}
