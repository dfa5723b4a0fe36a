package scenario

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartjogger/internal/netinfo"
	"smartjogger/internal/sensor"
)

const script = `
positions:
  - lat: 52.0
    lon: 4.0
  - lat: 52.0009
    lon: 4.0
    after: 5ms
  - error: User denied Geolocation
network:
  - effective_type: 3g
    downlink_mbps: 0.3
  - effective_type: 4g
    downlink_mbps: 5
    after: 5ms
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(script))
	require.NoError(t, err)
	require.Len(t, s.Positions, 3)
	assert.Equal(t, 5*time.Millisecond, s.Positions[1].After)
	assert.Equal(t, "User denied Geolocation", s.Positions[2].Error)
	require.Len(t, s.Network, 2)
	require.NotNil(t, s.Network[0].DownlinkMbps)
	assert.Equal(t, 0.3, *s.Network[0].DownlinkMbps)
}

func TestParseRejectsBadCoordinate(t *testing.T) {
	_, err := Parse([]byte("positions:\n  - lat: 95\n    lon: 4\n"))
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o644))
	s, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, s.Positions, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatchPlaysSteps(t *testing.T) {
	s, err := Parse([]byte(script))
	require.NoError(t, err)

	var mu sync.Mutex
	var positions []sensor.Position
	var errs []error
	h, err := s.Watch(context.Background(), sensor.DefaultOptions, sensor.Callbacks{
		OnPosition: func(p sensor.Position) {
			mu.Lock()
			defer mu.Unlock()
			positions = append(positions, p)
		},
		OnError: func(err error) {
			mu.Lock()
			defer mu.Unlock()
			errs = append(errs, err)
		},
	})
	require.NoError(t, err)
	defer h.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(positions) == 2 && len(errs) == 1
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 52.0, positions[0].Latitude)
	assert.Equal(t, 52.0009, positions[1].Latitude)
	assert.EqualError(t, errs[0], "User denied Geolocation")
}

func TestWatchUnsupported(t *testing.T) {
	s, err := Parse([]byte("unsupported: true\n"))
	require.NoError(t, err)
	_, err = s.Watch(context.Background(), sensor.DefaultOptions, sensor.Callbacks{})
	if !errors.Is(err, sensor.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSubscribePlaysNetwork(t *testing.T) {
	s, err := Parse([]byte(script))
	require.NoError(t, err)
	_, ok := s.Current()
	assert.False(t, ok)

	got := make(chan netinfo.Info, 2)
	s.Subscribe(context.Background(), func(info netinfo.Info) { got <- info })

	first := <-got
	second := <-got
	assert.Equal(t, "Network: 3g (Poor connection)", first.Status())
	assert.Equal(t, "Network: 4g", second.Status())

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "4g", cur.EffectiveType)
}
