package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const mb = 1024 * 1024

func newTestRegulator(highMB int, readings ...uint64) (*Regulator, *int) {
	idx := 0
	r := New(highMB)
	r.readHeap = func() uint64 {
		v := readings[idx]
		if idx < len(readings)-1 {
			idx++
		}
		return v
	}
	r.hintGC = func() {}
	r.forceGC = func() {}
	return r, &idx
}

func TestPressureCascade(t *testing.T) {
	r, _ := newTestRegulator(100, 25*mb, 50*mb, 80*mb, 110*mb)

	var seen []Pressure
	r.Subscribe(func(p Pressure) { seen = append(seen, p) })

	want := []Pressure{PressureLow, PressureMedium, PressureHigh, PressureCritical}
	for i, expected := range want {
		got := r.Check()
		require.Equalf(t, expected, got, "tick %d", i)
	}
	require.Equal(t, want, seen, "subscribers must see every tick's tier")

	// pool sizes descend through the tier table
	require.Equal(t, PoolSizes{ChunkBuffer: 32, ToolCallBuffer: 8, LineBuffer: 16}, r.PoolSizes())
}

func TestCleanupFiredOnChangeOnly(t *testing.T) {
	r, _ := newTestRegulator(100, 25*mb, 25*mb, 50*mb)

	calls := 0
	r.Subscribe(func(Pressure) { calls++ })

	r.Check() // first sample counts as a change
	r.Check() // same tier, no signal
	r.Check() // LOW -> MEDIUM
	require.Equal(t, 2, calls)
}

func TestTierBoundaries(t *testing.T) {
	r, _ := newTestRegulator(100, 30*mb, 31*mb, 60*mb, 61*mb, 100*mb, 101*mb)

	require.Equal(t, PressureLow, r.Check(), "0.3H is still LOW")
	require.Equal(t, PressureMedium, r.Check())
	require.Equal(t, PressureMedium, r.Check(), "0.6H is still MEDIUM")
	require.Equal(t, PressureHigh, r.Check())
	require.Equal(t, PressureHigh, r.Check(), "H is still HIGH")
	require.Equal(t, PressureCritical, r.Check())
}

func TestGCHintCooldown(t *testing.T) {
	hints := 0
	r, _ := newTestRegulator(100, 80*mb)
	r.hintGC = func() { hints++ }

	clock := time.Unix(1000, 0)
	r.now = func() time.Time { return clock }

	r.Check()
	r.Check() // same instant, inside cooldown
	require.Equal(t, 1, hints, "second HIGH tick inside cooldown must not hint again")

	clock = clock.Add(11 * time.Second)
	r.Check()
	require.Equal(t, 2, hints)
}

func TestCriticalForcesGC(t *testing.T) {
	forced := 0
	r, _ := newTestRegulator(100, 150*mb)
	r.forceGC = func() { forced++ }

	r.Check()
	r.Check()
	require.Equal(t, 2, forced, "every CRITICAL tick forces collection")
}

func TestReportShape(t *testing.T) {
	r, _ := newTestRegulator(100, 25*mb)
	r.Check()

	rep := r.Report()
	require.Equal(t, "LOW", rep.Pressure)
	require.Equal(t, float64(100), rep.HighMB)
	require.NotZero(t, rep.Goroutines)
	require.Equal(t, PoolSizes{ChunkBuffer: 512, ToolCallBuffer: 128, LineBuffer: 256}, rep.PoolSizes)
}

func TestReportTracksPeakHeapAndCleanups(t *testing.T) {
	r, _ := newTestRegulator(100, 25*mb, 80*mb, 25*mb)
	r.Subscribe(func(Pressure) {})

	r.Check() // LOW, peak 25MB
	r.Check() // HIGH, peak climbs to 80MB
	r.Check() // back to LOW, peak must stay

	rep := r.Report()
	require.GreaterOrEqual(t, rep.PeakHeapMB, float64(80), "peak must survive the drop back to LOW")
	require.Equal(t, uint64(3), rep.Cleanups, "every tier change broadcasts one cleanup signal")
}
