package memory

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/monitoring"
)

// Pressure is the current heap tier relative to the configured high-water mark.
type Pressure int

const (
	PressureLow Pressure = iota
	PressureMedium
	PressureHigh
	PressureCritical
)

func (p Pressure) String() string {
	switch p {
	case PressureLow:
		return "LOW"
	case PressureMedium:
		return "MEDIUM"
	case PressureHigh:
		return "HIGH"
	case PressureCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// PoolSizes is the buffer sizing row published for the current tier.
// Stream writers consult it when allocating scratch buffers.
type PoolSizes struct {
	ChunkBuffer    int `json:"chunkBuffer"`
	ToolCallBuffer int `json:"toolCallBuffer"`
	LineBuffer     int `json:"lineBuffer"`
}

var tierTable = map[Pressure]PoolSizes{
	PressureLow:      {ChunkBuffer: constants.ChunkBufferLow, ToolCallBuffer: constants.ToolCallBufferLow, LineBuffer: constants.LineBufferLow},
	PressureMedium:   {ChunkBuffer: constants.ChunkBufferMedium, ToolCallBuffer: constants.ToolCallBufferMedium, LineBuffer: constants.LineBufferMedium},
	PressureHigh:     {ChunkBuffer: constants.ChunkBufferHigh, ToolCallBuffer: constants.ToolCallBufferHigh, LineBuffer: constants.LineBufferHigh},
	PressureCritical: {ChunkBuffer: constants.ChunkBufferCritical, ToolCallBuffer: constants.ToolCallBufferCritical, LineBuffer: constants.LineBufferCritical},
}

// CleanupFunc receives the tier computed on each regulator tick.
type CleanupFunc func(Pressure)

// Regulator samples heap usage on a fixed interval, classifies it into a
// tier, notifies subscribers, and nudges the garbage collector when the
// heap crosses the high-water mark.
type Regulator struct {
	mu       sync.Mutex
	high     uint64
	interval time.Duration
	cooldown time.Duration

	// injectable for tests
	readHeap func() uint64
	hintGC   func()
	forceGC  func()
	now      func() time.Time

	pressure  Pressure
	sampled   bool
	lastHint  time.Time
	lastCheck time.Time
	peakHeap  uint64
	gcHints   uint64
	gcForced  uint64
	cleanups  uint64
	subs      []CleanupFunc

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New builds a regulator with the given high-water mark in megabytes.
func New(highMB int) *Regulator {
	if highMB <= 0 {
		highMB = 512
	}
	return &Regulator{
		high:     uint64(highMB) * 1024 * 1024,
		interval: constants.MemoryCheckInterval,
		cooldown: constants.GCHintCooldown,
		readHeap: heapUsed,
		hintGC:   runtime.GC,
		forceGC: func() {
			runtime.GC()
			debug.FreeOSMemory()
		},
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

func heapUsed() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

// Subscribe registers a cleanup callback fired on every tick.
func (r *Regulator) Subscribe(fn CleanupFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, fn)
}

// Start launches the sampling loop.
func (r *Regulator) Start() {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Check()
			case <-r.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the sampling loop.
func (r *Regulator) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// Check performs one sampling tick and returns the computed tier.
func (r *Regulator) Check() Pressure {
	used := r.readHeap()
	p := r.classify(used)

	r.mu.Lock()
	changed := !r.sampled || p != r.pressure
	r.sampled = true
	r.pressure = p
	r.lastCheck = r.now()
	if used > r.peakHeap {
		r.peakHeap = used
	}
	var subs []CleanupFunc
	if changed {
		subs = make([]CleanupFunc, len(r.subs))
		copy(subs, r.subs)
		r.cleanups++
	}

	switch p {
	case PressureHigh:
		if r.now().Sub(r.lastHint) >= r.cooldown {
			r.lastHint = r.now()
			r.gcHints++
			r.hintGC()
			monitoring.GCOperationsTotal.WithLabelValues("hint").Inc()
		}
	case PressureCritical:
		r.lastHint = r.now()
		r.gcForced++
		r.forceGC()
		monitoring.GCOperationsTotal.WithLabelValues("forced").Inc()
	}
	r.mu.Unlock()

	monitoring.MemoryPressureLevel.Set(float64(p))
	if changed {
		log.WithFields(log.Fields{
			"pressure":   p.String(),
			"heap_bytes": used,
		}).Info("memory pressure tier changed")
	}

	for _, fn := range subs {
		fn(p)
	}
	return p
}

func (r *Regulator) classify(used uint64) Pressure {
	switch {
	case used <= r.high*3/10:
		return PressureLow
	case used <= r.high*6/10:
		return PressureMedium
	case used <= r.high:
		return PressureHigh
	default:
		return PressureCritical
	}
}

// Pressure returns the tier from the most recent tick.
func (r *Regulator) Pressure() Pressure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pressure
}

// PoolSizes returns the buffer sizing row for the current tier.
func (r *Regulator) PoolSizes() PoolSizes {
	return tierTable[r.Pressure()]
}

// Report is the payload served by the memory introspection route.
type Report struct {
	Pressure    string    `json:"pressure"`
	HeapAllocMB float64   `json:"heapAllocMB"`
	HeapSysMB   float64   `json:"heapSysMB"`
	PeakHeapMB  float64   `json:"peakHeapMB"`
	HighMB      float64   `json:"highMB"`
	NumGC       uint32    `json:"numGC"`
	GCHints     uint64    `json:"gcHints"`
	ForcedGC    uint64    `json:"forcedGC"`
	Cleanups    uint64    `json:"cleanups"`
	Goroutines  int       `json:"goroutines"`
	LastCheck   time.Time `json:"lastCheck"`
	PoolSizes   PoolSizes `json:"poolSizes"`
}

// Report snapshots live heap statistics plus regulator state.
func (r *Regulator) Report() Report {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	sizes := r.PoolSizes()

	r.mu.Lock()
	defer r.mu.Unlock()
	if ms.HeapAlloc > r.peakHeap {
		r.peakHeap = ms.HeapAlloc
	}
	return Report{
		Pressure:    r.pressure.String(),
		HeapAllocMB: float64(ms.HeapAlloc) / 1024 / 1024,
		HeapSysMB:   float64(ms.HeapSys) / 1024 / 1024,
		PeakHeapMB:  float64(r.peakHeap) / 1024 / 1024,
		HighMB:      float64(r.high) / 1024 / 1024,
		NumGC:       ms.NumGC,
		GCHints:     r.gcHints,
		ForcedGC:    r.gcForced,
		Cleanups:    r.cleanups,
		Goroutines:  runtime.NumGoroutine(),
		LastCheck:   r.lastCheck,
		PoolSizes:   sizes,
	}
}
