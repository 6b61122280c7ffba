package profiler

import (
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"
)

// StageStats accumulates the ticks of one pipeline stage.
type StageStats struct {
	// Ticks is the number of items processed.
	Ticks int

	// Busy is the total wall time spent inside ticks.
	Busy time.Duration

	// Slowest is the longest single tick.
	Slowest time.Duration
}

// Profiler tracks per-stage tick counts and memory statistics for import performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	mu             sync.Mutex
	logger         *slog.Logger
	stages         map[string]*StageStats
	tickCount      int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second; values of zero or less keep the default.
//
// Parameters:
//   - logger: the logger stats are written to; nil uses slog.Default
//   - interval: the minimum time between two log lines
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(logger *slog.Logger, interval time.Duration) *Profiler {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Profiler{
		logger:         logger,
		stages:         make(map[string]*StageStats),
		lastTime:       time.Now(),
		updateInterval: interval,
	}
}

// Observe records one tick of a stage and logs statistics when the update interval has elapsed.
//
// Parameters:
//   - stage: the stage name
//   - elapsed: the wall time of the tick
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Observe(stage string, elapsed time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.stages[stage]
	if !ok {
		s = &StageStats{}
		p.stages[stage] = s
	}
	s.Ticks++
	s.Busy += elapsed
	s.Slowest = max(s.Slowest, elapsed)
	p.tickCount++

	currentTime := time.Now()
	elapsedSinceLog := currentTime.Sub(p.lastTime)
	if elapsedSinceLog < p.updateInterval {
		return false
	}

	tps := float64(p.tickCount) / elapsedSinceLog.Seconds()

	runtime.ReadMemStats(&p.memStats)
	// Alloc is live heap, Sys is the process footprint obtained from the OS
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocRateMB := float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsedSinceLog.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
	}

	p.logger.Info("import profile",
		"stage", stage,
		"stageTicks", s.Ticks,
		"ticksPerSec", tps,
		"heapMB", allocMB,
		"allocRateMBps", allocRateMB,
		"gc", gcCount-p.lastGCCount,
		"lastPauseUs", lastPauseUs,
		"sysMB", sysMB,
	)

	p.tickCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Stats returns a copy of the per-stage statistics.
//
// Returns:
//   - map[string]StageStats: stats keyed by stage name
func (p *Profiler) Stats() map[string]StageStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]StageStats, len(p.stages))
	for k, v := range p.stages {
		out[k] = *v
	}
	return out
}

// Summary logs the totals of every stage, in name order.
func (p *Profiler) Summary() {
	stats := p.Stats()
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := stats[name]
		p.logger.Info("stage profile", "stage", name, "ticks", s.Ticks, "busy", s.Busy, "slowest", s.Slowest)
	}
}
