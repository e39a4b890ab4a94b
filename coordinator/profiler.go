package coordinator

import (
	"log/slog"
	"runtime"
	"time"
)

// Profiler tracks frame rate and memory statistics, logged at a configurable
// interval. Adapted from engine/profiler/profiler.go, switched from log to
// log/slog per the rest of this module's structured-logging convention.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	log *slog.Logger
}

// NewProfiler creates a Profiler with a 1 second update interval.
func NewProfiler() *Profiler {
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
		log:            slog.Default().With("component", "coordinator.Profiler"),
	}
}

// Tick records one frame and logs aggregate stats once the update interval
// has elapsed, returning whether it logged this call.
func (p *Profiler) Tick() bool {
	p.frameCount++
	now := time.Now()
	elapsed := now.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()
	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := p.memStats.PauseNs[i%256] / 1000
			if pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	p.log.Info("frame stats",
		"fps", fps, "heapMB", allocMB, "allocRateMBPerSec", allocRateMB,
		"gcCount", gcCount, "lastPauseUs", lastPauseUs, "maxPauseUs", maxPauseUs, "sysMB", sysMB)

	p.frameCount = 0
	p.lastTime = now
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
