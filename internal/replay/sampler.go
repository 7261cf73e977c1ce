package replay

import (
	"context"
	"math"
	"os"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// MemorySampler reads the process resident set at a fixed cadence on
// its own goroutine, so the frame loop never blocks on /proc reads.
type MemorySampler struct {
	cadence time.Duration
	proc    *process.Process

	// latest holds math.Float64bits of the last reading in MB.
	latest atomic.Uint64
}

// NewMemorySampler creates a sampler for the current process. A nil
// proc (platform without process info) degrades to the unavailable
// sentinel.
func NewMemorySampler(cadence time.Duration) *MemorySampler {
	if cadence <= 0 {
		cadence = 500 * time.Millisecond
	}
	s := &MemorySampler{cadence: cadence}
	s.latest.Store(math.Float64bits(MemoryUnavailable))
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		s.proc = p
	}
	return s
}

// Run samples until the context is cancelled. Errors reading memory
// are not fatal; the sentinel value is reported instead.
func (s *MemorySampler) Run(ctx context.Context) error {
	s.sample()
	ticker := time.NewTicker(s.cadence)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sample()
		}
	}
}

// Latest returns the most recent resident set size in MB, or
// MemoryUnavailable when no reading succeeded yet.
func (s *MemorySampler) Latest() float64 {
	return math.Float64frombits(s.latest.Load())
}

func (s *MemorySampler) sample() {
	if s.proc == nil {
		return
	}
	info, err := s.proc.MemoryInfo()
	if err != nil || info == nil {
		return
	}
	mb := float64(info.RSS) / (1024 * 1024)
	s.latest.Store(math.Float64bits(mb))
}
