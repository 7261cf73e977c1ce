package replay

import (
	"math"
	"time"
)

// MemoryUnavailable is the sentinel recorded when no valid memory
// sample exists for a run.
const MemoryUnavailable = -1.0

// Sample is one raw measurement row.
type Sample struct {
	At       time.Time
	UIFPS    float64
	ImageFPS float64
	MemoryMB float64
}

// Metrics accumulates samples for one run (one directory in one
// direction). Raw samples keep every measurement; aggregates exclude
// the configured warm-up prefix.
type Metrics struct {
	Directory string
	Direction Direction

	StartTime time.Time
	EndTime   time.Time

	// TotalFrames counts navigation steps performed during the run.
	TotalFrames int

	// Raw holds every sample including warm-up.
	Raw []Sample

	// skip is how many leading samples the aggregates ignore.
	skip int

	MinUIFPS float64
	MaxUIFPS float64
	AvgUIFPS float64

	MinImageFPS  float64
	MaxImageFPS  float64
	AvgImageFPS  float64
	LastImageFPS float64

	MinMemoryMB float64
	MaxMemoryMB float64
	AvgMemoryMB float64
}

// NewMetrics starts a run record.
func NewMetrics(directory string, direction Direction, skip int, start time.Time) *Metrics {
	return &Metrics{
		Directory: directory,
		Direction: direction,
		StartTime: start,
		EndTime:   start,
		skip:      skip,
	}
}

// AddSample records one measurement row.
func (m *Metrics) AddSample(s Sample) {
	m.Raw = append(m.Raw, s)
}

// AddFrame counts one performed navigation step.
func (m *Metrics) AddFrame() {
	m.TotalFrames++
}

// Finalize closes the run and computes aggregates over the samples
// past the warm-up prefix. Memory aggregates ignore negative rows; a
// run with no valid memory sample reports MemoryUnavailable.
func (m *Metrics) Finalize(end time.Time) {
	m.EndTime = end

	m.MinUIFPS = math.MaxFloat64
	m.MinImageFPS = math.MaxFloat64
	m.MinMemoryMB = math.MaxFloat64

	var sumUI, sumImage, sumMem float64
	var nFPS, nMem int

	for i, s := range m.Raw {
		if i < m.skip {
			continue
		}
		sumUI += s.UIFPS
		sumImage += s.ImageFPS
		nFPS++
		if s.UIFPS < m.MinUIFPS {
			m.MinUIFPS = s.UIFPS
		}
		if s.UIFPS > m.MaxUIFPS {
			m.MaxUIFPS = s.UIFPS
		}
		if s.ImageFPS < m.MinImageFPS {
			m.MinImageFPS = s.ImageFPS
		}
		if s.ImageFPS > m.MaxImageFPS {
			m.MaxImageFPS = s.ImageFPS
		}
		m.LastImageFPS = s.ImageFPS

		if s.MemoryMB >= 0 {
			sumMem += s.MemoryMB
			nMem++
			if s.MemoryMB < m.MinMemoryMB {
				m.MinMemoryMB = s.MemoryMB
			}
			if s.MemoryMB > m.MaxMemoryMB {
				m.MaxMemoryMB = s.MemoryMB
			}
		}
	}

	if nFPS > 0 {
		m.AvgUIFPS = sumUI / float64(nFPS)
		m.AvgImageFPS = sumImage / float64(nFPS)
	} else {
		m.MinUIFPS = 0
		m.MinImageFPS = 0
	}
	if nMem > 0 {
		m.AvgMemoryMB = sumMem / float64(nMem)
	} else {
		m.MinMemoryMB = MemoryUnavailable
		m.MaxMemoryMB = MemoryUnavailable
		m.AvgMemoryMB = MemoryUnavailable
	}
}

// Duration returns the run's wall time.
func (m *Metrics) Duration() time.Duration {
	return m.EndTime.Sub(m.StartTime)
}
