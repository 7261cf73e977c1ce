package replay

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// FPSStats is the avg/min/max triple used for frame rates.
type FPSStats struct {
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ImageFPSStats adds the final reading, which shows whether the decode
// pipeline kept up at the end of a run.
type ImageFPSStats struct {
	Avg  float64 `json:"avg"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Last float64 `json:"last"`
}

// MemoryStats is the avg/min/max triple for resident memory in MB.
// All three are -1 when sampling was unavailable.
type MemoryStats struct {
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Result is one run's aggregated metrics.
type Result struct {
	Directory    string        `json:"directory"`
	Direction    string        `json:"direction"`
	DurationSecs float64       `json:"duration_secs"`
	TotalFrames  int           `json:"total_frames"`
	UIFPS        FPSStats      `json:"ui_fps"`
	ImageFPS     ImageFPSStats `json:"image_fps"`
	MemoryMB     MemoryStats   `json:"memory_mb"`
}

// Report is the harness output document.
type Report struct {
	Results    []Result `json:"results"`
	Iterations int      `json:"iterations"`
}

// BuildReport aggregates finished runs into the report document.
func BuildReport(runs []*Metrics, iterations int) Report {
	rep := Report{Iterations: iterations, Results: make([]Result, 0, len(runs))}
	for _, m := range runs {
		rep.Results = append(rep.Results, Result{
			Directory:    m.Directory,
			Direction:    string(m.Direction),
			DurationSecs: m.Duration().Seconds(),
			TotalFrames:  m.TotalFrames,
			UIFPS: FPSStats{
				Avg: m.AvgUIFPS,
				Min: m.MinUIFPS,
				Max: m.MaxUIFPS,
			},
			ImageFPS: ImageFPSStats{
				Avg:  m.AvgImageFPS,
				Min:  m.MinImageFPS,
				Max:  m.MaxImageFPS,
				Last: m.LastImageFPS,
			},
			MemoryMB: MemoryStats{
				Avg: m.AvgMemoryMB,
				Min: m.MinMemoryMB,
				Max: m.MaxMemoryMB,
			},
		})
	}
	return rep
}

// WriteJSON writes the report as indented JSON.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteMarkdown renders the report as a table plus summary statistics.
func (r Report) WriteMarkdown(w io.Writer) error {
	var b strings.Builder
	b.WriteString("# Replay Benchmark Results\n\n")
	fmt.Fprintf(&b, "Iterations: %d\n\n", r.Iterations)
	b.WriteString("| Directory | Direction | Duration (s) | Frames | UI FPS (avg/min/max) | Image FPS (avg/min/max/last) | Memory MB (avg/min/max) |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")

	var sumUI, sumImage float64
	for _, res := range r.Results {
		mem := fmt.Sprintf("%.1f / %.1f / %.1f", res.MemoryMB.Avg, res.MemoryMB.Min, res.MemoryMB.Max)
		if res.MemoryMB.Avg < 0 {
			mem = "n/a"
		}
		fmt.Fprintf(&b, "| %s | %s | %.2f | %d | %.1f / %.1f / %.1f | %.1f / %.1f / %.1f / %.1f | %s |\n",
			res.Directory, res.Direction, res.DurationSecs, res.TotalFrames,
			res.UIFPS.Avg, res.UIFPS.Min, res.UIFPS.Max,
			res.ImageFPS.Avg, res.ImageFPS.Min, res.ImageFPS.Max, res.ImageFPS.Last,
			mem)
		sumUI += res.UIFPS.Avg
		sumImage += res.ImageFPS.Avg
	}

	if n := len(r.Results); n > 0 {
		b.WriteString("\n## Summary\n\n")
		fmt.Fprintf(&b, "- Runs: %d\n", n)
		fmt.Fprintf(&b, "- Overall average UI FPS: %.1f\n", sumUI/float64(n))
		fmt.Fprintf(&b, "- Overall average image FPS: %.1f\n", sumImage/float64(n))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Write emits the report in the configured format to the configured
// destination (stdout when no output path is set).
func (r Report) Write(cfg Config) error {
	var w io.Writer = os.Stdout
	if cfg.Output != "" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return fmt.Errorf("replay: create report: %w", err)
		}
		defer f.Close()
		w = f
	}
	if cfg.Format == FormatJSON {
		return r.WriteJSON(w)
	}
	return r.WriteMarkdown(w)
}
