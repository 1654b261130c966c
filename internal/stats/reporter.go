package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Reporter outputs statistics to a writer and/or file.
type Reporter struct {
	collector   *Collector
	intervalSec int
	exportFile  string
	out         io.Writer
}

// NewReporter creates a new statistics reporter writing to stdout.
func NewReporter(collector *Collector, intervalSec int, exportFile string) *Reporter {
	return &Reporter{
		collector:   collector,
		intervalSec: intervalSec,
		exportFile:  exportFile,
		out:         os.Stdout,
	}
}

// SetOutput redirects console reports.
func (r *Reporter) SetOutput(w io.Writer) {
	r.out = w
}

// StartPeriodicReport begins periodic statistics reporting in a goroutine.
func (r *Reporter) StartPeriodicReport(ctx context.Context) {
	if r.intervalSec <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(time.Duration(r.intervalSec) * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Fprintln(r.out, r.FormatReport())
			}
		}
	}()
}

// PrintFinalReport prints the final statistics summary.
func (r *Reporter) PrintFinalReport() {
	r.collector.Finish()
	fmt.Fprintln(r.out, r.FormatReport())
}

// ExportJSON exports statistics to a JSON file.
func (r *Reporter) ExportJSON() error {
	if r.exportFile == "" {
		return nil
	}

	snap := r.collector.Snapshot()
	min, avg, max, p99 := snap.PassTimeStats()

	export := map[string]interface{}{
		"start_time":   snap.StartTime.Format(time.RFC3339),
		"end_time":     snap.EndTime.Format(time.RFC3339),
		"duration_sec": snap.Duration().Seconds(),
		"entities":     map[string]interface{}{},
		"loop": map[string]interface{}{
			"ticks":         snap.Ticks,
			"passes":        snap.Passes,
			"failed_passes": snap.FailedPasses,
		},
		"clicks": map[string]interface{}{
			"hits":   snap.TotalHits(),
			"misses": snap.Misses,
		},
		"pass_times_ms": map[string]interface{}{
			"min": float64(min) / float64(time.Millisecond),
			"avg": float64(avg) / float64(time.Millisecond),
			"max": float64(max) / float64(time.Millisecond),
			"p99": float64(p99) / float64(time.Millisecond),
		},
	}

	duration := snap.Duration().Seconds()
	if duration > 0 {
		export["passes_per_sec"] = float64(snap.Passes) / duration
	}

	ents := export["entities"].(map[string]interface{})
	for name, s := range snap.KindStats {
		ents[name] = map[string]interface{}{
			"decoded":    s.Decoded,
			"dropped":    s.Dropped,
			"duplicates": s.Duplicates,
			"hits":       s.Hits,
		}
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats JSON: %w", err)
	}

	if err := os.WriteFile(r.exportFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write stats file %s: %w", r.exportFile, err)
	}

	log.WithField("file", r.exportFile).Info("Statistics exported to JSON")
	return nil
}

// FormatReport generates a formatted statistics report string.
func (r *Reporter) FormatReport() string {
	snap := r.collector.Snapshot()
	elapsed := snap.Duration()
	min, avg, max, p99 := snap.PassTimeStats()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("\n=== netvis Statistics (elapsed: %s) ===\n", elapsed.Round(time.Second)))
	sb.WriteString("Entities:\n")

	kinds := make([]string, 0, len(snap.KindStats))
	for name := range snap.KindStats {
		kinds = append(kinds, name)
	}
	sort.Strings(kinds)

	for _, name := range kinds {
		s := snap.KindStats[name]
		sb.WriteString(fmt.Sprintf("  %-10s decoded=%-7d dropped=%-5d dup=%-5d hits=%-5d\n",
			name+":", s.Decoded, s.Dropped, s.Duplicates, s.Hits))
	}

	sb.WriteString("Loop:\n")
	sb.WriteString(fmt.Sprintf("  Ticks: %d  |  Passes: %d  |  Failed: %d  |  Misses: %d\n",
		snap.Ticks, snap.Passes, snap.FailedPasses, snap.Misses))

	if len(snap.PassTimes) > 0 {
		sb.WriteString("Pass Times:\n")
		sb.WriteString(fmt.Sprintf("  Min: %s  |  Avg: %s  |  Max: %s  |  P99: %s\n",
			min.Round(time.Microsecond), avg.Round(time.Microsecond),
			max.Round(time.Microsecond), p99.Round(time.Microsecond)))
	}

	if elapsed.Seconds() > 0 {
		sb.WriteString("Throughput:\n")
		sb.WriteString(fmt.Sprintf("  %.1f passes/s\n", float64(snap.Passes)/elapsed.Seconds()))
	}

	sb.WriteString("========================================\n")
	return sb.String()
}
