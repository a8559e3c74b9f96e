package sweep

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/iot-trust/simsweep/internal/monitoring"
)

// CSVWriter wraps csv.Writer with methods for sweep manifest output.
type CSVWriter struct {
	Cells   *csv.Writer
	Summary *csv.Writer
}

// NewCSVWriter creates a new CSVWriter with the given per-cell and summary writers.
func NewCSVWriter(cells, summary io.Writer) *CSVWriter {
	return &CSVWriter{
		Cells:   csv.NewWriter(cells),
		Summary: csv.NewWriter(summary),
	}
}

// WriteHeaders writes the headers to both the per-cell and summary CSV files.
// dims is the grid's dimension list in declaration order.
func (c *CSVWriter) WriteHeaders(dims []string) {
	c.Cells.Write(FormatCellHeaders(dims))
	c.Summary.Write(FormatSummaryHeaders())
}

// WriteCellRow writes a single cell result row to the per-cell CSV file.
func (c *CSVWriter) WriteCellRow(dims []string, res RunResult) {
	row := make([]string, 0, len(dims)+7)
	for _, d := range dims {
		row = append(row, res.Config.Value(d))
	}
	row = append(row,
		string(res.Status),
		fmt.Sprintf("%d", res.ExitCode),
		fmt.Sprintf("%.3f", res.Duration.Seconds()),
		res.Config.ArtifactPrefix(),
		res.LogPath,
		res.MetricsPath,
	)
	c.Cells.Write(row)
	c.Cells.Flush()
}

// WriteSummary computes and writes the sweep summary row.
func (c *CSVWriter) WriteSummary(m Manifest) {
	durations := make([]float64, 0, len(m.Results))
	for _, r := range m.Results {
		if r.Status == StatusSuccess {
			durations = append(durations, r.Duration.Seconds())
		}
	}
	mean, std := MeanStddev(durations)

	monitoring.Logf("[sweep] %d succeeded, %d failed, %d skipped, run duration %.1fs±%.1fs",
		m.Succeeded(), m.Failed(), m.Skipped(), mean, std)

	row := []string{
		m.SweepID,
		m.StartedAt.Format(time.RFC3339),
		m.CompletedAt.Format(time.RFC3339),
		fmt.Sprintf("%t", m.Cancelled),
		fmt.Sprintf("%d", len(m.Results)),
		fmt.Sprintf("%d", m.Succeeded()),
		fmt.Sprintf("%d", m.Failed()),
		fmt.Sprintf("%d", m.Skipped()),
		fmt.Sprintf("%.3f", mean),
		fmt.Sprintf("%.3f", std),
	}
	c.Summary.Write(row)
	c.Summary.Flush()
}

// WriteManifest writes headers, all cell rows and the summary row in one call.
func (c *CSVWriter) WriteManifest(dims []string, m Manifest) {
	c.WriteHeaders(dims)
	for _, res := range m.Results {
		c.WriteCellRow(dims, res)
	}
	c.WriteSummary(m)
	c.Flush()
}

// Flush flushes both writers.
func (c *CSVWriter) Flush() {
	c.Cells.Flush()
	c.Summary.Flush()
}

// FormatCellHeaders returns the per-cell header column names for the given
// dimension list.
func FormatCellHeaders(dims []string) []string {
	header := make([]string, 0, len(dims)+7)
	header = append(header, dims...)
	header = append(header, "status", "exit_code", "duration_seconds", "artifact_prefix", "log_path", "metrics_path")
	return header
}

// FormatSummaryHeaders returns the summary header column names.
func FormatSummaryHeaders() []string {
	return []string{
		"sweep_id", "started_at", "completed_at", "cancelled",
		"cells", "succeeded", "failed", "skipped",
		"duration_mean_seconds", "duration_stddev_seconds",
	}
}
