package bench

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// Reporter prints run summaries
type Reporter struct {
	writer  io.Writer
	noColor bool

	green *color.Color
	red   *color.Color
	bold  *color.Color
}

// ReporterOption configures the reporter
type ReporterOption func(*Reporter)

// WithWriter sets the output writer
func WithWriter(w io.Writer) ReporterOption {
	return func(r *Reporter) {
		r.writer = w
	}
}

// WithNoColor disables colored output
func WithNoColor(noColor bool) ReporterOption {
	return func(r *Reporter) {
		r.noColor = noColor
	}
}

func NewReporter(opts ...ReporterOption) *Reporter {
	r := &Reporter{writer: os.Stderr}
	for _, opt := range opts {
		opt(r)
	}

	r.green = color.New(color.FgGreen)
	r.red = color.New(color.FgRed)
	r.bold = color.New(color.Bold)
	if r.noColor {
		r.green.DisableColor()
		r.red.DisableColor()
		r.bold.DisableColor()
	}
	return r
}

func (r *Reporter) Summary(s *Summary) error {
	fmt.Fprintln(r.writer)
	r.bold.Fprintln(r.writer, "SUMMARY")
	fmt.Fprintln(r.writer, strings.Repeat("─", 40))

	fmt.Fprintf(r.writer, "Duration:   %s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(r.writer, "Total:      ")
	r.bold.Fprintf(r.writer, "%d", s.Total)
	fmt.Fprintf(r.writer, " requests (%.1f req/s)\n", s.RPS)

	fmt.Fprintf(r.writer, "Failed:     ")
	if s.Failed > 0 {
		r.red.Fprintf(r.writer, "%d\n", s.Failed)
	} else {
		r.green.Fprintf(r.writer, "%d\n", s.Failed)
	}

	if s.Total > s.Failed {
		fmt.Fprintln(r.writer)
		r.bold.Fprintln(r.writer, "LATENCY (ms)")
		fmt.Fprintf(r.writer, "  p50: %-6s | p90: %-6s | p95: %-6s | p99: %s\n",
			formatLatencyMs(s.P50), formatLatencyMs(s.P90), formatLatencyMs(s.P95), formatLatencyMs(s.P99))
		fmt.Fprintf(r.writer, "  min: %-6s | max: %-6s | mean: %-5s | stddev: %s\n",
			formatLatencyMs(s.Min), formatLatencyMs(s.Max), formatLatencyMs(s.Mean), formatLatencyMs(s.StdDev))
	}

	fmt.Fprintln(r.writer)
	table := tablewriter.NewWriter(r.writer)
	table.Header([]string{"Result", "Code", "Count"})
	for _, c := range s.StatusCodes {
		if err := table.Append([]string{"status", strconv.Itoa(c.Code), strconv.FormatInt(c.Count, 10)}); err != nil {
			return err
		}
	}
	for _, c := range s.ErrorCodes {
		if err := table.Append([]string{"error", strconv.Itoa(c.Code), strconv.FormatInt(c.Count, 10)}); err != nil {
			return err
		}
	}
	return table.Render()
}

func formatLatencyMs(d time.Duration) string {
	ms := float64(d.Microseconds()) / 1000
	if ms == float64(int64(ms)) {
		return strconv.FormatInt(int64(ms), 10)
	}
	return strconv.FormatFloat(ms, 'f', 1, 64)
}
