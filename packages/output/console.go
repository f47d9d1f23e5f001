package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case nil:
		return "<none>"
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

// ConsoleFormatter prints the response body as is on the writer and
// everything else (status summary, check results, errors) on errWriter,
// so the body can be piped.
type ConsoleFormatter struct {
	writer    io.Writer
	errWriter io.Writer
	verbose   bool
	noColor   bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer:    os.Stdout,
		errWriter: os.Stderr,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithErrWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.errWriter = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatOutcome(o *Outcome) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	if o.Err != nil {
		fmt.Fprintf(f.errWriter, "%s %s\n", red("✗"), o.Response)
		return
	}

	if f.verbose && o.Result != nil {
		status := green(o.Result.Status)
		if o.Result.StatusCode >= 400 {
			status = red(o.Result.Status)
		} else if o.Result.StatusCode >= 300 {
			status = yellow(o.Result.Status)
		}
		fmt.Fprintf(f.errWriter, "%s %s %s %s\n", bold(o.Method), o.URL, status,
			cyan(fmt.Sprintf("(%dms)", o.Result.DurationMs())))
		for _, name := range o.Result.HeaderNames() {
			fmt.Fprintf(f.errWriter, "  %s: %s\n", name, o.Result.Headers[name])
		}
	}

	body := o.Response
	if o.Selected != nil {
		body = *o.Selected
	}
	if body != "" {
		fmt.Fprint(f.writer, body)
		if !strings.HasSuffix(body, "\n") {
			fmt.Fprintln(f.writer)
		}
	}

	if len(o.Checks) == 0 {
		return
	}

	passed, failed := 0, 0
	for _, c := range o.Checks {
		if c.Passed {
			passed++
			if f.verbose {
				fmt.Fprintf(f.errWriter, "  %s %s %s\n", green("✓"), c.Subject, c.Operator)
			}
			continue
		}
		failed++
		fmt.Fprintf(f.errWriter, "  %s %s %s\n", red("✗"), c.Subject, c.Operator)
		if c.Expected != nil {
			fmt.Fprintf(f.errWriter, "      Expected: %s\n", formatValue(c.Expected, 100))
		}
		fmt.Fprintf(f.errWriter, "      Actual:   %s\n", formatValue(c.Actual, 100))
		if c.Message != "" {
			fmt.Fprintf(f.errWriter, "      %s\n", c.Message)
		}
	}

	fmt.Fprintf(f.errWriter, "Checks: ")
	if passed > 0 {
		fmt.Fprintf(f.errWriter, "%s, ", green(fmt.Sprintf("%d passed", passed)))
	}
	if failed > 0 {
		fmt.Fprintf(f.errWriter, "%s, ", red(fmt.Sprintf("%d failed", failed)))
	}
	fmt.Fprintf(f.errWriter, "%d total\n", passed+failed)
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.errWriter, "%s %v\n", red("Error:"), err)
}
