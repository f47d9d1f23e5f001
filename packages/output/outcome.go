package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/abdul-hamid-achik/openit/packages/check"
	"github.com/abdul-hamid-achik/openit/packages/http"
)

// Outcome is everything known about one sent request.
type Outcome struct {
	Method   string
	URL      string
	Response string         // the builder's response string, body or sentinel
	Result   *http.Response // nil when the transport failed
	Err      error
	Selected *string // value picked by --select, if any
	Checks   []*check.Result
}

// Passed reports whether the request went through and every check passed.
func (o *Outcome) Passed() bool {
	return o.Err == nil && check.AllPassed(o.Checks)
}

// Formatter interface for all output formatters
type Formatter interface {
	FormatOutcome(o *Outcome)
	FormatError(err error)
}

// Flushable interface for formatters that need to flush output
type Flushable interface {
	Flush() error
}

// New returns the formatter for format: console, json or junit.
func New(format string, w, errW io.Writer, verbose, noColor bool) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "console":
		return NewConsoleFormatter(
			WithWriter(w),
			WithErrWriter(errW),
			WithVerbose(verbose),
			WithNoColor(noColor),
		), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case "junit":
		return NewJUnitFormatter(JUnitWithWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (use console, json or junit)", format)
	}
}
