package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/openit/packages/http"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Requests []JSONRequest `json:"requests"`
	Passed   bool          `json:"passed"`
	Time     string        `json:"time"`
}

// JSONRequest represents a single sent request
type JSONRequest struct {
	Method   string        `json:"method"`
	URL      string        `json:"url"`
	Passed   bool          `json:"passed"`
	Error    *JSONError    `json:"error,omitempty"`
	Response *JSONResponse `json:"response,omitempty"`
	Selected *string       `json:"selected,omitempty"`
	Checks   []JSONCheck   `json:"checks,omitempty"`
}

// JSONError carries the transport error code and message
type JSONError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSONResponse represents response details
type JSONResponse struct {
	StatusCode int               `json:"statusCode"`
	Status     string            `json:"status"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body"`
	Duration   float64           `json:"duration"`
}

// JSONCheck represents a check result
type JSONCheck struct {
	Subject  string `json:"subject"`
	Operator string `json:"operator"`
	Expected any    `json:"expected,omitempty"`
	Actual   any    `json:"actual"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message,omitempty"`
}

// JSONFormatter formats outcomes as JSON
type JSONFormatter struct {
	writer   io.Writer
	requests []JSONRequest
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:   os.Stdout,
		requests: make([]JSONRequest, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatOutcome(o *Outcome) {
	req := JSONRequest{
		Method:   o.Method,
		URL:      o.URL,
		Passed:   o.Passed(),
		Selected: o.Selected,
	}

	if o.Err != nil {
		te := http.Classify(o.Err)
		req.Error = &JSONError{Code: te.Code, Message: te.Message}
	}

	if o.Result != nil {
		req.Response = &JSONResponse{
			StatusCode: o.Result.StatusCode,
			Status:     o.Result.Status,
			Headers:    o.Result.Headers,
			Body:       o.Response,
			Duration:   float64(o.Result.Duration.Milliseconds()),
		}
	}

	if len(o.Checks) > 0 {
		req.Checks = make([]JSONCheck, len(o.Checks))
		for i, c := range o.Checks {
			req.Checks[i] = JSONCheck{
				Subject:  c.Subject,
				Operator: string(c.Operator),
				Expected: c.Expected,
				Actual:   c.Actual,
				Passed:   c.Passed,
				Message:  c.Message,
			}
		}
	}

	f.requests = append(f.requests, req)
}

func (f *JSONFormatter) FormatError(err error) {
	f.requests = append(f.requests, JSONRequest{
		Error: &JSONError{Message: err.Error()},
	})
}

// Flush writes the accumulated JSON output and resets the formatter
func (f *JSONFormatter) Flush() error {
	passed := true
	for _, r := range f.requests {
		if !r.Passed {
			passed = false
		}
	}

	output := JSONOutput{
		Requests: f.requests,
		Passed:   passed,
		Time:     time.Now().Format(time.RFC3339),
	}
	f.requests = make([]JSONRequest, 0)

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
