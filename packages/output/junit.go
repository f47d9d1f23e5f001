package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"time"
)

// JUnit XML structures

// JUnitTestSuites is the root element
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite represents one request
type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Time      float64         `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr,omitempty"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase represents a single check
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
}

// JUnitFailure represents a check failure
type JUnitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitError represents a transport error
type JUnitError struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitFormatter formats outcomes as JUnit XML. Each request is a suite;
// each check a test case. A request without checks gets a single
// "request" case that fails on transport errors only.
type JUnitFormatter struct {
	writer     io.Writer
	testSuites []JUnitTestSuite
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{
		writer:     os.Stdout,
		testSuites: make([]JUnitTestSuite, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

func (f *JUnitFormatter) FormatOutcome(o *Outcome) {
	name := o.Method + " " + o.URL
	var elapsed float64
	if o.Result != nil {
		elapsed = o.Result.Duration.Seconds()
	}

	suite := JUnitTestSuite{
		Name:      name,
		Time:      elapsed,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	if o.Err != nil || len(o.Checks) == 0 {
		tc := JUnitTestCase{Name: "request", ClassName: name, Time: elapsed}
		if o.Err != nil {
			suite.Errors++
			tc.Error = &JUnitError{
				Message: o.Err.Error(),
				Type:    "TransportError",
				Content: o.Response,
			}
		}
		suite.TestCases = append(suite.TestCases, tc)
	}

	for _, c := range o.Checks {
		tc := JUnitTestCase{
			Name:      fmt.Sprintf("%s %s %v", c.Subject, c.Operator, formatValue(c.Expected, 100)),
			ClassName: name,
		}
		if !c.Passed {
			suite.Failures++
			tc.Failure = &JUnitFailure{
				Message: "Check failed",
				Type:    "AssertionError",
				Content: fmt.Sprintf("expected %v, got %v. %s", c.Expected, c.Actual, c.Message),
			}
		}
		suite.TestCases = append(suite.TestCases, tc)
	}
	suite.Tests = len(suite.TestCases)

	f.testSuites = append(f.testSuites, suite)
}

func (f *JUnitFormatter) FormatError(err error) {
	f.testSuites = append(f.testSuites, JUnitTestSuite{
		Name:   "openit",
		Tests:  1,
		Errors: 1,
		TestCases: []JUnitTestCase{{
			Name:      "setup",
			ClassName: "openit",
			Error:     &JUnitError{Message: err.Error(), Type: "Error"},
		}},
	})
}

// Flush writes the accumulated JUnit XML output and resets the formatter
func (f *JUnitFormatter) Flush() error {
	var totalTests, totalFailures, totalErrors int
	var totalTime float64
	for _, suite := range f.testSuites {
		totalTests += suite.Tests
		totalFailures += suite.Failures
		totalErrors += suite.Errors
		totalTime += suite.Time
	}

	suites := JUnitTestSuites{
		Name:       "openit",
		Tests:      totalTests,
		Failures:   totalFailures,
		Errors:     totalErrors,
		Time:       totalTime,
		Timestamp:  time.Now().Format(time.RFC3339),
		TestSuites: f.testSuites,
	}
	f.testSuites = make([]JUnitTestSuite, 0)

	fmt.Fprintf(f.writer, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	if err := encoder.Encode(suites); err != nil {
		return err
	}
	_, err := fmt.Fprintln(f.writer)
	return err
}
