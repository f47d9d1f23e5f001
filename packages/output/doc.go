// Package output provides formatters for displaying request outcomes.
//
// Supported output formats:
//   - Console: the response body on stdout, colored status and checks on stderr
//   - JSON: Machine-readable JSON output
//   - JUnit: JUnit XML format for CI integration, one test case per check
//
// Each formatter implements the Formatter interface and can optionally
// implement Flushable for formats that accumulate outcomes before output.
package output
