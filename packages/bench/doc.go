// Package bench repeats one request a fixed number of times, optionally
// paced to a request rate, and summarizes latency with an HDR histogram.
//
// Sends run one after another; there is no concurrency. A Summary reports
// percentiles, status code counts and transport error codes.
package bench
