package bench

import (
	"sort"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Latencies are recorded in microseconds between 1us and 60s.
const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Metrics collects the results of repeated sends. It is not safe for
// concurrent use.
type Metrics struct {
	histogram  *hdrhistogram.Histogram
	total      int64
	failed     int64
	statuses   map[int]int64
	errorCodes map[int]int64
	startTime  time.Time
	endTime    time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{
		histogram:  hdrhistogram.New(minLatencyUs, maxLatencyUs, 3),
		statuses:   make(map[int]int64),
		errorCodes: make(map[int]int64),
	}
}

// Start marks the beginning of the run
func (m *Metrics) Start() {
	m.startTime = time.Now()
}

// Stop marks the end of the run
func (m *Metrics) Stop() {
	m.endTime = time.Now()
}

// Record adds one send. A non-zero errorCode marks a transport failure;
// its latency is not recorded.
func (m *Metrics) Record(status int, duration time.Duration, errorCode int) {
	m.total++
	if errorCode != 0 {
		m.failed++
		m.errorCodes[errorCode]++
		return
	}
	m.statuses[status]++

	latencyUs := duration.Microseconds()
	if latencyUs < minLatencyUs {
		latencyUs = minLatencyUs
	}
	if latencyUs > maxLatencyUs {
		latencyUs = maxLatencyUs
	}
	_ = m.histogram.RecordValue(latencyUs)
}

// Count is a code with the number of sends that produced it
type Count struct {
	Code  int   `json:"code"`
	Count int64 `json:"count"`
}

// Summary is the outcome of a run
type Summary struct {
	Duration    time.Duration `json:"duration"`
	Total       int64         `json:"total"`
	Failed      int64         `json:"failed"`
	RPS         float64       `json:"rps"`
	P50         time.Duration `json:"p50"`
	P90         time.Duration `json:"p90"`
	P95         time.Duration `json:"p95"`
	P99         time.Duration `json:"p99"`
	Min         time.Duration `json:"min"`
	Max         time.Duration `json:"max"`
	Mean        time.Duration `json:"mean"`
	StdDev      time.Duration `json:"stddev"`
	StatusCodes []Count       `json:"statusCodes"`
	ErrorCodes  []Count       `json:"errorCodes,omitempty"`
}

func (m *Metrics) Summary() *Summary {
	duration := m.endTime.Sub(m.startTime)
	if m.endTime.IsZero() {
		duration = time.Since(m.startTime)
	}

	rps := float64(0)
	if duration.Seconds() > 0 {
		rps = float64(m.total) / duration.Seconds()
	}

	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return &Summary{
		Duration:    duration,
		Total:       m.total,
		Failed:      m.failed,
		RPS:         rps,
		P50:         us(m.histogram.ValueAtQuantile(50)),
		P90:         us(m.histogram.ValueAtQuantile(90)),
		P95:         us(m.histogram.ValueAtQuantile(95)),
		P99:         us(m.histogram.ValueAtQuantile(99)),
		Min:         us(m.histogram.Min()),
		Max:         us(m.histogram.Max()),
		Mean:        time.Duration(m.histogram.Mean()) * time.Microsecond,
		StdDev:      time.Duration(m.histogram.StdDev()) * time.Microsecond,
		StatusCodes: sortedCounts(m.statuses),
		ErrorCodes:  sortedCounts(m.errorCodes),
	}
}

func sortedCounts(m map[int]int64) []Count {
	counts := make([]Count, 0, len(m))
	for code, n := range m {
		counts = append(counts, Count{Code: code, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Code < counts[j].Code })
	return counts
}
