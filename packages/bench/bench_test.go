package bench

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Summary(t *testing.T) {
	m := NewMetrics()
	m.Start()
	for i := 1; i <= 100; i++ {
		m.Record(200, time.Duration(i)*time.Millisecond, 0)
	}
	m.Record(500, 5*time.Millisecond, 0)
	m.Record(0, 0, 7)
	m.Stop()

	s := m.Summary()
	assert.Equal(t, int64(102), s.Total)
	assert.Equal(t, int64(1), s.Failed)
	assert.Equal(t, []Count{{Code: 200, Count: 100}, {Code: 500, Count: 1}}, s.StatusCodes)
	assert.Equal(t, []Count{{Code: 7, Count: 1}}, s.ErrorCodes)
	assert.Equal(t, time.Millisecond, s.Min)
	assert.InDelta(t, float64(100*time.Millisecond), float64(s.Max), float64(time.Millisecond))
	assert.InDelta(t, float64(50*time.Millisecond), float64(s.P50), float64(2*time.Millisecond))
	assert.LessOrEqual(t, s.P90, s.P99)
}

func TestRun(t *testing.T) {
	var calls []int
	s, err := Run(context.Background(), Config{Count: 3}, func(ctx context.Context, i int) (Result, error) {
		calls = append(calls, i)
		return Result{Status: 200, Duration: time.Millisecond}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, calls)
	assert.Equal(t, int64(3), s.Total)

	s, err = Run(context.Background(), Config{}, func(ctx context.Context, i int) (Result, error) {
		return Result{Status: 204}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Total, "count below one sends once")
}

func TestRun_Rate(t *testing.T) {
	start := time.Now()
	_, err := Run(context.Background(), Config{Count: 3, Rate: 20}, func(ctx context.Context, i int) (Result, error) {
		return Result{Status: 200}, nil
	})
	require.NoError(t, err)
	// first send is immediate, the next two wait 50ms each
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestRun_StopsOnErrorAndCancel(t *testing.T) {
	boom := errors.New("boom")
	s, err := Run(context.Background(), Config{Count: 5}, func(ctx context.Context, i int) (Result, error) {
		if i == 2 {
			return Result{}, boom
		}
		return Result{Status: 200}, nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(2), s.Total)

	ctx, cancel := context.WithCancel(context.Background())
	s, err = Run(ctx, Config{Count: 5}, func(ctx context.Context, i int) (Result, error) {
		if i == 1 {
			cancel()
		}
		return Result{Status: 200}, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(2), s.Total)
}

func TestReporter_Summary(t *testing.T) {
	m := NewMetrics()
	m.Start()
	m.Record(200, 12*time.Millisecond, 0)
	m.Record(0, 0, 28)
	m.Stop()

	var buf bytes.Buffer
	require.NoError(t, NewReporter(WithWriter(&buf), WithNoColor(true)).Summary(m.Summary()))
	out := buf.String()
	assert.Contains(t, out, "Total:      2 requests")
	assert.Contains(t, out, "Failed:     1")
	assert.Contains(t, out, "p50: 12")
	assert.Contains(t, out, "28")
}
