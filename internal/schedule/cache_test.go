package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker.wpgtransit.org/internal/clock"
)

type countingSource struct {
	calls  atomic.Int64
	result Result
	err    error
}

func (s *countingSource) ArrivalsFor(ctx context.Context, stopID string) (Result, error) {
	s.calls.Add(1)
	return s.result, s.err
}

func TestCachedReconcilerServesFromCache(t *testing.T) {
	src := &countingSource{result: Result{StopID: "10625", Source: SourceLive}}
	clk := clock.NewMockClock(testNow)
	c := NewCachedReconciler(src, clk, time.Minute)

	first, err := c.ArrivalsFor(context.Background(), "10625")
	require.NoError(t, err)

	clk.Advance(30 * time.Second)
	second, err := c.ArrivalsFor(context.Background(), "10625")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), src.calls.Load())
}

func TestCachedReconcilerExpires(t *testing.T) {
	src := &countingSource{result: Result{StopID: "10625", Source: SourceLive}}
	clk := clock.NewMockClock(testNow)
	c := NewCachedReconciler(src, clk, time.Minute)

	_, err := c.ArrivalsFor(context.Background(), "10625")
	require.NoError(t, err)

	clk.Advance(61 * time.Second)
	_, err = c.ArrivalsFor(context.Background(), "10625")
	require.NoError(t, err)

	assert.Equal(t, int64(2), src.calls.Load())
}

func TestCachedReconcilerKeyedByStop(t *testing.T) {
	src := &countingSource{result: Result{Source: SourceStatic}}
	c := NewCachedReconciler(src, clock.NewMockClock(testNow), time.Minute)

	_, _ = c.ArrivalsFor(context.Background(), "10625")
	_, _ = c.ArrivalsFor(context.Background(), "10626")
	_, _ = c.ArrivalsFor(context.Background(), "10625")

	assert.Equal(t, int64(2), src.calls.Load())
}

func TestCachedReconcilerDoesNotCacheErrors(t *testing.T) {
	src := &countingSource{err: errors.New("invalid stop id")}
	c := NewCachedReconciler(src, clock.NewMockClock(testNow), time.Minute)

	_, err := c.ArrivalsFor(context.Background(), "bad")
	require.Error(t, err)
	_, err = c.ArrivalsFor(context.Background(), "bad")
	require.Error(t, err)

	assert.Equal(t, int64(2), src.calls.Load())
}
