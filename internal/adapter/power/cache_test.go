package power

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilimoalert/drought-engine/internal/domain"
)

type countingSource struct {
	calls int
	obs   []domain.WeatherObservation
	err   error
}

func (s *countingSource) FetchDaily(ctx context.Context, region domain.Region, from, to time.Time) ([]domain.WeatherObservation, error) {
	s.calls++
	return s.obs, s.err
}

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestCachedSource_HitAndMiss(t *testing.T) {
	inner := &countingSource{obs: []domain.WeatherObservation{
		{RegionID: "machakos", Date: day(10), TemperatureAvgC: 25},
	}}
	cached := NewCachedSource(inner, 10, testMetrics())

	obs, err := cached.FetchDaily(context.Background(), testRegion, day(10), day(10))
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, 1, inner.calls)

	// Same range hits the cache.
	_, err = cached.FetchDaily(context.Background(), testRegion, day(10), day(10))
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)

	// A different range misses.
	_, err = cached.FetchDaily(context.Background(), testRegion, day(10), day(11))
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedSource_EmptyNotCached(t *testing.T) {
	inner := &countingSource{}
	cached := NewCachedSource(inner, 10, testMetrics())

	_, err := cached.FetchDaily(context.Background(), testRegion, day(10), day(10))
	require.NoError(t, err)
	_, err = cached.FetchDaily(context.Background(), testRegion, day(10), day(10))
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "empty responses are retried")
}

func TestCachedSource_ErrorsPassThrough(t *testing.T) {
	inner := &countingSource{err: errors.New("rate limited")}
	cached := NewCachedSource(inner, 10, testMetrics())

	_, err := cached.FetchDaily(context.Background(), testRegion, day(10), day(10))
	require.Error(t, err)
	_, err = cached.FetchDaily(context.Background(), testRegion, day(10), day(10))
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestLRUCacheEviction(t *testing.T) {
	c := newLRUCache(2)
	obs := []domain.WeatherObservation{{RegionID: "x"}}

	c.put("a", obs)
	c.put("b", obs)

	// Touch "a" so "b" is the eviction candidate.
	_, ok := c.get("a")
	require.True(t, ok)

	c.put("c", obs)

	_, ok = c.get("b")
	assert.False(t, ok, "least recently used entry is evicted")
	_, ok = c.get("a")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
}
