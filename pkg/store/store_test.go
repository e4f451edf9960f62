package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := New("redis://"+mr.Addr(), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestGetMissAndPut(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, ok := s.Get(ctx, "fp1")
	assert.False(t, ok)

	s.Put(ctx, "fp1", []byte(`{"query":"q"}`))

	payload, ok := s.Get(ctx, "fp1")
	require.True(t, ok)
	assert.Equal(t, []byte(`{"query":"q"}`), payload)
}

func TestPutSetsTTL(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	s.Put(ctx, "fp1", []byte("payload"))
	assert.Equal(t, time.Hour, mr.TTL("cache:fp1"))

	mr.FastForward(2 * time.Hour)
	_, ok := s.Get(ctx, "fp1")
	assert.False(t, ok)
}

func TestGetSwallowsServerFailure(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	mr.Close()
	_, ok := s.Get(ctx, "fp1")
	assert.False(t, ok)

	// Writes and stats must not panic either.
	s.Put(ctx, "fp1", []byte("payload"))
	s.RecordQuery(ctx, "general", false, 10*time.Millisecond)
}

func TestRecordQueryAndStats(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.RecordQuery(ctx, "research", false, 200*time.Millisecond)
	s.RecordQuery(ctx, "research", true, 100*time.Millisecond)
	s.RecordQuery(ctx, "code", false, 300*time.Millisecond)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.QueriesTotal)
	assert.InDelta(t, 1.0/3.0, stats.CacheHitRate, 1e-9)
	assert.InDelta(t, 200.0, stats.AvgLatencyMS, 1e-9)
	assert.Equal(t, map[string]int64{"research": 2, "code": 1}, stats.QueriesByIntent)
}

func TestRecordQueryKeepsSubMillisecondLatency(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.RecordQuery(ctx, "general", true, 500*time.Microsecond)
	s.RecordQuery(ctx, "general", true, 1500*time.Microsecond)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, stats.AvgLatencyMS, 1e-9)
}

func TestStatsEmpty(t *testing.T) {
	s, _ := newTestStore(t)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(0), stats.QueriesTotal)
	assert.Equal(t, 0.0, stats.CacheHitRate)
	assert.Equal(t, 0.0, stats.AvgLatencyMS)
	assert.Empty(t, stats.QueriesByIntent)
}

func TestStatsServerFailure(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()

	_, err := s.Stats(context.Background())
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	s, mr := newTestStore(t)

	assert.NoError(t, s.Ping(context.Background()))
	mr.Close()
	assert.Error(t, s.Ping(context.Background()))
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("not-a-url", time.Hour)
	require.Error(t, err)
}
