package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpiry(t *testing.T) {
	now := time.Date(2025, 1, 15, 14, 0, 0, 0, time.UTC)
	c := New[string]("test", nil)
	c.now = func() time.Time { return now }

	c.Set("AAPL", "v1", time.Minute)

	got, ok := c.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, "v1", got)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("AAPL")
	assert.False(t, ok, "entry expired")
}

func TestTTLCacheGetOrFetchCachesOnce(t *testing.T) {
	c := New[int]("test", nil)
	var fetches int64
	fetch := func() (int, error) {
		atomic.AddInt64(&fetches, 1)
		return 7, nil
	}

	for i := 0; i < 3; i++ {
		got, err := c.GetOrFetch(context.Background(), "K", time.Minute, fetch)
		require.NoError(t, err)
		assert.Equal(t, 7, got)
	}
	assert.Equal(t, int64(1), atomic.LoadInt64(&fetches))
}

func TestTTLCacheZeroTTLBypasses(t *testing.T) {
	c := New[int]("test", nil)
	var fetches int64
	for i := 0; i < 3; i++ {
		_, err := c.GetOrFetch(context.Background(), "K", 0, func() (int, error) {
			atomic.AddInt64(&fetches, 1)
			return 1, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), fetches, "live data is never cached")
}

func TestTTLCacheCoalescesConcurrentFetches(t *testing.T) {
	c := New[int]("test", nil)
	var fetches int64
	release := make(chan struct{})

	fetch := func() (int, error) {
		atomic.AddInt64(&fetches, 1)
		<-release
		return 99, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := c.GetOrFetch(context.Background(), "K", time.Minute, fetch)
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}

	// Let the callers pile up on the in-flight fetch, then release it.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&fetches), "one origin fetch for all callers")
	for _, got := range results {
		assert.Equal(t, 99, got)
	}
}

func TestTTLCacheErrorsAreNotCached(t *testing.T) {
	c := New[int]("test", nil)
	var fetches int64
	fetch := func() (int, error) {
		if atomic.AddInt64(&fetches, 1) == 1 {
			return 0, errors.New("vendor down")
		}
		return 5, nil
	}

	_, err := c.GetOrFetch(context.Background(), "K", time.Minute, fetch)
	assert.Error(t, err)

	got, err := c.GetOrFetch(context.Background(), "K", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 5, got)
}

type memMirror struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemMirror() *memMirror { return &memMirror{data: make(map[string][]byte)} }

func (m *memMirror) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	return raw, ok
}

func (m *memMirror) Set(_ context.Context, key string, value []byte, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func (m *memMirror) Close() error { return nil }

func TestTTLCacheMirrorRoundTrip(t *testing.T) {
	mirror := newMemMirror()

	first := New[map[string]float64]("test", mirror)
	want := map[string]float64{"short_interest_pct": 35.5}
	got, err := first.GetOrFetch(context.Background(), "ABCD", time.Hour, func() (map[string]float64, error) {
		return want, nil
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// A fresh cache (cold process) reads the mirror instead of the origin.
	second := New[map[string]float64]("test", mirror)
	got, err = second.GetOrFetch(context.Background(), "ABCD", time.Hour, func() (map[string]float64, error) {
		t.Fatal("origin fetch should not run when the mirror has the entry")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDiskMirrorFlushAndReload(t *testing.T) {
	dir := t.TempDir()

	m := NewDiskMirror(dir, "fundamentals", false)
	m.Set(context.Background(), "abcd", []byte(`{"float":1}`), time.Hour)
	require.NoError(t, m.Close())

	reloaded := NewDiskMirror(dir, "fundamentals", false)
	raw, ok := reloaded.Get(context.Background(), "ABCD")
	require.True(t, ok, "keys are uppercased")
	assert.JSONEq(t, `{"float":1}`, string(raw))
}

func TestDiskMirrorReadOnlySkipsWrites(t *testing.T) {
	dir := t.TempDir()

	m := NewDiskMirror(dir, "borrow", true)
	m.Set(context.Background(), "ABCD", []byte(`{}`), time.Hour)
	require.NoError(t, m.Close())

	reloaded := NewDiskMirror(dir, "borrow", false)
	_, ok := reloaded.Get(context.Background(), "ABCD")
	assert.False(t, ok)
}
