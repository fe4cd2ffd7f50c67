package ingest_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/jhu-snapshot-etl/internal/domain"
	"github.com/couchcryptid/jhu-snapshot-etl/internal/ingest"
	"github.com/couchcryptid/jhu-snapshot-etl/internal/observability"
)

const testKey = "jhu_v2"

// --- mocks ---

type mockSource struct {
	mu    sync.Mutex
	rows  [][]string
	err   error
	dates []string
}

func (m *mockSource) FetchRows(_ context.Context, date string) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dates = append(m.dates, date)
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

func (m *mockSource) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dates)
}

type mockCache struct {
	mu     sync.Mutex
	values map[string]string
	sets   int
	setErr error
}

func newMockCache() *mockCache {
	return &mockCache{values: map[string]string{}}
}

func (m *mockCache) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	m.sets++
	return nil
}

func (m *mockCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", errors.New("key not found")
	}
	return v, nil
}

func (m *mockCache) setCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

func (m *mockCache) value(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key]
}

type mockAnnouncer struct {
	date      string
	locations int
	calls     int
	err       error
}

func (m *mockAnnouncer) Announce(_ context.Context, date string, locations int) error {
	m.date = date
	m.locations = locations
	m.calls++
	return m.err
}

// ---

var testRows = [][]string{
	{"FIPS", "Admin2", "Province_State", "Country_Region", "Last_Update", "Lat", "Long_", "Confirmed", "Deaths", "Recovered"},
	{"", "Orange", "California", "US", "t1", "33.7", "-117.8", "5", "0", "0"},
	{"", "", "", "Italy", "t2", "41.8", "12.4", "7", "1", "2"},
}

func newIngestor(source *mockSource, cache *mockCache, announcer ingest.Announcer) *ingest.Ingestor {
	return ingest.New(source, cache, announcer, slog.Default(), observability.NewMetricsForTesting(), testKey, 24*time.Hour)
}

func frozenDomainClock(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2020, 4, 2, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })
}

func TestIngest_HappyPath(t *testing.T) {
	frozenDomainClock(t)
	source := &mockSource{rows: testRows}
	cache := newMockCache()
	ann := &mockAnnouncer{}

	result, err := newIngestor(source, cache, ann).Ingest(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "04-01-2020", result.Date)
	assert.Equal(t, 2, result.Locations)
	assert.Equal(t, []string{"04-01-2020"}, source.dates)

	// The header row must not survive as data.
	var records []domain.Record
	require.NoError(t, json.Unmarshal([]byte(cache.value(testKey)), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "US", records[0].Country)
	assert.Equal(t, "Orange", *records[0].County)
	assert.Equal(t, "Italy", records[1].Country)
	assert.Nil(t, records[1].County)

	assert.Equal(t, 1, ann.calls)
	assert.Equal(t, "04-01-2020", ann.date)
	assert.Equal(t, 2, ann.locations)
}

func TestIngest_FetchFailureLeavesCacheUntouched(t *testing.T) {
	frozenDomainClock(t)
	source := &mockSource{err: errors.New("connection refused")}
	cache := newMockCache()
	cache.values[testKey] = `[{"country":"Old"}]`
	ann := &mockAnnouncer{}

	_, err := newIngestor(source, cache, ann).Ingest(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch snapshot")
	assert.Equal(t, 0, cache.setCount())
	assert.Equal(t, `[{"country":"Old"}]`, cache.value(testKey), "previous snapshot must stay intact")
	assert.Equal(t, 0, ann.calls)
}

func TestIngest_CacheFailurePropagates(t *testing.T) {
	frozenDomainClock(t)
	source := &mockSource{rows: testRows}
	cache := newMockCache()
	cache.setErr = errors.New("redis down")

	_, err := newIngestor(source, cache, nil).Ingest(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "store snapshot")
}

func TestIngest_AnnounceFailureDoesNotFailIngestion(t *testing.T) {
	frozenDomainClock(t)
	source := &mockSource{rows: testRows}
	cache := newMockCache()
	ann := &mockAnnouncer{err: errors.New("broker down")}

	result, err := newIngestor(source, cache, ann).Ingest(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Locations)
	assert.Equal(t, 1, cache.setCount())
}

func TestIngest_HeaderOnlyReportYieldsEmptySnapshot(t *testing.T) {
	frozenDomainClock(t)
	source := &mockSource{rows: testRows[:1]}
	cache := newMockCache()

	result, err := newIngestor(source, cache, nil).Ingest(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, result.Locations)
	assert.JSONEq(t, `[]`, cache.value(testKey))
}

func TestIngestDate_UsesExplicitDate(t *testing.T) {
	source := &mockSource{rows: testRows}
	cache := newMockCache()

	result, err := newIngestor(source, cache, nil).IngestDate(context.Background(), "03-15-2020")

	require.NoError(t, err)
	assert.Equal(t, "03-15-2020", result.Date)
	assert.Equal(t, []string{"03-15-2020"}, source.dates)
}

func TestSnapshot(t *testing.T) {
	t.Run("round-trips the stored collection", func(t *testing.T) {
		frozenDomainClock(t)
		source := &mockSource{rows: testRows}
		cache := newMockCache()
		ing := newIngestor(source, cache, nil)

		_, err := ing.Ingest(context.Background())
		require.NoError(t, err)

		records, err := ing.Snapshot(context.Background())
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("missing snapshot is an error", func(t *testing.T) {
		ing := newIngestor(&mockSource{}, newMockCache(), nil)

		_, err := ing.Snapshot(context.Background())
		require.Error(t, err)
	})

	t.Run("corrupt snapshot is an error", func(t *testing.T) {
		cache := newMockCache()
		cache.values[testKey] = "{not json"
		ing := newIngestor(&mockSource{}, cache, nil)

		_, err := ing.Snapshot(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode snapshot")
	})
}

func TestCheckReadiness(t *testing.T) {
	t.Run("not ready without a snapshot", func(t *testing.T) {
		ing := newIngestor(&mockSource{}, newMockCache(), nil)

		require.Error(t, ing.CheckReadiness(context.Background()))
	})

	t.Run("ready after a successful ingest", func(t *testing.T) {
		frozenDomainClock(t)
		ing := newIngestor(&mockSource{rows: testRows}, newMockCache(), nil)

		_, err := ing.Ingest(context.Background())
		require.NoError(t, err)

		require.NoError(t, ing.CheckReadiness(context.Background()))
	})

	t.Run("ready when a previous process left a snapshot", func(t *testing.T) {
		cache := newMockCache()
		cache.values[testKey] = "[]"
		ing := newIngestor(&mockSource{}, cache, nil)

		require.NoError(t, ing.CheckReadiness(context.Background()))
	})
}

func TestRun_IngestsOnceThenStopsOnCancel(t *testing.T) {
	frozenDomainClock(t)
	source := &mockSource{rows: testRows}
	cache := newMockCache()
	ing := newIngestor(source, cache, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ing.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.setCount())
}

func TestRun_TicksOnTheConfiguredInterval(t *testing.T) {
	frozenDomainClock(t)
	source := &mockSource{rows: testRows}
	cache := newMockCache()
	ing := newIngestor(source, cache, nil)

	fake := clockwork.NewFakeClock()
	ing.SetClock(fake)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- ing.Run(ctx) }()

	require.Eventually(t, func() bool { return source.fetchCount() == 1 }, time.Second, 10*time.Millisecond)

	// Wait for Run to block on the ticker, then advance past one interval.
	require.NoError(t, fake.BlockUntilContext(ctx, 1))
	fake.Advance(24 * time.Hour)

	require.Eventually(t, func() bool { return source.fetchCount() == 2 }, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
