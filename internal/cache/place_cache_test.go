package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/NixVir/whereami-web/internal/geocode"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type countingUpstream struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (u *countingUpstream) Geocode(ctx context.Context, query string) (geocode.Place, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	if u.err != nil {
		return geocode.Place{}, u.err
	}
	return geocode.Place{Latitude: 40.015, Longitude: -105.2705, Address: query}, nil
}

func (u *countingUpstream) GeocodeStructured(ctx context.Context, q geocode.Query) (geocode.Place, error) {
	return u.Geocode(ctx, q.Full)
}

func (u *countingUpstream) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}

// clock is a settable time source.
type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestCache(u Upstream, cfg Config) (*PlaceCache, *clock) {
	clk := &clock{now: time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)}
	c := New(u, cfg, testLogger())
	c.nowFunc = clk.Now
	return c, clk
}

func TestPlaceCacheHit(t *testing.T) {
	u := &countingUpstream{}
	c, _ := newTestCache(u, Config{})
	ctx := context.Background()

	first, err := c.Geocode(ctx, "Boulder, CO")
	if err != nil {
		t.Fatal(err)
	}
	// Case and spacing do not change the key.
	second, err := c.Geocode(ctx, "  boulder,   co ")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("cached place = %+v, want %+v", second, first)
	}
	if u.count() != 1 {
		t.Errorf("upstream calls = %d, want 1", u.count())
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Entries != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestPlaceCacheStructuredKeyedSeparately(t *testing.T) {
	u := &countingUpstream{}
	c, _ := newTestCache(u, Config{})
	ctx := context.Background()

	q := geocode.ParseLocation("Boulder, CO, USA")
	c.GeocodeStructured(ctx, q)
	c.GeocodeStructured(ctx, q)
	c.Geocode(ctx, "Boulder, CO, USA")

	if u.count() != 2 {
		t.Errorf("upstream calls = %d, want 2", u.count())
	}
}

func TestPlaceCacheErrorsNotCached(t *testing.T) {
	u := &countingUpstream{err: geocode.ErrUpstream}
	c, _ := newTestCache(u, Config{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.Geocode(ctx, "Paris"); !errors.Is(err, geocode.ErrUpstream) {
			t.Fatalf("Geocode() error = %v, want ErrUpstream", err)
		}
	}
	if u.count() != 2 {
		t.Errorf("upstream calls = %d, want 2", u.count())
	}
	if c.Stats().Entries != 0 {
		t.Error("failed lookup was cached")
	}
}

func TestPlaceCacheTTL(t *testing.T) {
	u := &countingUpstream{}
	c, clk := newTestCache(u, Config{TTL: time.Hour})
	ctx := context.Background()

	c.Geocode(ctx, "Paris")
	clk.now = clk.now.Add(59 * time.Minute)
	c.Geocode(ctx, "Paris")
	if u.count() != 1 {
		t.Fatalf("upstream calls = %d before expiry, want 1", u.count())
	}

	clk.now = clk.now.Add(time.Minute)
	c.Geocode(ctx, "Paris")
	if u.count() != 2 {
		t.Errorf("upstream calls = %d after expiry, want 2", u.count())
	}
}

func TestPlaceCacheEvictExpired(t *testing.T) {
	u := &countingUpstream{}
	c, clk := newTestCache(u, Config{TTL: time.Hour})
	ctx := context.Background()

	c.Geocode(ctx, "Paris")
	clk.now = clk.now.Add(30 * time.Minute)
	c.Geocode(ctx, "Rome")
	clk.now = clk.now.Add(45 * time.Minute)

	if removed := c.evictExpired(); removed != 1 {
		t.Errorf("evictExpired() = %d, want 1", removed)
	}
	s := c.Stats()
	if s.Entries != 1 || s.Evictions != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestPlaceCacheCapacity(t *testing.T) {
	u := &countingUpstream{}
	c, clk := newTestCache(u, Config{MaxEntries: 2})
	ctx := context.Background()

	for _, q := range []string{"Paris", "Rome", "Oslo"} {
		c.Geocode(ctx, q)
		clk.now = clk.now.Add(time.Second)
	}
	if n := c.Stats().Entries; n != 2 {
		t.Fatalf("entries = %d, want 2", n)
	}

	// The oldest entry made room; the newer ones are still cached.
	c.Geocode(ctx, "Rome")
	c.Geocode(ctx, "Oslo")
	if u.count() != 3 {
		t.Errorf("upstream calls = %d, want 3", u.count())
	}
	c.Geocode(ctx, "Paris")
	if u.count() != 4 {
		t.Errorf("upstream calls = %d, want 4 after evicted key", u.count())
	}
}

func TestPlaceCacheStartStops(t *testing.T) {
	c, _ := newTestCache(&countingUpstream{}, Config{SweepInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
