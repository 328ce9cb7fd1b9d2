package cache

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/humaidq/arbnco-proxy/internal/metrics"
	"github.com/humaidq/arbnco-proxy/internal/sensor"
)

const (
	// DefaultTTL keeps upstream calls well under the 10/min allowance.
	DefaultTTL = 25 * time.Second

	// DefaultFetchTimeout bounds a single refresh so waiters are never starved
	// by a hung upstream connection.
	DefaultFetchTimeout = 10 * time.Second
)

// State is the freshness of a cache entry.
type State int

const (
	StateEmpty State = iota
	StateFresh
	StateStale
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Status describes a cache entry at one instant.
type Status struct {
	State     State
	InFlight  bool
	FetchedAt time.Time
}

type entry struct {
	reading   sensor.SiteReading
	fetchedAt time.Time
	valid     bool
	inFlight  bool
}

// Freshness fronts a sensor.Fetcher with a TTL gate. At most one refresh per
// site is in flight at any time; callers arriving during a refresh wait for it
// and share its outcome. A failed refresh keeps the previous reading.
type Freshness struct {
	fetcher      sensor.Fetcher
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	onRefresh    func(sensor.Snapshot)

	mu      sync.RWMutex
	entries map[string]*entry
	group   singleflight.Group
}

// Option configures a Freshness cache.
type Option func(*Freshness)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Freshness) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithFetchTimeout overrides DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Freshness) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Freshness) {
		c.now = now
	}
}

// WithOnRefresh registers fn to be called after every successful refresh.
func WithOnRefresh(fn func(sensor.Snapshot)) Option {
	return func(c *Freshness) {
		c.onRefresh = fn
	}
}

// New creates a Freshness cache around fetcher.
func New(fetcher sensor.Fetcher, opts ...Option) *Freshness {
	c := &Freshness{
		fetcher:      fetcher,
		ttl:          DefaultTTL,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		entries:      make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured time-to-live.
func (c *Freshness) TTL() time.Duration {
	return c.ttl
}

// Get returns the reading for siteID, refreshing from upstream only when the
// stored one is missing or older than the TTL.
func (c *Freshness) Get(ctx context.Context, siteID, authToken string) (sensor.SiteReading, error) {
	if reading, ok := c.lookupFresh(siteID); ok {
		metrics.CacheResults.WithLabelValues("hit").Inc()
		return reading, nil
	}

	// The refresh does not use ctx; a cancelled waiter leaves it running for
	// the others sharing the flight.
	ch := c.group.DoChan(siteID, func() (interface{}, error) {
		return c.refresh(siteID, authToken)
	})

	select {
	case <-ctx.Done():
		return sensor.SiteReading{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			metrics.CacheResults.WithLabelValues("error").Inc()
			return sensor.SiteReading{}, res.Err
		}
		if res.Shared {
			metrics.CacheResults.WithLabelValues("shared").Inc()
		} else {
			metrics.CacheResults.WithLabelValues("miss").Inc()
		}
		return res.Val.(sensor.SiteReading), nil
	}
}

// State reports the current status of the entry for siteID.
func (c *Freshness) State(siteID string) Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[siteID]
	if !ok {
		return Status{State: StateEmpty}
	}

	st := Status{InFlight: e.inFlight, FetchedAt: e.fetchedAt}
	switch {
	case !e.valid:
		st.State = StateEmpty
	case c.isFresh(e):
		st.State = StateFresh
	default:
		st.State = StateStale
	}
	return st
}

func (c *Freshness) lookupFresh(siteID string) (sensor.SiteReading, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[siteID]
	if !ok || !c.isFresh(e) {
		return sensor.SiteReading{}, false
	}
	return e.reading, true
}

// isFresh must be called with c.mu held.
func (c *Freshness) isFresh(e *entry) bool {
	return e.valid && c.now().Sub(e.fetchedAt) < c.ttl
}

// refresh runs inside the single flight for siteID.
func (c *Freshness) refresh(siteID, authToken string) (sensor.SiteReading, error) {
	c.mu.Lock()
	e, ok := c.entries[siteID]
	if !ok {
		e = &entry{}
		c.entries[siteID] = e
	}
	// A flight that finished between our lookup and joining the group has
	// already stored a fresh reading.
	if c.isFresh(e) {
		reading := e.reading
		c.mu.Unlock()
		return reading, nil
	}
	e.inFlight = true
	c.mu.Unlock()

	reading, err := c.load(siteID, authToken)

	c.mu.Lock()
	e.inFlight = false
	if err != nil {
		c.mu.Unlock()
		log.Printf("ERROR: refresh failed for site %s: %v", siteID, err)
		return sensor.SiteReading{}, err
	}
	e.reading = reading
	e.fetchedAt = c.now()
	e.valid = true
	snapshot := sensor.Snapshot{SiteID: siteID, FetchedAt: e.fetchedAt.UTC(), Reading: reading}
	c.mu.Unlock()

	log.Printf("INFO: refreshed reading for site %s", siteID)
	if c.onRefresh != nil {
		c.onRefresh(snapshot)
	}
	return reading, nil
}

func (c *Freshness) load(siteID, authToken string) (sensor.SiteReading, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
	defer cancel()

	raw, err := c.fetcher.Fetch(ctx, siteID, authToken)
	if err != nil {
		return sensor.SiteReading{}, err
	}

	reading, err := sensor.Normalize(raw)
	if err != nil {
		return sensor.SiteReading{}, fmt.Errorf("normalize reading for site %s: %w", siteID, err)
	}
	return reading, nil
}
