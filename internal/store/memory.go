package store

import (
	"errors"
	"sync"
	"time"

	"github.com/humaidq/arbnco-proxy/internal/sensor"
)

var (
	// ErrNotFound is returned when no reading has been recorded for a site.
	ErrNotFound = errors.New("no readings recorded for site")
)

// MemoryStore is a concurrency-safe, bounded history of refreshed readings.
// Nothing survives a restart.
type MemoryStore struct {
	mu sync.RWMutex

	// key: site id, value: snapshots ordered by FetchedAt
	data map[string][]sensor.Snapshot

	maxHistory int           // max snapshots per site
	maxAge     time.Duration // optional max age for snapshots

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string][]sensor.Snapshot),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveSnapshot appends a snapshot for its site and enforces retention.
func (s *MemoryStore) SaveSnapshot(snapshot sensor.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.data[snapshot.SiteID], snapshot)

	if s.maxHistory > 0 && len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}

	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history); i++ {
			if !history[i].FetchedAt.Before(cutoff) {
				break
			}
		}
		history = history[i:]
	}

	s.data[snapshot.SiteID] = history
}

// GetLatest returns the most recent snapshot for a site.
func (s *MemoryStore) GetLatest(siteID string) (sensor.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.data[siteID]
	if len(history) == 0 {
		return sensor.Snapshot{}, ErrNotFound
	}
	return history[len(history)-1], nil
}

// GetRange returns all snapshots for a site between from and to (inclusive).
func (s *MemoryStore) GetRange(siteID string, from, to time.Time) ([]sensor.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []sensor.Snapshot
	for _, snap := range s.data[siteID] {
		if !snap.FetchedAt.Before(from) && !snap.FetchedAt.After(to) {
			result = append(result, snap)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
