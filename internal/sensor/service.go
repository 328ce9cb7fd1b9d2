package sensor

import (
	"context"
	"log"
	"time"
)

// Service binds the cache and history store to the single configured site.
type Service struct {
	cache     ReadingCache
	store     Store
	siteID    string
	authToken string
}

// NewService creates a new Service.
func NewService(cache ReadingCache, store Store, siteID, authToken string) *Service {
	return &Service{
		cache:     cache,
		store:     store,
		siteID:    siteID,
		authToken: authToken,
	}
}

// SiteID returns the configured site identifier.
func (s *Service) SiteID() string {
	return s.siteID
}

// Latest returns the current reading, refreshing through the cache if needed.
func (s *Service) Latest(ctx context.Context) (SiteReading, error) {
	return s.cache.Get(ctx, s.siteID, s.authToken)
}

// GetLatestSnapshot delegates to the underlying store.
func (s *Service) GetLatestSnapshot() (Snapshot, error) {
	return s.store.GetLatest(s.siteID)
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(from, to time.Time) ([]Snapshot, error) {
	return s.store.GetRange(s.siteID, from, to)
}

// Refresh warms the cache. It never bypasses the TTL: a fresh reading is left alone.
func (s *Service) Refresh(ctx context.Context) error {
	log.Printf("DEBUG: warming reading for site %s", s.siteID)
	_, err := s.Latest(ctx)
	return err
}
