package sensor

import (
	"context"
	"time"
)

// Fetcher abstracts the upstream readings API.
type Fetcher interface {
	Fetch(ctx context.Context, siteID, authToken string) (RawSensorResponse, error)
}

// ReadingCache serves the latest reading for a site, refreshing from upstream
// at most once per TTL window.
type ReadingCache interface {
	Get(ctx context.Context, siteID, authToken string) (SiteReading, error)
}

// Store is the contract the in-memory history store must satisfy.
type Store interface {
	SaveSnapshot(snapshot Snapshot)
	GetLatest(siteID string) (Snapshot, error)
	GetRange(siteID string, from, to time.Time) ([]Snapshot, error)
}
