package sensor

import (
	"context"
	"testing"
	"time"
)

type stubCache struct {
	gotSite, gotToken string
	calls             int
}

func (c *stubCache) Get(ctx context.Context, siteID, authToken string) (SiteReading, error) {
	c.calls++
	c.gotSite, c.gotToken = siteID, authToken
	return SiteReading{Temperature: 20}, nil
}

type stubStore struct {
	snapshots []Snapshot
}

func (s *stubStore) SaveSnapshot(snapshot Snapshot) { s.snapshots = append(s.snapshots, snapshot) }

func (s *stubStore) GetLatest(siteID string) (Snapshot, error) {
	return s.snapshots[len(s.snapshots)-1], nil
}

func (s *stubStore) GetRange(siteID string, from, to time.Time) ([]Snapshot, error) {
	return s.snapshots, nil
}

func TestService_UsesConfiguredSite(t *testing.T) {
	c := &stubCache{}
	svc := NewService(c, &stubStore{}, "site-42", "token")

	r, err := svc.Latest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Temperature != 20 {
		t.Fatalf("unexpected reading %+v", r)
	}
	if c.gotSite != "site-42" || c.gotToken != "token" {
		t.Fatalf("expected configured site and token, got %q/%q", c.gotSite, c.gotToken)
	}

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.calls != 2 {
		t.Fatalf("expected refresh to go through the cache, got %d calls", c.calls)
	}
}
