// Package cache keeps short-lived in-memory snapshots of the offer store.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/xenking/offer-engine/internal/domain/offer"
)

const snapshotKey = "offers"

var _ offer.Repository = (*OfferSnapshot)(nil)

// OfferSnapshot is an offer.Repository that serves the full offer list from
// memory for ttl before reading the underlying store again. Concurrent misses
// share a single store read. The returned slice is shared and must not be
// modified.
type OfferSnapshot struct {
	next  offer.Repository
	ttl   time.Duration
	cache *gocache.Cache
	group singleflight.Group
}

// NewOfferSnapshot wraps next. A non-positive ttl disables caching.
func NewOfferSnapshot(next offer.Repository, ttl time.Duration) *OfferSnapshot {
	cleanup := 2 * ttl
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &OfferSnapshot{
		next:  next,
		ttl:   ttl,
		cache: gocache.New(ttl, cleanup),
	}
}

// List returns the cached snapshot or reads a fresh one.
func (s *OfferSnapshot) List(ctx context.Context) ([]offer.Offer, error) {
	if s.ttl <= 0 {
		return s.next.List(ctx)
	}
	if v, ok := s.cache.Get(snapshotKey); ok {
		return v.([]offer.Offer), nil
	}

	// The shared read outlives any single caller; each caller still stops
	// waiting when its own ctx is done.
	readCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(snapshotKey, func() (any, error) {
		offers, err := s.next.List(readCtx)
		if err != nil {
			return nil, err
		}
		s.cache.Set(snapshotKey, offers, s.ttl)
		return offers, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]offer.Offer), nil
	}
}

// Invalidate drops the cached snapshot.
func (s *OfferSnapshot) Invalidate() {
	s.cache.Delete(snapshotKey)
}
