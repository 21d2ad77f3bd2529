package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/offer-engine/internal/domain/offer"
)

type countingRepo struct {
	calls  atomic.Int32
	offers []offer.Offer
	err    error
	delay  time.Duration
}

func (r *countingRepo) List(_ context.Context) ([]offer.Offer, error) {
	r.calls.Add(1)
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return r.offers, r.err
}

func TestOfferSnapshot_CachesWithinTTL(t *testing.T) {
	repo := &countingRepo{offers: []offer.Offer{{ID: "o1"}}}
	s := NewOfferSnapshot(repo, time.Minute)
	ctx := context.Background()

	for range 5 {
		got, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "o1", got[0].ID)
	}
	assert.Equal(t, int32(1), repo.calls.Load())

	s.Invalidate()
	_, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), repo.calls.Load())
}

func TestOfferSnapshot_Disabled(t *testing.T) {
	repo := &countingRepo{}
	s := NewOfferSnapshot(repo, 0)

	for range 3 {
		_, err := s.List(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), repo.calls.Load())
}

func TestOfferSnapshot_ErrorsAreNotCached(t *testing.T) {
	repo := &countingRepo{err: errors.New("db down")}
	s := NewOfferSnapshot(repo, time.Minute)

	_, err := s.List(context.Background())
	require.Error(t, err)

	repo.err = nil
	repo.offers = []offer.Offer{{ID: "o1"}}
	got, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(2), repo.calls.Load())
}

func TestOfferSnapshot_ConcurrentMissesShareRead(t *testing.T) {
	repo := &countingRepo{offers: []offer.Offer{{ID: "o1"}}, delay: 50 * time.Millisecond}
	s := NewOfferSnapshot(repo, time.Minute)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.List(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, repo.calls.Load(), int32(2))
}

type blockingRepo struct {
	started chan struct{}
	release chan struct{}
	offers  []offer.Offer
}

func (r *blockingRepo) List(ctx context.Context) ([]offer.Offer, error) {
	close(r.started)
	<-r.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.offers, nil
}

func TestOfferSnapshot_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	repo := &blockingRepo{
		started: make(chan struct{}),
		release: make(chan struct{}),
		offers:  []offer.Offer{{ID: "o1"}},
	}
	s := NewOfferSnapshot(repo, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.List(ctx)
		firstErr <- err
	}()
	<-repo.started

	type result struct {
		offers []offer.Offer
		err    error
	}
	second := make(chan result, 1)
	go func() {
		got, err := s.List(context.Background())
		second <- result{got, err}
	}()

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)
	close(repo.release)

	res := <-second
	require.NoError(t, res.err)
	require.Len(t, res.offers, 1)
	assert.Equal(t, "o1", res.offers[0].ID)
}
