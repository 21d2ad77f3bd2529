package offerfile

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/offer-engine/internal/domain/offer"
)

// Store is the write side of the offer store used by Importer.
type Store interface {
	ListCouponCodes(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, o *offer.Offer) error
}

// Stats summarises an import run.
type Stats struct {
	Read       int
	Imported   int
	Duplicates int
	Invalid    int
}

// Importer bulk-loads coupon-gated offers, keeping coupon codes unique
// across the store and the imported files.
type Importer struct {
	store    Store
	lg       *zap.Logger
	capacity uint
	fpr      float64
	dryRun   bool
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithCapacity sizes the duplicate filter.
func WithCapacity(n uint, fpr float64) ImporterOption {
	return func(i *Importer) {
		i.capacity = n
		i.fpr = fpr
	}
}

// WithDryRun validates and deduplicates without writing.
func WithDryRun(dryRun bool) ImporterOption {
	return func(i *Importer) { i.dryRun = dryRun }
}

// NewImporter creates an Importer.
func NewImporter(store Store, lg *zap.Logger, opts ...ImporterOption) *Importer {
	i := &Importer{store: store, lg: lg, capacity: 1_000_000, fpr: 0.001}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Import reads all files concurrently and writes their offers through a
// single writer. Records without a coupon code, with a code already in the
// store or repeated across files are skipped.
func (i *Importer) Import(ctx context.Context, files []string) (Stats, error) {
	existing, err := i.store.ListCouponCodes(ctx)
	if err != nil {
		return Stats{}, errors.Wrap(err, "list coupon codes")
	}
	codes := NewCodeSet(max(i.capacity, uint(len(existing))), i.fpr)
	for _, c := range existing {
		codes.Add(c)
	}
	i.lg.Info("Loaded existing coupon codes", zap.Int("count", codes.Len()))

	var (
		stats   Stats
		statsMu sync.Mutex
		recs    = make(chan offer.Offer, 1024)
		readers sync.WaitGroup
	)
	invalid := func(n int) {
		statsMu.Lock()
		stats.Invalid += n
		statsMu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, path := range files {
		readers.Add(1)
		g.Go(func() error {
			defer readers.Done()
			read := 0
			err := ScanGzipFile(gctx, path, func(rec *Record) error {
				read++
				o, err := rec.Offer()
				if err == nil && !o.IsCouponGated() {
					err = errors.Errorf("offer %s: coupon code required", o.ID)
				}
				if err != nil {
					i.lg.Warn("Skipping invalid record", zap.String("file", path), zap.Error(err))
					invalid(1)
					return nil
				}
				select {
				case recs <- o:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			}, func(le *LineError) {
				i.lg.Warn("Skipping malformed line", zap.Error(le))
				invalid(1)
			})
			statsMu.Lock()
			stats.Read += read
			statsMu.Unlock()
			i.lg.Info("File scanned", zap.String("file", path), zap.Int("records", read))
			return err
		})
	}
	go func() {
		readers.Wait()
		close(recs)
	}()

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case o, ok := <-recs:
				if !ok {
					return nil
				}
				if !codes.Add(o.CouponCode) {
					statsMu.Lock()
					stats.Duplicates++
					statsMu.Unlock()
					continue
				}
				if !i.dryRun {
					if err := i.store.Upsert(gctx, &o); err != nil {
						return errors.Wrapf(err, "upsert offer %s", o.ID)
					}
				}
				statsMu.Lock()
				stats.Imported++
				statsMu.Unlock()
			}
		}
	})

	err = g.Wait()
	i.lg.Info("Import finished",
		zap.Int("read", stats.Read),
		zap.Int("imported", stats.Imported),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("invalid", stats.Invalid),
		zap.Int("bloom_false_positives", codes.FalsePositives),
		zap.Bool("dry_run", i.dryRun),
	)
	return stats, err
}
