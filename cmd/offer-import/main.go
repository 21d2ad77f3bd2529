// Command offer-import bulk-loads coupon-gated offers from gzip-compressed
// JSON-lines files, skipping coupon codes that already exist.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/offer-engine/internal/offerfile"
	"github.com/xenking/offer-engine/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		pattern     string
		capacity    uint
		fpr         float64
		dryRun      bool
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&pattern, "files", "data/*.jsonl.gz", "glob of gzip JSON-lines offer files")
	flag.UintVar(&capacity, "expected-codes", 1_000_000, "expected number of distinct coupon codes")
	flag.Float64Var(&fpr, "false-positive-rate", 0.001, "duplicate filter false positive rate")
	flag.BoolVar(&dryRun, "dry-run", false, "validate and deduplicate without writing")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, pattern, offerfile.WithCapacity(capacity, fpr), offerfile.WithDryRun(dryRun)); err != nil {
		lg.Fatal("Import failed", zap.Error(err))
	}
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, pattern string, opts ...offerfile.ImporterOption) error {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return errors.Wrap(err, "match files")
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %q", pattern)
	}
	lg.Info("Importing", zap.Strings("files", files))

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	_, err = offerfile.NewImporter(postgres.NewOfferRepository(pool), lg, opts...).Import(ctx, files)
	return err
}
