// Command offer-seed loads the catalog, offers and an admin API key from JSON
// fixtures.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/offer-engine/internal/domain/auth"
	"github.com/xenking/offer-engine/internal/offerfile"
	"github.com/xenking/offer-engine/internal/storage/postgres"
)

type options struct {
	databaseURL  string
	productsFile string
	offersFile   string
	apiKey       string
	apiKeyPepper string
}

func main() {
	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&opts.offersFile, "offers-file", "db/seed/offers.json", "path to offers JSON file")
	flag.StringVar(&opts.apiKey, "api-key", "", "admin API key to seed (or OFFERS_SEED_API_KEY env)")
	flag.StringVar(&opts.apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or OFFERS_API_KEY_PEPPER env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.apiKey == "" {
		opts.apiKey = os.Getenv("OFFERS_SEED_API_KEY")
	}
	if opts.apiKeyPepper == "" {
		opts.apiKeyPepper = os.Getenv("OFFERS_API_KEY_PEPPER")
	}
	if opts.databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, opts); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	products, err := offerfile.LoadProducts(opts.productsFile)
	if err != nil {
		return errors.Wrap(err, "load products")
	}
	offers, err := offerfile.LoadOffers(opts.offersFile)
	if err != nil {
		return errors.Wrap(err, "load offers")
	}

	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	productRepo := postgres.NewProductRepository(pool)
	for i := range products {
		if err := productRepo.Upsert(ctx, &products[i]); err != nil {
			return err
		}
	}
	lg.Info("Seeded products", zap.Int("count", len(products)))

	offerRepo := postgres.NewOfferRepository(pool)
	for i := range offers {
		if err := offerRepo.Upsert(ctx, &offers[i]); err != nil {
			return err
		}
	}
	lg.Info("Seeded offers", zap.Int("count", len(offers)))

	if opts.apiKey == "" {
		lg.Warn("No API key given, skipping admin key")
		return nil
	}
	if err := postgres.NewAPIKeyRepository(pool).Upsert(ctx, &auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.Hash([]byte(opts.apiKeyPepper), opts.apiKey),
		Name:    "Default admin key",
		Scopes:  []string{auth.ScopePreview},
	}); err != nil {
		return err
	}
	lg.Info("Seeded API key", zap.String("id", "default"))
	return nil
}
