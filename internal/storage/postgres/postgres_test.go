//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/offer-engine/internal/domain/auth"
	"github.com/xenking/offer-engine/internal/domain/catalog"
	"github.com/xenking/offer-engine/internal/domain/offer"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "offers",
				"POSTGRES_PASSWORD": "offers",
				"POSTGRES_DB":       "offers",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		return 1
	}
	defer func() { _ = container.Terminate(context.Background()) }()

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "container host: %v\n", err)
		return 1
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "mapped port: %v\n", err)
		return 1
	}

	url := fmt.Sprintf("postgres://offers:offers@%s:%s/offers?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pool: %v\n", err)
		return 1
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "migrations: %v\n", err)
		return 1
	}

	return m.Run()
}

func TestOfferRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewOfferRepository(testPool)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	offers := []offer.Offer{
		{
			ID: "o-product", Name: "Milk BOGO", Type: offer.TypeBuyOneGetOne,
			DiscountValue: decimal.Zero, MinQuantity: 2, Scope: offer.ProductScope("milk"),
			StartDate: start, EndDate: end, Active: true,
		},
		{
			ID: "o-coupon", Name: "Dairy coupon", Type: offer.TypeCouponCode, CouponBasis: offer.TypeFlat,
			DiscountValue: decimal.RequireFromString("5.50"), Scope: offer.CategoryScope("dairy"),
			CouponCode: "Dairy5", StartDate: start, EndDate: end, Active: true,
		},
		{
			ID: "o-store", Name: "Festival", Type: offer.TypeFestivalSale,
			DiscountValue: decimal.NewFromInt(15), MaxQuantity: 10, Scope: offer.StoreWide(),
			StartDate: start, EndDate: end, Active: false,
		},
	}
	for i := range offers {
		require.NoError(t, repo.Upsert(ctx, &offers[i]))
	}

	got, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	byID := make(map[string]offer.Offer, len(got))
	for _, o := range got {
		byID[o.ID] = o
	}

	p := byID["o-product"]
	assert.Equal(t, offer.TypeBuyOneGetOne, p.Type)
	assert.Equal(t, 2, p.MinQuantity)
	assert.Equal(t, 0, p.MaxQuantity)
	id, ok := p.Scope.ProductID()
	assert.True(t, ok)
	assert.Equal(t, "milk", id)
	assert.True(t, p.IsAutomatic())

	c := byID["o-coupon"]
	assert.Equal(t, "Dairy5", c.CouponCode)
	assert.Equal(t, offer.TypeFlat, c.CouponBasis)
	assert.True(t, decimal.RequireFromString("5.50").Equal(c.DiscountValue))
	assert.Equal(t, offer.ScopeCategory, c.Scope.Kind())

	s := byID["o-store"]
	assert.Equal(t, offer.ScopeStoreWide, s.Scope.Kind())
	assert.False(t, s.Active)
	assert.True(t, s.StartDate.Equal(start))

	codes, err := repo.ListCouponCodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dairy5"}, codes)
}

func TestOfferRepository_CouponCodeUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewOfferRepository(testPool)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	base := offer.Offer{
		Name: "Unique code", Type: offer.TypeCouponCode, DiscountValue: decimal.NewFromInt(10),
		Scope: offer.StoreWide(), StartDate: start, EndDate: start.AddDate(1, 0, 0), Active: true,
	}

	first := base
	first.ID, first.CouponCode = "o-unique-1", "UNIQ10"
	require.NoError(t, repo.Upsert(ctx, &first))

	for i, code := range []string{"uniq10", " UNIQ10", "Uniq10 "} {
		dup := base
		dup.ID, dup.CouponCode = fmt.Sprintf("o-unique-dup-%d", i), code

		err := repo.Upsert(ctx, &dup)
		var pgErr *pgconn.PgError
		require.ErrorAs(t, err, &pgErr, "code %q", code)
		assert.Equal(t, "23505", pgErr.Code)
	}
}

func TestOfferRepository_BothScopesProductWins(t *testing.T) {
	ctx := context.Background()
	_, err := testPool.Exec(ctx, `INSERT INTO offers (id, name, offer_type, discount_value,
		product_id, category_id, start_date, end_date)
		VALUES ('o-both', 'Both', 'flat_discount', 1, 'chips', 'snacks', now(), now() + interval '1 day')
		ON CONFLICT (id) DO NOTHING`)
	require.NoError(t, err)

	got, err := NewOfferRepository(testPool).List(ctx)
	require.NoError(t, err)

	for _, o := range got {
		if o.ID == "o-both" {
			assert.Equal(t, offer.ScopeProduct, o.Scope.Kind())
			return
		}
	}
	t.Fatal("offer o-both not listed")
}

func TestProductRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testPool)

	require.NoError(t, repo.Upsert(ctx, &catalog.Product{
		ID: "milk", Name: "Milk", CategoryID: "dairy", Price: decimal.RequireFromString("2.49"),
	}))

	got, err := repo.GetByIDs(ctx, []string{"milk", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "dairy", got[0].CategoryID)
	assert.True(t, decimal.RequireFromString("2.49").Equal(got[0].Price))
}

func TestAPIKeyRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAPIKeyRepository(testPool)

	hash := auth.Hash([]byte("pepper"), "secret")
	require.NoError(t, repo.Upsert(ctx, &auth.APIKeyInfo{
		ID: "k1", KeyHash: hash, Name: "admin", Scopes: []string{auth.ScopePreview},
	}))

	info, err := repo.FindByHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, "k1", info.ID)
	assert.True(t, info.HasScope(auth.ScopePreview))

	_, err = repo.FindByHash(ctx, "nope")
	require.ErrorIs(t, err, auth.ErrKeyNotFound)
}
