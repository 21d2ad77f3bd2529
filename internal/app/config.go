package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

const defaultAddr = "0.0.0.0:8080"

// Config is loaded from OFFERS_* environment variables, flags and YAML files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (OFFERS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing" flag:"api-key-pepper"`
	Snapshot     SnapshotConfig
	Coupon       CouponConfig
	Graceful     GracefulConfig
}

// SnapshotConfig controls the in-memory offer snapshot.
type SnapshotConfig struct {
	TTL time.Duration `default:"30s" usage:"How long an offer snapshot is served from memory, 0 disables" flag:"snapshot-ttl"`
}

// CouponConfig controls coupon previews.
type CouponConfig struct {
	SampleUnitPrice string `default:"100" usage:"Unit price used for coupon previews without products" flag:"coupon-sample-unit-price"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// SampleUnitPrice parses Coupon.SampleUnitPrice.
func (c *Config) SampleUnitPrice() (decimal.Decimal, error) {
	p, err := decimal.NewFromString(c.Coupon.SampleUnitPrice)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "parse coupon sample unit price")
	}
	if p.IsNegative() {
		return decimal.Zero, errors.Errorf("coupon sample unit price %s is negative", p)
	}
	return p, nil
}

// LoadConfig loads and validates the configuration.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "OFFERS",
		Files:     []string{"config.yaml", "/etc/offers/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, ac)
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set OFFERS_DATABASE_URL or DATABASE_URL")
	}
	if c.Snapshot.TTL < 0 {
		return errors.Errorf("snapshot TTL %s is negative", c.Snapshot.TTL)
	}
	if _, err := c.SampleUnitPrice(); err != nil {
		return err
	}
	return nil
}

// applyPlatformDefaults honours the DATABASE_URL and PORT variables set by
// hosting platforms.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
