package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the daemon configuration, loadable from environment variables
// (CART_ prefix), flags, or YAML config files.
type Config struct {
	Addr          string        `default:"0.0.0.0:8081" usage:"probe server listen address"`
	RemoteBaseURL string        `usage:"base URL of the order/catalog services (CART_REMOTE_BASE_URL)" flag:"remote-base-url"`
	RemoteTimeout time.Duration `default:"15s" usage:"per-request timeout against remote services" flag:"remote-timeout"`

	ProfileID string `usage:"shopper profile id for an authenticated session" flag:"profile-id"`
	AuthToken string `usage:"bearer token for an authenticated session (CART_AUTH_TOKEN)" flag:"auth-token"`

	CombineLineItems bool   `default:"true" usage:"merge identical product/SKU pairs into one line" flag:"combine-line-items"`
	PriceListGroupID string `usage:"site default price list group" flag:"price-list-group-id"`

	Snapshot  SnapshotConfig
	Prefilter PrefilterConfig
	Graceful  GracefulConfig
}

// SnapshotConfig controls local cart persistence.
type SnapshotConfig struct {
	Path string        `default:"cart.db" usage:"sqlite snapshot database path (empty for in-memory)"`
	TTL  time.Duration `default:"720h" usage:"snapshot time-to-live"`
}

// PrefilterConfig points at the serialized coupon-code bloom filter.
type PrefilterConfig struct {
	Path string `default:"" usage:"coupon prefilter file (empty disables the local pre-check)"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ShutdownTimeout time.Duration `default:"10s" usage:"maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CART",
		Files:     []string{"config.yaml", "/etc/cartengine/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	if cfg.RemoteBaseURL == "" {
		if v := os.Getenv("REMOTE_BASE_URL"); v != "" {
			cfg.RemoteBaseURL = v
		}
	}
	if cfg.RemoteBaseURL == "" {
		return nil, errors.New("remote base URL is required: set CART_REMOTE_BASE_URL")
	}
	return &cfg, nil
}
