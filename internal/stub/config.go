package stub

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8081"

// Config holds the stub API configuration, loadable from environment
// variables (LAREK_STUB_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8081" usage:"Listen address"`
	PathPrefix   string `default:"/api/weblarek" usage:"Path prefix of the API routes" flag:"path-prefix"`
	CatalogFile  string `default:"" usage:"Catalog JSON file, gzip when it ends in .gz; empty uses the built-in catalog" flag:"catalog-file"`
	ImageBaseURL string `default:"" usage:"Base URL prepended to image paths in responses" flag:"image-base-url"`
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Idempotency  IdempotencyConfig
	Graceful     GracefulConfig
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials" flag:"cors-credentials"`
}

// IdempotencyConfig sizes the Idempotency-Key filter.
type IdempotencyConfig struct {
	Capacity uint    `default:"100000" usage:"Expected number of distinct idempotency keys"`
	FPRate   float64 `default:"0.001" usage:"Bloom filter false positive rate" flag:"idempotency-fp-rate"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"1s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"10s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from the environment, flags and YAML files.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "LAREK_STUB",
		Files:     []string{"larek-stub.yaml", "/etc/larek/stub.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	return &cfg, nil
}

// applyPlatformDefaults honours the PORT variable set by hosting platforms.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
