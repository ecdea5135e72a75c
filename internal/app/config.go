package app

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Run modes.
const (
	ModeTUI      = "tui"
	ModeHeadless = "headless"
)

const (
	defaultAPIURL = "https://larek-api.nomoreparties.co/api/weblarek"
	defaultCDNURL = "https://larek-api.nomoreparties.co/content/weblarek"
)

// Config holds the storefront configuration, loadable from environment
// variables (LAREK_ prefix), flags, or YAML config files.
type Config struct {
	APIURL   string        `default:"https://larek-api.nomoreparties.co/api/weblarek" usage:"WebLarek API base URL" flag:"api-url"`
	CDNURL   string        `default:"https://larek-api.nomoreparties.co/content/weblarek" usage:"Base URL of product images" flag:"cdn-url"`
	Timeout  time.Duration `default:"0s" usage:"Order API request timeout, 0 disables it"`
	Mode     string        `default:"tui" usage:"Run mode: tui or headless"`
	LogFile  string        `default:"larek.log" usage:"Log file used while the terminal UI owns the screen" flag:"log-file"`
	Checkout CheckoutConfig
}

// CheckoutConfig is the scripted order placed in headless mode.
type CheckoutConfig struct {
	Items   []string `usage:"Product IDs to order"`
	Address string   `usage:"Delivery address"`
	Payment string   `default:"card" usage:"Payment method: card or cash"`
	Email   string   `usage:"Customer email"`
	Phone   string   `usage:"Customer phone, +7XXXXXXXXXX"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "LAREK",
		Files:     []string{"config.yaml", "/etc/larek/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults derives both URLs from WEBLAREK_API_ORIGIN when they
// were left at their defaults.
func (c *Config) applyPlatformDefaults() {
	origin := strings.TrimRight(os.Getenv("WEBLAREK_API_ORIGIN"), "/")
	if origin == "" {
		return
	}
	if c.APIURL == defaultAPIURL {
		c.APIURL = origin + "/api/weblarek"
	}
	if c.CDNURL == defaultCDNURL {
		c.CDNURL = origin + "/content/weblarek"
	}
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeTUI:
		if c.LogFile == "" {
			return errors.New("log file is required in tui mode")
		}
	case ModeHeadless:
		if len(c.Checkout.Items) == 0 {
			return errors.New("headless mode needs at least one checkout item: set LAREK_CHECKOUT_ITEMS")
		}
	default:
		return errors.Errorf("unknown mode %q", c.Mode)
	}
	if c.Timeout < 0 {
		return errors.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}
