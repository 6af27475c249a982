package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig
	Auth         AuthConfig
	Postgres     PostgresConfig
	Vision       VisionConfig
	CustomSearch CustomSearchConfig
	Ebay         EbayConfig
	BingVisual   BingVisualConfig
	ExchangeRate ExchangeRateConfig
	Search       SearchConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	UploadDir      string   `mapstructure:"upload_dir"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
}

// AuthConfig holds JWT configuration
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

// PostgresConfig holds the account/wishlist store configuration
type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

// VisionConfig holds Cloud Vision credentials. Empty means Application
// Default Credentials.
type VisionConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

// CustomSearchConfig holds Google Custom Search credentials
type CustomSearchConfig struct {
	APIKey string `mapstructure:"api_key"`
	CX     string `mapstructure:"cx"`
}

// EbayConfig holds eBay Finding API credentials
type EbayConfig struct {
	AppID   string `mapstructure:"app_id"`
	BaseURL string `mapstructure:"base_url"`
}

// BingVisualConfig holds Bing Visual Search credentials. The visual-search
// adapter is only wired when an API key is configured.
type BingVisualConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// ExchangeRateConfig holds the currency rate lookup configuration
type ExchangeRateConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// SearchConfig holds aggregation pipeline tunables
type SearchConfig struct {
	Country            string `mapstructure:"country"`  // marketplace listing country filter
	Currency           string `mapstructure:"currency"` // target currency for marketplace prices
	MaxResults         int    `mapstructure:"max_results"`
	TopN               int    `mapstructure:"top_n"`
	EnableDebugLogging bool   `mapstructure:"enable_debug_logging"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/snapfind/")

	// Environment variable settings: SNAPFIND_SERVER_PORT -> server.port
	v.SetEnvPrefix("SNAPFIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.upload_dir", "uploads")
	v.SetDefault("server.max_upload_bytes", 5*1024*1024) // 5 MiB

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_ttl", "1h")
	v.SetDefault("auth.refresh_ttl", "720h") // 30 days

	v.SetDefault("postgres.url", "")

	// Provider defaults. Credential keys default to empty so viper resolves
	// them from the environment during Unmarshal.
	v.SetDefault("vision.credentials_file", "")
	v.SetDefault("customsearch.api_key", "")
	v.SetDefault("customsearch.cx", "")
	v.SetDefault("ebay.app_id", "")
	v.SetDefault("ebay.base_url", "https://svcs.ebay.com/services/search/FindingService/v1")
	v.SetDefault("bingvisual.api_key", "")
	v.SetDefault("exchangerate.api_key", "")
	v.SetDefault("exchangerate.base_url", "https://v6.exchangerate-api.com")
	v.SetDefault("exchangerate.cache_ttl", "1h")

	// Pipeline defaults: fixed IN/INR locale, no geolocation signal
	v.SetDefault("search.country", "IN")
	v.SetDefault("search.currency", "INR")
	v.SetDefault("search.max_results", 10)
	v.SetDefault("search.top_n", 20)
	v.SetDefault("search.enable_debug_logging", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required (set SNAPFIND_AUTH_JWT_SECRET)")
	}

	if config.Postgres.URL == "" {
		return fmt.Errorf("Postgres URL is required (set SNAPFIND_POSTGRES_URL)")
	}

	if len(config.Search.Currency) != 3 {
		return fmt.Errorf("search currency must be a 3-letter ISO code, got: %s", config.Search.Currency)
	}

	if config.Search.TopN <= 0 {
		return fmt.Errorf("search top_n must be positive, got: %d", config.Search.TopN)
	}

	return nil
}
