package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	DatabaseURL  string
	Port         string
	DataDir      string
	BaseDomain   string // e.g. "sites.sitepilot.dev"; site slugs resolve as {slug}.{BaseDomain}
	Bucket       string // deployment store bucket
	OwnerID      string // storage namespace root
	AWSRegion    string
	KVSEndpoint  string // edge key-value control plane; empty = in-process table
	KVSToken     string
	CDNEndpoint  string // CDN control plane for custom-domain attachment
	CDNToken     string
	CDNTarget    string // hostname suffix customer CNAMEs point at
	VerifySecret string // HMAC key for domain verification tokens
}

// Load loads configuration from multiple sources with priority:
// 1. Command flags (passed as overrides)
// 2. Config file (~/.config/sitepilot/sitepilot.toml or ./sitepilot.toml)
// 3. Environment variables
func Load() (*Config, error) {
	v := newBaseViper()
	_ = v.ReadInConfig()
	return buildConfig(v, "", ""), nil
}

// LoadWithOverrides loads config and applies flag overrides
func LoadWithOverrides(databaseURL, port string) (*Config, error) {
	v := newBaseViper()
	_ = v.ReadInConfig()
	return buildConfig(v, databaseURL, port), nil
}

func newBaseViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("sitepilot")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	// XDG Base Directory, resolved manually so tests can override the env.
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configHome = filepath.Join(home, ".config")
		}
	}
	if configHome != "" {
		v.AddConfigPath(filepath.Join(configHome, "sitepilot"))
	}

	return v
}

func buildConfig(v *viper.Viper, overrideDatabaseURL, overridePort string) *Config {
	cfg := &Config{
		Port:       "3000",
		DataDir:    "./data",
		BaseDomain: "sites.sitepilot.dev",
		AWSRegion:  "us-east-1",
	}

	// Apply config file values
	if v.IsSet("database_url") {
		cfg.DatabaseURL = v.GetString("database_url")
	}
	if v.IsSet("port") {
		cfg.Port = v.GetString("port")
	}
	if v.IsSet("data_dir") {
		cfg.DataDir = v.GetString("data_dir")
	}
	if v.IsSet("base_domain") {
		cfg.BaseDomain = v.GetString("base_domain")
	}
	if v.IsSet("bucket") {
		cfg.Bucket = v.GetString("bucket")
	}
	if v.IsSet("owner_id") {
		cfg.OwnerID = v.GetString("owner_id")
	}
	if v.IsSet("aws_region") {
		cfg.AWSRegion = v.GetString("aws_region")
	}
	if v.IsSet("kvs.endpoint") {
		cfg.KVSEndpoint = v.GetString("kvs.endpoint")
	}
	if v.IsSet("kvs.token") {
		cfg.KVSToken = v.GetString("kvs.token")
	}
	if v.IsSet("cdn.endpoint") {
		cfg.CDNEndpoint = v.GetString("cdn.endpoint")
	}
	if v.IsSet("cdn.token") {
		cfg.CDNToken = v.GetString("cdn.token")
	}
	if v.IsSet("cdn.target") {
		cfg.CDNTarget = v.GetString("cdn.target")
	}
	if v.IsSet("security.verify_secret") {
		cfg.VerifySecret = v.GetString("security.verify_secret")
	}

	// Environment fallback (only if not configured)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if !v.IsSet("port") {
		if envPort := os.Getenv("PORT"); envPort != "" {
			cfg.Port = envPort
		}
	}
	if !v.IsSet("data_dir") {
		if envDataDir := os.Getenv("DATA_DIR"); envDataDir != "" {
			cfg.DataDir = envDataDir
		}
	}
	if !v.IsSet("base_domain") {
		if envBase := os.Getenv("BASE_DOMAIN"); envBase != "" {
			cfg.BaseDomain = envBase
		}
	}
	if cfg.Bucket == "" {
		cfg.Bucket = os.Getenv("BUCKET")
	}
	if cfg.OwnerID == "" {
		cfg.OwnerID = os.Getenv("OWNER_ID")
	}
	if !v.IsSet("aws_region") {
		if envRegion := os.Getenv("AWS_REGION"); envRegion != "" {
			cfg.AWSRegion = envRegion
		}
	}
	if cfg.KVSEndpoint == "" {
		cfg.KVSEndpoint = os.Getenv("KVS_ENDPOINT")
	}
	if cfg.KVSToken == "" {
		cfg.KVSToken = os.Getenv("KVS_TOKEN")
	}
	if cfg.CDNEndpoint == "" {
		cfg.CDNEndpoint = os.Getenv("CDN_ENDPOINT")
	}
	if cfg.CDNToken == "" {
		cfg.CDNToken = os.Getenv("CDN_TOKEN")
	}
	if cfg.CDNTarget == "" {
		cfg.CDNTarget = os.Getenv("CDN_TARGET")
	}
	if cfg.VerifySecret == "" {
		cfg.VerifySecret = os.Getenv("VERIFY_SECRET")
	}

	// Apply overrides (flags) last
	if overrideDatabaseURL != "" {
		cfg.DatabaseURL = overrideDatabaseURL
	}
	if overridePort != "" {
		cfg.Port = overridePort
	}

	return cfg
}
