package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix             = "SECURENOTES"
	defaultHTTPAddress    = "0.0.0.0:8080"
	defaultDatabaseDriver = "sqlite"
	defaultDatabaseDSN    = "securenotes.db"
	defaultLogLevel       = "info"
)

// RatePolicy is one counting-window quota applied to a route class.
type RatePolicy struct {
	Limit  int
	Window time.Duration
}

// RateConfig carries the per-route-class quotas and key-extraction settings.
type RateConfig struct {
	Enabled       bool
	TrustProxy    bool
	Global        RatePolicy
	SessionCreate RatePolicy
	SessionAccess RatePolicy
	Document      RatePolicy
}

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress    string
	DatabaseDriver string
	DatabaseDSN    string
	LogLevel       string
	AllowedOrigins []string
	Rate           RateConfig
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.driver", defaultDatabaseDriver)
	configViper.SetDefault("database.dsn", defaultDatabaseDSN)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("cors.allowed_origins", []string{"*"})

	configViper.SetDefault("rate.enabled", true)
	configViper.SetDefault("rate.trust_proxy", false)
	configViper.SetDefault("rate.global.limit", 200)
	configViper.SetDefault("rate.global.window_seconds", 24*60*60)
	configViper.SetDefault("rate.session_create.limit", 5)
	configViper.SetDefault("rate.session_create.window_seconds", 60)
	configViper.SetDefault("rate.session_access.limit", 60)
	configViper.SetDefault("rate.session_access.window_seconds", 60)
	configViper.SetDefault("rate.document.limit", 60)
	configViper.SetDefault("rate.document.window_seconds", 60)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    configViper.GetString("http.address"),
		DatabaseDriver: configViper.GetString("database.driver"),
		DatabaseDSN:    configViper.GetString("database.dsn"),
		LogLevel:       configViper.GetString("log.level"),
		AllowedOrigins: configViper.GetStringSlice("cors.allowed_origins"),
		Rate: RateConfig{
			Enabled:       configViper.GetBool("rate.enabled"),
			TrustProxy:    configViper.GetBool("rate.trust_proxy"),
			Global:        loadPolicy(configViper, "rate.global"),
			SessionCreate: loadPolicy(configViper, "rate.session_create"),
			SessionAccess: loadPolicy(configViper, "rate.session_access"),
			Document:      loadPolicy(configViper, "rate.document"),
		},
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func loadPolicy(configViper *viper.Viper, prefix string) RatePolicy {
	return RatePolicy{
		Limit:  configViper.GetInt(prefix + ".limit"),
		Window: time.Duration(configViper.GetInt(prefix+".window_seconds")) * time.Second,
	}
}

func (c AppConfig) validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.DatabaseDriver)
	}
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Rate.Enabled {
		for _, policy := range []RatePolicy{c.Rate.Global, c.Rate.SessionCreate, c.Rate.SessionAccess, c.Rate.Document} {
			if policy.Limit <= 0 || policy.Window <= 0 {
				return fmt.Errorf("rate policies require a positive limit and window")
			}
		}
	}
	return nil
}
