// Package config loads the daemon configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level daemon configuration.
type Config struct {
	Site        SiteConfig              `mapstructure:"site"`
	LTCS        LTCSConfig              `mapstructure:"ltcs"`
	HTTP        HTTPConfig              `mapstructure:"http"`
	MQTT        MQTTConfig              `mapstructure:"mqtt"`
	Instruments map[string]LimitsConfig `mapstructure:"instruments"`
	LogLevel    string                  `mapstructure:"log_level"`
}

// SiteConfig locates the observatory.
type SiteConfig struct {
	// Name is the site label used in logs and published records
	Name string `mapstructure:"name"`
	// Latitude in degrees, north positive
	Latitude float64 `mapstructure:"latitude"`
	// Longitude in degrees, east positive
	Longitude float64 `mapstructure:"longitude"`
	// Elevation in meters
	Elevation float64 `mapstructure:"elevation"`
	// Timezone is an IANA zone name, e.g. "Pacific/Honolulu"
	Timezone string `mapstructure:"timezone"`
}

// LTCSConfig configures the collision monitor.
type LTCSConfig struct {
	// Laser is the telescope name this monitor watches collisions for
	Laser string `mapstructure:"laser"`
	// StaleThreshold is how old a system_health heartbeat may be before
	// it is reported as stale
	StaleThreshold time.Duration `mapstructure:"stale_threshold"`
	// PollInterval between database polls
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// QueryTimeout bounds each database query
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	// Source names the entry in Databases to poll
	Source string `mapstructure:"source"`
	// Databases holds one connection descriptor per backend (live site,
	// simulator, replica); Source picks which one is used
	Databases map[string]DatabaseConfig `mapstructure:"databases"`
}

// Database returns the selected backend descriptor.
func (l LTCSConfig) Database() DatabaseConfig {
	return l.Databases[l.Source]
}

// DatabaseConfig holds connection parameters for the LTCS database.
type DatabaseConfig struct {
	// Driver selects the database engine; only "postgres" is supported
	Driver string `mapstructure:"driver"`
	// Filename is accepted for embedded engines in legacy configs and is
	// always rejected at validation
	Filename string `mapstructure:"filename"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// URL builds the pgx connection URL.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	// Addr is the listen address, e.g. ":8080"
	Addr string `mapstructure:"addr"`
	// JWTSecret signs API tokens
	JWTSecret string `mapstructure:"jwt_secret"`
	// TokenTTL is how long issued tokens stay valid
	TokenTTL time.Duration `mapstructure:"token_ttl"`
	// Users maps login names to bcrypt password hashes
	Users map[string]string `mapstructure:"users"`
}

// MQTTConfig configures the operations-bus client.
type MQTTConfig struct {
	// Enabled turns the bus connection on
	Enabled bool `mapstructure:"enabled"`
	// BrokerURL is the broker address, e.g. "tcp://localhost:1883"
	BrokerURL string `mapstructure:"broker_url"`
	// ClientID is the bus client identifier
	ClientID string `mapstructure:"client_id"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
}

// LimitsConfig overrides an instrument's rotator travel range.
type LimitsConfig struct {
	MinDeg float64 `mapstructure:"min_deg"`
	MaxDeg float64 `mapstructure:"max_deg"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("site.name", "Subaru")
	v.SetDefault("site.latitude", 19.8285)
	v.SetDefault("site.longitude", -155.4761)
	v.SetDefault("site.elevation", 4139.0)
	v.SetDefault("site.timezone", "Pacific/Honolulu")

	v.SetDefault("ltcs.laser", "Subaru")
	v.SetDefault("ltcs.stale_threshold", 5*time.Minute)
	v.SetDefault("ltcs.poll_interval", 10*time.Second)
	v.SetDefault("ltcs.query_timeout", 5*time.Second)
	v.SetDefault("ltcs.source", "site")
	v.SetDefault("ltcs.databases.site.driver", "postgres")
	v.SetDefault("ltcs.databases.site.host", "localhost")
	v.SetDefault("ltcs.databases.site.port", 5432)
	v.SetDefault("ltcs.databases.site.name", "ltcs")
	v.SetDefault("ltcs.databases.site.user", "ltcs")
	v.SetDefault("ltcs.databases.site.ssl_mode", "disable")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.token_ttl", 12*time.Hour)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker_url", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "telopsd")
}

// Load reads the configuration file at path. An empty path loads defaults
// plus environment overrides only. Environment variables use the TELOPS_
// prefix with underscores, e.g. TELOPS_LTCS_SOURCE.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TELOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// viper lowercases map keys on unmarshal; rotator limit lookups use
	// the uppercase instrument name
	if len(cfg.Instruments) > 0 {
		canon := make(map[string]LimitsConfig, len(cfg.Instruments))
		for name, lim := range cfg.Instruments {
			canon[strings.ToUpper(name)] = lim
		}
		cfg.Instruments = canon
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.LTCS.Laser == "" {
		return fmt.Errorf("ltcs.laser must be set")
	}

	if _, ok := c.LTCS.Databases[c.LTCS.Source]; !ok {
		return fmt.Errorf("ltcs.source %q has no matching ltcs.databases entry", c.LTCS.Source)
	}
	for name, db := range c.LTCS.Databases {
		if db.Filename != "" {
			return fmt.Errorf("ltcs.databases.%s: embedded database engines are not supported; configure a postgres server instead of a filename", name)
		}
		if db.Driver != "postgres" {
			return fmt.Errorf("ltcs.databases.%s: unsupported driver %q; only postgres is supported", name, db.Driver)
		}
	}

	if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
		return fmt.Errorf("invalid site timezone %q: %w", c.Site.Timezone, err)
	}

	for name, lim := range c.Instruments {
		if lim.MinDeg >= lim.MaxDeg {
			return fmt.Errorf("instrument %s: min_deg must be below max_deg", name)
		}
	}
	return nil
}
