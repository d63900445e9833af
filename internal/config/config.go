// Package config loads runtime settings from flags, WHEREAMI_* environment
// variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. WHEREAMI_HTTP_ADDR.
const EnvPrefix = "WHEREAMI"

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Addr           string        `mapstructure:"addr"`
	TrustProxy     bool          `mapstructure:"trust_proxy"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LogConfig selects the slog handler and level.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig enables the static bearer token.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
}

// RateLimitConfig is the per-client request budget.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// GeocoderConfig configures the outbound place lookup.
type GeocoderConfig struct {
	URL       string        `mapstructure:"url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Retries   int           `mapstructure:"retries"`
	Backoff   time.Duration `mapstructure:"backoff"`
	RPS       float64       `mapstructure:"rps"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	CacheSize int           `mapstructure:"cache_size"`
}

// CatalogConfig points at an optional frame catalog override.
type CatalogConfig struct {
	File string `mapstructure:"file"`
}

// SpacecraftConfig controls the comparison table.
type SpacecraftConfig struct {
	File string `mapstructure:"file"`
	Top  int    `mapstructure:"top"`
}

// EngineConfig sizes the trajectory worker pool.
type EngineConfig struct {
	Workers int `mapstructure:"workers"`
}

// StreamConfig configures the live velocity stream.
type StreamConfig struct {
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	Interval      time.Duration `mapstructure:"interval"`
	Keepalive     time.Duration `mapstructure:"keepalive"`
}

// Config is the complete runtime configuration.
type Config struct {
	HTTP       HTTPConfig       `mapstructure:"http"`
	Log        LogConfig        `mapstructure:"log"`
	Auth       AuthConfig       `mapstructure:"auth"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Geocoder   GeocoderConfig   `mapstructure:"geocoder"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Spacecraft SpacecraftConfig `mapstructure:"spacecraft"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Stream     StreamConfig     `mapstructure:"stream"`
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.trust_proxy", false)
	v.SetDefault("http.request_timeout", 15*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.token", "")
	v.SetDefault("ratelimit.rps", 5.0)
	v.SetDefault("ratelimit.burst", 10)
	v.SetDefault("geocoder.url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("geocoder.user_agent", "whereami-web/1.0")
	v.SetDefault("geocoder.timeout", 10*time.Second)
	v.SetDefault("geocoder.retries", 5)
	v.SetDefault("geocoder.backoff", 2*time.Second)
	v.SetDefault("geocoder.rps", 1.0)
	v.SetDefault("geocoder.cache_ttl", 24*time.Hour)
	v.SetDefault("geocoder.cache_size", 1024)
	v.SetDefault("catalog.file", "")
	v.SetDefault("spacecraft.file", "")
	v.SetDefault("spacecraft.top", 5)
	v.SetDefault("engine.workers", 0)
	v.SetDefault("stream.max_concurrent", 10)
	v.SetDefault("stream.interval", time.Second)
	v.SetDefault("stream.keepalive", 30*time.Second)
}

// BindEnv makes every key readable from WHEREAMI_<SECTION>_<KEY>.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load applies defaults and environment bindings to v and decodes the result.
// A config file, if any, must already have been read into v.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	BindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr must not be empty"))
	}
	if c.HTTP.RequestTimeout <= 0 {
		errs = append(errs, errors.New("http.request_timeout must be positive"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "json" && f != "text" {
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}
	if c.Auth.Enabled && c.Auth.Token == "" {
		errs = append(errs, errors.New("auth.token is required when auth is enabled"))
	}
	if c.RateLimit.RPS < 0 {
		errs = append(errs, errors.New("ratelimit.rps must not be negative"))
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("ratelimit.burst must be at least 1"))
	}
	if u, err := url.Parse(c.Geocoder.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("geocoder.url must be an absolute http(s) URL, got %q", c.Geocoder.URL))
	}
	if c.Geocoder.Timeout <= 0 {
		errs = append(errs, errors.New("geocoder.timeout must be positive"))
	}
	if c.Geocoder.Retries < 1 {
		errs = append(errs, errors.New("geocoder.retries must be at least 1"))
	}
	if c.Geocoder.Backoff <= 0 {
		errs = append(errs, errors.New("geocoder.backoff must be positive"))
	}
	if c.Geocoder.RPS <= 0 {
		errs = append(errs, errors.New("geocoder.rps must be positive"))
	}
	if c.Geocoder.CacheSize < 0 {
		errs = append(errs, errors.New("geocoder.cache_size must not be negative"))
	}
	if c.Geocoder.CacheSize > 0 && c.Geocoder.CacheTTL <= 0 {
		errs = append(errs, errors.New("geocoder.cache_ttl must be positive when the cache is enabled"))
	}
	if c.Spacecraft.Top < 1 {
		errs = append(errs, errors.New("spacecraft.top must be at least 1"))
	}
	if c.Engine.Workers < 0 {
		errs = append(errs, errors.New("engine.workers must not be negative"))
	}
	if c.Stream.MaxConcurrent < 1 {
		errs = append(errs, errors.New("stream.max_concurrent must be at least 1"))
	}
	if c.Stream.Interval < time.Second || c.Stream.Interval > time.Minute {
		errs = append(errs, fmt.Errorf("stream.interval must be between 1s and 1m, got %s", c.Stream.Interval))
	}
	if c.Stream.Keepalive <= 0 {
		errs = append(errs, errors.New("stream.keepalive must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// ParseLevel maps debug, info, warn or error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
	return l, nil
}

// LogValue reports the configuration with the auth token redacted.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("http_addr", c.HTTP.Addr),
		slog.Bool("trust_proxy", c.HTTP.TrustProxy),
		slog.Duration("request_timeout", c.HTTP.RequestTimeout),
		slog.String("log_level", c.Log.Level),
		slog.String("log_format", c.Log.Format),
		slog.Bool("auth_enabled", c.Auth.Enabled),
		slog.Float64("ratelimit_rps", c.RateLimit.RPS),
		slog.Int("ratelimit_burst", c.RateLimit.Burst),
		slog.String("geocoder_url", c.Geocoder.URL),
		slog.Int("geocoder_retries", c.Geocoder.Retries),
		slog.Duration("geocoder_backoff", c.Geocoder.Backoff),
		slog.Int("geocoder_cache_size", c.Geocoder.CacheSize),
		slog.String("catalog_file", c.Catalog.File),
		slog.String("spacecraft_file", c.Spacecraft.File),
		slog.Int("spacecraft_top", c.Spacecraft.Top),
		slog.Int("workers", c.Engine.Workers),
		slog.Int("stream_max_concurrent", c.Stream.MaxConcurrent),
		slog.Duration("stream_interval", c.Stream.Interval),
	)
}
