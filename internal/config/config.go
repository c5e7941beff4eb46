// Package config loads engine configuration through viper with precedence:
// defaults < config file < ARABICBASE_* environment < command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix; store.sqlite_path becomes
// ARABICBASE_STORE_SQLITE_PATH.
const EnvPrefix = "ARABICBASE"

// Config holds the application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Log        LogConfig        `mapstructure:"log"`
	Store      StoreConfig      `mapstructure:"store"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Server     ServerConfig     `mapstructure:"server"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Quota      QuotaConfig      `mapstructure:"quota"`
	Snapshot   SnapshotConfig   `mapstructure:"snapshot"`
	Search     SearchConfig     `mapstructure:"search"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `mapstructure:"environment"`
	DataDir     string `mapstructure:"data_dir"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig selects the persistence adapter. When RemoteURL is set the
// engine talks to a remote API with Token; otherwise it opens SQLitePath
// directly as UserID.
type StoreConfig struct {
	SQLitePath string `mapstructure:"sqlite_path"`
	RemoteURL  string `mapstructure:"remote_url"`
	Token      string `mapstructure:"token"`
	UserID     string `mapstructure:"user_id"`
}

// AuthConfig holds token configuration.
type AuthConfig struct {
	// TokenKey is the hex-encoded 32 byte PASETO v4 symmetric key.
	TokenKey      string        `mapstructure:"token_key"`
	TokenDuration time.Duration `mapstructure:"token_duration"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	// RateLimit is the per-client request rate in requests per second.
	// Zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
	// MaxConnections caps concurrently open connections. Zero means no cap.
	MaxConnections int `mapstructure:"max_connections"`
}

// EnrichmentConfig configures the insight generator and its worker pool.
type EnrichmentConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	Temperature       float64       `mapstructure:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Timeout           time.Duration `mapstructure:"timeout"`
	Workers           int           `mapstructure:"workers"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	QueueSize         int           `mapstructure:"queue_size"`
}

// QuotaConfig holds tier limits.
type QuotaConfig struct {
	FreeTierLimit int `mapstructure:"free_tier_limit"`
}

// SnapshotConfig controls the local warm-start snapshot.
type SnapshotConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// SearchConfig controls the catalog search index. An empty path keeps the
// index in memory.
type SearchConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.data_dir", "~/.arabicbase")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "")

	v.SetDefault("store.sqlite_path", "")
	v.SetDefault("store.remote_url", "")
	v.SetDefault("store.token", "")
	v.SetDefault("store.user_id", "local")

	v.SetDefault("auth.token_key", "")
	v.SetDefault("auth.token_duration", "720h")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.max_connections", 256)

	v.SetDefault("enrichment.api_key", "")
	v.SetDefault("enrichment.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("enrichment.model", "llama-3.1-8b-instant")
	v.SetDefault("enrichment.temperature", 0.5)
	v.SetDefault("enrichment.max_tokens", 1024)
	v.SetDefault("enrichment.timeout", "30s")
	v.SetDefault("enrichment.workers", 2)
	v.SetDefault("enrichment.requests_per_second", 0.5)
	v.SetDefault("enrichment.burst", 2)
	v.SetDefault("enrichment.queue_size", 64)

	v.SetDefault("quota.free_tier_limit", 100)

	v.SetDefault("snapshot.enabled", true)
	v.SetDefault("snapshot.path", "")

	v.SetDefault("search.enabled", true)
	v.SetDefault("search.path", "")
}

// New returns a viper instance with defaults and environment binding applied.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds command-line flags onto their config keys. Flag names use
// dashes; "log-level" maps to "log.level" and so on.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for flagName, key := range keys {
		f := flags.Lookup(flagName)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %s: %w", flagName, err)
		}
	}
	return nil
}

// Load reads the optional config file into v and decodes the result.
// A missing file is not an error when configFile is empty.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".arabicbase"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Watch re-decodes the config whenever the file v was loaded from changes
// and hands the result to onChange. A file that no longer validates is
// reported to onError and the previous config stays in effect. It reports
// false, and watches nothing, when v was not loaded from a file.
func Watch(v *viper.Viper, onChange func(*Config), onError func(error)) bool {
	if v.ConfigFileUsed() == "" {
		return false
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			onError(fmt.Errorf("reloading %s: %w", e.Name, err))
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return true
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}
	if c.Log.Format != "" && c.Log.Format != "json" && c.Log.Format != "pretty" {
		return fmt.Errorf("invalid log format: %s (must be json or pretty)", c.Log.Format)
	}

	if c.Store.RemoteURL == "" && c.Store.SQLitePath == "" {
		return errors.New("store: either remote_url or sqlite_path is required")
	}

	if c.Auth.TokenKey != "" && len(c.Auth.TokenKey) != 64 {
		return errors.New("auth: token_key must be 64 hex characters")
	}
	if c.Auth.TokenDuration <= 0 {
		return errors.New("auth: token_duration must be positive")
	}

	if c.Server.RateLimit < 0 || (c.Server.RateLimit > 0 && c.Server.RateBurst < 1) {
		return errors.New("server: rate_limit must be non-negative with a positive rate_burst")
	}
	if c.Server.MaxConnections < 0 {
		return errors.New("server: max_connections must not be negative")
	}

	e := c.Enrichment
	if e.Workers < 1 {
		return errors.New("enrichment: workers must be at least 1")
	}
	if e.QueueSize < 1 {
		return errors.New("enrichment: queue_size must be at least 1")
	}
	if e.RequestsPerSecond <= 0 || e.Burst < 1 {
		return errors.New("enrichment: requests_per_second and burst must be positive")
	}
	if e.Temperature < 0 || e.Temperature > 2 {
		return fmt.Errorf("enrichment: temperature %v out of range [0, 2]", e.Temperature)
	}

	if c.Quota.FreeTierLimit < 1 {
		return errors.New("quota: free_tier_limit must be at least 1")
	}
	return nil
}

// expandPaths resolves ~ and fills per-file defaults under the data dir.
func (c *Config) expandPaths() error {
	dataDir, err := expandPath(c.App.DataDir, "")
	if err != nil {
		return fmt.Errorf("invalid data dir: %w", err)
	}
	c.App.DataDir = dataDir

	if c.Store.RemoteURL == "" {
		if c.Store.SQLitePath, err = expandPath(c.Store.SQLitePath, filepath.Join(dataDir, "arabicbase.db")); err != nil {
			return fmt.Errorf("invalid sqlite path: %w", err)
		}
	}
	if c.Snapshot.Enabled {
		if c.Snapshot.Path, err = expandPath(c.Snapshot.Path, filepath.Join(dataDir, "snapshot")); err != nil {
			return fmt.Errorf("invalid snapshot path: %w", err)
		}
	}
	if c.Search.Path != "" {
		if c.Search.Path, err = expandPath(c.Search.Path, ""); err != nil {
			return fmt.Errorf("invalid search path: %w", err)
		}
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") || path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}
