package dossier

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eringen/dossier/store"
)

// Configuration validation errors.
var (
	ErrMissingSessionSecret = errors.New("session_secret is required")
	ErrUnknownDriver        = errors.New("driver must be 'sqlite' or 'postgres'")
	ErrMissingDatabaseURL   = errors.New("database_url is required for the postgres driver")
	ErrInvalidLogLevel      = errors.New("log_level must be one of: debug, info, warn, error")
	ErrInvalidCacheTTL      = errors.New("cache_ttl must not be negative")
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SiteConfig holds all configuration for a dossier site.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "Dossier")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for RSS and meta tags
	Author      string `yaml:"author"`      // Subject of the dossier, used in JSON-LD

	Addr         string   `yaml:"addr"`          // Listen address (default ":3000")
	Driver       string   `yaml:"driver"`        // "sqlite" (default) or "postgres"
	DatabasePath string   `yaml:"database_path"` // SQLite path (default "data/dossier.db")
	DatabaseURL  string   `yaml:"database_url"`  // PostgreSQL connection string
	Features     []string `yaml:"features"`      // optional schema features created at startup

	SessionSecret string `yaml:"session_secret"` // Required: cookie signing secret
	CookieSecure  bool   `yaml:"cookie_secure"`  // Set true for HTTPS

	CacheTTL    time.Duration `yaml:"cache_ttl"`    // Read cache TTL (default 5min)
	UploadDir   string        `yaml:"upload_dir"`   // Featured image directory (default "public/uploads")
	SnapshotDir string        `yaml:"snapshot_dir"` // Microsite JSON output (default "public/data")
	LogLevel    string        `yaml:"log_level"`    // debug, info, warn or error (default "info")
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Dossier"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/dossier.db"
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.UploadDir == "" {
		c.UploadDir = "public/uploads"
	}
	if c.SnapshotDir == "" {
		c.SnapshotDir = "public/data"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the configuration. Defaults are applied first.
func (c *SiteConfig) Validate() error {
	c.setDefaults()
	if c.SessionSecret == "" {
		return ErrMissingSessionSecret
	}
	switch c.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Driver)
	}
	if _, err := c.SchemaFeatures(); err != nil {
		return err
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	if c.CacheTTL < 0 {
		return ErrInvalidCacheTTL
	}
	return nil
}

// SchemaFeatures parses Features. The single value "all" selects every
// optional feature.
func (c *SiteConfig) SchemaFeatures() ([]store.Feature, error) {
	if len(c.Features) == 1 && c.Features[0] == "all" {
		return store.AllFeatures(), nil
	}
	out := make([]store.Feature, 0, len(c.Features))
	for _, name := range c.Features {
		f, err := store.ParseFeature(name)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// LoadConfig reads a YAML file, applies DOSSIER_* environment overrides and
// validates the result. An empty path skips the file.
func LoadConfig(path string) (SiteConfig, error) {
	cfg, err := ReadConfig(path)
	if err != nil {
		return SiteConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return SiteConfig{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ReadConfig is LoadConfig without validation. Commands that only touch the
// database use it so they run without a session secret.
func ReadConfig(path string) (SiteConfig, error) {
	var cfg SiteConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return SiteConfig{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return SiteConfig{}, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return SiteConfig{}, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *SiteConfig) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"DOSSIER_SITE_NAME":      &c.Name,
		"DOSSIER_SITE_URL":       &c.URL,
		"DOSSIER_DESCRIPTION":    &c.Description,
		"DOSSIER_AUTHOR":         &c.Author,
		"DOSSIER_ADDR":           &c.Addr,
		"DOSSIER_DRIVER":         &c.Driver,
		"DOSSIER_DB_PATH":        &c.DatabasePath,
		"DOSSIER_DATABASE_URL":   &c.DatabaseURL,
		"DOSSIER_SESSION_SECRET": &c.SessionSecret,
		"DOSSIER_UPLOAD_DIR":     &c.UploadDir,
		"DOSSIER_SNAPSHOT_DIR":   &c.SnapshotDir,
		"DOSSIER_LOG_LEVEL":      &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := lookup("DOSSIER_FEATURES"); ok && v != "" {
		c.Features = FilterEmpty(strings.Split(v, ","))
	}
	if v, ok := lookup("DOSSIER_COOKIE_SECURE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DOSSIER_COOKIE_SECURE: %w", err)
		}
		c.CookieSecure = b
	}
	if v, ok := lookup("DOSSIER_CACHE_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DOSSIER_CACHE_TTL: %w", err)
		}
		c.CacheTTL = d
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are set up.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithBackend makes the App use db instead of opening the configured
// database. The caller keeps ownership of db.
func WithBackend(db store.Backend) Option {
	return func(a *App) {
		a.db = db
	}
}

// WithViews replaces the default page components.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = v
	}
}
