package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// API tokens are not part of the config file; they are read from the
// environment (optionally via a .env file), see internal/providers.

// ProvidersConfig toggles individual upstream providers and carries their
// non-secret settings.
type ProvidersConfig struct {
	// Brussels enables the municipal agenda adapter.
	Brussels bool `yaml:"brussels" json:"brussels"`
	// Ticketmaster enables the Discovery API adapter.
	Ticketmaster bool `yaml:"ticketmaster" json:"ticketmaster"`
	// Eventbrite enables the venue-events adapter.
	Eventbrite bool `yaml:"eventbrite" json:"eventbrite"`

	// CountryCode / City scope Ticketmaster queries.
	CountryCode string `yaml:"country_code" json:"country_code"`
	City        string `yaml:"city" json:"city"`

	// EventbriteVenues is the list of venue IDs polled on Eventbrite.
	EventbriteVenues []string `yaml:"eventbrite_venues" json:"eventbrite_venues"`
}

// MinimalViewConfig bounds the per-line field widths of the token-frugal
// summary view. The defaults bound worst-case per-line token cost; keep the
// same order of magnitude when tuning.
type MinimalViewConfig struct {
	NameChars int `yaml:"name_chars" json:"name_chars"`
	DateChars int `yaml:"date_chars" json:"date_chars"`
	DescChars int `yaml:"desc_chars" json:"desc_chars"`
	// DefaultLimit caps how many lines a view emits when the caller does
	// not ask for a specific limit.
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
}

// MatchingConfig carries the empirically tuned lookup constants. They are
// configuration, not hard constants: nobody has derived optimal values.
type MatchingConfig struct {
	// SimilarityThreshold is the minimum category-affinity score for the
	// minimal view's category filter. Kept low: short phrases against
	// short blurbs score noisily.
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`
	// FuzzyPrefixChars is how many leading characters two names must share
	// for the prefix fallback of name lookup.
	FuzzyPrefixChars int `yaml:"fuzzy_prefix_chars" json:"fuzzy_prefix_chars"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug/info/warn/error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// TTLSeconds is how long per-source cached data stays fresh before a
	// category warm refetches it. Default 36000 (10 hours).
	TTLSeconds int `yaml:"ttl_seconds" json:"ttl_seconds"`

	// RefreshCron is a cron-style schedule (e.g. "0 */6 * * *") used to
	// re-warm the configured categories in the background. Empty disables
	// the scheduler.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// WarmCategories are warmed at startup and on every RefreshCron tick.
	WarmCategories []string `yaml:"warm_categories" json:"warm_categories"`

	Providers ProvidersConfig   `yaml:"providers" json:"providers"`
	Minimal   MinimalViewConfig `yaml:"minimal_view" json:"minimal_view"`
	Matching  MatchingConfig    `yaml:"matching" json:"matching"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// defaultEventbriteVenues are central-Brussels venues (Botanique, Halles
// St-Géry and friends) polled when the config does not name its own list.
var defaultEventbriteVenues = []string{
	"295288568", "271238193", "278600043", "279838893", "290674563",
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         "127.0.0.1:8080",
		LogLevel:       "info",
		TTLSeconds:     36000,
		RefreshCron:    "0 */6 * * *",
		WarmCategories: []string{"music", "sport", "art"},
		Providers: ProvidersConfig{
			Brussels:         true,
			Ticketmaster:     true,
			Eventbrite:       true,
			CountryCode:      "BE",
			City:             "Brussels",
			EventbriteVenues: append([]string(nil), defaultEventbriteVenues...),
		},
		Minimal: MinimalViewConfig{
			NameChars:    80,
			DateChars:    16,
			DescChars:    100,
			DefaultLimit: 50,
		},
		Matching: MatchingConfig{
			SimilarityThreshold: 0.15,
			FuzzyPrefixChars:    30,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.TTLSeconds <= 0 {
		c.TTLSeconds = 36000
	}
	if c.WarmCategories == nil {
		c.WarmCategories = []string{"music", "sport", "art"}
	}

	if c.Providers.CountryCode == "" {
		c.Providers.CountryCode = "BE"
	}
	if c.Providers.City == "" {
		c.Providers.City = "Brussels"
	}
	if c.Providers.EventbriteVenues == nil {
		c.Providers.EventbriteVenues = append([]string(nil), defaultEventbriteVenues...)
	}

	if c.Minimal.NameChars <= 0 {
		c.Minimal.NameChars = 80
	}
	if c.Minimal.DateChars <= 0 {
		c.Minimal.DateChars = 16
	}
	if c.Minimal.DescChars <= 0 {
		c.Minimal.DescChars = 100
	}
	if c.Minimal.DefaultLimit <= 0 {
		c.Minimal.DefaultLimit = 50
	}

	if c.Matching.SimilarityThreshold <= 0 {
		c.Matching.SimilarityThreshold = 0.15
	}
	if c.Matching.FuzzyPrefixChars <= 0 {
		c.Matching.FuzzyPrefixChars = 30
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".eventscout-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
