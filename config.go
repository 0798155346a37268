package chainmap

import (
	"math"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/xyproto/env/v2"
)

// Environment variables consulted by Config.ApplyEnv.
const (
	EnvInitialBuckets = "CHAINMAP_INITIAL_BUCKETS"
	EnvLoadFactor     = "CHAINMAP_LOAD_FACTOR"
	EnvGrowthFactor   = "CHAINMAP_GROWTH_FACTOR"
	EnvMaxBuckets     = "CHAINMAP_MAX_BUCKETS"
	EnvLogLevel       = "CHAINMAP_LOG_LEVEL"
)

// Config is the file and environment form of the table options.
type Config struct {
	// InitialBuckets is the bucket count of a new table.
	InitialBuckets int `toml:"initial-buckets"`
	// LoadFactor is the growth threshold.
	LoadFactor float64 `toml:"load-factor"`
	// GrowthFactor multiplies the bucket count on growth.
	GrowthFactor int `toml:"growth-factor"`
	// MaxBuckets caps the bucket count, 0 means unlimited.
	MaxBuckets int `toml:"max-buckets"`
	// LogLevel is a zap level name used by tools embedding the table.
	LogLevel string `toml:"log-level"`
}

// DefaultConfig returns the configuration matching the package defaults.
func DefaultConfig() Config {
	return Config{
		InitialBuckets: DefaultBucketCount,
		LoadFactor:     DefaultLoadFactor,
		GrowthFactor:   DefaultGrowthFactor,
		LogLevel:       "info",
	}
}

// ParseConfig decodes TOML data on top of DefaultConfig.
func ParseConfig(data string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, errors.Wrapf(ErrInvalidConfig, "decode config: %v", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Wrapf(ErrInvalidConfig, "unknown config keys %v", undecoded)
	}
	return cfg, cfg.Validate()
}

// LoadConfig reads a TOML file, applies environment overrides and
// validates the result. An empty path yields the defaults plus overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
		if cfg, err = ParseConfig(string(data)); err != nil {
			return Config{}, err
		}
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields with the CHAINMAP_* environment variables
// that are set.
func (c *Config) ApplyEnv() {
	if env.Has(EnvInitialBuckets) {
		c.InitialBuckets = env.Int(EnvInitialBuckets, c.InitialBuckets)
	}
	if env.Has(EnvLoadFactor) {
		c.LoadFactor = env.Float64(EnvLoadFactor, c.LoadFactor)
	}
	if env.Has(EnvGrowthFactor) {
		c.GrowthFactor = env.Int(EnvGrowthFactor, c.GrowthFactor)
	}
	if env.Has(EnvMaxBuckets) {
		c.MaxBuckets = env.Int(EnvMaxBuckets, c.MaxBuckets)
	}
	c.LogLevel = env.Str(EnvLogLevel, c.LogLevel)
}

// Validate checks every field against its domain.
func (c Config) Validate() error {
	switch {
	case c.InitialBuckets <= 0:
		return errors.Wrapf(ErrInvalidConfig, "initial-buckets %d", c.InitialBuckets)
	case math.IsNaN(c.LoadFactor) || c.LoadFactor <= 0:
		return errors.Wrapf(ErrInvalidConfig, "load-factor %v", c.LoadFactor)
	case c.GrowthFactor < 2:
		return errors.Wrapf(ErrInvalidConfig, "growth-factor %d", c.GrowthFactor)
	case c.MaxBuckets < 0:
		return errors.Wrapf(ErrInvalidConfig, "max-buckets %d", c.MaxBuckets)
	case c.MaxBuckets > 0 && c.MaxBuckets < c.InitialBuckets:
		return errors.Wrapf(ErrInvalidConfig,
			"max-buckets %d below initial-buckets %d", c.MaxBuckets, c.InitialBuckets)
	}
	return nil
}

// Options converts the configuration into table options.
func (c Config) Options() []Option {
	return []Option{
		WithInitialBuckets(c.InitialBuckets),
		WithLoadFactor(c.LoadFactor),
		WithGrowthFactor(c.GrowthFactor),
		WithMaxBuckets(c.MaxBuckets),
	}
}
