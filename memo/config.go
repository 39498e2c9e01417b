package memo

import (
	"fmt"

	"github.com/on-the-ground/memo_ive_go/equality"
	"github.com/on-the-ground/memo_ive_go/memo/internal/logging"
	"github.com/on-the-ground/memo_ive_go/memo/internal/partition"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultShards is the shard count used when Config.Shards is zero.
const DefaultShards = 16

// Config configures a Cache.
type Config struct {
	// Shards is the number of independently locked partitions of the table.
	// Must be a power of two; zero means DefaultShards.
	Shards int

	// DefaultThis is the bound context of calls that supply none.
	DefaultThis any

	// DefaultComparator is used by calls that do not pick a comparator.
	// Nil means equality.ByReference.
	DefaultComparator equality.Comparator

	// Logger receives debug events for hits, misses, failures and evictions.
	// Nil builds a production logger at LogLevel, or disables logging when
	// LogLevel is empty too.
	Logger *zap.Logger

	// LogLevel is the level ("debug", "info", "warn", "error") of the logger built
	// when Logger is nil.
	LogLevel string

	// Meter creates the cache instruments. Nil disables metrics.
	Meter metric.Meter
}

// DefaultConfig returns the configuration of the default cache.
func DefaultConfig() Config {
	return Config{
		Shards:            DefaultShards,
		DefaultComparator: equality.ByReference,
	}
}

// Validate reports whether the configuration can build a Cache.
func (c Config) Validate() error {
	if c.Shards < 0 || (c.Shards > 0 && !partition.IsPowerOfTwo(c.Shards)) {
		return fmt.Errorf("%w: shards must be a power of two, got %d", ErrInvalidConfig, c.Shards)
	}
	if c.LogLevel != "" {
		if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// normalize fills zero values with defaults.
func (c Config) normalize() (Config, error) {
	if c.Shards == 0 {
		c.Shards = DefaultShards
	}
	if c.DefaultComparator == nil {
		c.DefaultComparator = equality.ByReference
	}
	if c.Logger == nil && c.LogLevel != "" {
		logger, err := logging.New(c.LogLevel)
		if err != nil {
			return c, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		c.Logger = logger
	}
	c.Logger = logging.OrNop(c.Logger)
	if c.Meter == nil {
		c.Meter = noop.NewMeterProvider().Meter("noop")
	}
	return c, nil
}
