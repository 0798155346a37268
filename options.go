package chainmap

import (
	"math"

	"go.uber.org/zap"
)

const (
	// DefaultBucketCount is the bucket count of a new table.
	DefaultBucketCount = 32
	// DefaultLoadFactor is the load factor above which an insert grows the table.
	DefaultLoadFactor = 0.75
	// DefaultGrowthFactor multiplies the bucket count on every growth.
	DefaultGrowthFactor = 2
)

// TableConfig defines configurable HashTable options.
type TableConfig struct {
	initialBuckets int
	loadFactor     float64
	growthFactor   int
	maxBuckets     int
	logger         *zap.Logger
	handlers       any
}

// Option configures a HashTable.
type Option func(*TableConfig)

func defaultTableConfig() TableConfig {
	return TableConfig{
		initialBuckets: DefaultBucketCount,
		loadFactor:     DefaultLoadFactor,
		growthFactor:   DefaultGrowthFactor,
	}
}

// WithInitialBuckets sets the starting bucket count.
// Zero or negative values are ignored.
func WithInitialBuckets(n int) Option {
	return func(c *TableConfig) {
		if n > 0 {
			c.initialBuckets = n
		}
	}
}

// WithPresize configures a table with enough buckets to hold sizeHint
// entries without growing. If sizeHint is zero or negative, the value
// is ignored.
//
// Apply it after WithLoadFactor when both are used.
func WithPresize(sizeHint int) Option {
	return func(c *TableConfig) {
		if sizeHint > 0 {
			c.initialBuckets = calcTableLen(sizeHint, c.loadFactor)
		}
	}
}

// WithLoadFactor sets the growth threshold. Values outside (0, +Inf) are
// rejected by New.
func WithLoadFactor(f float64) Option {
	return func(c *TableConfig) {
		c.loadFactor = f
	}
}

// WithGrowthFactor sets the multiplier applied to the bucket count on
// growth. It must be at least 2.
func WithGrowthFactor(g int) Option {
	return func(c *TableConfig) {
		c.growthFactor = g
	}
}

// WithMaxBuckets caps the number of buckets the table may allocate.
// Growth past the cap fails with ErrOutOfMemory. Zero means no cap.
func WithMaxBuckets(n int) Option {
	return func(c *TableConfig) {
		c.maxBuckets = n
	}
}

// WithLogger routes table events to l. Nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *TableConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHandlers installs the key/value ownership handlers. The type
// parameters must match the table's, otherwise New reports ErrInvalidConfig.
func WithHandlers[K, V any](h Handlers[K, V]) Option {
	return func(c *TableConfig) {
		c.handlers = h
	}
}

// calcTableLen computes the smallest bucket count, at least
// DefaultBucketCount, able to hold sizeHint entries under loadFactor.
func calcTableLen(sizeHint int, loadFactor float64) int {
	if loadFactor <= 0 {
		loadFactor = DefaultLoadFactor
	}
	tableLen := DefaultBucketCount
	if float64(sizeHint) > float64(tableLen)*loadFactor {
		tableLen = nextPowOf2(int(math.Ceil(float64(sizeHint) / loadFactor)))
	}
	return tableLen
}

// nextPowOf2 calculates the smallest power of 2 that is greater than or equal to n.
func nextPowOf2(n int) int {
	if n <= 0 {
		return 1
	}
	v := uint64(n)
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	v++
	return int(v)
}
