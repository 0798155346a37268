package chainmap

import (
	"fmt"
	"iter"
	"math"
	"strings"
	"unsafe"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/cpu"
)

// CacheLineSize is used in structure padding to prevent false sharing.
// It's automatically calculated using the `golang.org/x/sys` package.
const CacheLineSize = unsafe.Sizeof(cpu.CacheLinePad{})

// HashTable is a separate-chaining hash table from keys K to values V.
//
// Each bucket holds a singly linked chain of entries behind a sentinel
// node. The table grows by GrowthFactor whenever an insert pushes the load
// factor (entries per bucket) above the configured threshold; it never
// shrinks. Growth relinks the existing entries into the new buckets, so
// keys and values are never copied again and pointers returned by GetRef
// stay valid across a resize.
//
// Key semantics are supplied by the caller: a HashFunc that places a key
// in a bucket and an EqualFunc that must agree with it. Optional Handlers
// define how keys and values are copied in and released.
//
// A HashTable is not safe for concurrent use. The zero value is not
// usable; create tables with New or NewComparable.
type HashTable[K, V any] struct {
	//lint:ignore U1000 prevents false sharing
	pad [(CacheLineSize - unsafe.Sizeof(struct {
		array      unsafe.Pointer
		count      int
		loadFactor float64
		growths    uint32
	}{})%CacheLineSize) % CacheLineSize]byte

	array      *bucketArray[K, V]
	count      int
	loadFactor float64
	growths    uint32

	hash     HashFunc[K]
	equal    EqualFunc[K]
	handlers Handlers[K, V]
	cfg      TableConfig
	logger   *zap.Logger
}

// New creates an empty table using hash to place keys and equal to match
// them.
//
// Parameters:
//   - hash: must return an index in [0, buckets) and agree with equal
//   - equal: key equality
//   - WithInitialBuckets / WithPresize for the starting capacity
//   - WithLoadFactor, WithGrowthFactor, WithMaxBuckets for growth policy
//   - WithHandlers for key/value ownership, WithLogger for diagnostics
func New[K, V any](hash HashFunc[K], equal EqualFunc[K], options ...Option) (*HashTable[K, V], error) {
	if hash == nil || equal == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "hash and equal functions are required")
	}

	cfg := defaultTableConfig()
	for _, opt := range options {
		opt(&cfg)
	}
	if math.IsNaN(cfg.loadFactor) || cfg.loadFactor <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "load factor %v", cfg.loadFactor)
	}
	if cfg.growthFactor < 2 {
		return nil, errors.Wrapf(ErrInvalidConfig, "growth factor %d", cfg.growthFactor)
	}
	if cfg.maxBuckets < 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "max buckets %d", cfg.maxBuckets)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	var handlers Handlers[K, V]
	if cfg.handlers != nil {
		h, ok := cfg.handlers.(Handlers[K, V])
		if !ok {
			return nil, errors.Wrapf(ErrInvalidConfig,
				"handlers of type %T do not match table", cfg.handlers)
		}
		handlers = h
	}

	array, err := newBucketArray[K, V](cfg.initialBuckets, cfg.maxBuckets)
	if err != nil {
		return nil, err
	}

	return &HashTable[K, V]{
		array:    array,
		hash:     hash,
		equal:    equal,
		handlers: handlers.withDefaults(),
		cfg:      cfg,
		logger:   cfg.logger,
	}, nil
}

// NewComparable creates a table for a comparable key type using
// DefaultHasher and ==.
func NewComparable[K comparable, V any](options ...Option) (*HashTable[K, V], error) {
	return New[K, V](DefaultHasher[K](), Equal[K], options...)
}

// MustNew is like New but panics on error.
func MustNew[K, V any](hash HashFunc[K], equal EqualFunc[K], options ...Option) *HashTable[K, V] {
	t, err := New[K, V](hash, equal, options...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *HashTable[K, V]) live() *bucketArray[K, V] {
	if t.array == nil {
		panic(ErrDestroyed)
	}
	return t.array
}

// index asks the caller's hash function for key's bucket under n buckets.
func (t *HashTable[K, V]) index(key K, n int) int {
	i := t.hash(key, n)
	if i < 0 || i >= n {
		panic(errors.Newf("chainmap: hash returned %d, want [0, %d)", i, n))
	}
	return i
}

func (t *HashTable[K, V]) lookup(key K) (*bucket[K, V], *entry[K, V]) {
	a := t.live()
	b := a.at(t.index(key, a.len()))
	return b, b.find(key, t.equal)
}

func (t *HashTable[K, V]) updateLoadFactor() {
	t.loadFactor = float64(t.count) / float64(t.array.len())
}

// Insert stores a copy of value under key, replacing the value of an
// existing equal key. The stored key of an existing entry is kept as is.
//
// Copy failures return ErrOutOfMemory and leave the table unchanged. If the
// insert adds a key and the following growth fails, the error wraps
// ErrOutOfMemory but the new mapping stays in place at the old capacity.
func (t *HashTable[K, V]) Insert(key K, value V) error {
	a := t.live()
	b := a.at(t.index(key, a.len()))

	v, err := t.handlers.ValueCopy(value)
	if err != nil {
		return markOutOfMemory(err, "copy value")
	}

	if e := b.find(key, t.equal); e != nil {
		t.handlers.ValueFree(e.value)
		e.value = v
		t.logger.Debug("updated existing entry")
		return nil
	}

	k, err := t.handlers.KeyCopy(key)
	if err != nil {
		t.handlers.ValueFree(v)
		return markOutOfMemory(err, "copy key")
	}

	b.append(&entry[K, V]{key: k, value: v})
	t.count++
	t.updateLoadFactor()
	t.logger.Debug("added new entry", zap.Int("size", t.count))

	if t.loadFactor > t.cfg.loadFactor {
		return t.resize()
	}
	return nil
}

// resize moves every entry into a bucket array GrowthFactor times larger.
// Entries are relinked, not copied. On failure the current array stays
// authoritative.
func (t *HashTable[K, V]) resize() error {
	old := t.array
	from := old.len()
	to := from * t.cfg.growthFactor
	if to/t.cfg.growthFactor != from {
		return errors.Wrapf(ErrOutOfMemory, "bucket count overflow growing from %d", from)
	}

	t.logger.Debug("resizing table",
		zap.Int("from", from),
		zap.Int("to", to),
		zap.Int("size", t.count))

	next, err := newBucketArray[K, V](to, t.cfg.maxBuckets)
	if err != nil {
		t.logger.Warn("resize failed",
			zap.Int("from", from),
			zap.Int("to", to),
			zap.Error(err))
		return errors.Wrapf(err, "grow table from %d buckets", from)
	}

	t.array = next
	t.count = 0
	t.loadFactor = 0
	for i := 0; i < from; i++ {
		for e := old.at(i).detach(); e != nil; {
			following := e.next
			next.at(t.index(e.key, to)).append(e)
			e = following
			t.count++
			t.updateLoadFactor()
		}
	}
	// every chain was detached above, nothing is freed here
	old.destroy(&t.handlers)
	t.growths++

	t.logger.Debug("resized table",
		zap.Int("buckets", to),
		zap.Int("size", t.count),
		zap.Float64("loadFactor", t.loadFactor))
	return nil
}

// Get returns the value stored under key.
func (t *HashTable[K, V]) Get(key K) (value V, ok bool) {
	if _, e := t.lookup(key); e != nil {
		return e.value, true
	}
	return value, false
}

// GetRef returns a pointer to the value stored under key, or nil.
// The table keeps ownership: the pointer is valid until the key is removed
// or updated, or the table is cleared or destroyed. It survives growth.
func (t *HashTable[K, V]) GetRef(key K) *V {
	if _, e := t.lookup(key); e != nil {
		return &e.value
	}
	return nil
}

// Contains reports whether key is present.
func (t *HashTable[K, V]) Contains(key K) bool {
	_, e := t.lookup(key)
	return e != nil
}

// Remove deletes key and releases its stored key and value through the
// handlers. Removing an absent key does nothing. The table never shrinks.
func (t *HashTable[K, V]) Remove(key K) {
	b, e := t.lookup(key)
	if e == nil {
		return
	}
	b.unlink(e)
	t.handlers.freeEntry(e)
	t.count--
	t.updateLoadFactor()
}

// Take deletes key and hands its value back to the caller, who now owns
// it. The stored key is released through KeyFree; ValueFree is not called.
func (t *HashTable[K, V]) Take(key K) (value V, ok bool) {
	b, e := t.lookup(key)
	if e == nil {
		return value, false
	}
	b.unlink(e)
	value = e.value
	t.handlers.KeyFree(e.key)
	t.count--
	t.updateLoadFactor()
	return value, true
}

// Size returns the number of key-value pairs in the table.
// This is an O(1) operation.
func (t *HashTable[K, V]) Size() int {
	t.live()
	return t.count
}

// IsZero reports whether the table holds no entries.
func (t *HashTable[K, V]) IsZero() bool {
	return t.Size() == 0
}

// LoadFactor returns entries per bucket.
func (t *HashTable[K, V]) LoadFactor() float64 {
	t.live()
	return t.loadFactor
}

// BucketCount returns the current number of buckets.
func (t *HashTable[K, V]) BucketCount() int {
	return t.live().len()
}

// Clear removes every entry, releasing keys and values through the
// handlers. The bucket array keeps its current size.
func (t *HashTable[K, V]) Clear() {
	n := t.live().clear(&t.handlers)
	t.count = 0
	t.loadFactor = 0
	t.logger.Debug("cleared table", zap.Int("freed", n))
}

// Destroy releases every entry and the bucket array. Any later call other
// than Destroy panics with ErrDestroyed.
func (t *HashTable[K, V]) Destroy() {
	if t == nil || t.array == nil {
		return
	}
	t.array.destroy(&t.handlers)
	t.array = nil
	t.count = 0
	t.loadFactor = 0
}

// ForEach calls visit with every stored value, in bucket order and then
// chain order. visit may modify the value in place but must not insert or
// remove keys.
func (t *HashTable[K, V]) ForEach(visit func(value *V)) {
	for _, b := range t.live().buckets {
		for e := b.first(); e != nil; e = e.next {
			visit(&e.value)
		}
	}
}

// Range calls yield for every key-value pair until yield returns false.
// The table must not be modified during iteration.
func (t *HashTable[K, V]) Range(yield func(key K, value V) bool) {
	for _, b := range t.live().buckets {
		for e := b.first(); e != nil; e = e.next {
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}

// All is the iterator version of Range.
func (t *HashTable[K, V]) All() iter.Seq2[K, V] {
	return t.Range
}

// Keys is the iterator version for iterating over all keys.
func (t *HashTable[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		t.Range(func(key K, _ V) bool {
			return yield(key)
		})
	}
}

// Values is the iterator version for iterating over all values.
func (t *HashTable[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		t.Range(func(_ K, value V) bool {
			return yield(value)
		})
	}
}

// String implement the formatting output interface fmt.Stringer
func (t *HashTable[K, V]) String() string {
	const limit = 1024
	if t.array == nil {
		return "HashTable[destroyed]"
	}
	var sb strings.Builder
	sb.WriteString("HashTable[")
	n := 0
	t.Range(func(key K, value V) bool {
		if n > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%v:%v", key, value)
		n++
		return n < limit
	})
	sb.WriteByte(']')
	return sb.String()
}

// ToMap collects all entries of t into a map[K]V.
func ToMap[K comparable, V any](t *HashTable[K, V]) map[K]V {
	m := make(map[K]V, t.Size())
	t.Range(func(key K, value V) bool {
		m[key] = value
		return true
	})
	return m
}
