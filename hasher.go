package chainmap

import (
	"hash/maphash"
	"math/bits"

	"github.com/cespare/xxhash/v2"
	"github.com/dchest/siphash"
)

// HashFunc maps key to a bucket index in [0, buckets). It must be
// deterministic and consistent with the table's EqualFunc: keys that are
// equal must hash to the same index for any fixed bucket count.
type HashFunc[K any] func(key K, buckets int) int

// EqualFunc reports whether two keys are equal.
type EqualFunc[K any] func(a, b K) bool

// CompareFunc is a three-way comparison where zero denotes equality.
type CompareFunc[K any] func(a, b K) int

// Integer is the set of integer kinds accepted by IntHasher.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// EqualFromCompare adapts a three-way comparison to an EqualFunc.
// Only the zero result is used; ordering is ignored.
func EqualFromCompare[K any](cmp CompareFunc[K]) EqualFunc[K] {
	return func(a, b K) bool { return cmp(a, b) == 0 }
}

// Equal is the EqualFunc of a comparable type.
func Equal[K comparable](a, b K) bool {
	return a == b
}

// IntHasher returns key mod buckets. Negative keys are folded into range.
func IntHasher[K Integer]() HashFunc[K] {
	return func(key K, buckets int) int {
		return reduce(uint64(key), buckets)
	}
}

// StringHasher hashes strings with xxhash64.
func StringHasher() HashFunc[string] {
	return func(key string, buckets int) int {
		return reduce(xxhash.Sum64String(key), buckets)
	}
}

// BytesHasher hashes byte slices with xxhash64. Pair it with bytes.Equal.
func BytesHasher() HashFunc[[]byte] {
	return func(key []byte, buckets int) int {
		return reduce(xxhash.Sum64(key), buckets)
	}
}

// SipStringHasher hashes strings with SipHash-2-4 under the 128-bit key
// (k0, k1). Use it when keys come from untrusted input.
func SipStringHasher(k0, k1 uint64) HashFunc[string] {
	return func(key string, buckets int) int {
		return reduce(siphash.Hash(k0, k1, []byte(key)), buckets)
	}
}

// DefaultHasher picks a hash function for a comparable key type.
// Integer keys hash by value, which keeps sequential keys spread evenly
// across buckets. Everything else goes through the runtime hash of
// hash/maphash with a per-process seed.
func DefaultHasher[K comparable]() HashFunc[K] {
	switch any(*new(K)).(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, uintptr:
		return func(key K, buckets int) int {
			return reduce(integerBits(any(key)), buckets)
		}
	case string:
		return func(key K, buckets int) int {
			return reduce(xxhash.Sum64String(any(key).(string)), buckets)
		}
	default:
		seed := maphash.MakeSeed()
		return func(key K, buckets int) int {
			return reduce(maphash.Comparable(seed, key), buckets)
		}
	}
}

func integerBits(v any) uint64 {
	switch k := v.(type) {
	case int:
		return uint64(k)
	case int8:
		return uint64(k)
	case int16:
		return uint64(k)
	case int32:
		return uint64(k)
	case int64:
		return uint64(k)
	case uint:
		return uint64(k)
	case uint8:
		return uint64(k)
	case uint16:
		return uint64(k)
	case uint32:
		return uint64(k)
	case uint64:
		return k
	case uintptr:
		return uint64(k)
	}
	return 0
}

// reduce maps h into [0, buckets). Power-of-two counts take the mask path.
func reduce(h uint64, buckets int) int {
	n := uint64(buckets)
	if bits.OnesCount64(n) == 1 {
		return int(h & (n - 1))
	}
	return int(h % n)
}
