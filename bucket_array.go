package chainmap

import (
	"github.com/cockroachdb/errors"
)

// bucketArray owns a fixed number of buckets. Index i is the home of every
// key that hashes to i under len(buckets).
type bucketArray[K, V any] struct {
	buckets []*bucket[K, V]
}

// newBucketArray allocates n buckets, failing with ErrOutOfMemory when n
// is not positive or exceeds the allocation budget maxBuckets (0 means
// unlimited). A failed construction leaves nothing behind.
func newBucketArray[K, V any](n, maxBuckets int) (*bucketArray[K, V], error) {
	if n <= 0 {
		return nil, errors.Wrapf(ErrOutOfMemory, "bucket array of %d buckets", n)
	}
	if maxBuckets > 0 && n > maxBuckets {
		return nil, errors.Wrapf(ErrOutOfMemory,
			"bucket array of %d buckets exceeds budget of %d", n, maxBuckets)
	}
	a := &bucketArray[K, V]{buckets: make([]*bucket[K, V], n)}
	for i := range a.buckets {
		a.buckets[i] = newBucket[K, V]()
	}
	return a, nil
}

func (a *bucketArray[K, V]) len() int {
	return len(a.buckets)
}

func (a *bucketArray[K, V]) at(i int) *bucket[K, V] {
	return a.buckets[i]
}

// clear empties every bucket and returns the number of freed entries.
func (a *bucketArray[K, V]) clear(h *Handlers[K, V]) int {
	n := 0
	for _, b := range a.buckets {
		n += b.clear(h)
	}
	return n
}

// destroy frees every entry and drops all buckets.
func (a *bucketArray[K, V]) destroy(h *Handlers[K, V]) int {
	n := 0
	for i, b := range a.buckets {
		n += b.destroy(h)
		a.buckets[i] = nil
	}
	a.buckets = nil
	return n
}
