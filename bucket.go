package chainmap

// entry is one stored key/value pair and the link to the next entry of its
// bucket chain.
type entry[K, V any] struct {
	key   K
	value V
	next  *entry[K, V]
}

// bucket is a singly linked chain of entries behind a permanent sentinel.
// The sentinel carries no key or value and is never unlinked, so inserts and
// removes never special-case an empty head.
type bucket[K, V any] struct {
	sentinel *entry[K, V]
}

func newBucket[K, V any]() *bucket[K, V] {
	return &bucket[K, V]{sentinel: &entry[K, V]{}}
}

// first returns the first real entry, or nil for an empty chain.
func (b *bucket[K, V]) first() *entry[K, V] {
	return b.sentinel.next
}

// find returns the first entry whose key equals key, or nil.
func (b *bucket[K, V]) find(key K, equal EqualFunc[K]) *entry[K, V] {
	for e := b.sentinel.next; e != nil; e = e.next {
		if equal(key, e.key) {
			return e
		}
	}
	return nil
}

// append links e as the new tail of the chain. It walks the whole chain so
// entries keep the order they arrived in.
func (b *bucket[K, V]) append(e *entry[K, V]) {
	tail := b.sentinel
	for tail.next != nil {
		tail = tail.next
	}
	e.next = nil
	tail.next = e
}

// unlink removes e, compared by identity, from the chain.
// It reports whether e was found.
func (b *bucket[K, V]) unlink(e *entry[K, V]) bool {
	for prev := b.sentinel; prev.next != nil; prev = prev.next {
		if prev.next == e {
			prev.next = e.next
			e.next = nil
			return true
		}
	}
	return false
}

// detach hands the whole chain to the caller and leaves the bucket empty.
func (b *bucket[K, V]) detach() *entry[K, V] {
	head := b.sentinel.next
	b.sentinel.next = nil
	return head
}

// clear frees every real entry through h and returns how many were dropped.
// The sentinel survives.
func (b *bucket[K, V]) clear(h *Handlers[K, V]) int {
	n := 0
	for e := b.detach(); e != nil; {
		next := e.next
		e.next = nil
		h.freeEntry(e)
		e = next
		n++
	}
	return n
}

// destroy clears the bucket and drops its sentinel.
func (b *bucket[K, V]) destroy(h *Handlers[K, V]) int {
	n := b.clear(h)
	b.sentinel = nil
	return n
}

func (b *bucket[K, V]) len() int {
	n := 0
	for e := b.sentinel.next; e != nil; e = e.next {
		n++
	}
	return n
}
