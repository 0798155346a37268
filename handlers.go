package chainmap

// Handlers defines how a table takes ownership of keys and values.
//
// KeyCopy and ValueCopy run on the way in and may fail; a non-nil error is
// reported to the caller as ErrOutOfMemory and the table is left untouched.
// KeyFree and ValueFree run whenever the table drops a stored key or value
// and must not fail. Nil members default to identity copies and no-op frees,
// which is what plain Go values want.
type Handlers[K, V any] struct {
	KeyCopy   func(key K) (K, error)
	KeyFree   func(key K)
	ValueCopy func(value V) (V, error)
	ValueFree func(value V)
}

func (h *Handlers[K, V]) withDefaults() Handlers[K, V] {
	out := *h
	if out.KeyCopy == nil {
		out.KeyCopy = func(key K) (K, error) { return key, nil }
	}
	if out.KeyFree == nil {
		out.KeyFree = func(K) {}
	}
	if out.ValueCopy == nil {
		out.ValueCopy = func(value V) (V, error) { return value, nil }
	}
	if out.ValueFree == nil {
		out.ValueFree = func(V) {}
	}
	return out
}

// freeEntry releases the key and value owned by e.
func (h *Handlers[K, V]) freeEntry(e *entry[K, V]) {
	h.KeyFree(e.key)
	h.ValueFree(e.value)
	var (
		zeroK K
		zeroV V
	)
	e.key, e.value = zeroK, zeroV
}
