// Package list provides a generic doubly linked list with sentinel head and
// tail nodes.
//
// Elements enter the list through a copy handler, which may fail, and leave
// it through a free handler. Elements handed back by PopBack, PopFront and
// RemoveAt are owned by the caller and are not freed.
package list

import (
	"iter"

	"github.com/cockroachdb/errors"
)

// ErrOutOfMemory reports that the copy handler could not copy an element.
var ErrOutOfMemory = errors.New("list: out of memory")

// Handlers defines how elements are copied in and released.
// Nil members default to an identity copy and a no-op free.
type Handlers[T any] struct {
	Copy func(T) (T, error)
	Free func(T)
}

type node[T any] struct {
	data       T
	prev, next *node[T]
}

// List is a doubly linked sequence. It is not safe for concurrent use.
type List[T any] struct {
	head, tail *node[T]
	size       int
	equal      func(a, b T) bool
	handlers   Handlers[T]
}

// New creates an empty list using equal for IndexOf.
func New[T any](equal func(a, b T) bool, h Handlers[T]) *List[T] {
	if h.Copy == nil {
		h.Copy = func(v T) (T, error) { return v, nil }
	}
	if h.Free == nil {
		h.Free = func(T) {}
	}
	l := &List[T]{
		head:     &node[T]{},
		tail:     &node[T]{},
		equal:    equal,
		handlers: h,
	}
	l.head.next = l.tail
	l.tail.prev = l.head
	return l
}

// NewComparable creates an empty list of a comparable type using ==.
func NewComparable[T comparable](h Handlers[T]) *List[T] {
	return New(func(a, b T) bool { return a == b }, h)
}

// Destroy frees every element. The list is empty but usable afterwards.
func (l *List[T]) Destroy() {
	if l == nil {
		return
	}
	for n := l.head.next; n != l.tail; {
		next := n.next
		l.handlers.Free(n.data)
		n.prev, n.next = nil, nil
		n = next
	}
	l.head.next = l.tail
	l.tail.prev = l.head
	l.size = 0
}

// Clone copies every element into a new list with the same handlers.
// On a copy failure the partial clone is destroyed.
func (l *List[T]) Clone() (*List[T], error) {
	c := New(l.equal, l.handlers)
	for n := l.head.next; n != l.tail; n = n.next {
		if err := c.PushBack(n.data); err != nil {
			c.Destroy()
			return nil, err
		}
	}
	return c, nil
}

// Size returns the number of elements.
func (l *List[T]) Size() int {
	return l.size
}

// IndexOf returns the position of the first element equal to v, or -1.
func (l *List[T]) IndexOf(v T) int {
	i := 0
	for n := l.head.next; n != l.tail; n = n.next {
		if l.equal(n.data, v) {
			return i
		}
		i++
	}
	return -1
}

// nodeAt returns the node at position i, or nil when i is out of range.
// It walks from whichever end is closer.
func (l *List[T]) nodeAt(i int) *node[T] {
	if i < 0 || i >= l.size {
		return nil
	}
	if i < l.size/2 {
		n := l.head.next
		for ; i > 0; i-- {
			n = n.next
		}
		return n
	}
	n := l.tail.prev
	for i = l.size - 1 - i; i > 0; i-- {
		n = n.prev
	}
	return n
}

// GetAt returns the element at position i.
func (l *List[T]) GetAt(i int) (v T, ok bool) {
	if n := l.nodeAt(i); n != nil {
		return n.data, true
	}
	return v, false
}

// RemoveAt unlinks the element at position i and returns it to the caller.
func (l *List[T]) RemoveAt(i int) (v T, ok bool) {
	n := l.nodeAt(i)
	if n == nil {
		return v, false
	}
	return l.unlink(n), true
}

// InsertBefore inserts a copy of v before position i. i == Size appends.
func (l *List[T]) InsertBefore(i int, v T) error {
	if i == l.size {
		return l.PushBack(v)
	}
	n := l.nodeAt(i)
	if n == nil {
		return errors.Newf("list: index %d out of range [0, %d]", i, l.size)
	}
	return l.link(n.prev, v)
}

// InsertAfter inserts a copy of v after position i.
func (l *List[T]) InsertAfter(i int, v T) error {
	n := l.nodeAt(i)
	if n == nil {
		return errors.Newf("list: index %d out of range [0, %d)", i, l.size)
	}
	return l.link(n, v)
}

// PushBack appends a copy of v.
func (l *List[T]) PushBack(v T) error {
	return l.link(l.tail.prev, v)
}

// PushFront prepends a copy of v.
func (l *List[T]) PushFront(v T) error {
	return l.link(l.head, v)
}

// PopBack removes the last element and returns it to the caller.
func (l *List[T]) PopBack() (v T, ok bool) {
	if l.size == 0 {
		return v, false
	}
	return l.unlink(l.tail.prev), true
}

// PopFront removes the first element and returns it to the caller.
func (l *List[T]) PopFront() (v T, ok bool) {
	if l.size == 0 {
		return v, false
	}
	return l.unlink(l.head.next), true
}

// All iterates the elements front to back.
func (l *List[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for n := l.head.next; n != l.tail; n = n.next {
			if !yield(n.data) {
				return
			}
		}
	}
}

// link inserts a copy of v after prev.
func (l *List[T]) link(prev *node[T], v T) error {
	data, err := l.handlers.Copy(v)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "copy element"), ErrOutOfMemory)
	}
	n := &node[T]{data: data, prev: prev, next: prev.next}
	prev.next.prev = n
	prev.next = n
	l.size++
	return nil
}

func (l *List[T]) unlink(n *node[T]) T {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
	l.size--
	return n.data
}
