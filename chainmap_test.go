package chainmap

import (
	"fmt"
	"sort"
	"strconv"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newIntTable(t *testing.T, options ...Option) *HashTable[int, int] {
	t.Helper()
	m, err := New[int, int](IntHasher[int](), Equal[int], options...)
	require.NoError(t, err)
	return m
}

// ownership counts handler calls and refuses copies on demand.
type ownership struct {
	keyCopies, keyFrees     int
	valueCopies, valueFrees int
	failKeyCopy             bool
	failValueCopy           bool
}

func (o *ownership) handlers() Handlers[int, int] {
	return Handlers[int, int]{
		KeyCopy: func(k int) (int, error) {
			if o.failKeyCopy {
				return 0, errors.New("no memory for key")
			}
			o.keyCopies++
			return k, nil
		},
		KeyFree: func(int) { o.keyFrees++ },
		ValueCopy: func(v int) (int, error) {
			if o.failValueCopy {
				return 0, errors.New("no memory for value")
			}
			o.valueCopies++
			return v, nil
		},
		ValueFree: func(int) { o.valueFrees++ },
	}
}

func (o *ownership) liveKeys() int   { return o.keyCopies - o.keyFrees }
func (o *ownership) liveValues() int { return o.valueCopies - o.valueFrees }

func TestHashTable_Empty(t *testing.T) {
	m := newIntTable(t)
	defer m.Destroy()

	require.Equal(t, 0, m.Size())
	require.True(t, m.IsZero())
	require.Equal(t, DefaultBucketCount, m.BucketCount())
	require.Zero(t, m.LoadFactor())

	_, ok := m.Get(42)
	require.False(t, ok)
	require.Nil(t, m.GetRef(42))
	require.False(t, m.Contains(42))
}

func TestHashTable_InsertUpdate(t *testing.T) {
	m := newIntTable(t)
	defer m.Destroy()

	require.NoError(t, m.Insert(0, 100))
	require.Equal(t, 1, m.Size())
	v, ok := m.Get(0)
	require.True(t, ok)
	require.Equal(t, 100, v)

	require.NoError(t, m.Insert(0, 200))
	require.Equal(t, 1, m.Size())
	v, ok = m.Get(0)
	require.True(t, ok)
	require.Equal(t, 200, v)
}

func TestHashTable_InsertResize(t *testing.T) {
	m := newIntTable(t)
	defer m.Destroy()

	for i := 0; i < 34; i++ {
		require.NoError(t, m.Insert(i, i))
		require.Equal(t, i+1, m.Size())
		require.LessOrEqual(t, m.LoadFactor(), DefaultLoadFactor)
	}
	require.Equal(t, 64, m.BucketCount())
	require.Equal(t, uint32(1), m.Stats().TotalGrowths)

	for i := 0; i < 34; i++ {
		v, ok := m.Get(i)
		require.True(t, ok, "key %d", i)
		require.Equal(t, i, v)
	}

	for i := 0; i < 34; i++ {
		require.NoError(t, m.Insert(i, 2*i))
		v, ok := m.Get(i)
		require.True(t, ok)
		require.Equal(t, 2*i, v)
	}
	require.Equal(t, 34, m.Size())
}

func TestHashTable_GrowthBoundary(t *testing.T) {
	m := newIntTable(t)
	defer m.Destroy()

	// 24/32 is exactly the threshold and must not grow
	for i := 0; i < 24; i++ {
		require.NoError(t, m.Insert(i, i))
	}
	require.Equal(t, 32, m.BucketCount())

	require.NoError(t, m.Insert(24, 24))
	require.Equal(t, 64, m.BucketCount())
	require.InDelta(t, 25.0/64.0, m.LoadFactor(), 1e-9)
}

func TestHashTable_Scenario(t *testing.T) {
	m := newIntTable(t)
	defer m.Destroy()

	for i := 0; i < 34; i++ {
		require.NoError(t, m.Insert(i, i))
	}
	require.Equal(t, 34, m.Size())
	v, ok := m.Get(17)
	require.True(t, ok)
	require.Equal(t, 17, v)

	require.NoError(t, m.Insert(5, 500))
	require.Equal(t, 34, m.Size())
	v, ok = m.Get(5)
	require.True(t, ok)
	require.Equal(t, 500, v)

	for i := 33; i >= 0; i-- {
		m.Remove(i)
		require.Equal(t, i, m.Size())
		require.False(t, m.Contains(i))
	}
	require.Equal(t, 0, m.Size())
	require.Zero(t, m.LoadFactor())
}

func TestHashTable_RemoveIdempotent(t *testing.T) {
	m := newIntTable(t)
	defer m.Destroy()

	m.Remove(7)
	require.Equal(t, 0, m.Size())

	require.NoError(t, m.Insert(7, 70))
	require.NoError(t, m.Insert(8, 80))
	m.Remove(7)
	require.Equal(t, 1, m.Size())
	_, ok := m.Get(7)
	require.False(t, ok)
	require.False(t, m.Contains(7))

	m.Remove(7)
	require.Equal(t, 1, m.Size())
	require.True(t, m.Contains(8))
}

func TestHashTable_RemoveNeverShrinks(t *testing.T) {
	m := newIntTable(t)
	defer m.Destroy()

	for i := 0; i < 100; i++ {
		require.NoError(t, m.Insert(i, i))
	}
	buckets := m.BucketCount()
	for i := 0; i < 100; i++ {
		m.Remove(i)
	}
	require.Equal(t, buckets, m.BucketCount())
}

func TestHashTable_Clear(t *testing.T) {
	var o ownership
	m := newIntTable(t, WithHandlers(o.handlers()))
	defer m.Destroy()

	for i := 0; i < 50; i++ {
		require.NoError(t, m.Insert(i, i))
	}
	buckets := m.BucketCount()

	m.Clear()
	require.Equal(t, 0, m.Size())
	require.Zero(t, m.LoadFactor())
	require.Equal(t, buckets, m.BucketCount())
	require.Zero(t, o.liveKeys())
	require.Zero(t, o.liveValues())
	for i := 0; i < 50; i++ {
		require.False(t, m.Contains(i))
	}

	require.NoError(t, m.Insert(3, 30))
	v, ok := m.Get(3)
	require.True(t, ok)
	require.Equal(t, 30, v)
	require.Equal(t, 1, m.Size())
}

func TestHashTable_Destroy(t *testing.T) {
	var o ownership
	m := newIntTable(t, WithHandlers(o.handlers()))
	for i := 0; i < 40; i++ {
		require.NoError(t, m.Insert(i, i))
	}

	m.Destroy()
	require.Zero(t, o.liveKeys())
	require.Zero(t, o.liveValues())

	m.Destroy()
	require.PanicsWithValue(t, ErrDestroyed, func() { m.Size() })
	require.PanicsWithValue(t, ErrDestroyed, func() { _ = m.Insert(1, 1) })
	require.Equal(t, "HashTable[destroyed]", m.String())

	var nilTable *HashTable[int, int]
	nilTable.Destroy()
}

func TestHashTable_Ownership(t *testing.T) {
	var o ownership
	m := newIntTable(t, WithHandlers(o.handlers()))
	defer m.Destroy()

	require.NoError(t, m.Insert(1, 10))
	require.Equal(t, 1, o.keyCopies)
	require.Equal(t, 1, o.valueCopies)

	// update copies the value only and frees the replaced one
	require.NoError(t, m.Insert(1, 11))
	require.Equal(t, 1, o.keyCopies)
	require.Equal(t, 2, o.valueCopies)
	require.Equal(t, 1, o.valueFrees)

	m.Remove(1)
	require.Zero(t, o.liveKeys())
	require.Zero(t, o.liveValues())
}

func TestHashTable_ValueCopyFailure(t *testing.T) {
	o := ownership{failValueCopy: true}
	m := newIntTable(t, WithHandlers(o.handlers()))
	defer m.Destroy()

	err := m.Insert(1, 1)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrOutOfMemory))
	require.Equal(t, 0, m.Size())
	require.False(t, m.Contains(1))
	require.Zero(t, o.keyCopies)
}

func TestHashTable_KeyCopyFailure(t *testing.T) {
	o := ownership{failKeyCopy: true}
	m := newIntTable(t, WithHandlers(o.handlers()))
	defer m.Destroy()

	err := m.Insert(1, 1)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrOutOfMemory))
	require.Contains(t, err.Error(), "no memory for key")
	require.Equal(t, 0, m.Size())
	require.False(t, m.Contains(1))
	require.Zero(t, o.liveValues(), "copied value must be released")
}

func TestHashTable_ResizeFailureKeepsEntry(t *testing.T) {
	m := newIntTable(t, WithMaxBuckets(DefaultBucketCount))
	defer m.Destroy()

	for i := 0; i < 24; i++ {
		require.NoError(t, m.Insert(i, i))
	}

	err := m.Insert(24, 24)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrOutOfMemory))

	require.Equal(t, 25, m.Size())
	require.Equal(t, DefaultBucketCount, m.BucketCount())
	for i := 0; i < 25; i++ {
		v, ok := m.Get(i)
		require.True(t, ok, "key %d", i)
		require.Equal(t, i, v)
	}

	// updates never grow, so they keep succeeding
	require.NoError(t, m.Insert(3, 300))
	stats := m.Stats()
	require.Equal(t, stats.Counter, stats.Size)
	require.Zero(t, stats.TotalGrowths)
}

func TestHashTable_GetRefSurvivesResize(t *testing.T) {
	m := newIntTable(t)
	defer m.Destroy()

	require.NoError(t, m.Insert(5, 50))
	ref := m.GetRef(5)
	require.NotNil(t, ref)

	for i := 100; i < 200; i++ {
		require.NoError(t, m.Insert(i, i))
	}
	require.Greater(t, m.BucketCount(), DefaultBucketCount)
	require.Same(t, ref, m.GetRef(5))

	*ref = 55
	v, _ := m.Get(5)
	require.Equal(t, 55, v)
}

func TestHashTable_Take(t *testing.T) {
	var o ownership
	m := newIntTable(t, WithHandlers(o.handlers()))
	defer m.Destroy()

	require.NoError(t, m.Insert(9, 90))
	v, ok := m.Take(9)
	require.True(t, ok)
	require.Equal(t, 90, v)
	require.Equal(t, 0, m.Size())
	require.Zero(t, o.liveKeys())
	require.Equal(t, 1, o.liveValues(), "taken value belongs to the caller")

	_, ok = m.Take(9)
	require.False(t, ok)
}

func TestHashTable_Collisions(t *testing.T) {
	m, err := New[int, string](
		func(int, int) int { return 0 },
		Equal[int],
	)
	require.NoError(t, err)
	defer m.Destroy()

	for i := 0; i < 100; i++ {
		require.NoError(t, m.Insert(i, strconv.Itoa(i)))
	}
	for i := 0; i < 100; i += 3 {
		m.Remove(i)
	}
	for i := 0; i < 100; i++ {
		v, ok := m.Get(i)
		if i%3 == 0 {
			require.False(t, ok)
			continue
		}
		require.True(t, ok)
		require.Equal(t, strconv.Itoa(i), v)
	}

	stats := m.Stats()
	require.Equal(t, m.Size(), stats.MaxChain)
	require.Equal(t, stats.Buckets-1, stats.EmptyBuckets)
}

func TestHashTable_ChainOrder(t *testing.T) {
	m, err := New[int, int](func(int, int) int { return 0 }, Equal[int])
	require.NoError(t, err)
	defer m.Destroy()

	for _, k := range []int{3, 1, 2} {
		require.NoError(t, m.Insert(k, k))
	}
	var keys []int
	for k := range m.Keys() {
		keys = append(keys, k)
	}
	require.Equal(t, []int{3, 1, 2}, keys)
}

func TestHashTable_BadHashPanics(t *testing.T) {
	m, err := New[int, int](func(_ int, n int) int { return n }, Equal[int])
	require.NoError(t, err)
	require.Panics(t, func() { _ = m.Insert(1, 1) })
}

func TestHashTable_ForEach(t *testing.T) {
	m := newIntTable(t)
	defer m.Destroy()

	for i := 0; i < 40; i++ {
		require.NoError(t, m.Insert(i, i))
	}
	sum, calls := 0, 0
	m.ForEach(func(v *int) {
		sum += *v
		calls++
		*v *= 10
	})
	require.Equal(t, 40, calls)
	require.Equal(t, 39*40/2, sum)

	v, _ := m.Get(7)
	require.Equal(t, 70, v)
}

func TestHashTable_Range(t *testing.T) {
	m := newIntTable(t)
	defer m.Destroy()

	for i := 0; i < 10; i++ {
		require.NoError(t, m.Insert(i, i*i))
	}

	got := map[int]int{}
	for k, v := range m.All() {
		got[k] = v
	}
	require.Len(t, got, 10)
	require.Equal(t, got, ToMap(m))
	require.Equal(t, 81, got[9])

	seen := 0
	m.Range(func(int, int) bool {
		seen++
		return seen < 3
	})
	require.Equal(t, 3, seen)

	var values []int
	for v := range m.Values() {
		values = append(values, v)
	}
	sort.Ints(values)
	require.Equal(t, []int{0, 1, 4, 9, 16, 25, 36, 49, 64, 81}, values)
}

func TestHashTable_StringKeys(t *testing.T) {
	m, err := NewComparable[string, int]()
	require.NoError(t, err)
	defer m.Destroy()

	for i := 0; i < 1000; i++ {
		require.NoError(t, m.Insert(fmt.Sprintf("key-%d", i), i))
	}
	require.Equal(t, 1000, m.Size())
	for i := 0; i < 1000; i++ {
		v, ok := m.Get(fmt.Sprintf("key-%d", i))
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	require.False(t, m.Contains(""))
}

func TestHashTable_StructKeys(t *testing.T) {
	type point struct{ X, Y int }
	m, err := NewComparable[point, string]()
	require.NoError(t, err)
	defer m.Destroy()

	require.NoError(t, m.Insert(point{1, 2}, "a"))
	require.NoError(t, m.Insert(point{2, 1}, "b"))
	v, ok := m.Get(point{1, 2})
	require.True(t, ok)
	require.Equal(t, "a", v)
	require.Equal(t, 2, m.Size())
}

func TestHashTable_String(t *testing.T) {
	m := newIntTable(t)
	defer m.Destroy()

	require.Equal(t, "HashTable[]", m.String())
	require.NoError(t, m.Insert(1, 2))
	require.Equal(t, "HashTable[1:2]", m.String())
}

func TestHashTable_Stats(t *testing.T) {
	m := newIntTable(t)
	defer m.Destroy()

	for i := 0; i < 64; i++ {
		require.NoError(t, m.Insert(i, i))
	}
	stats := m.Stats()
	require.Equal(t, m.BucketCount(), stats.Buckets)
	require.Equal(t, 64, stats.Size)
	require.Equal(t, 64, stats.Counter)
	require.Equal(t, DefaultLoadFactor, stats.MaxLoadFactor)
	require.Equal(t, 1, stats.MaxChain)
	require.Equal(t, 0, stats.MinChain)
	require.Contains(t, stats.ToString(), "Size:          64")
}

func TestHashTable_Logger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m := newIntTable(t, WithLogger(zap.New(core)))
	defer m.Destroy()

	for i := 0; i < 25; i++ {
		require.NoError(t, m.Insert(i, i))
	}
	resizes := logs.FilterMessage("resizing table").All()
	require.Len(t, resizes, 1)
	fields := resizes[0].ContextMap()
	require.EqualValues(t, 32, fields["from"])
	require.EqualValues(t, 64, fields["to"])
}

func TestHashTable_LoggerResizeFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	m := newIntTable(t, WithLogger(zap.New(core)), WithMaxBuckets(32))
	defer m.Destroy()

	for i := 0; i < 25; i++ {
		_ = m.Insert(i, i)
	}
	require.Equal(t, 1, logs.FilterMessage("resize failed").Len())
}

func TestNew_InvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		opts []Option
		want error
	}{
		{"zero load factor", []Option{WithLoadFactor(0)}, ErrInvalidConfig},
		{"growth factor one", []Option{WithGrowthFactor(1)}, ErrInvalidConfig},
		{"negative max buckets", []Option{WithMaxBuckets(-1)}, ErrInvalidConfig},
		{"handlers mismatch", []Option{WithHandlers(Handlers[string, int]{})}, ErrInvalidConfig},
		{"initial above budget", []Option{WithInitialBuckets(64), WithMaxBuckets(32)}, ErrOutOfMemory},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := New[int, int](IntHasher[int](), Equal[int], c.opts...)
			require.Error(t, err)
			require.True(t, errors.Is(err, c.want), "got %v", err)
		})
	}

	_, err := New[int, int](nil, Equal[int])
	require.True(t, errors.Is(err, ErrInvalidConfig))
	require.Panics(t, func() { MustNew[int, int](IntHasher[int](), nil) })
}

func TestNew_Options(t *testing.T) {
	m := newIntTable(t, WithInitialBuckets(8), WithGrowthFactor(4), WithLoadFactor(1))
	defer m.Destroy()

	require.Equal(t, 8, m.BucketCount())
	for i := 0; i < 9; i++ {
		require.NoError(t, m.Insert(i, i))
	}
	require.Equal(t, 32, m.BucketCount())

	p := newIntTable(t, WithPresize(1000))
	defer p.Destroy()
	require.Equal(t, 2048, p.BucketCount())
	for i := 0; i < 1000; i++ {
		require.NoError(t, p.Insert(i, i))
	}
	require.Equal(t, 2048, p.BucketCount())
}

func TestCalcTableLen(t *testing.T) {
	cases := []struct {
		hint int
		want int
	}{
		{0, 32},
		{1, 32},
		{24, 32},
		{25, 64},
		{48, 64},
		{49, 128},
		{1000, 2048},
	}
	for _, c := range cases {
		require.Equal(t, c.want, calcTableLen(c.hint, DefaultLoadFactor), "hint %d", c.hint)
	}
	require.Equal(t, 1, nextPowOf2(0))
	require.Equal(t, 64, nextPowOf2(33))
}
