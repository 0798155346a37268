package chainmap

import (
	"fmt"
	"strings"
)

// TableStats is HashTable statistics.
//
// Warning: table statistics are intended to be used for diagnostic
// purposes, not for production code. This means that breaking changes
// may be introduced into this struct even between minor releases.
type TableStats struct {
	// Buckets is the number of buckets in the bucket array.
	Buckets int
	// EmptyBuckets is the number of buckets whose chain is empty.
	EmptyBuckets int
	// Size is the number of entries reachable from the buckets.
	Size int
	// Counter is the table's element counter. It always equals Size
	// unless the table is corrupted.
	Counter int
	// LoadFactor is Counter divided by Buckets.
	LoadFactor float64
	// MaxLoadFactor is the growth threshold.
	MaxLoadFactor float64
	// MinChain is the length of the shortest chain.
	MinChain int
	// MaxChain is the length of the longest chain.
	MaxChain int
	// TotalGrowths is the number of times the table grew.
	TotalGrowths uint32
}

// Stats returns statistics for the table. It is an O(N) operation,
// so it should be used only for diagnostics or debugging purposes.
func (t *HashTable[K, V]) Stats() *TableStats {
	a := t.live()
	stats := &TableStats{
		Buckets:       a.len(),
		Counter:       t.count,
		LoadFactor:    t.loadFactor,
		MaxLoadFactor: t.cfg.loadFactor,
		TotalGrowths:  t.growths,
	}
	for i, b := range a.buckets {
		n := b.len()
		stats.Size += n
		if n == 0 {
			stats.EmptyBuckets++
		}
		if i == 0 || n < stats.MinChain {
			stats.MinChain = n
		}
		if n > stats.MaxChain {
			stats.MaxChain = n
		}
	}
	return stats
}

// ToString returns string representation of table stats.
func (s *TableStats) ToString() string {
	var sb strings.Builder
	sb.WriteString("TableStats{\n")
	sb.WriteString(fmt.Sprintf("Buckets:       %d\n", s.Buckets))
	sb.WriteString(fmt.Sprintf("EmptyBuckets:  %d\n", s.EmptyBuckets))
	sb.WriteString(fmt.Sprintf("Size:          %d\n", s.Size))
	sb.WriteString(fmt.Sprintf("Counter:       %d\n", s.Counter))
	sb.WriteString(fmt.Sprintf("LoadFactor:    %.4f\n", s.LoadFactor))
	sb.WriteString(fmt.Sprintf("MaxLoadFactor: %.4f\n", s.MaxLoadFactor))
	sb.WriteString(fmt.Sprintf("MinChain:      %d\n", s.MinChain))
	sb.WriteString(fmt.Sprintf("MaxChain:      %d\n", s.MaxChain))
	sb.WriteString(fmt.Sprintf("TotalGrowths:  %d\n", s.TotalGrowths))
	sb.WriteString("}\n")
	return sb.String()
}
