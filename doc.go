/*
Package chainmap provides a generic separate-chaining hash table.

Keys are placed by a caller-supplied HashFunc and matched by an EqualFunc
that must agree with it. Each bucket is a singly linked chain of entries
behind a permanent sentinel node. When an insert pushes the load factor
above the threshold (0.75 by default) the bucket array grows by the growth
factor (2 by default) and every entry is relinked into its new bucket;
nothing is copied and pointers from GetRef stay valid.

Basic usage:

	t, err := chainmap.New[int, string](chainmap.IntHasher[int](), chainmap.Equal[int])
	if err != nil {
		log.Fatal(err)
	}
	defer t.Destroy()

	_ = t.Insert(17, "seventeen")
	if v, ok := t.Get(17); ok {
		fmt.Println(v)
	}
	t.Remove(17)

Ownership:

Handlers define how keys and values enter and leave the table. Copy
handlers may fail; the failure surfaces as ErrOutOfMemory and the table is
left as it was. Free handlers run on Remove, Clear, Destroy and when a
value is replaced.

Features:

  - Default 32 buckets, growth at load factor > 0.75, doubling
  - Growth relinks entries instead of copying them
  - Optional allocation budget (WithMaxBuckets) reported as ErrOutOfMemory
  - TOML and environment configuration (Config)
  - Structured debug logging through zap

A HashTable is not safe for concurrent use, iteration order is
unspecified, and tables never shrink.
*/
package chainmap
