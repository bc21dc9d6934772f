package types

import "math"

// RowID locates a row inside a heap file. The index engine treats it as an
// opaque 32-bit locator; the heap resolves it. 0 means "no row".
type RowID uint32

// PrimaryKey is the 64-bit identifier that orders duplicate user keys inside
// an index. Every composite key in a tree is (user key, primary key).
type PrimaryKey int64

// Sentinel primary keys for one-sided probes: a probe with PKeyMin sorts
// before every real entry sharing its user key, PKeyMax after.
const (
	PKeyMin PrimaryKey = math.MinInt64
	PKeyMax PrimaryKey = math.MaxInt64
)
