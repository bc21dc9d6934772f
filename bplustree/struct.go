// Structure of the index file
/*
Tree
 ├── Superblock (page 1: magic, order, key size, root, free list)
 ├── Internal Node (separator keys + child page numbers)
 │      └── Child Internal Nodes ...
 │             └── Leaf Nodes (keys + row locators + sibling links)

- every composite key is (user key, primary key); duplicates order by pkey
- internal nodes: children count == size+1
- leaf nodes: the child slot array carries row locators, one per entry
- leaves form a doubly linked list in ascending composite-key order
- all leaf nodes at same depth
*/
package bplus

import (
	"errors"
	"sync"

	"CinderDB/types"
)

const (
	PageSize = types.PageSize // in bytes (4KB)

	// MinOrder is the smallest usable branching factor: order 2 gives
	// nodes of 1..3 entries.
	MinOrder = 2

	// DefaultPoolSize is the buffer pool capacity used when the caller
	// does not choose one.
	DefaultPoolSize = 64

	// minPoolSize is the floor on pool capacity: a split touches a parent,
	// a child, a new sibling and a chain neighbour at once, all pinned.
	minPoolSize = 8
)

// Error kinds surfaced by the engine. "Not found" is a bool result, never an
// error.
var (
	// ErrIO wraps a failed read, write or truncate on the backing file.
	ErrIO = errors.New("index io failure")

	// ErrCorruptPage marks a magic mismatch, an implausible node size or
	// an out-of-range page pointer.
	ErrCorruptPage = errors.New("corrupt index page")

	// ErrInvariant marks an impossible structural state caught by a
	// defensive check; the tree is read-only until reopened.
	ErrInvariant = errors.New("index invariant violated")
)

// Node is a typed view over one page. Leaves keep a row locator per entry in
// the child slot array; internals keep size+1 child page numbers.
type Node struct {
	frame  *Page
	isLeaf bool
	size   int32
	left   uint32 // left sibling page, 0 = none
	right  uint32 // right sibling page, 0 = none

	keys     [][]byte
	pkeys    []types.PrimaryKey
	children []uint32
}

func (n *Node) pageNo() uint32 { return n.frame.pageNo }

// row returns the locator stored for leaf entry i.
func (n *Node) row(i int32) types.RowID { return types.RowID(n.children[i]) }

func (n *Node) setRow(i int32, row types.RowID) { n.children[i] = uint32(row) }

// BPlusTree is the client-facing handle: a branching factor fixed at
// creation, a comparator over opaque fixed-length keys, and a node manager
// owning the buffer pool and backing file.
type BPlusTree struct {
	mgr      *nodeManager
	order    int32 // branching factor B
	keySize  int32
	cmp      func(a, b []byte) int // comparison function for user keys
	readOnly bool                  // set after an invariant violation
	mu       sync.Mutex
}

func (t *BPlusTree) maxKeys() int32 { return 2*t.order - 1 }
func (t *BPlusTree) minKeys() int32 { return t.order - 1 }

func (t *BPlusTree) root() uint32 { return t.mgr.sb.root }

// RowCallback consumes one row locator per entry in scan order; returning
// false stops the scan early.
type RowCallback func(row types.RowID) bool

type BoundOp int

const (
	GE BoundOp = iota // >= key
	GT                // >  key
	LE                // <= key
	LT                // <  key
	EQ                // == key
)

// Bound selects a range-scan entry point relative to a user key.
type Bound struct {
	Op  BoundOp
	Key []byte
}
