package bplus

import (
	"fmt"
)

// Options fix a tree's shape at construction time.
type Options struct {
	// Order is the branching factor B: every node holds between B-1 and
	// 2B-1 entries. Ignored (taken from the superblock) when the file
	// already exists.
	Order int32

	// KeySize is the fixed encoded size of every user key, in bytes.
	KeySize int32

	// Compare orders user keys. Defaults to CompareBytes.
	Compare func(a, b []byte) int

	// PoolSize is the buffer pool frame capacity. Defaults to
	// DefaultPoolSize.
	PoolSize int
}

// Open opens or creates the index file at path and returns the tree handle.
// A fresh file is stamped with the options' order and key size; an existing
// file supplies its own, and non-zero options must agree with them.
func Open(path string, opts Options) (*BPlusTree, error) {
	pager, err := NewOnDiskPager(path)
	if err != nil {
		return nil, err
	}
	t, err := newTree(pager, opts)
	if err != nil {
		pager.Close()
		return nil, err
	}
	return t, nil
}

// NewBPlusTree builds a tree over a caller-supplied pager. Tests use it with
// an in-memory pager.
func NewBPlusTree(pager Pager, opts Options) (*BPlusTree, error) {
	return newTree(pager, opts)
}

func newTree(pager Pager, opts Options) (*BPlusTree, error) {
	if opts.Compare == nil {
		opts.Compare = CompareBytes
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = DefaultPoolSize
	}

	var sb *superblock
	if pager.TotalPages() == 0 {
		if opts.Order < MinOrder {
			return nil, fmt.Errorf("branching factor %d below minimum %d", opts.Order, MinOrder)
		}
		if opts.KeySize <= 0 {
			return nil, fmt.Errorf("key size %d must be positive", opts.KeySize)
		}
		sb = &superblock{order: opts.Order, keySize: opts.KeySize}
		pageNo, err := pager.AllocatePage()
		if err != nil {
			return nil, err
		}
		if pageNo != superblockPageNo {
			return nil, fmt.Errorf("fresh file starts at page %d, want %d: %w", pageNo, superblockPageNo, ErrCorruptPage)
		}
		if err := pager.WritePage(superblockPageNo, encodeSuperblock(sb)); err != nil {
			return nil, err
		}
	} else {
		page, err := pager.ReadPage(superblockPageNo)
		if err != nil {
			return nil, err
		}
		sb, err = decodeSuperblock(page)
		if err != nil {
			return nil, err
		}
		if opts.Order != 0 && opts.Order != sb.order {
			return nil, fmt.Errorf("branching factor %d does not match file's %d", opts.Order, sb.order)
		}
		if opts.KeySize != 0 && opts.KeySize != sb.keySize {
			return nil, fmt.Errorf("key size %d does not match file's %d", opts.KeySize, sb.keySize)
		}
	}

	layout, err := newNodeLayout(sb.order, sb.keySize)
	if err != nil {
		return nil, err
	}

	mgr := &nodeManager{
		pool:   NewBufferPool(opts.PoolSize, pager),
		pager:  pager,
		layout: layout,
		sb:     *sb,
	}
	return &BPlusTree{
		mgr:     mgr,
		order:   sb.order,
		keySize: sb.keySize,
		cmp:     opts.Compare,
	}, nil
}

// FlushAll writes every dirty frame back to the backing file and syncs it.
// Callers wanting durability invoke this and check the error.
func (t *BPlusTree) FlushAll() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushAll()
}

func (t *BPlusTree) flushAll() error {
	if err := t.mgr.pool.FlushAll(); err != nil {
		return err
	}
	return t.mgr.pager.Sync()
}

// Close flushes and releases the tree.
func (t *BPlusTree) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.flushAll(); err != nil {
		t.mgr.pager.Close()
		return err
	}
	return t.mgr.pager.Close()
}

// KeySize returns the fixed encoded key width of this tree.
func (t *BPlusTree) KeySize() int32 { return t.keySize }

// Order returns the branching factor fixed at creation.
func (t *BPlusTree) Order() int32 { return t.order }
