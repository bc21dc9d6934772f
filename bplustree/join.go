package bplus

import (
	"fmt"

	"CinderDB/types"
)

// leafCursor walks a tree's leaf chain left to right.
type leafCursor struct {
	tree *BPlusTree
	node *Node
	idx  int32
}

func (c *leafCursor) valid() bool { return c.node != nil }

func (c *leafCursor) key() []byte { return c.node.keys[c.idx] }

func (c *leafCursor) row() types.RowID { return c.node.row(c.idx) }

func (c *leafCursor) advance() error {
	var err error
	c.node, c.idx, err = c.tree.stepRight(c.node, c.idx)
	return err
}

func (c *leafCursor) close() {
	if c.node != nil {
		c.tree.mgr.release(c.node)
		c.node = nil
	}
}

// NaturalJoin walks both trees' leaf chains in lockstep: the side with the
// smaller current user key advances; equal user keys emit the cross-product
// of the two equal-key runs. Both sides are consumed strictly left to right,
// no random access. The trees must index the same key type.
func (t *BPlusTree) NaturalJoin(other *BPlusTree, onPair func(left, right types.RowID)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if other != t {
		other.mu.Lock()
		defer other.mu.Unlock()
	}

	if t.keySize != other.keySize {
		return fmt.Errorf("cannot join key size %d with %d", t.keySize, other.keySize)
	}

	leftLeaf, err := t.leftmostLeaf()
	if err != nil {
		return err
	}
	rightLeaf, err := other.leftmostLeaf()
	if err != nil {
		if leftLeaf != nil {
			t.mgr.release(leftLeaf)
		}
		return err
	}

	lc := &leafCursor{tree: t, node: leftLeaf}
	rc := &leafCursor{tree: other, node: rightLeaf}
	defer lc.close()
	defer rc.close()

	for lc.valid() && rc.valid() {
		c := t.cmp(lc.key(), rc.key())
		if c < 0 {
			if err := lc.advance(); err != nil {
				return err
			}
			continue
		}
		if c > 0 {
			if err := rc.advance(); err != nil {
				return err
			}
			continue
		}

		// Equal user keys: gather the left run, then stream the right
		// run against it.
		key := cloneKey(lc.key())
		var leftRows []types.RowID
		for lc.valid() && t.cmp(lc.key(), key) == 0 {
			leftRows = append(leftRows, lc.row())
			if err := lc.advance(); err != nil {
				return err
			}
		}
		for rc.valid() && t.cmp(rc.key(), key) == 0 {
			rightRow := rc.row()
			for _, leftRow := range leftRows {
				onPair(leftRow, rightRow)
			}
			if err := rc.advance(); err != nil {
				return err
			}
		}
	}
	return nil
}
