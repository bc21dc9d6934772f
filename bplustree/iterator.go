package bplus

import (
	"fmt"

	"CinderDB/types"
)

// RangeScan emits row locators for every entry inside the bound, through the
// leaf chain. GE/GT/EQ scans run ascending, LE/LT descending. The callback
// may stop the scan early by returning false.
//
// Each bound is a sentinel probe plus a one-step adjustment:
//
//	>= k  probe (k, -inf), step right off a leaf end, walk right
//	>  k  probe (k, +inf), step right off a leaf end, walk right
//	<= k  probe (k, +inf), step left by one otherwise, walk left
//	<  k  probe (k, -inf), step left by one otherwise, walk left
func (t *BPlusTree) RangeScan(bound Bound, onRow RowCallback) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkKey(bound.Key); err != nil {
		return err
	}

	switch bound.Op {
	case GE:
		node, idx, err := t.seekForward(bound.Key, types.PKeyMin)
		if err != nil || node == nil {
			return err
		}
		return t.iterateRightLeaf(node, idx, onRow)
	case GT:
		node, idx, err := t.seekForward(bound.Key, types.PKeyMax)
		if err != nil || node == nil {
			return err
		}
		return t.iterateRightLeaf(node, idx, onRow)
	case LE:
		node, idx, err := t.seekBackward(bound.Key, types.PKeyMax)
		if err != nil || node == nil {
			return err
		}
		return t.iterateLeftLeaf(node, idx, onRow)
	case LT:
		node, idx, err := t.seekBackward(bound.Key, types.PKeyMin)
		if err != nil || node == nil {
			return err
		}
		return t.iterateLeftLeaf(node, idx, onRow)
	case EQ:
		node, idx, err := t.seekForward(bound.Key, types.PKeyMin)
		if err != nil || node == nil {
			return err
		}
		return t.iterateEqualRun(node, idx, bound.Key, onRow)
	}
	return fmt.Errorf("unknown bound op %d", bound.Op)
}

// Traverse emits every row in ascending composite-key order by walking the
// leaf chain from the leftmost leaf.
func (t *BPlusTree) Traverse(onRow RowCallback) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	leaf, err := t.leftmostLeaf()
	if err != nil || leaf == nil {
		return err
	}
	return t.iterateRightLeaf(leaf, 0, onRow)
}

// TraverseAllWithKey emits the rows of every entry equal on user key, in
// pkey order.
func (t *BPlusTree) TraverseAllWithKey(key []byte, onRow func(row types.RowID)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkKey(key); err != nil {
		return err
	}
	node, idx, err := t.seekForward(key, types.PKeyMin)
	if err != nil || node == nil {
		return err
	}
	return t.iterateEqualRun(node, idx, key, func(row types.RowID) bool {
		onRow(row)
		return true
	})
}

// seekForward positions at the first entry >= (key, pkey), hopping to the
// right sibling when the probe lands past a leaf's end. Returns nil when no
// such entry exists.
func (t *BPlusTree) seekForward(key []byte, pkey types.PrimaryKey) (*Node, int32, error) {
	leaf, idx, err := t.searchLeaf(key, pkey)
	if err != nil || leaf == nil {
		return nil, 0, err
	}
	if idx == leaf.size {
		return t.stepRight(leaf, idx-1)
	}
	return leaf, idx, nil
}

// seekBackward positions at the last entry < (key, pkey): the probe lands on
// the first entry >= it, so anything short of the leaf end steps left by
// one, possibly across the leaf edge. Returns nil when no such entry exists.
func (t *BPlusTree) seekBackward(key []byte, pkey types.PrimaryKey) (*Node, int32, error) {
	leaf, idx, err := t.searchLeaf(key, pkey)
	if err != nil || leaf == nil {
		return nil, 0, err
	}
	if idx == leaf.size {
		return leaf, idx - 1, nil
	}
	return t.stepLeft(leaf, idx)
}

// iterateRightLeaf emits rows from (node, startIdx) rightwards to the end of
// the chain. Consumes the pin on node.
func (t *BPlusTree) iterateRightLeaf(node *Node, startIdx int32, onRow RowCallback) error {
	for {
		for i := startIdx; i < node.size; i++ {
			if !onRow(node.row(i)) {
				t.mgr.release(node)
				return nil
			}
		}
		rightNo := node.right
		t.mgr.release(node)
		if rightNo == 0 {
			return nil
		}
		var err error
		if node, err = t.mgr.node(rightNo); err != nil {
			return err
		}
		startIdx = 0
	}
}

// iterateLeftLeaf is the descending mirror.
func (t *BPlusTree) iterateLeftLeaf(node *Node, startIdx int32, onRow RowCallback) error {
	for {
		for i := startIdx; i >= 0; i-- {
			if !onRow(node.row(i)) {
				t.mgr.release(node)
				return nil
			}
		}
		leftNo := node.left
		t.mgr.release(node)
		if leftNo == 0 {
			return nil
		}
		var err error
		if node, err = t.mgr.node(leftNo); err != nil {
			return err
		}
		startIdx = node.size - 1
	}
}

// iterateEqualRun emits rows while the user-key component stays equal to key,
// walking right siblings as needed. Consumes the pin on node.
func (t *BPlusTree) iterateEqualRun(node *Node, idx int32, key []byte, onRow RowCallback) error {
	for node != nil {
		if t.cmp(node.keys[idx], key) != 0 {
			t.mgr.release(node)
			return nil
		}
		if !onRow(node.row(idx)) {
			t.mgr.release(node)
			return nil
		}
		var err error
		if node, idx, err = t.stepRight(node, idx); err != nil {
			return err
		}
	}
	return nil
}
