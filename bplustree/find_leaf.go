package bplus

import (
	"fmt"

	"CinderDB/types"
)

// searchLeaf descends from the root to the leaf covering the composite probe
// and returns the pinned leaf plus the smallest index whose entry is >= the
// probe (== size when the probe is greater than everything in the leaf).
// Returns a nil node on an empty tree.
func (t *BPlusTree) searchLeaf(key []byte, pkey types.PrimaryKey) (*Node, int32, error) {
	if t.root() == 0 {
		return nil, 0, nil
	}

	cur, err := t.mgr.node(t.root())
	if err != nil {
		return nil, 0, err
	}
	for !cur.isLeaf {
		idx := t.binarySearch(cur, key, pkey)
		childNo := cur.children[idx]
		if childNo == 0 || childNo > t.mgr.pager.TotalPages() {
			t.mgr.release(cur)
			return nil, 0, fmt.Errorf("page %d child %d points at page %d: %w", cur.pageNo(), idx, childNo, ErrCorruptPage)
		}
		t.mgr.release(cur)
		if cur, err = t.mgr.node(childNo); err != nil {
			return nil, 0, err
		}
	}
	return cur, t.binarySearch(cur, key, pkey), nil
}

// leftmostLeaf descends first children only. Returns nil on an empty tree.
func (t *BPlusTree) leftmostLeaf() (*Node, error) {
	if t.root() == 0 {
		return nil, nil
	}
	cur, err := t.mgr.node(t.root())
	if err != nil {
		return nil, err
	}
	for !cur.isLeaf {
		childNo := cur.children[0]
		t.mgr.release(cur)
		if cur, err = t.mgr.node(childNo); err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// stepRight moves one position towards larger keys, walking the leaf chain
// across a leaf edge. Returns nil when past the last entry; the input node is
// released when the walk leaves it.
func (t *BPlusTree) stepRight(node *Node, idx int32) (*Node, int32, error) {
	if idx+1 < node.size {
		return node, idx + 1, nil
	}
	rightNo := node.right
	t.mgr.release(node)
	if rightNo == 0 {
		return nil, 0, nil
	}
	right, err := t.mgr.node(rightNo)
	if err != nil {
		return nil, 0, err
	}
	return right, 0, nil
}

// stepLeft is the mirror of stepRight.
func (t *BPlusTree) stepLeft(node *Node, idx int32) (*Node, int32, error) {
	if idx > 0 {
		return node, idx - 1, nil
	}
	leftNo := node.left
	t.mgr.release(node)
	if leftNo == 0 {
		return nil, 0, nil
	}
	left, err := t.mgr.node(leftNo)
	if err != nil {
		return nil, 0, err
	}
	return left, left.size - 1, nil
}

// Search reports whether any entry carries the user key, for any primary key.
func (t *BPlusTree) Search(key []byte) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkKey(key); err != nil {
		return false, err
	}

	leaf, idx, err := t.searchLeaf(key, types.PKeyMin)
	if err != nil || leaf == nil {
		return false, err
	}
	if idx == leaf.size {
		if leaf, idx, err = t.stepRight(leaf, idx-1); err != nil || leaf == nil {
			return false, err
		}
	}
	found := t.cmp(leaf.keys[idx], key) == 0
	t.mgr.release(leaf)
	return found, nil
}

func (t *BPlusTree) checkKey(key []byte) error {
	if int32(len(key)) != t.keySize {
		return fmt.Errorf("key is %d bytes, tree expects %d", len(key), t.keySize)
	}
	return nil
}
