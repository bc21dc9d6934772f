package bplus

import (
	"fmt"

	"CinderDB/types"
)

// Remove deletes the entry with the exact composite key (key, pkey).
// Passing types.PKeyMin as the pkey means "any duplicate": the first entry
// carrying the user key is removed.
//
// Like Insert, the walk is a single root-to-leaf pass: any node on the path
// already at the minimum is repaired (borrow, else merge) before the walk
// descends into it, so the leaf deletion never cascades back up.
func (t *BPlusTree) Remove(key []byte, pkey types.PrimaryKey) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.readOnly {
		return false, fmt.Errorf("tree is read-only: %w", ErrInvariant)
	}
	if err := t.checkKey(key); err != nil {
		return false, err
	}
	// Resolve the sentinel to a concrete pkey first: separators left stale
	// by earlier deletions can route a one-sided probe into the wrong
	// subtree, but the leaf chain always finds the first duplicate.
	if pkey == types.PKeyMin {
		first, ok, err := t.firstWithKey(key)
		if err != nil || !ok {
			return false, err
		}
		pkey = first
	}
	_, found, err := t.removeLocked(key, pkey)
	return found, err
}

// firstWithKey locates the lowest pkey stored under the user key.
func (t *BPlusTree) firstWithKey(key []byte) (types.PrimaryKey, bool, error) {
	leaf, idx, err := t.seekForward(key, types.PKeyMin)
	if err != nil || leaf == nil {
		return 0, false, err
	}
	found := t.cmp(leaf.keys[idx], key) == 0
	pkey := leaf.pkeys[idx]
	t.mgr.release(leaf)
	return pkey, found, nil
}

// RemoveAll deletes every entry equal on user key, walking from the first
// match, and hands each removed row locator to onRow so the heap can free the
// row. Returns true when all found entries came out cleanly.
func (t *BPlusTree) RemoveAll(key []byte, onRow func(row types.RowID)) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.readOnly {
		return false, fmt.Errorf("tree is read-only: %w", ErrInvariant)
	}
	if err := t.checkKey(key); err != nil {
		return false, err
	}

	for {
		pkey, ok, err := t.firstWithKey(key)
		if err != nil {
			return false, err
		}
		if !ok {
			return true, nil
		}

		row, found, err := t.removeLocked(key, pkey)
		if err != nil {
			return false, err
		}
		if !found {
			// The entry was just seen; losing it mid-walk means the
			// structure is inconsistent.
			t.readOnly = true
			return false, fmt.Errorf("entry vanished during removeAll: %w", ErrInvariant)
		}
		if onRow != nil {
			onRow(row)
		}
	}
}

func (t *BPlusTree) removeLocked(key []byte, pkey types.PrimaryKey) (types.RowID, bool, error) {
	if t.root() == 0 {
		return 0, false, nil
	}

	cur, err := t.mgr.node(t.root())
	if err != nil {
		return 0, false, err
	}

	for !cur.isLeaf {
		idx := t.binarySearch(cur, key, pkey)
		child, err := t.mgr.node(cur.children[idx])
		if err != nil {
			t.mgr.release(cur)
			return 0, false, err
		}

		if child.size > t.minKeys() {
			t.mgr.release(cur)
			cur = child
			continue
		}

		// Child sits at the minimum; repair it before going down.
		if idx > 0 {
			left, err := t.mgr.node(cur.children[idx-1])
			if err != nil {
				t.mgr.release(child)
				t.mgr.release(cur)
				return 0, false, err
			}
			if left.size > t.minKeys() {
				t.borrowFromLeftSibling(cur, child, left, idx)
				t.mgr.release(left)
				t.mgr.release(cur)
				cur = child
				continue
			}
			t.mgr.release(left)
		}
		if idx < cur.size {
			right, err := t.mgr.node(cur.children[idx+1])
			if err != nil {
				t.mgr.release(child)
				t.mgr.release(cur)
				return 0, false, err
			}
			if right.size > t.minKeys() {
				t.borrowFromRightSibling(cur, child, right, idx)
				t.mgr.release(right)
				t.mgr.release(cur)
				cur = child
				continue
			}
			t.mgr.release(right)
		}

		if cur, err = t.mergeWithSibling(cur, child, idx); err != nil {
			return 0, false, err
		}
	}

	// Now we are in a leaf node.
	idx := t.binarySearch(cur, key, pkey)
	matched := idx < cur.size && t.compareComposite(key, pkey, cur, idx) == 0
	if !matched {
		t.mgr.release(cur)
		return 0, false, nil
	}
	row, err := t.deleteAtLeaf(cur, idx)
	if err != nil {
		return 0, false, err
	}
	return row, true, nil
}

// deleteAtLeaf removes entry idx, consuming the caller's pin. Removing the
// last entry of a root leaf empties the tree: the page is freed and the
// superblock's root pointer cleared.
func (t *BPlusTree) deleteAtLeaf(leaf *Node, idx int32) (types.RowID, error) {
	row := leaf.row(idx)

	if leaf.pageNo() == t.root() && leaf.size == 1 {
		if err := t.mgr.freeNode(leaf); err != nil {
			return 0, err
		}
		return row, t.mgr.setRoot(0)
	}

	for i := idx; i < leaf.size-1; i++ {
		leaf.keys[i] = leaf.keys[i+1]
		leaf.pkeys[i] = leaf.pkeys[i+1]
		leaf.children[i] = leaf.children[i+1]
	}
	leaf.size--
	t.mgr.writeNode(leaf)
	t.mgr.release(leaf)
	return row, nil
}

// borrowFromLeftSibling rotates one entry from the left sibling through the
// parent separator at idx-1. Leaf case: the sibling's last entry moves to the
// child's front and the sibling's new last is lifted into the parent.
// Internal case: the separator rotates down and the sibling's last separator
// and child pointer rotate up and across.
func (t *BPlusTree) borrowFromLeftSibling(parent, child, left *Node, idx int32) {
	if child.isLeaf {
		for i := child.size - 1; i >= 0; i-- {
			child.keys[i+1] = child.keys[i]
			child.pkeys[i+1] = child.pkeys[i]
			child.children[i+1] = child.children[i]
		}
		child.keys[0] = left.keys[left.size-1]
		child.pkeys[0] = left.pkeys[left.size-1]
		child.children[0] = left.children[left.size-1]
		parent.keys[idx-1] = left.keys[left.size-2]
		parent.pkeys[idx-1] = left.pkeys[left.size-2]
	} else {
		for i := child.size - 1; i >= 0; i-- {
			child.keys[i+1] = child.keys[i]
			child.pkeys[i+1] = child.pkeys[i]
			child.children[i+2] = child.children[i+1]
		}
		child.children[1] = child.children[0]
		child.keys[0] = parent.keys[idx-1]
		child.pkeys[0] = parent.pkeys[idx-1]
		child.children[0] = left.children[left.size]
		parent.keys[idx-1] = left.keys[left.size-1]
		parent.pkeys[idx-1] = left.pkeys[left.size-1]
	}
	left.size--
	child.size++
	t.mgr.writeNode(left)
	t.mgr.writeNode(child)
	t.mgr.writeNode(parent)
}

// borrowFromRightSibling is the mirror image.
func (t *BPlusTree) borrowFromRightSibling(parent, child, right *Node, idx int32) {
	if child.isLeaf {
		parent.keys[idx] = right.keys[0]
		parent.pkeys[idx] = right.pkeys[0]
		child.keys[child.size] = right.keys[0]
		child.pkeys[child.size] = right.pkeys[0]
		child.children[child.size] = right.children[0]
		for i := int32(0); i < right.size-1; i++ {
			right.keys[i] = right.keys[i+1]
			right.pkeys[i] = right.pkeys[i+1]
			right.children[i] = right.children[i+1]
		}
	} else {
		child.keys[child.size] = parent.keys[idx]
		child.pkeys[child.size] = parent.pkeys[idx]
		child.children[child.size+1] = right.children[0]
		parent.keys[idx] = right.keys[0]
		parent.pkeys[idx] = right.pkeys[0]
		for i := int32(0); i < right.size-1; i++ {
			right.keys[i] = right.keys[i+1]
			right.pkeys[i] = right.pkeys[i+1]
			right.children[i] = right.children[i+1]
		}
		right.children[right.size-1] = right.children[right.size]
	}
	child.size++
	right.size--
	t.mgr.writeNode(child)
	t.mgr.writeNode(right)
	t.mgr.writeNode(parent)
}

// mergeWithSibling merges the minimum-sized child with a minimum-sized
// sibling, preferring the left one, and returns the merged node to continue
// the descent from. Consumes the pins on parent and child. An empty parent
// after the merge must be the root; the merged node then becomes the new
// root.
func (t *BPlusTree) mergeWithSibling(parent, child *Node, idx int32) (*Node, error) {
	b := t.order

	if idx > 0 {
		left, err := t.mgr.node(parent.children[idx-1])
		if err != nil {
			t.mgr.release(child)
			t.mgr.release(parent)
			return nil, err
		}
		if left.isLeaf {
			for i := int32(0); i < child.size; i++ {
				left.keys[b-1+i] = child.keys[i]
				left.pkeys[b-1+i] = child.pkeys[i]
				left.children[b-1+i] = child.children[i]
			}
			left.size = 2*b - 2
			if err := t.unlinkFromChain(left, child); err != nil {
				t.mgr.release(left)
				t.mgr.release(child)
				t.mgr.release(parent)
				return nil, err
			}
		} else {
			left.keys[b-1] = parent.keys[idx-1]
			left.pkeys[b-1] = parent.pkeys[idx-1]
			left.children[b] = child.children[0]
			for i := int32(0); i < child.size; i++ {
				left.keys[b+i] = child.keys[i]
				left.pkeys[b+i] = child.pkeys[i]
				left.children[b+i+1] = child.children[i+1]
			}
			left.size = 2*b - 1
		}
		if err := t.dropParentEntry(parent, left, child, idx-1); err != nil {
			t.mgr.release(left)
			return nil, err
		}
		return left, nil
	}

	if idx < parent.size {
		right, err := t.mgr.node(parent.children[idx+1])
		if err != nil {
			t.mgr.release(child)
			t.mgr.release(parent)
			return nil, err
		}
		if child.isLeaf {
			for i := int32(0); i < right.size; i++ {
				child.keys[b-1+i] = right.keys[i]
				child.pkeys[b-1+i] = right.pkeys[i]
				child.children[b-1+i] = right.children[i]
			}
			child.size = 2*b - 2
			if err := t.unlinkFromChain(child, right); err != nil {
				t.mgr.release(right)
				t.mgr.release(child)
				t.mgr.release(parent)
				return nil, err
			}
		} else {
			child.keys[b-1] = parent.keys[idx]
			child.pkeys[b-1] = parent.pkeys[idx]
			child.children[b] = right.children[0]
			for i := int32(0); i < right.size; i++ {
				child.keys[b+i] = right.keys[i]
				child.pkeys[b+i] = right.pkeys[i]
				child.children[b+i+1] = right.children[i+1]
			}
			child.size = 2*b - 1
		}
		if err := t.dropParentEntry(parent, child, right, idx); err != nil {
			t.mgr.release(child)
			return nil, err
		}
		return child, nil
	}

	// A minimum child with no sibling on either side cannot happen in a
	// well-formed tree.
	t.readOnly = true
	t.mgr.release(child)
	t.mgr.release(parent)
	return nil, fmt.Errorf("node %d has no sibling to merge with: %w", child.pageNo(), ErrInvariant)
}

// unlinkFromChain removes gone from the leaf chain, keep taking over its
// right link.
func (t *BPlusTree) unlinkFromChain(keep, gone *Node) error {
	keep.right = gone.right
	if gone.right == 0 {
		return nil
	}
	neighbour, err := t.mgr.node(gone.right)
	if err != nil {
		return err
	}
	neighbour.left = keep.pageNo()
	t.mgr.writeNode(neighbour)
	t.mgr.release(neighbour)
	return nil
}

// dropParentEntry removes separator sepIdx and the merged-away child pointer
// at sepIdx+1 from the parent, frees the absorbed node's page, and collapses
// the root when the parent (necessarily the root) runs empty. Consumes the
// pins on parent and gone; merged stays pinned for the caller.
func (t *BPlusTree) dropParentEntry(parent, merged, gone *Node, sepIdx int32) error {
	for i := sepIdx; i < parent.size-1; i++ {
		parent.keys[i] = parent.keys[i+1]
		parent.pkeys[i] = parent.pkeys[i+1]
		parent.children[i+1] = parent.children[i+2]
	}
	parent.size--
	t.mgr.writeNode(merged)
	t.mgr.writeNode(parent)
	if err := t.mgr.freeNode(gone); err != nil {
		t.mgr.release(parent)
		return err
	}

	if parent.size > 0 {
		t.mgr.release(parent)
		return nil
	}
	if parent.pageNo() != t.root() {
		t.readOnly = true
		t.mgr.release(parent)
		return fmt.Errorf("non-root node %d emptied by merge: %w", parent.pageNo(), ErrInvariant)
	}
	rootNo := merged.pageNo()
	if err := t.mgr.freeNode(parent); err != nil {
		return err
	}
	return t.mgr.setRoot(rootNo)
}
