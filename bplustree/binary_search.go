package bplus

import (
	"CinderDB/types"
)

// compareComposite orders the probe (key, pkey) against entry i of the node:
// user key first, primary key as tie-break.
func (t *BPlusTree) compareComposite(key []byte, pkey types.PrimaryKey, n *Node, i int32) int {
	if c := t.cmp(key, n.keys[i]); c != 0 {
		return c
	}
	switch {
	case pkey < n.pkeys[i]:
		return -1
	case pkey > n.pkeys[i]:
		return 1
	}
	return 0
}

// binarySearch returns the smallest index in [0, size] whose entry is >= the
// probe; size means the probe is greater than every entry in the node.
func (t *BPlusTree) binarySearch(n *Node, key []byte, pkey types.PrimaryKey) int32 {
	l := int32(0)
	r := n.size - 1
	ans := n.size

	for l <= r {
		mid := (l + r) / 2
		if t.compareComposite(key, pkey, n, mid) <= 0 {
			r = mid - 1
			ans = mid
		} else {
			l = mid + 1
		}
	}
	return ans
}
