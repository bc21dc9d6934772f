package bplus

import (
	"encoding/binary"
	"fmt"

	"CinderDB/types"
)

// nodeLayout fixes the byte offsets of every node page:
//
//	isLeaf:u8 | pad[3] | size:i32 | leftSibling:u32 | rightSibling:u32 |
//	keys[(2B-1) x keySize] | pkeys[(2B-1) x 8] | children[2B x 4]
//
// Unused slots carry zero. The offsets depend only on the superblock's order
// and key size, so the layout is stable across runs.
type nodeLayout struct {
	order       int32
	keySize     int32
	maxKeys     int32 // 2B-1
	maxChildren int32 // 2B
	keysOff     int32
	pkeysOff    int32
	childOff    int32
	end         int32
}

const nodeHeaderSize = 16

func newNodeLayout(order, keySize int32) (nodeLayout, error) {
	l := nodeLayout{
		order:       order,
		keySize:     keySize,
		maxKeys:     2*order - 1,
		maxChildren: 2 * order,
	}
	l.keysOff = nodeHeaderSize
	l.pkeysOff = l.keysOff + l.maxKeys*keySize
	l.childOff = l.pkeysOff + l.maxKeys*8
	l.end = l.childOff + l.maxChildren*4
	if l.end > PageSize {
		return l, fmt.Errorf("node layout needs %d bytes for order=%d keySize=%d, page is %d: %w",
			l.end, order, keySize, PageSize, ErrCorruptPage)
	}
	return l, nil
}

// encodeNode serializes the node view into its page buffer. The buffer is
// zeroed first so vacated slots never leak stale entries to disk.
func encodeNode(node *Node, buf []byte, l nodeLayout) {
	for i := range buf {
		buf[i] = 0
	}

	if node.isLeaf {
		buf[0] = 1
	}
	binary.LittleEndian.PutUint32(buf[4:], uint32(node.size))
	binary.LittleEndian.PutUint32(buf[8:], node.left)
	binary.LittleEndian.PutUint32(buf[12:], node.right)

	for i := int32(0); i < node.size; i++ {
		copy(buf[l.keysOff+i*l.keySize:], node.keys[i])
		binary.LittleEndian.PutUint64(buf[l.pkeysOff+i*8:], uint64(node.pkeys[i]))
	}

	// Leaves carry one row locator per entry; internals carry size+1
	// child page numbers.
	nchild := node.size
	if !node.isLeaf {
		nchild = node.size + 1
	}
	for i := int32(0); i < nchild; i++ {
		binary.LittleEndian.PutUint32(buf[l.childOff+i*4:], node.children[i])
	}
}

// decodeNode builds a node view from a page buffer.
func decodeNode(frame *Page, l nodeLayout) (*Node, error) {
	buf := frame.buf
	if len(buf) != PageSize {
		return nil, fmt.Errorf("page %d size mismatch: expected %d, got %d: %w", frame.pageNo, PageSize, len(buf), ErrCorruptPage)
	}
	if buf[0] > 1 {
		return nil, fmt.Errorf("page %d leaf flag implausible (%d): %w", frame.pageNo, buf[0], ErrCorruptPage)
	}

	node := &Node{
		frame:    frame,
		isLeaf:   buf[0] == 1,
		size:     int32(binary.LittleEndian.Uint32(buf[4:])),
		left:     binary.LittleEndian.Uint32(buf[8:]),
		right:    binary.LittleEndian.Uint32(buf[12:]),
		keys:     make([][]byte, l.maxKeys),
		pkeys:    make([]types.PrimaryKey, l.maxKeys),
		children: make([]uint32, l.maxChildren),
	}
	if node.size < 0 || node.size > l.maxKeys {
		return nil, fmt.Errorf("page %d node size %d outside [0,%d]: %w", frame.pageNo, node.size, l.maxKeys, ErrCorruptPage)
	}

	for i := int32(0); i < node.size; i++ {
		key := make([]byte, l.keySize)
		copy(key, buf[l.keysOff+i*l.keySize:])
		node.keys[i] = key
		node.pkeys[i] = types.PrimaryKey(binary.LittleEndian.Uint64(buf[l.pkeysOff+i*8:]))
	}

	nchild := node.size
	if !node.isLeaf {
		nchild = node.size + 1
	}
	for i := int32(0); i < nchild; i++ {
		node.children[i] = binary.LittleEndian.Uint32(buf[l.childOff+i*4:])
	}
	return node, nil
}
