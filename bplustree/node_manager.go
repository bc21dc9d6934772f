package bplus

import (
	"encoding/binary"
	"fmt"

	"CinderDB/types"
)

// nodeManager is the thin layer between the tree algorithms and the buffer
// pool: it hands out typed node views over pinned frames, allocates fresh
// pages (free list first, then end of file), and owns the superblock.
type nodeManager struct {
	pool   *BufferPool
	pager  Pager
	layout nodeLayout
	sb     superblock
}

// node returns a pinned view of the page. Callers release it when they move
// off the node.
func (m *nodeManager) node(pageNo uint32) (*Node, error) {
	frame, err := m.pool.Fetch(pageNo)
	if err != nil {
		return nil, err
	}
	n, err := decodeNode(frame, m.layout)
	if err != nil {
		m.pool.Unpin(pageNo)
		return nil, err
	}
	return n, nil
}

// newNode allocates a page and returns a pinned, empty, dirty node view.
// Allocation happens before any structural linking, so a failed allocation
// aborts the operation without partial mutation.
func (m *nodeManager) newNode(isLeaf bool) (*Node, error) {
	pageNo, err := m.allocPage()
	if err != nil {
		return nil, err
	}
	frame, err := m.pool.Install(pageNo)
	if err != nil {
		return nil, err
	}
	n := &Node{
		frame:    frame,
		isLeaf:   isLeaf,
		keys:     make([][]byte, m.layout.maxKeys),
		pkeys:    make([]types.PrimaryKey, m.layout.maxKeys),
		children: make([]uint32, m.layout.maxChildren),
	}
	m.writeNode(n)
	return n, nil
}

// writeNode re-encodes the view into its frame and marks the frame dirty.
// The frame is resident for certain because the view holds a pin.
func (m *nodeManager) writeNode(n *Node) {
	encodeNode(n, n.frame.buf, m.layout)
	m.pool.MarkDirty(n.pageNo())
}

// release unpins the node's frame. The view must not be used afterwards.
func (m *nodeManager) release(n *Node) {
	m.pool.Unpin(n.pageNo())
}

// freeNode returns the node's page to the free list and drops its frame.
// Consumes the caller's pin.
func (m *nodeManager) freeNode(n *Node) error {
	pageNo := n.pageNo()
	link := make([]byte, PageSize)
	binary.LittleEndian.PutUint32(link[0:4], m.sb.freeHead)

	m.pool.Unpin(pageNo)
	m.pool.Drop(pageNo)
	if err := m.pager.WritePage(pageNo, link); err != nil {
		return err
	}
	m.sb.freeHead = pageNo
	return m.writeSuperblock()
}

// allocPage pops the free list head, or extends the file when the list is
// empty.
func (m *nodeManager) allocPage() (uint32, error) {
	if m.sb.freeHead == 0 {
		return m.pager.AllocatePage()
	}

	pageNo := m.sb.freeHead
	if pageNo > m.pager.TotalPages() {
		return 0, fmt.Errorf("free list head %d beyond file end %d: %w", pageNo, m.pager.TotalPages(), ErrCorruptPage)
	}
	page, err := m.pager.ReadPage(pageNo)
	if err != nil {
		return 0, err
	}
	m.sb.freeHead = binary.LittleEndian.Uint32(page[0:4])
	if err := m.writeSuperblock(); err != nil {
		return 0, err
	}
	return pageNo, nil
}

// setRoot records a new root page and rewrites the superblock immediately,
// before any flush of the structural change itself.
func (m *nodeManager) setRoot(pageNo uint32) error {
	m.sb.root = pageNo
	return m.writeSuperblock()
}

// writeSuperblock bypasses the pool: the superblock is only ever touched
// here, so caching it buys nothing.
func (m *nodeManager) writeSuperblock() error {
	return m.pager.WritePage(superblockPageNo, encodeSuperblock(&m.sb))
}
