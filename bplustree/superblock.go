package bplus

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// The superblock occupies page 1 of every index file and fixes the tree-wide
// parameters every other page's layout is derived from.
//
// Format (little-endian):
//   - magic (4 bytes) "CIDX"
//   - version (u32)
//   - branching factor (i32)
//   - key size in bytes (i32)
//   - root page number (u32, 0 = empty tree)
//   - free list head (u32, 0 = none)
const (
	superblockPageNo  = 1
	superblockVersion = 1
)

var superblockMagic = []byte("CIDX")

type superblock struct {
	order    int32
	keySize  int32
	root     uint32
	freeHead uint32
}

func encodeSuperblock(sb *superblock) []byte {
	page := make([]byte, PageSize)
	copy(page[0:4], superblockMagic)
	binary.LittleEndian.PutUint32(page[4:], superblockVersion)
	binary.LittleEndian.PutUint32(page[8:], uint32(sb.order))
	binary.LittleEndian.PutUint32(page[12:], uint32(sb.keySize))
	binary.LittleEndian.PutUint32(page[16:], sb.root)
	binary.LittleEndian.PutUint32(page[20:], sb.freeHead)
	return page
}

func decodeSuperblock(page []byte) (*superblock, error) {
	if len(page) != PageSize {
		return nil, fmt.Errorf("superblock size mismatch: expected %d, got %d: %w", PageSize, len(page), ErrCorruptPage)
	}
	if !bytes.Equal(page[0:4], superblockMagic) {
		return nil, fmt.Errorf("superblock magic mismatch: %q: %w", page[0:4], ErrCorruptPage)
	}
	if v := binary.LittleEndian.Uint32(page[4:]); v != superblockVersion {
		return nil, fmt.Errorf("superblock version %d unsupported: %w", v, ErrCorruptPage)
	}

	sb := &superblock{
		order:    int32(binary.LittleEndian.Uint32(page[8:])),
		keySize:  int32(binary.LittleEndian.Uint32(page[12:])),
		root:     binary.LittleEndian.Uint32(page[16:]),
		freeHead: binary.LittleEndian.Uint32(page[20:]),
	}
	if sb.order < MinOrder || sb.keySize <= 0 {
		return nil, fmt.Errorf("superblock parameters implausible (order=%d keySize=%d): %w", sb.order, sb.keySize, ErrCorruptPage)
	}
	return sb, nil
}
