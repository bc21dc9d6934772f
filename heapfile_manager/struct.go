package heapfile

import (
	"os"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"

	"CinderDB/types"
)

const (
	PageSize = types.PageSize

	// The header page holds: magic (4B) | version (u32) | rowSize (u32) |
	// numRows (u32), little-endian.
	headerPageNo  = 1
	headerVersion = 1

	// Row cache sizing: admission counters for ~10x the cached rows, one
	// megabyte of row bytes.
	cacheNumCounters = 100_000
	cacheMaxCost     = 1 << 20
	cacheBufferItems = 64
)

var headerMagic = []byte("CHEP")

// HeapFile is a fixed-size-row store: rows live rowsPerPage to a page, never
// straddling a page boundary, addressed by a dense 1-based RowID. Reads go
// through a ristretto cache keyed by RowID.
type HeapFile struct {
	file        *os.File
	path        string
	rowSize     int32
	rowsPerPage int32
	numRows     uint32
	cache       *ristretto.Cache[uint64, []byte]
	logger      *zap.Logger
	mu          sync.Mutex
}
