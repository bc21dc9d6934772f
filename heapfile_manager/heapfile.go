package heapfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"

	"CinderDB/internal/sys"
	"CinderDB/types"
)

// Open opens or creates a heap file for rows of the given fixed size.
func Open(path string, rowSize int32, logger *zap.Logger) (*HeapFile, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rowSize <= 0 || rowSize > PageSize {
		return nil, fmt.Errorf("row size %d outside (0,%d]", rowSize, PageSize)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open heap file %s: %w", path, err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat heap file: %w", err)
	}

	hf := &HeapFile{
		file:        file,
		path:        path,
		rowSize:     rowSize,
		rowsPerPage: PageSize / rowSize,
		logger:      logger,
	}

	if stat.Size() == 0 {
		if err := hf.writeHeader(); err != nil {
			file.Close()
			return nil, err
		}
	} else {
		if err := hf.readHeader(); err != nil {
			file.Close()
			return nil, err
		}
	}

	hf.cache, err = ristretto.NewCache(&ristretto.Config[uint64, []byte]{
		NumCounters: cacheNumCounters,
		MaxCost:     cacheMaxCost,
		BufferItems: cacheBufferItems,
	})
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("create row cache: %w", err)
	}

	logger.Info("heap file opened",
		zap.String("path", path),
		zap.Int32("rowSize", rowSize),
		zap.Uint32("numRows", hf.numRows))
	return hf, nil
}

// Insert appends a row and returns its locator.
func (hf *HeapFile) Insert(data []byte) (types.RowID, error) {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	if int32(len(data)) != hf.rowSize {
		return 0, fmt.Errorf("row is %d bytes, heap expects %d", len(data), hf.rowSize)
	}

	rowID := types.RowID(hf.numRows + 1)
	if _, err := hf.file.WriteAt(data, hf.rowOffset(rowID)); err != nil {
		return 0, fmt.Errorf("write row %d: %w", rowID, err)
	}
	hf.numRows++
	if err := hf.writeHeader(); err != nil {
		return 0, err
	}
	return rowID, nil
}

// Fetch resolves a row locator, serving from the cache when it can.
func (hf *HeapFile) Fetch(rowID types.RowID) ([]byte, error) {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	if rowID == 0 || uint32(rowID) > hf.numRows {
		return nil, fmt.Errorf("row %d out of range (heap has %d rows)", rowID, hf.numRows)
	}

	if cached, ok := hf.cache.Get(uint64(rowID)); ok {
		out := make([]byte, hf.rowSize)
		copy(out, cached)
		return out, nil
	}

	row := make([]byte, hf.rowSize)
	if _, err := hf.file.ReadAt(row, hf.rowOffset(rowID)); err != nil {
		return nil, fmt.Errorf("read row %d: %w", rowID, err)
	}
	hf.cache.Set(uint64(rowID), append([]byte(nil), row...), int64(hf.rowSize))
	return row, nil
}

// Free zeroes a row's slot and invalidates its cache entry. Slots are not
// reused; the locator simply stops resolving to live data.
func (hf *HeapFile) Free(rowID types.RowID) error {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	if rowID == 0 || uint32(rowID) > hf.numRows {
		return fmt.Errorf("row %d out of range (heap has %d rows)", rowID, hf.numRows)
	}
	zero := make([]byte, hf.rowSize)
	if _, err := hf.file.WriteAt(zero, hf.rowOffset(rowID)); err != nil {
		return fmt.Errorf("free row %d: %w", rowID, err)
	}
	// Settle any buffered admission for this key before invalidating it.
	hf.cache.Wait()
	hf.cache.Del(uint64(rowID))
	hf.logger.Debug("row freed", zap.Uint32("row", uint32(rowID)))
	return nil
}

// NumRows returns the number of rows ever inserted.
func (hf *HeapFile) NumRows() uint32 {
	hf.mu.Lock()
	defer hf.mu.Unlock()
	return hf.numRows
}

// Sync flushes file data to stable storage.
func (hf *HeapFile) Sync() error {
	hf.mu.Lock()
	defer hf.mu.Unlock()
	if err := sys.DataSync(hf.file); err != nil {
		return fmt.Errorf("sync heap file: %w", err)
	}
	return nil
}

// Close syncs and releases the file and the row cache.
func (hf *HeapFile) Close() error {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	if hf.file == nil {
		return nil
	}
	hf.cache.Close()
	if err := sys.DataSync(hf.file); err != nil {
		hf.file.Close()
		hf.file = nil
		return fmt.Errorf("sync before close: %w", err)
	}
	err := hf.file.Close()
	hf.file = nil
	hf.logger.Info("heap file closed", zap.String("path", hf.path))
	return err
}

// rowOffset maps a locator to its file offset. The header occupies page 1;
// rows never straddle a page boundary.
func (hf *HeapFile) rowOffset(rowID types.RowID) int64 {
	idx := int64(rowID) - 1
	page := idx / int64(hf.rowsPerPage)
	slot := idx % int64(hf.rowsPerPage)
	return PageSize + page*PageSize + slot*int64(hf.rowSize)
}

func (hf *HeapFile) writeHeader() error {
	page := make([]byte, PageSize)
	copy(page[0:4], headerMagic)
	binary.LittleEndian.PutUint32(page[4:], headerVersion)
	binary.LittleEndian.PutUint32(page[8:], uint32(hf.rowSize))
	binary.LittleEndian.PutUint32(page[12:], hf.numRows)
	if _, err := hf.file.WriteAt(page, 0); err != nil {
		return fmt.Errorf("write heap header: %w", err)
	}
	return nil
}

func (hf *HeapFile) readHeader() error {
	page := make([]byte, PageSize)
	if _, err := hf.file.ReadAt(page, 0); err != nil {
		return fmt.Errorf("read heap header: %w", err)
	}
	if !bytes.Equal(page[0:4], headerMagic) {
		return fmt.Errorf("heap header magic mismatch: %q", page[0:4])
	}
	if v := binary.LittleEndian.Uint32(page[4:]); v != headerVersion {
		return fmt.Errorf("heap header version %d unsupported", v)
	}
	if rs := int32(binary.LittleEndian.Uint32(page[8:])); rs != hf.rowSize {
		return fmt.Errorf("heap row size %d does not match file's %d", hf.rowSize, rs)
	}
	hf.numRows = binary.LittleEndian.Uint32(page[12:])
	return nil
}
