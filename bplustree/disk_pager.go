package bplus

import (
	"fmt"
	"os"
	"sync"

	"CinderDB/internal/sys"
)

// OnDiskPager implements the Pager interface for disk-based storage.
// Page n lives at file offset (n-1)*PageSize.
type OnDiskPager struct {
	file     *os.File
	filePath string
	pageSize int
	numPages uint32
	mu       sync.RWMutex
}

// NewOnDiskPager opens or creates a backing file for index storage.
func NewOnDiskPager(indexPath string) (*OnDiskPager, error) {
	file, err := os.OpenFile(indexPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open index file %s: %w", indexPath, ErrIO)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat index file: %w", ErrIO)
	}

	pager := &OnDiskPager{
		file:     file,
		filePath: indexPath,
		pageSize: PageSize,
		numPages: uint32(stat.Size() / PageSize),
	}

	return pager, nil
}

// ReadPage reads one page from disk.
func (p *OnDiskPager) ReadPage(pageNo uint32) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.file == nil {
		return nil, fmt.Errorf("pager is closed: %w", ErrIO)
	}
	if pageNo == 0 || pageNo > p.numPages {
		return nil, fmt.Errorf("page %d out of range (file has %d pages): %w", pageNo, p.numPages, ErrIO)
	}

	page := make([]byte, p.pageSize)
	offset := int64(pageNo-1) * int64(p.pageSize)
	if _, err := p.file.ReadAt(page, offset); err != nil {
		return nil, fmt.Errorf("read page %d: %v: %w", pageNo, err, ErrIO)
	}
	return page, nil
}

// WritePage writes one page to its file offset.
func (p *OnDiskPager) WritePage(pageNo uint32, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.file == nil {
		return fmt.Errorf("pager is closed: %w", ErrIO)
	}
	if len(data) != p.pageSize {
		return fmt.Errorf("data size %d does not match page size %d: %w", len(data), p.pageSize, ErrIO)
	}
	if pageNo == 0 || pageNo > p.numPages {
		return fmt.Errorf("page %d out of range (file has %d pages): %w", pageNo, p.numPages, ErrIO)
	}

	offset := int64(pageNo-1) * int64(p.pageSize)
	if _, err := p.file.WriteAt(data, offset); err != nil {
		return fmt.Errorf("write page %d: %v: %w", pageNo, err, ErrIO)
	}
	return nil
}

// AllocatePage extends the file by one zeroed page and returns its number.
func (p *OnDiskPager) AllocatePage() (uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.file == nil {
		return 0, fmt.Errorf("pager is closed: %w", ErrIO)
	}

	pageNo := p.numPages + 1
	empty := make([]byte, p.pageSize)
	offset := int64(pageNo-1) * int64(p.pageSize)
	if _, err := p.file.WriteAt(empty, offset); err != nil {
		return 0, fmt.Errorf("allocate page %d: %v: %w", pageNo, err, ErrIO)
	}
	p.numPages = pageNo
	return pageNo, nil
}

func (p *OnDiskPager) TotalPages() uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.numPages
}

// Sync flushes file data to stable storage.
func (p *OnDiskPager) Sync() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.file == nil {
		return fmt.Errorf("pager is closed: %w", ErrIO)
	}
	if err := sys.DataSync(p.file); err != nil {
		return fmt.Errorf("sync index file: %v: %w", err, ErrIO)
	}
	return nil
}

// Close syncs and closes the backing file.
func (p *OnDiskPager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.file == nil {
		return nil // already closed
	}

	if err := sys.DataSync(p.file); err != nil {
		p.file.Close()
		p.file = nil
		return fmt.Errorf("sync before close: %v: %w", err, ErrIO)
	}
	err := p.file.Close()
	p.file = nil
	return err
}
