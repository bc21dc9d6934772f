package bplus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fillPages allocates n pages through the pager and stamps each with its page
// number in the first byte.
func fillPages(t *testing.T, pager Pager, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		pageNo, err := pager.AllocatePage()
		require.NoError(t, err)
		buf := make([]byte, PageSize)
		buf[0] = byte(pageNo)
		require.NoError(t, pager.WritePage(pageNo, buf))
	}
}

func TestBufferPoolFetchReadsThrough(t *testing.T) {
	pager := NewInMemoryPager()
	fillPages(t, pager, 3)
	pool := NewBufferPool(minPoolSize, pager)

	frame, err := pool.Fetch(2)
	require.NoError(t, err)
	assert.Equal(t, byte(2), frame.buf[0])
	assert.Equal(t, int16(1), frame.pins)
	pool.Unpin(2)

	// Second fetch hits the resident frame.
	again, err := pool.Fetch(2)
	require.NoError(t, err)
	assert.Same(t, frame, again)
	pool.Unpin(2)
	assert.Equal(t, 1, pool.Size())
}

func TestBufferPoolEvictsLRUClean(t *testing.T) {
	pager := NewInMemoryPager()
	fillPages(t, pager, minPoolSize+2)
	pool := NewBufferPool(minPoolSize, pager)

	for pageNo := uint32(1); pageNo <= uint32(minPoolSize+2); pageNo++ {
		_, err := pool.Fetch(pageNo)
		require.NoError(t, err)
		pool.Unpin(pageNo)
	}
	assert.Equal(t, minPoolSize, pool.Size(), "pool must stay at capacity")

	// Pages 1 and 2 were least recently used and clean, so they went.
	pool.mu.Lock()
	_, resident1 := pool.frames[1]
	_, resident2 := pool.frames[2]
	_, residentLast := pool.frames[uint32(minPoolSize+2)]
	pool.mu.Unlock()
	assert.False(t, resident1)
	assert.False(t, resident2)
	assert.True(t, residentLast)
}

func TestBufferPoolFlushesDirtyOnEviction(t *testing.T) {
	pager := NewInMemoryPager()
	fillPages(t, pager, minPoolSize+1)
	pool := NewBufferPool(minPoolSize, pager)

	frame, err := pool.Fetch(1)
	require.NoError(t, err)
	frame.buf[100] = 0xAB
	pool.MarkDirty(1)
	pool.Unpin(1)

	// Fill the pool with dirty frames only, so no clean victim exists and
	// page 1, dirty and LRU, must be evicted.
	for pageNo := uint32(2); pageNo <= uint32(minPoolSize+1); pageNo++ {
		_, err := pool.Fetch(pageNo)
		require.NoError(t, err)
		pool.MarkDirty(pageNo)
		pool.Unpin(pageNo)
	}

	pool.mu.Lock()
	_, resident := pool.frames[1]
	pool.mu.Unlock()
	require.False(t, resident, "page 1 must have been evicted")

	// The eviction wrote the modification back.
	data, err := pager.ReadPage(1)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), data[100])
}

func TestBufferPoolPrefersCleanVictims(t *testing.T) {
	pager := NewInMemoryPager()
	fillPages(t, pager, minPoolSize+1)
	pool := NewBufferPool(minPoolSize, pager)

	// Page 1 is the LRU but dirty; page 2 is clean.
	frame, err := pool.Fetch(1)
	require.NoError(t, err)
	frame.buf[0] = 0xCD
	pool.MarkDirty(1)
	pool.Unpin(1)
	for pageNo := uint32(2); pageNo <= uint32(minPoolSize); pageNo++ {
		_, err := pool.Fetch(pageNo)
		require.NoError(t, err)
		pool.Unpin(pageNo)
	}

	_, err = pool.Fetch(uint32(minPoolSize + 1))
	require.NoError(t, err)
	pool.Unpin(uint32(minPoolSize + 1))

	pool.mu.Lock()
	_, dirtyResident := pool.frames[1]
	_, cleanResident := pool.frames[2]
	pool.mu.Unlock()
	assert.True(t, dirtyResident, "dirty page must be spared while a clean victim exists")
	assert.False(t, cleanResident, "clean LRU page is the victim")
}

func TestBufferPoolPinPreventsEviction(t *testing.T) {
	pager := NewInMemoryPager()
	fillPages(t, pager, minPoolSize+1)
	pool := NewBufferPool(minPoolSize, pager)

	// Pin page 1 and keep it pinned.
	_, err := pool.Fetch(1)
	require.NoError(t, err)

	for pageNo := uint32(2); pageNo <= uint32(minPoolSize+1); pageNo++ {
		_, err := pool.Fetch(pageNo)
		require.NoError(t, err)
		pool.Unpin(pageNo)
	}

	pool.mu.Lock()
	_, resident := pool.frames[1]
	pool.mu.Unlock()
	assert.True(t, resident, "pinned frames are never evicted")
	pool.Unpin(1)
}

func TestBufferPoolAllPinnedFails(t *testing.T) {
	pager := NewInMemoryPager()
	fillPages(t, pager, minPoolSize+1)
	pool := NewBufferPool(minPoolSize, pager)

	for pageNo := uint32(1); pageNo <= uint32(minPoolSize); pageNo++ {
		_, err := pool.Fetch(pageNo)
		require.NoError(t, err)
	}

	_, err := pool.Fetch(uint32(minPoolSize + 1))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvariant)

	for pageNo := uint32(1); pageNo <= uint32(minPoolSize); pageNo++ {
		pool.Unpin(pageNo)
	}
}

func TestBufferPoolFlushAllClearsDirtyBits(t *testing.T) {
	pager := NewInMemoryPager()
	fillPages(t, pager, 3)
	pool := NewBufferPool(minPoolSize, pager)

	for pageNo := uint32(1); pageNo <= 3; pageNo++ {
		frame, err := pool.Fetch(pageNo)
		require.NoError(t, err)
		frame.buf[1] = byte(pageNo)
		pool.MarkDirty(pageNo)
		pool.Unpin(pageNo)
	}

	require.NoError(t, pool.FlushAll())
	for pageNo := uint32(1); pageNo <= 3; pageNo++ {
		data, err := pager.ReadPage(pageNo)
		require.NoError(t, err)
		assert.Equal(t, byte(pageNo), data[1])
		pool.mu.Lock()
		assert.False(t, pool.frames[pageNo].dirty)
		pool.mu.Unlock()
	}
}

func TestBufferPoolFlushAbsentIsNoop(t *testing.T) {
	pager := NewInMemoryPager()
	fillPages(t, pager, 1)
	pool := NewBufferPool(minPoolSize, pager)

	require.NoError(t, pool.Flush(1))
}

func TestBufferPoolInstall(t *testing.T) {
	pager := NewInMemoryPager()
	pool := NewBufferPool(minPoolSize, pager)

	pageNo, err := pager.AllocatePage()
	require.NoError(t, err)
	frame, err := pool.Install(pageNo)
	require.NoError(t, err)
	assert.True(t, frame.dirty, "fresh frames start dirty")
	assert.Equal(t, int16(1), frame.pins)
	pool.Unpin(pageNo)
}
