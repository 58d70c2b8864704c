package pagefile

import (
	"errors"
	"os"
	"sync"
	"sync/atomic"

	"github.com/sirgallo/ordinex/internal/page"
)


//============================================= Page File


// Growth policy: 64MB initial allocation, doubling per resize, with the growth step
// capped at 1GB so a huge build stops doubling once the map is already large.
const (
	initialGrowBytes = 64 * 1024 * 1024
	maxGrowBytes     = 1 * 1024 * 1024 * 1024
)

// File is the mmap'd backing store for one ordinex index file.
type File struct {
	file *os.File

	data atomic.Value // MMap

	signalFlushChan chan bool
	rwResizeLock    sync.RWMutex

	nextBlock uint32
}

// Open opens (creating if absent) the backing file and maps it into memory. If the
// file is empty, it is grown to the initial size before being mapped.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil { return nil, err }

	pf := &File{
		file:            f,
		signalFlushChan: make(chan bool, 1),
	}

	pf.data.Store(MMap{})

	stat, statErr := f.Stat()
	if statErr != nil { return nil, statErr }

	if stat.Size() == 0 {
		if _, err := pf.grow(); err != nil { return nil, err }
	} else {
		m, err := Map(f, 0)
		if err != nil { return nil, err }
		pf.data.Store(m)
		pf.nextBlock = uint32(len(m) / page.Size)
	}

	go pf.handleFlush()

	return pf, nil
}

// Close flushes and unmaps the file.
func (pf *File) Close() error {
	if err := pf.file.Sync(); err != nil { return err }

	m := pf.data.Load().(MMap)
	if err := m.Unmap(); err != nil { return err }

	return pf.file.Close()
}

// BlockCount returns the number of blocks currently allocated (written or not).
func (pf *File) BlockCount() uint32 { return pf.nextBlock }

// Page returns the raw PageSize-byte slice for `block`, a view directly into the mmap.
// Holding this slice across a blocking operation without the scan's pin discipline is
// a bug; callers follow the scan engine's pin/unpin convention.
func (pf *File) Page(block uint32) ([]byte, error) {
	pf.rwResizeLock.RLock()
	defer pf.rwResizeLock.RUnlock()

	m := pf.data.Load().(MMap)
	start := int64(block) * page.Size
	end := start + page.Size

	if end > int64(len(m)) {
		return nil, errors.New("ordinex: corrupt page: block out of range")
	}

	return []byte(m[start:end]), nil
}

// AllocatePage reserves and zero-initializes the next block, growing the file if needed.
// Only the build pipeline calls this: the engine is read-only once built.
func (pf *File) AllocatePage() (uint32, []byte, error) {
	block := pf.nextBlock
	needed := int64(block+1) * page.Size

	for {
		m := pf.data.Load().(MMap)
		if needed <= int64(len(m)) { break }

		if _, err := pf.grow(); err != nil { return 0, nil, err }
	}

	pf.nextBlock++

	raw, err := pf.Page(block)
	if err != nil { return 0, nil, err }

	for i := range raw { raw[i] = 0 }

	return block, raw, nil
}

// Prefetch hints the OS to read ahead `depth` blocks past `block`. The build pipeline
// allocates leaves in chain order, so the physical successors of a leaf are its sibling
// chain in the common case; when they are not, the hint is wasted but never wrong.
func (pf *File) Prefetch(block uint32, depth int) {
	if depth <= 0 { return }

	pf.rwResizeLock.RLock()
	defer pf.rwResizeLock.RUnlock()

	m := pf.data.Load().(MMap)
	start := int64(block+1) * page.Size
	end := start + int64(depth)*page.Size

	if start >= int64(len(m)) { return }
	if end > int64(len(m)) { end = int64(len(m)) }

	m.Advise(start, end)
}

// SignalFlush requests an asynchronous flush of the backing file without blocking the
// caller if one is already pending; the build pipeline signals it once after the
// metapage commit.
func (pf *File) SignalFlush() {
	select {
		case pf.signalFlushChan <- true:
		default:
	}
}

func (pf *File) handleFlush() {
	for range pf.signalFlushChan {
		pf.rwResizeLock.RLock()
		m := pf.data.Load().(MMap)
		m.Flush()
		pf.file.Sync()
		pf.rwResizeLock.RUnlock()
	}
}

// grow doubles the backing file (64MB initial, growth step capped at maxGrowBytes).
func (pf *File) grow() (bool, error) {
	pf.rwResizeLock.Lock()
	defer pf.rwResizeLock.Unlock()

	m := pf.data.Load().(MMap)

	var newSize int64
	switch {
		case len(m) == 0:
			newSize = initialGrowBytes
		case len(m) >= maxGrowBytes:
			newSize = int64(len(m)) + maxGrowBytes
		default:
			newSize = int64(len(m)) * 2
	}

	if len(m) > 0 {
		if err := pf.file.Sync(); err != nil { return false, err }
		if err := m.Unmap(); err != nil { return false, err }
		pf.data.Store(MMap{})
	}

	if err := pf.file.Truncate(newSize); err != nil { return false, err }

	newMap, err := Map(pf.file, 0)
	if err != nil { return false, err }

	pf.data.Store(newMap)
	return true, nil
}
