// Package pagefile wraps the mmap'd backing file the engine reads pages from. It
// follows a Map/MMap/flush-region idiom suited to a read-mostly,
// grow-only file: the build pipeline grows and writes it once, scans only ever mmap
// it read-write so the host can still flush INCLUDE/zone-map writes during build.
package pagefile

import (
	"os"

	"golang.org/x/sys/unix"
)

// MMap is the byte-slice view of the memory mapped file.
type MMap []byte

// Map memory-maps `f` read-write starting at `offset` for its current file size.
func Map(f *os.File, offset int64) (MMap, error) {
	stat, statErr := f.Stat()
	if statErr != nil { return nil, statErr }

	size := stat.Size()
	if size == 0 { return MMap{}, nil }

	data, mmapErr := unix.Mmap(int(f.Fd()), offset, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if mmapErr != nil { return nil, mmapErr }

	return MMap(data), nil
}

// Unmap releases the memory mapping.
func (m MMap) Unmap() error {
	if len(m) == 0 { return nil }
	return unix.Munmap([]byte(m))
}

// Flush asynchronously schedules the mapped region for write-back (MS_ASYNC): the
// engine is prototype-grade and not crash-safe, so it does not wait for durability.
func (m MMap) Flush() error {
	if len(m) == 0 { return nil }
	return unix.Msync([]byte(m), unix.MS_ASYNC)
}

// Advise hints the kernel to read the byte range [start, end) ahead of use
// (MADV_WILLNEED). Errors are swallowed: a failed hint costs nothing but the hint.
func (m MMap) Advise(start, end int64) {
	if len(m) == 0 || start >= end { return }
	unix.Madvise([]byte(m[start:end]), unix.MADV_WILLNEED)
}
