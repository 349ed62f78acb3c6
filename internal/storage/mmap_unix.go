//go:build linux || darwin

package storage

import (
	"fmt"
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/alexhholmes/treeidx/internal/base"
)

// mmapGrowth is the granularity the mapping and file grow by.
const mmapGrowth = 1024 * base.PageSize

// MMap implements Store using memory-mapped I/O
type MMap struct {
	file     *os.File
	mmapData []byte
	mmapSize int64

	// Stats counters
	reads   atomic.Uint64
	writes  atomic.Uint64
	read    atomic.Uint64
	written atomic.Uint64
	syncs   atomic.Uint64
}

// NewMMap opens an existing index file and maps it. An empty file is grown
// to one growth chunk first.
func NewMMap(path string) (*MMap, error) {
	file, err := openLocked(path, os.OpenFile)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		_ = unlockFile(file)
		_ = file.Close()
		return nil, err
	}

	size := info.Size()
	if size == 0 {
		// Sparse allocation
		size = mmapGrowth
		if err := file.Truncate(size); err != nil {
			_ = unlockFile(file)
			_ = file.Close()
			return nil, err
		}
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unlockFile(file)
		_ = file.Close()
		return nil, err
	}

	return &MMap{
		file:     file,
		mmapData: data,
		mmapSize: size,
	}, nil
}

// ReadBlock copies block id out of the mapped region. Blocks inside the
// mapping that were never written read as zeros.
func (m *MMap) ReadBlock(id base.PageID, page *base.Page) error {
	if m.mmapData == nil {
		return ErrClosed
	}

	offset := blockOffset(id)
	if offset+base.PageSize > m.mmapSize {
		return fmt.Errorf("block %d beyond mapped region: %w", id, ErrShortBlock)
	}

	m.reads.Add(1)
	m.read.Add(base.PageSize)

	// Copy out so the page survives a remap
	copy(page.Data[:], m.mmapData[offset:offset+base.PageSize])
	return nil
}

// WriteBlock copies page into the mapped region, growing it as needed
func (m *MMap) WriteBlock(id base.PageID, page *base.Page) error {
	if m.mmapData == nil {
		return ErrClosed
	}

	offset := blockOffset(id)
	if offset+base.PageSize > m.mmapSize {
		if err := m.grow(offset + base.PageSize); err != nil {
			return err
		}
	}

	m.writes.Add(1)
	copy(m.mmapData[offset:], page.Data[:])
	m.written.Add(base.PageSize)
	return nil
}

func (m *MMap) grow(minSize int64) error {
	// Round up to whole chunks to reduce remap frequency
	newSize := ((minSize + mmapGrowth - 1) / mmapGrowth) * mmapGrowth

	// Flush before unmapping so no dirty mapped page is lost
	if err := unix.Msync(m.mmapData, unix.MS_SYNC); err != nil {
		return err
	}
	if err := unix.Munmap(m.mmapData); err != nil {
		return err
	}
	m.mmapData = nil

	// Grow file (sparse allocation)
	if err := m.file.Truncate(newSize); err != nil {
		return err
	}

	data, err := unix.Mmap(int(m.file.Fd()), 0, int(newSize),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return err
	}

	m.mmapData = data
	m.mmapSize = newSize
	return nil
}

// Sync flushes the memory-mapped region to disk
func (m *MMap) Sync() error {
	if m.mmapData == nil {
		return ErrClosed
	}
	m.syncs.Add(1)
	if err := unix.Msync(m.mmapData, unix.MS_SYNC); err != nil {
		return err
	}
	return m.file.Sync()
}

// Stats returns I/O statistics
func (m *MMap) Stats() Stats {
	return Stats{
		Reads:   m.reads.Load(),
		Writes:  m.writes.Load(),
		Read:    m.read.Load(),
		Written: m.written.Load(),
		Syncs:   m.syncs.Load(),
	}
}

// Close unmaps the region and closes the file
func (m *MMap) Close() error {
	if m.file == nil {
		return nil
	}
	if m.mmapData != nil {
		if err := unix.Munmap(m.mmapData); err != nil {
			return err
		}
		m.mmapData = nil
	}
	_ = unlockFile(m.file)
	err := m.file.Close()
	m.file = nil
	return err
}
