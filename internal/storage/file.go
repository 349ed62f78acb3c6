package storage

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/alexhholmes/treeidx/internal/base"
)

// File implements Store with positioned reads and writes.
type File struct {
	file   *os.File
	closed atomic.Bool

	// Stats counters
	reads   atomic.Uint64
	writes  atomic.Uint64
	read    atomic.Uint64
	written atomic.Uint64
	syncs   atomic.Uint64
}

// NewFile opens an existing index file.
func NewFile(path string) (*File, error) {
	f, err := openLocked(path, os.OpenFile)
	if err != nil {
		return nil, err
	}
	return &File{file: f}, nil
}

// ReadBlock reads block id into page
func (s *File) ReadBlock(id base.PageID, page *base.Page) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.reads.Add(1)
	n, err := s.file.ReadAt(page.Data[:], blockOffset(id))
	s.read.Add(uint64(n))
	if err == io.EOF || (err == nil && n != base.PageSize) {
		return fmt.Errorf("block %d: %w", id, ErrShortBlock)
	}
	return err
}

// WriteBlock writes page as block id
func (s *File) WriteBlock(id base.PageID, page *base.Page) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.writes.Add(1)
	n, err := s.file.WriteAt(page.Data[:], blockOffset(id))
	s.written.Add(uint64(n))
	if err != nil {
		return err
	}
	if n != base.PageSize {
		return fmt.Errorf("short write: wrote %d bytes, expected %d", n, base.PageSize)
	}
	return nil
}

// Sync flushes buffered writes to disk
func (s *File) Sync() error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.syncs.Add(1)
	return s.file.Sync()
}

// Stats returns I/O statistics
func (s *File) Stats() Stats {
	return Stats{
		Reads:   s.reads.Load(),
		Writes:  s.writes.Load(),
		Read:    s.read.Load(),
		Written: s.written.Load(),
		Syncs:   s.syncs.Load(),
	}
}

// Close releases the lock and closes the file
func (s *File) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	_ = unlockFile(s.file)
	return s.file.Close()
}
