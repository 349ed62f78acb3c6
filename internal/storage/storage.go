// Package storage provides block-addressed page stores backing an index file.
// Page i lives at byte offset i*PageSize.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alexhholmes/treeidx/internal/base"
)

// Backend selects the I/O strategy of a file store.
type Backend int

const (
	// BackendFile uses positioned reads and writes through the OS page cache.
	BackendFile Backend = iota
	// BackendMMap maps the file into memory.
	BackendMMap
	// BackendDirect bypasses the OS page cache where the platform allows it.
	BackendDirect
)

func (b Backend) String() string {
	switch b {
	case BackendFile:
		return "file"
	case BackendMMap:
		return "mmap"
	case BackendDirect:
		return "direct"
	}
	return fmt.Sprintf("Backend(%d)", int(b))
}

var (
	ErrClosed     = errors.New("storage closed")
	ErrLocked     = errors.New("index file is locked by another process")
	ErrShortBlock = fmt.Errorf("%w: short block", io.ErrUnexpectedEOF)
)

// Store reads and writes whole pages by page number.
type Store interface {
	// ReadBlock fills page with the contents of block id. Reading past the
	// end of the store returns an error wrapping io.ErrUnexpectedEOF.
	ReadBlock(id base.PageID, page *base.Page) error
	// WriteBlock stores page as block id, growing the store as needed.
	WriteBlock(id base.PageID, page *base.Page) error
	// Sync makes all written blocks durable.
	Sync() error
	// Close releases the store. Writes not yet synced may be lost.
	Close() error
	Stats() Stats
}

// Stats holds I/O statistics
type Stats struct {
	Reads   uint64
	Writes  uint64
	Read    uint64
	Written uint64
	Syncs   uint64
}

const filePerm = 0o600

// Create makes a new, empty index file and opens it. It fails if path
// already exists.
func Create(path string, backend Backend) (Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	s, err := Open(path, backend)
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	return s, nil
}

// Open opens an existing index file with an exclusive advisory lock.
func Open(path string, backend Backend) (Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	switch backend {
	case BackendFile:
		return NewFile(path)
	case BackendMMap:
		return NewMMap(path)
	case BackendDirect:
		return NewDirectIO(path)
	}
	return nil, fmt.Errorf("unknown storage backend %d", int(backend))
}

// Remove deletes the index file at path.
func Remove(path string) error {
	return os.Remove(path)
}

func blockOffset(id base.PageID) int64 {
	return int64(id) * base.PageSize
}

// openLocked opens path for read-write and takes the exclusive file lock.
func openLocked(path string, open func(string, int, os.FileMode) (*os.File, error)) (*os.File, error) {
	f, err := open(path, os.O_RDWR, filePerm)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}
