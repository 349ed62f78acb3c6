package storage

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/alexhholmes/treeidx/internal/base"
)

// Memory implements Store in memory. It backs tests and scratch indexes that
// need no file.
type Memory struct {
	mu     sync.RWMutex
	blocks map[base.PageID]*base.Page
	closed bool

	// Stats counters
	reads   atomic.Uint64
	writes  atomic.Uint64
	read    atomic.Uint64
	written atomic.Uint64
	syncs   atomic.Uint64
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blocks: make(map[base.PageID]*base.Page)}
}

// ReadBlock copies block id into page
func (m *Memory) ReadBlock(id base.PageID, page *base.Page) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}
	b, ok := m.blocks[id]
	if !ok {
		return fmt.Errorf("block %d: %w", id, ErrShortBlock)
	}

	m.reads.Add(1)
	m.read.Add(base.PageSize)
	*page = *b
	return nil
}

// WriteBlock stores a copy of page as block id
func (m *Memory) WriteBlock(id base.PageID, page *base.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.writes.Add(1)
	m.written.Add(base.PageSize)
	b := *page
	m.blocks[id] = &b
	return nil
}

// Sync is a no-op
func (m *Memory) Sync() error {
	m.syncs.Add(1)
	return nil
}

// Stats returns I/O statistics
func (m *Memory) Stats() Stats {
	return Stats{
		Reads:   m.reads.Load(),
		Writes:  m.writes.Load(),
		Read:    m.read.Load(),
		Written: m.written.Load(),
		Syncs:   m.syncs.Load(),
	}
}

// Close marks the store closed. Blocks stay readable through Reopen.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Reopen makes a closed store usable again with its blocks intact, the
// in-memory equivalent of opening the same file twice.
func (m *Memory) Reopen() *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = false
	return m
}

// Corrupt applies fn to the stored copy of block id.
func (m *Memory) Corrupt(id base.PageID, fn func(p *base.Page)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blocks[id]
	if ok {
		fn(b)
	}
	return ok
}
