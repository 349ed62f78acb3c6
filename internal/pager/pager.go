package pager

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/btree"

	"github.com/alexhholmes/treeidx/internal/base"
	"github.com/alexhholmes/treeidx/internal/cache"
	"github.com/alexhholmes/treeidx/internal/storage"
)

// SyncMode controls when to fsync (copied from main package to avoid import cycle)
type SyncMode int

const (
	SyncEveryCommit SyncMode = iota
	SyncOff
)

// Config carries the pager settings chosen when an index is opened.
type Config struct {
	Mode      SyncMode
	CacheSize int
	// MaxPages caps the store at this many pages, meta page included.
	// Zero means unbounded.
	MaxPages uint64
}

var (
	ErrNoOperation = errors.New("pager: no operation in progress")
	ErrFailed      = fmt.Errorf("%w: index must be reopened after a failed commit", base.ErrIO)
)

// Pager coordinates store, cache, meta and free list.
//
// Every access runs inside an operation opened by Begin. Nodes loaded or
// allocated during the operation are retained in pages, so repeated loads of
// one id return the same object even if the cache evicts it. Modified nodes
// stay in memory until Commit writes them; Abort drops them and restores the
// meta captured at the last commit.
type Pager struct {
	store    storage.Store
	cache    *cache.Cache
	mode     SyncMode
	maxPages uint64

	meta      base.Meta // working copy
	committed base.Meta // as of the last successful commit

	pages    *btree.BTreeG[*base.Node] // nodes touched by the running operation
	freelist *Freelist
	inOp     bool
	failed   error
	closed   bool

	commits uint64
}

func nodeLess(a, b *base.Node) bool {
	return a.ID < b.ID
}

func newPager(store storage.Store, cfg Config) (*Pager, error) {
	c, err := cache.NewCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Pager{
		store:    store,
		cache:    c,
		mode:     cfg.Mode,
		maxPages: cfg.MaxPages,
		pages:    btree.NewG[*base.Node](32, nodeLess),
		freelist: newFreelist(),
	}, nil
}

// Create formats an empty store as a new index: the meta page and a single
// empty leaf as root.
func Create(store storage.Store, t base.KeyType, order int, cfg Config) (*Pager, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %s", base.ErrKeyType, t)
	}
	if err := base.ValidateOrder(t, order); err != nil {
		return nil, err
	}
	p, err := newPager(store, cfg)
	if err != nil {
		return nil, err
	}

	p.meta = base.NewMeta(t, order)
	p.committed = p.meta
	if err := p.Begin(); err != nil {
		return nil, err
	}
	root, err := p.Allocate(true)
	if err != nil {
		p.Abort()
		return nil, err
	}
	p.SetRoot(root.ID, 1)

	if err := p.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}

// Open loads the meta page of an existing index.
func Open(store storage.Store, cfg Config) (*Pager, error) {
	p, err := newPager(store, cfg)
	if err != nil {
		return nil, err
	}

	var page base.Page
	if err := store.ReadBlock(base.MetaPageID, &page); err != nil {
		return nil, p.readError(base.MetaPageID, err)
	}
	meta, err := page.ReadMeta()
	if err != nil {
		return nil, err
	}
	if uint64(meta.NextPage)-1 != meta.NodeCount+meta.FreeCount {
		return nil, fmt.Errorf("%w: %d pages allocated but %d nodes and %d free",
			base.ErrCorruption, meta.NextPage-1, meta.NodeCount, meta.FreeCount)
	}

	p.meta = meta
	p.committed = meta
	return p, nil
}

// Begin opens an operation.
func (p *Pager) Begin() error {
	if p.closed {
		return storage.ErrClosed
	}
	if p.failed != nil {
		return ErrFailed
	}
	p.inOp = true
	return nil
}

// Commit writes every node modified by the running operation, formats the
// pages it freed, then writes the meta page if it changed. Under
// SyncEveryCommit the store is synced when anything was written. A failed
// commit leaves the on-disk index in an unknown state; the pager refuses
// further operations.
func (p *Pager) Commit() error {
	if !p.inOp {
		return ErrNoOperation
	}
	defer p.endOp()

	if err := p.flush(); err != nil {
		p.failed = err
		p.cache.Purge()
		return fmt.Errorf("%w: %w", base.ErrIO, err)
	}
	return nil
}

func (p *Pager) flush() error {
	wrote := false
	var page base.Page

	var err error
	p.pages.Ascend(func(n *base.Node) bool {
		if !n.Dirty {
			return true
		}
		if err = n.Serialize(p.KeyType(), p.Order(), &page); err != nil {
			return false
		}
		if err = p.store.WriteBlock(n.ID, &page); err != nil {
			return false
		}
		wrote = true
		return true
	})
	if err != nil {
		return err
	}

	err = p.freelist.Each(func(id, next base.PageID) error {
		if err := page.WriteFree(next); err != nil {
			return err
		}
		wrote = true
		return p.store.WriteBlock(id, &page)
	})
	if err != nil {
		return err
	}

	if p.meta != p.committed {
		if err := page.WriteMeta(&p.meta); err != nil {
			return err
		}
		if err := p.store.WriteBlock(base.MetaPageID, &page); err != nil {
			return err
		}
		wrote = true
	}

	if wrote && p.mode == SyncEveryCommit {
		if err := p.store.Sync(); err != nil {
			return err
		}
	}

	// Durable: publish clean nodes to the cache
	p.pages.Ascend(func(n *base.Node) bool {
		if n.Dirty {
			n.Dirty = false
			p.cache.Put(n.ID, n)
		}
		return true
	})
	p.committed = p.meta
	p.commits++
	return nil
}

// Abort discards every change made by the running operation.
func (p *Pager) Abort() {
	if !p.inOp {
		return
	}
	p.pages.Ascend(func(n *base.Node) bool {
		if n.Dirty {
			p.cache.Delete(n.ID)
		}
		return true
	})
	p.meta = p.committed
	p.endOp()
}

func (p *Pager) endOp() {
	p.pages.Clear(false)
	p.freelist.Reset()
	p.inOp = false
}

// Load returns the node stored at id: pages touched by this operation first,
// then the cache, then the store.
func (p *Pager) Load(id base.PageID) (*base.Node, error) {
	if !p.inOp {
		return nil, ErrNoOperation
	}
	if id == base.NoNode || id >= p.meta.NextPage {
		return nil, fmt.Errorf("%w: node id %d outside allocated pages", base.ErrCorruption, id)
	}
	if p.freelist.Pending(id) {
		return nil, fmt.Errorf("%w: node %d was freed", base.ErrCorruption, id)
	}

	if n, ok := p.pages.Get(&base.Node{ID: id}); ok {
		return n, nil
	}
	if n, ok := p.cache.Get(id); ok {
		p.pages.ReplaceOrInsert(n)
		return n, nil
	}

	var page base.Page
	if err := p.store.ReadBlock(id, &page); err != nil {
		return nil, p.readError(id, err)
	}
	n := &base.Node{ID: id}
	if err := n.Deserialize(p.KeyType(), p.Order(), &page); err != nil {
		return nil, fmt.Errorf("node %d: %w", id, err)
	}

	p.cache.Put(id, n)
	p.pages.ReplaceOrInsert(n)
	return n, nil
}

func (p *Pager) readError(id base.PageID, err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: page %d missing from store: %w", base.ErrCorruption, id, err)
	}
	return fmt.Errorf("%w: read page %d: %w", base.ErrIO, id, err)
}

// Allocate returns a fresh empty node, reusing the head of the free chain
// before growing the store.
func (p *Pager) Allocate(leaf bool) (*base.Node, error) {
	if !p.inOp {
		return nil, ErrNoOperation
	}

	var id base.PageID
	if head := p.meta.FreeHead; head != base.NoNode {
		next, ok := p.freelist.Pop(head)
		if !ok {
			var page base.Page
			if err := p.store.ReadBlock(head, &page); err != nil {
				return nil, p.readError(head, err)
			}
			var err error
			if next, err = page.ReadFree(); err != nil {
				return nil, fmt.Errorf("free page %d: %w", head, err)
			}
		}
		id = head
		p.meta.FreeHead = next
		p.meta.FreeCount--
	} else {
		if p.maxPages != 0 && uint64(p.meta.NextPage) >= p.maxPages {
			return nil, base.ErrPageStoreFull
		}
		id = p.meta.NextPage
		p.meta.NextPage++
	}
	p.meta.NodeCount++

	n := base.NewNode(id, leaf, p.Order())
	n.Dirty = true
	p.pages.ReplaceOrInsert(n)
	return n, nil
}

// Free releases n's page to the head of the free chain. n must not be used
// afterwards.
func (p *Pager) Free(n *base.Node) {
	p.pages.Delete(n)
	p.cache.Delete(n.ID)

	p.freelist.Push(n.ID, p.meta.FreeHead)
	p.meta.FreeHead = n.ID
	p.meta.FreeCount++
	p.meta.NodeCount--

	n.Dirty = false
}

// FreeChain walks the free chain and returns its page ids head first.
func (p *Pager) FreeChain() ([]base.PageID, error) {
	if !p.inOp {
		return nil, ErrNoOperation
	}

	var ids []base.PageID
	seen := make(map[base.PageID]struct{})
	var page base.Page
	for id := p.meta.FreeHead; id != base.NoNode; {
		if id >= p.meta.NextPage {
			return nil, fmt.Errorf("%w: free page %d outside allocated pages", base.ErrCorruption, id)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: free chain cycles at page %d", base.ErrCorruption, id)
		}
		seen[id] = struct{}{}

		next, ok := p.freelist.pending[id]
		if !ok {
			if err := p.store.ReadBlock(id, &page); err != nil {
				return nil, p.readError(id, err)
			}
			var err error
			if next, err = page.ReadFree(); err != nil {
				return nil, fmt.Errorf("free page %d: %w", id, err)
			}
		}
		ids = append(ids, id)
		id = next
	}
	if uint64(len(ids)) != p.meta.FreeCount {
		return nil, fmt.Errorf("%w: free chain holds %d pages, meta records %d",
			base.ErrCorruption, len(ids), p.meta.FreeCount)
	}
	return ids, nil
}

// Meta returns a copy of the working meta.
func (p *Pager) Meta() base.Meta { return p.meta }

func (p *Pager) KeyType() base.KeyType { return base.KeyType(p.meta.KeyType) }
func (p *Pager) Order() int            { return int(p.meta.Order) }
func (p *Pager) Root() base.PageID     { return p.meta.Root }
func (p *Pager) Height() int           { return int(p.meta.Height) }
func (p *Pager) NodeCount() uint64     { return p.meta.NodeCount }
func (p *Pager) EntryCount() uint64    { return p.meta.EntryCount }

// SetRoot records a new root and tree height.
func (p *Pager) SetRoot(id base.PageID, height int) {
	p.meta.Root = id
	p.meta.Height = uint64(height)
}

// AddEntries adjusts the entry count by delta.
func (p *Pager) AddEntries(delta int) {
	p.meta.EntryCount = uint64(int64(p.meta.EntryCount) + int64(delta))
}

// Stats aggregates pager, cache and storage statistics.
type Stats struct {
	Commits uint64
	Cache   cache.Stats
	Storage storage.Stats
}

func (p *Pager) Stats() Stats {
	return Stats{
		Commits: p.commits,
		Cache:   p.cache.Stats(),
		Storage: p.store.Stats(),
	}
}

// Close aborts any running operation, syncs and closes the store.
func (p *Pager) Close() error {
	if p.closed {
		return nil
	}
	p.Abort()
	p.closed = true
	p.cache.Purge()

	var syncErr error
	if p.failed == nil {
		syncErr = p.store.Sync()
	}
	if err := p.store.Close(); err != nil {
		return fmt.Errorf("%w: %w", base.ErrIO, err)
	}
	if syncErr != nil {
		return fmt.Errorf("%w: %w", base.ErrIO, syncErr)
	}
	return nil
}
