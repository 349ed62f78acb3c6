package treeidx

import (
	"errors"
	"fmt"
	"sync"

	"github.com/alexhholmes/treeidx/internal/base"
	"github.com/alexhholmes/treeidx/internal/pager"
	"github.com/alexhholmes/treeidx/internal/storage"
)

// Index is an open B+ tree index file mapping keys to RIDs.
//
// An Index serializes its own methods; it supports one writer at a time and
// is not meant to be shared by concurrent writers.
type Index struct {
	mu     sync.Mutex
	path   string
	pager  *pager.Pager
	tree   *tree
	log    Logger
	closed bool

	// mods counts committed modifications; open scans compare it against
	// the value seen when they copied their current leaf.
	mods uint64
}

// Create makes a new index file at path holding keys of type keyType in
// nodes of the given order, and closes it again. It refuses to overwrite an
// existing file. Parameters are validated before the file is touched.
func Create(path string, keyType KeyType, order int, options ...Option) error {
	opts := buildOptions(options)

	if !keyType.Valid() {
		return fmt.Errorf("%w: unsupported key type %s", ErrKeyType, keyType)
	}
	if err := base.ValidateOrder(keyType, order); err != nil {
		return err
	}

	store, err := storage.Create(path, opts.backend)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrIO, path, err)
	}

	p, err := pager.Create(store, keyType, order, opts.pagerConfig())
	if err != nil {
		_ = store.Close()
		_ = storage.Remove(path)
		opts.logger.Error("index create failed", "path", path, "error", err)
		return err
	}
	if err := p.Close(); err != nil {
		_ = storage.Remove(path)
		return err
	}

	opts.logger.Info("index created", "path", path, "keyType", keyType, "order", order)
	return nil
}

// Open opens an existing index file. The file is locked exclusively until
// Close.
func Open(path string, options ...Option) (*Index, error) {
	opts := buildOptions(options)

	store, err := storage.Open(path, opts.backend)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}

	p, err := pager.Open(store, opts.pagerConfig())
	if err != nil {
		_ = store.Close()
		opts.logger.Error("index open failed", "path", path, "error", err)
		return nil, err
	}

	idx := &Index{
		path:  path,
		pager: p,
		tree:  &tree{p: p, log: opts.logger},
		log:   opts.logger,
	}
	idx.log.Info("index opened",
		"path", path,
		"keyType", p.KeyType(),
		"order", p.Order(),
		"entries", p.EntryCount(),
		"height", p.Height(),
		"backend", opts.backend)
	return idx, nil
}

// Remove deletes the index file at path. The index must not be open.
func Remove(path string) error {
	if err := storage.Remove(path); err != nil {
		return fmt.Errorf("%w: remove %s: %w", ErrIO, path, err)
	}
	return nil
}

// Close flushes and closes the index file. Closing twice is a no-op.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return nil
	}
	idx.closed = true

	if err := idx.pager.Close(); err != nil {
		idx.log.Error("index close failed", "path", idx.path, "error", err)
		return err
	}
	idx.log.Info("index closed", "path", idx.path)
	return nil
}

// Insert adds key with its rid. It returns ErrDuplicateKey, leaving the
// index unchanged, if key is already present.
func (idx *Index) Insert(key Key, rid RID) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.checkKey(key); err != nil {
		return err
	}
	return idx.update("insert", func(t *tree) error {
		return t.insert(key, rid)
	})
}

// Delete removes key. It returns ErrNotFound, leaving the index unchanged,
// if key is absent.
func (idx *Index) Delete(key Key) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.checkKey(key); err != nil {
		return err
	}
	return idx.update("delete", func(t *tree) error {
		return t.delete(key)
	})
}

// Find returns the RID stored for key, or ErrNotFound.
func (idx *Index) Find(key Key) (RID, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.checkKey(key); err != nil {
		return RID{}, err
	}
	var rid RID
	err := idx.view(func(t *tree) error {
		var err error
		rid, err = t.find(key)
		return err
	})
	return rid, err
}

func (idx *Index) checkKey(key Key) error {
	if idx.closed {
		return ErrClosed
	}
	return key.Validate(idx.pager.KeyType())
}

// update runs fn as one modifying operation: all of its changes are
// committed together, or none are if fn fails.
func (idx *Index) update(op string, fn func(t *tree) error) error {
	if err := idx.pager.Begin(); err != nil {
		return err
	}
	if err := fn(idx.tree); err != nil {
		idx.pager.Abort()
		if errors.Is(err, ErrIO) || errors.Is(err, ErrCorruption) {
			idx.log.Error("operation aborted", "op", op, "path", idx.path, "error", err)
		}
		return err
	}
	if err := idx.pager.Commit(); err != nil {
		idx.log.Error("commit failed", "op", op, "path", idx.path, "error", err)
		return err
	}
	idx.mods++
	return nil
}

// view runs fn as a read-only operation.
func (idx *Index) view(fn func(t *tree) error) error {
	if err := idx.pager.Begin(); err != nil {
		return err
	}
	defer idx.pager.Abort()

	err := fn(idx.tree)
	if errors.Is(err, ErrIO) || errors.Is(err, ErrCorruption) {
		idx.log.Error("read failed", "path", idx.path, "error", err)
	}
	return err
}

// NodeCount returns the number of tree nodes in the index file.
func (idx *Index) NodeCount() uint64 {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.pager.NodeCount()
}

// EntryCount returns the number of keys in the index.
func (idx *Index) EntryCount() uint64 {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.pager.EntryCount()
}

func (idx *Index) KeyType() KeyType {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.pager.KeyType()
}

func (idx *Index) Order() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.pager.Order()
}

// Height returns the number of levels in the tree. A tree whose root is a
// leaf has height 1.
func (idx *Index) Height() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.pager.Height()
}

// Stats holds cumulative counters since the index was opened.
type Stats struct {
	Commits uint64

	CacheHits      uint64
	CacheMisses    uint64
	CacheEvictions uint64

	Reads        uint64
	Writes       uint64
	BytesRead    uint64
	BytesWritten uint64
	Syncs        uint64
}

func (idx *Index) Stats() Stats {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	s := idx.pager.Stats()
	return Stats{
		Commits:        s.Commits,
		CacheHits:      s.Cache.Hits,
		CacheMisses:    s.Cache.Misses,
		CacheEvictions: s.Cache.Evictions,
		Reads:          s.Storage.Reads,
		Writes:         s.Storage.Writes,
		BytesRead:      s.Storage.Read,
		BytesWritten:   s.Storage.Written,
		Syncs:          s.Storage.Syncs,
	}
}
