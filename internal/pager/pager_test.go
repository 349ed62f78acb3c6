package pager

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexhholmes/treeidx/internal/base"
	"github.com/alexhholmes/treeidx/internal/storage"
)

// faultyStore fails writes once armed.
type faultyStore struct {
	*storage.Memory
	failWrites bool
}

var errInjected = errors.New("injected write failure")

func (s *faultyStore) WriteBlock(id base.PageID, page *base.Page) error {
	if s.failWrites {
		return errInjected
	}
	return s.Memory.WriteBlock(id, page)
}

// Helper to create a pager over an in-memory store for testing
func createTestPager(t *testing.T, cfg Config) (*Pager, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	p, err := Create(mem, base.KeyInt, 4, cfg)
	require.NoError(t, err, "Failed to create Pager")
	return p, mem
}

func TestCreateFormatsEmptyIndex(t *testing.T) {
	t.Parallel()

	p, mem := createTestPager(t, Config{})

	meta := p.Meta()
	assert.Equal(t, base.PageID(1), meta.Root)
	assert.Equal(t, uint64(1), meta.Height)
	assert.Equal(t, uint64(1), meta.NodeCount)
	assert.Zero(t, meta.EntryCount)
	assert.Equal(t, base.PageID(2), meta.NextPage)
	assert.Equal(t, uint64(1), mem.Stats().Syncs, "create syncs under SyncEveryCommit")

	require.NoError(t, p.Begin())
	root, err := p.Load(p.Root())
	require.NoError(t, err)
	assert.True(t, root.Leaf)
	assert.Empty(t, root.Keys)
	p.Abort()
}

func TestCreateRejectsBadParameters(t *testing.T) {
	t.Parallel()

	_, err := Create(storage.NewMemory(), base.KeyInt, 2, Config{})
	assert.ErrorIs(t, err, base.ErrInvalidOrder)

	_, err = Create(storage.NewMemory(), base.KeyType(99), 4, Config{})
	assert.ErrorIs(t, err, base.ErrKeyType)

	_, err = Create(storage.NewMemory(), base.KeyInt, 4, Config{MaxPages: 1})
	assert.ErrorIs(t, err, base.ErrPageStoreFull)
}

func TestCommitPersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	p, mem := createTestPager(t, Config{})

	require.NoError(t, p.Begin())
	root, err := p.Load(p.Root())
	require.NoError(t, err)
	root.Keys = append(root.Keys, base.IntKey(7))
	root.RIDs = append(root.RIDs, base.RID{Page: 1, Slot: 2})
	root.Dirty = true
	p.AddEntries(1)
	require.NoError(t, p.Commit())
	require.NoError(t, p.Close())

	p, err = Open(mem.Reopen(), Config{})
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, uint64(1), p.EntryCount())
	require.NoError(t, p.Begin())
	root, err = p.Load(p.Root())
	require.NoError(t, err)
	assert.Equal(t, []base.Key{base.IntKey(7)}, root.Keys)
	assert.Equal(t, []base.RID{{Page: 1, Slot: 2}}, root.RIDs)
	p.Abort()
}

func TestAbortRestoresState(t *testing.T) {
	t.Parallel()

	p, _ := createTestPager(t, Config{})
	before := p.Meta()

	require.NoError(t, p.Begin())
	root, err := p.Load(p.Root())
	require.NoError(t, err)
	root.Keys = append(root.Keys, base.IntKey(1))
	root.RIDs = append(root.RIDs, base.RID{})
	root.Dirty = true

	n, err := p.Allocate(true)
	require.NoError(t, err)
	p.SetRoot(n.ID, 2)
	p.AddEntries(1)
	p.Abort()

	assert.Equal(t, before, p.Meta())

	require.NoError(t, p.Begin())
	root, err = p.Load(p.Root())
	require.NoError(t, err)
	assert.Empty(t, root.Keys, "aborted change must not leak through the cache")
	p.Abort()
}

func TestCommitWithoutChangesWritesNothing(t *testing.T) {
	t.Parallel()

	p, mem := createTestPager(t, Config{})
	writes := mem.Stats().Writes

	require.NoError(t, p.Begin())
	_, err := p.Load(p.Root())
	require.NoError(t, err)
	require.NoError(t, p.Commit())

	assert.Equal(t, writes, mem.Stats().Writes)
}

func TestFreeAndReuse(t *testing.T) {
	t.Parallel()

	p, mem := createTestPager(t, Config{})

	require.NoError(t, p.Begin())
	a, err := p.Allocate(true)
	require.NoError(t, err)
	b, err := p.Allocate(true)
	require.NoError(t, err)
	require.NoError(t, p.Commit())
	assert.Equal(t, base.PageID(2), a.ID)
	assert.Equal(t, base.PageID(3), b.ID)
	assert.Equal(t, uint64(3), p.NodeCount())

	require.NoError(t, p.Begin())
	a, err = p.Load(2)
	require.NoError(t, err)
	b, err = p.Load(3)
	require.NoError(t, err)
	p.Free(a)
	p.Free(b)

	_, err = p.Load(3)
	assert.ErrorIs(t, err, base.ErrCorruption, "freed node cannot be loaded")
	require.NoError(t, p.Commit())

	meta := p.Meta()
	require.NoError(t, p.Begin())
	chain, err := p.FreeChain()
	require.NoError(t, err)
	assert.Equal(t, []base.PageID{3, 2}, chain)
	p.Abort()

	assert.Equal(t, base.PageID(3), meta.FreeHead)
	assert.Equal(t, uint64(2), meta.FreeCount)
	assert.Equal(t, uint64(1), meta.NodeCount)

	// Chain survives reopen and is consumed head first
	require.NoError(t, p.Close())
	p, err = Open(mem.Reopen(), Config{})
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Begin())
	c, err := p.Allocate(true)
	require.NoError(t, err)
	d, err := p.Allocate(true)
	require.NoError(t, err)
	e, err := p.Allocate(true)
	require.NoError(t, err)
	require.NoError(t, p.Commit())

	assert.Equal(t, base.PageID(3), c.ID)
	assert.Equal(t, base.PageID(2), d.ID)
	assert.Equal(t, base.PageID(4), e.ID, "store grows once the chain is empty")
	assert.Zero(t, p.Meta().FreeCount)
	assert.Equal(t, base.NoNode, p.Meta().FreeHead)
}

func TestFreeThenAllocateInOneOperation(t *testing.T) {
	t.Parallel()

	p, _ := createTestPager(t, Config{})

	require.NoError(t, p.Begin())
	a, err := p.Allocate(true)
	require.NoError(t, err)
	p.Free(a)
	b, err := p.Allocate(true)
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	b.Keys = append(b.Keys, base.IntKey(3))
	b.RIDs = append(b.RIDs, base.RID{Page: 3})
	require.NoError(t, p.Commit())
	assert.Zero(t, p.Meta().FreeCount)

	require.NoError(t, p.Begin())
	loaded, err := p.Load(b.ID)
	require.NoError(t, err)
	assert.Equal(t, []base.Key{base.IntKey(3)}, loaded.Keys)
	p.Abort()
}

func TestMaxPages(t *testing.T) {
	t.Parallel()

	p, _ := createTestPager(t, Config{MaxPages: 3})

	require.NoError(t, p.Begin())
	_, err := p.Allocate(true)
	require.NoError(t, err)
	_, err = p.Allocate(true)
	assert.ErrorIs(t, err, base.ErrPageStoreFull)
	assert.ErrorIs(t, err, base.ErrIO)
	p.Abort()

	assert.Equal(t, base.PageID(2), p.Meta().NextPage)
}

func TestLoadRejectsBadIDs(t *testing.T) {
	t.Parallel()

	p, mem := createTestPager(t, Config{})

	require.NoError(t, p.Begin())
	_, err := p.Load(base.NoNode)
	assert.ErrorIs(t, err, base.ErrCorruption)
	_, err = p.Load(99)
	assert.ErrorIs(t, err, base.ErrCorruption)
	p.Abort()

	_, err = p.Load(1)
	assert.ErrorIs(t, err, ErrNoOperation)

	// Flip a byte in the root page and drop the cached copy by reopening
	require.NoError(t, p.Close())
	mem.Reopen().Corrupt(1, func(pg *base.Page) { pg.Data[base.NodeHeaderSize] ^= 0xFF })
	p, err = Open(mem, Config{})
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Begin())
	_, err = p.Load(1)
	assert.ErrorIs(t, err, base.ErrCorruption)
	p.Abort()
}

func TestOpenDetectsCorruptMeta(t *testing.T) {
	t.Parallel()

	p, mem := createTestPager(t, Config{})
	require.NoError(t, p.Close())

	mem.Reopen().Corrupt(base.MetaPageID, func(pg *base.Page) { pg.Data[0] ^= 0xFF })
	_, err := Open(mem, Config{})
	assert.ErrorIs(t, err, base.ErrCorruption)

	_, err = Open(storage.NewMemory(), Config{})
	assert.ErrorIs(t, err, base.ErrCorruption, "missing meta page")
}

func TestCommitFailurePoisonsPager(t *testing.T) {
	t.Parallel()

	store := &faultyStore{Memory: storage.NewMemory()}
	p, err := Create(store, base.KeyInt, 4, Config{})
	require.NoError(t, err)

	require.NoError(t, p.Begin())
	_, err = p.Allocate(true)
	require.NoError(t, err)

	store.failWrites = true
	err = p.Commit()
	assert.ErrorIs(t, err, base.ErrIO)
	assert.ErrorIs(t, err, errInjected)

	assert.ErrorIs(t, p.Begin(), ErrFailed)
	assert.ErrorIs(t, p.Begin(), base.ErrIO)
}

func TestSyncOff(t *testing.T) {
	t.Parallel()

	p, mem := createTestPager(t, Config{Mode: SyncOff})
	assert.Zero(t, mem.Stats().Syncs)

	require.NoError(t, p.Begin())
	_, err := p.Allocate(true)
	require.NoError(t, err)
	require.NoError(t, p.Commit())
	assert.Zero(t, mem.Stats().Syncs)

	require.NoError(t, p.Close())
	assert.Equal(t, uint64(1), mem.Stats().Syncs, "close flushes once")
}

func TestStats(t *testing.T) {
	t.Parallel()

	p, _ := createTestPager(t, Config{})
	require.NoError(t, p.Begin())
	_, err := p.Load(p.Root())
	require.NoError(t, err)
	p.Abort()

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Commits)
	assert.Equal(t, uint64(1), stats.Cache.Hits, "root was cached by the create commit")
	assert.NotZero(t, stats.Storage.Writes)
}
