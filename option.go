package treeidx

import (
	"github.com/alexhholmes/treeidx/internal/pager"
	"github.com/alexhholmes/treeidx/internal/storage"
)

// SyncMode controls when index writes are fsynced to disk
type SyncMode int

const (
	// SyncEveryCommit fsyncs at the end of every modifying operation.
	// - Completed Insert and Delete calls survive power failure
	// - Limited by fsync latency
	SyncEveryCommit SyncMode = iota

	// SyncOff disables fsync until Close.
	// - Maximum throughput
	// - Unsynced operations may be lost on crash
	// - Use for: Testing, bulk builds that can be redone
	SyncOff
)

func (m SyncMode) pagerMode() pager.SyncMode {
	switch m {
	case SyncOff:
		return pager.SyncOff
	default:
		return pager.SyncEveryCommit
	}
}

// Options configures how an index file is opened.
type Options struct {
	syncMode  SyncMode
	backend   storage.Backend
	cacheSize int    // Decoded nodes kept in memory.
	maxPages  uint64 // Page store capacity, meta page included. 0 means no limit.
	logger    Logger
}

const DefaultCacheSize = 1024

// DefaultOptions returns safe default configuration.
//
// goland:noinspection GoUnusedExportedFunction
func DefaultOptions() Options {
	return Options{
		syncMode:  SyncEveryCommit,
		backend:   storage.BackendFile,
		cacheSize: DefaultCacheSize,
		logger:    DiscardLogger{},
	}
}

// Option configures index options using the functional options pattern.
type Option func(*Options)

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = DiscardLogger{}
	}
	return o
}

func (o Options) pagerConfig() pager.Config {
	return pager.Config{
		Mode:      o.syncMode.pagerMode(),
		CacheSize: o.cacheSize,
		MaxPages:  o.maxPages,
	}
}

// WithSyncEveryCommit configures the index to fsync after every modifying
// operation. This is the default.
//
//goland:noinspection GoUnusedExportedFunction
func WithSyncEveryCommit() Option {
	return func(opts *Options) {
		opts.syncMode = SyncEveryCommit
	}
}

// WithSyncOff disables fsync until the index is closed.
// Only use for testing or bulk builds where the index can be rebuilt.
//
//goland:noinspection GoUnusedExportedFunction
func WithSyncOff() Option {
	return func(opts *Options) {
		opts.syncMode = SyncOff
	}
}

// WithMMap serves pages from a memory mapping of the index file.
//
//goland:noinspection GoUnusedExportedFunction
func WithMMap() Option {
	return func(opts *Options) {
		opts.backend = storage.BackendMMap
	}
}

// WithDirectIO bypasses the OS page cache. On platforms without direct I/O
// this behaves like the default file backend.
//
//goland:noinspection GoUnusedExportedFunction
func WithDirectIO() Option {
	return func(opts *Options) {
		opts.backend = storage.BackendDirect
	}
}

// WithCacheSize sets how many decoded nodes are kept in memory.
// Values below the cache minimum are raised to it.
//
//goland:noinspection GoUnusedExportedFunction
func WithCacheSize(nodes int) Option {
	return func(opts *Options) {
		opts.cacheSize = nodes
	}
}

// WithMaxPages caps the index file at n pages, meta page included. An
// operation that needs a page beyond the cap fails with ErrPageStoreFull and
// leaves the index unchanged.
//
//goland:noinspection GoUnusedExportedFunction
func WithMaxPages(n uint64) Option {
	return func(opts *Options) {
		opts.maxPages = n
	}
}

// WithLogger sets the logger for lifecycle and failure events.
//
//goland:noinspection GoUnusedExportedFunction
func WithLogger(l Logger) Option {
	return func(opts *Options) {
		opts.logger = l
	}
}
