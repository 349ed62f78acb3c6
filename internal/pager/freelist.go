package pager

import (
	"github.com/alexhholmes/treeidx/internal/base"
)

// Freelist tracks pages released during the current operation.
//
// Free pages form a singly linked chain on disk: Meta.FreeHead names the
// first, and each free page stores the id of the next in its header. Pages
// freed by the running operation are not yet formatted on disk; their links
// are held here until commit writes them out.
type Freelist struct {
	pending map[base.PageID]base.PageID // freed id -> next free id
}

func newFreelist() *Freelist {
	return &Freelist{pending: make(map[base.PageID]base.PageID)}
}

// Push records that id now heads the chain, linked to next.
func (f *Freelist) Push(id, next base.PageID) {
	f.pending[id] = next
}

// Pop removes id from the pending set, returning its link. ok is false when
// id was freed by an earlier operation and its link lives on disk.
func (f *Freelist) Pop(id base.PageID) (next base.PageID, ok bool) {
	next, ok = f.pending[id]
	if ok {
		delete(f.pending, id)
	}
	return next, ok
}

// Pending reports whether id was freed by the running operation.
func (f *Freelist) Pending(id base.PageID) bool {
	_, ok := f.pending[id]
	return ok
}

// Len returns the number of pages freed by the running operation.
func (f *Freelist) Len() int {
	return len(f.pending)
}

// Each calls fn for every pending page and its link.
func (f *Freelist) Each(fn func(id, next base.PageID) error) error {
	for id, next := range f.pending {
		if err := fn(id, next); err != nil {
			return err
		}
	}
	return nil
}

// Reset forgets all pending pages.
func (f *Freelist) Reset() {
	clear(f.pending)
}
