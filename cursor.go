package treeidx

import (
	"fmt"

	"github.com/alexhholmes/treeidx/internal/algo"
	"github.com/alexhholmes/treeidx/internal/base"
)

// Scan iterates index entries in ascending key order.
//
// A scan copies the entries of one leaf at a time. If the index is modified
// while a scan is open, the next call to Next finds its place again by key,
// so every entry returned is greater than the one before it.
type Scan struct {
	idx *Index

	keys []Key // entries of the current leaf
	rids []RID
	pos  int
	next base.PageID // leaf after the current one
	mods uint64      // idx.mods when the current leaf was copied

	start    Key // first key wanted, for scans opened with OpenScanAt
	hasStart bool
	last     Key // last key returned
	started  bool
	closed   bool
}

// OpenScan returns a scan positioned before the smallest key.
func (idx *Index) OpenScan() (*Scan, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return nil, ErrClosed
	}
	s := &Scan{idx: idx}
	if err := s.seek(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenScanAt returns a scan positioned before the smallest key >= key.
func (idx *Index) OpenScanAt(key Key) (*Scan, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.checkKey(key); err != nil {
		return nil, err
	}
	s := &Scan{idx: idx, start: key, hasStart: true}
	if err := s.seek(); err != nil {
		return nil, err
	}
	return s, nil
}

// Next returns the next entry, or ErrEndOfScan once every entry has been
// returned.
func (s *Scan) Next() (Key, RID, error) {
	if s.closed {
		return Key{}, RID{}, ErrScanClosed
	}

	s.idx.mu.Lock()
	defer s.idx.mu.Unlock()

	if s.idx.closed {
		return Key{}, RID{}, ErrClosed
	}
	if s.mods != s.idx.mods {
		if err := s.seek(); err != nil {
			return Key{}, RID{}, err
		}
	}

	for s.pos >= len(s.keys) {
		if s.next == base.NoNode {
			return Key{}, RID{}, ErrEndOfScan
		}
		if err := s.advance(); err != nil {
			return Key{}, RID{}, err
		}
	}

	key, rid := s.keys[s.pos], s.rids[s.pos]
	if s.started && key.Compare(s.last) <= 0 {
		return Key{}, RID{}, fmt.Errorf("%w: scan went from %s back to %s", ErrCorruption, s.last, key)
	}
	s.pos++
	s.last, s.started = key, true
	return key, rid, nil
}

// Close releases the scan. Next on a closed scan returns ErrScanClosed.
func (s *Scan) Close() {
	s.closed = true
	s.keys, s.rids = nil, nil
}

// seek positions the scan after the last key returned, or at its start when
// nothing has been returned yet.
func (s *Scan) seek() error {
	return s.idx.view(func(t *tree) error {
		var (
			leaf *base.Node
			err  error
		)
		switch {
		case s.started:
			leaf, _, err = t.descend(s.last)
		case s.hasStart:
			leaf, _, err = t.descend(s.start)
		default:
			leaf, err = t.descendFirst()
		}
		if err != nil {
			return err
		}

		s.load(leaf)
		switch {
		case s.started:
			s.pos = algo.UpperBound(leaf.Keys, s.last)
		case s.hasStart:
			s.pos, _ = algo.Search(leaf.Keys, s.start)
		}
		return nil
	})
}

// advance moves to the next leaf in the chain.
func (s *Scan) advance() error {
	return s.idx.view(func(t *tree) error {
		leaf, err := t.p.Load(s.next)
		if err != nil {
			return err
		}
		if !leaf.Leaf || len(leaf.Keys) == 0 {
			return fmt.Errorf("%w: leaf chain reaches node %d, leaf %t with %d keys",
				ErrCorruption, leaf.ID, leaf.Leaf, len(leaf.Keys))
		}
		s.load(leaf)
		return nil
	})
}

func (s *Scan) load(leaf *base.Node) {
	s.keys = append(s.keys[:0], leaf.Keys...)
	s.rids = append(s.rids[:0], leaf.RIDs...)
	s.pos = 0
	s.next = leaf.Next
	s.mods = s.idx.mods
}
