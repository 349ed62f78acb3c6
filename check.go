package treeidx

import (
	"fmt"

	"github.com/alexhholmes/treeidx/internal/algo"
	"github.com/alexhholmes/treeidx/internal/base"
)

// Check reads the whole index and verifies its structure: key order and
// separator bounds, node fill, parent links, uniform leaf depth, the leaf
// chain, the free chain and the counts recorded in the meta page. Any
// violation is reported as ErrCorruption.
func (idx *Index) Check() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return ErrClosed
	}
	return idx.view(func(t *tree) error {
		return t.check()
	})
}

type checker struct {
	t      *tree
	order  int
	height int

	seen    map[base.PageID]struct{}
	leaves  []*base.Node
	entries uint64
}

func (t *tree) check() error {
	c := &checker{
		t:      t,
		order:  t.p.Order(),
		height: t.p.Height(),
		seen:   make(map[base.PageID]struct{}),
	}

	root, err := t.root()
	if err != nil {
		return err
	}
	if err := c.node(root, 1, nil, nil); err != nil {
		return err
	}
	if err := c.chain(); err != nil {
		return err
	}

	meta := t.p.Meta()
	if n := uint64(len(c.seen)); n != meta.NodeCount {
		return corruptf("tree holds %d nodes, meta records %d", n, meta.NodeCount)
	}
	if c.entries != meta.EntryCount {
		return corruptf("tree holds %d entries, meta records %d", c.entries, meta.EntryCount)
	}

	free, err := t.p.FreeChain()
	if err != nil {
		return err
	}
	for _, id := range free {
		if _, ok := c.seen[id]; ok {
			return corruptf("page %d is both a tree node and free", id)
		}
	}
	if pages := uint64(meta.NextPage) - 1; pages != meta.NodeCount+uint64(len(free)) {
		return corruptf("%d pages allocated, %d nodes and %d free", pages, meta.NodeCount, len(free))
	}
	return nil
}

// node checks n and its subtree. Every key must lie in [lo, hi); nil bounds
// are open.
func (c *checker) node(n *base.Node, depth int, lo, hi *base.Key) error {
	if _, dup := c.seen[n.ID]; dup {
		return corruptf("node %d reached twice", n.ID)
	}
	c.seen[n.ID] = struct{}{}

	if len(n.Keys) > c.order {
		return corruptf("node %d holds %d keys, order is %d", n.ID, len(n.Keys), c.order)
	}
	for i, k := range n.Keys {
		if i > 0 && n.Keys[i-1].Compare(k) >= 0 {
			return corruptf("node %d keys out of order at %d: %s then %s", n.ID, i, n.Keys[i-1], k)
		}
		if lo != nil && k.Compare(*lo) < 0 {
			return corruptf("node %d key %s below separator %s", n.ID, k, *lo)
		}
		if hi != nil && k.Compare(*hi) >= 0 {
			return corruptf("node %d key %s not below separator %s", n.ID, k, *hi)
		}
	}

	isRoot := depth == 1
	if n.Leaf {
		if depth != c.height {
			return corruptf("leaf %d at depth %d, tree height is %d", n.ID, depth, c.height)
		}
		if !isRoot && len(n.Keys) < algo.MinLeafEntries(c.order) {
			return corruptf("leaf %d holds %d entries, minimum is %d", n.ID, len(n.Keys), algo.MinLeafEntries(c.order))
		}
		c.entries += uint64(len(n.Keys))
		c.leaves = append(c.leaves, n)
		return nil
	}

	if depth >= c.height {
		return corruptf("internal node %d at depth %d, tree height is %d", n.ID, depth, c.height)
	}
	if len(n.Children) != len(n.Keys)+1 {
		return corruptf("internal node %d has %d keys and %d children", n.ID, len(n.Keys), len(n.Children))
	}
	switch {
	case isRoot && len(n.Children) < 2:
		return corruptf("internal root %d has %d children", n.ID, len(n.Children))
	case !isRoot && algo.Underflow(n, c.order):
		return corruptf("internal node %d has %d children, minimum is %d", n.ID, len(n.Children), algo.MinChildren(c.order))
	}

	for i := range n.Children {
		child, err := c.t.loadChild(n, i)
		if err != nil {
			return err
		}
		clo, chi := lo, hi
		if i > 0 {
			clo = &n.Keys[i-1]
		}
		if i < len(n.Keys) {
			chi = &n.Keys[i]
		}
		if err := c.node(child, depth+1, clo, chi); err != nil {
			return err
		}
	}
	return nil
}

// chain checks that the forward links visit the leaves left to right and
// that keys keep ascending across leaf boundaries.
func (c *checker) chain() error {
	for i, leaf := range c.leaves {
		want := base.NoNode
		if i+1 < len(c.leaves) {
			want = c.leaves[i+1].ID
		}
		if leaf.Next != want {
			return corruptf("leaf %d links to %d, next leaf is %d", leaf.ID, leaf.Next, want)
		}
		if i > 0 {
			prev := c.leaves[i-1]
			if len(prev.Keys) > 0 && len(leaf.Keys) > 0 &&
				prev.Keys[len(prev.Keys)-1].Compare(leaf.Keys[0]) >= 0 {
				return corruptf("leaf %d ends at %s, leaf %d starts at %s",
					prev.ID, prev.Keys[len(prev.Keys)-1], leaf.ID, leaf.Keys[0])
			}
		}
	}
	return nil
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruption, fmt.Sprintf(format, args...))
}
