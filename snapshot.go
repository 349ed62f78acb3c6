package treeidx

import (
	"fmt"
	"io"
	"strings"

	"github.com/alexhholmes/treeidx/internal/base"
)

// NodeSnapshot is a copy of one tree node.
type NodeSnapshot struct {
	ID       PageID
	Leaf     bool
	Parent   PageID
	Next     PageID // leaf only
	Keys     []Key
	RIDs     []RID    // leaf only
	Children []PageID // internal only
}

// LevelSnapshot holds the nodes of one tree level, left to right. Level 0 is
// the root.
type LevelSnapshot struct {
	Level int
	Nodes []NodeSnapshot
}

// Snapshot copies every node of the tree in level order.
func (idx *Index) Snapshot() ([]LevelSnapshot, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return nil, ErrClosed
	}
	var levels []LevelSnapshot
	err := idx.view(func(t *tree) error {
		var err error
		levels, err = t.snapshot()
		return err
	})
	return levels, err
}

func (t *tree) snapshot() ([]LevelSnapshot, error) {
	root, err := t.root()
	if err != nil {
		return nil, err
	}

	var levels []LevelSnapshot
	current := []*base.Node{root}
	for depth := 0; len(current) > 0; depth++ {
		if depth >= t.p.Height() {
			return nil, fmt.Errorf("%w: tree deeper than height %d", ErrCorruption, t.p.Height())
		}

		level := LevelSnapshot{Level: depth, Nodes: make([]NodeSnapshot, 0, len(current))}
		var below []*base.Node
		for _, n := range current {
			level.Nodes = append(level.Nodes, snapshotNode(n))
			for i := range n.Children {
				child, err := t.loadChild(n, i)
				if err != nil {
					return nil, err
				}
				below = append(below, child)
			}
		}
		levels = append(levels, level)
		current = below
	}
	return levels, nil
}

func snapshotNode(n *base.Node) NodeSnapshot {
	s := NodeSnapshot{
		ID:     n.ID,
		Leaf:   n.Leaf,
		Parent: n.Parent,
		Next:   n.Next,
		Keys:   append([]Key(nil), n.Keys...),
	}
	if n.Leaf {
		s.RIDs = append([]RID(nil), n.RIDs...)
	} else {
		s.Children = append([]PageID(nil), n.Children...)
	}
	return s
}

// String renders the node as (id)[k1 k2 ...], followed by ->next for a leaf
// with a successor.
func (s NodeSnapshot) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "(%d)[", s.ID)
	for i, k := range s.Keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k.String())
	}
	b.WriteByte(']')
	if s.Leaf && s.Next != base.NoNode {
		fmt.Fprintf(&b, "->%d", s.Next)
	}
	return b.String()
}

// Dump writes the tree to w one level per line.
func (idx *Index) Dump(w io.Writer) error {
	levels, err := idx.Snapshot()
	if err != nil {
		return err
	}
	for _, level := range levels {
		nodes := make([]string, len(level.Nodes))
		for i, n := range level.Nodes {
			nodes[i] = n.String()
		}
		if _, err := fmt.Fprintf(w, "%d: %s\n", level.Level, strings.Join(nodes, " ")); err != nil {
			return err
		}
	}
	return nil
}
