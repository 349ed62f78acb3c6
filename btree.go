package treeidx

import (
	"fmt"

	"github.com/alexhholmes/treeidx/internal/algo"
	"github.com/alexhholmes/treeidx/internal/base"
	"github.com/alexhholmes/treeidx/internal/pager"
)

// tree runs the B+ tree algorithms over nodes served by the pager. Every
// method must be called inside a pager operation.
type tree struct {
	p   *pager.Pager
	log Logger
}

// pathElem records one internal node on the way down and the child taken.
type pathElem struct {
	node  *base.Node
	index int
}

func (t *tree) root() (*base.Node, error) {
	root, err := t.p.Load(t.p.Root())
	if err != nil {
		return nil, err
	}
	if root.Parent != base.NoNode {
		return nil, fmt.Errorf("%w: root %d has parent %d", ErrCorruption, root.ID, root.Parent)
	}
	return root, nil
}

// loadChild loads parent.Children[i] and checks that it links back.
func (t *tree) loadChild(parent *base.Node, i int) (*base.Node, error) {
	child, err := t.p.Load(parent.Children[i])
	if err != nil {
		return nil, err
	}
	if child.Parent != parent.ID {
		return nil, fmt.Errorf("%w: node %d is child %d of %d but links to parent %d",
			ErrCorruption, child.ID, i, parent.ID, child.Parent)
	}
	return child, nil
}

// descend walks from the root to the leaf whose range covers key, following
// the child that holds the count of separators <= key. It returns the leaf
// and the internal nodes visited on the way.
func (t *tree) descend(key base.Key) (*base.Node, []pathElem, error) {
	return t.walkDown(func(n *base.Node) int {
		return algo.ChildIndex(n.Keys, key)
	})
}

// descendFirst walks to the leftmost leaf.
func (t *tree) descendFirst() (*base.Node, error) {
	leaf, _, err := t.walkDown(func(*base.Node) int { return 0 })
	return leaf, err
}

func (t *tree) walkDown(pick func(n *base.Node) int) (*base.Node, []pathElem, error) {
	height := t.p.Height()
	node, err := t.root()
	if err != nil {
		return nil, nil, err
	}

	path := make([]pathElem, 0, height)
	for depth := 1; !node.Leaf; depth++ {
		if depth >= height {
			return nil, nil, fmt.Errorf("%w: internal node %d at depth %d, tree height is %d",
				ErrCorruption, node.ID, depth, height)
		}
		i := pick(node)
		child, err := t.loadChild(node, i)
		if err != nil {
			return nil, nil, err
		}
		path = append(path, pathElem{node: node, index: i})
		node = child
	}

	if len(path)+1 != height {
		return nil, nil, fmt.Errorf("%w: leaf %d at depth %d, tree height is %d",
			ErrCorruption, node.ID, len(path)+1, height)
	}
	return node, path, nil
}

// find returns the RID stored for key.
func (t *tree) find(key base.Key) (base.RID, error) {
	leaf, _, err := t.descend(key)
	if err != nil {
		return base.RID{}, err
	}
	i, found := algo.Search(leaf.Keys, key)
	if !found {
		return base.RID{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return leaf.RIDs[i], nil
}

// reparent points the parent link of every node in ids at parent.
func (t *tree) reparent(ids []base.PageID, parent base.PageID) error {
	for _, id := range ids {
		if err := t.adopt(id, parent); err != nil {
			return err
		}
	}
	return nil
}

func (t *tree) adopt(id, parent base.PageID) error {
	if id == base.NoNode {
		return nil
	}
	child, err := t.p.Load(id)
	if err != nil {
		return err
	}
	if child.Parent != parent {
		child.Parent = parent
		child.Dirty = true
	}
	return nil
}
