package treeidx

import (
	"fmt"

	"github.com/alexhholmes/treeidx/internal/algo"
	"github.com/alexhholmes/treeidx/internal/base"
)

// delete removes key from its leaf, then restores the fill of every node on
// the descent path that dropped below the minimum.
func (t *tree) delete(key base.Key) error {
	leaf, path, err := t.descend(key)
	if err != nil {
		return err
	}

	i, found := algo.Search(leaf.Keys, key)
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	algo.ApplyLeafDelete(leaf, i)
	t.p.AddEntries(-1)

	return t.rebalance(leaf, path)
}

// rebalance walks up from node. A borrow ends the walk; a merge removes a
// separator from the parent, which is checked next.
func (t *tree) rebalance(node *base.Node, path []pathElem) error {
	order := t.p.Order()

	for level := len(path) - 1; level >= 0; level-- {
		if !algo.Underflow(node, order) {
			return nil
		}
		parent := path[level].node
		merged, err := t.fixUnderflow(node, parent, path[level].index)
		if err != nil || !merged {
			return err
		}
		node = parent
	}

	return t.shrinkRoot(node)
}

// fixUnderflow refills node, child idx of parent: borrow from the left
// sibling, borrow from the right sibling, merge into the left sibling, or
// merge the right sibling in, whichever comes first. It reports whether a
// merge took place.
func (t *tree) fixUnderflow(node, parent *base.Node, idx int) (bool, error) {
	order := t.p.Order()

	var left, right *base.Node
	var err error

	if idx > 0 {
		if left, err = t.loadChild(parent, idx-1); err != nil {
			return false, err
		}
		if algo.CanLend(left, order) {
			moved := algo.BorrowFromLeft(node, left, parent, idx-1)
			return false, t.adopt(moved, node.ID)
		}
	}
	if idx+1 < len(parent.Children) {
		if right, err = t.loadChild(parent, idx+1); err != nil {
			return false, err
		}
		if algo.CanLend(right, order) {
			moved := algo.BorrowFromRight(node, right, parent, idx)
			return false, t.adopt(moved, node.ID)
		}
	}

	switch {
	case left != nil:
		return true, t.merge(left, node, parent, idx-1)
	case right != nil:
		return true, t.merge(node, right, parent, idx)
	}
	return false, fmt.Errorf("%w: node %d has no siblings under %d", ErrCorruption, node.ID, parent.ID)
}

// merge folds right into left, drops their separator from parent and frees
// right.
func (t *tree) merge(left, right, parent *base.Node, sepIdx int) error {
	moved := len(left.Children)
	algo.MergeNodes(left, right, parent.Keys[sepIdx])
	if !left.Leaf {
		if err := t.reparent(left.Children[moved:], left.ID); err != nil {
			return err
		}
	}
	algo.ApplyBranchRemoveSeparator(parent, sepIdx)
	t.p.Free(right)
	return nil
}

// shrinkRoot promotes the only child of an internal root.
func (t *tree) shrinkRoot(root *base.Node) error {
	if root.Leaf || len(root.Children) > 1 {
		return nil
	}

	child, err := t.loadChild(root, 0)
	if err != nil {
		return err
	}
	child.Parent = base.NoNode
	child.Dirty = true
	t.p.Free(root)

	height := t.p.Height() - 1
	t.p.SetRoot(child.ID, height)
	t.log.Info("root collapsed", "root", child.ID, "height", height)
	return nil
}
