package treeidx

import (
	"fmt"

	"github.com/alexhholmes/treeidx/internal/algo"
	"github.com/alexhholmes/treeidx/internal/base"
)

// insert adds key to the leaf covering it and splits overflowing nodes
// upward along the descent path.
func (t *tree) insert(key base.Key, rid base.RID) error {
	leaf, path, err := t.descend(key)
	if err != nil {
		return err
	}

	pos, found := algo.Search(leaf.Keys, key)
	if found {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}
	algo.ApplyLeafInsert(leaf, pos, key, rid)
	t.p.AddEntries(1)

	order := t.p.Order()
	if len(leaf.Keys) <= order {
		return nil
	}

	right, err := t.p.Allocate(true)
	if err != nil {
		return err
	}
	sep := algo.SplitLeaf(leaf, right, order)
	return t.promote(path, leaf, right, sep)
}

// promote inserts sep and right into the parent of left, splitting parents
// that overflow in turn. When the root itself splits the tree grows a level.
func (t *tree) promote(path []pathElem, left, right *base.Node, sep base.Key) error {
	order := t.p.Order()

	for i := len(path) - 1; i >= 0; i-- {
		parent := path[i].node
		algo.ApplyChildSplit(parent, path[i].index, sep, right.ID)
		right.Parent = parent.ID
		if len(parent.Keys) <= order {
			return nil
		}

		sibling, err := t.p.Allocate(false)
		if err != nil {
			return err
		}
		sep = algo.SplitInternal(parent, sibling, order)
		if err := t.reparent(sibling.Children, sibling.ID); err != nil {
			return err
		}
		left, right = parent, sibling
	}

	return t.growRoot(left, right, sep)
}

// growRoot puts a new internal root above the two halves of the old one.
func (t *tree) growRoot(left, right *base.Node, sep base.Key) error {
	root, err := t.p.Allocate(false)
	if err != nil {
		return err
	}
	algo.ApplyNewRoot(root, left.ID, right.ID, sep)

	left.Parent = root.ID
	left.Dirty = true
	right.Parent = root.ID
	right.Dirty = true

	height := t.p.Height() + 1
	t.p.SetRoot(root.ID, height)
	t.log.Info("root split", "root", root.ID, "height", height)
	return nil
}
