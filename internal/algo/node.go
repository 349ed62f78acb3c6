package algo

import (
	"github.com/alexhholmes/treeidx/internal/base"
)

// ApplyLeafInsert inserts a key and RID at pos.
func ApplyLeafInsert(node *base.Node, pos int, key base.Key, rid base.RID) {
	node.Keys = InsertAt(node.Keys, pos, key)
	node.RIDs = InsertAt(node.RIDs, pos, rid)
	node.Dirty = true
}

// ApplyLeafDelete removes the entry at idx.
func ApplyLeafDelete(node *base.Node, idx int) {
	node.Keys = RemoveAt(node.Keys, idx)
	node.RIDs = RemoveAt(node.RIDs, idx)
	node.Dirty = true
}

// ApplyChildSplit records that the child at childIdx was split: sep is
// inserted at childIdx and right becomes child childIdx+1.
func ApplyChildSplit(parent *base.Node, childIdx int, sep base.Key, right base.PageID) {
	parent.Keys = InsertAt(parent.Keys, childIdx, sep)
	parent.Children = InsertAt(parent.Children, childIdx+1, right)
	parent.Dirty = true
}

// ApplyBranchRemoveSeparator removes the separator at sepIdx and the child
// to its right, after that child was merged into its left neighbour.
func ApplyBranchRemoveSeparator(node *base.Node, sepIdx int) {
	node.Keys = RemoveAt(node.Keys, sepIdx)
	node.Children = RemoveAt(node.Children, sepIdx+1)
	node.Dirty = true
}

// ApplyNewRoot fills root, an empty internal node, with sep as the single
// separator over left and right.
func ApplyNewRoot(root *base.Node, left, right base.PageID, sep base.Key) {
	root.Keys = append(root.Keys[:0], sep)
	root.Children = append(root.Children[:0], left, right)
	root.Dirty = true
}

// SplitLeaf moves the upper half of an overflowing leaf into right, an empty
// leaf, and links right after node. It returns the separator for the parent:
// the first key of right.
func SplitLeaf(node, right *base.Node, order int) base.Key {
	mid := SplitIndex(order)

	right.Keys = append(right.Keys[:0], node.Keys[mid:]...)
	right.RIDs = append(right.RIDs[:0], node.RIDs[mid:]...)
	clear(node.Keys[mid:])
	node.Keys = node.Keys[:mid]
	node.RIDs = node.RIDs[:mid]

	right.Next = node.Next
	node.Next = right.ID
	right.Parent = node.Parent

	node.Dirty = true
	right.Dirty = true
	return right.Keys[0]
}

// SplitInternal moves the separators above the split index and their
// children into right, an empty internal node, and returns the promoted
// separator. The caller must repoint the parent of every child in
// right.Children.
func SplitInternal(node, right *base.Node, order int) base.Key {
	m := SplitIndex(order)
	sep := node.Keys[m]

	right.Keys = append(right.Keys[:0], node.Keys[m+1:]...)
	right.Children = append(right.Children[:0], node.Children[m+1:]...)
	clear(node.Keys[m:])
	node.Keys = node.Keys[:m]
	node.Children = node.Children[:m+1]

	right.Parent = node.Parent

	node.Dirty = true
	right.Dirty = true
	return sep
}

// BorrowFromLeft moves the last entry of left to the front of node and
// updates the separator between them at parent.Keys[sepIdx]. For internal
// nodes it returns the child that changed parent, otherwise NoNode.
func BorrowFromLeft(node, left, parent *base.Node, sepIdx int) base.PageID {
	moved := base.NoNode
	last := len(left.Keys) - 1

	if node.Leaf {
		node.Keys = InsertAt(node.Keys, 0, left.Keys[last])
		node.RIDs = InsertAt(node.RIDs, 0, left.RIDs[last])
		left.Keys = RemoveAt(left.Keys, last)
		left.RIDs = RemoveAt(left.RIDs, last)

		parent.Keys[sepIdx] = node.Keys[0]
	} else {
		// Rotate through the parent: separator comes down, left's last key
		// goes up.
		moved = left.Children[len(left.Children)-1]
		node.Keys = InsertAt(node.Keys, 0, parent.Keys[sepIdx])
		node.Children = InsertAt(node.Children, 0, moved)

		parent.Keys[sepIdx] = left.Keys[last]
		left.Keys = RemoveAt(left.Keys, last)
		left.Children = RemoveAt(left.Children, len(left.Children)-1)
	}

	node.Dirty = true
	left.Dirty = true
	parent.Dirty = true
	return moved
}

// BorrowFromRight moves the first entry of right to the end of node and
// updates the separator between them at parent.Keys[sepIdx]. For internal
// nodes it returns the child that changed parent, otherwise NoNode.
func BorrowFromRight(node, right, parent *base.Node, sepIdx int) base.PageID {
	moved := base.NoNode

	if node.Leaf {
		node.Keys = append(node.Keys, right.Keys[0])
		node.RIDs = append(node.RIDs, right.RIDs[0])
		right.Keys = RemoveAt(right.Keys, 0)
		right.RIDs = RemoveAt(right.RIDs, 0)

		parent.Keys[sepIdx] = right.Keys[0]
	} else {
		moved = right.Children[0]
		node.Keys = append(node.Keys, parent.Keys[sepIdx])
		node.Children = append(node.Children, moved)

		parent.Keys[sepIdx] = right.Keys[0]
		right.Keys = RemoveAt(right.Keys, 0)
		right.Children = RemoveAt(right.Children, 0)
	}

	node.Dirty = true
	right.Dirty = true
	parent.Dirty = true
	return moved
}

// MergeNodes appends right to left. Internal merges pull the separator down
// from the parent. Leaf merges take over right's forward link. The caller
// removes the separator from the parent, repoints moved children and frees
// right.
func MergeNodes(left, right *base.Node, sep base.Key) {
	if left.Leaf {
		left.Keys = append(left.Keys, right.Keys...)
		left.RIDs = append(left.RIDs, right.RIDs...)
		left.Next = right.Next
	} else {
		left.Keys = append(left.Keys, sep)
		left.Keys = append(left.Keys, right.Keys...)
		left.Children = append(left.Children, right.Children...)
	}

	right.Keys = right.Keys[:0]
	right.RIDs = right.RIDs[:0]
	right.Children = right.Children[:0]

	left.Dirty = true
	right.Dirty = true
}
