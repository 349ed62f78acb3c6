// Package algo contains algorithms used for traversing and editing a b+ tree.
package algo

import (
	"sort"

	"github.com/alexhholmes/treeidx/internal/base"
)

const searchThreshold = 32

// ChildIndex returns the index of the child pointer to follow for key: the
// number of separators less than or equal to key.
func ChildIndex(keys []base.Key, key base.Key) int {
	if len(keys) < searchThreshold {
		i := 0
		for i < len(keys) && key.Compare(keys[i]) >= 0 {
			i++
		}
		return i
	}

	return sort.Search(len(keys), func(i int) bool {
		return key.Compare(keys[i]) < 0
	})
}

// Search returns the position of the first key >= key and whether that key
// equals key. The position is where key belongs when it is absent.
func Search(keys []base.Key, key base.Key) (int, bool) {
	var pos int
	if len(keys) < searchThreshold {
		for pos < len(keys) && key.Compare(keys[pos]) > 0 {
			pos++
		}
	} else {
		pos = sort.Search(len(keys), func(i int) bool {
			return key.Compare(keys[i]) <= 0
		})
	}
	return pos, pos < len(keys) && key.Compare(keys[pos]) == 0
}

// UpperBound returns the position of the first key > key.
func UpperBound(keys []base.Key, key base.Key) int {
	return ChildIndex(keys, key)
}

// Fill bounds for an index of order n. A leaf holds at most n entries and an
// internal node at most n separators (n+1 children).
//
//	leaf minimum:      ceil(n/2) entries
//	internal minimum:  ceil((n+1)/2) children
//	split position:    ceil(n/2)
//
// Every split of an overflowing node yields two halves at or above the
// minimum, and every merge of an underfull node with a minimal sibling fits
// in one node.

// MinLeafEntries returns the fewest entries a non-root leaf may hold.
func MinLeafEntries(order int) int {
	return (order + 1) / 2
}

// MinChildren returns the fewest children a non-root internal node may hold.
func MinChildren(order int) int {
	return (order + 2) / 2
}

// SplitIndex returns where an overflowing node of order+1 keys is divided.
// For a leaf it is the first entry moved right; for an internal node it is
// the separator promoted to the parent.
func SplitIndex(order int) int {
	return (order + 1) / 2
}

// Underflow reports whether a non-root node holds fewer entries than allowed.
func Underflow(n *base.Node, order int) bool {
	if n.Leaf {
		return len(n.Keys) < MinLeafEntries(order)
	}
	return len(n.Children) < MinChildren(order)
}

// CanLend reports whether n can give one entry to a sibling and stay at or
// above the minimum.
func CanLend(n *base.Node, order int) bool {
	if n.Leaf {
		return len(n.Keys) > MinLeafEntries(order)
	}
	return len(n.Children) > MinChildren(order)
}

// InsertAt inserts v at index i.
func InsertAt[T any](s []T, i int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// RemoveAt removes the element at index i.
func RemoveAt[T any](s []T, i int) []T {
	copy(s[i:], s[i+1:])
	var zero T
	s[len(s)-1] = zero
	return s[:len(s)-1]
}
