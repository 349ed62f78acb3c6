package algo

import (
	"testing"

	"github.com/alexhholmes/treeidx/internal/base"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intKeys(vals ...int64) []base.Key {
	keys := make([]base.Key, len(vals))
	for i, v := range vals {
		keys[i] = base.IntKey(v)
	}
	return keys
}

func makeLeafNode(id base.PageID, order int, vals ...int64) *base.Node {
	n := base.NewNode(id, true, order)
	for _, v := range vals {
		n.Keys = append(n.Keys, base.IntKey(v))
		n.RIDs = append(n.RIDs, base.RID{Page: uint32(v), Slot: 1})
	}
	return n
}

func makeBranchNode(id base.PageID, order int, keys []int64, children ...base.PageID) *base.Node {
	n := base.NewNode(id, false, order)
	n.Keys = append(n.Keys, intKeys(keys...)...)
	n.Children = append(n.Children, children...)
	return n
}

func TestChildIndex(t *testing.T) {
	keys := intKeys(10, 20)
	tests := []struct {
		name string
		key  int64
		want int
	}{
		{"key_less_than_first", 5, 0},
		{"key_equal_first", 10, 1},
		{"key_between_keys", 15, 1},
		{"key_equal_last", 20, 2},
		{"key_greater_than_all", 99, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChildIndex(keys, base.IntKey(tt.key)))
		})
	}

	assert.Equal(t, 0, ChildIndex(nil, base.IntKey(1)), "empty node")
}

func TestSearch(t *testing.T) {
	keys := intKeys(1, 3, 5)

	pos, found := Search(keys, base.IntKey(3))
	assert.Equal(t, 1, pos)
	assert.True(t, found)

	pos, found = Search(keys, base.IntKey(4))
	assert.Equal(t, 2, pos)
	assert.False(t, found)

	pos, found = Search(keys, base.IntKey(9))
	assert.Equal(t, 3, pos)
	assert.False(t, found)

	pos, found = Search(nil, base.IntKey(9))
	assert.Equal(t, 0, pos)
	assert.False(t, found)
}

// Above searchThreshold both helpers switch to binary search; results must
// agree with the linear scan.
func TestSearchLargeNode(t *testing.T) {
	vals := make([]int64, 100)
	for i := range vals {
		vals[i] = int64(i * 2)
	}
	keys := intKeys(vals...)

	for probe := int64(-1); probe <= 200; probe++ {
		pos, found := Search(keys, base.IntKey(probe))
		wantPos := 0
		for wantPos < len(vals) && vals[wantPos] < probe {
			wantPos++
		}
		require.Equal(t, wantPos, pos, "probe %d", probe)
		assert.Equal(t, probe >= 0 && probe < 200 && probe%2 == 0, found, "probe %d", probe)

		wantChild := 0
		for wantChild < len(vals) && vals[wantChild] <= probe {
			wantChild++
		}
		require.Equal(t, wantChild, ChildIndex(keys, base.IntKey(probe)), "probe %d", probe)
	}
}

func TestFillBounds(t *testing.T) {
	for order := base.MinOrder; order <= 64; order++ {
		minLeaf := MinLeafEntries(order)
		minChildren := MinChildren(order)
		mid := SplitIndex(order)

		// Leaf split of order+1 entries.
		assert.GreaterOrEqual(t, mid, minLeaf, "order %d left leaf", order)
		assert.GreaterOrEqual(t, order+1-mid, minLeaf, "order %d right leaf", order)
		assert.LessOrEqual(t, order+1-mid, order, "order %d right leaf", order)

		// Internal split of order+1 keys and order+2 children.
		assert.GreaterOrEqual(t, mid+1, minChildren, "order %d left internal", order)
		assert.GreaterOrEqual(t, order+1-mid, minChildren, "order %d right internal", order)

		// Merges of an underfull node with a minimal sibling fit.
		assert.LessOrEqual(t, 2*minLeaf-1, order, "order %d leaf merge", order)
		assert.LessOrEqual(t, 2*minChildren-2, order, "order %d internal merge keys", order)

		assert.GreaterOrEqual(t, minChildren, 2, "order %d", order)
	}
}

func TestUnderflowAndCanLend(t *testing.T) {
	leaf := makeLeafNode(1, 4, 1)
	assert.True(t, Underflow(leaf, 4))
	leaf = makeLeafNode(1, 4, 1, 2)
	assert.False(t, Underflow(leaf, 4))
	assert.False(t, CanLend(leaf, 4))
	leaf = makeLeafNode(1, 4, 1, 2, 3)
	assert.True(t, CanLend(leaf, 4))

	branch := makeBranchNode(1, 4, []int64{10}, 2, 3)
	assert.True(t, Underflow(branch, 4), "order 4 internal needs 3 children")
	branch = makeBranchNode(1, 3, []int64{10}, 2, 3)
	assert.False(t, Underflow(branch, 3))
	assert.False(t, CanLend(branch, 3))
}

func TestInsertRemoveAt(t *testing.T) {
	s := []int{1, 2, 4}
	s = InsertAt(s, 2, 3)
	assert.Equal(t, []int{1, 2, 3, 4}, s)
	s = InsertAt(s, 0, 0)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, s)
	s = InsertAt(s, len(s), 5)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, s)

	s = RemoveAt(s, 0)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, s)
	s = RemoveAt(s, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, s)
	s = RemoveAt(s, 1)
	assert.Equal(t, []int{1, 3, 4}, s)
}
