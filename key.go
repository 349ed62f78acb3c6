package treeidx

import (
	"github.com/alexhholmes/treeidx/internal/base"
)

type (
	// Key is a single index key. Build one with IntKey, FloatKey, StringKey
	// or BoolKey; its type must match the index's KeyType.
	Key = base.Key
	// KeyType is the key domain of an index, fixed at creation.
	KeyType = base.KeyType
	// RID locates a record in the heap file the index points into.
	RID = base.RID
	// PageID is the page number of a node in the index file.
	PageID = base.PageID
)

const (
	KeyInt    = base.KeyInt
	KeyFloat  = base.KeyFloat
	KeyString = base.KeyString
	KeyBool   = base.KeyBool
)

const (
	// MaxStringKeyLen is the longest string key, in bytes.
	MaxStringKeyLen = base.MaxStringKeyLen

	// MinOrder is the smallest supported tree order.
	MinOrder = base.MinOrder

	// PageSize is the size of every page in an index file.
	PageSize = base.PageSize
)

func IntKey(v int64) Key     { return base.IntKey(v) }
func FloatKey(v float64) Key { return base.FloatKey(v) }
func StringKey(v string) Key { return base.StringKey(v) }
func BoolKey(v bool) Key     { return base.BoolKey(v) }

// MaxOrder returns the largest order whose nodes fit one page for keys of
// type t, or 0 if t is not a supported key type.
func MaxOrder(t KeyType) int {
	return base.MaxOrder(t)
}
