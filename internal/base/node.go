package base

import (
	"encoding/binary"
	"fmt"
)

const (
	LeafPageFlag     uint8 = 0x01
	InternalPageFlag uint8 = 0x02
	FreePageFlag     uint8 = 0x04
)

// Node represents a B+ tree node decoded from its page.
//
// Leaf nodes hold parallel Keys and RIDs plus a forward link to the next
// leaf. Internal nodes hold separator Keys and len(Keys)+1 Children, where
// Children[i] covers keys >= Keys[i-1] and < Keys[i].
type Node struct {
	ID     PageID
	Leaf   bool
	Dirty  bool
	Parent PageID // NoNode for the root
	Next   PageID // leaf only, NoNode for the last leaf

	Keys     []Key
	RIDs     []RID
	Children []PageID
}

// NewNode returns an empty node with room for order+1 entries, enough to hold
// an overflowing node until it is split.
func NewNode(id PageID, leaf bool, order int) *Node {
	n := &Node{
		ID:   id,
		Leaf: leaf,
		Keys: make([]Key, 0, order+1),
	}
	if leaf {
		n.RIDs = make([]RID, 0, order+1)
	} else {
		n.Children = make([]PageID, 0, order+2)
	}
	return n
}

// NumKeys returns the number of keys held by the node.
func (n *Node) NumKeys() int {
	return len(n.Keys)
}

// Serialize encodes the node into page using the fixed layout for keys of
// type t and the given order.
func (n *Node) Serialize(t KeyType, order int, page *Page) error {
	if len(n.Keys) > order {
		return fmt.Errorf("%w: node %d holds %d keys, order is %d", ErrPageOverflow, n.ID, len(n.Keys), order)
	}
	if n.Leaf && len(n.RIDs) != len(n.Keys) {
		return fmt.Errorf("%w: leaf %d has %d keys and %d rids", ErrCorruption, n.ID, len(n.Keys), len(n.RIDs))
	}
	if !n.Leaf && len(n.Children) != len(n.Keys)+1 {
		return fmt.Errorf("%w: internal %d has %d keys and %d children", ErrCorruption, n.ID, len(n.Keys), len(n.Children))
	}

	clear(page.Data[:])

	h := pageHeader{
		NumKeys: uint16(len(n.Keys)),
		Parent:  uint64(n.Parent),
	}
	if n.Leaf {
		h.Flags = LeafPageFlag
		h.Next = uint64(n.Next)
	} else {
		h.Flags = InternalPageFlag
	}
	if err := page.writeHeader(h); err != nil {
		return err
	}

	ks := t.Size()
	off := NodeHeaderSize
	for i, k := range n.Keys {
		if k.typ != t {
			return fmt.Errorf("%w: node %d key %d", ErrKeyType, n.ID, i)
		}
		k.encode(page.Data[off : off+ks])
		off += ks
	}

	off = NodeHeaderSize + order*ks
	if n.Leaf {
		for _, r := range n.RIDs {
			binary.LittleEndian.PutUint32(page.Data[off:], r.Page)
			binary.LittleEndian.PutUint32(page.Data[off+4:], r.Slot)
			off += RIDSize
		}
	} else {
		for _, c := range n.Children {
			binary.LittleEndian.PutUint64(page.Data[off:], uint64(c))
			off += ChildIDSize
		}
	}

	page.seal()
	return nil
}

// Deserialize decodes page into n. The page must carry a valid checksum, a
// leaf or internal flag, at most order keys in strictly ascending order and,
// for internal nodes, no NoNode children.
func (n *Node) Deserialize(t KeyType, order int, page *Page) error {
	if err := page.verify(); err != nil {
		return err
	}
	h, err := page.readHeader()
	if err != nil {
		return err
	}

	switch h.Flags {
	case LeafPageFlag:
		n.Leaf = true
	case InternalPageFlag:
		n.Leaf = false
	case FreePageFlag:
		return fmt.Errorf("%w: page is on the free list", ErrCorruption)
	default:
		return fmt.Errorf("%w: unknown page flags %#x", ErrCorruption, h.Flags)
	}

	count := int(h.NumKeys)
	if count > order {
		return fmt.Errorf("%w: %d keys exceed order %d", ErrCorruption, count, order)
	}
	if !n.Leaf && count == 0 {
		return fmt.Errorf("%w: internal node without separators", ErrCorruption)
	}

	n.Parent = PageID(h.Parent)
	n.Next = NoNode
	n.Dirty = false

	ks := t.Size()
	n.Keys = make([]Key, count, order+1)
	off := NodeHeaderSize
	for i := 0; i < count; i++ {
		k, err := decodeKey(t, page.Data[off:off+ks])
		if err != nil {
			return err
		}
		if i > 0 && n.Keys[i-1].Compare(k) >= 0 {
			return fmt.Errorf("%w: keys out of order at slot %d", ErrCorruption, i)
		}
		n.Keys[i] = k
		off += ks
	}

	off = NodeHeaderSize + order*ks
	if n.Leaf {
		n.Next = PageID(h.Next)
		n.Children = nil
		n.RIDs = make([]RID, count, order+1)
		for i := 0; i < count; i++ {
			n.RIDs[i] = RID{
				Page: binary.LittleEndian.Uint32(page.Data[off:]),
				Slot: binary.LittleEndian.Uint32(page.Data[off+4:]),
			}
			off += RIDSize
		}
		return nil
	}

	n.RIDs = nil
	n.Children = make([]PageID, count+1, order+2)
	for i := 0; i <= count; i++ {
		c := PageID(binary.LittleEndian.Uint64(page.Data[off:]))
		if c == NoNode {
			return fmt.Errorf("%w: child %d is unset", ErrCorruption, i)
		}
		n.Children[i] = c
		off += ChildIDSize
	}
	return nil
}

// Clone returns a deep copy of the node. The copy shares no slices with n.
func (n *Node) Clone() *Node {
	c := &Node{
		ID:     n.ID,
		Leaf:   n.Leaf,
		Dirty:  n.Dirty,
		Parent: n.Parent,
		Next:   n.Next,
		Keys:   append([]Key(nil), n.Keys...),
	}
	if n.Leaf {
		c.RIDs = append([]RID(nil), n.RIDs...)
	} else {
		c.Children = append([]PageID(nil), n.Children...)
	}
	return c
}
