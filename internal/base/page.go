package base

import (
	"encoding/binary"
	"fmt"

	"github.com/NVIDIA/cstruct"
	"github.com/cespare/xxhash/v2"
)

const (
	PageSize = 4096

	// MagicNumber for file format identification ("tidx" in hex)
	MagicNumber uint32 = 0x74696478

	FormatVersion uint16 = 1

	// MinOrder is the smallest order for which every split yields two
	// non-empty nodes.
	MinOrder = 3

	NodeHeaderSize = 32 // Flags(1) + Reserved(1) + NumKeys(2) + Reserved(4) + Parent(8) + Next(8) + Checksum(8)
	ChildIDSize    = 8
	RIDSize        = 8

	checksumOffset = 24
)

// PageID is the page number of a block in the page store. Node identifiers
// are the page numbers holding them.
type PageID uint64

const (
	// MetaPageID holds the serialized Meta.
	MetaPageID PageID = 0

	// NoNode marks an absent parent or forward link. Page 0 is the meta
	// page, so no node can ever have this id.
	NoNode PageID = 0
)

// Page is a raw disk page.
//
// NODE PAGE LAYOUT (fixed width, little endian):
// ┌─────────────────────────────────────────────────────────────────────┐
// │ Header (32 bytes)                                                   │
// │ Flags, Reserved, NumKeys, Reserved, Parent, Next, Checksum          │
// ├─────────────────────────────────────────────────────────────────────┤
// │ Key[0] .. Key[order-1]  (order * KeyType.Size() bytes)              │
// ├─────────────────────────────────────────────────────────────────────┤
// │ Leaf:     RID[0] .. RID[order-1]       (order * 8 bytes)            │
// │ Internal: Child[0] .. Child[order]     ((order+1) * 8 bytes)        │
// └─────────────────────────────────────────────────────────────────────┘
//
// FREE PAGE LAYOUT: header with FreePageFlag; Next links to the next free
// page or NoNode.
//
// META PAGE LAYOUT (page 0): packed Meta at offset 0.
type Page struct {
	Data [PageSize]byte
}

// RID locates a record in the heap file the index points into.
type RID struct {
	Page uint32
	Slot uint32
}

func (r RID) String() string {
	return fmt.Sprintf("(%d,%d)", r.Page, r.Slot)
}

// MaxOrder returns the largest order whose internal node still fits in one
// page for keys of type t.
func MaxOrder(t KeyType) int {
	if !t.Valid() {
		return 0
	}
	return (PageSize - NodeHeaderSize - ChildIDSize) / (t.Size() + ChildIDSize)
}

// ValidateOrder checks order against MinOrder and the page capacity for t.
func ValidateOrder(t KeyType, order int) error {
	if order < MinOrder {
		return fmt.Errorf("%w: order %d is below minimum %d", ErrInvalidOrder, order, MinOrder)
	}
	if limit := MaxOrder(t); order > limit {
		return fmt.Errorf("%w: order %d exceeds page capacity %d for %s keys", ErrInvalidOrder, order, limit, t)
	}
	return nil
}

// Meta is the persistent tree header stored in page 0.
// Layout: [Magic: 4][Version: 2][PageSize: 2][KeyType: 1][Reserved: 3][Order: 4]
// [Root: 8][Height: 8][NodeCount: 8][EntryCount: 8][NextPage: 8][FreeHead: 8]
// [FreeCount: 8][Checksum: 8]
// Total: 80 bytes
type Meta struct {
	Magic      uint32
	Version    uint16
	PageSize   uint16
	KeyType    uint8
	Reserved   [3]uint8
	Order      uint32
	Root       PageID
	Height     uint64 // levels from root to leaf, 1 for a leaf root
	NodeCount  uint64 // live nodes
	EntryCount uint64 // (key, RID) pairs across all leaves
	NextPage   PageID // first page never handed out
	FreeHead   PageID // head of the free page chain
	FreeCount  uint64
	Checksum   uint64
}

// NewMeta returns the header for a fresh index. Root and counters are set
// when the first leaf is allocated.
func NewMeta(t KeyType, order int) Meta {
	return Meta{
		Magic:    MagicNumber,
		Version:  FormatVersion,
		PageSize: PageSize,
		KeyType:  uint8(t),
		Order:    uint32(order),
		NextPage: MetaPageID + 1,
	}
}

// CalculateChecksum hashes every field except Checksum itself.
func (m *Meta) CalculateChecksum() (uint64, error) {
	tmp := *m
	tmp.Checksum = 0
	buf, err := cstruct.Pack(tmp, cstruct.LittleEndian)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(buf), nil
}

// Validate checks if the metadata is valid
func (m *Meta) Validate() error {
	if m.Magic != MagicNumber {
		return ErrInvalidMagicNumber
	}
	if m.Version != FormatVersion {
		return ErrInvalidVersion
	}
	if m.PageSize != PageSize {
		return ErrInvalidPageSize
	}
	sum, err := m.CalculateChecksum()
	if err != nil {
		return err
	}
	if m.Checksum != sum {
		return ErrInvalidChecksum
	}
	t := KeyType(m.KeyType)
	if !t.Valid() {
		return fmt.Errorf("%w: unknown key type %d", ErrCorruption, m.KeyType)
	}
	if err := ValidateOrder(t, int(m.Order)); err != nil {
		return fmt.Errorf("%w: %w", ErrCorruption, err)
	}
	if m.Root == NoNode || m.Root >= m.NextPage {
		return fmt.Errorf("%w: root %d outside allocated pages", ErrCorruption, m.Root)
	}
	return nil
}

// WriteMeta stamps the checksum on m and packs it into the page.
func (p *Page) WriteMeta(m *Meta) error {
	sum, err := m.CalculateChecksum()
	if err != nil {
		return err
	}
	m.Checksum = sum
	buf, err := cstruct.Pack(*m, cstruct.LittleEndian)
	if err != nil {
		return err
	}
	clear(p.Data[:])
	copy(p.Data[:], buf)
	return nil
}

// ReadMeta unpacks and validates the meta page.
func (p *Page) ReadMeta() (Meta, error) {
	var m Meta
	if _, err := cstruct.Unpack(p.Data[:], &m, cstruct.LittleEndian); err != nil {
		return Meta{}, fmt.Errorf("%w: %w", ErrCorruption, err)
	}
	if err := m.Validate(); err != nil {
		return Meta{}, err
	}
	return m, nil
}

// pageHeader is the packed prefix of every node and free page.
type pageHeader struct {
	Flags     uint8
	Reserved  uint8
	NumKeys   uint16
	Reserved2 uint32
	Parent    uint64
	Next      uint64
	Checksum  uint64
}

func (p *Page) writeHeader(h pageHeader) error {
	h.Checksum = 0
	buf, err := cstruct.Pack(h, cstruct.LittleEndian)
	if err != nil {
		return err
	}
	copy(p.Data[:NodeHeaderSize], buf)
	return nil
}

func (p *Page) readHeader() (pageHeader, error) {
	var h pageHeader
	if _, err := cstruct.Unpack(p.Data[:NodeHeaderSize], &h, cstruct.LittleEndian); err != nil {
		return pageHeader{}, fmt.Errorf("%w: %w", ErrCorruption, err)
	}
	return h, nil
}

// checksum hashes the page with the checksum field treated as zero.
func (p *Page) checksum() uint64 {
	var zero [8]byte
	d := xxhash.New()
	_, _ = d.Write(p.Data[:checksumOffset])
	_, _ = d.Write(zero[:])
	_, _ = d.Write(p.Data[checksumOffset+8:])
	return d.Sum64()
}

func (p *Page) seal() {
	binary.LittleEndian.PutUint64(p.Data[checksumOffset:], p.checksum())
}

func (p *Page) verify() error {
	stored := binary.LittleEndian.Uint64(p.Data[checksumOffset:])
	if stored != p.checksum() {
		return ErrInvalidChecksum
	}
	return nil
}

// WriteFree formats p as a free page linked to next.
func (p *Page) WriteFree(next PageID) error {
	clear(p.Data[:])
	if err := p.writeHeader(pageHeader{Flags: FreePageFlag, Next: uint64(next)}); err != nil {
		return err
	}
	p.seal()
	return nil
}

// ReadFree returns the successor of a free page. A page that is not a valid
// free page is reported as corruption.
func (p *Page) ReadFree() (PageID, error) {
	if err := p.verify(); err != nil {
		return NoNode, err
	}
	h, err := p.readHeader()
	if err != nil {
		return NoNode, err
	}
	if h.Flags != FreePageFlag {
		return NoNode, fmt.Errorf("%w: page flags %#x on free list", ErrCorruption, h.Flags)
	}
	return PageID(h.Next), nil
}
