package base

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// KeyType tags the domain of the keys stored in one index. It is fixed when
// the index is created and persisted in the meta page.
type KeyType uint8

const (
	KeyInt KeyType = iota + 1
	KeyFloat
	KeyString
	KeyBool
)

// MaxStringKeyLen is the longest string key, in bytes. String keys occupy a
// fixed slot of a 2 byte length prefix plus MaxStringKeyLen bytes.
const MaxStringKeyLen = 62

// Valid reports whether t names a supported key type.
func (t KeyType) Valid() bool {
	return t >= KeyInt && t <= KeyBool
}

// Size returns the width of one serialized key slot.
func (t KeyType) Size() int {
	switch t {
	case KeyInt, KeyFloat:
		return 8
	case KeyString:
		return 2 + MaxStringKeyLen
	case KeyBool:
		return 1
	}
	return 0
}

func (t KeyType) String() string {
	switch t {
	case KeyInt:
		return "int"
	case KeyFloat:
		return "float"
	case KeyString:
		return "string"
	case KeyBool:
		return "bool"
	}
	return "KeyType(" + strconv.Itoa(int(t)) + ")"
}

// Key is a single index key. Keys are plain values; copying a Key copies the
// whole value.
type Key struct {
	typ KeyType
	i   int64
	f   float64
	s   string
	b   bool
}

func IntKey(v int64) Key     { return Key{typ: KeyInt, i: v} }
func FloatKey(v float64) Key { return Key{typ: KeyFloat, f: v} }
func StringKey(v string) Key { return Key{typ: KeyString, s: v} }
func BoolKey(v bool) Key     { return Key{typ: KeyBool, b: v} }

func (k Key) Type() KeyType  { return k.typ }
func (k Key) Int() int64     { return k.i }
func (k Key) Float() float64 { return k.f }
func (k Key) Str() string    { return k.s }
func (k Key) Bool() bool     { return k.b }

// Compare orders two keys of the same type, returning -1, 0 or +1.
// Keys of different types are ordered by type tag.
func (k Key) Compare(o Key) int {
	if k.typ != o.typ {
		return cmp.Compare(k.typ, o.typ)
	}
	switch k.typ {
	case KeyInt:
		return cmp.Compare(k.i, o.i)
	case KeyFloat:
		return cmp.Compare(k.f, o.f)
	case KeyString:
		return cmp.Compare(k.s, o.s)
	case KeyBool:
		switch {
		case k.b == o.b:
			return 0
		case !k.b:
			return -1
		default:
			return 1
		}
	}
	return 0
}

// Less reports whether k sorts before o.
func (k Key) Less(o Key) bool {
	return k.Compare(o) < 0
}

// Validate checks that k can be stored in an index of type t.
func (k Key) Validate(t KeyType) error {
	if k.typ != t {
		return fmt.Errorf("%w: got %s, index holds %s", ErrKeyType, k.typ, t)
	}
	if t == KeyString && len(k.s) > MaxStringKeyLen {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrKeyTooLarge, len(k.s), MaxStringKeyLen)
	}
	return nil
}

func (k Key) String() string {
	switch k.typ {
	case KeyInt:
		return strconv.FormatInt(k.i, 10)
	case KeyFloat:
		return strconv.FormatFloat(k.f, 'g', -1, 64)
	case KeyString:
		return strconv.Quote(k.s)
	case KeyBool:
		return strconv.FormatBool(k.b)
	}
	return "<invalid>"
}

// encode writes k into buf, which must be exactly k.typ.Size() bytes.
func (k Key) encode(buf []byte) {
	clear(buf)
	switch k.typ {
	case KeyInt:
		binary.LittleEndian.PutUint64(buf, uint64(k.i))
	case KeyFloat:
		binary.LittleEndian.PutUint64(buf, math.Float64bits(k.f))
	case KeyString:
		binary.LittleEndian.PutUint16(buf, uint16(len(k.s)))
		copy(buf[2:], k.s)
	case KeyBool:
		if k.b {
			buf[0] = 1
		}
	}
}

func decodeKey(t KeyType, buf []byte) (Key, error) {
	switch t {
	case KeyInt:
		return IntKey(int64(binary.LittleEndian.Uint64(buf))), nil
	case KeyFloat:
		return FloatKey(math.Float64frombits(binary.LittleEndian.Uint64(buf))), nil
	case KeyString:
		n := int(binary.LittleEndian.Uint16(buf))
		if n > MaxStringKeyLen {
			return Key{}, fmt.Errorf("%w: string key length %d", ErrCorruption, n)
		}
		return StringKey(string(buf[2 : 2+n])), nil
	case KeyBool:
		if buf[0] > 1 {
			return Key{}, fmt.Errorf("%w: bool key byte %#x", ErrCorruption, buf[0])
		}
		return BoolKey(buf[0] == 1), nil
	}
	return Key{}, fmt.Errorf("%w: unknown key type %d", ErrCorruption, t)
}
