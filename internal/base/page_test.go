package base

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMeta() Meta {
	m := NewMeta(KeyInt, 4)
	m.Root = 1
	m.Height = 1
	m.NodeCount = 1
	m.NextPage = 2
	return m
}

func TestMetaRoundTrip(t *testing.T) {
	t.Parallel()

	meta := newTestMeta()
	meta.EntryCount = 17
	meta.FreeHead = 1
	meta.FreeCount = 1

	var page Page
	require.NoError(t, page.WriteMeta(&meta))
	assert.NotZero(t, meta.Checksum, "WriteMeta stamps the checksum")

	read, err := page.ReadMeta()
	require.NoError(t, err)
	assert.Equal(t, meta, read)
}

func TestMetaValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(m *Meta)
		want   error
	}{
		{"magic", func(m *Meta) { m.Magic = 0xDEADBEEF }, ErrInvalidMagicNumber},
		{"version", func(m *Meta) { m.Version = 99 }, ErrInvalidVersion},
		{"page size", func(m *Meta) { m.PageSize = 512 }, ErrInvalidPageSize},
		{"key type", func(m *Meta) { m.KeyType = 77 }, ErrCorruption},
		{"order", func(m *Meta) { m.Order = 2 }, ErrInvalidOrder},
		{"root", func(m *Meta) { m.Root = 5 }, ErrCorruption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := newTestMeta()
			tt.mutate(&meta)

			var page Page
			require.NoError(t, page.WriteMeta(&meta))
			_, err := page.ReadMeta()
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrCorruption)
		})
	}
}

func TestMetaChecksumMismatch(t *testing.T) {
	t.Parallel()

	meta := newTestMeta()
	var page Page
	require.NoError(t, page.WriteMeta(&meta))

	// EntryCount lives at offset 40; flip one of its bytes.
	page.Data[40] ^= 0x01
	_, err := page.ReadMeta()
	assert.ErrorIs(t, err, ErrInvalidChecksum)
}

func TestValidateOrder(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, ValidateOrder(KeyInt, 2), ErrInvalidOrder)
	assert.NoError(t, ValidateOrder(KeyInt, 3))
	assert.NoError(t, ValidateOrder(KeyInt, MaxOrder(KeyInt)))
	assert.ErrorIs(t, ValidateOrder(KeyInt, MaxOrder(KeyInt)+1), ErrInvalidOrder)

	for _, kt := range []KeyType{KeyInt, KeyFloat, KeyString, KeyBool} {
		order := MaxOrder(kt)
		size := NodeHeaderSize + order*kt.Size() + (order+1)*ChildIDSize
		assert.LessOrEqual(t, size, PageSize, "internal node of max order must fit for %s", kt)
	}
}

func TestMaxOrderFitsOnePage(t *testing.T) {
	t.Parallel()

	order := MaxOrder(KeyString)
	n := NewNode(1, false, order)
	for i := 0; i < order; i++ {
		n.Keys = append(n.Keys, StringKey(padInt(i)))
	}
	for i := 0; i <= order; i++ {
		n.Children = append(n.Children, PageID(i+1))
	}

	var page Page
	require.NoError(t, n.Serialize(KeyString, order, &page))

	decoded := &Node{}
	require.NoError(t, decoded.Deserialize(KeyString, order, &page))
	assert.Equal(t, n.Keys, decoded.Keys)
	assert.Equal(t, n.Children, decoded.Children)
}

func padInt(i int) string {
	const digits = "0123456789"
	buf := []byte("00000")
	for p := len(buf) - 1; p >= 0 && i > 0; p-- {
		buf[p] = digits[i%10]
		i /= 10
	}
	return string(buf)
}

func TestKeyCompare(t *testing.T) {
	t.Parallel()

	assert.Equal(t, -1, IntKey(-3).Compare(IntKey(2)))
	assert.Equal(t, 0, IntKey(2).Compare(IntKey(2)))
	assert.Equal(t, 1, StringKey("b").Compare(StringKey("a")))
	assert.Equal(t, -1, BoolKey(false).Compare(BoolKey(true)))
	assert.Equal(t, -1, FloatKey(math.NaN()).Compare(FloatKey(math.Inf(-1))), "NaN sorts first")
	assert.Equal(t, 0, FloatKey(math.NaN()).Compare(FloatKey(math.NaN())))
	assert.True(t, IntKey(1).Less(IntKey(2)))
}

func TestKeyValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, IntKey(1).Validate(KeyInt))
	assert.ErrorIs(t, StringKey("x").Validate(KeyInt), ErrKeyType)
	assert.ErrorIs(t, Key{}.Validate(KeyInt), ErrKeyType)

	long := make([]byte, MaxStringKeyLen+1)
	assert.ErrorIs(t, StringKey(string(long)).Validate(KeyString), ErrKeyTooLarge)
	assert.NoError(t, StringKey(string(long[:MaxStringKeyLen])).Validate(KeyString))
}

func TestKeyEncodeDecode(t *testing.T) {
	t.Parallel()

	keys := []Key{
		IntKey(math.MinInt64), IntKey(math.MaxInt64),
		FloatKey(-0.5), FloatKey(math.Inf(1)),
		StringKey(""), StringKey("héllo"),
		BoolKey(true), BoolKey(false),
	}
	for _, k := range keys {
		buf := make([]byte, k.Type().Size())
		k.encode(buf)
		got, err := decodeKey(k.Type(), buf)
		require.NoError(t, err)
		assert.Equal(t, 0, k.Compare(got), "key %s", k)
	}
}
