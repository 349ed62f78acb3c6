// Package test provides integration tests for treeidx.
package test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexhholmes/treeidx"
)

// setup creates and opens a temporary index for testing.
func setup(t *testing.T, keyType treeidx.KeyType, order int, opts ...treeidx.Option) (*treeidx.Index, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.idx")

	require.NoError(t, treeidx.Create(path, keyType, order, opts...), "Failed to create index")
	idx, err := treeidx.Open(path, opts...)
	require.NoError(t, err, "Failed to open index")

	t.Cleanup(func() {
		_ = idx.Close()
	})
	return idx, path
}

func rid(i int64) treeidx.RID {
	return treeidx.RID{Page: uint32(i / 16), Slot: uint32(i % 16)}
}

// collect drains a scan into its keys.
func collect(t *testing.T, s *treeidx.Scan) []int64 {
	t.Helper()
	defer s.Close()

	var keys []int64
	for {
		k, _, err := s.Next()
		if err != nil {
			require.ErrorIs(t, err, treeidx.ErrEndOfScan)
			return keys
		}
		keys = append(keys, k.Int())
	}
}
