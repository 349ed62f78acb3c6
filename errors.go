package treeidx

import (
	"errors"

	"github.com/alexhholmes/treeidx/internal/base"
)

//goland:noinspection GoUnusedGlobalVariable
var (
	ErrNotFound     = base.ErrNotFound
	ErrDuplicateKey = base.ErrDuplicateKey
	ErrInvalidOrder = base.ErrInvalidOrder
	ErrCorruption   = base.ErrCorruption
	ErrIO           = base.ErrIO

	ErrKeyType       = base.ErrKeyType
	ErrKeyTooLarge   = base.ErrKeyTooLarge
	ErrPageOverflow  = base.ErrPageOverflow
	ErrPageStoreFull = base.ErrPageStoreFull

	ErrInvalidMagicNumber = base.ErrInvalidMagicNumber
	ErrInvalidVersion     = base.ErrInvalidVersion
	ErrInvalidPageSize    = base.ErrInvalidPageSize
	ErrInvalidChecksum    = base.ErrInvalidChecksum

	ErrClosed     = errors.New("index is closed")
	ErrEndOfScan  = errors.New("no more entries to scan")
	ErrScanClosed = errors.New("scan is closed")
)
