package base

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("key not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidOrder = errors.New("invalid tree order")
	ErrCorruption   = errors.New("data corruption detected")
	ErrIO           = errors.New("page store i/o error")

	ErrKeyType     = errors.New("key type mismatch")
	ErrKeyTooLarge = errors.New("key too large")

	ErrPageOverflow  = errors.New("page overflow")
	ErrPageStoreFull = fmt.Errorf("%w: page store exhausted", ErrIO)

	ErrInvalidMagicNumber = fmt.Errorf("%w: invalid magic number", ErrCorruption)
	ErrInvalidVersion     = fmt.Errorf("%w: invalid format version", ErrCorruption)
	ErrInvalidPageSize    = fmt.Errorf("%w: invalid page size", ErrCorruption)
	ErrInvalidChecksum    = fmt.Errorf("%w: invalid checksum", ErrCorruption)
)
