// Package directio opens files that bypass the OS page cache and allocates
// the aligned buffers such files require.
package directio

import (
	"unsafe"
)

// IsAligned reports whether block starts on an AlignSize boundary. An empty
// block is never aligned.
func IsAligned(block []byte) bool {
	if len(block) == 0 {
		return false
	}
	return offset(block) == 0
}

// AlignedBlock returns a buffer of size bytes starting on an AlignSize
// boundary.
func AlignedBlock(size int) []byte {
	if AlignSize == 0 {
		return make([]byte, size)
	}

	buf := make([]byte, size+AlignSize)
	skip := 0
	if o := offset(buf); o != 0 {
		skip = AlignSize - o
	}
	return buf[skip : skip+size : skip+size]
}

// offset returns how far block starts past the previous AlignSize boundary.
func offset(block []byte) int {
	if AlignSize == 0 {
		return 0
	}
	return int(uintptr(unsafe.Pointer(unsafe.SliceData(block))) & uintptr(AlignSize-1))
}
