//go:build darwin

package directio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	AlignSize = 0
	BlockSize = 4096
	DirectIO  = true
)

// OpenFile opens name and disables caching with F_NOCACHE. Darwin needs no
// buffer alignment.
func OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	file, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	if _, err := unix.FcntlInt(file.Fd(), unix.F_NOCACHE, 1); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("set F_NOCACHE on %s: %w", name, err)
	}
	return file, nil
}
