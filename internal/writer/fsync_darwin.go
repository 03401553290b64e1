//go:build darwin

package writer

import (
	"os"

	"golang.org/x/sys/unix"
)

// fdatasync performs file data sync.
//
// macOS has no fdatasync; F_FULLFSYNC ensures data reaches the physical
// disk, not just the drive cache.
func fdatasync(f *os.File) error {
	_, err := unix.FcntlInt(f.Fd(), unix.F_FULLFSYNC, 0)
	return err
}
