//go:build linux || freebsd

package writer

import (
	"os"

	"golang.org/x/sys/unix"
)

// fdatasync performs file data sync.
//
// On Linux/FreeBSD, fdatasync() provides sufficient guarantees: the file
// length is part of the data being written, and the rename that follows
// syncs the metadata.
func fdatasync(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}
