//go:build windows

package writer

import (
	"os"

	"golang.org/x/sys/windows"
)

// fdatasync performs file data sync using FlushFileBuffers, which ensures
// all file data and metadata is written to disk.
func fdatasync(f *os.File) error {
	return windows.FlushFileBuffers(windows.Handle(f.Fd()))
}
