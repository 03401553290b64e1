//go:build !linux && !freebsd && !darwin && !windows

package writer

import "os"

func fdatasync(f *os.File) error {
	return f.Sync()
}
