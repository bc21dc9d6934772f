//go:build linux

package sys

import (
	"os"

	"golang.org/x/sys/unix"
)

// DataSync flushes file data (not metadata) to stable storage.
func DataSync(file *os.File) error {
	return unix.Fdatasync(int(file.Fd()))
}
