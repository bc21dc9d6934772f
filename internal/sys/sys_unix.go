//go:build unix && !linux

package sys

import (
	"os"

	"golang.org/x/sys/unix"
)

// DataSync flushes file data to stable storage. Non-Linux unixes get a full
// fsync; darwin has no fdatasync.
func DataSync(file *os.File) error {
	return unix.Fsync(int(file.Fd()))
}
