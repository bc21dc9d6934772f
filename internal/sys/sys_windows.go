//go:build windows

package sys

import (
	"os"

	"golang.org/x/sys/windows"
)

// DataSync flushes file data to stable storage.
func DataSync(file *os.File) error {
	return windows.FlushFileBuffers(windows.Handle(file.Fd()))
}
