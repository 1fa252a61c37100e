//go:build unix

package override

import (
	"io/fs"

	"golang.org/x/sys/unix"
)

// syscallNotDir is returned by stat when a path component is a regular file.
var syscallNotDir error = unix.ENOTDIR

// executable asks the kernel, the same check the shell's -x test performs.
func executable(path string, _ fs.FileInfo) bool {
	return unix.Access(path, unix.X_OK) == nil
}
