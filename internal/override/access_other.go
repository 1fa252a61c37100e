//go:build !unix

package override

import (
	"errors"
	"io/fs"
)

var syscallNotDir = errors.New("not a directory")

func executable(_ string, info fs.FileInfo) bool {
	return info.Mode().Perm()&0o111 != 0
}
