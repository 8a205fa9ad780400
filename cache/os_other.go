//go:build !unix

package cache

import (
	"io/fs"
	"os"
)

// statT has no portable owner/group notion outside unix; callers fall
// back to the plain any-executable-bit test.
func statT(info os.FileInfo) (ownership, bool) {
	return ownership{}, false
}

type ownership struct {
	uid, gid uint32
}

func executableForCaller(mode fs.FileMode, _ ownership) bool {
	return mode&0o111 != 0
}
