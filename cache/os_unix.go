//go:build unix

package cache

import (
	"io/fs"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

type ownership struct {
	uid, gid uint32
}

// statT extracts owner/group from an os.FileInfo on platforms that
// populate Sys() with *syscall.Stat_t, the same cast the teacher's
// interp/os_unix.go uses for its own executable-bit ownership check.
func statT(info os.FileInfo) (ownership, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return ownership{}, false
	}
	return ownership{uid: st.Uid, gid: st.Gid}, true
}

// executableForCaller applies exec.c's three-tier owner/group/other
// executable-bit priority using the real effective uid/gid, matching
// the teacher's os_unix.go ownership check idiom.
func executableForCaller(mode fs.FileMode, st ownership) bool {
	euid := uint32(unix.Geteuid())
	egid := uint32(unix.Getegid())
	switch {
	case euid == st.uid:
		return mode&0o100 != 0
	case egid == st.gid:
		return mode&0o010 != 0
	default:
		return mode&0o001 != 0
	}
}
