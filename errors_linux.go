//go:build linux

package ufs2

import "golang.org/x/sys/unix"

// On Linux the "no such attribute" errno is ENODATA; golang.org/x/sys/unix
// defines no ENOATTR for this GOOS.
const noAttributeErrno = unix.ENODATA
