//go:build !linux

package ufs2

import "golang.org/x/sys/unix"

// BSD-family and Darwin define ENOATTR distinctly from ENODATA.
const noAttributeErrno = unix.ENOATTR
