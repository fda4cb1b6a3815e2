package ufs2

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Sentinel errors returned by engine operations. Use errors.Is to test for
// them; each also carries the syscall.Errno a FUSE bridge should surface,
// retrievable with Errno.
var (
	// ErrInvalidArgument covers a malformed superblock, an illegal name, a
	// missing path component, an absent inode record, or a truncation
	// request beyond the filesystem's limits.
	ErrInvalidArgument = errors.New("ufs2: invalid argument")

	// ErrNotFound is returned when a directory entry lookup fails.
	ErrNotFound = errors.New("ufs2: no such file or directory")

	// ErrExists is returned by mknod/mkdir/symlink when the target name
	// already exists in the parent directory.
	ErrExists = errors.New("ufs2: file exists")

	// ErrNotDirectory is returned when a directory operation targets a
	// non-directory inode, and by unlink when the named entry is a
	// directory.
	ErrNotDirectory = errors.New("ufs2: not a directory")

	// ErrNotEmpty is returned by rmdir when the target directory has
	// entries besides "." and "..".
	ErrNotEmpty = errors.New("ufs2: directory not empty")

	// ErrReadOnly is returned by any mutating call on an engine opened
	// without the rw flag.
	ErrReadOnly = errors.New("ufs2: filesystem is read-only")

	// ErrNoSpace is returned when the block or inode allocator cannot
	// satisfy a request.
	ErrNoSpace = errors.New("ufs2: no space left on device")

	// ErrIO covers underlying stream failures and detected on-disk
	// inconsistencies (bad CG magic, a use-after-free inode). A
	// double-freed bitmap bit panics instead. The engine does not attempt
	// in-place repair.
	ErrIO = errors.New("ufs2: I/O error")

	// ErrNoAttribute is returned when a named extended attribute is not
	// present on an inode.
	ErrNoAttribute = errors.New("ufs2: attribute not found")
)

// errnoOf maps a sentinel error to the errno a host-side bridge should
// report. Only the Engine calls this (see engine.go's logging policy);
// everything below it propagates the sentinel unchanged.
func errnoOf(err error) unix.Errno {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return unix.EINVAL
	case errors.Is(err, ErrNotFound):
		return unix.ENOENT
	case errors.Is(err, ErrExists):
		return unix.EEXIST
	case errors.Is(err, ErrNotDirectory):
		return unix.ENOTDIR
	case errors.Is(err, ErrNotEmpty):
		return unix.ENOTEMPTY
	case errors.Is(err, ErrReadOnly):
		return unix.EROFS
	case errors.Is(err, ErrNoSpace):
		return unix.ENOSPC
	case errors.Is(err, ErrNoAttribute):
		return noAttributeErrno
	case errors.Is(err, ErrIO):
		return unix.EIO
	default:
		return unix.EIO
	}
}

// Errno maps any error returned by Engine to the syscall.Errno a host-side
// bridge (fusebridge) should report to the kernel.
func Errno(err error) unix.Errno {
	return errnoOf(err)
}

// wrapf attaches context to a sentinel error while keeping it matchable by
// errors.Is through %w.
func wrapf(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}
