//go:build fuse

// Package fusebridge adapts an *ufs2.Engine to go-fuse's low-level
// node API, so a mounted UFS2 image behaves like any other FUSE
// filesystem (spec §2 DOMAIN STACK: hanwen/go-fuse/v2, an optional build
// the core engine never imports).
package fusebridge

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/KarpelesLab/ufs2"
)

// Root wraps an Engine as a go-fuse InodeEmbedder root node.
type Root struct {
	fs.Inode
	Engine *ufs2.Engine
}

// node is one mounted UFS2 inode.
type node struct {
	fs.Inode
	engine *ufs2.Engine
	ino    ufs2.InodeNumber
}

var (
	_ fs.NodeGetattrer = (*node)(nil)
	_ fs.NodeLookuper  = (*node)(nil)
	_ fs.NodeReaddirer = (*node)(nil)
	_ fs.NodeOpener    = (*node)(nil)
	_ fs.NodeReader    = (*node)(nil)
	_ fs.NodeWriter    = (*node)(nil)
)

// FillAttr copies an InodeAttr into a fuse.Attr, mirroring the teacher's
// per-platform FillAttr methods (inode_linux.go, inode_darwin.go) collapsed
// into one OS-independent function since go-fuse's fuse.Attr shape does
// not vary by platform the way the teacher's apkgfs integration did.
func FillAttr(attr ufs2.InodeAttr, out *fuse.Attr) {
	out.Ino = uint64(attr.Ino)
	out.Size = attr.Size
	out.Blocks = attr.Blocks
	out.Mode = uint32(attr.Mode) // attr.Mode is already the raw on-disk mode
	out.Nlink = uint32(attr.Nlink)
	out.Owner = fuse.Owner{Uid: attr.UID, Gid: attr.GID}
	out.Atime = uint64(attr.Atime.Unix())
	out.Mtime = uint64(attr.Mtime.Unix())
	out.Ctime = uint64(attr.Ctime.Unix())
}

func (n *node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, err := n.engine.Attr(n.ino)
	if err != nil {
		return errnoToSyscall(err)
	}
	FillAttr(attr, &out.Attr)
	return 0
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	inr, err := n.engine.Lookup(n.ino, name)
	if err != nil {
		return nil, errnoToSyscall(err)
	}
	attr, err := n.engine.Attr(inr)
	if err != nil {
		return nil, errnoToSyscall(err)
	}
	FillAttr(attr, &out.Attr)
	child := &node{engine: n.engine, ino: inr}
	return n.NewInode(ctx, child, fs.StableAttr{Ino: uint64(inr)}), 0
}

func (n *node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	var entries []fuse.DirEntry
	err := n.engine.Iter(n.ino, 0, func(e ufs2.DirEntry) bool {
		entries = append(entries, fuse.DirEntry{Name: e.Name, Ino: uint64(e.Ino)})
		return true
	})
	if err != nil {
		return nil, errnoToSyscall(err)
	}
	return fs.NewListDirStream(entries), 0
}

func (n *node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, 0, 0
}

func (n *node) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	nr, err := n.engine.Read(n.ino, off, dest)
	if err != nil {
		return nil, errnoToSyscall(err)
	}
	return fuse.ReadResultData(dest[:nr]), 0
}

func (n *node) Write(ctx context.Context, f fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	nw, err := n.engine.Write(n.ino, off, data)
	if err != nil {
		return uint32(nw), errnoToSyscall(err)
	}
	return uint32(nw), 0
}

// errnoToSyscall reuses the Engine's own errno classification.
func errnoToSyscall(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	return syscall.Errno(ufs2.Errno(err))
}
