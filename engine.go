package ufs2

import (
	"io"
	"io/fs"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Info summarizes filesystem capacity, the way statfs(2) would report it
// (spec §4.10, original_source/rufs/src/ufs/mod.rs::info).
type Info struct {
	Blocks uint64
	BFree  uint64
	Files  uint64
	FFree  uint64
	Bsize  uint32
	Fsize  uint32
}

// Engine is the top-level UFS2 driver: it owns the device handle, the
// decoded superblock, every bounded cache, and the block/inode/directory
// components built on top of them (spec §2, §4.10). All exported methods
// serialize through a single mutex — BlockIO's internal buffer and the
// LRU caches are not safe for concurrent use, and UFS2's counter-update
// discipline (spec §9) assumes one mutation in flight at a time.
type Engine struct {
	log      logrus.FieldLogger
	metrics  *metrics
	readOnly bool

	inodeCacheSize int
	blockCacheSize int
	nameCacheSize  int

	mu     sync.Mutex
	bio    *BlockIO
	codec  *Codec
	sb     *Superblock
	caches *caches
	alloc  *BlockAlloc
	ind    *IndirectMap
	inodes *InodeStore
	fd     *FileData
	dir    *Dir
	sym    *Symlink
	xat    *Xattr
}

// Open validates and mounts a UFS2 image backed by stream, detecting
// endianness from the superblock magic and cross-checking every cylinder
// group's mirrored superblock and header magic before returning (spec
// §4.10 "Open", original_source/rufs/src/ufs/mod.rs::new/check).
func Open(stream io.ReadWriteSeeker, rw bool, opts ...Option) (*Engine, error) {
	e := &Engine{
		log:            logrus.StandardLogger(),
		readOnly:       !rw,
		inodeCacheSize: defaultInodeCacheSize,
		blockCacheSize: defaultBlockCacheSize,
		nameCacheSize:  defaultNameCacheSize,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	devBS := 4096
	if f, ok := stream.(interface{ Fd() uintptr }); ok {
		devBS = DeviceBlockSize(f)
	}
	e.bio = NewBlockIO(stream, devBS, rw)

	magic := make([]byte, 4)
	if _, err := e.bio.ReadAt(magic, SBlockUFS2+MagicOffset); err != nil {
		return nil, wrapf(ErrIO, "read superblock magic: %v", err)
	}
	order, ok := byteOrderForMagic(magic)
	if !ok {
		return nil, wrapf(ErrInvalidArgument, "invalid superblock magic %x", magic)
	}

	e.codec = newCodec(order, e.bio, e.bio)

	sb := &Superblock{}
	if err := e.codec.DecodeStruct(SBlockUFS2, sb); err != nil {
		return nil, wrapf(ErrIO, "decode superblock: %v", err)
	}
	if sb.Magic != FSUFS2Magic {
		return nil, wrapf(ErrInvalidArgument, "unexpected superblock magic %#x", sb.Magic)
	}
	e.sb = sb

	if err := e.checkGeometry(); err != nil {
		return nil, err
	}

	caches, err := newCaches(e.inodeCacheSize, e.blockCacheSize, e.nameCacheSize)
	if err != nil {
		return nil, err
	}
	e.caches = caches

	e.alloc = newBlockAlloc(e.codec, e.sb, e)
	e.ind = newIndirectMap(e.codec, e.sb, e.alloc)
	e.inodes = newInodeStore(e.codec, e.sb, e.caches, e.alloc, e.ind, e)
	e.fd = newFileData(e.codec, e.sb, e.inodes, e.ind, e.alloc)
	e.dir = newDir(e.fd, e.inodes, order)
	e.sym = newSymlink(e.fd)
	e.xat = newXattr(e.codec, e.sb, order)

	return e, nil
}

// checkGeometry validates the fixed superblock invariants and every
// cylinder group's mirrored superblock/header magic (spec §4.10, ported
// from original_source/rufs/src/ufs/mod.rs::check — corrected to advance
// the check address by cylinder group index i, since the original's
// per-CG loop recomputes the same CG0 address on every iteration).
func (e *Engine) checkGeometry() error {
	sb := e.sb
	bad := func(why string) error {
		e.log.WithFields(logFields("open", 0, -1)).Error("superblock corrupted: " + why)
		return wrapf(ErrIO, "superblock corrupted: %s", why)
	}
	switch {
	case sb.Ncg <= 0:
		return bad("ncg <= 0")
	case sb.Ipg <= 0:
		return bad("ipg <= 0")
	case sb.Fpg <= 0:
		return bad("fpg <= 0")
	case sb.Frag <= 0 || sb.Frag > MaxFrag:
		return bad("frag out of range")
	case sb.Fsize != sb.Bsize/sb.Frag:
		return bad("fsize != bsize/frag")
	case sb.Bsize != ^sb.Bmask+1:
		return bad("bsize != ^bmask+1")
	case sb.Fsize != ^sb.Fmask+1:
		return bad("fsize != ^fmask+1")
	case sb.Sbsize != sb.Fsize:
		return bad("sbsize != fsize")
	}

	for i := 0; i < int(sb.Ncg); i++ {
		addr := sb.CGAddr(i)
		sbAddr := (int64(i)*int64(sb.Fpg) + int64(sb.Sblkno)) * int64(sb.Fsize)
		csb := &Superblock{}
		if err := e.codec.DecodeStruct(sbAddr, csb); err != nil {
			return wrapf(ErrIO, "read cg %d mirrored superblock: %v", i, err)
		}
		if csb.Magic != FSUFS2Magic {
			return bad("cylinder group mirrored superblock has bad magic")
		}

		cg := &CylGroup{}
		if err := e.codec.DecodeStruct(addr, cg); err != nil {
			return wrapf(ErrIO, "read cg %d header: %v", i, err)
		}
		if cg.Magic != CGMagic {
			return bad("cylinder group header has bad magic")
		}
	}
	return nil
}

// UpdateSB applies fn to the in-memory superblock and writes it back,
// implementing sbUpdater for BlockAlloc and InodeStore (spec §9 "Counter
// updates"). Callers must already hold e.mu.
func (e *Engine) UpdateSB(fn func(*Superblock)) error {
	fn(e.sb)
	return e.codec.EncodeStruct(SBlockUFS2, e.sb)
}

// Info reports filesystem capacity the way statfs(2) would (spec §4.10).
func (e *Engine) Info() Info {
	e.mu.Lock()
	defer e.mu.Unlock()
	sb := e.sb
	cst := &sb.Cstotal
	return Info{
		Blocks: uint64(sb.Dsize),
		BFree:  uint64(cst.Nbfree*int64(sb.Frag) + cst.Nffree),
		Files:  uint64(sb.Ipg) * uint64(sb.Ncg),
		FFree:  uint64(cst.Nifree),
		Bsize:  uint32(sb.Bsize),
		Fsize:  uint32(sb.Fsize),
	}
}

func (e *Engine) observe(op string, ino InodeNumber, err error) error {
	if err != nil && errnoOf(err) != noAttributeErrno {
		e.log.WithFields(logFields(op, ino, -1)).WithError(err).Error("operation failed")
	}
	if e.metrics != nil {
		e.metrics.observeOp(op, err)
	}
	return err
}

func (e *Engine) requireWritable(op string) error {
	if e.readOnly {
		return e.observe(op, 0, wrapf(ErrReadOnly, "%s: filesystem is read-only", op))
	}
	return nil
}

// Attr returns inr's attributes (spec §4.10 inode_attr).
func (e *Engine) Attr(inr InodeNumber) (InodeAttr, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ino, err := e.inodes.Load(inr)
	if err != nil {
		return InodeAttr{}, e.observe("inode_attr", inr, err)
	}
	return attrFromInode(inr, ino), nil
}

// Modify applies f to inr's mutable attributes (spec §4.10 inode_modify).
func (e *Engine) Modify(inr InodeNumber, f func(attr *InodeAttr)) (InodeAttr, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireWritable("inode_modify"); err != nil {
		return InodeAttr{}, err
	}
	attr, err := e.inodes.Modify(inr, f)
	if err != nil {
		return InodeAttr{}, e.observe("inode_modify", inr, err)
	}
	return attr, nil
}

// Read reads up to len(p) bytes from inr's content at offset off (spec
// §4.10 inode_read).
func (e *Engine) Read(inr InodeNumber, off int64, p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ino, err := e.inodes.Load(inr)
	if err != nil {
		return 0, e.observe("inode_read", inr, err)
	}
	n, err := e.fd.Read(ino, off, p)
	if err != nil {
		return n, e.observe("inode_read", inr, err)
	}
	return n, nil
}

// Write writes p to inr's content at offset off, growing the file and
// updating its inode record (spec §4.10 inode_write).
func (e *Engine) Write(inr InodeNumber, off int64, p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireWritable("inode_write"); err != nil {
		return 0, err
	}
	ino, err := e.inodes.Load(inr)
	if err != nil {
		return 0, e.observe("inode_write", inr, err)
	}
	updated, n, err := e.fd.Write(ino, off, p)
	if err != nil {
		return n, e.observe("inode_write", inr, err)
	}
	if err := e.inodes.Store(inr, updated); err != nil {
		return n, e.observe("inode_write", inr, err)
	}
	return n, nil
}

// Truncate sets inr's size, releasing trailing blocks when shrinking
// (spec §4.10 inode_truncate).
func (e *Engine) Truncate(inr InodeNumber, newSize uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireWritable("inode_truncate"); err != nil {
		return err
	}
	ino, err := e.inodes.Load(inr)
	if err != nil {
		return e.observe("inode_truncate", inr, err)
	}
	if err := e.inodes.Truncate(inr, ino, newSize); err != nil {
		return e.observe("inode_truncate", inr, err)
	}
	return nil
}

// Lookup resolves name within directory dirInr (spec §4.10 dir_lookup).
func (e *Engine) Lookup(dirInr InodeNumber, name string) (InodeNumber, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cached, ok := e.caches.name.Get(dirNameKey{dirInr, name}); ok {
		return cached, nil
	}
	dirIno, err := e.inodes.Load(dirInr)
	if err != nil {
		return 0, e.observe("dir_lookup", dirInr, err)
	}
	if !dirIno.IsDir() {
		return 0, e.observe("dir_lookup", dirInr, wrapf(ErrNotDirectory, "inode %d is not a directory", dirInr))
	}
	inr, _, err := e.dir.Lookup(dirIno, name)
	if err != nil {
		return 0, e.observe("dir_lookup", dirInr, err)
	}
	e.caches.name.Add(dirNameKey{dirInr, name}, inr)
	return inr, nil
}

// Iter walks dirInr's entries from cookie (0 for the start), calling fn
// until it returns false (spec §4.10 dir_iter).
func (e *Engine) Iter(dirInr InodeNumber, cookie int64, fn func(DirEntry) bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	dirIno, err := e.inodes.Load(dirInr)
	if err != nil {
		return e.observe("dir_iter", dirInr, err)
	}
	if !dirIno.IsDir() {
		return e.observe("dir_iter", dirInr, wrapf(ErrNotDirectory, "inode %d is not a directory", dirInr))
	}
	if err := e.dir.Iter(dirIno, cookie, fn); err != nil {
		return e.observe("dir_iter", dirInr, err)
	}
	return nil
}

func (e *Engine) newInodeTemplate(mode fs.FileMode, uid, gid uint32) *Inode {
	now := time.Now()
	sec, nsec := now.Unix(), uint32(now.Nanosecond())
	return &Inode{
		Mode: ModeToUnix(mode), UID: uid, GID: gid,
		Atime: sec, Atimensec: nsec,
		Mtime: sec, Mtimensec: nsec,
		Ctime: sec, Ctimensec: nsec,
		Birthtime: sec, Birthnsec: nsec,
	}
}

// Mknod creates a non-directory entry (regular file, device, fifo, or
// socket) named name within dirInr (spec §4.10 mknod).
func (e *Engine) Mknod(dirInr InodeNumber, name string, mode fs.FileMode, uid, gid uint32) (InodeNumber, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireWritable("mknod"); err != nil {
		return 0, err
	}
	return e.createEntry(dirInr, name, mode, uid, gid, "mknod", nil)
}

// Symlink creates a symbolic link named name within dirInr pointing at
// target (spec §4.10 symlink).
func (e *Engine) Symlink(dirInr InodeNumber, name string, target []byte, uid, gid uint32) (InodeNumber, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireWritable("symlink"); err != nil {
		return 0, err
	}
	return e.createEntry(dirInr, name, fs.ModeSymlink|0777, uid, gid, "symlink", target)
}

// createEntry allocates an inode, links it into dirInr, and (for
// symlinks) stores its target.
func (e *Engine) createEntry(dirInr InodeNumber, name string, mode fs.FileMode, uid, gid uint32, op string, symTarget []byte) (InodeNumber, error) {
	dirIno, err := e.inodes.Load(dirInr)
	if err != nil {
		return 0, e.observe(op, dirInr, err)
	}
	if !dirIno.IsDir() {
		return 0, e.observe(op, dirInr, wrapf(ErrNotDirectory, "inode %d is not a directory", dirInr))
	}
	if _, _, err := e.dir.Lookup(dirIno, name); err == nil {
		return 0, e.observe(op, dirInr, wrapf(ErrExists, "%q already exists", name))
	}

	template := e.newInodeTemplate(mode, uid, gid)
	inr, ino, err := e.inodes.Alloc(template)
	if err != nil {
		return 0, e.observe(op, dirInr, err)
	}

	if symTarget != nil {
		ino, err = e.sym.WriteTarget(ino, symTarget)
		if err != nil {
			return 0, e.observe(op, inr, err)
		}
		if err := e.inodes.Store(inr, ino); err != nil {
			return 0, e.observe(op, inr, err)
		}
	}

	updatedDir, err := e.dir.NewLink(dirIno, name, inr, dtForMode(ino.Mode))
	if err != nil {
		return 0, e.observe(op, dirInr, err)
	}
	if err := e.inodes.Store(dirInr, updatedDir); err != nil {
		return 0, e.observe(op, dirInr, err)
	}
	e.caches.invalidateName(dirInr, name)
	return inr, nil
}

// Mkdir creates a directory named name within dirInr, with "." and ".."
// entries and a bumped parent link count (spec §4.10 mkdir).
func (e *Engine) Mkdir(dirInr InodeNumber, name string, mode fs.FileMode, uid, gid uint32) (InodeNumber, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireWritable("mkdir"); err != nil {
		return 0, err
	}

	dirIno, err := e.inodes.Load(dirInr)
	if err != nil {
		return 0, e.observe("mkdir", dirInr, err)
	}
	if !dirIno.IsDir() {
		return 0, e.observe("mkdir", dirInr, wrapf(ErrNotDirectory, "inode %d is not a directory", dirInr))
	}
	if _, _, err := e.dir.Lookup(dirIno, name); err == nil {
		return 0, e.observe("mkdir", dirInr, wrapf(ErrExists, "%q already exists", name))
	}

	template := e.newInodeTemplate(fs.ModeDir|mode, uid, gid)
	inr, ino, err := e.inodes.Alloc(template)
	if err != nil {
		return 0, e.observe("mkdir", dirInr, err)
	}

	ino, err = e.dir.NewLink(ino, ".", inr, DTDir)
	if err != nil {
		return 0, e.observe("mkdir", inr, err)
	}
	ino, err = e.dir.NewLink(ino, "..", dirInr, DTDir)
	if err != nil {
		return 0, e.observe("mkdir", inr, err)
	}
	ino.Nlink = 2 // the parent's new-name entry, plus this directory's own "." entry
	if err := e.inodes.Store(inr, ino); err != nil {
		return 0, e.observe("mkdir", inr, err)
	}

	updatedDir, err := e.dir.NewLink(dirIno, name, inr, DTDir)
	if err != nil {
		return 0, e.observe("mkdir", dirInr, err)
	}
	if err := e.inodes.Store(dirInr, updatedDir); err != nil {
		return 0, e.observe("mkdir", dirInr, err)
	}
	if err := e.inodes.Bump(dirInr); err != nil { // the child's ".." entry links back to the parent
		return 0, e.observe("mkdir", dirInr, err)
	}
	e.caches.invalidateName(dirInr, name)
	return inr, nil
}

// Unlink removes name from dirInr, freeing the target inode once its link
// count reaches zero (spec §4.10 unlink).
func (e *Engine) Unlink(dirInr InodeNumber, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireWritable("unlink"); err != nil {
		return err
	}
	dirIno, err := e.inodes.Load(dirInr)
	if err != nil {
		return e.observe("unlink", dirInr, err)
	}
	inr, kind, err := e.dir.Lookup(dirIno, name)
	if err != nil {
		return e.observe("unlink", dirInr, err)
	}
	if kind == DTDir {
		return e.observe("unlink", dirInr, wrapf(ErrNotDirectory, "%q is a directory", name))
	}
	updatedDir, err := e.dir.Unlink(dirInr, dirIno, name)
	if err != nil {
		return e.observe("unlink", dirInr, err)
	}
	if err := e.inodes.Store(dirInr, updatedDir); err != nil {
		return e.observe("unlink", dirInr, err)
	}
	e.caches.invalidateName(dirInr, name)
	if err := e.inodes.Free(inr); err != nil {
		return e.observe("unlink", inr, err)
	}
	return nil
}

// Rmdir removes the empty subdirectory name from dirInr (spec §4.10
// rmdir).
func (e *Engine) Rmdir(dirInr InodeNumber, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireWritable("rmdir"); err != nil {
		return err
	}
	dirIno, err := e.inodes.Load(dirInr)
	if err != nil {
		return e.observe("rmdir", dirInr, err)
	}
	inr, kind, err := e.dir.Lookup(dirIno, name)
	if err != nil {
		return e.observe("rmdir", dirInr, err)
	}
	if kind != DTDir {
		return e.observe("rmdir", dirInr, wrapf(ErrNotDirectory, "%q is not a directory", name))
	}
	childIno, err := e.inodes.Load(inr)
	if err != nil {
		return e.observe("rmdir", inr, err)
	}
	empty, err := e.dir.IsEmpty(childIno)
	if err != nil {
		return e.observe("rmdir", inr, err)
	}
	if !empty {
		return e.observe("rmdir", inr, wrapf(ErrNotEmpty, "%q is not empty", name))
	}

	updatedDir, err := e.dir.Unlink(dirInr, dirIno, name)
	if err != nil {
		return e.observe("rmdir", dirInr, err)
	}
	if err := e.inodes.Store(dirInr, updatedDir); err != nil {
		return e.observe("rmdir", dirInr, err)
	}
	e.caches.invalidateName(dirInr, name)
	// the removed directory held two links (the parent's name entry and
	// its own "."); both vanish together with the directory.
	if err := e.inodes.Free(inr); err != nil {
		return e.observe("rmdir", inr, err)
	}
	if err := e.inodes.Free(inr); err != nil {
		return e.observe("rmdir", inr, err)
	}
	return e.observe("rmdir", dirInr, e.inodes.Free(dirInr)) // drops the removed child's ".." link to the parent
}

// Rename moves name from dirInr to newName within newDirInr. When replace
// is false and newName already exists, ErrExists is returned; when true,
// any existing newName is removed first (spec §4.10 rename, Open Question
// resolved in DESIGN.md).
func (e *Engine) Rename(dirInr InodeNumber, name string, newDirInr InodeNumber, newName string, replace bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireWritable("rename"); err != nil {
		return err
	}
	dirIno, err := e.inodes.Load(dirInr)
	if err != nil {
		return e.observe("rename", dirInr, err)
	}
	inr, kind, err := e.dir.Lookup(dirIno, name)
	if err != nil {
		return e.observe("rename", dirInr, err)
	}
	newDirIno, err := e.inodes.Load(newDirInr)
	if err != nil {
		return e.observe("rename", newDirInr, err)
	}

	if existingInr, _, err := e.dir.Lookup(newDirIno, newName); err == nil {
		if !replace {
			return e.observe("rename", newDirInr, wrapf(ErrExists, "%q already exists", newName))
		}
		updated, err := e.dir.Unlink(newDirInr, newDirIno, newName)
		if err != nil {
			return e.observe("rename", newDirInr, err)
		}
		newDirIno = updated
		if err := e.inodes.Store(newDirInr, newDirIno); err != nil {
			return e.observe("rename", newDirInr, err)
		}
		e.caches.invalidateName(newDirInr, newName)
		if err := e.inodes.Free(existingInr); err != nil {
			return e.observe("rename", existingInr, err)
		}
	}

	updatedNewDir, err := e.dir.NewLink(newDirIno, newName, inr, kind)
	if err != nil {
		return e.observe("rename", newDirInr, err)
	}
	if err := e.inodes.Store(newDirInr, updatedNewDir); err != nil {
		return e.observe("rename", newDirInr, err)
	}

	updatedDir, err := e.dir.Unlink(dirInr, dirIno, name)
	if err != nil {
		return e.observe("rename", dirInr, err)
	}
	if err := e.inodes.Store(dirInr, updatedDir); err != nil {
		return e.observe("rename", dirInr, err)
	}
	e.caches.invalidateName(dirInr, name)
	e.caches.invalidateName(newDirInr, newName)
	return nil
}

// SymlinkRead returns inr's symlink target (spec §4.10 symlink_read).
func (e *Engine) SymlinkRead(inr InodeNumber) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ino, err := e.inodes.Load(inr)
	if err != nil {
		return nil, e.observe("symlink_read", inr, err)
	}
	if !ino.IsSymlink() {
		return nil, e.observe("symlink_read", inr, wrapf(ErrInvalidArgument, "inode %d is not a symlink", inr))
	}
	target, err := e.sym.Read(ino)
	if err != nil {
		return nil, e.observe("symlink_read", inr, err)
	}
	return target, nil
}

// XattrListLen returns the byte size of inr's extended-attribute area
// (ino.Extsize), which is not the exact length of the name list XattrList
// returns (spec §4.10 xattr_list_len).
func (e *Engine) XattrListLen(inr InodeNumber) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ino, err := e.inodes.Load(inr)
	if err != nil {
		return 0, e.observe("xattr_list_len", inr, err)
	}
	return e.xat.ListLen(ino), nil
}

// XattrList returns inr's NUL-joined, namespace-prefixed attribute names
// (spec §4.10 xattr_list).
func (e *Engine) XattrList(inr InodeNumber) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ino, err := e.inodes.Load(inr)
	if err != nil {
		return nil, e.observe("xattr_list", inr, err)
	}
	names, err := e.xat.List(ino)
	if err != nil {
		return nil, e.observe("xattr_list", inr, err)
	}
	return names, nil
}

// XattrLen returns the content length of inr's name attribute (spec §4.10
// xattr_len).
func (e *Engine) XattrLen(inr InodeNumber, name string) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ino, err := e.inodes.Load(inr)
	if err != nil {
		return 0, e.observe("xattr_len", inr, err)
	}
	n, err := e.xat.Len(ino, name)
	if err != nil {
		return 0, e.observe("xattr_len", inr, err)
	}
	return n, nil
}

// XattrRead returns the content of inr's name attribute (spec §4.10
// xattr_read).
func (e *Engine) XattrRead(inr InodeNumber, name string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ino, err := e.inodes.Load(inr)
	if err != nil {
		return nil, e.observe("xattr_read", inr, err)
	}
	content, err := e.xat.Read(ino, name)
	if err != nil {
		return nil, e.observe("xattr_read", inr, err)
	}
	return content, nil
}

// RootInodeNumber returns RootInode, the always-valid inode number of the
// filesystem root.
func (e *Engine) RootInodeNumber() InodeNumber { return RootInode }
