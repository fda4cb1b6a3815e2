package ufs2

import "encoding/binary"

// dirRecLen returns the minimum record length for a name of namelen bytes:
// an 8-byte fixed header plus the name, NUL-padded to a 4-byte boundary
// (spec §3 "Directory Block", §4.8).
func dirRecLen(namelen int) int {
	return 8 + round4(namelen+1)
}

// Dir implements the directory-content operations (spec §4.8): lookup,
// iteration, and record insertion/removal within a directory inode's data
// blocks. It never allocates or frees inodes itself — callers (Engine)
// drive InodeStore for that and pass the resulting inode number in.
type Dir struct {
	fd    *FileData
	store *InodeStore
	order binary.ByteOrder
}

func newDir(fd *FileData, store *InodeStore, order binary.ByteOrder) *Dir {
	return &Dir{fd: fd, store: store, order: order}
}

func (d *Dir) decodeRecord(buf []byte, pos int) (ino uint32, reclen int, kind byte, name string, ok bool) {
	if pos+8 > len(buf) {
		return 0, 0, 0, "", false
	}
	ino = d.order.Uint32(buf[pos : pos+4])
	reclen = int(d.order.Uint16(buf[pos+4 : pos+6]))
	kind = buf[pos+6]
	namelen := int(buf[pos+7])
	if reclen <= 0 || pos+reclen > len(buf) {
		return 0, 0, 0, "", false
	}
	if pos+8+namelen > len(buf) {
		return 0, 0, 0, "", false
	}
	name = string(buf[pos+8 : pos+8+namelen])
	return ino, reclen, kind, name, true
}

func (d *Dir) encodeRecord(buf []byte, pos int, ino uint32, reclen int, kind byte, name string) {
	d.order.PutUint32(buf[pos:pos+4], ino)
	d.order.PutUint16(buf[pos+4:pos+6], uint16(reclen))
	buf[pos+6] = kind
	buf[pos+7] = byte(len(name))
	copy(buf[pos+8:pos+8+len(name)], name)
	for i := pos + 8 + len(name); i < pos+reclen; i++ {
		buf[i] = 0
	}
}

// forEachBlock calls fn with each DirBlkSize slab of dirIno's content and
// its byte offset, stopping early if fn returns false.
func (d *Dir) forEachBlock(dirIno *Inode, fn func(off int64, buf []byte) bool) error {
	size := int64(dirIno.Size)
	for off := int64(0); off < size; off += DirBlkSize {
		buf := make([]byte, DirBlkSize)
		want := DirBlkSize
		if off+int64(want) > size {
			want = int(size - off)
		}
		if _, err := d.fd.Read(dirIno, off, buf[:want]); err != nil {
			return err
		}
		if !fn(off, buf) {
			return nil
		}
	}
	return nil
}

// Lookup scans dirIno's content for name, returning its inode number and
// directory-entry type byte (spec §4.8). Absence is reported as
// ErrNotFound.
func (d *Dir) Lookup(dirIno *Inode, name string) (InodeNumber, byte, error) {
	var found InodeNumber
	var kind byte
	var hit bool
	err := d.forEachBlock(dirIno, func(off int64, buf []byte) bool {
		for pos := 0; pos < len(buf); {
			ino, reclen, k, n, ok := d.decodeRecord(buf, pos)
			if !ok {
				break
			}
			if ino != 0 && n == name {
				found, kind, hit = InodeNumber(ino), k, true
				return false
			}
			pos += reclen
		}
		return true
	})
	if err != nil {
		return 0, 0, err
	}
	if !hit {
		return 0, 0, wrapf(ErrNotFound, "directory entry %q not found", name)
	}
	return found, kind, nil
}

// DirEntry is one entry yielded by Iter.
type DirEntry struct {
	Name   string
	Ino    InodeNumber
	Kind   byte
	Cookie int64 // opaque resume position: the byte offset of the NEXT record
}

// Iter walks dirIno's content starting at cookie (0 for the beginning),
// calling fn for each in-use record. fn's return value controls whether
// iteration continues. Cookies are directory-content byte offsets, stable
// across calls as long as the directory isn't concurrently compacted
// (spec §4.8's readdir-cookie note).
func (d *Dir) Iter(dirIno *Inode, cookie int64, fn func(DirEntry) bool) error {
	size := int64(dirIno.Size)
	for off := cookie - (cookie % DirBlkSize); off < size; off += DirBlkSize {
		buf := make([]byte, DirBlkSize)
		want := DirBlkSize
		if off+int64(want) > size {
			want = int(size - off)
		}
		if _, err := d.fd.Read(dirIno, off, buf[:want]); err != nil {
			return err
		}
		for pos := 0; pos < len(buf); {
			ino, reclen, kind, name, ok := d.decodeRecord(buf, pos)
			if !ok {
				break
			}
			next := off + int64(pos+reclen)
			if next > cookie && ino != 0 {
				if !fn(DirEntry{Name: name, Ino: InodeNumber(ino), Kind: kind, Cookie: next}) {
					return nil
				}
			}
			pos += reclen
		}
	}
	return nil
}

// NewLink inserts a (name, ino, kind) record into dirIno, reusing slack
// space in an existing record when one is large enough, and appending a
// fresh DirBlkSize slab otherwise (spec §4.8). Returns the possibly-grown
// inode; the caller stores it.
func (d *Dir) NewLink(dirIno *Inode, name string, ino InodeNumber, kind byte) (*Inode, error) {
	need := dirRecLen(len(name))
	var placed bool

	err := d.forEachBlock(dirIno, func(off int64, buf []byte) bool {
		dirty := false
		for pos := 0; pos < len(buf); {
			curIno, reclen, curKind, curName, ok := d.decodeRecord(buf, pos)
			if !ok {
				break
			}
			used := 0
			if curIno != 0 {
				used = dirRecLen(len(curName))
			}
			slack := reclen - used
			if slack >= need {
				if curIno != 0 {
					// shrink the existing record, splice the new one into
					// the freed tail.
					d.encodeRecord(buf, pos, curIno, used, curKind, curName)
					d.encodeRecord(buf, pos+used, uint32(ino), reclen-used, kind, name)
				} else {
					d.encodeRecord(buf, pos, uint32(ino), reclen, kind, name)
				}
				placed = true
				dirty = true
				break
			}
			pos += reclen
		}
		if dirty {
			if _, _, err := d.fd.Write(dirIno, off, buf); err != nil {
				placed = false
			}
			return false
		}
		return true
	})
	if err != nil {
		return dirIno, err
	}
	if placed {
		return dirIno, nil
	}

	buf := make([]byte, DirBlkSize)
	d.encodeRecord(buf, 0, uint32(ino), DirBlkSize, kind, name)
	updated, _, err := d.fd.Write(dirIno, int64(dirIno.Size), buf)
	return updated, err
}

// Unlink removes name's record from dirIno (spec §4.8). Three cases: if
// the record is the sole entry in its slab, the whole slab is dropped —
// every following slab slides down one via FileData.CopyRange and the
// directory shrinks by DirBlkSize; if it is the first record of a slab
// with others after it, the following record is copied over position
// zero with its reclen absorbing the freed space; otherwise the
// preceding record's reclen is extended to swallow it. ErrNotFound if
// absent.
func (d *Dir) Unlink(dirInr InodeNumber, dirIno *Inode, name string) (*Inode, error) {
	var removed bool
	soleOff := int64(-1)

	err := d.forEachBlock(dirIno, func(off int64, buf []byte) bool {
		prevPos := -1
		for pos := 0; pos < len(buf); {
			curIno, reclen, _, curName, ok := d.decodeRecord(buf, pos)
			if !ok {
				break
			}
			if curIno == 0 || curName != name {
				prevPos = pos
				pos += reclen
				continue
			}

			switch {
			case pos == 0 && reclen == DirBlkSize:
				// the only record in the slab: remove the slab itself,
				// below, after the scan finishes.
				soleOff = off
			case pos == 0:
				nIno, nReclen, nKind, nName, ok := d.decodeRecord(buf, pos+reclen)
				if ok {
					d.encodeRecord(buf, 0, nIno, reclen+nReclen, nKind, nName)
				}
			default:
				pIno, pReclen, pKind, pName, _ := d.decodeRecord(buf, prevPos)
				d.encodeRecord(buf, prevPos, pIno, pReclen+reclen, pKind, pName)
			}

			removed = true
			if soleOff < 0 {
				if _, _, err := d.fd.Write(dirIno, off, buf); err != nil {
					removed = false
				}
			}
			return false
		}
		return true
	})
	if err != nil {
		return dirIno, err
	}
	if !removed {
		return dirIno, wrapf(ErrNotFound, "directory entry %q not found", name)
	}
	if soleOff < 0 {
		return dirIno, nil
	}

	size := int64(dirIno.Size)
	tailOff := soleOff + DirBlkSize
	if remaining := size - tailOff; remaining > 0 {
		updated, err := d.fd.CopyRange(dirIno, dirIno, soleOff, tailOff, remaining)
		if err != nil {
			return dirIno, err
		}
		dirIno = updated
	}
	if err := d.store.Truncate(dirInr, dirIno, uint64(size-DirBlkSize)); err != nil {
		return dirIno, err
	}
	return dirIno, nil
}

// IsEmpty reports whether dirIno contains only "." and ".." (spec §4.8,
// rmdir's ENOTEMPTY check).
func (d *Dir) IsEmpty(dirIno *Inode) (bool, error) {
	empty := true
	err := d.forEachBlock(dirIno, func(off int64, buf []byte) bool {
		for pos := 0; pos < len(buf); {
			ino, reclen, _, name, ok := d.decodeRecord(buf, pos)
			if !ok {
				break
			}
			if ino != 0 && name != "." && name != ".." {
				empty = false
				return false
			}
			pos += reclen
		}
		return true
	})
	return empty, err
}
