package ufs2

import "encoding/binary"

// Xattr iterates the packed extended-attribute records an inode's Extb
// blocks hold (spec §4.9, original_source/rufs/src/ufs/xattr.rs). UFS2
// only ever reads extended attributes through this path; there is no
// on-disk xattr-set operation in the format this driver targets.
type Xattr struct {
	c     *Codec
	sb    *Superblock
	order binary.ByteOrder
}

func newXattr(c *Codec, sb *Superblock, order binary.ByteOrder) *Xattr {
	return &Xattr{c: c, sb: sb, order: order}
}

// readAll pulls ino.Extsize bytes out of the (at most UFSNXAddr) extattr
// blocks, concatenated in order.
func (x *Xattr) readAll(ino *Inode) ([]byte, error) {
	sz := int64(ino.Extsize)
	if sz == 0 {
		return nil, nil
	}
	bs := x.sb.BlockSize()
	buf := make([]byte, sz)
	var nr int64
	blkidx := 0
	for nr < sz {
		if blkidx >= UFSNXAddr {
			return nil, wrapf(ErrIO, "extattr area size %d exceeds %d blocks", sz, UFSNXAddr)
		}
		ptr := ino.Extb[blkidx]
		if ptr == 0 {
			return nil, wrapf(ErrIO, "missing extattr block %d", blkidx)
		}
		num := bs
		if sz-nr < num {
			num = sz - nr
		}
		if err := x.c.readRaw(ptr*x.sb.FragSize(), buf[nr:nr+num]); err != nil {
			return nil, err
		}
		blkidx++
		nr += num
	}
	return buf, nil
}

type xattrRecord struct {
	header  ExtattrHeader
	name    string
	content []byte
}

// iter walks every record, calling fn until it returns false.
func (x *Xattr) iter(ino *Inode, fn func(xattrRecord) bool) error {
	buf, err := x.readAll(ino)
	if err != nil {
		return err
	}
	pos := 0
	for pos+7 <= len(buf) {
		length := int(x.order.Uint32(buf[pos : pos+4]))
		ns := buf[pos+4]
		contentpadlen := int(buf[pos+5])
		namelen := int(buf[pos+6])
		if namelen == 0 {
			break
		}
		if namelen > UFSExtattrMaxNameLen {
			return wrapf(ErrIO, "invalid extattr name length %d", namelen)
		}
		nameStart := pos + 7
		if nameStart+namelen > len(buf) {
			return wrapf(ErrIO, "truncated extattr record")
		}
		name := string(buf[nameStart : nameStart+namelen])
		contentStart := pos + round8(7+namelen)
		contentLen := length - (contentStart - pos)
		if contentLen < contentpadlen || contentStart+contentLen > len(buf) {
			return wrapf(ErrIO, "malformed extattr record")
		}
		content := buf[contentStart : contentStart+contentLen-contentpadlen]

		rec := xattrRecord{
			header:  ExtattrHeader{Len: uint32(length), Namespace: ns, Contentpadlen: uint8(contentpadlen), Namelen: uint8(namelen)},
			name:    extattrWithName(ns, name),
			content: content,
		}
		if !fn(rec) {
			return nil
		}
		pos += length
	}
	return nil
}

// ListLen returns the raw byte size of the attribute-name listing (spec
// §4.9's xattr_list_len): ino.Extsize, matching original_source's literal
// behavior rather than the exact length of the NUL-joined name list it
// returns from List.
func (x *Xattr) ListLen(ino *Inode) uint32 {
	return ino.Extsize
}

// List returns every namespace-prefixed attribute name, NUL-terminated and
// concatenated, the way a listxattr(2) buffer is laid out.
func (x *Xattr) List(ino *Inode) ([]byte, error) {
	var out []byte
	err := x.iter(ino, func(r xattrRecord) bool {
		out = append(out, r.name...)
		out = append(out, 0)
		return true
	})
	return out, err
}

// Len returns the content length of the named attribute, or ErrNoAttribute
// if it is not present.
func (x *Xattr) Len(ino *Inode, name string) (uint32, error) {
	var length int
	var found bool
	err := x.iter(ino, func(r xattrRecord) bool {
		if r.name == name {
			length, found = len(r.content), true
			return false
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, wrapf(ErrNoAttribute, "extattr %q not found", name)
	}
	return uint32(length), nil
}

// Read returns the content of the named attribute, or ErrNoAttribute if it
// is not present.
func (x *Xattr) Read(ino *Inode, name string) ([]byte, error) {
	var content []byte
	var found bool
	err := x.iter(ino, func(r xattrRecord) bool {
		if r.name == name {
			content = append([]byte(nil), r.content...)
			found = true
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, wrapf(ErrNoAttribute, "extattr %q not found", name)
	}
	return content, nil
}
