package ufs2

import "time"

// InodeAttr is a read-only snapshot of an inode's attributes, returned from
// InodeStore.Load-adjacent calls (spec §6 inode_attr/inode_modify).
type InodeAttr struct {
	Ino       InodeNumber
	Mode      uint16
	Nlink     uint16
	UID       uint32
	GID       uint32
	Size      uint64
	Blocks    uint64
	Atime     time.Time
	Mtime     time.Time
	Ctime     time.Time
	Birthtime time.Time
	Gen       uint32
	Flags     uint32
}

func attrFromInode(inr InodeNumber, ino *Inode) InodeAttr {
	return InodeAttr{
		Ino:       inr,
		Mode:      ino.Mode,
		Nlink:     ino.Nlink,
		UID:       ino.UID,
		GID:       ino.GID,
		Size:      ino.Size,
		Blocks:    ino.Blocks,
		Atime:     timeFromParts(ino.Atime, ino.Atimensec),
		Mtime:     timeFromParts(ino.Mtime, ino.Mtimensec),
		Ctime:     timeFromParts(ino.Ctime, ino.Ctimensec),
		Birthtime: timeFromParts(ino.Birthtime, ino.Birthnsec),
		Gen:       ino.Gen,
		Flags:     ino.Flags,
	}
}

func timeFromParts(sec int64, nsec uint32) time.Time {
	return time.Unix(sec, int64(nsec)).UTC()
}

// InodeStore loads and stores inode records, allocates and frees inode
// numbers, and implements truncate/grow bookkeeping (spec §4.6). It
// delegates block-tree shape changes to IndirectMap and raw allocation to
// BlockAlloc.
type InodeStore struct {
	c      *Codec
	sb     *Superblock
	caches *caches
	alloc  *BlockAlloc
	ind    *IndirectMap
	up     sbUpdater
}

func newInodeStore(c *Codec, sb *Superblock, caches *caches, alloc *BlockAlloc, ind *IndirectMap, up sbUpdater) *InodeStore {
	return &InodeStore{c: c, sb: sb, caches: caches, alloc: alloc, ind: ind, up: up}
}

// Load reads the inode record for inr, consulting the inode cache first
// (spec §3, §4.6). A zero type-bits mode is treated as EINVAL: the slot is
// not in use from the caller's perspective.
func (s *InodeStore) Load(inr InodeNumber) (*Inode, error) {
	if cached, ok := s.caches.inode.Get(inr); ok {
		cp := *cached
		return &cp, nil
	}
	off := s.sb.InoToFSO(inr)
	ino, err := decodeInode(s.c, off)
	if err != nil {
		return nil, wrapf(ErrIO, "load inode %d: %v", inr, err)
	}
	if ino.Type() == 0 {
		return nil, wrapf(ErrInvalidArgument, "inode %d not in use", inr)
	}
	cp := *ino
	s.caches.inode.Add(inr, &cp)
	return ino, nil
}

// Store writes the full 256-byte inode record back and invalidates the
// cache entry (spec §3: "the cache MUST be invalidated on write").
func (s *InodeStore) Store(inr InodeNumber, ino *Inode) error {
	off := s.sb.InoToFSO(inr)
	if err := encodeInode(s.c, off, ino); err != nil {
		return wrapf(ErrIO, "store inode %d: %v", inr, err)
	}
	s.caches.invalidateInode(inr)
	return nil
}

// Alloc scans cylinder groups in order for one with a free inode, claims
// the lowest clear bit in its inode-used bitmap, and writes template into
// that slot with nlink=1 and a bumped generation number (spec §4.6).
func (s *InodeStore) Alloc(template *Inode) (InodeNumber, *Inode, error) {
	ipg := uint64(s.sb.Ipg)

	for cgi := uint64(0); cgi < uint64(s.sb.Ncg); cgi++ {
		cgo := s.sb.CGAddr(int(cgi))
		cg := &CylGroup{}
		if err := s.c.DecodeStruct(cgo, cg); err != nil {
			return 0, nil, wrapf(ErrIO, "read cylinder group %d: %v", cgi, err)
		}
		if cg.Magic != CGMagic {
			return 0, nil, wrapf(ErrIO, "cylinder group %d: bad magic", cgi)
		}
		if cg.Cs.Nifree <= 0 {
			continue
		}

		bitOff := cgo + int64(cg.Iusedoff)
		nbytes := (ipg + 7) / 8
		buf := make([]byte, nbytes)
		if err := s.c.readRaw(bitOff, buf); err != nil {
			return 0, nil, err
		}

		bitIdx := -1
		for byteIdx, b := range buf {
			if b == 0xff {
				continue
			}
			for bit := 0; bit < 8; bit++ {
				if b&(1<<uint(bit)) == 0 {
					candidate := byteIdx*8 + bit
					if uint64(candidate) < ipg {
						bitIdx = candidate
					}
					break
				}
			}
			if bitIdx >= 0 {
				break
			}
		}
		if bitIdx < 0 {
			continue
		}

		inr := InodeNumber(cgi*ipg + uint64(bitIdx))

		existing, err := decodeInode(s.c, s.sb.InoToFSO(inr))
		if err != nil {
			return 0, nil, wrapf(ErrIO, "read candidate inode %d: %v", inr, err)
		}
		if existing.Nlink != 0 {
			return 0, nil, wrapf(ErrIO, "use-after-free: inode %d has nlink %d but bitmap marks it free", inr, existing.Nlink)
		}

		gen := existing.Gen + 1
		newIno := *template
		newIno.Gen = gen
		newIno.Nlink = 1

		if err := s.Store(inr, &newIno); err != nil {
			return 0, nil, err
		}

		buf[bitIdx/8] |= 1 << uint(bitIdx%8)
		if err := s.c.writeRaw(bitOff, buf); err != nil {
			return 0, nil, err
		}
		cg.Cs.Nifree--
		if err := s.c.EncodeStruct(cgo, cg); err != nil {
			return 0, nil, err
		}
		if err := s.up.UpdateSB(func(sb *Superblock) { sb.Cstotal.Nifree-- }); err != nil {
			return 0, nil, err
		}

		return inr, &newIno, nil
	}

	return 0, nil, ErrNoSpace
}

// Bump increments an inode's link count (hard link creation).
func (s *InodeStore) Bump(inr InodeNumber) error {
	ino, err := s.Load(inr)
	if err != nil {
		return err
	}
	ino.Nlink++
	return s.Store(inr, ino)
}

// Free decrements nlink and, once it reaches zero, releases the inode's
// data/indirect tree, zeroes the record, clears the inode-bitmap bit
// (panicking on double-free), and increments nifree (spec §4.6). The
// block-releasing step is an extension over
// original_source/rufs/src/ufs/ialloc.rs::inode_free, which never frees
// blocks.
func (s *InodeStore) Free(inr InodeNumber) error {
	ino, err := s.Load(inr)
	if err != nil {
		return err
	}
	ino.Nlink--
	if ino.Nlink > 0 {
		return s.Store(inr, ino)
	}

	if !ino.IsShortlink() {
		if err := s.Truncate(inr, ino, 0); err != nil {
			return err
		}
		ino, err = s.Load(inr)
		if err != nil {
			return err
		}
	}

	zeroed := &Inode{}
	if err := s.Store(inr, zeroed); err != nil {
		return err
	}

	cgi, inCG := s.sb.InoInCG(inr)
	cgo := s.sb.CGAddr(int(cgi))
	cg := &CylGroup{}
	if err := s.c.DecodeStruct(cgo, cg); err != nil {
		return wrapf(ErrIO, "read cylinder group %d: %v", cgi, err)
	}

	byteOff := cgo + int64(cg.Iusedoff) + int64(inCG/8)
	var b [1]byte
	if err := s.c.readRaw(byteOff, b[:]); err != nil {
		return err
	}
	mask := byte(1 << (inCG % 8))
	if b[0]&mask == 0 {
		panic("ufs2: double free of inode bitmap bit")
	}
	b[0] &^= mask
	if err := s.c.writeRaw(byteOff, b[:]); err != nil {
		return err
	}

	cg.Cs.Nifree++
	if err := s.c.EncodeStruct(cgo, cg); err != nil {
		return err
	}
	return s.up.UpdateSB(func(sb *Superblock) { sb.Cstotal.Nifree++ })
}

// Truncate sets ino.Size to newSize, releasing any blocks that fall
// outside the new size first when shrinking (spec §4.6). Growing never
// allocates here: holes are filled lazily by FileData.Write, matching
// UFS2's sparse-file convention. ino must be the caller's already-loaded
// copy; Truncate stores the updated record itself.
func (s *InodeStore) Truncate(inr InodeNumber, ino *Inode, newSize uint64) error {
	if newSize < ino.Size {
		if err := s.shrink(ino, newSize); err != nil {
			return err
		}
	}
	ino.Size = newSize
	return s.Store(inr, ino)
}

// shrink releases every block/fragment beyond newSize and adjusts
// ino.Blocks (counted in 512-byte units, as the record stores it). It
// walks the three indirect zones via IndirectMap.ShrinkZone, which frees
// interior tables once every leaf beneath them is gone and partially
// empties tables that straddle the new end — the three split-boundary
// cases of spec §4.6 fall out of that recursion uniformly rather than
// needing to be special-cased here.
func (s *InodeStore) shrink(ino *Inode, newSize uint64) error {
	bs := s.sb.BlockSize()
	fs := s.sb.FragSize()
	p := s.sb.PointersPerBlock()

	oldBlocks, oldFrags := inodeSize(bs, fs, int64(ino.Size))
	oldTotal := oldBlocks
	if oldFrags > 0 {
		oldTotal++
	}
	newBlocks, newFrags := inodeSize(bs, fs, int64(newSize))
	newTotal := newBlocks
	if newFrags > 0 {
		newTotal++
	}
	if newTotal > oldTotal || (newTotal == oldTotal && oldFrags > 0 && newFrags >= oldFrags) {
		return nil
	}

	order := s.c.ByteOrder()
	blocks := ino.dataBlocksOrdered(order)
	var freed512 int64

	// Free the old tail slot if it is going away entirely, or trim it in
	// place if new and old end share the same index with fewer fragments.
	if oldFrags > 0 {
		tailIdx := oldBlocks
		switch {
		case tailIdx >= newTotal:
			blocks2, ptr, err := s.ind.ClearLeaf(blocks, tailIdx)
			if err != nil {
				return err
			}
			blocks = blocks2
			if ptr != 0 {
				sz := oldFrags * fs
				if err := s.alloc.BlkFree(uint64(ptr), sz); err != nil {
					return err
				}
				freed512 += sz / 512
			}
		case tailIdx == newBlocks && newFrags > 0 && newFrags < oldFrags:
			ptr, found, err := s.ind.Resolve(blocks, tailIdx)
			if err != nil {
				return err
			}
			if found {
				tailSz := (oldFrags - newFrags) * fs
				if err := s.alloc.BlkFree(uint64(ptr)+uint64(newFrags), tailSz); err != nil {
					return err
				}
				freed512 += tailSz / 512
			}
		}
	}

	// A full block that becomes the new tail keeps only its first newFrags.
	if newFrags > 0 && newBlocks < oldBlocks {
		ptr, found, err := s.ind.Resolve(blocks, newBlocks)
		if err != nil {
			return err
		}
		if found {
			sz := (s.sb.FragsPerBlock() - newFrags) * fs
			if err := s.alloc.BlkFree(uint64(ptr)+uint64(newFrags), sz); err != nil {
				return err
			}
			freed512 += sz / 512
		}
	}

	// Free every other whole-block index strictly beyond the retained
	// prefix (excluding the tail slot, already handled above).
	lo := newTotal
	if oldFrags > 0 && lo > oldBlocks {
		lo = oldBlocks
	}
	for idx := lo; idx < oldBlocks; idx++ {
		blocks2, ptr, err := s.ind.ClearLeaf(blocks, idx)
		if err != nil {
			return err
		}
		blocks = blocks2
		if ptr != 0 {
			if err := s.alloc.BlkFree(uint64(ptr), bs); err != nil {
				return err
			}
			freed512 += bs / 512
		}
	}

	// Trim or free each indirect zone's table tree against the new total
	// index count.
	zoneStart := [3]int64{UFSNDAddr, UFSNDAddr + p, UFSNDAddr + p + p*p}
	zoneSize := [3]int64{p, p * p, p * p * p}
	for z := 0; z < 3; z++ {
		first := blocks.Indirect[z]
		if first == 0 {
			continue
		}
		keep := newTotal - zoneStart[z]
		if keep < 0 {
			keep = 0
		}
		if keep >= zoneSize[z] {
			continue
		}
		emptied, freedBytes, err := s.ind.ShrinkZone(first, z+1, keep)
		if err != nil {
			return err
		}
		freed512 += freedBytes / 512
		if emptied {
			if err := s.alloc.BlkFree(uint64(first), bs); err != nil {
				return err
			}
			freed512 += bs / 512
			blocks.Indirect[z] = 0
		}
	}

	ino.setDataBlocksOrdered(order, blocks)
	if uint64(freed512) <= ino.Blocks {
		ino.Blocks -= uint64(freed512)
	} else {
		ino.Blocks = 0
	}
	return nil
}

// Modify loads inr, applies f to its mutable attributes, preserves the
// type bits of Mode, writes it back, and returns the new snapshot (spec
// §4.6).
func (s *InodeStore) Modify(inr InodeNumber, f func(attr *InodeAttr)) (InodeAttr, error) {
	ino, err := s.Load(inr)
	if err != nil {
		return InodeAttr{}, err
	}
	attr := attrFromInode(inr, ino)
	f(&attr)

	typeBits := ino.Mode & sIFMT
	ino.Mode = typeBits | (attr.Mode &^ sIFMT)
	ino.UID = attr.UID
	ino.GID = attr.GID
	ino.Atime, ino.Atimensec = attr.Atime.Unix(), uint32(attr.Atime.Nanosecond())
	ino.Mtime, ino.Mtimensec = attr.Mtime.Unix(), uint32(attr.Mtime.Nanosecond())
	ino.Ctime, ino.Ctimensec = attr.Ctime.Unix(), uint32(attr.Ctime.Nanosecond())
	ino.Birthtime, ino.Birthnsec = attr.Birthtime.Unix(), uint32(attr.Birthtime.Nanosecond())
	ino.Flags = attr.Flags

	if err := s.Store(inr, ino); err != nil {
		return InodeAttr{}, err
	}
	return attrFromInode(inr, ino), nil
}
