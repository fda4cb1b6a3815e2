package ufs2

// zoneKind tags which of the four index zones a file-relative block index
// falls into (spec §4.5).
type zoneKind int

const (
	zoneDirect zoneKind = iota
	zoneIndirect1
	zoneIndirect2
	zoneIndirect3
)

// zone is the decoded result of zoneOf: a tagged offset into one of the
// four zones, using the outermost-index-first decomposition order spec
// §4.5 and original_source/rufs/src/ufs/inode.rs::resolve_file_block use.
type zone struct {
	kind       zoneKind
	off        int64 // Direct
	high, mid, low int64
}

// IndirectMap translates an inode-relative block index to a device block
// number through the 12 direct + 3 indirect zones (spec §4.5).
type IndirectMap struct {
	c   *Codec
	sb  *Superblock
	all *BlockAlloc
}

func newIndirectMap(c *Codec, sb *Superblock, all *BlockAlloc) *IndirectMap {
	return &IndirectMap{c: c, sb: sb, all: all}
}

// zoneOf decomposes a file-relative block index i into its zone (spec
// §4.5). D=12, P=bs/8.
func (m *IndirectMap) zoneOf(i int64) zone {
	const d = UFSNDAddr
	p := m.sb.PointersPerBlock()

	beginIndir1 := int64(d)
	beginIndir2 := beginIndir1 + p
	beginIndir3 := beginIndir2 + p*p
	beginIndir4 := beginIndir3 + p*p*p

	switch {
	case i < beginIndir1:
		return zone{kind: zoneDirect, off: i}
	case i < beginIndir2:
		return zone{kind: zoneIndirect1, low: i - beginIndir1}
	case i < beginIndir3:
		x := i - beginIndir2
		return zone{kind: zoneIndirect2, high: x / p, low: x % p}
	case i < beginIndir4:
		x := i - beginIndir3
		return zone{kind: zoneIndirect3, high: x / p / p, mid: x / p % p, low: x % p}
	default:
		return zone{kind: zoneIndirect3, high: -1} // out of range; caller checks via beginIndir4
	}
}

func (m *IndirectMap) readPointer(blockNo int64, idx int64) (int64, error) {
	var v int64
	off := blockNo*m.sb.FragSize() + idx*8
	buf := make([]byte, 8)
	if err := m.c.readRaw(off, buf); err != nil {
		return 0, err
	}
	order := m.c.ByteOrder()
	v = int64(order.Uint64(buf))
	return v, nil
}

func (m *IndirectMap) writePointer(blockNo int64, idx int64, v int64) error {
	off := blockNo*m.sb.FragSize() + idx*8
	buf := make([]byte, 8)
	order := m.c.ByteOrder()
	order.PutUint64(buf, uint64(v))
	return m.c.writeRaw(off, buf)
}

// Resolve walks the tree without allocating; a missing interior entry (zero
// pointer) yields (0, false) — a sparse hole (spec §4.5).
func (m *IndirectMap) Resolve(blocks InodeBlocks, i int64) (int64, bool, error) {
	p := m.sb.PointersPerBlock()
	beginIndir4 := int64(UFSNDAddr) + p + p*p + p*p*p
	if i >= beginIndir4 {
		return 0, false, nil
	}
	z := m.zoneOf(i)

	switch z.kind {
	case zoneDirect:
		v := blocks.Direct[z.off]
		return v, v != 0, nil

	case zoneIndirect1:
		first := blocks.Indirect[0]
		if first == 0 {
			return 0, false, nil
		}
		v, err := m.readPointer(first, z.low)
		return v, v != 0, err

	case zoneIndirect2:
		first := blocks.Indirect[1]
		if first == 0 {
			return 0, false, nil
		}
		second, err := m.readPointer(first, z.high)
		if err != nil || second == 0 {
			return 0, false, err
		}
		v, err := m.readPointer(second, z.low)
		return v, v != 0, err

	case zoneIndirect3:
		first := blocks.Indirect[2]
		if first == 0 {
			return 0, false, nil
		}
		second, err := m.readPointer(first, z.high)
		if err != nil || second == 0 {
			return 0, false, err
		}
		third, err := m.readPointer(second, z.mid)
		if err != nil || third == 0 {
			return 0, false, err
		}
		v, err := m.readPointer(third, z.low)
		return v, v != 0, err
	}
	return 0, false, nil
}

// Assign walks the tree, allocating any missing interior table as a full
// zero-filled block, and writes b at the leaf slot. Interior tables are
// allocated and linked from their parent before any further descent, so a
// crash never leaves a dangling pointer to an uninitialized table (spec
// §4.5, §5). Returns the (possibly mutated) InodeBlocks; the caller is
// responsible for writing the inode back when direct/indirect slots
// change.
func (m *IndirectMap) Assign(blocks InodeBlocks, i int64, b int64) (InodeBlocks, error) {
	p := m.sb.PointersPerBlock()
	beginIndir4 := int64(UFSNDAddr) + p + p*p + p*p*p
	if i >= beginIndir4 {
		return blocks, wrapf(ErrInvalidArgument, "block index %d out of range", i)
	}
	z := m.zoneOf(i)

	ensure := func(slot *int64) (int64, error) {
		if *slot != 0 {
			return *slot, nil
		}
		nb, err := m.all.BlkAllocFullZeroed()
		if err != nil {
			return 0, err
		}
		*slot = int64(nb)
		return int64(nb), nil
	}

	switch z.kind {
	case zoneDirect:
		blocks.Direct[z.off] = b
		return blocks, nil

	case zoneIndirect1:
		first, err := ensure(&blocks.Indirect[0])
		if err != nil {
			return blocks, err
		}
		if err := m.writePointer(first, z.low, b); err != nil {
			return blocks, err
		}
		return blocks, nil

	case zoneIndirect2:
		first, err := ensure(&blocks.Indirect[1])
		if err != nil {
			return blocks, err
		}
		second, err := m.readPointer(first, z.high)
		if err != nil {
			return blocks, err
		}
		if second == 0 {
			nb, err := m.all.BlkAllocFullZeroed()
			if err != nil {
				return blocks, err
			}
			second = int64(nb)
			if err := m.writePointer(first, z.high, second); err != nil {
				return blocks, err
			}
		}
		if err := m.writePointer(second, z.low, b); err != nil {
			return blocks, err
		}
		return blocks, nil

	case zoneIndirect3:
		first, err := ensure(&blocks.Indirect[2])
		if err != nil {
			return blocks, err
		}
		second, err := m.readPointer(first, z.high)
		if err != nil {
			return blocks, err
		}
		if second == 0 {
			nb, err := m.all.BlkAllocFullZeroed()
			if err != nil {
				return blocks, err
			}
			second = int64(nb)
			if err := m.writePointer(first, z.high, second); err != nil {
				return blocks, err
			}
		}
		third, err := m.readPointer(second, z.mid)
		if err != nil {
			return blocks, err
		}
		if third == 0 {
			nb, err := m.all.BlkAllocFullZeroed()
			if err != nil {
				return blocks, err
			}
			third = int64(nb)
			if err := m.writePointer(second, z.mid, third); err != nil {
				return blocks, err
			}
		}
		if err := m.writePointer(third, z.low, b); err != nil {
			return blocks, err
		}
		return blocks, nil
	}
	return blocks, wrapf(ErrInvalidArgument, "unreachable zone for index %d", i)
}

// GetBlockSize returns bs for indices before the last-block boundary
// implied by size, and the fragment-rounded tail size for the
// one-and-only tail slot — the last used direct index when the file's
// size is not a whole-block multiple (spec §4.5, §4.7).
func (m *IndirectMap) GetBlockSize(size uint64, blkidx int64) int64 {
	bs := m.sb.BlockSize()
	fs := m.sb.FragSize()
	blocks, frags := inodeSize(bs, fs, int64(size))
	switch {
	case blkidx < blocks:
		return bs
	case frags > 0 && blkidx == blocks:
		return fs * frags
	default:
		return bs
	}
}

// ClearLeaf zeroes the pointer at file-relative index i if present,
// without allocating any missing interior table (used by shrink to detach
// a leaf that is about to be freed). Returns the previous pointer value.
func (m *IndirectMap) ClearLeaf(blocks InodeBlocks, i int64) (InodeBlocks, int64, error) {
	z := m.zoneOf(i)
	switch z.kind {
	case zoneDirect:
		old := blocks.Direct[z.off]
		blocks.Direct[z.off] = 0
		return blocks, old, nil
	case zoneIndirect1:
		first := blocks.Indirect[0]
		if first == 0 {
			return blocks, 0, nil
		}
		old, err := m.readPointer(first, z.low)
		if err != nil {
			return blocks, 0, err
		}
		return blocks, old, m.writePointer(first, z.low, 0)
	case zoneIndirect2:
		first := blocks.Indirect[1]
		if first == 0 {
			return blocks, 0, nil
		}
		second, err := m.readPointer(first, z.high)
		if err != nil || second == 0 {
			return blocks, 0, err
		}
		old, err := m.readPointer(second, z.low)
		if err != nil {
			return blocks, 0, err
		}
		return blocks, old, m.writePointer(second, z.low, 0)
	case zoneIndirect3:
		first := blocks.Indirect[2]
		if first == 0 {
			return blocks, 0, nil
		}
		second, err := m.readPointer(first, z.high)
		if err != nil || second == 0 {
			return blocks, 0, err
		}
		third, err := m.readPointer(second, z.mid)
		if err != nil || third == 0 {
			return blocks, 0, err
		}
		old, err := m.readPointer(third, z.low)
		if err != nil {
			return blocks, 0, err
		}
		return blocks, old, m.writePointer(third, z.low, 0)
	}
	return blocks, 0, nil
}

// ShrinkZone frees every leaf reachable from the table at blockNo beyond
// the first keep leaf-equivalent slots, recursing into lower-level tables
// it only partially empties, and reports whether the whole table became
// empty (so the caller can free it and clear its own parent slot). level
// is 1 for a table of direct leaf pointers, 2 for a table of pointers to
// level-1 tables, 3 for a table of pointers to level-2 tables — this
// implements the three split-boundary cases of spec §4.6 uniformly by
// recursion instead of hand-writing each case.
func (m *IndirectMap) ShrinkZone(blockNo int64, level int, keep int64) (emptied bool, freedBytes int64, err error) {
	if blockNo == 0 {
		return true, 0, nil
	}
	p := m.sb.PointersPerBlock()
	entrySize := int64(1)
	for l := 1; l < level; l++ {
		entrySize *= p
	}
	allEmpty := true
	var freed int64

	for idx := int64(0); idx < p; idx++ {
		entryStart := idx * entrySize
		ptr, err := m.readPointer(blockNo, idx)
		if err != nil {
			return false, freed, err
		}
		if ptr == 0 {
			continue
		}
		switch {
		case entryStart >= keep:
			if level == 1 {
				if err := m.all.BlkFree(uint64(ptr), m.sb.BlockSize()); err != nil {
					return false, freed, err
				}
				freed += m.sb.BlockSize()
			} else {
				_, sub, err := m.ShrinkZone(ptr, level-1, 0)
				if err != nil {
					return false, freed, err
				}
				freed += sub
				if err := m.all.BlkFree(uint64(ptr), m.sb.BlockSize()); err != nil {
					return false, freed, err
				}
				freed += m.sb.BlockSize()
			}
			if err := m.writePointer(blockNo, idx, 0); err != nil {
				return false, freed, err
			}
		case entryStart+entrySize > keep:
			// straddles the retained prefix: recurse with a sub-budget.
			allEmpty = false
			if level > 1 {
				_, sub, err := m.ShrinkZone(ptr, level-1, keep-entryStart)
				if err != nil {
					return false, freed, err
				}
				freed += sub
			}
		default:
			allEmpty = false
		}
	}

	return allEmpty, freed, nil
}

// inodeSize computes (blocks, frags) from a byte size the way spec §8's
// table and original_source/rufs/src/inode.rs's unit test define it:
// inode_size(bs, fs, size) = (size/bs, ceil((size%bs)/fs)).
func inodeSize(bs, fs, size int64) (blocks, frags int64) {
	blocks = size / bs
	rem := size % bs
	frags = howmany(rem, fs)
	return
}
