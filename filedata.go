package ufs2

// FileData reads and writes regular-file content through InodeStore's
// inode and IndirectMap's block-index translation (spec §4.7). It never
// touches the directory namespace.
type FileData struct {
	c     *Codec
	sb    *Superblock
	store *InodeStore
	ind   *IndirectMap
	alloc *BlockAlloc
}

func newFileData(c *Codec, sb *Superblock, store *InodeStore, ind *IndirectMap, alloc *BlockAlloc) *FileData {
	return &FileData{c: c, sb: sb, store: store, ind: ind, alloc: alloc}
}

// Read fills p starting at byte offset off in the file's content, stopping
// at ino.Size. Holes read as zero; reading never allocates (spec §4.7).
func (f *FileData) Read(ino *Inode, off int64, p []byte) (int, error) {
	if off < 0 {
		return 0, wrapf(ErrInvalidArgument, "negative read offset %d", off)
	}
	if uint64(off) >= ino.Size {
		return 0, nil
	}
	end := int64(ino.Size)
	if off+int64(len(p)) > end {
		p = p[:end-off]
	}
	bs := f.sb.BlockSize()
	order := f.c.ByteOrder()
	blocks := ino.dataBlocksOrdered(order)

	var n int
	for n < len(p) {
		pos := off + int64(n)
		idx := pos / bs
		inBlock := pos % bs
		blkSize := f.ind.GetBlockSize(ino.Size, idx)

		want := int64(len(p) - n)
		if room := blkSize - inBlock; want > room {
			want = room
		}

		ptr, found, err := f.ind.Resolve(blocks, idx)
		if err != nil {
			return n, err
		}
		if !found {
			// sparse hole: zero-fill this stretch of p.
			for i := n; i < n+int(want); i++ {
				p[i] = 0
			}
			n += int(want)
			continue
		}
		byteOff := ptr*f.sb.FragSize() + inBlock
		if err := f.c.readRaw(byteOff, p[n:n+int(want)]); err != nil {
			return n, wrapf(ErrIO, "read file data: %v", err)
		}
		n += int(want)
	}
	return n, nil
}

// Write stores p at byte offset off, growing the file and allocating any
// block or fragment the write touches for the first time (spec §4.7). It
// returns the updated inode; the caller stores it (InodeStore.Store or
// Engine wraps this with cache invalidation).
func (f *FileData) Write(ino *Inode, off int64, p []byte) (*Inode, int, error) {
	if off < 0 {
		return ino, 0, wrapf(ErrInvalidArgument, "negative write offset %d", off)
	}
	if len(p) == 0 {
		return ino, 0, nil
	}

	newEnd := uint64(off + int64(len(p)))
	eventual := newEnd
	if ino.Size > eventual {
		eventual = ino.Size
	}
	bs := f.sb.BlockSize()
	fragSz := f.sb.FragSize()
	order := f.c.ByteOrder()
	blocks := ino.dataBlocksOrdered(order)

	var n int
	for n < len(p) {
		pos := off + int64(n)
		idx := pos / bs
		inBlock := pos % bs

		// size used to classify this index's slot is always the eventual
		// file size, since the write may be extending it as it goes.
		blkSize := f.ind.GetBlockSize(eventual, idx)
		want := int64(len(p) - n)
		if room := blkSize - inBlock; want > room {
			want = room
		}

		ptr, found, err := f.ind.Resolve(blocks, idx)
		if err != nil {
			return ino, n, err
		}
		if !found {
			nb, err := f.allocSlot(blkSize)
			if err != nil {
				return ino, n, err
			}
			blocks, err = f.ind.Assign(blocks, idx, nb)
			if err != nil {
				return ino, n, err
			}
			ptr = nb
			ino.Blocks += uint64(blkSize / 512)
		} else if existing := f.ind.GetBlockSize(ino.Size, idx); existing < blkSize {
			// a fragment-sized tail slot is being extended, whether the
			// write starts at its front or somewhere inside it: reallocate
			// it at the new size and copy the previously-written bytes
			// across before this iteration writes into it.
			grown, err := f.growFragment(ptr, existing, blkSize)
			if err != nil {
				return ino, n, err
			}
			blocks, err = f.ind.Assign(blocks, idx, grown)
			if err != nil {
				return ino, n, err
			}
			ptr = grown
			ino.Blocks += uint64((blkSize - existing) / 512)
		}

		byteOff := ptr*fragSz + inBlock
		if err := f.c.writeRaw(byteOff, p[n:n+int(want)]); err != nil {
			return ino, n, wrapf(ErrIO, "write file data: %v", err)
		}
		n += int(want)
	}

	if newEnd > ino.Size {
		ino.Size = newEnd
	}
	ino.setDataBlocksOrdered(order, blocks)
	return ino, n, nil
}

// allocSlot allocates a new leaf slot sized either a full block or a
// fragment run, zero-filling it so unwritten bytes within the slot read
// back as zero.
func (f *FileData) allocSlot(size int64) (int64, error) {
	bs := f.sb.BlockSize()
	if size == bs {
		nb, err := f.alloc.BlkAllocFullZeroed()
		return int64(nb), err
	}
	bno, allocSize, err := f.alloc.BlkAlloc(size)
	if err != nil {
		return 0, err
	}
	zero := make([]byte, allocSize)
	if err := f.c.writeRaw(int64(bno)*f.sb.FragSize(), zero); err != nil {
		return 0, err
	}
	return int64(bno), nil
}

// growFragment reallocates a fragment-sized tail slot as a full block
// (or larger fragment run), copying the previously-written bytes across
// and freeing the old run.
func (f *FileData) growFragment(oldPtr, oldSize, newSize int64) (int64, error) {
	old := make([]byte, oldSize)
	if err := f.c.readRaw(oldPtr*f.sb.FragSize(), old); err != nil {
		return 0, err
	}
	nb, err := f.allocSlot(newSize)
	if err != nil {
		return 0, err
	}
	if err := f.c.writeRaw(nb*f.sb.FragSize(), old); err != nil {
		return 0, err
	}
	if err := f.alloc.BlkFree(uint64(oldPtr), oldSize); err != nil {
		return 0, err
	}
	return nb, nil
}

// CopyRange copies n bytes from src at srcOff to dst at dstOff, one
// DirBlkSize chunk at a time, used by Dir.Unlink to slide later slabs down
// after it drops an emptied slab (spec §4.8).
func (f *FileData) CopyRange(dst, src *Inode, dstOff, srcOff int64, n int64) (*Inode, error) {
	buf := make([]byte, DirBlkSize)
	var copied int64
	for copied < n {
		want := n - copied
		if want > int64(len(buf)) {
			want = int64(len(buf))
		}
		nr, err := f.Read(src, srcOff+copied, buf[:want])
		if err != nil {
			return dst, err
		}
		for i := int64(nr); i < want; i++ {
			buf[i] = 0
		}
		updated, _, err := f.Write(dst, dstOff+copied, buf[:want])
		if err != nil {
			return dst, err
		}
		dst = updated
		copied += want
	}
	return dst, nil
}
