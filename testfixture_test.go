package ufs2

import (
	"encoding/binary"
	"testing"
)

// directUpdater funnels sbUpdater straight into an in-memory Superblock,
// standing in for Engine.UpdateSB in tests that exercise BlockAlloc/
// InodeStore without a running Engine.
type directUpdater struct {
	sb *Superblock
}

func (u *directUpdater) UpdateSB(fn func(*Superblock)) error {
	fn(u.sb)
	return nil
}

// testFixture wires a small single-cylinder-group UFS2 image, entirely
// in memory, through every storage layer (spec §1 "Test tooling").
// Geometry: 4096-byte blocks, 512-byte fragments, one CG of 8 blocks (64
// fragments), 32 inodes.
type testFixture struct {
	dev    *memDevice
	codec  *Codec
	sb     *Superblock
	alloc  *BlockAlloc
	ind    *IndirectMap
	inodes *InodeStore
	fd     *FileData
	dir    *Dir
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	const (
		bsize  = 4096
		fsize  = 512
		frag   = 8
		fpg    = 64  // 64 fragments = 8 blocks per CG
		ipg    = 32
		cblkno = 64  // frags; CG header lives at byte 32768, past the CG's own block data
		iblkno = 128 // frags; inode table lives at byte 65536, past the CG header
	)

	sb := &Superblock{
		Bsize:     bsize,
		Fsize:     fsize,
		Frag:      frag,
		Fragshift: 3,
		Fpg:       fpg,
		Ipg:       ipg,
		Ncg:       1,
		Cblkno:    cblkno,
		Iblkno:    iblkno,
		Inopb:     uint32(bsize / UFSInodeSize),
	}

	dev := newMemDevice(1 << 20)
	codec := newCodec(binary.LittleEndian, dev, dev)

	cgo := sb.CGAddr(0)
	cg := &CylGroup{
		Magic:    CGMagic,
		Iusedoff: 256,
		Freeoff:  512,
		Cs: Csum{
			Nbfree: fpg / frag,
			Nffree: 0,
			Nifree: ipg,
		},
	}
	if err := codec.EncodeStruct(cgo, cg); err != nil {
		t.Fatalf("seed cylinder group: %v", err)
	}
	// Every fragment starts free (0xff bytes); every inode starts unused
	// (0x00 bytes).
	freeBitmap := make([]byte, fpg/8)
	for i := range freeBitmap {
		freeBitmap[i] = 0xff
	}
	if err := codec.writeRaw(cgo+int64(cg.Freeoff), freeBitmap); err != nil {
		t.Fatalf("seed free bitmap: %v", err)
	}
	usedBitmap := make([]byte, (ipg+7)/8)
	if err := codec.writeRaw(cgo+int64(cg.Iusedoff), usedBitmap); err != nil {
		t.Fatalf("seed inode-used bitmap: %v", err)
	}

	up := &directUpdater{sb: sb}
	alloc := newBlockAlloc(codec, sb, up)
	ind := newIndirectMap(codec, sb, alloc)
	caches, err := newCaches(16, 16, 16)
	if err != nil {
		t.Fatalf("newCaches: %v", err)
	}
	inodes := newInodeStore(codec, sb, caches, alloc, ind, up)
	fd := newFileData(codec, sb, inodes, ind, alloc)
	dir := newDir(fd, inodes, binary.LittleEndian)

	return &testFixture{
		dev: dev, codec: codec, sb: sb,
		alloc: alloc, ind: ind, inodes: inodes, fd: fd, dir: dir,
	}
}
