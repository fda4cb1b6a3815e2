package ufs2

import (
	"errors"
	"testing"
)

func TestInodeAllocSetsNlinkAndBumpsGen(t *testing.T) {
	f := newTestFixture(t)

	inr, ino, err := f.inodes.Alloc(&Inode{Mode: sIFREG | 0644})
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if ino.Nlink != 1 {
		t.Fatalf("ino.Nlink = %d, want 1", ino.Nlink)
	}
	if ino.Gen == 0 {
		t.Fatal("Alloc should bump the generation number off its zero-value default")
	}

	loaded, err := f.inodes.Load(inr)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Mode != ino.Mode || loaded.Gen != ino.Gen {
		t.Fatalf("Load = %+v, want match of Alloc result %+v", loaded, ino)
	}
}

func TestInodeBumpIncrementsNlink(t *testing.T) {
	f := newTestFixture(t)

	inr, _, err := f.inodes.Alloc(&Inode{Mode: sIFREG | 0644})
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if err := f.inodes.Bump(inr); err != nil {
		t.Fatalf("Bump: %v", err)
	}
	ino, err := f.inodes.Load(inr)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ino.Nlink != 2 {
		t.Fatalf("ino.Nlink = %d, want 2 after Bump", ino.Nlink)
	}
}

func TestInodeFreeDecrementsThenReleases(t *testing.T) {
	f := newTestFixture(t)

	inr, _, err := f.inodes.Alloc(&Inode{Mode: sIFREG | 0644})
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if err := f.inodes.Bump(inr); err != nil {
		t.Fatalf("Bump: %v", err)
	}

	if err := f.inodes.Free(inr); err != nil {
		t.Fatalf("first Free: %v", err)
	}
	ino, err := f.inodes.Load(inr)
	if err != nil {
		t.Fatalf("Load after first Free: %v", err)
	}
	if ino.Nlink != 1 {
		t.Fatalf("ino.Nlink = %d, want 1 after one Free of a doubly-linked inode", ino.Nlink)
	}

	if err := f.inodes.Free(inr); err != nil {
		t.Fatalf("second Free: %v", err)
	}
	if _, err := f.inodes.Load(inr); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Load after final Free = %v, want ErrInvalidArgument (slot released)", err)
	}
}

func TestInodeAllocReusesFreedSlot(t *testing.T) {
	f := newTestFixture(t)

	inr, _, err := f.inodes.Alloc(&Inode{Mode: sIFREG | 0644})
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if err := f.inodes.Free(inr); err != nil {
		t.Fatalf("Free: %v", err)
	}

	inr2, ino2, err := f.inodes.Alloc(&Inode{Mode: sIFDIR | 0755})
	if err != nil {
		t.Fatalf("second Alloc: %v", err)
	}
	if inr2 != inr {
		t.Fatalf("expected the freed inode number %d to be reused, got %d", inr, inr2)
	}
	if ino2.Gen == 0 {
		t.Fatal("reused slot should still carry a nonzero generation")
	}
}

func TestInodeFreeReleasesBlocks(t *testing.T) {
	f := newTestFixture(t)

	inr, ino := newTestFileInode(t, f)
	bs := int(f.sb.BlockSize())
	ino, _, err := f.fd.Write(ino, 0, make([]byte, bs*2))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.inodes.Store(inr, ino); err != nil {
		t.Fatalf("Store: %v", err)
	}

	before := mustReadCG(t, f).Cs.Nbfree

	if err := f.inodes.Free(inr); err != nil {
		t.Fatalf("Free: %v", err)
	}

	after := mustReadCG(t, f).Cs.Nbfree
	if after <= before {
		t.Fatalf("Nbfree did not increase after freeing a 2-block file: before=%d after=%d", before, after)
	}
}

func TestInodeTruncateShrinkDropsWholeBlock(t *testing.T) {
	f := newTestFixture(t)

	inr, ino := newTestFileInode(t, f)
	bs := int64(f.sb.BlockSize())
	ino, _, err := f.fd.Write(ino, 0, make([]byte, bs*2))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.inodes.Store(inr, ino); err != nil {
		t.Fatalf("Store: %v", err)
	}
	blocksBefore := ino.Blocks

	if err := f.inodes.Truncate(inr, ino, uint64(bs)); err != nil {
		t.Fatalf("Truncate: %v", err)
	}

	shrunk, err := f.inodes.Load(inr)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if shrunk.Size != uint64(bs) {
		t.Fatalf("Size = %d, want %d", shrunk.Size, bs)
	}
	if shrunk.Blocks >= blocksBefore {
		t.Fatalf("Blocks should drop after truncating away the second block: before=%d after=%d", blocksBefore, shrunk.Blocks)
	}
}

func TestInodeTruncateToZeroFreesEverything(t *testing.T) {
	f := newTestFixture(t)

	inr, ino := newTestFileInode(t, f)
	bs := int64(f.sb.BlockSize())
	ino, _, err := f.fd.Write(ino, 0, make([]byte, bs+100))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.inodes.Store(inr, ino); err != nil {
		t.Fatalf("Store: %v", err)
	}

	if err := f.inodes.Truncate(inr, ino, 0); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	shrunk, err := f.inodes.Load(inr)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if shrunk.Size != 0 {
		t.Fatalf("Size = %d, want 0", shrunk.Size)
	}
	if shrunk.Blocks != 0 {
		t.Fatalf("Blocks = %d, want 0 after truncating to zero", shrunk.Blocks)
	}
}

func TestInodeModifyPreservesTypeBits(t *testing.T) {
	f := newTestFixture(t)

	inr, _, err := f.inodes.Alloc(&Inode{Mode: sIFDIR | 0755})
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	attr, err := f.inodes.Modify(inr, func(a *InodeAttr) {
		a.Mode = 0700
		a.UID = 1000
		a.GID = 1000
	})
	if err != nil {
		t.Fatalf("Modify: %v", err)
	}
	if attr.Mode&sIFMT != sIFDIR {
		t.Fatalf("Modify must preserve the directory type bits, got mode %o", attr.Mode)
	}
	if attr.Mode&^sIFMT != 0700 {
		t.Fatalf("Modify should apply the new permission bits, got %o", attr.Mode&^sIFMT)
	}
	if attr.UID != 1000 || attr.GID != 1000 {
		t.Fatalf("Modify should apply UID/GID, got uid=%d gid=%d", attr.UID, attr.GID)
	}
}
