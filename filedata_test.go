package ufs2

import (
	"bytes"
	"testing"
)

func newTestFileInode(t *testing.T, f *testFixture) (InodeNumber, *Inode) {
	t.Helper()
	inr, ino, err := f.inodes.Alloc(&Inode{Mode: sIFREG | 0644})
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	return inr, ino
}

func TestFileDataWriteReadWithinFragment(t *testing.T) {
	f := newTestFixture(t)
	_, ino := newTestFileInode(t, f)

	data := []byte("hello, ufs2")
	ino, n, err := f.fd.Write(ino, 0, data)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != len(data) {
		t.Fatalf("Write wrote %d bytes, want %d", n, len(data))
	}
	if ino.Size != uint64(len(data)) {
		t.Fatalf("ino.Size = %d, want %d", ino.Size, len(data))
	}

	buf := make([]byte, len(data))
	if _, err := f.fd.Read(ino, 0, buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(buf, data) {
		t.Fatalf("Read = %q, want %q", buf, data)
	}
}

func TestFileDataWriteAcrossMultipleBlocks(t *testing.T) {
	f := newTestFixture(t)
	_, ino := newTestFileInode(t, f)

	bs := int(f.sb.BlockSize())
	data := bytes.Repeat([]byte{0xab}, bs*2+100)

	ino, n, err := f.fd.Write(ino, 0, data)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != len(data) {
		t.Fatalf("Write wrote %d, want %d", n, len(data))
	}

	buf := make([]byte, len(data))
	if _, err := f.fd.Read(ino, 0, buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(buf, data) {
		t.Fatal("read-back mismatch across a multi-block write")
	}
}

func TestFileDataReadHoleIsZero(t *testing.T) {
	f := newTestFixture(t)
	_, ino := newTestFileInode(t, f)

	bs := int64(f.sb.BlockSize())
	// Write only at the start of the second block, leaving the first
	// block's index an unallocated hole while the file's Size still spans
	// past it.
	ino, _, err := f.fd.Write(ino, bs, []byte("second block"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	buf := make([]byte, 16)
	if _, err := f.fd.Read(ino, 0, buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("hole byte %d = %#x, want 0", i, b)
		}
	}
}

// TestFileDataAppendMidFragmentPromotes is the exact regression case: a
// short first write leaves a fragment-sized tail slot, and a second write
// starting partway into that slot's block (not at its front) still needs
// the slot grown (here to a two-fragment run) before writing, or the write
// runs past the single allocated fragment into unallocated disk.
func TestFileDataAppendMidFragmentPromotes(t *testing.T) {
	f := newTestFixture(t)
	_, ino := newTestFileInode(t, f)

	fragSz := int(f.sb.FragSize())
	first := bytes.Repeat([]byte{0x33}, fragSz)
	ino, _, err := f.fd.Write(ino, 0, first)
	if err != nil {
		t.Fatalf("first Write: %v", err)
	}
	firstBlocks := ino.Blocks

	// Append starting mid-fragment (not at inBlock==0): offset fragSz/2,
	// ending at 1.5 fragments, past the single allocated fragment.
	second := bytes.Repeat([]byte{0x44}, fragSz)
	off := int64(fragSz / 2)
	ino, _, err = f.fd.Write(ino, off, second)
	if err != nil {
		t.Fatalf("second Write: %v", err)
	}
	if ino.Blocks <= firstBlocks {
		t.Fatalf("ino.Blocks should grow once the fragmented tail is promoted: before=%d after=%d", firstBlocks, ino.Blocks)
	}

	want := append([]byte{}, first...)
	want = append(want[:off], second...)
	buf := make([]byte, len(want))
	if _, err := f.fd.Read(ino, 0, buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(buf, want) {
		t.Fatalf("read-back mismatch: got %x, want %x", buf, want)
	}
}

func TestFileDataWriteGrowsFragmentToFullBlock(t *testing.T) {
	f := newTestFixture(t)
	_, ino := newTestFileInode(t, f)

	// First write a short tail slot (less than one block): allocates a
	// fragment-sized slot.
	ino, _, err := f.fd.Write(ino, 0, []byte("short"))
	if err != nil {
		t.Fatalf("first Write: %v", err)
	}
	firstBlocks := ino.Blocks

	// Now extend it well past one block: the original fragment slot must
	// be promoted to a full block.
	bs := int(f.sb.BlockSize())
	big := bytes.Repeat([]byte{0x7a}, bs+10)
	ino, _, err = f.fd.Write(ino, 0, big)
	if err != nil {
		t.Fatalf("second Write: %v", err)
	}
	if ino.Blocks <= firstBlocks {
		t.Fatalf("ino.Blocks should grow once the tail fragment is promoted to a full block: before=%d after=%d", firstBlocks, ino.Blocks)
	}

	buf := make([]byte, len(big))
	if _, err := f.fd.Read(ino, 0, buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(buf, big) {
		t.Fatal("read-back mismatch after fragment-to-block promotion")
	}
}
