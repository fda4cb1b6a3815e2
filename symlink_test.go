package ufs2

import (
	"bytes"
	"strings"
	"testing"
)

func TestSymlinkShortlinkRoundTrip(t *testing.T) {
	f := newTestFixture(t)
	sym := newSymlink(f.fd)

	inr, ino, err := f.inodes.Alloc(&Inode{Mode: sIFLNK | 0777})
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	ino, err = sym.WriteTarget(ino, []byte("../etc/passwd"))
	if err != nil {
		t.Fatalf("WriteTarget: %v", err)
	}
	if !ino.IsShortlink() {
		t.Fatal("a short target should be stored inline")
	}
	if err := f.inodes.Store(inr, ino); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := sym.Read(ino)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "../etc/passwd" {
		t.Fatalf("Read = %q, want %q", got, "../etc/passwd")
	}
}

// TestSymlinkExactThresholdUsesBlockedForm pins the boundary at UFSSLLen
// itself: a target of exactly that length no longer fits inline (strict
// less-than), so it must go through the block-mapped path.
func TestSymlinkExactThresholdUsesBlockedForm(t *testing.T) {
	f := newTestFixture(t)
	sym := newSymlink(f.fd)

	inr, ino, err := f.inodes.Alloc(&Inode{Mode: sIFLNK | 0777})
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	target := []byte(strings.Repeat("b", UFSSLLen))
	ino, err = sym.WriteTarget(ino, target)
	if err != nil {
		t.Fatalf("WriteTarget: %v", err)
	}
	if ino.IsShortlink() {
		t.Fatal("a target of exactly UFSSLLen bytes must use the blocked form, not inline")
	}
	if err := f.inodes.Store(inr, ino); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := sym.Read(ino)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, target) {
		t.Fatal("exact-threshold symlink read-back mismatch")
	}
}

func TestSymlinkLongTargetRoundTrip(t *testing.T) {
	f := newTestFixture(t)
	sym := newSymlink(f.fd)

	inr, ino, err := f.inodes.Alloc(&Inode{Mode: sIFLNK | 0777})
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	target := []byte(strings.Repeat("a", UFSSLLen+50))
	ino, err = sym.WriteTarget(ino, target)
	if err != nil {
		t.Fatalf("WriteTarget: %v", err)
	}
	if ino.IsShortlink() {
		t.Fatal("a target longer than UFSSLLen must not be stored inline")
	}
	if err := f.inodes.Store(inr, ino); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := sym.Read(ino)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, target) {
		t.Fatal("long symlink read-back mismatch")
	}
}
