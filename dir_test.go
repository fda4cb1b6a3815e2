package ufs2

import (
	"errors"
	"testing"
)

func TestDirRecLen(t *testing.T) {
	cases := []struct {
		namelen int
		want    int
	}{
		{0, 8 + 4},
		{1, 8 + 4},
		{3, 8 + 4},
		{4, 8 + 8},
		{11, 8 + 12},
	}
	for _, c := range cases {
		if got := dirRecLen(c.namelen); got != c.want {
			t.Errorf("dirRecLen(%d) = %d, want %d", c.namelen, got, c.want)
		}
	}
}

// newTestDirInode allocates a fresh, empty directory-shaped inode: size 0,
// no data blocks, and no records at all (not even "." or "..").
func newTestDirInode(t *testing.T, f *testFixture) (InodeNumber, *Inode) {
	t.Helper()
	inr, ino, err := f.inodes.Alloc(&Inode{Mode: sIFDIR | 0755})
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	return inr, ino
}

func TestNewLinkLookupUnlink(t *testing.T) {
	f := newTestFixture(t)
	dirInr, dirIno := newTestDirInode(t, f)

	childInr, _, err := f.inodes.Alloc(&Inode{Mode: sIFREG | 0644})
	if err != nil {
		t.Fatalf("Alloc child: %v", err)
	}

	dirIno, err = f.dir.NewLink(dirIno, "hello.txt", childInr, DTReg)
	if err != nil {
		t.Fatalf("NewLink: %v", err)
	}
	if err := f.inodes.Store(dirInr, dirIno); err != nil {
		t.Fatalf("Store dir: %v", err)
	}

	gotInr, gotKind, err := f.dir.Lookup(dirIno, "hello.txt")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if gotInr != childInr || gotKind != DTReg {
		t.Fatalf("Lookup = (%d,%d), want (%d,%d)", gotInr, gotKind, childInr, DTReg)
	}

	if _, _, err := f.dir.Lookup(dirIno, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup(missing) = %v, want ErrNotFound", err)
	}

	dirIno, err = f.dir.Unlink(dirInr, dirIno, "hello.txt")
	if err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if _, _, err := f.dir.Lookup(dirIno, "hello.txt"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup after Unlink = %v, want ErrNotFound", err)
	}
	// "hello.txt" was the sole record in its slab, so removing it must
	// drop the whole slab and shrink the directory back down.
	if dirIno.Size != 0 {
		t.Fatalf("dirIno.Size = %d, want 0 once the only slab's sole record is unlinked", dirIno.Size)
	}
}

// TestUnlinkFirstRecordMergesFollowing covers the case where the removed
// record is the first in its slab but not the only one: the following
// record must be folded over position zero, absorbing the freed space
// into its own reclen, rather than the slab being dropped.
func TestUnlinkFirstRecordMergesFollowing(t *testing.T) {
	f := newTestFixture(t)
	dirInr, dirIno := newTestDirInode(t, f)

	aInr, _, err := f.inodes.Alloc(&Inode{Mode: sIFREG | 0644})
	if err != nil {
		t.Fatalf("Alloc a: %v", err)
	}
	bInr, _, err := f.inodes.Alloc(&Inode{Mode: sIFREG | 0644})
	if err != nil {
		t.Fatalf("Alloc b: %v", err)
	}

	dirIno, err = f.dir.NewLink(dirIno, "a", aInr, DTReg)
	if err != nil {
		t.Fatalf("NewLink a: %v", err)
	}
	dirIno, err = f.dir.NewLink(dirIno, "b", bInr, DTReg)
	if err != nil {
		t.Fatalf("NewLink b: %v", err)
	}
	sizeBefore := dirIno.Size

	dirIno, err = f.dir.Unlink(dirInr, dirIno, "a")
	if err != nil {
		t.Fatalf("Unlink a: %v", err)
	}
	if dirIno.Size != sizeBefore {
		t.Fatalf("Size = %d, want unchanged %d: the slab still holds \"b\"", dirIno.Size, sizeBefore)
	}
	if _, _, err := f.dir.Lookup(dirIno, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup(a) after Unlink = %v, want ErrNotFound", err)
	}
	gotInr, gotKind, err := f.dir.Lookup(dirIno, "b")
	if err != nil {
		t.Fatalf("Lookup(b): %v", err)
	}
	if gotInr != bInr || gotKind != DTReg {
		t.Fatalf("Lookup(b) = (%d,%d), want (%d,%d)", gotInr, gotKind, bInr, DTReg)
	}
}

// TestUnlinkMiddleRecordMergesIntoPreceding covers the case where the
// removed record is neither first nor sole in its slab: the preceding
// record's reclen is extended to swallow it in place.
func TestUnlinkMiddleRecordMergesIntoPreceding(t *testing.T) {
	f := newTestFixture(t)
	dirInr, dirIno := newTestDirInode(t, f)

	var inrs []InodeNumber
	for _, n := range []string{"a", "b", "c"} {
		childInr, _, err := f.inodes.Alloc(&Inode{Mode: sIFREG | 0644})
		if err != nil {
			t.Fatalf("Alloc %q: %v", n, err)
		}
		inrs = append(inrs, childInr)
		dirIno, err = f.dir.NewLink(dirIno, n, childInr, DTReg)
		if err != nil {
			t.Fatalf("NewLink %q: %v", n, err)
		}
	}

	dirIno, err := f.dir.Unlink(dirInr, dirIno, "b")
	if err != nil {
		t.Fatalf("Unlink b: %v", err)
	}
	if _, _, err := f.dir.Lookup(dirIno, "b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup(b) after Unlink = %v, want ErrNotFound", err)
	}
	if _, _, err := f.dir.Lookup(dirIno, "a"); err != nil {
		t.Fatalf("Lookup(a) should still resolve: %v", err)
	}
	if _, _, err := f.dir.Lookup(dirIno, "c"); err != nil {
		t.Fatalf("Lookup(c) should still resolve: %v", err)
	}
}

func TestDirIsEmpty(t *testing.T) {
	f := newTestFixture(t)
	_, dirIno := newTestDirInode(t, f)

	empty, err := f.dir.IsEmpty(dirIno)
	if err != nil {
		t.Fatalf("IsEmpty: %v", err)
	}
	if !empty {
		t.Fatal("a directory with no records at all should be empty")
	}

	selfInr := InodeNumber(42)
	dirIno, err = f.dir.NewLink(dirIno, ".", selfInr, DTDir)
	if err != nil {
		t.Fatalf("NewLink(.): %v", err)
	}
	dirIno, err = f.dir.NewLink(dirIno, "..", selfInr, DTDir)
	if err != nil {
		t.Fatalf("NewLink(..): %v", err)
	}
	empty, err = f.dir.IsEmpty(dirIno)
	if err != nil {
		t.Fatalf("IsEmpty after . and ..: %v", err)
	}
	if !empty {
		t.Fatal("a directory with only . and .. should still be empty")
	}

	childInr, _, err := f.inodes.Alloc(&Inode{Mode: sIFREG | 0644})
	if err != nil {
		t.Fatalf("Alloc child: %v", err)
	}
	dirIno, err = f.dir.NewLink(dirIno, "file", childInr, DTReg)
	if err != nil {
		t.Fatalf("NewLink(file): %v", err)
	}
	empty, err = f.dir.IsEmpty(dirIno)
	if err != nil {
		t.Fatalf("IsEmpty after adding a file: %v", err)
	}
	if empty {
		t.Fatal("a directory with a real entry should not be empty")
	}
}

func TestDirIterYieldsAllEntries(t *testing.T) {
	f := newTestFixture(t)
	_, dirIno := newTestDirInode(t, f)

	names := []string{"a", "bb", "ccc"}
	for _, n := range names {
		childInr, _, err := f.inodes.Alloc(&Inode{Mode: sIFREG | 0644})
		if err != nil {
			t.Fatalf("Alloc %q: %v", n, err)
		}
		dirIno, err = f.dir.NewLink(dirIno, n, childInr, DTReg)
		if err != nil {
			t.Fatalf("NewLink %q: %v", n, err)
		}
	}

	seen := map[string]bool{}
	err := f.dir.Iter(dirIno, 0, func(e DirEntry) bool {
		seen[e.Name] = true
		return true
	})
	if err != nil {
		t.Fatalf("Iter: %v", err)
	}
	for _, n := range names {
		if !seen[n] {
			t.Errorf("Iter did not yield %q", n)
		}
	}
}
