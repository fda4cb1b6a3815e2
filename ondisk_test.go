package ufs2

import "testing"

func TestInodeSizeFormula(t *testing.T) {
	const bs, fs = 4096, 512
	cases := []struct {
		size           int64
		blocks, frags int64
	}{
		{0, 0, 0},
		{1, 0, 1},
		{512, 0, 1},
		{513, 0, 2},
		{4096, 1, 0},
		{4096 + 1, 1, 1},
		{4096 + 512, 1, 1},
		{8192, 2, 0},
	}
	for _, c := range cases {
		blocks, frags := inodeSize(bs, fs, c.size)
		if blocks != c.blocks || frags != c.frags {
			t.Errorf("inodeSize(%d) = (%d,%d), want (%d,%d)", c.size, blocks, frags, c.blocks, c.frags)
		}
	}
}

func TestDtForModeRoundTrip(t *testing.T) {
	modes := []uint16{sIFIFO, sIFCHR, sIFDIR, sIFBLK, sIFREG, sIFLNK, sIFSOCK}
	for _, m := range modes {
		dt := dtForMode(m)
		if dt == DTUnknown {
			t.Errorf("dtForMode(%#o) returned DTUnknown", m)
		}
	}
	if dtForMode(0) != DTUnknown {
		t.Errorf("dtForMode(0) should be DTUnknown")
	}
}

func TestFsModeFromDT(t *testing.T) {
	if fsModeFromDT(DTReg) != 0 {
		t.Errorf("fsModeFromDT(DTReg) should be the zero FileMode (no type bits)")
	}
	if fsModeFromDT(DTDir) == 0 {
		t.Errorf("fsModeFromDT(DTDir) should carry fs.ModeDir")
	}
}

func TestRound4Round8(t *testing.T) {
	cases := []struct{ n, r4, r8 int }{
		{0, 0, 0},
		{1, 4, 8},
		{4, 4, 8},
		{5, 8, 8},
		{8, 8, 8},
		{9, 12, 16},
	}
	for _, c := range cases {
		if got := round4(c.n); got != c.r4 {
			t.Errorf("round4(%d) = %d, want %d", c.n, got, c.r4)
		}
		if got := round8(c.n); got != c.r8 {
			t.Errorf("round8(%d) = %d, want %d", c.n, got, c.r8)
		}
	}
}

func TestHowmany(t *testing.T) {
	cases := []struct{ x, y, want int64 }{
		{0, 512, 0},
		{1, 512, 1},
		{512, 512, 1},
		{513, 512, 2},
	}
	for _, c := range cases {
		if got := howmany(c.x, c.y); got != c.want {
			t.Errorf("howmany(%d,%d) = %d, want %d", c.x, c.y, got, c.want)
		}
	}
}

func TestInodeTypeAndShortlink(t *testing.T) {
	ino := &Inode{Mode: sIFLNK}
	if !ino.IsSymlink() {
		t.Fatal("expected IsSymlink")
	}
	if !ino.IsShortlink() {
		t.Fatal("a zero-Blocks symlink should be a shortlink")
	}
	ino.SetShortlink([]byte("target"))
	if string(ino.Shortlink()) != "target" {
		t.Fatalf("Shortlink() = %q, want %q", ino.Shortlink(), "target")
	}
	if ino.Blocks != 0 {
		t.Fatal("SetShortlink must clear Blocks")
	}
	ino.Blocks = 1
	if ino.IsShortlink() {
		t.Fatal("a symlink with Blocks != 0 is not a shortlink")
	}
}
