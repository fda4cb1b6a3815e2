package ufs2

import (
	"io/fs"
	"testing"
)

func TestUnixToModeRoundTrip(t *testing.T) {
	cases := []uint16{
		sIFREG | 0644,
		sIFDIR | 0755,
		sIFLNK | 0777,
		sIFCHR | 0600,
		sIFBLK | 0660,
		sIFIFO | 0644,
		sIFSOCK | 0644,
		sIFREG | 0644 | sISUID,
		sIFDIR | 0755 | sISGID,
		sIFREG | 0644 | sISVTX,
	}
	for _, m := range cases {
		back := ModeToUnix(UnixToMode(m))
		if back != m {
			t.Errorf("round trip %#o -> %#o -> %#o, want match", m, UnixToMode(m), back)
		}
	}
}

func TestUnixToModeTypeBits(t *testing.T) {
	if UnixToMode(sIFDIR)&fs.ModeDir == 0 {
		t.Error("expected ModeDir")
	}
	if UnixToMode(sIFLNK)&fs.ModeSymlink == 0 {
		t.Error("expected ModeSymlink")
	}
	if UnixToMode(sIFREG).Perm() != 0 {
		t.Error("plain regular mode with no perm bits should have zero perm")
	}
}
