package ufs2

import "io/fs"

// UFS2 mode bits follow the same POSIX S_IFMT layout as every other unix
// filesystem. The type bits themselves are declared once in ondisk.go
// (sIFMT etc.) so Inode.Type and these conversions never disagree; these
// extra bits are only needed here, for translating to/from fs.FileMode.
const (
	sISUID = 0o4000
	sISGID = 0o2000
	sISVTX = 0o1000
)

// UnixToMode converts a raw on-disk mode into an fs.FileMode.
func UnixToMode(mode uint16) fs.FileMode {
	res := fs.FileMode(mode & 0777)

	switch mode & sIFMT {
	case sIFCHR:
		res |= fs.ModeCharDevice | fs.ModeDevice
	case sIFBLK:
		res |= fs.ModeDevice
	case sIFDIR:
		res |= fs.ModeDir
	case sIFIFO:
		res |= fs.ModeNamedPipe
	case sIFLNK:
		res |= fs.ModeSymlink
	case sIFSOCK:
		res |= fs.ModeSocket
	}

	if mode&sISGID == sISGID {
		res |= fs.ModeSetgid
	}
	if mode&sISUID == sISUID {
		res |= fs.ModeSetuid
	}
	if mode&sISVTX == sISVTX {
		res |= fs.ModeSticky
	}

	return res
}

// ModeToUnix converts an fs.FileMode into a raw on-disk mode.
func ModeToUnix(mode fs.FileMode) uint16 {
	res := uint16(mode.Perm())

	switch {
	case mode&fs.ModeCharDevice == fs.ModeCharDevice:
		res |= sIFCHR
	case mode&fs.ModeDevice == fs.ModeDevice:
		res |= sIFBLK
	case mode&fs.ModeDir == fs.ModeDir:
		res |= sIFDIR
	case mode&fs.ModeNamedPipe == fs.ModeNamedPipe:
		res |= sIFIFO
	case mode&fs.ModeSymlink == fs.ModeSymlink:
		res |= sIFLNK
	case mode&fs.ModeSocket == fs.ModeSocket:
		res |= sIFSOCK
	default:
		res |= sIFREG
	}

	if mode&fs.ModeSetgid == fs.ModeSetgid {
		res |= sISGID
	}
	if mode&fs.ModeSetuid == fs.ModeSetuid {
		res |= sISUID
	}
	if mode&fs.ModeSticky == fs.ModeSticky {
		res |= sISVTX
	}

	return res
}
