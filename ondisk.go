package ufs2

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io/fs"
	"reflect"
)

// On-disk constants fixed by the UFS2 format (spec §6, GLOSSARY). Field
// layouts below are transcribed, in declared order, from the authoritative
// FreeBSD struct fs / struct cg / struct ufs2_dinode layout as surfaced by
// original_source/src/data.rs.
const (
	FSUFS2Magic  = 0x19540119
	MagicOffset  = 1372
	CGMagic      = 0x090255
	SBlockUFS2   = 65536
	SBlockSize   = 8192
	CGSize       = 32768
	MaxFrag      = 8
	MaxMntLen    = 468
	MaxVolLen    = 32
	FSMaxSnap    = 20
	NOCSPtrs     = (128 / 8) - 1
	UFSNXAddr    = 2
	UFSNDAddr    = 12
	UFSMaxNameLen = 255
	UFSNIAddr    = 3
	UFSSLLen     = (UFSNDAddr + UFSNIAddr) * 8
	UFSInodeSize = 256
	UFSExtattrMaxNameLen = 64

	DirBlkSize = 512

	RootInode InodeNumber = 2
)

// InodeNumber is the non-zero 32-bit identifier of an on-disk inode record.
type InodeNumber uint32

// File type bits within Inode.Mode, matching the POSIX S_IFMT layout UFS
// shares with every other unix filesystem (see mode.go).
const (
	sIFMT  = 0o170000
	sIFIFO = 0o010000
	sIFCHR = 0o020000
	sIFDIR = 0o040000
	sIFBLK = 0o060000
	sIFREG = 0o100000
	sIFLNK = 0o120000
	sIFSOCK = 0o140000
)

// Directory entry type bytes (spec §4.8).
const (
	DTUnknown byte = 0
	DTFifo    byte = 1
	DTChr     byte = 2
	DTDir     byte = 4
	DTBlk     byte = 6
	DTReg     byte = 8
	DTLnk     byte = 10
	DTSock    byte = 12
	DTWht     byte = 14
)

// Csum is the per-cylinder-group summary embedded in both the superblock
// (old_cstotal) and each CG header.
type Csum struct {
	Ndir   int32
	Nbfree int32
	Nifree int32
	Nffree int32
}

// CsumTotal is the filesystem-wide aggregate counters (spec §3, §4.4).
type CsumTotal struct {
	Ndir        int64
	Nbfree      int64
	Nifree      int64
	Nffree      int64
	Numclusters int64
	Spare       [3]int64
}

// Superblock is the UFS2 geometry and counter record, mirrored at the start
// of every cylinder group (spec §3 "Superblock").
type Superblock struct {
	FirstField  int32
	Unused1     int32
	Sblkno      int32
	Cblkno      int32
	Iblkno      int32
	Dblkno      int32
	OldCgoffset int32
	OldCgmask   int32
	OldTime     int32
	OldSize     int32
	OldDsize    int32
	Ncg         uint32
	Bsize       int32
	Fsize       int32
	Frag        int32
	Minfree     int32
	OldRotdelay int32
	OldRps      int32
	Bmask       int32
	Fmask       int32
	Bshift      int32
	Fshift      int32
	FsMaxcontig int32
	FsMaxbpg    int32
	Fragshift   int32
	Fsbtodb     int32
	Sbsize      int32
	Spare1      [2]int32
	Nindir      int32
	Inopb       uint32
	OldNspf     int32
	Optim       int32
	OldNpsect   int32
	OldInterleave int32
	OldTrackskew  int32
	ID          [2]int32
	OldCsaddr   int32
	Cssize      int32
	CGSizeField int32
	Spare2      int32
	OldNsect    int32
	OldSpc      int32
	OldNcyl     int32
	OldCpg      int32
	Ipg         uint32
	Fpg         int32
	OldCstotal  Csum
	Fmod        int8
	Clean       int8
	Ronly       int8
	OldFlags    int8
	Fsmnt       [MaxMntLen]byte
	Volname     [MaxVolLen]byte
	Swuid       uint64
	Pad         int32
	Cgrotor     int32
	Ocsp        [NOCSPtrs]uint64
	Si          uint64
	OldCpc      int32
	Maxbsize    int32
	Unrefs      int64
	Providersize int64
	Metaspace   int64
	Sparecon64  [13]int64
	Sblockactualloc int64
	Sblockloc   int64
	Cstotal     CsumTotal
	Time        int64
	Size        int64
	Dsize       int64
	Csaddr      int64
	Pendingblocks int64
	Pendinginodes uint32
	Snapinum    [FSMaxSnap]uint32
	Avgfilesize uint32
	Avgfpdir    uint32
	SaveCgsize  int32
	Mtime       int64
	Sujfree     int32
	Sparecon32  [21]int32
	Ckhash      uint32
	Metackhash  uint32
	Flags       int32
	Contigsumsize int32
	Maxsymlinklen int32
	OldInodefmt int32
	Maxfilesize uint64
	Qbmask      int64
	Qfmask      int64
	State       int32
	OldPostblformat int32
	OldNrpos    int32
	Spare5      [2]int32
	Magic       int32
}

// encodedSize returns the on-disk byte size of the modeled superblock
// prefix (the trailing reserved padding up to SBlockSize is not modeled).
func (sb *Superblock) encodedSize() int {
	return int(sizeOfFields(reflect.TypeOf(*sb)))
}

// CGAddr returns the device byte offset of cylinder group i's header
// (spec §4.3).
func (sb *Superblock) CGAddr(i int) int64 {
	return (int64(i)*int64(sb.Fpg) + int64(sb.Cblkno)) * int64(sb.Fsize)
}

// CGSizeBytes returns the size in bytes of one cylinder group's data area.
func (sb *Superblock) CGSizeBytes() int64 {
	return int64(sb.Fpg) * int64(sb.Fsize)
}

// InoToCG maps an inode number to its owning cylinder group (spec §4.3).
func (sb *Superblock) InoToCG(ino InodeNumber) uint64 {
	return uint64(ino) / uint64(sb.Ipg)
}

// InoInCG returns (cg, offset-within-cg) for an inode number.
func (sb *Superblock) InoInCG(ino InodeNumber) (cg uint64, off uint64) {
	return sb.InoToCG(ino), uint64(ino) % uint64(sb.Ipg)
}

// blocksToFrags converts a block count to a fragment count using fragshift.
func (sb *Superblock) blocksToFrags(blocks uint64) uint64 {
	return blocks << uint(sb.Fragshift)
}

// InoToFSBA maps an inode number to the filesystem block address holding
// its inode record (spec §4.3).
func (sb *Superblock) InoToFSBA(ino InodeNumber) uint64 {
	cg, inCG := sb.InoInCG(ino)
	cgStart := cg * uint64(sb.Fpg)
	cgIMin := cgStart + uint64(sb.Iblkno)
	frags := sb.blocksToFrags(inCG) / uint64(sb.Inopb)
	return cgIMin + frags
}

// InoToFSBO maps an inode number to its offset, in inode-records, within
// the block InoToFSBA names.
func (sb *Superblock) InoToFSBO(ino InodeNumber) uint64 {
	return uint64(ino) % uint64(sb.Inopb)
}

// InoToFSO maps an inode number directly to its device byte offset (spec
// §4.3, used by InodeStore.Load/Store).
func (sb *Superblock) InoToFSO(ino InodeNumber) int64 {
	addr := sb.InoToFSBA(ino) * uint64(sb.Fsize)
	off := sb.InoToFSBO(ino) * UFSInodeSize
	return int64(addr + off)
}

// BlockSize and FragSize expose bs/fs as the sizes they are.
func (sb *Superblock) BlockSize() int64 { return int64(sb.Bsize) }
func (sb *Superblock) FragSize() int64  { return int64(sb.Fsize) }

// FragsPerBlock returns bs/fs (spec §4.4).
func (sb *Superblock) FragsPerBlock() int64 { return int64(sb.Frag) }

// PointersPerBlock returns the number of 64-bit block pointers that fit in
// one block — "P" in spec §4.5.
func (sb *Superblock) PointersPerBlock() int64 { return sb.BlockSize() / 8 }

// CylGroup is the per-CG header: local counters and bitmap offsets (spec §3
// "Cylinder Group").
type CylGroup struct {
	FirstField int32
	Magic      int32
	OldTime    int32
	Cgx        uint32
	OldNcyl    int16
	OldNiblk   int16
	Ndblk      uint32
	Cs         Csum
	Rotor      uint32
	Frotor     uint32
	Irotor     uint32
	Frsum      [MaxFrag]uint32
	OldBtotoff int32
	OldBoff    int32
	Iusedoff   uint32
	Freeoff    uint32
	Nextfreeoff uint32
	Clustersumoff uint32
	Clusteroff uint32
	Nclusterblks uint32
	Niblk      uint32
	Initediblk uint32
	Unrefs     uint32
	Sparecon32 [1]int32
	Ckhash     uint32
	Time       int64
	Sparecon64 [3]int64
}

// InodeBlocks is the 12-direct + 3-indirect block-pointer body of a
// non-symlink (or long-symlink) inode.
type InodeBlocks struct {
	Direct   [UFSNDAddr]int64
	Indirect [UFSNIAddr]int64
}

// Inode is the fixed 256-byte on-disk inode record (spec §3 "Inode").
//
// The data body is a tagged union (spec §9 "Split-union inode body"):
// either a short-symlink target (at most UFSSLLen bytes) or the
// direct/indirect block pointers. Raw holds the union region's bytes as
// decoded; use dataBlocksOrdered/Shortlink/IsShortlink to interpret it once Mode and
// Blocks (the 512-byte-unit counter) are known.
type Inode struct {
	Mode       uint16
	Nlink      uint16
	UID        uint32
	GID        uint32
	Blksize    uint32
	Size       uint64
	Blocks     uint64
	Atime      int64
	Mtime      int64
	Ctime      int64
	Birthtime  int64
	Mtimensec  uint32
	Atimensec  uint32
	Ctimensec  uint32
	Birthnsec  uint32
	Gen        uint32
	Kernflags  uint32
	Flags      uint32
	Extsize    uint32
	Extb       [UFSNXAddr]int64
	Raw        [UFSSLLen]byte
	Modrev     uint64
	Ignored    uint32
	Ckhash     uint32
	Spare      [2]uint32
}

// decodeInode reads one 256-byte inode record. The union body is read as
// raw bytes here and reinterpreted by dataBlocksOrdered/Shortlink once the caller
// knows the type (spec §9).
func decodeInode(c *Codec, off int64) (*Inode, error) {
	buf := make([]byte, UFSInodeSize)
	if err := c.readRaw(off, buf); err != nil {
		return nil, err
	}
	r := bytes.NewReader(buf)
	order := c.ByteOrder()
	ino := &Inode{}
	fields := []interface{}{
		&ino.Mode, &ino.Nlink, &ino.UID, &ino.GID, &ino.Blksize,
		&ino.Size, &ino.Blocks, &ino.Atime, &ino.Mtime, &ino.Ctime,
		&ino.Birthtime, &ino.Mtimensec, &ino.Atimensec, &ino.Ctimensec,
		&ino.Birthnsec, &ino.Gen, &ino.Kernflags, &ino.Flags, &ino.Extsize,
		&ino.Extb,
	}
	for _, f := range fields {
		if err := binary.Read(r, order, f); err != nil {
			return nil, fmt.Errorf("ufs2: decode inode field: %w", err)
		}
	}
	if _, err := r.Read(ino.Raw[:]); err != nil {
		return nil, fmt.Errorf("ufs2: decode inode union body: %w", err)
	}
	tail := []interface{}{&ino.Modrev, &ino.Ignored, &ino.Ckhash, &ino.Spare}
	for _, f := range tail {
		if err := binary.Read(r, order, f); err != nil {
			return nil, fmt.Errorf("ufs2: decode inode tail: %w", err)
		}
	}
	return ino, nil
}

// encodeInode writes the 256-byte inode record back in the same field
// order decodeInode reads it.
func encodeInode(c *Codec, off int64, ino *Inode) error {
	var buf bytes.Buffer
	order := c.ByteOrder()
	fields := []interface{}{
		ino.Mode, ino.Nlink, ino.UID, ino.GID, ino.Blksize,
		ino.Size, ino.Blocks, ino.Atime, ino.Mtime, ino.Ctime,
		ino.Birthtime, ino.Mtimensec, ino.Atimensec, ino.Ctimensec,
		ino.Birthnsec, ino.Gen, ino.Kernflags, ino.Flags, ino.Extsize,
		ino.Extb,
	}
	for _, f := range fields {
		if err := binary.Write(&buf, order, f); err != nil {
			return fmt.Errorf("ufs2: encode inode field: %w", err)
		}
	}
	buf.Write(ino.Raw[:])
	tail := []interface{}{ino.Modrev, ino.Ignored, ino.Ckhash, ino.Spare}
	for _, f := range tail {
		if err := binary.Write(&buf, order, f); err != nil {
			return fmt.Errorf("ufs2: encode inode tail: %w", err)
		}
	}
	return c.writeRaw(off, buf.Bytes())
}

// Type extracts the file-type bits of Mode.
func (i *Inode) Type() uint16 { return i.Mode & sIFMT }

func (i *Inode) IsDir() bool     { return i.Type() == sIFDIR }
func (i *Inode) IsRegular() bool { return i.Type() == sIFREG }
func (i *Inode) IsSymlink() bool { return i.Type() == sIFLNK }

// IsShortlink reports whether this inode's data body is an inline symlink
// target rather than block pointers (spec §9, §4.9): the discriminator is
// (type==symlink && blocks==0).
func (i *Inode) IsShortlink() bool {
	return i.IsSymlink() && i.Blocks == 0
}

// dataBlocksOrdered decodes the union body with the filesystem's actual
// byte order.
func (i *Inode) dataBlocksOrdered(order binary.ByteOrder) InodeBlocks {
	var ib InodeBlocks
	r := bytes.NewReader(i.Raw[:])
	binary.Read(r, order, &ib.Direct)
	binary.Read(r, order, &ib.Indirect)
	return ib
}

// setDataBlocksOrdered writes ib back into Raw with the given byte order.
func (i *Inode) setDataBlocksOrdered(order binary.ByteOrder, ib InodeBlocks) {
	var buf bytes.Buffer
	binary.Write(&buf, order, &ib.Direct)
	binary.Write(&buf, order, &ib.Indirect)
	copy(i.Raw[:], buf.Bytes())
}

// Shortlink returns the inline symlink target bytes (up to Size bytes).
func (i *Inode) Shortlink() []byte {
	n := i.Size
	if n > uint64(len(i.Raw)) {
		n = uint64(len(i.Raw))
	}
	return append([]byte(nil), i.Raw[:n]...)
}

// SetShortlink stores target inline and clears Blocks (spec §4.9).
func (i *Inode) SetShortlink(target []byte) {
	var raw [UFSSLLen]byte
	copy(raw[:], target)
	i.Raw = raw
	i.Size = uint64(len(target))
	i.Blocks = 0
}

// ExtattrHeader is one packed extended-attribute record header (spec §3
// "Extattr Area").
type ExtattrHeader struct {
	Len           uint32
	Namespace     uint8
	Contentpadlen uint8
	Namelen       uint8
}

const (
	ExtattrNamespaceEmpty  uint8 = 0
	ExtattrNamespaceUser   uint8 = 1
	ExtattrNamespaceSystem uint8 = 2
)

// extattrWithName returns the namespace-prefixed external name (spec §4.9).
func extattrWithName(ns uint8, name string) string {
	switch ns {
	case ExtattrNamespaceUser:
		return "user." + name
	case ExtattrNamespaceSystem:
		return "system." + name
	default:
		return name
	}
}

// DirentHeader is one directory record's fixed header (spec §3 "Directory
// Block").
type DirentHeader struct {
	Ino     uint32
	Reclen  uint16
	Kind    uint8
	Namelen uint8
}

// round4/round8 implement the alignment helpers spec §3/§4.8/§4.9 require.
func round4(n int) int { return (n + 3) &^ 3 }
func round8(n int) int { return (n + 7) &^ 7 }

// howmany mirrors the C howmany(x,y) = ceil(x/y) macro used throughout the
// geometry calculations.
func howmany(x, y int64) int64 { return (x + y - 1) / y }

// dtForMode maps a file-type mode to its directory-entry type byte (spec
// §4.8's exact table).
func dtForMode(mode uint16) byte {
	switch mode & sIFMT {
	case sIFIFO:
		return DTFifo
	case sIFCHR:
		return DTChr
	case sIFDIR:
		return DTDir
	case sIFBLK:
		return DTBlk
	case sIFREG:
		return DTReg
	case sIFLNK:
		return DTLnk
	case sIFSOCK:
		return DTSock
	default:
		return DTUnknown
	}
}

// fsModeFromDT maps a directory-entry type byte back to an fs.FileMode type
// bit, used by Dir.Iter's callers building fs.DirEntry-shaped results.
func fsModeFromDT(dt byte) fs.FileMode {
	switch dt {
	case DTFifo:
		return fs.ModeNamedPipe
	case DTChr:
		return fs.ModeDevice | fs.ModeCharDevice
	case DTDir:
		return fs.ModeDir
	case DTBlk:
		return fs.ModeDevice
	case DTReg:
		return 0
	case DTLnk:
		return fs.ModeSymlink
	case DTSock:
		return fs.ModeSocket
	default:
		return fs.ModeIrregular
	}
}
