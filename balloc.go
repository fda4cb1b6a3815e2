package ufs2

import "fmt"

// sbUpdater funnels every superblock counter mutation through one helper,
// mirroring the source's update_sb and keeping "any CG counter change also
// adjusts the superblock aggregate" in one place (spec §9 "Counter
// updates", spec §4.4).
type sbUpdater interface {
	UpdateSB(fn func(*Superblock)) error
}

// BlockAlloc manages the per-cylinder-group block and fragment bitmaps
// (spec §4.4). Block numbers throughout are counted in fragment units: a
// block number's byte offset is bno*FragSize.
type BlockAlloc struct {
	c  *Codec
	sb *Superblock
	up sbUpdater
}

func newBlockAlloc(c *Codec, sb *Superblock, up sbUpdater) *BlockAlloc {
	return &BlockAlloc{c: c, sb: sb, up: up}
}

func (a *BlockAlloc) readCG(cgi uint64) (*CylGroup, int64, error) {
	cgo := a.sb.CGAddr(int(cgi))
	cg := &CylGroup{}
	if err := a.c.DecodeStruct(cgo, cg); err != nil {
		return nil, 0, wrapf(ErrIO, "read cylinder group %d: %v", cgi, err)
	}
	if cg.Magic != CGMagic {
		return nil, 0, wrapf(ErrIO, "cylinder group %d: bad magic %#x", cgi, cg.Magic)
	}
	return cg, cgo, nil
}

func (a *BlockAlloc) writeCG(cgo int64, cg *CylGroup) error {
	if err := a.c.EncodeStruct(cgo, cg); err != nil {
		return wrapf(ErrIO, "write cylinder group: %v", err)
	}
	return nil
}

// cgByte reads/writes one byte of a CG's free-fragment bitmap at byte
// index h relative to cg.Freeoff.
func (a *BlockAlloc) cgByte(cgo int64, cg *CylGroup, h uint64) (byte, error) {
	var b [1]byte
	if err := a.c.readRaw(cgo+int64(cg.Freeoff)+int64(h), b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (a *BlockAlloc) setCGByte(cgo int64, cg *CylGroup, h uint64, v byte) error {
	return a.c.writeRaw(cgo+int64(cg.Freeoff)+int64(h), []byte{v})
}

// isFreeBlock reports whether all frag bits covering block-aligned
// fragment index bno are set (spec §4.4; ffs_isblock()).
func (a *BlockAlloc) isFreeBlock(cgo int64, cg *CylGroup, bno uint64) (bool, error) {
	frag := uint64(a.sb.Frag)
	h := bno / frag
	switch frag {
	case 8:
		b, err := a.cgByte(cgo, cg, h)
		return b == 0xff, err
	case 4:
		mask := byte(0x0f << ((h & 0x01) << 2))
		b, err := a.cgByte(cgo, cg, h>>1)
		return b&mask == mask, err
	case 2:
		mask := byte(0x03 << ((h & 0x03) << 1))
		b, err := a.cgByte(cgo, cg, h>>2)
		return b&mask == mask, err
	case 1:
		mask := byte(0x01 << (h & 0x07))
		b, err := a.cgByte(cgo, cg, h>>3)
		return b&mask == mask, err
	default:
		return false, fmt.Errorf("ufs2: invalid fragment size %d", frag)
	}
}

// isFullBlock reports whether all frag bits covering block bno are clear
// (ffs_isfreeblock(), confusingly named upstream for "fully allocated").
func (a *BlockAlloc) isFullBlock(cgo int64, cg *CylGroup, bno uint64) (bool, error) {
	frag := uint64(a.sb.Frag)
	h := bno / frag
	switch frag {
	case 8:
		b, err := a.cgByte(cgo, cg, h)
		return b == 0, err
	case 4:
		mask := byte(0x0f << ((h & 0x01) << 2))
		b, err := a.cgByte(cgo, cg, h>>1)
		return b&mask == 0, err
	case 2:
		mask := byte(0x03 << ((h & 0x03) << 1))
		b, err := a.cgByte(cgo, cg, h>>2)
		return b&mask == 0, err
	case 1:
		mask := byte(0x01 << (h & 0x07))
		b, err := a.cgByte(cgo, cg, h>>3)
		return b&mask == 0, err
	default:
		return false, fmt.Errorf("ufs2: invalid fragment size %d", frag)
	}
}

// isFreeFrag reports whether the single fragment bno is free.
func (a *BlockAlloc) isFreeFrag(cgo int64, cg *CylGroup, bno uint64) (bool, error) {
	b, err := a.cgByte(cgo, cg, bno/8)
	if err != nil {
		return false, err
	}
	mask := byte(1 << (bno % 8))
	return b&mask == mask, nil
}

// setBlock sets or clears every frag bit covering block-aligned fragment
// index bno (ffs_setblock()/ffs_clrblock()).
func (a *BlockAlloc) setBlock(cgo int64, cg *CylGroup, bno uint64, free bool) error {
	frag := uint64(a.sb.Frag)
	h := bno / frag
	set := func(byteIdx uint64, mask byte) error {
		old, err := a.cgByte(cgo, cg, byteIdx)
		if err != nil {
			return err
		}
		var nv byte
		if free {
			nv = old | mask
		} else {
			nv = old &^ mask
		}
		return a.setCGByte(cgo, cg, byteIdx, nv)
	}
	switch frag {
	case 8:
		return set(h, 0xff)
	case 4:
		return set(h>>1, byte(0x0f<<((h&0x01)<<2)))
	case 2:
		return set(h>>2, byte(0x03<<((h&0x03)<<1)))
	case 1:
		return set(h>>3, byte(0x01<<(h&0x07)))
	default:
		return fmt.Errorf("ufs2: invalid fragment size %d", frag)
	}
}

// setFrag sets or clears a single fragment bit.
func (a *BlockAlloc) setFrag(cgo int64, cg *CylGroup, bno uint64, free bool) error {
	byteIdx := bno / 8
	b, err := a.cgByte(cgo, cg, byteIdx)
	if err != nil {
		return err
	}
	mask := byte(1 << (bno % 8))
	if free {
		b |= mask
	} else {
		b &^= mask
	}
	return a.setCGByte(cgo, cg, byteIdx, b)
}

// BlkAlloc allocates size bytes (a multiple of FragSize, at most
// BlockSize) from the first cylinder group able to satisfy the request
// (spec §4.4). Returns the allocated block number (in fragment units) and
// the rounded allocation size.
func (a *BlockAlloc) BlkAlloc(size int64) (bno uint64, allocSize int64, err error) {
	fs := a.sb.FragSize()
	bs := a.sb.BlockSize()
	if size <= 0 || size > bs || size%fs != 0 {
		return 0, 0, wrapf(ErrInvalidArgument, "invalid allocation size %d", size)
	}
	nfrag := uint64(size / fs)
	frag := uint64(a.sb.Frag)
	fpg := uint64(a.sb.Fpg)
	blocksPerCG := fpg / frag

	for cgi := uint64(0); cgi < uint64(a.sb.Ncg); cgi++ {
		cg, cgo, err := a.readCG(cgi)
		if err != nil {
			return 0, 0, err
		}
		base := cgi * fpg

		if size == bs {
			if cg.Cs.Nbfree <= 0 {
				continue
			}
			for h := uint64(0); h < blocksPerCG; h++ {
				free, err := a.isFreeBlock(cgo, cg, h*frag)
				if err != nil {
					return 0, 0, err
				}
				if !free {
					continue
				}
				if err := a.setBlock(cgo, cg, h*frag, false); err != nil {
					return 0, 0, err
				}
				cg.Cs.Nbfree--
				if err := a.writeCG(cgo, cg); err != nil {
					return 0, 0, err
				}
				if err := a.up.UpdateSB(func(sb *Superblock) { sb.Cstotal.Nbfree-- }); err != nil {
					return 0, 0, err
				}
				return base + h*frag, bs, nil
			}
			continue
		}

		// Fragment allocation: first look for nfrag contiguous free
		// fragments starting at the first fragment of a block that is not
		// wholly free (wholly free blocks count in Nbfree, not Nffree).
		// Runs that start partway into a block are not searched.
		if uint64(cg.Cs.Nffree) >= nfrag {
			for h := uint64(0); h < blocksPerCG; h++ {
				whole, err := a.isFreeBlock(cgo, cg, h*frag)
				if err != nil {
					return 0, 0, err
				}
				if whole {
					continue
				}
				ok := true
				for j := uint64(0); j < nfrag; j++ {
					free, err := a.isFreeFrag(cgo, cg, h*frag+j)
					if err != nil {
						return 0, 0, err
					}
					if !free {
						ok = false
						break
					}
				}
				if !ok {
					continue
				}
				for j := uint64(0); j < nfrag; j++ {
					if err := a.setFrag(cgo, cg, h*frag+j, false); err != nil {
						return 0, 0, err
					}
				}
				cg.Cs.Nffree -= int32(nfrag)
				if err := a.writeCG(cgo, cg); err != nil {
					return 0, 0, err
				}
				if err := a.up.UpdateSB(func(sb *Superblock) { sb.Cstotal.Nffree -= int64(nfrag) }); err != nil {
					return 0, 0, err
				}
				return base + h*frag, size, nil
			}
		}

		// No run of loose fragments; split a whole free block instead.
		if cg.Cs.Nbfree > 0 {
			for h := uint64(0); h < blocksPerCG; h++ {
				free, err := a.isFreeBlock(cgo, cg, h*frag)
				if err != nil {
					return 0, 0, err
				}
				if !free {
					continue
				}
				for j := uint64(0); j < nfrag; j++ {
					if err := a.setFrag(cgo, cg, h*frag+j, false); err != nil {
						return 0, 0, err
					}
				}
				cg.Cs.Nbfree--
				cg.Cs.Nffree += int32(frag - nfrag)
				if err := a.writeCG(cgo, cg); err != nil {
					return 0, 0, err
				}
				if err := a.up.UpdateSB(func(sb *Superblock) {
					sb.Cstotal.Nbfree--
					sb.Cstotal.Nffree += int64(frag - nfrag)
				}); err != nil {
					return 0, 0, err
				}
				return base + h*frag, size, nil
			}
		}
	}
	return 0, 0, ErrNoSpace
}

// BlkAllocFullZeroed allocates a full block and zeroes its content,
// matching interior indirect tables' requirement to start zero-filled
// (spec §4.4, §4.5).
func (a *BlockAlloc) BlkAllocFullZeroed() (uint64, error) {
	bno, _, err := a.BlkAlloc(a.sb.BlockSize())
	if err != nil {
		return 0, err
	}
	zero := make([]byte, a.sb.BlockSize())
	if err := a.c.writeRaw(int64(bno)*a.sb.FragSize(), zero); err != nil {
		return 0, err
	}
	return bno, nil
}

// BlkFree releases a previous BlkAlloc allocation (spec §4.4). Panics on
// double-free, a filesystem-corruption signal per spec §4.10/§7.
func (a *BlockAlloc) BlkFree(bno uint64, size int64) error {
	if bno == 0 {
		return nil
	}
	fs := a.sb.FragSize()
	bs := a.sb.BlockSize()
	nfrag := uint64(size / fs)
	frag := int32(a.sb.Frag)
	fpg := uint64(a.sb.Fpg)

	if size <= 0 || size%fs != 0 || size > bs {
		return wrapf(ErrInvalidArgument, "invalid free size %d", size)
	}

	cgi := bno / fpg
	cg, cgo, err := a.readCG(cgi)
	if err != nil {
		return err
	}
	rel := bno % fpg

	if size == bs {
		full, err := a.isFullBlock(cgo, cg, rel)
		if err != nil {
			return err
		}
		if !full {
			panic(fmt.Sprintf("ufs2: freeing already-free block: cg=%d bno=%d", cgi, rel))
		}
		if err := a.setBlock(cgo, cg, rel, true); err != nil {
			return err
		}
		cg.Cs.Nbfree++
		if err := a.up.UpdateSB(func(sb *Superblock) { sb.Cstotal.Nbfree++ }); err != nil {
			return err
		}
	} else {
		for i := uint64(0); i < nfrag; i++ {
			free, err := a.isFreeFrag(cgo, cg, rel+i)
			if err != nil {
				return err
			}
			if free {
				panic(fmt.Sprintf("ufs2: freeing already-free fragment: cg=%d bno=%d", cgi, rel+i))
			}
			if err := a.setFrag(cgo, cg, rel+i, true); err != nil {
				return err
			}
		}
		cg.Cs.Nffree += int32(nfrag)
		if err := a.up.UpdateSB(func(sb *Superblock) { sb.Cstotal.Nffree += int64(nfrag) }); err != nil {
			return err
		}

		// Block-reassembly rule: if freeing these fragments completed a
		// whole free block, reclassify it from fragments to a block.
		full, err := a.isFreeBlock(cgo, cg, rel)
		if err != nil {
			return err
		}
		if full {
			cg.Cs.Nffree -= frag
			cg.Cs.Nbfree++
			if err := a.up.UpdateSB(func(sb *Superblock) {
				sb.Cstotal.Nffree -= int64(frag)
				sb.Cstotal.Nbfree++
			}); err != nil {
				return err
			}
		}
	}

	return a.writeCG(cgo, cg)
}
