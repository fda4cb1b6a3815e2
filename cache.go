package ufs2

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Default cache sizes (spec §3: "A bounded LRU (≈ 1024) may cache inodes").
const (
	defaultInodeCacheSize = 1024
	defaultBlockCacheSize = 256
	defaultNameCacheSize  = 1024
)

// caches bundles the engine's three optional bounded LRUs (spec §3's
// "Ownership and lifecycle"): inode records, directory name lookups, and
// raw device blocks. All are private to one Engine and never shared.
type caches struct {
	inode *lru.Cache[InodeNumber, *Inode]
	name  *lru.Cache[dirNameKey, InodeNumber]
	block *lru.Cache[int64, []byte]
}

type dirNameKey struct {
	dir  InodeNumber
	name string
}

func newCaches(inodeSize, blockSize, nameSize int) (*caches, error) {
	ic, err := lru.New[InodeNumber, *Inode](inodeSize)
	if err != nil {
		return nil, err
	}
	nc, err := lru.New[dirNameKey, InodeNumber](nameSize)
	if err != nil {
		return nil, err
	}
	bc, err := lru.New[int64, []byte](blockSize)
	if err != nil {
		return nil, err
	}
	return &caches{inode: ic, name: nc, block: bc}, nil
}

// invalidateInode drops any cached copy of ino. Must be called on every
// write (spec §3: "the cache MUST be invalidated on write").
func (c *caches) invalidateInode(ino InodeNumber) {
	c.inode.Remove(ino)
}

// invalidateName drops a cached (dir,name)->inode lookup, used whenever a
// directory mutation touches that name (spec §3).
func (c *caches) invalidateName(dir InodeNumber, name string) {
	c.name.Remove(dirNameKey{dir, name})
}

// invalidateBlock drops a cached device block. The engine neither fills
// nor reads the block cache, and nothing calls this.
func (c *caches) invalidateBlock(off int64) {
	c.block.Remove(off)
}
