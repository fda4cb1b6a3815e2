package ufs2

// Symlink reads and creates symbolic-link targets, dispatching between the
// inline "shortlink" body and the ordinary block-mapped body the same way
// IsShortlink does (spec §4.9).
type Symlink struct {
	fd *FileData
}

func newSymlink(fd *FileData) *Symlink {
	return &Symlink{fd: fd}
}

// Read returns ino's target.
func (s *Symlink) Read(ino *Inode) ([]byte, error) {
	if ino.IsShortlink() {
		return ino.Shortlink(), nil
	}
	buf := make([]byte, ino.Size)
	if _, err := s.fd.Read(ino, 0, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteTarget stores target into a freshly allocated symlink inode: inline
// if it is shorter than UFSSLLen bytes, else through the ordinary block-mapped path
// (a "long symlink", absent from original_source/rufs but a plain
// consequence of spec §4.9's size-based dispatch rule). The inode must not
// already hold any data blocks. Returns the updated inode; the caller
// stores it.
func (s *Symlink) WriteTarget(ino *Inode, target []byte) (*Inode, error) {
	if len(target) < UFSSLLen {
		ino.SetShortlink(target)
		return ino, nil
	}
	updated, n, err := s.fd.Write(ino, 0, target)
	if err != nil {
		return ino, err
	}
	if n != len(target) {
		return updated, wrapf(ErrIO, "short symlink write: wrote %d of %d bytes", n, len(target))
	}
	return updated, nil
}
