package ufs2

// memDevice is a growable in-memory ReaderAt/WriterAt, standing in for a
// disk image in tests that don't need a real file (spec §1 "Test
// tooling": no golden binary image ships, so fixtures are synthetic).
type memDevice struct {
	data []byte
}

func newMemDevice(size int) *memDevice {
	return &memDevice{data: make([]byte, size)}
}

func (m *memDevice) ReadAt(p []byte, off int64) (int, error) {
	if int(off)+len(p) > len(m.data) {
		grown := make([]byte, int(off)+len(p))
		copy(grown, m.data)
		m.data = grown
	}
	n := copy(p, m.data[off:])
	return n, nil
}

func (m *memDevice) WriteAt(p []byte, off int64) (int, error) {
	if int(off)+len(p) > len(m.data) {
		grown := make([]byte, int(off)+len(p))
		copy(grown, m.data)
		m.data = grown
	}
	n := copy(m.data[off:], p)
	return n, nil
}
