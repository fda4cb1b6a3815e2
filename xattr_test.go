package ufs2

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// encodeXattrRecord packs one extended-attribute record the way xattr.go's
// iter expects to decode it: a 7-byte header, the raw (unprefixed) name
// padded to an 8-byte boundary, then content padded by contentpadlen
// trailing bytes.
func encodeXattrRecord(ns byte, name string, content []byte, contentpadlen int) []byte {
	nameField := round8(7 + len(name))
	length := nameField + len(content) + contentpadlen

	buf := make([]byte, length)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(length))
	buf[4] = ns
	buf[5] = byte(contentpadlen)
	buf[6] = byte(len(name))
	copy(buf[7:7+len(name)], name)
	copy(buf[nameField:], content)
	return buf
}

func TestXattrReadAndList(t *testing.T) {
	f := newTestFixture(t)
	xat := newXattr(f.codec, f.sb, f.codec.ByteOrder())

	rec1 := encodeXattrRecord(ExtattrNamespaceUser, "test", []byte("value123"), 0)
	rec2 := encodeXattrRecord(ExtattrNamespaceSystem, "tag", []byte("v2"), 0)
	raw := append(append([]byte{}, rec1...), rec2...)

	bno, err := f.alloc.BlkAllocFullZeroed()
	if err != nil {
		t.Fatalf("BlkAllocFullZeroed: %v", err)
	}
	if err := f.codec.writeRaw(int64(bno)*f.sb.FragSize(), raw); err != nil {
		t.Fatalf("writeRaw: %v", err)
	}

	ino := &Inode{Extsize: uint32(len(raw))}
	ino.Extb[0] = int64(bno)

	got, err := xat.Read(ino, "user.test")
	if err != nil {
		t.Fatalf("Read(user.test): %v", err)
	}
	if !bytes.Equal(got, []byte("value123")) {
		t.Fatalf("Read(user.test) = %q, want %q", got, "value123")
	}

	got2, err := xat.Read(ino, "system.tag")
	if err != nil {
		t.Fatalf("Read(system.tag): %v", err)
	}
	if !bytes.Equal(got2, []byte("v2")) {
		t.Fatalf("Read(system.tag) = %q, want %q", got2, "v2")
	}

	if _, err := xat.Read(ino, "user.missing"); !errors.Is(err, ErrNoAttribute) {
		t.Fatalf("Read(missing) = %v, want ErrNoAttribute", err)
	}

	list, err := xat.List(ino)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	listStr := string(list)
	for _, want := range []string{"user.test\x00", "system.tag\x00"} {
		if !bytes.Contains([]byte(listStr), []byte(want)) {
			t.Errorf("List() = %q, missing %q", listStr, want)
		}
	}

	length, err := xat.Len(ino, "user.test")
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if length != uint32(len("value123")) {
		t.Fatalf("Len(user.test) = %d, want %d", length, len("value123"))
	}
}
