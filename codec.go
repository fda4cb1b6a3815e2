package ufs2

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"reflect"
)

// Codec decodes and encodes fixed-width on-disk records against a seekable
// byte stream, honoring the endianness chosen once at Engine.Open. It never
// autodetects endianness per record (spec §4.2, §9).
type Codec struct {
	order binary.ByteOrder
	rw    io.ReaderAt
	ww    io.WriterAt
}

func newCodec(order binary.ByteOrder, rw io.ReaderAt, ww io.WriterAt) *Codec {
	return &Codec{order: order, rw: rw, ww: ww}
}

// ByteOrder returns the endianness selected for this codec.
func (c *Codec) ByteOrder() binary.ByteOrder { return c.order }

// DecodeStruct decodes v (a pointer to a fixed-layout struct with no union
// region) at off, computing the record size from its exported fields.
func (c *Codec) DecodeStruct(off int64, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("ufs2: DecodeStruct requires a pointer to struct, got %T", v)
	}
	size := int(sizeOfFields(rv.Elem().Type()))
	return c.DecodeAt(off, v, size)
}

// EncodeStruct is the DecodeStruct counterpart for writes.
func (c *Codec) EncodeStruct(off int64, v interface{}) error {
	return c.EncodeAt(off, v)
}

// DecodeAt reads size bytes at off and decodes them into v, a pointer to
// a struct whose exported fields are decoded field-by-field in declared
// order (spec §4.2). Unexported fields are skipped, matching the teacher's
// reflection convention in super.go.
func (c *Codec) DecodeAt(off int64, v interface{}, size int) error {
	buf := make([]byte, size)
	if _, err := c.rw.ReadAt(buf, off); err != nil {
		return fmt.Errorf("ufs2: read at %#x: %w", off, err)
	}
	return c.Decode(bytes.NewReader(buf), v)
}

// Decode reads fields of v, a pointer to a struct, from r in declared field
// order. This is the only valid interpretation of UFS2's fixed on-disk
// layout (spec §4.2).
func (c *Codec) Decode(r io.Reader, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("ufs2: Decode requires a pointer to struct, got %T", v)
	}
	return decodeFields(r, c.order, rv.Elem())
}

// readRaw reads len(buf) bytes at off, for callers (like Inode) that
// decode a mixed fixed/union record by hand instead of through
// decodeFields.
func (c *Codec) readRaw(off int64, buf []byte) error {
	if _, err := c.rw.ReadAt(buf, off); err != nil {
		return fmt.Errorf("ufs2: read at %#x: %w", off, err)
	}
	return nil
}

// writeRaw writes buf at off.
func (c *Codec) writeRaw(off int64, buf []byte) error {
	if _, err := c.ww.WriteAt(buf, off); err != nil {
		return fmt.Errorf("ufs2: write at %#x: %w", off, err)
	}
	return nil
}

// EncodeAt encodes v (a pointer to a struct) field-by-field and writes the
// result at off.
func (c *Codec) EncodeAt(off int64, v interface{}) error {
	var buf bytes.Buffer
	if err := c.Encode(&buf, v); err != nil {
		return err
	}
	if _, err := c.ww.WriteAt(buf.Bytes(), off); err != nil {
		return fmt.Errorf("ufs2: write at %#x: %w", off, err)
	}
	return nil
}

// Encode writes the exported fields of v, a pointer to a struct, to w in
// declared field order.
func (c *Codec) Encode(w io.Writer, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("ufs2: Encode requires a pointer to struct, got %T", v)
	}
	return encodeFields(w, c.order, rv.Elem())
}

// decodeFields walks the exported fields of a struct value in declared
// order, calling binary.Read per field. Fields whose name starts with a
// lowercase letter (unexported) are skipped — the same convention the
// teacher's Superblock.UnmarshalBinary uses, generalized to any struct so
// every on-disk record shares one decode path.
func decodeFields(r io.Reader, order binary.ByteOrder, v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Name
		if name == "" || name[0] < 'A' || name[0] > 'Z' {
			continue
		}
		fv := v.Field(i)
		if fv.Kind() == reflect.Struct {
			if err := decodeFields(r, order, fv); err != nil {
				return err
			}
			continue
		}
		if err := binary.Read(r, order, fv.Addr().Interface()); err != nil {
			return fmt.Errorf("ufs2: decode field %s: %w", name, err)
		}
	}
	return nil
}

func encodeFields(w io.Writer, order binary.ByteOrder, v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Name
		if name == "" || name[0] < 'A' || name[0] > 'Z' {
			continue
		}
		fv := v.Field(i)
		if fv.Kind() == reflect.Struct {
			if err := encodeFields(w, order, fv); err != nil {
				return err
			}
			continue
		}
		if err := binary.Write(w, order, fv.Interface()); err != nil {
			return fmt.Errorf("ufs2: encode field %s: %w", name, err)
		}
	}
	return nil
}

// sizeOfFields returns the encoded size in bytes of the exported fields of
// a struct type, recursing into embedded structs. Mirrors the teacher's
// Superblock.binarySize, generalized.
func sizeOfFields(t reflect.Type) uintptr {
	var sz uintptr
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Name
		if name == "" || name[0] < 'A' || name[0] > 'Z' {
			continue
		}
		ft := t.Field(i).Type
		if ft.Kind() == reflect.Struct {
			sz += sizeOfFields(ft)
			continue
		}
		sz += ft.Size()
	}
	return sz
}

// byteOrderForMagic inspects the 4-byte UFS2 magic as it appears on disk
// and returns the endianness it implies, per spec §4.2 / §6.
func byteOrderForMagic(b []byte) (binary.ByteOrder, bool) {
	switch {
	case bytes.Equal(b, []byte{0x19, 0x01, 0x54, 0x19}):
		return binary.LittleEndian, true
	case bytes.Equal(b, []byte{0x19, 0x54, 0x01, 0x19}):
		return binary.BigEndian, true
	default:
		return nil, false
	}
}
