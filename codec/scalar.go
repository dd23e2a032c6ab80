package codec

import (
	"encoding"
	"errors"
	"math"
)

var (
	_ encoding.BinaryMarshaler   = Bool(false)
	_ encoding.BinaryUnmarshaler = (*Bool)(nil)
	_ encoding.BinaryMarshaler   = Int32(0)
	_ encoding.BinaryUnmarshaler = (*Int32)(nil)
	_ encoding.BinaryMarshaler   = Int64(0)
	_ encoding.BinaryUnmarshaler = (*Int64)(nil)
	_ encoding.BinaryMarshaler   = Uint64(0)
	_ encoding.BinaryUnmarshaler = (*Uint64)(nil)
	_ encoding.BinaryMarshaler   = Float64(0)
	_ encoding.BinaryUnmarshaler = (*Float64)(nil)
	_ encoding.BinaryMarshaler   = String("")
	_ encoding.BinaryUnmarshaler = (*String)(nil)
	_ encoding.BinaryMarshaler   = Bytes(nil)
	_ encoding.BinaryUnmarshaler = (*Bytes)(nil)
)

var errNilTarget = errors.New("cannot unmarshal into nil")

// Bool is an encodable boolean.
type Bool bool

func (b Bool) MarshalBinary() ([]byte, error) {
	w := newWriter(KindBool, 1)
	if b {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
	return w.buf, nil
}

func (b *Bool) UnmarshalBinary(d []byte) error {
	if b == nil {
		return errNilTarget
	}
	r, err := openReader(d, KindBool)
	if err != nil {
		return err
	}
	v, err := r.next(1)
	if err != nil {
		return err
	}
	if v[0] > 1 {
		return ErrMalformed
	}
	*b = v[0] == 1
	return r.done()
}

// Int32 is an encodable signed 32-bit integer.
type Int32 int32

func (i Int32) MarshalBinary() ([]byte, error) {
	w := newWriter(KindInt32, 4)
	w.buf = bin.AppendUint32(w.buf, uint32(i))
	return w.buf, nil
}

func (i *Int32) UnmarshalBinary(d []byte) error {
	if i == nil {
		return errNilTarget
	}
	r, err := openReader(d, KindInt32)
	if err != nil {
		return err
	}
	v, err := r.next(4)
	if err != nil {
		return err
	}
	*i = Int32(bin.Uint32(v))
	return r.done()
}

// Int64 is an encodable signed 64-bit integer.
type Int64 int64

func (i Int64) MarshalBinary() ([]byte, error) {
	w := newWriter(KindInt64, 8)
	w.buf = bin.AppendUint64(w.buf, uint64(i))
	return w.buf, nil
}

func (i *Int64) UnmarshalBinary(d []byte) error {
	if i == nil {
		return errNilTarget
	}
	r, err := openReader(d, KindInt64)
	if err != nil {
		return err
	}
	v, err := r.next(8)
	if err != nil {
		return err
	}
	*i = Int64(bin.Uint64(v))
	return r.done()
}

// Uint64 is an encodable unsigned 64-bit integer.
type Uint64 uint64

func (u Uint64) MarshalBinary() ([]byte, error) {
	w := newWriter(KindUint64, 8)
	w.buf = bin.AppendUint64(w.buf, uint64(u))
	return w.buf, nil
}

func (u *Uint64) UnmarshalBinary(d []byte) error {
	if u == nil {
		return errNilTarget
	}
	r, err := openReader(d, KindUint64)
	if err != nil {
		return err
	}
	v, err := r.next(8)
	if err != nil {
		return err
	}
	*u = Uint64(bin.Uint64(v))
	return r.done()
}

// Float64 is an encodable float. NaN payload bits are preserved.
type Float64 float64

func (f Float64) MarshalBinary() ([]byte, error) {
	w := newWriter(KindFloat64, 8)
	w.buf = bin.AppendUint64(w.buf, math.Float64bits(float64(f)))
	return w.buf, nil
}

func (f *Float64) UnmarshalBinary(d []byte) error {
	if f == nil {
		return errNilTarget
	}
	r, err := openReader(d, KindFloat64)
	if err != nil {
		return err
	}
	v, err := r.next(8)
	if err != nil {
		return err
	}
	*f = Float64(math.Float64frombits(bin.Uint64(v)))
	return r.done()
}

// String is an encodable length-prefixed string.
type String string

func (s String) MarshalBinary() ([]byte, error) {
	w := newWriter(KindString, len(s)+2)
	w.string(string(s))
	return w.buf, nil
}

func (s *String) UnmarshalBinary(d []byte) error {
	if s == nil {
		return errNilTarget
	}
	r, err := openReader(d, KindString)
	if err != nil {
		return err
	}
	v, err := r.string()
	if err != nil {
		return err
	}
	*s = String(v)
	return r.done()
}

// Bytes is an encodable length-prefixed byte slice. Decoding copies the data
// so the result does not alias the input.
type Bytes []byte

func (b Bytes) MarshalBinary() ([]byte, error) {
	w := newWriter(KindBytes, len(b)+2)
	w.bytes(b)
	return w.buf, nil
}

func (b *Bytes) UnmarshalBinary(d []byte) error {
	if b == nil {
		return errNilTarget
	}
	r, err := openReader(d, KindBytes)
	if err != nil {
		return err
	}
	v, err := r.bytes()
	if err != nil {
		return err
	}
	*b = append(Bytes(nil), v...)
	return r.done()
}
