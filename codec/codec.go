// Package codec provides the compact binary encoding used to turn records and
// scalar values into page payloads and back.
package codec

import (
	"encoding"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned when the input ends before the value does.
	ErrTruncated = errors.New("truncated input")

	// ErrKindMismatch is returned when the encoded value is of a different
	// kind than the one being decoded into.
	ErrKindMismatch = errors.New("kind mismatch")

	// ErrMalformed is returned for inputs that are structurally invalid, for
	// example trailing bytes or duplicate record keys.
	ErrMalformed = errors.New("malformed input")
)

// bin is the byte order used for all fixed width integers.
var bin = binary.LittleEndian

// maxLen caps any decoded length or count so that a corrupt prefix cannot
// trigger a huge allocation.
const maxLen = 1 << 32

// Kind tags the first byte of every encoded value.
type Kind uint8

// Kinds of values supported by the codec.
const (
	KindBool Kind = iota + 1
	KindInt32
	KindInt64
	KindUint64
	KindFloat64
	KindString
	KindBytes
	KindRecord
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindUint64:
		return "uint64"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindRecord:
		return "record"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Encode marshals the value into its binary form.
func Encode(v encoding.BinaryMarshaler) ([]byte, error) {
	if v == nil {
		return nil, errors.New("encode: nil value")
	}
	d, err := v.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return d, nil
}

// Decode un-marshals data into 'into'. The whole input must be consumed by
// the value.
func Decode(data []byte, into encoding.BinaryUnmarshaler) error {
	if into == nil {
		return errors.New("decode: nil destination")
	}
	if err := into.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

type writer struct {
	buf []byte
}

func newWriter(k Kind, sizeHint int) *writer {
	w := &writer{buf: make([]byte, 0, 1+sizeHint)}
	w.buf = append(w.buf, byte(k))
	return w
}

func (w *writer) uvarint(v uint64) {
	w.buf = binary.AppendUvarint(w.buf, v)
}

func (w *writer) bytes(b []byte) {
	w.uvarint(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *writer) string(s string) {
	w.uvarint(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

type reader struct {
	data []byte
	off  int
}

// openReader checks the kind tag and returns a reader positioned right after
// it.
func openReader(data []byte, want Kind) (*reader, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input for %s", ErrTruncated, want)
	}
	if got := Kind(data[0]); got != want {
		return nil, fmt.Errorf("%w: want %s, got %s", ErrKindMismatch, want, got)
	}
	return &reader{data: data, off: 1}, nil
}

func (r *reader) remaining() int { return len(r.data) - r.off }

func (r *reader) next(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrTruncated, n, r.off, r.remaining())
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.data[r.off:])
	if n == 0 {
		return 0, fmt.Errorf("%w: length at offset %d", ErrTruncated, r.off)
	} else if n < 0 {
		return 0, fmt.Errorf("%w: length overflow at offset %d", ErrMalformed, r.off)
	}
	r.off += n
	return v, nil
}

func (r *reader) length() (int, error) {
	v, err := r.uvarint()
	if err != nil {
		return 0, err
	}
	if v >= maxLen || v > uint64(r.remaining()) {
		return 0, fmt.Errorf("%w: length %d exceeds remaining %d bytes",
			ErrTruncated, v, r.remaining())
	}
	return int(v), nil
}

func (r *reader) bytes() ([]byte, error) {
	n, err := r.length()
	if err != nil {
		return nil, err
	}
	return r.next(n)
}

func (r *reader) string() (string, error) {
	b, err := r.bytes()
	return string(b), err
}

// done reports trailing garbage as malformed input.
func (r *reader) done() error {
	if r.remaining() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformed, r.remaining())
	}
	return nil
}
