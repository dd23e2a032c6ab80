package codec

import (
	"encoding"
	"fmt"
)

// Decodable is satisfied by pointer types whose element can be decoded in
// place, e.g. *Record or *Int64.
type Decodable[E any] interface {
	*E
	encoding.BinaryUnmarshaler
}

// EncodeList encodes a homogeneous list. Each element is stored as its full,
// length-prefixed encoding so lists can nest.
func EncodeList[E encoding.BinaryMarshaler](items []E) ([]byte, error) {
	w := newWriter(KindList, 8)
	w.uvarint(uint64(len(items)))
	for i, item := range items {
		d, err := item.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("encode: list item %d: %w", i, err)
		}
		w.bytes(d)
	}
	return w.buf, nil
}

// DecodeList decodes a list produced by EncodeList.
func DecodeList[E any, P Decodable[E]](data []byte) ([]E, error) {
	r, err := openReader(data, KindList)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	count, err := r.uvarint()
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	// every item needs a length prefix and a kind tag
	if count > uint64(r.remaining()/2) {
		return nil, fmt.Errorf("decode: %w: %d items declared, only %d bytes left",
			ErrTruncated, count, r.remaining())
	}

	out := make([]E, count)
	for i := range out {
		d, err := r.bytes()
		if err != nil {
			return nil, fmt.Errorf("decode: list item %d: %w", i, err)
		}
		if err := P(&out[i]).UnmarshalBinary(d); err != nil {
			return nil, fmt.Errorf("decode: list item %d: %w", i, err)
		}
	}

	if err := r.done(); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return out, nil
}

// List adapts a slice of encodable values to the Marshaler/Unmarshaler pair
// so it can be handed to Encode/Decode or nested inside another List, e.g.
// List[List[Int64, *Int64], *List[Int64, *Int64]].
type List[E encoding.BinaryMarshaler, P Decodable[E]] []E

// MarshalBinary implements encoding.BinaryMarshaler.
func (l List[E, P]) MarshalBinary() ([]byte, error) { return EncodeList([]E(l)) }

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (l *List[E, P]) UnmarshalBinary(d []byte) error {
	if l == nil {
		return errNilTarget
	}
	items, err := DecodeList[E, P](d)
	if err != nil {
		return err
	}
	*l = items
	return nil
}
