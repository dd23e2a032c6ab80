package codec

import (
	"encoding"
	"fmt"
	"slices"
)

var (
	_ encoding.BinaryMarshaler   = Record(nil)
	_ encoding.BinaryUnmarshaler = (*Record)(nil)
)

// Record maps field names to string values. It is the payload type of every
// page written by the record store.
type Record map[string]string

// Fields returns the field names of the record in sorted order.
func (rec Record) Fields() []string {
	names := make([]string, 0, len(rec))
	for name := range rec {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Clone returns a copy of the record that shares nothing with it.
func (rec Record) Clone() Record {
	if rec == nil {
		return nil
	}
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

// MarshalBinary encodes the record with its fields in sorted order so that
// equal records always produce equal bytes.
func (rec Record) MarshalBinary() ([]byte, error) {
	size := 0
	for k, v := range rec {
		size += len(k) + len(v) + 4
	}

	w := newWriter(KindRecord, size+2)
	w.uvarint(uint64(len(rec)))
	for _, k := range rec.Fields() {
		w.string(k)
		w.string(rec[k])
	}
	return w.buf, nil
}

// UnmarshalBinary replaces the contents of rec with the decoded record.
func (rec *Record) UnmarshalBinary(d []byte) error {
	if rec == nil {
		return errNilTarget
	}
	r, err := openReader(d, KindRecord)
	if err != nil {
		return err
	}

	count, err := r.uvarint()
	if err != nil {
		return err
	}
	// every field takes at least two bytes (two empty length prefixes)
	if count > uint64(r.remaining()/2) {
		return fmt.Errorf("%w: %d fields declared, only %d bytes left",
			ErrTruncated, count, r.remaining())
	}

	out := make(Record, count)
	for i := uint64(0); i < count; i++ {
		k, err := r.string()
		if err != nil {
			return fmt.Errorf("field %d name: %w", i, err)
		}
		v, err := r.string()
		if err != nil {
			return fmt.Errorf("field '%s' value: %w", k, err)
		}
		if _, dup := out[k]; dup {
			return fmt.Errorf("%w: duplicate field '%s'", ErrMalformed, k)
		}
		out[k] = v
	}

	if err := r.done(); err != nil {
		return err
	}
	*rec = out
	return nil
}
