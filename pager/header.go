package pager

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
)

// HeaderSize is the size of an encoded page header. Every extent in the
// backing memory starts with one.
const HeaderSize = 8 + blake3Size

const blake3Size = 32

// bin is the byte order used for headers.
var bin = binary.LittleEndian

// Header describes the payload of a page.
type Header struct {
	Size uint64           // length of the payload in bytes
	Sum  [blake3Size]byte // BLAKE3 digest of the payload
}

func headerFor(payload []byte) Header {
	return Header{
		Size: uint64(len(payload)),
		Sum:  blake3.Sum256(payload),
	}
}

func (h *Header) MarshalBinary() ([]byte, error) {
	if h == nil {
		return nil, errors.New("cannot marshal nil header")
	}
	buf := make([]byte, HeaderSize)
	bin.PutUint64(buf[0:8], h.Size)
	copy(buf[8:HeaderSize], h.Sum[:])
	return buf, nil
}

func (h *Header) UnmarshalBinary(d []byte) error {
	if len(d) < HeaderSize {
		return errors.New("in-sufficient data to unmarshal header")
	} else if h == nil {
		return errors.New("cannot unmarshal into nil header")
	}

	h.Size = bin.Uint64(d[0:8])
	copy(h.Sum[:], d[8:HeaderSize])
	return nil
}

// Page is a copy of one page held by the pager. Mutating it has no effect on
// the pager.
type Page struct {
	Header Header
	Data   []byte
}

// Verify checks the payload against the size and digest in the header.
func (p Page) Verify() error {
	if uint64(len(p.Data)) != p.Header.Size {
		return fmt.Errorf("%w: header says %d bytes, payload has %d",
			ErrCorrupt, p.Header.Size, len(p.Data))
	}
	if blake3.Sum256(p.Data) != p.Header.Sum {
		return fmt.Errorf("%w: digest mismatch", ErrCorrupt)
	}
	return nil
}
