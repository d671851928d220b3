// Package buffer implements the fixed-size, cursor-addressed byte buffer
// DNS messages are read from and written into.
//
// A DNS message over UDP is at most 512 octets (RFC 1035 §2.3.4, absent
// EDNS(0)). PacketBuffer models that limit directly: it is backed by a
// [512]byte array, never grows, and every access is bounds-checked against
// it. All multi-byte fields on the wire are big-endian.
package buffer

import (
	"errors"
	"fmt"
	"strings"
)

// Size is the maximum number of octets a PacketBuffer holds, matching the
// maximum size of a DNS message sent without EDNS(0) over UDP.
const Size = 512

// maxLabelLength is the largest a single DNS label may be (RFC 1035 §3.1).
const maxLabelLength = 0x3F // 63

// maxJumps bounds how many compression pointers ReadQName will follow
// before giving up, so a cyclic or adversarial pointer chain cannot hang
// or crash the decoder.
const maxJumps = 5

// pointerMask is the two high bits that mark a length byte as the first
// octet of a compression pointer rather than a label length.
const pointerMask = 0xC0

var (
	// ErrOutOfBounds is returned when a read, write, or seek would cross
	// the edge of the 512-octet buffer.
	ErrOutOfBounds = errors.New("buffer: position out of bounds")

	// ErrMalformedLabel is returned for a label that is too long to encode,
	// or whose length byte does not cleanly belong to either compressed
	// pointer or length-octet form.
	ErrMalformedLabel = errors.New("buffer: malformed label")

	// ErrTooManyJumps is returned when name decoding follows more than
	// maxJumps compression pointers, which only happens on cyclic or
	// otherwise adversarial input.
	ErrTooManyJumps = errors.New("buffer: too many compression pointer jumps")
)

// PacketBuffer is a fixed 512-octet buffer with a single read/write cursor.
// The zero value is a buffer positioned at 0, ready to use.
type PacketBuffer struct {
	buf [Size]byte
	pos int
}

// New returns an empty PacketBuffer positioned at 0.
func New() *PacketBuffer {
	return &PacketBuffer{}
}

// NewFromBytes returns a PacketBuffer whose contents are data, padded with
// zeroes (or truncated) to Size octets, positioned at 0. Used to load a
// datagram received off the wire.
func NewFromBytes(data []byte) *PacketBuffer {
	b := &PacketBuffer{}
	copy(b.buf[:], data)
	return b
}

// Bytes returns the portion of the buffer written so far, i.e. [0, pos).
func (b *PacketBuffer) Bytes() []byte {
	return b.buf[:b.pos]
}

// Position reports the current cursor.
func (b *PacketBuffer) Position() int {
	return b.pos
}

// Seek sets the cursor to pos.
func (b *PacketBuffer) Seek(pos int) error {
	if pos < 0 || pos > Size {
		return fmt.Errorf("%w: seek to %d", ErrOutOfBounds, pos)
	}
	b.pos = pos
	return nil
}

// Step advances the cursor by n.
func (b *PacketBuffer) Step(n int) error {
	return b.Seek(b.pos + n)
}

// Read returns the octet at the cursor and advances it by one.
func (b *PacketBuffer) Read() (byte, error) {
	if b.pos >= Size {
		return 0, fmt.Errorf("%w: read at %d", ErrOutOfBounds, b.pos)
	}
	v := b.buf[b.pos]
	b.pos++
	return v, nil
}

// ReadU16 consumes two octets and returns them as a big-endian uint16.
func (b *PacketBuffer) ReadU16() (uint16, error) {
	hi, err := b.Read()
	if err != nil {
		return 0, err
	}
	lo, err := b.Read()
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// ReadU32 consumes four octets and returns them as a big-endian uint32.
func (b *PacketBuffer) ReadU32() (uint32, error) {
	var v uint32
	for i := 0; i < 4; i++ {
		octet, err := b.Read()
		if err != nil {
			return 0, err
		}
		v = v<<8 | uint32(octet)
	}
	return v, nil
}

// Get returns the octet at pos without moving the cursor.
func (b *PacketBuffer) Get(pos int) (byte, error) {
	if pos < 0 || pos >= Size {
		return 0, fmt.Errorf("%w: get at %d", ErrOutOfBounds, pos)
	}
	return b.buf[pos], nil
}

// GetRange returns a copy of length octets starting at pos without moving
// the cursor. A range ending exactly at octet 511 (pos+length == Size) is
// legal.
func (b *PacketBuffer) GetRange(pos, length int) ([]byte, error) {
	if pos < 0 || length < 0 || pos+length > Size {
		return nil, fmt.Errorf("%w: get_range [%d, %d)", ErrOutOfBounds, pos, pos+length)
	}
	out := make([]byte, length)
	copy(out, b.buf[pos:pos+length])
	return out, nil
}

// Write stores v at the cursor and advances it by one.
func (b *PacketBuffer) Write(v byte) error {
	if b.pos >= Size {
		return fmt.Errorf("%w: write at %d", ErrOutOfBounds, b.pos)
	}
	b.buf[b.pos] = v
	b.pos++
	return nil
}

// WriteU16 stores v big-endian at the cursor and advances it by two.
func (b *PacketBuffer) WriteU16(v uint16) error {
	if err := b.Write(byte(v >> 8)); err != nil {
		return err
	}
	return b.Write(byte(v))
}

// WriteU32 stores v big-endian at the cursor and advances it by four.
func (b *PacketBuffer) WriteU32(v uint32) error {
	for shift := 24; shift >= 0; shift -= 8 {
		if err := b.Write(byte(v >> shift)); err != nil {
			return err
		}
	}
	return nil
}

// Set overwrites the octet at pos without moving the cursor.
func (b *PacketBuffer) Set(pos int, v byte) error {
	if pos < 0 || pos >= Size {
		return fmt.Errorf("%w: set at %d", ErrOutOfBounds, pos)
	}
	b.buf[pos] = v
	return nil
}

// SetU16 overwrites two octets at pos, big-endian, without moving the
// cursor. Used to back-patch an RDLENGTH slot reserved earlier.
func (b *PacketBuffer) SetU16(pos int, v uint16) error {
	if err := b.Set(pos, byte(v>>8)); err != nil {
		return err
	}
	return b.Set(pos+1, byte(v))
}

// ReadQName decodes a (possibly compressed) domain name starting at the
// cursor and writes its dot-separated, lowercased labels into out. The
// cursor ends up positioned just past the name as it appeared at the
// original position — i.e. past the terminating zero octet, or past the
// two octets of the first pointer encountered, whichever came first.
func (b *PacketBuffer) ReadQName(out *strings.Builder) error {
	pos := b.pos
	jumped := false
	jumps := 0
	delim := ""

	for {
		lengthByte, err := b.Get(pos)
		if err != nil {
			return err
		}

		if lengthByte&pointerMask == pointerMask {
			if jumps >= maxJumps {
				return ErrTooManyJumps
			}
			second, err := b.Get(pos + 1)
			if err != nil {
				return err
			}
			offset := int(uint16(lengthByte&^pointerMask)<<8 | uint16(second))

			if !jumped {
				if err := b.Seek(pos + 2); err != nil {
					return err
				}
				jumped = true
			}

			pos = offset
			jumps++
			continue
		}

		if lengthByte&pointerMask != 0 {
			return ErrMalformedLabel
		}

		pos++
		if lengthByte == 0 {
			break
		}

		label, err := b.GetRange(pos, int(lengthByte))
		if err != nil {
			return err
		}
		out.WriteString(delim)
		out.WriteString(strings.ToLower(string(label)))
		delim = "."
		pos += int(lengthByte)

		if !jumped {
			if err := b.Seek(pos); err != nil {
				return err
			}
		}
	}

	if !jumped {
		if err := b.Seek(pos); err != nil {
			return err
		}
	}
	return nil
}

// WriteQName encodes name as a sequence of length-prefixed labels
// terminated by a zero octet. No compression is performed; a label
// longer than 63 octets is rejected.
func (b *PacketBuffer) WriteQName(name string) error {
	for _, label := range strings.Split(name, ".") {
		if len(label) == 0 {
			continue
		}
		if len(label) > maxLabelLength {
			return fmt.Errorf("%w: label %q is %d octets, max %d", ErrMalformedLabel, label, len(label), maxLabelLength)
		}
		if err := b.Write(byte(len(label))); err != nil {
			return err
		}
		for i := 0; i < len(label); i++ {
			if err := b.Write(label[i]); err != nil {
				return err
			}
		}
	}
	return b.Write(0)
}
