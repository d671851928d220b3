// Package header reads and writes the 12-octet DNS message header,
// including its bit-packed flag fields, to and from a buffer.PacketBuffer.
package header

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/arwynfr/dnsfwd/internal/buffer"
)

// flagByte indexes the two octets that carry the header's 1-bit and
// multi-bit flag fields.
type flagByte int

const (
	firstFlagByte flagByte = iota
	secondFlagByte
)

// Opcode is the 4-bit DNS header opcode field.
type Opcode uint8

const (
	Query  Opcode = iota // Standard query (QUERY)
	IQuery               // Inverse query (IQUERY)
	Status               // Server status request (STATUS)
	// 3-15 reserved for future use.
)

// ResponseCode is the 4-bit DNS header response code field (RCODE).
type ResponseCode uint8

const (
	NoError        ResponseCode = iota // No error condition
	FormatError                        // Format error
	ServerFailure                      // Server failure
	NameError                          // Name error (domain doesn't exist)
	NotImplemented                     // Not implemented
	Refused                            // Operation refused
	// 6-15 reserved for future use; decoded as NoError.
)

func (code ResponseCode) String() string {
	switch code {
	case NoError:
		return "NoError"
	case FormatError:
		return "FormatError"
	case ServerFailure:
		return "ServerFailure"
	case NameError:
		return "NameError"
	case NotImplemented:
		return "NotImplemented"
	case Refused:
		return "Refused"
	default:
		return "ReservedForFutureUse"
	}
}

// Header is a structured view of the 12-octet DNS message header.
type Header struct {
	ID uint16

	Flags [2]byte

	QDCOUNT uint16
	ANCOUNT uint16
	NSCOUNT uint16
	ARCOUNT uint16
}

// SetRandomID assigns a fresh random transaction id, as RFC 1035 requires
// for queries to disambiguate responses on a stateless UDP transport.
func (h *Header) SetRandomID() error {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Errorf("header: generate random id: %w", err)
	}
	h.ID = binary.BigEndian.Uint16(b[:])
	return nil
}

// IsQuery reports whether the header represents a query (QR=0).
func (h *Header) IsQuery() bool {
	return !h.IsResponse()
}

// IsResponse reports whether the header represents a response (QR=1).
func (h *Header) IsResponse() bool {
	const qrMask byte = 0b1000_0000
	return h.Flags[firstFlagByte]&qrMask != 0
}

// SetQRFlag sets the Query/Response flag.
func (h *Header) SetQRFlag(isResponse bool) {
	const qrMask byte = 0b1000_0000
	if isResponse {
		h.Flags[firstFlagByte] |= qrMask
	} else {
		h.Flags[firstFlagByte] &^= qrMask
	}
}

// GetOpcode extracts the Opcode from the header flags.
func (h *Header) GetOpcode() Opcode {
	const opcodeMask byte = 0b0000_1111
	return Opcode((h.Flags[firstFlagByte] >> 3) & opcodeMask)
}

// SetOpcode sets the Opcode in the header flags.
func (h *Header) SetOpcode(opcode Opcode) {
	const clearMask byte = 0b1000_0111
	const opcodeMask byte = 0b0000_1111
	h.Flags[firstFlagByte] = (h.Flags[firstFlagByte] & clearMask) | ((byte(opcode) & opcodeMask) << 3)
}

// IsAA reports whether the Authoritative Answer flag is set.
func (h *Header) IsAA() bool {
	const aaMask byte = 0b0000_0100
	return h.Flags[firstFlagByte]&aaMask != 0
}

// SetAA sets the Authoritative Answer flag.
func (h *Header) SetAA(isAA bool) {
	const aaMask byte = 0b0000_0100
	if isAA {
		h.Flags[firstFlagByte] |= aaMask
	} else {
		h.Flags[firstFlagByte] &^= aaMask
	}
}

// IsTC reports whether the Truncation flag is set.
func (h *Header) IsTC() bool {
	const tcMask byte = 0b0000_0010
	return h.Flags[firstFlagByte]&tcMask != 0
}

// SetTC sets the Truncation flag.
func (h *Header) SetTC(isTruncated bool) {
	const tcMask byte = 0b0000_0010
	if isTruncated {
		h.Flags[firstFlagByte] |= tcMask
	} else {
		h.Flags[firstFlagByte] &^= tcMask
	}
}

// IsRD reports whether the Recursion Desired flag is set.
func (h *Header) IsRD() bool {
	const rdMask byte = 0b0000_0001
	return h.Flags[firstFlagByte]&rdMask != 0
}

// SetRD sets the Recursion Desired flag.
func (h *Header) SetRD(recursionDesired bool) {
	const rdMask byte = 0b0000_0001
	if recursionDesired {
		h.Flags[firstFlagByte] |= rdMask
	} else {
		h.Flags[firstFlagByte] &^= rdMask
	}
}

// IsRA reports whether the Recursion Available flag is set.
func (h *Header) IsRA() bool {
	const raMask byte = 0b1000_0000
	return h.Flags[secondFlagByte]&raMask != 0
}

// SetRA sets the Recursion Available flag.
func (h *Header) SetRA(recursionAvailable bool) {
	const raMask byte = 0b1000_0000
	if recursionAvailable {
		h.Flags[secondFlagByte] |= raMask
	} else {
		h.Flags[secondFlagByte] &^= raMask
	}
}

// IsZ reports whether the reserved Z flag is set.
func (h *Header) IsZ() bool {
	const zMask byte = 0b0100_0000
	return h.Flags[secondFlagByte]&zMask != 0
}

// SetZ sets the reserved Z flag.
func (h *Header) SetZ(z bool) {
	const zMask byte = 0b0100_0000
	if z {
		h.Flags[secondFlagByte] |= zMask
	} else {
		h.Flags[secondFlagByte] &^= zMask
	}
}

// IsAD reports whether the Authenticated Data flag is set.
func (h *Header) IsAD() bool {
	const adMask byte = 0b0010_0000
	return h.Flags[secondFlagByte]&adMask != 0
}

// SetAD sets the Authenticated Data flag.
func (h *Header) SetAD(authedData bool) {
	const adMask byte = 0b0010_0000
	if authedData {
		h.Flags[secondFlagByte] |= adMask
	} else {
		h.Flags[secondFlagByte] &^= adMask
	}
}

// IsCD reports whether the Checking Disabled flag is set.
func (h *Header) IsCD() bool {
	const cdMask byte = 0b0001_0000
	return h.Flags[secondFlagByte]&cdMask != 0
}

// SetCD sets the Checking Disabled flag.
func (h *Header) SetCD(checkingDisabled bool) {
	const cdMask byte = 0b0001_0000
	if checkingDisabled {
		h.Flags[secondFlagByte] |= cdMask
	} else {
		h.Flags[secondFlagByte] &^= cdMask
	}
}

// GetRCODE returns the response code. A raw value outside the six
// enumerated codes decodes to NoError, per RFC 1035's "reserved for
// future use" treatment of codes 6-15.
func (h *Header) GetRCODE() ResponseCode {
	const rcodeMask byte = 0b0000_1111
	raw := h.Flags[secondFlagByte] & rcodeMask
	if raw > byte(Refused) {
		return NoError
	}
	return ResponseCode(raw)
}

// SetRCODE sets the response code.
func (h *Header) SetRCODE(rcode ResponseCode) {
	const clearMask byte = 0b1111_0000
	const rcodeMask byte = 0b0000_1111
	h.Flags[secondFlagByte] = (h.Flags[secondFlagByte] & clearMask) | (byte(rcode) & rcodeMask)
}

// ReadFrom decodes a 12-octet header from buf at the cursor, advancing it
// by 12.
func ReadFrom(buf *buffer.PacketBuffer) (*Header, error) {
	h := &Header{}

	id, err := buf.ReadU16()
	if err != nil {
		return nil, fmt.Errorf("header: read id: %w", err)
	}
	h.ID = id

	a, err := buf.Read()
	if err != nil {
		return nil, fmt.Errorf("header: read flags[0]: %w", err)
	}
	b, err := buf.Read()
	if err != nil {
		return nil, fmt.Errorf("header: read flags[1]: %w", err)
	}
	h.Flags[firstFlagByte] = a
	h.Flags[secondFlagByte] = b

	if h.QDCOUNT, err = buf.ReadU16(); err != nil {
		return nil, fmt.Errorf("header: read qdcount: %w", err)
	}
	if h.ANCOUNT, err = buf.ReadU16(); err != nil {
		return nil, fmt.Errorf("header: read ancount: %w", err)
	}
	if h.NSCOUNT, err = buf.ReadU16(); err != nil {
		return nil, fmt.Errorf("header: read nscount: %w", err)
	}
	if h.ARCOUNT, err = buf.ReadU16(); err != nil {
		return nil, fmt.Errorf("header: read arcount: %w", err)
	}
	return h, nil
}

// WriteTo encodes h into buf at the cursor, advancing it by 12.
func (h *Header) WriteTo(buf *buffer.PacketBuffer) error {
	if err := buf.WriteU16(h.ID); err != nil {
		return fmt.Errorf("header: write id: %w", err)
	}
	if err := buf.Write(h.Flags[firstFlagByte]); err != nil {
		return fmt.Errorf("header: write flags[0]: %w", err)
	}
	if err := buf.Write(h.Flags[secondFlagByte]); err != nil {
		return fmt.Errorf("header: write flags[1]: %w", err)
	}
	if err := buf.WriteU16(h.QDCOUNT); err != nil {
		return fmt.Errorf("header: write qdcount: %w", err)
	}
	if err := buf.WriteU16(h.ANCOUNT); err != nil {
		return fmt.Errorf("header: write ancount: %w", err)
	}
	if err := buf.WriteU16(h.NSCOUNT); err != nil {
		return fmt.Errorf("header: write nscount: %w", err)
	}
	if err := buf.WriteU16(h.ARCOUNT); err != nil {
		return fmt.Errorf("header: write arcount: %w", err)
	}
	return nil
}
