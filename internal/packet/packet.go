// Package packet assembles and disassembles a full DNS message: one
// Header plus the four ordered record/question sections it describes.
package packet

import (
	"fmt"

	"github.com/arwynfr/dnsfwd/internal/buffer"
	"github.com/arwynfr/dnsfwd/internal/header"
	"github.com/arwynfr/dnsfwd/internal/question"
	"github.com/arwynfr/dnsfwd/internal/record"
)

// Packet is a full DNS message.
type Packet struct {
	Header      *header.Header
	Questions   []*question.Question
	Answers     []*record.Record
	Authorities []*record.Record
	Additionals []*record.Record
}

// New returns an empty packet with a zero header, ready for a caller to
// populate before calling Write.
func New() *Packet {
	return &Packet{Header: &header.Header{}}
}

// FromBuffer reads a complete message from buf: the header, then the
// questions, answers, authorities, and additionals sections, in that
// order, each with the count given in the header.
func FromBuffer(buf *buffer.PacketBuffer) (*Packet, error) {
	h, err := header.ReadFrom(buf)
	if err != nil {
		return nil, fmt.Errorf("packet: read header: %w", err)
	}

	p := &Packet{Header: h}

	for i := uint16(0); i < h.QDCOUNT; i++ {
		q, err := question.ReadFrom(buf)
		if err != nil {
			return nil, fmt.Errorf("packet: read question %d: %w", i, err)
		}
		p.Questions = append(p.Questions, q)
	}

	for i := uint16(0); i < h.ANCOUNT; i++ {
		r, err := record.ReadFrom(buf)
		if err != nil {
			return nil, fmt.Errorf("packet: read answer %d: %w", i, err)
		}
		p.Answers = append(p.Answers, r)
	}

	for i := uint16(0); i < h.NSCOUNT; i++ {
		r, err := record.ReadFrom(buf)
		if err != nil {
			return nil, fmt.Errorf("packet: read authority %d: %w", i, err)
		}
		p.Authorities = append(p.Authorities, r)
	}

	for i := uint16(0); i < h.ARCOUNT; i++ {
		r, err := record.ReadFrom(buf)
		if err != nil {
			return nil, fmt.Errorf("packet: read additional %d: %w", i, err)
		}
		p.Additionals = append(p.Additionals, r)
	}

	return p, nil
}

// Write overwrites the header's four section counts from the actual
// lengths of p's sections, then writes the header and every section, in
// order, into buf. This is the single invariant that binds the header to
// the body on encode.
func (p *Packet) Write(buf *buffer.PacketBuffer) error {
	p.Header.QDCOUNT = uint16(len(p.Questions))
	p.Header.ANCOUNT = uint16(len(p.Answers))
	p.Header.NSCOUNT = uint16(len(p.Authorities))
	p.Header.ARCOUNT = uint16(len(p.Additionals))

	if err := p.Header.WriteTo(buf); err != nil {
		return fmt.Errorf("packet: write header: %w", err)
	}

	for i, q := range p.Questions {
		if err := q.WriteTo(buf); err != nil {
			return fmt.Errorf("packet: write question %d: %w", i, err)
		}
	}
	for i, r := range p.Answers {
		if _, err := r.WriteTo(buf); err != nil {
			return fmt.Errorf("packet: write answer %d: %w", i, err)
		}
	}
	for i, r := range p.Authorities {
		if _, err := r.WriteTo(buf); err != nil {
			return fmt.Errorf("packet: write authority %d: %w", i, err)
		}
	}
	for i, r := range p.Additionals {
		if _, err := r.WriteTo(buf); err != nil {
			return fmt.Errorf("packet: write additional %d: %w", i, err)
		}
	}
	return nil
}
