// Package question reads and writes a DNS question section entry: a
// domain name paired with the record type being asked about. The class
// is always IN (1) on the wire; it is consumed on decode and emitted on
// encode, never stored.
package question

import (
	"fmt"
	"strings"

	"github.com/arwynfr/dnsfwd/internal/buffer"
	"github.com/arwynfr/dnsfwd/internal/querytype"
)

// classIN is the only class this server ever sees or emits.
const classIN uint16 = 1

// Question is a (name, qtype) pair.
type Question struct {
	Name  string
	Type  querytype.QueryType
}

// ReadFrom decodes a question entry from buf at the cursor.
func ReadFrom(buf *buffer.PacketBuffer) (*Question, error) {
	var name strings.Builder
	if err := buf.ReadQName(&name); err != nil {
		return nil, fmt.Errorf("question: read name: %w", err)
	}

	rawType, err := buf.ReadU16()
	if err != nil {
		return nil, fmt.Errorf("question: read qtype: %w", err)
	}

	if _, err := buf.ReadU16(); err != nil { // qclass, discarded
		return nil, fmt.Errorf("question: read qclass: %w", err)
	}

	return &Question{Name: name.String(), Type: querytype.FromNum(rawType)}, nil
}

// WriteTo encodes q into buf at the cursor.
func (q *Question) WriteTo(buf *buffer.PacketBuffer) error {
	if err := buf.WriteQName(q.Name); err != nil {
		return fmt.Errorf("question: write name: %w", err)
	}
	if err := buf.WriteU16(q.Type.ToNum()); err != nil {
		return fmt.Errorf("question: write qtype: %w", err)
	}
	if err := buf.WriteU16(classIN); err != nil {
		return fmt.Errorf("question: write qclass: %w", err)
	}
	return nil
}
