// Package record implements the DNS resource record codec: a small,
// closed tagged variant over the record types this server understands
// (A, AAAA, NS, CNAME, MX), plus an Unknown branch that preserves enough
// of an unsupported record to skip it transparently on decode and drop it
// silently on encode.
package record

import (
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/arwynfr/dnsfwd/internal/buffer"
	"github.com/arwynfr/dnsfwd/internal/querytype"
)

// classIN is the only class this server ever sees or emits.
const classIN uint16 = 1

// Kind identifies which branch of the Record variant is populated.
type Kind int

const (
	KindA Kind = iota
	KindAAAA
	KindNS
	KindCNAME
	KindMX
	KindUnknown
)

// Record is a tagged variant over the supported resource record shapes.
// Exactly the fields relevant to Kind are meaningful; the rest are zero.
type Record struct {
	Kind   Kind
	Domain string
	TTL    uint32

	IP       net.IP // KindA, KindAAAA
	Host     string // KindNS, KindCNAME
	Priority uint16 // KindMX
	MXHost   string // KindMX

	// Unknown-branch fields, preserved only for logging; RDATA itself is
	// never retained since it is skipped, not stored.
	UnknownType querytype.QueryType
	DataLen     uint16
}

// ReadFrom decodes one resource record from buf at the cursor.
func ReadFrom(buf *buffer.PacketBuffer) (*Record, error) {
	var name strings.Builder
	if err := buf.ReadQName(&name); err != nil {
		return nil, fmt.Errorf("record: read name: %w", err)
	}

	rawType, err := buf.ReadU16()
	if err != nil {
		return nil, fmt.Errorf("record: read type: %w", err)
	}
	qtype := querytype.FromNum(rawType)

	if _, err := buf.ReadU16(); err != nil { // class, discarded
		return nil, fmt.Errorf("record: read class: %w", err)
	}

	ttl, err := buf.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("record: read ttl: %w", err)
	}

	rdlength, err := buf.ReadU16()
	if err != nil {
		return nil, fmt.Errorf("record: read rdlength: %w", err)
	}

	domain := name.String()

	switch qtype {
	case querytype.A:
		octets, err := buf.GetRange(buf.Position(), 4)
		if err != nil {
			return nil, fmt.Errorf("record: read A rdata: %w", err)
		}
		if err := buf.Step(4); err != nil {
			return nil, err
		}
		return &Record{Kind: KindA, Domain: domain, TTL: ttl, IP: net.IPv4(octets[0], octets[1], octets[2], octets[3])}, nil

	case querytype.AAAA:
		var addr [16]byte
		for i := 0; i < 8; i++ {
			group, err := buf.ReadU16()
			if err != nil {
				return nil, fmt.Errorf("record: read AAAA rdata: %w", err)
			}
			addr[2*i] = byte(group >> 8)
			addr[2*i+1] = byte(group)
		}
		ip := netip.AddrFrom16(addr)
		return &Record{Kind: KindAAAA, Domain: domain, TTL: ttl, IP: net.IP(ip.AsSlice())}, nil

	case querytype.NS:
		var host strings.Builder
		if err := buf.ReadQName(&host); err != nil {
			return nil, fmt.Errorf("record: read NS rdata: %w", err)
		}
		return &Record{Kind: KindNS, Domain: domain, TTL: ttl, Host: host.String()}, nil

	case querytype.CNAME:
		var host strings.Builder
		if err := buf.ReadQName(&host); err != nil {
			return nil, fmt.Errorf("record: read CNAME rdata: %w", err)
		}
		return &Record{Kind: KindCNAME, Domain: domain, TTL: ttl, Host: host.String()}, nil

	case querytype.MX:
		priority, err := buf.ReadU16()
		if err != nil {
			return nil, fmt.Errorf("record: read MX preference: %w", err)
		}
		var host strings.Builder
		if err := buf.ReadQName(&host); err != nil {
			return nil, fmt.Errorf("record: read MX exchange: %w", err)
		}
		return &Record{Kind: KindMX, Domain: domain, TTL: ttl, Priority: priority, MXHost: host.String()}, nil

	default:
		if err := buf.Step(int(rdlength)); err != nil {
			return nil, fmt.Errorf("record: skip unknown rdata: %w", err)
		}
		return &Record{Kind: KindUnknown, Domain: domain, TTL: ttl, UnknownType: qtype, DataLen: rdlength}, nil
	}
}

// WriteTo encodes r into buf at the cursor and returns the number of
// octets written. An Unknown record writes nothing and returns 0.
func (r *Record) WriteTo(buf *buffer.PacketBuffer) (int, error) {
	start := buf.Position()

	switch r.Kind {
	case KindA:
		if err := r.writeFixedHeader(buf, querytype.A, 4); err != nil {
			return 0, err
		}
		ip4 := r.IP.To4()
		if ip4 == nil {
			return 0, fmt.Errorf("record: A record for %q has no valid IPv4 address", r.Domain)
		}
		for _, octet := range ip4 {
			if err := buf.Write(octet); err != nil {
				return 0, err
			}
		}

	case KindAAAA:
		if err := r.writeFixedHeader(buf, querytype.AAAA, 16); err != nil {
			return 0, err
		}
		ip16 := r.IP.To16()
		if ip16 == nil {
			return 0, fmt.Errorf("record: AAAA record for %q has no valid IPv6 address", r.Domain)
		}
		for i := 0; i < 16; i += 2 {
			if err := buf.WriteU16(uint16(ip16[i])<<8 | uint16(ip16[i+1])); err != nil {
				return 0, err
			}
		}

	case KindNS:
		if err := r.writeVariableRecord(buf, querytype.NS, func() error { return buf.WriteQName(r.Host) }); err != nil {
			return 0, err
		}

	case KindCNAME:
		if err := r.writeVariableRecord(buf, querytype.CNAME, func() error { return buf.WriteQName(r.Host) }); err != nil {
			return 0, err
		}

	case KindMX:
		if err := r.writeVariableRecord(buf, querytype.MX, func() error {
			if err := buf.WriteU16(r.Priority); err != nil {
				return err
			}
			return buf.WriteQName(r.MXHost)
		}); err != nil {
			return 0, err
		}

	case KindUnknown:
		return 0, nil

	default:
		return 0, fmt.Errorf("record: unrecognized record kind %d", r.Kind)
	}

	return buf.Position() - start, nil
}

// writeFixedHeader writes the common name/type/class/ttl/rdlength prefix
// for a record whose RDATA length is known up front.
func (r *Record) writeFixedHeader(buf *buffer.PacketBuffer, qtype querytype.QueryType, rdlength uint16) error {
	if err := buf.WriteQName(r.Domain); err != nil {
		return fmt.Errorf("record: write name: %w", err)
	}
	if err := buf.WriteU16(qtype.ToNum()); err != nil {
		return fmt.Errorf("record: write type: %w", err)
	}
	if err := buf.WriteU16(classIN); err != nil {
		return fmt.Errorf("record: write class: %w", err)
	}
	if err := buf.WriteU32(r.TTL); err != nil {
		return fmt.Errorf("record: write ttl: %w", err)
	}
	if err := buf.WriteU16(rdlength); err != nil {
		return fmt.Errorf("record: write rdlength: %w", err)
	}
	return nil
}

// writeVariableRecord writes the name/type/class/ttl prefix, reserves a
// 2-octet RDLENGTH slot, invokes writeRDATA to emit the RDATA, then
// back-patches the slot with the number of octets writeRDATA emitted.
func (r *Record) writeVariableRecord(buf *buffer.PacketBuffer, qtype querytype.QueryType, writeRDATA func() error) error {
	if err := buf.WriteQName(r.Domain); err != nil {
		return fmt.Errorf("record: write name: %w", err)
	}
	if err := buf.WriteU16(qtype.ToNum()); err != nil {
		return fmt.Errorf("record: write type: %w", err)
	}
	if err := buf.WriteU16(classIN); err != nil {
		return fmt.Errorf("record: write class: %w", err)
	}
	if err := buf.WriteU32(r.TTL); err != nil {
		return fmt.Errorf("record: write ttl: %w", err)
	}

	rdlengthPos := buf.Position()
	if err := buf.WriteU16(0); err != nil {
		return fmt.Errorf("record: reserve rdlength: %w", err)
	}

	rdataStart := buf.Position()
	if err := writeRDATA(); err != nil {
		return fmt.Errorf("record: write rdata: %w", err)
	}
	rdlength := buf.Position() - rdataStart

	if err := buf.SetU16(rdlengthPos, uint16(rdlength)); err != nil {
		return fmt.Errorf("record: back-patch rdlength: %w", err)
	}
	return nil
}
