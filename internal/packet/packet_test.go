package packet

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arwynfr/dnsfwd/internal/buffer"
	"github.com/arwynfr/dnsfwd/internal/header"
	"github.com/arwynfr/dnsfwd/internal/question"
	"github.com/arwynfr/dnsfwd/internal/record"
	"github.com/arwynfr/dnsfwd/internal/querytype"
)

func TestWriteSetsHeaderCountsFromSectionLengths(t *testing.T) {
	p := New()
	p.Header.ID = 42
	p.Questions = []*question.Question{{Name: "example.com", Type: querytype.A}}
	p.Answers = []*record.Record{
		{Kind: record.KindA, Domain: "example.com", TTL: 60, IP: net.IPv4(1, 2, 3, 4)},
		{Kind: record.KindA, Domain: "example.com", TTL: 60, IP: net.IPv4(5, 6, 7, 8)},
	}
	p.Authorities = nil
	p.Additionals = []*record.Record{
		{Kind: record.KindNS, Domain: "example.com", TTL: 60, Host: "ns1.example.com"},
	}

	buf := buffer.New()
	require.NoError(t, p.Write(buf))

	require.EqualValues(t, len(p.Questions), p.Header.QDCOUNT)
	require.EqualValues(t, len(p.Answers), p.Header.ANCOUNT)
	require.EqualValues(t, len(p.Authorities), p.Header.NSCOUNT)
	require.EqualValues(t, len(p.Additionals), p.Header.ARCOUNT)
}

func TestFromBufferRoundTrip(t *testing.T) {
	p := New()
	p.Header.ID = 0xABCD
	p.Header.SetQRFlag(true)
	p.Header.SetRCODE(header.NoError)
	p.Questions = []*question.Question{{Name: "example.com", Type: querytype.A}}
	p.Answers = []*record.Record{
		{Kind: record.KindA, Domain: "example.com", TTL: 300, IP: net.IPv4(93, 184, 216, 34)},
	}

	buf := buffer.New()
	require.NoError(t, p.Write(buf))

	require.NoError(t, buf.Seek(0))
	got, err := FromBuffer(buf)
	require.NoError(t, err)

	require.Equal(t, p.Header.ID, got.Header.ID)
	require.Len(t, got.Questions, 1)
	require.Equal(t, "example.com", got.Questions[0].Name)
	require.Len(t, got.Answers, 1)
	require.Equal(t, record.KindA, got.Answers[0].Kind)
	require.True(t, p.Answers[0].IP.Equal(got.Answers[0].IP))
}

func TestFromBufferEmptyPacket(t *testing.T) {
	p := New()
	p.Header.ID = 7

	buf := buffer.New()
	require.NoError(t, p.Write(buf))

	require.NoError(t, buf.Seek(0))
	got, err := FromBuffer(buf)
	require.NoError(t, err)
	require.Empty(t, got.Questions)
	require.Empty(t, got.Answers)
	require.Empty(t, got.Authorities)
	require.Empty(t, got.Additionals)
}
