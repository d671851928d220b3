package header

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arwynfr/dnsfwd/internal/buffer"
)

func TestHeaderRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		fill func(h *Header)
	}{
		{"query", func(h *Header) {
			h.ID = 0x1234
			h.SetRD(true)
		}},
		{"full-response", func(h *Header) {
			h.ID = 0xFFFF
			h.SetQRFlag(true)
			h.SetOpcode(Status)
			h.SetAA(true)
			h.SetTC(true)
			h.SetRD(true)
			h.SetRA(true)
			h.SetZ(true)
			h.SetAD(true)
			h.SetCD(true)
			h.SetRCODE(ServerFailure)
			h.QDCOUNT = 1
			h.ANCOUNT = 3
			h.NSCOUNT = 0
			h.ARCOUNT = 2
		}},
		{"zero-value", func(h *Header) {}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &Header{}
			tc.fill(h)

			buf := buffer.New()
			require.NoError(t, h.WriteTo(buf))
			require.Equal(t, 12, buf.Position())

			require.NoError(t, buf.Seek(0))
			got, err := ReadFrom(buf)
			require.NoError(t, err)
			require.Equal(t, h, got)
		})
	}
}

func TestFlagBitPositions(t *testing.T) {
	h := &Header{}
	h.SetRD(true)
	require.Equal(t, byte(0b0000_0001), h.Flags[0])

	h = &Header{}
	h.SetTC(true)
	require.Equal(t, byte(0b0000_0010), h.Flags[0])

	h = &Header{}
	h.SetAA(true)
	require.Equal(t, byte(0b0000_0100), h.Flags[0])

	h = &Header{}
	h.SetOpcode(Status)
	require.Equal(t, byte(Status)<<3, h.Flags[0])

	h = &Header{}
	h.SetQRFlag(true)
	require.Equal(t, byte(0b1000_0000), h.Flags[0])

	h = &Header{}
	h.SetRCODE(ServerFailure)
	require.Equal(t, byte(ServerFailure), h.Flags[1])

	h = &Header{}
	h.SetCD(true)
	require.Equal(t, byte(0b0001_0000), h.Flags[1])

	h = &Header{}
	h.SetAD(true)
	require.Equal(t, byte(0b0010_0000), h.Flags[1])

	h = &Header{}
	h.SetZ(true)
	require.Equal(t, byte(0b0100_0000), h.Flags[1])

	h = &Header{}
	h.SetRA(true)
	require.Equal(t, byte(0b1000_0000), h.Flags[1])
}

func TestGetRCODENormalizesReservedCodes(t *testing.T) {
	h := &Header{}
	h.Flags[1] = 0b0000_1111 // raw rcode 15, outside the six enumerated codes
	require.Equal(t, NoError, h.GetRCODE())
}

func TestReadFromRejectsReadPastBufferEnd(t *testing.T) {
	buf := buffer.New()
	require.NoError(t, buf.Seek(buffer.Size-4)) // fewer than 12 octets remain

	_, err := ReadFrom(buf)
	require.Error(t, err)
}
