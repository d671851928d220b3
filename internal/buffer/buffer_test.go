package buffer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadWriteU16RoundTrip(t *testing.T) {
	b := New()
	require.NoError(t, b.WriteU16(0xBEEF))
	require.NoError(t, b.Seek(0))
	got, err := b.ReadU16()
	require.NoError(t, err)
	require.EqualValues(t, 0xBEEF, got)
}

func TestReadWriteU32RoundTrip(t *testing.T) {
	b := New()
	require.NoError(t, b.WriteU32(0xDEADBEEF))
	require.NoError(t, b.Seek(0))
	got, err := b.ReadU32()
	require.NoError(t, err)
	require.EqualValues(t, 0xDEADBEEF, got)
}

func TestSetU16BackPatch(t *testing.T) {
	b := New()
	require.NoError(t, b.WriteU16(0)) // reserved slot
	require.NoError(t, b.WriteU16(0xAAAA))
	require.NoError(t, b.WriteU16(0xBBBB))
	require.NoError(t, b.SetU16(0, 2))

	require.NoError(t, b.Seek(0))
	slot, err := b.ReadU16()
	require.NoError(t, err)
	require.EqualValues(t, 2, slot)
}

func TestReadOutOfBounds(t *testing.T) {
	b := New()
	require.NoError(t, b.Seek(Size))
	_, err := b.Read()
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestGetRangeEndingAtLastOctetIsLegal(t *testing.T) {
	b := New()
	_, err := b.GetRange(Size-4, 4)
	require.NoError(t, err, "a range ending exactly at octet 511 must be accepted")
}

func TestGetRangePastEndIsOutOfBounds(t *testing.T) {
	b := New()
	_, err := b.GetRange(Size-3, 4)
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestWriteQNameRejectsOversizedLabel(t *testing.T) {
	b := New()
	err := b.WriteQName(strings.Repeat("a", 64) + ".example.com")
	require.ErrorIs(t, err, ErrMalformedLabel)
}

func TestWriteQNameAcceptsMaxLengthLabel(t *testing.T) {
	b := New()
	err := b.WriteQName(strings.Repeat("a", 63) + ".example.com")
	require.NoError(t, err)
}

func TestQNameRoundTripLowercases(t *testing.T) {
	b := New()
	require.NoError(t, b.WriteQName("WWW.Example.COM"))
	require.NoError(t, b.Seek(0))

	var out strings.Builder
	require.NoError(t, b.ReadQName(&out))
	require.Equal(t, "www.example.com", out.String())
}

// TestQNameCompressionPointer builds two questions back to back where the
// second name is a bare pointer to the first, matching S4.
func TestQNameCompressionPointer(t *testing.T) {
	b := New()

	firstNamePos := b.Position()
	require.NoError(t, b.WriteQName("example.com"))

	secondNamePos := b.Position()
	require.NoError(t, b.WriteU16(uint16(0xC000|firstNamePos)))

	require.NoError(t, b.Seek(firstNamePos))
	var firstOut strings.Builder
	require.NoError(t, b.ReadQName(&firstOut))

	require.NoError(t, b.Seek(secondNamePos))
	var secondOut strings.Builder
	require.NoError(t, b.ReadQName(&secondOut))

	require.Equal(t, firstOut.String(), secondOut.String())
	require.Equal(t, "example.com", secondOut.String())
}

// TestQNameSelfPointerFailsWithTooManyJumps covers S5: a name whose
// pointer targets its own position must not loop or hang.
func TestQNameSelfPointerFailsWithTooManyJumps(t *testing.T) {
	b := New()
	pos := b.Position()
	require.NoError(t, b.WriteU16(uint16(0xC000|pos)))
	require.NoError(t, b.Seek(pos))

	var out strings.Builder
	err := b.ReadQName(&out)
	require.ErrorIs(t, err, ErrTooManyJumps)
}

// TestQNameLongPointerChainFailsWithTooManyJumps covers a chain of six
// pointers, one more than the five-jump cap.
func TestQNameLongPointerChainFailsWithTooManyJumps(t *testing.T) {
	b := New()

	var positions []int
	positions = append(positions, b.Position())
	require.NoError(t, b.WriteQName("end")) // terminal name at positions[0]

	for i := 0; i < 6; i++ {
		positions = append(positions, b.Position())
		target := positions[len(positions)-2]
		require.NoError(t, b.WriteU16(uint16(0xC000|target)))
	}

	outermost := positions[len(positions)-1]
	require.NoError(t, b.Seek(outermost))
	var out strings.Builder
	err := b.ReadQName(&out)
	require.ErrorIs(t, err, ErrTooManyJumps)
}

func TestSeekRejectsOutOfRange(t *testing.T) {
	b := New()
	require.ErrorIs(t, b.Seek(-1), ErrOutOfBounds)
	require.ErrorIs(t, b.Seek(Size+1), ErrOutOfBounds)
	require.NoError(t, b.Seek(Size))
}
