package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeSummaryLayout(t *testing.T) {
	b := Encode(Summary(12345, 67890))

	require.Equal(t, byte('@'), b[0])
	require.Equal(t, []byte{0x00, 0x00, 0x30, 0x39}, b[1:5])
	require.Equal(t, []byte{0x00, 0x01, 0x09, 0x32}, b[5:9])
	require.Equal(t, byte(0x06), b[Size-1])
}

func TestEncodePaymentLayout(t *testing.T) {
	var corr [36]byte
	copy(corr[:], "4a7b1e2c-3d4f-5e6a-7b8c-9d0e1f2a3b4c")

	b := Encode(Payment(1990, corr))

	require.Equal(t, byte('$'), b[0])
	require.Equal(t, corr[:], b[9:45])
	require.Equal(t, byte(0x06), b[Size-1])
}

func TestEncodeAckIsAllHandshakeBytes(t *testing.T) {
	b := Encode(Ack())
	for i, v := range b {
		require.Equalf(t, byte(0x06), v, "byte %d", i)
	}
}

func TestRoundTrip(t *testing.T) {
	var corr [36]byte
	copy(corr[:], "test-correlation-id-0000000000000000")

	cases := []Message{
		Summary(12345, 67890),
		Payment(54321, corr),
		Ack(),
	}

	for _, m := range cases {
		wire := Encode(m)
		decoded, err := Decode(wire[:])
		require.NoError(t, err)
		require.Equal(t, m, decoded)
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(nil)
	require.ErrorIs(t, err, ErrEmptyInput)

	_, err = Decode([]byte{'@', 1, 2, 3})
	require.ErrorIs(t, err, ErrWrongSize)

	_, err = Decode([]byte{'$', 1, 2, 3})
	require.ErrorIs(t, err, ErrWrongSize)

	bad := make([]byte, Size)
	bad[0] = 'X'
	_, err = Decode(bad)
	require.ErrorIs(t, err, ErrUnknownMarker)
}

func TestDecodeAckIgnoresTrailingBytes(t *testing.T) {
	// The handshake frame is recognized from byte 0 alone; any length
	// and any trailing content decodes to Ack.
	m, err := Decode([]byte{0x06, 'x', 'y'})
	require.NoError(t, err)
	require.Equal(t, Ack(), m)

	m, err = Decode([]byte{0x06})
	require.NoError(t, err)
	require.Equal(t, Ack(), m)
}
