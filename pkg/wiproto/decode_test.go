package wiproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCrcMismatch(t *testing.T) {
	_, err := Decode([]byte("#L#2.0;wips;wips;DEAD\r\n"))
	assert.ErrorIs(t, err, ErrCrcMismatch)
}

func TestDecodeAcceptsFrameWithoutCRC(t *testing.T) {
	// Protocol v1 frames may omit the ;CRCHEX suffix; ingress must accept
	// both shapes.
	pkt, err := Decode([]byte("#L#1.1;wips;wips;\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "1.1", pkt.ProtocolVersion)
	assert.Equal(t, "wips", pkt.IMEI)
}

func TestDecodeNonASCIIRejected(t *testing.T) {
	_, err := Decode([]byte("#L#2.0;w\xffps;wips;\r\n"))
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecodeMissingTerminator(t *testing.T) {
	_, err := Decode([]byte("#P#"))
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecodeUnknownTypeIsNotAnError(t *testing.T) {
	pkt, err := Decode([]byte("#ZZ#whatever;\r\n"))
	require.NoError(t, err)
	assert.Equal(t, PacketUnknown, pkt.Type)
}

func TestDecodeOpaqueChannelsRecognized(t *testing.T) {
	for _, raw := range []string{"#QLV#cam1;\r\n", "#QT#blob;\r\n", "#M#hello driver;\r\n", "#US#fw.bin;\r\n"} {
		pkt, err := Decode([]byte(raw))
		require.NoError(t, err)
		assert.True(t, pkt.Type.IsOpaque(), raw)
		assert.Equal(t, []byte(raw), pkt.Raw)
	}
}

func TestDecodeAckSubcode(t *testing.T) {
	pkt, err := Decode([]byte("#AD#15.1\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "15", pkt.Code)
	assert.Equal(t, "1", pkt.Subcode)

	// AP with and without a body are both legal on ingress.
	pkt, err = Decode([]byte("#AP#\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "", pkt.Code)
	pkt, err = Decode([]byte("#AP#0\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "0", pkt.Code)
}

func TestPeekTypeRecoversTypeFromBadFrame(t *testing.T) {
	typ, ok := PeekType([]byte("#D#garbage;with;bad;crc;FFFF\r\n"))
	assert.True(t, ok)
	assert.Equal(t, PacketData, typ)

	_, ok = PeekType([]byte("no frame here"))
	assert.False(t, ok)
}
