package wiproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCrcMatchesEmittedHex checks that the CRC over body + trailing ';'
// equals the emitted CRC hex.
func TestCrcMatchesEmittedHex(t *testing.T) {
	frame := EncodeLogin("2.0", "wips", "wips")
	assert.Equal(t, "#L#2.0;wips;wips;1C7C\r\n", string(frame))
}

// TestDecodeLoginRoundTrip checks decode(encode(F)) == F for login frames.
func TestDecodeLoginRoundTrip(t *testing.T) {
	frame := EncodeLogin("2.0", "123456789012345", "secret")
	pkt, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, "2.0", pkt.ProtocolVersion)
	assert.Equal(t, "123456789012345", pkt.IMEI)
	assert.Equal(t, "secret", pkt.Password)

	re := EncodeLogin(pkt.ProtocolVersion, pkt.IMEI, pkt.Password)
	assert.Equal(t, frame, re)
}

// TestDecodeExtendedDataFrame decodes a captured D frame (no CRC present
// on the wire) and checks every parsed field.
func TestDecodeExtendedDataFrame(t *testing.T) {
	raw := []byte("#D#210225;095553;5355.09260;N;02732.40990;E;0;0;300;7;1;2;18432;5,0;NA;a:1:5,b:3:NA\r\n")
	pkt, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, StringValue("210225"), pkt.Date)
	assert.Equal(t, StringValue("095553"), pkt.Time)
	assert.Equal(t, IntValue(0), pkt.Speed)
	assert.Equal(t, IntValue(0), pkt.Course)
	assert.Equal(t, IntValue(300), pkt.Alt)
	assert.Equal(t, IntValue(7), pkt.Sats)
	assert.Equal(t, IntValue(1), pkt.HDOP)
	assert.Equal(t, IntValue(2), pkt.Inputs)
	assert.Equal(t, IntValue(18432), pkt.Outputs)
	require.Len(t, pkt.ADC, 2)
	assert.Equal(t, RealValue(5), pkt.ADC[0])
	assert.Equal(t, RealValue(0), pkt.ADC[1])
	assert.True(t, pkt.IButton.IsAbsent())
	assert.Equal(t, IntValue(5), pkt.Params["a"])
	assert.True(t, pkt.Params["b"].IsAbsent())

	lat, err := DDMMToDecimal(pkt.LatDeg.Str, pkt.LatSign.Str, true)
	require.NoError(t, err)
	assert.InDelta(t, 53.9182, lat, 1e-3)

	lon, err := DDMMToDecimal(pkt.LonDeg.Str, pkt.LonSign.Str, false)
	require.NoError(t, err)
	assert.InDelta(t, 27.5402, lon, 1e-3)
}

// TestDDMMDecimalRoundTrip checks ddmm(dec(x)) == x up to the wire's
// six-fraction-digit precision, with sign preserved under negation.
func TestDDMMDecimalRoundTrip(t *testing.T) {
	cases := []struct {
		decimal    float64
		isLatitude bool
	}{
		{53.918210, true},
		{-53.918210, true},
		{27.540200, false},
		{-27.540200, false},
		{0, true},
	}
	for _, c := range cases {
		value, sign := DecimalToDDMM(c.decimal, c.isLatitude)
		got, err := DDMMToDecimal(value, sign, c.isLatitude)
		require.NoError(t, err)
		assert.InDelta(t, c.decimal, got, 1e-6)
		if c.decimal < 0 {
			if c.isLatitude {
				assert.Equal(t, "S", sign)
			} else {
				assert.Equal(t, "W", sign)
			}
		}
	}
}

// TestBlackboxEncodeDecodeRoundTrip exercises a B frame with two D-shaped
// sub-bodies.
func TestBlackboxEncodeDecodeRoundTrip(t *testing.T) {
	batch := []ExtendedData{
		{
			ShortData: ShortData{
				Date: StringValue("010124"), Time: StringValue("120000"),
				LatDeg: StringValue("5355.00000"), LatSign: StringValue("N"),
				LonDeg: StringValue("02732.00000"), LonSign: StringValue("E"),
				Speed: IntValue(10), Course: IntValue(90), Alt: IntValue(100), Sats: IntValue(8),
			},
			HDOP: IntValue(1), Inputs: IntValue(0), Outputs: IntValue(0),
			ADC: []Value{RealValue(3.3)}, IButton: Absent, Params: map[string]Value{},
		},
		{
			ShortData: ShortData{
				Date: StringValue("010124"), Time: StringValue("120010"),
				LatDeg: StringValue("5355.00100"), LatSign: StringValue("N"),
				LonDeg: StringValue("02732.00100"), LonSign: StringValue("E"),
				Speed: IntValue(12), Course: IntValue(91), Alt: IntValue(101), Sats: IntValue(9),
			},
			HDOP: IntValue(1), Inputs: IntValue(1), Outputs: IntValue(0),
			ADC: []Value{RealValue(3.4)}, IButton: Absent, Params: map[string]Value{},
		},
	}
	frame := EncodeBlackbox(batch)
	pkt, err := Decode(frame)
	require.NoError(t, err)
	require.Len(t, pkt.Batch, 2)
	assert.Equal(t, IntValue(10), pkt.Batch[0].Speed)
	assert.Equal(t, IntValue(12), pkt.Batch[1].Speed)
}

func TestEncodePingBare(t *testing.T) {
	assert.Equal(t, "#P#\r\n", string(EncodePing()))
	pkt, err := Decode(EncodePing())
	require.NoError(t, err)
	assert.Equal(t, PacketPing, pkt.Type)
}

func TestEncodeAckCarriesNoCRCOrTrailingSemicolon(t *testing.T) {
	assert.Equal(t, "#AL#1\r\n", string(EncodeAck(PacketLoginAck, "1", "")))
	assert.Equal(t, "#AD#1\r\n", string(EncodeAck(PacketDataAck, "1", "")))
	assert.Equal(t, "#AP#\r\n", string(EncodeAck(PacketPingAck, "", "")))
	assert.Equal(t, "#AL#15.1\r\n", string(EncodeAck(PacketLoginAck, "15", "1")))
}
