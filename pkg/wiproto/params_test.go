package wiproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParamsLiftsSOS(t *testing.T) {
	params, _, sos := ParseParams("SOS:1:1,a:1:5")
	assert.True(t, sos)
	_, present := params["SOS"]
	assert.False(t, present)
	assert.Equal(t, IntValue(5), params["a"])
}

func TestParseParamsSOSZeroIsNotAlarm(t *testing.T) {
	_, _, sos := ParseParams("SOS:1:0")
	assert.False(t, sos)
}

func TestParseParamsLiftsLBS(t *testing.T) {
	params, lbs, _ := ParseParams("mcc:1:255,mnc:1:2,lac:1:10011,cell_id:1:2233,mcc1:1:256,plain:3:x")
	require.Len(t, lbs.MCC, 2)
	assert.Equal(t, IntValue(255), lbs.MCC[0])
	assert.Equal(t, IntValue(256), lbs.MCC[1])
	assert.Equal(t, IntValue(2), lbs.MNC[0])
	assert.Equal(t, IntValue(10011), lbs.LAC[0])
	assert.Equal(t, IntValue(2233), lbs.CellID[0])
	_, present := params["mcc"]
	assert.False(t, present)
	assert.Equal(t, StringValue("x"), params["plain"])
}

func TestParamsTypeTags(t *testing.T) {
	params, _, _ := ParseParams("i:1:42,r:2:3.5,s:3:hello,na:1:NA")
	assert.Equal(t, IntValue(42), params["i"])
	assert.Equal(t, RealValue(3.5), params["r"])
	assert.Equal(t, StringValue("hello"), params["s"])
	assert.True(t, params["na"].IsAbsent())
}

func TestEncodeParamsRoundTrip(t *testing.T) {
	in := map[string]Value{
		"battery": RealValue(100),
		"param1":  StringValue("5s"),
		"count":   IntValue(7),
	}
	out, _, _ := ParseParams(EncodeParams(in))
	assert.Equal(t, in, out)
}

func TestADCAlwaysReal(t *testing.T) {
	adc := ParseADC("5,0")
	require.Len(t, adc, 2)
	assert.Equal(t, RealValue(5), adc[0])
	assert.Equal(t, RealValue(0), adc[1])

	assert.Nil(t, ParseADC("NA"))
	assert.Equal(t, "NA", EncodeADC(nil))
}
