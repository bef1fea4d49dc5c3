package observer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wialon/wips-endpoint/pkg/signal"
	"github.com/wialon/wips-endpoint/pkg/wiproto"
)

func TestEventOnlySignalEmitsOnceThenDrops(t *testing.T) {
	o := New(Config{Version: "2.0", IMEI: "wips", Password: "wips"}, nil)

	var records []Record
	o.OnEvent = func(r Record) { records = append(records, r) }

	o.UpdateParam("SOS", wiproto.IntValue(1))
	assert.Len(t, records, 1)
	assert.Equal(t, signal.High, records[0].Priority)
	assert.EqualValues(t, 1, records[0].Params["SOS"].Int)

	o.Emit(signal.Low)
	assert.Len(t, records, 2)
	_, present := records[1].Params["SOS"]
	assert.False(t, present)
}

func TestUpdateParamsAggregatesMaxPriority(t *testing.T) {
	o := New(Config{}, nil)
	o.SetParam("param1", signal.New(signal.OnChange, signal.Low, 0, 0, false))

	var records []Record
	o.OnEvent = func(r Record) { records = append(records, r) }

	o.UpdateParams(map[string]wiproto.Value{
		"SOS":    wiproto.IntValue(1),
		"param1": wiproto.IntValue(5),
	})
	assert.Len(t, records, 1)
	assert.Equal(t, signal.High, records[0].Priority)
}

func TestDiscreteIOBitmask(t *testing.T) {
	o := New(Config{}, nil)
	for i := 0; i < 3; i++ {
		o.AddInput(signal.New(signal.Monitoring, signal.Low, 0, 0, false))
	}
	o.UpdateInput(0, wiproto.IntValue(1))
	o.UpdateInput(2, wiproto.IntValue(1))

	var rec Record
	o.OnEvent = func(r Record) { rec = r }
	o.Emit(signal.Low)
	assert.EqualValues(t, 5, rec.Inputs.Int)
}

func TestNonePriorityParamStoredButNeverEmitted(t *testing.T) {
	o := New(Config{Host: "193.193.165.165"}, nil)

	var records []Record
	o.OnEvent = func(r Record) { records = append(records, r) }

	// Auth params are NONE-priority: inert, but the value must still stick.
	o.UpdateParam("host", wiproto.StringValue("10.0.0.1"))
	assert.Empty(t, records)
	v, ok := o.Param("host")
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.1", v.Str)

	o.Emit(signal.Low)
	_, present := records[0].Params["host"]
	assert.False(t, present)
}

func TestEmitSnapshotsAllBags(t *testing.T) {
	o := New(Config{}, nil)
	o.AddInput(signal.New(signal.Monitoring, signal.Low, 0, 0, false))
	o.AddADC(signal.New(signal.Monitoring, signal.Low, 0, 0, false))
	o.SetParam("battery", signal.New(signal.Monitoring, signal.Low, 0, 0, false))

	o.UpdateInput(0, wiproto.IntValue(1))
	o.UpdateADC(0, wiproto.RealValue(3.3))
	o.UpdateParam("battery", wiproto.RealValue(95))
	o.UpdatePositionalKey("sats", wiproto.IntValue(7))

	var rec Record
	o.OnEvent = func(r Record) { rec = r }
	o.Emit(signal.Low)

	assert.Equal(t, signal.Low, rec.Priority)
	assert.EqualValues(t, 1, rec.Inputs.Int)
	assert.True(t, rec.Outputs.IsAbsent()) // no outputs configured
	assert.Equal(t, wiproto.RealValue(3.3), rec.ADC[0])
	assert.Equal(t, wiproto.RealValue(95), rec.Params["battery"])
	assert.Equal(t, wiproto.IntValue(7), rec.Positional["sats"])
}

func TestDrainFiredClearsBuffer(t *testing.T) {
	o := New(Config{}, nil)
	o.OnEvent = func(Record) {}
	o.UpdateParam("SOS", wiproto.IntValue(1))
	// The HIGH firing already emitted, which drains the buffer.
	assert.Empty(t, o.DrainFired())

	o.params["SOS"].Priority = signal.Low
	o.UpdateParam("SOS", wiproto.IntValue(0))
	assert.Equal(t, []string{"SOS"}, o.DrainFired())
	assert.Empty(t, o.DrainFired())
}

func TestOutOfRangeIndexIgnored(t *testing.T) {
	o := New(Config{}, nil)
	assert.NotPanics(t, func() {
		o.UpdateInput(5, wiproto.IntValue(1))
		o.UpdateADC(3, wiproto.RealValue(1.5))
	})
}
