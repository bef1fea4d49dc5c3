package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wialon/wips-endpoint/pkg/wiproto"
)

func TestDeltaChangeRevertsBelowThreshold(t *testing.T) {
	s := New(OnDeltaChange, High, 0, 10, false)
	s.Value = wiproto.IntValue(100)

	fired := s.Update(wiproto.IntValue(105))
	assert.False(t, fired)
	assert.EqualValues(t, 100, s.Value.Int)

	fired = s.Update(wiproto.IntValue(111))
	assert.True(t, fired)
	assert.EqualValues(t, 111, s.Value.Int)
}

func TestOnChangeAlwaysFires(t *testing.T) {
	s := New(OnChange, High, 0, 0, true)
	assert.True(t, s.Update(wiproto.IntValue(1)))
	assert.False(t, s.Update(wiproto.IntValue(1)))
	assert.True(t, s.Update(wiproto.IntValue(0)))
}

func TestMonitoringNeverFires(t *testing.T) {
	s := New(Monitoring, Low, 0, 100, false)
	assert.False(t, s.Update(wiproto.IntValue(1)))
	assert.False(t, s.Update(wiproto.IntValue(2)))
}

func TestNonePriorityInert(t *testing.T) {
	s := New(OnChange, None, 0, 0, false)
	assert.False(t, s.Update(wiproto.IntValue(1)))
	assert.EqualValues(t, 1, s.Value.Int)
}

func TestOnExitOnEntranceOnBoth(t *testing.T) {
	exit := New(OnExit, High, 0, 10, false)
	exit.Value = wiproto.IntValue(5)
	assert.True(t, exit.Update(wiproto.IntValue(11)))

	entrance := New(OnEntrance, High, 0, 10, false)
	entrance.Value = wiproto.IntValue(-1)
	assert.True(t, entrance.Update(wiproto.IntValue(5)))

	both := New(OnBoth, High, 0, 10, false)
	both.Value = wiproto.IntValue(5)
	assert.True(t, both.Update(wiproto.IntValue(20)))
	assert.True(t, both.Update(wiproto.IntValue(5)))
}

func TestNonNumericBypassesThresholdOperands(t *testing.T) {
	s := New(OnExit, High, 0, 10, false)
	s.Value = wiproto.IntValue(5)
	fired := s.Update(wiproto.StringValue("unavailable"))
	assert.False(t, fired)
	assert.Equal(t, "unavailable", s.Value.Str)
}

func TestHysteresisSuppressesRepeatFireSameSide(t *testing.T) {
	s := New(OnHysteresis, High, 0, 10, false)
	s.Value = wiproto.IntValue(5)

	assert.True(t, s.Update(wiproto.IntValue(15)))  // leaves band above: fires
	assert.False(t, s.Update(wiproto.IntValue(20))) // still above: suppressed
	assert.False(t, s.Update(wiproto.IntValue(25))) // still above: suppressed
	assert.False(t, s.Update(wiproto.IntValue(3)))  // re-enters band: resets, no fire
	assert.True(t, s.Update(wiproto.IntValue(-5)))  // leaves band below: fires again
}
