// Package signal implements per-signal event evaluation: a Signal is an
// atomic state cell that decides, on each update, whether the new value
// should produce an event, based on its operand and threshold band.
package signal

import "github.com/wialon/wips-endpoint/pkg/wiproto"

// Priority is the totally ordered event priority. NONE disables a signal.
type Priority int

const (
	None Priority = iota
	Low
	High
	Panic
)

func (p Priority) String() string {
	switch p {
	case None:
		return "NONE"
	case Low:
		return "LOW"
	case High:
		return "HIGH"
	case Panic:
		return "PANIC"
	default:
		return "UNKNOWN"
	}
}

// Operand is the evaluation rule a Signal applies when updated.
type Operand int

const (
	OnExit Operand = iota
	OnEntrance
	OnBoth
	Monitoring
	OnHysteresis
	OnChange
	OnDeltaChange
)

type hysteresisSide int

const (
	sideNone hysteresisSide = iota
	sideAbove
	sideBelow
)

// Signal is a single named/indexed state cell: current value, threshold
// band, operand, priority, and the event-only flag.
type Signal struct {
	Value      wiproto.Value
	Lo         float64
	Hi         float64
	Operand    Operand
	Priority   Priority
	EventOnly  bool
	hysteresis hysteresisSide
}

// New constructs a Signal with the given operand/priority and an absent
// initial value.
func New(operand Operand, priority Priority, lo, hi float64, eventOnly bool) *Signal {
	return &Signal{
		Value:     wiproto.Absent,
		Lo:        lo,
		Hi:        hi,
		Operand:   operand,
		Priority:  priority,
		EventOnly: eventOnly,
	}
}

// Update applies newValue and reports whether it fires an event. The new
// value is always stored (OnDeltaChange being the one exception below);
// non-numeric values simply bypass the threshold operands' evaluation
// rather than aborting the store.
func (s *Signal) Update(newValue wiproto.Value) bool {
	if s.Priority == None {
		s.Value = newValue
		return false
	}
	prev := s.Value
	if valuesEqual(prev, newValue) {
		return false
	}
	s.Value = newValue

	switch s.Operand {
	case Monitoring:
		return false
	case OnChange:
		return true
	}

	if !newValue.IsNumeric() || !prev.IsNumeric() {
		return false
	}

	p, v := prev.Float64(), newValue.Float64()
	lo, hi := s.Lo, s.Hi

	switch s.Operand {
	case OnExit:
		return inBand(p, lo, hi) && !inBand(v, lo, hi)
	case OnEntrance:
		return inOpenBand(v, lo, hi) && !inOpenBand(p, lo, hi)
	case OnBoth:
		isExit := inBand(p, lo, hi) && !inBand(v, lo, hi)
		isEntrance := inOpenBand(v, lo, hi) && !inOpenBand(p, lo, hi)
		return isExit || isEntrance
	case OnHysteresis:
		return s.updateHysteresis(p, v, lo, hi)
	case OnDeltaChange:
		if absFloat(p-v) >= hi {
			return true
		}
		// Revert to the original baseline so later updates accumulate
		// against it.
		s.Value = prev
		return false
	}
	return false
}

// updateHysteresis fires on leaving the [lo,hi] band, then suppresses
// further fires on the same side until the band is re-entered and left
// again.
func (s *Signal) updateHysteresis(prev, v, lo, hi float64) bool {
	if inBand(v, lo, hi) {
		s.hysteresis = sideNone
		return false
	}
	side := sideAbove
	if v < lo {
		side = sideBelow
	}
	wasInBand := inBand(prev, lo, hi)
	if wasInBand || s.hysteresis != side {
		s.hysteresis = side
		return true
	}
	return false
}

func inBand(v, lo, hi float64) bool     { return v >= lo && v <= hi }
func inOpenBand(v, lo, hi float64) bool { return v > lo && v < hi }

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func valuesEqual(a, b wiproto.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case wiproto.KindAbsent:
		return true
	case wiproto.KindInt:
		return a.Int == b.Int
	case wiproto.KindReal:
		return a.Real == b.Real
	default:
		return a.Str == b.Str
	}
}
