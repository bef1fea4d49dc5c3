// Package observer implements the IO observer signal aggregate: positional,
// discrete IO, analog, and named-parameter signal bags that evaluate
// updates and emit immutable Records.
package observer

import (
	"log/slog"
	"sync"

	"github.com/wialon/wips-endpoint/pkg/signal"
	"github.com/wialon/wips-endpoint/pkg/wiproto"
)

// PositionalKeys is the fixed, ordered positional schema.
var PositionalKeys = []string{
	"date", "time", "lat_deg", "lat_sign", "lon_deg", "lon_sign",
	"speed", "course", "alt", "sats", "hdop", "ibutton",
}

// Record is an immutable snapshot produced by Emit.
type Record struct {
	Priority   signal.Priority
	Positional map[string]wiproto.Value
	Inputs     wiproto.Value
	Outputs    wiproto.Value
	ADC        []wiproto.Value
	Params     map[string]wiproto.Value
}

// Config seeds the observer's fixed authentication/network params.
type Config struct {
	Version  string
	IMEI     string
	Password string
	Host     string
	Port     string
}

// Observer aggregates positional, discrete, analog, and named-parameter
// signals and emits Records on firing.
type Observer struct {
	mu sync.Mutex

	positional map[string]*signal.Signal
	inputs     []*signal.Signal
	outputs    []*signal.Signal
	adc        []*signal.Signal
	params     map[string]*signal.Signal

	eventOnly []string // keys of fired event-only params since the last Emit

	logger  *slog.Logger
	OnEvent func(Record)
}

// New constructs an Observer seeded with the positional schema, the auth
// params from cfg, and the fixed SOS/text event-only params.
func New(cfg Config, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Observer{
		positional: map[string]*signal.Signal{},
		params:     map[string]*signal.Signal{},
		logger:     logger,
	}
	for _, k := range PositionalKeys {
		o.positional[k] = signal.New(signal.Monitoring, signal.Low, 0, 0, false)
	}

	auth := map[string]string{
		"ver": cfg.Version, "imei": cfg.IMEI, "password": cfg.Password,
		"host": cfg.Host, "port": cfg.Port,
	}
	for k, v := range auth {
		s := signal.New(signal.Monitoring, signal.None, 0, 0, false)
		if v != "" {
			s.Value = wiproto.StringValue(v)
		}
		o.params[k] = s
	}
	o.params["SOS"] = signal.New(signal.OnChange, signal.High, 0, 0, true)
	o.params["text"] = signal.New(signal.OnChange, signal.High, 0, 0, true)

	return o
}

// AddInput appends a new discrete input signal and returns its bit index.
func (o *Observer) AddInput(s *signal.Signal) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inputs = append(o.inputs, s)
	return len(o.inputs) - 1
}

// AddOutput appends a new discrete output signal and returns its bit index.
func (o *Observer) AddOutput(s *signal.Signal) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outputs = append(o.outputs, s)
	return len(o.outputs) - 1
}

// AddADC appends a new analog channel signal and returns its index.
func (o *Observer) AddADC(s *signal.Signal) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.adc = append(o.adc, s)
	return len(o.adc) - 1
}

// SetParam installs or replaces a named parameter signal.
func (o *Observer) SetParam(key string, s *signal.Signal) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.params[key] = s
}

// Param returns the current value of a named parameter, if configured.
func (o *Observer) Param(key string) (wiproto.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.params[key]
	if !ok {
		return wiproto.Absent, false
	}
	return s.Value, true
}

// UpdatePositionalIndex writes to the positional schema by index.
func (o *Observer) UpdatePositionalIndex(i int, v wiproto.Value) {
	if i < 0 || i >= len(PositionalKeys) {
		return
	}
	o.UpdatePositionalKey(PositionalKeys[i], v)
}

// UpdatePositionalKey writes to the positional schema by name.
func (o *Observer) UpdatePositionalKey(key string, v wiproto.Value) {
	o.mu.Lock()
	s, ok := o.positional[key]
	if !ok {
		o.mu.Unlock()
		return
	}
	fired := s.Update(v)
	priority := signal.Low
	if fired && s.Priority > priority {
		priority = s.Priority
	}
	o.mu.Unlock()
	if priority > signal.Low {
		o.Emit(priority)
	}
}

// UpdatePositionalBatch writes several positional fields at once and emits
// at most one record, at the maximum firing priority, if that maximum
// exceeds LOW.
func (o *Observer) UpdatePositionalBatch(values map[string]wiproto.Value) {
	priority := signal.Low
	o.mu.Lock()
	for key, v := range values {
		s, ok := o.positional[key]
		if !ok {
			continue
		}
		fired := s.Update(v)
		if fired && s.Priority > priority {
			priority = s.Priority
		}
	}
	o.mu.Unlock()
	if priority > signal.Low {
		o.Emit(priority)
	}
}

// UpdateInput writes an indexed discrete input; out-of-range indices are
// silently ignored.
func (o *Observer) UpdateInput(bit int, v wiproto.Value) {
	o.updateIndexed(o.inputs, bit, v)
}

// UpdateOutput writes an indexed discrete output; out-of-range indices are
// silently ignored.
func (o *Observer) UpdateOutput(bit int, v wiproto.Value) {
	o.updateIndexed(o.outputs, bit, v)
}

// UpdateADC writes an indexed analog channel; out-of-range indices are
// silently ignored.
func (o *Observer) UpdateADC(idx int, v wiproto.Value) {
	o.updateIndexed(o.adc, idx, v)
}

func (o *Observer) updateIndexed(bag []*signal.Signal, idx int, v wiproto.Value) {
	o.mu.Lock()
	if idx < 0 || idx >= len(bag) {
		o.mu.Unlock()
		return
	}
	s := bag[idx]
	fired := s.Update(v)
	priority := s.Priority
	o.mu.Unlock()
	if fired && priority > signal.Low {
		o.Emit(priority)
	}
}

// UpdateParam writes a single named parameter. NONE-priority params store
// the value without ever firing (the signal itself enforces that).
func (o *Observer) UpdateParam(key string, v wiproto.Value) {
	o.mu.Lock()
	s, ok := o.params[key]
	if !ok {
		o.mu.Unlock()
		return
	}
	fired := s.Update(v)
	if fired && s.EventOnly {
		o.eventOnly = append(o.eventOnly, key)
	}
	priority := s.Priority
	o.mu.Unlock()
	if fired && priority > signal.Low {
		o.Emit(priority)
	}
}

// UpdateParams writes a batch of named parameters, emitting at most one
// record at the maximum priority among all signals that fired.
func (o *Observer) UpdateParams(batch map[string]wiproto.Value) {
	priority := signal.None
	o.mu.Lock()
	for key, v := range batch {
		s, ok := o.params[key]
		if !ok {
			continue
		}
		fired := s.Update(v)
		if fired && s.EventOnly {
			o.eventOnly = append(o.eventOnly, key)
		}
		if fired && s.Priority > priority {
			priority = s.Priority
		}
	}
	o.mu.Unlock()
	if priority > signal.Low {
		o.Emit(priority)
	}
}

// DrainFired returns and clears the list of event-only param keys that
// fired since the previous Emit.
func (o *Observer) DrainFired() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	fired := o.eventOnly
	o.eventOnly = nil
	return fired
}

// Emit constructs a Record from current state plus any event-only params
// fired since the previous Emit, clears the event-only buffer, and
// publishes to OnEvent. At most one record is published per call.
func (o *Observer) Emit(priority signal.Priority) {
	if priority < signal.Low {
		priority = signal.Low
	}
	o.mu.Lock()

	positional := make(map[string]wiproto.Value, len(o.positional))
	for k, s := range o.positional {
		positional[k] = s.Value
	}

	var inputsVal, outputsVal wiproto.Value = wiproto.Absent, wiproto.Absent
	if len(o.inputs) > 0 {
		inputsVal = wiproto.IntValue(int64(bitmask(o.inputs)))
	}
	if len(o.outputs) > 0 {
		outputsVal = wiproto.IntValue(int64(bitmask(o.outputs)))
	}

	adc := make([]wiproto.Value, len(o.adc))
	for i, s := range o.adc {
		adc[i] = s.Value
	}

	fired := map[string]bool{}
	for _, k := range o.eventOnly {
		fired[k] = true
	}

	params := map[string]wiproto.Value{}
	for k, s := range o.params {
		if s.Priority == signal.None {
			continue
		}
		if s.EventOnly {
			if fired[k] {
				params[k] = s.Value
			}
			continue
		}
		params[k] = s.Value
	}
	o.eventOnly = nil

	rec := Record{
		Priority:   priority,
		Positional: positional,
		Inputs:     inputsVal,
		Outputs:    outputsVal,
		ADC:        adc,
		Params:     params,
	}
	cb := o.OnEvent
	o.mu.Unlock()

	o.logger.Debug("record emitted", "priority", priority.String())
	if cb != nil {
		cb(rec)
	}
}

func bitmask(signals []*signal.Signal) uint32 {
	var mask uint32
	for i, s := range signals {
		if i >= 32 {
			break
		}
		if !s.Value.IsNumeric() {
			continue
		}
		if s.Value.Float64() > 0 {
			mask |= 1 << uint(i)
		}
	}
	return mask
}
