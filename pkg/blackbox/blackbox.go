// Package blackbox implements the durable max-priority queue of Records:
// push/peek/confirm with an atomic on-disk mirror, ordered by priority
// descending then enqueue timestamp ascending.
package blackbox

import (
	"container/heap"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wialon/wips-endpoint/pkg/observer"
	"github.com/wialon/wips-endpoint/pkg/signal"
	"github.com/wialon/wips-endpoint/pkg/wiproto"
)

// DefaultTimeout is the write loop's idle sleep between BlackBox drains.
const DefaultTimeout = 10 * time.Second

// DefaultFile is the default on-disk mirror path.
const DefaultFile = "blackbox_heap.json"

// ErrStorage wraps disk mirror failures. The in-memory queue stays
// authoritative when one occurs; the next mutation retries the write.
var ErrStorage = errors.New("blackbox: storage")

// entry is one heap element: the record plus its enqueue timestamp.
type entry struct {
	Priority  signal.Priority `json:"priority"`
	Timestamp int64           `json:"timestamp"`
	Record    diskRecord      `json:"record"`
}

// diskRecord is the JSON-friendly mirror of observer.Record (wiproto.Value
// does not serialize cleanly through its tagged-union fields, so it is
// flattened to plain JSON types on disk).
type diskRecord struct {
	Positional map[string]diskValue `json:"positional"`
	Inputs     diskValue            `json:"inputs"`
	Outputs    diskValue            `json:"outputs"`
	ADC        []diskValue          `json:"adc"`
	Params     map[string]diskValue `json:"params"`
}

type diskValue struct {
	Kind int     `json:"kind"`
	Int  int64   `json:"int,omitempty"`
	Real float64 `json:"real,omitempty"`
	Str  string  `json:"str,omitempty"`
}

func toDiskValue(v wiproto.Value) diskValue {
	return diskValue{Kind: int(v.Kind), Int: v.Int, Real: v.Real, Str: v.Str}
}

func fromDiskValue(d diskValue) wiproto.Value {
	return wiproto.Value{Kind: wiproto.ValueKind(d.Kind), Int: d.Int, Real: d.Real, Str: d.Str}
}

func toDiskRecord(r observer.Record) diskRecord {
	d := diskRecord{
		Positional: map[string]diskValue{},
		Inputs:     toDiskValue(r.Inputs),
		Outputs:    toDiskValue(r.Outputs),
		Params:     map[string]diskValue{},
	}
	for k, v := range r.Positional {
		d.Positional[k] = toDiskValue(v)
	}
	for k, v := range r.Params {
		d.Params[k] = toDiskValue(v)
	}
	for _, v := range r.ADC {
		d.ADC = append(d.ADC, toDiskValue(v))
	}
	return d
}

func fromDiskRecord(d diskRecord) observer.Record {
	r := observer.Record{
		Positional: map[string]wiproto.Value{},
		Inputs:     fromDiskValue(d.Inputs),
		Outputs:    fromDiskValue(d.Outputs),
		Params:     map[string]wiproto.Value{},
	}
	for k, v := range d.Positional {
		r.Positional[k] = fromDiskValue(v)
	}
	for k, v := range d.Params {
		r.Params[k] = fromDiskValue(v)
	}
	for _, v := range d.ADC {
		r.ADC = append(r.ADC, fromDiskValue(v))
	}
	return r
}

// priorityHeap orders entries by priority descending, then timestamp
// ascending, implementing container/heap.Interface.
type priorityHeap []*entry

func (h priorityHeap) Len() int { return len(h) }
func (h priorityHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].Timestamp < h[j].Timestamp
}
func (h priorityHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *priorityHeap) Push(x any)   { *h = append(*h, x.(*entry)) }
func (h *priorityHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// BlackBox is a durable priority queue of observer.Record, ordered by
// priority descending then enqueue timestamp ascending.
type BlackBox struct {
	mu      sync.Mutex
	heap    priorityHeap
	path    string
	Timeout time.Duration

	// now is overridable for deterministic tests; defaults to
	// time.Now().Unix().
	now func() int64
}

// New constructs a BlackBox mirrored to path, loading any existing state.
// An unreadable or absent file starts empty rather than erroring.
func New(path string) *BlackBox {
	if path == "" {
		path = DefaultFile
	}
	b := &BlackBox{
		path:    path,
		Timeout: DefaultTimeout,
		now:     func() int64 { return time.Now().Unix() },
	}
	b.load()
	return b
}

// Push assigns the enqueue timestamp, inserts rec into the heap, and
// mirrors the queue to disk.
func (b *BlackBox) Push(rec observer.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	heap.Push(&b.heap, &entry{
		Priority:  rec.Priority,
		Timestamp: b.now(),
		Record:    toDiskRecord(rec),
	})
	return b.saveLocked()
}

// Peek returns up to n records with the highest priority (oldest first
// among ties), without removing them.
func (b *BlackBox) Peek(n int) []observer.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	ordered := b.orderedLocked()
	if n > len(ordered) {
		n = len(ordered)
	}
	out := make([]observer.Record, n)
	for i := 0; i < n; i++ {
		rec := fromDiskRecord(ordered[i].Record)
		rec.Priority = ordered[i].Priority
		out[i] = rec
	}
	return out
}

// Confirm removes the top-n records (same ordering as Peek) and mirrors
// the queue to disk.
func (b *BlackBox) Confirm(n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > b.heap.Len() {
		n = b.heap.Len()
	}
	for i := 0; i < n; i++ {
		heap.Pop(&b.heap)
	}
	return b.saveLocked()
}

// Pending returns the current queue length.
func (b *BlackBox) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.heap.Len()
}

// orderedLocked returns entries sorted by the queue's ordering policy
// without mutating the underlying heap.
func (b *BlackBox) orderedLocked() []*entry {
	ordered := make([]*entry, len(b.heap))
	copy(ordered, b.heap)
	// heap order only guarantees the root is minimal; sort explicitly
	// for a stable multi-element Peek.
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && priorityHeap(ordered).Less(j, j-1); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	return ordered
}

func (b *BlackBox) load() {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return
	}
	var entries []*entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return
	}
	b.heap = priorityHeap(entries)
	heap.Init(&b.heap)
}

// saveLocked serializes the full queue and atomically replaces the mirror
// file with write-temp-then-rename. Caller must hold mu.
func (b *BlackBox) saveLocked() error {
	data, err := json.Marshal(b.orderedLocked())
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrStorage, err)
	}
	dir := filepath.Dir(b.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, ".blackbox-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrStorage, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write temp: %v", ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close temp: %v", ErrStorage, err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename: %v", ErrStorage, err)
	}
	return nil
}
