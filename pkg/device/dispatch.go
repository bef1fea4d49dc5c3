package device

import (
	"sync"

	"github.com/wialon/wips-endpoint/pkg/wiproto"
)

// responseDispatcher fans decoded server packets out to per-type
// subscriber channels: the read loop does the type discrimination once and
// each waiter only sees its own type.
type responseDispatcher struct {
	mu   sync.Mutex
	subs map[wiproto.PacketType][]chan *wiproto.Packet
}

func newResponseDispatcher() *responseDispatcher {
	return &responseDispatcher{subs: map[wiproto.PacketType][]chan *wiproto.Packet{}}
}

func (r *responseDispatcher) subscribe(t wiproto.PacketType) chan *wiproto.Packet {
	ch := make(chan *wiproto.Packet, 1)
	r.mu.Lock()
	r.subs[t] = append(r.subs[t], ch)
	r.mu.Unlock()
	return ch
}

func (r *responseDispatcher) unsubscribe(t wiproto.PacketType, ch chan *wiproto.Packet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := r.subs[t]
	for i, c := range subs {
		if c == ch {
			r.subs[t] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

// dispatch delivers pkt to every current subscriber of its type,
// non-blocking (subscribers use a buffered channel of size 1 and are
// expected to be actively waiting).
func (r *responseDispatcher) dispatch(pkt *wiproto.Packet) {
	r.mu.Lock()
	subs := append([]chan *wiproto.Packet(nil), r.subs[pkt.Type]...)
	r.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- pkt:
		default:
		}
	}
}
