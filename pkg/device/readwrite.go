package device

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/wialon/wips-endpoint/pkg/wiproto"
)

var errAckTimeout = errors.New("device: ack timeout")

// readLoop blocks on conn, decoding one frame per line and dispatching it
// to any waiter for its type; it returns on the first socket error or when
// ctx is canceled.
func (d *Device) readLoop(ctx context.Context, r *bufio.Reader) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line, err := r.ReadBytes('\n')
		if err != nil {
			return fmt.Errorf("device: read: %w", err)
		}
		pkt, err := wiproto.Decode(line)
		if err != nil {
			d.logger.Warn("malformed frame from server, discarding", "error", err)
			continue
		}
		d.logger.Debug("frame received", "type", pkt.Type)
		d.dispatch.dispatch(pkt)
	}
}

// writeLoop repeatedly drains the BlackBox while the queue is non-empty,
// then sleeps BlackBox.Timeout. Records that are not acked with AD#1
// within AckTimeout are left in the queue for a later attempt (never
// dropped).
func (d *Device) writeLoop(ctx context.Context, conn net.Conn) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := d.drainOnce(ctx, conn); err != nil {
			return err
		}
		timer := time.NewTimer(d.BlackBox.Timeout)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (d *Device) drainOnce(ctx context.Context, conn net.Conn) error {
	for d.BlackBox.Pending() > 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		recs := d.BlackBox.Peek(1)
		if len(recs) == 0 {
			return nil
		}
		frame := wiproto.EncodeData(recordToExtendedData(recs[0]))

		sub := d.dispatch.subscribe(wiproto.PacketDataAck)
		_, err := conn.Write(frame)
		if err != nil {
			d.dispatch.unsubscribe(wiproto.PacketDataAck, sub)
			return fmt.Errorf("device: send data: %w", err)
		}

		ackCode, err := waitAck(ctx, sub, d.AckTimeout)
		d.dispatch.unsubscribe(wiproto.PacketDataAck, sub)
		if err != nil {
			d.logger.Warn("no ack for data frame, retaining in queue", "error", err)
			return nil
		}
		if ackCode == "1" {
			if err := d.BlackBox.Confirm(1); err != nil {
				d.logger.Error("blackbox confirm failed", "error", err)
			}
		} else {
			d.logger.Warn("data frame not accepted, retaining in queue", "code", ackCode)
			return nil
		}
	}
	return nil
}

func waitAck(ctx context.Context, sub chan *wiproto.Packet, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case pkt := <-sub:
		return pkt.Code, nil
	case <-timer.C:
		return "", errAckTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
