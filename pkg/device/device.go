// Package device implements the WialonIPS device (client): dial, login
// handshake, interleaved read/write loops, periodic sampling, and
// reconnection.
package device

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/wialon/wips-endpoint/pkg/blackbox"
	"github.com/wialon/wips-endpoint/pkg/geo"
	"github.com/wialon/wips-endpoint/pkg/observer"
	"github.com/wialon/wips-endpoint/pkg/signal"
	"github.com/wialon/wips-endpoint/pkg/wiproto"
)

// State is the device's connection lifecycle state.
type State int

const (
	Disconnected State = iota
	Dialing
	Authenticating
	Online
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Dialing:
		return "dialing"
	case Authenticating:
		return "authenticating"
	case Online:
		return "online"
	default:
		return "unknown"
	}
}

// Default timeouts for the login and reconnect paths.
const (
	DefaultLoginTimeout = time.Second
	DefaultAckTimeout   = time.Second
	DefaultReconnectGap = 3 * time.Second
)

// SamplerConfig exposes the three sampler cadences: position refresh,
// forced low-priority emission, and parameter refresh.
type SamplerConfig struct {
	PositionInterval time.Duration
	EventInterval    time.Duration
	ParamInterval    time.Duration
}

// DefaultSamplerConfig returns the standard 5s/10s/15s cadences.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		PositionInterval: 5 * time.Second,
		EventInterval:    10 * time.Second,
		ParamInterval:    15 * time.Second,
	}
}

var (
	ErrAuthRejected = errors.New("device: login rejected")
	ErrLoginTimeout = errors.New("device: login ack timeout")
)

// Device is the WialonIPS client: it owns an Observer and a BlackBox, and
// drives the socket lifecycle against (Host, Port).
type Device struct {
	Observer *observer.Observer
	BlackBox *blackbox.BlackBox

	Host, Port      string
	ProtocolVersion string
	IMEI, Password  string

	Geo     geo.Source
	Battery geo.Battery

	LoginTimeout time.Duration
	AckTimeout   time.Duration
	ReconnectGap time.Duration
	Sampler      SamplerConfig

	logger *slog.Logger

	mu    sync.Mutex
	state State
	conn  net.Conn

	dispatch *responseDispatcher
}

// Option configures a Device at construction.
type Option func(*Device)

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option { return func(d *Device) { d.logger = l } }

// New constructs a Device bound to obs/bb and the given host/port/identity.
func New(obs *observer.Observer, bb *blackbox.BlackBox, host, port, protocolVersion, imei, password string, opts ...Option) *Device {
	d := &Device{
		Observer:        obs,
		BlackBox:        bb,
		Host:            host,
		Port:            port,
		ProtocolVersion: protocolVersion,
		IMEI:            imei,
		Password:        password,
		LoginTimeout:    DefaultLoginTimeout,
		AckTimeout:      DefaultAckTimeout,
		ReconnectGap:    DefaultReconnectGap,
		Sampler:         DefaultSamplerConfig(),
		logger:          slog.Default(),
		dispatch:        newResponseDispatcher(),
	}
	for _, o := range opts {
		o(d)
	}
	obs.OnEvent = func(rec observer.Record) {
		if err := bb.Push(rec); err != nil {
			d.logger.Error("blackbox push failed", "error", err)
		}
	}
	// The battery probe needs a param to land in; leave any caller-installed
	// signal alone.
	if _, ok := obs.Param("battery"); !ok {
		obs.SetParam("battery", signal.New(signal.Monitoring, signal.Low, 0, 0, false))
	}
	return d
}

// State returns the device's current connection state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Device) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
	d.logger.Debug("device state changed", "state", s.String())
}

// Run drives the device forever: it starts the sampler (which runs
// independently of connection state, accumulating records in the BlackBox)
// and loops dial->login->online->reconnect until ctx is canceled.
func (d *Device) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.runSampler(ctx)
	}()

	for ctx.Err() == nil {
		if err := d.connectOnce(ctx); err != nil {
			d.logger.Warn("connection attempt failed", "error", err)
		}
		select {
		case <-ctx.Done():
		case <-time.After(d.ReconnectGap):
		}
	}
	wg.Wait()
	return ctx.Err()
}

// connectOnce dials, logs in, and runs the online read/write loops until
// either fails; it always returns with the socket closed and state reset
// to Disconnected.
func (d *Device) connectOnce(ctx context.Context) error {
	d.setState(Dialing)
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(d.Host, d.Port))
	if err != nil {
		d.setState(Disconnected)
		return fmt.Errorf("device: dial: %w", err)
	}

	d.mu.Lock()
	d.conn = conn
	d.mu.Unlock()
	defer d.closeConn()

	reader := bufio.NewReader(conn)
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// net.Conn.Read does not observe context cancellation, so closing the
	// socket is what actually unblocks a readLoop parked in Read once
	// loopCtx is canceled, either by login failure below or by the select
	// below tearing the connection down.
	go func() {
		<-loopCtx.Done()
		conn.Close()
	}()

	readErrCh := make(chan error, 1)
	go func() { readErrCh <- d.readLoop(loopCtx, reader) }()

	d.setState(Authenticating)
	if err := d.login(conn); err != nil {
		cancel()
		<-readErrCh
		d.setState(Disconnected)
		return err
	}

	d.setState(Online)
	writeErrCh := make(chan error, 1)
	go func() { writeErrCh <- d.writeLoop(loopCtx, conn) }()

	var finalErr error
	select {
	case finalErr = <-readErrCh:
		cancel()
		<-writeErrCh
	case finalErr = <-writeErrCh:
		cancel()
		<-readErrCh
	case <-ctx.Done():
		cancel()
		<-readErrCh
		<-writeErrCh
	}
	d.setState(Disconnected)
	return finalErr
}

func (d *Device) closeConn() {
	d.mu.Lock()
	conn := d.conn
	d.conn = nil
	d.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (d *Device) login(conn net.Conn) error {
	frame := wiproto.EncodeLogin(d.ProtocolVersion, d.IMEI, d.Password)
	sub := d.dispatch.subscribe(wiproto.PacketLoginAck)
	defer d.dispatch.unsubscribe(wiproto.PacketLoginAck, sub)

	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("device: send login: %w", err)
	}
	select {
	case pkt := <-sub:
		if pkt.Code == "1" {
			d.logger.Info("login accepted", "imei", d.IMEI)
			return nil
		}
		d.logger.Warn("login rejected", "imei", d.IMEI, "code", pkt.Code)
		return fmt.Errorf("%w: code %s", ErrAuthRejected, pkt.Code)
	case <-time.After(d.LoginTimeout):
		return ErrLoginTimeout
	}
}
