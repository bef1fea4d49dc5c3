// Package server implements the WialonIPS collection server: an accept
// loop spawning one session per connection, credential checks against a
// device registry, and per-type acknowledgment of decoded frames.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/wialon/wips-endpoint/pkg/deviceconfig"
	"github.com/wialon/wips-endpoint/pkg/wiproto"
)

// Login ack codes.
const (
	loginOK        = "1"
	loginDuplicate = "0"
	loginAuthError = "01"
	loginCrcError  = "10"
)

// Server accepts WialonIPS device connections, authenticates them against
// a Registry, and dispatches decoded post-login frames to OnPacket.
type Server struct {
	Registry *deviceconfig.Registry

	// OnPacket, if set, is invoked for post-login frames, keyed by the
	// session's authenticated IMEI: D and SD frames that pass validation,
	// each accepted sub-record of a B batch, and frames of any other type
	// except P (pings are acked but not forwarded). It
	// runs on the session's own goroutine; callers that need to fan out
	// should copy what they need and return promptly.
	OnPacket func(imei string, pkt *wiproto.Packet)

	logger *slog.Logger

	mu     sync.Mutex
	active map[string]bool
}

// Option configures a Server at construction.
type Option func(*Server)

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.logger = l } }

// New constructs a Server bound to registry.
func New(registry *deviceconfig.Registry, opts ...Option) *Server {
	s := &Server{
		Registry: registry,
		logger:   slog.Default(),
		active:   map[string]bool{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Serve accepts connections on ln until ctx is canceled or Accept fails.
// Each connection is handled on its own goroutine.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("server: accept: %w", err)
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) deactivate(imei string) {
	s.mu.Lock()
	delete(s.active, imei)
	s.mu.Unlock()
}

// handleConn runs one session to completion: login handshake, then an
// unbounded loop of post-login frames.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	reader := bufio.NewReader(conn)
	var imei string
	loggedIn := false
	defer func() {
		if loggedIn {
			s.deactivate(imei)
		}
	}()

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}

		pkt, err := wiproto.Decode(line)
		if err != nil {
			s.handleDecodeError(conn, line, err, loggedIn)
			if !loggedIn {
				return
			}
			continue
		}

		if !loggedIn {
			if pkt.Type != wiproto.PacketLogin {
				// First frame must be a login.
				return
			}
			code, ok := s.login(pkt)
			conn.Write(wiproto.EncodeAck(wiproto.PacketLoginAck, code, ""))
			if !ok {
				return
			}
			imei = pkt.IMEI
			loggedIn = true
			s.logger.Info("device authenticated", "imei", imei)
			continue
		}

		s.handlePostLogin(conn, imei, pkt)
	}
}

// handleDecodeError answers an undecodable frame with the type-appropriate
// error code when the frame's type can still be recovered: before login a
// CRC mismatch draws AL#10; after login a D or SD frame draws its CRC code
// on a CRC mismatch and the structural code (-1) otherwise. Frames of any
// other type are logged and dropped, so a bad frame never crashes the
// session.
func (s *Server) handleDecodeError(conn net.Conn, line []byte, err error, loggedIn bool) {
	isCrc := errors.Is(err, wiproto.ErrCrcMismatch)
	if !loggedIn {
		if isCrc {
			conn.Write(wiproto.EncodeAck(wiproto.PacketLoginAck, loginCrcError, ""))
		}
		s.logger.Warn("malformed frame before login, closing", "error", err)
		return
	}

	typ, ok := wiproto.PeekType(line)
	if !ok {
		s.logger.Warn("malformed frame, dropping", "error", err)
		return
	}
	switch typ {
	case wiproto.PacketData:
		code := codeStructural
		if isCrc {
			code = codeExtCRC
		}
		conn.Write(wiproto.EncodeAck(wiproto.PacketDataAck, code, ""))
	case wiproto.PacketShortData:
		code := codeStructural
		if isCrc {
			code = codeShortCRC
		}
		conn.Write(wiproto.EncodeAck(wiproto.PacketShortDataAck, code, ""))
	default:
		s.logger.Warn("malformed frame, dropping", "type", typ, "error", err)
	}
}

// login validates a login packet and reports the ack code plus whether the
// session should proceed to the authenticated state. Check order: unknown
// IMEI, then duplicate active session, then password mismatch, then
// success. The duplicate check and activation happen in one locked section
// so two concurrent logins for the same IMEI cannot both win.
func (s *Server) login(pkt *wiproto.Packet) (code string, ok bool) {
	cred, known := s.Registry.Lookup(pkt.IMEI)
	if !known {
		return loginAuthError, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[pkt.IMEI] {
		return loginDuplicate, false
	}
	if cred.Password != pkt.Password {
		return loginAuthError, false
	}
	s.active[pkt.IMEI] = true
	return loginOK, true
}
