package wiproto

import (
	"fmt"
	"strings"
)

var ackTypes = map[PacketType]bool{
	PacketLoginAck: true, PacketShortDataAck: true, PacketDataAck: true,
	PacketBlackboxAck: true, PacketPingAck: true, PacketDriverMsgAck: true,
}

// Decode parses a single framed message. Only ASCII input is accepted.
// CRC, when present, is verified against the body; a disagreement yields
// ErrCrcMismatch. An unrecognized TYPE decodes to PacketUnknown rather than
// failing.
func Decode(raw []byte) (*Packet, error) {
	if !isASCII(raw) {
		return nil, fmt.Errorf("%w: non-ASCII input", ErrMalformedFrame)
	}
	s := string(raw)
	if !strings.HasSuffix(s, "\r\n") {
		return nil, fmt.Errorf("%w: missing terminator", ErrMalformedFrame)
	}
	s = strings.TrimSuffix(s, "\r\n")
	if len(s) < 1 || s[0] != '#' {
		return nil, fmt.Errorf("%w: missing leading '#'", ErrMalformedFrame)
	}
	rest := s[1:]
	sep := strings.IndexByte(rest, '#')
	if sep < 0 {
		return nil, fmt.Errorf("%w: missing type separator", ErrMalformedFrame)
	}
	typ := PacketType(strings.ToUpper(rest[:sep]))
	body := rest[sep+1:]

	verifiedBody, err := splitCRC(body)
	if err != nil {
		return nil, err
	}

	p := &Packet{Type: resolveType(typ), Raw: raw}

	if typ.IsOpaque() {
		return p, nil
	}

	switch typ {
	case PacketLogin:
		return decodeLogin(p, verifiedBody)
	case PacketPing:
		return p, nil
	case PacketShortData:
		return decodeShort(p, verifiedBody)
	case PacketData:
		return decodeExtended(p, verifiedBody)
	case PacketBlackbox:
		return decodeBlackbox(p, verifiedBody)
	default:
		if ackTypes[typ] {
			return decodeAck(p, verifiedBody)
		}
		return p, nil
	}
}

// PeekType extracts a frame's type code without decoding its body or
// verifying its CRC, so callers can choose a type-appropriate error
// response even when Decode itself fails (e.g. a CRC mismatch).
func PeekType(raw []byte) (PacketType, bool) {
	s := strings.TrimSuffix(string(raw), "\r\n")
	if len(s) < 1 || s[0] != '#' {
		return PacketUnknown, false
	}
	rest := s[1:]
	sep := strings.IndexByte(rest, '#')
	if sep < 0 {
		return PacketUnknown, false
	}
	return resolveType(PacketType(strings.ToUpper(rest[:sep]))), true
}

func resolveType(typ PacketType) PacketType {
	if _, ok := knownTypes[typ]; ok {
		return typ
	}
	return PacketUnknown
}

var knownTypes = func() map[PacketType]bool {
	m := map[PacketType]bool{}
	for _, t := range []PacketType{
		PacketLogin, PacketLoginAck, PacketShortData, PacketShortDataAck,
		PacketData, PacketDataAck, PacketBlackbox, PacketBlackboxAck,
		PacketPing, PacketPingAck, PacketDriverMsg, PacketDriverMsgAck,
		PacketQueryLiveVideo, PacketLiveVideo, PacketQueryPlayback, PacketPlayback,
		PacketQueryVideoStream, PacketVideoStream, PacketQueryVideoFile, PacketVideoFile,
		PacketQueryTachoInfo, PacketTachoInfo, PacketQueryImage, PacketImage, PacketImageAck,
		PacketQueryDDD, PacketDDDInfo, PacketDDDInfoAck, PacketDDDBlock, PacketDDDBlockAck,
		PacketUploadSoftware, PacketUploadConfig,
	} {
		m[t] = true
	}
	return m
}()

// splitCRC splits body into its content and, if present, verifies the
// trailing CRC hex token against the content up to and including the
// separating ';'. The CRC, when present, is the final token of the body
// matching ^[0-9A-Fa-f]+$ after the last ';'; v1 frames may omit it.
func splitCRC(body string) (string, error) {
	idx := strings.LastIndexByte(body, ';')
	if idx < 0 {
		// No ';' at all: either an empty body (P) or a bare ack code.
		return body, nil
	}
	candidate := body[idx+1:]
	if candidate == "" || !isHex(candidate) {
		return body, nil
	}
	content := body[:idx+1]
	expected := Checksum([]byte(content))
	got, err := parseHexUint16(candidate)
	if err != nil {
		// Not actually a CRC token (e.g. a hex-looking field value);
		// treat the whole body as content.
		return body, nil
	}
	if got != expected {
		return "", fmt.Errorf("%w: got %04X want %04X", ErrCrcMismatch, got, expected)
	}
	return content, nil
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'A' && r <= 'F') || (r >= 'a' && r <= 'f')) {
			return false
		}
	}
	return true
}

func parseHexUint16(s string) (uint16, error) {
	var v uint16
	for _, r := range s {
		var d uint16
		switch {
		case r >= '0' && r <= '9':
			d = uint16(r - '0')
		case r >= 'a' && r <= 'f':
			d = uint16(r-'a') + 10
		case r >= 'A' && r <= 'F':
			d = uint16(r-'A') + 10
		default:
			return 0, fmt.Errorf("wiproto: not hex: %q", s)
		}
		v = v*16 + d
	}
	return v, nil
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c > 0x7F {
			return false
		}
	}
	return true
}

// splitFields splits a body string on ';', dropping the single trailing
// empty element produced by the body's own terminating ';'.
func splitFields(body string) []string {
	if body == "" {
		return nil
	}
	fields := strings.Split(body, ";")
	if len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}

func decodeLogin(p *Packet, body string) (*Packet, error) {
	f := splitFields(body)
	if len(f) < 3 {
		return nil, fmt.Errorf("%w: login expects 3 fields, got %d", ErrMalformedFrame, len(f))
	}
	p.ProtocolVersion = f[0]
	p.IMEI = f[1]
	p.Password = f[2]
	return p, nil
}

func decodeShort(p *Packet, body string) (*Packet, error) {
	f := splitFields(body)
	if len(f) < 10 {
		return nil, fmt.Errorf("%w: short data expects 10 fields, got %d", ErrMalformedFrame, len(f))
	}
	fillShort(p, f)
	return p, nil
}

func fillShort(p *Packet, f []string) {
	p.Date = ParseField(f[0])
	p.Time = ParseField(f[1])
	p.LatDeg = ParseField(f[2])
	p.LatSign = ParseField(f[3])
	p.LonDeg = ParseField(f[4])
	p.LonSign = ParseField(f[5])
	p.Speed = ParseNumericField(f[6])
	p.Course = ParseNumericField(f[7])
	p.Alt = ParseNumericField(f[8])
	p.Sats = ParseNumericField(f[9])
}

func decodeExtended(p *Packet, body string) (*Packet, error) {
	f := splitFields(body)
	if len(f) < 16 {
		return nil, fmt.Errorf("%w: extended data expects 16 fields, got %d", ErrMalformedFrame, len(f))
	}
	fillShort(p, f)
	p.HDOP = ParseNumericField(f[10])
	p.Inputs = ParseNumericField(f[11])
	p.Outputs = ParseNumericField(f[12])
	p.ADC = ParseADC(f[13])
	p.IButton = ParseField(f[14])
	params, lbs, sos := ParseParams(f[15])
	p.Params = params
	p.LBS = lbs
	p.SOS = sos
	return p, nil
}

func decodeBlackbox(p *Packet, body string) (*Packet, error) {
	// The B body is a single field: '|'-separated D-shaped sub-bodies,
	// each already self-terminated with its own ';'.
	// Each piece is handed to decodeExtended untouched: splitFields'
	// single-trailing-empty-field rule already accounts for a
	// sub-body's own terminator, and trimming an extra ';' here would
	// misalign the last sub-body whenever its params field is empty
	// (its body then legitimately ends in ";;", not ";").
	bodies := strings.Split(body, "|")
	for _, b := range bodies {
		sub := &Packet{Type: PacketData}
		if _, err := decodeExtended(sub, b); err != nil {
			continue
		}
		p.Batch = append(p.Batch, sub)
	}
	return p, nil
}

func decodeAck(p *Packet, body string) (*Packet, error) {
	body = strings.TrimSuffix(body, ";")
	if idx := strings.IndexByte(body, '.'); idx >= 0 {
		p.Code = body[:idx]
		p.Subcode = body[idx+1:]
	} else {
		p.Code = body
	}
	return p, nil
}
