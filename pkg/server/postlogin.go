package server

import (
	"fmt"
	"net"

	"github.com/wialon/wips-endpoint/pkg/wiproto"
)

// Extended/short data ack codes.
const (
	codeStructural = "-1"
	codeTimestamp  = "0"
	codeOK         = "1"
	codeExtCoord   = "10"
	codeExtMove    = "11"
	codeExtSats    = "12"
	codeExtIO      = "13"
	codeExtADC     = "14"
	codeExtParams  = "15"
	codeExtCRC     = "16"

	codeShortCoord = "10"
	codeShortMove  = "11"
	codeShortSats  = "12"
	codeShortCRC   = "13"
)

// handlePostLogin dispatches a decoded, already-authenticated frame to its
// ack encoder and, on success, to OnPacket.
func (s *Server) handlePostLogin(conn net.Conn, imei string, pkt *wiproto.Packet) {
	switch pkt.Type {
	case wiproto.PacketData:
		code := validateExtended(pkt)
		conn.Write(wiproto.EncodeAck(wiproto.PacketDataAck, code, ""))
		if code == codeOK && s.OnPacket != nil {
			s.OnPacket(imei, pkt)
		}
	case wiproto.PacketShortData:
		code := validateShort(pkt)
		conn.Write(wiproto.EncodeAck(wiproto.PacketShortDataAck, code, ""))
		if code == codeOK && s.OnPacket != nil {
			s.OnPacket(imei, pkt)
		}
	case wiproto.PacketPing:
		conn.Write(wiproto.EncodeAck(wiproto.PacketPingAck, "", ""))
	case wiproto.PacketBlackbox:
		n := 0
		for _, sub := range pkt.Batch {
			code := validateExtended(sub)
			if code == codeOK {
				n++
				if s.OnPacket != nil {
					s.OnPacket(imei, sub)
				}
			}
		}
		conn.Write(wiproto.EncodeAck(wiproto.PacketBlackboxAck, fmt.Sprintf("%d", n), ""))
	default:
		if s.OnPacket != nil {
			s.OnPacket(imei, pkt)
		}
	}
}

// validateExtended applies the structural checks for D frames, returning
// the first applicable error code or codeOK.
func validateExtended(pkt *wiproto.Packet) string {
	if pkt.Date.IsAbsent() || pkt.Time.IsAbsent() {
		return codeTimestamp
	}
	if !validCoord(pkt.LatDeg, pkt.LatSign, true) || !validCoord(pkt.LonDeg, pkt.LonSign, false) {
		return codeExtCoord
	}
	if !validMove(pkt.Speed, pkt.Course) {
		return codeExtMove
	}
	if pkt.Sats.IsNumeric() && pkt.Sats.Float64() < 0 {
		return codeExtSats
	}
	if !validMask(pkt.Inputs) || !validMask(pkt.Outputs) {
		return codeExtIO
	}
	for _, v := range pkt.ADC {
		if v.IsNumeric() && v.Float64() < 0 {
			return codeExtADC
		}
	}
	if pkt.Params == nil {
		return codeOK
	}
	for _, v := range pkt.Params {
		if v.Kind != wiproto.KindInt && v.Kind != wiproto.KindReal && v.Kind != wiproto.KindString && !v.IsAbsent() {
			return codeExtParams
		}
	}
	return codeOK
}

// validateShort applies the D-frame checks that also apply to SD (the
// short ack code set has no IO/ADC/params codes, since SD has no such
// fields).
func validateShort(pkt *wiproto.Packet) string {
	if pkt.Date.IsAbsent() || pkt.Time.IsAbsent() {
		return codeTimestamp
	}
	if !validCoord(pkt.LatDeg, pkt.LatSign, true) || !validCoord(pkt.LonDeg, pkt.LonSign, false) {
		return codeShortCoord
	}
	if !validMove(pkt.Speed, pkt.Course) {
		return codeShortMove
	}
	if pkt.Sats.IsNumeric() && pkt.Sats.Float64() < 0 {
		return codeShortSats
	}
	return codeOK
}

func validCoord(deg, sign wiproto.Value, isLatitude bool) bool {
	if deg.IsAbsent() {
		return true
	}
	if deg.Kind != wiproto.KindString {
		return false
	}
	_, err := wiproto.DDMMToDecimal(deg.Str, sign.Str, isLatitude)
	return err == nil
}

func validMove(speed, course wiproto.Value) bool {
	if speed.IsNumeric() && speed.Float64() < 0 {
		return false
	}
	if course.IsNumeric() && (course.Float64() < 0 || course.Float64() >= 360) {
		return false
	}
	return true
}

func validMask(v wiproto.Value) bool {
	return !v.IsNumeric() || v.Float64() >= 0
}
