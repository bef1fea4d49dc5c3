package wiproto

import (
	"fmt"
	"strconv"
	"strings"
)

// buildFrame joins fields with ';', appends the trailing ';', computes the
// CRC over the resulting bytes, and appends the uppercase hex CRC and the
// line terminator. EncodeLogin and EncodeShortData use it; EncodeData and
// EncodeBlackbox build their body themselves and call frameFromBody, while
// EncodePing and EncodeAck emit bare frames with no CRC.
func buildFrame(typ PacketType, fields []Value) []byte {
	body := joinFields(fields)
	return frameFromBody(typ, body)
}

func joinFields(fields []Value) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.String()
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ";") + ";"
}

func frameFromBody(typ PacketType, body string) []byte {
	crc := Checksum([]byte(body))
	return []byte(fmt.Sprintf("#%s#%s%s\r\n", typ, body, strings.ToUpper(strconv.FormatUint(uint64(crc), 16))))
}

// normalizeCourse applies the codec's build-time normalization: an
// out-of-range course becomes "unavailable" rather than an error.
func normalizeCourse(v Value) Value {
	if !v.IsNumeric() {
		return v
	}
	c := v.Float64()
	if c < 0 || c >= 360 {
		return Absent
	}
	return v
}

func normalizeNonNegative(v Value) Value {
	if !v.IsNumeric() {
		return v
	}
	if v.Float64() < 0 {
		return Absent
	}
	return v
}

// EncodeLogin builds an "L" frame: protocol_version; imei; password;
func EncodeLogin(protocolVersion, imei, password string) []byte {
	return buildFrame(PacketLogin, []Value{
		StringValue(protocolVersion), StringValue(imei), StringValue(password),
	})
}

// EncodePing builds an empty-body "P" frame. Pings carry no fields and go
// out bare, with no CRC suffix.
func EncodePing() []byte {
	return []byte("#P#\r\n")
}

// ShortData carries the fixed 10-field position schema shared by SD and the
// leading portion of D.
type ShortData struct {
	Date    Value
	Time    Value
	LatDeg  Value
	LatSign Value
	LonDeg  Value
	LonSign Value
	Speed   Value
	Course  Value
	Alt     Value
	Sats    Value
}

func (s ShortData) fields() []Value {
	return []Value{
		s.Date, s.Time, s.LatDeg, s.LatSign, s.LonDeg, s.LonSign,
		normalizeNonNegative(s.Speed), normalizeCourse(s.Course), s.Alt, normalizeNonNegative(s.Sats),
	}
}

// EncodeShortData builds an "SD" frame.
func EncodeShortData(s ShortData) []byte {
	return buildFrame(PacketShortData, s.fields())
}

// ExtendedData is the full "D" body: ShortData plus hdop, IO masks, ADC,
// ibutton, and params.
type ExtendedData struct {
	ShortData
	HDOP    Value
	Inputs  Value
	Outputs Value
	ADC     []Value
	IButton Value
	Params  map[string]Value
}

func (d ExtendedData) body() string {
	fields := d.ShortData.fields()
	parts := make([]string, 0, len(fields)+6)
	for _, f := range fields {
		parts = append(parts, f.String())
	}
	parts = append(parts, d.HDOP.String(), d.Inputs.String(), d.Outputs.String(), EncodeADC(d.ADC), d.IButton.String(), EncodeParams(d.Params))
	return strings.Join(parts, ";") + ";"
}

// EncodeData builds a "D" frame.
func EncodeData(d ExtendedData) []byte {
	return frameFromBody(PacketData, d.body())
}

// EncodeBlackbox builds a "B" frame from a batch of D-shaped bodies,
// joined with '|'.
func EncodeBlackbox(batch []ExtendedData) []byte {
	bodies := make([]string, len(batch))
	for i, d := range batch {
		bodies[i] = d.body()
	}
	return frameFromBody(PacketBlackbox, strings.Join(bodies, "|"))
}

// EncodeAck builds a server acknowledgment frame (AL/ASD/AD/AB/AP). Acks go
// out bare on the wire ("#AL#1\r\n", "#AP#\r\n"): the body is a numeric code
// with an optional ".subcode" suffix, no trailing ';' and no CRC.
func EncodeAck(typ PacketType, code string, subcode string) []byte {
	body := code
	if subcode != "" {
		body = code + "." + subcode
	}
	return []byte(fmt.Sprintf("#%s#%s\r\n", typ, body))
}
