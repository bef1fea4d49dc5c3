package wiproto

// PacketType is the closed set of WialonIPS frame type codes. Types outside
// this set decode to PacketUnknown rather than failing.
type PacketType string

const (
	PacketLogin        PacketType = "L"
	PacketLoginAck     PacketType = "AL"
	PacketShortData    PacketType = "SD"
	PacketShortDataAck PacketType = "ASD"
	PacketData         PacketType = "D"
	PacketDataAck      PacketType = "AD"
	PacketBlackbox     PacketType = "B"
	PacketBlackboxAck  PacketType = "AB"
	PacketPing         PacketType = "P"
	PacketPingAck      PacketType = "AP"
	PacketDriverMsg    PacketType = "M"
	PacketDriverMsgAck PacketType = "AM"

	// Video channel, recognized at the framing layer only.
	PacketQueryLiveVideo   PacketType = "QLV"
	PacketLiveVideo        PacketType = "LV"
	PacketQueryPlayback    PacketType = "QPB"
	PacketPlayback         PacketType = "PB"
	PacketQueryVideoStream PacketType = "QVS"
	PacketVideoStream      PacketType = "VS"
	PacketQueryVideoFile   PacketType = "QVF"
	PacketVideoFile        PacketType = "VF"
	PacketQueryTachoInfo   PacketType = "QTM"
	PacketTachoInfo        PacketType = "TM"

	// Image channel.
	PacketQueryImage PacketType = "QI"
	PacketImage      PacketType = "I"
	PacketImageAck   PacketType = "AI"

	// DDD (tachograph) channel.
	PacketQueryDDD    PacketType = "QT"
	PacketDDDInfo     PacketType = "IT"
	PacketDDDInfoAck  PacketType = "AIT"
	PacketDDDBlock    PacketType = "T"
	PacketDDDBlockAck PacketType = "AT"

	// Upload channels, server-originated.
	PacketUploadSoftware PacketType = "US"
	PacketUploadConfig   PacketType = "UC"

	PacketUnknown PacketType = ""
)

// opaqueTypes recognizes frame types whose payload this system treats as
// opaque bytes: the video, DDD, driver-message, image, and upload channels.
var opaqueTypes = map[PacketType]bool{
	PacketQueryLiveVideo: true, PacketLiveVideo: true,
	PacketQueryPlayback: true, PacketPlayback: true,
	PacketQueryVideoStream: true, PacketVideoStream: true,
	PacketQueryVideoFile: true, PacketVideoFile: true,
	PacketQueryTachoInfo: true, PacketTachoInfo: true,
	PacketQueryImage: true, PacketImage: true, PacketImageAck: true,
	PacketQueryDDD: true, PacketDDDInfo: true, PacketDDDInfoAck: true,
	PacketDDDBlock: true, PacketDDDBlockAck: true,
	PacketUploadSoftware: true, PacketUploadConfig: true,
	PacketDriverMsg: true, PacketDriverMsgAck: true,
}

// IsOpaque reports whether t's payload is framed but not interpreted.
func (t PacketType) IsOpaque() bool { return opaqueTypes[t] }

// LBS groups the location-based-service params lifted out of a generic
// params map (mcc, mnc, lac, cell_id, optionally indexed).
type LBS struct {
	MCC    []Value
	MNC    []Value
	LAC    []Value
	CellID []Value
}

// Packet is the parsed representation of a wire frame.
type Packet struct {
	Type PacketType
	Raw  []byte

	// Login fields.
	ProtocolVersion string
	IMEI            string
	Password        string

	// Position/extended-data fields.
	Date      Value
	Time      Value
	LatDeg    Value
	LatSign   Value
	LonDeg    Value
	LonSign   Value
	Speed     Value
	Course    Value
	Alt       Value
	Sats      Value
	HDOP      Value
	Inputs    Value
	Outputs   Value
	ADC       []Value
	IButton   Value
	Params    map[string]Value
	LBS       LBS

	// SOS is lifted out of Params; SOS:1:1 sets the alarm flag.
	SOS bool

	// Blackbox batch: each sub-body decoded as if it were a D frame.
	Batch []*Packet

	// Server-originated ack frames.
	Code    string
	Subcode string
}
