package device

import (
	"github.com/wialon/wips-endpoint/pkg/observer"
	"github.com/wialon/wips-endpoint/pkg/wiproto"
)

// recordToExtendedData maps an emitted observer.Record onto a D-frame body,
// pulling the twelve positional fields out by their fixed keys
// (observer.PositionalKeys) and passing the rest through unchanged.
func recordToExtendedData(rec observer.Record) wiproto.ExtendedData {
	pos := func(key string) wiproto.Value {
		if v, ok := rec.Positional[key]; ok {
			return v
		}
		return wiproto.Absent
	}
	return wiproto.ExtendedData{
		ShortData: wiproto.ShortData{
			Date:    pos("date"),
			Time:    pos("time"),
			LatDeg:  pos("lat_deg"),
			LatSign: pos("lat_sign"),
			LonDeg:  pos("lon_deg"),
			LonSign: pos("lon_sign"),
			Speed:   pos("speed"),
			Course:  pos("course"),
			Alt:     pos("alt"),
			Sats:    pos("sats"),
		},
		HDOP:    pos("hdop"),
		Inputs:  rec.Inputs,
		Outputs: rec.Outputs,
		ADC:     rec.ADC,
		IButton: pos("ibutton"),
		Params:  rec.Params,
	}
}
