package wiproto

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var lbsKeyRe = regexp.MustCompile(`^(mcc|mnc|lac|cell_id)(\d*)$`)

// EncodeParams renders a param map onto the wire as
// "key:type:value[,key:type:value]*".
func EncodeParams(params map[string]Value) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := params[k]
		parts = append(parts, fmt.Sprintf("%s:%d:%s", k, v.ParamTypeTag(), v.String()))
	}
	return strings.Join(parts, ",")
}

// ParseParams decodes the wire's params sub-encoding, lifting SOS into the
// returned sos flag (removed from the params map) and mcc/mnc/lac/cell_id
// (optionally indexed) into lbs.
func ParseParams(s string) (params map[string]Value, lbs LBS, sos bool) {
	params = map[string]Value{}
	if s == "" || s == "NA" {
		return params, lbs, false
	}
	for _, item := range strings.Split(s, ",") {
		if item == "" {
			continue
		}
		fields := strings.SplitN(item, ":", 3)
		if len(fields) != 3 {
			continue
		}
		key, tag, raw := fields[0], fields[1], fields[2]
		val := parseParamValue(tag, raw)

		if key == "SOS" {
			if val.Kind == KindInt && val.Int == 1 {
				sos = true
			}
			continue
		}
		if m := lbsKeyRe.FindStringSubmatch(key); m != nil {
			switch m[1] {
			case "mcc":
				lbs.MCC = append(lbs.MCC, val)
			case "mnc":
				lbs.MNC = append(lbs.MNC, val)
			case "lac":
				lbs.LAC = append(lbs.LAC, val)
			case "cell_id":
				lbs.CellID = append(lbs.CellID, val)
			}
			continue
		}
		params[key] = val
	}
	return params, lbs, sos
}

func parseParamValue(tag, raw string) Value {
	if raw == "NA" {
		return Absent
	}
	switch tag {
	case "1":
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Absent
		}
		return IntValue(i)
	case "2":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Absent
		}
		return RealValue(f)
	default:
		return StringValue(raw)
	}
}

// EncodeADC renders an ADC channel list as comma-separated reals.
func EncodeADC(adc []Value) string {
	if len(adc) == 0 {
		return "NA"
	}
	parts := make([]string, len(adc))
	for i, v := range adc {
		parts[i] = v.String()
	}
	return strings.Join(parts, ",")
}

// ParseADC decodes a comma-separated ADC channel list. ADC channels are
// always reals on the wire, even when a value happens to have no fractional
// digits ("5" means 5.0V, not the integer 5).
func ParseADC(s string) []Value {
	if s == "" || s == "NA" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]Value, len(parts))
	for i, p := range parts {
		if p == "NA" || p == "" {
			out[i] = Absent
			continue
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			out[i] = Absent
			continue
		}
		out[i] = RealValue(f)
	}
	return out
}
