package wiproto

import "fmt"

// DecimalToDDMM converts a decimal-degree coordinate into its wire form:
// DDMM.mmmmmm for latitude (2-digit degrees), DDDMM.mmmmmm for longitude
// (3-digit degrees), plus the literal N/S or E/W sign.
func DecimalToDDMM(decimal float64, isLatitude bool) (value string, sign string) {
	var s string
	if isLatitude {
		if decimal < 0 {
			s = "S"
		} else {
			s = "N"
		}
	} else {
		if decimal < 0 {
			s = "W"
		} else {
			s = "E"
		}
	}

	decimal = absFloat(decimal)
	degrees := int(decimal)
	minutes := (decimal - float64(degrees)) * 60

	var degreeFmt string
	if isLatitude {
		degreeFmt = "%02d"
	} else {
		degreeFmt = "%03d"
	}
	return fmt.Sprintf(degreeFmt+"%09.6f", degrees, minutes), s
}

// DDMMToDecimal is the inverse of DecimalToDDMM: given the wire form, its
// sign, and whether the field is a latitude (2-digit degrees) or longitude
// (3-digit degrees), it returns the signed decimal-degree value.
func DDMMToDecimal(ddmm string, sign string, isLatitude bool) (float64, error) {
	degreeDigits := 3
	if isLatitude {
		degreeDigits = 2
	}
	if len(ddmm) <= degreeDigits {
		return 0, fmt.Errorf("wiproto: malformed DDMM value %q", ddmm)
	}
	var degrees int
	var minutes float64
	if _, err := fmt.Sscanf(ddmm[:degreeDigits], "%d", &degrees); err != nil {
		return 0, fmt.Errorf("wiproto: malformed DDMM degrees %q: %w", ddmm, err)
	}
	if _, err := fmt.Sscanf(ddmm[degreeDigits:], "%f", &minutes); err != nil {
		return 0, fmt.Errorf("wiproto: malformed DDMM minutes %q: %w", ddmm, err)
	}
	dec := float64(degrees) + minutes/60
	if sign == "S" || sign == "W" {
		dec = -dec
	}
	return dec, nil
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
