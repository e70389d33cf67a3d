// server/internal/intake/masks.go
package intake

import "strings"

func digits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MaskCEP formats a postal code as 00000-000, capped at 9 characters.
func MaskCEP(value string) string {
	d := digits(value)
	if len(d) > 8 {
		d = d[:8]
	}
	if len(d) <= 5 {
		return d
	}
	return d[:5] + "-" + d[5:]
}

// MaskPhone formats a Brazilian phone as (DD) XXXXX-XXXX.
func MaskPhone(value string) string {
	d := digits(value)
	if len(d) > 11 {
		d = d[:11]
	}
	switch {
	case len(d) <= 2:
		return d
	case len(d) <= 7:
		return "(" + d[:2] + ") " + d[2:]
	default:
		return "(" + d[:2] + ") " + d[2:7] + "-" + d[7:]
	}
}
