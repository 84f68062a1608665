package bridge

import (
	"fmt"
	"strings"

	"cosmossdk.io/math"
)

// FormatUnits renders a base-unit amount as a decimal string with up to
// `decimals` fractional digits (trailing zeros trimmed). FormatUnits and
// ParseUnits round-trip exactly for any integer base-unit amount.
func FormatUnits(amount math.Int, decimals uint8) string {
	if amount.IsNil() {
		return "0"
	}
	neg := amount.IsNegative()
	abs := amount.Abs()

	scale := math.NewIntWithDecimal(1, int(decimals))
	whole := abs.Quo(scale)
	frac := abs.Mod(scale)

	out := whole.String()
	if !frac.IsZero() {
		fracStr := frac.String()
		for len(fracStr) < int(decimals) {
			fracStr = "0" + fracStr
		}
		fracStr = strings.TrimRight(fracStr, "0")
		out += "." + fracStr
	}
	if neg {
		out = "-" + out
	}
	return out
}

// ParseUnits converts a decimal string into base units. More fractional
// digits than the unit supports is an error, not a silent truncation.
func ParseUnits(s string, decimals uint8) (math.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.Int{}, fmt.Errorf("parse units: empty input")
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	whole := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
		if frac == "" {
			return math.Int{}, fmt.Errorf("parse units: trailing decimal point in %q", s)
		}
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > int(decimals) {
		return math.Int{}, fmt.Errorf("parse units: %q has more than %d fractional digits", s, decimals)
	}

	// Right-pad the fraction to the full width and parse the concatenation.
	for len(frac) < int(decimals) {
		frac += "0"
	}
	combined := whole + frac
	out, ok := math.NewIntFromString(combined)
	if !ok {
		return math.Int{}, fmt.Errorf("parse units: invalid number %q", s)
	}
	if neg {
		out = out.Neg()
	}
	return out, nil
}
