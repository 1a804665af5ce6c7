package normalizer

import (
	"math"
	"strconv"
	"strings"
)

// ParseAmount strips every character that is not an ASCII digit or a decimal
// point and parses the rest as a decimal. Thousands separators and minus signs
// are dropped, so "-1,234.50" becomes 1234.5. Returns nil when nothing
// parseable remains.
func ParseAmount(text *string) *float64 {
	if text == nil {
		return nil
	}
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, *text)
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

// ParseQuantity applies ParseAmount and truncates the result to a whole count.
// Values that do not fit in an int64 are nil. float64(math.MaxInt64) rounds up
// to 2^63, so the bound is exclusive.
func ParseQuantity(text *string) *int64 {
	v := ParseAmount(text)
	if v == nil || *v >= math.MaxInt64 {
		return nil
	}
	q := int64(math.Trunc(*v))
	return &q
}
