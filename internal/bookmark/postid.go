package bookmark

import (
	"math"
	"strconv"
	"strings"
)

// ParsePostID turns a request value into a post id. In strict mode anything
// that is not a positive base-10 integer is rejected. Otherwise the value is
// coerced the way the host's integer cast does: surrounding whitespace and
// a sign are accepted, leading digits are kept and anything else becomes 0.
func ParsePostID(raw string, strict bool) (int64, error) {
	if strict {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return 0, ErrInvalidPostID
		}
		return id, nil
	}
	return coerceInt(raw), nil
}

func coerceInt(raw string) int64 {
	s := strings.TrimLeft(raw, " \t\n\r\v\f")
	negative := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		negative = s[0] == '-'
		s = s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}

	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		// Saturate like the host does on overflow
		if negative {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	if negative {
		return -n
	}
	return n
}
