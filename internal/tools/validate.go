package tools

import "math"

// MaxIdentifierLen matches PostgreSQL's NAMEDATALEN-1.
const MaxIdentifierLen = 63

// Limits for get_table_sample and search_table.
const (
	DefaultSampleLimit = 5
	DefaultSearchLimit = 10
	MaxLimit           = 100
)

// ValidIdentifier reports whether name is at most MaxIdentifierLen bytes,
// made only of ASCII letters, digits, '_' and '-', and has at least one
// letter or digit.
func ValidIdentifier(name string) bool {
	if len(name) > MaxIdentifierLen {
		return false
	}
	alnum := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			alnum = true
		case c == '_', c == '-':
		default:
			return false
		}
	}
	return alnum
}

// ClampLimit caps n at MaxLimit. Smaller values, including zero and
// negatives, pass through for the database to judge.
func ClampLimit(n int) int {
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// LimitFromNumber turns a JSON number into a limit. The cap is applied
// before the conversion so values beyond the int range cannot wrap.
func LimitFromNumber(f float64) int {
	switch {
	case math.IsNaN(f):
		return 0
	case f > MaxLimit:
		return MaxLimit
	case f < math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}
