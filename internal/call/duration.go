package call

import (
	"math"
	"regexp"
	"strconv"
)

// DefaultSessionSeconds is used when the duration label carries no usable number.
const DefaultSessionSeconds = 5 * 60

var leadingInt = regexp.MustCompile(`^\s*(\d+)`)

// ParseDurationLabel turns labels such as "15 Min" into seconds. The leading integer is
// read as minutes; anything else falls back to DefaultSessionSeconds.
func ParseDurationLabel(label string) int {
	m := leadingInt.FindStringSubmatch(label)
	if m == nil {
		return DefaultSessionSeconds
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 || n > math.MaxInt32/60 {
		return DefaultSessionSeconds
	}
	return n * 60
}
