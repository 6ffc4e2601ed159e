package metrics

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultWorkdayHours is the length of a "day" token when none is configured.
const DefaultWorkdayHours = 8

// durationPattern matches "<number> <unit>" tokens. Longer unit spellings come first
// so "hours" is never read as "h".
const durationPattern = `(\d+(?:\.\d+)?)\s*(minutes|minute|mins|min|hours|hour|hrs|hr|h|days|day|d)\b`

// durationRe requires the number to start a word, so node ids such as S1D or
// P2H are not read as durations. Group 1 is the boundary character, group 2 the token.
var durationRe = regexp.MustCompile(`(?i)(^|[^A-Za-z0-9_.])(` + durationPattern + `)`)

// Duration is one duration token found in text.
type Duration struct {
	Raw     string
	Minutes float64
}

// DurationParser converts duration tokens to minutes.
type DurationParser struct {
	workdayHours float64
}

// NewDurationParser returns a parser where one day equals workdayHours hours.
func NewDurationParser(workdayHours float64) DurationParser {
	if workdayHours <= 0 {
		workdayHours = DefaultWorkdayHours
	}
	return DurationParser{workdayHours: workdayHours}
}

// Find returns every duration token in s, in order.
func (p DurationParser) Find(s string) []Duration {
	var out []Duration
	for _, m := range durationRe.FindAllStringSubmatch(s, -1) {
		n, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			continue
		}
		out = append(out, Duration{Raw: m[2], Minutes: n * p.unitMinutes(m[4])})
	}
	return out
}

// ToMinutes sums all duration tokens in s. ok is false when s has none.
func (p DurationParser) ToMinutes(s string) (total float64, ok bool) {
	for _, d := range p.Find(s) {
		total += d.Minutes
		ok = true
	}
	return total, ok
}

func (p DurationParser) unitMinutes(unit string) float64 {
	switch strings.ToLower(unit) {
	case "h", "hr", "hrs", "hour", "hours":
		return 60
	case "d", "day", "days":
		return p.workdayHours * 60
	}
	return 1
}

// FormatMinutes renders minutes as "H hour(s)[ M minute(s)]" from one hour
// upward and as "M minute(s)" below.
func FormatMinutes(minutes float64) string {
	total := int(math.Round(minutes))
	if total < 60 {
		return plural(total, "minute")
	}
	h, m := total/60, total%60
	if m == 0 {
		return plural(h, "hour")
	}
	return plural(h, "hour") + " " + plural(m, "minute")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
