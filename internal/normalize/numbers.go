package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// maxDurationSeconds is the positive bound stored durations are clamped to.
// The legacy store keeps connection time in a signed 32-bit column.
const maxDurationSeconds = math.MaxInt32

var (
	hmsRe     = regexp.MustCompile(`^(\d{1,5}):([0-5]?\d):([0-5]?\d)$`)
	spelledRe = regexp.MustCompile(`^\s*(?:(\d+)\s*h)?\s*(?:(\d+)\s*m)?\s*(?:(\d+)\s*s)?\s*$`)
)

// Duration parses a connection-time value into whole seconds.
// Accepted shapes: "HH:MM:SS", spelled units ("06h 14m 24s"), or a raw
// integer. Raw integers above the 32-bit bound are reinterpreted as
// milliseconds and divided by 1000 before the bound check; whatever survives
// is clamped into [0, MaxInt32]. Returns ok=false for anything unparsable.
func Duration(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	if m := hmsRe.FindStringSubmatch(s); m != nil {
		h, _ := strconv.ParseInt(m[1], 10, 64)
		mi, _ := strconv.ParseInt(m[2], 10, 64)
		sec, _ := strconv.ParseInt(m[3], 10, 64)
		return clampSeconds(h*3600 + mi*60 + sec), true
	}

	if m := spelledRe.FindStringSubmatch(s); m != nil && (m[1] != "" || m[2] != "" || m[3] != "") {
		var total int64
		if m[1] != "" {
			h, _ := strconv.ParseInt(m[1], 10, 64)
			total += h * 3600
		}
		if m[2] != "" {
			mi, _ := strconv.ParseInt(m[2], 10, 64)
			total += mi * 60
		}
		if m[3] != "" {
			sec, _ := strconv.ParseInt(m[3], 10, 64)
			total += sec
		}
		return clampSeconds(total), true
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	if n > maxDurationSeconds {
		n /= 1000
	}
	return clampSeconds(n), true
}

func clampSeconds(n int64) int64 {
	if n < 0 {
		return 0
	}
	if n > maxDurationSeconds {
		return maxDurationSeconds
	}
	return n
}

// Percent parses a completion percentage, clamps it into [0,100] and rounds
// to two decimals. Comma decimal separators from the Spanish exports are
// accepted.
func Percent(raw string) (float64, bool) {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return math.Round(v*100) / 100, true
}

// dateLayouts are tried in order after the ISO parse.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
}

// Date parses the date shapes seen in the exports: RFC3339/ISO timestamps,
// dd/mm/yyyy and dd-mm-yyyy (day first, these are Spanish exports),
// yyyy-mm-dd and yyyy/mm/dd, and epoch seconds or milliseconds.
// Returns ok=false for anything else; it never guesses.
func Date(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	// Epoch seconds (10 digits) or milliseconds (13 digits).
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		switch len(s) {
		case 10:
			return time.Unix(n, 0).UTC(), true
		case 13:
			return time.UnixMilli(n).UTC(), true
		}
	}

	return time.Time{}, false
}

// Hours parses a course duration in hours, tolerating comma decimals.
func Hours(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
