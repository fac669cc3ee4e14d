package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// dniLetters maps number mod 23 to the DNI/NIE control letter.
const dniLetters = "TRWAGMYFPDXBNJZSQVHLCKE"

var (
	dniRe   = regexp.MustCompile(`^(\d{8})([A-Z])$`)
	nieRe   = regexp.MustCompile(`^([XYZ])(\d{7})([A-Z])$`)
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// ValidDNI reports whether the (already normalized) identifier is a
// well-formed Spanish DNI or NIE, control letter included.
func ValidDNI(id string) bool {
	if m := dniRe.FindStringSubmatch(id); m != nil {
		n, _ := strconv.Atoi(m[1])
		return m[2] == string(dniLetters[n%23])
	}
	if m := nieRe.FindStringSubmatch(id); m != nil {
		// NIE prefix letter stands for a leading digit
		prefix := map[string]string{"X": "0", "Y": "1", "Z": "2"}[m[1]]
		n, _ := strconv.Atoi(prefix + m[2])
		return m[3] == string(dniLetters[n%23])
	}
	return false
}

// PlausibleNSS reports whether the (already normalized) identifier looks
// like a social security number: all digits, 8 to 12 of them. The exports
// routinely drop leading zeros, so the full 12-digit shape cannot be
// required.
func PlausibleNSS(id string) bool {
	if len(id) < 8 || len(id) > 12 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidEmail reports whether the string is a syntactically plausible email.
func ValidEmail(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

// NumericID parses an external (LMS) numeric id. Zero and negative values
// mean "absent" in the exports.
func NumericID(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
