// Package textnorm cleans and validates the free-text cell values found in
// survey exports: names, student numbers, emails and graduation years.
package textnorm

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// MinIDLength is the shortest cleaned student number accepted anywhere.
	MinIDLength = 5
	// MinYear and MaxYear bound a valid graduation year.
	MinYear = 2000
	MaxYear = 2035
)

var (
	emailPattern      = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)
	leadingTagPattern = regexp.MustCompile(`^\([^)]+\)\s*`)
	spaceRun          = regexp.MustCompile(`\s+`)
	quoteStripper     = strings.NewReplacer(`"`, "", `'`, "")
)

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func clean(raw string, keepAt bool) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	t := quoteStripper.Replace(strings.TrimSpace(norm.NFC.String(raw)))
	t = strings.Map(func(r rune) rune {
		switch {
		case isWord(r), unicode.IsSpace(r):
			return r
		case r == '-', r == '.', r == ',', r == '(', r == ')', r == '/':
			return r
		case keepAt && r == '@':
			return r
		}
		return -1
	}, t)
	t = strings.TrimSpace(t)
	if t == "" || strings.EqualFold(t, "nan") {
		return "", false
	}
	return t, true
}

// Text returns the cleaned value, or false when nothing meaningful remains.
func Text(raw string) (string, bool) {
	return clean(raw, false)
}

// TextKeepAt is Text that also preserves '@', used for free-text columns
// that may carry contact details.
func TextKeepAt(raw string) (string, bool) {
	return clean(raw, true)
}

// ID cleans a student number and reports whether it is long enough to be used.
func ID(raw string) (string, bool) {
	t := quoteStripper.Replace(strings.TrimSpace(raw))
	t = strings.Map(func(r rune) rune {
		if isWord(r) {
			return r
		}
		return -1
	}, t)
	if utf8.RuneCountInString(t) < MinIDLength {
		return "", false
	}
	return t, true
}

// Email lowercases and validates an address.
func Email(raw string) (string, bool) {
	t := strings.TrimSpace(quoteStripper.Replace(strings.ToLower(raw)))
	if t == "" || !emailPattern.MatchString(t) {
		return "", false
	}
	return t, true
}

// Year parses a graduation year. Fractional input such as "2021.0" is truncated.
func Year(raw string) (int, bool) {
	t := strings.TrimSpace(quoteStripper.Replace(raw))
	if t == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	y := int(f)
	if y < MinYear || y > MaxYear {
		return 0, false
	}
	return y, true
}

// Name trims a person or entity name, drops a leading "(S1) "-style tag and
// collapses inner whitespace.
func Name(raw string) (string, bool) {
	t := strings.TrimSpace(norm.NFC.String(raw))
	t = leadingTagPattern.ReplaceAllString(t, "")
	t = strings.TrimSpace(spaceRun.ReplaceAllString(t, " "))
	if t == "" {
		return "", false
	}
	return t, true
}

// Key is the comparison form of a header: lowercase, underscores as spaces,
// single-spaced.
func Key(raw string) string {
	t := strings.ToLower(strings.ReplaceAll(raw, "_", " "))
	return strings.TrimSpace(spaceRun.ReplaceAllString(t, " "))
}

func isASCIIDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// LooksLikeNIM reports whether a cell is an 8 to 12 digit student number.
func LooksLikeNIM(v string) bool {
	t := strings.TrimSpace(quoteStripper.Replace(v))
	return isASCIIDigits(t) && len(t) >= 8 && len(t) <= 12
}

// LooksLikeName reports whether a cell could plausibly hold a person's name.
func LooksLikeName(v string) bool {
	t := strings.TrimSpace(v)
	if t == "" {
		return false
	}
	if isASCIIDigits(strings.ReplaceAll(t, " ", "")) {
		return false
	}
	n := utf8.RuneCountInString(t)
	return n > 3 && n < 50
}

// IsLower mirrors the usual "is lowercase" string test: at least one cased
// rune and no uppercase or titlecase runes.
func IsLower(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsLower(r) {
			cased = true
		}
	}
	return cased
}

// LooksLikePersonName is the heuristic used to reject person names that were
// typed into a faculty field: one to four words, mostly letters, and nearly
// every word capitalized.
func LooksLikePersonName(v string) bool {
	t := strings.TrimSpace(v)
	if t == "" || strings.Contains(strings.ToLower(t), "fakultas") {
		return false
	}
	words := strings.Fields(t)
	if len(words) < 1 || len(words) > 4 {
		return false
	}

	total, alpha := 0, 0
	for _, r := range t {
		total++
		if unicode.IsLetter(r) {
			alpha++
		}
	}
	if float64(alpha)/float64(max(1, total)) < 0.8 {
		return false
	}

	proper := 0
	for _, w := range words {
		first, size := utf8.DecodeRuneInString(w)
		if unicode.IsUpper(first) && IsLower(w[size:]) {
			proper++
		}
	}
	return proper >= max(1, len(words)-1)
}
