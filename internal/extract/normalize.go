// Package extract turns free-form Thai and English replies into typed interview values.
//
// Every function is pure. Input is normalized first: full-width forms are folded,
// the text is NFC-composed, Thai tone marks typed before an above-vowel are moved
// after it, and the result is trimmed and lower-cased.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Status reports the outcome of an extractor that can also recognize a skip.
type Status int

const (
	Miss Status = iota
	Matched
	Skipped
)

func (s Status) String() string {
	switch s {
	case Matched:
		return "matched"
	case Skipped:
		return "skipped"
	default:
		return "miss"
	}
}

// Normalize prepares text for keyword matching.
func Normalize(text string) string {
	s := width.Fold.String(text)
	s = norm.NFC.String(s)
	s = reorderThaiMarks(s)
	return strings.ToLower(strings.TrimSpace(s))
}

func isThaiTone(r rune) bool {
	return r >= '่' && r <= '๋'
}

func isThaiAboveVowel(r rune) bool {
	return r == 'ั' || (r >= 'ิ' && r <= 'ื')
}

// reorderThaiMarks rewrites tone+vowel into the standard vowel+tone order.
func reorderThaiMarks(s string) string {
	runes := []rune(s)
	changed := false
	for i := 0; i+1 < len(runes); i++ {
		if isThaiTone(runes[i]) && isThaiAboveVowel(runes[i+1]) {
			runes[i], runes[i+1] = runes[i+1], runes[i]
			changed = true
			i++
		}
	}
	if !changed {
		return s
	}
	return string(runes)
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

var wordPatterns = map[string]*regexp.Regexp{}

// containsWord matches short English tokens on ASCII word boundaries.
func containsWord(s string, words ...string) bool {
	for _, w := range words {
		re, ok := wordPatterns[w]
		if !ok {
			re = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
		}
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func init() {
	for _, w := range []string{"no", "yes", "ok", "okay", "wrong", "add", "edit", "change", "confirm", "correct", "cancel", "pla", "opp", "pvc", "aq", "art"} {
		wordPatterns[w] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
	}
}

// parseCount parses a digit run that may contain thousands separators.
func parseCount(s string) (int, bool) {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}
