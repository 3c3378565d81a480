// Package sanitize cleans untrusted free text (highlight passages, notes,
// titles) before it is stored or echoed back to a client.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// DefaultMaxLength applies when callers pass a non-positive limit.
const DefaultMaxLength = 1000

// rawInputFactor bounds how much of the raw input is looked at, relative to maxLength.
const rawInputFactor = 8

// maxPasses caps the fixed-point loop; input that keeps changing after this many
// passes is treated as hostile and dropped.
const maxPasses = 8

var (
	strictPolicy = bluemonday.StrictPolicy()

	tagPattern          = regexp.MustCompile(`<[^>]*>`)
	jsURIPattern        = regexp.MustCompile(`(?i)javascript:`)
	eventHandlerPattern = regexp.MustCompile(`(?i)on\w+=`)

	angleBrackets = strings.NewReplacer("<", "", ">", "")
)

// Text returns raw with markup, script URIs, inline event handlers, control and
// invisible code points removed, whitespace collapsed, and the result cut to at
// most maxLength runes. It never fails; the worst case is an empty string.
//
// Cleaning runs to a fixed point before truncating, so Text(Text(s, n), n) == Text(s, n).
func Text(raw string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	s := strings.TrimSpace(capBytes(raw, maxLength*rawInputFactor))
	for i := 0; i < maxPasses; i++ {
		cleaned, ok := clean(s)
		if !ok {
			return ""
		}
		cut := strings.TrimSpace(truncateRunes(cleaned, maxLength))
		if cut == s {
			return s
		}
		s = cut
	}
	return ""
}

// clean applies the pipeline until it stops changing the string.
func clean(s string) (string, bool) {
	for i := 0; i < maxPasses; i++ {
		next := pass(s)
		if next == s {
			return s, true
		}
		s = next
	}
	return "", false
}

func pass(s string) string {
	s = strictPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	s = tagPattern.ReplaceAllString(s, "")
	s = angleBrackets.Replace(s)
	s = jsURIPattern.ReplaceAllString(s, "")
	s = eventHandlerPattern.ReplaceAllString(s, "")
	s = stripInvisible(s)
	return strings.Join(strings.Fields(s), " ")
}

func stripInvisible(s string) string {
	t := transform.Chain(
		runes.ReplaceIllFormed(),
		runes.Map(func(r rune) rune {
			if r == '\t' || r == '\n' || r == '\r' {
				return ' '
			}
			return r
		}),
		runes.Remove(runes.Predicate(isInvisible)),
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		return ""
	}
	return out
}

func isInvisible(r rune) bool {
	switch {
	case r <= 0x1F:
		return true
	case r >= 0x7F && r <= 0x9F:
		return true
	case r >= 0x200B && r <= 0x200F:
		return true
	case r >= 0x202A && r <= 0x202E:
		return true
	case r >= 0x2060 && r <= 0x206F:
		return true
	case r == 0xFEFF, r == utf8.RuneError:
		return true
	}
	return false
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

// capBytes cuts s to at most n bytes without splitting a code point.
func capBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
