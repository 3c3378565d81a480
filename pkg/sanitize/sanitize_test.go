package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"empty", "", 0, ""},
		{"only whitespace", " \t\n ", 0, ""},
		{"plain text", "  The quick brown fox  ", 0, "The quick brown fox"},
		{"script body dropped", "<script>alert('x')</script>Hello", 0, "Hello"},
		{"tags stripped", "a <b>bold</b> move", 0, "a bold move"},
		{"encoded tags stripped", "&lt;script&gt;alert(1)&lt;/script&gt;", 0, "alert(1)"},
		{"javascript uri", "click JavaScript:alert(1)", 0, "click alert(1)"},
		{"event handler", "x onclick=steal()", 0, "x steal()"},
		{"attribute inside tag", `<img src=x onerror=alert(1)>caption`, 0, "caption"},
		{"zero width and bidi", "he\u200bllo\u202e wor\ufeffld", 0, "hello world"},
		{"control characters", "line\x00one\x07", 0, "lineone"},
		{"newlines become spaces", "first\nsecond\r\nthird", 0, "first second third"},
		{"ampersand kept", "Tom & Jerry's", 0, "Tom & Jerry's"},
		{"truncates after cleaning", "abc <b>bold</b>", 6, "abc bo"},
		{"retrims after truncation", "abcd efgh", 5, "abcd"},
		{"spliced javascript", "java\u200bscript:go", 0, "go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.in, tt.max); got != tt.want {
				t.Fatalf("Text(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestText_Idempotent(t *testing.T) {
	inputs := []string{
		"<scr<script>ipt>alert(1)</script>",
		"&amp;lt;b&amp;gt;nested&amp;lt;/b&amp;gt;",
		"onon=click=me",
		"javajavascript:script:void(0)",
		"x &lt",
		"\u200b  spaced\t\tout  \u2060",
		strings.Repeat("<i>ab</i> ", 300),
		"naïve café — résumé",
	}

	for _, in := range inputs {
		for _, max := range []int{0, 3, 7, 50} {
			once := Text(in, max)
			twice := Text(once, max)
			if once != twice {
				t.Fatalf("not idempotent for %q (max %d): %q then %q", in, max, once, twice)
			}
		}
	}
}

func TestText_NoAngleBracketsAfterScript(t *testing.T) {
	inputs := []string{
		"<script>document.cookie</script>",
		"before <script>x()</script> after <",
		"<<script>>alert(1)<</script>>",
		"<script>a</script" + strings.Repeat("x", 990),
	}

	for _, in := range inputs {
		got := Text(in, 0)
		if strings.ContainsAny(got, "<>") {
			t.Fatalf("Text(%q) = %q still contains angle brackets", in, got)
		}
	}
}

func TestText_LengthBound(t *testing.T) {
	long := strings.Repeat("a", 2000)

	if got := Text(long, 0); utf8.RuneCountInString(got) != DefaultMaxLength {
		t.Fatalf("expected default limit %d, got %d", DefaultMaxLength, utf8.RuneCountInString(got))
	}

	multi := strings.Repeat("é", 50)
	got := Text(multi, 10)
	if utf8.RuneCountInString(got) != 10 {
		t.Fatalf("expected 10 runes, got %d (%q)", utf8.RuneCountInString(got), got)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("expected valid utf-8, got %q", got)
	}
}

func TestCapBytes_KeepsRuneBoundary(t *testing.T) {
	s := "aé"
	if got := capBytes(s, 2); got != "a" {
		t.Fatalf("expected cut before multibyte rune, got %q", got)
	}
}
