// Package mctext parses Minecraft § formatting codes into styled runs.
package mctext

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type Style struct {
	Color         RGB
	Bold          bool
	Italic        bool
	Underline     bool
	Strikethrough bool
	Obfuscated    bool
}

// DefaultStyle is the state at the start of input and after §r.
func DefaultStyle() Style {
	return Style{Color: White}
}

// Apply returns the style after a single code. Unknown codes leave s unchanged.
func (s Style) Apply(code rune) Style {
	code = unicode.ToLower(code)
	if c, ok := ColorFor(code); ok {
		s.Color = c
		return s
	}
	switch code {
	case CodeObfuscated:
		s.Obfuscated = true
	case CodeBold:
		s.Bold = true
	case CodeItalic:
		s.Italic = true
	case CodeUnderline:
		s.Underline = true
	case CodeStrikethrough:
		s.Strikethrough = true
	case CodeReset:
		s = DefaultStyle()
	}
	return s
}

type Run struct {
	Text string
	Style
}

// Len is the rune length of the run's text.
func (r Run) Len() int { return utf8.RuneCountInString(r.Text) }

// Tokenize splits input into runs of uniformly styled text.
// A marker is § plus one code rune and always consumes both; a trailing § is literal.
// Empty spans between markers never produce a run.
func Tokenize(input string) []Run {
	var (
		runs []Run
		cur  = DefaultStyle()
		buf  strings.Builder
	)
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		runs = append(runs, Run{Text: buf.String(), Style: cur})
		buf.Reset()
	}

	for i := 0; i < len(input); {
		r, n := utf8.DecodeRuneInString(input[i:])
		if r == Marker && i+n < len(input) {
			code, m := utf8.DecodeRuneInString(input[i+n:])
			flush()
			cur = cur.Apply(code)
			i += n + m
			continue
		}
		buf.WriteString(input[i : i+n])
		i += n
	}
	flush()
	return runs
}

// Strip returns input with every marker removed.
func Strip(input string) string {
	var b strings.Builder
	for _, r := range Tokenize(input) {
		b.WriteString(r.Text)
	}
	return b.String()
}
