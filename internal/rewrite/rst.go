package rewrite

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// displayWidth returns the column width of s, counting East Asian wide and
// fullwidth runes as two columns. Docutils measures section underlines in
// display columns, not runes.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			w += 2
		default:
			w++
		}
	}
	return w
}

// underlineFor builds a section underline spanning the display width of title.
func underlineFor(title string, adornment rune) string {
	return strings.Repeat(string(adornment), displayWidth(title))
}

// isUnderline reports whether line is a section underline: a non-empty run of
// one repeated adornment character.
func isUnderline(line string) bool {
	runes := []rune(strings.TrimRight(line, " "))
	if len(runes) == 0 {
		return false
	}
	first := runes[0]
	if !unicode.IsPunct(first) && !unicode.IsSymbol(first) {
		return false
	}
	for _, r := range runes {
		if r != first {
			return false
		}
	}
	return true
}

// findTitle locates the first section title: the first non-empty line
// directly followed by an underline. Returns -1 when none exists.
func findTitle(lines []string) int {
	for i := 0; i+1 < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		if isUnderline(lines[i+1]) {
			return i
		}
		return -1
	}
	return -1
}

// adornmentOf returns the underline's adornment character, '=' when the line
// is empty.
func adornmentOf(line string) rune {
	for _, r := range line {
		return r
	}
	return '='
}

// collapseWhitespace folds runs of whitespace (including newlines) into
// single spaces, producing a one-line paragraph.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
