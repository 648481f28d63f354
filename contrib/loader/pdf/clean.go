package pdf

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reSpaces   = regexp.MustCompile(`[ \t]+`)
	reNewlines = regexp.MustCompile(`\n{3,}`)

	ligatures = strings.NewReplacer(
		"ﬁ", "fi", "ﬂ", "fl",
		"\u00a0", " ",
		"\r\n", "\n", "\r", "\n",
	)
)

// Clean normalises extracted page text: control characters are dropped,
// common ligatures are expanded, runs of spaces collapse to one and runs of
// blank lines collapse to a single blank line.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	b := ligatures.Replace(text)

	// remove control chars except newline
	b = strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		if r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, b)

	b = reSpaces.ReplaceAllString(b, " ")

	lines := strings.Split(b, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	b = strings.Join(lines, "\n")

	b = reNewlines.ReplaceAllString(b, "\n\n")

	return strings.TrimSpace(b)
}
