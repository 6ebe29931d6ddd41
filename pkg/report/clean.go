package report

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reBullet        = regexp.MustCompile(`^\s*[\x{2022}\x{2023}\x{25E6}\x{2043}\x{2219}*\-\x{2013}\x{2014}]+\s+`)
	reDashRun       = regexp.MustCompile(`[\x{2013}\x{2014}-]{2,}`)
	reSpaceRun      = regexp.MustCompile(`[ \t]+`)
	reBrokenNewline = regexp.MustCompile(`([a-z,;])\n([a-z])`)
)

// CleanText normalizes raw report text before chunking: strips leading
// bullets and dash runs, rejoins paragraphs broken mid-sentence by PDF line
// wrapping, drops control characters, and collapses whitespace runs.
func CleanText(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = reBullet.ReplaceAllString(line, "")
		line = reDashRun.ReplaceAllString(line, " ")
		line = stripControl(line)
		line = reSpaceRun.ReplaceAllString(line, " ")
		cleaned = append(cleaned, strings.TrimRight(line, " "))
	}

	out := strings.Join(cleaned, "\n")
	// a lowercase letter followed by a line break followed by another
	// lowercase letter is a wrapped line, not a paragraph boundary
	out = reBrokenNewline.ReplaceAllString(out, "$1 $2")
	out = reExcessNewlines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
