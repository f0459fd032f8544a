package transform

import (
	"bytes"
	"strings"
)

const defaultIndentUnit = "    "

// detectIndentUnit guesses the file's indentation step from the most common
// positive indent change between consecutive non-blank lines.
func detectIndentUnit(src []byte) string {
	lines := bytes.Split(src, []byte("\n"))
	counts := make(map[int]int)
	prev := 0
	tabs, spaces := 0, 0
	for _, line := range lines {
		trimmed := bytes.TrimLeft(line, " \t")
		if len(bytes.TrimSpace(trimmed)) == 0 || trimmed[0] == '*' {
			continue
		}
		lead := line[:len(line)-len(trimmed)]
		if len(lead) > 0 {
			if lead[0] == '\t' {
				tabs++
			} else {
				spaces++
			}
		}
		width := len(lead)
		if width > prev {
			counts[width-prev]++
		}
		prev = width
	}
	if tabs > spaces {
		return "\t"
	}
	best, bestCount := 0, 0
	for delta, n := range counts {
		if n > bestCount || (n == bestCount && delta < best) {
			best, bestCount = delta, n
		}
	}
	if best == 0 || best > 8 {
		return defaultIndentUnit
	}
	return strings.Repeat(" ", best)
}

// detectNewline returns "\r\n" for files that use it, "\n" otherwise.
func detectNewline(src []byte) string {
	if i := bytes.IndexByte(src, '\n'); i > 0 && src[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

// lineIndent returns the leading whitespace of the line containing offset.
func lineIndent(src []byte, offset uint) string {
	start := int(offset)
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	end := start
	for end < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	return string(src[start:end])
}

// endsStatement reports whether the last significant byte before offset
// leaves a following `(` at statement start. offset must not fall after a
// comment.
func endsStatement(src []byte, offset uint) bool {
	i := int(offset)
	for i > 0 {
		switch src[i-1] {
		case ' ', '\t', '\n', '\r':
			i--
			continue
		case ';', '{', '}':
			return true
		}
		return false
	}
	return true
}
