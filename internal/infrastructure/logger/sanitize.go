package logger

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxLoggedPath bounds how much of a user supplied path ends up in a log line.
const maxLoggedPath = 512

// SanitizeForLog escapes control characters so request data cannot forge log
// entries or drive the terminal. Printable Unicode passes through.
func SanitizeForLog(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizePath sanitizes p and keeps only its tail when it is very long; the
// file name end of a path is the useful part when reading logs.
func SanitizePath(p string) string {
	s := SanitizeForLog(p)
	if len(s) <= maxLoggedPath {
		return s
	}
	cut := len(s) - maxLoggedPath
	for cut < len(s) && !utf8.RuneStart(s[cut]) {
		cut++
	}
	return "..." + s[cut:]
}
