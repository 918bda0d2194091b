package validation

import (
	"mime"
	"path"
	"strings"
	"unicode/utf8"
)

const maxFilenameLength = 255

// SanitizeFilename turns the last element of a library path into a name that
// is safe inside a Content-Disposition header.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r < 32 || r == 127:
			return '_'
		case r == '"' || r == '/' || r == ':' || r == ';':
			return '_'
		}
		return r
	}, name)
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" || cleaned == "." || cleaned == ".." || strings.Trim(cleaned, "_") == "" {
		return "file"
	}
	if len(cleaned) > maxFilenameLength {
		cleaned = truncateKeepingExt(cleaned)
	}
	return cleaned
}

func truncateKeepingExt(name string) string {
	ext := path.Ext(name)
	if ext == "" || len(ext) >= maxFilenameLength/2 {
		return truncateToBytes(name, maxFilenameLength)
	}
	base := strings.TrimSuffix(name, ext)
	return truncateToBytes(base, maxFilenameLength-len(ext)) + ext
}

// truncateToBytes cuts s to at most n bytes on a rune boundary.
func truncateToBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// ContentDisposition returns an attachment header value for name. Non ASCII
// names are carried in the RFC 5987 filename* parameter.
func ContentDisposition(name string) string {
	v := mime.FormatMediaType("attachment", map[string]string{"filename": SanitizeFilename(name)})
	if v == "" {
		return `attachment; filename="file"`
	}
	return v
}
