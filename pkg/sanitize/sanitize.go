package sanitize

import (
	"strings"
	"unicode"
)

// Filename strips characters that could break out of storage paths or HTTP
// headers: path separators, quotes, newlines, control characters.
func Filename(filename string) string {
	filename = strings.NewReplacer(
		"\x00", "",
		"\n", "",
		"\r", "",
		`"`, "",
		`'`, "",
		`\`, "",
		"/", "",
	).Replace(filename)

	result := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, filename)

	result = strings.TrimSpace(result)
	result = strings.Trim(result, ".")

	if result == "" {
		return "download"
	}

	// Keep headers and filesystem names bounded.
	if len(result) > 200 {
		result = result[:200]
	}

	return result
}

// ForHeader sanitizes a filename for use in Content-Disposition headers,
// replacing non-ASCII runes for maximum client compatibility.
func ForHeader(filename string) string {
	safe := Filename(filename)

	return strings.Map(func(r rune) rune {
		if r > 127 {
			return '_'
		}
		return r
	}, safe)
}
