package utils

import (
	"path"
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxFileNameLength = 120

var (
	controlChars   = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	unsafeFileChar = regexp.MustCompile(`[^\p{L}\p{N}._\-]+`)
)

// SanitizeString removes control characters and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}

// SanitizeFileName reduces an uploaded file name to a single safe path segment.
// Directory parts are dropped, unsafe runs become "_" and the extension is kept when truncating.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(SanitizeString(name))
	name = unsafeFileChar.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}

	if utf8.RuneCountInString(name) > maxFileNameLength {
		ext := path.Ext(name)
		if utf8.RuneCountInString(ext) > 16 {
			ext = ""
		}
		runes := []rune(strings.TrimSuffix(name, ext))
		name = string(runes[:maxFileNameLength-utf8.RuneCountInString(ext)]) + ext
	}
	return name
}

// NormalizeUserIDs trims ids and drops empties and duplicates, keeping first-seen order
func NormalizeUserIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
