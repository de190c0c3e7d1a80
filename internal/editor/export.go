package editor

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// ExportFilename derives the download name from the activity name and
// a timestamp. An unset activity falls back to "overlay".
func ExportFilename(activityName, format string, now time.Time) string {
	slug := slugify(activityName)
	if slug == "" {
		slug = "overlay"
	}
	ext := format
	if ext == "jpeg" {
		ext = "jpg"
	}
	return fmt.Sprintf("%s-%s.%s", slug, now.Format("20060102-150405"), ext)
}

// slugify lowercases and keeps letters and digits, collapsing
// everything else into single hyphens.
func slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
