// Package present formats entries for display. Everything here is pure.
package present

import (
	"fmt"
	"strings"
	"time"
)

// DefaultPreviewLength is the number of characters kept by Preview.
const DefaultPreviewLength = 100

const (
	// DateLayout renders like "Oct 14, 2026, 09:00 AM".
	DateLayout = "Jan 2, 2006, 03:04 PM"
	ellipsis   = "..."
)

var flatten = strings.NewReplacer("**", "", "\r\n", " ", "\n", " ", "\r", " ")

// Preview flattens diary text to one line and truncates it to n characters,
// adding an ellipsis only when something was cut. n <= 0 uses the default.
func Preview(diary string, n int) string {
	if n <= 0 {
		n = DefaultPreviewLength
	}

	text := []rune(flatten.Replace(diary))
	if len(text) <= n {
		return string(text)
	}
	return string(text[:n]) + ellipsis
}

// FormatDate renders t in its own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Heading is the title line used for a single entry.
func Heading(id int64, t time.Time) string {
	return fmt.Sprintf("Entry #%d · %s", id, FormatDate(t))
}
