package feed

import (
	"strings"
	"time"
)

// TimestampLayout is the iCalendar UTC DATE-TIME form.
const TimestampLayout = "20060102T150405Z"

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	"\n", `\n`,
	"\r", "",
)

// Escape encodes a free-text value for a TEXT property.
func Escape(text string) string {
	if text == "" {
		return ""
	}
	return textEscaper.Replace(text)
}

// FormatTimestamp renders t as a UTC instant without fractional seconds.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
