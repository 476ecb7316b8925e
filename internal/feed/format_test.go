package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Team Sync", "Team Sync"},
		{"backslash", `C:\temp`, `C:\\temp`},
		{"semicolon", "a;b", `a\;b`},
		{"comma", "Berlin, Germany", `Berlin\, Germany`},
		{"newline", "line1\nline2", `line1\nline2`},
		{"crlf", "line1\r\nline2", `line1\nline2`},
		{"lone cr", "a\rb", "ab"},
		{"escaped sequence stays literal", `\n`, `\\n`},
		{"mixed", "a\\b;c,d\ne", `a\\b\;c\,d\ne`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Escape(tt.in))
		})
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	inputs := []string{
		`back\slash`,
		"semi;colon",
		"com,ma",
		"new\nline",
		"all\\ of;them,\ntogether\\n",
		`\;,`,
	}

	r := NewRenderer("", "")
	for _, in := range inputs {
		doc := r.Render(Snapshot{
			Calendar: Calendar{Name: in},
			Events: []Event{{
				ID:          "e1",
				Title:       in,
				Description: in,
				Location:    in,
				Date:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			}},
		}, time.Now())

		cal, err := ical.NewDecoder(strings.NewReader(doc)).Decode()
		require.NoError(t, err, "input %q", in)

		name, err := cal.Props.Text("X-WR-CALNAME")
		require.NoError(t, err)
		assert.Equal(t, in, name)

		events := cal.Events()
		require.Len(t, events, 1)
		for _, prop := range []string{ical.PropSummary, ical.PropDescription, ical.PropLocation} {
			got, err := events[0].Props.Text(prop)
			require.NoError(t, err)
			assert.Equal(t, in, got, "%s of %q", prop, in)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2024, 6, 1, 11, 0, 0, 999_000_000, loc)

	assert.Equal(t, "20240601T090000Z", FormatTimestamp(ts))
	assert.Equal(t, "20241231T235959Z", FormatTimestamp(time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)))
}
