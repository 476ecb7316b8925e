package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"09:00", 9 * time.Hour, false},
		{"23:59", 23*time.Hour + 59*time.Minute, false},
		{" 07:05 ", 7*time.Hour + 5*time.Minute, false},
		{"09:15:30", 9*time.Hour + 15*time.Minute, false},
		{"24:00", 0, true},
		{"9am", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeClock(t *testing.T) {
	got, err := NormalizeClock("9:05")
	require.NoError(t, err)
	assert.Equal(t, "09:05", got)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("06/01/2024")
	assert.Error(t, err)
}

func TestMagicLinkValidity(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	link := &MagicLink{ExpiresAt: now.Add(MagicLinkTTL)}
	assert.True(t, link.IsValid(now))

	link.Used = true
	assert.False(t, link.IsValid(now))

	link.Used = false
	assert.False(t, link.IsValid(now.Add(16*time.Minute)))
	assert.True(t, link.IsExpired(now.Add(16*time.Minute)))
}
