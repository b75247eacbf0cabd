package cleanup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAge(t *testing.T) {
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"1 month", time.Date(2024, time.February, 15, 12, 0, 0, 0, time.UTC)},
		{"1month", time.Date(2024, time.February, 15, 12, 0, 0, 0, time.UTC)},
		{"1 Month", time.Date(2024, time.February, 15, 12, 0, 0, 0, time.UTC)},
		{"0 days", now},
		{"2 weeks 3 days", time.Date(2024, time.February, 27, 12, 0, 0, 0, time.UTC)},
		{"1 year, 2 hours", time.Date(2023, time.March, 15, 10, 0, 0, 0, time.UTC)},
		{"+1 fortnight", time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)},
		{"90 seconds", now.Add(-90 * time.Second)},
		{"72h", now.Add(-72 * time.Hour)},
		{"1h30m", now.Add(-90 * time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			age, err := ParseAge(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, age.Cutoff(now))
			assert.Equal(t, tt.in, age.String())
		})
	}
}

func TestParseAgeErrors(t *testing.T) {
	for _, in := range []string{"", "   ", "month", "1 lightyear", "-1 day", "-72h", "yesterday", "1 month ago",
		"3000000 hours", "9223372036854775807 seconds", "2562047 hours 2562047 hours",
		"1001 years", "100000 months", "999 years 1000 weeks"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseAge(in)
			assert.ErrorIs(t, err, ErrInvalidAge)
		})
	}
}

func TestExpiredBoundary(t *testing.T) {
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	age, err := ParseAge("1 day")
	require.NoError(t, err)
	cutoff := age.Cutoff(now)

	// Exactly one day old has not reached the age yet
	assert.False(t, Expired(now.Add(-24*time.Hour), cutoff))
	assert.True(t, Expired(now.Add(-24*time.Hour-time.Second), cutoff))
	assert.False(t, Expired(now, cutoff))
}

func TestLargeAgeCutoffStaysInPast(t *testing.T) {
	now := time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)
	for _, in := range []string{"2562047 hours", "1000 years", "500 years 2562047 hours"} {
		t.Run(in, func(t *testing.T) {
			age, err := ParseAge(in)
			require.NoError(t, err)
			cutoff := age.Cutoff(now)
			assert.True(t, cutoff.Before(now))
			assert.False(t, Expired(now.Add(-time.Minute), cutoff))
		})
	}
}
