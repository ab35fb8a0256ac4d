package datetime

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{name: "iso", input: "2024-01-15", want: "2024-01-15", ok: true},
		{name: "iso single digits", input: "2024-1-5", want: "2024-01-05", ok: true},
		{name: "day first slash", input: "15/01/2024", want: "2024-01-15", ok: true},
		{name: "day first slash is not swapped", input: "03/04/2024", want: "2024-04-03", ok: true},
		{name: "day first dash", input: "15-01-2024", want: "2024-01-15", ok: true},
		{name: "year first slash", input: "2024/01/15", want: "2024-01-15", ok: true},
		{name: "surrounding spaces", input: "  2024-01-15 ", want: "2024-01-15", ok: true},
		{name: "impossible day first falls back to month first", input: "04/13/2024", want: "2024-04-13", ok: true},
		{name: "generic long form", input: "January 15, 2024", want: "2024-01-15", ok: true},
		{name: "iso impossible day", input: "2024-02-30", ok: false},
		{name: "no shape at all", input: "not-a-date", ok: false},
		{name: "empty", input: "", ok: false},
		{name: "month thirteen both ways", input: "13/13/2024", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, FormatDate(got))
				assert.Equal(t, time.UTC, got.Location())
				assert.Zero(t, got.Hour())
			}
		})
	}
}

func TestParseDateLeapDay(t *testing.T) {
	_, ok := ParseDate("29/02/2024")
	assert.True(t, ok)

	_, ok = ParseDate("2023-02-29")
	assert.False(t, ok)
}

func TestParseDateRoundTrip(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for d := start; d.Year() < 2025; d = d.AddDate(0, 0, 1) {
		s := FormatDate(d)
		got, ok := ParseDate(s)
		require.True(t, ok, s)
		require.Equal(t, s, FormatDate(got))
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"09:00", "09:00", true},
		{"9:00", "09:00", true},
		{"0:05", "00:05", true},
		{"23:59", "23:59", true},
		{" 14:30 ", "14:30", true},
		{"2:30 PM", "14:30", true},
		{"2:30pm", "14:30", true},
		{"12:00 AM", "00:00", true},
		{"12:15 pm", "12:15", true},
		{"11:59PM", "23:59", true},
		{"7:05   am", "07:05", true},
		{"24:00", "", false},
		{"12:60", "", false},
		{"13:00 PM", "", false},
		{"0:30 AM", "", false},
		{"9am", "", false},
		{"09:00:00", "", false},
		{"", "", false},
		{"noon", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseTime(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimeIdempotent(t *testing.T) {
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m++ {
			canonical := fmt.Sprintf("%02d:%02d", h, m)
			got, ok := ParseTime(canonical)
			require.True(t, ok)
			require.Equal(t, canonical, got)
		}
	}
}

func TestValidTimeRange(t *testing.T) {
	assert.True(t, ValidTimeRange("09:00", "09:30"))
	assert.True(t, ValidTimeRange("9:00 AM", "1:00 PM"))
	assert.False(t, ValidTimeRange("10:00", "09:00"))
	assert.False(t, ValidTimeRange("09:00", "09:00"))
	assert.False(t, ValidTimeRange("09:00", "late"))
	assert.False(t, ValidTimeRange("", "09:00"))
}

func TestValidTimeRangeAntiSymmetric(t *testing.T) {
	clocks := []string{"00:00", "07:45", "9:15", "12:00 PM", "12:00 AM", "1:30 PM", "23:59"}
	for _, a := range clocks {
		for _, b := range clocks {
			if ValidTimeRange(a, b) {
				assert.False(t, ValidTimeRange(b, a), "%s-%s", a, b)
			}
		}
	}
}

func TestMinutesAndAt(t *testing.T) {
	m, ok := Minutes("1:30 PM")
	require.True(t, ok)
	assert.Equal(t, 13*60+30, m)
	assert.Equal(t, "13:30", FromMinutes(m))
	assert.Equal(t, "23:59", FromMinutes(24*60))

	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	at, ok := At(day, "09:45", nil)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 9, 45, 0, 0, time.UTC), at)

	_, ok = At(day, "25:00", nil)
	assert.False(t, ok)
}
