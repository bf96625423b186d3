package coinfeed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestParseDateFilter(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		value   string
		matches []string
		misses  []string
		before  string
	}{
		{value: "today", matches: []string{"2025-06-10"}, misses: []string{"2025-06-09"}, before: "2025-06-09"},
		{value: "yesterday", matches: []string{"2025-06-09"}, misses: []string{"2025-06-10", "2025-06-08"}, before: "2025-06-08"},
		{value: "last_3_days", matches: []string{"2025-06-10", "2025-06-08"}, misses: []string{"2025-06-07"}, before: "2025-06-07"},
		{value: "last_week", matches: []string{"2025-06-10", "2025-06-04"}, misses: []string{"2025-06-03"}, before: "2025-06-03"},
		{value: "2025-05-01", matches: []string{"2025-05-01"}, misses: []string{"2025-05-02"}, before: "2025-04-30"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			f, err := ParseDateFilter(tt.value, now)
			require.NoError(t, err)
			assert.False(t, f.All())
			assert.Equal(t, tt.value, f.String())

			for _, d := range tt.matches {
				assert.True(t, f.Matches(day(d)), d)
				assert.False(t, f.Before(day(d)), d)
			}
			for _, d := range tt.misses {
				assert.False(t, f.Matches(day(d)), d)
			}
			assert.True(t, f.Before(day(tt.before)))
		})
	}
}

func TestParseDateFilter_All(t *testing.T) {
	for _, value := range []string{"", "all"} {
		f, err := ParseDateFilter(value, time.Now())
		require.NoError(t, err)
		assert.True(t, f.All())
		assert.True(t, f.Matches(day("1999-01-01")))
		assert.False(t, f.Before(day("1999-01-01")))
		assert.Equal(t, "all", f.String())
	}

	var zero DateFilter
	assert.True(t, zero.All())
}

func TestParseDateFilter_Invalid(t *testing.T) {
	for _, value := range []string{"tomorrow", "2025-13-01", "10/06/2025"} {
		_, err := ParseDateFilter(value, time.Now())
		assert.ErrorIs(t, err, ErrInvalidDateFilter, value)
	}
}

func TestDateFilter_IgnoresClock(t *testing.T) {
	now := time.Date(2025, 6, 10, 0, 5, 0, 0, time.UTC)
	f, err := ParseDateFilter("today", now)
	require.NoError(t, err)

	assert.True(t, f.Matches(time.Date(2025, 6, 10, 23, 59, 0, 0, time.UTC)))
}
