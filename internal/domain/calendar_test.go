package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedOffsetCalendarDayWindowStart(t *testing.T) {
	tests := []struct {
		name    string
		instant time.Time
		want    time.Time
	}{
		{
			name:    "morning anchor time",
			instant: time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC), // 10:00 +08
			want:    time.Date(2024, 3, 9, 16, 0, 0, 0, time.UTC),
		},
		{
			name:    "late UTC evening is next anchor day",
			instant: time.Date(2024, 3, 10, 17, 30, 0, 0, time.UTC), // 01:30 +08 on the 11th
			want:    time.Date(2024, 3, 10, 16, 0, 0, 0, time.UTC),
		},
		{
			name:    "exactly anchor midnight",
			instant: time.Date(2024, 3, 10, 16, 0, 0, 0, time.UTC),
			want:    time.Date(2024, 3, 10, 16, 0, 0, 0, time.UTC),
		},
		{
			name:    "one nanosecond before anchor midnight",
			instant: time.Date(2024, 3, 10, 15, 59, 59, 999999999, time.UTC),
			want:    time.Date(2024, 3, 9, 16, 0, 0, 0, time.UTC),
		},
		{
			name:    "year boundary",
			instant: time.Date(2023, 12, 31, 20, 0, 0, 0, time.UTC), // 04:00 +08 Jan 1
			want:    time.Date(2023, 12, 31, 16, 0, 0, 0, time.UTC),
		},
		{
			name:    "non-UTC input location",
			instant: time.Date(2024, 3, 10, 2, 0, 0, 0, time.FixedZone("EST", -5*3600)), // 07:00 UTC
			want:    time.Date(2024, 3, 9, 16, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnchorCalendar.DayWindowStart(tt.instant)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestFixedOffsetCalendarNextReset(t *testing.T) {
	now := time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC)
	got := AnchorCalendar.NextReset(now)
	assert.True(t, time.Date(2024, 3, 10, 16, 0, 0, 0, time.UTC).Equal(got))

	midnight := time.Date(2024, 3, 10, 16, 0, 0, 0, time.UTC)
	got = AnchorCalendar.NextReset(midnight)
	assert.True(t, midnight.Add(Day).Equal(got))
}

func TestNextResetFromClockSkew(t *testing.T) {
	todayStart := time.Date(2024, 3, 10, 16, 0, 0, 0, time.UTC)
	skewed := todayStart.Add(-time.Minute)
	assert.True(t, todayStart.Equal(nextResetFrom(todayStart, skewed)))
	assert.True(t, todayStart.Add(Day).Equal(nextResetFrom(todayStart, todayStart)))
}

func TestFixedOffsetCalendarWindowBoundary(t *testing.T) {
	midnight := time.Date(2024, 3, 10, 16, 0, 0, 0, time.UTC)
	now := midnight.Add(3 * time.Hour)

	assert.True(t, AnchorCalendar.IsWithinWindow(midnight, now))
	assert.False(t, AnchorCalendar.IsWithinWindow(midnight.Add(-time.Millisecond), now))
	assert.True(t, AnchorCalendar.IsWithinWindow(midnight.Add(Day-time.Millisecond), now))
	assert.False(t, AnchorCalendar.IsWithinWindow(midnight.Add(Day), now))
}

func TestFixedOffsetCalendarZeroOffsetIsUTC(t *testing.T) {
	utc := FixedOffsetCalendar{}
	instant := time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)
	assert.True(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC).Equal(utc.DayWindowStart(instant)))
}
