package domain

import "time"

// AnchorOffset is the fixed UTC offset that defines "today" for daily quotas.
const AnchorOffset = 8 * time.Hour

// Day is the length of one anchor calendar day. The anchor zone observes no
// daylight saving, so every day is exactly 24 hours.
const Day = 24 * time.Hour

// FixedOffsetCalendar computes calendar-day boundaries for a zone with a
// constant UTC offset. It never consults the tz database or the host's local
// zone; all results are UTC instants.
type FixedOffsetCalendar struct {
	Offset time.Duration
}

// AnchorCalendar is the UTC+8 calendar used for daily quotas.
var AnchorCalendar = FixedOffsetCalendar{Offset: AnchorOffset}

// DayWindowStart returns the UTC instant of local midnight on the calendar
// day that contains t.
func (c FixedOffsetCalendar) DayWindowStart(t time.Time) time.Time {
	local := t.UTC().Add(c.Offset)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.Add(-c.Offset)
}

// NextReset returns the start of the next calendar day relative to now. If
// now precedes today's window start, today's start is returned.
func (c FixedOffsetCalendar) NextReset(now time.Time) time.Time {
	return nextResetFrom(c.DayWindowStart(now), now)
}

// IsWithinWindow reports whether ts falls inside the calendar day that
// contains now, i.e. [start, start+24h).
func (c FixedOffsetCalendar) IsWithinWindow(ts, now time.Time) bool {
	start := c.DayWindowStart(now)
	return !ts.Before(start) && ts.Before(start.Add(Day))
}

func nextResetFrom(todayStart, now time.Time) time.Time {
	if now.Before(todayStart) {
		return todayStart
	}
	return todayStart.Add(Day)
}
