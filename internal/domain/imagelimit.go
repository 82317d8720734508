// Package domain contains core business types and interfaces.
//
// This file implements the daily share-image quota. The counter resets
// lazily: nothing runs at midnight. A stored count only applies while its
// last generation timestamp is inside the current anchor-calendar day, so
// callers must re-evaluate before trusting usedToday.
package domain

import "time"

// DefaultImageDailyLimit is the number of share images a user may generate
// per anchor-calendar day.
const DefaultImageDailyLimit = 1

// ImageLimitInfo is the computed share-image allowance for a user.
type ImageLimitInfo struct {
	UsedToday        int        `json:"usedToday"`
	DailyLimit       int        `json:"dailyLimit"`
	Remaining        int        `json:"remaining"`
	CanGenerate      bool       `json:"canGenerate"`
	ResetAt          time.Time  `json:"resetAt"`
	MsUntilReset     int64      `json:"msUntilReset"`
	LastGeneratedAt  *time.Time `json:"lastGeneratedAt"`
	TotalGenerations int        `json:"totalGenerations"`
}

// ImageUsage holds the persisted generation counters for one user.
type ImageUsage struct {
	GenerationsToday int
	LastGeneratedAt  *time.Time
	TotalGenerations int
}

// ImageLimiter evaluates ImageUsage against a daily limit.
type ImageLimiter struct {
	Calendar   FixedOffsetCalendar
	DailyLimit int
	Now        func() time.Time
}

// NewImageLimiter returns a limiter on the anchor calendar using the wall
// clock.
func NewImageLimiter(dailyLimit int) *ImageLimiter {
	return &ImageLimiter{
		Calendar:   AnchorCalendar,
		DailyLimit: dailyLimit,
		Now:        time.Now,
	}
}

func (l *ImageLimiter) now() time.Time {
	if l.Now == nil {
		return time.Now()
	}
	return l.Now()
}

// CurrentTime returns the limiter's notion of now.
func (l *ImageLimiter) CurrentTime() time.Time {
	return l.now()
}

// WindowStart returns the start of the current anchor day.
func (l *ImageLimiter) WindowStart() time.Time {
	return l.Calendar.DayWindowStart(l.now())
}

// IsWithinCurrentWindow reports whether ts falls inside today's window.
func (l *ImageLimiter) IsWithinCurrentWindow(ts time.Time) bool {
	return l.Calendar.IsWithinWindow(ts, l.now())
}

// Evaluate computes the ImageLimitInfo for the stored counters.
func (l *ImageLimiter) Evaluate(usage ImageUsage) (ImageLimitInfo, error) {
	return l.EvaluateAt(usage, l.now())
}

// EvaluateAt is Evaluate at a fixed instant. Callers that wrote usage at now
// pass the same instant so the result describes the day the write landed in.
func (l *ImageLimiter) EvaluateAt(usage ImageUsage, now time.Time) (ImageLimitInfo, error) {
	const op = "limits.evaluate_image"

	ve := &ValidationError{Op: op}
	checkNonNegative(ve, "generations_today", usage.GenerationsToday)
	checkNonNegative(ve, "total_generations", usage.TotalGenerations)
	checkNonNegative(ve, "daily_limit", l.DailyLimit)
	if err := ve.OrNil(); err != nil {
		return ImageLimitInfo{}, err
	}

	start := l.Calendar.DayWindowStart(now)

	usedToday := 0
	if usage.LastGeneratedAt != nil && l.Calendar.IsWithinWindow(*usage.LastGeneratedAt, now) {
		usedToday = usage.GenerationsToday
	}

	remaining := l.DailyLimit - usedToday
	if remaining < 0 {
		remaining = 0
	}

	resetAt := nextResetFrom(start, now)
	msUntilReset := resetAt.Sub(now).Milliseconds()
	if msUntilReset < 0 {
		msUntilReset = 0
	}

	return ImageLimitInfo{
		UsedToday:        usedToday,
		DailyLimit:       l.DailyLimit,
		Remaining:        remaining,
		CanGenerate:      remaining > 0,
		ResetAt:          resetAt,
		MsUntilReset:     msUntilReset,
		LastGeneratedAt:  usage.LastGeneratedAt,
		TotalGenerations: usage.TotalGenerations,
	}, nil
}
