// Package period turns week/month/year selectors into UTC time windows.
package period

import (
	"fmt"
	"time"
	"vote_zone/internal/common"
)

type Kind string

const (
	Week  Kind = "week"
	Month Kind = "month"
	Year  Kind = "year"
)

// Range is the window [Start, Next()). End is the last millisecond of the period and is
// only meant for display; timestamps carry microseconds, so filtering uses Next.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Next is the start of the following period, the exclusive upper bound.
func (r Range) Next() time.Time {
	return r.End.Add(time.Millisecond)
}

func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.Next())
}

const lastMilli = 999 * time.Millisecond

// Resolve computes the window for kind. week is only read for Week, month only for Month.
// Weeks follow ISO numbering: week 1 is the Monday-Sunday span containing the year's
// first Thursday.
func Resolve(kind Kind, week, month, year int) (Range, error) {
	if year < 1 || year > 9999 {
		return Range{}, fmt.Errorf("year %d out of range: %w", year, common.ErrBadRequest)
	}

	switch kind {
	case Year:
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC).Add(lastMilli)
		return Range{Start: start, End: end}, nil

	case Month:
		if month < 1 || month > 12 {
			return Range{}, fmt.Errorf("month must be between 1 and 12, got %d: %w", month, common.ErrBadRequest)
		}
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		// day 0 of the following month is the last day of this one
		last := time.Date(year, time.Month(month)+1, 0, 23, 59, 59, 0, time.UTC)
		return Range{Start: start, End: last.Add(lastMilli)}, nil

	case Week:
		if week < 1 || week > weeksInYear(year) {
			return Range{}, fmt.Errorf("week must be between 1 and %d for %d, got %d: %w",
				weeksInYear(year), year, week, common.ErrBadRequest)
		}
		start := firstMonday(year).AddDate(0, 0, (week-1)*7)
		last := start.AddDate(0, 0, 6)
		end := time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 59, 0, time.UTC).Add(lastMilli)
		return Range{Start: start, End: end}, nil
	}

	return Range{}, fmt.Errorf("unknown period %q: %w", kind, common.ErrBadRequest)
}

// firstMonday returns the Monday of week 1, which may fall in the previous year.
func firstMonday(year int) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	toThursday := (int(time.Thursday) - int(jan1.Weekday()) + 7) % 7
	firstThursday := jan1.AddDate(0, 0, toThursday)
	return firstThursday.AddDate(0, 0, -3)
}

func weeksInYear(year int) int {
	_, w := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return w
}
