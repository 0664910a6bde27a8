package leave

import (
	"math"
	"time"
)

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

// BusinessDays counts the weekdays in [start, end] inclusive. Saturdays and
// Sundays are skipped; public holidays are not modelled. An inverted range
// counts zero.
func BusinessDays(start, end time.Time) float64 {
	start, end = dateOnly(start), dateOnly(end)
	if end.Before(start) {
		return 0
	}
	var days float64
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if !isWeekend(d) {
			days++
		}
	}
	return days
}

// Overlaps reports whether [aStart, aEnd] and [bStart, bEnd] share any day.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	aStart, aEnd = dateOnly(aStart), dateOnly(aEnd)
	bStart, bEnd = dateOnly(bStart), dateOnly(bEnd)
	return !aStart.After(bEnd) && !bStart.After(aEnd)
}

// NoticeDays is the number of calendar days between today and the leave
// start, negative when the start is in the past.
func NoticeDays(start, today time.Time) int {
	start, today = dateOnly(start), dateOnly(today)
	return int(start.Sub(today).Hours() / 24)
}

// ProratedAnnual computes the first-year annual allocation for an employee
// who started mid-year: round(annual/12 * monthsRemaining), where the start
// month counts as a full remaining month. A nil or pre-year start date gets
// the full allocation; a start after the year yields zero.
func ProratedAnnual(annual float64, startDate *time.Time, year int) float64 {
	if startDate == nil {
		return annual
	}
	start := dateOnly(*startDate)
	if start.Year() < year {
		return annual
	}
	if start.Year() > year {
		return 0
	}
	monthsRemaining := 12 - (int(start.Month()) - 1)
	return math.Round(annual / 12 * float64(monthsRemaining))
}

// CarryForward is the prior-year balance carried into the new year, capped
// by the tenant maximum. Negative and zero prior balances carry nothing.
func CarryForward(priorBalance, maxDays float64) float64 {
	if priorBalance <= 0 {
		return 0
	}
	return math.Min(priorBalance, maxDays)
}

func isWholeDays(days float64) bool {
	return days == math.Trunc(days)
}
