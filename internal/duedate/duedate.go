// Package duedate projects the next billing due date from a customer's
// preferred day of month.
package duedate

import "time"

// Next returns the next due date for the given preferred day of month,
// relative to now. The day is clamped to [1,31]; if the preferred day has
// already passed this month (day <= today) the projection moves to the next
// month, and a preference beyond the target month's length clamps to its
// last day (day 31 in a 30-day month becomes the 30th).
func Next(dayOfPayment int, now time.Time) time.Time {
	if dayOfPayment < 1 {
		dayOfPayment = 1
	}
	if dayOfPayment > 31 {
		dayOfPayment = 31
	}

	year, month, today := now.Date()
	if dayOfPayment <= today {
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}

	if last := daysIn(year, month); dayOfPayment > last {
		dayOfPayment = last
	}

	return time.Date(year, month, dayOfPayment, 0, 0, 0, 0, now.Location())
}

func daysIn(year int, month time.Month) int {
	// Day zero of the following month normalizes to this month's last day.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
