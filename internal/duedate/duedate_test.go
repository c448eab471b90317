package duedate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextAdvancesToNextMonthWhenDayHasPassed(t *testing.T) {
	// Day 5 requested on the 10th of a 31-day month.
	got := Next(5, date(2025, time.January, 10))
	assert.True(t, got.Equal(date(2025, time.February, 5)), "got %v", got)
}

func TestNextStaysInCurrentMonthWhenDayIsAhead(t *testing.T) {
	got := Next(25, date(2025, time.January, 10))
	assert.True(t, got.Equal(date(2025, time.January, 25)), "got %v", got)
}

func TestNextClampsToLastDayOfShortMonth(t *testing.T) {
	// Day 31 requested inside a 30-day month.
	got := Next(31, date(2025, time.April, 2))
	assert.True(t, got.Equal(date(2025, time.April, 30)), "got %v", got)
}

func TestNextClampsFebruary(t *testing.T) {
	got := Next(31, date(2025, time.January, 31))
	assert.True(t, got.Equal(date(2025, time.February, 28)), "got %v", got)

	got = Next(30, date(2024, time.February, 1))
	assert.True(t, got.Equal(date(2024, time.February, 29)), "leap-year clamp, got %v", got)
}

func TestNextRollsOverYearEnd(t *testing.T) {
	got := Next(10, date(2025, time.December, 15))
	assert.True(t, got.Equal(date(2026, time.January, 10)), "got %v", got)
}

func TestNextClampsOutOfRangePreference(t *testing.T) {
	got := Next(0, date(2025, time.March, 15))
	assert.True(t, got.Equal(date(2025, time.April, 1)), "day 0 treated as 1, got %v", got)

	got = Next(99, date(2025, time.March, 15))
	assert.True(t, got.Equal(date(2025, time.March, 31)), "day 99 treated as 31, got %v", got)
}

func TestNextNeverReturnsPastDate(t *testing.T) {
	for day := 1; day <= 31; day++ {
		for today := 1; today <= 28; today++ {
			now := date(2025, time.June, today)
			got := Next(day, now)
			require.False(t, got.Before(now), "day=%d today=%d produced past due date %v", day, today, got)

			months := int(got.Month()) - int(now.Month())
			if months < 0 {
				months += 12
			}
			require.LessOrEqual(t, months, 1, "day=%d today=%d skipped beyond next month: %v", day, today, got)
		}
	}
}
