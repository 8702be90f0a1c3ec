package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculateTotalCost multiplies the tier unit price by the duration count.
// Exact decimal arithmetic, no float intermediate.
func CalculateTotalCost(pricePerUnit decimal.Decimal, durationCount int) decimal.Decimal {
	return pricePerUnit.Mul(decimal.NewFromInt(int64(durationCount)))
}

// CalculateServiceFee computes the platform fee from the total cost.
// Rounded to 2 decimal places, half-up.
func CalculateServiceFee(totalCost decimal.Decimal, feeRate decimal.Decimal) decimal.Decimal {
	return totalCost.Mul(feeRate).Round(2)
}

// AddMonths adds calendar months to t, clamping the day-of-month to the last
// valid day of the target month. Jan 31 + 1 month is Feb 28 (Feb 29 in a leap
// year), never Mar 2/3 as time.AddDate would normalize.
func AddMonths(t time.Time, months int) time.Time {
	year := t.Year()
	month := int(t.Month()) - 1 + months
	year += month / 12
	month = month % 12
	if month < 0 {
		month += 12
		year--
	}

	day := t.Day()
	if last := daysInMonth(year, time.Month(month+1)); day > last {
		day = last
	}

	return time.Date(year, time.Month(month+1), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ComputeEndTime derives the rental end time from a start time, a duration
// count and a duration unit (day, week or month).
func ComputeEndTime(start time.Time, durationCount int, durationUnit string) time.Time {
	switch durationUnit {
	case "week":
		return start.AddDate(0, 0, 7*durationCount)
	case "month":
		return AddMonths(start, durationCount)
	default:
		return start.AddDate(0, 0, durationCount)
	}
}

// DateOnly truncates a time to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WindowsOverlap is the half-open interval overlap test used for
// double-booking detection: [aStart, aEnd) intersects [bStart, bEnd).
func WindowsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
