package parking

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const millisPerHour = int64(time.Hour / time.Millisecond)

// BillableHours rounds the elapsed milliseconds up to whole hours. A zero
// duration bills nothing; any positive duration bills at least one hour.
// Negative input is not clamped.
func BillableHours(entry, exit time.Time) int64 {
	d := exit.Sub(entry).Milliseconds()
	if d > 0 {
		return (d + millisPerHour - 1) / millisPerHour
	}
	// truncation toward zero is the ceiling for d <= 0
	return d / millisPerHour
}

// ComputeFee is billable hours times the category's hourly rate.
func ComputeFee(category VehicleCategory, entry, exit time.Time, rates RateTable) decimal.Decimal {
	hours := decimal.NewFromInt(BillableHours(entry, exit))
	return hours.Mul(rates.HourlyRate(category))
}

// FormatDuration renders elapsed wall-clock time as "<h>h <m>m" using floor
// division. It is for display only and plays no part in billing.
func FormatDuration(entry, exit time.Time) string {
	d := exit.Sub(entry).Milliseconds()
	const millisPerMinute = int64(time.Minute / time.Millisecond)
	hours := floorDiv(d, millisPerHour)
	minutes := floorDiv(d-hours*millisPerHour, millisPerMinute)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
