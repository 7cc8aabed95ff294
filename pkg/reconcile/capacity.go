package reconcile

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const workDaysPerWeek = 5

// defaultWeeklyHours applies when the row has no weekly-hours cell at all.
var defaultWeeklyHours = decimal.NewFromInt(40)

// ParseHours accepts "37.5" and "37,5". Anything unparsable is zero.
func ParseHours(raw string) decimal.Decimal {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DailyCapacity converts weekly hours to the per-day duration string.
func DailyCapacity(weekly decimal.Decimal) string {
	return ToDuration(weekly.Div(decimal.NewFromInt(workDaysPerWeek)))
}

// ToDuration renders hours as PT{h}H{m}M with minutes rounded, so that
// h*60+m equals the rounded total minutes. Negative input is clamped to zero.
func ToDuration(hours decimal.Decimal) string {
	if hours.IsNegative() {
		hours = decimal.Zero
	}
	total := hours.Mul(decimal.NewFromInt(60)).Round(0).IntPart()
	return fmt.Sprintf("PT%dH%dM", total/60, total%60)
}
