package reports

import "time"

// Granularity is the bucket size of a sales time series.
type Granularity string

const (
	Daily   Granularity = "diaria"
	Monthly Granularity = "mensual"
)

// MaxDailySpanDays is the longest span still charted per day.
const MaxDailySpanDays = 90

// ChooseGranularity picks monthly buckets for spans over MaxDailySpanDays days, daily otherwise.
func ChooseGranularity(from, to time.Time) Granularity {
	span := to.Sub(from)
	if span < 0 {
		span = -span
	}
	if span > MaxDailySpanDays*24*time.Hour {
		return Monthly
	}
	return Daily
}
