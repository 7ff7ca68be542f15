// Package format renders durations and sample statistics for calendar text.
package format

import (
	"math"
	"strconv"
	"time"
)

// NA is shown for any absent value.
const NA = "N/A"

// Duration returns whole seconds between start and end, 0 if either is missing.
func Duration(start, end time.Time) int64 {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	return int64(math.Floor(end.Sub(start).Seconds()))
}

// FormatDuration renders seconds as "7h 5m", or "45m" below one hour.
func FormatDuration(seconds int64) string {
	if seconds <= 0 {
		return "0m"
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if hours > 0 {
		return strconv.FormatInt(hours, 10) + "h " + strconv.FormatInt(minutes, 10) + "m"
	}
	return strconv.FormatInt(minutes, 10) + "m"
}

// Stats is the reduction of a sample series. Avg, Min and Max are nil when
// no valid sample exists.
type Stats struct {
	Avg   *float64
	Min   *float64
	Max   *float64
	Count int
}

// ArrayStats drops nil and NaN samples and rounds the results to one decimal.
func ArrayStats(samples []*float64) Stats {
	var (
		sum      float64
		min, max float64
		count    int
	)
	for _, s := range samples {
		if s == nil || math.IsNaN(*s) {
			continue
		}
		v := *s
		if count == 0 || v < min {
			min = v
		}
		if count == 0 || v > max {
			max = v
		}
		sum += v
		count++
	}
	if count == 0 {
		return Stats{}
	}
	avg := Round1(sum / float64(count))
	min, max = Round1(min), Round1(max)
	return Stats{Avg: &avg, Min: &min, Max: &max, Count: count}
}

// Round1 rounds half up to one decimal place.
func Round1(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}

// Number prints v without trailing zeros, e.g. 62 or 55.5.
func Number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// OrNA renders v with unit, or NA when v is nil or zero.
func OrNA(v *float64, unit string) string {
	return OrDefault(v, unit, NA)
}

// OrDefault renders v with unit, or def when v is nil or zero.
func OrDefault(v *float64, unit, def string) string {
	if v == nil || *v == 0 || math.IsNaN(*v) {
		return def
	}
	if unit == "" {
		return Number(*v)
	}
	return Number(*v) + " " + unit
}

// StatOrNA is like OrNA but keeps a legitimate zero, matching how sample
// statistics are printed.
func StatOrNA(v *float64, unit string) string {
	if v == nil {
		return NA
	}
	return Number(*v) + " " + unit
}

// Fixed2 prints v with two decimals.
func Fixed2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// ParseTime accepts RFC 3339 timestamps as sent by the provider APIs. An
// empty or malformed value yields the zero time.
func ParseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
