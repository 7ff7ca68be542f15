package format

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestDuration(t *testing.T) {
	start := time.Date(2025, 1, 10, 22, 0, 0, 0, time.UTC)

	assert.Equal(t, int64(8*3600), Duration(start, start.Add(8*time.Hour)))
	assert.Equal(t, int64(59), Duration(start, start.Add(59900*time.Millisecond)), "floors to whole seconds")
	assert.Equal(t, int64(0), Duration(start, time.Time{}))
	assert.Equal(t, int64(0), Duration(time.Time{}, start))
}

func TestFormatDuration(t *testing.T) {
	cases := map[int64]string{
		0:     "0m",
		-10:   "0m",
		59:    "0m",
		60:    "1m",
		3599:  "59m",
		3600:  "1h 0m",
		28800: "8h 0m",
		27300: "7h 35m",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatDuration(in), "seconds=%d", in)
	}
}

func TestMissingEndFormatsAsZero(t *testing.T) {
	start := ParseTime("2025-01-10T22:00:00+01:00")
	end := ParseTime("")
	assert.Equal(t, "0m", FormatDuration(Duration(start, end)))
}

func TestArrayStats(t *testing.T) {
	stats := ArrayStats([]*float64{f(60), nil, f(62), f(math.NaN()), f(64)})
	require.NotNil(t, stats.Avg)
	assert.Equal(t, 62.0, *stats.Avg)
	assert.Equal(t, 60.0, *stats.Min)
	assert.Equal(t, 64.0, *stats.Max)
	assert.Equal(t, 3, stats.Count)

	stats = ArrayStats([]*float64{f(55), f(56)})
	assert.Equal(t, 55.5, *stats.Avg)

	stats = ArrayStats([]*float64{f(1), f(1), f(2)})
	assert.Equal(t, 1.3, *stats.Avg)

	empty := ArrayStats([]*float64{nil, f(math.NaN())})
	assert.Nil(t, empty.Avg)
	assert.Nil(t, empty.Min)
	assert.Nil(t, empty.Max)
	assert.Zero(t, empty.Count)

	assert.Zero(t, ArrayStats(nil).Count)
}

func TestOrNA(t *testing.T) {
	assert.Equal(t, "N/A", OrNA(nil, "bpm"))
	assert.Equal(t, "N/A", OrNA(f(0), "bpm"))
	assert.Equal(t, "52 bpm", OrNA(f(52), "bpm"))
	assert.Equal(t, "85", OrNA(f(85), ""))
	assert.Equal(t, "14.5 br/min", OrNA(f(14.5), "br/min"))
	assert.Equal(t, "—", OrDefault(nil, "", "—"))

	assert.Equal(t, "0 ms", StatOrNA(f(0), "ms"))
	assert.Equal(t, "N/A", StatOrNA(nil, "ms"))
}

func TestParseTime(t *testing.T) {
	ts := ParseTime("2025-01-10T22:00:00.000+01:00")
	assert.False(t, ts.IsZero())
	_, offset := ts.Zone()
	assert.Equal(t, 3600, offset)
	assert.True(t, ParseTime("yesterday").IsZero())
}
