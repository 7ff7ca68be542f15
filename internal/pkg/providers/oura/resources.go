package oura

import (
	"fmt"
	"strings"

	"github.com/ManuelReschke/CalSync/internal/pkg/calendar"
	"github.com/ManuelReschke/CalSync/internal/pkg/format"
)

// Data types with a calendar representation.
const (
	DataTypeSleep   = "sleep"
	DataTypeWorkout = "workout"
	DataTypeSession = "session"
)

// SyncedDataTypes are subscribed to and synced.
var SyncedDataTypes = []string{DataTypeSleep, DataTypeWorkout, DataTypeSession}

// Sleep is a sleep period.
type Sleep struct {
	ID                 string   `json:"id"`
	BedtimeStart       string   `json:"bedtime_start"`
	BedtimeEnd         string   `json:"bedtime_end"`
	Score              *float64 `json:"score"`
	DeepSleepDuration  *float64 `json:"deep_sleep_duration"`
	REMSleepDuration   *float64 `json:"rem_sleep_duration"`
	LightSleepDuration *float64 `json:"light_sleep_duration"`
	AwakeDuration      *float64 `json:"awake_duration"`
	AverageHeartRate   *float64 `json:"average_heart_rate"`
	AverageHRV         *float64 `json:"average_hrv"`
	AverageBreath      *float64 `json:"average_breath"`
}

func (s *Sleep) Syncable() bool        { return true }
func (s *Sleep) PreferenceKey() string { return DataTypeSleep }

func (s *Sleep) Entry() (calendar.Entry, error) {
	start, end := format.ParseTime(s.BedtimeStart), format.ParseTime(s.BedtimeEnd)
	total := format.FormatDuration(format.Duration(start, end))

	var b strings.Builder
	fmt.Fprintf(&b, "Sleep Score: %s\n", format.OrNA(s.Score, ""))
	fmt.Fprintf(&b, "Total Sleep Time: %s\n", total)
	b.WriteString("Sleep Stages:\n")
	fmt.Fprintf(&b, "- Deep: %s\n", seconds(s.DeepSleepDuration))
	fmt.Fprintf(&b, "- REM: %s\n", seconds(s.REMSleepDuration))
	fmt.Fprintf(&b, "- Light: %s\n", seconds(s.LightSleepDuration))
	fmt.Fprintf(&b, "- Awake: %s\n\n", seconds(s.AwakeDuration))
	fmt.Fprintf(&b, "Heart Rate: %s\n", format.OrNA(s.AverageHeartRate, "bpm"))
	fmt.Fprintf(&b, "HRV: %s\n", format.OrNA(s.AverageHRV, "ms"))
	fmt.Fprintf(&b, "Respiratory Rate: %s", format.OrNA(s.AverageBreath, "br/min"))

	return calendar.Entry{
		Summary:     "💤 Sleep: " + total,
		Description: b.String(),
		Start:       start,
		End:         end,
	}, nil
}

// Workout is an activity recorded by the ring.
type Workout struct {
	ID               string   `json:"id"`
	Activity         string   `json:"activity"`
	StartDatetime    string   `json:"start_datetime"`
	EndDatetime      string   `json:"end_datetime"`
	Distance         *float64 `json:"distance"`
	Calories         *float64 `json:"calories"`
	AverageHeartRate *float64 `json:"average_heart_rate"`
	MaxHeartRate     *float64 `json:"max_heart_rate"`
}

func (w *Workout) Syncable() bool        { return true }
func (w *Workout) PreferenceKey() string { return DataTypeWorkout }

func (w *Workout) Entry() (calendar.Entry, error) {
	start, end := format.ParseTime(w.StartDatetime), format.ParseTime(w.EndDatetime)
	duration := format.FormatDuration(format.Duration(start, end))

	distance := format.NA
	if w.Distance != nil && *w.Distance != 0 {
		distance = format.Fixed2(*w.Distance/1000) + " km"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Activity: %s\n", w.Activity)
	fmt.Fprintf(&b, "Duration: %s\n", duration)
	fmt.Fprintf(&b, "Distance: %s\n", distance)
	fmt.Fprintf(&b, "Calories: %s kcal\n", format.OrNA(w.Calories, ""))
	b.WriteString("Heart Rate:\n")
	fmt.Fprintf(&b, "- Average: %s bpm\n", format.OrNA(w.AverageHeartRate, ""))
	fmt.Fprintf(&b, "- Max: %s bpm", format.OrNA(w.MaxHeartRate, ""))

	return calendar.Entry{
		Summary:     fmt.Sprintf("🏃‍♂️ %s: %s", w.Activity, duration),
		Description: b.String(),
		Start:       start,
		End:         end,
	}, nil
}

// Samples is an Oura time series; missing readings are null.
type Samples struct {
	Interval float64    `json:"interval"`
	Items    []*float64 `json:"items"`
}

// Session is a guided or unguided session (meditation, breathing, nap).
type Session struct {
	ID                   string   `json:"id"`
	Type                 string   `json:"type"`
	StartDatetime        string   `json:"start_datetime"`
	EndDatetime          string   `json:"end_datetime"`
	HeartRate            *Samples `json:"heart_rate"`
	HeartRateVariability *Samples `json:"heart_rate_variability"`
}

func (s *Session) Syncable() bool        { return true }
func (s *Session) PreferenceKey() string { return DataTypeSession }

func (s *Session) Entry() (calendar.Entry, error) {
	start, end := format.ParseTime(s.StartDatetime), format.ParseTime(s.EndDatetime)
	duration := format.FormatDuration(format.Duration(start, end))
	hr := format.ArrayStats(items(s.HeartRate))
	hrv := format.ArrayStats(items(s.HeartRateVariability))

	summary := fmt.Sprintf("🧘‍♂️ %s: %s", s.Type, duration)
	if hr.Avg != nil && *hr.Avg != 0 {
		summary += fmt.Sprintf(" (%s bpm avg)", format.Number(*hr.Avg))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Type: %s\n", s.Type)
	fmt.Fprintf(&b, "Duration: %s\n", duration)
	b.WriteString("Heart Rate:\n")
	fmt.Fprintf(&b, "- Average: %s\n", format.StatOrNA(hr.Avg, "bpm"))
	fmt.Fprintf(&b, "- Min: %s\n", format.StatOrNA(hr.Min, "bpm"))
	fmt.Fprintf(&b, "- Max: %s\n", format.StatOrNA(hr.Max, "bpm"))
	b.WriteString("HRV:\n")
	fmt.Fprintf(&b, "- Average: %s\n", format.StatOrNA(hrv.Avg, "ms"))
	fmt.Fprintf(&b, "- Min: %s\n", format.StatOrNA(hrv.Min, "ms"))
	fmt.Fprintf(&b, "- Max: %s\n", format.StatOrNA(hrv.Max, "ms"))
	fmt.Fprintf(&b, "Data Points: %d HR readings, %d HRV readings", hr.Count, hrv.Count)

	return calendar.Entry{
		Summary:     summary,
		Description: b.String(),
		Start:       start,
		End:         end,
	}, nil
}

func items(s *Samples) []*float64 {
	if s == nil {
		return nil
	}
	return s.Items
}

func seconds(v *float64) string {
	if v == nil {
		return "0m"
	}
	return format.FormatDuration(int64(*v))
}
