package strava

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
	"github.com/ManuelReschke/CalSync/internal/pkg/calendar"
	"github.com/ManuelReschke/CalSync/internal/pkg/format"
)

// Activity types synced to the calendar.
const (
	TypeRun            = "Run"
	TypeWorkout        = "Workout"
	TypeWeightTraining = "WeightTraining"
)

const missing = "—"

// Activity is the detailed Strava activity.
type Activity struct {
	ID                 int64    `json:"id"`
	Name               string   `json:"name"`
	Type               string   `json:"type"`
	StartDate          string   `json:"start_date"`
	ElapsedTime        int64    `json:"elapsed_time"`
	Distance           float64  `json:"distance"`
	AverageSpeed       float64  `json:"average_speed"`
	TotalElevationGain *float64 `json:"total_elevation_gain"`
	AverageHeartrate   *float64 `json:"average_heartrate"`
	MaxHeartrate       *float64 `json:"max_heartrate"`
	Calories           *float64 `json:"calories"`

	// activityURL is the public page prefix, set by the strategy.
	activityURL string
}

func (a *Activity) Syncable() bool {
	switch a.Type {
	case TypeRun, TypeWorkout, TypeWeightTraining:
		return true
	}
	return false
}

func (a *Activity) PreferenceKey() string {
	return "strava." + strings.ToLower(a.Type)
}

func (a *Activity) Entry() (calendar.Entry, error) {
	start := format.ParseTime(a.StartDate)
	if start.IsZero() {
		return calendar.Entry{}, &apperror.ValidationError{Message: fmt.Sprintf("strava activity %d has no start date", a.ID)}
	}
	start = start.UTC()
	entry := calendar.Entry{
		Start: start,
		End:   start.Add(time.Duration(a.ElapsedTime) * time.Second),
	}

	switch a.Type {
	case TypeRun:
		entry.Summary = "🏃‍♂️ Run: - " + format.Fixed2(a.Distance/1000) + "km"
		entry.Description = a.runDescription()
	case TypeWorkout:
		entry.Summary = "Stretch"
	case TypeWeightTraining:
		entry.Summary = "Static Exercises"
	default:
		return calendar.Entry{}, &apperror.ValidationError{Message: fmt.Sprintf("strava activity type %q is not synced", a.Type)}
	}
	return entry, nil
}

func (a *Activity) runDescription() string {
	elevation := 0.0
	if a.TotalElevationGain != nil {
		elevation = *a.TotalElevationGain
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Distance: %s km\n", format.Fixed2(a.Distance/1000))
	fmt.Fprintf(&b, "Pace: %s min/km\n", pace(a.AverageSpeed))
	fmt.Fprintf(&b, "Speed: %s km/h\n", format.Fixed2(a.AverageSpeed*3.6))
	fmt.Fprintf(&b, "Elevation: %s m\n\n", format.Number(elevation))
	fmt.Fprintf(&b, "Average HR: %s\n", format.OrDefault(a.AverageHeartrate, "", missing))
	fmt.Fprintf(&b, "Max HR: %s\n", format.OrDefault(a.MaxHeartrate, "", missing))
	fmt.Fprintf(&b, "Calories: %s\n\n", format.OrDefault(a.Calories, "", missing))
	b.WriteString(strings.TrimRight(a.activityURL, "/") + "/" + strconv.FormatInt(a.ID, 10))
	return b.String()
}

// pace renders min:ss per km for a speed in m/s.
func pace(metersPerSecond float64) string {
	if metersPerSecond <= 0 {
		return missing
	}
	secondsPerKm := 1000 / metersPerSecond
	minutes := int(math.Floor(secondsPerKm / 60))
	secs := int(math.Round(math.Mod(secondsPerKm, 60)))
	if secs == 60 {
		minutes++
		secs = 0
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}
