package models

// DefaultCalendarID is used when no preference is stored.
const DefaultCalendarID = "primary"

// CalendarPreference maps a data type key (for example "sleep" or
// "strava.run") to a target calendar id.
type CalendarPreference map[string]string

// CalendarFor returns the calendar for key, falling back to "primary".
func (p CalendarPreference) CalendarFor(key string) string {
	if p == nil {
		return DefaultCalendarID
	}
	if id, ok := p[key]; ok && id != "" {
		return id
	}
	return DefaultCalendarID
}
