package timeutil

import "time"

// Now returns the current time in UTC
// Always use this instead of time.Now() to ensure timezone consistency
func Now() time.Time {
	return time.Now().UTC()
}

// ParseDate parses a date string and returns a UTC time
func ParseDate(layout, value string) (time.Time, error) {
	t, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// StartOfDay returns the start of the day (midnight) in UTC
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// MonthBounds returns the half-open interval [start, end) of a calendar month in UTC
func MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// AddMonths shifts a (year, month) pair by n months, crossing year boundaries as needed
func AddMonths(year int, month time.Month, n int) (int, time.Month) {
	shifted := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return shifted.Year(), shifted.Month()
}

// PreviousMonth returns the calendar month before the one containing t
func PreviousMonth(t time.Time) (int, time.Month) {
	year, month, _ := t.UTC().Date()
	return AddMonths(year, month, -1)
}
