package database

import "time"

const dayLayout = "2006-01-02"

// GetToday returns today's date as YYYY-MM-DD.
func GetToday() string {
	return time.Now().Format(dayLayout)
}

// FormatDayDisplay formats a YYYY-MM-DD day for display ("Feb 06, 2026").
// Unparseable values are returned as-is.
func FormatDayDisplay(day string) string {
	d, err := time.Parse(dayLayout, day)
	if err != nil {
		return day
	}
	return d.Format("Jan 02, 2006")
}
