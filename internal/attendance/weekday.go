package attendance

import "time"

// weekdayLabels maps ISO weekdays to lesson-day names. Lessons only
// happen Monday through Friday.
var weekdayLabels = map[int]string{
	1: "Monday",
	2: "Tuesday",
	3: "Wednesday",
	4: "Thursday",
	5: "Friday",
}

// WeekdayLabel returns the name for an ISO weekday, or "" for weekends
// and out-of-range values.
func WeekdayLabel(weekday int) string {
	return weekdayLabels[weekday]
}

// isoWeekday converts Go's Sunday-based weekday to ISO numbering where
// Monday is 1.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
