package models

import "strings"

// Weekday identifies a school day. The timetable covers Monday through Friday.
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
)

// SchoolDays lists the scheduling days in week order.
var SchoolDays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

var weekdayOrder = map[Weekday]int{
	Monday:    1,
	Tuesday:   2,
	Wednesday: 3,
	Thursday:  4,
	Friday:    5,
}

// ParseWeekday normalises a day name. The second return value reports whether
// the input named a valid school day.
func ParseWeekday(raw string) (Weekday, bool) {
	day := Weekday(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := weekdayOrder[day]
	return day, ok
}

// Order returns the 1-based week position, or 0 for an unknown day.
func (d Weekday) Order() int {
	return weekdayOrder[d]
}

// DaysOverlap reports whether the two day sets share at least one weekday.
func DaysOverlap(a, b []Weekday) bool {
	set := make(map[Weekday]struct{}, len(a))
	for _, day := range a {
		set[day] = struct{}{}
	}
	for _, day := range b {
		if _, ok := set[day]; ok {
			return true
		}
	}
	return false
}

// IntersectDays returns the days present in both sets, preserving week order.
func IntersectDays(a, b []Weekday) []Weekday {
	set := make(map[Weekday]struct{}, len(b))
	for _, day := range b {
		set[day] = struct{}{}
	}
	result := make([]Weekday, 0, len(a))
	for _, day := range SchoolDays {
		if _, inA := containsDay(a, day); !inA {
			continue
		}
		if _, ok := set[day]; ok {
			result = append(result, day)
		}
	}
	return result
}

func containsDay(days []Weekday, day Weekday) (int, bool) {
	for i, d := range days {
		if d == day {
			return i, true
		}
	}
	return -1, false
}
