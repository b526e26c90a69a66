package models

import "time"

// ScheduleEntryStatus marks the lifecycle state of a stored entry.
type ScheduleEntryStatus string

const (
	ScheduleEntryStatusScheduled ScheduleEntryStatus = "scheduled"
	ScheduleEntryStatusCancelled ScheduleEntryStatus = "cancelled"
)

// EntityRef is a denormalised reference persisted alongside each entry so
// rendered timetables do not need joins.
type EntityRef struct {
	ID   string `db:"-" json:"id"`
	Name string `db:"-" json:"name"`
}

// ScheduleEntry is the atomic persisted unit of a timetable: one 15-minute
// block for one section, teacher, and classroom. An accepted 90-minute
// session is stored as six consecutive entries sharing sessionNumber.
type ScheduleEntry struct {
	ID            string              `db:"id" json:"id"`
	Date          string              `db:"date" json:"date"`
	StartTime     string              `db:"start_time" json:"start_time"`
	EndTime       string              `db:"end_time" json:"end_time"`
	DayOfWeek     Weekday             `db:"day_of_week" json:"day_of_week"`
	Teacher       EntityRef           `db:"-" json:"teacher"`
	Classroom     EntityRef           `db:"-" json:"classroom"`
	Section       EntityRef           `db:"-" json:"section"`
	Subject       string              `db:"subject" json:"subject"`
	SessionNumber int                 `db:"session_number" json:"session_number"`
	TotalSessions int                 `db:"total_sessions" json:"total_sessions"`
	DurationIndex int                 `db:"duration_index" json:"duration_index"`
	SchoolYearID  string              `db:"school_year_id" json:"school_year_id"`
	Semester      int                 `db:"semester" json:"semester"`
	Notes         string              `db:"notes" json:"notes"`
	IsRecurring   bool                `db:"is_recurring" json:"is_recurring"`
	Status        ScheduleEntryStatus `db:"status" json:"status"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
}

// ScheduleScope bounds one generation run and one conflict-check universe.
type ScheduleScope struct {
	SchoolYearID string `json:"school_year_id"`
	Semester     int    `json:"semester"`
}
