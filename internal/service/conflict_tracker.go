package service

import "github.com/campusops/timetable-api/internal/models"

// Conflict dimensions reported by the tracker, in check order.
const (
	dimensionTeacher   = "teacher"
	dimensionClassroom = "classroom"
	dimensionSection   = "section"
)

type dayIndex struct {
	teachers   map[string][]timeWindow
	classrooms map[string][]timeWindow
	sections   map[string][]timeWindow
}

func newDayIndex() *dayIndex {
	return &dayIndex{
		teachers:   make(map[string][]timeWindow),
		classrooms: make(map[string][]timeWindow),
		sections:   make(map[string][]timeWindow),
	}
}

// conflictTracker indexes occupied intervals per weekday, keyed by teacher,
// classroom, and section. Overlap queries cost O(occupants-per-key).
type conflictTracker struct {
	days map[models.Weekday]*dayIndex
}

func newConflictTracker() *conflictTracker {
	tracker := &conflictTracker{days: make(map[models.Weekday]*dayIndex, len(models.SchoolDays))}
	for _, day := range models.SchoolDays {
		tracker.days[day] = newDayIndex()
	}
	return tracker
}

func (t *conflictTracker) day(day models.Weekday) *dayIndex {
	idx, ok := t.days[day]
	if !ok {
		idx = newDayIndex()
		t.days[day] = idx
	}
	return idx
}

// Record marks [start, end) as occupied for all three dimensions.
func (t *conflictTracker) Record(day models.Weekday, teacherID, classroomID, sectionID string, start, end int) {
	idx := t.day(day)
	idx.teachers[teacherID] = append(idx.teachers[teacherID], timeWindow{Start: start, End: end})
	idx.classrooms[classroomID] = append(idx.classrooms[classroomID], timeWindow{Start: start, End: end})
	idx.sections[sectionID] = append(idx.sections[sectionID], timeWindow{Start: start, End: end})
}

// Conflict returns the first dimension whose occupied intervals overlap
// [start, end), or "" when the placement is free.
func (t *conflictTracker) Conflict(day models.Weekday, teacherID, classroomID, sectionID string, start, end int) string {
	idx, ok := t.days[day]
	if !ok {
		return ""
	}
	if anyOverlap(idx.teachers[teacherID], start, end) {
		return dimensionTeacher
	}
	if anyOverlap(idx.classrooms[classroomID], start, end) {
		return dimensionClassroom
	}
	if anyOverlap(idx.sections[sectionID], start, end) {
		return dimensionSection
	}
	return ""
}

// Seed replays pre-existing entries for the target scope so new placements
// never collide with schedules that were saved before this run.
func (t *conflictTracker) Seed(entries []models.ScheduleEntry) {
	for _, entry := range entries {
		start := parseClock(entry.StartTime)
		end := parseClock(entry.EndTime)
		if start < 0 || end < 0 || end <= start {
			continue
		}
		t.Record(entry.DayOfWeek, entry.Teacher.ID, entry.Classroom.ID, entry.Section.ID, start, end)
	}
}

func anyOverlap(occupied []timeWindow, start, end int) bool {
	for _, w := range occupied {
		if windowsOverlap(start, end, w.Start, w.End) {
			return true
		}
	}
	return false
}
