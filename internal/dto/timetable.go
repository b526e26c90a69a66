package dto

import "github.com/campusops/timetable-api/internal/models"

// FailureType tags an allocation failure with its remediation category.
type FailureType string

const (
	FailureMissingTeacher      FailureType = "missing_teacher"
	FailureMissingClassroom    FailureType = "missing_classroom"
	FailureTeacherAvailability FailureType = "teacher_availability"
	FailureTimeConflict        FailureType = "time_conflict"
	FailureSelectionError      FailureType = "selection_error"
	FailureDataError           FailureType = "data_error"
)

// AllocationFailure records one session that could not be placed. Failures
// are reported to the caller and never abort the run.
type AllocationFailure struct {
	Section       string      `json:"section"`
	Subject       string      `json:"subject"`
	SessionNumber int         `json:"session_number,omitempty"`
	Type          FailureType `json:"type"`
	Reason        string      `json:"reason"`
	Details       string      `json:"details,omitempty"`
	Resolution    string      `json:"resolution"`
}

// GenerateTimetableRequest scopes one generation run.
type GenerateTimetableRequest struct {
	SchoolYearID string `json:"schoolYearId" validate:"required"`
	Semester     int    `json:"semester" validate:"required,oneof=1 2"`
}

// TimetableStats aggregates usage counters from one run, keyed by day name,
// slot start time, teacher id, and classroom id.
type TimetableStats struct {
	PerDay       map[models.Weekday]int `json:"per_day"`
	PerTimeSlot  map[string]int         `json:"per_time_slot"`
	PerTeacher   map[string]int         `json:"per_teacher"`
	PerClassroom map[string]int         `json:"per_classroom"`
}

// RunCounts reports honest progress totals, including partial runs that were
// cancelled mid-persistence.
type RunCounts struct {
	Requested    int `json:"requested"`
	Scheduled    int `json:"scheduled"`
	Saved        int `json:"saved"`
	SaveFailures int `json:"save_failures"`
	Remaining    int `json:"remaining"`
}

// GenerateTimetableResponse is the result of one generation run.
type GenerateTimetableResponse struct {
	Created   []models.ScheduleEntry `json:"created"`
	Failures  []AllocationFailure    `json:"failures"`
	Stats     TimetableStats         `json:"stats"`
	Counts    RunCounts              `json:"counts"`
	Cancelled bool                   `json:"cancelled"`
}

// DeleteBySchoolYearResponse reports the outcome of a bulk deletion.
type DeleteBySchoolYearResponse struct {
	Deleted   int  `json:"deleted"`
	Failed    int  `json:"failed"`
	Cancelled bool `json:"cancelled"`
}

// EntryListQuery filters stored entries by scope.
type EntryListQuery struct {
	SchoolYearID string `validate:"required"`
	Semester     int    `validate:"required,oneof=1 2"`
}
