package models

import "time"

// Section represents a class section enrolled for a term.
type Section struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	SubjectIDs   []string  `db:"-" json:"subject_ids"`
	Days         []Weekday `db:"-" json:"days"`
	SchoolYearID string    `db:"school_year_id" json:"school_year_id"`
	Semester     int       `db:"semester" json:"semester"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SectionFilter captures filtering options for listing sections.
type SectionFilter struct {
	SchoolYearID string
	Semester     int
	Search       string
}
