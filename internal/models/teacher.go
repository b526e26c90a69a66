package models

import "time"

// Teacher represents an instructor record.
//
// A non-empty AssignedSectionIDs list puts the teacher in strict mode: the
// resolver prefers those explicit section bindings over capability matching.
type Teacher struct {
	ID                 string    `db:"id" json:"id"`
	FullName           string    `db:"full_name" json:"full_name"`
	Subjects           []string  `db:"-" json:"subjects"`
	AvailableDays      []Weekday `db:"-" json:"available_days"`
	AvailableStart     string    `db:"available_start" json:"available_start"`
	AvailableEnd       string    `db:"available_end" json:"available_end"`
	AssignedSectionIDs []string  `db:"-" json:"assigned_section_ids,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// Teaches reports whether the teacher covers the named subject.
func (t Teacher) Teaches(subjectName string) bool {
	for _, s := range t.Subjects {
		if s == subjectName {
			return true
		}
	}
	return false
}

// AssignedTo reports whether the teacher is explicitly bound to the section.
func (t Teacher) AssignedTo(sectionID string) bool {
	for _, id := range t.AssignedSectionIDs {
		if id == sectionID {
			return true
		}
	}
	return false
}
