package models

import "time"

// RoomRequirement declares the room type a subject needs for part of its
// weekly duration. An empty or "Any" room type matches every classroom.
type RoomRequirement struct {
	RoomType      string  `json:"room_type"`
	DurationHours float64 `json:"duration_hours"`
}

// Subject represents an academic subject taught to sections.
//
// Weekly contact time is fixed at 3 hours, delivered as 2 sessions of 1.5
// hours each; declared requirement durations only influence which room type
// each session uses.
type Subject struct {
	ID               string            `db:"id" json:"id"`
	Name             string            `db:"name" json:"name"`
	RoomRequirements []RoomRequirement `db:"-" json:"room_requirements"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

// RoomTypeForSession returns the room type for the 1-based session number.
// Subjects with two distinct requirements split their sessions across them;
// a single requirement covers both sessions.
func (s Subject) RoomTypeForSession(sessionNumber int) string {
	if len(s.RoomRequirements) == 0 {
		return ""
	}
	idx := sessionNumber - 1
	if idx >= len(s.RoomRequirements) {
		idx = len(s.RoomRequirements) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return s.RoomRequirements[idx].RoomType
}
