package service

import (
	"fmt"
	"strings"

	"github.com/campusops/timetable-api/internal/dto"
	"github.com/campusops/timetable-api/internal/models"
)

// sessionRequest is one 90-minute placement the slot search must satisfy.
type sessionRequest struct {
	section       models.Section
	subject       models.Subject
	teacher       models.Teacher
	sessionNumber int
	totalSessions int
	roomType      string
	candidates    []models.Classroom
}

func (r sessionRequest) pairKey() string {
	return r.subject.ID + "|" + r.section.ID
}

// planSessions expands one resolved (section, subject, teacher) triple into
// its two 1.5-hour session requests. A subject declaring two distinct room
// types sends session 1 to the first and session 2 to the second; otherwise
// both sessions share the single type.
func planSessions(section models.Section, subject models.Subject, teacher models.Teacher, classrooms []models.Classroom) ([]sessionRequest, []dto.AllocationFailure) {
	requests := make([]sessionRequest, 0, sessionsPerPair)
	failures := make([]dto.AllocationFailure, 0)

	for sessionNumber := 1; sessionNumber <= sessionsPerPair; sessionNumber++ {
		roomType := subject.RoomTypeForSession(sessionNumber)
		candidates := filterClassrooms(classrooms, roomType)
		if len(candidates) == 0 {
			failures = append(failures, dto.AllocationFailure{
				Section:       section.Name,
				Subject:       subject.Name,
				SessionNumber: sessionNumber,
				Type:          dto.FailureMissingClassroom,
				Reason:        "no classroom available",
				Details:       fmt.Sprintf("no classroom found for room type %q", roomType),
				Resolution:    fmt.Sprintf("add a classroom with room type %q", roomType),
			})
			continue
		}
		requests = append(requests, sessionRequest{
			section:       section,
			subject:       subject,
			teacher:       teacher,
			sessionNumber: sessionNumber,
			totalSessions: sessionsPerPair,
			roomType:      roomType,
			candidates:    candidates,
		})
	}

	return requests, failures
}

// filterClassrooms keeps rooms whose type matches case-insensitively. An
// empty or "Any" requirement matches every classroom.
func filterClassrooms(classrooms []models.Classroom, roomType string) []models.Classroom {
	required := strings.ToLower(strings.TrimSpace(roomType))
	if required == "" || required == "any" {
		result := make([]models.Classroom, len(classrooms))
		copy(result, classrooms)
		return result
	}

	result := make([]models.Classroom, 0, len(classrooms))
	for _, room := range classrooms {
		if strings.ToLower(strings.TrimSpace(room.RoomType)) == required {
			result = append(result, room)
		}
	}
	return result
}
