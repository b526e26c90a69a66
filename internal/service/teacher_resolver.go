package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/campusops/timetable-api/internal/dto"
	"github.com/campusops/timetable-api/internal/models"
)

// teacherResolver binds exactly one teacher to each (section, subject) pair.
// The binding covers both of the pair's sessions, so the running load counter
// advances by two sessions per successful resolution.
type teacherResolver struct {
	teachers  []models.Teacher
	boundLoad map[string]int
	// teacher ids already bound per subject id, so strict-mode sections
	// reuse one teacher across many same-subject sections.
	subjectTeachers map[string]map[string]bool
}

func newTeacherResolver(teachers []models.Teacher) *teacherResolver {
	return &teacherResolver{
		teachers:        teachers,
		boundLoad:       make(map[string]int),
		subjectTeachers: make(map[string]map[string]bool),
	}
}

// Resolve picks the teacher for one (section, subject) pair. Explicit section
// assignments win over the capability fallback pool; ties always go to the
// least-loaded teacher.
func (r *teacherResolver) Resolve(section models.Section, subject models.Subject) (models.Teacher, *dto.AllocationFailure) {
	strict := r.strictPool(section, subject)
	if len(strict) > 0 {
		return r.pick(strict, subject, true), nil
	}

	fallback := make([]models.Teacher, 0)
	capable := 0
	for _, t := range r.teachers {
		if !t.Teaches(subject.Name) {
			continue
		}
		capable++
		if models.DaysOverlap(t.AvailableDays, section.Days) {
			fallback = append(fallback, t)
		}
	}

	if len(fallback) > 0 {
		return r.pick(fallback, subject, false), nil
	}

	if capable == 0 {
		return models.Teacher{}, &dto.AllocationFailure{
			Section:    section.Name,
			Subject:    subject.Name,
			Type:       dto.FailureMissingTeacher,
			Reason:     "no teacher available",
			Details:    fmt.Sprintf("no teacher found for subject %q", subject.Name),
			Resolution: "add a teacher who can teach this subject or assign an existing teacher to it",
		}
	}

	return models.Teacher{}, &dto.AllocationFailure{
		Section:    section.Name,
		Subject:    subject.Name,
		Type:       dto.FailureTeacherAvailability,
		Reason:     "no qualified teacher shares a school day with the section",
		Details:    r.availabilityDetails(section, subject),
		Resolution: "extend a qualified teacher's available days or adjust the section's weekly pattern",
	}
}

func (r *teacherResolver) strictPool(section models.Section, subject models.Subject) []models.Teacher {
	pool := make([]models.Teacher, 0)
	for _, t := range r.teachers {
		if !t.AssignedTo(section.ID) {
			continue
		}
		if !t.Teaches(subject.Name) {
			continue
		}
		if !models.DaysOverlap(t.AvailableDays, section.Days) {
			continue
		}
		pool = append(pool, t)
	}
	return pool
}

// pick orders the pool and records the binding. Strict pools prefer teachers
// already bound to the same subject elsewhere before balancing load; the
// fallback pool balances load only.
func (r *teacherResolver) pick(pool []models.Teacher, subject models.Subject, preferReuse bool) models.Teacher {
	ordered := make([]models.Teacher, len(pool))
	copy(ordered, pool)
	sort.SliceStable(ordered, func(i, j int) bool {
		if preferReuse {
			ri := r.boundToSubject(subject.ID, ordered[i].ID)
			rj := r.boundToSubject(subject.ID, ordered[j].ID)
			if ri != rj {
				return ri
			}
		}
		return r.boundLoad[ordered[i].ID] < r.boundLoad[ordered[j].ID]
	})

	chosen := ordered[0]
	r.boundLoad[chosen.ID] += sessionsPerPair
	if r.subjectTeachers[subject.ID] == nil {
		r.subjectTeachers[subject.ID] = make(map[string]bool)
	}
	r.subjectTeachers[subject.ID][chosen.ID] = true
	return chosen
}

func (r *teacherResolver) boundToSubject(subjectID, teacherID string) bool {
	bound, ok := r.subjectTeachers[subjectID]
	return ok && bound[teacherID]
}

func (r *teacherResolver) availabilityDetails(section models.Section, subject models.Subject) string {
	var b strings.Builder
	fmt.Fprintf(&b, "section days %v", section.Days)
	for _, t := range r.teachers {
		if t.Teaches(subject.Name) {
			fmt.Fprintf(&b, "; teacher %s available %v", t.FullName, t.AvailableDays)
		}
	}
	return b.String()
}
