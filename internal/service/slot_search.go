package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/campusops/timetable-api/internal/dto"
	"github.com/campusops/timetable-api/internal/models"
)

// placement is an accepted (day, slot, classroom) triple for one session.
type placement struct {
	day           models.Weekday
	slot          timeWindow
	classroom     models.Classroom
	slotsExamined int
}

// allocationState carries all working data for a single generation run: the
// conflict tracker, the load-balancing usage counters, the consumed-day sets
// enforcing the distinct-day-per-session constraint, and the sibling-room
// preference. It is local to one run and discarded afterward.
type allocationState struct {
	tracker         *conflictTracker
	dayUsage        map[models.Weekday]int
	teacherDayUsage map[string]map[models.Weekday]int
	slotUsage       map[int]int
	teacherUsage    map[string]int
	classroomUsage  map[string]int
	usedDays        map[string]map[models.Weekday]bool
	siblingRoom     map[string]string
}

func newAllocationState(existing []models.ScheduleEntry) *allocationState {
	state := &allocationState{
		tracker:         newConflictTracker(),
		dayUsage:        make(map[models.Weekday]int),
		teacherDayUsage: make(map[string]map[models.Weekday]int),
		slotUsage:       make(map[int]int),
		teacherUsage:    make(map[string]int),
		classroomUsage:  make(map[string]int),
		usedDays:        make(map[string]map[models.Weekday]bool),
		siblingRoom:     make(map[string]string),
	}
	state.tracker.Seed(existing)
	return state
}

// findPlacement searches the day x slot x classroom space for the first
// conflict-free, load-balanced spot for the session. The search is bounded by
// slots x days combinations. A nil, nil return means ctx was cancelled.
func (s *allocationState) findPlacement(ctx context.Context, req sessionRequest) (*placement, *dto.AllocationFailure) {
	availStart := parseClock(req.teacher.AvailableStart)
	availEnd := parseClock(req.teacher.AvailableEnd)
	if availStart < 0 || availEnd < 0 || availEnd <= availStart {
		return nil, &dto.AllocationFailure{
			Section:       req.section.Name,
			Subject:       req.subject.Name,
			SessionNumber: req.sessionNumber,
			Type:          dto.FailureDataError,
			Reason:        "teacher availability window is malformed",
			Details:       fmt.Sprintf("teacher %s window %q-%q", req.teacher.FullName, req.teacher.AvailableStart, req.teacher.AvailableEnd),
			Resolution:    "correct the teacher's availability start and end times",
		}
	}

	days := s.candidateDays(req)
	slots := s.candidateSlots(availStart, availEnd)
	examined := 0

	for _, slot := range slots {
		if ctx.Err() != nil {
			return nil, nil
		}
		for _, day := range days {
			examined++
			if room, ok := s.pickClassroom(req, day, slot); ok {
				return &placement{day: day, slot: slot, classroom: room, slotsExamined: examined}, nil
			}
		}
	}

	return nil, &dto.AllocationFailure{
		Section:       req.section.Name,
		Subject:       req.subject.Name,
		SessionNumber: req.sessionNumber,
		Type:          dto.FailureTimeConflict,
		Reason:        "no conflict-free slot available",
		Details: fmt.Sprintf("teacher %s available %v within %s-%s; %d slot/day combinations examined",
			req.teacher.FullName, req.teacher.AvailableDays,
			formatMinutes(availStart), formatMinutes(availEnd), examined),
		Resolution: "add classrooms or teachers, widen the teacher's availability, or free up slots in this scope",
	}
}

// candidateDays intersects the section pattern with the teacher's days, drops
// days already consumed by the sibling session, and orders the rest by the
// load-balancing heuristic.
func (s *allocationState) candidateDays(req sessionRequest) []models.Weekday {
	candidates := make([]models.Weekday, 0, len(models.SchoolDays))
	consumed := s.usedDays[req.pairKey()]
	for _, day := range models.IntersectDays(req.section.Days, req.teacher.AvailableDays) {
		if consumed[day] {
			continue
		}
		candidates = append(candidates, day)
	}

	var mean float64
	if req.sessionNumber > 1 && len(candidates) > 0 {
		total := 0
		for _, day := range candidates {
			total += s.dayUsage[day]
		}
		mean = float64(total) / float64(len(candidates))
	}

	teacherDays := s.teacherDayUsage[req.teacher.ID]
	sort.SliceStable(candidates, func(i, j int) bool {
		di, dj := candidates[i], candidates[j]
		if teacherDays[di] != teacherDays[dj] {
			return teacherDays[di] < teacherDays[dj]
		}
		if s.dayUsage[di] != s.dayUsage[dj] {
			return s.dayUsage[di] < s.dayUsage[dj]
		}
		if req.sessionNumber > 1 {
			belowI := float64(s.dayUsage[di]) < mean
			belowJ := float64(s.dayUsage[dj]) < mean
			if belowI != belowJ {
				return belowI
			}
		}
		// Friday drains last in naive left-to-right sweeps; prefer it on ties.
		if (di == models.Friday) != (dj == models.Friday) {
			return di == models.Friday
		}
		return false
	})

	return candidates
}

// candidateSlots keeps template slots that sit fully inside the teacher's
// availability window, least-used start times first.
func (s *allocationState) candidateSlots(availStart, availEnd int) []timeWindow {
	slots := make([]timeWindow, 0, len(dayTemplate))
	for _, slot := range dayTemplate {
		if availStart <= slot.Start && slot.End <= availEnd {
			slots = append(slots, slot)
		}
	}
	sort.SliceStable(slots, func(i, j int) bool {
		return s.slotUsage[slots[i].Start] < s.slotUsage[slots[j].Start]
	})
	return slots
}

// pickClassroom prefers the room already used by the sibling session when it
// is still conflict-free, then the least-used conflict-free candidate. A room
// qualifies only if the whole 90 minutes and each 15-minute sub-interval pass
// the tracker.
func (s *allocationState) pickClassroom(req sessionRequest, day models.Weekday, slot timeWindow) (models.Classroom, bool) {
	ordered := make([]models.Classroom, len(req.candidates))
	copy(ordered, req.candidates)
	sibling := s.siblingRoom[req.pairKey()]
	sort.SliceStable(ordered, func(i, j int) bool {
		if sibling != "" && (ordered[i].ID == sibling) != (ordered[j].ID == sibling) {
			return ordered[i].ID == sibling
		}
		return s.classroomUsage[ordered[i].ID] < s.classroomUsage[ordered[j].ID]
	})

	for _, room := range ordered {
		if s.tracker.Conflict(day, req.teacher.ID, room.ID, req.section.ID, slot.Start, slot.End) != "" {
			continue
		}
		if !s.quartersFree(req, day, room, slot) {
			continue
		}
		return room, true
	}
	return models.Classroom{}, false
}

// quartersFree re-checks every 15-minute sub-interval, guarding against any
// accounting drift between the session-level and entry-level indexes.
func (s *allocationState) quartersFree(req sessionRequest, day models.Weekday, room models.Classroom, slot timeWindow) bool {
	for _, quarter := range quarterHours(slot) {
		if overlapsBreak(quarter.Start, quarter.End) {
			return false
		}
		if s.tracker.Conflict(day, req.teacher.ID, room.ID, req.section.ID, quarter.Start, quarter.End) != "" {
			return false
		}
	}
	return true
}

// commit registers an accepted placement: occupied intervals for all six
// quarter hours, usage counters, the consumed day, and the sibling room.
func (s *allocationState) commit(req sessionRequest, p *placement) {
	for _, quarter := range quarterHours(p.slot) {
		s.tracker.Record(p.day, req.teacher.ID, p.classroom.ID, req.section.ID, quarter.Start, quarter.End)
	}

	s.dayUsage[p.day]++
	s.slotUsage[p.slot.Start]++
	s.teacherUsage[req.teacher.ID]++
	if s.teacherDayUsage[req.teacher.ID] == nil {
		s.teacherDayUsage[req.teacher.ID] = make(map[models.Weekday]int)
	}
	s.teacherDayUsage[req.teacher.ID][p.day]++
	s.classroomUsage[p.classroom.ID] += entriesPerSession

	key := req.pairKey()
	if s.usedDays[key] == nil {
		s.usedDays[key] = make(map[models.Weekday]bool)
	}
	s.usedDays[key][p.day] = true
	s.siblingRoom[key] = p.classroom.ID
}

// stats snapshots the usage counters for the run report.
func (s *allocationState) stats() dto.TimetableStats {
	perDay := make(map[models.Weekday]int, len(s.dayUsage))
	for day, count := range s.dayUsage {
		perDay[day] = count
	}
	perSlot := make(map[string]int, len(s.slotUsage))
	for start, count := range s.slotUsage {
		perSlot[formatMinutes(start)] = count
	}
	perTeacher := make(map[string]int, len(s.teacherUsage))
	for id, count := range s.teacherUsage {
		perTeacher[id] = count
	}
	perClassroom := make(map[string]int, len(s.classroomUsage))
	for id, count := range s.classroomUsage {
		perClassroom[id] = count
	}
	return dto.TimetableStats{
		PerDay:       perDay,
		PerTimeSlot:  perSlot,
		PerTeacher:   perTeacher,
		PerClassroom: perClassroom,
	}
}
