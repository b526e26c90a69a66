package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusops/timetable-api/internal/dto"
	"github.com/campusops/timetable-api/internal/models"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

// SectionLister loads the sections enrolled for a term.
type SectionLister interface {
	ListByTerm(ctx context.Context, schoolYearID string, semester int) ([]models.Section, error)
}

// SubjectLister loads the subject catalogue.
type SubjectLister interface {
	ListAll(ctx context.Context) ([]models.Subject, error)
}

// TeacherLister loads the teacher roster.
type TeacherLister interface {
	ListAll(ctx context.Context) ([]models.Teacher, error)
}

// ClassroomLister loads the bookable rooms.
type ClassroomLister interface {
	ListAll(ctx context.Context) ([]models.Classroom, error)
}

// ScheduleEntryStore persists and queries timetable entries.
type ScheduleEntryStore interface {
	CountByScope(ctx context.Context, schoolYearID string, semester int) (int, error)
	ListByScope(ctx context.Context, schoolYearID string, semester int) ([]models.ScheduleEntry, error)
	ListBySchoolYear(ctx context.Context, schoolYearID string) ([]models.ScheduleEntry, error)
	Create(ctx context.Context, entry *models.ScheduleEntry) error
	Delete(ctx context.Context, id string) error
}

// EntryCache caches entry listings per scope.
type EntryCache interface {
	GetEntries(ctx context.Context, key string) ([]models.ScheduleEntry, error)
	SetEntries(ctx context.Context, key string, entries []models.ScheduleEntry, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// GeneratorMetrics records generation outcomes.
type GeneratorMetrics interface {
	ObserveRun(duration time.Duration, cancelled bool)
	AddPlacements(count int)
	AddFailure(failureType string)
	AddPersisted(count int)
}

// TimetableService orchestrates timetable generation, deletion, and listing.
type TimetableService struct {
	sections   SectionLister
	subjects   SubjectLister
	teachers   TeacherLister
	classrooms ClassroomLister
	entries    ScheduleEntryStore
	cache      EntryCache
	metrics    GeneratorMetrics
	validate   *validator.Validate
	logger     *zap.Logger
	cacheTTL   time.Duration
	now        func() time.Time
}

func NewTimetableService(
	sections SectionLister,
	subjects SubjectLister,
	teachers TeacherLister,
	classrooms ClassroomLister,
	entries ScheduleEntryStore,
	cache EntryCache,
	metrics GeneratorMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
	cacheTTL time.Duration,
) *TimetableService {
	return &TimetableService{
		sections:   sections,
		subjects:   subjects,
		teachers:   teachers,
		classrooms: classrooms,
		entries:    entries,
		cache:      cache,
		metrics:    metrics,
		validate:   validate,
		logger:     logger,
		cacheTTL:   cacheTTL,
		now:        time.Now,
	}
}

// Generate builds a conflict-free weekly timetable for the requested scope.
// Per-session placement failures are reported in the response and never abort
// the run; only invalid input, an occupied scope, or a data-load error is
// fatal. Cancellation is honoured between sessions and between saves, so the
// returned Created list always matches what was actually persisted.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	started := s.now()

	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid generation request: %v", err))
	}

	existingCount, err := s.entries.CountByScope(ctx, req.SchoolYearID, req.Semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing schedule entries")
	}
	if existingCount > 0 {
		return nil, appErrors.Clone(appErrors.ErrScopeConflict,
			fmt.Sprintf("%d schedule entries already exist for school year %s semester %d", existingCount, req.SchoolYearID, req.Semester))
	}

	input, err := s.loadInput(ctx, req)
	if err != nil {
		return nil, err
	}

	existing, err := s.entries.ListByScope(ctx, req.SchoolYearID, req.Semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing schedule entries")
	}

	state := newAllocationState(existing)
	resolver := newTeacherResolver(input.teachers)
	failures := make([]dto.AllocationFailure, 0)
	requests := make([]sessionRequest, 0, len(input.sections)*sessionsPerPair)
	requested := 0

	for _, section := range input.sections {
		for _, subjectID := range section.SubjectIDs {
			requested += sessionsPerPair
			subject, ok := input.subjectsByID[subjectID]
			if !ok {
				failures = append(failures, dto.AllocationFailure{
					Section:    section.Name,
					Subject:    subjectID,
					Type:       dto.FailureDataError,
					Reason:     "subject not found",
					Details:    fmt.Sprintf("section %s references unknown subject %s", section.Name, subjectID),
					Resolution: "remove the stale subject reference or restore the subject record",
				})
				continue
			}

			teacher, failure := resolver.Resolve(section, subject)
			if failure != nil {
				failures = append(failures, *failure)
				continue
			}

			planned, planFailures := planSessions(section, subject, teacher, input.classrooms)
			failures = append(failures, planFailures...)
			requests = append(requests, planned...)
		}
	}

	scheduled := make([]models.ScheduleEntry, 0, len(requests)*entriesPerSession)
	placedSessions := 0
	cancelled := false

	for _, request := range requests {
		select {
		case <-ctx.Done():
			cancelled = true
		default:
		}
		if cancelled {
			break
		}

		spot, failure := state.findPlacement(ctx, request)
		if failure != nil {
			failures = append(failures, *failure)
			continue
		}
		if spot == nil {
			cancelled = true
			break
		}
		if !state.quartersFree(request, spot.day, spot.classroom, spot.slot) {
			failures = append(failures, dto.AllocationFailure{
				Section:       request.section.Name,
				Subject:       request.subject.Name,
				SessionNumber: request.sessionNumber,
				Type:          dto.FailureTimeConflict,
				Reason:        "residual conflict detected before commit",
				Details:       fmt.Sprintf("%s %s in %s", spot.day, spot.slot, spot.classroom.Name),
				Resolution:    "re-run generation for this scope",
			})
			continue
		}
		state.commit(request, spot)
		scheduled = append(scheduled, s.materialize(request, spot)...)
		placedSessions++
	}

	created := make([]models.ScheduleEntry, 0, len(scheduled))
	saveFailures := 0

	for _, entry := range scheduled {
		select {
		case <-ctx.Done():
			cancelled = true
		default:
		}
		if cancelled {
			break
		}

		entry := entry
		if err := s.entries.Create(ctx, &entry); err != nil {
			saveFailures++
			s.logger.Warn("failed to persist schedule entry",
				zap.String("section", entry.Section.Name),
				zap.String("subject", entry.Subject),
				zap.Error(err))
			continue
		}
		created = append(created, entry)
	}

	s.invalidateScope(ctx, req.SchoolYearID)
	s.recordRunMetrics(started, created, failures, cancelled)

	s.logger.Info("timetable generation finished",
		zap.String("school_year_id", req.SchoolYearID),
		zap.Int("semester", req.Semester),
		zap.Int("sessions_requested", requested),
		zap.Int("sessions_placed", placedSessions),
		zap.Int("entries_saved", len(created)),
		zap.Int("failures", len(failures)),
		zap.Bool("cancelled", cancelled))

	return &dto.GenerateTimetableResponse{
		Created:  created,
		Failures: failures,
		Stats:    state.stats(),
		Counts: dto.RunCounts{
			Requested:    requested,
			Scheduled:    placedSessions,
			Saved:        len(created),
			SaveFailures: saveFailures,
			Remaining:    len(scheduled) - len(created) - saveFailures,
		},
		Cancelled: cancelled,
	}, nil
}

// generationInput bundles the loaded scope data.
type generationInput struct {
	sections     []models.Section
	subjectsByID map[string]models.Subject
	teachers     []models.Teacher
	classrooms   []models.Classroom
}

func (s *TimetableService) loadInput(ctx context.Context, req dto.GenerateTimetableRequest) (*generationInput, error) {
	sections, err := s.sections.ListByTerm(ctx, req.SchoolYearID, req.Semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}
	if len(sections) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("no sections found for school year %s semester %d", req.SchoolYearID, req.Semester))
	}
	for _, section := range sections {
		if len(section.SubjectIDs) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("section %s has no subjects selected", section.Name))
		}
	}

	subjects, err := s.subjects.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	if len(subjects) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no subjects available for scheduling")
	}
	teachers, err := s.teachers.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	if len(teachers) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no teachers available for scheduling")
	}
	classrooms, err := s.classrooms.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classrooms")
	}
	if len(classrooms) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no classrooms available for scheduling")
	}

	byID := make(map[string]models.Subject, len(subjects))
	for _, subject := range subjects {
		byID[subject.ID] = subject
	}

	return &generationInput{
		sections:     sections,
		subjectsByID: byID,
		teachers:     teachers,
		classrooms:   classrooms,
	}, nil
}

// materialize expands an accepted session into six consecutive 15-minute
// entries sharing the session number.
func (s *TimetableService) materialize(req sessionRequest, p *placement) []models.ScheduleEntry {
	now := s.now()
	date := dateFor(p.day, now)
	quarters := quarterHours(p.slot)

	entries := make([]models.ScheduleEntry, 0, len(quarters))
	for i, quarter := range quarters {
		entries = append(entries, models.ScheduleEntry{
			ID:            uuid.NewString(),
			Date:          date,
			StartTime:     formatMinutes(quarter.Start),
			EndTime:       formatMinutes(quarter.End),
			DayOfWeek:     p.day,
			Teacher:       models.EntityRef{ID: req.teacher.ID, Name: req.teacher.FullName},
			Classroom:     models.EntityRef{ID: p.classroom.ID, Name: p.classroom.Name},
			Section:       models.EntityRef{ID: req.section.ID, Name: req.section.Name},
			Subject:       req.subject.Name,
			SessionNumber: req.sessionNumber,
			TotalSessions: req.totalSessions,
			DurationIndex: i,
			SchoolYearID:  req.section.SchoolYearID,
			Semester:      req.section.Semester,
			Notes:         fmt.Sprintf("session %d of %d", req.sessionNumber, req.totalSessions),
			IsRecurring:   true,
			Status:        models.ScheduleEntryStatusScheduled,
			CreatedAt:     now,
		})
	}
	return entries
}

// DeleteBySchoolYear removes every entry stored for a school year, one at a
// time. Cancellation stops the sweep between deletions; already deleted rows
// stay deleted.
func (s *TimetableService) DeleteBySchoolYear(ctx context.Context, schoolYearID string) (*dto.DeleteBySchoolYearResponse, error) {
	if schoolYearID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "school year id is required")
	}

	entries, err := s.entries.ListBySchoolYear(ctx, schoolYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule entries")
	}

	deleted := 0
	failed := 0
	cancelled := false

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			cancelled = true
		default:
		}
		if cancelled {
			break
		}

		if err := s.entries.Delete(ctx, entry.ID); err != nil {
			failed++
			s.logger.Warn("failed to delete schedule entry", zap.String("entry_id", entry.ID), zap.Error(err))
			continue
		}
		deleted++
	}

	s.invalidateScope(ctx, schoolYearID)

	s.logger.Info("schedule entries deleted",
		zap.String("school_year_id", schoolYearID),
		zap.Int("deleted", deleted),
		zap.Int("failed", failed),
		zap.Bool("cancelled", cancelled))

	return &dto.DeleteBySchoolYearResponse{Deleted: deleted, Failed: failed, Cancelled: cancelled}, nil
}

// ListEntries returns the stored entries for a scope, served from cache when
// fresh.
func (s *TimetableService) ListEntries(ctx context.Context, query dto.EntryListQuery) ([]models.ScheduleEntry, error) {
	if err := s.validate.Struct(query); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid entry query: %v", err))
	}

	key := entryCacheKey(query.SchoolYearID, query.Semester)
	if s.cache != nil {
		if cached, err := s.cache.GetEntries(ctx, key); err == nil {
			return cached, nil
		}
	}

	entries, err := s.entries.ListByScope(ctx, query.SchoolYearID, query.Semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule entries")
	}

	if s.cache != nil {
		if err := s.cache.SetEntries(ctx, key, entries, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache schedule entries", zap.String("key", key), zap.Error(err))
		}
	}
	return entries, nil
}

func (s *TimetableService) invalidateScope(ctx context.Context, schoolYearID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, entryCachePattern(schoolYearID)); err != nil {
		s.logger.Warn("failed to invalidate entry cache", zap.String("school_year_id", schoolYearID), zap.Error(err))
	}
}

func (s *TimetableService) recordRunMetrics(started time.Time, created []models.ScheduleEntry, failures []dto.AllocationFailure, cancelled bool) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveRun(s.now().Sub(started), cancelled)
	s.metrics.AddPlacements(len(created) / entriesPerSession)
	s.metrics.AddPersisted(len(created))
	for _, failure := range failures {
		s.metrics.AddFailure(string(failure.Type))
	}
}

func entryCacheKey(schoolYearID string, semester int) string {
	return fmt.Sprintf("timetable:entries:%s:%d", schoolYearID, semester)
}

func entryCachePattern(schoolYearID string) string {
	return fmt.Sprintf("timetable:entries:%s:*", schoolYearID)
}

// dateFor anchors a weekday to its date in the week containing ref.
func dateFor(day models.Weekday, ref time.Time) string {
	monday := ref.AddDate(0, 0, -((int(ref.Weekday()) + 6) % 7))
	return monday.AddDate(0, 0, day.Order()-1).Format("2006-01-02")
}
