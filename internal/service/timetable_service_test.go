package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusops/timetable-api/internal/dto"
	"github.com/campusops/timetable-api/internal/models"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

type stubSections struct {
	sections []models.Section
	err      error
}

func (s stubSections) ListByTerm(context.Context, string, int) ([]models.Section, error) {
	return s.sections, s.err
}

type stubSubjects struct {
	subjects []models.Subject
	err      error
}

func (s stubSubjects) ListAll(context.Context) ([]models.Subject, error) {
	return s.subjects, s.err
}

type stubTeachers struct {
	teachers []models.Teacher
	err      error
}

func (s stubTeachers) ListAll(context.Context) ([]models.Teacher, error) {
	return s.teachers, s.err
}

type stubClassrooms struct {
	classrooms []models.Classroom
	err        error
}

func (s stubClassrooms) ListAll(context.Context) ([]models.Classroom, error) {
	return s.classrooms, s.err
}

type stubEntryStore struct {
	count     int
	countErr  error
	existing  []models.ScheduleEntry
	created   []models.ScheduleEntry
	deleted   []string
	calls     int
	createErr func(saveIndex int) error
	deleteErr func(id string) error
	onCreate  func(saveIndex int)
}

func (s *stubEntryStore) CountByScope(context.Context, string, int) (int, error) {
	return s.count, s.countErr
}

func (s *stubEntryStore) ListByScope(context.Context, string, int) ([]models.ScheduleEntry, error) {
	return s.existing, nil
}

func (s *stubEntryStore) ListBySchoolYear(context.Context, string) ([]models.ScheduleEntry, error) {
	return s.existing, nil
}

func (s *stubEntryStore) Create(_ context.Context, entry *models.ScheduleEntry) error {
	s.calls++
	if s.onCreate != nil {
		s.onCreate(s.calls)
	}
	if s.createErr != nil {
		if err := s.createErr(s.calls); err != nil {
			return err
		}
	}
	s.created = append(s.created, *entry)
	return nil
}

func (s *stubEntryStore) Delete(_ context.Context, id string) error {
	if s.deleteErr != nil {
		if err := s.deleteErr(id); err != nil {
			return err
		}
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type stubEntryCache struct {
	entries     map[string][]models.ScheduleEntry
	sets        []string
	invalidated []string
}

func (c *stubEntryCache) GetEntries(_ context.Context, key string) ([]models.ScheduleEntry, error) {
	if entries, ok := c.entries[key]; ok {
		return entries, nil
	}
	return nil, appErrors.ErrCacheMiss
}

func (c *stubEntryCache) SetEntries(_ context.Context, key string, entries []models.ScheduleEntry, _ time.Duration) error {
	if c.entries == nil {
		c.entries = make(map[string][]models.ScheduleEntry)
	}
	c.entries[key] = entries
	c.sets = append(c.sets, key)
	return nil
}

func (c *stubEntryCache) Invalidate(_ context.Context, pattern string) error {
	c.invalidated = append(c.invalidated, pattern)
	return nil
}

type stubGeneratorMetrics struct {
	runs       int
	placements int
	persisted  int
	failures   map[string]int
}

func (m *stubGeneratorMetrics) ObserveRun(time.Duration, bool) { m.runs++ }
func (m *stubGeneratorMetrics) AddPlacements(count int)        { m.placements += count }
func (m *stubGeneratorMetrics) AddPersisted(count int)         { m.persisted += count }
func (m *stubGeneratorMetrics) AddFailure(failureType string) {
	if m.failures == nil {
		m.failures = make(map[string]int)
	}
	m.failures[failureType]++
}

type timetableFixtureConfig struct {
	sections   []models.Section
	subjects   []models.Subject
	teachers   []models.Teacher
	classrooms []models.Classroom
	store      *stubEntryStore
	cache      *stubEntryCache
	metrics    *stubGeneratorMetrics
}

func fixtureSection(id string, subjectIDs ...string) models.Section {
	return models.Section{
		ID:           id,
		Name:         "Section " + id,
		SubjectIDs:   subjectIDs,
		Days:         models.SchoolDays,
		SchoolYearID: "sy-1",
		Semester:     1,
	}
}

func newTimetableFixture(t *testing.T, cfg timetableFixtureConfig) (*TimetableService, *stubEntryStore) {
	t.Helper()

	if cfg.sections == nil {
		cfg.sections = []models.Section{fixtureSection("sec-1", "math")}
	}
	if cfg.subjects == nil {
		cfg.subjects = []models.Subject{{ID: "math", Name: "Math"}}
	}
	if cfg.teachers == nil {
		cfg.teachers = []models.Teacher{resolverTeacher("t1", "Math")}
	}
	if cfg.classrooms == nil {
		cfg.classrooms = []models.Classroom{{ID: "r1", Name: "Room 1"}}
	}
	if cfg.store == nil {
		cfg.store = &stubEntryStore{}
	}

	var cache EntryCache
	if cfg.cache != nil {
		cache = cfg.cache
	}
	var metrics GeneratorMetrics
	if cfg.metrics != nil {
		metrics = cfg.metrics
	}

	svc := NewTimetableService(
		stubSections{sections: cfg.sections},
		stubSubjects{subjects: cfg.subjects},
		stubTeachers{teachers: cfg.teachers},
		stubClassrooms{classrooms: cfg.classrooms},
		cfg.store,
		cache,
		metrics,
		validator.New(),
		zap.NewNop(),
		5*time.Minute,
	)
	return svc, cfg.store
}

func generateRequest() dto.GenerateTimetableRequest {
	return dto.GenerateTimetableRequest{SchoolYearID: "sy-1", Semester: 1}
}

func assertNoOverlaps(t *testing.T, entries []models.ScheduleEntry) {
	t.Helper()
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			a, b := entries[i], entries[j]
			if a.DayOfWeek != b.DayOfWeek {
				continue
			}
			shared := a.Teacher.ID == b.Teacher.ID || a.Classroom.ID == b.Classroom.ID || a.Section.ID == b.Section.ID
			if !shared {
				continue
			}
			overlap := windowsOverlap(parseClock(a.StartTime), parseClock(a.EndTime), parseClock(b.StartTime), parseClock(b.EndTime))
			assert.False(t, overlap, "entries %s %s-%s and %s %s-%s overlap", a.DayOfWeek, a.StartTime, a.EndTime, b.DayOfWeek, b.StartTime, b.EndTime)
		}
	}
}

func TestGenerateSuccess(t *testing.T) {
	metrics := &stubGeneratorMetrics{}
	svc, store := newTimetableFixture(t, timetableFixtureConfig{metrics: metrics})

	resp, err := svc.Generate(context.Background(), generateRequest())
	require.NoError(t, err)

	assert.Empty(t, resp.Failures)
	assert.False(t, resp.Cancelled)
	require.Len(t, resp.Created, sessionsPerPair*entriesPerSession)
	assert.Len(t, store.created, len(resp.Created))

	assert.Equal(t, dto.RunCounts{Requested: 2, Scheduled: 2, Saved: 12}, resp.Counts)
	assert.Equal(t, 2, metrics.placements)
	assert.Equal(t, 12, metrics.persisted)
	assert.Equal(t, 1, metrics.runs)

	// each session is six abutting quarter hours on one day
	bySession := map[int][]models.ScheduleEntry{}
	for _, entry := range resp.Created {
		bySession[entry.SessionNumber] = append(bySession[entry.SessionNumber], entry)
	}
	require.Len(t, bySession, sessionsPerPair)

	days := map[models.Weekday]bool{}
	for session, group := range bySession {
		require.Len(t, group, entriesPerSession, "session %d", session)
		day := group[0].DayOfWeek
		days[day] = true
		for i, entry := range group {
			assert.Equal(t, day, entry.DayOfWeek)
			assert.Equal(t, i, entry.DurationIndex)
			assert.Equal(t, entryMinutes, parseClock(entry.EndTime)-parseClock(entry.StartTime))
			assert.False(t, overlapsBreak(parseClock(entry.StartTime), parseClock(entry.EndTime)))
			if i > 0 {
				assert.Equal(t, group[i-1].EndTime, entry.StartTime, "quarters must abut")
			}
			assert.Equal(t, models.ScheduleEntryStatusScheduled, entry.Status)
			assert.True(t, entry.IsRecurring)
			assert.Equal(t, "sy-1", entry.SchoolYearID)
			assert.NotEmpty(t, entry.ID)
		}
	}
	assert.Len(t, days, 2, "the two sessions must land on distinct days")

	assertNoOverlaps(t, resp.Created)
}

func TestGenerateManySectionsStayConflictFree(t *testing.T) {
	sections := []models.Section{
		fixtureSection("sec-1", "math", "bio"),
		fixtureSection("sec-2", "math", "bio"),
		fixtureSection("sec-3", "math"),
	}
	subjects := []models.Subject{
		{ID: "math", Name: "Math"},
		{ID: "bio", Name: "Biology"},
	}
	teachers := []models.Teacher{
		resolverTeacher("t1", "Math"),
		resolverTeacher("t2", "Biology"),
	}
	classrooms := []models.Classroom{
		{ID: "r1", Name: "Room 1"},
		{ID: "r2", Name: "Room 2"},
		{ID: "r3", Name: "Room 3"},
	}

	svc, _ := newTimetableFixture(t, timetableFixtureConfig{
		sections: sections, subjects: subjects, teachers: teachers, classrooms: classrooms,
	})

	resp, err := svc.Generate(context.Background(), generateRequest())
	require.NoError(t, err)
	assert.Empty(t, resp.Failures)
	// 5 pairs, 2 sessions each, 6 entries per session
	assert.Len(t, resp.Created, 5*sessionsPerPair*entriesPerSession)
	assertNoOverlaps(t, resp.Created)
}

func TestGenerateSingleAvailableDayExhausts(t *testing.T) {
	teacher := resolverTeacher("t1", "Math")
	teacher.AvailableDays = []models.Weekday{models.Monday}
	svc, store := newTimetableFixture(t, timetableFixtureConfig{
		teachers: []models.Teacher{teacher},
	})

	resp, err := svc.Generate(context.Background(), generateRequest())
	require.NoError(t, err)

	// session 1 lands on the only shared day, session 2 has nowhere left to go
	assert.Len(t, store.created, entriesPerSession)
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, dto.FailureTimeConflict, resp.Failures[0].Type)
	assert.Equal(t, 2, resp.Failures[0].SessionNumber)
	for _, entry := range resp.Created {
		assert.Equal(t, models.Monday, entry.DayOfWeek)
	}
}

func TestGenerateBalancesTeacherLoad(t *testing.T) {
	sections := []models.Section{
		fixtureSection("sec-1", "math"),
		fixtureSection("sec-2", "math"),
	}
	teachers := []models.Teacher{
		resolverTeacher("t1", "Math"),
		resolverTeacher("t2", "Math"),
	}
	svc, _ := newTimetableFixture(t, timetableFixtureConfig{
		sections: sections,
		teachers: teachers,
		classrooms: []models.Classroom{
			{ID: "r1", Name: "Room 1"},
			{ID: "r2", Name: "Room 2"},
		},
	})

	resp, err := svc.Generate(context.Background(), generateRequest())
	require.NoError(t, err)
	assert.Empty(t, resp.Failures)
	assert.Equal(t, 2, resp.Stats.PerTeacher["t1"])
	assert.Equal(t, 2, resp.Stats.PerTeacher["t2"])
}

func TestGenerateValidationError(t *testing.T) {
	svc, _ := newTimetableFixture(t, timetableFixtureConfig{})

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{Semester: 3})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGenerateEmptyScopeIsValidationError(t *testing.T) {
	svc, _ := newTimetableFixture(t, timetableFixtureConfig{sections: []models.Section{}})

	_, err := svc.Generate(context.Background(), generateRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGenerateEmptySubjectCatalogueIsValidationError(t *testing.T) {
	svc, _ := newTimetableFixture(t, timetableFixtureConfig{subjects: []models.Subject{}})

	resp, err := svc.Generate(context.Background(), generateRequest())
	require.Error(t, err)
	assert.Nil(t, resp)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "no subjects available")
}

func TestGenerateSectionWithoutSubjectsIsValidationError(t *testing.T) {
	svc, store := newTimetableFixture(t, timetableFixtureConfig{
		sections: []models.Section{
			fixtureSection("sec-1", "math"),
			fixtureSection("sec-2"),
		},
	})

	resp, err := svc.Generate(context.Background(), generateRequest())
	require.Error(t, err)
	assert.Nil(t, resp)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "Section sec-2")
	assert.Empty(t, store.created)
}

func TestGenerateRefusesOccupiedScope(t *testing.T) {
	store := &stubEntryStore{count: 7}
	svc, _ := newTimetableFixture(t, timetableFixtureConfig{store: store})

	_, err := svc.Generate(context.Background(), generateRequest())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrScopeConflict.Code, appErr.Code)
	assert.Empty(t, store.created, "an occupied scope must stay untouched")
}

func TestGenerateMissingClassroomIsReported(t *testing.T) {
	subjects := []models.Subject{{
		ID:   "chem",
		Name: "Chemistry",
		RoomRequirements: []models.RoomRequirement{
			{RoomType: "Laboratory", DurationHours: 3},
		},
	}}
	svc, store := newTimetableFixture(t, timetableFixtureConfig{
		sections:   []models.Section{fixtureSection("sec-1", "chem")},
		subjects:   subjects,
		teachers:   []models.Teacher{resolverTeacher("t1", "Chemistry")},
		classrooms: []models.Classroom{{ID: "r1", Name: "Room 1", RoomType: "Regular"}},
	})

	resp, err := svc.Generate(context.Background(), generateRequest())
	require.NoError(t, err)
	require.Len(t, resp.Failures, sessionsPerPair)
	for _, failure := range resp.Failures {
		assert.Equal(t, dto.FailureMissingClassroom, failure.Type)
		assert.Contains(t, failure.Details, "Laboratory")
	}
	assert.Empty(t, store.created)
	assert.Equal(t, 2, resp.Counts.Requested)
	assert.Equal(t, 0, resp.Counts.Scheduled)
}

func TestGenerateUnknownSubjectIsDataError(t *testing.T) {
	svc, _ := newTimetableFixture(t, timetableFixtureConfig{
		sections: []models.Section{fixtureSection("sec-1", "ghost")},
	})

	resp, err := svc.Generate(context.Background(), generateRequest())
	require.NoError(t, err)
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, dto.FailureDataError, resp.Failures[0].Type)
	assert.Empty(t, resp.Created)
}

func TestGenerateCancellationIsHonest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := &stubEntryStore{
		onCreate: func(saveIndex int) {
			if saveIndex == 3 {
				cancel()
			}
		},
	}
	svc, _ := newTimetableFixture(t, timetableFixtureConfig{store: store})

	resp, err := svc.Generate(ctx, generateRequest())
	require.NoError(t, err)

	assert.True(t, resp.Cancelled)
	assert.Len(t, resp.Created, 3, "the response must list exactly the persisted entries")
	assert.Len(t, store.created, 3)
	assert.Equal(t, 3, resp.Counts.Saved)
	assert.Equal(t, 0, resp.Counts.SaveFailures)
	assert.Equal(t, 9, resp.Counts.Remaining)
}

func TestGenerateSaveFailureDoesNotAbortRun(t *testing.T) {
	store := &stubEntryStore{
		createErr: func(saveIndex int) error {
			if saveIndex == 2 {
				return errors.New("insert failed")
			}
			return nil
		},
	}
	svc, _ := newTimetableFixture(t, timetableFixtureConfig{store: store})

	resp, err := svc.Generate(context.Background(), generateRequest())
	require.NoError(t, err)
	assert.False(t, resp.Cancelled)
	assert.Len(t, resp.Created, 11)
	assert.Equal(t, 1, resp.Counts.SaveFailures)
	assert.Equal(t, 0, resp.Counts.Remaining)
}

func TestGenerateInvalidatesEntryCache(t *testing.T) {
	cache := &stubEntryCache{}
	svc, _ := newTimetableFixture(t, timetableFixtureConfig{cache: cache})

	_, err := svc.Generate(context.Background(), generateRequest())
	require.NoError(t, err)
	require.Len(t, cache.invalidated, 1)
	assert.Equal(t, "timetable:entries:sy-1:*", cache.invalidated[0])
}

func TestDeleteBySchoolYear(t *testing.T) {
	store := &stubEntryStore{existing: []models.ScheduleEntry{{ID: "e1"}, {ID: "e2"}, {ID: "e3"}}}
	svc, _ := newTimetableFixture(t, timetableFixtureConfig{store: store})

	resp, err := svc.DeleteBySchoolYear(context.Background(), "sy-1")
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Deleted)
	assert.Equal(t, 0, resp.Failed)
	assert.False(t, resp.Cancelled)
	assert.Equal(t, []string{"e1", "e2", "e3"}, store.deleted)
}

func TestDeleteBySchoolYearCountsFailures(t *testing.T) {
	store := &stubEntryStore{
		existing: []models.ScheduleEntry{{ID: "e1"}, {ID: "e2"}},
		deleteErr: func(id string) error {
			if id == "e1" {
				return errors.New("row locked")
			}
			return nil
		},
	}
	svc, _ := newTimetableFixture(t, timetableFixtureConfig{store: store})

	resp, err := svc.DeleteBySchoolYear(context.Background(), "sy-1")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Deleted)
	assert.Equal(t, 1, resp.Failed)
}

func TestDeleteBySchoolYearRequiresID(t *testing.T) {
	svc, _ := newTimetableFixture(t, timetableFixtureConfig{})

	_, err := svc.DeleteBySchoolYear(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestListEntriesServesCacheHit(t *testing.T) {
	cached := []models.ScheduleEntry{{ID: "cached"}}
	cache := &stubEntryCache{entries: map[string][]models.ScheduleEntry{
		"timetable:entries:sy-1:1": cached,
	}}
	store := &stubEntryStore{existing: []models.ScheduleEntry{{ID: "stored"}}}
	svc, _ := newTimetableFixture(t, timetableFixtureConfig{cache: cache, store: store})

	entries, err := svc.ListEntries(context.Background(), dto.EntryListQuery{SchoolYearID: "sy-1", Semester: 1})
	require.NoError(t, err)
	assert.Equal(t, cached, entries)
}

func TestListEntriesFillsCacheOnMiss(t *testing.T) {
	cache := &stubEntryCache{}
	store := &stubEntryStore{existing: []models.ScheduleEntry{{ID: "stored"}}}
	svc, _ := newTimetableFixture(t, timetableFixtureConfig{cache: cache, store: store})

	entries, err := svc.ListEntries(context.Background(), dto.EntryListQuery{SchoolYearID: "sy-1", Semester: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"timetable:entries:sy-1:1"}, cache.sets)
}
