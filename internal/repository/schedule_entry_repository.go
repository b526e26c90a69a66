package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campusops/timetable-api/internal/models"
)

const scheduleEntryColumns = `id, date, start_time, end_time, day_of_week, teacher_id, teacher_name,
	classroom_id, classroom_name, section_id, section_name, subject, session_number, total_sessions,
	duration_index, school_year_id, semester, notes, is_recurring, status, created_at`

// ScheduleEntryRepository provides persistence for timetable entries.
type ScheduleEntryRepository struct {
	db *sqlx.DB
}

// NewScheduleEntryRepository creates a new schedule entry repository.
func NewScheduleEntryRepository(db *sqlx.DB) *ScheduleEntryRepository {
	return &ScheduleEntryRepository{db: db}
}

type scheduleEntryRow struct {
	ID            string    `db:"id"`
	Date          string    `db:"date"`
	StartTime     string    `db:"start_time"`
	EndTime       string    `db:"end_time"`
	DayOfWeek     string    `db:"day_of_week"`
	TeacherID     string    `db:"teacher_id"`
	TeacherName   string    `db:"teacher_name"`
	ClassroomID   string    `db:"classroom_id"`
	ClassroomName string    `db:"classroom_name"`
	SectionID     string    `db:"section_id"`
	SectionName   string    `db:"section_name"`
	Subject       string    `db:"subject"`
	SessionNumber int       `db:"session_number"`
	TotalSessions int       `db:"total_sessions"`
	DurationIndex int       `db:"duration_index"`
	SchoolYearID  string    `db:"school_year_id"`
	Semester      int       `db:"semester"`
	Notes         string    `db:"notes"`
	IsRecurring   bool      `db:"is_recurring"`
	Status        string    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
}

func (row scheduleEntryRow) toModel() models.ScheduleEntry {
	day, _ := models.ParseWeekday(row.DayOfWeek)
	return models.ScheduleEntry{
		ID:            row.ID,
		Date:          row.Date,
		StartTime:     row.StartTime,
		EndTime:       row.EndTime,
		DayOfWeek:     day,
		Teacher:       models.EntityRef{ID: row.TeacherID, Name: row.TeacherName},
		Classroom:     models.EntityRef{ID: row.ClassroomID, Name: row.ClassroomName},
		Section:       models.EntityRef{ID: row.SectionID, Name: row.SectionName},
		Subject:       row.Subject,
		SessionNumber: row.SessionNumber,
		TotalSessions: row.TotalSessions,
		DurationIndex: row.DurationIndex,
		SchoolYearID:  row.SchoolYearID,
		Semester:      row.Semester,
		Notes:         row.Notes,
		IsRecurring:   row.IsRecurring,
		Status:        models.ScheduleEntryStatus(row.Status),
		CreatedAt:     row.CreatedAt,
	}
}

// CountByScope counts stored entries for a school year and semester.
func (r *ScheduleEntryRepository) CountByScope(ctx context.Context, schoolYearID string, semester int) (int, error) {
	const query = `SELECT COUNT(*) FROM schedule_entries WHERE school_year_id = $1 AND semester = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, schoolYearID, semester); err != nil {
		return 0, fmt.Errorf("count schedule entries: %w", err)
	}
	return count, nil
}

// ListByScope returns the entries for a school year and semester ordered for
// display.
func (r *ScheduleEntryRepository) ListByScope(ctx context.Context, schoolYearID string, semester int) ([]models.ScheduleEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedule_entries WHERE school_year_id = $1 AND semester = $2
		ORDER BY date, start_time, section_name, id`, scheduleEntryColumns)
	var rows []scheduleEntryRow
	if err := r.db.SelectContext(ctx, &rows, query, schoolYearID, semester); err != nil {
		return nil, fmt.Errorf("list schedule entries: %w", err)
	}
	return rowsToModels(rows), nil
}

// ListBySchoolYear returns every entry stored for a school year across both
// semesters.
func (r *ScheduleEntryRepository) ListBySchoolYear(ctx context.Context, schoolYearID string) ([]models.ScheduleEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedule_entries WHERE school_year_id = $1
		ORDER BY date, start_time, section_name, id`, scheduleEntryColumns)
	var rows []scheduleEntryRow
	if err := r.db.SelectContext(ctx, &rows, query, schoolYearID); err != nil {
		return nil, fmt.Errorf("list schedule entries by school year: %w", err)
	}
	return rowsToModels(rows), nil
}

// Create inserts one entry.
func (r *ScheduleEntryRepository) Create(ctx context.Context, entry *models.ScheduleEntry) error {
	const query = `INSERT INTO schedule_entries (id, date, start_time, end_time, day_of_week, teacher_id,
		teacher_name, classroom_id, classroom_name, section_id, section_name, subject, session_number,
		total_sessions, duration_index, school_year_id, semester, notes, is_recurring, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.Date, entry.StartTime, entry.EndTime, string(entry.DayOfWeek),
		entry.Teacher.ID, entry.Teacher.Name, entry.Classroom.ID, entry.Classroom.Name,
		entry.Section.ID, entry.Section.Name, entry.Subject, entry.SessionNumber, entry.TotalSessions,
		entry.DurationIndex, entry.SchoolYearID, entry.Semester, entry.Notes, entry.IsRecurring,
		string(entry.Status), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("create schedule entry: %w", err)
	}
	return nil
}

// Delete removes one entry by id.
func (r *ScheduleEntryRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM schedule_entries WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete schedule entry %s: %w", id, err)
	}
	return nil
}

func rowsToModels(rows []scheduleEntryRow) []models.ScheduleEntry {
	entries := make([]models.ScheduleEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toModel())
	}
	return entries
}
