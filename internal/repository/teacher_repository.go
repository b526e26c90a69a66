package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campusops/timetable-api/internal/models"
)

// TeacherRepository provides persistence for teachers.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository creates a new teacher repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

type teacherRow struct {
	ID                 string         `db:"id"`
	FullName           string         `db:"full_name"`
	Subjects           pq.StringArray `db:"subjects"`
	AvailableDays      pq.StringArray `db:"available_days"`
	AvailableStart     string         `db:"available_start"`
	AvailableEnd       string         `db:"available_end"`
	AssignedSectionIDs pq.StringArray `db:"assigned_section_ids"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func (row teacherRow) toModel() models.Teacher {
	days := make([]models.Weekday, 0, len(row.AvailableDays))
	for _, raw := range row.AvailableDays {
		if day, ok := models.ParseWeekday(raw); ok {
			days = append(days, day)
		}
	}
	return models.Teacher{
		ID:                 row.ID,
		FullName:           row.FullName,
		Subjects:           []string(row.Subjects),
		AvailableDays:      days,
		AvailableStart:     row.AvailableStart,
		AvailableEnd:       row.AvailableEnd,
		AssignedSectionIDs: []string(row.AssignedSectionIDs),
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}

// ListAll returns the teacher roster in a stable order.
func (r *TeacherRepository) ListAll(ctx context.Context) ([]models.Teacher, error) {
	const query = `SELECT id, full_name, subjects, available_days, available_start, available_end,
		assigned_section_ids, created_at, updated_at FROM teachers ORDER BY full_name, id`
	var rows []teacherRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}

	teachers := make([]models.Teacher, 0, len(rows))
	for _, row := range rows {
		teachers = append(teachers, row.toModel())
	}
	return teachers, nil
}
