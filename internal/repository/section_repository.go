package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campusops/timetable-api/internal/models"
)

// SectionRepository provides persistence for sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository creates a new section repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

type sectionRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	SubjectIDs   pq.StringArray `db:"subject_ids"`
	Days         pq.StringArray `db:"days"`
	SchoolYearID string         `db:"school_year_id"`
	Semester     int            `db:"semester"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (row sectionRow) toModel() models.Section {
	days := make([]models.Weekday, 0, len(row.Days))
	for _, raw := range row.Days {
		if day, ok := models.ParseWeekday(raw); ok {
			days = append(days, day)
		}
	}
	return models.Section{
		ID:           row.ID,
		Name:         row.Name,
		SubjectIDs:   []string(row.SubjectIDs),
		Days:         days,
		SchoolYearID: row.SchoolYearID,
		Semester:     row.Semester,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

// ListByTerm returns the sections enrolled for a school year and semester in
// a stable order.
func (r *SectionRepository) ListByTerm(ctx context.Context, schoolYearID string, semester int) ([]models.Section, error) {
	const query = `SELECT id, name, subject_ids, days, school_year_id, semester, created_at, updated_at
		FROM sections WHERE school_year_id = $1 AND semester = $2 ORDER BY name, id`
	var rows []sectionRow
	if err := r.db.SelectContext(ctx, &rows, query, schoolYearID, semester); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}

	sections := make([]models.Section, 0, len(rows))
	for _, row := range rows {
		sections = append(sections, row.toModel())
	}
	return sections, nil
}
