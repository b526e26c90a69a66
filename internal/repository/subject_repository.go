package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campusops/timetable-api/internal/models"
)

// SubjectRepository provides persistence for subjects and their room
// requirements.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new subject repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

type subjectRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type roomRequirementRow struct {
	SubjectID     string  `db:"subject_id"`
	RoomType      string  `db:"room_type"`
	DurationHours float64 `db:"duration_hours"`
}

// ListAll returns the full subject catalogue with room requirements attached
// in declaration order.
func (r *SubjectRepository) ListAll(ctx context.Context) ([]models.Subject, error) {
	const subjectQuery = `SELECT id, name, created_at, updated_at FROM subjects ORDER BY name, id`
	var rows []subjectRow
	if err := r.db.SelectContext(ctx, &rows, subjectQuery); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}

	const requirementQuery = `SELECT subject_id, room_type, duration_hours
		FROM subject_room_requirements ORDER BY subject_id, position`
	var requirements []roomRequirementRow
	if err := r.db.SelectContext(ctx, &requirements, requirementQuery); err != nil {
		return nil, fmt.Errorf("list subject room requirements: %w", err)
	}

	bySubject := make(map[string][]models.RoomRequirement, len(rows))
	for _, req := range requirements {
		bySubject[req.SubjectID] = append(bySubject[req.SubjectID], models.RoomRequirement{
			RoomType:      req.RoomType,
			DurationHours: req.DurationHours,
		})
	}

	subjects := make([]models.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, models.Subject{
			ID:               row.ID,
			Name:             row.Name,
			RoomRequirements: bySubject[row.ID],
			CreatedAt:        row.CreatedAt,
			UpdatedAt:        row.UpdatedAt,
		})
	}
	return subjects, nil
}
