package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campusops/timetable-api/internal/models"
)

// ClassroomRepository provides persistence for classrooms.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository creates a new classroom repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// ListAll returns every bookable room in a stable order.
func (r *ClassroomRepository) ListAll(ctx context.Context) ([]models.Classroom, error) {
	const query = `SELECT id, name, room_type, capacity, created_at, updated_at FROM classrooms ORDER BY name, id`
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query); err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}
	return classrooms, nil
}
