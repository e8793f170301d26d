package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campushq/exam-office-api/internal/models"
)

// CourseRepository reads course records the marks pipeline depends on.
// Course authoring belongs to the wider administrative portal, not here.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new repository instance.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns one course.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, course_code, course_name, course_type, program_id, institution_id,
        internal_max_mark, external_max_mark, is_active, created_at, updated_at
        FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// Learners returns the learners enrolled in a course.
func (r *CourseRepository) Learners(ctx context.Context, courseID string) ([]models.CourseLearner, error) {
	const query = `SELECT e.learner_id, l.full_name AS learner_name, l.roll_number, e.course_id
        FROM course_enrollments e
        JOIN learners l ON l.id = e.learner_id
        WHERE e.course_id = $1 AND e.is_active = TRUE
        ORDER BY l.roll_number`
	var learners []models.CourseLearner
	if err := r.db.SelectContext(ctx, &learners, query, courseID); err != nil {
		return nil, fmt.Errorf("list course learners: %w", err)
	}
	return learners, nil
}
