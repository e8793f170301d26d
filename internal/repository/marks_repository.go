package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/exam-office-api/internal/models"
)

// MarksRepository stores calculated internal marks per learner and course.
type MarksRepository struct {
	db *sqlx.DB
}

// NewMarksRepository creates a new repository instance.
func NewMarksRepository(db *sqlx.DB) *MarksRepository {
	return &MarksRepository{db: db}
}

const markColumns = `id, learner_id, course_id, pattern_id, course_internal_max_mark, total_raw_percentage,
    total_calculated_marks, total_after_rounding, is_eligible_for_external, eligibility_reasons,
    is_passed, passing_reasons, final_percentage, final_marks, breakdown, calculated_at`

// Upsert replaces the stored calculation for a learner and course. A fresh
// calculation always wins; results carry no identity beyond the pair.
func (r *MarksRepository) Upsert(ctx context.Context, mark *models.LearnerInternalMark) error {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	if mark.CalculatedAt.IsZero() {
		mark.CalculatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO learner_internal_marks (` + markColumns + `)
        VALUES (:id, :learner_id, :course_id, :pattern_id, :course_internal_max_mark, :total_raw_percentage,
        :total_calculated_marks, :total_after_rounding, :is_eligible_for_external, :eligibility_reasons,
        :is_passed, :passing_reasons, :final_percentage, :final_marks, :breakdown, :calculated_at)
        ON CONFLICT (learner_id, course_id) DO UPDATE SET
        pattern_id = EXCLUDED.pattern_id, course_internal_max_mark = EXCLUDED.course_internal_max_mark,
        total_raw_percentage = EXCLUDED.total_raw_percentage, total_calculated_marks = EXCLUDED.total_calculated_marks,
        total_after_rounding = EXCLUDED.total_after_rounding, is_eligible_for_external = EXCLUDED.is_eligible_for_external,
        eligibility_reasons = EXCLUDED.eligibility_reasons, is_passed = EXCLUDED.is_passed,
        passing_reasons = EXCLUDED.passing_reasons, final_percentage = EXCLUDED.final_percentage,
        final_marks = EXCLUDED.final_marks, breakdown = EXCLUDED.breakdown, calculated_at = EXCLUDED.calculated_at`
	if _, err := r.db.NamedExecContext(ctx, query, mark); err != nil {
		return fmt.Errorf("upsert internal mark: %w", err)
	}
	return nil
}

// Find returns the stored calculation for one learner and course.
func (r *MarksRepository) Find(ctx context.Context, learnerID, courseID string) (*models.LearnerInternalMark, error) {
	const query = `SELECT ` + markColumns + ` FROM learner_internal_marks WHERE learner_id = $1 AND course_id = $2`
	var mark models.LearnerInternalMark
	if err := r.db.GetContext(ctx, &mark, query, learnerID, courseID); err != nil {
		return nil, err
	}
	return &mark, nil
}

// ListByCourse returns every stored calculation for a course.
func (r *MarksRepository) ListByCourse(ctx context.Context, courseID string) ([]models.LearnerInternalMark, error) {
	const query = `SELECT ` + markColumns + ` FROM learner_internal_marks WHERE course_id = $1 ORDER BY learner_id`
	var marks []models.LearnerInternalMark
	if err := r.db.SelectContext(ctx, &marks, query, courseID); err != nil {
		return nil, fmt.Errorf("list internal marks: %w", err)
	}
	return marks, nil
}
