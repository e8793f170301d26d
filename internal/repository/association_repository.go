package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/exam-office-api/internal/models"
)

// AssociationRepository manages pattern-to-course and pattern-to-program
// bindings and serves the resolver's precedence lookups.
type AssociationRepository struct {
	db *sqlx.DB
}

// NewAssociationRepository creates a new repository instance.
func NewAssociationRepository(db *sqlx.DB) *AssociationRepository {
	return &AssociationRepository{db: db}
}

// CoursePattern returns the pattern bound to a course through an active
// association whose date window covers the given day. sql.ErrNoRows when no
// override exists.
func (r *AssociationRepository) CoursePattern(ctx context.Context, courseID string, on time.Time) (*models.Pattern, error) {
	const query = `SELECT p.id, p.institution_id, p.regulation_code, p.pattern_code, p.pattern_name, p.description,
        p.course_type_applicability, p.program_type_applicability, p.program_category_applicability,
        p.assessment_frequency, p.periods_per_semester, p.wef_date, p.wef_batch_code, p.version_number,
        p.rounding_method, p.decimal_precision, p.status, p.is_default, p.is_active, p.created_at, p.updated_at
        FROM pattern_course_associations a
        JOIN assessment_patterns p ON p.id = a.pattern_id
        WHERE a.course_id = $1 AND a.is_active = TRUE
        AND a.effective_from <= $2 AND (a.effective_to IS NULL OR a.effective_to >= $2)
        ORDER BY a.effective_from DESC LIMIT 1`
	var pattern models.Pattern
	if err := r.db.GetContext(ctx, &pattern, query, courseID, on); err != nil {
		return nil, err
	}
	return &pattern, nil
}

// ProgramPattern returns the pattern bound to a program through an active
// association covering the given day. sql.ErrNoRows when none exists.
func (r *AssociationRepository) ProgramPattern(ctx context.Context, programID string, on time.Time) (*models.Pattern, error) {
	const query = `SELECT p.id, p.institution_id, p.regulation_code, p.pattern_code, p.pattern_name, p.description,
        p.course_type_applicability, p.program_type_applicability, p.program_category_applicability,
        p.assessment_frequency, p.periods_per_semester, p.wef_date, p.wef_batch_code, p.version_number,
        p.rounding_method, p.decimal_precision, p.status, p.is_default, p.is_active, p.created_at, p.updated_at
        FROM pattern_program_associations a
        JOIN assessment_patterns p ON p.id = a.pattern_id
        WHERE a.program_id = $1 AND a.is_active = TRUE
        AND a.effective_from <= $2 AND (a.effective_to IS NULL OR a.effective_to >= $2)
        ORDER BY a.effective_from DESC LIMIT 1`
	var pattern models.Pattern
	if err := r.db.GetContext(ctx, &pattern, query, programID, on); err != nil {
		return nil, err
	}
	return &pattern, nil
}

// DefaultPattern returns the institution's default pattern whose
// applicability matches the course type (or 'all'), preferring the most
// recent effective date. sql.ErrNoRows when no default is configured.
func (r *AssociationRepository) DefaultPattern(ctx context.Context, institutionID string, courseType models.CourseTypeApplicability) (*models.Pattern, error) {
	const query = `SELECT id, institution_id, regulation_code, pattern_code, pattern_name, description,
        course_type_applicability, program_type_applicability, program_category_applicability,
        assessment_frequency, periods_per_semester, wef_date, wef_batch_code, version_number,
        rounding_method, decimal_precision, status, is_default, is_active, created_at, updated_at
        FROM assessment_patterns
        WHERE institution_id = $1 AND is_default = TRUE AND status = 'active' AND is_active = TRUE
        AND course_type_applicability IN ($2, 'all')
        ORDER BY wef_date DESC LIMIT 1`
	var pattern models.Pattern
	if err := r.db.GetContext(ctx, &pattern, query, institutionID, courseType); err != nil {
		return nil, err
	}
	return &pattern, nil
}

// CourseAssociations lists the course bindings of a pattern.
func (r *AssociationRepository) CourseAssociations(ctx context.Context, patternID string) ([]models.PatternCourseAssociation, error) {
	const query = `SELECT id, pattern_id, course_id, course_code, effective_from, effective_to, is_active, created_at, updated_at
        FROM pattern_course_associations WHERE pattern_id = $1 ORDER BY effective_from DESC`
	var associations []models.PatternCourseAssociation
	if err := r.db.SelectContext(ctx, &associations, query, patternID); err != nil {
		return nil, fmt.Errorf("list course associations: %w", err)
	}
	return associations, nil
}

// ProgramAssociations lists the program bindings of a pattern.
func (r *AssociationRepository) ProgramAssociations(ctx context.Context, patternID string) ([]models.PatternProgramAssociation, error) {
	const query = `SELECT id, pattern_id, program_id, program_code, effective_from, effective_to, is_active, created_at, updated_at
        FROM pattern_program_associations WHERE pattern_id = $1 ORDER BY effective_from DESC`
	var associations []models.PatternProgramAssociation
	if err := r.db.SelectContext(ctx, &associations, query, patternID); err != nil {
		return nil, fmt.Errorf("list program associations: %w", err)
	}
	return associations, nil
}

// CourseOverlapExists reports whether another active course association has a
// date window intersecting the given one.
func (r *AssociationRepository) CourseOverlapExists(ctx context.Context, courseID string, from time.Time, to *time.Time, excludeID string) (bool, error) {
	query := `SELECT 1 FROM pattern_course_associations
        WHERE course_id = $1 AND is_active = TRUE
        AND effective_from <= COALESCE($3, effective_from)
        AND (effective_to IS NULL OR effective_to >= $2)`
	args := []interface{}{courseID, from, to}
	if excludeID != "" {
		query += " AND id <> $4"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course association overlap: %w", err)
	}
	return true, nil
}

// CreateCourseAssociation binds a pattern to a course.
func (r *AssociationRepository) CreateCourseAssociation(ctx context.Context, assoc *models.PatternCourseAssociation) error {
	if assoc.ID == "" {
		assoc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	assoc.CreatedAt = now
	assoc.UpdatedAt = now
	const query = `INSERT INTO pattern_course_associations (id, pattern_id, course_id, course_code, effective_from, effective_to, is_active, created_at, updated_at)
        VALUES (:id, :pattern_id, :course_id, :course_code, :effective_from, :effective_to, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assoc); err != nil {
		return fmt.Errorf("create course association: %w", err)
	}
	return nil
}

// CreateProgramAssociation binds a pattern to a program.
func (r *AssociationRepository) CreateProgramAssociation(ctx context.Context, assoc *models.PatternProgramAssociation) error {
	if assoc.ID == "" {
		assoc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	assoc.CreatedAt = now
	assoc.UpdatedAt = now
	const query = `INSERT INTO pattern_program_associations (id, pattern_id, program_id, program_code, effective_from, effective_to, is_active, created_at, updated_at)
        VALUES (:id, :pattern_id, :program_id, :program_code, :effective_from, :effective_to, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assoc); err != nil {
		return fmt.Errorf("create program association: %w", err)
	}
	return nil
}

// DeactivateCourseAssociation retires a course binding.
func (r *AssociationRepository) DeactivateCourseAssociation(ctx context.Context, id string) error {
	const query = `UPDATE pattern_course_associations SET is_active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate course association: %w", err)
	}
	return nil
}
