package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/exam-office-api/internal/models"
)

// PatternRepository persists internal-assessment patterns together with their
// components and sub-components.
type PatternRepository struct {
	db *sqlx.DB
}

// NewPatternRepository creates a new repository instance.
func NewPatternRepository(db *sqlx.DB) *PatternRepository {
	return &PatternRepository{db: db}
}

const patternColumns = `id, institution_id, regulation_code, pattern_code, pattern_name, description,
    course_type_applicability, program_type_applicability, program_category_applicability,
    assessment_frequency, periods_per_semester, wef_date, wef_batch_code, version_number,
    rounding_method, decimal_precision, status, is_default, is_active, created_at, updated_at`

// List returns patterns matching the filter, newest effective date first.
func (r *PatternRepository) List(ctx context.Context, filter models.PatternFilter) ([]models.Pattern, error) {
	query := `SELECT ` + patternColumns + ` FROM assessment_patterns WHERE 1=1`
	args := []interface{}{}
	if filter.InstitutionID != "" {
		query += fmt.Sprintf(" AND institution_id = $%d", len(args)+1)
		args = append(args, filter.InstitutionID)
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}
	if filter.CourseType != "" {
		query += fmt.Sprintf(" AND course_type_applicability IN ($%d, 'all')", len(args)+1)
		args = append(args, filter.CourseType)
	}
	if filter.ActiveOnly {
		query += " AND is_active = TRUE"
	}
	query += " ORDER BY wef_date DESC, pattern_code"

	var patterns []models.Pattern
	if err := r.db.SelectContext(ctx, &patterns, query, args...); err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}
	return patterns, nil
}

// FindByID returns a pattern with its components and sub-components loaded.
func (r *PatternRepository) FindByID(ctx context.Context, id string) (*models.Pattern, error) {
	query := `SELECT ` + patternColumns + ` FROM assessment_patterns WHERE id = $1`
	var pattern models.Pattern
	if err := r.db.GetContext(ctx, &pattern, query, id); err != nil {
		return nil, err
	}
	components, err := r.Components(ctx, id)
	if err != nil {
		return nil, err
	}
	pattern.Components = components
	return &pattern, nil
}

// NextVersionNumber computes the next version for a pattern code within an
// institution. Versioning is monotonic per (pattern_code, institution).
func (r *PatternRepository) NextVersionNumber(ctx context.Context, institutionID, patternCode string) (int, error) {
	const query = `SELECT COALESCE(MAX(version_number), 0) FROM assessment_patterns WHERE institution_id = $1 AND pattern_code = $2`
	var current int
	if err := r.db.GetContext(ctx, &current, query, institutionID, patternCode); err != nil {
		return 0, fmt.Errorf("next pattern version: %w", err)
	}
	return current + 1, nil
}

// Create inserts a pattern and its components in one transaction.
func (r *PatternRepository) Create(ctx context.Context, pattern *models.Pattern) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if pattern.ID == "" {
		pattern.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if pattern.CreatedAt.IsZero() {
		pattern.CreatedAt = now
	}
	pattern.UpdatedAt = now

	const insert = `INSERT INTO assessment_patterns (id, institution_id, regulation_code, pattern_code, pattern_name, description,
        course_type_applicability, program_type_applicability, program_category_applicability,
        assessment_frequency, periods_per_semester, wef_date, wef_batch_code, version_number,
        rounding_method, decimal_precision, status, is_default, is_active, created_at, updated_at)
        VALUES (:id, :institution_id, :regulation_code, :pattern_code, :pattern_name, :description,
        :course_type_applicability, :program_type_applicability, :program_category_applicability,
        :assessment_frequency, :periods_per_semester, :wef_date, :wef_batch_code, :version_number,
        :rounding_method, :decimal_precision, :status, :is_default, :is_active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, pattern); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert pattern: %w", err)
	}
	if err := r.replaceComponentsTx(ctx, tx, pattern.ID, pattern.Components); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit pattern: %w", err)
	}
	return nil
}

// Update rewrites pattern metadata and replaces its component set.
func (r *PatternRepository) Update(ctx context.Context, pattern *models.Pattern) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	pattern.UpdatedAt = time.Now().UTC()
	const update = `UPDATE assessment_patterns SET pattern_name = :pattern_name, description = :description,
        course_type_applicability = :course_type_applicability, program_type_applicability = :program_type_applicability,
        program_category_applicability = :program_category_applicability, assessment_frequency = :assessment_frequency,
        periods_per_semester = :periods_per_semester, wef_date = :wef_date, wef_batch_code = :wef_batch_code,
        rounding_method = :rounding_method, decimal_precision = :decimal_precision, status = :status,
        is_default = :is_default, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, update, pattern); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("update pattern: %w", err)
	}
	if err := r.replaceComponentsTx(ctx, tx, pattern.ID, pattern.Components); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit pattern update: %w", err)
	}
	return nil
}

// SetStatus moves a pattern through its lifecycle.
func (r *PatternRepository) SetStatus(ctx context.Context, id string, status models.PatternStatus) error {
	const query = `UPDATE assessment_patterns SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("set pattern status: %w", err)
	}
	return nil
}

// ClearDefault unsets the default flag on every other pattern in the same
// applicability scope before a new default is promoted.
func (r *PatternRepository) ClearDefault(ctx context.Context, institutionID string, courseType models.CourseTypeApplicability, excludeID string) error {
	const query = `UPDATE assessment_patterns SET is_default = FALSE, updated_at = $4
        WHERE institution_id = $1 AND course_type_applicability = $2 AND id <> $3 AND is_default = TRUE`
	if _, err := r.db.ExecContext(ctx, query, institutionID, courseType, excludeID, time.Now().UTC()); err != nil {
		return fmt.Errorf("clear default pattern: %w", err)
	}
	return nil
}

// Components returns a pattern's components with sub-components attached,
// in display order.
func (r *PatternRepository) Components(ctx context.Context, patternID string) ([]models.PatternComponent, error) {
	const query = `SELECT id, pattern_id, component_code, component_name, description, weightage_percentage,
        display_order, visible_to_learner, is_mandatory, can_be_waived, waiver_requires_approval,
        has_sub_components, calculation_method, best_of_count, requires_scheduled_exam,
        allows_continuous_assessment, is_active, created_at, updated_at
        FROM pattern_components WHERE pattern_id = $1 ORDER BY display_order`
	var components []models.PatternComponent
	if err := r.db.SelectContext(ctx, &components, query, patternID); err != nil {
		return nil, fmt.Errorf("load pattern components: %w", err)
	}
	for i := range components {
		subs, err := r.SubComponents(ctx, components[i].ID)
		if err != nil {
			return nil, err
		}
		components[i].SubComponents = subs
	}
	return components, nil
}

// SubComponents returns the sub-components under one component.
func (r *PatternRepository) SubComponents(ctx context.Context, componentID string) ([]models.PatternSubComponent, error) {
	const query = `SELECT id, component_id, sub_component_code, sub_component_name, description,
        sub_weightage_percentage, instance_number, display_order, scheduled_period, is_active, created_at, updated_at
        FROM pattern_sub_components WHERE component_id = $1 ORDER BY instance_number`
	var subs []models.PatternSubComponent
	if err := r.db.SelectContext(ctx, &subs, query, componentID); err != nil {
		return nil, fmt.Errorf("load sub-components: %w", err)
	}
	return subs, nil
}

// SubComponentsForPattern returns every sub-component under a pattern in one
// query, keyed lookups happen caller-side during calculation.
func (r *PatternRepository) SubComponentsForPattern(ctx context.Context, patternID string) ([]models.PatternSubComponent, error) {
	const query = `SELECT sc.id, sc.component_id, sc.sub_component_code, sc.sub_component_name, sc.description,
        sc.sub_weightage_percentage, sc.instance_number, sc.display_order, sc.scheduled_period, sc.is_active, sc.created_at, sc.updated_at
        FROM pattern_sub_components sc
        JOIN pattern_components c ON c.id = sc.component_id
        WHERE c.pattern_id = $1 ORDER BY sc.component_id, sc.instance_number`
	var subs []models.PatternSubComponent
	if err := r.db.SelectContext(ctx, &subs, query, patternID); err != nil {
		return nil, fmt.Errorf("load pattern sub-components: %w", err)
	}
	return subs, nil
}

func (r *PatternRepository) replaceComponentsTx(ctx context.Context, tx *sqlx.Tx, patternID string, components []models.PatternComponent) error {
	const deleteSubs = `DELETE FROM pattern_sub_components WHERE component_id IN (SELECT id FROM pattern_components WHERE pattern_id = $1)`
	if _, err := tx.ExecContext(ctx, deleteSubs, patternID); err != nil {
		return fmt.Errorf("clear sub-components: %w", err)
	}
	const deleteComponents = `DELETE FROM pattern_components WHERE pattern_id = $1`
	if _, err := tx.ExecContext(ctx, deleteComponents, patternID); err != nil {
		return fmt.Errorf("clear components: %w", err)
	}

	now := time.Now().UTC()
	for i := range components {
		component := &components[i]
		component.PatternID = patternID
		if component.ID == "" {
			component.ID = uuid.NewString()
		}
		if component.CreatedAt.IsZero() {
			component.CreatedAt = now
		}
		component.UpdatedAt = now

		const insertComponent = `INSERT INTO pattern_components (id, pattern_id, component_code, component_name, description,
            weightage_percentage, display_order, visible_to_learner, is_mandatory, can_be_waived, waiver_requires_approval,
            has_sub_components, calculation_method, best_of_count, requires_scheduled_exam, allows_continuous_assessment,
            is_active, created_at, updated_at)
            VALUES (:id, :pattern_id, :component_code, :component_name, :description,
            :weightage_percentage, :display_order, :visible_to_learner, :is_mandatory, :can_be_waived, :waiver_requires_approval,
            :has_sub_components, :calculation_method, :best_of_count, :requires_scheduled_exam, :allows_continuous_assessment,
            :is_active, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insertComponent, component); err != nil {
			return fmt.Errorf("insert component %s: %w", component.ComponentCode, err)
		}

		for j := range component.SubComponents {
			sub := &component.SubComponents[j]
			sub.ComponentID = component.ID
			if sub.ID == "" {
				sub.ID = uuid.NewString()
			}
			if sub.CreatedAt.IsZero() {
				sub.CreatedAt = now
			}
			sub.UpdatedAt = now

			const insertSub = `INSERT INTO pattern_sub_components (id, component_id, sub_component_code, sub_component_name,
                description, sub_weightage_percentage, instance_number, display_order, scheduled_period, is_active, created_at, updated_at)
                VALUES (:id, :component_id, :sub_component_code, :sub_component_name,
                :description, :sub_weightage_percentage, :instance_number, :display_order, :scheduled_period, :is_active, :created_at, :updated_at)`
			if _, err := tx.NamedExecContext(ctx, insertSub, sub); err != nil {
				return fmt.Errorf("insert sub-component %s: %w", sub.SubComponentCode, err)
			}
		}
	}

	return nil
}
